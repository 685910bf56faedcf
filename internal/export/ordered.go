package export

import (
	"bytes"
	"encoding/json"
)

// OrderedMap is a string map that marshals its keys in insertion order.
type OrderedMap struct {
	keys   []string
	values map[string]string
}

// NewOrderedMap returns an empty map.
func NewOrderedMap() *OrderedMap {
	return &OrderedMap{values: make(map[string]string)}
}

// Set adds key at the end, or replaces its value in place.
func (m *OrderedMap) Set(key, value string) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

func (m *OrderedMap) Get(key string) (string, bool) {
	v, ok := m.values[key]
	return v, ok
}

func (m *OrderedMap) Keys() []string { return append([]string(nil), m.keys...) }
func (m *OrderedMap) Len() int       { return len(m.keys) }

func (m *OrderedMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(m.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON keeps the key order of the input object.
func (m *OrderedMap) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return err
	}
	m.keys = nil
	m.values = make(map[string]string)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := tok.(string)
		var v string
		if err := dec.Decode(&v); err != nil {
			return err
		}
		m.Set(key, v)
	}
	_, err := dec.Token()
	return err
}
