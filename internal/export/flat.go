// Package export turns a DocumentStructure into its interchange shapes.
// Nothing here mutates the document.
package export

import (
	"fmt"
	"strings"

	"github.com/dgallion1/legistruct/internal/doctree"
)

// DuplicatePolicy decides what a flat map does with a repeated key.
type DuplicatePolicy string

const (
	// Suffix keeps every occurrence: 5, 5~2, 5~3.
	Suffix DuplicatePolicy = "suffix"
	First  DuplicatePolicy = "first"
	Last   DuplicatePolicy = "last"
	// Concat joins the values with a blank line.
	Concat DuplicatePolicy = "concat"
)

// ParsePolicy validates a policy name. Empty means Suffix.
func ParsePolicy(s string) (DuplicatePolicy, error) {
	switch p := DuplicatePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return Suffix, nil
	case Suffix, First, Last, Concat:
		return p, nil
	}
	return "", fmt.Errorf("unknown duplicate policy %q (want suffix, first, last or concat)", s)
}

// Structure lists heading names by number.
type Structure struct {
	Titles   *OrderedMap `json:"titles"`
	Chapters *OrderedMap `json:"chapters"`
	Sections *OrderedMap `json:"sections"`
}

// Intros holds the text between a heading and its first child, keyed like
// Structure. A nil map means no heading of that level had any.
type Intros struct {
	Titles   *OrderedMap `json:"titles,omitempty"`
	Chapters *OrderedMap `json:"chapters,omitempty"`
}

// FlatExport is the {articles, structure} shape.
type FlatExport struct {
	Articles  *OrderedMap `json:"articles"`
	Structure Structure   `json:"structure"`
	Intros    *Intros     `json:"intros,omitempty"`
	Preamble  string      `json:"preamble,omitempty"`
}

// Flat maps article ids to bodies and heading numbers to names and intros.
// Synthetic buckets are left out of the structure maps; their articles and
// intros are not.
func Flat(doc *doctree.DocumentStructure, policy DuplicatePolicy) *FlatExport {
	out := &FlatExport{
		Articles: NewOrderedMap(),
		Structure: Structure{
			Titles:   NewOrderedMap(),
			Chapters: NewOrderedMap(),
			Sections: NewOrderedMap(),
		},
		Preamble: doc.Preamble,
	}
	var intros Intros
	for _, t := range doc.Titles {
		if !t.Synthetic {
			put(out.Structure.Titles, key(t.Number, t.Name), t.Name, policy)
		}
		if t.Intro != "" {
			if intros.Titles == nil {
				intros.Titles = NewOrderedMap()
			}
			put(intros.Titles, key(t.Number, t.Name), t.Intro, policy)
		}
		for _, c := range t.Chapters {
			if !c.Synthetic {
				put(out.Structure.Chapters, key(c.Number, c.Name), c.Name, policy)
			}
			if c.Intro != "" {
				if intros.Chapters == nil {
					intros.Chapters = NewOrderedMap()
				}
				put(intros.Chapters, key(c.Number, c.Name), c.Intro, policy)
			}
			for _, a := range c.Articles {
				put(out.Articles, a.ID, a.Body, policy)
			}
		}
	}
	for _, s := range doc.Sections {
		put(out.Structure.Sections, key(s.Number, s.Name), s.Name, policy)
	}
	if intros.Titles != nil || intros.Chapters != nil {
		out.Intros = &intros
	}
	return out
}

func key(number, name string) string {
	if number != "" {
		return number
	}
	return name
}

// put stores value under k according to policy.
func put(m *OrderedMap, k, value string, policy DuplicatePolicy) {
	prev, exists := m.Get(k)
	if !exists {
		m.Set(k, value)
		return
	}
	switch policy {
	case First:
		return
	case Last:
		m.Set(k, value)
		return
	case Concat:
		m.Set(k, prev+"\n\n"+value)
		return
	}
	for n := 2; ; n++ {
		alt := fmt.Sprintf("%s~%d", k, n)
		if _, taken := m.Get(alt); !taken {
			m.Set(alt, value)
			return
		}
	}
}
