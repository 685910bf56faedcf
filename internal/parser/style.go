package parser

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/dgallion1/legistruct/internal/emphasis"
	"github.com/dgallion1/legistruct/internal/lines"
)

// run is a stretch of text sharing one style.
type run struct {
	text     string
	bold     bool
	emph     bool
	color    lines.RGB
	hasColor bool
	font     string
	size     float64
}

// tally counts weighted occurrences; the first key seen wins ties.
type tally[K comparable] struct {
	keys []K
	n    map[K]int
}

func (t *tally[K]) add(k K, w int) {
	if t.n == nil {
		t.n = make(map[K]int)
	}
	if _, ok := t.n[k]; !ok {
		t.keys = append(t.keys, k)
	}
	t.n[k] += w
}

func (t *tally[K]) top() (K, int) {
	var best K
	most := 0
	for _, k := range t.keys {
		if t.n[k] > most {
			best, most = k, t.n[k]
		}
	}
	return best, most
}

// lineBuilder accumulates runs into one styled line. A style attribute holds
// for the line when it covers every visible character; colour, font and size
// are the dominant values.
type lineBuilder struct {
	text   strings.Builder
	weight int
	bold   int
	emph   int
	colors tally[lines.RGB]
	fonts  tally[string]
	sizes  tally[float64]
}

func (b *lineBuilder) add(r run) {
	b.text.WriteString(r.text)
	w := visible(r.text)
	if w == 0 {
		return
	}
	b.weight += w
	if r.bold {
		b.bold += w
	}
	if r.emph {
		b.emph += w
	}
	if r.hasColor {
		b.colors.add(r.color, w)
	}
	if r.font != "" {
		b.fonts.add(r.font, w)
	}
	if r.size > 0 {
		b.sizes.add(r.size, w)
	}
}

func (b *lineBuilder) empty() bool { return strings.TrimSpace(b.text.String()) == "" }

// line returns the accumulated line and resets the builder.
func (b *lineBuilder) line(page int, headingCandidate bool) lines.StyledLine {
	l := lines.StyledLine{
		Text:             strings.TrimSpace(b.text.String()),
		HeadingCandidate: headingCandidate,
		Page:             page,
		Style:            lines.Style{Known: true},
	}
	if b.weight > 0 {
		l.Style.Bold = b.bold == b.weight
		l.Style.Emphasized = b.emph == b.weight
		if c, n := b.colors.top(); n*2 > b.weight {
			l.Style.Color, l.Style.HasColor = c, true
		}
		l.Style.FontName, _ = b.fonts.top()
		l.Style.FontSize, _ = b.sizes.top()
		if !l.Style.Bold && emphasis.IsBoldFontName(l.Style.FontName) {
			l.Style.Bold = true
		}
	}
	*b = lineBuilder{}
	return l
}

func visible(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}

// parseColor reads "#1F3A93", "1F3A93", "#13A" or "rgb(31, 58, 147)".
// "auto" and unknown notations report false.
func parseColor(s string) (lines.RGB, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if strings.HasPrefix(s, "rgb(") && strings.HasSuffix(s, ")") {
		parts := strings.Split(s[4:len(s)-1], ",")
		if len(parts) != 3 {
			return 0, false
		}
		var ch [3]uint8
		for i, p := range parts {
			v, err := strconv.Atoi(strings.TrimSpace(p))
			if err != nil || v < 0 || v > 255 {
				return 0, false
			}
			ch[i] = uint8(v)
		}
		return lines.NewRGB(ch[0], ch[1], ch[2]), true
	}
	s = strings.TrimPrefix(s, "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return 0, false
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, false
	}
	return lines.RGB(v), true
}
