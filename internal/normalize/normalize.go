// Package normalize removes running headers, page numbers and OCR damage
// from extracted legal text and canonicalizes heading punctuation.
package normalize

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Context restricts where a repair rule may fire.
type Context string

const (
	// Anywhere replaces every occurrence.
	Anywhere Context = "any"
	// BetweenLetters replaces only when both neighbours are letters, so
	// numerals such as "Article 10" are never touched.
	BetweenLetters Context = "letters"
)

// Repair is one entry of the OCR character-repair table.
type Repair struct {
	From    string  `yaml:"from"`
	To      string  `yaml:"to"`
	Context Context `yaml:"context"`
}

// DefaultRepairs is the repair table used when none is configured.
func DefaultRepairs() []Repair {
	return []Repair{
		{From: "—", To: "-", Context: Anywhere}, // em dash
		{From: "–", To: "-", Context: Anywhere}, // en dash
		{From: "‒", To: "-", Context: Anywhere},
		{From: "‐", To: "-", Context: Anywhere},
		{From: "‑", To: "-", Context: Anywhere},
		{From: "−", To: "-", Context: Anywhere}, // minus sign
		{From: "’", To: "'", Context: Anywhere},
		{From: "0", To: "O", Context: BetweenLetters},
		{From: "1", To: "l", Context: BetweenLetters},
	}
}

// DefaultHeaderFooter lists the running banners of the reference editions.
func DefaultHeaderFooter() []string {
	return []string{"CODE GÉNÉRAL DES IMPÔTS", "Bulletin Officiel"}
}

// Options configures a Normalizer.
type Options struct {
	HeaderFooter []string
	Repairs      []Repair
}

// Normalizer is safe for concurrent use once built.
type Normalizer struct {
	literals map[string]bool
	anywhere []Repair
	letters  map[rune]rune
}

// New builds a Normalizer. Multi-rune "letters" rules are ignored; the
// letter-context check is defined per character.
func New(opts Options) *Normalizer {
	n := &Normalizer{
		literals: make(map[string]bool, len(opts.HeaderFooter)),
		letters:  make(map[rune]rune),
	}
	for _, l := range opts.HeaderFooter {
		if f := Fold(l); f != "" {
			n.literals[f] = true
		}
	}
	for _, r := range opts.Repairs {
		if r.From == "" {
			continue
		}
		switch r.Context {
		case BetweenLetters:
			from, fs := utf8.DecodeRuneInString(r.From)
			to, ts := utf8.DecodeRuneInString(r.To)
			if fs != len(r.From) || ts != len(r.To) {
				continue
			}
			n.letters[from] = to
		default:
			n.anywhere = append(n.anywhere, r)
		}
	}
	return n
}

var (
	pageNumberLine = regexp.MustCompile(`^[-–—\s]*\d{1,4}[-–—\s]*$`)
	leadingPageNum = regexp.MustCompile(`^\d{1,4}\s+`)
	trailingPageNo = regexp.MustCompile(`\s+\d{1,4}$`)
	multiSpace     = regexp.MustCompile(`[ \t]{2,}`)
	manyNewlines   = regexp.MustCompile(`\n{3,}`)
	periodUpper    = regexp.MustCompile(`\.(\p{Lu})`)
	keywordHeading = regexp.MustCompile(
		`\b(ARTICLE|SECTION|CHAPITRE|TITRE)[ \t]+(PREMIER|UNIQUE|[IVXLC]+|\d+(?:er)?)` +
			`(?:[ \t]*(bis|ter|quater|quinquies|sexies|septies|octies|nonies|decies|BIS|TER|QUATER))?` +
			`[ \t]*(\.[ \t]*-|\.|-)[ \t]*`)
)

// Fold returns s upper-cased, without diacritics and with collapsed spaces.
// It is the comparison key for header/footer literals and TOC markers.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.Join(strings.Fields(strings.ToUpper(out)), " ")
}

// Normalize runs every cleaning step over a whole document text.
func (n *Normalizer) Normalize(raw string) string {
	s := prepare(raw)
	s = n.stripNoiseLines(s)
	s = n.repair(s)
	s = CollapseWhitespace(s)
	s = splitKeywordHeadings(s)
	s = DedupeAdjacent(s)
	return s
}

// Line cleans a single extracted line: unicode form, OCR repairs and spacing.
func (n *Normalizer) Line(text string) string {
	s := prepare(text)
	s = strings.ReplaceAll(s, "\n", " ")
	s = n.repair(s)
	s = multiSpace.ReplaceAllString(s, " ")
	s = periodUpper.ReplaceAllString(s, ". $1")
	return strings.TrimSpace(s)
}

// IsNoise reports whether a single line is a page number or a running
// header/footer.
func (n *Normalizer) IsNoise(line string) bool {
	t := strings.TrimSpace(line)
	if t == "" {
		return false
	}
	if pageNumberLine.MatchString(t) {
		return true
	}
	if len(n.literals) == 0 {
		return false
	}
	f := Fold(t)
	if n.literals[f] {
		return true
	}
	if stripped := leadingPageNum.ReplaceAllString(f, ""); n.literals[stripped] {
		return true
	}
	if stripped := trailingPageNo.ReplaceAllString(f, ""); n.literals[stripped] {
		return true
	}
	return false
}

func prepare(s string) string {
	s = norm.NFC.String(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = strings.ReplaceAll(s, "\u202f", " ")
	return s
}

func (n *Normalizer) stripNoiseLines(s string) string {
	in := strings.Split(s, "\n")
	out := in[:0]
	for _, l := range in {
		if n.IsNoise(l) {
			continue
		}
		out = append(out, l)
	}
	return strings.Join(out, "\n")
}

func (n *Normalizer) repair(s string) string {
	for _, r := range n.anywhere {
		s = strings.ReplaceAll(s, r.From, r.To)
	}
	if len(n.letters) == 0 {
		return s
	}
	rs := []rune(s)
	changed := false
	for i := 1; i < len(rs)-1; i++ {
		to, ok := n.letters[rs[i]]
		if !ok {
			continue
		}
		if unicode.IsLetter(rs[i-1]) && unicode.IsLetter(rs[i+1]) {
			rs[i] = to
			changed = true
		}
	}
	if !changed {
		return s
	}
	return string(rs)
}

// CollapseWhitespace collapses runs of spaces and tabs, strips trailing blanks,
// limits blank lines to one and restores the space after a sentence period.
func CollapseWhitespace(s string) string {
	s = multiSpace.ReplaceAllString(s, " ")
	s = trimLineEnds(s)
	s = manyNewlines.ReplaceAllString(s, "\n\n")
	return periodUpper.ReplaceAllString(s, ". $1")
}

func trimLineEnds(s string) string {
	ls := strings.Split(s, "\n")
	for i, l := range ls {
		ls[i] = strings.TrimRight(l, " \t")
	}
	return strings.Join(ls, "\n")
}

// splitKeywordHeadings puts "ARTICLE 5 -" style headings on their own line
// with the canonical ".- " separator.
func splitKeywordHeadings(s string) string {
	matches := keywordHeading.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		return s
	}
	var b []byte
	last := 0
	for _, m := range matches {
		start, end := m[0], m[1]
		if numberedSeparator(s, m) {
			continue
		}
		b = append(b, s[last:start]...)
		if start > 0 {
			b = trimTrailingBlanks(b)
			if len(b) > 0 && b[len(b)-1] != '\n' {
				b = append(b, '\n')
			}
		}
		b = append(b, s[m[2]:m[3]]...)
		b = append(b, ' ')
		b = append(b, s[m[4]:m[5]]...)
		if m[6] >= 0 {
			b = append(b, ' ')
			b = append(b, s[m[6]:m[7]]...)
		}
		b = append(b, ".- "...)
		last = end
	}
	b = append(b, s[last:]...)
	return trimLineEnds(string(b))
}

// SplitHeadings breaks a single line before every structural keyword
// heading that does not already start it, so "... impots. ARTICLE 2.- Objet"
// yields two lines. The pieces keep their original wording.
func SplitHeadings(s string) []string {
	var out []string
	last := 0
	for _, m := range keywordHeading.FindAllStringSubmatchIndex(s, -1) {
		if m[0] == 0 || numberedSeparator(s, m) {
			continue
		}
		if head := strings.TrimSpace(s[last:m[0]]); head != "" {
			out = append(out, head)
		}
		last = m[0]
	}
	if last == 0 {
		return []string{s}
	}
	return append(out, strings.TrimSpace(s[last:]))
}

// numberedSeparator reports whether a keywordHeading match ends inside a
// number: "5.1" or "12-1" are not separators.
func numberedSeparator(s string, m []int) bool {
	sep, end := s[m[8]:m[9]], m[1]
	if sep != "." && sep != "-" || end >= len(s) {
		return false
	}
	next, _ := utf8.DecodeRuneInString(s[end:])
	return unicode.IsDigit(next)
}

func trimTrailingBlanks(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == ' ' || b[len(b)-1] == '\t') {
		b = b[:len(b)-1]
	}
	return b
}

// DedupeAdjacent drops a non-blank line identical to the line right above
// it. Blank lines are always kept.
func DedupeAdjacent(s string) string {
	in := strings.Split(s, "\n")
	out := make([]string, 0, len(in))
	for i, l := range in {
		if i > 0 && strings.TrimSpace(l) != "" && strings.TrimSpace(l) == strings.TrimSpace(in[i-1]) {
			continue
		}
		out = append(out, l)
	}
	return strings.Join(out, "\n")
}
