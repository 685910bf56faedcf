// Package cleaner formats article bodies: one sub-item or bullet per line,
// no duplicate lines, normalized spacing.
package cleaner

import (
	"regexp"
	"strings"

	"github.com/dgallion1/legistruct/internal/doctree"
	"github.com/dgallion1/legistruct/internal/normalize"
)

var (
	// 1° / 2°) / 3) / 4.- at the start of a word
	numberedItem = regexp.MustCompile(`(^|\s)(\d{1,2})\s*(?:°\)?|\)|\.\s*-)\s*`)
	bulletDot    = regexp.MustCompile(`\s*•\s*`)
	bulletDash   = regexp.MustCompile(`(?m)^[ \t]*-[ \t]*`)
	// "ARTICLE 2.- Objet" is a heading reference, not an item.
	headingRef = regexp.MustCompile(`(?i)\b(?:article|section|chapitre|titre)\s*$`)
)

// Clean returns the body with sub-items and bullets on their own lines.
// Clean(Clean(s)) == Clean(s).
func Clean(raw string) string {
	s := bulletDot.ReplaceAllString(raw, "\n- ")
	s = bulletDash.ReplaceAllString(s, "- ")
	s = splitNumbered(s)
	s = normalize.CollapseWhitespace(s)
	s = normalize.DedupeAdjacent(s)
	return strings.TrimSpace(s)
}

// splitNumbered puts every numbered sub-item on its own line as "N) ".
func splitNumbered(s string) string {
	var b strings.Builder
	last := 0
	for _, m := range numberedItem.FindAllStringSubmatchIndex(s, -1) {
		num := m[4]
		if headingRef.MatchString(s[max(0, num-16):num]) {
			continue
		}
		b.WriteString(s[last:m[0]])
		b.WriteString("\n")
		b.WriteString(s[num:m[5]])
		b.WriteString(") ")
		last = m[1]
	}
	if last == 0 {
		return s
	}
	b.WriteString(s[last:])
	return b.String()
}

// Apply returns a copy of doc with every article body, intro and the
// preamble cleaned. doc is not modified.
func Apply(doc *doctree.DocumentStructure) *doctree.DocumentStructure {
	out := doc.Clone()
	out.Preamble = Clean(out.Preamble)
	for _, t := range out.Titles {
		t.Intro = Clean(t.Intro)
		for _, c := range t.Chapters {
			c.Intro = Clean(c.Intro)
			for _, a := range c.Articles {
				a.Body = Clean(a.Body)
			}
		}
	}
	return out
}
