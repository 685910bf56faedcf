package normalize

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/dgallion1/legistruct/internal/lines"
)

// FilterOptions enables the stream-only cleanups.
type FilterOptions struct {
	// SkipTOC drops a table of contents running from a "TABLE DES MATIÈRES"
	// or "SOMMAIRE" line on one of the first pages up to the first
	// "TITRE PREMIER"/"ARTICLE PREMIER". When no such marker follows within
	// tocLookahead lines the held lines are put back into the stream.
	SkipTOC bool
	// DropTOCEntries drops short lines carrying a dot leader.
	DropTOCEntries bool
	// FootnoteRatio drops lines set smaller than ratio x median font size.
	// Zero disables it.
	FootnoteRatio float64
}

// FilterStats counts what a Filter removed.
type FilterStats struct {
	Noise      int `json:"noise"`
	Duplicates int `json:"duplicates"`
	TOC        int `json:"toc"`
	Footnotes  int `json:"footnotes"`
	// UnclosedTOC counts TOC openers with no end marker in reach.
	UnclosedTOC int `json:"unclosed_toc,omitempty"`
}

var dotLeader = regexp.MustCompile(`\.{5,}|…{2,}`)

const (
	// footnoteWarmup is the number of sized lines seen before the median
	// is trusted.
	footnoteWarmup = 40
	// tocPageWindow is the number of leading pages a TOC may open on.
	tocPageWindow = 30
	// tocLookahead is how many lines after the opener are held while
	// waiting for the end marker.
	tocLookahead = 50
)

// Filter applies a Normalizer to a line stream. Lines carrying an inline
// keyword heading are split, each piece keeping the line's style and page.
type Filter struct {
	src  lines.Source
	n    *Normalizer
	opts FilterOptions

	cur     lines.StyledLine
	prev    string
	pending []lines.StyledLine // split pieces and released TOC lines
	held    []lines.StyledLine // opener first
	inTOC   bool
	done    bool
	stats   FilterStats

	sizes map[int]int // font size in half points -> count
	sized int
}

// NewFilter wraps src.
func NewFilter(src lines.Source, n *Normalizer, opts FilterOptions) *Filter {
	return &Filter{src: src, n: n, opts: opts, sizes: make(map[int]int)}
}

func (f *Filter) Next() bool {
	for {
		l, ok := f.pull()
		if !ok {
			if f.inTOC {
				f.releaseTOC()
				continue
			}
			return false
		}
		text := l.Text

		if f.n.IsNoise(text) {
			f.stats.Noise++
			continue
		}
		if f.opts.SkipTOC && f.holdTOC(l) {
			continue
		}
		if f.opts.DropTOCEntries && len(text) < 200 && dotLeader.MatchString(text) {
			f.stats.TOC++
			continue
		}
		if f.opts.FootnoteRatio > 0 && f.isFootnote(l) {
			f.stats.Footnotes++
			continue
		}
		if text != "" && text == f.prev {
			f.stats.Duplicates++
			continue
		}
		f.prev = text
		f.cur = l
		return true
	}
}

func (f *Filter) Line() lines.StyledLine { return f.cur }
func (f *Filter) Err() error             { return f.src.Err() }
func (f *Filter) Close() error           { return f.src.Close() }

// Stats returns the removal counters so far.
func (f *Filter) Stats() FilterStats { return f.stats }

// pull returns the next normalized line, queued pieces first.
func (f *Filter) pull() (lines.StyledLine, bool) {
	if len(f.pending) > 0 {
		l := f.pending[0]
		f.pending = f.pending[1:]
		return l, true
	}
	if f.done || !f.src.Next() {
		f.done = true
		return lines.StyledLine{}, false
	}
	l := f.src.Line()
	l.Text = f.n.Line(l.Text)
	parts := SplitHeadings(l.Text)
	if len(parts) == 1 {
		return l, true
	}
	for _, p := range parts[1:] {
		piece := l
		piece.Text = p
		f.pending = append(f.pending, piece)
	}
	l.Text = parts[0]
	return l, true
}

// holdTOC reports whether l was taken by the TOC skip.
func (f *Filter) holdTOC(l lines.StyledLine) bool {
	folded := Fold(l.Text)
	if !f.inTOC {
		if l.Page >= tocPageWindow {
			return false
		}
		if strings.HasPrefix(folded, "TABLE DES MATIERES") || folded == "SOMMAIRE" {
			f.inTOC = true
			f.held = append(f.held[:0], l)
			return true
		}
		return false
	}
	if (strings.HasPrefix(folded, "TITRE PREMIER") || strings.HasPrefix(folded, "ARTICLE PREMIER")) &&
		!dotLeader.MatchString(l.Text) {
		f.stats.TOC += len(f.held)
		f.held = f.held[:0]
		f.inTOC = false
		return false
	}
	f.held = append(f.held, l)
	if len(f.held) > tocLookahead+1 {
		f.releaseTOC()
	}
	return true
}

// releaseTOC drops the opener and puts every other held line back in
// front of the queue.
func (f *Filter) releaseTOC() {
	f.stats.TOC++
	f.stats.UnclosedTOC++
	back := make([]lines.StyledLine, 0, len(f.held)-1+len(f.pending))
	back = append(back, f.held[1:]...)
	f.pending = append(back, f.pending...)
	f.held = f.held[:0]
	f.inTOC = false
}

func (f *Filter) isFootnote(l lines.StyledLine) bool {
	size := l.Style.FontSize
	if !l.Style.Known || size <= 0 {
		return false
	}
	key := int(math.Round(size * 2))
	f.sizes[key]++
	f.sized++
	if f.sized < footnoteWarmup {
		return false
	}
	return size < f.median()*f.opts.FootnoteRatio
}

func (f *Filter) median() float64 {
	keys := make([]int, 0, len(f.sizes))
	for k := range f.sizes {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	half := f.sized / 2
	seen := 0
	for _, k := range keys {
		seen += f.sizes[k]
		if seen > half {
			return float64(k) / 2
		}
	}
	return float64(keys[len(keys)-1]) / 2
}
