// Package lines defines the styled line stream that every document format is
// reduced to before structure recovery.
package lines

import (
	"fmt"
)

// RGB is a packed 0xRRGGBB colour.
type RGB uint32

// Channels splits the packed colour into its red, green and blue components.
func (c RGB) Channels() (r, g, b uint8) {
	return uint8(c >> 16), uint8(c >> 8), uint8(c)
}

// NewRGB packs three channels.
func NewRGB(r, g, b uint8) RGB {
	return RGB(uint32(r)<<16 | uint32(g)<<8 | uint32(b))
}

// Style holds the visual signals a source could observe for a line.
type Style struct {
	Known      bool // false for plain-text sources
	Emphasized bool // source-level emphasis (markdown heading, <strong>, docx heading style)
	Color      RGB
	HasColor   bool
	Bold       bool
	FontName   string
	FontSize   float64
}

// StyledLine is one line of text in reading order.
type StyledLine struct {
	Text             string
	HeadingCandidate bool
	Style            Style
	Page             int // 0-based
}

// Source yields styled lines lazily, once, in reading order.
//
// Usage follows bufio.Scanner:
//
//	for src.Next() {
//		l := src.Line()
//	}
//	if err := src.Err(); err != nil { ... }
type Source interface {
	Next() bool
	Line() StyledLine
	Err() error
	Close() error
}

// SourceUnavailableError reports that the input document could not be opened
// or read. It is the only fatal error of a parse run.
type SourceUnavailableError struct {
	Path string
	Err  error
}

func (e *SourceUnavailableError) Error() string {
	return fmt.Sprintf("source unavailable: %s: %v", e.Path, e.Err)
}

func (e *SourceUnavailableError) Unwrap() error { return e.Err }

// Unavailable wraps err as a SourceUnavailableError for path.
func Unavailable(path string, err error) error {
	return &SourceUnavailableError{Path: path, Err: err}
}

// SliceSource serves lines from memory.
type SliceSource struct {
	lines []StyledLine
	pos   int
	cur   StyledLine
}

// FromSlice returns a Source over ls.
func FromSlice(ls []StyledLine) *SliceSource {
	return &SliceSource{lines: ls}
}

// FromText returns an unstyled Source with one line per newline-separated
// segment. Form feeds advance the page index.
func FromText(text string) *SliceSource {
	var out []StyledLine
	page := 0
	start := 0
	for i := 0; i <= len(text); i++ {
		if i < len(text) && text[i] != '\n' && text[i] != '\f' {
			continue
		}
		out = append(out, StyledLine{Text: text[start:i], Page: page})
		if i < len(text) && text[i] == '\f' {
			page++
		}
		start = i + 1
	}
	// A trailing newline does not start another line.
	if n := len(out); n > 0 && out[n-1].Text == "" && len(text) > 0 && (text[len(text)-1] == '\n' || text[len(text)-1] == '\f') {
		out = out[:n-1]
	}
	if len(text) == 0 {
		out = nil
	}
	return FromSlice(out)
}

func (s *SliceSource) Next() bool {
	if s.pos >= len(s.lines) {
		return false
	}
	s.cur = s.lines[s.pos]
	s.pos++
	return true
}

func (s *SliceSource) Line() StyledLine { return s.cur }
func (s *SliceSource) Err() error       { return nil }
func (s *SliceSource) Close() error     { return nil }

// Collect drains src into a slice and closes it.
func Collect(src Source) ([]StyledLine, error) {
	defer src.Close()
	var out []StyledLine
	for src.Next() {
		out = append(out, src.Line())
	}
	return out, src.Err()
}
