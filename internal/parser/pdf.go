package parser

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/dgallion1/legistruct/internal/lines"
	pdflib "github.com/ledongthuc/pdf"
)

// PDFParser handles PDF files with the glyph stream of ledongthuc/pdf. Pages
// are decoded lazily as lines are consumed. If the library cannot open the
// file it falls back to pdftotext when enabled, which yields unstyled lines.
type PDFParser struct {
	FallbackPdftotext bool
}

// Glyphs whose baselines differ by at most rowTolerance points share a row.
const rowTolerance = 3.0

// A horizontal gap wider than spaceRatio times the font size separates words.
const spaceRatio = 0.2

func (p *PDFParser) Parse(r io.Reader, filename string) (lines.Source, error) {
	// ledongthuc/pdf requires a ReadSeeker+size, so we write to a temp file.
	tmpPath, _, err := spoolTemp(r, "legistruct-pdf-*.pdf")
	if err != nil {
		return nil, err
	}

	f, reader, err := pdflib.Open(tmpPath)
	if err == nil && reader.NumPage() == 0 {
		f.Close()
		err = fmt.Errorf("no pages")
	}
	if err != nil {
		defer os.Remove(tmpPath)
		if p.FallbackPdftotext {
			text, ferr := extractPdftotext(tmpPath)
			if ferr == nil {
				return lines.FromText(text), nil
			}
			return nil, fmt.Errorf("open pdf: %w (fallback: %v)", err, ferr)
		}
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	return &pdfSource{
		tmpPath:  tmpPath,
		file:     f,
		reader:   reader,
		numPages: reader.NumPage(),
	}, nil
}

// pdfSource yields the rows of one page at a time.
type pdfSource struct {
	tmpPath  string
	file     *os.File
	reader   *pdflib.Reader
	numPages int
	page     int // pages decoded so far
	buf      []lines.StyledLine
	cur      lines.StyledLine
	skipped  []int
	closed   bool
}

func (s *pdfSource) Next() bool {
	for len(s.buf) == 0 {
		if s.closed || s.page >= s.numPages {
			return false
		}
		s.page++
		page := s.reader.Page(s.page)
		if page.V.IsNull() {
			continue
		}
		texts, err := pageTexts(page)
		if err != nil {
			s.skipped = append(s.skipped, s.page-1)
			continue
		}
		s.buf = glyphRows(texts, s.page-1)
	}
	s.cur = s.buf[0]
	s.buf = s.buf[1:]
	return true
}

func (s *pdfSource) Line() lines.StyledLine { return s.cur }
func (s *pdfSource) Err() error             { return nil }

// SkippedPages lists the 0-based pages whose content stream could not be
// decoded.
func (s *pdfSource) SkippedPages() []int { return s.skipped }

func (s *pdfSource) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	err := s.file.Close()
	os.Remove(s.tmpPath)
	return err
}

// pageTexts reads the glyphs of a page. The library panics on some
// malformed content streams.
func pageTexts(p pdflib.Page) (texts []pdflib.Text, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("read page content: %v", rec)
		}
	}()
	return p.Content().Text, nil
}

// glyphRows groups glyphs into rows by baseline, top of page first, and
// assembles each row left to right.
func glyphRows(texts []pdflib.Text, page int) []lines.StyledLine {
	type bucket struct {
		yMin, yMax float64
		texts      []pdflib.Text
	}
	var buckets []bucket
	for _, t := range texts {
		if t.S == "" || t.S == "\n" {
			continue
		}
		found := false
		for i := range buckets {
			b := &buckets[i]
			if t.Y >= b.yMin-rowTolerance && t.Y <= b.yMax+rowTolerance {
				b.texts = append(b.texts, t)
				b.yMin = min(b.yMin, t.Y)
				b.yMax = max(b.yMax, t.Y)
				found = true
				break
			}
		}
		if !found {
			buckets = append(buckets, bucket{yMin: t.Y, yMax: t.Y, texts: []pdflib.Text{t}})
		}
	}

	sort.SliceStable(buckets, func(i, j int) bool {
		return buckets[i].yMax > buckets[j].yMax
	})

	out := make([]lines.StyledLine, 0, len(buckets))
	for _, b := range buckets {
		sort.SliceStable(b.texts, func(i, j int) bool {
			return b.texts[i].X < b.texts[j].X
		})
		var lb lineBuilder
		for i, t := range b.texts {
			if i > 0 {
				prev := b.texts[i-1]
				gap := t.X - (prev.X + prev.W)
				size := max(t.FontSize, prev.FontSize)
				if gap > spaceRatio*size && !strings.HasSuffix(prev.S, " ") && !strings.HasPrefix(t.S, " ") {
					lb.add(run{text: " "})
				}
			}
			lb.add(run{text: t.S, font: t.Font, size: t.FontSize})
		}
		if lb.empty() {
			continue
		}
		out = append(out, lb.line(page, false))
	}
	return out
}

func extractPdftotext(path string) (string, error) {
	cmd := exec.Command("pdftotext", "-layout", path, "-")
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("pdftotext: %w", err)
	}
	return string(out), nil
}
