package parser

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dgallion1/legistruct/internal/emphasis"
	"github.com/dgallion1/legistruct/internal/lines"
	"github.com/tsawler/tabula/layout"
	"github.com/tsawler/tabula/reader"
)

// LayoutPDFParser handles PDF files with tabula's line detector, which
// copes better with multi-column pages and can drop running headers and
// footers it detects across pages. Without header/footer exclusion each
// page is extracted when the previous one has been consumed; with it, all
// pages are read once up front because detection needs every page.
type LayoutPDFParser struct {
	ExcludeHeadersFooters bool
}

func (p *LayoutPDFParser) Parse(r io.Reader, filename string) (lines.Source, error) {
	tmpPath, _, err := spoolTemp(r, "legistruct-layout-*.pdf")
	if err != nil {
		return nil, err
	}

	rd, err := reader.Open(tmpPath)
	if err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	src, err := newLayoutSource(pdfPages{rd}, p.ExcludeHeadersFooters)
	if err != nil {
		rd.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	src.tmpPath = tmpPath
	return src, nil
}

// pageReader yields the text fragments of one 0-based page.
type pageReader interface {
	PageCount() (int, error)
	Page(i int) (layout.PageFragments, error)
	Close() error
}

type pdfPages struct {
	r *reader.Reader
}

func (p pdfPages) PageCount() (int, error) { return p.r.PageCount() }
func (p pdfPages) Close() error            { return p.r.Close() }

func (p pdfPages) Page(i int) (layout.PageFragments, error) {
	pg, err := p.r.GetPage(i)
	if err != nil {
		return layout.PageFragments{}, err
	}
	frags, err := p.r.ExtractTextFragments(pg)
	if err != nil {
		return layout.PageFragments{}, err
	}
	w, _ := pg.Width()
	h, _ := pg.Height()
	return layout.PageFragments{PageIndex: i, Fragments: frags, PageWidth: w, PageHeight: h}, nil
}

type layoutSource struct {
	pages    pageReader
	tmpPath  string
	numPages int
	exclude  bool
	detector *layout.LineDetector

	// Set on the first Next when exclude is on.
	hf      *layout.HeaderFooterResult
	scanned []layout.PageFragments
	ready   bool

	page   int // pages extracted so far
	buf    []lines.StyledLine
	cur    lines.StyledLine
	err    error
	closed bool
}

func newLayoutSource(pages pageReader, exclude bool) (*layoutSource, error) {
	n, err := pages.PageCount()
	if err != nil {
		return nil, err
	}
	return &layoutSource{
		pages:    pages,
		numPages: n,
		exclude:  exclude,
		detector: layout.NewLineDetector(),
	}, nil
}

// scanAll reads every page once and runs header/footer detection over them.
// Unreadable pages are left out of detection and reported when reached.
func (s *layoutSource) scanAll() {
	s.ready = true
	if !s.exclude {
		return
	}
	s.scanned = make([]layout.PageFragments, s.numPages)
	all := make([]layout.PageFragments, 0, s.numPages)
	for i := 0; i < s.numPages; i++ {
		pf, err := s.pages.Page(i)
		if err != nil {
			s.scanned[i] = layout.PageFragments{PageIndex: -1}
			continue
		}
		s.scanned[i] = pf
		all = append(all, pf)
	}
	if len(all) > 0 {
		s.hf = layout.NewHeaderFooterDetector().Detect(all)
	}
}

func (s *layoutSource) nextPage(i int) (layout.PageFragments, error) {
	if s.scanned == nil {
		return s.pages.Page(i)
	}
	pf := s.scanned[i]
	s.scanned[i] = layout.PageFragments{}
	if pf.PageIndex < 0 {
		return s.pages.Page(i)
	}
	return pf, nil
}

func (s *layoutSource) Next() bool {
	if !s.ready && !s.closed {
		s.scanAll()
	}
	for len(s.buf) == 0 {
		if s.closed || s.err != nil || s.page >= s.numPages {
			return false
		}
		i := s.page
		s.page++
		pf, err := s.nextPage(i)
		if err != nil {
			s.err = fmt.Errorf("page %d: %w", i+1, err)
			return false
		}
		frags := pf.Fragments
		if s.hf != nil {
			frags = s.hf.FilterFragments(i, frags, pf.PageHeight)
		}
		s.buf = layoutLines(s.detector.Detect(frags, pf.PageWidth, pf.PageHeight).Lines, i)
	}
	s.cur = s.buf[0]
	s.buf = s.buf[1:]
	return true
}

func (s *layoutSource) Line() lines.StyledLine { return s.cur }
func (s *layoutSource) Err() error             { return s.err }

func (s *layoutSource) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.scanned = nil
	err := s.pages.Close()
	if s.tmpPath != "" {
		if rerr := os.Remove(s.tmpPath); err == nil {
			err = rerr
		}
	}
	return err
}

func layoutLines(ls []layout.Line, page int) []lines.StyledLine {
	out := make([]lines.StyledLine, 0, len(ls))
	for _, l := range ls {
		text := strings.TrimSpace(l.Text)
		if text == "" {
			continue
		}
		// Fragments carry the font; the dominant one styles the line.
		var fonts tally[string]
		var sizes tally[float64]
		for _, f := range l.Fragments {
			w := visible(f.Text)
			fonts.add(f.FontName, w)
			sizes.add(f.FontSize, w)
		}
		font, _ := fonts.top()
		size, _ := sizes.top()
		out = append(out, lines.StyledLine{
			Text: text,
			Page: page,
			Style: lines.Style{
				Known:    true,
				FontName: font,
				FontSize: size,
				Bold:     emphasis.IsBoldFontName(font),
			},
		})
	}
	return out
}
