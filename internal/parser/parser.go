// Package parser reduces each supported document format to a stream of
// styled lines.
package parser

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgallion1/legistruct/internal/lines"
)

// Parser converts raw document bytes into a line source. The caller must
// Close the returned source.
type Parser interface {
	Parse(r io.Reader, filename string) (lines.Source, error)
}

// PDF backends.
const (
	BackendText   = "text"
	BackendLayout = "layout"
)

// Options selects and tunes the format parsers.
type Options struct {
	PDFBackend            string // BackendText (default) or BackendLayout
	FallbackPdftotext     bool
	ExcludeHeadersFooters bool // layout backend only
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string, opts Options) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".pdf":
		if opts.PDFBackend == BackendLayout {
			return &LayoutPDFParser{ExcludeHeadersFooters: opts.ExcludeHeadersFooters}, nil
		}
		return &PDFParser{FallbackPdftotext: opts.FallbackPdftotext}, nil
	case ".docx":
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// OpenFile parses the document at path. Every failure is reported as a
// *lines.SourceUnavailableError.
func OpenFile(path string, opts Options) (lines.Source, error) {
	p, err := ForFile(path, opts)
	if err != nil {
		return nil, lines.Unavailable(path, err)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, lines.Unavailable(path, err)
	}
	defer f.Close()

	src, err := p.Parse(f, filepath.Base(path))
	if err != nil {
		return nil, lines.Unavailable(path, err)
	}
	return src, nil
}

// spoolTemp copies r into a temp file and returns its path. The caller
// removes the file.
func spoolTemp(r io.Reader, pattern string) (string, int64, error) {
	tmp, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", 0, fmt.Errorf("create temp file: %w", err)
	}
	path := tmp.Name()
	size, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return "", 0, fmt.Errorf("write temp file: %w", err)
	}
	return path, size, nil
}
