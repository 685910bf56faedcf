package parser

import (
	"io"
	"strings"

	"github.com/dgallion1/legistruct/internal/lines"
)

// TextParser handles plain text files. Lines carry no style, so headings are
// recognized from their wording alone. Form feeds separate pages.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (lines.Source, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	text := strings.ReplaceAll(string(b), "\r\n", "\n")
	return lines.FromText(text), nil
}
