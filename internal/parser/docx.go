package parser

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/dgallion1/legistruct/internal/lines"
	"github.com/fumiama/go-docx"
)

// DOCXParser handles .docx files. Each paragraph becomes one line; run
// colour, bold and size feed the line style, and heading paragraph styles
// mark heading candidates.
type DOCXParser struct{}

func (p *DOCXParser) Parse(r io.Reader, filename string) (lines.Source, error) {
	// go-docx needs a ReadSeeker+size, so write to temp file.
	tmpPath, size, err := spoolTemp(r, "legistruct-docx-*.docx")
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmpPath)

	tmp, err := os.Open(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("open temp file: %w", err)
	}
	doc, err := docx.Parse(tmp, size)
	tmp.Close()
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	var out []lines.StyledLine
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		var lb lineBuilder
		for _, child := range para.Children {
			r, ok := child.(*docx.Run)
			if !ok {
				continue
			}
			lb.add(docxRun(r))
		}
		level := docxHeadingLevel(para)
		l := lb.line(0, level > 0)
		if level > 0 {
			l.Style.Emphasized = true
		}
		out = append(out, l)
	}
	return lines.FromSlice(out), nil
}

func docxRun(r *docx.Run) run {
	var buf strings.Builder
	for _, rc := range r.Children {
		if t, ok := rc.(*docx.Text); ok {
			buf.WriteString(t.Text)
		}
	}
	out := run{text: buf.String()}
	props := r.RunProperties
	if props == nil {
		return out
	}
	out.bold = props.Bold != nil
	if props.Color != nil {
		out.color, out.hasColor = parseColor(props.Color.Val)
	}
	if props.Size != nil {
		// w:sz is in half-points.
		if half, err := strconv.Atoi(props.Size.Val); err == nil {
			out.size = float64(half) / 2
		}
	}
	return out
}

func docxHeadingLevel(para *docx.Paragraph) int {
	if para.Properties == nil || para.Properties.Style == nil {
		return 0
	}
	style := strings.ToLower(strings.ReplaceAll(para.Properties.Style.Val, " ", ""))
	if style == "title" {
		return 1
	}
	if !strings.HasPrefix(style, "heading") {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimPrefix(style, "heading"))
	if err != nil || n < 1 || n > 9 {
		return 0
	}
	return n
}
