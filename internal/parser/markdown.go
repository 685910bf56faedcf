package parser

import (
	"io"
	"strconv"
	"strings"

	"github.com/dgallion1/legistruct/internal/lines"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownParser handles Markdown files using goldmark. Every source line of
// a paragraph stays its own line; headings are heading candidates and a line
// wholly inside **strong** is emphasized. Blank lines separate blocks.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (lines.Source, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(src))

	w := &mdWalker{src: src}
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		w.block(n)
	}
	return lines.FromSlice(w.out), nil
}

type mdWalker struct {
	src     []byte
	out     []lines.StyledLine
	lb      lineBuilder
	heading bool
	prefix  string // marker of the list item being opened
}

func (w *mdWalker) block(n ast.Node) {
	switch node := n.(type) {
	case *ast.Heading:
		w.separate()
		w.heading = true
		w.inlines(node, run{emph: true})
		w.flush()
		w.heading = false
	case *ast.Paragraph:
		w.separate()
		w.inlines(node, run{})
		w.flush()
	case *ast.TextBlock:
		w.inlines(node, run{})
		w.flush()
	case *ast.FencedCodeBlock, *ast.CodeBlock, *ast.HTMLBlock:
		w.separate()
		segs := n.Lines()
		for i := 0; i < segs.Len(); i++ {
			seg := segs.At(i)
			w.lb.add(run{text: strings.TrimRight(string(seg.Value(w.src)), "\r\n")})
			w.flush()
		}
	case *ast.List:
		w.separate()
		num := node.Start
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			if node.IsOrdered() {
				w.prefix = strconv.Itoa(num) + string(node.Marker) + " "
				num++
			} else {
				w.prefix = "- "
			}
			w.block(c)
		}
		w.prefix = ""
	default:
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			w.block(c)
		}
	}
}

// add writes a run, preceded by a pending list marker.
func (w *mdWalker) add(r run) {
	if w.prefix != "" {
		w.lb.add(run{text: w.prefix})
		w.prefix = ""
	}
	w.lb.add(r)
}

func (w *mdWalker) inlines(n ast.Node, style run) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch node := c.(type) {
		case *ast.Text:
			style.text = string(node.Segment.Value(w.src))
			w.add(style)
			if node.SoftLineBreak() || node.HardLineBreak() {
				w.flush()
			}
		case *ast.String:
			style.text = string(node.Value)
			w.add(style)
		case *ast.AutoLink:
			style.text = string(node.Label(w.src))
			w.add(style)
		case *ast.Emphasis:
			inner := style
			if node.Level >= 2 {
				inner.bold, inner.emph = true, true
			}
			w.inlines(node, inner)
		default:
			w.inlines(c, style)
		}
	}
}

// separate emits the blank line that stands between two blocks.
func (w *mdWalker) separate() {
	if len(w.out) > 0 && w.out[len(w.out)-1].Text != "" {
		w.out = append(w.out, lines.StyledLine{Style: lines.Style{Known: true}})
	}
}

func (w *mdWalker) flush() {
	if w.lb.empty() {
		w.lb = lineBuilder{}
		return
	}
	w.out = append(w.out, w.lb.line(0, w.heading))
}
