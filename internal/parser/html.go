package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/legistruct/internal/lines"
	"golang.org/x/net/html"
)

// HTMLParser handles HTML files. Block elements and <br> end lines; h1-h6
// are heading candidates, b/strong mark emphasis and inline colour comes
// from style="color:..." or <font color>.
type HTMLParser struct{}

// blockTags end the current line when they open and when they close.
var blockTags = map[string]bool{
	"p": true, "div": true, "li": true, "td": true, "th": true, "tr": true,
	"blockquote": true, "pre": true, "section": true, "article": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"ul": true, "ol": true, "table": true, "dt": true, "dd": true,
}

func (p *HTMLParser) Parse(r io.Reader, filename string) (lines.Source, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	w := &htmlWalker{}
	if body := findBody(doc); body != nil {
		w.walk(body, run{})
	} else {
		w.walk(doc, run{})
	}
	w.flush()
	return lines.FromSlice(w.out), nil
}

type htmlWalker struct {
	out     []lines.StyledLine
	lb      lineBuilder
	heading bool
}

func (w *htmlWalker) flush() {
	if w.lb.empty() {
		w.lb = lineBuilder{}
		return
	}
	l := w.lb.line(0, w.heading)
	if w.heading {
		l.Style.Emphasized = true
	}
	w.out = append(w.out, l)
}

func (w *htmlWalker) walk(n *html.Node, style run) {
	switch n.Type {
	case html.TextNode:
		style.text = collapseSpaces(n.Data)
		w.lb.add(style)
		return
	case html.ElementNode:
		switch n.Data {
		case "script", "style", "nav", "footer", "header", "head":
			return
		case "br":
			w.flush()
			return
		case "b", "strong":
			style.bold = true
			style.emph = true
		}
		if c, ok := elementColor(n); ok {
			style.color, style.hasColor = c, true
		}
	}

	block := n.Type == html.ElementNode && blockTags[n.Data]
	level := headingLevel(n.Data)
	if block {
		w.flush()
		if level > 0 {
			w.heading = true
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c, style)
	}
	if block {
		w.flush()
		if level > 0 {
			w.heading = false
		}
	}
}

func headingLevel(tag string) int {
	switch tag {
	case "h1":
		return 1
	case "h2":
		return 2
	case "h3":
		return 3
	case "h4":
		return 4
	case "h5":
		return 5
	case "h6":
		return 6
	}
	return 0
}

// elementColor reads the colour set on the element itself.
func elementColor(n *html.Node) (lines.RGB, bool) {
	for _, a := range n.Attr {
		switch strings.ToLower(a.Key) {
		case "color":
			if n.Data == "font" {
				return parseColor(a.Val)
			}
		case "style":
			for _, decl := range strings.Split(a.Val, ";") {
				k, v, ok := strings.Cut(decl, ":")
				if ok && strings.EqualFold(strings.TrimSpace(k), "color") {
					return parseColor(v)
				}
			}
		}
	}
	return 0, false
}

// collapseSpaces folds runs of whitespace into one space, keeping a single
// leading or trailing space so adjacent inline nodes stay separated.
func collapseSpaces(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		if s != "" {
			return " "
		}
		return ""
	}
	out := strings.Join(fields, " ")
	if isSpace(s[0]) {
		out = " " + out
	}
	if isSpace(s[len(s)-1]) {
		out += " "
	}
	return out
}

func isSpace(c byte) bool { return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' }

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
