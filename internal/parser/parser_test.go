package parser

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dgallion1/legistruct/internal/lines"
	"github.com/fumiama/go-docx"
	pdflib "github.com/ledongthuc/pdf"
)

func TestForFile(t *testing.T) {
	tests := []struct {
		filename string
		opts     Options
		want     string
	}{
		{"code.txt", Options{}, "*parser.TextParser"},
		{"code.MD", Options{}, "*parser.MarkdownParser"},
		{"code.markdown", Options{}, "*parser.MarkdownParser"},
		{"code.htm", Options{}, "*parser.HTMLParser"},
		{"code.docx", Options{}, "*parser.DOCXParser"},
		{"code.pdf", Options{}, "*parser.PDFParser"},
		{"code.pdf", Options{PDFBackend: BackendText}, "*parser.PDFParser"},
		{"code.pdf", Options{PDFBackend: BackendLayout}, "*parser.LayoutPDFParser"},
	}
	for _, tt := range tests {
		p, err := ForFile(tt.filename, tt.opts)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.filename, err)
		}
		if got := typeName(p); got != tt.want {
			t.Errorf("%s: expected %s, got %s", tt.filename, tt.want, got)
		}
	}

	p, _ := ForFile("code.pdf", Options{FallbackPdftotext: true})
	if !p.(*PDFParser).FallbackPdftotext {
		t.Error("expected fallback to be carried to the pdf parser")
	}
	p, _ = ForFile("code.pdf", Options{PDFBackend: BackendLayout, ExcludeHeadersFooters: true})
	if !p.(*LayoutPDFParser).ExcludeHeadersFooters {
		t.Error("expected header/footer exclusion to be carried to the layout parser")
	}

	if _, err := ForFile("data.csv", Options{}); err == nil {
		t.Error("expected error for unsupported extension")
	}
}

func typeName(p Parser) string {
	switch p.(type) {
	case *TextParser:
		return "*parser.TextParser"
	case *MarkdownParser:
		return "*parser.MarkdownParser"
	case *HTMLParser:
		return "*parser.HTMLParser"
	case *DOCXParser:
		return "*parser.DOCXParser"
	case *PDFParser:
		return "*parser.PDFParser"
	case *LayoutPDFParser:
		return "*parser.LayoutPDFParser"
	}
	return "unknown"
}

func TestIsSupportedExtension(t *testing.T) {
	for name, want := range map[string]bool{
		"a.pdf": true, "a.DOCX": true, "a.html": true, "a.txt": true,
		"a.csv": false, "a": false, "a.doc": false,
	} {
		if got := IsSupportedExtension(name); got != want {
			t.Errorf("%s: expected %v, got %v", name, want, got)
		}
	}
}

func TestOpenFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "code.txt")
	if err := os.WriteFile(path, []byte("TITRE I\r\nArticle 1.- Objet\fArticle 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	src, err := OpenFile(path, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := lines.Collect(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"TITRE I", "Article 1.- Objet", "Article 2"}
	if strings.Join(texts(got), "|") != strings.Join(want, "|") {
		t.Fatalf("expected %q, got %q", want, texts(got))
	}
	if got[2].Page != 1 {
		t.Errorf("expected page 1 after form feed, got %d", got[2].Page)
	}
	if got[0].Style.Known {
		t.Error("expected plain text lines to carry no style")
	}
}

func TestOpenFile_Unavailable(t *testing.T) {
	dir := t.TempDir()
	csv := filepath.Join(dir, "data.csv")
	if err := os.WriteFile(csv, []byte("a,b"), 0o644); err != nil {
		t.Fatal(err)
	}
	for _, path := range []string{filepath.Join(dir, "missing.txt"), csv} {
		_, err := OpenFile(path, Options{})
		var su *lines.SourceUnavailableError
		if !errors.As(err, &su) {
			t.Fatalf("%s: expected SourceUnavailableError, got %v", path, err)
		}
		if su.Path != path {
			t.Errorf("expected path %q, got %q", path, su.Path)
		}
	}
}

func TestHTMLParser(t *testing.T) {
	input := `<html><head><title>Code</title></head><body>
<h2>TITRE I.- DISPOSITIONS</h2>
<p><strong>CHAPITRE I</strong></p>
<p>Article 1.- Objet<br>Le present <b>code</b>   regit.</p>
<p style="font-weight: normal; color:#1F3A93">Section 1</p>
<script>var x = "Article 9";</script>
</body></html>`
	got := parseAll(t, &HTMLParser{}, input, "code.html")
	want := []string{
		"TITRE I.- DISPOSITIONS",
		"CHAPITRE I",
		"Article 1.- Objet",
		"Le present code regit.",
		"Section 1",
	}
	if strings.Join(texts(got), "|") != strings.Join(want, "|") {
		t.Fatalf("expected %q, got %q", want, texts(got))
	}
	if !got[0].HeadingCandidate || !got[0].Style.Emphasized {
		t.Errorf("expected h2 to be an emphasized heading candidate, got %+v", got[0])
	}
	if got[1].HeadingCandidate || !got[1].Style.Bold || !got[1].Style.Emphasized {
		t.Errorf("expected strong paragraph to be bold and emphasized, got %+v", got[1])
	}
	if got[3].Style.Bold {
		t.Error("expected partially bold line not to be bold")
	}
	if !got[4].Style.HasColor || got[4].Style.Color != 0x1F3A93 {
		t.Errorf("expected colour 0x1F3A93, got %+v", got[4].Style)
	}
}

func TestGlyphRows(t *testing.T) {
	texts := []pdflib.Text{
		{S: "Article", X: 120, W: 30, Y: 680, Font: "Times-Roman", FontSize: 11},
		{S: "\n", X: 0, Y: 680},
		{S: "1", X: 153, W: 5, Y: 680, Font: "Times-Roman", FontSize: 11},
		{S: ".-", X: 158, W: 5, Y: 680.5, Font: "Times-Roman", FontSize: 11},
		{S: "I", X: 145, W: 5, Y: 701, Font: "Times-Bold", FontSize: 12},
		{S: "TITRE", X: 100, W: 40, Y: 700, Font: "Times-Bold", FontSize: 12},
	}
	got := glyphRows(texts, 2)
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d (%+v)", len(got), got)
	}
	if got[0].Text != "TITRE I" {
		t.Errorf("expected %q, got %q", "TITRE I", got[0].Text)
	}
	if got[1].Text != "Article 1.-" {
		t.Errorf("expected %q, got %q", "Article 1.-", got[1].Text)
	}
	first := got[0]
	if first.Page != 2 {
		t.Errorf("expected page 2, got %d", first.Page)
	}
	if !first.Style.Known || !first.Style.Bold {
		t.Errorf("expected known bold style, got %+v", first.Style)
	}
	if first.Style.FontName != "Times-Bold" || first.Style.FontSize != 12 {
		t.Errorf("expected Times-Bold 12, got %s %v", first.Style.FontName, first.Style.FontSize)
	}
	if got[1].Style.Bold {
		t.Error("expected regular row not to be bold")
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want lines.RGB
		ok   bool
	}{
		{"1F3A93", 0x1F3A93, true},
		{"#1f3a93", 0x1F3A93, true},
		{"#13a", 0x1133AA, true},
		{"rgb(31, 58, 147)", 0x1F3A93, true},
		{"auto", 0, false},
		{"rgb(300, 0, 0)", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseColor(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("%q: expected (%#x, %v), got (%#x, %v)", tt.in, uint32(tt.want), tt.ok, uint32(got), ok)
		}
	}
}

func TestLineBuilder_DominantStyle(t *testing.T) {
	var lb lineBuilder
	lb.add(run{text: "TITRE ", bold: true, color: 0x1F3A93, hasColor: true, size: 14})
	lb.add(run{text: "I", bold: true, size: 10})
	l := lb.line(3, true)
	if l.Text != "TITRE I" || l.Page != 3 || !l.HeadingCandidate {
		t.Fatalf("unexpected line %+v", l)
	}
	if !l.Style.Bold {
		t.Error("expected bold when every run is bold")
	}
	if !l.Style.HasColor || l.Style.Color != 0x1F3A93 {
		t.Errorf("expected dominant colour, got %+v", l.Style)
	}
	if l.Style.FontSize != 14 {
		t.Errorf("expected dominant size 14, got %v", l.Style.FontSize)
	}
	if !lb.empty() {
		t.Error("expected builder to be reset")
	}
}

func TestDOCXHeadingLevel(t *testing.T) {
	tests := []struct {
		style string
		want  int
	}{
		{"Heading1", 1},
		{"heading 2", 2},
		{"Title", 1},
		{"Normal", 0},
		{"HeadingX", 0},
	}
	for _, tt := range tests {
		para := &docx.Paragraph{Properties: &docx.ParagraphProperties{Style: &docx.Style{Val: tt.style}}}
		if got := docxHeadingLevel(para); got != tt.want {
			t.Errorf("%q: expected %d, got %d", tt.style, tt.want, got)
		}
	}
	if got := docxHeadingLevel(&docx.Paragraph{}); got != 0 {
		t.Errorf("expected 0 without properties, got %d", got)
	}
}
