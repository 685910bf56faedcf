package pipeline

import (
	"errors"
	"testing"

	"github.com/dgallion1/legistruct/internal/config"
	"github.com/dgallion1/legistruct/internal/doctree"
	"github.com/dgallion1/legistruct/internal/lines"
)

const sampleCode = `CODE GÉNÉRAL DES IMPÔTS
TITRE I
DISPOSITIONS GENERALES
Article 1.- Objet
Le present code regit les impots.
12
Article 2.- Taux
Le taux est fixe a dix pour cent.
`

func newDocParser(t *testing.T) *DocParser {
	t.Helper()
	dp, err := NewDocParser(config.DefaultRules(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return dp
}

func TestDocParser_Parse(t *testing.T) {
	dp := newDocParser(t)
	res, err := dp.Parse(lines.FromText(sampleCode), "cgi.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Filter.Noise != 2 {
		t.Errorf("expected 2 noise lines, got %d", res.Filter.Noise)
	}
	if len(res.Doc.Titles) != 1 || res.Doc.Titles[0].Name != "DISPOSITIONS GENERALES" {
		t.Fatalf("unexpected titles %+v", res.Doc.Titles)
	}
	arts := res.Doc.Articles()
	if len(arts) != 2 {
		t.Fatalf("expected 2 articles, got %d", len(arts))
	}
	if arts[0].ID != "1" || arts[1].ID != "2" {
		t.Errorf("expected ids [1 2], got [%s %s]", arts[0].ID, arts[1].ID)
	}
	if arts[0].Body != "Le present code regit les impots." {
		t.Errorf("unexpected first body %q", arts[0].Body)
	}
	if res.Lines != 6 {
		t.Errorf("expected 6 lines past the filter, got %d", res.Lines)
	}
}

func TestDocParser_InlineHeading(t *testing.T) {
	dp := newDocParser(t)
	text := "ARTICLE 1.- Objet\nLe present code regit les impots. ARTICLE 2.- Definitions\nAu sens du present code."
	res, err := dp.Parse(lines.FromText(text), "merged.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	arts := res.Doc.Articles()
	if len(arts) != 2 {
		t.Fatalf("expected 2 articles, got %d", len(arts))
	}
	if arts[0].Body != "Le present code regit les impots." {
		t.Errorf("expected first body %q, got %q", "Le present code regit les impots.", arts[0].Body)
	}
	if arts[1].ID != "2" || arts[1].Name != "Definitions" {
		t.Errorf("expected article 2 named %q, got %s %q", "Definitions", arts[1].ID, arts[1].Name)
	}
	if arts[1].Body != "Au sens du present code." {
		t.Errorf("expected second body %q, got %q", "Au sens du present code.", arts[1].Body)
	}
}

func TestDocParser_TableOfContents(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		wantArts  int
		wantTOC   int
		unclosed  int
		wantTitle string
	}{
		{
			name:      "closed by premier",
			text:      "SOMMAIRE\nTITRE PREMIER ........ 3\nArticle 1 ........ 3\nTITRE PREMIER.- DISPOSITIONS GENERALES\nArticle 1.- Objet\nLe present code regit les impots.",
			wantArts:  1,
			wantTOC:   3,
			wantTitle: "DISPOSITIONS GENERALES",
		},
		{
			name:      "no end marker",
			text:      "SOMMAIRE\nTITRE I.- DISPOSITIONS GENERALES\nArticle 1.- Objet\nLe present code regit les impots.\nArticle 2.- Taux\nLe taux est fixe a dix pour cent.",
			wantArts:  2,
			wantTOC:   1,
			unclosed:  1,
			wantTitle: "DISPOSITIONS GENERALES",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dp := newDocParser(t)
			res, err := dp.Parse(lines.FromText(tt.text), "toc.txt")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if n := len(res.Doc.Articles()); n != tt.wantArts {
				t.Errorf("expected %d articles, got %d", tt.wantArts, n)
			}
			if res.Filter.TOC != tt.wantTOC {
				t.Errorf("expected %d toc lines, got %d", tt.wantTOC, res.Filter.TOC)
			}
			if res.Filter.UnclosedTOC != tt.unclosed {
				t.Errorf("expected %d unclosed toc, got %d", tt.unclosed, res.Filter.UnclosedTOC)
			}
			if len(res.Doc.Titles) != 1 || res.Doc.Titles[0].Name != tt.wantTitle {
				t.Errorf("expected title %q, got %+v", tt.wantTitle, res.Doc.Titles)
			}
		})
	}
}

func TestDocParser_EmptyDocument(t *testing.T) {
	dp := newDocParser(t)
	res, err := dp.Parse(lines.FromText(""), "empty.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Doc.Articles()) != 0 {
		t.Errorf("expected no articles, got %d", len(res.Doc.Articles()))
	}
	if res.Doc.CountDiagnostics(doctree.EmptyDocument) != 1 {
		t.Errorf("expected one empty_document diagnostic, got %+v", res.Doc.Diagnostics)
	}
}

type failingSource struct {
	n int
}

func (s *failingSource) Next() bool { s.n++; return s.n == 1 }
func (s *failingSource) Line() lines.StyledLine {
	return lines.StyledLine{Text: "Article 1.- Objet"}
}
func (s *failingSource) Err() error   { return errors.New("read error") }
func (s *failingSource) Close() error { return nil }

func TestDocParser_SourceFailure(t *testing.T) {
	dp := newDocParser(t)
	_, err := dp.Parse(&failingSource{}, "broken.pdf")
	var su *lines.SourceUnavailableError
	if !errors.As(err, &su) {
		t.Fatalf("expected SourceUnavailableError, got %v", err)
	}
	if su.Path != "broken.pdf" {
		t.Errorf("expected path %q, got %q", "broken.pdf", su.Path)
	}
}

func TestNewDocParser_InvalidRules(t *testing.T) {
	rules := config.DefaultRules()
	rules.FootnoteRatio = 2
	if _, err := NewDocParser(rules, nil); err == nil {
		t.Fatal("expected error for invalid rules")
	}
}
