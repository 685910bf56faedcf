package hierarchy

import (
	"fmt"
	"strings"
	"testing"

	"github.com/dgallion1/legistruct/internal/classify"
	"github.com/dgallion1/legistruct/internal/doctree"
	"github.com/dgallion1/legistruct/internal/lines"
)

func emph(text string) lines.StyledLine {
	return lines.StyledLine{Text: text, Style: lines.Style{Known: true, Emphasized: true}}
}

func reg(text string) lines.StyledLine {
	return lines.StyledLine{Text: text, Style: lines.Style{Known: true}}
}

func plain(text string) lines.StyledLine {
	return lines.StyledLine{Text: text}
}

func build(t *testing.T, in []lines.StyledLine) *doctree.DocumentStructure {
	t.Helper()
	c, err := classify.New(classify.Options{
		Patterns: classify.DefaultPatterns(),
		Keywords: classify.DefaultKeywords(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b := New(Options{Source: "test"})
	for _, l := range in {
		b.Feed(l, c.Classify(l))
	}
	return b.Finish()
}

func articleIDs(doc *doctree.DocumentStructure) []string {
	var ids []string
	for _, a := range doc.Articles() {
		ids = append(ids, a.ID)
	}
	return ids
}

func TestBuilder_Scenario1(t *testing.T) {
	doc := build(t, []lines.StyledLine{
		emph("TITRE I.- DISPOSITIONS GENERALES"),
		emph("Article premier.- Champ d'application"),
		reg("Le present code regit..."),
		reg("Article 2.- Definitions"),
		reg("Au sens du present code..."),
	})

	if len(doc.Titles) != 1 {
		t.Fatalf("expected 1 title, got %d", len(doc.Titles))
	}
	title := doc.Titles[0]
	if title.Name != "DISPOSITIONS GENERALES" {
		t.Errorf("expected title name %q, got %q", "DISPOSITIONS GENERALES", title.Name)
	}
	if title.Number != "I" {
		t.Errorf("expected title number I, got %q", title.Number)
	}
	if len(title.Chapters) != 1 || !title.Chapters[0].Synthetic || title.Chapters[0].Name != doctree.UnchapteredName {
		t.Fatalf("expected one sentinel chapter, got %+v", title.Chapters)
	}

	arts := doc.Articles()
	if len(arts) != 2 {
		t.Fatalf("expected 2 articles, got %d", len(arts))
	}
	if arts[0].ID != "1" || arts[1].ID != "2" {
		t.Errorf("expected ids [1 2], got %v", articleIDs(doc))
	}
	if arts[0].Body != "Le present code regit..." {
		t.Errorf("unexpected first body %q", arts[0].Body)
	}
	if arts[1].Body != "Au sens du present code..." {
		t.Errorf("unexpected second body %q", arts[1].Body)
	}
	if arts[0].Name != "Champ d'application" {
		t.Errorf("expected name %q, got %q", "Champ d'application", arts[0].Name)
	}
	if doc.Preamble != "" {
		t.Errorf("expected no preamble, got %q", doc.Preamble)
	}
}

func TestBuilder_Scenario2_CrossReferenceStaysInBody(t *testing.T) {
	doc := build(t, []lines.StyledLine{
		emph("Article 9.- Regime"),
		reg("Les revenus sont imposables,"),
		reg("voir Article 10 pour les details"),
		reg("Article 10 pour les details complementaires"),
		reg("selon les conditions prevues."),
	})
	arts := doc.Articles()
	if len(arts) != 1 {
		t.Fatalf("expected 1 article, got %d: %v", len(arts), articleIDs(doc))
	}
	want := "Les revenus sont imposables,\nvoir Article 10 pour les details\n" +
		"Article 10 pour les details complementaires\nselon les conditions prevues."
	if arts[0].Body != want {
		t.Errorf("expected body %q, got %q", want, arts[0].Body)
	}
	if n := doc.CountDiagnostics(doctree.SuppressedHeading); n != 1 {
		t.Errorf("expected 1 suppressed heading, got %d", n)
	}
}

func TestBuilder_Scenario4_LastArticleFlushed(t *testing.T) {
	doc := build(t, []lines.StyledLine{
		emph("CHAPITRE I.- Impots"),
		emph("Article 1.- Objet"),
		reg("Premier corps."),
		emph("Article 2.- Fin"),
		reg("Derniere ligne du document."),
	})
	arts := doc.Articles()
	if len(arts) != 2 {
		t.Fatalf("expected 2 articles, got %d", len(arts))
	}
	last := arts[len(arts)-1]
	if last.ID != "2" || last.Body != "Derniere ligne du document." {
		t.Errorf("expected last article flushed, got %+v", last)
	}
}

func TestBuilder_ZeroHeadings(t *testing.T) {
	doc := build(t, []lines.StyledLine{
		reg("Texte libre"),
		reg(""),
		reg("Encore du texte"),
	})
	if len(doc.Articles()) != 0 {
		t.Errorf("expected no articles, got %d", len(doc.Articles()))
	}
	if doc.Titles == nil || len(doc.Titles) != 0 {
		t.Errorf("expected empty non-nil titles, got %v", doc.Titles)
	}
	if doc.Preamble != "Texte libre\n\nEncore du texte" {
		t.Errorf("unexpected preamble %q", doc.Preamble)
	}
	if n := doc.CountDiagnostics(doctree.EmptyDocument); n != 1 {
		t.Errorf("expected 1 empty document diagnostic, got %d", n)
	}
	if n := doc.CountDiagnostics(doctree.OrphanContent); n != 1 {
		t.Errorf("expected 1 orphan diagnostic, got %d", n)
	}
}

func TestBuilder_ArticleCountMatchesAcceptedHeadings(t *testing.T) {
	var in []lines.StyledLine
	accepted := 0
	for ti := 1; ti <= 3; ti++ {
		in = append(in, emph(fmt.Sprintf("TITRE %s.- T%d", strings.Repeat("I", ti), ti)))
		for ci := 1; ci <= 2; ci++ {
			in = append(in, emph(fmt.Sprintf("CHAPITRE %d", ci)))
			for ai := 0; ai < 4; ai++ {
				id := ti*100 + ci*10 + ai
				in = append(in, reg(fmt.Sprintf("Article %d.- Nom", id)))
				in = append(in, reg(fmt.Sprintf("corps %d", id)))
				accepted++
			}
		}
	}
	in = append(in, reg("voir Article 999 pour memoire"))

	doc := build(t, in)
	got := doc.Articles()
	if len(got) != accepted {
		t.Fatalf("expected %d articles, got %d", accepted, len(got))
	}
	for _, title := range doc.Titles {
		for _, ch := range title.Chapters {
			for i := 1; i < len(ch.Articles); i++ {
				var prev, cur int
				fmt.Sscan(ch.Articles[i-1].ID, &prev)
				fmt.Sscan(ch.Articles[i].ID, &cur)
				if cur <= prev {
					t.Errorf("chapter %s: article %d after %d breaks reading order", ch.Number, cur, prev)
				}
			}
		}
	}
	if !strings.HasSuffix(got[len(got)-1].Body, "voir Article 999 pour memoire") {
		t.Errorf("expected trailing line in last body, got %q", got[len(got)-1].Body)
	}
}

func TestBuilder_DuplicateIDsKept(t *testing.T) {
	doc := build(t, []lines.StyledLine{
		emph("CHAPITRE I"),
		emph("Article premier"),
		reg("a"),
		emph("Article 1"),
		reg("b"),
		emph("Article 5"),
		reg("c"),
		emph("Article 5"),
		reg("d"),
	})
	ids := articleIDs(doc)
	want := []string{"1", "1", "5", "5"}
	if strings.Join(ids, ",") != strings.Join(want, ",") {
		t.Fatalf("expected ids %v, got %v", want, ids)
	}
	if n := doc.CountDiagnostics(doctree.DuplicateArticleID); n != 2 {
		t.Errorf("expected 2 duplicate diagnostics, got %d", n)
	}
	dups := doc.ArticlesByID("5")
	if dups[0].Body != "c" || dups[1].Body != "d" {
		t.Errorf("expected duplicates in order, got %q then %q", dups[0].Body, dups[1].Body)
	}
}

func TestBuilder_MultiLineNames(t *testing.T) {
	doc := build(t, []lines.StyledLine{
		emph("TITRE II"),
		emph("DISPOSITIONS"),
		emph("PARTICULIERES"),
		reg("Texte d'introduction"),
		emph("CHAPITRE I.- Des impots"),
		emph("directs"),
		emph("Article 3.- Objet"),
		reg("Corps"),
	})
	title := doc.Titles[0]
	if title.Name != "DISPOSITIONS – PARTICULIERES" {
		t.Errorf("expected joined title name, got %q", title.Name)
	}
	ch := title.Chapters[0]
	if ch.Name != "Des impots – directs" {
		t.Errorf("expected joined chapter name, got %q", ch.Name)
	}
	if doc.Preamble != "Texte d'introduction" {
		t.Errorf("expected text before first article in preamble, got %q", doc.Preamble)
	}
	if n := doc.CountDiagnostics(doctree.OrphanContent); n != 0 {
		t.Errorf("expected no orphan diagnostic after a heading, got %d", n)
	}
}

func TestBuilder_CustomJoiner(t *testing.T) {
	c, err := classify.New(classify.Options{Patterns: classify.DefaultPatterns(), Keywords: classify.DefaultKeywords()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b := New(Options{NameJoiner: " / "})
	for _, l := range []lines.StyledLine{emph("TITRE I"), emph("A"), emph("B")} {
		b.Feed(l, c.Classify(l))
	}
	doc := b.Finish()
	if doc.Titles[0].Name != "A / B" {
		t.Errorf("expected %q, got %q", "A / B", doc.Titles[0].Name)
	}
}

func TestBuilder_PlainTextNames(t *testing.T) {
	doc := build(t, []lines.StyledLine{
		plain("TITRE I"),
		plain("DISPOSITIONS GENERALES"),
		plain("Article 1.- Objet"),
		plain("corps"),
	})
	if doc.Titles[0].Name != "DISPOSITIONS GENERALES" {
		t.Errorf("expected plain name pickup, got %q", doc.Titles[0].Name)
	}
	if arts := doc.Articles(); len(arts) != 1 || arts[0].Body != "corps" {
		t.Errorf("unexpected articles %+v", arts)
	}
}

func TestBuilder_IntroAfterFirstArticle(t *testing.T) {
	doc := build(t, []lines.StyledLine{
		emph("Article 1.- Debut"),
		reg("corps"),
		emph("TITRE III.- FIN"),
		reg("Intro du titre"),
		emph("CHAPITRE I"),
		emph("Du recouvrement"),
		reg("Intro du chapitre"),
		emph("Article 4"),
		reg("texte"),
	})
	if len(doc.Titles) != 2 {
		t.Fatalf("expected sentinel and real title, got %d", len(doc.Titles))
	}
	if !doc.Titles[0].Synthetic || doc.Titles[0].Name != doctree.UntitledName {
		t.Errorf("expected sentinel first title, got %+v", doc.Titles[0])
	}
	fin := doc.Titles[1]
	if fin.Intro != "Intro du titre" {
		t.Errorf("expected title intro, got %q", fin.Intro)
	}
	if fin.Chapters[0].Name != "Du recouvrement" {
		t.Errorf("expected chapter name, got %q", fin.Chapters[0].Name)
	}
	if fin.Chapters[0].Intro != "Intro du chapitre" {
		t.Errorf("expected chapter intro, got %q", fin.Chapters[0].Intro)
	}
	if n := doc.CountDiagnostics(doctree.OrphanContent); n != 2 {
		t.Errorf("expected 2 orphan diagnostics for sentinel title and chapter, got %d", n)
	}
}

func TestBuilder_Sections(t *testing.T) {
	doc := build(t, []lines.StyledLine{
		emph("TITRE I.- GENERAL"),
		emph("CHAPITRE II.- Revenus"),
		reg("Section 1 : Des salaires"),
		reg("Article 5.- a"),
		reg("x"),
		reg("Article 6.- b"),
		reg("y"),
		emph("CHAPITRE III"),
		reg("Article 7.- c"),
	})
	if len(doc.Sections) != 1 {
		t.Fatalf("expected 1 section, got %d", len(doc.Sections))
	}
	want := doctree.SectionRef{Number: "1", Name: "Des salaires", Heading: "Section 1.- Des salaires", Title: "I", Chapter: "II"}
	if doc.Sections[0] != want {
		t.Errorf("expected %+v, got %+v", want, doc.Sections[0])
	}
	arts := doc.Articles()
	if arts[0].Section != "1" || arts[1].Section != "1" {
		t.Errorf("expected section 1 on articles 5 and 6, got %q %q", arts[0].Section, arts[1].Section)
	}
	if arts[2].Section != "" {
		t.Errorf("expected new chapter to reset section, got %q", arts[2].Section)
	}
}

func TestBuilder_MalformedKeptAsBody(t *testing.T) {
	doc := build(t, []lines.StyledLine{
		emph("Article 1.- Objet"),
		reg("corps"),
		reg("ARTICLE .- texte abime"),
		reg("suite"),
	})
	arts := doc.Articles()
	if len(arts) != 1 {
		t.Fatalf("expected 1 article, got %d", len(arts))
	}
	if arts[0].Body != "corps\nARTICLE .- texte abime\nsuite" {
		t.Errorf("unexpected body %q", arts[0].Body)
	}
	diags := doc.Diagnostics
	found := false
	for _, d := range diags {
		if d.Kind == doctree.MalformedHeading {
			found = true
			if d.Line != 3 {
				t.Errorf("expected malformed diagnostic on line 3, got %d", d.Line)
			}
		}
	}
	if !found {
		t.Error("expected malformed heading diagnostic")
	}
}

func TestBuilder_PreambleChapter(t *testing.T) {
	doc := build(t, []lines.StyledLine{
		emph("PREAMBULE"),
		reg("Considerant les principes"),
		emph("TITRE I.- X"),
		emph("Article 1"),
		reg("corps"),
	})
	if doc.Preamble != "Considerant les principes" {
		t.Errorf("expected preamble text, got %q", doc.Preamble)
	}
	pre := doc.Titles[0].Chapters[0]
	if pre.Name != "PREAMBULE" {
		t.Errorf("expected preamble chapter name, got %q", pre.Name)
	}
	if len(pre.Articles) != 0 {
		t.Errorf("expected no article in preamble chapter, got %d", len(pre.Articles))
	}
}

func TestBuilder_States(t *testing.T) {
	c, err := classify.New(classify.Options{Patterns: classify.DefaultPatterns(), Keywords: classify.DefaultKeywords()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b := New(Options{})
	steps := []struct {
		line lines.StyledLine
		want State
	}{
		{reg("texte"), NoContext},
		{emph("TITRE I"), InTitle},
		{emph("CHAPITRE I"), InChapterOrPreamble},
		{emph("Article 1"), InArticle},
		{reg("corps"), InArticle},
		{emph("Section 2"), InChapterOrPreamble},
		{emph("TITRE II"), InTitle},
	}
	for i, s := range steps {
		b.Feed(s.line, c.Classify(s.line))
		if b.State() != s.want {
			t.Errorf("step %d: expected %s, got %s", i, s.want, b.State())
		}
	}
}
