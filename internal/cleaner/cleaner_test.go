package cleaner

import (
	"testing"

	"github.com/dgallion1/legistruct/internal/doctree"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "degree markers",
			input: "Les personnes suivantes : 1° les salaries ; 2° les retraites.",
			want:  "Les personnes suivantes :\n1) les salaries ;\n2) les retraites.",
		},
		{
			name:  "mixed numbered markers",
			input: "3) a\n4.- b\n5°) c",
			want:  "3) a\n4) b\n5) c",
		},
		{
			name:  "dot bullets",
			input: "Sont exoneres : • les dons • les legs",
			want:  "Sont exoneres :\n- les dons\n- les legs",
		},
		{
			name:  "dash bullets at line start",
			input: "-les dons\n  -  les legs",
			want:  "- les dons\n- les legs",
		},
		{
			name:  "hyphen inside a line untouched",
			input: "sous-section du code",
			want:  "sous-section du code",
		},
		{
			name:  "duplicates and blank runs",
			input: "ligne\nligne\n\n\n\nfin  du   texte  ",
			want:  "ligne\n\nfin du texte",
		},
		{
			name:  "large numbers untouched",
			input: "un montant de 1500) euros en 2024",
			want:  "un montant de 1500) euros en 2024",
		},
		{
			name:  "heading reference untouched",
			input: "voir ARTICLE 2.- Definitions",
			want:  "voir ARTICLE 2.- Definitions",
		},
		{
			name:  "reference then item",
			input: "selon le titre 3) du code : 1° les dons",
			want:  "selon le titre 3) du code :\n1) les dons",
		},
		{
			name:  "empty",
			input: "   \n\n ",
			want:  "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clean(tt.input); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestClean_Idempotent(t *testing.T) {
	inputs := []string{
		"Les personnes suivantes : 1° les salaries ; 2° les retraites.",
		"• 1) premier",
		"1) 2) serres",
		"texte 1)",
		"a\n 1) x",
		"-\n-\n- 3°) y",
		"Phrase.Suite   \n\n\n\n•a\n•a",
		"1)\nsuite sur la ligne",
		"voir Article 4.- Taux ; 2° les legs",
	}
	for _, in := range inputs {
		once := Clean(in)
		if twice := Clean(once); twice != once {
			t.Errorf("%q: expected %q after second pass, got %q", in, once, twice)
		}
	}
}

func TestApply_DoesNotMutate(t *testing.T) {
	doc := &doctree.DocumentStructure{
		Preamble: "Vu la loi ;   • considerant",
		Titles: []*doctree.TitleNode{{
			Name:  "I",
			Intro: "intro\nintro",
			Chapters: []*doctree.ChapterNode{{
				Name:     "A",
				Articles: []*doctree.ArticleNode{{ID: "1", Body: "Sont vises : 1° x ; 2° y"}},
			}},
		}},
	}
	out := Apply(doc)

	if doc.Titles[0].Chapters[0].Articles[0].Body != "Sont vises : 1° x ; 2° y" {
		t.Errorf("expected input body untouched, got %q", doc.Titles[0].Chapters[0].Articles[0].Body)
	}
	if got := out.Titles[0].Chapters[0].Articles[0].Body; got != "Sont vises :\n1) x ;\n2) y" {
		t.Errorf("unexpected cleaned body %q", got)
	}
	if out.Preamble != "Vu la loi ;\n- considerant" {
		t.Errorf("unexpected cleaned preamble %q", out.Preamble)
	}
	if out.Titles[0].Intro != "intro" {
		t.Errorf("expected deduplicated intro, got %q", out.Titles[0].Intro)
	}
}
