package export

import "github.com/dgallion1/legistruct/internal/doctree"

// NestedArticle is one article in the nested shape.
type NestedArticle struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Content string `json:"content"`
}

// NestedChapter is one chapter in the nested shape.
type NestedChapter struct {
	Chapitre  string          `json:"chapitre"`
	Preambule string          `json:"preambule,omitempty"`
	Articles  []NestedArticle `json:"articles"`
}

// NestedTitle is one title in the nested shape.
type NestedTitle struct {
	Titre     string          `json:"titre"`
	Preambule string          `json:"preambule,omitempty"`
	Chapitres []NestedChapter `json:"chapitres"`
}

// Nested returns the titre/chapitres/articles tree. The document preamble
// becomes a leading entry with an empty titre.
func Nested(doc *doctree.DocumentStructure) []NestedTitle {
	out := make([]NestedTitle, 0, len(doc.Titles)+1)
	if doc.Preamble != "" {
		out = append(out, NestedTitle{Preambule: doc.Preamble, Chapitres: []NestedChapter{}})
	}
	for _, t := range doc.Titles {
		nt := NestedTitle{
			Titre:     t.Display(),
			Preambule: t.Intro,
			Chapitres: make([]NestedChapter, 0, len(t.Chapters)),
		}
		for _, c := range t.Chapters {
			nc := NestedChapter{
				Chapitre:  c.Display(),
				Preambule: c.Intro,
				Articles:  make([]NestedArticle, 0, len(c.Articles)),
			}
			for _, a := range c.Articles {
				nc.Articles = append(nc.Articles, NestedArticle{ID: a.ID, Name: a.Name, Content: a.Body})
			}
			nt.Chapitres = append(nt.Chapitres, nc)
		}
		out = append(out, nt)
	}
	return out
}
