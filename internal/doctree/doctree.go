package doctree

import "strings"

// Sentinel names for the synthetic buckets that hold orphaned content.
const (
	UntitledName    = "(sans titre)"
	UnchapteredName = "(sans chapitre)"
)

// DocumentStructure is the root of a parsed legal code.
type DocumentStructure struct {
	Source      string       `json:"source,omitempty"` // file name or document id
	Titles      []*TitleNode `json:"titles"`
	Sections    []SectionRef `json:"sections,omitempty"`
	Preamble    string       `json:"preamble,omitempty"` // text before the first article
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

// TitleNode is a TITRE and the chapters under it.
type TitleNode struct {
	Number    string         `json:"number,omitempty"`
	Name      string         `json:"name"`
	Heading   string         `json:"heading,omitempty"`
	Intro     string         `json:"intro,omitempty"`
	Chapters  []*ChapterNode `json:"chapters"`
	Synthetic bool           `json:"synthetic,omitempty"`
}

// ChapterNode is a CHAPITRE, or a PREAMBULE, and its articles in reading order.
type ChapterNode struct {
	Number    string         `json:"number,omitempty"`
	Name      string         `json:"name"`
	Heading   string         `json:"heading,omitempty"`
	Intro     string         `json:"intro,omitempty"`
	Articles  []*ArticleNode `json:"articles"`
	Synthetic bool           `json:"synthetic,omitempty"`
}

// ArticleNode is the smallest numbered provision.
type ArticleNode struct {
	ID      string `json:"id"`
	Heading string `json:"heading"`
	Name    string `json:"name,omitempty"`
	Body    string `json:"body"`
	Page    int    `json:"page"`
	Section string `json:"section,omitempty"` // number of the enclosing section, if any
}

// SectionRef records a SECTION heading. Sections do not own articles; each
// article carries the number of the section it falls under.
type SectionRef struct {
	Number  string `json:"number"`
	Name    string `json:"name"`
	Heading string `json:"heading,omitempty"`
	Title   string `json:"title,omitempty"`
	Chapter string `json:"chapter,omitempty"`
}

// DiagnosticKind classifies a recovered parsing problem.
type DiagnosticKind string

const (
	MalformedHeading   DiagnosticKind = "malformed_heading"
	OrphanContent      DiagnosticKind = "orphan_content"
	DuplicateArticleID DiagnosticKind = "duplicate_article_id"
	SuppressedHeading  DiagnosticKind = "suppressed_heading"
	EmptyDocument      DiagnosticKind = "empty_document"
)

// Diagnostic is a data-quality note. Diagnostics never abort a parse.
type Diagnostic struct {
	Kind   DiagnosticKind `json:"kind"`
	Line   int            `json:"line"` // 1-based position in the line stream, 0 if not tied to a line
	Page   int            `json:"page"`
	Text   string         `json:"text,omitempty"`
	Detail string         `json:"detail,omitempty"`
}

// Articles returns every article in document order.
func (d *DocumentStructure) Articles() []*ArticleNode {
	var out []*ArticleNode
	for _, t := range d.Titles {
		for _, c := range t.Chapters {
			out = append(out, c.Articles...)
		}
	}
	return out
}

// ArticlesByID returns every article with the given id, in document order.
func (d *DocumentStructure) ArticlesByID(id string) []*ArticleNode {
	var out []*ArticleNode
	for _, a := range d.Articles() {
		if a.ID == id {
			out = append(out, a)
		}
	}
	return out
}

// CountDiagnostics returns how many diagnostics of kind were recorded.
func (d *DocumentStructure) CountDiagnostics(kind DiagnosticKind) int {
	n := 0
	for _, dg := range d.Diagnostics {
		if dg.Kind == kind {
			n++
		}
	}
	return n
}

// Clone returns a deep copy.
func (d *DocumentStructure) Clone() *DocumentStructure {
	out := &DocumentStructure{
		Source:   d.Source,
		Preamble: d.Preamble,
	}
	if d.Sections != nil {
		out.Sections = append([]SectionRef(nil), d.Sections...)
	}
	if d.Diagnostics != nil {
		out.Diagnostics = append([]Diagnostic(nil), d.Diagnostics...)
	}
	out.Titles = make([]*TitleNode, 0, len(d.Titles))
	for _, t := range d.Titles {
		nt := *t
		nt.Chapters = make([]*ChapterNode, 0, len(t.Chapters))
		for _, c := range t.Chapters {
			nc := *c
			nc.Articles = make([]*ArticleNode, 0, len(c.Articles))
			for _, a := range c.Articles {
				na := *a
				nc.Articles = append(nc.Articles, &na)
			}
			nt.Chapters = append(nt.Chapters, &nc)
		}
		out.Titles = append(out.Titles, &nt)
	}
	return out
}

// Display renders "TITRE I – DISPOSITIONS GENERALES" from the heading and the
// accumulated name.
func (t *TitleNode) Display() string { return display(t.Heading, t.Name) }

// Display renders the chapter the way TitleNode.Display does.
func (c *ChapterNode) Display() string { return display(c.Heading, c.Name) }

func display(heading, name string) string {
	if heading == "" {
		return name
	}
	head, _, _ := strings.Cut(heading, ".-")
	head = strings.TrimSpace(head)
	if name == "" || name == heading || name == head {
		return head
	}
	return head + " – " + name
}

// Chunk is a sized text segment with structural context, ready for embedding.
type Chunk struct {
	Text       string   `json:"text"`
	Index      int      `json:"index"`
	ArticleID  string   `json:"article_id,omitempty"`
	Breadcrumb []string `json:"breadcrumb"` // e.g. ["TITRE I.- DISPOSITIONS GENERALES", "CHAPITRE II", "Article 5"]
	PageStart  int      `json:"page_start"`
	PageEnd    int      `json:"page_end"`
}
