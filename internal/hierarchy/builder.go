// Package hierarchy assembles classified lines into the Title → Chapter →
// Article tree of a legal code.
package hierarchy

import (
	"log/slog"
	"strings"

	"github.com/dgallion1/legistruct/internal/classify"
	"github.com/dgallion1/legistruct/internal/doctree"
	"github.com/dgallion1/legistruct/internal/lines"
)

// State is the builder's position in the hierarchy.
type State int

const (
	NoContext State = iota
	InTitle
	InChapterOrPreamble
	InArticle
)

func (s State) String() string {
	switch s {
	case InTitle:
		return "in_title"
	case InChapterOrPreamble:
		return "in_chapter"
	case InArticle:
		return "in_article"
	}
	return "no_context"
}

// DefaultNameJoiner joins the lines of a heading name typeset over several
// lines.
const DefaultNameJoiner = " – "

// Options configures a Builder.
type Options struct {
	Source     string
	NameJoiner string
	Logger     *slog.Logger
}

// naming collects the continuation lines of a title, chapter or section name.
type naming struct {
	active bool
	parts  []string
	set    func(string)
	// plain allows one unstyled line to name a heading that had no label.
	plain bool
}

// Builder is a single-use state machine: feed it every line of one document
// in reading order, then call Finish. It is not safe for concurrent use.
type Builder struct {
	log    *slog.Logger
	joiner string
	doc    *doctree.DocumentStructure

	state   State
	title   *doctree.TitleNode
	chapter *doctree.ChapterNode
	article *doctree.ArticleNode
	section string
	name    naming

	line          int
	accepted      int
	articles      int
	seen          map[string]int
	orphanNoted   bool
	headingSeen   bool
	sentinelTitle *doctree.TitleNode
}

// New returns a Builder for one document.
func New(opts Options) *Builder {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if opts.NameJoiner == "" {
		opts.NameJoiner = DefaultNameJoiner
	}
	return &Builder{
		log:    log,
		joiner: opts.NameJoiner,
		doc: &doctree.DocumentStructure{
			Source: opts.Source,
			Titles: []*doctree.TitleNode{},
		},
		seen: make(map[string]int),
	}
}

// State reports the current state.
func (b *Builder) State() State { return b.state }

// Feed consumes one line and its classification.
func (b *Builder) Feed(l lines.StyledLine, r classify.Result) {
	b.line++

	if r.Kind != classify.None && !r.Accepted() {
		b.diag(doctree.SuppressedHeading, l, "low-confidence "+r.Kind.String()+" heading kept as text")
		b.log.Debug("heading suppressed", "line", b.line, "page", l.Page, "kind", r.Kind.String(), "text", l.Text)
		b.text(l, r)
		return
	}
	if r.Malformed {
		b.diag(doctree.MalformedHeading, l, "unreadable "+r.MalformedKind.String()+" numbering")
		b.log.Warn("malformed heading", "line", b.line, "page", l.Page, "kind", r.MalformedKind.String(), "text", l.Text)
		b.endNaming()
		b.text(l, r)
		return
	}

	switch r.Kind {
	case classify.Title:
		b.openTitle(l, r)
	case classify.Chapter, classify.Preamble:
		b.openChapter(l, r)
	case classify.Section:
		b.openSection(l, r)
	case classify.Article:
		b.openArticle(l, r)
	default:
		b.text(l, r)
	}
}

// Finish flushes every open node and returns the document. The Builder must
// not be used afterwards.
func (b *Builder) Finish() *doctree.DocumentStructure {
	b.endNaming()
	b.closeArticle()

	b.doc.Preamble = strings.TrimSpace(b.doc.Preamble)
	for _, t := range b.doc.Titles {
		t.Intro = strings.TrimSpace(t.Intro)
		for _, c := range t.Chapters {
			c.Intro = strings.TrimSpace(c.Intro)
		}
	}
	if b.accepted == 0 {
		b.doc.Diagnostics = append(b.doc.Diagnostics, doctree.Diagnostic{
			Kind:   doctree.EmptyDocument,
			Detail: "no heading recognized, all text kept as preamble",
		})
		b.log.Warn("no heading recognized", "lines", b.line)
	}
	b.log.Debug("structure built",
		"lines", b.line,
		"titles", len(b.doc.Titles),
		"articles", b.articles,
		"diagnostics", len(b.doc.Diagnostics),
	)
	return b.doc
}

func (b *Builder) openTitle(l lines.StyledLine, r classify.Result) {
	b.heading()
	t := &doctree.TitleNode{
		Number:   r.Number,
		Name:     r.Label,
		Heading:  r.Heading,
		Chapters: []*doctree.ChapterNode{},
	}
	b.doc.Titles = append(b.doc.Titles, t)
	b.title = t
	b.chapter = nil
	b.section = ""
	b.state = InTitle
	b.startNaming(r, func(name string) { t.Name = name })
}

func (b *Builder) openChapter(l lines.StyledLine, r classify.Result) {
	b.heading()
	t := b.currentTitle(l)
	c := &doctree.ChapterNode{
		Number:   r.Number,
		Name:     r.Label,
		Heading:  r.Heading,
		Articles: []*doctree.ArticleNode{},
	}
	if r.Kind == classify.Preamble && c.Name == "" {
		c.Name = r.Heading
	}
	t.Chapters = append(t.Chapters, c)
	b.chapter = c
	b.section = ""
	b.state = InChapterOrPreamble
	if r.Kind == classify.Chapter {
		b.startNaming(r, func(name string) { c.Name = name })
	}
}

func (b *Builder) openSection(l lines.StyledLine, r classify.Result) {
	b.heading()
	ref := doctree.SectionRef{Number: r.Number, Name: r.Label, Heading: r.Heading}
	if b.title != nil {
		ref.Title = b.title.Number
	}
	if b.chapter != nil {
		ref.Chapter = b.chapter.Number
	}
	b.doc.Sections = append(b.doc.Sections, ref)
	idx := len(b.doc.Sections) - 1
	b.section = r.Number
	b.state = b.containerState()
	b.startNaming(r, func(name string) { b.doc.Sections[idx].Name = name })
}

func (b *Builder) openArticle(l lines.StyledLine, r classify.Result) {
	b.heading()
	b.currentChapter(l)
	if n := b.seen[r.ArticleID]; n > 0 {
		b.diag(doctree.DuplicateArticleID, l, "article "+r.ArticleID+" already seen")
		b.log.Warn("duplicate article id", "id", r.ArticleID, "line", b.line, "page", l.Page)
	}
	b.seen[r.ArticleID]++
	b.article = &doctree.ArticleNode{
		ID:      r.ArticleID,
		Heading: r.Heading,
		Name:    r.Label,
		Page:    l.Page,
		Section: b.section,
	}
	b.articles++
	b.state = InArticle
}

// heading runs the closing chain shared by every accepted heading.
func (b *Builder) heading() {
	b.accepted++
	b.headingSeen = true
	b.endNaming()
	b.closeArticle()
}

// text routes a line that opens nothing.
func (b *Builder) text(l lines.StyledLine, r classify.Result) {
	if b.name.active {
		if b.continueName(l, r) {
			return
		}
		b.endNaming()
	}
	switch {
	case b.state == InArticle:
		appendLine(&b.article.Body, l.Text)
	case b.articles == 0:
		if !b.headingSeen && !b.orphanNoted && strings.TrimSpace(l.Text) != "" {
			b.orphanNoted = true
			b.diag(doctree.OrphanContent, l, "text before any heading kept as preamble")
		}
		appendLine(&b.doc.Preamble, l.Text)
	case b.chapter != nil:
		appendLine(&b.chapter.Intro, l.Text)
	case b.title != nil:
		appendLine(&b.title.Intro, l.Text)
	default:
		appendLine(&b.doc.Preamble, l.Text)
	}
}

func (b *Builder) startNaming(r classify.Result, set func(string)) {
	b.name = naming{active: true, set: set, plain: r.Label == ""}
	if r.Label != "" {
		b.name.parts = []string{r.Label}
	}
}

// continueName reports whether the line was taken as part of the pending
// heading name.
func (b *Builder) continueName(l lines.StyledLine, r classify.Result) bool {
	text := strings.TrimSpace(l.Text)
	if text == "" {
		return true
	}
	if r.Kind != classify.None || r.Malformed {
		return false
	}
	if r.StyleKnown {
		if !r.Emphasized {
			return false
		}
		b.name.parts = append(b.name.parts, text)
		return true
	}
	if b.name.plain && len(b.name.parts) == 0 {
		b.name.parts = append(b.name.parts, text)
		b.endNaming()
		return true
	}
	return false
}

func (b *Builder) endNaming() {
	if !b.name.active {
		return
	}
	if len(b.name.parts) > 0 {
		b.name.set(strings.Join(b.name.parts, b.joiner))
	}
	b.name = naming{}
}

func (b *Builder) closeArticle() {
	if b.article == nil {
		return
	}
	b.article.Body = strings.TrimSpace(b.article.Body)
	b.chapter.Articles = append(b.chapter.Articles, b.article)
	b.article = nil
	b.state = b.containerState()
}

func (b *Builder) containerState() State {
	switch {
	case b.chapter != nil:
		return InChapterOrPreamble
	case b.title != nil:
		return InTitle
	}
	return NoContext
}

// currentTitle returns the open title, opening the sentinel title when there
// is none.
func (b *Builder) currentTitle(l lines.StyledLine) *doctree.TitleNode {
	if b.title != nil {
		return b.title
	}
	if b.sentinelTitle == nil {
		b.sentinelTitle = &doctree.TitleNode{
			Name:      doctree.UntitledName,
			Chapters:  []*doctree.ChapterNode{},
			Synthetic: true,
		}
		b.doc.Titles = append(b.doc.Titles, b.sentinelTitle)
		b.diag(doctree.OrphanContent, l, "content outside any title grouped under "+doctree.UntitledName)
	}
	b.title = b.sentinelTitle
	return b.title
}

// currentChapter returns the open chapter, opening a sentinel chapter in the
// current title when there is none.
func (b *Builder) currentChapter(l lines.StyledLine) *doctree.ChapterNode {
	if b.chapter != nil {
		return b.chapter
	}
	t := b.currentTitle(l)
	c := &doctree.ChapterNode{
		Name:      doctree.UnchapteredName,
		Articles:  []*doctree.ArticleNode{},
		Synthetic: true,
	}
	t.Chapters = append(t.Chapters, c)
	b.chapter = c
	b.diag(doctree.OrphanContent, l, "articles outside any chapter grouped under "+doctree.UnchapteredName)
	return c
}

func (b *Builder) diag(kind doctree.DiagnosticKind, l lines.StyledLine, detail string) {
	b.doc.Diagnostics = append(b.doc.Diagnostics, doctree.Diagnostic{
		Kind:   kind,
		Line:   b.line,
		Page:   l.Page,
		Text:   l.Text,
		Detail: detail,
	})
}

func appendLine(dst *string, line string) {
	if *dst == "" {
		if strings.TrimSpace(line) == "" {
			return
		}
		*dst = line
		return
	}
	*dst += "\n" + line
}
