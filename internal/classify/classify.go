// Package classify decides, line by line, whether text opens a structural
// unit of a legal code and extracts its numbering.
package classify

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dgallion1/legistruct/internal/emphasis"
	"github.com/dgallion1/legistruct/internal/lines"
)

// Kind is the structural role of a line.
type Kind int

const (
	None Kind = iota
	Title
	Chapter
	Section
	Preamble
	Article
)

func (k Kind) String() string {
	switch k {
	case Title:
		return "title"
	case Chapter:
		return "chapter"
	case Section:
		return "section"
	case Preamble:
		return "preamble"
	case Article:
		return "article"
	}
	return "none"
}

// Confidence grades a heading match.
type Confidence int

const (
	// Low means the text pattern matched but emphasis did not confirm it,
	// either because the line is plain or because the source has no style.
	Low Confidence = iota
	High
)

func (c Confidence) String() string {
	if c == High {
		return "high"
	}
	return "low"
}

// Result is the classification of one line.
type Result struct {
	Kind      Kind
	Number    string // raw numbering token ("I", "premier", "12")
	Suffix    string // article suffix ("bis")
	ArticleID string // normalized id, articles only
	Label     string // text after the separator
	Heading   string // heading text with canonical ".- " separator

	Emphasized bool
	StyleKnown bool
	// Shaped is true when the number is followed by a separator or by
	// nothing at all, the way real headings are typeset.
	Shaped     bool
	Confidence Confidence

	// Malformed is set, with Kind None, when a line starts with a heading
	// keyword but its numbering could not be read.
	Malformed     bool
	MalformedKind Kind
}

// Accepted reports whether the line should open a structural unit: either
// emphasis confirms the pattern or the heading is shaped like one.
func (r Result) Accepted() bool {
	return r.Kind != None && (r.Confidence == High || r.Shaped)
}

// Patterns holds one anchored regular expression per heading kind. Each
// must define the named groups "num" (except Preamble), "sep", "rest" and
// "free"; Article may define "suffix".
type Patterns struct {
	Title    string `yaml:"title"`
	Chapter  string `yaml:"chapter"`
	Section  string `yaml:"section"`
	Preamble string `yaml:"preamble"`
	Article  string `yaml:"article"`
}

// Keywords holds the bare keyword prefix per kind, used to spot malformed
// headings.
type Keywords struct {
	Title    string `yaml:"title"`
	Chapter  string `yaml:"chapter"`
	Section  string `yaml:"section"`
	Preamble string `yaml:"preamble"`
	Article  string `yaml:"article"`
}

const (
	sepGroup = `(?P<sep>\.\s*-|\.\s*–|:|–|-|\.)`
	tail     = `(?:\s*` + sepGroup + `\s*(?P<rest>.*?)|\s+(?P<free>.*?))?\s*$`
	ordinals = `PREMIER|Premier|premier|UNIQUE|Unique|unique|1er|1ER`
	suffixes = `bis|ter|quater|quinquies|sexies|septies|octies|nonies|decies|BIS|TER|QUATER|QUINQUIES|SEXIES`
)

// DefaultPatterns matches French legal code headings.
func DefaultPatterns() Patterns {
	return Patterns{
		Title:    `^\s*(?:TITRE|Titre)\s+(?P<num>` + ordinals + `|[IVXLC]+|\d+(?:er)?)` + tail,
		Chapter:  `^\s*(?:CHAPITRE|Chapitre)\s+(?P<num>` + ordinals + `|[IVXLC]+|\d+(?:er)?)` + tail,
		Section:  `^\s*(?:SECTION|Section)\s+(?P<num>` + ordinals + `|[IVXLC]+|\d+(?:er)?)` + tail,
		Preamble: `^\s*(?:PR[EÉ]AMBULE|Pr[eé]ambule)` + tail,
		Article: `^\s*(?:Article|ARTICLE)\s+(?P<num>\d+(?:[.-]\d+)*|` + ordinals + `)` +
			`(?:[\s-]+(?P<suffix>` + suffixes + `))?` + tail,
	}
}

// DefaultKeywords matches the heading keywords at line start.
func DefaultKeywords() Keywords {
	return Keywords{
		Title:    `^\s*(?:TITRE|Titre)\b`,
		Chapter:  `^\s*(?:CHAPITRE|Chapitre)\b`,
		Section:  `^\s*(?:SECTION|Section)\b`,
		Preamble: `^\s*(?:PR[EÉ]AMBULE|Pr[eé]ambule)`,
		Article:  `^\s*(?:Article|ARTICLE)\b`,
	}
}

// Options configures a Classifier.
type Options struct {
	Patterns  Patterns
	Keywords  Keywords
	PremierID string // id given to "Article premier"
	Emphasis  emphasis.Classifier
}

type rule struct {
	kind    Kind
	re      *regexp.Regexp
	keyword *regexp.Regexp
	num     int
	suffix  int
	sep     int
	rest    int
	free    int
}

// Classifier is safe for concurrent use.
type Classifier struct {
	rules     []rule
	premierID string
	emph      emphasis.Classifier
}

// New compiles the patterns. Article is checked first so that it wins over
// the other kinds.
func New(opts Options) (*Classifier, error) {
	if opts.Emphasis == nil {
		opts.Emphasis = emphasis.Default()
	}
	if opts.PremierID == "" {
		opts.PremierID = "1"
	}
	specs := []struct {
		kind     Kind
		pattern  string
		keyword  string
		needsNum bool
	}{
		{Article, opts.Patterns.Article, opts.Keywords.Article, true},
		{Title, opts.Patterns.Title, opts.Keywords.Title, true},
		{Chapter, opts.Patterns.Chapter, opts.Keywords.Chapter, true},
		{Section, opts.Patterns.Section, opts.Keywords.Section, true},
		{Preamble, opts.Patterns.Preamble, opts.Keywords.Preamble, false},
	}

	c := &Classifier{premierID: opts.PremierID, emph: opts.Emphasis}
	for _, s := range specs {
		if s.pattern == "" {
			continue
		}
		re, err := regexp.Compile(s.pattern)
		if err != nil {
			return nil, fmt.Errorf("%s pattern: %w", s.kind, err)
		}
		r := rule{
			kind:   s.kind,
			re:     re,
			num:    re.SubexpIndex("num"),
			suffix: re.SubexpIndex("suffix"),
			sep:    re.SubexpIndex("sep"),
			rest:   re.SubexpIndex("rest"),
			free:   re.SubexpIndex("free"),
		}
		if s.needsNum && r.num < 0 {
			return nil, fmt.Errorf("%s pattern: missing named group \"num\"", s.kind)
		}
		if r.rest < 0 {
			return nil, fmt.Errorf("%s pattern: missing named group \"rest\"", s.kind)
		}
		if s.keyword != "" {
			kw, err := regexp.Compile(s.keyword)
			if err != nil {
				return nil, fmt.Errorf("%s keyword: %w", s.kind, err)
			}
			r.keyword = kw
		}
		c.rules = append(c.rules, r)
	}
	if len(c.rules) == 0 {
		return nil, fmt.Errorf("no heading patterns configured")
	}
	return c, nil
}

// Classify inspects one line.
func (c *Classifier) Classify(l lines.StyledLine) Result {
	var res Result
	e, ok := c.emph.Emphasized(l)
	res.Emphasized = e || l.HeadingCandidate
	res.StyleKnown = ok || l.HeadingCandidate

	text := strings.TrimSpace(l.Text)
	if text == "" {
		return res
	}

	for _, r := range c.rules {
		idx := r.re.FindStringSubmatchIndex(text)
		if idx == nil {
			continue
		}
		res.Kind = r.kind
		res.Number = group(text, idx, r.num)
		res.Suffix = group(text, idx, r.suffix)
		sep := group(text, idx, r.sep)
		res.Label = strings.TrimSpace(group(text, idx, r.rest))
		free := strings.TrimSpace(group(text, idx, r.free))
		if sep == "" && free != "" {
			res.Label = free
		}
		res.Shaped = sep != "" || free == ""
		if r.kind == Article {
			res.ArticleID = c.articleID(res.Number, res.Suffix)
		}
		res.Heading = canonicalHeading(text, idx, r, sep != "", res.Label)
		if res.Emphasized {
			res.Confidence = High
		}
		return res
	}

	for _, r := range c.rules {
		if r.keyword == nil {
			continue
		}
		loc := r.keyword.FindStringIndex(text)
		if loc == nil {
			continue
		}
		if res.Emphasized || separatorAfterToken(text[loc[1]:]) {
			res.Malformed = true
			res.MalformedKind = r.kind
		}
		break
	}
	return res
}

func (c *Classifier) articleID(num, suffix string) string {
	id := strings.ToLower(num)
	switch id {
	case "premier", "1er":
		id = c.premierID
	}
	if suffix != "" {
		id += " " + strings.ToLower(suffix)
	}
	return id
}

func group(text string, idx []int, i int) string {
	if i < 0 || 2*i+1 >= len(idx) || idx[2*i] < 0 {
		return ""
	}
	return text[idx[2*i]:idx[2*i+1]]
}

// canonicalHeading rewrites the heading with single spaces and ".- " as
// separator, keeping the keyword and number spelling of the source.
func canonicalHeading(text string, idx []int, r rule, hasSep bool, label string) string {
	head := text
	switch {
	case hasSep:
		head = text[:idx[2*r.sep]]
	case r.free >= 0 && idx[2*r.free] >= 0 && label != "":
		head = text[:idx[2*r.free]]
	}
	head = strings.Join(strings.Fields(head), " ")
	switch {
	case !hasSep && label == "":
		return head
	case !hasSep:
		return head + " " + label
	case label == "":
		return head + ".-"
	}
	return head + ".- " + label
}

// separatorAfterToken reports whether s, the text after a keyword, holds a
// heading separator right after its first token.
func separatorAfterToken(s string) bool {
	s = strings.TrimLeft(s, " \t")
	if i := strings.IndexAny(s, " \t.:-"); i >= 0 {
		s = strings.TrimLeft(s[i:], " \t")
	} else {
		return false
	}
	for _, p := range []string{".-", ". -", ":", "-"} {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
