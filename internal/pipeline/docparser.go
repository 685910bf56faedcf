package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/legistruct/internal/classify"
	"github.com/dgallion1/legistruct/internal/cleaner"
	"github.com/dgallion1/legistruct/internal/config"
	"github.com/dgallion1/legistruct/internal/doctree"
	"github.com/dgallion1/legistruct/internal/hierarchy"
	"github.com/dgallion1/legistruct/internal/lines"
	"github.com/dgallion1/legistruct/internal/normalize"
)

// DocParser recovers the structure of one document at a time. It holds only
// compiled rules and is safe for concurrent use; each Parse call builds its
// own state.
type DocParser struct {
	norm       *normalize.Normalizer
	filterOpts normalize.FilterOptions
	classifier *classify.Classifier
	joiner     string
	log        *slog.Logger
}

// ParseResult is the outcome of one parse run.
type ParseResult struct {
	Doc      *doctree.DocumentStructure
	Filter   normalize.FilterStats
	Lines    int
	Duration time.Duration
}

// NewDocParser compiles rules.
func NewDocParser(rules config.Rules, log *slog.Logger) (*DocParser, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if err := rules.Validate(); err != nil {
		return nil, fmt.Errorf("rules: %w", err)
	}
	c, err := classify.New(rules.ClassifyOptions())
	if err != nil {
		return nil, fmt.Errorf("classifier: %w", err)
	}
	return &DocParser{
		norm:       normalize.New(rules.NormalizeOptions()),
		filterOpts: rules.FilterOptions(),
		classifier: c,
		joiner:     rules.NameJoiner,
		log:        log,
	}, nil
}

// Classifier exposes the compiled heading classifier.
func (p *DocParser) Classifier() *classify.Classifier { return p.classifier }

// Normalizer exposes the configured normalizer.
func (p *DocParser) Normalizer() *normalize.Normalizer { return p.norm }

// Parse drains src through the normalizer, the classifier and the hierarchy
// builder, then cleans article bodies. src is closed. The only error is a
// *lines.SourceUnavailableError when src fails mid-stream; data problems are
// reported as diagnostics on the document.
func (p *DocParser) Parse(src lines.Source, name string) (*ParseResult, error) {
	start := time.Now()
	log := p.log.With("source", name)

	f := normalize.NewFilter(src, p.norm, p.filterOpts)
	defer f.Close()

	b := hierarchy.New(hierarchy.Options{Source: name, NameJoiner: p.joiner, Logger: log})
	n := 0
	for f.Next() {
		l := f.Line()
		b.Feed(l, p.classifier.Classify(l))
		n++
	}
	if err := f.Err(); err != nil {
		var su *lines.SourceUnavailableError
		if errors.As(err, &su) {
			return nil, err
		}
		return nil, lines.Unavailable(name, err)
	}
	if st := f.Stats(); st.UnclosedTOC > 0 {
		log.Warn("table of contents without end marker kept in text", "count", st.UnclosedTOC)
	}
	if sk, ok := src.(interface{ SkippedPages() []int }); ok && len(sk.SkippedPages()) > 0 {
		log.Warn("pages skipped", "pages", sk.SkippedPages())
	}

	doc := cleaner.Apply(b.Finish())
	res := &ParseResult{
		Doc:      doc,
		Filter:   f.Stats(),
		Lines:    n,
		Duration: time.Since(start),
	}
	log.Info("document parsed",
		"lines", n,
		"titles", len(doc.Titles),
		"articles", len(doc.Articles()),
		"diagnostics", len(doc.Diagnostics),
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}
