package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"path"
	"time"

	"github.com/dgallion1/legistruct/internal/chunker"
	"github.com/dgallion1/legistruct/internal/doctree"
	"github.com/dgallion1/legistruct/internal/export"
	"github.com/dgallion1/legistruct/internal/storage"
)

// Artifact names under a document prefix.
const (
	FlatFile        = "structure.json"
	NestedFile      = "nested.json"
	DiagnosticsFile = "diagnostics.json"
	ChunksFile      = "chunks.jsonl"
	ArticlesDir     = "articles"
)

// ExportOptions selects the artifacts written for each document.
type ExportOptions struct {
	Flat        bool
	Nested      bool
	Articles    bool
	Chunks      bool
	Diagnostics bool
	Policy      export.DuplicatePolicy
	Chunk       chunker.Config
}

// DefaultExportOptions writes every artifact.
func DefaultExportOptions() ExportOptions {
	return ExportOptions{
		Flat:        true,
		Nested:      true,
		Articles:    true,
		Chunks:      true,
		Diagnostics: true,
		Policy:      export.Suffix,
		Chunk:       chunker.DefaultConfig(),
	}
}

// Exporter writes the artifacts of parsed documents to a storage adapter,
// retrying throttled writes.
type Exporter struct {
	store   storage.Adapter
	opts    ExportOptions
	log     *slog.Logger
	backoff func(int) time.Duration
}

func NewExporter(store storage.Adapter, opts ExportOptions, log *slog.Logger) *Exporter {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Exporter{store: store, opts: opts, log: log, backoff: Backoff}
}

// Export writes the selected artifacts of doc under prefix. Every step runs
// even when an earlier one failed; it returns the number of files written
// and the joined step errors.
func (e *Exporter) Export(ctx context.Context, prefix string, doc *doctree.DocumentStructure) (int, error) {
	type step struct {
		name string
		on   bool
		run  func() (int, error)
	}
	one := func(err error) (int, error) {
		if err != nil {
			return 0, err
		}
		return 1, nil
	}
	steps := []step{
		{"structure", e.opts.Flat, func() (int, error) {
			return one(export.WriteJSON(ctx, e.store, path.Join(prefix, FlatFile), export.Flat(doc, e.opts.Policy)))
		}},
		{"nested", e.opts.Nested, func() (int, error) {
			return one(export.WriteJSON(ctx, e.store, path.Join(prefix, NestedFile), export.Nested(doc)))
		}},
		{"diagnostics", e.opts.Diagnostics, func() (int, error) {
			diags := doc.Diagnostics
			if diags == nil {
				diags = []doctree.Diagnostic{}
			}
			return one(export.WriteJSON(ctx, e.store, path.Join(prefix, DiagnosticsFile), diags))
		}},
		{"articles", e.opts.Articles, func() (int, error) {
			files, err := export.WriteArticleFiles(ctx, e.store, path.Join(prefix, ArticlesDir), doc, e.opts.Policy)
			return len(files), err
		}},
		{"chunks", e.opts.Chunks, func() (int, error) {
			return one(export.WriteChunks(ctx, e.store, path.Join(prefix, ChunksFile), chunker.ChunkTree(doc, e.opts.Chunk)))
		}},
	}

	written := 0
	var errs []error
	for _, s := range steps {
		if !s.on {
			continue
		}
		var n int
		err := withRetry(ctx, e.log, s.name, e.backoff, func() error {
			var err error
			n, err = s.run()
			return err
		})
		if err != nil {
			e.log.Error("export step failed", "step", s.name, "prefix", prefix, "error", err)
			errs = append(errs, err)
			if ctx.Err() != nil {
				break
			}
			continue
		}
		written += n
	}
	return written, errors.Join(errs...)
}
