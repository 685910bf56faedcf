package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/dgallion1/legistruct/internal/lines"
	"github.com/dgallion1/legistruct/internal/parser"
	"github.com/dgallion1/legistruct/internal/storage"
)

// DocumentsPrefix is the storage prefix of every exported document.
const DocumentsPrefix = "documents"

// WorkerOptions configures document processing.
type WorkerOptions struct {
	Parse  parser.Options
	Export ExportOptions
	// Dedup skips the export of content already exported under another
	// document id.
	Dedup bool
}

// Worker processes a single document job.
type Worker struct {
	parser   *DocParser
	store    storage.Adapter
	exporter *Exporter
	stats    *ParseStats
	log      *slog.Logger
	opts     WorkerOptions
}

// NewWorker returns a worker. A nil store disables export; the parsed
// document is then only kept on the job.
func NewWorker(dp *DocParser, store storage.Adapter, stats *ParseStats, log *slog.Logger, opts WorkerOptions) *Worker {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	w := &Worker{
		parser: dp,
		store:  store,
		stats:  stats,
		log:    log,
		opts:   opts,
	}
	if store != nil {
		w.exporter = NewExporter(store, opts.Export, log)
	}
	return w
}

// DocumentPrefix returns the storage prefix of one document's artifacts.
func DocumentPrefix(docID string) string {
	return path.Join(DocumentsPrefix, docID)
}

func hashPath(hash string) string {
	return path.Join(DocumentsPrefix, "by_hash", hash)
}

// Process parses the job's document and exports it.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "doc_id", job.DocID)

	// Phase 1: Parse
	job.SetStatus(StatusParsing, "parsing")
	data := job.FileData()
	job.SetContentHash(ContentHashHex(data))

	p, err := parser.ForFile(job.Filename, w.opts.Parse)
	if err != nil {
		log.Error("unsupported format", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "parsing")
		return
	}
	src, err := p.Parse(bytes.NewReader(data), job.Filename)
	if err != nil {
		err = lines.Unavailable(job.Filename, err)
		log.Error("parse failed", "error", err)
		job.AddError(fmt.Sprintf("parse: %s", err))
		job.SetStatus(StatusFailed, "parsing")
		return
	}
	res, err := w.parser.Parse(src, job.Filename)
	if err != nil {
		log.Error("parse failed", "error", err)
		job.AddError(fmt.Sprintf("parse: %s", err))
		job.SetStatus(StatusFailed, "parsing")
		return
	}
	if w.stats != nil {
		w.stats.Record(res.Duration.Milliseconds())
	}
	job.SetResult(res)

	if w.exporter == nil {
		job.SetStatus(StatusCompleted, "done")
		return
	}
	if err := ctx.Err(); err != nil {
		job.AddError(fmt.Sprintf("export: %s", err))
		job.SetStatus(StatusFailed, "exporting")
		return
	}

	// Phase 1.5: Dedup check
	hash := job.Snapshot().ContentHash
	if w.opts.Dedup {
		existing, err := w.lookupHash(ctx, hash)
		if err != nil {
			log.Warn("dedup check failed, proceeding", "error", err)
		} else if existing != "" && existing != job.DocID {
			log.Info("duplicate document, skipping export", "existing_doc_id", existing)
			job.MarkDuplicate(existing)
			return
		}
	}

	// Phase 2: Export
	job.SetStatus(StatusExporting, "exporting")
	written, err := w.exporter.Export(ctx, DocumentPrefix(job.DocID), res.Doc)
	job.AddFilesWritten(written)
	if err != nil {
		for _, e := range unjoin(err) {
			job.AddError(fmt.Sprintf("export: %s", e))
		}
		if written > 0 {
			job.SetStatus(StatusPartial, "done")
		} else {
			job.SetStatus(StatusFailed, "exporting")
		}
		return
	}

	// Write hash index for dedup.
	hashErr := withRetry(ctx, log, "hash_index", w.exporter.backoff, func() error {
		return w.store.Put(ctx, hashPath(hash), strings.NewReader(job.DocID))
	})
	if hashErr != nil {
		log.Error("hash index write failed", "error", hashErr)
	}

	log.Info("export complete", "files", written)
	job.SetStatus(StatusCompleted, "done")
}

// lookupHash returns the document id already exported with this content
// hash, or "".
func (w *Worker) lookupHash(ctx context.Context, hash string) (string, error) {
	rc, err := w.store.Get(ctx, hashPath(hash))
	if errors.Is(err, storage.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

func unjoin(err error) []error {
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		return j.Unwrap()
	}
	return []error{err}
}
