package pipeline

import (
	"context"
	"errors"
	"io"
	"path"
	"sync"
	"testing"
	"time"

	"github.com/dgallion1/legistruct/internal/config"
	"github.com/dgallion1/legistruct/internal/doctree"
	"github.com/dgallion1/legistruct/internal/lines"
	"github.com/dgallion1/legistruct/internal/storage"
)

func newLocalStore(t *testing.T) *storage.LocalAdapter {
	t.Helper()
	store, err := storage.NewLocalAdapter(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return store
}

func mustExist(t *testing.T, store storage.Adapter, p string) {
	t.Helper()
	ok, err := store.Exists(context.Background(), p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Errorf("expected %s to exist", p)
	}
}

func TestWorker_ProcessExports(t *testing.T) {
	store := newLocalStore(t)
	stats := NewParseStats(time.Hour)
	w := NewWorker(newDocParser(t), store, stats, nil, WorkerOptions{Export: DefaultExportOptions()})

	job := NewJob("cgi.txt", "CGI", "cgi", []byte(sampleCode))
	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusCompleted {
		t.Fatalf("expected status %q, got %q (errors %v)", StatusCompleted, snap.Status, snap.Progress.Errors)
	}
	if snap.Progress.Articles != 2 {
		t.Errorf("expected 2 articles, got %d", snap.Progress.Articles)
	}
	// structure, nested, diagnostics, chunks and two article files
	if snap.Progress.FilesWritten != 6 {
		t.Errorf("expected 6 files written, got %d", snap.Progress.FilesWritten)
	}
	if stats.Snapshot().Count != 1 {
		t.Errorf("expected one recorded parse, got %d", stats.Snapshot().Count)
	}

	prefix := DocumentPrefix("cgi")
	for _, p := range []string{
		path.Join(prefix, FlatFile),
		path.Join(prefix, NestedFile),
		path.Join(prefix, DiagnosticsFile),
		path.Join(prefix, ChunksFile),
		path.Join(prefix, ArticlesDir, "article_1.txt"),
		path.Join(prefix, ArticlesDir, "article_2.txt"),
		hashPath(snap.ContentHash),
	} {
		mustExist(t, store, p)
	}

	rc, err := store.Get(context.Background(), path.Join(prefix, ArticlesDir, "article_2.txt"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer rc.Close()
	body, _ := io.ReadAll(rc)
	if string(body) != "Le taux est fixe a dix pour cent.\n" {
		t.Errorf("unexpected article body %q", body)
	}
}

func TestWorker_Dedup(t *testing.T) {
	store := newLocalStore(t)
	w := NewWorker(newDocParser(t), store, nil, nil, WorkerOptions{Export: DefaultExportOptions(), Dedup: true})

	first := NewJob("cgi.txt", "", "first", []byte(sampleCode))
	w.Process(context.Background(), first)
	if s := first.Snapshot().Status; s != StatusCompleted {
		t.Fatalf("expected first job completed, got %q", s)
	}

	second := NewJob("copy.txt", "", "second", []byte(sampleCode))
	w.Process(context.Background(), second)
	snap := second.Snapshot()
	if snap.Status != StatusDupSkipped {
		t.Fatalf("expected status %q, got %q", StatusDupSkipped, snap.Status)
	}
	if snap.DuplicateOf != "first" {
		t.Errorf("expected duplicate_of %q, got %q", "first", snap.DuplicateOf)
	}
	if second.Document() == nil {
		t.Error("expected the duplicate to keep its parsed document")
	}
	ok, _ := store.Exists(context.Background(), path.Join(DocumentPrefix("second"), FlatFile))
	if ok {
		t.Error("expected no export for the duplicate")
	}

	// Re-submitting under the same document id exports again.
	again := NewJob("cgi.txt", "", "first", []byte(sampleCode))
	w.Process(context.Background(), again)
	if s := again.Snapshot().Status; s != StatusCompleted {
		t.Errorf("expected re-export completed, got %q", s)
	}
}

func TestWorker_UnsupportedFormat(t *testing.T) {
	w := NewWorker(newDocParser(t), nil, nil, nil, WorkerOptions{})
	job := NewJob("table.csv", "", "", []byte("a,b"))
	w.Process(context.Background(), job)
	snap := job.Snapshot()
	if snap.Status != StatusFailed {
		t.Fatalf("expected status %q, got %q", StatusFailed, snap.Status)
	}
	if len(snap.Progress.Errors) != 1 {
		t.Errorf("expected 1 error, got %v", snap.Progress.Errors)
	}
}

func TestWorker_NoStore(t *testing.T) {
	w := NewWorker(newDocParser(t), nil, nil, nil, WorkerOptions{})
	job := NewJob("cgi.md", "", "", []byte("# TITRE I.- GENERAL\n\nArticle 1.- Objet\n\ncorps\n"))
	w.Process(context.Background(), job)
	snap := job.Snapshot()
	if snap.Status != StatusCompleted {
		t.Fatalf("expected status %q, got %q (errors %v)", StatusCompleted, snap.Status, snap.Progress.Errors)
	}
	if snap.Progress.FilesWritten != 0 {
		t.Errorf("expected no files written, got %d", snap.Progress.FilesWritten)
	}
	if job.Document() == nil {
		t.Fatal("expected parsed document")
	}
}

// flakyStore fails the first Put of every path with a retryable error, and
// every Put under deny with a permanent one.
type flakyStore struct {
	storage.Adapter
	mu    sync.Mutex
	seen  map[string]bool
	deny  string
	calls int
}

func (f *flakyStore) Put(ctx context.Context, p string, data io.Reader) error {
	f.mu.Lock()
	f.calls++
	first := !f.seen[p]
	f.seen[p] = true
	f.mu.Unlock()
	if f.deny != "" && path.Dir(p) == f.deny {
		return errors.New("access denied")
	}
	if first {
		return &storage.RetryableError{Op: "put", Err: errors.New("slow down")}
	}
	return f.Adapter.Put(ctx, p, data)
}

func TestExporter_RetriesThrottledWrites(t *testing.T) {
	fs := &flakyStore{Adapter: newLocalStore(t), seen: make(map[string]bool)}
	opts := ExportOptions{Flat: true, Diagnostics: true, Policy: config.DefaultRules().Policy()}
	e := NewExporter(fs, opts, nil)
	e.backoff = noWait

	doc := &doctree.DocumentStructure{}
	n, err := e.Export(context.Background(), "documents/x", doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 files, got %d", n)
	}
	if fs.calls != 4 {
		t.Errorf("expected 4 puts, got %d", fs.calls)
	}
	mustExist(t, fs, "documents/x/"+DiagnosticsFile)
}

func TestExporter_PartialFailure(t *testing.T) {
	fs := &flakyStore{Adapter: newLocalStore(t), seen: make(map[string]bool), deny: "documents/x/" + ArticlesDir}
	e := NewExporter(fs, DefaultExportOptions(), nil)
	e.backoff = noWait

	res, err := newDocParser(t).Parse(lines.FromText(sampleCode), "cgi.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	n, err := e.Export(context.Background(), "documents/x", res.Doc)
	if err == nil {
		t.Fatal("expected an error for the denied articles")
	}
	if n != 4 {
		t.Errorf("expected 4 files written, got %d", n)
	}
	if len(unjoin(err)) != 1 {
		t.Errorf("expected 1 step error, got %v", err)
	}
}
