package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/dgallion1/legistruct/internal/doctree"
	"github.com/dgallion1/legistruct/internal/export"
	"github.com/dgallion1/legistruct/internal/pipeline"
	"github.com/go-chi/chi/v5"
)

// parsedDocument resolves the job in the URL and its parsed document. It
// writes the error response and returns nil when either is missing.
func (s *Server) parsedDocument(w http.ResponseWriter, r *http.Request) (*pipeline.Job, *doctree.DocumentStructure) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return nil, nil
	}
	doc := job.Document()
	if doc == nil {
		snap := job.Snapshot()
		if snap.Done() {
			jsonError(w, fmt.Sprintf("job %s has no document (status %s)", jobID, snap.Status), http.StatusUnprocessableEntity)
		} else {
			jsonError(w, fmt.Sprintf("job %s is still %s", jobID, snap.Status), http.StatusConflict)
		}
		return nil, nil
	}
	return job, doc
}

// handleGetDocument returns the parsed structure, nested by default.
func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	_, doc := s.parsedDocument(w, r)
	if doc == nil {
		return
	}
	switch shape := r.URL.Query().Get("shape"); shape {
	case "", "nested":
		writeJSON(w, http.StatusOK, export.Nested(doc))
	case "flat":
		writeJSON(w, http.StatusOK, export.Flat(doc, s.policy))
	case "tree":
		writeJSON(w, http.StatusOK, doc)
	default:
		jsonError(w, fmt.Sprintf("unknown shape %q (nested, flat or tree)", shape), http.StatusBadRequest)
	}
}

// handleGetArticle returns one article body as plain text. Ids follow the
// flat export, so a suffixed duplicate such as "5~2" is addressable.
func (s *Server) handleGetArticle(w http.ResponseWriter, r *http.Request) {
	_, doc := s.parsedDocument(w, r)
	if doc == nil {
		return
	}
	id := chi.URLParam(r, "articleID")
	body, ok := export.Flat(doc, s.policy).Articles.Get(id)
	if !ok {
		jsonError(w, fmt.Sprintf("article %s not found", id), http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(body))
	if !strings.HasSuffix(body, "\n") {
		w.Write([]byte("\n"))
	}
}

func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	job, doc := s.parsedDocument(w, r)
	if doc == nil {
		return
	}
	diags := doc.Diagnostics
	if diags == nil {
		diags = []doctree.Diagnostic{}
	}
	snap := job.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"job_id":      snap.ID,
		"doc_id":      snap.DocID,
		"diagnostics": diags,
		"filtered":    snap.Progress.Filtered,
	})
}

// handleListFiles lists the artifacts exported for the job's document.
func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	store := s.orchestrator.Storage()
	if store == nil {
		jsonError(w, "export disabled", http.StatusServiceUnavailable)
		return
	}
	snap := job.Snapshot()
	docID := snap.DocID
	if snap.DuplicateOf != "" {
		docID = snap.DuplicateOf
	}
	files, err := store.List(r.Context(), pipeline.DocumentPrefix(docID)+"/")
	if err != nil {
		jsonError(w, "failed to list files: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if files == nil {
		files = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"doc_id": docID,
		"files":  files,
	})
}
