package api

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/dgallion1/legistruct/internal/parser"
	"github.com/dgallion1/legistruct/internal/pipeline"
	"github.com/go-chi/chi/v5"
)

// docIDPattern keeps caller-chosen ids safe to use as a storage prefix.
var docIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,127}$`)

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	docID := r.FormValue("doc_id")
	if docID != "" && !docIDPattern.MatchString(docID) {
		jsonError(w, "invalid doc_id", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !parser.IsSupportedExtension(filename) {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}

	// Read file data.
	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	job := pipeline.NewJob(filename, r.FormValue("title"), docID, data)
	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	s.log.Info("job queued", "job_id", job.ID, "doc_id", job.DocID, "filename", filename, "bytes", len(data))

	writeJSON(w, http.StatusAccepted, queuedResponse(job))
}

func (s *Server) handleParseStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}

func (s *Server) handleBatchParse(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes*10+10*1024*1024)

	if err := r.ParseMultipartForm(64 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		jsonError(w, "at least one file is required", http.StatusBadRequest)
		return
	}

	results := make([]map[string]any, 0, len(files))
	for _, fh := range files {
		filename := sanitizeFilename(fh.Filename)
		if !parser.IsSupportedExtension(filename) {
			results = append(results, map[string]any{
				"filename": filename,
				"error":    fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)),
			})
			continue
		}

		data, err := s.readPart(fh)
		if err != nil {
			results = append(results, map[string]any{
				"filename": filename,
				"error":    err.Error(),
			})
			continue
		}

		job := pipeline.NewJob(filename, "", "", data)
		if err := s.orchestrator.Submit(job); err != nil {
			results = append(results, map[string]any{
				"filename": filename,
				"error":    err.Error(),
			})
			continue
		}

		res := queuedResponse(job)
		res["filename"] = filename
		results = append(results, res)
	}

	writeJSON(w, http.StatusAccepted, map[string]any{"jobs": results})
}

func (s *Server) readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open file")
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, s.cfg.MaxUploadBytes+1))
	if err != nil || int64(len(data)) > s.cfg.MaxUploadBytes {
		return nil, fmt.Errorf("file too large or read error")
	}
	return data, nil
}

func queuedResponse(job *pipeline.Job) map[string]any {
	snap := job.Snapshot()
	return map[string]any{
		"job_id":   snap.ID,
		"doc_id":   snap.DocID,
		"status":   snap.Status,
		"poll_url": fmt.Sprintf("/api/parse/%s/status", snap.ID),
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	// Remove any path separators that might have survived.
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
