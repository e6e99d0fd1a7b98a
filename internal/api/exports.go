package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/inkfeather/bookbinder/internal/compose"
	"github.com/inkfeather/bookbinder/internal/delivery"
	"github.com/inkfeather/bookbinder/internal/errors"
	"github.com/inkfeather/bookbinder/internal/jobs"
	"github.com/inkfeather/bookbinder/internal/preview"
)

// ExportResponse is a job snapshot on the wire. DownloadURL is set only
// once the artifact is ready.
type ExportResponse struct {
	*jobs.Job
	DownloadURL string `json:"download_url,omitempty"`
}

func exportResponse(j *jobs.Job) ExportResponse {
	resp := ExportResponse{Job: j}
	if j.Status == jobs.StatusCompleted {
		resp.DownloadURL = fmt.Sprintf("/api/exports/%s/download", j.ID)
	}
	return resp
}

// handleSubmitExport accepts an export configuration and enqueues a job.
// Invalid configurations are rejected synchronously with no job created.
func (s *Server) handleSubmitExport(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")

	var cfg compose.Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		s.errs.WriteError(w, r, errors.Validation("request body is not valid JSON"))
		return
	}

	job, err := s.manager.Submit(r.Context(), projectID, cfg)
	if err != nil {
		s.errs.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, exportResponse(job))
}

func (s *Server) handleGetExport(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job, ok := s.manager.Snapshot(jobID)
	if !ok {
		s.errs.WriteError(w, r, errors.NotFound("export job not found").WithContext("job_id", jobID))
		return
	}
	writeJSON(w, http.StatusOK, exportResponse(job))
}

func (s *Server) handleListExports(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.errs.WriteError(w, r, errors.Validation("limit must be a non-negative integer"))
			return
		}
		limit = n
	}
	list := s.manager.List(limit)
	out := make([]ExportResponse, len(list))
	for i, j := range list {
		out[i] = exportResponse(j)
	}
	writeJSON(w, http.StatusOK, map[string]any{"exports": out})
}

// handleDownload streams the artifact bytes. An evicted artifact is its own
// not found condition; the job record stays completed regardless.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	job, ok := s.manager.Snapshot(jobID)
	if !ok {
		s.errs.WriteError(w, r, errors.NotFound("export job not found").WithContext("job_id", jobID))
		return
	}
	switch job.Status {
	case jobs.StatusCompleted:
	case jobs.StatusFailed:
		s.errs.WriteError(w, r, errors.Validation("export failed, no artifact to download").WithContext("job_id", jobID))
		return
	default:
		s.errs.WriteError(w, r, errors.Validation("export is still in progress").WithContext("job_id", jobID).WithContext("status", string(job.Status)))
		return
	}

	art, err := s.store.Get(r.Context(), jobID)
	if err != nil {
		if delivery.IsNotFound(err) {
			s.errs.WriteError(w, r, errors.NotFound("artifact no longer available").WithContext("job_id", jobID))
			return
		}
		s.errs.WriteError(w, r, errors.Wrap(err, errors.CategoryDelivery, "read artifact"))
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", art.FileName))
	w.Header().Set("Content-Length", strconv.FormatInt(art.Size, 10))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(art.Data)
}

func (s *Server) handleExportEvents(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	if _, ok := s.manager.Snapshot(jobID); !ok {
		s.errs.WriteError(w, r, errors.NotFound("export job not found").WithContext("job_id", jobID))
		return
	}
	events, err := s.manager.Events(r.Context(), jobID)
	if err != nil {
		s.errs.WriteError(w, r, errors.Wrap(err, errors.CategoryInternal, "read event journal"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"job_id": jobID, "events": events})
}

func (s *Server) handleFormats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"formats": s.registry.Formats()})
}

// handlePreview computes composition statistics without rendering or
// creating a job. The body is optional; absent or empty, every optional
// section is off and only the chapters count.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")

	var cfg compose.Config
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.errs.WriteError(w, r, errors.Validation("failed to read request body"))
		return
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &cfg); err != nil {
			s.errs.WriteError(w, r, errors.Validation("request body is not valid JSON"))
			return
		}
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		s.errs.WriteError(w, r, err)
		return
	}

	project, err := s.source.Project(r.Context(), projectID)
	if err != nil {
		s.errs.WriteError(w, r, err)
		return
	}
	chapters, err := s.source.Chapters(r.Context(), projectID)
	if err != nil {
		s.errs.WriteError(w, r, err)
		return
	}
	start := time.Now()
	doc, err := compose.Compose(project, chapters, cfg)
	if err != nil {
		s.errs.WriteError(w, r, err)
		return
	}
	s.recorder.ObserveStageDuration("preview", time.Since(start))

	writeJSON(w, http.StatusOK, preview.Calculate(doc))
}
