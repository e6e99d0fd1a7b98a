package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkfeather/bookbinder/internal/book"
	"github.com/inkfeather/bookbinder/internal/delivery"
	"github.com/inkfeather/bookbinder/internal/jobs"
	"github.com/inkfeather/bookbinder/internal/metrics"
	"github.com/inkfeather/bookbinder/internal/render"
)

type testEnv struct {
	server  *Server
	manager *jobs.Manager
	store   *delivery.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	src := book.NewMemorySource()
	src.Add(
		&book.Project{ID: "novel", Title: "The Long Road", Author: "R. Castellan", CopyrightYear: 2024, Dedication: "For M."},
		[]book.Chapter{
			{Number: 1, Title: "Arrival", Body: "The train came in at dusk."},
			{Number: 2, Title: "Departure", Body: "She left before sunrise."},
		},
	)

	registry := render.NewRegistry()
	store, err := delivery.NewStore(t.TempDir())
	require.NoError(t, err)
	manager := jobs.NewManager(10, 2, src, registry, store)
	ctx, cancel := context.WithCancel(context.Background())
	manager.Start(ctx)
	t.Cleanup(func() {
		manager.Stop(context.Background())
		cancel()
	})

	return &testEnv{
		server:  NewServer(":0", manager, src, registry, store, metrics.NoopRecorder{}),
		manager: manager,
		store:   store,
	}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr *bytes.Reader
	if body == "" {
		rdr = bytes.NewReader(nil)
	} else {
		rdr = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, rdr)
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) submitAndWait(t *testing.T, body string) ExportResponse {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/projects/novel/export", body)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var submitted ExportResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &submitted))

	var final ExportResponse
	require.Eventually(t, func() bool {
		r := e.do(t, http.MethodGet, "/api/exports/"+submitted.ID, "")
		require.Equal(t, http.StatusOK, r.Code)
		final = ExportResponse{}
		require.NoError(t, json.Unmarshal(r.Body.Bytes(), &final))
		return final.Status.Terminal()
	}, 5*time.Second, 5*time.Millisecond)
	return final
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestExportLifecycleOverHTTP(t *testing.T) {
	env := newTestEnv(t)

	done := env.submitAndWait(t, `{"format":"text"}`)
	assert.Equal(t, jobs.StatusCompleted, done.Status)
	assert.Equal(t, 100, done.Progress)
	assert.Equal(t, "the-long-road.txt", done.FileName)
	assert.Equal(t, fmt.Sprintf("/api/exports/%s/download", done.ID), done.DownloadURL)

	rec := env.do(t, http.MethodGet, done.DownloadURL, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="the-long-road.txt"`, rec.Header().Get("Content-Disposition"))
	assert.Contains(t, rec.Body.String(), "The Long Road")
	assert.Contains(t, rec.Body.String(), "The train came in at dusk.")
}

func TestSubmitRejectsInvalidConfig(t *testing.T) {
	env := newTestEnv(t)

	cases := []struct {
		name string
		body string
		code int
	}{
		{"malformed json", `{`, http.StatusBadRequest},
		{"unknown format", `{"format":"docx"}`, http.StatusBadRequest},
		{"unavailable format", `{"format":"pdf"}`, http.StatusBadRequest},
		{"unknown toggle", `{"format":"text","front_matter":{"include_blurbs":true}}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/projects/novel/export", tc.body)
			assert.Equal(t, tc.code, rec.Code, rec.Body.String())
		})
	}

	rec := env.do(t, http.MethodGet, "/api/exports", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Exports []ExportResponse `json:"exports"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Empty(t, list.Exports, "rejected submissions must not create jobs")
}

func TestExportUnknownProject(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/projects/ghost/export", `{"format":"text"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetUnknownExport(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/exports/no-such-job", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDownloadEvictedArtifact(t *testing.T) {
	env := newTestEnv(t)

	done := env.submitAndWait(t, `{"format":"text"}`)
	require.Equal(t, jobs.StatusCompleted, done.Status)
	require.NoError(t, env.store.Evict(context.Background(), done.ID))

	rec := env.do(t, http.MethodGet, done.DownloadURL, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "no longer available")

	// Eviction is a storage fact, not a job state change.
	again := env.do(t, http.MethodGet, "/api/exports/"+done.ID, "")
	require.Equal(t, http.StatusOK, again.Code)
	var snap ExportResponse
	require.NoError(t, json.Unmarshal(again.Body.Bytes(), &snap))
	assert.Equal(t, jobs.StatusCompleted, snap.Status)
}

func TestDownloadFailedExport(t *testing.T) {
	env := newTestEnv(t)

	done := env.submitAndWait(t, `{"format":"markdown","formatting":{"scene_break_style":"blank"}}`)
	require.Equal(t, jobs.StatusFailed, done.Status)
	assert.Empty(t, done.DownloadURL)

	rec := env.do(t, http.MethodGet, "/api/exports/"+done.ID+"/download", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListExportsLimit(t *testing.T) {
	env := newTestEnv(t)
	env.submitAndWait(t, `{"format":"text"}`)
	env.submitAndWait(t, `{"format":"markdown"}`)

	rec := env.do(t, http.MethodGet, "/api/exports?limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Exports []ExportResponse `json:"exports"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list.Exports, 1)

	bad := env.do(t, http.MethodGet, "/api/exports?limit=bogus", "")
	assert.Equal(t, http.StatusBadRequest, bad.Code)
}

func TestFormatsCatalog(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/formats", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Formats []render.Format `json:"formats"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Len(t, payload.Formats, 5)

	available := map[string]bool{}
	for _, f := range payload.Formats {
		available[f.ID] = f.Available
	}
	assert.True(t, available["text"])
	assert.True(t, available["markdown"])
	assert.True(t, available["html"])
	assert.False(t, available["epub"])
	assert.False(t, available["pdf"])
}

func TestPreviewWithoutBody(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/projects/novel/preview", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var p struct {
		Title               string   `json:"title"`
		ChapterCount        int      `json:"chapter_count"`
		FrontMatterSections []string `json:"front_matter_sections"`
		EstimatedPages      int      `json:"estimated_pages"`
		ReadingTimeMinutes  int      `json:"reading_time_minutes"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, "The Long Road", p.Title)
	assert.Equal(t, 2, p.ChapterCount)
	assert.Empty(t, p.FrontMatterSections)
	assert.Equal(t, 1, p.EstimatedPages)
	assert.Equal(t, 1, p.ReadingTimeMinutes)
}

func TestPreviewTogglesAffectSections(t *testing.T) {
	env := newTestEnv(t)
	body := `{"front_matter":{"include_title_page":true,"include_dedication":true}}`
	rec := env.do(t, http.MethodPost, "/api/projects/novel/preview", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var p struct {
		FrontMatterSections []string `json:"front_matter_sections"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, []string{"title_page", "dedication"}, p.FrontMatterSections)
}

func TestPreviewUnknownProject(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/projects/ghost/preview", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestErrorPayloadShape(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/projects/novel/export", `{"format":"docx"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var payload struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "validation", payload.Code)
	assert.True(t, strings.Contains(payload.Error, "docx") || strings.Contains(payload.Error, "format"))
}
