// Package client is the Go client for a running bookbinder daemon. The
// CLI commands use it; it is also the integration seam for tests that
// exercise the full submit, poll, download flow over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/inkfeather/bookbinder/internal/compose"
	"github.com/inkfeather/bookbinder/internal/errors"
	"github.com/inkfeather/bookbinder/internal/jobs"
	"github.com/inkfeather/bookbinder/internal/preview"
	"github.com/inkfeather/bookbinder/internal/render"
)

// Client talks to the bookbinder HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a Client for baseURL, e.g. "http://localhost:8080".
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Export is a job snapshot as served by the API.
type Export struct {
	jobs.Job
	DownloadURL string `json:"download_url,omitempty"`
}

// Artifact is a downloaded export artifact.
type Artifact struct {
	FileName string
	Data     []byte
}

// SubmitExport enqueues an export and returns the accepted job snapshot.
func (c *Client) SubmitExport(ctx context.Context, projectID string, cfg compose.Config) (*Export, error) {
	var out Export
	path := fmt.Sprintf("/api/projects/%s/export", projectID)
	if err := c.postJSON(ctx, path, cfg, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Snapshot fetches a job's current state. It satisfies poll.StatusReader.
func (c *Client) Snapshot(ctx context.Context, jobID string) (*jobs.Job, error) {
	var out Export
	if err := c.getJSON(ctx, "/api/exports/"+jobID, &out); err != nil {
		return nil, err
	}
	return &out.Job, nil
}

// Download fetches the artifact for a completed job.
func (c *Client) Download(ctx context.Context, jobID string) (*Artifact, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/exports/"+jobID+"/download", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download artifact: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read artifact body: %w", err)
	}
	return &Artifact{FileName: dispositionFileName(resp), Data: data}, nil
}

// Preview computes composition statistics for a project. cfg may be nil.
func (c *Client) Preview(ctx context.Context, projectID string, cfg *compose.Config) (*preview.Preview, error) {
	var out preview.Preview
	path := fmt.Sprintf("/api/projects/%s/preview", projectID)
	var body any
	if cfg != nil {
		body = cfg
	}
	if err := c.postJSON(ctx, path, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Formats fetches the format catalog.
func (c *Client) Formats(ctx context.Context) ([]render.Format, error) {
	var out struct {
		Formats []render.Format `json:"formats"`
	}
	if err := c.getJSON(ctx, "/api/formats", &out); err != nil {
		return nil, err
	}
	return out.Formats, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.doJSON(req, out)
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, rdr)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.doJSON(req, out)
}

func (c *Client) doJSON(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response from %s: %w", req.URL.Path, err)
	}
	return nil
}

// decodeError turns the API's error envelope back into a categorized
// error, so callers can distinguish validation from not found from server
// faults the same way in-process callers do.
func decodeError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	var payload errors.HTTPErrorResponse
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		ee := errors.New(errors.Category(payload.Code), payload.Error)
		for k, v := range payload.Details {
			ee = ee.WithContext(k, v)
		}
		return ee
	}
	return fmt.Errorf("server returned %s", resp.Status)
}

func dispositionFileName(resp *http.Response) string {
	_, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition"))
	if err != nil {
		return ""
	}
	return params["filename"]
}
