package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dgallion1/papersumm/internal/config"
	"github.com/dgallion1/papersumm/internal/pipeline"
)

const testAPIKey = "test-key"

func testServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Config{
		PapersummAPIKey: testAPIKey,
		MaxUploadBytes:  1 << 20,
		MaxQueueSize:    4,
		JobTTL:          time.Hour,
		OutputDir:       t.TempDir(),
	}
	// Workers are never started: jobs stay queued, which is all the
	// handler tests need.
	orch := pipeline.NewOrchestrator(cfg, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return NewServer(orch, nil, slog.New(slog.NewTextHandler(io.Discard, nil)), cfg)
}

func multipartUpload(t *testing.T, field, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatal(err)
	}
	io.WriteString(fw, content)
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestHealth_NoAuth(t *testing.T) {
	srv := testServer(t)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("health status = %d, want 200", rec.Code)
	}
}

func TestAuth_Required(t *testing.T) {
	srv := testServer(t)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/summarize/abc/status", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("missing auth: status = %d, want 401", rec.Code)
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/summarize/abc/status", nil)
	req.Header.Set("Authorization", "Bearer wrong-key")
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad key: status = %d, want 401", rec.Code)
	}
}

func TestSummarize_AcceptsUpload(t *testing.T) {
	srv := testServer(t)

	body, contentType := multipartUpload(t, "file", "paper.md", "# Title\n\nSome body text.")
	req := httptest.NewRequest(http.MethodPost, "/api/summarize", body)
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		JobID   string `json:"job_id"`
		Status  string `json:"status"`
		PollURL string `json:"poll_url"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response: %v", err)
	}
	if resp.JobID == "" || resp.Status != string(pipeline.StatusQueued) {
		t.Errorf("unexpected response: %+v", resp)
	}

	// The queued job is visible through the status endpoint.
	req = httptest.NewRequest(http.MethodGet, "/api/summarize/"+resp.JobID+"/status", nil)
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status endpoint = %d, want 200", rec.Code)
	}

	// The report is not ready while the job is queued.
	req = httptest.NewRequest(http.MethodGet, "/api/summarize/"+resp.JobID+"/report", nil)
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusConflict {
		t.Errorf("report endpoint = %d, want 409", rec.Code)
	}
}

func TestSummarize_RejectsUnsupportedExtension(t *testing.T) {
	srv := testServer(t)

	body, contentType := multipartUpload(t, "file", "slides.pptx", "binary")
	req := httptest.NewRequest(http.MethodPost, "/api/summarize", body)
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestSummarizeStatus_UnknownJob(t *testing.T) {
	srv := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/summarize/01JUNKJUNKJUNKJUNKJUNKJUNK/status", nil)
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestSanitizeFilename_API(t *testing.T) {
	cases := map[string]string{
		"../../etc/passwd": "passwd",
		"paper.pdf":        "paper.pdf",
		".":                "unnamed",
	}
	for in, want := range cases {
		if got := sanitizeFilename(in); got != want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
