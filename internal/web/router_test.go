package web

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"detectai/internal/aidetect"
)

type zeroNoise struct{}

func (zeroNoise) IntN(n int) int { return n / 2 }

type memSink struct {
	mu    sync.Mutex
	lines []string
}

func (m *memSink) Log(level, stage, message, detail string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lines = append(m.lines, level+" "+stage+" "+message+" "+detail)
}

func (m *memSink) ExportZip(w io.Writer) error {
	zw := zip.NewWriter(w)
	f, err := zw.Create("session.log")
	if err != nil {
		return err
	}
	m.mu.Lock()
	_, err = f.Write([]byte(strings.Join(m.lines, "\n")))
	m.mu.Unlock()
	if err != nil {
		return err
	}
	return zw.Close()
}

func newTestRouter(opts Options) (http.Handler, *memSink) {
	sink := &memSink{}
	scorer := aidetect.NewScorer(aidetect.DefaultConfig(), zeroNoise{}, sink)
	return NewRouter(scorer, sink, opts), sink
}

func postJSON(t *testing.T, h http.Handler, body string) (*httptest.ResponseRecorder, AnalyzeResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var resp AnalyzeResponse
	if rec.Code == http.StatusOK {
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return rec, resp
}

func TestAnalyzeReturnsResult(t *testing.T) {
	h, sink := newTestRouter(Options{})
	rec, resp := postJSON(t, h, `{"text":"Cat."}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if resp.Status != "ok" || resp.Result == nil {
		t.Fatalf("expected ok result, got %+v", resp)
	}
	if resp.Result.Score != 70 || resp.Result.Label != aidetect.LabelAI || len(resp.Result.Explanation) != 3 {
		t.Fatalf("unexpected result: %+v", resp.Result)
	}
	if resp.ID == "" || rec.Header().Get("X-Request-ID") != resp.ID {
		t.Fatalf("expected request id in body and header, got %q / %q", resp.ID, rec.Header().Get("X-Request-ID"))
	}

	joined := strings.Join(sink.lines, "\n")
	if !strings.Contains(joined, "AI detection run completed") || !strings.Contains(joined, "POST /api/analyze") {
		t.Fatalf("expected analysis and access log lines, got:\n%s", joined)
	}
}

func TestAnalyzeEmptyInputWarns(t *testing.T) {
	h, _ := newTestRouter(Options{})
	for _, body := range []string{`{"text":""}`, `{"text":"   \n "}`, `{}`, ``} {
		rec, resp := postJSON(t, h, body)
		if rec.Code != http.StatusOK {
			t.Fatalf("body %q: expected 200, got %d", body, rec.Code)
		}
		if resp.Status != "empty" || resp.Warning != emptyWarning || resp.Result != nil {
			t.Fatalf("body %q: expected empty warning, got %+v", body, resp)
		}
	}
}

func TestAnalyzeMalformedJSON(t *testing.T) {
	h, _ := newTestRouter(Options{})
	rec, _ := postJSON(t, h, `{"text":`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAnalyzeBodyTooLarge(t *testing.T) {
	h, _ := newTestRouter(Options{MaxBodyBytes: 64})
	body, _ := json.Marshal(map[string]string{"text": strings.Repeat("word ", 100)})
	rec, _ := postJSON(t, h, string(body))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rec.Code)
	}
}

func TestAnalyzeFileUpload(t *testing.T) {
	h, _ := newTestRouter(Options{})
	req := multipartRequest(t, "essay.txt", []byte("Cat."))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp AnalyzeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Source != "essay.txt" || resp.Result == nil || resp.Result.Score != 70 {
		t.Fatalf("unexpected upload response: %+v", resp)
	}
}

func TestAnalyzeFileUnsupported(t *testing.T) {
	h, _ := newTestRouter(Options{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, multipartRequest(t, "tool.exe", []byte("MZ")))
	if rec.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected 415, got %d", rec.Code)
	}
}

func TestAnalyzeFileMissingField(t *testing.T) {
	h, _ := newTestRouter(Options{})
	var b bytes.Buffer
	mw := multipart.NewWriter(&b)
	if err := mw.WriteField("note", "no file here"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/api/analyze/file", &b)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAnalyzeHonoursDelayAndCancellation(t *testing.T) {
	h, _ := newTestRouter(Options{Delay: 50 * time.Millisecond})
	start := time.Now()
	rec, _ := postJSON(t, h, `{"text":"Cat."}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if time.Since(start) < 50*time.Millisecond {
		t.Fatal("expected the configured delay before responding")
	}

	h, _ = newTestRouter(Options{Delay: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(`{"text":"Cat."}`)).WithContext(ctx)
	rec = httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		h.ServeHTTP(rec, req)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("cancelled request did not return")
	}
	if rec.Body.Len() != 0 {
		t.Fatalf("expected no body for cancelled request, got %q", rec.Body.String())
	}
}

func TestIndexAndHealth(t *testing.T) {
	h, _ := newTestRouter(Options{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Analyze Text") {
		t.Fatalf("expected index page, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("unexpected health response: %d %q", rec.Code, rec.Body.String())
	}
}

func TestLogsExport(t *testing.T) {
	h, _ := newTestRouter(Options{})
	postJSON(t, h, `{"text":"Cat."}`)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/logs.zip", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/zip" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if _, err := zip.NewReader(bytes.NewReader(rec.Body.Bytes()), int64(rec.Body.Len())); err != nil {
		t.Fatalf("expected valid zip: %v", err)
	}
}

// brokenSink writes a partial archive before failing.
type brokenSink struct{ memSink }

func (b *brokenSink) ExportZip(w io.Writer) error {
	w.Write([]byte("PK\x03\x04partial"))
	return errors.New("disk read failed")
}

func TestLogsExportFailureSendsCleanError(t *testing.T) {
	sink := &brokenSink{}
	h := NewRouter(aidetect.NewScorer(aidetect.DefaultConfig(), zeroNoise{}, nil), sink, Options{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/logs.zip", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct == "application/zip" {
		t.Fatal("expected error response, not a zip")
	}
	if rec.Header().Get("Content-Disposition") != "" {
		t.Fatal("expected no attachment header on failure")
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("expected JSON error body, got %q: %v", rec.Body.String(), err)
	}
	if !strings.Contains(body["error"], "disk read failed") {
		t.Fatalf("unexpected error body: %v", body)
	}
}

func TestCORSPreflight(t *testing.T) {
	h, _ := newTestRouter(Options{AllowedOrigins: []string{"http://localhost:*"}})
	req := httptest.NewRequest(http.MethodOptions, "/api/analyze", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("expected origin to be allowed, got %q", got)
	}
}

type panicScorer struct{}

func (panicScorer) Analyze(string) aidetect.Outcome { panic(errors.New("boom")) }

func TestPanicRecovered(t *testing.T) {
	h := NewRouter(panicScorer{}, nil, Options{})
	rec, _ := postJSON(t, h, `{"text":"Cat."}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func multipartRequest(t *testing.T, name string, content []byte) *http.Request {
	t.Helper()
	var b bytes.Buffer
	mw := multipart.NewWriter(&b)
	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/analyze/file", &b)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}
