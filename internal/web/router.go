package web

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"detectai/internal/aidetect"
	"detectai/internal/ingest"
)

//go:embed static/index.html
var indexHTML []byte

const emptyWarning = "Please enter some text."

var (
	errBadRequest = errors.New("bad request")
	errTooLarge   = errors.New("request body too large")
)

type Analyzer interface {
	Analyze(text string) aidetect.Outcome
}

type LogSink interface {
	Log(level, stage, message, detail string)
	ExportZip(w io.Writer) error
}

type Options struct {
	// Delay is slept before every analysis response.
	Delay          time.Duration
	MaxBodyBytes   int64
	AllowedOrigins []string
}

type AnalyzeResponse struct {
	ID      string           `json:"id"`
	Status  string           `json:"status"`
	Warning string           `json:"warning,omitempty"`
	Source  string           `json:"source,omitempty"`
	Result  *aidetect.Result `json:"result,omitempty"`
}

type server struct {
	scorer Analyzer
	logs   LogSink
	opts   Options
}

func NewRouter(scorer Analyzer, logs LogSink, opts Options) http.Handler {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 4 << 20
	}
	s := &server{scorer: scorer, logs: logs, opts: opts}

	mux := chi.NewRouter()
	mux.Use(requestIDMiddleware)
	mux.Use(loggingMiddleware(logs))
	mux.Use(middleware.Recoverer)
	if len(opts.AllowedOrigins) > 0 {
		mux.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type"},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         300,
		}))
	}

	mux.Get("/", s.handleIndex)
	mux.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.Route("/api", func(rt chi.Router) {
		rt.Post("/analyze", s.wrap(s.handleAnalyze))
		rt.Post("/analyze/file", s.wrap(s.handleAnalyzeFile))
		rt.Get("/logs.zip", s.wrap(s.handleLogsExport))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (s *server) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, context.Canceled):
			// client went away during the delay
			return
		case errors.Is(err, errTooLarge), errors.As(err, &maxErr):
			writeError(w, http.StatusRequestEntityTooLarge, errTooLarge)
		case errors.Is(err, ingest.ErrUnsupported):
			writeError(w, http.StatusUnsupportedMediaType, err)
		case errors.Is(err, errBadRequest), errors.Is(err, http.ErrMissingFile):
			writeError(w, http.StatusBadRequest, err)
		default:
			if s.logs != nil {
				s.logs.Log("ERROR", "HTTP", "handler failed", fmt.Sprintf("id=%s path=%s err=%v", requestID(req.Context()), req.URL.Path, err))
			}
			writeError(w, http.StatusInternalServerError, err)
		}
	}
}

func (s *server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

// POST /api/analyze
// Body: {"text": "..."}
func (s *server) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	req.Body = http.MaxBytesReader(w, req.Body, s.opts.MaxBodyBytes)
	var body struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return errTooLarge
		}
		return fmt.Errorf("%w: decode body: %v", errBadRequest, err)
	}
	return s.respond(w, req, body.Text, "")
}

// POST /api/analyze/file
// Multipart form with a "file" field holding .txt, .md, .docx or .pdf.
func (s *server) handleAnalyzeFile(w http.ResponseWriter, req *http.Request) error {
	req.Body = http.MaxBytesReader(w, req.Body, s.opts.MaxBodyBytes)
	file, header, err := req.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return errTooLarge
		}
		if errors.Is(err, http.ErrMissingFile) {
			return err
		}
		return fmt.Errorf("%w: read form: %v", errBadRequest, err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return fmt.Errorf("read upload: %w", err)
	}
	parsed, err := ingest.Parse(header.Filename, raw)
	if err != nil {
		if errors.Is(err, ingest.ErrUnsupported) {
			return err
		}
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return s.respond(w, req, parsed.Text, header.Filename)
}

func (s *server) handleLogsExport(w http.ResponseWriter, _ *http.Request) error {
	if s.logs == nil {
		return fmt.Errorf("log archive unavailable")
	}
	var buf bytes.Buffer
	if err := s.logs.ExportZip(&buf); err != nil {
		return fmt.Errorf("export logs: %w", err)
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="detectai-logs.zip"`)
	_, err := w.Write(buf.Bytes())
	return err
}

func (s *server) respond(w http.ResponseWriter, req *http.Request, text, source string) error {
	if err := s.wait(req.Context()); err != nil {
		return err
	}

	resp := AnalyzeResponse{ID: requestID(req.Context()), Source: source}
	switch out := s.scorer.Analyze(text).(type) {
	case aidetect.Empty:
		resp.Status = "empty"
		resp.Warning = emptyWarning
	case aidetect.Result:
		resp.Status = "ok"
		resp.Result = &out
	default:
		return fmt.Errorf("unexpected analysis outcome %T", out)
	}
	writeJSON(w, http.StatusOK, resp)
	return nil
}

func (s *server) wait(ctx context.Context) error {
	if s.opts.Delay <= 0 {
		return nil
	}
	timer := time.NewTimer(s.opts.Delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
