// Package server exposes uploads over HTTP as a multipart form action.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/forestrie/r2put/tracing"
	"github.com/forestrie/r2put/upload"
)

// DefaultMaxUploadBytes caps the size of one uploaded file.
const DefaultMaxUploadBytes = 32 << 20

// Form field names of the upload action.
const (
	FieldFile     = "webp"
	FieldBucket   = "bucket"
	FieldFilename = "filename"
)

// Uploader stores one object. *upload.Uploader implements it.
type Uploader interface {
	Upload(ctx context.Context, obj upload.Object) (*upload.Result, error)
}

// Options configures a Server.
type Options struct {
	Uploader Uploader
	// ResolveBucket maps the submitted bucket alias to a bucket name.
	ResolveBucket  func(alias string) (string, error)
	ContentType    string
	MaxUploadBytes int64
	Logger         logrus.FieldLogger
	// Registry receives the HTTP metrics and is served on /metrics. A fresh
	// registry is used when nil.
	Registry *prometheus.Registry
}

// Server serves POST /upload, /healthz and /metrics.
type Server struct {
	opts    Options
	log     logrus.FieldLogger
	metrics *httpMetrics
	handler http.Handler
}

// UploadResponse is the JSON body of a successful upload.
type UploadResponse struct {
	Success  bool   `json:"success"`
	Filename string `json:"filename"`
	Bucket   string `json:"bucket"`
	Size     int    `json:"size"`
	URL      string `json:"url"`
}

// ErrorResponse is the JSON body of a failed upload.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Kind    string `json:"kind,omitempty"`
	Hint    string `json:"hint,omitempty"`
}

// New creates a Server.
func New(opts Options) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if opts.ContentType == "" {
		opts.ContentType = upload.DefaultContentType
	}
	if opts.ResolveBucket == nil {
		opts.ResolveBucket = func(alias string) (string, error) {
			if alias == "" {
				return "", fmt.Errorf("%w: bucket is required", upload.ErrConfiguration)
			}
			return alias, nil
		}
	}
	if opts.Registry == nil {
		opts.Registry = prometheus.NewRegistry()
	}
	log := opts.Logger
	if log == nil {
		discard := logrus.New()
		discard.Out = io.Discard
		log = discard
	}

	s := &Server{
		opts:    opts,
		log:     log.WithField("component", "server"),
		metrics: newHTTPMetrics(opts.Registry),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/upload", s.handleUpload)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "ok")
	})
	mux.Handle("/metrics", promhttp.HandlerFor(opts.Registry, promhttp.HandlerOpts{}))

	s.handler = tracing.Middleware(s.metrics.middleware(mux))
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		s.writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(s.opts.MaxUploadBytes); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid form: %w", err))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile(FieldFile)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, errors.New("no file selected"))
		return
	}
	defer func() { _ = file.Close() }()

	body, err := io.ReadAll(io.LimitReader(file, s.opts.MaxUploadBytes+1))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("read file: %w", err))
		return
	}
	if int64(len(body)) > s.opts.MaxUploadBytes {
		s.writeError(w, http.StatusRequestEntityTooLarge, fmt.Errorf("file exceeds %d bytes", s.opts.MaxUploadBytes))
		return
	}

	filename := r.FormValue(FieldFilename)
	if filename == "" {
		filename = header.Filename
	}
	alias := r.FormValue(FieldBucket)

	log := s.log.WithFields(logrus.Fields{
		"filename": filename,
		"size":     len(body),
		"alias":    alias,
	})
	log.Info("upload requested")

	bucket, err := s.opts.ResolveBucket(alias)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	log = log.WithField("bucket", bucket)

	res, err := s.opts.Uploader.Upload(r.Context(), upload.Object{
		Bucket:      bucket,
		Key:         filename,
		ContentType: s.opts.ContentType,
		Body:        body,
	})
	if err != nil {
		log.WithError(err).Warn("upload failed")
		s.writeError(w, statusFor(err), err)
		return
	}

	writeJSON(w, http.StatusOK, UploadResponse{
		Success:  true,
		Filename: filename,
		Bucket:   res.Bucket,
		Size:     res.Size,
		URL:      res.URL,
	})
}

// statusFor maps an upload error kind to the status returned to the client.
func statusFor(err error) int {
	switch {
	case errors.Is(err, upload.ErrConfiguration):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, upload.ErrTransport),
		errors.Is(err, upload.ErrAuthenticationRejected),
		errors.Is(err, upload.ErrStorage):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	resp := ErrorResponse{Error: err.Error()}
	var uerr *upload.Error
	if errors.As(err, &uerr) {
		resp.Kind = uerr.Kind.Error()
		resp.Hint = uerr.Hint()
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
