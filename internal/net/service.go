package net

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"InkNote/internal/diag"
	"InkNote/internal/recognize"
)

// RecognizePath is where the service accepts images.
const RecognizePath = "/api/recognize"

const maxImageBytes = 10 << 20

// Service exposes a recognition engine over HTTP. The body of a POST is the
// raw image; the answer is {"text": ...} or, with status 500, {"error": ...}.
type Service struct {
	engine recognize.Recognizer
	name   string
	log    *slog.Logger
}

func NewService(name string, engine recognize.Recognizer, log *slog.Logger) *Service {
	return &Service{engine: engine, name: name, log: diag.Component(log, "service")}
}

// Handler routes the recognize and health endpoints.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(RecognizePath, s.recognize)
	mux.HandleFunc("/healthz", s.health)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Service) recognize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "POST an image"})
		return
	}
	img, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImageBytes))
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "image too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "read body: " + err.Error()})
		return
	}
	if len(img) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "empty body"})
		return
	}

	start := time.Now()
	text, err := s.engine.Recognize(r.Context(), img)
	if err != nil {
		s.log.Error("recognize failed", "engine", s.name, "code", string(diag.Classify(err)), "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	s.log.Info("recognized", "engine", s.name, "bytes", len(img), "chars", len(text), "took", time.Since(start))
	writeJSON(w, http.StatusOK, map[string]string{"text": text})
}

func (s *Service) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "engine": s.name})
}

// Serve answers requests on l until ctx ends, then shuts down gracefully.
func (s *Service) Serve(ctx context.Context, l net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(l) }()
	s.log.Info("listening", "addr", l.Addr().String(), "engine", s.name)

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

// ListenAndServe listens on addr and serves until ctx ends. ready, if not
// nil, receives the bound port once listening.
func (s *Service) ListenAndServe(ctx context.Context, addr string, ready func(port int)) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	if ready != nil {
		if tcp, ok := l.Addr().(*net.TCPAddr); ok {
			ready(tcp.Port)
		}
	}
	return s.Serve(ctx, l)
}
