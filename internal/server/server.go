package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/haasonsaas/atelier/internal/agent"
	"github.com/haasonsaas/atelier/internal/history"
)

// imagesBasePath is the URL prefix generated and uploaded images are
// served under.
const imagesBasePath = "/storage/images"

// Config holds the server wiring.
type Config struct {
	Host       string
	Port       int
	StorageDir string
	Runner     StreamRunner
	Store      history.Store
	Metrics    *agent.Metrics
	Logger     *slog.Logger
}

// Server is the HTTP front end: the streaming chat endpoint, canvas
// CRUD, image upload, and static storage serving.
type Server struct {
	addr      string
	runner    StreamRunner
	driver    *agent.Driver
	store     history.Store
	metrics   *agent.Metrics
	imagesDir string
	logger    *slog.Logger

	httpServer *http.Server
}

// New creates the server. The listener is not opened until Start.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "server")

	s := &Server{
		addr:      fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		runner:    cfg.Runner,
		driver:    agent.NewDriver(logger),
		store:     cfg.Store,
		metrics:   cfg.Metrics,
		imagesDir: filepath.Join(cfg.StorageDir, "images"),
		logger:    logger,
	}
	return s
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("GET /api/canvases", s.handleListCanvases)
	mux.HandleFunc("POST /api/canvases", s.handleSaveCanvas)
	mux.HandleFunc("DELETE /api/canvases/{id}", s.handleDeleteCanvas)
	mux.HandleFunc("POST /api/upload-image", s.handleUpload)

	mux.Handle(imagesBasePath+"/", http.StripPrefix(imagesBasePath+"/",
		http.FileServer(http.Dir(s.imagesDir))))

	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", s.handleHealthz)

	return corsMiddleware(loggingMiddleware(s.logger)(mux))
}

// Start opens the listener and serves until the context is cancelled,
// then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
		// No WriteTimeout: chat responses are long-lived SSE streams.
		ReadHeaderTimeout: 5 * time.Second,
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("http listen: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	s.logger.Info("starting http server", "addr", s.addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("http server shutdown error", "error", err)
		}
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
