// Package server exposes the studio service over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"Vedit/core/studio"
)

// Options configure the HTTP surface.
type Options struct {
	Addr            string
	WebAppDir       string
	Development     bool
	MaxChunkMemory  int64
	ShutdownTimeout time.Duration
}

type Server struct {
	svc    *studio.Service
	opts   Options
	log    *zap.Logger
	router *mux.Router
}

func New(svc *studio.Service, opts Options, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.MaxChunkMemory <= 0 {
		opts.MaxChunkMemory = 32 << 20
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 5 * time.Second
	}
	s := &Server{svc: svc, opts: opts, log: log.Named("http"), router: mux.NewRouter()}
	s.routes()
	return s
}

// Handler wraps the router in CORS handling so preflights reach it even
// when no route accepts OPTIONS.
func (s *Server) Handler() http.Handler {
	return corsMiddleware(s.router)
}

func (s *Server) routes() {
	r := s.router
	r.Use(s.logMiddleware)

	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api/projects").Subrouter()
	api.HandleFunc("", s.listProjects).Methods(http.MethodGet)
	api.HandleFunc("", s.createProject).Methods(http.MethodPost)
	api.HandleFunc("/{id}", s.getProject).Methods(http.MethodGet)
	api.HandleFunc("/{id}", s.deleteProject).Methods(http.MethodDelete)

	api.HandleFunc("/{id}/upload", s.testChunk).Methods(http.MethodGet)
	api.HandleFunc("/{id}/upload", s.uploadChunk).Methods(http.MethodPost)
	api.HandleFunc("/{id}/metadata", s.getMetadata).Methods(http.MethodGet)
	api.HandleFunc("/{id}/video", s.deleteVideo).Methods(http.MethodDelete)

	api.HandleFunc("/{id}/timeline", s.getTimeline).Methods(http.MethodGet)
	api.HandleFunc("/{id}/timeline", s.saveTimeline).Methods(http.MethodPut)
	api.HandleFunc("/{id}/tracks", s.listTracks).Methods(http.MethodGet)
	api.HandleFunc("/{id}/tracks/{trackId}", s.putTrack).Methods(http.MethodPut)
	api.HandleFunc("/{id}/tracks/{trackId}", s.deleteTrack).Methods(http.MethodDelete)

	api.HandleFunc("/{id}/library", s.listLibrary).Methods(http.MethodGet)
	api.HandleFunc("/{id}/library", s.uploadLibraryFile).Methods(http.MethodPost)
	api.HandleFunc("/{id}/library/{name}", s.getLibraryFile).Methods(http.MethodGet, http.MethodHead)
	api.HandleFunc("/{id}/library/{name}", s.deleteLibraryFile).Methods(http.MethodDelete)
	api.HandleFunc("/{id}/stretch", s.stretch).Methods(http.MethodPost)
	api.HandleFunc("/{id}/stretch/{output}", s.stretchStatus).Methods(http.MethodGet)

	api.HandleFunc("/{id}/export", s.export).Methods(http.MethodPost)
	api.HandleFunc("/{id}/export", s.exportStatus).Methods(http.MethodGet)

	api.HandleFunc("/{id}/video", s.streamResource(studio.ResourceVideo, CacheImmutable)).Methods(http.MethodGet, http.MethodHead)
	api.HandleFunc("/{id}/audio", s.streamResource(studio.ResourceAudio, CacheImmutable)).Methods(http.MethodGet, http.MethodHead)
	api.HandleFunc("/{id}/source", s.streamResource(studio.ResourceSource, CacheImmutable)).Methods(http.MethodGet, http.MethodHead)
	api.HandleFunc("/{id}/published", s.streamResource(studio.ResourcePublished, CacheVolatile)).Methods(http.MethodGet, http.MethodHead)
	api.HandleFunc("/{id}/thumbnails/{file}", s.thumbnail).Methods(http.MethodGet, http.MethodHead)
	api.HandleFunc("/{id}/thumbnails/{scale}/{file}", s.thumbnail).Methods(http.MethodGet, http.MethodHead)
	api.HandleFunc("/{id}/frame", s.frame).Methods(http.MethodGet)

	if s.opts.WebAppDir != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(s.opts.WebAppDir)))
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, HEAD")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Range, If-None-Match")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Length, Content-Range, ETag")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("took", time.Since(start)))
	})
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
// and waits for background jobs within the shutdown timeout.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server starting", zap.String("addr", s.opts.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	done := make(chan struct{})
	go func() {
		s.svc.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		s.log.Warn("background jobs still running at shutdown")
	}
	s.log.Info("server stopped")
	return nil
}
