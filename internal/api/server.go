package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dshills/regtree/internal/assembler"
	"github.com/dshills/regtree/internal/searcher"
	"github.com/dshills/regtree/internal/storage"
)

// Server is the read-only HTTP API over the regulation store.
type Server struct {
	router    chi.Router
	store     storage.Storage
	searcher  *searcher.Searcher
	assembler *assembler.Assembler
	log       *slog.Logger
}

// NewServer creates and configures the HTTP server.
func NewServer(store storage.Storage, srch *searcher.Searcher, log *slog.Logger) *Server {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	s := &Server{
		store:     store,
		searcher:  srch,
		assembler: assembler.New(store),
		log:       log,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/regulations", s.handleListRegulations)
		r.Get("/regulations/{title}", s.handleGetRegulation)
		r.Get("/entries/{entryID}", s.handleGetEntry)
		r.Get("/entries/{entryID}/context", s.handleEntryContext)
		r.Get("/hierarchy/{entryID}", s.handleHierarchy)
		r.Get("/search", s.handleSearch)
	})

	s.router = r
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", "addr", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.log.Info("shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
