// Package server exposes the catalog reader as a read-only JSON HTTP API.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/koustreak/pgmeta/internal/catalog"
	"github.com/koustreak/pgmeta/internal/config"
	"github.com/koustreak/pgmeta/internal/logger"
)

// Catalog is the read surface the API serves. *catalog.Reader satisfies it.
type Catalog interface {
	Ping(ctx context.Context) error
	Databases(ctx context.Context) ([]catalog.Database, error)
	Relations(ctx context.Context) ([]catalog.Relation, error)
	Describe(ctx context.Context, id catalog.OID) (*catalog.Relation, error)
	Attributes(ctx context.Context, id catalog.OID) ([]catalog.Attribute, error)
	Constraints(ctx context.Context, id catalog.OID) ([]catalog.Constraint, error)
	Count(ctx context.Context, table string) (int64, error)
}

var _ Catalog = (*catalog.Reader)(nil)

// Server routes HTTP requests to a Catalog.
type Server struct {
	cat    Catalog
	cfg    config.ServerConfig
	log    *logger.Logger
	router chi.Router
}

// New builds the router. A nil log discards.
func New(cat Catalog, cfg config.ServerConfig, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	s := &Server{cat: cat, cfg: cfg, log: log}
	s.router = s.routes()
	return s
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(requestTimeout(s.cfg.RequestTimeout))

		r.Get("/databases", s.handleDatabases)
		r.Route("/relations", func(r chi.Router) {
			r.Get("/", s.handleRelations)
			r.Get("/{relid}", s.handleRelation)
			r.Get("/{relid}/attributes", s.handleAttributes)
			r.Get("/{relid}/constraints", s.handleConstraints)
		})
		r.Get("/count/{table}", s.handleCount)
		r.Get("/regtypes", s.handleRegTypes)
		r.Get("/regtypes/{oid}", s.handleRegType)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "no route for " + r.URL.Path, Kind: "not_found"})
	})
	return r
}

// ListenAndServe serves on cfg.Addr until ctx is done, then drains
// in-flight requests for at most cfg.ShutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.With().Str("addr", s.cfg.Addr).Logger().Info("http api listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
	defer cancel()
	s.log.Info("http api shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(s.log.WithContext(r.Context())))
		s.log.Request(r.Method, r.URL.Path, ww.Status(), time.Since(start))
	})
}

func requestTimeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if d <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
