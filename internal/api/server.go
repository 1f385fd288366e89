// Package api exposes the game engine and the question library over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/uberfrank/bierephilo/internal/game"
	"github.com/uberfrank/bierephilo/internal/i18n"
	"github.com/uberfrank/bierephilo/internal/questionbank"
	"github.com/uberfrank/bierephilo/internal/session"
)

// Options tunes the router.
type Options struct {
	AllowedOrigins  []string
	RequestTimeout  time.Duration
	DefaultLanguage string
	// Languages are the codes a session may be created with.
	Languages []string
	// RateLimiter is optional.
	RateLimiter *RateLimiter
}

// Server wires the handlers to their collaborators.
type Server struct {
	library  *questionbank.Library
	bundle   *i18n.Bundle
	sessions *session.Manager
	engine   *game.Engine
	opts     Options
}

// NewServer builds a server. Unset options get working defaults.
func NewServer(library *questionbank.Library, bundle *i18n.Bundle, sessions *session.Manager, engine *game.Engine, opts Options) *Server {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 15 * time.Second
	}
	if len(opts.Languages) == 0 {
		opts.Languages = library.Languages()
	}
	if opts.DefaultLanguage == "" && len(opts.Languages) > 0 {
		opts.DefaultLanguage = opts.Languages[0]
	}
	if bundle == nil {
		bundle = i18n.NewBundle(opts.DefaultLanguage)
	}
	return &Server{library: library, bundle: bundle, sessions: sessions, engine: engine, opts: opts}
}

// Router returns the HTTP handler for the whole service.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(securityHeaders)
	if s.opts.RateLimiter != nil {
		r.Use(s.opts.RateLimiter.Middleware)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("ok")) })

	timeout := middleware.Timeout(s.opts.RequestTimeout)
	library := &LibraryHandler{server: s}
	sessions := &SessionHandler{server: s}

	r.Route("/api", func(r chi.Router) {
		r.With(timeout).Get("/languages", library.languages)
		sessions.RegisterRoutes(r, timeout)
		r.Group(func(r chi.Router) {
			r.Use(timeout)
			library.RegisterRoutes(r)
		})
	})
	return r
}

func (s *Server) catalog(lang string) *i18n.Catalog {
	return s.bundle.Catalog(lang)
}

// bank returns lang's bank or nil. The engine treats nil as an empty repository.
func (s *Server) bank(lang string) *questionbank.Bank {
	b, _ := s.library.Bank(lang)
	return b
}

func (s *Server) supportsLanguage(lang string) bool {
	for _, l := range s.opts.Languages {
		if l == lang {
			return true
		}
	}
	return false
}
