package server

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/membergate/membergate/internal/cache"
	"github.com/membergate/membergate/internal/handler"
	"github.com/membergate/membergate/internal/ratelimit"
	"github.com/membergate/membergate/internal/server/middleware"
	"github.com/membergate/membergate/internal/service"
	"github.com/membergate/membergate/internal/store"
	"github.com/membergate/membergate/internal/ui"
)

// Config holds the HTTP server configuration.
type Config struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	SecureCookies   bool
}

// DefaultConfig returns a Config with sensible production defaults.
func DefaultConfig() Config {
	return Config{
		Host:            "0.0.0.0",
		Port:            8080,
		ShutdownTimeout: 30 * time.Second,
		CORSOrigins:     []string{"http://localhost:3000"},
		SecureCookies:   true,
	}
}

// Server is the top-level HTTP server. It owns the Chi router, the store,
// the auth service, the rate limiter, and the response cache.
type Server struct {
	cfg        Config
	router     chi.Router
	store      *store.Store
	authSvc    *service.AuthService
	limiter    ratelimit.Checker
	cache      cache.Cache
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a new Server, wires up all routes and middleware, and returns
// it ready to listen. Call ListenAndServe to start accepting connections.
func New(cfg Config, st *store.Store, authSvc *service.AuthService, limiter ratelimit.Checker, c cache.Cache, logger *slog.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		store:   st,
		authSvc: authSvc,
		limiter: limiter,
		cache:   c,
		logger:  logger,
	}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// --- Global middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Request-ID", "Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(chimw.Compress(5))

	// --- Health checks (no auth required) ---
	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)

	authHandler := handler.NewAuthHandler(s.authSvc, s.cfg.SecureCookies)
	adminsHandler := handler.NewAdminsHandler(s.store)
	categoriesHandler := handler.NewCategoriesHandler(s.store, s.cache)
	contentsHandler := handler.NewContentsHandler(s.store, s.cache)
	passphrasesHandler := handler.NewPassphrasesHandler(s.store)

	// --- Auth endpoints, tightly rate limited ---
	r.Route("/api/auth", func(r chi.Router) {
		r.Use(middleware.RateLimit(s.limiter, ratelimit.AuthPolicy))

		r.Post("/passphrase", authHandler.PassphraseLogin)
		r.Get("/check", authHandler.Check)
		r.Post("/logout", authHandler.Logout)
		r.Post("/admin", authHandler.AdminLogin)
		r.Delete("/admin", authHandler.AdminLogout)
	})

	// --- API routes ---
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RateLimit(s.limiter, ratelimit.APIPolicy))

		// Member-facing APIs
		r.Group(func(r chi.Router) {
			r.Use(middleware.MemberAPI(s.authSvc))

			r.Get("/contents", contentsHandler.List)
			r.Get("/contents/{contentID}", contentsHandler.Get)
			r.Post("/contents/{contentID}/view", contentsHandler.IncrementView)
			r.Get("/categories", categoriesHandler.List)
		})

		// Admin APIs
		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.AdminAPI(s.authSvc))

			r.Get("/admins", adminsHandler.List)
			r.Post("/admins", adminsHandler.Create)
			r.Delete("/admins/{adminID}", adminsHandler.Delete)

			r.Get("/categories", categoriesHandler.List)
			r.Post("/categories", categoriesHandler.Create)
			r.Put("/categories/{categoryID}", categoriesHandler.Update)
			r.Patch("/categories/{categoryID}", categoriesHandler.Patch)
			r.Delete("/categories/{categoryID}", categoriesHandler.Delete)

			r.Get("/contents", contentsHandler.AdminList)
			r.Post("/contents", contentsHandler.AdminCreate)
			r.Get("/contents/{contentID}", contentsHandler.AdminGet)
			r.Put("/contents/{contentID}", contentsHandler.AdminUpdate)
			r.Delete("/contents/{contentID}", contentsHandler.AdminDelete)

			r.Get("/passphrase", passphrasesHandler.List)
			r.Post("/passphrase", passphrasesHandler.Create)
			r.Delete("/passphrase/{passphraseID}", passphrasesHandler.Delete)
		})
	})

	// --- Pages ---
	s.setupPages(r)

	s.router = r
}

// setupPages wires the embedded static pages. Public pages serve directly;
// member and admin pages sit behind the redirecting auth middleware.
func (s *Server) setupPages(r chi.Router) {
	staticFS, err := fs.Sub(ui.Static, "static")
	if err != nil {
		s.logger.Error("failed to create sub filesystem for pages", "error", err)
		return
	}

	page := func(name string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			f, err := staticFS.Open(name)
			if err != nil {
				http.Error(w, "Not found", http.StatusNotFound)
				return
			}
			defer f.Close()
			stat, _ := f.Stat()
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			http.ServeContent(w, r, name, stat.ModTime(), f.(io.ReadSeeker))
		}
	}

	// Public pages
	r.Get("/", page("index.html"))
	r.Get("/login", page("login.html"))
	r.Get("/admin/login", page("admin-login.html"))

	// Member pages
	r.Group(func(r chi.Router) {
		r.Use(middleware.MemberPage(s.authSvc, "/login"))
		r.Get("/dashboard", page("dashboard.html"))
		r.Get("/content/{contentID}", page("dashboard.html"))
	})

	// Admin pages. /admin/login is registered above and chi prefers the
	// static route over the wildcard.
	r.Group(func(r chi.Router) {
		r.Use(middleware.AdminPage(s.authSvc, "/admin/login"))
		r.Get("/admin", page("admin.html"))
		r.Get("/admin/*", page("admin.html"))
	})
}

// handleHealthz is a liveness probe. Returns 200 if the process is running.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// handleReadyz is a readiness probe. Returns 200 when the database is
// reachable, or 503 otherwise.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := s.store.Ping(r.Context()); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"degraded"}`))
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// ListenAndServe starts the HTTP server and blocks until a SIGINT or SIGTERM
// is received. It then performs a graceful shutdown, draining in-flight
// requests before closing the database.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server listen: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	s.store.Close()
	s.logger.Info("server stopped")
	return nil
}

// Router returns the underlying Chi router, useful for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ServeHTTP implements http.Handler, delegating to the router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
