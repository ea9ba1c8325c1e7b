// Package server is the HTTP API: account auth, the per-user document
// endpoints with ETag concurrency, migration, export, and catalog browsing.
package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/claude/gymtrack/internal/catalog"
	"github.com/claude/gymtrack/internal/storage"
)

// Store is the persistence surface the handlers need. *storage.DB
// implements it; tests swap in an in-memory fake.
type Store interface {
	CreateUser(ctx context.Context, name string) (storage.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (storage.User, error)
	GetDocument(ctx context.Context, userID uuid.UUID, docType string) ([]byte, string, error)
	PutDocument(ctx context.Context, userID uuid.UUID, docType string, body []byte, ifMatch string) (string, error)
	MutateDocument(ctx context.Context, userID uuid.UUID, docType string, fn func(body []byte) ([]byte, error)) (string, error)
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	store  Store
	cat    *catalog.Catalog
	secret []byte
	log    *slog.Logger
	router chi.Router
}

// New creates a new Server with all routes configured. secret signs the
// bearer tokens issued by register and login.
func New(store Store, cat *catalog.Catalog, secret []byte, log *slog.Logger) *Server {
	s := &Server{
		store:  store,
		cat:    cat,
		secret: secret,
		log:    log,
		router: chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	s.router.Get("/api/v1/health", s.handleHealth)

	s.router.Post("/api/v1/auth/register", s.handleRegister)
	s.router.Post("/api/v1/auth/login", s.handleLogin)

	// Catalog browsing needs no account.
	s.router.Get("/api/v1/equipment", s.handleListEquipment)
	s.router.Get("/api/v1/equipment/{id}/substitutes", s.handleSubstitutes)

	// Per-user documents (bearer token required)
	s.router.Group(func(r chi.Router) {
		r.Use(BearerAuth(s.secret))

		r.Get("/api/v1/settings", s.handleGetSettings)
		r.Put("/api/v1/settings", s.handlePutSettings)
		r.Get("/api/v1/workoutlogs", s.handleGetWorkoutLog)
		r.Put("/api/v1/workoutlogs", s.handlePutWorkoutLog)

		r.Post("/api/v1/workouts", s.handlePostWorkout)
		r.Put("/api/v1/workouts/{id}", s.handlePutWorkout)
		r.Delete("/api/v1/workouts/{id}", s.handleDeleteWorkout)

		r.Post("/api/v1/migrate", s.handleMigrate)
		r.Get("/api/v1/export", s.handleExport)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
