// Package api serves the CRM over JSON HTTP.
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	"github.com/sells-group/crm-cli/internal/actor"
	"github.com/sells-group/crm-cli/internal/crm"
	"github.com/sells-group/crm-cli/internal/store"
)

// UserHeader carries the id of the acting user.
const UserHeader = "X-User-ID"

const defaultMaxUpload = 32 << 20

// Options configures the router.
type Options struct {
	AllowedOrigins []string
	// RateLimit is requests per second across all clients; zero disables
	// limiting.
	RateLimit float64
	RateBurst int
	// DefaultActor is used when a request carries no user header.
	DefaultActor   string
	MaxUploadBytes int64
}

// Server holds the handler dependencies.
type Server struct {
	svc   *crm.Service
	store store.Store
	opts  Options
}

// NewRouter builds the HTTP handler for svc.
func NewRouter(svc *crm.Service, opts Options) http.Handler {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUpload
	}
	s := &Server{svc: svc, store: svc.Store(), opts: opts}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", UserHeader},
		MaxAge:         300,
	}))
	if opts.RateLimit > 0 {
		r.Use(rateLimit(rate.NewLimiter(rate.Limit(opts.RateLimit), max(opts.RateBurst, 1))))
	}
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", s.health)

	r.Group(func(r chi.Router) {
		r.Use(s.withActor)

		r.Route("/leads", func(r chi.Router) {
			r.Get("/", s.listLeads)
			r.Post("/", s.createLead)
			r.Post("/import", s.importLeads)
			r.Get("/{id}", s.getLead)
			r.Patch("/{id}", s.updateLead)
			r.Delete("/{id}", s.deleteLead)
			r.Post("/{id}/convert", s.convertLead)
		})
		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", s.listAccounts)
			r.Post("/", s.createAccount)
			r.Get("/{id}", s.getAccount)
			r.Put("/{id}", s.updateAccount)
			r.Delete("/{id}", s.deleteAccount)
		})
		r.Route("/contacts", func(r chi.Router) {
			r.Get("/", s.listContacts)
			r.Post("/", s.createContact)
			r.Get("/{id}", s.getContact)
			r.Delete("/{id}", s.deleteContact)
		})
		r.Route("/opportunities", func(r chi.Router) {
			r.Get("/", s.listOpportunities)
			r.Post("/", s.createOpportunity)
			r.Get("/{id}", s.getOpportunity)
			r.Put("/{id}", s.updateOpportunity)
			r.Delete("/{id}", s.deleteOpportunity)
			r.Post("/{id}/stage", s.changeStage)
		})
		r.Get("/pipelines/default", s.getPipeline)
		r.Put("/pipelines/default", s.savePipeline)
		r.Get("/activities", s.listActivities)
		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", s.listTasks)
			r.Post("/", s.createTask)
			r.Post("/{id}/complete", s.completeTask)
			r.Delete("/{id}", s.deleteTask)
		})
		r.Route("/notes", func(r chi.Router) {
			r.Get("/", s.listNotes)
			r.Post("/", s.createNote)
			r.Delete("/{id}", s.deleteNote)
		})
		r.Route("/projects", func(r chi.Router) {
			r.Get("/", s.listProjects)
			r.Post("/", s.createProject)
			r.Delete("/{id}", s.deleteProject)
		})
		r.Get("/dashboard", s.dashboard)
	})

	return r
}

// withActor resolves the acting user from the request header, falling
// back to the configured default.
func (s *Server) withActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(UserHeader))
		if id == "" {
			id = s.opts.DefaultActor
		}
		if id == "" {
			writeError(w, r, actor.ErrNoActor)
			return
		}
		next.ServeHTTP(w, r.WithContext(actor.WithActor(r.Context(), id)))
	})
}

func rateLimit(l *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow() {
				writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "rate limit exceeded"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
