package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"grocery-planner/internal/auth"
	"grocery-planner/internal/grocery"
	"grocery-planner/internal/logger"
	"grocery-planner/internal/notify"
	"grocery-planner/internal/session"
)

// Deps are the collaborators of the HTTP API.
type Deps struct {
	Service        *grocery.Service
	Gateway        *auth.Gateway
	Sessions       *session.Manager
	Sender         notify.Sender
	Logger         logger.Logger
	DataDir        string
	Recommendation int
	SecureCookies  bool
}

// Server serves the JSON API.
type Server struct {
	svc           *grocery.Service
	gateway       *auth.Gateway
	sessions      *session.Manager
	sender        notify.Sender
	log           logger.Logger
	dataDir       string
	recommendN    int
	secureCookies bool
}

// NewServer creates a Server. A nil Sender disables sharing.
func NewServer(d Deps) *Server {
	s := &Server{
		svc:           d.Service,
		gateway:       d.Gateway,
		sessions:      d.Sessions,
		sender:        d.Sender,
		log:           d.Logger,
		dataDir:       d.DataDir,
		recommendN:    d.Recommendation,
		secureCookies: d.SecureCookies,
	}
	if s.sender == nil {
		s.sender = notify.Disabled{}
	}
	if s.log == nil {
		s.log = logger.NewNop()
	}
	if s.recommendN <= 0 {
		s.recommendN = 5
	}
	return s
}

// Router builds the chi router with every route registered.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", s.MakeHandler(s.handleHealth))

	r.Group(func(r chi.Router) {
		r.Use(s.withSession)

		r.Route("/auth", func(r chi.Router) {
			r.Get("/login", s.MakeHandler(s.handleLogin))
			r.Get("/callback", s.MakeHandler(s.handleCallback))
			r.Post("/logout", s.MakeHandler(s.handleLogout))
		})

		r.Route("/api", func(r chi.Router) {
			r.Use(s.RequireAuth)

			r.Get("/me", s.MakeHandler(s.handleMe))
			r.Get("/units", s.MakeHandler(s.handleUnits))
			r.Get("/categories", s.MakeHandler(s.handleCategories))
			r.Get("/recommendations", s.MakeHandler(s.handleRecommendations))

			r.Route("/products", func(r chi.Router) {
				r.Get("/", s.MakeHandler(s.handleListProducts))
				r.Post("/", s.MakeHandler(s.handleAddProduct))
				r.Delete("/", s.MakeHandler(s.handleClearProducts))
				r.Post("/bulk-delete", s.MakeHandler(s.handleBulkDeleteProducts))
				r.Put("/{name}", s.MakeHandler(s.handleUpdateProduct))
				r.Delete("/{name}", s.MakeHandler(s.handleDeleteProduct))
			})

			r.Route("/selection", func(r chi.Router) {
				r.Get("/", s.MakeHandler(s.handleGetSelection))
				r.Post("/", s.MakeHandler(s.handleSelect))
				r.Delete("/", s.MakeHandler(s.handleClearSelection))
				r.Post("/reconcile", s.MakeHandler(s.handleReconcile))
				r.Post("/commit", s.MakeHandler(s.handleCommit))
				r.Get("/export", s.MakeHandler(s.handleExportSelection))
				r.Put("/{name}", s.MakeHandler(s.handleSetQuantity))
				r.Delete("/{name}", s.MakeHandler(s.handleDeselect))
			})

			r.Route("/history", func(r chi.Router) {
				r.Get("/", s.MakeHandler(s.handleListHistory))
				r.Route("/{key}", func(r chi.Router) {
					r.Get("/", s.MakeHandler(s.handleGetHistory))
					r.Delete("/", s.MakeHandler(s.handleDeleteHistory))
					r.Post("/reuse", s.MakeHandler(s.handleReuseHistory))
					r.Get("/export", s.MakeHandler(s.handleExportHistory))
					r.Post("/share", s.MakeHandler(s.handleShareHistory))
				})
			})
		})
	})

	return r
}
