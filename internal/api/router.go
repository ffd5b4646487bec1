package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/uniflow/uniflow/internal/ai"
	"github.com/uniflow/uniflow/internal/api/handlers"
	"github.com/uniflow/uniflow/internal/api/middleware"
	"github.com/uniflow/uniflow/internal/auth"
	"github.com/uniflow/uniflow/internal/database/models"
	"github.com/uniflow/uniflow/internal/orgs"
	"github.com/uniflow/uniflow/internal/proposals"
	"github.com/uniflow/uniflow/internal/tenders"
	"gorm.io/gorm"
)

// Generation endpoints call the model provider, so they carry a tighter
// per-user limit on top of the global per-IP one.
const (
	aiRequestsPerWindow = 30
	aiWindowSeconds     = 60
)

type Router struct {
	chi.Router
}

type RouterConfig struct {
	DB             *gorm.DB
	Redis          *redis.Client
	Logger         *slog.Logger
	JWTService     *auth.JWTService
	AuthService    *auth.Service
	Generator      ai.Generator  // nil runs the API in degraded mode
	AsynqClient    *asynq.Client // nil disables notification emails
	AllowedOrigins []string
	RateLimitReqs  int
	RateLimitSecs  int
}

func NewRouter(cfg RouterConfig) *Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))

	if cfg.RateLimitReqs > 0 {
		r.Use(middleware.RateLimit(cfg.RateLimitReqs, cfg.RateLimitSecs))
	}

	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Services
	proposalService := proposals.NewService(cfg.DB, cfg.Generator, cfg.AsynqClient, cfg.Logger)
	tenderService := tenders.NewService(cfg.DB, cfg.Generator, cfg.Logger)
	orgService := orgs.NewService(cfg.DB)

	// Handlers
	healthHandler := handlers.NewHealthHandler(cfg.DB, cfg.Redis, cfg.Generator != nil)
	authHandler := handlers.NewAuthHandler(cfg.AuthService)
	proposalHandler := handlers.NewProposalHandler(proposalService, cfg.AuthService)
	tenderHandler := handlers.NewTenderHandler(tenderService, cfg.AuthService)
	orgHandler := handlers.NewOrganizationHandler(orgService, cfg.AuthService)

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Public auth endpoints
	r.Post("/auth/register", authHandler.Register)
	r.Post("/auth/login", authHandler.Login)
	r.Post("/auth/logout", authHandler.Logout)

	// Protected API
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTService))

		r.Get("/me", authHandler.Me)
		r.Get("/my-revisions", proposalHandler.MyRevisions)

		r.Route("/proposals", func(r chi.Router) {
			r.Get("/", proposalHandler.List)
			r.Post("/", proposalHandler.Create)
			r.Get("/{id}", proposalHandler.Get)
			r.Patch("/{id}", proposalHandler.Rename)
			r.Delete("/{id}", proposalHandler.Delete)
			r.Post("/{id}/pin", proposalHandler.TogglePin)
			r.Get("/{id}/my-revision", proposalHandler.MyRevision)

			// Mutation flows need editor or above. The services re-check the
			// role so direct callers get the same answer.
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(models.RoleEditor))
				r.Use(middleware.RateLimitByUser(aiRequestsPerWindow, aiWindowSeconds))
				r.Post("/{id}/iterate", proposalHandler.Iterate)
				r.Post("/{id}/chat", proposalHandler.Chat)
				r.Post("/{id}/submit_draft", proposalHandler.Submit)
				r.Post("/{id}/assign", proposalHandler.Assign)
				r.Post("/{id}/publish_tender", tenderHandler.Publish)
			})
		})

		r.Route("/active-tenders", func(r chi.Router) {
			r.Get("/", tenderHandler.List)
			r.Get("/{id}", tenderHandler.Get)
		})

		r.Route("/organizations/{id}", func(r chi.Router) {
			r.Get("/", orgHandler.Get)
			r.Get("/members", orgHandler.Members)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(models.RoleAdmin))
				r.Get("/available-users", orgHandler.AvailableUsers)
				r.Post("/members", orgHandler.AddMember)
				r.Patch("/members/{uid}", orgHandler.UpdateMember)
				r.Delete("/members/{uid}", orgHandler.RemoveMember)
			})
		})
	})

	return &Router{r}
}
