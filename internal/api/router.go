package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/isdelr/sheetcharts-be/internal/api/handlers"
	"github.com/isdelr/sheetcharts-be/internal/auth"
	"github.com/isdelr/sheetcharts-be/internal/models"
	"github.com/isdelr/sheetcharts-be/internal/services"
	"github.com/isdelr/sheetcharts-be/internal/websocket"
)

// RateLimiter guards the unauthenticated auth routes.
type RateLimiter interface {
	Middleware(next http.Handler) http.Handler
}

// Dependencies are the collaborators the router wires into handlers.
type Dependencies struct {
	Tokens         *auth.TokenIssuer
	Users          services.UserServiceProvider
	Uploads        services.UploadServiceProvider
	Visualizations services.VisualizationServiceProvider
	Stats          services.StatsServiceProvider
	Events         services.EventServiceProvider
	Hub            *websocket.Hub

	// AuthLimiter may be nil to disable rate limiting.
	AuthLimiter    RateLimiter
	CORSOrigins    []string
	MaxUploadBytes int64

	// TrustProxy takes the client address from X-Forwarded-For/X-Real-IP.
	// Enable only behind a proxy that overwrites those headers.
	TrustProxy bool
}

// NewRouter creates and configures a new Chi router.
func NewRouter(deps Dependencies) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	if deps.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Auth-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize handlers
	userHandler := handlers.NewUserHandler(deps.Users, deps.Tokens)
	uploadHandler := handlers.NewUploadHandler(deps.Uploads, deps.Visualizations, deps.MaxUploadBytes)
	adminHandler := handlers.NewAdminHandler(deps.Users, deps.Stats)
	eventHandler := handlers.NewEventHandler(deps.Events)
	wsHandler := handlers.NewWebSocketHandler(deps.Hub, deps.CORSOrigins)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("API running"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				if deps.AuthLimiter != nil {
					r.Use(deps.AuthLimiter.Middleware)
				}
				r.Post("/signup", userHandler.Signup)
				r.Post("/login", userHandler.Login)
			})
			r.With(deps.Tokens.Middleware).Get("/me", userHandler.GetMe)
		})

		r.Route("/upload", func(r chi.Router) {
			r.Use(deps.Tokens.Middleware)
			r.Post("/upload", uploadHandler.Upload)
			r.Get("/history", uploadHandler.History)
			r.Get("/latest", uploadHandler.Latest)
			r.Post("/visualize/{uploadId}", uploadHandler.Visualize)
			r.Get("/{uploadId}", uploadHandler.Get)
			r.Get("/{uploadId}/chart.png", uploadHandler.Chart)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(auth.QueryToken("token"))
			r.Use(deps.Tokens.Middleware)
			r.Use(auth.RequireRole(models.RoleAdmin))

			r.Get("/stats", adminHandler.Stats)
			r.Get("/users", adminHandler.ListUsers)
			r.Put("/users/{id}/block", adminHandler.Block)
			r.Put("/users/{id}/unblock", adminHandler.Unblock)
			r.Delete("/users/{id}", adminHandler.Delete)
			r.Get("/events", eventHandler.GetRecent)
			r.Get("/ws", wsHandler.Serve)
		})
	})

	return r
}
