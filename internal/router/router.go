package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"go-app-console/internal/config"
	"go-app-console/internal/handler"
	"go-app-console/internal/middleware"
	"go-app-console/internal/model"
)

type Handlers struct {
	Auth        *handler.AuthHandler
	User        *handler.UserHandler
	Application *handler.ApplicationHandler
}

func New(
	cfg *config.Config,
	authMiddleware *middleware.AuthMiddleware,
	appKeyMiddleware *middleware.AppKeyMiddleware,
	handlers Handlers,
) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.AuthRateLimitRPM)
	adminOnly := middleware.RolePolicy{Allow: []string{model.RoleAdmin}}

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.SecurityHeaders)
	r.Use(rateLimitMiddleware.Handler)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.Timeout(cfg.RequestTimeout))

		api.Route("/auth", func(auth chi.Router) {
			auth.Post("/sign-in", handlers.Auth.SignIn)
			auth.Post("/sign-up", handlers.Auth.SignUp)
			auth.With(authMiddleware.RequireAuth).Post("/change-password", handlers.Auth.ChangePassword)
		})

		api.Route("/users", func(users chi.Router) {
			users.With(authMiddleware.RequireAuth).Get("/me", handlers.User.Me)
			users.With(authMiddleware.RequireAuth).Put("/me", handlers.User.Update)
			users.With(authMiddleware.RequireAuth, authMiddleware.RequireRoles(adminOnly)).Get("/", handlers.User.List)
		})

		api.Route("/applications", func(apps chi.Router) {
			apps.Use(authMiddleware.RequireAuth)
			apps.Get("/", handlers.Application.List)
			apps.Post("/", handlers.Application.Create)
			apps.Get("/{id}", handlers.Application.Get)
			apps.Put("/{id}", handlers.Application.Update)
			apps.Delete("/{id}", handlers.Application.Delete)
			apps.Post("/{id}/invite", handlers.Application.Invite)
			apps.Get("/{id}/api-key", handlers.Application.GetAPIKey)
			apps.Post("/{id}/api-key/refresh", handlers.Application.RefreshAPIKey)
		})

		// Consumed by registered applications with their own API key.
		api.With(appKeyMiddleware.RequireAppKey).Get("/application", handlers.Application.Current)
	})

	return r
}
