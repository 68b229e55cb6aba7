package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"petshop-backend/internal/config"
	"petshop-backend/internal/domain"
	"petshop-backend/internal/handler"
)

// NewRouter wires HTTP routes and middleware.
func NewRouter(cfg config.Config,
	logger *slog.Logger,
	health handler.HealthHandler,
	auth handler.AuthHandler,
	collaborators handler.CollaboratorHandler,
	public handler.PublicHandler,
	services handler.ServiceHandler,
	appointments handler.AppointmentHandler,
	imports handler.ImportHandler,
	settings handler.SettingsHandler,
	notifications handler.NotificationHandler,
	tx handler.TransactionHandler,
	finance handler.FinanceHandler,
	dashboard handler.DashboardHandler,
) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(NewLoggerMiddleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.ClientURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "Retry-After", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(httprate.LimitByIP(200, 1*time.Minute))

	health.RegisterRoutes(r)
	r.Method("GET", "/metrics", promhttp.Handler())

	// unauthenticated
	r.Group(func(ar chi.Router) {
		ar.Use(httprate.LimitByIP(20, 1*time.Minute))
		auth.RegisterRoutes(ar)
		collaborators.RegisterPublicRoutes(ar)
	})
	public.RegisterRoutes(r)

	r.Group(func(pr chi.Router) {
		pr.Use(AuthMiddleware(cfg.JWTSecret))
		// any member of the shop
		pr.Group(func(sr chi.Router) {
			sr.Use(RequireRole(domain.RoleAdmin, domain.RoleCollaborator))
			auth.RegisterProtectedRoutes(sr)
			services.RegisterRoutes(sr)
			imports.RegisterRoutes(sr)
			appointments.RegisterRoutes(sr)
			settings.RegisterRoutes(sr)
			notifications.RegisterRoutes(sr)
			tx.RegisterRoutes(sr)
			finance.RegisterRoutes(sr)
			dashboard.RegisterRoutes(sr)
		})
		// shop owner only
		pr.Group(func(mr chi.Router) {
			mr.Use(RequireRole(domain.RoleAdmin))
			settings.RegisterAdminRoutes(mr)
			collaborators.RegisterRoutes(mr)
		})
	})

	return r
}
