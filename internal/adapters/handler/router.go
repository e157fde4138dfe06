package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AchilleasB/kinderopvang/incident-service/internal/adapters/middleware"
	"github.com/AchilleasB/kinderopvang/incident-service/internal/core/domain"
)

type RouterDeps struct {
	Auth           *middleware.AuthMiddleware
	Incidents      *IncidentHandler
	Notifications  *NotificationHandler
	Health         *HealthHandler
	AllowedOrigins []string
	Logger         *slog.Logger
}

// NewRouter wires every route. Static segments under /incidents are registered
// alongside {id} and chi prefers them, so /incidents/summary never reaches Get.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Instrument(deps.Logger))
	r.Use(middleware.CORSMiddleware(deps.AllowedOrigins))

	if deps.Health != nil {
		r.Get("/health", deps.Health.Health)
		r.Get("/health/live", deps.Health.Live)
		r.Get("/health/ready", deps.Health.Ready)
	}
	r.Handle("/metrics", promhttp.Handler())

	managerOnly := middleware.RequireRole(domain.RoleManager)
	anyStaff := middleware.RequireRole(domain.RoleManager, domain.RoleBabysitter)

	r.Route("/incidents", func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)

		r.With(anyStaff).Post("/", deps.Incidents.Create)
		r.With(anyStaff).Get("/", deps.Incidents.List)
		r.With(anyStaff).Get("/child/{childId}", deps.Incidents.ListByChild)

		r.With(managerOnly).Get("/notifications", deps.Notifications.List)
		r.With(managerOnly).Get("/notifications/unread", deps.Notifications.UnreadCount)
		r.With(managerOnly).Get("/summary", deps.Notifications.Summary)

		r.With(anyStaff).Get("/{id}", deps.Incidents.Get)
		r.With(managerOnly).Put("/{id}", deps.Incidents.Update)
		r.With(managerOnly).Put("/{id}/read", deps.Notifications.MarkRead)
	})

	return r
}
