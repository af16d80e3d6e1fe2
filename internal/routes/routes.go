package routes

import (
	"net/http"

	"github.com/ami-notifications/notifier/internal/authz"
	"github.com/ami-notifications/notifier/internal/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Handlers struct {
	Auth          *authz.Authenticator
	DB            handlers.Pinger
	Notifications *handlers.NotificationHandler
	Scheduled     *handlers.ScheduledHandler
	Jobs          *handlers.JobHandler
	Stream        *handlers.StreamHandler
}

// NewRouter sets up the API routes.
func NewRouter(h Handlers) *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", handlers.HealthCheck(h.DB)).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(h.Auth.Middleware)

	api.HandleFunc("/notifications", h.Notifications.List).Methods(http.MethodGet)
	api.HandleFunc("/notifications/stream", h.Stream.Serve).Methods(http.MethodGet)
	api.HandleFunc("/notifications/{notificationID}/read", h.Notifications.SetRead).Methods(http.MethodPatch)
	api.Handle("/notifications", authz.RequireRole(authz.RoleInternal)(http.HandlerFunc(h.Notifications.Create))).Methods(http.MethodPost)

	api.HandleFunc("/scheduled-notifications", h.Scheduled.Create).Methods(http.MethodPost)
	api.HandleFunc("/users/me/welcome", h.Scheduled.Welcome).Methods(http.MethodPost)

	internal := api.PathPrefix("/internal").Subrouter()
	internal.Use(authz.RequireRole(authz.RoleInternal))
	internal.HandleFunc("/publish-due", h.Jobs.PublishDue).Methods(http.MethodPost)
	internal.HandleFunc("/sweep", h.Jobs.Sweep).Methods(http.MethodPost)

	return router
}
