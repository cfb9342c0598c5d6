package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// RouterConfig wires the handlers and middleware into the API router.
type RouterConfig struct {
	Auth           *AuthHandler
	Tracking       *TrackingHandler
	Employees      *EmployeeHandler
	Absences       *AbsenceHandler
	Sessions       SessionValidator
	Middleware     []func(http.Handler) http.Handler
	AllowedOrigins []string
}

// NewRouter builds the API router. Everything except registration and
// login requires a valid session.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	for _, mw := range cfg.Middleware {
		if mw != nil {
			r.Use(mw)
		}
	}
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Session-Token"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Post("/register", cfg.Auth.Register)
		r.Post("/sessions", cfg.Auth.CreateSession)

		r.Group(func(r chi.Router) {
			r.Use(RequireSession(cfg.Sessions, nil))

			r.Delete("/sessions/current", cfg.Auth.DeleteCurrentSession)

			r.Get("/account", cfg.Employees.Account)
			r.Put("/account/password", cfg.Auth.ChangePassword)
			r.Put("/account/weekly-hours", cfg.Employees.UpdateWeeklyHours)
			r.Get("/account/weekly-hours", cfg.Employees.ListWeeklyHours)
			r.Put("/account/thresholds", cfg.Employees.UpdateThresholds)
			r.Get("/subordinates", cfg.Employees.Subordinates)

			r.Post("/stamps", cfg.Tracking.Clock)
			r.Put("/stamps/{id}", cfg.Tracking.EditStamp)
			r.Delete("/stamps/{id}", cfg.Tracking.DeleteStamp)
			r.Get("/days/{date}", cfg.Tracking.Day)
			r.Post("/days/{date}/stamps", cfg.Tracking.AddStamp)

			r.Get("/reports/average", cfg.Tracking.Average)
			r.Get("/reports/rollups", cfg.Tracking.Rollups)

			r.Get("/notifications", cfg.Tracking.Notifications)
			r.Delete("/notifications/{id}", cfg.Tracking.DismissNotification)
			r.Get("/popups", cfg.Tracking.Popups)

			r.Post("/absences", cfg.Absences.Create)
			r.Get("/absences", cfg.Absences.List)
			r.Delete("/absences/{id}", cfg.Absences.Delete)
		})
	})

	return r
}
