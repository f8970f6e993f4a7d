package handlers

import (
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/gdg-garage/checkin-api/internal/auth"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Handlers struct {
	Auth         *auth.AuthHandler
	Events       *EventHandler
	Registration *RegistrationHandler
	CheckIn      *CheckInHandler
	Reports      *ReportHandler
	ScannerKeys  *ScannerKeyHandler
	Metrics      http.Handler
}

func RegisterRoutes(r *chi.Mux, h Handlers, storeTimeout time.Duration) {
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if storeTimeout > 0 {
		r.Use(middleware.Timeout(storeTimeout))
	}

	// Initialize Huma API
	config := huma.DefaultConfig("Event Check-in API", "1.0.0")
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"cookieAuth": {
			Type: "apiKey",
			In:   "cookie",
			Name: auth.CookieName,
		},
		"scannerKey": {
			Type: "apiKey",
			In:   "header",
			Name: "X-API-KEY",
		},
	}
	api := humachi.New(r, config)

	adminOnly := func(o *huma.Operation) {
		o.Security = []map[string][]string{{"cookieAuth": {}}}
	}
	scanner := func(o *huma.Operation) {
		o.Security = []map[string][]string{{"cookieAuth": {}}, {"scannerKey": {}}}
	}

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	r.Get("/auth/discord/login", h.Auth.HandleLogin)
	r.Get("/auth/discord/callback", h.Auth.HandleCallback)

	huma.Get(api, "/events", h.Events.HandleList)
	huma.Get(api, "/events/{id}", h.Events.HandleGet)
	huma.Register(api, huma.Operation{
		OperationID:   "register-for-event",
		Method:        http.MethodPost,
		Path:          "/events/{id}/registrations",
		DefaultStatus: http.StatusCreated,
	}, h.Registration.HandleRegister)

	// Scanner routes
	huma.Post(api, "/checkin", h.CheckIn.HandleCheckIn, scanner)

	// Admin routes
	huma.Get(api, "/me", h.Auth.HandleMe, adminOnly)
	huma.Post(api, "/events", h.Events.HandleCreate, adminOnly)
	huma.Get(api, "/reports/stats", h.Reports.HandleStats, adminOnly)
	huma.Get(api, "/reports/records", h.Reports.HandleRecords, adminOnly)
	huma.Get(api, "/reports/recent", h.Reports.HandleRecent, adminOnly)
	huma.Get(api, "/reports/export", h.Reports.HandleExport, adminOnly)
	huma.Post(api, "/scanner-keys", h.ScannerKeys.HandleCreate, adminOnly)
	huma.Get(api, "/scanner-keys", h.ScannerKeys.HandleList, adminOnly)
	huma.Delete(api, "/scanner-keys/{id}", h.ScannerKeys.HandleDelete, adminOnly)

	if h.Metrics != nil {
		r.With(h.Auth.AuthMiddleware).Handle("/metrics", h.Metrics)
	}
}
