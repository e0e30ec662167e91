// Package web assembles the HTTP surface: consent routes, the per-user
// Drive API and operational endpoints.
package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/pysugar/drive-nexus/internal/auth/google"
	"github.com/pysugar/drive-nexus/internal/logging"
	"github.com/pysugar/drive-nexus/internal/metrics"
	"github.com/pysugar/drive-nexus/internal/web/handlers"
	"github.com/pysugar/drive-nexus/internal/web/middleware"
	"github.com/pysugar/drive-nexus/internal/web/respond"
)

// Deps are the collaborators the router wires into routes.
type Deps struct {
	Users    middleware.UserFinder
	Consent  *google.Consent
	Handlers *handlers.Handlers
	Metrics  *metrics.Metrics
}

// NewRouter builds the server's route tree.
func NewRouter(d Deps) chi.Router {
	r := chi.NewRouter()
	r.Use(logging.RequestID)
	r.Use(logging.AccessLog)
	r.Use(chimiddleware.Recoverer)

	// ============================================
	// Public Routes (No Auth Required)
	// ============================================
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}
	// The provider redirect carries no API key; the signed state names the user.
	r.Get("/drive/callback", d.Consent.HandleCallback)

	// ============================================
	// User Routes (API key required)
	// ============================================
	r.Group(func(r chi.Router) {
		r.Use(middleware.UserAuth(d.Users))

		r.Get("/drive/authorize", d.Consent.HandleAuthorize)

		h := d.Handlers
		r.Route("/api", func(r chi.Router) {
			r.Get("/accounts", h.ListAccounts)
			r.Get("/files", h.ListAllFiles)

			r.Route("/accounts/{accountID}", func(r chi.Router) {
				r.Delete("/", h.DeleteAccount)
				r.Post("/refresh", h.RefreshAccount)
				r.Get("/storage", h.Storage)
				r.Post("/folders", h.CreateFolder)

				r.Get("/files", h.ListFiles)
				r.Post("/files", h.UploadFile)
				r.Get("/files/{fileID}", h.GetFile)
				r.Delete("/files/{fileID}", h.DeleteFile)
				r.Get("/files/{fileID}/download-url", h.DownloadURL)
				r.Get("/files/{fileID}/content", h.DownloadContent)
			})
		})
	})

	return r
}
