package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const requestTimeout = 60 * time.Second

// Router builds the REST surface.
//
//	POST /auth/register
//	POST /auth/login
//	POST /auth/verify-identity                 multipart: userId, photo
//	POST /documents/upload                     multipart: userId, type, file
//	GET  /documents/user/{userId}
//	GET  /documents/{documentId}/download      bearer token of a verified user
//	GET  /healthz
//	GET  /metrics
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.handleRegister)
		r.Post("/login", h.handleLogin)
		r.Post("/verify-identity", h.handleVerifyIdentity)
	})

	r.Route("/documents", func(r chi.Router) {
		r.Post("/upload", h.handleUpload)
		r.Get("/user/{userId}", h.handleListByUser)

		r.Group(func(r chi.Router) {
			r.Use(h.requireVerified)
			r.Get("/{documentId}/download", h.handleDownload)
		})
	})

	r.Get("/healthz", h.handleHealth)
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics.Handler())
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeFailure(w, http.StatusNotFound, "endpoint not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeFailure(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	return r
}
