package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/idgate/internal/common"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type contextKeyUserID struct{}

// UserIDFromContext returns the subject of the verified bearer token.
func UserIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(contextKeyUserID{}).(string)
	return id
}

func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			d := time.Since(start)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			route := r.URL.Path
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}

			h.metrics.ObserveHTTP(r.Method, route, status, d)
			h.logger.Info(r.Context(), "http request",
				"method", r.Method,
				"route", route,
				"status", status,
				"duration", d,
				"request_id", middleware.GetReqID(r.Context()),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

// requireVerified admits requests carrying a valid token whose holder has
// a verified identity. The token subject is stored in the context.
func (h *Handler) requireVerified(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get(common.AuthorizationHeaderName), common.BearerPrefix)
		if !ok || token == "" {
			writeFailure(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		claims, err := h.tokens.Parse(token)
		if err != nil {
			msg := "invalid token"
			if errors.Is(err, common.ErrTokenExpired) {
				msg = "token expired"
			}
			h.logger.Warn(r.Context(), "rejected token", "error", err)
			writeFailure(w, http.StatusUnauthorized, msg)
			return
		}

		if !claims.IdentityVerified {
			writeFailure(w, http.StatusForbidden, "identity verification required")
			return
		}

		ctx := context.WithValue(r.Context(), contextKeyUserID{}, claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
