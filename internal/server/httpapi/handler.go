// Package httpapi exposes the identity gate and the document manager over
// REST using chi.
package httpapi

import (
	"context"

	"github.com/dmitrijs2005/idgate/internal/logging"
	"github.com/dmitrijs2005/idgate/internal/server/auth"
	"github.com/dmitrijs2005/idgate/internal/server/metrics"
	"github.com/dmitrijs2005/idgate/internal/server/models"
	"github.com/dmitrijs2005/idgate/internal/server/services"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks IdentityService DocumentService TokenParser

type IdentityService interface {
	Register(ctx context.Context, email, username, password string) (*services.RegisterResult, error)
	Login(ctx context.Context, email, password string) (*services.LoginResult, error)
	VerifyIdentity(ctx context.Context, userID string, proof *services.File) (*services.VerifyResult, error)
}

type DocumentService interface {
	Upload(ctx context.Context, userID string, file *services.File, docType models.DocumentType) (*services.UploadResult, error)
	ListByUser(ctx context.Context, userID string) ([]services.DocumentSummary, error)
	PresignDownload(ctx context.Context, userID, documentID string) (*services.DownloadLink, error)
}

// TokenParser validates bearer tokens.
type TokenParser interface {
	Parse(token string) (*auth.Claims, error)
}

// HealthCheck reports whether a backing dependency is reachable.
type HealthCheck func(ctx context.Context) error

type Handler struct {
	identity       IdentityService
	documents      DocumentService
	tokens         TokenParser
	logger         logging.Logger
	metrics        *metrics.Metrics
	health         HealthCheck
	maxUploadBytes int64
}

type Option func(*Handler)

func WithLogger(l logging.Logger) Option {
	return func(h *Handler) { h.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) { h.metrics = m }
}

func WithHealthCheck(c HealthCheck) Option {
	return func(h *Handler) { h.health = c }
}

// WithMaxUploadBytes bounds the size of a single uploaded file.
func WithMaxUploadBytes(n int64) Option {
	return func(h *Handler) { h.maxUploadBytes = n }
}

func New(identity IdentityService, documents DocumentService, tokens TokenParser, opts ...Option) *Handler {
	h := &Handler{
		identity:       identity,
		documents:      documents,
		tokens:         tokens,
		logger:         logging.NewNopLogger(),
		maxUploadBytes: 10 << 20,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}
