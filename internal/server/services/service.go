// Package services holds the identity gate and the document lifecycle
// manager. Every operation returns either a result or a *common.Failure
// carrying the failure kind and a caller-facing message.
package services

import (
	"io"
	"time"

	"github.com/dmitrijs2005/idgate/internal/common"
	"github.com/dmitrijs2005/idgate/internal/logging"
	"github.com/dmitrijs2005/idgate/internal/server/metrics"
	"github.com/dmitrijs2005/idgate/internal/server/models"
	"github.com/google/uuid"
)

// File is an uploaded payload. Size is the declared byte count of Content.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Content     io.Reader
}

func (f *File) empty() bool {
	return f == nil || f.Content == nil || f.Size <= 0
}

// TokenIssuer mints access tokens for verified users.
type TokenIssuer interface {
	Issue(user *models.User) (string, error)
}

type options struct {
	logger  logging.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// Option customises a service.
type Option func(*options)

func WithLogger(l logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithClock replaces time.Now, used for key stamps and upload times.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{
		logger: logging.NewNopLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// resultLabel turns an operation outcome into a metrics label.
func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	switch common.KindOf(err) {
	case common.ErrorInvalidInput:
		return "invalid_input"
	case common.ErrorNotFound:
		return "not_found"
	case common.ErrorConflict:
		return "conflict"
	case common.ErrorUnauthorized:
		return "unauthorized"
	case common.ErrorUploadFailed:
		return "upload_failed"
	default:
		return "internal"
	}
}

// wellFormedID reports whether id can name a stored row. Malformed ids are
// treated as unknown rather than sent to the database.
func wellFormedID(id string) bool {
	return uuid.Validate(id) == nil
}
