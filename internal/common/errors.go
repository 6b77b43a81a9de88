// Package common defines sentinel errors and the Failure type shared by the
// idgate services, repositories and transport. Callers match kinds with
// errors.Is.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")
	ErrorConflict = errors.New("conflict")

	// Service-level failure kinds.
	ErrorInvalidInput = errors.New("invalid input")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorUploadFailed = errors.New("upload failed")
	ErrorInternal     = errors.New("internal error")

	// Token errors.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// Failure is the structured outcome returned by service operations that did
// not succeed. Kind is one of the sentinel errors above, Message is safe to
// show to callers and Err keeps the underlying cause for logs.
type Failure struct {
	Kind    error
	Message string
	Err     error
}

// NewFailure builds a Failure of the given kind.
func NewFailure(kind error, message string, cause error) *Failure {
	return &Failure{Kind: kind, Message: message, Err: cause}
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return f.Message + ": " + f.Err.Error()
	}
	return f.Message
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (f *Failure) Unwrap() []error {
	if f.Err == nil {
		return []error{f.Kind}
	}
	return []error{f.Kind, f.Err}
}

// KindOf returns the failure kind carried by err. Errors that are not
// failures, or whose kind is unknown, are reported as ErrorInternal.
func KindOf(err error) error {
	var f *Failure
	if errors.As(err, &f) && f.Kind != nil {
		return f.Kind
	}
	for _, k := range []error{ErrorInvalidInput, ErrorNotFound, ErrorConflict, ErrorUnauthorized, ErrorUploadFailed, ErrorInternal} {
		if errors.Is(err, k) {
			return k
		}
	}
	return ErrorInternal
}

// MessageOf returns the caller-facing message of err.
func MessageOf(err error) string {
	var f *Failure
	if errors.As(err, &f) {
		return f.Message
	}
	return "internal error"
}
