package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/idgate/internal/common"
)

type failureResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeFailure(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, failureResponse{Success: false, Message: message})
}

// statusFor maps a failure kind to its HTTP status.
func statusFor(err error) int {
	switch common.KindOf(err) {
	case common.ErrorInvalidInput:
		return http.StatusBadRequest
	case common.ErrorUnauthorized:
		return http.StatusUnauthorized
	case common.ErrorNotFound:
		return http.StatusNotFound
	case common.ErrorConflict:
		return http.StatusConflict
	case common.ErrorUploadFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}
	writeFailure(w, status, common.MessageOf(err))
}

// writeBodyError reports a request body that could not be read or parsed.
func writeBodyError(w http.ResponseWriter, err error, message string) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeFailure(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	writeFailure(w, http.StatusBadRequest, message)
}
