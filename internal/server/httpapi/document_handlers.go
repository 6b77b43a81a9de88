package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/dmitrijs2005/idgate/internal/server/models"
	"github.com/go-chi/chi/v5"
)

type uploadResponse struct {
	Success    bool                  `json:"success"`
	Message    string                `json:"message"`
	ID         string                `json:"id"`
	Type       models.DocumentType   `json:"type"`
	Status     models.DocumentStatus `json:"status"`
	StorageKey string                `json:"storageKey"`
}

type documentSummary struct {
	ID         string                `json:"id"`
	Type       models.DocumentType   `json:"type"`
	StorageKey string                `json:"storageKey"`
	Status     models.DocumentStatus `json:"status"`
	UploadedAt time.Time             `json:"uploadedAt"`
}

type downloadResponse struct {
	Success   bool      `json:"success"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := h.parseMultipart(w, r); err != nil {
		writeBodyError(w, err, "invalid multipart body")
		return
	}

	docType, err := models.ParseDocumentType(r.FormValue("type"))
	if err != nil {
		writeFailure(w, http.StatusBadRequest, err.Error())
		return
	}

	file, closeFn, err := formFile(r, "file")
	if err != nil {
		writeBodyError(w, err, "invalid file")
		return
	}
	defer closeFn()

	res, err := h.documents.Upload(r.Context(), r.FormValue("userId"), file, docType)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, uploadResponse{
		Success:    true,
		Message:    res.Message,
		ID:         res.Document.ID,
		Type:       res.Document.Type,
		Status:     res.Document.Status,
		StorageKey: res.Document.StorageKey,
	})
}

func (h *Handler) handleListByUser(w http.ResponseWriter, r *http.Request) {
	docs, err := h.documents.ListByUser(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	out := make([]documentSummary, 0, len(docs))
	for _, d := range docs {
		out = append(out, documentSummary{
			ID:         d.ID,
			Type:       d.Type,
			StorageKey: d.StorageKey,
			Status:     d.Status,
			UploadedAt: d.UploadedAt,
		})
	}

	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	link, err := h.documents.PresignDownload(r.Context(), UserIDFromContext(r.Context()), chi.URLParam(r, "documentId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, downloadResponse{Success: true, URL: link.URL, ExpiresAt: link.ExpiresAt})
}

type healthResponse struct {
	Status string `json:"status"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := h.health(ctx); err != nil {
			h.logger.Warn(r.Context(), "health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}
