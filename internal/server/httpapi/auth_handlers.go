package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/dmitrijs2005/idgate/internal/server/services"
)

// multipartMemory is how much of a multipart body is kept in memory before
// spilling to temporary files.
const multipartMemory = 8 << 20

type registerRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type registerResponse struct {
	Success          bool   `json:"success"`
	Message          string `json:"message"`
	ID               string `json:"id"`
	IdentityVerified bool   `json:"identityVerified"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginResponse carries a null token while the identity is unverified.
type loginResponse struct {
	Success              bool    `json:"success"`
	Message              string  `json:"message"`
	ID                   string  `json:"id"`
	Email                string  `json:"email"`
	Username             string  `json:"username"`
	IdentityVerified     bool    `json:"identityVerified"`
	VerificationRequired bool    `json:"verificationRequired"`
	Token                *string `json:"token"`
}

type verifyResponse struct {
	Success          bool   `json:"success"`
	Message          string `json:"message"`
	ID               string `json:"id"`
	IdentityVerified bool   `json:"identityVerified"`
	ProofReference   string `json:"proofReference"`
	Token            string `json:"token"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		writeBodyError(w, err, "invalid request body")
		return
	}

	res, err := h.identity.Register(r.Context(), req.Email, req.Username, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, registerResponse{
		Success:          true,
		Message:          res.Message,
		ID:               res.ID,
		IdentityVerified: res.IdentityVerified,
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		writeBodyError(w, err, "invalid request body")
		return
	}

	res, err := h.identity.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := loginResponse{
		Success:              true,
		Message:              res.Message,
		ID:                   res.ID,
		Email:                res.Email,
		Username:             res.UserName,
		IdentityVerified:     res.IdentityVerified,
		VerificationRequired: res.VerificationRequired,
	}
	if res.Token != "" {
		resp.Token = &res.Token
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleVerifyIdentity(w http.ResponseWriter, r *http.Request) {
	if err := h.parseMultipart(w, r); err != nil {
		writeBodyError(w, err, "invalid multipart body")
		return
	}

	proof, closeFn, err := formFile(r, "photo")
	if err != nil {
		writeBodyError(w, err, "invalid photo")
		return
	}
	defer closeFn()

	res, err := h.identity.VerifyIdentity(r.Context(), r.FormValue("userId"), proof)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, verifyResponse{
		Success:          true,
		Message:          res.Message,
		ID:               res.ID,
		IdentityVerified: res.IdentityVerified,
		ProofReference:   res.ProofReference,
		Token:            res.Token,
	})
}

func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	return json.NewDecoder(r.Body).Decode(v)
}

func (h *Handler) parseMultipart(w http.ResponseWriter, r *http.Request) error {
	// Headroom for the other form fields and multipart framing.
	limit := h.maxUploadBytes + 1<<20
	if r.ContentLength > limit {
		return &http.MaxBytesError{Limit: limit}
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	return r.ParseMultipartForm(multipartMemory)
}

// formFile returns the named file part, or a nil *services.File when the
// part is absent so the service reports the missing input itself.
func formFile(r *http.Request, field string) (*services.File, func(), error) {
	f, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, func() {}, nil
	}
	if err != nil {
		return nil, func() {}, err
	}

	return fileFromPart(f, header), func() { _ = f.Close() }, nil
}

func fileFromPart(f io.Reader, header *multipart.FileHeader) *services.File {
	ct := header.Header.Get("Content-Type")
	if ct == "" {
		ct = "application/octet-stream"
	}
	return &services.File{
		Name:        header.Filename,
		ContentType: ct,
		Size:        header.Size,
		Content:     f,
	}
}
