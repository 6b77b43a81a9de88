// Package api is a thin HTTP client for the idgate REST API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/idgate/internal/common"
)

// Error is a non-2xx answer from the server.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

type RegisterResponse struct {
	Success          bool   `json:"success"`
	Message          string `json:"message"`
	ID               string `json:"id"`
	IdentityVerified bool   `json:"identityVerified"`
}

type LoginResponse struct {
	Success              bool    `json:"success"`
	Message              string  `json:"message"`
	ID                   string  `json:"id"`
	Email                string  `json:"email"`
	Username             string  `json:"username"`
	IdentityVerified     bool    `json:"identityVerified"`
	VerificationRequired bool    `json:"verificationRequired"`
	Token                *string `json:"token"`
}

type VerifyResponse struct {
	Success          bool   `json:"success"`
	Message          string `json:"message"`
	ID               string `json:"id"`
	IdentityVerified bool   `json:"identityVerified"`
	ProofReference   string `json:"proofReference"`
	Token            string `json:"token"`
}

type UploadResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	ID         string `json:"id"`
	Type       string `json:"type"`
	Status     string `json:"status"`
	StorageKey string `json:"storageKey"`
}

type Document struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	StorageKey string    `json:"storageKey"`
	Status     string    `json:"status"`
	UploadedAt time.Time `json:"uploadedAt"`
}

type DownloadResponse struct {
	Success   bool      `json:"success"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) Register(ctx context.Context, email, username, password string) (*RegisterResponse, error) {
	var out RegisterResponse
	body := map[string]string{"email": email, "username": username, "password": password}
	if err := c.postJSON(ctx, "/auth/register", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	var out LoginResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.postJSON(ctx, "/auth/login", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyIdentity uploads the photo at path as the user's identity proof.
func (c *Client) VerifyIdentity(ctx context.Context, userID, path string) (*VerifyResponse, error) {
	var out VerifyResponse
	fields := map[string]string{"userId": userID}
	if err := c.postFile(ctx, "/auth/verify-identity", fields, "photo", path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Upload(ctx context.Context, userID, docType, path string) (*UploadResponse, error) {
	var out UploadResponse
	fields := map[string]string{"userId": userID, "type": docType}
	if err := c.postFile(ctx, "/documents/upload", fields, "file", path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListDocuments(ctx context.Context, userID string) ([]Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/documents/user/"+url.PathEscape(userID), nil)
	if err != nil {
		return nil, err
	}

	var out []Document
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) DownloadLink(ctx context.Context, token, documentID string) (*DownloadResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/documents/"+url.PathEscape(documentID)+"/download", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)

	var out DownloadResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

func (c *Client) postFile(ctx context.Context, path string, fields map[string]string, fileField, filePath string, out any) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("open %s: %w", filePath, err)
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return err
		}
	}

	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, fileField, filepath.Base(filePath)))
	hdr.Set("Content-Type", detectContentType(f))
	part, err := mw.CreatePart(hdr)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("read %s: %w", filePath, err)
	}
	if err := mw.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	return c.do(req, out)
}

// detectContentType sniffs the first bytes of f and rewinds it.
func detectContentType(f *os.File) string {
	head := make([]byte, 512)
	n, _ := io.ReadFull(f, head)
	_, _ = f.Seek(0, io.SeekStart)
	return http.DetectContentType(head[:n])
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var failure struct {
			Message string `json:"message"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&failure); err != nil || failure.Message == "" {
			failure.Message = http.StatusText(resp.StatusCode)
		}
		return &Error{StatusCode: resp.StatusCode, Message: failure.Message}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
