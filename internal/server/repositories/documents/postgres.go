package documents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/idgate/internal/common"
	"github.com/dmitrijs2005/idgate/internal/dbx"
	"github.com/dmitrijs2005/idgate/internal/server/models"
	"github.com/google/uuid"
)

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a document row. An empty ID is filled with a fresh UUID.
func (r *PostgresRepository) Create(ctx context.Context, doc *models.Document) (*models.Document, error) {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}

	query := `
		INSERT INTO documents (id, user_id, type, storage_key, status, content_type, size, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		doc.ID, doc.UserID, string(doc.Type), doc.StorageKey, string(doc.Status), doc.ContentType, doc.Size, doc.UploadedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return doc, nil
}

// ListByUserID returns every document owned by userID, oldest first. An
// unknown user simply has no rows.
func (r *PostgresRepository) ListByUserID(ctx context.Context, userID string) ([]*models.Document, error) {
	query := `
		SELECT id, user_id, type, storage_key, status, content_type, size, uploaded_at FROM documents
		WHERE user_id = $1
		ORDER BY uploaded_at, id
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select documents: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// GetByID returns the document only when it belongs to userID.
func (r *PostgresRepository) GetByID(ctx context.Context, userID, id string) (*models.Document, error) {
	query := `
		SELECT id, user_id, type, storage_key, status, content_type, size, uploaded_at FROM documents
		WHERE id = $1 AND user_id = $2
	`
	doc, err := scanDocument(r.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return doc, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(s scanner) (*models.Document, error) {
	var (
		doc             models.Document
		docType, status string
		contentType     sql.NullString
	)
	if err := s.Scan(&doc.ID, &doc.UserID, &docType, &doc.StorageKey, &status, &contentType, &doc.Size, &doc.UploadedAt); err != nil {
		return nil, err
	}
	doc.Type = models.DocumentType(docType)
	doc.Status = models.DocumentStatus(status)
	doc.ContentType = contentType.String
	return &doc, nil
}
