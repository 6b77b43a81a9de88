package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/idgate/internal/common"
	"github.com/dmitrijs2005/idgate/internal/logging"
	"github.com/dmitrijs2005/idgate/internal/server/config"
	"github.com/dmitrijs2005/idgate/internal/server/metrics"
	"github.com/dmitrijs2005/idgate/internal/server/models"
	"github.com/dmitrijs2005/idgate/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/idgate/internal/server/storage"
)

const (
	msgFileRequired     = "file is required"
	msgDocumentUploaded = "document uploaded successfully"
	msgDocumentNotFound = "document not found"
)

type UploadResult struct {
	Document *models.Document
	Message  string
}

// DocumentSummary is the listing view of a stored document.
type DocumentSummary struct {
	ID         string
	Type       models.DocumentType
	StorageKey string
	Status     models.DocumentStatus
	UploadedAt time.Time
}

type DownloadLink struct {
	URL       string
	ExpiresAt time.Time
}

// DocumentService places uploads in the object store and records them as
// pending documents. It never changes a document's status.
type DocumentService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	store       storage.ObjectStore
	writer      *stagedWriter
	clock       *stampClock
	bucket      string
	maxBytes    int64
	presignTTL  time.Duration
	logger      logging.Logger
	metrics     *metrics.Metrics
}

func NewDocumentService(db *sql.DB, m repomanager.RepositoryManager, store storage.ObjectStore, cfg *config.Config, opts ...Option) *DocumentService {
	o := buildOptions(opts)
	logger := o.logger.With("service", "documents")

	return &DocumentService{
		db:          db,
		repomanager: m,
		store:       store,
		writer:      &stagedWriter{store: store, timeout: cfg.S3Timeout, logger: logger},
		clock:       newStampClock(o.now),
		bucket:      cfg.S3DocumentBucket,
		maxBytes:    cfg.MaxUploadBytes,
		presignTTL:  cfg.PresignValidityDuration,
		logger:      logger,
		metrics:     o.metrics,
	}
}

// Upload stores file under documents/<userId>/<type>_<stamp> and, once the
// write succeeded, records a PENDING document. A failed write creates no row.
func (s *DocumentService) Upload(ctx context.Context, userID string, file *File, docType models.DocumentType) (res *UploadResult, err error) {
	defer func() { s.metrics.Upload(string(docType), resultLabel(err)) }()

	if !wellFormedID(userID) {
		return nil, common.NewFailure(common.ErrorNotFound, msgUserNotFound, nil)
	}

	if _, err := s.repomanager.Users(s.db).GetByID(ctx, userID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NewFailure(common.ErrorNotFound, msgUserNotFound, nil)
		}
		return nil, common.NewFailure(common.ErrorInternal, msgInternal, err)
	}

	if file.empty() {
		return nil, common.NewFailure(common.ErrorInvalidInput, msgFileRequired, nil)
	}
	if !docType.Valid() {
		return nil, common.NewFailure(common.ErrorInvalidInput, fmt.Sprintf("unknown document type %q", docType), nil)
	}
	if s.maxBytes > 0 && file.Size > s.maxBytes {
		return nil, common.NewFailure(common.ErrorInvalidInput, fmt.Sprintf("file exceeds %d bytes", s.maxBytes), nil)
	}

	now, stamp := s.clock.Next()
	key := DocumentKey(userID, docType, stamp)

	doc := &models.Document{
		UserID:      userID,
		Type:        docType,
		StorageKey:  key,
		Status:      models.DocumentStatusPending,
		ContentType: file.ContentType,
		Size:        file.Size,
		UploadedAt:  now.UTC(),
	}

	var created *models.Document

	err = s.writer.write(ctx, storage.PutObjectInput{
		Bucket:      s.bucket,
		Key:         key,
		ContentType: file.ContentType,
		Size:        file.Size,
		Body:        file.Content,
	}, func(ctx context.Context) error {
		var err error
		created, err = s.repomanager.Documents(s.db).Create(ctx, doc)
		return err
	})

	if err != nil {
		if errors.Is(err, common.ErrorUploadFailed) {
			s.logger.Error(ctx, "document upload failed", "user_id", userID, "key", key, "error", err)
			return nil, common.NewFailure(common.ErrorUploadFailed, msgUploadFailed, err)
		}
		s.logger.Error(ctx, "document commit failed", "user_id", userID, "key", key, "error", err)
		return nil, common.NewFailure(common.ErrorInternal, msgInternal, err)
	}

	s.logger.Info(ctx, "document stored", "user_id", userID, "document_id", created.ID, "key", key)

	return &UploadResult{Document: created, Message: msgDocumentUploaded}, nil
}

// ListByUser returns every document owned by userID. An unknown user has
// no documents; the owner is not looked up.
func (s *DocumentService) ListByUser(ctx context.Context, userID string) ([]DocumentSummary, error) {
	if !wellFormedID(userID) {
		return []DocumentSummary{}, nil
	}

	docs, err := s.repomanager.Documents(s.db).ListByUserID(ctx, userID)
	if err != nil {
		s.logger.Error(ctx, "list documents failed", "user_id", userID, "error", err)
		return nil, common.NewFailure(common.ErrorInternal, msgInternal, err)
	}

	out := make([]DocumentSummary, 0, len(docs))
	for _, d := range docs {
		out = append(out, DocumentSummary{
			ID:         d.ID,
			Type:       d.Type,
			StorageKey: d.StorageKey,
			Status:     d.Status,
			UploadedAt: d.UploadedAt,
		})
	}

	return out, nil
}

// PresignDownload returns a time-limited URL for one of userID's documents.
func (s *DocumentService) PresignDownload(ctx context.Context, userID, documentID string) (*DownloadLink, error) {
	if !wellFormedID(userID) || !wellFormedID(documentID) {
		return nil, common.NewFailure(common.ErrorNotFound, msgDocumentNotFound, nil)
	}

	doc, err := s.repomanager.Documents(s.db).GetByID(ctx, userID, documentID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NewFailure(common.ErrorNotFound, msgDocumentNotFound, nil)
		}
		return nil, common.NewFailure(common.ErrorInternal, msgInternal, err)
	}

	url, err := s.store.PresignGetObject(ctx, s.bucket, doc.StorageKey, s.presignTTL)
	if err != nil {
		s.logger.Error(ctx, "presign failed", "document_id", doc.ID, "error", err)
		return nil, common.NewFailure(common.ErrorInternal, msgInternal, err)
	}

	return &DownloadLink{URL: url, ExpiresAt: time.Now().Add(s.presignTTL).UTC()}, nil
}
