package documents

import (
	"context"

	"github.com/dmitrijs2005/idgate/internal/server/models"
)

// Repository stores document metadata. Every query is scoped by owner.
type Repository interface {
	Create(ctx context.Context, doc *models.Document) (*models.Document, error)
	ListByUserID(ctx context.Context, userID string) ([]*models.Document, error)
	GetByID(ctx context.Context, userID, id string) (*models.Document, error)
}
