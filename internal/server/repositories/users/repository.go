package users

import (
	"context"

	"github.com/dmitrijs2005/idgate/internal/server/models"
)

// Repository is the credential store. Lookups return common.ErrorNotFound
// when no user matches; Create returns common.ErrorConflict on a duplicate
// email.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	MarkVerified(ctx context.Context, id string, proofReference string) error
}
