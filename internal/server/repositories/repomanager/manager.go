package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/idgate/internal/dbx"
	"github.com/dmitrijs2005/idgate/internal/server/repositories/documents"
	"github.com/dmitrijs2005/idgate/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to either the pool or a
// transaction, so services can choose per call.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Documents(db dbx.DBTX) documents.Repository
}
