// Package repomanager hands out repositories bound to a database handle and
// owns schema migrations. The PostgreSQL manager is used when a DSN is
// configured; the in-memory manager otherwise.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/accountsvc/internal/dbx"
	"github.com/dmitrijs2005/accountsvc/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
}
