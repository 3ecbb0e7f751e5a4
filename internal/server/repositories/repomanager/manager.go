package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/bountyboard/internal/dbx"
	"github.com/dmitrijs2005/bountyboard/internal/server/repositories/challenges"
	"github.com/dmitrijs2005/bountyboard/internal/server/repositories/submissions"
	"github.com/dmitrijs2005/bountyboard/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to either a pool or a
// transaction, so services can compose several of them under dbx.WithTx.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Challenges(db dbx.DBTX) challenges.Repository
	Submissions(db dbx.DBTX) submissions.Repository
}
