package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/dailies/core/directory"
)

const (
	listEntriesQuery = `SELECT email, group_name, cohort FROM emails ORDER BY email`
	existsQuery      = `SELECT EXISTS(SELECT 1 FROM emails WHERE email = $1)`
	upsertEntryQuery = `INSERT INTO emails (email, group_name, cohort) VALUES ($1, $2, $3)
ON CONFLICT (email) DO UPDATE SET group_name = EXCLUDED.group_name, cohort = EXCLUDED.cohort`
)

type entryRow struct {
	Email  string      `db:"email"`
	Group  null.String `db:"group_name"`
	Cohort null.String `db:"cohort"`
}

func (row entryRow) entry() directory.Entry {
	return directory.Entry{Email: row.Email, Group: row.Group.String, Cohort: row.Cohort.String}
}

type directoryRepository struct {
	db *sqlx.DB
}

var _ directory.Repository = (*directoryRepository)(nil) // interface compliance check

func NewDirectoryRepository(db *sqlx.DB) *directoryRepository {
	return &directoryRepository{db: db}
}

func (repo *directoryRepository) ListEntries(ctx context.Context) ([]directory.Entry, error) {
	var rows []entryRow
	if err := sqlx.SelectContext(ctx, repo.db, &rows, listEntriesQuery); err != nil {
		return nil, errors.Wrap(err, "selecting emails")
	}
	entries := make([]directory.Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, row.entry())
	}
	return entries, nil
}

func (repo *directoryRepository) Exists(ctx context.Context, email string) (bool, error) {
	var exists bool
	if err := sqlx.GetContext(ctx, repo.db, &exists, existsQuery, email); err != nil {
		return false, errors.Wrap(err, "checking email")
	}
	return exists, nil
}

// UpsertEntries writes all entries in one transaction; an existing email gets its labels replaced.
func (repo *directoryRepository) UpsertEntries(ctx context.Context, entries ...directory.Entry) (n int, err error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, e := range entries {
		_, err = tx.ExecContext(ctx, upsertEntryQuery, e.Email, null.NewString(e.Group, e.Group != ""), null.NewString(e.Cohort, e.Cohort != ""))
		if err != nil {
			return 0, errors.Wrapf(err, "upserting %s", e.Email)
		}
		n++
	}
	if err = tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "committing transaction")
	}
	return n, nil
}
