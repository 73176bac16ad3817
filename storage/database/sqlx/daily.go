package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/dailies/core"
	"github.com/trezcool/dailies/core/daily"
)

const (
	insertRecordQuery = `INSERT INTO responses (id, email, date, task_description, progress_status, obstacle_description, next_steps, additional_comments, created_at)
VALUES (:id, :email, :date, :task_description, :progress_status, :obstacle_description, :next_steps, :additional_comments, :created_at)`
	selectRecordsQuery = `SELECT id, email, date, task_description, progress_status, obstacle_description, next_steps, additional_comments, created_at FROM responses`
)

type recordRow struct {
	ID                  string    `db:"id"`
	Email               string    `db:"email"`
	Date                core.Date `db:"date"`
	TaskDescription     string    `db:"task_description"`
	Progress            string    `db:"progress_status"`
	ObstacleDescription string    `db:"obstacle_description"`
	NextSteps           string    `db:"next_steps"`
	AdditionalComments  string    `db:"additional_comments"`
	CreatedAt           time.Time `db:"created_at"`
}

func newRecordRow(rec daily.Record) recordRow {
	return recordRow{
		ID:                  rec.ID,
		Email:               rec.Email,
		Date:                rec.Date,
		TaskDescription:     rec.TaskDescription,
		Progress:            string(rec.Progress),
		ObstacleDescription: rec.ObstacleDescription,
		NextSteps:           rec.NextSteps,
		AdditionalComments:  rec.AdditionalComments,
		CreatedAt:           rec.CreatedAt,
	}
}

func (row recordRow) record() daily.Record {
	prog := daily.Progress(row.Progress)
	if p, ok := daily.ParseProgress(row.Progress); ok {
		prog = p
	}
	return daily.Record{
		ID:                  row.ID,
		Email:               row.Email,
		Date:                row.Date,
		TaskDescription:     row.TaskDescription,
		Progress:            prog,
		ObstacleDescription: row.ObstacleDescription,
		NextSteps:           row.NextSteps,
		AdditionalComments:  row.AdditionalComments,
		CreatedAt:           row.CreatedAt.UTC(),
	}
}

type dailyRepository struct {
	db *sqlx.DB
}

var _ daily.Repository = (*dailyRepository)(nil) // interface compliance check

func NewDailyRepository(db *sqlx.DB) *dailyRepository {
	return &dailyRepository{db: db}
}

func (repo *dailyRepository) CreateRecord(ctx context.Context, rec daily.Record) (daily.Record, error) {
	if _, err := sqlx.NamedExecContext(ctx, repo.db, insertRecordQuery, newRecordRow(rec)); err != nil {
		return daily.Record{}, errors.Wrap(err, "inserting response")
	}
	return rec, nil
}

func (repo *dailyRepository) QueryRecords(ctx context.Context, filter daily.QueryFilter) ([]daily.Record, error) {
	query, args := buildRecordsQuery(filter)

	var rows []recordRow
	if err := sqlx.SelectContext(ctx, repo.db, &rows, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "selecting responses")
	}
	recs := make([]daily.Record, 0, len(rows))
	for _, row := range rows {
		recs = append(recs, row.record())
	}
	return recs, nil
}

func buildRecordsQuery(filter daily.QueryFilter) (string, []interface{}) {
	var (
		conds []string
		args  []interface{}
	)
	if filter.Emails != nil {
		conds = append(conds, "email = ANY(?)")
		args = append(args, pq.Array(filter.Emails))
	}
	if !filter.Range.From.IsZero() {
		conds = append(conds, "date >= ?")
		args = append(args, filter.Range.From)
	}
	if !filter.Range.To.IsZero() {
		conds = append(conds, "date <= ?")
		args = append(args, filter.Range.To)
	}

	query := selectRecordsQuery
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	return query + " ORDER BY date, created_at", args
}
