package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/dailies/core/daily"
)

type dailyRepository struct {
	db *dailyTable
}

var _ daily.Repository = (*dailyRepository)(nil) // interface compliance check

func NewDailyRepository(db *DB) *dailyRepository {
	return &dailyRepository{db: db.daily}
}

func (repo *dailyRepository) CreateRecord(_ context.Context, rec daily.Record) (daily.Record, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.rows = append(repo.db.rows, rec)
	return rec, nil
}

func (repo *dailyRepository) QueryRecords(_ context.Context, filter daily.QueryFilter) ([]daily.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var emails map[string]struct{}
	if filter.Emails != nil {
		emails = make(map[string]struct{}, len(filter.Emails))
		for _, email := range filter.Emails {
			emails[email] = struct{}{}
		}
	}

	recs := make([]daily.Record, 0, len(repo.db.rows))
	for _, rec := range repo.db.rows {
		if emails != nil {
			if _, ok := emails[rec.Email]; !ok {
				continue
			}
		}
		if !filter.Range.Contains(rec.Date) {
			continue
		}
		recs = append(recs, rec)
	}
	// same order as the other stores: by date, then creation time
	sort.SliceStable(recs, func(i, j int) bool {
		if !recs[i].Date.Equal(recs[j].Date) {
			return recs[i].Date.Before(recs[j].Date)
		}
		return recs[i].CreatedAt.Before(recs[j].CreatedAt)
	})
	return recs, nil
}
