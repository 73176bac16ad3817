package inmemdb

import (
	"context"

	"github.com/trezcool/dailies/core/directory"
)

type directoryRepository struct {
	db *directoryTable
}

var _ directory.Repository = (*directoryRepository)(nil) // interface compliance check

func NewDirectoryRepository(db *DB) *directoryRepository {
	return &directoryRepository{db: db.directory}
}

func (repo *directoryRepository) ListEntries(_ context.Context) ([]directory.Entry, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	entries := make([]directory.Entry, 0, len(repo.db.order))
	for _, email := range repo.db.order {
		entries = append(entries, repo.db.table[email])
	}
	return entries, nil
}

func (repo *directoryRepository) Exists(_ context.Context, email string) (bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	_, ok := repo.db.table[email]
	return ok, nil
}

func (repo *directoryRepository) UpsertEntries(_ context.Context, entries ...directory.Entry) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, e := range entries {
		if _, ok := repo.db.table[e.Email]; !ok {
			repo.db.order = append(repo.db.order, e.Email)
		}
		repo.db.table[e.Email] = e
	}
	return len(entries), nil
}
