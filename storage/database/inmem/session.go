package inmemdb

import (
	"context"
	"time"

	"github.com/trezcool/dailies/core/access"
)

type sessionStore struct {
	db *sessionTable
}

var _ access.SessionStore = (*sessionStore)(nil) // interface compliance check

func NewSessionStore(db *DB) *sessionStore {
	return &sessionStore{db: db.session}
}

func (store *sessionStore) Get(_ context.Context, id string) (access.Session, error) {
	store.db.RLock()
	sess, ok := store.db.table[id]
	store.db.RUnlock()

	if !ok {
		return access.Session{}, access.ErrSessionNotFound
	}
	if sess.IsExpired(time.Now()) {
		store.db.Lock()
		delete(store.db.table, id)
		store.db.Unlock()
		return access.Session{}, access.ErrSessionNotFound
	}
	return sess, nil
}

func (store *sessionStore) Save(_ context.Context, sess access.Session) error {
	store.db.Lock()
	defer store.db.Unlock()

	store.db.table[sess.ID] = sess
	return nil
}

func (store *sessionStore) Delete(_ context.Context, id string) error {
	store.db.Lock()
	defer store.db.Unlock()

	delete(store.db.table, id)
	return nil
}
