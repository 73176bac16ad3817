package redisstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"github.com/trezcool/dailies/core/access"
)

const keyPrefix = "dailies:session:"

// Open parses a redis:// URL and pings the server.
func Open(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "parsing redis url")
	}
	client := redis.NewClient(opts)
	if err = client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return client, nil
}

type sessionStore struct {
	client *redis.Client
}

var _ access.SessionStore = (*sessionStore)(nil) // interface compliance check

func NewSessionStore(client *redis.Client) *sessionStore {
	return &sessionStore{client: client}
}

func (store *sessionStore) Get(ctx context.Context, id string) (access.Session, error) {
	b, err := store.client.Get(ctx, keyPrefix+id).Bytes()
	if err == redis.Nil {
		return access.Session{}, access.ErrSessionNotFound
	}
	if err != nil {
		return access.Session{}, errors.Wrap(err, "getting session")
	}

	var sess access.Session
	if err = json.Unmarshal(b, &sess); err != nil {
		return access.Session{}, errors.Wrap(err, "decoding session")
	}
	return sess, nil
}

// Save stores the session until its ExpiresAt.
func (store *sessionStore) Save(ctx context.Context, sess access.Session) error {
	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		return store.Delete(ctx, sess.ID)
	}
	b, err := json.Marshal(sess)
	if err != nil {
		return errors.Wrap(err, "encoding session")
	}
	return errors.Wrap(store.client.Set(ctx, keyPrefix+sess.ID, b, ttl).Err(), "saving session")
}

func (store *sessionStore) Delete(ctx context.Context, id string) error {
	return errors.Wrap(store.client.Del(ctx, keyPrefix+id).Err(), "deleting session")
}
