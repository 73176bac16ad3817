package mongorepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/trezcool/dailies/core"
)

const (
	emailsCollection    = "emails"
	responsesCollection = "responses"
)

// Connect opens a client on conf.Database.MongoURI and pings the primary.
func Connect(ctx context.Context, conf *core.Config) (*mongo.Client, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(conf.Database.MongoURI).SetConnectTimeout(10 * time.Second))
	if err != nil {
		return nil, errors.Wrap(err, "connecting to mongodb")
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err = client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(err, "pinging mongodb")
	}
	return client, nil
}

func Database(client *mongo.Client, conf *core.Config) *mongo.Database {
	return client.Database(conf.Database.MongoDatabase)
}
