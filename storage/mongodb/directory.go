package mongorepos

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/trezcool/dailies/core/directory"
)

// entryDoc keeps the field names of the documents written by the first version of the app.
type entryDoc struct {
	Email  string `bson:"email"`
	Group  string `bson:"grupo,omitempty"`
	Cohort string `bson:"turma,omitempty"`
}

func (doc entryDoc) entry() directory.Entry {
	return directory.Entry{Email: doc.Email, Group: doc.Group, Cohort: doc.Cohort}
}

type directoryRepository struct {
	coll *mongo.Collection
}

var _ directory.Repository = (*directoryRepository)(nil) // interface compliance check

func NewDirectoryRepository(db *mongo.Database) *directoryRepository {
	return &directoryRepository{coll: db.Collection(emailsCollection)}
}

func (repo *directoryRepository) ListEntries(ctx context.Context) ([]directory.Entry, error) {
	cur, err := repo.coll.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "email", Value: 1}}))
	if err != nil {
		return nil, errors.Wrap(err, "finding emails")
	}
	var docs []entryDoc
	if err = cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "decoding emails")
	}

	entries := make([]directory.Entry, 0, len(docs))
	for _, doc := range docs {
		entries = append(entries, doc.entry())
	}
	return entries, nil
}

func (repo *directoryRepository) Exists(ctx context.Context, email string) (bool, error) {
	n, err := repo.coll.CountDocuments(ctx, bson.D{{Key: "email", Value: email}}, options.Count().SetLimit(1))
	if err != nil {
		return false, errors.Wrap(err, "counting emails")
	}
	return n > 0, nil
}

func (repo *directoryRepository) UpsertEntries(ctx context.Context, entries ...directory.Entry) (int, error) {
	n := 0
	for _, e := range entries {
		update := bson.D{{Key: "$set", Value: bson.D{
			{Key: "email", Value: e.Email},
			{Key: "grupo", Value: e.Group},
			{Key: "turma", Value: e.Cohort},
		}}}
		_, err := repo.coll.UpdateOne(ctx, bson.D{{Key: "email", Value: e.Email}}, update, options.UpdateOne().SetUpsert(true))
		if err != nil {
			return n, errors.Wrapf(err, "upserting %s", e.Email)
		}
		n++
	}
	return n, nil
}
