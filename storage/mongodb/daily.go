package mongorepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/trezcool/dailies/core"
	"github.com/trezcool/dailies/core/daily"
)

// responseDoc is the shape of the "responses" documents.
// Old documents have an ObjectID _id, no created_at, and a progress label instead of a value.
type responseDoc struct {
	ID                  interface{}   `bson:"_id,omitempty"`
	Email               string        `bson:"email"`
	Date                bson.RawValue `bson:"data"`
	TaskDescription     string        `bson:"tarefa_realizada"`
	Progress            string        `bson:"progresso"`
	ObstacleDescription string        `bson:"descricao_obstaculos"`
	NextSteps           string        `bson:"proximas_etapas"`
	AdditionalComments  string        `bson:"comentarios_adicionais"`
	CreatedAt           time.Time     `bson:"created_at,omitempty"`
}

// newResponseDoc stores the date as an ISO string, the way the first version of the form did.
func newResponseDoc(rec daily.Record) bson.D {
	doc := bson.D{
		{Key: "_id", Value: rec.ID},
		{Key: "email", Value: rec.Email},
	}
	if !rec.Date.IsZero() {
		doc = append(doc, bson.E{Key: "data", Value: rec.Date.String()})
	}
	return append(doc,
		bson.E{Key: "tarefa_realizada", Value: rec.TaskDescription},
		bson.E{Key: "progresso", Value: string(rec.Progress)},
		bson.E{Key: "descricao_obstaculos", Value: rec.ObstacleDescription},
		bson.E{Key: "proximas_etapas", Value: rec.NextSteps},
		bson.E{Key: "comentarios_adicionais", Value: rec.AdditionalComments},
		bson.E{Key: "created_at", Value: rec.CreatedAt},
	)
}

func (doc responseDoc) record() daily.Record {
	prog := daily.Progress(doc.Progress)
	if p, ok := daily.ParseProgress(doc.Progress); ok {
		prog = p
	}
	return daily.Record{
		ID:                  docID(doc.ID),
		Email:               core.CleanString(doc.Email),
		Date:                docDate(doc.Date),
		TaskDescription:     doc.TaskDescription,
		Progress:            prog,
		ObstacleDescription: doc.ObstacleDescription,
		NextSteps:           doc.NextSteps,
		AdditionalComments:  doc.AdditionalComments,
		CreatedAt:           doc.CreatedAt.UTC(),
	}
}

func docID(id interface{}) string {
	switch v := id.(type) {
	case string:
		return v
	case bson.ObjectID:
		return v.Hex()
	default:
		return ""
	}
}

// docDate reads "data" as an ISO string or a BSON datetime; anything else is the zero Date.
func docDate(rv bson.RawValue) core.Date {
	if s, ok := rv.StringValueOK(); ok {
		d, err := core.ParseDate(s)
		if err != nil {
			return core.Date{}
		}
		return d
	}
	if ms, ok := rv.DateTimeOK(); ok {
		return core.DateOf(time.UnixMilli(ms).UTC())
	}
	return core.Date{}
}

func recordsFilter(filter daily.QueryFilter) bson.D {
	query := bson.D{}
	if filter.Emails != nil {
		query = append(query, bson.E{Key: "email", Value: bson.D{{Key: "$in", Value: filter.Emails}}})
	}
	var rng bson.D
	if !filter.Range.From.IsZero() {
		rng = append(rng, bson.E{Key: "$gte", Value: filter.Range.From.String()})
	}
	if !filter.Range.To.IsZero() {
		rng = append(rng, bson.E{Key: "$lte", Value: filter.Range.To.String()})
	}
	if rng != nil {
		query = append(query, bson.E{Key: "data", Value: rng})
	}
	return query
}

type dailyRepository struct {
	coll *mongo.Collection
}

var _ daily.Repository = (*dailyRepository)(nil) // interface compliance check

func NewDailyRepository(db *mongo.Database) *dailyRepository {
	return &dailyRepository{coll: db.Collection(responsesCollection)}
}

func (repo *dailyRepository) CreateRecord(ctx context.Context, rec daily.Record) (daily.Record, error) {
	if _, err := repo.coll.InsertOne(ctx, newResponseDoc(rec)); err != nil {
		return daily.Record{}, errors.Wrap(err, "inserting response")
	}
	return rec, nil
}

// QueryRecords matches the date range on the ISO string; datetime-typed dates are only returned by unbounded queries.
func (repo *dailyRepository) QueryRecords(ctx context.Context, filter daily.QueryFilter) ([]daily.Record, error) {
	opts := options.Find().SetSort(bson.D{{Key: "data", Value: 1}, {Key: "created_at", Value: 1}})
	cur, err := repo.coll.Find(ctx, recordsFilter(filter), opts)
	if err != nil {
		return nil, errors.Wrap(err, "finding responses")
	}
	var docs []responseDoc
	if err = cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "decoding responses")
	}

	recs := make([]daily.Record, 0, len(docs))
	for _, doc := range docs {
		recs = append(recs, doc.record())
	}
	return recs, nil
}
