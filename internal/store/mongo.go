package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"gdelt-trends/internal/trend"
)

// MongoStore is the Store implementation backed by a `trends` collection,
// mirroring the teacher's db.Init / repositories.*Repository shape: a
// long-lived *mongo.Database handle, a compound unique index on the upsert
// key, and whole-document ReplaceOne upserts.
type MongoStore struct {
	col *mongo.Collection
}

// NewMongoStore wraps an already-connected database handle. Call
// EnsureIndexes once at startup.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{col: db.Collection("trends")}
}

// EnsureIndexes creates the unique (type, date, category) index that backs
// invariant 1 of §3 (at most one persisted Trend per key).
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "type", Value: 1},
			{Key: "date", Value: 1},
			{Key: "category", Value: 1},
		},
		Options: options.Index().SetName("uniq_type_date_category").SetUnique(true),
	})
	return err
}

type keywordDoc struct {
	Word      string   `bson:"word"`
	Count     int      `bson:"count"`
	Score     *int     `bson:"score,omitempty"`
	Documents []string `bson:"documents,omitempty"`
}

type trendDoc struct {
	Timestamp time.Time    `bson:"timestamp"`
	Type      string       `bson:"type"`
	Date      string       `bson:"date"`
	Category  string       `bson:"category"`
	Keywords  []keywordDoc `bson:"keywords"`
}

func toDoc(t trend.Trend) trendDoc {
	kws := make([]keywordDoc, len(t.Keywords))
	for i, k := range t.Keywords {
		kws[i] = keywordDoc{Word: k.Word, Count: k.Count, Score: k.Score, Documents: k.DocumentIDs()}
	}
	return trendDoc{
		Timestamp: t.Timestamp,
		Type:      string(t.Type),
		Date:      t.Date,
		Category:  string(t.Category),
		Keywords:  kws,
	}
}

func fromDoc(d trendDoc) trend.Trend {
	kws := make([]trend.Keyword, len(d.Keywords))
	for i, k := range d.Keywords {
		kw := trend.Keyword{Word: k.Word, Count: k.Count, Score: k.Score}
		if len(k.Documents) > 0 {
			kw.Documents = make(map[string]bool, len(k.Documents))
			for _, id := range k.Documents {
				kw.Documents[id] = true
			}
		}
		kws[i] = kw
	}
	return trend.Trend{
		Timestamp: d.Timestamp,
		Type:      trend.Type(d.Type),
		Date:      d.Date,
		Category:  trend.Category(d.Category),
		Keywords:  kws,
	}
}

// UpsertTrend replaces the whole document at (type, date, category),
// creating it if absent.
func (s *MongoStore) UpsertTrend(ctx context.Context, t trend.Trend) error {
	filter := bson.M{"type": string(t.Type), "date": t.Date, "category": string(t.Category)}
	_, err := s.col.ReplaceOne(ctx, filter, toDoc(t), options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert trend %s/%s/%s: %w", t.Type, t.Date, t.Category, err)
	}
	return nil
}

func (s *MongoStore) FindTrend(ctx context.Context, key trend.Key) (*trend.Trend, error) {
	filter := bson.M{"type": string(key.Type), "date": key.Date, "category": string(key.Category)}
	var d trendDoc
	if err := s.col.FindOne(ctx, filter).Decode(&d); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("find trend %s/%s/%s: %w", key.Type, key.Date, key.Category, err)
	}
	out := fromDoc(d)
	return &out, nil
}

func (s *MongoStore) FindTrends(ctx context.Context, q Query) ([]trend.Trend, error) {
	filter := bson.M{"type": string(q.Type)}
	if q.Category != "" && q.Category != trend.CategoryAll {
		filter["category"] = string(q.Category)
	}
	switch {
	case len(q.Dates) > 0:
		filter["date"] = bson.M{"$in": q.Dates}
	case q.DateFrom != "" || q.DateTo != "":
		dateFilter := bson.M{}
		if q.DateFrom != "" {
			dateFilter["$gte"] = q.DateFrom
		}
		if q.DateTo != "" {
			dateFilter["$lt"] = q.DateTo
		}
		filter["date"] = dateFilter
	}

	findOpts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	if q.Limit > 0 {
		findOpts.SetLimit(int64(q.Limit))
	}

	cur, err := s.col.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("find trends: %w", err)
	}
	defer cur.Close(ctx)

	out := make([]trend.Trend, 0)
	for cur.Next(ctx) {
		var d trendDoc
		if err := cur.Decode(&d); err != nil {
			return nil, fmt.Errorf("decode trend: %w", err)
		}
		out = append(out, fromDoc(d))
	}
	return out, cur.Err()
}

var (
	clientOnce sync.Once
	client     *mongo.Client
	database   *mongo.Database
)

// Connect establishes the process-wide Mongo client and database handle,
// mirroring the teacher's db.Init: single connect, ping to verify, panic-free
// error return for the caller to handle at startup (the only place fatal
// errors are allowed, per §7).
func Connect(ctx context.Context, uri, dbName string) (*mongo.Database, error) {
	var connErr error
	clientOnce.Do(func() {
		cl, err := mongo.NewClient(options.Client().ApplyURI(uri))
		if err != nil {
			connErr = err
			return
		}
		cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := cl.Connect(cctx); err != nil {
			connErr = err
			return
		}
		if err := cl.Ping(cctx, readpref.Primary()); err != nil {
			connErr = err
			return
		}
		client = cl
		database = cl.Database(dbName)
	})
	if connErr != nil {
		return nil, connErr
	}
	return database, nil
}

func Client() *mongo.Client { return client }

// Ping verifies connectivity to the primary, used by the health check.
func (s *MongoStore) Ping(ctx context.Context) error {
	if client == nil {
		return fmt.Errorf("mongo client not connected")
	}
	return client.Ping(ctx, readpref.Primary())
}
