package mongo

import (
	"context"
	"encoding/json"
	"errors"
	"maps"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/sessionkit/pkg/session"
)

// document is the stored shape. The record is kept as a JSON string so the
// cookie keeps its wire format; expires drives the TTL index.
type document struct {
	ID      string     `bson:"_id"`
	Session string     `bson:"session"`
	Expires *time.Time `bson:"expires,omitempty"`
}

// Store persists sessions in one collection. A TTL index on expires lets
// the server remove expired documents; reads also skip them in the
// meantime, since the TTL monitor only runs about once a minute.
type Store struct {
	session.Readiness

	coll *mongo.Collection

	stop context.CancelFunc
	wg   sync.WaitGroup
}

// NewStore uses collection in db and creates the TTL index.
func NewStore(ctx context.Context, db *mongo.Database, collection string) (*Store, error) {
	coll := db.Collection(collection)
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.M{"expires": 1},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	if err != nil {
		return nil, err
	}
	return &Store{coll: coll}, nil
}

// NewStoreFromConfig creates the store in cfg.Database and cfg.Collection
// and starts the readiness monitor.
func NewStoreFromConfig(ctx context.Context, client *mongo.Client, cfg Config) (*Store, error) {
	s, err := NewStore(ctx, client.Database(cfg.Database), cfg.Collection)
	if err != nil {
		return nil, err
	}
	if cfg.ReadinessInterval > 0 {
		s.StartMonitor(cfg.ReadinessInterval)
	}
	return s, nil
}

// StartMonitor pings the server every interval until Close.
func (s *Store) StartMonitor(interval time.Duration) {
	if s.stop != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.stop = cancel
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		session.Monitor(ctx, &s.Readiness, interval, Healthcheck(s.coll.Database().Client()))
	}()
}

// Close stops the monitor. It does not disconnect the client.
func (s *Store) Close() error {
	if s.stop != nil {
		s.stop()
		s.wg.Wait()
	}
	return nil
}

func liveFilter(extra bson.M) bson.M {
	f := bson.M{"$or": bson.A{
		bson.M{"expires": nil},
		bson.M{"expires": bson.M{"$gt": time.Now()}},
	}}
	maps.Copy(f, extra)
	return f
}

// Get returns (nil, nil) for missing and expired documents.
func (s *Store) Get(ctx context.Context, id string) (*session.Data, error) {
	if !s.Ready() {
		return nil, session.ErrStoreUnavailable
	}

	var doc document
	err := s.coll.FindOne(ctx, liveFilter(bson.M{"_id": id})).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decode(doc.Session)
}

// Set upserts the document.
func (s *Store) Set(ctx context.Context, id string, data *session.Data) error {
	if !s.Ready() {
		return session.ErrStoreUnavailable
	}
	if data == nil {
		data = &session.Data{}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	doc := document{ID: id, Session: string(raw), Expires: data.Cookie.Expires()}
	_, err = s.coll.ReplaceOne(ctx, bson.M{"_id": id}, doc, options.Replace().SetUpsert(true))
	return err
}

// Touch moves the expiry of a live document forward.
func (s *Store) Touch(ctx context.Context, id string, data *session.Data) error {
	if !s.Ready() {
		return session.ErrStoreUnavailable
	}
	if data == nil {
		return nil
	}
	exp := data.Cookie.Expires()
	if exp == nil {
		return nil
	}
	_, err := s.coll.UpdateOne(ctx, liveFilter(bson.M{"_id": id}), bson.M{"$set": bson.M{"expires": *exp}})
	return err
}

// Destroy deletes the document.
func (s *Store) Destroy(ctx context.Context, id string) error {
	if !s.Ready() {
		return session.ErrStoreUnavailable
	}
	_, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// All returns every live document keyed by id.
func (s *Store) All(ctx context.Context) (map[string]*session.Data, error) {
	cur, err := s.coll.Find(ctx, liveFilter(nil))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make(map[string]*session.Data)
	for cur.Next(ctx) {
		var doc document
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		data, err := decode(doc.Session)
		if err != nil {
			return nil, err
		}
		out[doc.ID] = data
	}
	return out, cur.Err()
}

// Len counts live documents.
func (s *Store) Len(ctx context.Context) (int, error) {
	n, err := s.coll.CountDocuments(ctx, liveFilter(nil))
	return int(n), err
}

// Clear deletes every document in the collection.
func (s *Store) Clear(ctx context.Context) error {
	_, err := s.coll.DeleteMany(ctx, bson.M{})
	return err
}

func decode(raw string) (*session.Data, error) {
	var data session.Data
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, errors.Join(ErrCorruptRecord, err)
	}
	return &data, nil
}
