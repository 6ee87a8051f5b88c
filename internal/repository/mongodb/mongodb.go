// Package mongodb implements the repository interfaces on MongoDB.
//
// COLLECTIONS:
//
//	users   unique index on email
//	events  registeredUsers holds user ids in registration order
//	news
//
// IDS:
// New documents get a fresh ObjectID, stored in _id as its 24-char hex
// string. Keeping it a string means the model package needs no Mongo types
// and the same id round-trips unchanged through JSON. An id that is not a
// valid ObjectID hex can't exist in the store, so lookups on one return
// NotFound without a round trip.
//
// TIMESTAMPS:
// BSON dates have millisecond precision. CreatedAt is truncated to the
// millisecond before insert so the value handed back to the caller equals
// what a later read returns.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sakif/alumni-network/internal/apperror"
	"github.com/sakif/alumni-network/internal/repository"
	"github.com/sakif/alumni-network/internal/validation"
)

const (
	usersCollection  = "users"
	eventsCollection = "events"
	newsCollection   = "news"

	connectTimeout = 10 * time.Second
)

// compile-time check that *Store satisfies repository.Store
var _ repository.Store = (*Store)(nil)

// Store owns one database handle and hands out the three repositories.
type Store struct {
	client *mongo.Client // nil when built with NewStore
	db     *mongo.Database

	users  *UserRepo
	events *EventRepo
	news   *NewsRepo
}

// Connect dials uri, pings the server and ensures the indexes exist. The
// whole sequence is bounded by a 10 second timeout.
func Connect(ctx context.Context, uri, database string, v *validation.Validator) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongodb: connecting: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongodb: pinging: %w", err)
	}

	s := NewStore(client.Database(database), v)
	s.client = client

	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

// NewStore wraps an existing database handle. It does not create indexes.
func NewStore(db *mongo.Database, v *validation.Validator) *Store {
	now := func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) }
	return &Store{
		db:     db,
		users:  &UserRepo{coll: db.Collection(usersCollection), validate: v, now: now},
		events: &EventRepo{coll: db.Collection(eventsCollection), validate: v, now: now},
		news:   &NewsRepo{coll: db.Collection(newsCollection), validate: v, now: now},
	}
}

// EnsureIndexes creates the unique email index. It is idempotent.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.db.Collection(usersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("email_unique"),
	})
	if err != nil {
		return fmt.Errorf("mongodb: creating email index: %w", err)
	}
	return nil
}

func (s *Store) Users() repository.UserRepository   { return s.users }
func (s *Store) Events() repository.EventRepository { return s.events }
func (s *Store) News() repository.NewsRepository    { return s.news }

// Ping checks the server is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Client().Ping(ctx, nil)
}

// Close disconnects the client if this Store opened it.
func (s *Store) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

// newID returns a fresh ObjectID in hex form.
func newID() string {
	return primitive.NewObjectID().Hex()
}

// validID reports whether id could have been produced by newID.
func validID(id string) bool {
	return primitive.IsValidObjectID(id)
}

// notFoundOr maps mongo.ErrNoDocuments to apperror.NotFound and wraps
// anything else with the operation name.
func notFoundOr(err error, resource, id, op string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return apperror.NotFound(resource, id)
	}
	return fmt.Errorf("mongodb: %s %s %s: %w", op, resource, id, err)
}
