package message

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sobrus/chatrelay/internal/config"
)

// ErrNotConfigured is returned by read operations when the store
// connection target, database, or collection is missing.
var ErrNotConfigured = errors.New("conversation store not configured")

// Store persists and reads conversation messages in MongoDB.
//
// Every operation acquires its own client and releases it on all exit
// paths. The hosting runtime may recycle its execution substrate
// between invocations, and a cached connection bound to a defunct
// substrate would fail silently or hang.
type Store struct {
	cfg    config.MongoConfig
	logger *slog.Logger
}

// NewStore creates a conversation store.
func NewStore(log *slog.Logger, cfg config.MongoConfig) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		cfg:    cfg,
		logger: log.With(slog.String("service", "store")),
	}
}

// Configured reports whether persistence is fully configured.
func (s *Store) Configured() bool {
	return s.cfg.Configured()
}

// Append writes one message document, best-effort. A missing store
// configuration is a silent no-op and a write failure is logged and
// swallowed: persistence must never prevent the user from receiving a
// reply.
func (s *Store) Append(ctx context.Context, input AppendInput) {
	if !s.cfg.Configured() {
		return
	}
	err := s.withCollection(ctx, func(coll *mongo.Collection) error {
		_, err := coll.InsertOne(ctx, NewDocument(input))
		return err
	})
	if err != nil {
		s.logger.Warn("skipping message insert",
			slog.String("user_id", input.UserID),
			slog.String("sender", string(input.Sender)),
			slog.Any("error", err))
	}
}

// ListNewest returns up to limit messages for a user ordered newest
// first, skipping the given number of messages from the top.
func (s *Store) ListNewest(ctx context.Context, userID string, limit, skip int) ([]Document, error) {
	var docs []Document
	err := s.withCollection(ctx, func(coll *mongo.Collection) error {
		opts := options.Find().
			SetSort(bson.D{{Key: "timestamp", Value: -1}}).
			SetSkip(int64(skip)).
			SetLimit(int64(limit))
		cursor, err := coll.Find(ctx, bson.M{"user_id": userID}, opts)
		if err != nil {
			return err
		}
		defer cursor.Close(ctx)
		return cursor.All(ctx, &docs)
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// CountByUser returns the total number of messages recorded for a user.
func (s *Store) CountByUser(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := s.withCollection(ctx, func(coll *mongo.Collection) error {
		var countErr error
		count, countErr = coll.CountDocuments(ctx, bson.M{"user_id": userID})
		return countErr
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// DistinctUsers returns the distinct user_id values in the store,
// sorted ascending and paginated by skip/limit.
func (s *Store) DistinctUsers(ctx context.Context, limit, skip int) ([]string, error) {
	var users []string
	err := s.withCollection(ctx, func(coll *mongo.Collection) error {
		pipeline := mongo.Pipeline{
			bson.D{{Key: "$group", Value: bson.D{{Key: "_id", Value: "$user_id"}}}},
			bson.D{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
			bson.D{{Key: "$skip", Value: int64(skip)}},
			bson.D{{Key: "$limit", Value: int64(limit)}},
		}
		cursor, err := coll.Aggregate(ctx, pipeline)
		if err != nil {
			return err
		}
		defer cursor.Close(ctx)
		var rows []struct {
			UserID string `bson:"_id"`
		}
		if err := cursor.All(ctx, &rows); err != nil {
			return err
		}
		users = make([]string, 0, len(rows))
		for _, row := range rows {
			users = append(users, row.UserID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}

// Newest returns a user's most recent message, if any.
func (s *Store) Newest(ctx context.Context, userID string) (Document, bool, error) {
	return s.findOneSorted(ctx, userID, -1)
}

// Oldest returns a user's first recorded message, if any.
func (s *Store) Oldest(ctx context.Context, userID string) (Document, bool, error) {
	return s.findOneSorted(ctx, userID, 1)
}

func (s *Store) findOneSorted(ctx context.Context, userID string, direction int) (Document, bool, error) {
	var doc Document
	found := false
	err := s.withCollection(ctx, func(coll *mongo.Collection) error {
		opts := options.FindOne().SetSort(bson.D{{Key: "timestamp", Value: direction}})
		err := coll.FindOne(ctx, bson.M{"user_id": userID}, opts).Decode(&doc)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	if err != nil {
		return Document{}, false, err
	}
	return doc, found, nil
}

// withCollection runs fn against a freshly acquired collection handle,
// disconnecting the client on every exit path.
func (s *Store) withCollection(ctx context.Context, fn func(coll *mongo.Collection) error) error {
	if !s.cfg.Configured() {
		return ErrNotConfigured
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(s.cfg.URI))
	if err != nil {
		return fmt.Errorf("connect store: %w", err)
	}
	defer func() {
		if err := client.Disconnect(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("store disconnect failed", slog.Any("error", err))
		}
	}()
	return fn(client.Database(s.cfg.Database).Collection(s.cfg.Collection))
}
