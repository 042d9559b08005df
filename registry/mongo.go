package registry

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// DefaultCollection is the collection name used when none is configured.
const DefaultCollection = "sessions"

// Mongo is a [Registry] backed by a MongoDB collection.
//
// The collection carries five indexes, created by [Mongo.EnsureIndexes]:
//
//	sessionId            unique
//	userId
//	expiresAt            TTL, expireAfterSeconds=0
//	(userId, sessionId)
//	(userId, platform)   unique
//
// The TTL index is the primary expiry path. The server's TTL monitor only
// runs about once a minute, and DeleteExpired covers that gap.
type Mongo struct {
	coll *mongo.Collection
}

// NewMongo wraps coll. Call EnsureIndexes once at startup.
func NewMongo(coll *mongo.Collection) *Mongo {
	return &Mongo{coll: coll}
}

// IndexModels returns the index set required by the slot and expiry
// semantics.
func IndexModels() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "sessionId", Value: 1}},
			Options: options.Index().SetName("sessionId_unique").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "userId", Value: 1}},
			Options: options.Index().SetName("userId"),
		},
		{
			Keys:    bson.D{{Key: "expiresAt", Value: 1}},
			Options: options.Index().SetName("expiresAt_ttl").SetExpireAfterSeconds(0),
		},
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "sessionId", Value: 1}},
			Options: options.Index().SetName("userId_sessionId"),
		},
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "platform", Value: 1}},
			Options: options.Index().SetName("userId_platform_unique").SetUnique(true),
		},
	}
}

// EnsureIndexes creates the registry indexes. It is safe to call on every
// start; existing identical indexes are left alone.
func (m *Mongo) EnsureIndexes(ctx context.Context) error {
	if _, err := m.coll.Indexes().CreateMany(ctx, IndexModels()); err != nil {
		return wrapUnavailable(err)
	}
	return nil
}

// ReplaceSlot implements [Registry] with a single find-one-and-replace upsert
// keyed by (userId, platform). Two concurrent upserts on an empty slot can
// both attempt the insert; the loser sees a duplicate-key error and retries
// once, which then replaces the winner's record and returns it as displaced.
func (m *Mongo) ReplaceSlot(ctx context.Context, rec Record) (*Record, error) {
	filter := bson.D{{Key: "userId", Value: rec.UserID}, {Key: "platform", Value: rec.Platform}}
	opts := options.FindOneAndReplace().
		SetUpsert(true).
		SetReturnDocument(options.Before)

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		var prev Record
		err := m.coll.FindOneAndReplace(ctx, filter, rec, opts).Decode(&prev)
		switch {
		case err == nil:
			return &prev, nil
		case errors.Is(err, mongo.ErrNoDocuments):
			return nil, nil
		case mongo.IsDuplicateKeyError(err):
			lastErr = err
			continue
		default:
			return nil, wrapUnavailable(err)
		}
	}
	return nil, errors.Join(ErrSlotConflict, lastErr)
}

// FindBySessionID implements [Registry].
func (m *Mongo) FindBySessionID(ctx context.Context, sessionID string) (*Record, error) {
	var rec Record
	err := m.coll.FindOne(ctx, bson.D{{Key: "sessionId", Value: sessionID}}).Decode(&rec)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, wrapUnavailable(err)
	}
	return &rec, nil
}

// FindByUserID implements [Registry].
func (m *Mongo) FindByUserID(ctx context.Context, userID string) ([]Record, error) {
	cursor, err := m.coll.Find(
		ctx,
		bson.D{{Key: "userId", Value: userID}},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}),
	)
	if err != nil {
		return nil, wrapUnavailable(err)
	}

	out := make([]Record, 0, 2)
	if err := cursor.All(ctx, &out); err != nil {
		return nil, wrapUnavailable(err)
	}
	return out, nil
}

// Touch implements [Registry].
func (m *Mongo) Touch(ctx context.Context, sessionID string, at, expiresAt time.Time) error {
	set := bson.D{{Key: "lastActivityAt", Value: at}}
	if !expiresAt.IsZero() {
		set = append(set, bson.E{Key: "expiresAt", Value: expiresAt})
	}

	res, err := m.coll.UpdateOne(
		ctx,
		bson.D{{Key: "sessionId", Value: sessionID}},
		bson.D{{Key: "$set", Value: set}},
	)
	if err != nil {
		return wrapUnavailable(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete implements [Registry].
func (m *Mongo) Delete(ctx context.Context, sessionID string) (bool, error) {
	res, err := m.coll.DeleteOne(ctx, bson.D{{Key: "sessionId", Value: sessionID}})
	if err != nil {
		return false, wrapUnavailable(err)
	}
	return res.DeletedCount > 0, nil
}

// DeleteMany implements [Registry].
func (m *Mongo) DeleteMany(ctx context.Context, sessionIDs []string) (int, error) {
	if len(sessionIDs) == 0 {
		return 0, nil
	}
	res, err := m.coll.DeleteMany(ctx, bson.D{{Key: "sessionId", Value: bson.D{{Key: "$in", Value: sessionIDs}}}})
	if err != nil {
		return 0, wrapUnavailable(err)
	}
	return int(res.DeletedCount), nil
}

// DeleteExpired implements [Registry]. The filter is re-evaluated by the
// server, so concurrent sweeps from several instances never double count.
func (m *Mongo) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	res, err := m.coll.DeleteMany(ctx, bson.D{{Key: "expiresAt", Value: bson.D{{Key: "$lt", Value: now}}}})
	if err != nil {
		return 0, wrapUnavailable(err)
	}
	return int(res.DeletedCount), nil
}

// CountActive implements [Registry].
func (m *Mongo) CountActive(ctx context.Context, userID string, now time.Time) (int, error) {
	n, err := m.coll.CountDocuments(ctx, bson.D{
		{Key: "userId", Value: userID},
		{Key: "expiresAt", Value: bson.D{{Key: "$gt", Value: now}}},
	})
	if err != nil {
		return 0, wrapUnavailable(err)
	}
	return int(n), nil
}

// Ping implements [Registry].
func (m *Mongo) Ping(ctx context.Context) error {
	if err := m.coll.Database().Client().Ping(ctx, readpref.Primary()); err != nil {
		return wrapUnavailable(err)
	}
	return nil
}
