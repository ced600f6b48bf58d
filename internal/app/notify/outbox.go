package notify

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CollNotifications is the outbox collection.
const CollNotifications = "notifications"

// OutboxSink appends events to a MongoDB collection for a downstream
// mailer or push worker to drain.
type OutboxSink struct {
	c *mongo.Collection
}

// NewOutboxSink returns an outbox over db.
func NewOutboxSink(db *mongo.Database) *OutboxSink {
	return &OutboxSink{c: db.Collection(CollNotifications)}
}

func (s *OutboxSink) Name() string { return "outbox" }

func (s *OutboxSink) Deliver(ctx context.Context, ev Event) error {
	_, err := s.c.InsertOne(ctx, ev)
	return err
}

// Recent returns up to limit events, newest first. A zero typ matches all.
func (s *OutboxSink) Recent(ctx context.Context, typ Type, limit int64) ([]Event, error) {
	filter := bson.M{}
	if typ != "" {
		filter["type"] = typ
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []Event
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
