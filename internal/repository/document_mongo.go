package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const ownerField = "uid"

type MongoDocumentRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

func NewMongoDocument(db *mongo.Database, logger *slog.Logger) *MongoDocumentRepository {
	return &MongoDocumentRepository{db: db, logger: logger}
}

// EnsureIndexes creates the owner/order indexes backing each subscription.
func (r *MongoDocumentRepository) EnsureIndexes(ctx context.Context) error {
	orders := map[Collection]string{
		CollectionTodos: "createdAt",
		CollectionNotes: "updatedAt",
	}
	for c, field := range orders {
		_, err := r.db.Collection(string(c)).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys: bson.D{{Key: ownerField, Value: 1}, {Key: field, Value: -1}},
		})
		if err != nil {
			return fmt.Errorf("create %s indexes: %w", c, err)
		}
	}
	return nil
}

func (r *MongoDocumentRepository) Subscribe(ctx context.Context, q Query) (*Subscription, error) {
	if err := q.validate(); err != nil {
		return nil, err
	}

	coll := r.db.Collection(string(q.Collection))
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"$or": bson.A{
				bson.M{"fullDocument." + ownerField: q.OwnerID},
				bson.M{"operationType": "delete"},
			},
		}}},
	}
	stream, err := coll.Watch(ctx, pipeline, options.ChangeStream().SetFullDocument(options.UpdateLookup))
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", q.Collection, err)
	}

	sub := newSubscription(ctx, q, r.logger, nil)
	go r.follow(sub, stream)
	sub.start(func(ctx context.Context) ([]Document, error) {
		return r.fetch(ctx, coll, q)
	})
	return sub, nil
}

// follow turns change stream events into refresh signals for sub.
func (r *MongoDocumentRepository) follow(sub *Subscription, stream *mongo.ChangeStream) {
	defer stream.Close(context.Background())
	for stream.Next(sub.ctx) {
		sub.notify()
	}
	if err := stream.Err(); err != nil && sub.ctx.Err() == nil {
		sub.fail(fmt.Errorf("change stream %s: %w", sub.query.Collection, err))
	}
}

func (r *MongoDocumentRepository) fetch(ctx context.Context, coll *mongo.Collection, q Query) ([]Document, error) {
	opts := options.Find().SetSort(bson.D{{Key: q.OrderField, Value: q.Direction.mongo()}})

	cursor, err := coll.Find(ctx, bson.M{ownerField: q.OwnerID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", q.Collection, err)
	}
	defer cursor.Close(ctx)

	var raw []bson.M
	if err := cursor.All(ctx, &raw); err != nil {
		return nil, fmt.Errorf("decode %s: %w", q.Collection, err)
	}

	docs := make([]Document, 0, len(raw))
	for _, m := range raw {
		docs = append(docs, documentFromBSON(m))
	}
	return docs, nil
}

func (r *MongoDocumentRepository) Create(ctx context.Context, collection Collection, ownerID string, fields Fields) (string, error) {
	if !collection.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownCollection, collection)
	}

	doc := bson.M{}
	for k, v := range fields {
		doc[k] = v
	}
	doc["_id"] = primitive.NewObjectID()
	doc[ownerField] = ownerID

	res, err := r.db.Collection(string(collection)).InsertOne(ctx, doc)
	if err != nil {
		return "", newWriteError("create", collection, classifyMongoError(err), err)
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", newWriteError("create", collection, nil, fmt.Errorf("unexpected id type %T", res.InsertedID))
	}
	return oid.Hex(), nil
}

func (r *MongoDocumentRepository) Update(ctx context.Context, collection Collection, ownerID, id string, fields Fields) error {
	if !collection.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownCollection, collection)
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	set := bson.M{}
	for k, v := range fields {
		if k == ownerField || k == "_id" {
			continue
		}
		set[k] = v
	}

	res, err := r.db.Collection(string(collection)).UpdateOne(ctx,
		bson.M{"_id": oid, ownerField: ownerID},
		bson.M{"$set": set},
	)
	if err != nil {
		return newWriteError("update", collection, classifyMongoError(err), err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoDocumentRepository) Flip(ctx context.Context, collection Collection, ownerID, id, field string) error {
	if !collection.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownCollection, collection)
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	res, err := r.db.Collection(string(collection)).UpdateOne(ctx,
		bson.M{"_id": oid, ownerField: ownerID},
		mongo.Pipeline{
			{{Key: "$set", Value: bson.M{field: bson.M{"$not": bson.A{"$" + field}}}}},
		},
	)
	if err != nil {
		return newWriteError("flip", collection, classifyMongoError(err), err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoDocumentRepository) Delete(ctx context.Context, collection Collection, ownerID, id string) error {
	if !collection.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownCollection, collection)
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	res, err := r.db.Collection(string(collection)).DeleteOne(ctx, bson.M{"_id": oid, ownerField: ownerID})
	if err != nil {
		return newWriteError("delete", collection, classifyMongoError(err), err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func documentFromBSON(m bson.M) Document {
	d := Document{Data: make(map[string]any, len(m))}
	for k, v := range m {
		switch k {
		case "_id":
			if oid, ok := v.(primitive.ObjectID); ok {
				d.ID = oid.Hex()
			} else {
				d.ID = fmt.Sprint(v)
			}
		case ownerField:
			d.OwnerID, _ = v.(string)
		default:
			d.Data[k] = normalizeBSON(v)
		}
	}
	return d
}

func normalizeBSON(v any) any {
	switch t := v.(type) {
	case primitive.DateTime:
		return t.Time().UTC()
	case primitive.Timestamp:
		return time.Unix(int64(t.T), 0).UTC()
	case int32:
		return int64(t)
	}
	return v
}

const mongoUnauthorized = 13

func classifyMongoError(err error) error {
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) {
		return ErrNetworkFailure
	}
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && cmdErr.Code == mongoUnauthorized {
		return ErrPermissionDenied
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == mongoUnauthorized {
				return ErrPermissionDenied
			}
		}
	}
	return nil
}

var _ DocumentRepository = (*MongoDocumentRepository)(nil)
