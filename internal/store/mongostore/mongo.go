package mongostore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ctchen222/todo-api/internal/api/models"
	"ctchen222/todo-api/internal/store"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("store.mongo")

const connectTimeout = 10 * time.Second

// Driver stores documents in MongoDB collections.
type Driver struct {
	client *mongo.Client
	db     *mongo.Database
}

// Open connects to the MongoDB deployment at url and uses the named database.
func Open(ctx context.Context, url, database string) (*Driver, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(url))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	slog.InfoContext(ctx, "mongo store ready", "database", database)
	return &Driver{client: client, db: client.Database(database)}, nil
}

// Collection returns the named collection, creating a unique index for each
// unique field.
func (d *Driver) Collection(ctx context.Context, spec store.CollectionSpec) (store.Collection, error) {
	if spec.Name == "" {
		return nil, errors.New("collection name is required")
	}
	coll := d.db.Collection(spec.Name)

	if len(spec.Unique) > 0 {
		indexes := make([]mongo.IndexModel, 0, len(spec.Unique))
		for _, field := range spec.Unique {
			indexes = append(indexes, mongo.IndexModel{
				Keys:    bson.D{{Key: field, Value: 1}},
				Options: options.Index().SetUnique(true),
			})
		}
		if _, err := coll.Indexes().CreateMany(ctx, indexes); err != nil {
			return nil, fmt.Errorf("failed to create indexes on %s: %w", spec.Name, err)
		}
	}
	return &collection{coll: coll}, nil
}

func (d *Driver) Close(ctx context.Context) error {
	return d.client.Disconnect(ctx)
}

type collection struct {
	coll *mongo.Collection
}

func (c *collection) start(ctx context.Context, op string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "MongoCollection."+op, trace.WithAttributes(
		attribute.String("db.collection", c.coll.Name()),
	))
}

func (c *collection) Insert(ctx context.Context, doc models.Entity) error {
	ctx, span := c.start(ctx, "Insert")
	defer span.End()

	store.StampInsert(doc, primitive.NewObjectID().Hex(), time.Now())
	if _, err := c.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%s: %w", err, store.ErrDuplicate)
		}
		return fmt.Errorf("failed to insert document: %w", err)
	}
	return nil
}

func (c *collection) FindMany(ctx context.Context, filter store.Filter, out any) error {
	ctx, span := c.start(ctx, "FindMany")
	defer span.End()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := c.coll.Find(ctx, toBSON(filter), opts)
	if err != nil {
		return fmt.Errorf("failed to find documents: %w", err)
	}
	if err := cur.All(ctx, out); err != nil {
		return fmt.Errorf("failed to decode documents: %w", err)
	}
	return nil
}

func (c *collection) FindByID(ctx context.Context, id string, out models.Entity) error {
	ctx, span := c.start(ctx, "FindByID")
	defer span.End()

	err := c.coll.FindOne(ctx, bson.M{"_id": id}).Decode(out)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return store.ErrNotFound
		}
		return fmt.Errorf("failed to get document: %w", err)
	}
	return nil
}

func (c *collection) Replace(ctx context.Context, id string, doc models.Entity) error {
	ctx, span := c.start(ctx, "Replace")
	defer span.End()

	store.StampReplace(doc, id, time.Now())
	res, err := c.coll.ReplaceOne(ctx, bson.M{"_id": id}, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%s: %w", err, store.ErrDuplicate)
		}
		return fmt.Errorf("failed to replace document: %w", err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (c *collection) RemoveByID(ctx context.Context, id string, out models.Entity) error {
	ctx, span := c.start(ctx, "RemoveByID")
	defer span.End()

	err := c.coll.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(out)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return store.ErrNotFound
		}
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

func toBSON(filter store.Filter) bson.M {
	m := bson.M{}
	for k, v := range filter {
		m[k] = v
	}
	return m
}
