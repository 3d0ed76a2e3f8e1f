package redisstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ctchen222/todo-api/internal/api/models"
	"ctchen222/todo-api/internal/store"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("store.redis")

// maxWatchRetries bounds optimistic transaction retries when a watched key
// changes under us.
const maxWatchRetries = 5

// Driver stores documents as JSON values in Redis hashes.
type Driver struct {
	rdb *redis.Client
}

// NewRedisClient creates and returns a new Redis client.
// addr is either a host:port pair or a redis:// URL.
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	opts, err := redis.ParseURL(addr)
	if err != nil {
		opts = &redis.Options{Addr: addr}
	}
	client := redis.NewClient(opts)

	// Ping the server to ensure the connection is established.
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return client, nil
}

// Open connects to Redis at addr.
func Open(ctx context.Context, addr string) (*Driver, error) {
	rdb, err := NewRedisClient(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	slog.InfoContext(ctx, "redis store ready", "addr", addr)
	return NewDriver(rdb), nil
}

// NewDriver wraps an existing client.
func NewDriver(rdb *redis.Client) *Driver {
	return &Driver{rdb: rdb}
}

func (d *Driver) Collection(_ context.Context, spec store.CollectionSpec) (store.Collection, error) {
	if spec.Name == "" {
		return nil, errors.New("collection name is required")
	}
	return &collection{rdb: d.rdb, name: spec.Name, unique: spec.Unique}, nil
}

func (d *Driver) Close(context.Context) error {
	return d.rdb.Close()
}

// Keys used per collection:
//
//	<name>:docs              hash   id -> JSON body
//	<name>:ids               list   ids in insertion order
//	<name>:unique:<field>    hash   canonical value -> id
type collection struct {
	rdb    *redis.Client
	name   string
	unique []string
}

func (c *collection) docsKey() string { return c.name + ":docs" }
func (c *collection) idsKey() string  { return c.name + ":ids" }

func (c *collection) uniqueKey(field string) string {
	return fmt.Sprintf("%s:unique:%s", c.name, field)
}

func (c *collection) start(ctx context.Context, op string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "RedisCollection."+op, trace.WithAttributes(
		attribute.String("db.collection", c.name),
	))
}

// Insert claims every unique value with HSETNX before writing the document,
// releasing the claims again if one of them is already taken.
func (c *collection) Insert(ctx context.Context, doc models.Entity) error {
	ctx, span := c.start(ctx, "Insert")
	defer span.End()

	store.StampInsert(doc, uuid.NewString(), time.Now())
	body, keys, err := store.EncodeJSON(doc, c.unique)
	if err != nil {
		return err
	}
	id := doc.GetBase().ID

	if err := c.claim(ctx, id, keys); err != nil {
		return err
	}

	_, err = c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, c.docsKey(), id, body)
		pipe.RPush(ctx, c.idsKey(), id)
		return nil
	})
	if err != nil {
		c.release(ctx, keys)
		return fmt.Errorf("failed to insert document: %w", err)
	}
	return nil
}

func (c *collection) FindMany(ctx context.Context, filter store.Filter, out any) error {
	ctx, span := c.start(ctx, "FindMany")
	defer span.End()

	ids, err := c.candidates(ctx, filter)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return store.DecodeMany(nil, out)
	}

	values, err := c.rdb.HMGet(ctx, c.docsKey(), ids...).Result()
	if err != nil {
		return fmt.Errorf("failed to get documents: %w", err)
	}

	matched := make([][]byte, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			// Removed between LRANGE and HMGET.
			continue
		}
		ok, err := store.Matches([]byte(s), filter)
		if err != nil {
			return err
		}
		if ok {
			matched = append(matched, []byte(s))
		}
	}
	return store.DecodeMany(matched, out)
}

// candidates returns the ids that may match filter. A filter on a unique field
// is answered from its claim hash instead of the full id list.
func (c *collection) candidates(ctx context.Context, filter store.Filter) ([]string, error) {
	field, value, indexed, err := store.UniqueLookup(filter, c.unique)
	if err != nil {
		return nil, err
	}
	if indexed {
		id, err := c.rdb.HGet(ctx, c.uniqueKey(field), value).Result()
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to look up %s: %w", field, err)
		}
		return []string{id}, nil
	}

	ids, err := c.rdb.LRange(ctx, c.idsKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list ids: %w", err)
	}
	return ids, nil
}

func (c *collection) FindByID(ctx context.Context, id string, out models.Entity) error {
	ctx, span := c.start(ctx, "FindByID")
	defer span.End()

	body, err := c.rdb.HGet(ctx, c.docsKey(), id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return store.ErrNotFound
		}
		return fmt.Errorf("failed to get document: %w", err)
	}
	return store.DecodeOne(body, out)
}

func (c *collection) Replace(ctx context.Context, id string, doc models.Entity) error {
	ctx, span := c.start(ctx, "Replace")
	defer span.End()

	store.StampReplace(doc, id, time.Now())
	body, keys, err := store.EncodeJSON(doc, c.unique)
	if err != nil {
		return err
	}

	return c.watch(ctx, func(tx *redis.Tx) error {
		old, err := tx.HGet(ctx, c.docsKey(), id).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return store.ErrNotFound
			}
			return fmt.Errorf("failed to get document: %w", err)
		}
		oldKeys, err := c.keysOf(old)
		if err != nil {
			return err
		}

		added, removed := diffKeys(oldKeys, keys)
		if err := c.claim(ctx, id, added); err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, c.docsKey(), id, body)
			for field, value := range removed {
				pipe.HDel(ctx, c.uniqueKey(field), value)
			}
			return nil
		})
		if err != nil {
			c.release(ctx, added)
		}
		return err
	}, c.docsKey())
}

func (c *collection) RemoveByID(ctx context.Context, id string, out models.Entity) error {
	ctx, span := c.start(ctx, "RemoveByID")
	defer span.End()

	var body []byte
	err := c.watch(ctx, func(tx *redis.Tx) error {
		var err error
		body, err = tx.HGet(ctx, c.docsKey(), id).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return store.ErrNotFound
			}
			return fmt.Errorf("failed to get document: %w", err)
		}
		keys, err := c.keysOf(body)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HDel(ctx, c.docsKey(), id)
			pipe.LRem(ctx, c.idsKey(), 0, id)
			for field, value := range keys {
				pipe.HDel(ctx, c.uniqueKey(field), value)
			}
			return nil
		})
		return err
	}, c.docsKey())
	if err != nil {
		return err
	}
	return store.DecodeOne(body, out)
}

// watch runs fn in an optimistic transaction, retrying when a watched key
// was modified concurrently.
func (c *collection) watch(ctx context.Context, fn func(tx *redis.Tx) error, keys ...string) error {
	for i := 0; i < maxWatchRetries; i++ {
		err := c.rdb.Watch(ctx, fn, keys...)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
		slog.DebugContext(ctx, "redis transaction conflict, retrying", "collection", c.name, "attempt", i+1)
	}
	return fmt.Errorf("transaction on %s kept conflicting", c.name)
}

func (c *collection) claim(ctx context.Context, id string, keys map[string]string) error {
	claimed := make(map[string]string, len(keys))
	for field, value := range keys {
		ok, err := c.rdb.HSetNX(ctx, c.uniqueKey(field), value, id).Result()
		if err != nil {
			c.release(ctx, claimed)
			return fmt.Errorf("failed to claim unique key: %w", err)
		}
		if !ok {
			c.release(ctx, claimed)
			return fmt.Errorf("%s %s: %w", field, value, store.ErrDuplicate)
		}
		claimed[field] = value
	}
	return nil
}

func (c *collection) release(ctx context.Context, keys map[string]string) {
	for field, value := range keys {
		if err := c.rdb.HDel(ctx, c.uniqueKey(field), value).Err(); err != nil {
			slog.ErrorContext(ctx, "failed to release unique key", "collection", c.name, "field", field, "error", err)
		}
	}
}

func (c *collection) keysOf(body []byte) (map[string]string, error) {
	return store.UniqueKeys(body, c.unique)
}

func diffKeys(old, updated map[string]string) (added, removed map[string]string) {
	added = make(map[string]string)
	removed = make(map[string]string)
	for field, value := range updated {
		if old[field] != value {
			added[field] = value
		}
	}
	for field, value := range old {
		if updated[field] != value {
			removed[field] = value
		}
	}
	return added, removed
}
