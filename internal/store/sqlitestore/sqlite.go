package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ctchen222/todo-api/internal/api/models"
	"ctchen222/todo-api/internal/store"

	"github.com/glebarez/go-sqlite"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	sqlite3 "modernc.org/sqlite/lib"
)

var tracer = otel.Tracer("store.sqlite")

var schema = []string{`
CREATE TABLE IF NOT EXISTS documents (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	collection TEXT NOT NULL,
	id TEXT NOT NULL,
	body TEXT NOT NULL,
	UNIQUE (collection, id)
)`, `
CREATE TABLE IF NOT EXISTS unique_keys (
	collection TEXT NOT NULL,
	field TEXT NOT NULL,
	value TEXT NOT NULL,
	doc_id TEXT NOT NULL,
	PRIMARY KEY (collection, field, value)
)`,
}

// Driver stores documents as JSON rows in a SQLite database.
type Driver struct {
	db *sqlx.DB
}

// fileParams make writers queue on the busy timeout instead of failing. Write
// transactions take the write lock at BEGIN, so a transaction that reads
// before writing never has to upgrade its lock.
const fileParams = "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate"

// Open opens the database at path and makes sure the schema exists. Use
// ":memory:" for a private in-memory database.
func Open(ctx context.Context, path string) (*Driver, error) {
	dsn := path
	if path != ":memory:" && !strings.Contains(path, "?") {
		dsn += fileParams
	}
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if path == ":memory:" {
		// Every connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}

	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	slog.InfoContext(ctx, "sqlite store ready", "path", path)
	return &Driver{db: db}, nil
}

// Collection returns the documents of one collection.
func (d *Driver) Collection(_ context.Context, spec store.CollectionSpec) (store.Collection, error) {
	if spec.Name == "" {
		return nil, errors.New("collection name is required")
	}
	return &collection{db: d.db, name: spec.Name, unique: spec.Unique}, nil
}

// Close closes the database.
func (d *Driver) Close(context.Context) error {
	return d.db.Close()
}

type collection struct {
	db     *sqlx.DB
	name   string
	unique []string
}

func (c *collection) start(ctx context.Context, op string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "SQLiteCollection."+op, trace.WithAttributes(
		attribute.String("db.collection", c.name),
	))
}

func (c *collection) Insert(ctx context.Context, doc models.Entity) error {
	ctx, span := c.start(ctx, "Insert")
	defer span.End()

	store.StampInsert(doc, uuid.NewString(), time.Now())
	body, keys, err := store.EncodeJSON(doc, c.unique)
	if err != nil {
		return err
	}
	id := doc.GetBase().ID

	return c.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := c.claimKeys(ctx, tx, id, keys); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO documents (collection, id, body) VALUES (?, ?, ?)`, c.name, id, string(body))
		if err != nil {
			return fmt.Errorf("failed to insert document: %w", err)
		}
		return nil
	})
}

func (c *collection) FindMany(ctx context.Context, filter store.Filter, out any) error {
	ctx, span := c.start(ctx, "FindMany")
	defer span.End()

	field, value, indexed, err := store.UniqueLookup(filter, c.unique)
	if err != nil {
		return err
	}

	var rows []string
	if indexed {
		err = c.db.SelectContext(ctx, &rows, `
SELECT d.body FROM documents d
JOIN unique_keys k ON k.collection = d.collection AND k.doc_id = d.id
WHERE d.collection = ? AND k.field = ? AND k.value = ?
ORDER BY d.seq`, c.name, field, value)
	} else {
		err = c.db.SelectContext(ctx, &rows,
			`SELECT body FROM documents WHERE collection = ? ORDER BY seq`, c.name)
	}
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	matched := make([][]byte, 0, len(rows))
	for _, row := range rows {
		ok, err := store.Matches([]byte(row), filter)
		if err != nil {
			return err
		}
		if ok {
			matched = append(matched, []byte(row))
		}
	}
	return store.DecodeMany(matched, out)
}

func (c *collection) FindByID(ctx context.Context, id string, out models.Entity) error {
	ctx, span := c.start(ctx, "FindByID")
	defer span.End()

	body, err := c.body(ctx, c.db, id)
	if err != nil {
		return err
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

	return c.inTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := c.body(ctx, tx, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM unique_keys WHERE collection = ? AND doc_id = ?`, c.name, id); err != nil {
			return fmt.Errorf("failed to release unique keys: %w", err)
		}
		if err := c.claimKeys(ctx, tx, id, keys); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`UPDATE documents SET body = ? WHERE collection = ? AND id = ?`, string(body), c.name, id)
		if err != nil {
			return fmt.Errorf("failed to replace document: %w", err)
		}
		return nil
	})
}

func (c *collection) RemoveByID(ctx context.Context, id string, out models.Entity) error {
	ctx, span := c.start(ctx, "RemoveByID")
	defer span.End()

	var body []byte
	err := c.inTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		if body, err = c.body(ctx, tx, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM documents WHERE collection = ? AND id = ?`, c.name, id); err != nil {
			return fmt.Errorf("failed to delete document: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM unique_keys WHERE collection = ? AND doc_id = ?`, c.name, id); err != nil {
			return fmt.Errorf("failed to release unique keys: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	return store.DecodeOne(body, out)
}

func (c *collection) body(ctx context.Context, q sqlx.QueryerContext, id string) ([]byte, error) {
	var body string
	err := sqlx.GetContext(ctx, q, &body,
		`SELECT body FROM documents WHERE collection = ? AND id = ?`, c.name, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return []byte(body), nil
}

func (c *collection) claimKeys(ctx context.Context, tx *sqlx.Tx, id string, keys map[string]string) error {
	for field, value := range keys {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO unique_keys (collection, field, value, doc_id) VALUES (?, ?, ?, ?)`,
			c.name, field, value, id)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%s %s: %w", field, value, store.ErrDuplicate)
			}
			return fmt.Errorf("failed to claim unique key: %w", err)
		}
	}
	return nil
}

func (c *collection) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.ErrorContext(ctx, "failed to roll back", "collection", c.name, "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE,
		// Primary code, reported when extended result codes are off.
		sqlite3.SQLITE_CONSTRAINT:
		return true
	}
	return false
}
