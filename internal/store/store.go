package store

//go:generate mockgen -source=store.go -destination=mock/store_mock.go -package=mock

import (
	"context"
	"errors"

	"ctchen222/todo-api/internal/api/models"
)

var (
	// ErrNotFound is returned when no document has the requested id.
	ErrNotFound = errors.New("store: document not found")
	// ErrDuplicate is returned when a write would break a unique field.
	ErrDuplicate = errors.New("store: duplicate key")
)

// Filter matches documents whose fields equal every given value. Keys are
// the stored field names.
type Filter map[string]any

// CollectionSpec describes a collection to open.
type CollectionSpec struct {
	Name   string
	Unique []string
}

// Collection is the CRUD surface of one collection of documents.
type Collection interface {
	// Insert assigns the id and timestamps of doc and stores it.
	Insert(ctx context.Context, doc models.Entity) error
	// FindMany decodes every matching document into out, a pointer to a slice.
	FindMany(ctx context.Context, filter Filter, out any) error
	FindByID(ctx context.Context, id string, out models.Entity) error
	// Replace overwrites the document with the given id and refreshes its
	// update timestamp.
	Replace(ctx context.Context, id string, doc models.Entity) error
	// RemoveByID deletes the document and decodes it into out.
	RemoveByID(ctx context.Context, id string, out models.Entity) error
}

// Driver opens collections on one storage engine.
type Driver interface {
	Collection(ctx context.Context, spec CollectionSpec) (Collection, error)
	Close(ctx context.Context) error
}
