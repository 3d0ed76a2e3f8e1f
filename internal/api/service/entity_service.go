package service

import (
	"context"
	"errors"

	"ctchen222/todo-api/internal/api/models"
	"ctchen222/todo-api/internal/apperr"
	"ctchen222/todo-api/internal/mapper"
	"ctchen222/todo-api/internal/store"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("service")

// entityPtr constrains the pointer type of a persisted entity.
type entityPtr[T any] interface {
	*T
	models.Entity
}

// EntityService is the CRUD facade shared by every resource. T is the entity,
// V the view model it maps to.
type EntityService[T any, V any, PT entityPtr[T]] struct {
	coll   store.Collection
	mapper *mapper.Mapper
	pair   mapper.Pair
}

// NewEntityService binds a collection to the mapping profile used for its
// views.
func NewEntityService[T any, V any, PT entityPtr[T]](coll store.Collection, m *mapper.Mapper, pair mapper.Pair) *EntityService[T, V, PT] {
	return &EntityService[T, V, PT]{coll: coll, mapper: m, pair: pair}
}

func (s *EntityService[T, V, PT]) start(ctx context.Context, op string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "EntityService."+op)
}

// Create stores draft and returns it with its id and timestamps set.
func (s *EntityService[T, V, PT]) Create(ctx context.Context, draft PT) (PT, error) {
	const op = "EntityService.Create"
	ctx, span := s.start(ctx, "Create")
	defer span.End()

	if err := s.coll.Insert(ctx, draft); err != nil {
		return nil, s.fail(span, op, err)
	}
	return draft, nil
}

// FindAll returns every record of the collection.
func (s *EntityService[T, V, PT]) FindAll(ctx context.Context) ([]PT, error) {
	return s.find(ctx, "EntityService.FindAll", nil)
}

func (s *EntityService[T, V, PT]) find(ctx context.Context, op string, filter store.Filter) ([]PT, error) {
	ctx, span := tracer.Start(ctx, op)
	defer span.End()

	var docs []T
	if err := s.coll.FindMany(ctx, filter, &docs); err != nil {
		return nil, s.fail(span, op, err)
	}
	out := make([]PT, len(docs))
	for i := range docs {
		out[i] = PT(&docs[i])
	}
	return out, nil
}

// FindOne returns the first record matching filter, or nil if there is none.
func (s *EntityService[T, V, PT]) FindOne(ctx context.Context, filter store.Filter) (PT, error) {
	found, err := s.find(ctx, "EntityService.FindOne", filter)
	if err != nil || len(found) == 0 {
		return nil, err
	}
	return found[0], nil
}

// FindByID returns the record with the given id, or nil if there is none.
func (s *EntityService[T, V, PT]) FindByID(ctx context.Context, id string) (PT, error) {
	const op = "EntityService.FindByID"
	ctx, span := s.start(ctx, "FindByID")
	defer span.End()

	doc := PT(new(T))
	if err := s.coll.FindByID(ctx, id, doc); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, s.fail(span, op, err)
	}
	return doc, nil
}

// Update replaces the mutable fields of the record with the given id. The id
// and creation time of the stored record are kept. No business rules are
// checked here.
func (s *EntityService[T, V, PT]) Update(ctx context.Context, id string, patch PT) (PT, error) {
	const op = "EntityService.Update"
	ctx, span := s.start(ctx, "Update")
	defer span.End()

	existing := PT(new(T))
	if err := s.coll.FindByID(ctx, id, existing); err != nil {
		return nil, s.fail(span, op, err)
	}

	base := patch.GetBase()
	base.ID = id
	base.CreatedAt = existing.GetBase().CreatedAt

	if err := s.coll.Replace(ctx, id, patch); err != nil {
		return nil, s.fail(span, op, err)
	}
	return patch, nil
}

// Delete removes the record with the given id and returns it.
func (s *EntityService[T, V, PT]) Delete(ctx context.Context, id string) (PT, error) {
	const op = "EntityService.Delete"
	ctx, span := s.start(ctx, "Delete")
	defer span.End()

	doc := PT(new(T))
	if err := s.coll.RemoveByID(ctx, id, doc); err != nil {
		return nil, s.fail(span, op, err)
	}
	return doc, nil
}

// Map projects an entity onto its view model.
func (s *EntityService[T, V, PT]) Map(doc PT) (V, error) {
	return mapper.Map[V](s.mapper, s.pair, doc)
}

// MapAll projects a list of entities onto view models.
func (s *EntityService[T, V, PT]) MapAll(docs []PT) ([]V, error) {
	return mapper.MapSlice[V](s.mapper, s.pair, docs)
}

// fail converts a driver error into the matching application error.
func (s *EntityService[T, V, PT]) fail(span trace.Span, op string, err error) error {
	var appErr *apperr.Error
	switch {
	case errors.Is(err, store.ErrNotFound):
		appErr = apperr.NotFound(op, "record not found")
	case errors.Is(err, store.ErrDuplicate):
		appErr = apperr.Conflict(op, "record already exists")
		appErr.Err = err
	case errors.As(err, &appErr):
	default:
		appErr = apperr.Persistence(op, err)
	}
	if appErr.Kind == apperr.KindPersistence {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return appErr
}
