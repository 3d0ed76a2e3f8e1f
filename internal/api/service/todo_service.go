package service

import (
	"context"
	"log/slog"

	"ctchen222/todo-api/internal/api/models"
	"ctchen222/todo-api/internal/apperr"
	"ctchen222/todo-api/internal/mapper"
	"ctchen222/todo-api/internal/store"
	"ctchen222/todo-api/internal/validator"
)

// TodoSpec describes the todos collection.
var TodoSpec = store.CollectionSpec{Name: models.TodosCollection}

// TodoService handles todo-related business logic. Todos are shared: any
// authenticated caller may change any of them.
type TodoService struct {
	*EntityService[models.Todo, models.TodoVm, *models.Todo]
}

func NewTodoService(coll store.Collection, m *mapper.Mapper) *TodoService {
	return &TodoService{
		EntityService: NewEntityService[models.Todo, models.TodoVm](coll, m, models.TodoToVm),
	}
}

// CreateTodo creates an open todo.
func (s *TodoService) CreateTodo(ctx context.Context, req *models.CreateTodoRequest) (*models.Todo, error) {
	const op = "TodoService.CreateTodo"
	ctx, span := tracer.Start(ctx, op)
	defer span.End()

	if err := validator.Check(op, req); err != nil {
		return nil, err
	}

	todo := &models.Todo{
		Content: req.Content,
		Level:   req.Level,
	}
	if todo.Level == "" {
		todo.Level = models.LevelNormal
	}

	created, err := s.Create(ctx, todo)
	if err != nil {
		return nil, err
	}
	slog.DebugContext(ctx, "todo created", "todo.id", created.ID)
	return created, nil
}

// UpdateTodo changes an existing todo. Completed todos cannot be changed.
func (s *TodoService) UpdateTodo(ctx context.Context, req *models.UpdateTodoRequest) (*models.Todo, error) {
	const op = "TodoService.UpdateTodo"
	ctx, span := tracer.Start(ctx, op)
	defer span.End()

	if err := validator.Check(op, req); err != nil {
		return nil, err
	}

	existing, err := s.FindByID(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, apperr.NotFound(op, req.ID+" not found")
	}
	if existing.IsCompleted {
		return nil, apperr.Validation(op, "already completed")
	}

	existing.Content = req.Content
	existing.IsCompleted = req.IsCompleted
	if req.Level != "" {
		existing.Level = req.Level
	}

	return s.Update(ctx, req.ID, existing)
}
