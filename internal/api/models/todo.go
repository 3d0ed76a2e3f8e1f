package models

// TodoLevel is the priority of a todo.
type TodoLevel string

const (
	LevelLow    TodoLevel = "Low"
	LevelNormal TodoLevel = "Normal"
	LevelHigh   TodoLevel = "High"
)

const TodosCollection = "todos"

// Todo is a single todo item. It is not linked to the user that created it.
type Todo struct {
	Base        `bson:",inline"`
	Content     string    `bson:"content" json:"content"`
	Level       TodoLevel `bson:"level" json:"level"`
	IsCompleted bool      `bson:"isCompleted" json:"isCompleted"`
}

// TodoVm is the externally visible todo.
type TodoVm struct {
	BaseVm
	Content     string    `json:"content"`
	Level       TodoLevel `json:"level"`
	IsCompleted bool      `json:"isCompleted"`
}

type CreateTodoRequest struct {
	Content string    `json:"content" validate:"required"`
	Level   TodoLevel `json:"level" validate:"omitempty,oneof=Low Normal High"`
}

type UpdateTodoRequest struct {
	ID          string    `json:"id" validate:"required"`
	Content     string    `json:"content" validate:"required"`
	Level       TodoLevel `json:"level" validate:"omitempty,oneof=Low Normal High"`
	IsCompleted bool      `json:"isCompleted"`
}
