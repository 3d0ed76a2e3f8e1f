package controller

import (
	"net/http"

	"ctchen222/todo-api/internal/api/models"
	"ctchen222/todo-api/internal/api/response"
	"ctchen222/todo-api/internal/api/service"

	"github.com/gin-gonic/gin"
)

// TodoController handles todo-related HTTP requests.
type TodoController struct {
	todoService *service.TodoService
}

func NewTodoController(todoService *service.TodoService) *TodoController {
	return &TodoController{todoService: todoService}
}

func (tc *TodoController) List(c *gin.Context) {
	todos, err := tc.todoService.FindAll(c.Request.Context())
	if err != nil {
		response.FromError(c, err)
		return
	}
	vms, err := tc.todoService.MapAll(todos)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.SuccessResponseList(c, vms)
}

func (tc *TodoController) Create(c *gin.Context) {
	var req models.CreateTodoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	todo, err := tc.todoService.CreateTodo(c.Request.Context(), &req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	tc.respond(c, http.StatusCreated, todo)
}

func (tc *TodoController) Update(c *gin.Context) {
	var req models.UpdateTodoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	todo, err := tc.todoService.UpdateTodo(c.Request.Context(), &req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	tc.respond(c, http.StatusOK, todo)
}

func (tc *TodoController) Delete(c *gin.Context) {
	todo, err := tc.todoService.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	tc.respond(c, http.StatusOK, todo)
}

func (tc *TodoController) respond(c *gin.Context, code int, todo *models.Todo) {
	vm, err := tc.todoService.Map(todo)
	if err != nil {
		response.FromError(c, err)
		return
	}
	if code == http.StatusCreated {
		response.CreatedResponse(c, vm)
		return
	}
	response.SuccessResponse(c, vm)
}
