package controller

import (
	"net/http"

	"ctchen222/todo-api/internal/api/models"
	"ctchen222/todo-api/internal/api/response"
	"ctchen222/todo-api/internal/api/service"
	"ctchen222/todo-api/internal/apperr"
	"ctchen222/todo-api/internal/auth"

	"github.com/gin-gonic/gin"
)

// UserController handles user-related HTTP requests.
type UserController struct {
	userService *service.UserService
}

// NewUserController creates a new UserController.
func NewUserController(userService *service.UserService) *UserController {
	return &UserController{
		userService: userService,
	}
}

// Register handles the user registration endpoint.
func (uc *UserController) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	user, err := uc.userService.Register(c.Request.Context(), &req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	vm, err := uc.userService.Map(user)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.CreatedResponse(c, vm)
}

// Login handles the user login endpoint.
func (uc *UserController) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	res, err := uc.userService.Login(c.Request.Context(), &req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessResponse(c, res)
}

// List returns every user.
func (uc *UserController) List(c *gin.Context) {
	users, err := uc.userService.FindAll(c.Request.Context())
	if err != nil {
		response.FromError(c, err)
		return
	}
	vms, err := uc.userService.MapAll(users)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.SuccessResponseList(c, vms)
}

// Update changes the profile of the user in the path.
func (uc *UserController) Update(c *gin.Context) {
	identity, ok := auth.IdentityFrom(c)
	if !ok {
		response.FromError(c, apperr.Unauthorized("UserController.Update", "not authenticated"))
		return
	}

	var req models.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	user, err := uc.userService.UpdateProfile(c.Request.Context(), identity, c.Param("id"), &req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	vm, err := uc.userService.Map(user)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.SuccessResponse(c, vm)
}

// Delete removes the user in the path. Only admins reach this handler.
func (uc *UserController) Delete(c *gin.Context) {
	user, err := uc.userService.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	vm, err := uc.userService.Map(user)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.SuccessResponse(c, vm)
}
