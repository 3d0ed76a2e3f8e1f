package response

import (
	"errors"
	"log/slog"
	"net/http"

	"ctchen222/todo-api/internal/apperr"

	"github.com/gin-gonic/gin"
)

type Response struct {
	Success bool `json:"success"`
	Code    int  `json:"code"`
	Extras  any  `json:"extras"`
}

func NewResponse(success bool, code int, extras any) Response {
	return Response{
		Success: success,
		Code:    code,
		Extras:  extras,
	}
}

// SuccessResponseList returns a JSON response with a success message and a list of items
func SuccessResponseList[T any](c *gin.Context, list []T) {
	c.JSON(
		http.StatusOK,
		NewResponse(
			true,
			http.StatusOK,
			map[string]any{
				"list": list,
			},
		))
}

// SuccessResponse returns a JSON response with a success message with no type limitation
func SuccessResponse(c *gin.Context, extras any) {
	c.JSON(
		http.StatusOK,
		NewResponse(
			true,
			http.StatusOK,
			extras,
		))
}

func ErrorResponse(c *gin.Context, code int, message string) {
	c.JSON(
		code,
		NewResponse(
			false,
			code,
			ErrorBody{Message: message},
		))
}

// CreatedResponse returns a 201 JSON response wrapping the created resource
func CreatedResponse(c *gin.Context, extras any) {
	c.JSON(
		http.StatusCreated,
		NewResponse(
			true,
			http.StatusCreated,
			extras,
		))
}

// FromError writes err using the status code of its kind. Causes of internal
// errors are logged, not returned.
func FromError(c *gin.Context, err error) {
	code, message := describe(c, err)
	ErrorResponse(c, code, message)
}

// AbortWithError writes err like FromError and stops the handler chain.
func AbortWithError(c *gin.Context, err error) {
	code, message := describe(c, err)
	c.AbortWithStatusJSON(
		code,
		NewResponse(
			false,
			code,
			ErrorBody{Message: message},
		))
}

func describe(c *gin.Context, err error) (int, string) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		slog.ErrorContext(c.Request.Context(), "unhandled error", "error", err)
		return http.StatusInternalServerError, "internal error"
	}
	code := appErr.Kind.HTTPStatus()
	if code >= http.StatusInternalServerError {
		slog.ErrorContext(c.Request.Context(), "request failed", "kind", appErr.Kind.String(), "error", err)
	}
	return code, appErr.Message()
}
