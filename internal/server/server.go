package server

import (
	"log/slog"
	"net/http"
	"time"

	"ctchen222/todo-api/internal/api/controller"
	"ctchen222/todo-api/internal/api/models"
	"ctchen222/todo-api/internal/api/response"
	"ctchen222/todo-api/internal/apperr"
	"ctchen222/todo-api/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const requestIDHeader = "X-Request-ID"

var tracer = otel.Tracer("server")

type Server struct {
	engine *gin.Engine
}

// NewServer wires the routes. The strategy is shared by every protected route.
func NewServer(strategy *auth.Strategy, users *controller.UserController, todos *controller.TodoController) *Server {
	engine := gin.New()
	engine.Use(requestContext(), gin.CustomRecovery(recoverPanic))
	engine.NoRoute(func(c *gin.Context) {
		response.ErrorResponse(c, http.StatusNotFound, "route not found")
	})

	engine.GET("/healthz", func(c *gin.Context) {
		response.SuccessResponse(c, gin.H{"status": "ok"})
	})

	userGroup := engine.Group("/users")
	userGroup.POST("/register", users.Register)
	userGroup.POST("/login", users.Login)

	protectedUsers := userGroup.Group("", strategy.Middleware())
	protectedUsers.GET("", users.List)
	protectedUsers.PUT("/:id", users.Update)
	protectedUsers.DELETE("/:id", auth.RequireRole(models.RoleAdmin), users.Delete)

	todoGroup := engine.Group("/todos", strategy.Middleware())
	todoGroup.GET("", todos.List)
	todoGroup.POST("", todos.Create)
	todoGroup.PUT("", todos.Update)
	todoGroup.DELETE("/:id", todos.Delete)

	return &Server{engine: engine}
}

// Engine returns the http.Handler serving the API.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// requestContext starts a span per request, tags it with a request id and
// logs the outcome.
func requestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Header(requestIDHeader, requestID)

		ctx, span := tracer.Start(c.Request.Context(), "server."+c.Request.Method, trace.WithAttributes(
			attribute.String("http.url", c.Request.URL.Path),
			attribute.String("http.method", c.Request.Method),
			attribute.String("request.id", requestID),
		))
		defer span.End()
		c.Request = c.Request.WithContext(ctx)

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(attribute.Int("http.status_code", status))
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}

		level := slog.LevelInfo
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		slog.Log(ctx, level, "request handled",
			"request.id", requestID,
			"http.method", c.Request.Method,
			"http.route", c.FullPath(),
			"http.status_code", status,
			"duration", time.Since(start),
		)
	}
}

func recoverPanic(c *gin.Context, recovered any) {
	slog.ErrorContext(c.Request.Context(), "panic while handling request", "panic", recovered)
	response.AbortWithError(c, apperr.New(apperr.KindUnknown, "server.recover", "internal error"))
}
