package service

import (
	"context"
	"log/slog"

	"ctchen222/todo-api/internal/api/models"
	"ctchen222/todo-api/internal/apperr"
	"ctchen222/todo-api/internal/auth"
	"ctchen222/todo-api/internal/mapper"
	"ctchen222/todo-api/internal/store"
	"ctchen222/todo-api/internal/validator"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const invalidCredentials = "invalid username or password"

// UserSpec describes the users collection.
var UserSpec = store.CollectionSpec{Name: models.UsersCollection, Unique: []string{"username"}}

// UserService handles user-related business logic.
type UserService struct {
	*EntityService[models.User, models.UserVm, *models.User]
	hasher *auth.Hasher
	tokens *auth.TokenService
	logins metric.Int64Counter
}

// NewUserService creates a new UserService.
func NewUserService(coll store.Collection, m *mapper.Mapper, hasher *auth.Hasher, tokens *auth.TokenService) *UserService {
	logins, err := otel.Meter("service.user").Int64Counter("user.logins",
		metric.WithDescription("Login attempts by outcome"))
	if err != nil {
		slog.Warn("failed to create user.logins counter", "error", err)
		logins = noop.Int64Counter{}
	}
	return &UserService{
		EntityService: NewEntityService[models.User, models.UserVm](coll, m, models.UserToVm),
		hasher:        hasher,
		tokens:        tokens,
		logins:        logins,
	}
}

// Register hashes the password and creates a user with the default role.
func (s *UserService) Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	const op = "UserService.Register"
	ctx, span := tracer.Start(ctx, op)
	defer span.End()

	if err := validator.Check(op, req); err != nil {
		return nil, err
	}

	hashed, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, op, err)
	}

	user := &models.User{
		Username:  req.Username,
		Password:  hashed,
		Role:      models.RoleUser,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}
	created, err := s.Create(ctx, user)
	if err != nil {
		if apperr.Is(err, apperr.KindConflict) {
			return nil, apperr.Conflict(op, "username already taken")
		}
		return nil, err
	}

	slog.InfoContext(ctx, "user registered", "user.id", created.ID, "user.name", created.Username)
	return created, nil
}

// Login checks the credentials and returns a token together with the user.
func (s *UserService) Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error) {
	const op = "UserService.Login"
	ctx, span := tracer.Start(ctx, op)
	defer span.End()

	if err := validator.Check(op, req); err != nil {
		return nil, err
	}

	user, err := s.FindByUsername(ctx, req.Username)
	if err != nil {
		return nil, err
	}
	if user == nil || !s.hasher.Verify(req.Password, user.Password) {
		s.logins.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "rejected")))
		return nil, apperr.Unauthorized(op, invalidCredentials)
	}

	token, err := s.tokens.Sign(user.Username, user.Role)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindConfiguration, op, err)
	}
	vm, err := s.Map(user)
	if err != nil {
		return nil, err
	}

	s.logins.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "ok")))
	return &models.LoginResponse{Token: token, User: vm}, nil
}

// FindByUsername returns the user with the given username, or nil.
func (s *UserService) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.FindOne(ctx, store.Filter{"username": username})
}

// UpdateProfile changes the names of a user, and its role when the caller is
// an admin. Callers other than admins may only update themselves.
func (s *UserService) UpdateProfile(ctx context.Context, caller *auth.Identity, id string, req *models.UpdateUserRequest) (*models.User, error) {
	const op = "UserService.UpdateProfile"
	ctx, span := tracer.Start(ctx, op)
	defer span.End()

	if err := validator.Check(op, req); err != nil {
		return nil, err
	}

	user, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperr.NotFound(op, "user not found")
	}

	isAdmin := caller.Role == models.RoleAdmin
	if !isAdmin && caller.Username != user.Username {
		return nil, apperr.Forbidden(op, "cannot edit another user")
	}
	if req.Role != "" && req.Role != user.Role {
		if !isAdmin {
			return nil, apperr.Forbidden(op, "only admins can change roles")
		}
		user.Role = req.Role
	}
	if req.FirstName != nil {
		user.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		user.LastName = *req.LastName
	}

	return s.Update(ctx, id, user)
}
