package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/conorfennell/lectern/internal/auth"
	"github.com/conorfennell/lectern/internal/domain"
	domainerrors "github.com/conorfennell/lectern/internal/errors"
	"github.com/conorfennell/lectern/internal/id"
	"github.com/conorfennell/lectern/internal/storage"
	"github.com/conorfennell/lectern/internal/validation"
)

// RegisterInput is the sign-up form.
type RegisterInput struct {
	Username string `form:"username" validate:"required,max=150,username"`
	Email    string `form:"email" validate:"omitempty,email,max=254"`
	Password string `form:"password" validate:"required,max=1024"`
}

// Accounts registers and authenticates users.
type Accounts struct {
	users    storage.UserRepository
	validate *validation.Validator
	logger   *slog.Logger
}

// NewAccounts creates an Accounts service.
func NewAccounts(users storage.UserRepository, v *validation.Validator, logger *slog.Logger) *Accounts {
	return &Accounts{users: users, validate: v, logger: logger}
}

// Register creates an account with a hashed password.
func (a *Accounts) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if err := a.validate.Validate(in); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &domain.User{
		ID:           id.NewUserID(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := a.users.InsertUser(ctx, user); err != nil {
		return nil, domainerrors.Persistence(err)
	}

	a.logger.Info("user registered", "user_id", user.ID, "username", user.Username)
	return user, nil
}

// Authenticate checks a username and password. Unknown users and wrong
// passwords both fail with ErrInvalidCredentials.
func (a *Accounts) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	user, err := a.users.FindUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if domainerrors.Is(err, domainerrors.ErrNotFound) {
			return nil, domainerrors.ErrInvalidCredentials
		}
		return nil, domainerrors.Persistence(err)
	}

	ok, err := auth.VerifyPassword(user.PasswordHash, password)
	if err != nil {
		a.logger.Warn("stored password hash unreadable", "user_id", user.ID, "error", err)
		return nil, domainerrors.ErrInvalidCredentials
	}
	if !ok {
		return nil, domainerrors.ErrInvalidCredentials
	}
	return user, nil
}

// Get returns the account with the given ID.
func (a *Accounts) Get(ctx context.Context, userID string) (*domain.User, error) {
	user, err := a.users.FindUserByID(ctx, userID)
	if err != nil {
		return nil, domainerrors.Persistence(err)
	}
	return user, nil
}

// ByUsername returns the account registered under username.
func (a *Accounts) ByUsername(ctx context.Context, username string) (*domain.User, error) {
	user, err := a.users.FindUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, domainerrors.Persistence(err)
	}
	return user, nil
}
