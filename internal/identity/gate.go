package identity

import (
	"context"
	"errors"

	"chat-core/internal/models"
)

// Status is the outcome of a credential check.
type Status string

const (
	StatusOK           Status = "OK"
	StatusTokenInvalid Status = "TOKEN_INVALID"
	StatusNotFound     Status = "NOT_FOUND"
)

var ErrUserNotFound = errors.New("user not found")

// Gate validates credentials and resolves users. Account management lives behind it.
type Gate interface {
	Authenticate(ctx context.Context, username, token string) (Status, error)
	UserExists(ctx context.Context, username string) (bool, error)
	Profile(ctx context.Context, username string) (models.Profile, error)
}
