package services

import (
	"context"
	"errors"
	"fmt"

	"chat-core/internal/identity"
	"chat-core/internal/observability"
	"chat-core/internal/repositories"
)

var (
	ErrAuthInvalid         = errors.New("invalid credentials")
	ErrPeerNotFound        = errors.New("peer not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrMessageNotFound     = errors.New("message not found")
	ErrGroupNotFound       = repositories.ErrGroupNotFound
	ErrGroupExists         = repositories.ErrGroupExists
	ErrAlreadyMember       = errors.New("user already member")
	ErrNotMember           = errors.New("user not a member")
	ErrNotJoined           = errors.New("caller has not joined the group")
	ErrForbidden           = errors.New("operation not allowed for caller")
	ErrInvalidInput        = errors.New("invalid input")
	ErrStorageFailure      = errors.New("storage failure")
	ErrIdentityUnavailable = errors.New("identity service unavailable")
)

var domainErrors = []error{
	ErrAuthInvalid, ErrPeerNotFound, ErrUserNotFound, ErrMessageNotFound,
	ErrGroupNotFound, ErrGroupExists, ErrAlreadyMember, ErrNotMember,
	ErrNotJoined, ErrForbidden, ErrInvalidInput, ErrIdentityUnavailable,
}

func isDomainError(err error) bool {
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// storeErr passes domain errors through and marks everything else as a storage
// failure of op.
func storeErr(op string, err error) error {
	if err == nil || isDomainError(err) {
		return err
	}
	observability.IncStorageFailure(op)
	return fmt.Errorf("%s: %w: %w", op, ErrStorageFailure, err)
}

func identityErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrIdentityUnavailable, err)
}

// Credentials identify the caller of an authenticated operation.
type Credentials struct {
	Username string
	Token    string
}

// Authenticate checks creds against the identity gate.
func Authenticate(ctx context.Context, gate identity.Gate, creds Credentials) error {
	if creds.Username == "" || creds.Token == "" {
		return ErrAuthInvalid
	}
	status, err := gate.Authenticate(ctx, creds.Username, creds.Token)
	if err != nil {
		return identityErr("authenticate", err)
	}
	if status != identity.StatusOK {
		return fmt.Errorf("%w: %s", ErrAuthInvalid, status)
	}
	return nil
}

// IDAllocator issues message ids.
type IDAllocator interface {
	Next(ctx context.Context) (int64, error)
}

const timeLayout = "15:04"
