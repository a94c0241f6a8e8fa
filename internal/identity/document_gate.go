package identity

import (
	"context"
	"crypto/subtle"
	"errors"

	"chat-core/internal/models"
	"chat-core/internal/store"
)

// DocumentGate reads account documents written by the account service into the
// shared store. It never writes them.
type DocumentGate struct {
	docs store.DocumentStore
}

func NewDocumentGate(docs store.DocumentStore) *DocumentGate {
	return &DocumentGate{docs: docs}
}

func (g *DocumentGate) account(ctx context.Context, username string) (models.Account, error) {
	var account models.Account
	err := g.docs.Get(ctx, store.KindAccount, username, &account)
	if errors.Is(err, store.ErrNotFound) {
		return models.Account{}, ErrUserNotFound
	}
	return account, err
}

func (g *DocumentGate) Authenticate(ctx context.Context, username, token string) (Status, error) {
	account, err := g.account(ctx, username)
	if errors.Is(err, ErrUserNotFound) {
		return StatusNotFound, nil
	}
	if err != nil {
		return "", err
	}
	if token == "" || subtle.ConstantTimeCompare([]byte(account.Token), []byte(token)) != 1 {
		return StatusTokenInvalid, nil
	}
	return StatusOK, nil
}

func (g *DocumentGate) UserExists(ctx context.Context, username string) (bool, error) {
	_, err := g.account(ctx, username)
	if errors.Is(err, ErrUserNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (g *DocumentGate) Profile(ctx context.Context, username string) (models.Profile, error) {
	account, err := g.account(ctx, username)
	if err != nil {
		return models.Profile{}, err
	}
	return models.Profile{
		Username:   username,
		FullName:   account.FullName,
		Bio:        account.Bio,
		ProfileURL: account.Profile,
		Status:     account.Status,
		Role:       account.Role,
	}, nil
}

var _ Gate = (*DocumentGate)(nil)
