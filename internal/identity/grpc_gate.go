package identity

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"chat-core/internal/models"
)

// Full method names served by the account service. Payloads are structpb.Struct.
const (
	methodAuthenticate = "/accounts.v1.Accounts/Authenticate"
	methodUserExists   = "/accounts.v1.Accounts/UserExists"
	methodGetProfile   = "/accounts.v1.Accounts/GetProfile"
)

// GRPCGate wraps the account-service gRPC client.
type GRPCGate struct {
	conn grpc.ClientConnInterface
}

func NewGRPCGate(conn grpc.ClientConnInterface) *GRPCGate {
	return &GRPCGate{conn: conn}
}

func (g *GRPCGate) call(ctx context.Context, method string, req map[string]any) (map[string]any, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, err
	}
	out := &structpb.Struct{}
	if err := g.conn.Invoke(ctx, method, in, out); err != nil {
		return nil, err
	}
	return out.AsMap(), nil
}

func stringField(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

// Authenticate verifies the token issued to username.
func (g *GRPCGate) Authenticate(ctx context.Context, username, token string) (Status, error) {
	resp, err := g.call(ctx, methodAuthenticate, map[string]any{"username": username, "token": token})
	if err != nil {
		return "", err
	}
	switch status := Status(stringField(resp, "status")); status {
	case StatusOK, StatusTokenInvalid, StatusNotFound:
		return status, nil
	default:
		return "", errors.New("unexpected authenticate status " + string(status))
	}
}

func (g *GRPCGate) UserExists(ctx context.Context, username string) (bool, error) {
	resp, err := g.call(ctx, methodUserExists, map[string]any{"username": username})
	if err != nil {
		return false, err
	}
	exists, _ := resp["exists"].(bool)
	return exists, nil
}

// Profile fetches public user details.
func (g *GRPCGate) Profile(ctx context.Context, username string) (models.Profile, error) {
	resp, err := g.call(ctx, methodGetProfile, map[string]any{"username": username})
	if err != nil {
		return models.Profile{}, err
	}
	if found, _ := resp["found"].(bool); !found {
		return models.Profile{}, ErrUserNotFound
	}
	return models.Profile{
		Username:   username,
		FullName:   stringField(resp, "fullname"),
		Bio:        stringField(resp, "bio"),
		ProfileURL: stringField(resp, "profile"),
		Status:     stringField(resp, "status"),
		Role:       stringField(resp, "role"),
	}, nil
}

var _ Gate = (*GRPCGate)(nil)
