package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"google.golang.org/grpc"

	"chat-core/internal/identity"
	"chat-core/internal/models"
)

type GateMock struct {
	mock.Mock
}

func (m *GateMock) Authenticate(ctx context.Context, username, token string) (identity.Status, error) {
	args := m.Called(ctx, username, token)
	return args.Get(0).(identity.Status), args.Error(1)
}

func (m *GateMock) UserExists(ctx context.Context, username string) (bool, error) {
	args := m.Called(ctx, username)
	return args.Bool(0), args.Error(1)
}

func (m *GateMock) Profile(ctx context.Context, username string) (models.Profile, error) {
	args := m.Called(ctx, username)
	var profile models.Profile
	if val := args.Get(0); val != nil {
		profile = val.(models.Profile)
	}
	return profile, args.Error(1)
}

// ClientConnMock stands in for a gRPC connection; tests fill the reply in Run.
type ClientConnMock struct {
	mock.Mock
}

func (m *ClientConnMock) Invoke(ctx context.Context, method string, req any, reply any, opts ...grpc.CallOption) error {
	args := m.Called(ctx, method, req, reply)
	return args.Error(0)
}

func (m *ClientConnMock) NewStream(ctx context.Context, desc *grpc.StreamDesc, method string, opts ...grpc.CallOption) (grpc.ClientStream, error) {
	args := m.Called(ctx, desc, method)
	var stream grpc.ClientStream
	if val := args.Get(0); val != nil {
		stream = val.(grpc.ClientStream)
	}
	return stream, args.Error(1)
}

var _ identity.Gate = (*GateMock)(nil)
var _ grpc.ClientConnInterface = (*ClientConnMock)(nil)
