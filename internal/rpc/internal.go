// Package rpc serves the internal gRPC API used by bots and background jobs.
//
// Messages are google.protobuf.Struct on both sides, so no generated stubs are
// needed; the service descriptor below is registered by hand.
package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"math"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"chat-core/internal/events"
	"chat-core/internal/services"
)

const (
	ServiceName              = "chat.v1.Internal"
	MethodSendPrivateMessage = "/" + ServiceName + "/SendPrivateMessage"
	MethodPostGroupMessage   = "/" + ServiceName + "/PostGroupMessage"
)

// InternalServer is implemented by Server; the interface exists for the service descriptor.
type InternalServer interface {
	SendPrivateMessage(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	PostGroupMessage(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// Server trusts its callers: the sender is taken from the request.
type Server struct {
	chat   *services.ChatService
	groups *services.GroupService
	events *events.Dispatcher
}

func NewServer(chat *services.ChatService, groups *services.GroupService, dispatcher *events.Dispatcher) *Server {
	return &Server{chat: chat, groups: groups, events: dispatcher}
}

// Register adds the internal service to a gRPC server.
func Register(s grpc.ServiceRegistrar, srv InternalServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func stringField(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

// idField reads an optional message id. Absent or null is 0; anything that is not a
// positive whole number is rejected.
func idField(m map[string]any, key string) (int64, error) {
	raw, ok := m[key]
	if !ok || raw == nil {
		return 0, nil
	}
	v, ok := raw.(float64)
	if !ok || v < 1 || v != math.Trunc(v) || v > maxID {
		return 0, status.Errorf(codes.InvalidArgument, "%s must be a positive integer", key)
	}
	return int64(v), nil
}

// maxID is the largest id a JSON number carries exactly.
const maxID = 1 << 53

// SendPrivateMessage expects from, to, message and optionally time, id and reply_to.
func (s *Server) SendPrivateMessage(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	in := req.AsMap()
	id, err := idField(in, "id")
	if err != nil {
		return nil, err
	}
	reply, err := idField(in, "reply_to")
	if err != nil {
		return nil, err
	}
	send := services.SendRequest{
		From: stringField(in, "from"),
		To:   stringField(in, "to"),
		Text: stringField(in, "message"),
		Time: stringField(in, "time"),
		ID:   id,
	}
	if reply > 0 {
		send.ReplyTo = &reply
	}

	msg, err := s.chat.Send(ctx, send)
	if err != nil {
		return nil, toStatus(err)
	}
	s.events.PrivateSent(ctx, msg)
	return toStruct(map[string]any{"status": "OK", "message": msg})
}

// PostGroupMessage expects from, group, message and optionally time and id. Skipped
// posts are a successful call with status "skipped" and a reason.
func (s *Server) PostGroupMessage(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	in := req.AsMap()
	id, err := idField(in, "id")
	if err != nil {
		return nil, err
	}
	post := services.PostRequest{
		From:  stringField(in, "from"),
		Group: stringField(in, "group"),
		Text:  stringField(in, "message"),
		Time:  stringField(in, "time"),
		ID:    id,
	}

	res, err := s.groups.Post(ctx, post)
	if err != nil {
		return nil, toStatus(err)
	}
	if res.Status == services.PostSkipped {
		s.events.GroupSkipped(ctx, post.Group, post.From, res.Reason)
	} else {
		s.events.GroupPosted(ctx, *res.Message)
	}
	return toStruct(res)
}

// toStruct converts any JSON-encodable value through its JSON form.
func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(raw, out); err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, services.ErrPeerNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, services.ErrIdentityUnavailable):
		return status.Error(codes.Unavailable, err.Error())
	default:
		return status.Error(codes.Internal, "storage failure")
	}
}

func sendPrivateMessageHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(InternalServer).SendPrivateMessage(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodSendPrivateMessage}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(InternalServer).SendPrivateMessage(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func postGroupMessageHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(InternalServer).PostGroupMessage(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodPostGroupMessage}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(InternalServer).PostGroupMessage(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*InternalServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SendPrivateMessage", Handler: sendPrivateMessageHandler},
		{MethodName: "PostGroupMessage", Handler: postGroupMessageHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "chat/v1/internal.proto",
}

var _ InternalServer = (*Server)(nil)

