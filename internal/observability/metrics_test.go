package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestHTTPMetricsMiddlewareUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(HTTPMetricsMiddleware())
	r.GET("/groups/:name", func(c *gin.Context) { c.Status(http.StatusTeapot) })

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/groups/:name", "418"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/groups/gophers", nil))

	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/groups/:name", "418"))
	assert.Equal(t, before+1, after)
}

func TestGRPCInterceptorRecordsCode(t *testing.T) {
	interceptor := GRPCServerMetricsUnaryInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: "/chat.v1.Internal/PostGroupMessage"}

	before := testutil.ToFloat64(grpcServerHandledTotal.WithLabelValues("chat.v1.Internal", "PostGroupMessage", "NotFound"))
	_, err := interceptor(context.Background(), nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return nil, status.Error(codes.NotFound, "missing")
	})
	require.Error(t, err)

	after := testutil.ToFloat64(grpcServerHandledTotal.WithLabelValues("chat.v1.Internal", "PostGroupMessage", "NotFound"))
	assert.Equal(t, before+1, after)
}

func TestSplitFullMethod(t *testing.T) {
	service, method := splitFullMethod("/chat.v1.Internal/SendPrivateMessage")
	assert.Equal(t, "chat.v1.Internal", service)
	assert.Equal(t, "SendPrivateMessage", method)

	service, method = splitFullMethod("bogus")
	assert.Equal(t, "unknown", service)
	assert.Equal(t, "unknown", method)
}

type failingPublisher struct{}

func (failingPublisher) Publish(ctx context.Context, routingKey string, event any, headers map[string]string) error {
	return assert.AnError
}

func TestPublishEventCountsFailures(t *testing.T) {
	SetPublisher(failingPublisher{})
	t.Cleanup(func() { SetPublisher(nil) })

	before := testutil.ToFloat64(amqpPublishErrorsTotal)
	err := PublishEvent(context.Background(), "chat.private.sent", EventEnvelope{EventType: "chat"}, BuildHeaders("req-1", ""))
	require.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, before+1, testutil.ToFloat64(amqpPublishErrorsTotal))

	SetPublisher(nil)
	assert.NoError(t, PublishEvent(context.Background(), "x", nil, nil))
}
