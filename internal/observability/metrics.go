package observability

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

const namespace = "chat"

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route template and status.",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latencies in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	grpcServerHandledTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "grpc_server_handled_total",
		Help:      "Internal gRPC calls by service, method and status code.",
	}, []string{"grpc_service", "grpc_method", "grpc_code"})

	grpcServerDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "grpc_server_handling_seconds",
		Help:      "Internal gRPC call latencies in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"grpc_service", "grpc_method"})

	wsActiveConnections = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "ws_active_connections",
		Help:      "Open websocket connections by room kind.",
	}, []string{"kind"})

	wsEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ws_events_total",
		Help:      "Websocket lifecycle events by room kind.",
	}, []string{"kind", "event"})

	amqpPublishErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "amqp_publish_errors_total",
		Help:      "Failed event publishes.",
	})

	privateMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "private_messages_total",
		Help:      "Private message mutations by operation and outcome.",
	}, []string{"op", "outcome"})

	groupPostsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "group_posts_total",
		Help:      "Group posts by result (posted/skipped) and skip reason.",
	}, []string{"result", "reason"})

	storageFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "storage_failures_total",
		Help:      "Document store failures surfaced to callers.",
	}, []string{"op"})
)

// HTTPMetricsMiddleware records request counts and latency per route template.
func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

func GRPCServerMetricsUnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		service, method := splitFullMethod(info.FullMethod)
		grpcServerHandledTotal.WithLabelValues(service, method, status.Code(err).String()).Inc()
		grpcServerDuration.WithLabelValues(service, method).Observe(time.Since(start).Seconds())
		return resp, err
	}
}

func splitFullMethod(fullMethod string) (string, string) {
	service, method, ok := strings.Cut(strings.TrimPrefix(fullMethod, "/"), "/")
	if !ok || service == "" || method == "" {
		return "unknown", "unknown"
	}
	return service, method
}

func IncWSActive(kind string) { wsActiveConnections.WithLabelValues(kind).Inc() }

func DecWSActive(kind string) { wsActiveConnections.WithLabelValues(kind).Dec() }

func IncWSEvent(kind, event string) { wsEventsTotal.WithLabelValues(kind, event).Inc() }

func IncAMQPPublishError() { amqpPublishErrorsTotal.Inc() }

// IncPrivateMessage counts send/edit outcomes ("ok" or an error code).
func IncPrivateMessage(op, outcome string) {
	privateMessagesTotal.WithLabelValues(op, outcome).Inc()
}

// IncGroupPost counts group posts; reason is empty for posted messages.
func IncGroupPost(result, reason string) {
	groupPostsTotal.WithLabelValues(result, reason).Inc()
}

func IncStorageFailure(op string) {
	storageFailuresTotal.WithLabelValues(op).Inc()
}
