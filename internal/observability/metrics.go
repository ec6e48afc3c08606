package observability

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_node_http_requests_total",
			Help: "Total number of HTTP requests processed by the chat node.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_node_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	grpcServerHandledTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grpc_server_handled_total",
			Help: "Total number of gRPC requests handled by the server.",
		},
		[]string{"grpc_service", "grpc_method", "grpc_code"},
	)
	peerCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_node_peer_calls_total",
			Help: "Outbound calls to peer nodes by operation and outcome.",
		},
		[]string{"op", "outcome"},
	)
	peerCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_node_peer_call_duration_seconds",
			Help:    "Outbound peer call latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)
	messagesStoredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_node_messages_stored_total",
			Help: "Messages inserted into the conversation store.",
		},
		[]string{"origin"},
	)
	duplicateMessagesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_node_duplicate_messages_total",
			Help: "Inbound messages dropped because their id was already stored.",
		},
	)
	fileResolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_node_file_resolutions_total",
			Help: "File lookups by where the bytes came from.",
		},
		[]string{"source"},
	)
	persistenceErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_node_persistence_errors_total",
			Help: "Write-through failures to durable storage.",
		},
		[]string{"op"},
	)
	wsActiveConnections = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "chat_node_ws_active_connections",
			Help: "Number of active websocket connections.",
		},
		[]string{"kind"},
	)
	wsEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_node_ws_events_total",
			Help: "Total number of websocket events.",
		},
		[]string{"kind", "event"},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_node_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		grpcServerHandledTotal,
		peerCallsTotal,
		peerCallDuration,
		messagesStoredTotal,
		duplicateMessagesTotal,
		fileResolutionsTotal,
		persistenceErrorsTotal,
		wsActiveConnections,
		wsEventsTotal,
		amqpPublishErrorsTotal,
	)
}

// MetricsHandler exposes the default registry.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func GRPCServerMetricsUnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		resp, err := handler(ctx, req)
		statusInfo := status.Convert(err)
		service, method := splitFullMethod(info.FullMethod)
		grpcServerHandledTotal.WithLabelValues(service, method, statusInfo.Code().String()).Inc()
		return resp, err
	}
}

func splitFullMethod(fullMethod string) (string, string) {
	parts := strings.Split(fullMethod, "/")
	if len(parts) < 3 {
		return "unknown", "unknown"
	}
	return parts[1], parts[2]
}

// ObservePeerCall records one outbound peer call.
func ObservePeerCall(op string, err error, elapsed time.Duration) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	peerCallsTotal.WithLabelValues(op, outcome).Inc()
	peerCallDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// IncMessageStored counts an insert; origin is "local" or "remote".
func IncMessageStored(origin string) {
	messagesStoredTotal.WithLabelValues(origin).Inc()
}

func IncDuplicateMessage() {
	duplicateMessagesTotal.Inc()
}

// IncFileResolution counts a resolved file; source is "local" or "remote".
func IncFileResolution(source string) {
	fileResolutionsTotal.WithLabelValues(source).Inc()
}

func IncPersistenceError(op string) {
	persistenceErrorsTotal.WithLabelValues(op).Inc()
}

func IncWSActive(kind string) {
	wsActiveConnections.WithLabelValues(kind).Inc()
}

func DecWSActive(kind string) {
	wsActiveConnections.WithLabelValues(kind).Dec()
}

func IncWSEvent(kind, event string) {
	wsEventsTotal.WithLabelValues(kind, event).Inc()
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}
