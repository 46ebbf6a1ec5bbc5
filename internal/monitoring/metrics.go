package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 监控指标
type Metrics struct {
	// HTTP 请求指标
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// 推送流指标
	StreamConnections      prometheus.Gauge
	NotificationsPublished prometheus.Counter
	NotificationsDelivered prometheus.Counter

	// 缓存指标
	CacheHits               *prometheus.CounterVec
	CacheMisses             *prometheus.CounterVec
	InvalidationsTotal      prometheus.Counter
	InvalidationFailures    prometheus.Counter
	InvalidationKeysEvicted prometheus.Counter

	// 业务指标
	InboxesCreated  prometheus.Counter
	InboxesDeleted  prometheus.Counter
	MessagesStored  prometheus.Counter
	MessagesDeleted prometheus.Counter
	UsersRegistered prometheus.Counter

	// 错误指标
	PanicsTotal prometheus.Counter
}

// NewMetrics 创建监控指标并注册到默认注册表
func NewMetrics() *Metrics {
	return &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mailflow_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mailflow_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		StreamConnections: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "mailflow_stream_connections",
				Help: "Number of open notification streams",
			},
		),

		NotificationsPublished: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mailflow_notifications_published_total",
				Help: "Total number of notifications published to the broker",
			},
		),

		NotificationsDelivered: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mailflow_notifications_delivered_total",
				Help: "Total number of notifications delivered to stream clients",
			},
		),

		CacheHits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mailflow_cache_hits_total",
				Help: "Total number of cache hits",
			},
			[]string{"operation"},
		),

		CacheMisses: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mailflow_cache_misses_total",
				Help: "Total number of cache misses",
			},
			[]string{"operation"},
		),

		InvalidationsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mailflow_cache_invalidations_total",
				Help: "Total number of inbox cache invalidations",
			},
		),

		InvalidationFailures: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mailflow_cache_invalidation_failures_total",
				Help: "Total number of failed cache invalidations",
			},
		),

		InvalidationKeysEvicted: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mailflow_cache_invalidation_keys_evicted_total",
				Help: "Total number of cache keys evicted by invalidations",
			},
		),

		InboxesCreated: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mailflow_inboxes_created_total",
				Help: "Total number of inboxes created",
			},
		),

		InboxesDeleted: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mailflow_inboxes_deleted_total",
				Help: "Total number of inboxes deleted",
			},
		),

		MessagesStored: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mailflow_messages_stored_total",
				Help: "Total number of messages stored",
			},
		),

		MessagesDeleted: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mailflow_messages_deleted_total",
				Help: "Total number of messages deleted",
			},
		),

		UsersRegistered: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mailflow_users_registered_total",
				Help: "Total number of users registered",
			},
		),

		PanicsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mailflow_panics_total",
				Help: "Total number of recovered panics",
			},
		),
	}
}

// RecordHTTPRequest 记录 HTTP 请求指标
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// HTTPHandler 返回 Prometheus HTTP 处理器
func (m *Metrics) HTTPHandler() http.Handler {
	return promhttp.Handler()
}
