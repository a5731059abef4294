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
	HTTPRequestSize     *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// 别名指标
	AliasesCreated     *prometheus.CounterVec
	AliasesDeleted     prometheus.Counter
	AliasesTransferred prometheus.Counter

	// 邮件流转指标
	EmailsForwarded prometheus.Counter
	EmailsReplied   prometheus.Counter
	EmailsBlocked   prometheus.Counter
	EmailsBounced   prometheus.Counter

	// 联系人指标
	ContactsCreated prometheus.Counter

	// 用户指标
	UsersRegistered prometheus.Counter

	// SMTP 指标
	SMTPConnections prometheus.Gauge
	SMTPRejected    *prometheus.CounterVec

	// 任务队列指标
	JobsEnqueued *prometheus.CounterVec

	// 错误指标
	ErrorsTotal *prometheus.CounterVec
	PanicsTotal prometheus.Counter
}

// NewMetrics 创建监控指标
func NewMetrics() *Metrics {
	return &Metrics{
		// HTTP 请求指标
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mailmask_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mailmask_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		HTTPRequestSize: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mailmask_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 8),
			},
			[]string{"method", "endpoint"},
		),

		HTTPResponseSize: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mailmask_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 8),
			},
			[]string{"method", "endpoint"},
		),

		// 别名指标，kind 取值 random|custom|auto
		AliasesCreated: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mailmask_aliases_created_total",
				Help: "Total number of aliases created",
			},
			[]string{"kind"},
		),

		AliasesDeleted: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mailmask_aliases_deleted_total",
				Help: "Total number of aliases moved to trash",
			},
		),

		AliasesTransferred: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mailmask_aliases_transferred_total",
				Help: "Total number of aliases transferred between users",
			},
		),

		// 邮件流转指标
		EmailsForwarded: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mailmask_emails_forwarded_total",
				Help: "Total number of emails accepted for forwarding",
			},
		),

		EmailsReplied: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mailmask_emails_replied_total",
				Help: "Total number of replies sent through reverse aliases",
			},
		),

		EmailsBlocked: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mailmask_emails_blocked_total",
				Help: "Total number of emails blocked by disabled aliases",
			},
		),

		EmailsBounced: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mailmask_emails_bounced_total",
				Help: "Total number of bounced emails",
			},
		),

		ContactsCreated: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mailmask_contacts_created_total",
				Help: "Total number of reverse-alias contacts created",
			},
		),

		UsersRegistered: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mailmask_users_registered_total",
				Help: "Total number of registered users",
			},
		),

		SMTPConnections: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "mailmask_smtp_connections",
				Help: "Number of active SMTP connections",
			},
		),

		// reason 取值 relay|not_found|quota|limiter
		SMTPRejected: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mailmask_smtp_rejected_total",
				Help: "Total number of rejected SMTP recipients",
			},
			[]string{"reason"},
		),

		JobsEnqueued: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mailmask_jobs_enqueued_total",
				Help: "Total number of background jobs enqueued",
			},
			[]string{"name"},
		),

		ErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mailmask_errors_total",
				Help: "Total number of errors",
			},
			[]string{"type", "component"},
		),

		PanicsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mailmask_panics_total",
				Help: "Total number of recovered panics",
			},
		),
	}
}

// RecordHTTPRequest 记录一次 HTTP 请求
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration, requestSize, responseSize int64) {
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
	m.HTTPRequestSize.WithLabelValues(method, endpoint).Observe(float64(requestSize))
	m.HTTPResponseSize.WithLabelValues(method, endpoint).Observe(float64(responseSize))
}

// RecordAliasCreated 记录别名创建，kind 取值 random|custom|auto
func (m *Metrics) RecordAliasCreated(kind string) {
	m.AliasesCreated.WithLabelValues(kind).Inc()
}

// RecordAliasDeleted 记录别名进入回收站
func (m *Metrics) RecordAliasDeleted() {
	m.AliasesDeleted.Inc()
}

// RecordError 记录错误
func (m *Metrics) RecordError(errorType, component string) {
	m.ErrorsTotal.WithLabelValues(errorType, component).Inc()
}

// RecordPanic 记录 panic
func (m *Metrics) RecordPanic() {
	m.PanicsTotal.Inc()
}

// Handler 返回 Prometheus 指标的 HTTP 处理器
func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}
