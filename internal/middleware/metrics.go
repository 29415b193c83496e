package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cipherchat_http_requests_total",
			Help: "HTTP 请求总数",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cipherchat_http_request_duration_seconds",
			Help:    "HTTP 请求耗时",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	pendingMessageSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cipherchat_message_ciphertext_bytes",
			Help:    "投递密文大小分布",
			Buckets: prometheus.ExponentialBuckets(64, 4, 10),
		},
	)
)

// ObserveCiphertextSize 记录一次密文投递的大小
func ObserveCiphertextSize(size int) {
	pendingMessageSize.Observe(float64(size))
}

// MetricsMiddleware Prometheus 指标采集中间件。
// path 维度使用路由模板而非原始 URL，避免路径参数打爆标签基数。
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			// 未匹配到路由（404），归并为一个标签
			path = "unmatched"
		}

		httpRequestsTotal.WithLabelValues(
			c.Request.Method,
			path,
			strconv.Itoa(c.Writer.Status()),
		).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path).
			Observe(time.Since(start).Seconds())
	}
}
