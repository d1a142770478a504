package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics 包含所有 API Server 指标
type Metrics struct {
	// HTTP 请求指标
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// 认证指标
	LoginsTotal         *prometheus.CounterVec
	TokenRotationsTotal *prometheus.CounterVec
}

// NewMetrics 创建指标实例并注册到 reg
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_in_flight",
				Help:      "Current number of HTTP requests being processed",
			},
		),
		LoginsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "auth_logins_total",
				Help:      "Login attempts by result",
			},
			[]string{"result"},
		),
		TokenRotationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "auth_token_rotations_total",
				Help:      "Token rotations by kind",
			},
			[]string{"kind"},
		),
	}
}

// MetricsMiddleware 创建 HTTP 指标中间件
func (m *Metrics) MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		m.HTTPRequestsInFlight.Inc()
		defer m.HTTPRequestsInFlight.Dec()

		wrapped := wrapResponseWriter(w)

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start).Seconds()
		path := normalizePath(r.URL.Path)
		status := strconv.Itoa(wrapped.statusCode)

		m.HTTPRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// RecordLogin 记录登录结果（success / failure / error）
func (m *Metrics) RecordLogin(result string) {
	m.LoginsTotal.WithLabelValues(result).Inc()
}

// RecordTokenRotation 记录令牌轮换（access / both）
func (m *Metrics) RecordTokenRotation(kind string) {
	m.TokenRotationsTotal.WithLabelValues(kind).Inc()
}

// 用户路由中的固定路径段，不属于 {username}
var fixedUserPaths = map[string]bool{
	"login":           true,
	"logout":          true,
	"change_username": true,
	"change_password": true,
}

// normalizePath 规范化路径，将路径参数替换为占位符，避免高基数
func normalizePath(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 3 || parts[0] != "api" {
		return path
	}

	switch parts[1] {
	case "users":
		if len(parts) == 3 && !fixedUserPaths[parts[2]] {
			return "/api/users/{username}"
		}
	case "members":
		if len(parts) == 3 {
			return "/api/members/{project}"
		}
	case "projects":
		if len(parts) == 3 {
			return "/api/projects/{name}"
		}
	case "snapshots":
		if len(parts) == 3 {
			return "/api/snapshots/{id}"
		}
	case "resources":
		switch {
		case len(parts) == 4 && parts[2] == "category":
			return "/api/resources/category/{category}"
		case len(parts) == 3:
			return "/api/resources/{id}"
		case len(parts) == 4 && parts[3] == "document":
			return "/api/resources/{id}/document"
		}
	}
	return path
}
