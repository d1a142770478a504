// Package server 路由配置与核心基础设施
//
// 文件组织：
//   - common.go: Handler 定义、健康检查与 API 文档
//   - handler.go: 路由组装
//   - middleware.go: CORS、请求日志、panic 恢复
//   - metrics.go: Prometheus 指标
package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/prometheus/client_golang/prometheus"

	"content-platform/internal/apiserver/auth"
	"content-platform/internal/apiserver/envelope"
	"content-platform/internal/shared/objstore"
	"content-platform/internal/shared/storage"
	"content-platform/pkg/logging"
)

// Handler API 处理器
//
// 持有存储层与认证组件，负责组装各领域包的路由。
// objects 为 nil 时资源附件接口返回 503。
type Handler struct {
	store   storage.PersistentStore
	tokens  *auth.TokenService
	guard   *auth.Guard
	objects objstore.Store

	openAPI []byte // 序列化后的 OpenAPI 文档，未设置时文档接口返回 500

	registry *prometheus.Registry
	metrics  *Metrics
	logger   *logging.Logger
}

// NewHandler 创建 Handler 实例
//
// 每个 Handler 使用独立的 Prometheus 注册表，令牌服务的登录/轮换指标记录到该注册表。
func NewHandler(store storage.PersistentStore, tokens *auth.TokenService, guard *auth.Guard) *Handler {
	registry := prometheus.NewRegistry()
	h := &Handler{
		store:    store,
		tokens:   tokens,
		guard:    guard,
		registry: registry,
		metrics:  NewMetrics("content_platform", registry),
		logger:   logging.Default("api"),
	}
	tokens.SetRecorder(h.metrics)
	return h
}

// SetObjectStore 设置资源附件存储
func (h *Handler) SetObjectStore(objects objstore.Store) {
	h.objects = objects
}

// SetLogger 设置请求日志器
func (h *Handler) SetLogger(logger *logging.Logger) {
	if logger != nil {
		h.logger = logger
	}
}

// SetOpenAPI 设置对外提供的 OpenAPI 文档
func (h *Handler) SetOpenAPI(doc *openapi3.T) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal openapi document: %w", err)
	}
	h.openAPI = data
	return nil
}

// GetMetrics 返回指标实例
func (h *Handler) GetMetrics() *Metrics {
	return h.metrics
}

// Health 健康检查接口
//
// 路由: GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	envelope.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// OpenAPIDocument 返回内嵌的 OpenAPI 文档
//
// 路由: GET /api/docs/openapi.json
func (h *Handler) OpenAPIDocument(w http.ResponseWriter, r *http.Request) {
	if h.openAPI == nil {
		envelope.Internal(w, "API documentation is not available.", nil, envelope.SERVER002)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(h.openAPI)
}
