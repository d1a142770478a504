package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"content-platform/internal/apiserver/auth"
	"content-platform/internal/apiserver/member"
	"content-platform/internal/apiserver/project"
	"content-platform/internal/apiserver/query"
	"content-platform/internal/apiserver/resource"
	"content-platform/internal/apiserver/snapshot"
)

// Router 返回配置好的 HTTP 路由
//
// 路由规则：
//
// 基础:
//   - GET /health                 - 健康检查
//   - GET /metrics                - Prometheus 指标
//   - GET /api/docs/openapi.json  - API 文档
//
// 用户与令牌 (auth):
//   - POST/GET /api/users, DELETE /api/users/{username}
//   - POST /api/users/login, POST /api/users/logout
//   - PUT /api/users/change_username, PUT /api/users/change_password
//   - GET /api/tokens/access_token
//
// 实体:
//   - /api/members, /api/projects, /api/resources, /api/snapshots
//
// 查询:
//   - POST /api/query             - 管理员受限聚合查询
//
// 中间件由外到内：panic 恢复、请求日志、指标、CORS。
func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.Health)
	mux.Handle("GET /metrics", promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /api/docs/openapi.json", h.OpenAPIDocument)

	auth.NewHandler(h.store, h.tokens, h.guard).RegisterRoutes(mux)
	member.NewHandler(h.store, h.guard).RegisterRoutes(mux)
	project.NewHandler(h.store, h.guard).RegisterRoutes(mux)
	resource.NewHandler(h.store, h.objects, h.guard).RegisterRoutes(mux)
	snapshot.NewHandler(h.store, h.guard).RegisterRoutes(mux)
	query.NewHandler(h.store, h.guard).RegisterRoutes(mux)

	var handler http.Handler = corsMiddleware(mux)
	handler = h.metrics.MetricsMiddleware(handler)
	handler = requestLogMiddleware(h.logger, handler)
	return recoverMiddleware(h.logger, handler)
}
