// Package query 受限聚合查询（仅管理员）
//
// 请求中的 collection 解析为封闭的 Target 枚举，conditions 经白名单
// 重建后才交给存储层执行，原始输入不会直接到达数据库。
package query

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"content-platform/internal/apiserver/auth"
	"content-platform/internal/apiserver/envelope"
	"content-platform/internal/apiserver/validate"
	"content-platform/internal/shared/storage"
)

// Handler 查询 HTTP 处理器
type Handler struct {
	store storage.QueryStore
	guard *auth.Guard
}

// NewHandler 创建查询处理器
func NewHandler(store storage.QueryStore, guard *auth.Guard) *Handler {
	return &Handler{store: store, guard: guard}
}

// RegisterRoutes 注册查询路由
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/query", h.guard.Admin("Invalid access - must be an admin to run queries.", h.Run))
}

// Request 查询请求体
type Request struct {
	Collection string            `json:"collection"`
	Conditions []json.RawMessage `json:"conditions"`
}

// Run 执行受限查询
// POST /api/query
func (h *Handler) Run(w http.ResponseWriter, r *http.Request, caller *auth.Identity) {
	var req Request
	if failures := validate.DecodeBody(r, validate.Query, &req); failures != nil {
		envelope.Fail(w, http.StatusBadRequest, "Invalid request body.", failures)
		return
	}

	results, err := h.run(r.Context(), req)
	var invalid *ViolationError
	if errors.As(err, &invalid) {
		envelope.FailCode(w, http.StatusBadRequest, "Invalid query.", invalid.Reason, envelope.QUERY001)
		return
	}
	if err != nil {
		envelope.Internal(w, "Internal server error while attempting to execute the query", err, envelope.QUERY002)
		return
	}

	log.Printf("[query] %s ran %d-stage query on %s (%d results)", caller.Username, len(req.Conditions), req.Collection, len(results))
	envelope.OK(w, "Successfully executed the query.", results)
}

// run 校验并执行；存储层不支持的阶段同样视为非法查询
func (h *Handler) run(ctx context.Context, req Request) ([]map[string]any, error) {
	q, err := Sanitize(req.Collection, req.Conditions)
	if err != nil {
		return nil, err
	}
	results, err := h.store.RunQuery(ctx, q)
	if errors.Is(err, storage.ErrUnsupported) {
		return nil, &ViolationError{Reason: fmt.Sprintf("not supported by the configured store: %v", err)}
	}
	return results, err
}
