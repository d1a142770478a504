// Package snapshot 项目时间线快照 - HTTP 处理
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"content-platform/internal/apiserver/auth"
	"content-platform/internal/apiserver/envelope"
	"content-platform/internal/apiserver/validate"
	"content-platform/internal/shared/model"
	"content-platform/internal/shared/storage"
)

// Store 快照处理器需要的存储能力
type Store interface {
	storage.SnapshotStore
	storage.UserStore
}

// Handler 快照 HTTP 处理器
type Handler struct {
	store Store
	guard *auth.Guard
}

// NewHandler 创建快照处理器
func NewHandler(store Store, guard *auth.Guard) *Handler {
	return &Handler{store: store, guard: guard}
}

// RegisterRoutes 注册快照路由
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/snapshots", h.guard.Member("Invalid access - must be a member to create a snapshot", h.Create))
	mux.HandleFunc("GET /api/snapshots", h.List)
	mux.HandleFunc("GET /api/snapshots/{id}", h.Get)
	mux.HandleFunc("PUT /api/snapshots/{id}", h.guard.Member("Invalid access - must be a member to update a snapshot", h.Update))
	mux.HandleFunc("DELETE /api/snapshots/{id}", h.guard.Member("Invalid access - must be a member to delete a snapshot", h.Delete))
}

// CreateRequest 创建快照请求体，contributors 为用户名
type CreateRequest struct {
	Title        string   `json:"title"`
	Descriptions []string `json:"descriptions"`
	Hyperlinks   []string `json:"hyperlinks"`
	Date         string   `json:"date"`
	Project      string   `json:"project"`
	Categories   []string `json:"categories"`
	Contributors []string `json:"contributors"`
}

// UpdateRequest 部分更新请求体，缺省字段不修改
type UpdateRequest struct {
	Title        *string  `json:"title"`
	Descriptions []string `json:"descriptions"`
	Hyperlinks   []string `json:"hyperlinks"`
	Date         *string  `json:"date"`
	Project      *string  `json:"project"`
	Categories   []string `json:"categories"`
	Contributors []string `json:"contributors"`
}

// Create 创建快照，author 为调用方
// POST /api/snapshots
func (h *Handler) Create(w http.ResponseWriter, r *http.Request, caller *auth.Identity) {
	var req CreateRequest
	if failures := validate.DecodeBody(r, validate.CreateSnapshot, &req); failures != nil {
		envelope.Fail(w, http.StatusBadRequest, "Invalid request body.", failures)
		return
	}

	snapshot, err := h.create(r.Context(), req, caller)
	if rejectInput(w, err) {
		return
	}
	if err != nil {
		envelope.Internal(w, "Internal server error while attempting to create timeline snapshot", err, envelope.SNAPSHOT001)
		return
	}

	log.Printf("[snapshot] Snapshot created: %s (%s) by %s", snapshot.Title, snapshot.ID, caller.Username)
	envelope.OK(w, "Successfully created timeline snapshot.", snapshot)
}

// List 列出全部快照（日期降序）
// GET /api/snapshots
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	snapshots, err := h.store.ListSnapshots(r.Context())
	if err != nil {
		envelope.Internal(w, "Internal server error while attempting to retrieve timeline snapshots", err, envelope.SNAPSHOT002)
		return
	}
	envelope.OK(w, "Successfully retrieved all timeline snapshots", snapshots)
}

// Get 获取单个快照
// GET /api/snapshots/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	snapshot, err := h.store.GetSnapshot(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		envelope.Fail(w, http.StatusNotFound, fmt.Sprintf("Could not find timeline snapshot with id %s", id), nil)
		return
	}
	if err != nil {
		envelope.Internal(w, "Internal server error while attempting to retrieve timeline snapshot", err, envelope.SNAPSHOT004)
		return
	}
	envelope.OK(w, "Successfully retrieved timeline snapshot", snapshot)
}

// Update 部分更新快照
// PUT /api/snapshots/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request, caller *auth.Identity) {
	var req UpdateRequest
	if failures := validate.DecodeBody(r, validate.UpdateSnapshot, &req); failures != nil {
		envelope.Fail(w, http.StatusBadRequest, "Invalid request body.", failures)
		return
	}

	id := r.PathValue("id")
	snapshot, err := h.update(r.Context(), id, req)
	if rejectInput(w, err) {
		return
	}
	if errors.Is(err, storage.ErrNotFound) {
		envelope.Fail(w, http.StatusNotFound, fmt.Sprintf("Could not find timeline snapshot with id %s to update", id), nil)
		return
	}
	if err != nil {
		envelope.Internal(w, "Internal server error while attempting to update timeline snapshot", err, envelope.SNAPSHOT005)
		return
	}

	log.Printf("[snapshot] Snapshot updated: %s by %s", id, caller.Username)
	envelope.OK(w, "Successfully updated timeline snapshot", snapshot)
}

// Delete 删除快照，不存在时返回 404
// DELETE /api/snapshots/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request, caller *auth.Identity) {
	id := r.PathValue("id")
	err := h.store.DeleteSnapshot(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		envelope.Fail(w, http.StatusNotFound, fmt.Sprintf("Could not find timeline snapshot with id %s to delete", id), nil)
		return
	}
	if err != nil {
		envelope.Internal(w, "Internal server error while attempting to delete timeline snapshot", err, envelope.SNAPSHOT003)
		return
	}

	log.Printf("[snapshot] Snapshot deleted: %s by %s", id, caller.Username)
	envelope.OK(w, "Successfully deleted timeline snapshot", nil)
}

func (h *Handler) create(ctx context.Context, req CreateRequest, caller *auth.Identity) (*model.Snapshot, error) {
	date, err := parseDate(req.Date)
	if err != nil {
		return nil, err
	}
	contributors, err := resolveContributors(ctx, h.store, req.Contributors)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	snapshot := &model.Snapshot{
		ID:           model.NewID(),
		Title:        req.Title,
		Descriptions: req.Descriptions,
		Hyperlinks:   req.Hyperlinks,
		Date:         date,
		Project:      req.Project,
		Categories:   req.Categories,
		Contributors: contributors,
		Author:       caller.UserID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if snapshot.Categories == nil {
		snapshot.Categories = []string{}
	}
	if err := h.store.CreateSnapshot(ctx, snapshot); err != nil {
		return nil, err
	}
	return snapshot, nil
}

func (h *Handler) update(ctx context.Context, id string, req UpdateRequest) (*model.Snapshot, error) {
	update := model.SnapshotUpdate{
		Title:        req.Title,
		Descriptions: req.Descriptions,
		Hyperlinks:   req.Hyperlinks,
		Project:      req.Project,
		Categories:   req.Categories,
	}
	if req.Date != nil {
		date, err := parseDate(*req.Date)
		if err != nil {
			return nil, err
		}
		update.Date = &date
	}
	if req.Contributors != nil {
		contributors, err := resolveContributors(ctx, h.store, req.Contributors)
		if err != nil {
			return nil, err
		}
		update.Contributors = contributors
	}
	return h.store.UpdateSnapshot(ctx, id, update)
}

// rejectInput inputError 返回 400，已写入响应时返回 true
func rejectInput(w http.ResponseWriter, err error) bool {
	var input *inputError
	if !errors.As(err, &input) {
		return false
	}
	envelope.Fail(w, http.StatusBadRequest, input.message, input.detail)
	return true
}
