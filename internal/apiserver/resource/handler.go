// Package resource 分类资源 - HTTP 处理
//
// 资源的 owner 为创建者的 User ID；所有者或管理员可以修改、删除资源
// 以及上传附件文档。
package resource

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"content-platform/internal/apiserver/auth"
	"content-platform/internal/apiserver/envelope"
	"content-platform/internal/apiserver/validate"
	"content-platform/internal/shared/model"
	"content-platform/internal/shared/objstore"
	"content-platform/internal/shared/storage"
)

const invalidBodyMessage = "Invalid request body."

// Store 资源处理器需要的存储能力
type Store interface {
	storage.ResourceStore
	storage.UserStore
}

// Handler 资源 HTTP 处理器
type Handler struct {
	resources storage.ResourceStore
	owners    *OwnershipResolver
	objects   objstore.Store // 为 nil 时不支持附件
	guard     *auth.Guard
}

// NewHandler 创建资源处理器，objects 可为 nil
func NewHandler(store Store, objects objstore.Store, guard *auth.Guard) *Handler {
	return &Handler{
		resources: store,
		owners:    NewOwnershipResolver(store, store),
		objects:   objects,
		guard:     guard,
	}
}

// RegisterRoutes 注册资源路由
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/resources", h.guard.Member("Invalid access - must be a member to create a new resource.", h.Create))
	mux.HandleFunc("GET /api/resources/category/{category}", h.ListByCategory)
	mux.HandleFunc("GET /api/resources/{id}", h.Get)
	mux.HandleFunc("PATCH /api/resources/{id}", h.guard.Member(updateDenied, h.Update))
	mux.HandleFunc("DELETE /api/resources/{id}", h.guard.Member(deleteDenied, h.Delete))
	mux.HandleFunc("PUT /api/resources/{id}/document", h.guard.Member(uploadDenied, h.UploadDocument))
	mux.HandleFunc("GET /api/resources/{id}/document", h.DownloadDocument)
}

const (
	updateDenied = "Invalid access - must be either owner of resource or an admin to update a resource"
	deleteDenied = "Invalid access - must be either owner of resource or an admin to delete a resource"
	uploadDenied = "Invalid access - must be either owner of resource or an admin to upload a document"
)

// CreateRequest 创建资源请求体
type CreateRequest struct {
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	Category     model.Category `json:"category"`
	Author       string         `json:"author"`
	ResourceLink string         `json:"resource_link"`
}

// UpdateRequest 部分更新请求体，缺省字段不修改
type UpdateRequest struct {
	Title        *string         `json:"title"`
	Description  *string         `json:"description"`
	Category     *model.Category `json:"category"`
	Author       *string         `json:"author"`
	ResourceLink *string         `json:"resource_link"`
}

// Create 创建资源，owner 为调用方
// POST /api/resources
func (h *Handler) Create(w http.ResponseWriter, r *http.Request, caller *auth.Identity) {
	var req CreateRequest
	if failures := validate.DecodeBody(r, validate.CreateResource, &req); failures != nil {
		envelope.Fail(w, http.StatusBadRequest, invalidBodyMessage, failures)
		return
	}

	now := time.Now()
	resource := &model.Resource{
		ID:           model.NewID(),
		Title:        req.Title,
		Description:  req.Description,
		Category:     req.Category,
		Author:       req.Author,
		Owner:        caller.UserID,
		ResourceLink: req.ResourceLink,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := h.resources.CreateResource(r.Context(), resource); err != nil {
		envelope.Internal(w, "Internal server error while attempting to create new resource", err, envelope.RESOURCE001)
		return
	}

	log.Printf("[resource] Resource created: %s (%s) by %s", resource.Title, resource.ID, caller.Username)
	envelope.OK(w, "Successfully created new resource", resource)
}

// ListByCategory 按主分类列出资源，按子分类分组
// GET /api/resources/category/{category}
func (h *Handler) ListByCategory(w http.ResponseWriter, r *http.Request) {
	resources, err := h.resources.ListResourcesByCategory(r.Context(), r.PathValue("category"))
	if err != nil {
		envelope.Internal(w, "Internal server error while attempting to retrieve resources in category", err, envelope.RESOURCE002)
		return
	}
	envelope.OK(w, "Successfully retrieved all Resources in category", GroupBySubCategory(resources))
}

// Get 获取单个资源（owner 填充为 {_id, username}）
// GET /api/resources/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	resource, err := h.resources.GetResourceView(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		envelope.Fail(w, http.StatusNotFound, fmt.Sprintf("Could not find resource with id %s", id), nil)
		return
	}
	if err != nil {
		envelope.Internal(w, "Internal server error while attempting to retrieve resource", err, envelope.RESOURCE003)
		return
	}
	envelope.OK(w, "Successfully retrieved resource", resource)
}

// Update 部分更新资源（所有者或管理员）
// PATCH /api/resources/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request, caller *auth.Identity) {
	id := r.PathValue("id")
	if !h.authorize(w, r, caller, id, "update", updateDenied) {
		return
	}

	var req UpdateRequest
	if failures := validate.DecodeBody(r, validate.UpdateResource, &req); failures != nil {
		envelope.Fail(w, http.StatusBadRequest, invalidBodyMessage, failures)
		return
	}

	resource, err := h.resources.UpdateResource(r.Context(), id, model.ResourceUpdate{
		Title:        req.Title,
		Description:  req.Description,
		Category:     req.Category,
		Author:       req.Author,
		ResourceLink: req.ResourceLink,
	})
	if errors.Is(err, storage.ErrNotFound) {
		envelope.Fail(w, http.StatusNotFound, fmt.Sprintf("Could not find resource with id %s to update", id), nil)
		return
	}
	if err != nil {
		envelope.Internal(w, "Internal server error while attempting to update resource", err, envelope.RESOURCE004)
		return
	}

	log.Printf("[resource] Resource updated: %s by %s", id, caller.Username)
	envelope.OK(w, "Successfully updated resource", resource)
}

// Delete 删除资源（所有者或管理员），不存在时返回 404
// DELETE /api/resources/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request, caller *auth.Identity) {
	id := r.PathValue("id")
	if !h.authorize(w, r, caller, id, "delete", deleteDenied) {
		return
	}

	resource, err := h.resources.GetResource(r.Context(), id)
	if err == nil {
		err = h.resources.DeleteResource(r.Context(), id)
	}
	if errors.Is(err, storage.ErrNotFound) {
		envelope.Fail(w, http.StatusNotFound, fmt.Sprintf("Could not find resource with id %s to delete", id), nil)
		return
	}
	if err != nil {
		envelope.Internal(w, "Internal server error while attempting to delete resource", err, envelope.RESOURCE005)
		return
	}

	h.dropDocument(r, resource.Document)
	log.Printf("[resource] Resource deleted: %s by %s", id, caller.Username)
	envelope.OK(w, "Successfully deleted resource", nil)
}

// authorize 所有者或管理员校验；已写入响应时返回 false
//
// 资源不存在返回 404，不是所有者返回 400。
func (h *Handler) authorize(w http.ResponseWriter, r *http.Request, caller *auth.Identity, id, action, deny string) bool {
	ok, err := h.owners.CanModify(r.Context(), id, caller)
	if errors.Is(err, ErrResourceNotFound) {
		envelope.Fail(w, http.StatusNotFound, fmt.Sprintf("Could not find resource with id %s to %s", id, action), nil)
		return false
	}
	if err != nil {
		envelope.Internal(w, "Internal server error while attempting to verify resource ownership", err, envelope.RESOURCE008)
		return false
	}
	if !ok {
		envelope.Fail(w, http.StatusBadRequest, deny, nil)
		return false
	}
	return true
}
