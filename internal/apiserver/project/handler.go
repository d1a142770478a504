// Package project 项目 - HTTP 处理
//
// 项目按名称寻址，名称全局唯一。
package project

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
	"content-platform/internal/shared/storage"
)

const invalidBodyMessage = "Invalid request body."

// Handler 项目 HTTP 处理器
type Handler struct {
	store storage.ProjectStore
	guard *auth.Guard
}

// NewHandler 创建项目处理器
func NewHandler(store storage.ProjectStore, guard *auth.Guard) *Handler {
	return &Handler{store: store, guard: guard}
}

// RegisterRoutes 注册项目路由
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/projects", h.guard.Member("Invalid access - must be a member to create a new project.", h.Create))
	mux.HandleFunc("GET /api/projects", h.List)
	mux.HandleFunc("GET /api/projects/{name}", h.Get)
	mux.HandleFunc("PUT /api/projects/{name}", h.guard.Member("Invalid access - must be a member to update a project.", h.Update))
	mux.HandleFunc("DELETE /api/projects/{name}", h.guard.Member("Invalid access - must be a member to delete a project.", h.Delete))
}

// CreateRequest 创建项目请求体
type CreateRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Members     []string `json:"members"`
	IsActive    *bool    `json:"isActive"`
}

// UpdateRequest 部分更新请求体，缺省字段不修改
type UpdateRequest struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Members     []string `json:"members"`
	IsActive    *bool    `json:"isActive"`
}

// Create 创建项目
// POST /api/projects
func (h *Handler) Create(w http.ResponseWriter, r *http.Request, caller *auth.Identity) {
	var req CreateRequest
	if failures := validate.DecodeBody(r, validate.CreateProject, &req); failures != nil {
		envelope.Fail(w, http.StatusBadRequest, invalidBodyMessage, failures)
		return
	}

	now := time.Now()
	project := &model.Project{
		ID:          model.NewID(),
		Name:        req.Name,
		Description: req.Description,
		Members:     req.Members,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if project.Members == nil {
		project.Members = []string{}
	}
	if req.IsActive != nil {
		project.IsActive = *req.IsActive
	}

	err := h.store.CreateProject(r.Context(), project)
	if errors.Is(err, storage.ErrDuplicate) {
		envelope.Fail(w, http.StatusBadRequest, fmt.Sprintf("Project with name <%s> already exists.", req.Name), nil)
		return
	}
	if err != nil {
		envelope.Internal(w, "Internal server error while attempting to create new project", err, envelope.PROJECT001)
		return
	}

	log.Printf("[project] Project created: %s (%s) by %s", project.Name, project.ID, caller.Username)
	envelope.OK(w, "Successfully created new project.", project)
}

// List 列出全部项目（按名称排序）
// GET /api/projects
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	projects, err := h.store.ListProjects(r.Context())
	if err != nil {
		envelope.Internal(w, "Internal server error while attempting to retrieve projects", err, envelope.PROJECT002)
		return
	}
	envelope.OK(w, "Successfully retrieved all Projects", projects)
}

// Get 按名称获取项目
// GET /api/projects/{name}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	project, err := h.store.GetProjectByName(r.Context(), name)
	if errors.Is(err, storage.ErrNotFound) {
		envelope.Fail(w, http.StatusNotFound, fmt.Sprintf("Could not find project <%s>", name), nil)
		return
	}
	if err != nil {
		envelope.Internal(w, "Internal server error while attempting to retrieve project", err, envelope.PROJECT003)
		return
	}
	envelope.OK(w, "Successfully retrieved project", project)
}

// Update 部分更新项目
// PUT /api/projects/{name}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request, caller *auth.Identity) {
	var req UpdateRequest
	if failures := validate.DecodeBody(r, validate.UpdateProject, &req); failures != nil {
		envelope.Fail(w, http.StatusBadRequest, invalidBodyMessage, failures)
		return
	}

	name := r.PathValue("name")
	project, err := h.store.UpdateProject(r.Context(), name, model.ProjectUpdate{
		Name:        req.Name,
		Description: req.Description,
		Members:     req.Members,
		IsActive:    req.IsActive,
	})
	switch {
	case errors.Is(err, storage.ErrNotFound):
		envelope.Fail(w, http.StatusNotFound, fmt.Sprintf("Could not find project <%s> to update", name), nil)
		return
	case errors.Is(err, storage.ErrDuplicate):
		envelope.Fail(w, http.StatusBadRequest, fmt.Sprintf("Project with name <%s> already exists.", deref(req.Name, name)), nil)
		return
	case err != nil:
		envelope.Internal(w, "Internal server error while attempting to update project", err, envelope.PROJECT004)
		return
	}

	log.Printf("[project] Project updated: %s by %s", name, caller.Username)
	envelope.OK(w, "Successfully updated project", project)
}

// Delete 删除项目，不存在时返回 404
// DELETE /api/projects/{name}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request, caller *auth.Identity) {
	name := r.PathValue("name")
	err := h.store.DeleteProject(r.Context(), name)
	if errors.Is(err, storage.ErrNotFound) {
		envelope.Fail(w, http.StatusNotFound, fmt.Sprintf("Could not find project <%s> to delete", name), nil)
		return
	}
	if err != nil {
		envelope.Internal(w, "Internal server error while attempting to delete project", err, envelope.PROJECT005)
		return
	}

	log.Printf("[project] Project deleted: %s by %s", name, caller.Username)
	envelope.OK(w, "Successfully deleted project", nil)
}

func deref(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}
