// Package member 实验室成员 - HTTP 处理
package member

import (
	"errors"
	"log"
	"net/http"
	"time"

	"content-platform/internal/apiserver/auth"
	"content-platform/internal/apiserver/envelope"
	"content-platform/internal/apiserver/validate"
	"content-platform/internal/shared/model"
	"content-platform/internal/shared/storage"
)

// Handler 成员 HTTP 处理器
type Handler struct {
	store storage.MemberStore
	guard *auth.Guard
}

// NewHandler 创建成员处理器
func NewHandler(store storage.MemberStore, guard *auth.Guard) *Handler {
	return &Handler{store: store, guard: guard}
}

// RegisterRoutes 注册成员路由
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/members", h.guard.MemberOrAPIKey("Invalid access - must be a member to create a lab member.", h.Create))
	mux.HandleFunc("GET /api/members", h.List)
	mux.HandleFunc("GET /api/members/{project}", h.ListByProject)
}

// CreateRequest 创建成员请求体
type CreateRequest struct {
	Name     model.MemberName    `json:"name"`
	Username string              `json:"username"`
	Project  string              `json:"project"`
	Position string              `json:"position"`
	Contact  model.MemberContact `json:"contact"`
	IsAlumni bool                `json:"isAlumni"`
	Blurb    string              `json:"blurb"`
}

// Create 创建成员，成员令牌或前端 API Key 均可
// POST /api/members
func (h *Handler) Create(w http.ResponseWriter, r *http.Request, caller *auth.Identity) {
	var req CreateRequest
	if failures := validate.DecodeBody(r, validate.CreateMember, &req); failures != nil {
		envelope.FailCode(w, http.StatusBadRequest, "Request error: wrong shema in request body", failures, envelope.MEMBER001)
		return
	}

	now := time.Now()
	member := &model.Member{
		ID:        model.NewID(),
		Name:      req.Name,
		Username:  req.Username,
		Project:   req.Project,
		Position:  req.Position,
		Contact:   req.Contact,
		IsAlumni:  req.IsAlumni,
		Blurb:     req.Blurb,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := h.store.CreateMember(r.Context(), member)
	if errors.Is(err, storage.ErrDuplicate) {
		envelope.Fail(w, http.StatusBadRequest, "Member already exists.", nil)
		return
	}
	if err != nil {
		envelope.Internal(w, "Internal server error while attempting to create lab member", err, envelope.MEMBER002)
		return
	}

	by := "api key"
	if caller != nil {
		by = caller.Username
	}
	log.Printf("[member] Member created: %s %s (%s) by %s", member.Name.FirstName, member.Name.LastName, member.ID, by)
	envelope.OK(w, "Successfully created lab member", member)
}

// List 列出全部成员（按姓、名排序）
// GET /api/members
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	members, err := h.store.ListMembers(r.Context())
	if err != nil {
		envelope.Internal(w, "Internal server error while attempting to retrieve members", err, envelope.MEMBER003)
		return
	}
	envelope.OK(w, "Successfully retrieved members.", members)
}

// ListByProject 列出某项目的成员
// GET /api/members/{project}
func (h *Handler) ListByProject(w http.ResponseWriter, r *http.Request) {
	members, err := h.store.ListMembersByProject(r.Context(), r.PathValue("project"))
	if err != nil {
		envelope.Internal(w, "Internal server error while attempting to retrieve project members", err, envelope.MEMBER004)
		return
	}
	envelope.OK(w, "Successfully retrieved members.", members)
}
