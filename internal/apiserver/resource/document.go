package resource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"content-platform/internal/apiserver/auth"
	"content-platform/internal/apiserver/envelope"
	"content-platform/internal/shared/model"
	"content-platform/internal/shared/objstore"
	"content-platform/internal/shared/storage"
)

// MaxDocumentBytes 附件大小上限
const MaxDocumentBytes = 20 << 20

// DocumentField multipart 表单中附件字段名
const DocumentField = "document"

var errNoDocument = errors.New("resource has no document")

// UploadDocument 上传资源附件（所有者或管理员），替换已有附件
// PUT /api/resources/{id}/document
func (h *Handler) UploadDocument(w http.ResponseWriter, r *http.Request, caller *auth.Identity) {
	if h.objects == nil {
		envelope.Fail(w, http.StatusServiceUnavailable, "Document storage is not configured.", nil)
		return
	}
	id := r.PathValue("id")
	if !h.authorize(w, r, caller, id, "upload a document for", uploadDenied) {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxDocumentBytes+(1<<20))
	file, header, err := r.FormFile(DocumentField)
	if err != nil {
		envelope.Fail(w, http.StatusBadRequest, "Invalid document upload.", err.Error())
		return
	}
	defer file.Close()
	if header.Size > MaxDocumentBytes {
		envelope.Fail(w, http.StatusBadRequest, "Invalid document upload.", "document too large")
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	key := documentKey(id, header.Filename)

	previous, err := h.storeDocument(r.Context(), id, key, file, header.Size, contentType)
	if errors.Is(err, storage.ErrNotFound) {
		h.dropDocument(r, key)
		envelope.Fail(w, http.StatusNotFound, fmt.Sprintf("Could not find resource with id %s to upload a document for", id), nil)
		return
	}
	if err != nil {
		h.dropDocument(r, key)
		envelope.Internal(w, "Internal server error while attempting to upload document", err, envelope.RESOURCE006)
		return
	}
	if previous != key {
		h.dropDocument(r, previous)
	}

	log.Printf("[resource] Document uploaded: %s (%d bytes) by %s", key, header.Size, caller.Username)
	envelope.OK(w, "Successfully uploaded document", map[string]string{"document": key})
}

// DownloadDocument 下载资源附件
// GET /api/resources/{id}/document
func (h *Handler) DownloadDocument(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	obj, err := h.openDocument(r.Context(), id)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		envelope.Fail(w, http.StatusNotFound, fmt.Sprintf("Could not find resource with id %s", id), nil)
		return
	case errors.Is(err, errNoDocument), errors.Is(err, objstore.ErrObjectNotFound):
		envelope.Fail(w, http.StatusNotFound, fmt.Sprintf("Resource with id %s has no document", id), nil)
		return
	case err != nil:
		envelope.Internal(w, "Internal server error while attempting to download document", err, envelope.RESOURCE007)
		return
	}
	defer obj.Body.Close()

	w.Header().Set("Content-Type", obj.ContentType)
	if obj.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, obj.Body); err != nil {
		log.Printf("[resource] Document stream for %s interrupted: %v", id, err)
	}
}

// storeDocument 上传对象并记录 key，返回旧 key
func (h *Handler) storeDocument(ctx context.Context, id, key string, body io.Reader, size int64, contentType string) (string, error) {
	current, err := h.resources.GetResource(ctx, id)
	if err != nil {
		return "", err
	}
	if err := h.objects.Upload(ctx, key, body, size, contentType); err != nil {
		return "", fmt.Errorf("upload object: %w", err)
	}
	if _, err := h.resources.UpdateResource(ctx, id, model.ResourceUpdate{Document: &key}); err != nil {
		return "", err
	}
	return current.Document, nil
}

func (h *Handler) openDocument(ctx context.Context, id string) (*objstore.Object, error) {
	resource, err := h.resources.GetResource(ctx, id)
	if err != nil {
		return nil, err
	}
	if resource.Document == "" || h.objects == nil {
		return nil, errNoDocument
	}
	return h.objects.Download(ctx, resource.Document)
}

// dropDocument 删除对象，失败只记录日志
func (h *Handler) dropDocument(r *http.Request, key string) {
	if key == "" || h.objects == nil {
		return
	}
	if err := h.objects.Delete(r.Context(), key); err != nil {
		log.Printf("[resource] Failed to delete document %s: %v", key, err)
	}
}

// documentKey resources/{id}/{uuid}{ext}
func documentKey(id, filename string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	return fmt.Sprintf("resources/%s/%s%s", id, uuid.NewString(), ext)
}
