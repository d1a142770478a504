// Package envelope 统一 HTTP 响应格式
//
// 成功：{message, data}
// 失败：{message, error?, errCode?}
package envelope

import (
	"encoding/json"
	"log"
	"net/http"
)

// Response 响应信封
type Response struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Error   any    `json:"error,omitempty"`
	ErrCode Code   `json:"errCode,omitempty"`
}

// WriteJSON 将数据以 JSON 格式写入 HTTP 响应
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// OK 200 成功响应
func OK(w http.ResponseWriter, message string, data any) {
	WriteJSON(w, http.StatusOK, Response{Message: message, Data: data})
}

// Fail 客户端错误响应（400/404），detail 可为 nil
func Fail(w http.ResponseWriter, status int, message string, detail any) {
	WriteJSON(w, status, Response{Message: message, Error: detail})
}

// FailCode 带错误码的客户端错误响应
func FailCode(w http.ResponseWriter, status int, message string, detail any, code Code) {
	WriteJSON(w, status, Response{Message: message, Error: detail, ErrCode: code})
}

// Internal 500 响应，记录原始错误并返回错误码
func Internal(w http.ResponseWriter, message string, err error, code Code) {
	log.Printf("[api] %s %s: %v", code, message, err)
	var detail any
	if err != nil {
		detail = err.Error()
	}
	WriteJSON(w, http.StatusInternalServerError, Response{Message: message, Error: detail, ErrCode: code})
}
