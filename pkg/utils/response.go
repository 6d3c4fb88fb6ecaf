package utils

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// ErrorBody 是所有失败响应的统一结构。
type ErrorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// RespondJSON 发送JSON响应
func RespondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Warn("failed to encode response", zap.Error(err))
	}
}

// RespondError 发送错误响应
func RespondError(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, ErrorBody{Error: message})
}

// RespondErrorDetails 发送带详情的错误响应，details 为空时省略该字段。
func RespondErrorDetails(w http.ResponseWriter, status int, message, details string) {
	RespondJSON(w, status, ErrorBody{Error: message, Details: details})
}
