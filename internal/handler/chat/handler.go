package chat

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/2207231/chatbot/internal/model/chat"
	"github.com/2207231/chatbot/pkg/utils"
)

// FailureMessage 是所有失败响应 error 字段的固定文案。
const FailureMessage = "chat completion failed"

var errEmptyBody = errors.New("request body is empty")

// Completer 把一段对话交给上游模型并返回回复文本。
type Completer interface {
	Complete(ctx context.Context, modelID string, turns []chat.Turn) (string, error)
}

// Request 是 POST /chat 的请求体。
type Request struct {
	Messages []chat.Turn `json:"messages"`
	Model    string      `json:"model,omitempty"`
}

// Response 是成功时的响应体。
type Response struct {
	Message string `json:"message"`
}

// Handler 聊天代理的HTTP处理器
type Handler struct {
	completer Completer
	logger    *zap.Logger
}

// New 创建聊天处理器
func New(completer Completer, logger *zap.Logger) *Handler {
	return &Handler{
		completer: completer,
		logger:    logger,
	}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat", h.handleChat)
}

// handleChat 转发对话并返回第一条回复；任何失败都以 500 返回。
func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var payload Request
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		if errors.Is(err, io.EOF) {
			err = errEmptyBody
		}
		h.fail(w, r, "invalid request body", err)
		return
	}

	reply, err := h.completer.Complete(r.Context(), payload.Model, payload.Messages)
	if err != nil {
		h.fail(w, r, "completion failed", err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, Response{Message: reply})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.logger.Error(msg,
		zap.Error(err),
		zap.String("path", r.URL.Path),
	)
	utils.RespondErrorDetails(w, http.StatusInternalServerError, FailureMessage, err.Error())
}
