package catalog

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/2207231/chatbot/internal/service/ai"
	"github.com/2207231/chatbot/pkg/utils"
)

// Lister 返回带可用状态的模型列表。
type Lister interface {
	Models() []ai.ModelStatus
}

// Handler 模型目录的HTTP处理器
type Handler struct {
	models Lister
}

// New 创建模型目录处理器
func New(models Lister) *Handler {
	return &Handler{
		models: models,
	}
}

// RegisterRoutes 注册模型相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/models", h.handleListModels)
}

// handleListModels 列出所有模型
func (h *Handler) handleListModels(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.models.Models())
}
