package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/2207231/chatbot/internal/handler/catalog"
	"github.com/2207231/chatbot/internal/handler/chat"
	middlewarePkg "github.com/2207231/chatbot/internal/middleware"
	aiService "github.com/2207231/chatbot/internal/service/ai"
	"github.com/2207231/chatbot/pkg/utils"
)

// NewRouter wires HTTP routes to the completion service.
func NewRouter(aiSvc *aiService.Service, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS())

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	chatHandler := chat.New(aiSvc, logger)
	catalogHandler := catalog.New(aiSvc)

	r.Route("/api", func(api chi.Router) {
		chatHandler.RegisterRoutes(api)
		catalogHandler.RegisterRoutes(api)
	})

	return r
}
