package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS 允许浏览器页面跨域调用接口，并直接应答预检请求。
func CORS() func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:       []string{"*"},
		AllowedMethods:       []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:       []string{"Content-Type", "Authorization", "X-Request-ID"},
		MaxAge:               600,
		OptionsSuccessStatus: http.StatusNoContent,
	})
}
