package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/2207231/chatbot/internal/config"
	"github.com/2207231/chatbot/internal/handler"
	"github.com/2207231/chatbot/internal/model/catalog"
	"github.com/2207231/chatbot/internal/service/ai"
	"github.com/2207231/chatbot/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	zl := logger.NewLogger(false)

	// Load .env file
	envErr := godotenv.Load()

	cfg, zl, err := loadConfig(zl)
	if err != nil {
		zl.Fatal("failed to load configuration", zap.Error(err))
	}
	defer func() { _ = zl.Sync() }()
	zap.ReplaceGlobals(zl)

	if envErr != nil {
		zl.Info("no .env file loaded, using process environment only", zap.Error(envErr))
	}

	models := catalog.Seed()
	if cfg.Providers.Ark.Enabled() {
		models = append(models, catalog.ArkModel(cfg.Providers.Ark.Model))
	}

	aiService, err := ai.NewService(ctx, ai.Options{
		DefaultModel: cfg.Chat.DefaultModel,
		StrictModels: cfg.Chat.StrictModels,
		Providers:    cfg.Providers.All(),
	}, catalog.NewMemoryStore(models), zl)
	if err != nil {
		zl.Fatal("failed to initialize completion service", zap.Error(err))
	}

	router := handler.NewRouter(aiService, zl)

	startServer(ctx, cfg.Server, router, zl)
}

// loadConfig 读取环境配置。出错时返回 boot，调用方用它输出致命错误；
// 开启 CHAT_DEBUG 时换成 debug 级别的 logger。
func loadConfig(boot *zap.Logger) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, boot, err
	}
	if cfg.Chat.Debug {
		return cfg, logger.NewLogger(true), nil
	}
	return cfg, boot, nil
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, zl *zap.Logger) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	zl.Info("chat proxy listening", zap.String("addr", addr))
	if err := runServer(ctx, srv); err != nil {
		zl.Fatal("server error", zap.Error(err))
	}
	zl.Info("server stopped")
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
