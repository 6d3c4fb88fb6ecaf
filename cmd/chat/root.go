package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/2207231/chatbot/internal/chatview"
	"github.com/2207231/chatbot/internal/client"
	"github.com/2207231/chatbot/internal/config"
	"github.com/2207231/chatbot/internal/localstore"
	"github.com/2207231/chatbot/internal/model/catalog"
	"github.com/2207231/chatbot/internal/tui"
	"github.com/2207231/chatbot/pkg/logger"
)

const rootLongDesc string = `Terminal chat client for the completion proxy.

Messages are sent to the proxy's /api/chat route, replies are revealed one
character at a time, and finished conversations are kept in a local history.

Settings are read from ~/.chatbot/config.toml (or --config); flags override
the file.

Examples:
  chat
  chat --server http://localhost:8080 --model deepseek-chat
  chat --store sqlite --history ~/.chatbot/history.db`

const rootShortDesc string = "Chat with an LLM through the completion proxy"

type rootCommander struct {
	configPath     string
	server         string
	model          string
	history        string
	store          string
	revealInterval time.Duration
	debug          bool
}

func newRootCmd() *cobra.Command {
	return buildRootCmd(&rootCommander{})
}

func buildRootCmd(cmder *rootCommander) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "chat",
		Short:         rootShortDesc,
		Long:          rootLongDesc,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmder.resolveConfig(cmd)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVarP(&cmder.configPath, "config", "c", "", "Path to a TOML config file")
	cmd.Flags().StringVarP(&cmder.server, "server", "s", config.DefaultServerURL, "Completion proxy base URL")
	cmd.Flags().StringVarP(&cmder.model, "model", "m", catalog.DefaultModelID, "Model used for new turns")
	cmd.Flags().StringVar(&cmder.history, "history", "", "Path of the session history (default ~/.chatbot/history.{json,db})")
	cmd.Flags().StringVar(&cmder.store, "store", config.DefaultStoreBackend, "History backend: file, sqlite or memory")
	cmd.Flags().DurationVar(&cmder.revealInterval, "reveal-interval", config.DefaultRevealInterval, "Delay between revealed characters")
	cmd.Flags().BoolVar(&cmder.debug, "debug", false, "Enable debug logging")

	return cmd
}

// resolveConfig loads the config file and applies the flags the user set.
func (c *rootCommander) resolveConfig(cmd *cobra.Command) (config.ClientConfig, error) {
	cfg, err := config.LoadClientConfig(c.configPath)
	if err != nil {
		return config.ClientConfig{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("server") {
		cfg.Server = c.server
	}
	if flags.Changed("model") {
		cfg.Model = c.model
	}
	if flags.Changed("history") {
		cfg.History = c.history
	}
	if flags.Changed("store") {
		cfg.Store = c.store
	}
	if flags.Changed("reveal-interval") {
		cfg.RevealInterval = c.revealInterval
	}
	if flags.Changed("debug") {
		cfg.Debug = c.debug
	}

	if err := cfg.Validate(); err != nil {
		return config.ClientConfig{}, err
	}
	return cfg, nil
}

func run(ctx context.Context, cfg config.ClientConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}

	historyPath, err := cfg.HistoryPath()
	if err != nil {
		return err
	}

	zl, closeLog, err := openLogger(cfg, filepath.Dir(historyPath))
	if err != nil {
		return err
	}
	defer closeLog()

	store, err := localstore.Open(cfg.Store, historyPath)
	if err != nil {
		return fmt.Errorf("could not open history %s: %w", historyPath, err)
	}
	defer store.Close()

	proxy := client.New(cfg.Server)
	models := fetchModels(ctx, proxy, zl)

	view := chatview.New(chatview.Options{
		Completer:      proxy,
		Storage:        store,
		Model:          cfg.Model,
		RevealInterval: cfg.RevealInterval,
		Logger:         zl,
	})
	defer view.Close()

	zl.Info("chat client started",
		zap.String("server", cfg.Server),
		zap.String("model", cfg.Model),
		zap.String("store", cfg.Store),
		zap.String("history", historyPath),
	)

	program := tea.NewProgram(
		tui.New(view, tui.Options{Models: models, MarkdownStyle: cfg.MarkdownStyle}),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("terminal UI failed: %w", err)
	}
	return nil
}

// fetchModels asks the proxy for its catalog and falls back to the built-in
// list when the proxy cannot be reached.
func fetchModels(ctx context.Context, proxy *client.Client, zl *zap.Logger) []catalog.Status {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	models, err := proxy.Models(ctx)
	if err == nil && len(models) > 0 {
		return models
	}
	zl.Warn("could not fetch model catalog, using built-in list", zap.Error(err))

	seed := catalog.Seed()
	fallback := make([]catalog.Status, 0, len(seed))
	for _, m := range seed {
		fallback = append(fallback, catalog.Status{Model: m, Available: true})
	}
	return fallback
}

// openLogger writes logs to a file so they never draw over the terminal UI.
func openLogger(cfg config.ClientConfig, dir string) (*zap.Logger, func(), error) {
	path := cfg.LogFile
	if path == "" {
		path = filepath.Join(dir, "chat.log")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("could not create log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("could not open log file %s: %w", path, err)
	}

	zl := logger.NewFileLogger(f, cfg.Debug)
	return zl, func() {
		_ = zl.Sync()
		_ = f.Close()
	}, nil
}
