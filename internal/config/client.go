package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/2207231/chatbot/internal/model/catalog"
)

// 终端客户端的默认值。
const (
	DefaultServerURL      = "http://localhost:8080"
	DefaultStoreBackend   = "file"
	DefaultMarkdownStyle  = "dark"
	DefaultRevealInterval = 30 * time.Millisecond
	clientDirName         = ".chatbot"
)

// ClientConfig 描述终端聊天客户端的配置，来自 TOML 文件与命令行参数。
type ClientConfig struct {
	Server         string        `toml:"server"`
	Model          string        `toml:"model"`
	History        string        `toml:"history"`
	Store          string        `toml:"store"`
	RevealInterval time.Duration `toml:"reveal_interval"`
	MarkdownStyle  string        `toml:"markdown_style"`
	LogFile        string        `toml:"log_file"`
	Debug          bool          `toml:"debug"`
}

// DefaultClientConfig 返回未配置时使用的客户端设置。
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Server:         DefaultServerURL,
		Model:          catalog.DefaultModelID,
		Store:          DefaultStoreBackend,
		RevealInterval: DefaultRevealInterval,
		MarkdownStyle:  DefaultMarkdownStyle,
	}
}

// ClientDir 返回客户端数据目录 ~/.chatbot。
func ClientDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, clientDirName), nil
}

// LoadClientConfig 读取 path 指向的 TOML 文件。path 为空时尝试默认位置，
// 文件不存在则直接使用默认值。
func LoadClientConfig(path string) (ClientConfig, error) {
	cfg := DefaultClientConfig()

	explicit := path != ""
	if !explicit {
		dir, err := ClientDir()
		if err != nil {
			return cfg, nil
		}
		path = filepath.Join(dir, "config.toml")
	}

	md, err := toml.DecodeFile(path, &cfg)
	switch {
	case errors.Is(err, os.ErrNotExist) && !explicit:
		return DefaultClientConfig(), nil
	case err != nil:
		return ClientConfig{}, fmt.Errorf("failed to read client config %s: %w", path, err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		return ClientConfig{}, fmt.Errorf("unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}

	return cfg, cfg.Validate()
}

// Validate 检查取值范围。
func (c ClientConfig) Validate() error {
	if strings.TrimSpace(c.Server) == "" {
		return errors.New("server URL must not be empty")
	}
	switch c.Store {
	case "file", "sqlite", "memory":
	default:
		return fmt.Errorf("invalid store %q: must be file, sqlite or memory", c.Store)
	}
	if c.RevealInterval <= 0 {
		return fmt.Errorf("invalid reveal_interval %s: must be positive", c.RevealInterval)
	}
	return nil
}

// HistoryPath 返回会话历史的存储位置；未指定时按存储类型放在客户端目录下。
func (c ClientConfig) HistoryPath() (string, error) {
	if c.History != "" {
		return c.History, nil
	}
	dir, err := ClientDir()
	if err != nil {
		return "", err
	}
	if c.Store == "sqlite" {
		return filepath.Join(dir, "history.db"), nil
	}
	return filepath.Join(dir, "history.json"), nil
}
