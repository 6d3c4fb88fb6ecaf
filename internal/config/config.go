package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"

	"github.com/2207231/chatbot/internal/model/catalog"
)

// ErrMissingAPIKey 表示默认模型提供方的密钥未配置，服务无法启动。
var ErrMissingAPIKey = errors.New("missing ANTHROPIC_API_KEY environment variable")

// 默认的上游参数，与原前端页面保持一致。
const (
	defaultAnthropicBaseURL = "https://40.chatgptsb.net/v1"
	defaultDeepSeekBaseURL  = "https://api.deepseek.com"
	defaultArkBaseURL       = "https://ark.cn-beijing.volces.com/api/v3"
	defaultArkRegion        = "cn-beijing"

	defaultTemperature       = 0.7
	defaultMaxTokens         = 4096
	defaultDeepSeekMaxTokens = 8192

	// DefaultSystemPrompt 是 DeepSeek 与 Ark 请求前置的固定系统指令。
	DefaultSystemPrompt = "You are a helpful assistant. Answer clearly and concisely, in the language the user writes in."
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server    ServerConfig
	Chat      ChatConfig
	Providers ProvidersConfig
}

// Load 从环境变量加载配置。缺少默认提供方密钥时直接返回错误。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	chat, err := loadChatConfig()
	if err != nil {
		return nil, err
	}

	providers, err := loadProvidersConfig()
	if err != nil {
		return nil, err
	}

	if !providers.Anthropic.Enabled() {
		return nil, ErrMissingAPIKey
	}

	return &Config{Server: server, Chat: chat, Providers: providers}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// ChatConfig 描述对话代理的行为开关。
type ChatConfig struct {
	DefaultModel string
	StrictModels bool
	Debug        bool
}

func loadChatConfig() (ChatConfig, error) {
	strict, err := parseBoolEnv("CHAT_STRICT_MODELS", false)
	if err != nil {
		return ChatConfig{}, err
	}

	debug, err := parseBoolEnv("CHAT_DEBUG", false)
	if err != nil {
		return ChatConfig{}, err
	}

	return ChatConfig{
		DefaultModel: getEnvOrDefault("CHAT_DEFAULT_MODEL", catalog.DefaultModelID),
		StrictModels: strict,
		Debug:        debug,
	}, nil
}

// ProvidersConfig 列出所有可用的上游模型提供方。
type ProvidersConfig struct {
	Anthropic ProviderConfig
	DeepSeek  ProviderConfig
	Ark       ProviderConfig
}

// All 按固定顺序返回全部提供方配置。
func (p ProvidersConfig) All() []ProviderConfig {
	return []ProviderConfig{p.Anthropic, p.DeepSeek, p.Ark}
}

// ProviderConfig 描述单个上游提供方：接入点、密钥以及固定的采样参数。
type ProviderConfig struct {
	Name         string
	APIKey       string
	BaseURL      string
	Region       string
	Model        string
	SystemPrompt string
	Temperature  float64
	MaxTokens    int
}

// Enabled 表示是否提供了必需的密钥。Ark 还需要推理接入点。
func (c ProviderConfig) Enabled() bool {
	if c.APIKey == "" {
		return false
	}
	if c.Name == catalog.ProviderArk {
		return c.Model != ""
	}
	return true
}

// NewChatModel 使用配置创建一个模型实例。
func (c ProviderConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("provider %s is not configured", c.Name)
	}

	temperature := float32(c.Temperature)
	maxTokens := c.MaxTokens

	if c.Name == catalog.ProviderArk {
		return ark.NewChatModel(ctx, &ark.ChatModelConfig{
			BaseURL:     c.BaseURL,
			Region:      c.Region,
			APIKey:      c.APIKey,
			Model:       c.Model,
			MaxTokens:   &maxTokens,
			Temperature: &temperature,
		})
	}

	return openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:      c.APIKey,
		BaseURL:     c.BaseURL,
		Model:       c.Model,
		MaxTokens:   &maxTokens,
		Temperature: &temperature,
	})
}

func loadProvidersConfig() (ProvidersConfig, error) {
	anthropic, err := loadProviderConfig(catalog.ProviderAnthropic, "ANTHROPIC", ProviderConfig{
		BaseURL:     defaultAnthropicBaseURL,
		Model:       catalog.DefaultModelID,
		Temperature: defaultTemperature,
		MaxTokens:   defaultMaxTokens,
	})
	if err != nil {
		return ProvidersConfig{}, err
	}

	deepseek, err := loadProviderConfig(catalog.ProviderDeepSeek, "DEEPSEEK", ProviderConfig{
		BaseURL:      defaultDeepSeekBaseURL,
		Model:        "deepseek-chat",
		SystemPrompt: DefaultSystemPrompt,
		Temperature:  defaultTemperature,
		MaxTokens:    defaultDeepSeekMaxTokens,
	})
	if err != nil {
		return ProvidersConfig{}, err
	}

	ark, err := loadProviderConfig(catalog.ProviderArk, "ARK", ProviderConfig{
		BaseURL:      defaultArkBaseURL,
		Region:       defaultArkRegion,
		SystemPrompt: DefaultSystemPrompt,
		Temperature:  defaultTemperature,
		MaxTokens:    defaultMaxTokens,
	})
	if err != nil {
		return ProvidersConfig{}, err
	}

	return ProvidersConfig{Anthropic: anthropic, DeepSeek: deepseek, Ark: ark}, nil
}

// loadProviderConfig 读取 <PREFIX>_API_KEY 等变量，未设置的项使用 defaults。
func loadProviderConfig(name, prefix string, defaults ProviderConfig) (ProviderConfig, error) {
	temperature, err := parseOptionalFloatEnv(prefix + "_TEMPERATURE")
	if err != nil {
		return ProviderConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv(prefix + "_MAX_TOKENS")
	if err != nil {
		return ProviderConfig{}, err
	}

	cfg := defaults
	cfg.Name = name
	cfg.APIKey = strings.TrimSpace(os.Getenv(prefix + "_API_KEY"))
	cfg.BaseURL = strings.TrimSuffix(getEnvOrDefault(prefix+"_API_BASE_URL", getEnvOrDefault(prefix+"_BASE_URL", defaults.BaseURL)), "/")
	cfg.Region = getEnvOrDefault(prefix+"_REGION", defaults.Region)
	cfg.Model = getEnvOrDefault(prefix+"_MODEL", defaults.Model)
	cfg.SystemPrompt = getEnvOrDefault(prefix+"_SYSTEM_PROMPT", defaults.SystemPrompt)

	if temperature != nil {
		if *temperature < 0 || *temperature > 2 {
			return ProviderConfig{}, fmt.Errorf("invalid %s_TEMPERATURE value %v: must be within [0, 2]", prefix, *temperature)
		}
		cfg.Temperature = *temperature
	}
	if maxTokens != nil {
		if *maxTokens < 1 {
			return ProviderConfig{}, fmt.Errorf("invalid %s_MAX_TOKENS value %d: must be positive", prefix, *maxTokens)
		}
		cfg.MaxTokens = *maxTokens
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
