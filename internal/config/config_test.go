package config

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2207231/chatbot/internal/model/catalog"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "CHAT_DEFAULT_MODEL", "CHAT_STRICT_MODELS", "CHAT_DEBUG",
		"ANTHROPIC_API_KEY", "ANTHROPIC_API_BASE_URL", "ANTHROPIC_TEMPERATURE", "ANTHROPIC_MAX_TOKENS",
		"DEEPSEEK_API_KEY", "DEEPSEEK_API_BASE_URL", "DEEPSEEK_SYSTEM_PROMPT",
		"ARK_API_KEY", "ARK_MODEL", "ARK_BASE_URL", "ARK_REGION",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadRequiresAnthropicKey(t *testing.T) {
	clearEnv(t)

	_, err := Load()
	require.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, catalog.DefaultModelID, cfg.Chat.DefaultModel)
	assert.False(t, cfg.Chat.StrictModels)

	anthropic := cfg.Providers.Anthropic
	assert.True(t, anthropic.Enabled())
	assert.Equal(t, defaultAnthropicBaseURL, anthropic.BaseURL)
	assert.Equal(t, 0.7, anthropic.Temperature)
	assert.Equal(t, 4096, anthropic.MaxTokens)
	assert.Empty(t, anthropic.SystemPrompt)

	deepseek := cfg.Providers.DeepSeek
	assert.False(t, deepseek.Enabled())
	assert.Equal(t, DefaultSystemPrompt, deepseek.SystemPrompt)
	assert.Equal(t, 8192, deepseek.MaxTokens)

	assert.False(t, cfg.Providers.Ark.Enabled())
}

func TestLoadProviderOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "127.0.0.1:9090")
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	t.Setenv("ANTHROPIC_API_BASE_URL", "https://proxy.example.com/v1/")
	t.Setenv("ANTHROPIC_TEMPERATURE", "0.2")
	t.Setenv("DEEPSEEK_API_KEY", "ds-test")
	t.Setenv("DEEPSEEK_SYSTEM_PROMPT", "be brief")
	t.Setenv("CHAT_STRICT_MODELS", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9090", cfg.Server.Addr)
	assert.True(t, cfg.Chat.StrictModels)
	assert.Equal(t, "https://proxy.example.com/v1", cfg.Providers.Anthropic.BaseURL)
	assert.Equal(t, 0.2, cfg.Providers.Anthropic.Temperature)
	assert.True(t, cfg.Providers.DeepSeek.Enabled())
	assert.Equal(t, "be brief", cfg.Providers.DeepSeek.SystemPrompt)
}

func TestArkNeedsEndpoint(t *testing.T) {
	clearEnv(t)
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	t.Setenv("ARK_API_KEY", "ark-test")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.Providers.Ark.Enabled())

	t.Setenv("ARK_MODEL", "ep-20250101")
	cfg, err = Load()
	require.NoError(t, err)
	assert.True(t, cfg.Providers.Ark.Enabled())
	assert.Equal(t, defaultArkRegion, cfg.Providers.Ark.Region)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string][2]string{
		"port with space":    {"PORT", "80 80"},
		"bad bool":           {"CHAT_STRICT_MODELS", "maybe"},
		"temperature range":  {"ANTHROPIC_TEMPERATURE", "3.5"},
		"temperature format": {"ANTHROPIC_TEMPERATURE", "hot"},
		"max tokens":         {"ANTHROPIC_MAX_TOKENS", "0"},
	}

	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("ANTHROPIC_API_KEY", "sk-test")
			t.Setenv(kv[0], kv[1])

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestNewChatModelRequiresConfiguration(t *testing.T) {
	_, err := ProviderConfig{Name: catalog.ProviderDeepSeek}.NewChatModel(context.Background())
	assert.Error(t, err)
}
