package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/2207231/chatbot/internal/config"
	"github.com/2207231/chatbot/internal/model/catalog"
)

var (
	// ErrUnknownModel is returned in strict mode for ids missing from the catalog.
	ErrUnknownModel = errors.New("unknown model")
	// ErrProviderUnavailable is returned when the resolved provider has no credentials.
	ErrProviderUnavailable = errors.New("provider not configured")
)

// deepSeekMarker routes uncatalogued model ids to the DeepSeek provider.
const deepSeekMarker = "deepseek"

// Provider is a configured upstream together with its compiled chat chain.
type Provider struct {
	Name         string
	SystemPrompt string
	Temperature  float64
	MaxTokens    int

	chain compose.Runnable[map[string]any, *schema.Message]
}

// Registry maps model identifiers to providers. It is built once at startup
// and is read-only afterwards.
type Registry struct {
	models          catalog.Store
	providers       map[string]*Provider
	defaultProvider string
	strict          bool
}

// newRegistry compiles a chain for every provider that has a chat model.
func newRegistry(ctx context.Context, models catalog.Store, cfgs []config.ProviderConfig, chatModels map[string]model.ChatModel, strict bool) (*Registry, error) {
	r := &Registry{
		models:          models,
		providers:       make(map[string]*Provider, len(chatModels)),
		defaultProvider: catalog.ProviderAnthropic,
		strict:          strict,
	}

	for _, cfg := range cfgs {
		chatModel, ok := chatModels[cfg.Name]
		if !ok || chatModel == nil {
			continue
		}

		chain, err := compileChain(ctx, chatModel, cfg.SystemPrompt)
		if err != nil {
			return nil, fmt.Errorf("failed to compile %s chain: %w", cfg.Name, err)
		}

		r.providers[cfg.Name] = &Provider{
			Name:         cfg.Name,
			SystemPrompt: cfg.SystemPrompt,
			Temperature:  cfg.Temperature,
			MaxTokens:    cfg.MaxTokens,
			chain:        chain,
		}
	}

	return r, nil
}

// compileChain prepends the provider's system instruction, if any, to the
// conversation and feeds it to the chat model.
func compileChain(ctx context.Context, chatModel model.ChatModel, systemPrompt string) (compose.Runnable[map[string]any, *schema.Message], error) {
	templates := make([]schema.MessagesTemplate, 0, 2)
	if systemPrompt != "" {
		templates = append(templates, schema.SystemMessage("{system}"))
	}
	templates = append(templates, schema.MessagesPlaceholder("history", false))

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(prompt.FromMessages(schema.FString, templates...))
	chain.AppendChatModel(chatModel)

	return chain.Compile(ctx)
}

// ProviderName returns the provider a model id is routed to, without
// checking whether that provider is configured.
func (r *Registry) ProviderName(modelID string) (string, error) {
	if entry, ok := r.models.FindByID(modelID); ok {
		return entry.Provider, nil
	}

	if r.strict {
		return "", fmt.Errorf("%w: %s", ErrUnknownModel, modelID)
	}

	if strings.Contains(strings.ToLower(modelID), deepSeekMarker) {
		return catalog.ProviderDeepSeek, nil
	}
	return r.defaultProvider, nil
}

// Resolve returns the configured provider serving modelID.
func (r *Registry) Resolve(modelID string) (*Provider, error) {
	name, err := r.ProviderName(modelID)
	if err != nil {
		return nil, err
	}

	provider, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderUnavailable, name)
	}
	return provider, nil
}

// Available reports whether a provider has been configured.
func (r *Registry) Available(name string) bool {
	_, ok := r.providers[name]
	return ok
}
