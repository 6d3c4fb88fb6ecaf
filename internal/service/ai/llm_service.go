package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/2207231/chatbot/internal/config"
	"github.com/2207231/chatbot/internal/model/catalog"
	"github.com/2207231/chatbot/internal/model/chat"
)

var (
	ErrEmptyConversation = errors.New("messages must not be empty")
	ErrInvalidMessage    = errors.New("invalid message")
	ErrEmptyCompletion   = errors.New("invalid response from API")
)

// Options carries the startup configuration of the completion service.
type Options struct {
	DefaultModel string
	StrictModels bool
	Providers    []config.ProviderConfig
}

// ModelStatus is a catalog entry annotated with provider availability.
type ModelStatus = catalog.Status

// Service forwards conversations to the upstream provider selected by model id.
type Service struct {
	registry     *Registry
	models       catalog.Store
	defaultModel string
	logger       *zap.Logger
}

// NewService creates chat models for every configured provider and compiles
// their chains.
func NewService(ctx context.Context, opts Options, models catalog.Store, logger *zap.Logger) (*Service, error) {
	chatModels := make(map[string]model.ChatModel, len(opts.Providers))
	for _, cfg := range opts.Providers {
		if !cfg.Enabled() {
			logger.Info("provider not configured, skipping", zap.String("provider", cfg.Name))
			continue
		}

		chatModel, err := cfg.NewChatModel(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s chat model: %w", cfg.Name, err)
		}
		chatModels[cfg.Name] = chatModel

		logger.Info("provider initialized",
			zap.String("provider", cfg.Name),
			zap.String("base_url", cfg.BaseURL),
		)
	}

	return NewServiceWithChatModels(ctx, opts, models, chatModels, logger)
}

// NewServiceWithChatModels builds the service around already constructed
// chat models, keyed by provider name.
func NewServiceWithChatModels(ctx context.Context, opts Options, models catalog.Store, chatModels map[string]model.ChatModel, logger *zap.Logger) (*Service, error) {
	registry, err := newRegistry(ctx, models, opts.Providers, chatModels, opts.StrictModels)
	if err != nil {
		return nil, err
	}

	defaultModel := strings.TrimSpace(opts.DefaultModel)
	if defaultModel == "" {
		defaultModel = catalog.DefaultModelID
	}

	return &Service{
		registry:     registry,
		models:       models,
		defaultModel: defaultModel,
		logger:       logger,
	}, nil
}

// DefaultModel returns the model used when a request names none.
func (s *Service) DefaultModel() string {
	return s.defaultModel
}

// Registry exposes model routing.
func (s *Service) Registry() *Registry {
	return s.registry
}

// Models lists the catalog with provider availability.
func (s *Service) Models() []ModelStatus {
	items := s.models.List()
	statuses := make([]ModelStatus, 0, len(items))
	for _, item := range items {
		statuses = append(statuses, ModelStatus{
			Model:     item,
			Available: s.registry.Available(item.Provider),
		})
	}
	return statuses
}

// Complete sends the conversation to the provider serving modelID and returns
// the first choice's content unmodified.
func (s *Service) Complete(ctx context.Context, modelID string, turns []chat.Turn) (string, error) {
	if strings.TrimSpace(modelID) == "" {
		modelID = s.defaultModel
	}

	if err := ValidateTurns(turns); err != nil {
		return "", err
	}

	provider, err := s.registry.Resolve(modelID)
	if err != nil {
		return "", err
	}

	s.logger.Info("sending request to upstream",
		zap.String("model", modelID),
		zap.String("provider", provider.Name),
		zap.Int("message_count", len(turns)),
	)

	input := map[string]any{
		"system":  provider.SystemPrompt,
		"history": buildHistoryMessages(turns),
	}

	start := time.Now()
	response, err := provider.chain.Invoke(ctx, input, compose.WithChatModelOption(model.WithModel(modelID)))
	if err != nil {
		return "", fmt.Errorf("%s completion failed: %w", provider.Name, err)
	}
	if response == nil || response.Content == "" {
		return "", ErrEmptyCompletion
	}

	s.logger.Info("received response from upstream",
		zap.String("model", modelID),
		zap.Int("length", len(response.Content)),
		zap.Duration("duration", time.Since(start)),
	)
	return response.Content, nil
}

// ValidateTurns checks the request constraints of the completion proxy.
func ValidateTurns(turns []chat.Turn) error {
	if len(turns) == 0 {
		return ErrEmptyConversation
	}
	for i, turn := range turns {
		if !turn.Role.Valid() {
			return fmt.Errorf("%w: messages[%d] has role %q", ErrInvalidMessage, i, turn.Role)
		}
		if strings.TrimSpace(turn.Content) == "" {
			return fmt.Errorf("%w: messages[%d] has empty content", ErrInvalidMessage, i)
		}
	}
	return nil
}

// buildHistoryMessages maps request turns onto eino messages. Anything that
// is not a user or system turn is sent as the assistant.
func buildHistoryMessages(turns []chat.Turn) []*schema.Message {
	history := make([]*schema.Message, 0, len(turns))
	for _, turn := range turns {
		switch turn.Role {
		case chat.RoleUser:
			history = append(history, schema.UserMessage(turn.Content))
		case chat.RoleSystem:
			history = append(history, schema.SystemMessage(turn.Content))
		default:
			history = append(history, schema.AssistantMessage(turn.Content, nil))
		}
	}
	return history
}
