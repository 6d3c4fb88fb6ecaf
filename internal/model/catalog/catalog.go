package catalog

// Provider names known to the completion proxy.
const (
	ProviderAnthropic = "anthropic"
	ProviderDeepSeek  = "deepseek"
	ProviderArk       = "ark"
)

// DefaultModelID is used when a chat request does not name a model.
const DefaultModelID = "claude-3-5-sonnet-20241022"

// Model describes a selectable chat model and the provider that serves it.
type Model struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Provider    string `json:"provider"`
}

// Seed returns the built-in model list offered by the chat client.
func Seed() []Model {
	return []Model{
		{
			ID:          "claude-3-5-sonnet-20241022",
			Name:        "Claude 3.5 Sonnet",
			Description: "最新的 Claude 3.5 模型，支持更强大的对话能力",
			Provider:    ProviderAnthropic,
		},
		{
			ID:          "claude-3-haiku-20240307",
			Name:        "Claude 3 Haiku",
			Description: "轻量快速的 Claude 3 模型，适合简单对话",
			Provider:    ProviderAnthropic,
		},
		{
			ID:          "deepseek-chat",
			Name:        "DeepSeek Chat",
			Description: "DeepSeek 通用对话模型",
			Provider:    ProviderDeepSeek,
		},
		{
			ID:          "deepseek-reasoner",
			Name:        "DeepSeek Reasoner",
			Description: "DeepSeek 推理模型，适合需要多步思考的问题",
			Provider:    ProviderDeepSeek,
		},
	}
}

// ArkModel describes a Volcengine Ark endpoint configured at startup.
func ArkModel(endpointID string) Model {
	return Model{
		ID:          endpointID,
		Name:        "Doubao (Ark)",
		Description: "火山方舟推理接入点",
		Provider:    ProviderArk,
	}
}

// Status is a catalog entry annotated with whether its provider is configured.
type Status struct {
	Model
	Available bool `json:"available"`
}
