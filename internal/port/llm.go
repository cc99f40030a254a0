package port

import "context"

// ChatMessage is one turn of conversation history sent to the backend.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatOptions tunes a single completion call. Zero values mean "use the
// provider default for this kind of call".
type ChatOptions struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// LLMClient is the inference gateway contract. Implementations own the
// single active-model slot: EnsureModel and each completion call are
// serialized so that a completion always runs against the model it asked
// for, even with concurrent callers.
//
// The gateway never retries; retry and escalation policy belong to callers.
type LLMClient interface {
	// EnsureModel guarantees the named model is resident before returning.
	// Swapping out a different resident model is part of the contract.
	// Returns *domain.ModelLoadError when the load fails.
	EnsureModel(ctx context.Context, model string) error

	// Chat runs a text completion against the target model (the configured
	// conversation model when opts.Model is empty).
	Chat(ctx context.Context, systemPrompt string, messages []ChatMessage, opts ChatOptions) (string, error)

	// ChatVision runs a completion with an attached base64 JPEG against the
	// target model (the configured vision model when opts.Model is empty).
	ChatVision(ctx context.Context, systemPrompt, textPrompt, imageBase64 string, opts ChatOptions) (string, error)
}
