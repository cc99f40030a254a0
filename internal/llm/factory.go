// Package llm selects the configured inference backend.
package llm

import (
	"fmt"

	"quintos/internal/config"
	"quintos/internal/llm/deepinfra"
	"quintos/internal/llm/ollama"
	"quintos/internal/port"
)

// New returns the gateway for the configured provider.
func New(cfg *config.LLMConfig, emitter port.EventEmitter) (port.LLMClient, error) {
	switch cfg.Provider {
	case "ollama":
		return ollama.New(cfg, emitter), nil
	case "deepinfra":
		return deepinfra.New(cfg, emitter), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q (valid: ollama, deepinfra)", cfg.Provider)
	}
}
