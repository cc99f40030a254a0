package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server ServerConfig
	Log    LogConfig
	LLM    LLMConfig
	OCR    OCRConfig
	Events EventsConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LLMConfig holds inference backend settings. The host running local
// inference fits one model in memory at a time, so the vision timeout has
// to absorb an unload+load cycle on top of the completion itself.
type LLMConfig struct {
	Provider string `mapstructure:"provider"` // "ollama" or "deepinfra"

	OllamaBaseURL    string `mapstructure:"ollama_base_url"`
	DeepInfraBaseURL string `mapstructure:"deepinfra_base_url"`
	DeepInfraAPIKey  string `mapstructure:"deepinfra_api_key"`

	ConversationModel string `mapstructure:"conversation_model"`
	VisionModel       string `mapstructure:"vision_model"`

	ConversationMaxTokens int `mapstructure:"conversation_max_tokens"`
	OCRMaxTokens          int `mapstructure:"ocr_max_tokens"`

	ConversationTimeout time.Duration `mapstructure:"conversation_timeout"`
	OCRTimeout          time.Duration `mapstructure:"ocr_timeout"`
	LoadTimeout         time.Duration `mapstructure:"load_timeout"`

	KeepAlive string `mapstructure:"keep_alive"`
}

// OCRConfig holds document pipeline settings.
type OCRConfig struct {
	MaxUploadSizeMB int64 `mapstructure:"max_upload_size_mb"`
}

// EventsConfig holds telemetry emitter settings.
type EventsConfig struct {
	BufferSize int `mapstructure:"buffer_size"`
}

// Load reads configuration from environment variables with the QUINTOS_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("QUINTOS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.environment", "development")

	// Log defaults
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "console")

	// LLM defaults
	v.SetDefault("llm.provider", "ollama")
	v.SetDefault("llm.ollama_base_url", "http://localhost:11434")
	v.SetDefault("llm.deepinfra_base_url", "https://api.deepinfra.com/v1/openai")
	v.SetDefault("llm.deepinfra_api_key", "")
	v.SetDefault("llm.conversation_model", "qwen3:8b")
	v.SetDefault("llm.vision_model", "qwen2.5vl:7b")
	v.SetDefault("llm.conversation_max_tokens", 1024)
	v.SetDefault("llm.ocr_max_tokens", 2048)
	v.SetDefault("llm.conversation_timeout", "60s")
	v.SetDefault("llm.ocr_timeout", "180s")
	v.SetDefault("llm.load_timeout", "120s")
	v.SetDefault("llm.keep_alive", "10m")

	// OCR defaults
	v.SetDefault("ocr.max_upload_size_mb", 10)

	// Events defaults
	v.SetDefault("events.buffer_size", 256)

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":                 "QUINTOS_SERVER_PORT",
		"server.read_timeout":         "QUINTOS_SERVER_READ_TIMEOUT",
		"server.write_timeout":        "QUINTOS_SERVER_WRITE_TIMEOUT",
		"server.environment":          "QUINTOS_SERVER_ENVIRONMENT",
		"log.level":                   "QUINTOS_LOG_LEVEL",
		"log.format":                  "QUINTOS_LOG_FORMAT",
		"llm.provider":                "QUINTOS_LLM_PROVIDER",
		"llm.ollama_base_url":         "QUINTOS_LLM_OLLAMA_BASE_URL",
		"llm.deepinfra_base_url":      "QUINTOS_LLM_DEEPINFRA_BASE_URL",
		"llm.deepinfra_api_key":       "QUINTOS_LLM_DEEPINFRA_API_KEY",
		"llm.conversation_model":      "QUINTOS_LLM_CONVERSATION_MODEL",
		"llm.vision_model":            "QUINTOS_LLM_VISION_MODEL",
		"llm.conversation_max_tokens": "QUINTOS_LLM_CONVERSATION_MAX_TOKENS",
		"llm.ocr_max_tokens":          "QUINTOS_LLM_OCR_MAX_TOKENS",
		"llm.conversation_timeout":    "QUINTOS_LLM_CONVERSATION_TIMEOUT",
		"llm.ocr_timeout":             "QUINTOS_LLM_OCR_TIMEOUT",
		"llm.load_timeout":            "QUINTOS_LLM_LOAD_TIMEOUT",
		"llm.keep_alive":              "QUINTOS_LLM_KEEP_ALIVE",
		"ocr.max_upload_size_mb":      "QUINTOS_OCR_MAX_UPLOAD_SIZE_MB",
		"events.buffer_size":          "QUINTOS_EVENTS_BUFFER_SIZE",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	cfg.Server = ServerConfig{
		Port:         v.GetString("server.port"),
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}
	cfg.LLM = LLMConfig{
		Provider:              v.GetString("llm.provider"),
		OllamaBaseURL:         v.GetString("llm.ollama_base_url"),
		DeepInfraBaseURL:      v.GetString("llm.deepinfra_base_url"),
		DeepInfraAPIKey:       v.GetString("llm.deepinfra_api_key"),
		ConversationModel:     v.GetString("llm.conversation_model"),
		VisionModel:           v.GetString("llm.vision_model"),
		ConversationMaxTokens: v.GetInt("llm.conversation_max_tokens"),
		OCRMaxTokens:          v.GetInt("llm.ocr_max_tokens"),
		ConversationTimeout:   v.GetDuration("llm.conversation_timeout"),
		OCRTimeout:            v.GetDuration("llm.ocr_timeout"),
		LoadTimeout:           v.GetDuration("llm.load_timeout"),
		KeepAlive:             v.GetString("llm.keep_alive"),
	}
	cfg.OCR = OCRConfig{
		MaxUploadSizeMB: v.GetInt64("ocr.max_upload_size_mb"),
	}
	cfg.Events = EventsConfig{
		BufferSize: v.GetInt("events.buffer_size"),
	}

	return cfg, nil
}
