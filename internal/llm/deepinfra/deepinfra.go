// Package deepinfra implements the inference gateway against DeepInfra's
// OpenAI-compatible API. Hosted models are always available, so
// EnsureModel is a no-op and no resident-slot bookkeeping is needed.
package deepinfra

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"quintos/internal/config"
	"quintos/internal/domain"
	"quintos/internal/port"
)

const (
	defaultChatTemperature   = 0.7
	defaultVisionTemperature = 0.1
)

// Client talks to the DeepInfra chat completions endpoint.
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
	emitter port.EventEmitter

	conversationModel string
	visionModel       string

	conversationMaxTokens int
	ocrMaxTokens          int

	conversationTimeout time.Duration
	ocrTimeout          time.Duration
}

// New creates a Client from configuration. The emitter may be nil.
func New(cfg *config.LLMConfig, emitter port.EventEmitter) *Client {
	return &Client{
		baseURL:               cfg.DeepInfraBaseURL,
		apiKey:                cfg.DeepInfraAPIKey,
		httpc:                 &http.Client{},
		emitter:               emitter,
		conversationModel:     cfg.ConversationModel,
		visionModel:           cfg.VisionModel,
		conversationMaxTokens: cfg.ConversationMaxTokens,
		ocrMaxTokens:          cfg.OCRMaxTokens,
		conversationTimeout:   cfg.ConversationTimeout,
		ocrTimeout:            cfg.OCRTimeout,
	}
}

// EnsureModel is a no-op: hosted models need no loading.
func (c *Client) EnsureModel(ctx context.Context, model string) error {
	return nil
}

type completionRequest struct {
	Model              string         `json:"model"`
	Messages           []any          `json:"messages"`
	Temperature        float64        `json:"temperature"`
	MaxTokens          int            `json:"max_tokens"`
	ChatTemplateKwargs map[string]any `json:"chat_template_kwargs,omitempty"`
}

type textMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type blockMessage struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Chat runs a text completion against the conversation model, disabling
// the model's thinking mode via chat template kwargs.
func (c *Client) Chat(ctx context.Context, systemPrompt string, messages []port.ChatMessage, opts port.ChatOptions) (string, error) {
	model := opts.Model
	if model == "" {
		model = c.conversationModel
	}
	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.conversationMaxTokens
	}
	temperature := opts.Temperature
	if temperature == 0 {
		temperature = defaultChatTemperature
	}

	msgs := make([]any, 0, len(messages)+1)
	if systemPrompt != "" {
		msgs = append(msgs, textMessage{Role: "system", Content: systemPrompt})
	}
	var lastUser string
	for _, m := range messages {
		msgs = append(msgs, textMessage{Role: m.Role, Content: m.Content})
		if m.Role == "user" {
			lastUser = m.Content
		}
	}

	req := completionRequest{
		Model:       model,
		Messages:    msgs,
		Temperature: temperature,
		MaxTokens:   maxTokens,
		ChatTemplateKwargs: map[string]any{
			"enable_thinking": false,
		},
	}
	return c.complete(ctx, model, req, c.conversationTimeout, map[string]any{
		"prompt_hash":   promptHash(lastUser),
		"message_count": len(messages),
		"vision":        false,
	})
}

// ChatVision sends the image as an OpenAI-style image_url block with a
// data URI. Vision chat templates reject the thinking kwarg, so it is
// omitted here.
func (c *Client) ChatVision(ctx context.Context, systemPrompt, textPrompt, imageBase64 string, opts port.ChatOptions) (string, error) {
	model := opts.Model
	if model == "" {
		model = c.visionModel
	}
	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.ocrMaxTokens
	}
	temperature := opts.Temperature
	if temperature == 0 {
		temperature = defaultVisionTemperature
	}

	msgs := make([]any, 0, 2)
	if systemPrompt != "" {
		msgs = append(msgs, textMessage{Role: "system", Content: systemPrompt})
	}
	msgs = append(msgs, blockMessage{
		Role: "user",
		Content: []contentBlock{
			{Type: "text", Text: textPrompt},
			{Type: "image_url", ImageURL: &imageURL{URL: "data:image/jpeg;base64," + imageBase64}},
		},
	})

	req := completionRequest{
		Model:       model,
		Messages:    msgs,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}
	return c.complete(ctx, model, req, c.ocrTimeout, map[string]any{
		"prompt_hash": promptHash(textPrompt),
		"vision":      true,
	})
}

func (c *Client) complete(ctx context.Context, model string, reqBody completionRequest, timeout time.Duration, eventData map[string]any) (string, error) {
	eventData["model"] = model
	c.emit(domain.EventLLMRequest, eventData)

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	started := time.Now()
	content, promptTokens, completionTokens, err := c.doRequest(callCtx, reqBody)
	latency := time.Since(started).Milliseconds()
	if err != nil {
		berr := &domain.BackendError{Model: model, Err: err, Timeout: isTimeout(callCtx, err)}
		c.emit(domain.EventLLMError, map[string]any{
			"model":      model,
			"error":      err.Error(),
			"timeout":    berr.Timeout,
			"latency_ms": latency,
		})
		return "", berr
	}

	c.emit(domain.EventLLMResponse, map[string]any{
		"model":         model,
		"latency_ms":    latency,
		"prompt_tokens": promptTokens,
		"eval_tokens":   completionTokens,
	})
	return content, nil
}

func (c *Client) doRequest(ctx context.Context, reqBody completionRequest) (string, int, int, error) {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", 0, 0, fmt.Errorf("marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", 0, 0, fmt.Errorf("create completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", 0, 0, fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, 0, fmt.Errorf("read completion response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", 0, 0, fmt.Errorf("completion returned status %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}

	var parsed completionResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", 0, 0, fmt.Errorf("decode completion response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", 0, 0, fmt.Errorf("completion response has no choices")
	}
	return parsed.Choices[0].Message.Content, parsed.Usage.PromptTokens, parsed.Usage.CompletionTokens, nil
}

func (c *Client) emit(eventType domain.EventType, data map[string]any) {
	if c.emitter == nil {
		return
	}
	c.emitter.Emit(&domain.SystemEvent{
		EventType:    eventType,
		Data:         data,
		SourceModule: "llm.deepinfra",
	})
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func promptHash(prompt string) string {
	sum := md5.Sum([]byte(prompt))
	return hex.EncodeToString(sum[:])[:8]
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
