// Package ollama implements the inference gateway against a local Ollama
// server. The host fits one model in memory at a time, so the client owns
// a single active-model slot and serializes swap+completion under one
// mutex: a completion always runs against the model it asked for.
package ollama

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"quintos/internal/config"
	"quintos/internal/domain"
	"quintos/internal/port"
)

const (
	defaultChatTemperature   = 0.7
	defaultVisionTemperature = 0.1
)

// Client talks to the Ollama HTTP API and tracks which model is resident.
type Client struct {
	baseURL string
	httpc   *http.Client
	emitter port.EventEmitter

	conversationModel string
	visionModel       string

	conversationMaxTokens int
	ocrMaxTokens          int

	conversationTimeout time.Duration
	ocrTimeout          time.Duration
	loadTimeout         time.Duration

	keepAlive string

	mu      sync.Mutex
	current string
}

// New creates a Client from configuration. The emitter may be nil; events
// are then skipped.
func New(cfg *config.LLMConfig, emitter port.EventEmitter) *Client {
	return &Client{
		baseURL:               cfg.OllamaBaseURL,
		httpc:                 &http.Client{},
		emitter:               emitter,
		conversationModel:     cfg.ConversationModel,
		visionModel:           cfg.VisionModel,
		conversationMaxTokens: cfg.ConversationMaxTokens,
		ocrMaxTokens:          cfg.OCRMaxTokens,
		conversationTimeout:   cfg.ConversationTimeout,
		ocrTimeout:            cfg.OCRTimeout,
		loadTimeout:           cfg.LoadTimeout,
		keepAlive:             cfg.KeepAlive,
	}
}

// CurrentModel reports the model currently held in the resident slot.
func (c *Client) CurrentModel() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// EnsureModel makes the named model resident, swapping out whatever held
// the slot before. No-op when the model is already resident.
func (c *Client) EnsureModel(ctx context.Context, model string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ensureLocked(ctx, model)
}

// ensureLocked performs the swap. Callers must hold c.mu.
//
// On load failure the slot is left unchanged: the previous model may
// already be unloaded, but the recorded name still describes what the
// server was last asked to keep resident.
func (c *Client) ensureLocked(ctx context.Context, model string) error {
	if c.current == model {
		return nil
	}

	previous := c.current
	if previous != "" {
		// Best-effort unload; a failure here only wastes memory.
		if err := c.unload(ctx, previous); err != nil {
			log.Printf("llm.Ollama: unload of %s failed: %v", previous, err)
		}
	}

	loadCtx, cancel := context.WithTimeout(ctx, c.loadTimeout)
	defer cancel()
	if err := c.load(loadCtx, model); err != nil {
		return &domain.ModelLoadError{Model: model, Err: err}
	}

	c.current = model
	c.emit(domain.EventLLMModelSwap, map[string]any{
		"from": previous,
		"to":   model,
	})
	return nil
}

func (c *Client) unload(ctx context.Context, model string) error {
	body := map[string]any{"model": model, "keep_alive": 0}
	return c.postGenerate(ctx, body)
}

func (c *Client) load(ctx context.Context, model string) error {
	body := map[string]any{"model": model, "prompt": "", "keep_alive": c.keepAlive}
	return c.postGenerate(ctx, body)
}

func (c *Client) postGenerate(ctx context.Context, body map[string]any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("generate request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("generate returned status %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type chatRequest struct {
	Model    string         `json:"model"`
	Messages []chatMessage  `json:"messages"`
	Stream   bool           `json:"stream"`
	Think    bool           `json:"think"`
	Options  map[string]any `json:"options,omitempty"`
}

type chatMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

type chatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	PromptEvalCount int `json:"prompt_eval_count"`
	EvalCount       int `json:"eval_count"`
}

// Chat runs a text completion. Model swap and completion happen under the
// same lock so concurrent callers cannot interleave.
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

	msgs := make([]chatMessage, 0, len(messages)+1)
	if systemPrompt != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: systemPrompt})
	}
	var lastUser string
	for _, m := range messages {
		msgs = append(msgs, chatMessage{Role: m.Role, Content: m.Content})
		if m.Role == "user" {
			lastUser = m.Content
		}
	}

	return c.complete(ctx, model, msgs, temperature, maxTokens, c.conversationTimeout, map[string]any{
		"prompt_hash":   promptHash(lastUser),
		"message_count": len(messages),
		"vision":        false,
	})
}

// ChatVision runs a completion with an attached base64 JPEG. Uses the OCR
// timeout, which has to absorb a model swap plus a slow vision pass.
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

	msgs := make([]chatMessage, 0, 2)
	if systemPrompt != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: systemPrompt})
	}
	msgs = append(msgs, chatMessage{Role: "user", Content: textPrompt, Images: []string{imageBase64}})

	return c.complete(ctx, model, msgs, temperature, maxTokens, c.ocrTimeout, map[string]any{
		"prompt_hash": promptHash(textPrompt),
		"vision":      true,
	})
}

func (c *Client) complete(ctx context.Context, model string, msgs []chatMessage, temperature float64, maxTokens int, timeout time.Duration, eventData map[string]any) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureLocked(ctx, model); err != nil {
		return "", err
	}

	eventData["model"] = model
	c.emit(domain.EventLLMRequest, eventData)

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	started := time.Now()
	content, promptTokens, evalTokens, err := c.doChat(callCtx, model, msgs, temperature, maxTokens)
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
		"eval_tokens":   evalTokens,
	})
	return content, nil
}

func (c *Client) doChat(ctx context.Context, model string, msgs []chatMessage, temperature float64, maxTokens int) (string, int, int, error) {
	reqBody := chatRequest{
		Model:    model,
		Messages: msgs,
		Stream:   false,
		Think:    false,
		Options: map[string]any{
			"temperature": temperature,
			"num_predict": maxTokens,
		},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", 0, 0, fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return "", 0, 0, fmt.Errorf("create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", 0, 0, fmt.Errorf("chat request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, 0, fmt.Errorf("read chat response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", 0, 0, fmt.Errorf("chat returned status %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", 0, 0, fmt.Errorf("decode chat response: %w", err)
	}
	return parsed.Message.Content, parsed.PromptEvalCount, parsed.EvalCount, nil
}

func (c *Client) emit(eventType domain.EventType, data map[string]any) {
	if c.emitter == nil {
		return
	}
	c.emitter.Emit(&domain.SystemEvent{
		EventType:    eventType,
		Data:         data,
		SourceModule: "llm.ollama",
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
