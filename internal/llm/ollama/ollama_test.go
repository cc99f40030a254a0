package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quintos/internal/config"
	"quintos/internal/domain"
	"quintos/internal/port"
)

type recordedCall struct {
	path string
	body map[string]any
}

type fakeOllama struct {
	srv       *httptest.Server
	calls     []recordedCall
	failLoads bool
	reply     string
}

func newFakeOllama(t *testing.T) *fakeOllama {
	t.Helper()
	f := &fakeOllama{reply: "hello"}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		f.calls = append(f.calls, recordedCall{path: r.URL.Path, body: body})

		switch r.URL.Path {
		case "/api/generate":
			// keep_alive 0 is an unload, anything else a load
			if ka, ok := body["keep_alive"].(float64); !(ok && ka == 0) && f.failLoads {
				http.Error(w, `{"error":"model not found"}`, http.StatusNotFound)
				return
			}
			w.Write([]byte(`{}`))
		case "/api/chat":
			json.NewEncoder(w).Encode(map[string]any{
				"message":           map[string]string{"role": "assistant", "content": f.reply},
				"prompt_eval_count": 12,
				"eval_count":        7,
			})
		default:
			http.Error(w, "unexpected path", http.StatusNotFound)
		}
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeOllama) generateCalls() []recordedCall {
	var out []recordedCall
	for _, c := range f.calls {
		if c.path == "/api/generate" {
			out = append(out, c)
		}
	}
	return out
}

func testConfig(baseURL string) *config.LLMConfig {
	return &config.LLMConfig{
		Provider:              "ollama",
		OllamaBaseURL:         baseURL,
		ConversationModel:     "qwen3:8b",
		VisionModel:           "qwen2.5vl:7b",
		ConversationMaxTokens: 1024,
		OCRMaxTokens:          2048,
		ConversationTimeout:   5 * time.Second,
		OCRTimeout:            5 * time.Second,
		LoadTimeout:           5 * time.Second,
		KeepAlive:             "10m",
	}
}

type captureEmitter struct {
	events []*domain.SystemEvent
}

func (c *captureEmitter) Emit(ev *domain.SystemEvent) { c.events = append(c.events, ev) }

func (c *captureEmitter) ofType(t domain.EventType) []*domain.SystemEvent {
	var out []*domain.SystemEvent
	for _, ev := range c.events {
		if ev.EventType == t {
			out = append(out, ev)
		}
	}
	return out
}

func TestEnsureModelLoadsIntoEmptySlot(t *testing.T) {
	fake := newFakeOllama(t)
	c := New(testConfig(fake.srv.URL), nil)

	require.NoError(t, c.EnsureModel(context.Background(), "qwen2.5vl:7b"))
	assert.Equal(t, "qwen2.5vl:7b", c.CurrentModel())

	gen := fake.generateCalls()
	// empty slot: no unload, one load
	require.Len(t, gen, 1)
	assert.Equal(t, "qwen2.5vl:7b", gen[0].body["model"])
	assert.Equal(t, "10m", gen[0].body["keep_alive"])
}

func TestEnsureModelIsNoOpWhenResident(t *testing.T) {
	fake := newFakeOllama(t)
	c := New(testConfig(fake.srv.URL), nil)

	require.NoError(t, c.EnsureModel(context.Background(), "qwen3:8b"))
	before := len(fake.calls)
	require.NoError(t, c.EnsureModel(context.Background(), "qwen3:8b"))
	assert.Equal(t, before, len(fake.calls))
}

func TestEnsureModelSwapsUnloadThenLoad(t *testing.T) {
	fake := newFakeOllama(t)
	em := &captureEmitter{}
	c := New(testConfig(fake.srv.URL), em)

	require.NoError(t, c.EnsureModel(context.Background(), "qwen3:8b"))
	require.NoError(t, c.EnsureModel(context.Background(), "qwen2.5vl:7b"))

	gen := fake.generateCalls()
	require.Len(t, gen, 3)
	// swap: unload old (keep_alive 0), then load new
	assert.Equal(t, "qwen3:8b", gen[1].body["model"])
	assert.Equal(t, float64(0), gen[1].body["keep_alive"])
	assert.Equal(t, "qwen2.5vl:7b", gen[2].body["model"])

	swaps := em.ofType(domain.EventLLMModelSwap)
	require.Len(t, swaps, 2)
	assert.Equal(t, "qwen3:8b", swaps[1].Data["from"])
	assert.Equal(t, "qwen2.5vl:7b", swaps[1].Data["to"])
}

func TestEnsureModelFailedLoadKeepsSlotName(t *testing.T) {
	fake := newFakeOllama(t)
	c := New(testConfig(fake.srv.URL), nil)

	require.NoError(t, c.EnsureModel(context.Background(), "qwen3:8b"))

	fake.failLoads = true
	err := c.EnsureModel(context.Background(), "qwen2.5vl:7b")
	require.Error(t, err)

	var loadErr *domain.ModelLoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, "qwen2.5vl:7b", loadErr.Model)

	// slot still records the previous model even though it was unloaded
	assert.Equal(t, "qwen3:8b", c.CurrentModel())
}

func TestChatSwapsToConversationModelAndParsesReply(t *testing.T) {
	fake := newFakeOllama(t)
	em := &captureEmitter{}
	c := New(testConfig(fake.srv.URL), em)
	fake.reply = "ciao"

	got, err := c.Chat(context.Background(), "sys", []port.ChatMessage{{Role: "user", Content: "hi"}}, port.ChatOptions{})
	require.NoError(t, err)
	assert.Equal(t, "ciao", got)
	assert.Equal(t, "qwen3:8b", c.CurrentModel())

	require.Len(t, em.ofType(domain.EventLLMRequest), 1)
	resp := em.ofType(domain.EventLLMResponse)
	require.Len(t, resp, 1)
	assert.Equal(t, 12, resp[0].Data["prompt_tokens"])
	assert.Equal(t, 7, resp[0].Data["eval_tokens"])
}

func TestChatDisablesThinkingAndSetsOptions(t *testing.T) {
	fake := newFakeOllama(t)
	c := New(testConfig(fake.srv.URL), nil)

	_, err := c.Chat(context.Background(), "", []port.ChatMessage{{Role: "user", Content: "hi"}}, port.ChatOptions{})
	require.NoError(t, err)

	var chat *recordedCall
	for i := range fake.calls {
		if fake.calls[i].path == "/api/chat" {
			chat = &fake.calls[i]
		}
	}
	require.NotNil(t, chat)
	assert.Equal(t, false, chat.body["think"])
	opts := chat.body["options"].(map[string]any)
	assert.Equal(t, 0.7, opts["temperature"])
	assert.Equal(t, float64(1024), opts["num_predict"])
}

func TestChatVisionAttachesImageAndUsesVisionDefaults(t *testing.T) {
	fake := newFakeOllama(t)
	c := New(testConfig(fake.srv.URL), nil)

	_, err := c.ChatVision(context.Background(), "sys", "read this", "aW1hZ2U=", port.ChatOptions{})
	require.NoError(t, err)
	assert.Equal(t, "qwen2.5vl:7b", c.CurrentModel())

	var chat *recordedCall
	for i := range fake.calls {
		if fake.calls[i].path == "/api/chat" {
			chat = &fake.calls[i]
		}
	}
	require.NotNil(t, chat)
	assert.Equal(t, "qwen2.5vl:7b", chat.body["model"])

	msgs := chat.body["messages"].([]any)
	last := msgs[len(msgs)-1].(map[string]any)
	images := last["images"].([]any)
	require.Len(t, images, 1)
	assert.Equal(t, "aW1hZ2U=", images[0])

	opts := chat.body["options"].(map[string]any)
	assert.Equal(t, 0.1, opts["temperature"])
	assert.Equal(t, float64(2048), opts["num_predict"])
}

func TestChatBackendErrorOnNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/generate" {
			w.Write([]byte(`{}`))
			return
		}
		http.Error(w, `{"error":"boom"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	em := &captureEmitter{}
	c := New(testConfig(srv.URL), em)

	_, err := c.Chat(context.Background(), "", []port.ChatMessage{{Role: "user", Content: "hi"}}, port.ChatOptions{})
	require.Error(t, err)

	var berr *domain.BackendError
	require.True(t, errors.As(err, &berr))
	assert.False(t, berr.Timeout)
	require.Len(t, em.ofType(domain.EventLLMError), 1)
}

func TestChatTimeoutMarksBackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/generate" {
			w.Write([]byte(`{}`))
			return
		}
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{"message":{"content":"late"}}`))
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.ConversationTimeout = 20 * time.Millisecond
	c := New(cfg, nil)

	_, err := c.Chat(context.Background(), "", []port.ChatMessage{{Role: "user", Content: "hi"}}, port.ChatOptions{})
	require.Error(t, err)

	var berr *domain.BackendError
	require.True(t, errors.As(err, &berr))
	assert.True(t, berr.Timeout)
}

func TestPromptHashIsStable(t *testing.T) {
	assert.Equal(t, promptHash("ciao"), promptHash("ciao"))
	assert.Len(t, promptHash("ciao"), 8)
	assert.NotEqual(t, promptHash("ciao"), promptHash("ciau"))
}
