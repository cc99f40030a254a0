package ocr

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quintos/internal/domain"
	"quintos/internal/port"
)

// scriptedLLM replays canned vision replies in order.
type scriptedLLM struct {
	replies []string
	errs    []error
	calls   int
	prompts []string
}

func (s *scriptedLLM) EnsureModel(context.Context, string) error { return nil }

func (s *scriptedLLM) Chat(context.Context, string, []port.ChatMessage, port.ChatOptions) (string, error) {
	return "", errors.New("not used")
}

func (s *scriptedLLM) ChatVision(_ context.Context, _ string, textPrompt string, _ string, _ port.ChatOptions) (string, error) {
	i := s.calls
	s.calls++
	s.prompts = append(s.prompts, textPrompt)
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	if i < len(s.replies) {
		return s.replies[i], nil
	}
	return "", errors.New("no scripted reply")
}

func TestClassifyHappyPath(t *testing.T) {
	llm := &scriptedLLM{replies: []string{`{"doc_type": "busta_paga", "confidence": 0.95}`}}
	c := NewClassifier(llm)

	got, err := c.Classify(context.Background(), "img")
	require.NoError(t, err)
	assert.Equal(t, domain.DocTypeBustaPaga, got.DocType)
	assert.Equal(t, 0.95, got.Confidence)
	assert.Equal(t, 1, llm.calls)
}

func TestClassifyRetriesOnceOnParseFailure(t *testing.T) {
	llm := &scriptedLLM{replies: []string{
		"non riesco a rispondere in JSON",
		`{"doc_type": "cedolino_pensione", "confidence": 0.9}`,
	}}
	c := NewClassifier(llm)

	got, err := c.Classify(context.Background(), "img")
	require.NoError(t, err)
	assert.Equal(t, domain.DocTypeCedolinoPensione, got.DocType)
	require.Equal(t, 2, llm.calls)
	assert.Contains(t, llm.prompts[1], "non era JSON valido")
}

func TestClassifyFailsAfterTwoParseFailures(t *testing.T) {
	llm := &scriptedLLM{replies: []string{"prose", "more prose"}}
	c := NewClassifier(llm)

	_, err := c.Classify(context.Background(), "img")
	require.Error(t, err)

	var perr *domain.ParseError
	assert.True(t, errors.As(err, &perr))
	assert.Equal(t, 2, llm.calls)
}

func TestClassifyDoesNotRetryBackendErrors(t *testing.T) {
	backendErr := &domain.BackendError{Model: "qwen2.5vl:7b", Err: errors.New("boom")}
	llm := &scriptedLLM{errs: []error{backendErr}}
	c := NewClassifier(llm)

	_, err := c.Classify(context.Background(), "img")
	require.Error(t, err)
	assert.Equal(t, 1, llm.calls)

	var berr *domain.BackendError
	assert.True(t, errors.As(err, &berr))
}

func TestClassifyCoercesUnknownLabelToAltro(t *testing.T) {
	llm := &scriptedLLM{replies: []string{`{"doc_type": "fattura", "confidence": 0.8}`}}
	c := NewClassifier(llm)

	got, err := c.Classify(context.Background(), "img")
	require.NoError(t, err)
	assert.Equal(t, domain.DocTypeAltro, got.DocType)
	assert.InDelta(t, 0.4, got.Confidence, 1e-9)
	// coercion happens on the first reply, no retry
	assert.Equal(t, 1, llm.calls)
}

func TestClassifyMissingDocTypeIsParseFailure(t *testing.T) {
	llm := &scriptedLLM{replies: []string{
		`{"confidence": 0.9}`,
		`{"doc_type": "f24", "confidence": 0.7}`,
	}}
	c := NewClassifier(llm)

	got, err := c.Classify(context.Background(), "img")
	require.NoError(t, err)
	assert.Equal(t, domain.DocTypeF24, got.DocType)
	assert.Equal(t, 2, llm.calls)
}
