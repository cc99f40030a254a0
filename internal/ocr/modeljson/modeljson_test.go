package modeljson

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quintos/internal/domain"
)

type classification struct {
	DocType    string  `json:"doc_type"`
	Confidence float64 `json:"confidence"`
}

func TestDecodePlainJSON(t *testing.T) {
	got, err := Decode[classification](`{"doc_type": "busta_paga", "confidence": 0.95}`)
	require.NoError(t, err)
	assert.Equal(t, "busta_paga", got.DocType)
	assert.Equal(t, 0.95, got.Confidence)
}

func TestDecodeStripsJSONFence(t *testing.T) {
	raw := "```json\n{\"doc_type\": \"cud\", \"confidence\": 0.8}\n```"
	got, err := Decode[classification](raw)
	require.NoError(t, err)
	assert.Equal(t, "cud", got.DocType)
}

func TestDecodeStripsBareFence(t *testing.T) {
	raw := "```\n{\"doc_type\": \"f24\", \"confidence\": 0.7}\n```"
	got, err := Decode[classification](raw)
	require.NoError(t, err)
	assert.Equal(t, "f24", got.DocType)
}

func TestDecodeRemovesTrailingCommas(t *testing.T) {
	got, err := Decode[classification](`{"doc_type": "busta_paga", "confidence": 0.9,}`)
	require.NoError(t, err)
	assert.Equal(t, 0.9, got.Confidence)
}

func TestDecodeTolerantOfSurroundingProse(t *testing.T) {
	raw := "Ecco il risultato: {\"doc_type\": \"altro\", \"confidence\": 0.5} Spero sia utile."
	got, err := Decode[classification](raw)
	require.NoError(t, err)
	assert.Equal(t, "altro", got.DocType)
}

func TestDecodeFenceWithProseAround(t *testing.T) {
	raw := "Il documento è una busta paga.\n```json\n{\"doc_type\": \"busta_paga\", \"confidence\": 0.85,}\n```\nFammi sapere."
	got, err := Decode[classification](raw)
	require.NoError(t, err)
	assert.Equal(t, "busta_paga", got.DocType)
	assert.Equal(t, 0.85, got.Confidence)
}

func TestDecodeFailureIsParseErrorWithRawOutput(t *testing.T) {
	raw := "mi dispiace, non riesco a leggere il documento"
	_, err := Decode[classification](raw)
	require.Error(t, err)

	var perr *domain.ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, raw, perr.RawOutput)
}

func TestDecodeNestedArraysKeepTrailingCommaFix(t *testing.T) {
	type payload struct {
		Items []string `json:"items"`
	}
	got, err := Decode[payload](`{"items": ["a", "b",],}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got.Items)
}
