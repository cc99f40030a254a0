package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventType names a lifecycle event emitted by the pipeline or the
// inference gateway.
type EventType string

const (
	EventDocumentReceived   EventType = "document_received"
	EventOCRStarted         EventType = "ocr_started"
	EventDocumentClassified EventType = "document_classified"
	EventOCRCompleted       EventType = "ocr_completed"
	EventDataExtracted      EventType = "data_extracted"
	EventOCRFailed          EventType = "ocr_failed"
	EventSessionEscalated   EventType = "session_escalated"
	EventLLMRequest         EventType = "llm_request"
	EventLLMResponse        EventType = "llm_response"
	EventLLMError           EventType = "llm_error"
	EventLLMModelSwap       EventType = "llm_model_swap"
)

// SystemEvent is a structured telemetry record handed to the event sink.
// Delivery is fire-and-forget: the pipeline never blocks on the sink and
// never fails because of it.
type SystemEvent struct {
	ID           uuid.UUID      `json:"id"`
	EventType    EventType      `json:"event_type"`
	SessionID    uuid.UUID      `json:"session_id,omitempty"`
	UserID       *uuid.UUID     `json:"user_id,omitempty"`
	Data         map[string]any `json:"data,omitempty"`
	SourceModule string         `json:"source_module"`
	CreatedAt    time.Time      `json:"created_at"`
}
