// Package ocr orchestrates the document understanding pipeline:
// preprocess, classify, extract, validate. The pipeline never returns an
// error; every failure is folded into the OcrResult with a user-safe
// message, and telemetry events trace each stage.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/google/uuid"

	"quintos/internal/domain"
	"quintos/internal/ocr/extractor"
	"quintos/internal/port"
	"quintos/internal/preprocess"
	"quintos/internal/validator"
)

// ClassificationConfidenceThreshold is the minimum classifier confidence
// for trusting the label over a caller-provided hint.
const ClassificationConfidenceThreshold = 0.80

// swapBackTimeout bounds the conversation-model restore that runs after
// every document, detached from the request context.
const swapBackTimeout = 2 * time.Minute

const (
	userMsgProcessingFailed = "Errore durante l'elaborazione del documento. Riprovi più tardi."
	userMsgEscalated        = "Non riesco a elaborare il documento. Un operatore verificherà la sua richiesta."
)

// Pipeline wires the stages together. Safe for concurrent use: all
// per-document state lives on the stack, and the gateway serializes
// model access internally.
type Pipeline struct {
	llm        port.LLMClient
	emitter    port.EventEmitter
	classifier *Classifier
	registry   *extractor.Registry

	visionModel       string
	conversationModel string
}

// NewPipeline assembles the pipeline. The emitter may be nil.
func NewPipeline(llm port.LLMClient, emitter port.EventEmitter, registry *extractor.Registry, visionModel, conversationModel string) *Pipeline {
	return &Pipeline{
		llm:               llm,
		emitter:           emitter,
		classifier:        NewClassifier(llm),
		registry:          registry,
		visionModel:       visionModel,
		conversationModel: conversationModel,
	}
}

// ProcessDocument runs a document image through the full pipeline.
// expectedDocType is an optional hint that overrides a low-confidence
// classification and suppresses the classification retry.
func (p *Pipeline) ProcessDocument(ctx context.Context, rawImage []byte, sessionID uuid.UUID, userID *uuid.UUID, expectedDocType *domain.DocumentType) *domain.OcrResult {
	start := time.Now()
	vlmFailures := 0

	// The vision pass evicts the conversation model; restore it whatever
	// happens, detached from the (possibly cancelled) request context.
	defer func() {
		swapCtx, cancel := context.WithTimeout(context.Background(), swapBackTimeout)
		defer cancel()
		if err := p.llm.EnsureModel(swapCtx, p.conversationModel); err != nil {
			log.Printf("ocr.Pipeline: failed to swap back to conversation model: %v", err)
		}
	}()

	p.emit(domain.EventDocumentReceived, sessionID, userID, map[string]any{
		"image_size_bytes": len(rawImage),
	})

	// 1. Preprocess
	normalized, err := preprocess.Normalize(rawImage)
	if err != nil {
		var decErr *domain.DecodeError
		if errors.As(err, &decErr) {
			return &domain.OcrResult{
				Error:            decErr.UserMessage,
				ProcessingTimeMS: elapsedMS(start),
			}
		}
		return p.failed(err, sessionID, userID, start)
	}

	p.emit(domain.EventOCRStarted, sessionID, userID, map[string]any{
		"original_size": sizeString(normalized.OriginalWidth, normalized.OriginalHeight),
		"final_size":    sizeString(normalized.FinalWidth, normalized.FinalHeight),
	})

	// 2. Ensure vision model
	if err := p.llm.EnsureModel(ctx, p.visionModel); err != nil {
		return p.failed(err, sessionID, userID, start)
	}

	// 3. Classify. A hint suppresses the stage retry: a failed
	// classification just falls through to the hint.
	var classification *domain.ClassificationResult
	classification, err = p.classifier.Classify(ctx, normalized.Base64)
	if err != nil {
		vlmFailures++
		log.Printf("ocr.Pipeline: classification failed: %v", err)
		if expectedDocType == nil {
			classification, err = p.classifier.Classify(ctx, normalized.Base64)
			if err != nil {
				vlmFailures++
				return p.escalate(vlmFailures, sessionID, userID, start, nil)
			}
			vlmFailures = 0
		}
	} else {
		vlmFailures = 0
	}

	docType := domain.DocTypeAltro
	clsConfidence := 0.0
	if classification != nil {
		docType = classification.DocType
		clsConfidence = classification.Confidence
	}

	if clsConfidence < ClassificationConfidenceThreshold && expectedDocType != nil {
		log.Printf("ocr.Pipeline: using expected doc_type hint %s (classification confidence %.2f)", *expectedDocType, clsConfidence)
		docType = *expectedDocType
	}

	p.emit(domain.EventDocumentClassified, sessionID, userID, map[string]any{
		"doc_type":   string(docType),
		"confidence": clsConfidence,
	})

	// 4. Extract
	ext, ok := p.registry.Lookup(docType)
	if !ok {
		return &domain.OcrResult{
			DocType:          &docType,
			ProcessingTimeMS: elapsedMS(start),
			Error:            "Tipo di documento non supportato: " + string(docType),
		}
	}

	extraction, err := ext.Extract(ctx, normalized.Base64)
	if err != nil {
		vlmFailures++
		log.Printf("ocr.Pipeline: extraction failed (attempt 1): %v", err)
		extraction, err = ext.Extract(ctx, normalized.Base64)
		if err != nil {
			vlmFailures++
			return p.escalate(vlmFailures, sessionID, userID, start, &docType)
		}
	}
	vlmFailures = 0

	// 5. Validate and merge confidence
	validation := validator.Validate(extraction, docType)

	merged := make(map[string]float64, len(extraction.ConfidenceMap())+len(validation.ConfidenceOverrides))
	for k, v := range extraction.ConfidenceMap() {
		merged[k] = v
	}
	for k, v := range validation.ConfidenceOverrides {
		merged[k] = v
	}

	overall := 0.0
	if len(merged) > 0 {
		sum := 0.0
		for _, v := range merged {
			sum += v
		}
		overall = math.Round(sum/float64(len(merged))*1000) / 1000
	}

	elapsed := elapsedMS(start)
	result := &domain.OcrResult{
		DocType:                   &docType,
		Extraction:                extraction,
		OverallConfidence:         overall,
		FieldsNeedingConfirmation: validation.FieldsNeedingConfirmation,
		FieldsNeedingAdminReview:  validation.FieldsNeedingAdminReview,
		ProcessingTimeMS:          elapsed,
	}

	p.emit(domain.EventOCRCompleted, sessionID, userID, map[string]any{
		"doc_type":           string(docType),
		"overall_confidence": overall,
		"fields_extracted":   len(merged),
		"processing_time_ms": elapsed,
	})
	p.emit(domain.EventDataExtracted, sessionID, userID, map[string]any{
		"doc_type":                    string(docType),
		"fields_needing_confirmation": validation.FieldsNeedingConfirmation,
		"fields_needing_admin_review": validation.FieldsNeedingAdminReview,
		"warnings":                    validation.Warnings,
	})

	return result
}

// failed reports an unexpected stage failure with the generic user message.
func (p *Pipeline) failed(err error, sessionID uuid.UUID, userID *uuid.UUID, start time.Time) *domain.OcrResult {
	elapsed := elapsedMS(start)
	log.Printf("ocr.Pipeline: unexpected error: %v", err)
	p.emit(domain.EventOCRFailed, sessionID, userID, map[string]any{
		"error":              err.Error(),
		"processing_time_ms": elapsed,
	})
	return &domain.OcrResult{
		Error:            userMsgProcessingFailed,
		ProcessingTimeMS: elapsed,
	}
}

// escalate builds the terminal error result; two or more consecutive
// model failures additionally flag the session for an operator.
func (p *Pipeline) escalate(vlmFailures int, sessionID uuid.UUID, userID *uuid.UUID, start time.Time, docType *domain.DocumentType) *domain.OcrResult {
	if vlmFailures >= 2 {
		log.Printf("ocr.Pipeline: %d consecutive VLM failures, escalating session %s", vlmFailures, sessionID)
		p.emit(domain.EventSessionEscalated, sessionID, userID, map[string]any{
			"reason":        "consecutive_vlm_failures",
			"failure_count": vlmFailures,
		})
	}
	return &domain.OcrResult{
		DocType:          docType,
		ProcessingTimeMS: elapsedMS(start),
		Error:            userMsgEscalated,
	}
}

func (p *Pipeline) emit(eventType domain.EventType, sessionID uuid.UUID, userID *uuid.UUID, data map[string]any) {
	if p.emitter == nil {
		return
	}
	p.emitter.Emit(&domain.SystemEvent{
		EventType:    eventType,
		SessionID:    sessionID,
		UserID:       userID,
		Data:         data,
		SourceModule: "ocr.pipeline",
	})
}

func elapsedMS(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}

func sizeString(w, h int) string {
	return fmt.Sprintf("%dx%d", w, h)
}
