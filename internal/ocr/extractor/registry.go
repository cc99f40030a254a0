// Package extractor holds the per-document-type field extractors and the
// registry the pipeline dispatches through. Each extractor is a single
// vision call plus one corrective retry on parse failure, mirroring the
// classifier's retry shape.
package extractor

import (
	"context"
	"errors"
	"log"

	"quintos/internal/domain"
	"quintos/internal/port"
)

// Extractor pulls structured fields out of a normalized document image.
type Extractor interface {
	DocType() domain.DocumentType
	Extract(ctx context.Context, imageBase64 string) (domain.ExtractionResult, error)
}

// Registry maps document types to their extractors. Lookup misses mean
// the type is classifiable but not supported for extraction.
type Registry struct {
	extractors map[domain.DocumentType]Extractor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{extractors: make(map[domain.DocumentType]Extractor)}
}

// NewDefaultRegistry registers the four supported document types.
func NewDefaultRegistry(llm port.LLMClient) *Registry {
	r := NewRegistry()
	r.Register(NewBustaPaga(llm))
	r.Register(NewCedolinoPensione(llm))
	r.Register(NewDichiarazioneRedditi(llm))
	r.Register(NewConteggioEstintivo(llm))
	return r
}

// Register adds an extractor, replacing any previous one for the same type.
func (r *Registry) Register(e Extractor) {
	r.extractors[e.DocType()] = e
}

// Lookup returns the extractor for a document type, or false when the
// type has no registered extractor.
func (r *Registry) Lookup(docType domain.DocumentType) (Extractor, bool) {
	e, ok := r.extractors[docType]
	return e, ok
}

// SupportedTypes lists the registered document types.
func (r *Registry) SupportedTypes() []domain.DocumentType {
	out := make([]domain.DocumentType, 0, len(r.extractors))
	for dt := range r.extractors {
		out = append(out, dt)
	}
	return out
}

// vlmExtractor is the shared call-parse-retry skeleton. decode is the
// type-specific payload decoder; it must return *domain.ParseError on
// undecodable output.
type vlmExtractor struct {
	docType      domain.DocumentType
	systemPrompt string
	prompt       string
	retryPrompt  string

	llm    port.LLMClient
	decode func(raw string) (domain.ExtractionResult, error)
}

func (e *vlmExtractor) DocType() domain.DocumentType { return e.docType }

func (e *vlmExtractor) Extract(ctx context.Context, imageBase64 string) (domain.ExtractionResult, error) {
	raw, err := e.llm.ChatVision(ctx, e.systemPrompt, e.prompt, imageBase64, port.ChatOptions{})
	if err != nil {
		return nil, err
	}

	result, err := e.decode(raw)
	if err == nil {
		return result, nil
	}

	var perr *domain.ParseError
	if !errors.As(err, &perr) {
		return nil, err
	}
	log.Printf("ocr.Extractor: %s extraction parse failed, retrying with corrective prompt", e.docType)

	raw, err = e.llm.ChatVision(ctx, e.systemPrompt, e.retryPrompt, imageBase64, port.ChatOptions{})
	if err != nil {
		return nil, err
	}
	return e.decode(raw)
}
