package ocr

import (
	"context"
	"errors"
	"log"

	"quintos/internal/domain"
	"quintos/internal/ocr/modeljson"
	"quintos/internal/port"
)

const classifierSystemPrompt = "Sei uno specialista nella classificazione di documenti finanziari italiani. " +
	"Analizza l'immagine e identifica il tipo di documento."

const classificationPrompt = "Classifica questo documento italiano. Rispondi SOLO con un oggetto JSON:\n" +
	`{"doc_type": "<tipo>", "confidence": <0.0-1.0>}` + "\n\n" +
	"Tipi validi:\n" +
	`- "busta_paga" - cedolino stipendio / busta paga` + "\n" +
	`- "cedolino_pensione" - cedolino pensione INPS/INPDAP` + "\n" +
	`- "dichiarazione_redditi" - modello Redditi PF, 730, Unico` + "\n" +
	`- "conteggio_estintivo" - conteggio estintivo / piano ammortamento` + "\n" +
	`- "altro" - qualsiasi altro documento` + "\n\n" +
	"JSON:"

const classificationRetryPrompt = "La tua risposta precedente non era JSON valido. " +
	"Rispondi SOLO con un oggetto JSON nel formato:\n" +
	`{"doc_type": "<tipo>", "confidence": <0.0-1.0>}` + "\n" +
	"JSON:"

// Classifier identifies the document type from an image via one vision
// call, retrying once with a corrective prompt on a parse failure.
type Classifier struct {
	llm port.LLMClient
}

// NewClassifier creates a Classifier on top of the inference gateway.
func NewClassifier(llm port.LLMClient) *Classifier {
	return &Classifier{llm: llm}
}

// Classify labels the image with a DocumentType. A label outside the
// known set is coerced to altro with halved confidence rather than
// failing the run.
func (c *Classifier) Classify(ctx context.Context, imageBase64 string) (*domain.ClassificationResult, error) {
	raw, err := c.llm.ChatVision(ctx, classifierSystemPrompt, classificationPrompt, imageBase64, port.ChatOptions{})
	if err != nil {
		return nil, err
	}

	result, err := parseClassification(raw)
	if err == nil {
		return result, nil
	}

	var perr *domain.ParseError
	if !errors.As(err, &perr) {
		return nil, err
	}
	log.Printf("ocr.Classifier: classification parse failed, retrying with corrective prompt")

	raw, err = c.llm.ChatVision(ctx, classifierSystemPrompt, classificationRetryPrompt, imageBase64, port.ChatOptions{})
	if err != nil {
		return nil, err
	}
	return parseClassification(raw)
}

type classificationPayload struct {
	DocType    *string `json:"doc_type"`
	Confidence float64 `json:"confidence"`
}

func parseClassification(raw string) (*domain.ClassificationResult, error) {
	payload, err := modeljson.Decode[classificationPayload](raw)
	if err != nil {
		return nil, err
	}
	if payload.DocType == nil {
		return nil, &domain.ParseError{
			Err:       errors.New("classification output missing doc_type"),
			RawOutput: raw,
		}
	}

	docType, ok := domain.ParseDocumentType(*payload.DocType)
	if !ok {
		return &domain.ClassificationResult{
			DocType:    domain.DocTypeAltro,
			Confidence: payload.Confidence * 0.5,
		}, nil
	}
	return &domain.ClassificationResult{DocType: docType, Confidence: payload.Confidence}, nil
}
