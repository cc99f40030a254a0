package port

import (
	"context"

	"github.com/google/uuid"

	"quintos/internal/domain"
)

// DocumentProcessor is the pipeline entry point consumed by the HTTP layer
// and the conversational engine. It never returns an error: every failure
// is folded into OcrResult.Error with a user-safe message. Calling again
// after a failure is safe — the pipeline keeps no partial state.
type DocumentProcessor interface {
	ProcessDocument(ctx context.Context, rawImage []byte, sessionID uuid.UUID, userID *uuid.UUID, expectedDocType *domain.DocumentType) *domain.OcrResult
}
