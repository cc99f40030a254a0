package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"quintos/internal/domain"
	"quintos/internal/port"
)

// OCRHandler exposes the document pipeline over HTTP.
type OCRHandler struct {
	processor     port.DocumentProcessor
	maxUploadSize int64
}

// NewOCRHandler creates an OCRHandler. maxUploadSizeMB bounds the accepted
// image size.
func NewOCRHandler(processor port.DocumentProcessor, maxUploadSizeMB int64) *OCRHandler {
	return &OCRHandler{
		processor:     processor,
		maxUploadSize: maxUploadSizeMB * 1024 * 1024,
	}
}

// Process handles POST /api/v1/documents/process.
//
// Multipart form fields:
//
//	image             - the document photo (required)
//	session_id        - conversation session UUID (required)
//	user_id           - user UUID (optional)
//	expected_doc_type - document type hint (optional)
//
// Always returns 200 with an OcrResult when the pipeline ran; pipeline
// failures are reported inside the result, not as HTTP errors.
func (h *OCRHandler) Process(c *gin.Context) {
	sessionID, err := uuid.Parse(c.PostForm("session_id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_SESSION_ID", "session_id must be a valid UUID")
		return
	}

	var userID *uuid.UUID
	if raw := c.PostForm("user_id"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "INVALID_USER_ID", "user_id must be a valid UUID")
			return
		}
		userID = &parsed
	}

	var expectedDocType *domain.DocumentType
	if raw := c.PostForm("expected_doc_type"); raw != "" {
		dt, ok := domain.ParseDocumentType(raw)
		if !ok {
			RespondError(c, http.StatusBadRequest, "INVALID_DOC_TYPE", "expected_doc_type is not a known document type")
			return
		}
		expectedDocType = &dt
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "MISSING_IMAGE", "image file is required")
		return
	}
	if fileHeader.Size > h.maxUploadSize {
		RespondError(c, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "image exceeds maximum allowed size")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		RespondError(c, http.StatusBadRequest, "UNREADABLE_IMAGE", "could not read uploaded image")
		return
	}
	defer file.Close()

	raw, err := io.ReadAll(io.LimitReader(file, h.maxUploadSize+1))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "UNREADABLE_IMAGE", "could not read uploaded image")
		return
	}
	if int64(len(raw)) > h.maxUploadSize {
		RespondError(c, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "image exceeds maximum allowed size")
		return
	}

	result := h.processor.ProcessDocument(c.Request.Context(), raw, sessionID, userID, expectedDocType)
	RespondOK(c, result)
}
