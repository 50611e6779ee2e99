package services

import (
	"context"

	"docextract/pkg/models"
)

// DocumentExtractor defines the interface for turning uploaded documents into text
type DocumentExtractor interface {
	// Extract dispatches on kind to ExtractPDF or ExtractImage
	Extract(ctx context.Context, kind models.MediaKind, data []byte, language string) (*models.ExtractionResult, error)

	// ExtractPDF reads the text layer and falls back to OCR for scanned documents
	ExtractPDF(ctx context.Context, data []byte, language string) (*models.ExtractionResult, error)

	// ExtractImage runs OCR over a single image
	ExtractImage(ctx context.Context, data []byte, language string) (*models.ExtractionResult, error)
}

// ChatAssistant answers questions with a chat completion model
type ChatAssistant interface {
	// Ask sends a single user message and returns the model's reply
	Ask(ctx context.Context, question string) (string, error)
}
