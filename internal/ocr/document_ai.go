package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/googleapis/gax-go/v2"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"docextract/internal/logger"
	"docextract/pkg/models"
)

// MaxDocumentAIPages is the synchronous page limit of Document OCR processors.
const MaxDocumentAIPages = 15

// DocumentAIConfig holds configuration for Google Document AI processing.
type DocumentAIConfig struct {
	// ProjectID is the Google Cloud project ID where Document AI is enabled.
	ProjectID string

	// Location is the processing location (e.g., "us", "eu").
	// Should match where your Document AI processor is created.
	Location string

	// ProcessorID is the ID of a Document OCR processor.
	ProcessorID string

	// ProcessorVersion specifies a particular processor version.
	// If empty, uses the default version.
	ProcessorVersion string

	// Timeout is the maximum time to wait for one document.
	Timeout time.Duration
}

// documentProcessor is the subset of the Document AI client used by DocumentAIEngine.
type documentProcessor interface {
	ProcessDocument(ctx context.Context, req *documentaipb.ProcessRequest, opts ...gax.CallOption) (*documentaipb.ProcessResponse, error)
	Close() error
}

// DocumentAIEngine implements PDFRecognizer using a Google Document AI OCR processor.
type DocumentAIEngine struct {
	client documentProcessor
	config DocumentAIConfig
	log    zerolog.Logger
}

// NewDocumentAIEngine creates an engine for the processor described by config.
func NewDocumentAIEngine(ctx context.Context, config DocumentAIConfig) (*DocumentAIEngine, error) {
	const op = "NewDocumentAIEngine"

	if config.ProjectID == "" {
		return nil, NewOCRError(op, ErrMissingCredentials, "GOOGLE_CLOUD_PROJECT is required")
	}
	if config.ProcessorID == "" {
		return nil, NewOCRError(op, ErrOCRFailed, "DOCUMENT_AI_PROCESSOR_ID is required")
	}
	if config.Location == "" {
		config.Location = "us"
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}

	clientOptions := credentialOptions()

	// Processors outside the US need their regional endpoint
	if config.Location != "us" {
		endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", config.Location)
		clientOptions = append(clientOptions, option.WithEndpoint(endpoint))
	}

	client, err := documentai.NewDocumentProcessorClient(ctx, clientOptions...)
	if err != nil {
		return nil, WrapOCRError(op, err, fmt.Sprintf("failed to create Document AI client for location: %s", config.Location))
	}

	return newDocumentAIEngineWithClient(config, client), nil
}

func newDocumentAIEngineWithClient(config DocumentAIConfig, client documentProcessor) *DocumentAIEngine {
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}
	return &DocumentAIEngine{
		client: client,
		config: config,
		log:    logger.WithComponent("document-ai"),
	}
}

// Name implements Engine.
func (d *DocumentAIEngine) Name() string {
	return "documentai"
}

// MaxPDFPages implements PDFRecognizer.
func (d *DocumentAIEngine) MaxPDFPages() int {
	return MaxDocumentAIPages
}

// RecognizeImage implements Engine.
func (d *DocumentAIEngine) RecognizeImage(ctx context.Context, image []byte, language string) (string, error) {
	const op = "DocumentAIEngine.RecognizeImage"

	if len(image) == 0 {
		return "", NewOCRError(op, ErrInvalidImage, "empty image")
	}

	doc, err := d.process(ctx, op, image, imageMimeType(image), language)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(doc.Text), nil
}

// RecognizePDF implements PDFRecognizer.
func (d *DocumentAIEngine) RecognizePDF(ctx context.Context, pdf []byte, language string) ([]string, error) {
	const op = "DocumentAIEngine.RecognizePDF"

	if !models.HasPDFHeader(pdf) {
		return nil, NewOCRError(op, ErrInvalidPDF, "missing PDF header")
	}

	doc, err := d.process(ctx, op, pdf, "application/pdf", language)
	if err != nil {
		return nil, err
	}

	pages := documentPageTexts(doc)
	if len(pages) == 0 {
		return nil, NewOCRError(op, ErrEmptyDocument, "no pages in response")
	}
	return pages, nil
}

func (d *DocumentAIEngine) process(ctx context.Context, op string, content []byte, mimeType, language string) (*documentaipb.Document, error) {
	if len(content) > MaxFileSizeBytes {
		return nil, NewOCRError(op, ErrFileTooLarge, fmt.Sprintf("file size: %d bytes", len(content)))
	}

	processCtx, cancel := context.WithTimeout(ctx, d.config.Timeout)
	defer cancel()

	req := &documentaipb.ProcessRequest{
		Name: d.processorName(),
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  content,
				MimeType: mimeType,
			},
		},
		ProcessOptions: &documentaipb.ProcessOptions{
			OcrConfig: &documentaipb.OcrConfig{
				Hints: &documentaipb.OcrConfig_Hints{LanguageHints: LanguageHints(language)},
			},
		},
	}

	start := time.Now()
	resp, err := d.client.ProcessDocument(processCtx, req)
	if err != nil {
		return nil, d.handleProcessingError(op, err)
	}
	if resp.Document == nil {
		return nil, NewOCRError(op, ErrOCRFailed, "no document in response")
	}

	d.log.Debug().
		Str("mime_type", mimeType).
		Int("pages", len(resp.Document.Pages)).
		Int("text_length", len(resp.Document.Text)).
		Dur("duration", time.Since(start)).
		Msg("Document AI OCR completed")

	return resp.Document, nil
}

// processorName constructs the full processor name for Document AI API.
func (d *DocumentAIEngine) processorName() string {
	if d.config.ProcessorVersion != "" {
		return fmt.Sprintf("projects/%s/locations/%s/processors/%s/processorVersions/%s",
			d.config.ProjectID, d.config.Location, d.config.ProcessorID, d.config.ProcessorVersion)
	}
	return fmt.Sprintf("projects/%s/locations/%s/processors/%s",
		d.config.ProjectID, d.config.Location, d.config.ProcessorID)
}

// handleProcessingError converts Document AI errors to OCR errors.
// gRPC status codes are checked first; wrapped transport errors fall back to message matching.
func (d *DocumentAIEngine) handleProcessingError(op string, err error) error {
	code := status.Code(err)
	errStr := err.Error()

	switch {
	case code == codes.PermissionDenied || code == codes.Unauthenticated ||
		strings.Contains(errStr, "PermissionDenied") || strings.Contains(errStr, "PERMISSION_DENIED"):
		return NewOCRError(op, ErrMissingCredentials, "insufficient permissions for Document AI")
	case code == codes.NotFound || strings.Contains(errStr, "NotFound") || strings.Contains(errStr, "NOT_FOUND"):
		return NewOCRError(op, ErrOCRFailed, fmt.Sprintf("processor not found: %s", d.config.ProcessorID))
	case code == codes.InvalidArgument || strings.Contains(errStr, "InvalidArgument") || strings.Contains(errStr, "INVALID_ARGUMENT"):
		return NewOCRError(op, ErrInvalidImage, "document format not supported or corrupted")
	case code == codes.DeadlineExceeded || errors.Is(err, context.DeadlineExceeded) || strings.Contains(errStr, "context deadline exceeded"):
		return NewOCRError(op, context.DeadlineExceeded, "processing timeout")
	default:
		return NewOCRError(op, ErrOCRFailed, fmt.Sprintf("Document AI error: %v", err))
	}
}

// documentPageTexts cuts the per-page text out of Document.Text using page layout anchors.
func documentPageTexts(doc *documentaipb.Document) []string {
	if len(doc.Pages) == 0 {
		if strings.TrimSpace(doc.Text) == "" {
			return nil
		}
		return []string{strings.TrimSpace(doc.Text)}
	}

	pages := make([]string, 0, len(doc.Pages))
	for _, page := range doc.Pages {
		var b strings.Builder
		if page.Layout != nil && page.Layout.TextAnchor != nil {
			for _, seg := range page.Layout.TextAnchor.TextSegments {
				start, end := int(seg.StartIndex), int(seg.EndIndex)
				if start < 0 || end > len(doc.Text) || start >= end {
					continue
				}
				b.WriteString(doc.Text[start:end])
			}
		}
		pages = append(pages, strings.TrimSpace(b.String()))
	}
	return pages
}

// imageMimeType sniffs the image format, including TIFF which net/http does not know.
func imageMimeType(image []byte) string {
	if bytes.HasPrefix(image, []byte("II*\x00")) || bytes.HasPrefix(image, []byte("MM\x00*")) {
		return "image/tiff"
	}
	return http.DetectContentType(image)
}

// Close closes the underlying Document AI client.
func (d *DocumentAIEngine) Close() error {
	if d.client != nil {
		return d.client.Close()
	}
	return nil
}
