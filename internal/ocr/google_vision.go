package ocr

import (
	"context"
	"fmt"
	"os"
	"strings"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"

	"docextract/pkg/models"
)

const (
	// MaxFileSizeBytes is the maximum file size for synchronous processing (20MB)
	MaxFileSizeBytes = 20 * 1024 * 1024

	// MaxPagesSync is the maximum number of PDF pages Vision annotates synchronously
	MaxPagesSync = 5
)

// imageAnnotator is the subset of the Vision client used by GoogleVisionEngine.
type imageAnnotator interface {
	BatchAnnotateImages(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest, opts ...gax.CallOption) (*visionpb.BatchAnnotateImagesResponse, error)
	BatchAnnotateFiles(ctx context.Context, req *visionpb.BatchAnnotateFilesRequest, opts ...gax.CallOption) (*visionpb.BatchAnnotateFilesResponse, error)
	Close() error
}

// GoogleVisionEngine implements PDFRecognizer using Google Cloud Vision API.
type GoogleVisionEngine struct {
	client imageAnnotator
}

// NewGoogleVisionEngine creates a Vision engine with credentials from environment.
// It expects either GOOGLE_CREDENTIALS JSON or a GOOGLE_APPLICATION_CREDENTIALS path in env,
// and falls back to Application Default Credentials.
func NewGoogleVisionEngine(ctx context.Context) (*GoogleVisionEngine, error) {
	const op = "NewGoogleVisionEngine"

	opts := credentialOptions()
	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		if len(opts) == 0 {
			return nil, WrapOCRError(op, ErrMissingCredentials, "no credentials found in environment")
		}
		return nil, WrapOCRError(op, err, "failed to create Vision client")
	}

	return &GoogleVisionEngine{client: client}, nil
}

func newGoogleVisionEngineWithClient(client imageAnnotator) *GoogleVisionEngine {
	return &GoogleVisionEngine{client: client}
}

// credentialOptions returns client options for the credentials found in env.
func credentialOptions() []option.ClientOption {
	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(credJSON))}
	}
	if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		return []option.ClientOption{option.WithCredentialsFile(credFile)}
	}
	return nil
}

// Name implements Engine.
func (g *GoogleVisionEngine) Name() string {
	return "vision"
}

// MaxPDFPages implements PDFRecognizer.
func (g *GoogleVisionEngine) MaxPDFPages() int {
	return MaxPagesSync
}

// RecognizeImage implements Engine.
func (g *GoogleVisionEngine) RecognizeImage(ctx context.Context, image []byte, language string) (string, error) {
	const op = "GoogleVisionEngine.RecognizeImage"

	if len(image) == 0 {
		return "", NewOCRError(op, ErrInvalidImage, "empty image")
	}
	if len(image) > MaxFileSizeBytes {
		return "", NewOCRError(op, ErrFileTooLarge, fmt.Sprintf("file size: %d bytes", len(image)))
	}

	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{
			{
				Image: &visionpb.Image{Content: image},
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
				},
				ImageContext: &visionpb.ImageContext{LanguageHints: LanguageHints(language)},
			},
		},
	}

	resp, err := g.client.BatchAnnotateImages(ctx, req)
	if err != nil {
		return "", NewOCRError(op, ErrOCRFailed, fmt.Sprintf("Vision API call failed: %v", err))
	}
	if len(resp.Responses) == 0 {
		return "", NewOCRError(op, ErrOCRFailed, "no response from Vision API")
	}

	imgResp := resp.Responses[0]
	if imgResp.Error != nil {
		return "", NewOCRError(op, ErrOCRFailed, fmt.Sprintf("Vision API error: %s", imgResp.Error.Message))
	}
	if imgResp.FullTextAnnotation == nil {
		return "", nil
	}
	return strings.TrimSpace(imgResp.FullTextAnnotation.Text), nil
}

// RecognizePDF implements PDFRecognizer using inline content, no GCS upload required.
func (g *GoogleVisionEngine) RecognizePDF(ctx context.Context, pdf []byte, language string) ([]string, error) {
	const op = "GoogleVisionEngine.RecognizePDF"

	if len(pdf) > MaxFileSizeBytes {
		return nil, NewOCRError(op, ErrFileTooLarge, fmt.Sprintf("file size: %d bytes", len(pdf)))
	}
	if !models.HasPDFHeader(pdf) {
		return nil, NewOCRError(op, ErrInvalidPDF, "missing PDF header")
	}

	req := &visionpb.BatchAnnotateFilesRequest{
		Requests: []*visionpb.AnnotateFileRequest{
			{
				InputConfig: &visionpb.InputConfig{
					Content:  pdf,
					MimeType: "application/pdf",
				},
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
				},
				ImageContext: &visionpb.ImageContext{LanguageHints: LanguageHints(language)},
			},
		},
	}

	resp, err := g.client.BatchAnnotateFiles(ctx, req)
	if err != nil {
		return nil, NewOCRError(op, ErrOCRFailed, fmt.Sprintf("Vision API call failed: %v", err))
	}
	if len(resp.Responses) == 0 {
		return nil, NewOCRError(op, ErrOCRFailed, "no response from Vision API")
	}

	fileResp := resp.Responses[0]
	if fileResp.Error != nil {
		return nil, NewOCRError(op, ErrOCRFailed, fmt.Sprintf("Vision API error: %s", fileResp.Error.Message))
	}

	pages, err := visionPageTexts(fileResp)
	if err != nil {
		return nil, WrapOCRError(op, err, "failed to process Vision API response")
	}
	return pages, nil
}

// visionPageTexts returns the trimmed text of every page in a file response.
func visionPageTexts(fileResp *visionpb.AnnotateFileResponse) ([]string, error) {
	if len(fileResp.Responses) == 0 {
		return nil, ErrEmptyDocument
	}
	if len(fileResp.Responses) > MaxPagesSync {
		return nil, NewOCRError("visionPageTexts", ErrTooManyPages, fmt.Sprintf("document has %d pages", len(fileResp.Responses)))
	}

	pages := make([]string, 0, len(fileResp.Responses))
	for pageIdx, page := range fileResp.Responses {
		if page.Error != nil {
			return nil, fmt.Errorf("error processing page %d: %s", pageIdx+1, page.Error.Message)
		}
		var text string
		if page.FullTextAnnotation != nil {
			text = strings.TrimSpace(page.FullTextAnnotation.Text)
		}
		pages = append(pages, text)
	}
	return pages, nil
}

// Close closes the underlying Vision client.
func (g *GoogleVisionEngine) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}
