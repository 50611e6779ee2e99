// Package extraction turns uploaded PDF and image bytes into text and a parsed
// medical record.
//
// PDFs are read through their text layer first. When that yields fewer than
// Config.MinTextChars characters the pages are OCR'd instead. Failures inside
// either path are recovered locally and reported through the result's Status,
// Reason and Method fields; only context cancellation is returned as an error.
package extraction

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"docextract/internal/logger"
	"docextract/internal/medical"
	"docextract/internal/ocr"
	"docextract/pkg/models"
)

// pageSeparator joins the OCR text of consecutive pages.
const pageSeparator = "\n\n"

// PDFReader is the set of PDF operations the pipeline needs.
type PDFReader interface {
	TextLayer(data []byte) (string, error)
	PageCount(data []byte) (int, error)
	RenderPages(data []byte, dpi float64) ([][]byte, error)
}

// Config tunes the extraction pipeline.
type Config struct {
	Language     string  // Default OCR language hint
	MinTextChars int     // Text-layer results shorter than this trigger OCR
	RenderDPI    float64 // Rasterization resolution for OCR
	ParseOptions []medical.Option
}

// DefaultConfig returns the settings used by the HTTP service.
func DefaultConfig() Config {
	return Config{
		Language:     ocr.DefaultLanguage,
		MinTextChars: 20,
		RenderDPI:    144,
	}
}

// Service implements services.DocumentExtractor.
type Service struct {
	pdf    PDFReader
	engine ocr.Engine
	cfg    Config
	log    zerolog.Logger
}

// NewService creates an extraction service.
func NewService(pdf PDFReader, engine ocr.Engine, cfg Config) *Service {
	def := DefaultConfig()
	if cfg.Language == "" {
		cfg.Language = def.Language
	}
	if cfg.MinTextChars <= 0 {
		cfg.MinTextChars = def.MinTextChars
	}
	if cfg.RenderDPI <= 0 {
		cfg.RenderDPI = def.RenderDPI
	}
	return &Service{
		pdf:    pdf,
		engine: engine,
		cfg:    cfg,
		log:    logger.WithComponent("extraction"),
	}
}

// Extract dispatches on the media kind.
func (s *Service) Extract(ctx context.Context, kind models.MediaKind, data []byte, language string) (*models.ExtractionResult, error) {
	switch kind {
	case models.MediaPDF:
		return s.ExtractPDF(ctx, data, language)
	case models.MediaImage:
		return s.ExtractImage(ctx, data, language)
	default:
		return nil, &ExtractionError{Op: "Extract", Err: ErrUnsupportedMedia}
	}
}

// ExtractPDF extracts text from a PDF, falling back to OCR when the text layer is too thin.
func (s *Service) ExtractPDF(ctx context.Context, data []byte, language string) (*models.ExtractionResult, error) {
	const op = "ExtractPDF"
	start := time.Now()

	if len(data) == 0 {
		return nil, &ExtractionError{Op: op, Err: ErrEmptyDocument}
	}
	language = s.language(language)

	result := &models.ExtractionResult{
		Method: models.MethodTextLayer,
		Status: models.StatusSuccess,
	}

	textLayer, err := s.pdf.TextLayer(data)
	if err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("text layer: %v", err))
		textLayer = ""
	}

	numPages, err := s.pdf.PageCount(data)
	if err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("page count: %v", err))
		numPages = 0
	}

	cleaned := strings.TrimSpace(textLayer)

	if utf8.RuneCountInString(cleaned) < s.cfg.MinTextChars {
		s.log.Debug().
			Int("text_layer_chars", utf8.RuneCountInString(cleaned)).
			Int("threshold", s.cfg.MinTextChars).
			Str("engine", s.engine.Name()).
			Msg("Text layer too short, falling back to OCR")

		pages, ocrPages, warnings, ocrErr := s.ocrPDF(ctx, data, language, numPages)
		result.Warnings = append(result.Warnings, warnings...)

		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, canceled(op, ctxErr)
		}

		switch {
		case ocrErr == nil:
			cleaned = joinPages(pages)
			result.Method = models.MethodOCR
			numPages = ocrPages
			if len(warnings) > 0 && failedPages(warnings) > 0 {
				result.Status = models.StatusDegraded
				result.Reason = fmt.Sprintf("OCR failed on %d of %d pages", failedPages(warnings), ocrPages)
			}
		case cleaned != "":
			// OCR is gone but the short text layer is still worth returning
			result.Status = models.StatusDegraded
			result.Reason = ocrErr.Error()
		default:
			cleaned = ""
			result.Method = models.ErrorMethod(ocrErr.Error())
			result.Status = models.StatusFailure
			result.Reason = ocrErr.Error()
		}
	}

	result.Text = cleaned
	result.NumPages = &numPages
	result.Record = medical.Parse(cleaned, s.cfg.ParseOptions...)
	result.Duration = time.Since(start)

	s.logResult(op, result)
	return result, nil
}

// ExtractImage runs OCR on a single image.
func (s *Service) ExtractImage(ctx context.Context, data []byte, language string) (*models.ExtractionResult, error) {
	const op = "ExtractImage"
	start := time.Now()

	if len(data) == 0 {
		return nil, &ExtractionError{Op: op, Err: ErrEmptyDocument}
	}

	result := &models.ExtractionResult{
		Method: models.MethodOCR,
		Status: models.StatusSuccess,
	}

	text, err := s.engine.RecognizeImage(ctx, data, s.language(language))
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, canceled(op, ctxErr)
	}
	if err != nil {
		text = ""
		result.Method = models.ErrorMethod(err.Error())
		result.Status = models.StatusFailure
		result.Reason = err.Error()
	}

	result.Text = strings.TrimSpace(text)
	result.Record = medical.Parse(result.Text, s.cfg.ParseOptions...)
	result.Duration = time.Since(start)

	s.logResult(op, result)
	return result, nil
}

// ocrPDF recognizes every page of the document. It returns the page texts,
// the number of pages processed, per-page warnings and an error only when
// the whole OCR path failed.
func (s *Service) ocrPDF(ctx context.Context, data []byte, language string, knownPages int) ([]string, int, []string, error) {
	var warnings []string

	if rec, ok := s.engine.(ocr.PDFRecognizer); ok && knownPages > 0 && knownPages <= rec.MaxPDFPages() {
		pages, err := rec.RecognizePDF(ctx, data, language)
		if err == nil {
			return pages, len(pages), nil, nil
		}
		if ctx.Err() != nil {
			return nil, 0, nil, err
		}
		warnings = append(warnings, fmt.Sprintf("%s PDF OCR: %v; rendering pages instead", s.engine.Name(), err))
	}

	images, err := s.pdf.RenderPages(data, s.cfg.RenderDPI)
	if err != nil {
		return nil, 0, warnings, err
	}

	texts := make([]string, 0, len(images))
	var lastErr error
	for i, img := range images {
		text, err := s.engine.RecognizeImage(ctx, img, language)
		if ctx.Err() != nil {
			return nil, 0, warnings, ctx.Err()
		}
		if err != nil {
			lastErr = err
			warnings = append(warnings, fmt.Sprintf("%s%d: %v", pageFailurePrefix, i+1, err))
			continue
		}
		texts = append(texts, text)
	}

	if len(images) > 0 && len(texts) == 0 {
		return nil, 0, warnings, lastErr
	}
	return texts, len(images), warnings, nil
}

const pageFailurePrefix = "OCR page "

func failedPages(warnings []string) int {
	n := 0
	for _, w := range warnings {
		if strings.HasPrefix(w, pageFailurePrefix) {
			n++
		}
	}
	return n
}

func joinPages(pages []string) string {
	kept := make([]string, 0, len(pages))
	for _, p := range pages {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, pageSeparator)
}

func (s *Service) language(language string) string {
	if language == "" {
		return s.cfg.Language
	}
	return language
}

func (s *Service) logResult(op string, result *models.ExtractionResult) {
	event := s.log.Info()
	if result.Status != models.StatusSuccess {
		event = s.log.Warn().Str("reason", result.Reason)
	}
	if result.NumPages != nil {
		event = event.Int("num_pages", *result.NumPages)
	}
	event.
		Str("op", op).
		Str("method", result.Method).
		Str("status", string(result.Status)).
		Int("text_length", len(result.Text)).
		Int("warnings", len(result.Warnings)).
		Bool("is_medical_document", result.Record.IsMedicalDocument()).
		Dur("duration", result.Duration).
		Msg("Extraction completed")
}
