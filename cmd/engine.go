package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"docextract/internal/config"
	"docextract/internal/extraction"
	"docextract/internal/ocr"
	"docextract/internal/ocr/tesseract"
	"docextract/internal/pdf"
)

// newOCREngine builds the engine named by engineName.
func newOCREngine(ctx context.Context, c *config.Config, engineName string) (ocr.Engine, error) {
	switch engineName {
	case config.EngineTesseract:
		return tesseract.New(c.TessdataPrefix), nil
	case config.EngineVision:
		engine, err := ocr.NewGoogleVisionEngine(ctx)
		if err != nil {
			return nil, err
		}
		return engine, nil
	case config.EngineDocumentAI:
		engine, err := ocr.NewDocumentAIEngine(ctx, ocr.DocumentAIConfig{
			ProjectID:        c.GoogleCloudProject,
			Location:         c.GoogleCloudLocation,
			ProcessorID:      c.DocumentAIProcessorID,
			ProcessorVersion: c.DocumentAIProcessorVersion,
		})
		if err != nil {
			return nil, err
		}
		return engine, nil
	default:
		return nil, ocr.NewOCRError("newOCREngine", ocr.ErrUnknownEngine, engineName)
	}
}

// newExtractionService wires the PDF toolkit and OCR engine into an
// extraction service. The returned func releases the engine.
func newExtractionService(ctx context.Context, c *config.Config, engineName string, log zerolog.Logger) (*extraction.Service, func(), error) {
	if engineName == "" {
		engineName = c.OCREngine
	}
	engineName = strings.ToLower(engineName)
	if err := c.ValidateEngine(engineName); err != nil {
		return nil, nil, err
	}

	engine, err := newOCREngine(ctx, c, engineName)
	if err != nil {
		if errors.Is(err, ocr.ErrMissingCredentials) {
			return nil, nil, fmt.Errorf("Google Cloud credentials validation failed. Please verify:\n\n"+
				"1. GOOGLE_APPLICATION_CREDENTIALS points to a readable service account file, OR\n"+
				"2. GOOGLE_CREDENTIALS contains valid inline JSON, OR\n"+
				"3. Application Default Credentials are configured (gcloud auth application-default login)\n\n"+
				"Original error: %w", err)
		}
		return nil, nil, fmt.Errorf("failed to create %s OCR engine: %w", engineName, err)
	}

	log.Debug().Str("engine", engine.Name()).Msg("OCR engine created")

	svc := extraction.NewService(pdf.NewToolkit(), engine, extraction.Config{
		Language:     c.OCRLanguage,
		MinTextChars: c.TextLayerMinChars,
		RenderDPI:    c.RenderDPI,
	})

	release := func() {
		if err := ocr.CloseEngine(engine); err != nil {
			log.Warn().Err(err).Msg("Failed to close OCR engine")
		}
	}
	return svc, release, nil
}
