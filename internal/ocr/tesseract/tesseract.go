// Package tesseract runs OCR locally through the Tesseract library (gosseract).
// Building it requires libtesseract and leptonica headers.
package tesseract

import (
	"context"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"docextract/internal/ocr"
)

// Engine implements ocr.Engine with a local Tesseract installation.
// gosseract clients are not safe for concurrent use, so each call gets its own.
type Engine struct {
	tessdataPrefix string
}

// New creates a Tesseract engine. An empty tessdataPrefix uses the
// library's compiled-in default.
func New(tessdataPrefix string) *Engine {
	return &Engine{tessdataPrefix: tessdataPrefix}
}

// Name implements ocr.Engine.
func (e *Engine) Name() string {
	return "tesseract"
}

// RecognizeImage implements ocr.Engine.
func (e *Engine) RecognizeImage(ctx context.Context, image []byte, language string) (string, error) {
	const op = "tesseract.RecognizeImage"

	if len(image) == 0 {
		return "", ocr.NewOCRError(op, ocr.ErrInvalidImage, "empty image")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if e.tessdataPrefix != "" {
		if err := client.SetTessdataPrefix(e.tessdataPrefix); err != nil {
			return "", ocr.WrapOCRError(op, err, "failed to set tessdata prefix")
		}
	}
	if err := client.SetLanguage(ocr.SplitLanguages(language)...); err != nil {
		return "", ocr.WrapOCRError(op, err, "failed to set language "+language)
	}
	if err := client.SetImageFromBytes(image); err != nil {
		return "", ocr.NewOCRError(op, ocr.ErrInvalidImage, err.Error())
	}

	text, err := client.Text()
	if err != nil {
		return "", ocr.NewOCRError(op, ocr.ErrOCRFailed, err.Error())
	}
	return strings.TrimSpace(text), nil
}
