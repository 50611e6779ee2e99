// Package ocr provides OCR (Optical Character Recognition) engines for page images.
//
// Three engines are available:
//   - tesseract: local Tesseract (subpackage tesseract), no network access required
//   - vision: Google Cloud Vision document text detection
//   - documentai: a Google Document AI OCR processor
//
// Google engines read credentials from the environment:
//   - GOOGLE_CREDENTIALS: Inline JSON credentials string, OR
//   - GOOGLE_APPLICATION_CREDENTIALS: Path to service account JSON file
//   - otherwise Application Default Credentials are used
//
// Language hints use Tesseract codes ("eng", "deu"). Google engines receive the
// matching BCP-47 code.
package ocr

import (
	"context"
)

// Engine recognizes text in a single raster image.
type Engine interface {
	// Name identifies the engine in logs and warnings.
	Name() string

	// RecognizeImage returns the trimmed text found in image.
	RecognizeImage(ctx context.Context, image []byte, language string) (string, error)
}

// PDFRecognizer is implemented by engines that accept whole PDF documents.
// Such engines skip local rasterization for documents of at most MaxPDFPages pages.
type PDFRecognizer interface {
	Engine

	// RecognizePDF returns the trimmed text of every page, in order.
	RecognizePDF(ctx context.Context, pdf []byte, language string) ([]string, error)

	// MaxPDFPages is the largest page count RecognizePDF accepts.
	MaxPDFPages() int
}

// Closer is implemented by engines holding network clients.
type Closer interface {
	Close() error
}

// CloseEngine releases the engine's resources if it holds any.
func CloseEngine(e Engine) error {
	if c, ok := e.(Closer); ok {
		return c.Close()
	}
	return nil
}
