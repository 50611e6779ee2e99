// Package pdf reads PDF documents held in memory.
//
// Three independent readers are used:
//   - github.com/ledongthuc/pdf for the embedded text layer
//   - github.com/pdfcpu/pdfcpu for page counting
//   - github.com/gen2brain/go-fitz (MuPDF) for rasterizing pages before OCR
//
// The readers are fed untrusted uploads, so every entry point turns panics
// raised by a parser into errors.
package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	fitz "github.com/gen2brain/go-fitz"
	lpdf "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"docextract/pkg/models"
)

// DefaultDPI renders pages at twice the PDF user-space resolution.
const DefaultDPI = 144

var (
	// ErrMissingHeader is returned when the data does not start with %PDF.
	ErrMissingHeader = errors.New("missing PDF header")

	// ErrNoPages is returned when a document has nothing to render.
	ErrNoPages = errors.New("PDF has no pages")
)

// Toolkit bundles the PDF operations used by the extraction pipeline.
type Toolkit struct{}

// NewToolkit returns a Toolkit backed by the bundled PDF libraries.
func NewToolkit() *Toolkit {
	return &Toolkit{}
}

// TextLayer returns the text objects embedded in the document.
func (t *Toolkit) TextLayer(data []byte) (text string, err error) {
	defer recoverInto("text layer", &err)
	if !models.HasPDFHeader(data) {
		return "", ErrMissingHeader
	}

	r, err := lpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("opening PDF: %w", err)
	}

	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("reading text layer: %w", err)
	}

	var buf strings.Builder
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("reading text layer: %w", err)
	}
	return buf.String(), nil
}

// PageCount returns the number of pages in the document.
func (t *Toolkit) PageCount(data []byte) (n int, err error) {
	defer recoverInto("page count", &err)
	if !models.HasPDFHeader(data) {
		return 0, ErrMissingHeader
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	n, err = api.PageCount(bytes.NewReader(data), conf)
	if err != nil {
		return 0, fmt.Errorf("counting pages: %w", err)
	}
	return n, nil
}

// RenderPages rasterizes every page to PNG at the given resolution.
func (t *Toolkit) RenderPages(data []byte, dpi float64) (pages [][]byte, err error) {
	defer recoverInto("render", &err)
	if !models.HasPDFHeader(data) {
		return nil, ErrMissingHeader
	}

	if dpi <= 0 {
		dpi = DefaultDPI
	}

	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("opening PDF for rendering: %w", err)
	}
	defer doc.Close()

	total := doc.NumPage()
	if total == 0 {
		return nil, ErrNoPages
	}

	pages = make([][]byte, 0, total)
	for i := 0; i < total; i++ {
		png, err := doc.ImagePNG(i, dpi)
		if err != nil {
			return nil, fmt.Errorf("rendering page %d: %w", i+1, err)
		}
		pages = append(pages, png)
	}
	return pages, nil
}

func recoverInto(op string, err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%s: PDF parser panic: %v", op, r)
	}
}
