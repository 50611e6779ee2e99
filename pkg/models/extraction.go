package models

import (
	"bytes"
	"maps"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// ExtractionStatus classifies how an extraction ended.
type ExtractionStatus string

const (
	StatusSuccess  ExtractionStatus = "success"  // Text produced by the intended method
	StatusDegraded ExtractionStatus = "degraded" // Partial text, Reason explains what was lost
	StatusFailure  ExtractionStatus = "failure"  // No text recovered
)

// Extraction method names reported to clients.
const (
	MethodTextLayer = "text-layer"
	MethodOCR       = "ocr"
	methodErrorTag  = "error: "
)

// ErrorMethod encodes a failure reason the way clients expect it in the method field.
func ErrorMethod(reason string) string {
	return methodErrorTag + reason
}

// IsErrorMethod reports whether method carries a failure reason.
func IsErrorMethod(method string) bool {
	return strings.HasPrefix(method, methodErrorTag)
}

// ExtractionResult is the outcome of extracting text from one document.
type ExtractionResult struct {
	Text     string           // Final extracted text, trimmed
	Method   string           // "text-layer", "ocr" or "error: <reason>"
	Status   ExtractionStatus // Explicit outcome
	Reason   string           // Why the result is degraded or failed
	NumPages *int             // Page count for PDFs, nil for images
	Warnings []string         // Non-fatal problems met along the way
	Record   *MedicalRecord   // Parsed medical fields
	Duration time.Duration    // Time spent extracting
}

// MediaKind is the document family an upload belongs to.
type MediaKind string

const (
	MediaPDF         MediaKind = "pdf"
	MediaImage       MediaKind = "image"
	MediaUnsupported MediaKind = ""
)

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".tif":  true,
	".tiff": true,
	".bmp":  true,
}

// DetectMediaKind classifies an upload by its declared content type and file extension.
// PDF wins over image when both match.
func DetectMediaKind(contentType, filename string) MediaKind {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	ext := strings.ToLower(filepath.Ext(filename))

	switch {
	case ct == "application/pdf" || ext == ".pdf":
		return MediaPDF
	case strings.HasPrefix(ct, "image/") || imageExtensions[ext]:
		return MediaImage
	default:
		return MediaUnsupported
	}
}

// ImageExtensions lists the accepted image file extensions in sorted order.
func ImageExtensions() []string {
	return slices.Sorted(maps.Keys(imageExtensions))
}

// HasPDFHeader reports whether data starts with the PDF magic bytes.
func HasPDFHeader(data []byte) bool {
	return bytes.HasPrefix(data, []byte("%PDF"))
}
