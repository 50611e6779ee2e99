package server

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"docextract/internal/logger"
	"docextract/pkg/models"
	"docextract/pkg/services"
)

// Default filenames for uploads that arrive without one.
const (
	defaultPDFName   = "uploaded.pdf"
	defaultImageName = "uploaded-image"
)

// ExtractHandler serves the extraction API.
type ExtractHandler struct {
	extractor      services.DocumentExtractor
	maxUploadBytes int64
}

// NewExtractHandler creates a handler backed by extractor.
func NewExtractHandler(extractor services.DocumentExtractor, maxUploadBytes int64) *ExtractHandler {
	return &ExtractHandler{
		extractor:      extractor,
		maxUploadBytes: maxUploadBytes,
	}
}

// Health reports liveness.
func (h *ExtractHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Extract accepts a multipart "file" upload and returns its text and medical fields.
func (h *ExtractHandler) Extract(c *gin.Context) {
	log := logger.WithContext(c.Request.Context())

	if h.maxUploadBytes > 0 {
		if c.Request.ContentLength > h.maxUploadBytes {
			Fail(c, http.StatusRequestEntityTooLarge, tooLarge(h.maxUploadBytes))
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			Fail(c, http.StatusRequestEntityTooLarge, tooLarge(h.maxUploadBytes))
			return
		}
		log.Warn().Err(err).Msg("Missing file field")
		Fail(c, http.StatusBadRequest, "No file uploaded")
		return
	}

	content, err := readUpload(fileHeader)
	if err != nil {
		_ = c.Error(err)
		Fail(c, http.StatusInternalServerError, fmt.Sprintf("Extraction failed: %v", err))
		return
	}
	if len(content) == 0 {
		Fail(c, http.StatusBadRequest, "Empty file uploaded")
		return
	}

	contentType := strings.ToLower(fileHeader.Header.Get("Content-Type"))
	kind := models.DetectMediaKind(contentType, fileHeader.Filename)
	if kind == models.MediaUnsupported {
		declared := contentType
		if declared == "" {
			declared = strings.ToLower(filepath.Ext(fileHeader.Filename))
		}
		Fail(c, http.StatusUnsupportedMediaType, "Unsupported file type: "+declared)
		return
	}

	language := c.PostForm("lang")
	if language == "" {
		language = c.Query("lang")
	}

	log.Info().
		Str("filename", fileHeader.Filename).
		Str("content_type", contentType).
		Str("file_type", string(kind)).
		Int("size", len(content)).
		Str("lang", language).
		Msg("Extracting uploaded document")

	result, err := h.extractor.Extract(c.Request.Context(), kind, content, language)
	if err != nil {
		_ = c.Error(err)
		Fail(c, http.StatusInternalServerError, fmt.Sprintf("Extraction failed: %v", err))
		return
	}

	filename := fileHeader.Filename
	if filename == "" {
		filename = defaultPDFName
		if kind == models.MediaImage {
			filename = defaultImageName
		}
	}

	c.JSON(http.StatusOK, models.NewExtractResponse(filename, kind, result))
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	return data, nil
}

func tooLarge(limit int64) string {
	return fmt.Sprintf("File too large (maximum %d bytes)", limit)
}
