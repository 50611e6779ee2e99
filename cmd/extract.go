package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"docextract/internal/extraction"
	"docextract/internal/logger"
	"docextract/internal/ocr"
	"docextract/pkg/models"
)

var extractCmd = &cobra.Command{
	Use:   "extract [file]",
	Short: "Extract text and medical fields from a local PDF or image",
	Long: `Extract text from a PDF or image file without going through the HTTP API.

PDFs are read through their embedded text layer. When the text layer holds fewer
than TEXT_LAYER_MIN_CHARS characters, every page is rendered and sent to OCR.
Images always go through OCR. The text is then parsed for medical report fields
(Name, Age, History, Allergies, Medications, Surgeries, Notes).

The OCR engine is chosen with OCR_ENGINE or --engine:
  tesseract  - local Tesseract installation (default)
  vision     - Google Cloud Vision (GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS)
  documentai - Google Document AI (also GOOGLE_CLOUD_PROJECT and DOCUMENT_AI_PROCESSOR_ID)`,
	Example: `  # Print extracted text to stdout
  docextract extract report.pdf

  # Save the full result as JSON
  docextract extract scan.png --json -o result.json

  # OCR a German document with Cloud Vision
  docextract extract befund.pdf --lang deu --engine vision --timeout 600`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	extractCmd.Flags().BoolP("metadata", "m", false, "Include method, pages and medical fields in text output")
	extractCmd.Flags().Bool("json", false, "Output as JSON")
	extractCmd.Flags().String("lang", "", "OCR language, e.g. eng or eng+deu (default: OCR_LANGUAGE)")
	extractCmd.Flags().String("engine", "", "OCR engine: tesseract, vision or documentai (default: OCR_ENGINE)")
	extractCmd.Flags().Int("timeout", 300, "Processing timeout in seconds")
}

func runExtract(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("extract")

	outputPath, _ := cmd.Flags().GetString("output")
	includeMetadata, _ := cmd.Flags().GetBool("metadata")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	language, _ := cmd.Flags().GetString("lang")
	engineName, _ := cmd.Flags().GetString("engine")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	path := args[0]

	log.Info().
		Str("file", path).
		Str("output", outputPath).
		Bool("json", jsonOutput).
		Str("lang", language).
		Int("timeout", timeoutSecs).
		Msg("Starting extraction")

	kind, err := validateInputFile(path, cfg.MaxUploadBytes, log)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Error().Err(err).Str("file", path).Msg("Failed to read input file")
		return fmt.Errorf("failed to read input file: %w", err)
	}

	ctx, cancel := signalContext(time.Duration(timeoutSecs)*time.Second, log)
	defer cancel()

	svc, release, err := newExtractionService(ctx, cfg, strings.ToLower(engineName), log)
	if err != nil {
		return err
	}
	defer release()

	result, err := svc.Extract(ctx, kind, data, language)
	if err != nil {
		return handleExtractionError(err, log)
	}

	resp := models.NewExtractResponse(filepath.Base(path), kind, result)
	if result.Status == models.StatusFailure {
		log.Warn().
			Str("reason", result.Reason).
			Msg("No text could be extracted")
	}

	return outputResult(&resp, outputPath, jsonOutput, includeMetadata, log)
}

// validateInputFile checks that path is a readable, non-empty PDF or image.
func validateInputFile(path string, maxBytes int64, log zerolog.Logger) (models.MediaKind, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Error().Str("file", path).Msg("Input file not found")
			return "", fmt.Errorf("file not found: %s", path)
		}
		if os.IsPermission(err) {
			log.Error().Str("file", path).Msg("Permission denied accessing input file")
			return "", fmt.Errorf("permission denied accessing file: %s", path)
		}
		return "", fmt.Errorf("error accessing file: %w", err)
	}

	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("path is not a regular file: %s", path)
	}
	if info.Size() == 0 {
		return "", fmt.Errorf("file is empty: %s", path)
	}
	if maxBytes > 0 && info.Size() > maxBytes {
		log.Error().
			Str("file", path).
			Int64("size", info.Size()).
			Int64("max_size", maxBytes).
			Msg("Input file exceeds maximum size limit")
		return "", fmt.Errorf("file too large (%d bytes). Maximum size is %d bytes", info.Size(), maxBytes)
	}

	kind := models.DetectMediaKind("", path)
	if kind == models.MediaUnsupported {
		return "", fmt.Errorf("unsupported file type %q. Supported: .pdf %s",
			filepath.Ext(path), strings.Join(models.ImageExtensions(), " "))
	}
	return kind, nil
}

// handleExtractionError provides user-friendly messages for extraction failures
func handleExtractionError(err error, log zerolog.Logger) error {
	log.Error().Err(err).Msg("Extraction failed")

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("extraction timed out. Try increasing --timeout or processing a smaller file")
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("extraction was canceled")
	case errors.Is(err, extraction.ErrUnsupportedMedia):
		return fmt.Errorf("unsupported file type")
	case errors.Is(err, extraction.ErrEmptyDocument):
		return fmt.Errorf("the file is empty")
	case errors.Is(err, ocr.ErrOCRFailed):
		return fmt.Errorf("OCR processing failed. This may be due to network issues, API quota limits, or service unavailability: %w", err)
	default:
		return fmt.Errorf("extraction failed: %w", err)
	}
}

// outputResult formats and writes the extraction result
func outputResult(resp *models.ExtractResponse, outputPath string, jsonOutput, includeMetadata bool, log zerolog.Logger) error {
	var outputData []byte

	switch {
	case jsonOutput:
		data, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			log.Error().Err(err).Msg("Failed to marshal JSON output")
			return fmt.Errorf("failed to create JSON output: %w", err)
		}
		outputData = append(data, '\n')
	case includeMetadata:
		var b strings.Builder
		writeReport(&b, resp)
		outputData = []byte(b.String())
	default:
		outputData = []byte(resp.Text + "\n")
	}

	if outputPath == "" {
		if _, err := os.Stdout.Write(outputData); err != nil {
			log.Error().Err(err).Msg("Failed to write to stdout")
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}

	if err := os.WriteFile(outputPath, outputData, 0o644); err != nil {
		log.Error().
			Err(err).
			Str("output_file", outputPath).
			Msg("Failed to write output file")
		return fmt.Errorf("failed to write output file: %w", err)
	}

	log.Info().
		Str("output_file", outputPath).
		Int("bytes", len(outputData)).
		Msg("Extraction result written to file")
	return nil
}
