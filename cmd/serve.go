package cmd

import (
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"docextract/internal/logger"
	"docextract/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the extraction HTTP API",
	Long: `Start the HTTP API with two routes:

  GET  /health   liveness probe
  POST /extract  multipart upload (field "file") of a PDF or image

Settings come from the environment (HTTP_ADDR, MAX_UPLOAD_BYTES, OCR_ENGINE,
OCR_LANGUAGE, TEXT_LAYER_MIN_CHARS, RENDER_DPI, CORS_ALLOWED_ORIGINS).`,
	Example: `  # Serve on the default address (:8000) with local Tesseract
  docextract serve

  # Serve with Google Cloud Vision on a custom port
  OCR_ENGINE=vision docextract serve --addr :9000`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "Listen address (default: HTTP_ADDR)")
	serveCmd.Flags().String("engine", "", "OCR engine: tesseract, vision or documentai (default: OCR_ENGINE)")
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("serve")

	addr, _ := cmd.Flags().GetString("addr")
	engineName, _ := cmd.Flags().GetString("engine")
	if addr == "" {
		addr = cfg.HTTPAddr
	}
	if engineName == "" {
		engineName = cfg.OCREngine
	}

	ctx, cancel := signalContext(0, log)
	defer cancel()

	svc, release, err := newExtractionService(ctx, cfg, engineName, log)
	if err != nil {
		return err
	}
	defer release()

	if cfg.LogLevel != "debug" && cfg.LogLevel != "trace" {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := server.New(server.Config{
		Addr:           addr,
		MaxUploadBytes: cfg.MaxUploadBytes,
		AllowedOrigins: cfg.CORSAllowedOrigins,
	}, svc)

	log.Info().
		Str("addr", addr).
		Str("engine", engineName).
		Int64("max_upload_bytes", cfg.MaxUploadBytes).
		Msg("Starting extraction API")

	return srv.Run(ctx)
}
