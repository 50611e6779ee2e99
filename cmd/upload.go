package cmd

import (
	"context"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"docextract/internal/client"
	"docextract/internal/logger"
	"docextract/pkg/models"
)

var uploadCmd = &cobra.Command{
	Use:   "upload [files...]",
	Short: "Send files to a running extraction API and show the results",
	Long: `Upload one or more PDFs or images to the extraction API, one after another,
and print each result: method, file type, page count, detected medical fields
and the raw text.

A file that fails to upload is reported with method "error: <reason>" and the
remaining files are still processed.`,
	Example: `  # Upload two files to the default API
  docextract upload report.pdf scan.png

  # Use a remote API and keep .txt/.json copies of every result
  docextract upload *.pdf --api-url http://10.0.0.5:8000 --save-dir results/`,
	Args: cobra.MinimumNArgs(1),
	RunE: runUpload,
}

func init() {
	rootCmd.AddCommand(uploadCmd)

	uploadCmd.Flags().String("api-url", "", "API base URL (default: API_BASE_URL)")
	uploadCmd.Flags().String("save-dir", "", "Directory for <name>.txt and <name>.json result files")
	uploadCmd.Flags().Int("timeout", 0, "Per-file timeout in seconds (default: UPLOAD_TIMEOUT_SECONDS)")
}

func runUpload(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("upload")

	apiURL, _ := cmd.Flags().GetString("api-url")
	saveDir, _ := cmd.Flags().GetString("save-dir")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	if apiURL == "" {
		apiURL = cfg.APIBaseURL
	}
	timeout := cfg.UploadTimeout
	if timeoutSecs > 0 {
		timeout = time.Duration(timeoutSecs) * time.Second
	}

	ctx, cancel := signalContext(0, log)
	defer cancel()

	api := client.New(apiURL, timeout)

	log.Info().
		Str("api_url", apiURL).
		Int("files", len(args)).
		Dur("timeout", timeout).
		Msg("Uploading files")

	results := uploadAll(ctx, api, args, log)

	out := cmd.OutOrStdout()
	failed := 0
	for i := range results {
		resp := &results[i]
		if models.IsErrorMethod(resp.Method) {
			failed++
		}
		writeReport(out, resp)

		if saveDir != "" {
			txtPath, jsonPath, err := saveResult(saveDir, resp)
			if err != nil {
				return err
			}
			log.Info().
				Str("txt", txtPath).
				Str("json", jsonPath).
				Msg("Result saved")
		}
	}

	log.Info().
		Int("files", len(results)).
		Int("failed", failed).
		Msg("Upload finished")
	return ctx.Err()
}

// uploadAll sends files one at a time. Failures become error results.
func uploadAll(ctx context.Context, api *client.Client, paths []string, log zerolog.Logger) []models.ExtractResponse {
	results := make([]models.ExtractResponse, 0, len(paths))

	for i, path := range paths {
		if ctx.Err() != nil {
			break
		}

		log.Info().
			Int("file", i+1).
			Int("total", len(paths)).
			Str("path", path).
			Msg("Uploading")

		resp, err := api.Extract(ctx, path)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Upload failed")
			results = append(results, models.ExtractResponse{
				Filename: filepath.Base(path),
				FileType: client.ContentType(path),
				Method:   models.ErrorMethod(err.Error()),
				Text:     "",
			})
			continue
		}
		results = append(results, *resp)
	}
	return results
}
