package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"docextract/internal/logger"
	"docextract/internal/vectorstore"
	"docextract/pkg/models"
)

var searchCmd = &cobra.Command{
	Use:   "search --query <text> [files...]",
	Short: "Find the passages of local documents most similar to a query",
	Long: `Extract text from local PDFs and images, split it into paragraphs, embed the
paragraphs with the OpenAI embeddings API and print the passages closest to the
query by cosine similarity.

Required environment variables:
  OPENAI_API_KEY - API key for OpenAI or a compatible endpoint (OPENAI_BASE_URL)`,
	Example: `  docextract search --query "penicillin allergy" reports/*.pdf
  docextract search -q "previous surgery" -k 2 scan.png`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().StringP("query", "q", "", "Search query (required)")
	searchCmd.Flags().IntP("top", "k", vectorstore.DefaultK, "Number of passages to return")
	searchCmd.Flags().Int("chunk-size", 1500, "Maximum passage size in bytes")
	searchCmd.Flags().Int("timeout", 600, "Timeout in seconds")
	_ = searchCmd.MarkFlagRequired("query")
}

func runSearch(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("search")

	query, _ := cmd.Flags().GetString("query")
	k, _ := cmd.Flags().GetInt("top")
	chunkSize, _ := cmd.Flags().GetInt("chunk-size")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	if cfg.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required for search")
	}

	ctx, cancel := signalContext(time.Duration(timeoutSecs)*time.Second, log)
	defer cancel()

	svc, release, err := newExtractionService(ctx, cfg, "", log)
	if err != nil {
		return err
	}
	defer release()

	var passages []string
	for _, path := range args {
		kind, err := validateInputFile(path, cfg.MaxUploadBytes, log)
		if err != nil {
			log.Warn().Err(err).Str("file", path).Msg("Skipping file")
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			log.Warn().Err(err).Str("file", path).Msg("Skipping unreadable file")
			continue
		}

		result, err := svc.Extract(ctx, kind, data, "")
		if err != nil {
			return handleExtractionError(err, log)
		}
		if result.Status == models.StatusFailure {
			log.Warn().Str("file", path).Str("reason", result.Reason).Msg("No text extracted")
			continue
		}

		chunks := vectorstore.SplitParagraphs(result.Text, chunkSize)
		log.Debug().
			Str("file", filepath.Base(path)).
			Str("method", result.Method).
			Int("passages", len(chunks)).
			Msg("Document split")
		passages = append(passages, chunks...)
	}

	if len(passages) == 0 {
		return fmt.Errorf("no text could be extracted from the given files")
	}

	embedder := vectorstore.NewOpenAIEmbedder(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIEmbeddingModel)
	index, err := vectorstore.NewIndex(ctx, embedder, passages)
	if err != nil {
		return fmt.Errorf("failed to build index: %w", err)
	}

	matches, err := index.Retrieve(ctx, query, k)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	out := cmd.OutOrStdout()
	for i, m := range matches {
		fmt.Fprintf(out, "--- #%d (score %.3f) ---\n%s\n\n", i+1, m.Score, m.Text)
	}
	return nil
}
