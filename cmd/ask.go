package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"docextract/internal/assistant"
	"docextract/internal/logger"
)

var askCmd = &cobra.Command{
	Use:   "ask [question...]",
	Short: "Ask the chat model a question",
	Long: `Send a single question to an OpenAI chat model and print the answer.

Required environment variables:
  OPENAI_API_KEY - API key for OpenAI or a compatible endpoint (OPENAI_BASE_URL)`,
	Example: `  docextract ask "What is metformin prescribed for?"`,
	Args:    cobra.MinimumNArgs(1),
	RunE:    runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)

	askCmd.Flags().String("model", "", "Chat model (default: OPENAI_MODEL)")
	askCmd.Flags().Int("retries", assistant.DefaultMaxRetries, "Attempts before giving up")
	askCmd.Flags().Int("timeout", 120, "Timeout in seconds")
}

func runAsk(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("ask")

	model, _ := cmd.Flags().GetString("model")
	retries, _ := cmd.Flags().GetInt("retries")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")
	if model == "" {
		model = cfg.OpenAIModel
	}

	temperature := cfg.OpenAITemperature
	chat, err := assistant.NewChatModel(assistant.Config{
		APIKey:      cfg.OpenAIAPIKey,
		BaseURL:     cfg.OpenAIBaseURL,
		Model:       model,
		Temperature: &temperature,
		MaxRetries:  retries,
	})
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(time.Duration(timeoutSecs)*time.Second, log)
	defer cancel()

	answer, err := chat.Ask(ctx, strings.Join(args, " "))
	if err != nil {
		return fmt.Errorf("chat request failed: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), answer)
	return nil
}
