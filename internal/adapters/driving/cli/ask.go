package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/policy-pundit/internal/app"
	"github.com/custodia-labs/policy-pundit/internal/core/domain"
	"github.com/custodia-labs/policy-pundit/internal/core/ports/driving"
)

var (
	askFile string
	askTopK int
	askJSON bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a coverage question about a policy file",
	Long: `Ingests the policy file, retrieves the most similar clauses and prints the
coverage decision with its supporting evidence.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askFile, "file", "f", "", "policy document (.pdf, .docx, .txt, .md)")
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", domain.DefaultTopK, "number of clauses to retrieve")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the result as JSON")
	_ = askCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := args[0]
	if strings.TrimSpace(question) == "" {
		return errors.New("question must not be empty")
	}

	data, err := os.ReadFile(askFile)
	if err != nil {
		return fmt.Errorf("read %s: %w", askFile, err)
	}

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	upload, err := a.Corpus.Upload(ctx, driving.UploadRequest{
		Filename: filepath.Base(askFile),
		Data:     data,
	})
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}

	result, err := a.Query.Ask(ctx, question, domain.AskOptions{
		CorpusID: upload.CorpusID,
		TopK:     askTopK,
	})
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if askJSON {
		return outputResultJSON(cmd, result)
	}
	outputResultText(cmd, result)
	return nil
}

func outputResultJSON(cmd *cobra.Command, result *domain.Result) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputResultText(cmd *cobra.Command, result *domain.Result) {
	cmd.Printf("Status:     %s\n", result.Status)
	cmd.Printf("Confidence: %.2f\n", result.Confidence)
	cmd.Println()
	cmd.Println(result.Answer)
	cmd.Println()
	cmd.Printf("Rationale: %s\n", result.DecisionRationale)

	if len(result.Conditions) > 0 {
		cmd.Println()
		cmd.Println("Conditions:")
		for _, c := range result.Conditions {
			cmd.Printf("  - %s\n", c)
		}
	}

	if len(result.Evidence) == 0 {
		cmd.Println()
		cmd.Println("No evidence found.")
		return
	}

	cmd.Println()
	cmd.Println("Evidence:")
	for i, e := range result.Evidence {
		// Format: [N] clause_id (score)
		cmd.Printf("  [%d] %s (%.3f)\n", i+1, e.ClauseID, e.SimilarityScore)
		cmd.Printf("      %s\n", snippet(e.Text, 160))
	}
}

func snippet(text string, limit int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
