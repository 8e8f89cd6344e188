package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/helmcode/autofixer/pkg/llm"
	"github.com/helmcode/autofixer/pkg/prompts"
)

var docsOut string

func NewDocsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docs FILE",
		Short: "Generate Markdown documentation for a source file",
		Long: `Ask the AI service for reference documentation of a file and write it
next to the file as FILE.md.

Examples:
  # Writes src/app.js.md
  autofixer docs src/app.js

  # Choose where the documentation goes
  autofixer docs src/app.js --out docs/app.md`,
		Args: cobra.ExactArgs(1),
		RunE: runDocs,
	}

	cmd.Flags().StringVar(&docsOut, "out", "", "Output file (default FILE.md)")

	return cmd
}

func runDocs(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	llmClient, err := newLLM(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	printHeader("AutoFixer Docs", args, llmClient, "human")

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Timeout)
	defer cancel()

	s := newSpinner(fmt.Sprintf(" Generating documentation for %s...", args[0]))
	s.Start()
	out, err := generateDocs(ctx, llmClient, args[0], docsOut)
	s.Stop()
	if err != nil {
		printError(fmt.Sprintf("Error generating documentation: %v", err))
		return err
	}
	printSuccess(fmt.Sprintf("Documentation written to %s", out))
	return nil
}

// generateDocs documents the file at path and writes the Markdown to out,
// or to path + ".md" when out is empty. It returns the written path.
func generateDocs(ctx context.Context, l llm.LLM, path, out string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	prompt, err := prompts.BuildDocsPrompt(filepath.Base(path), string(data))
	if err != nil {
		return "", err
	}

	reply, err := l.Chat(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("LLM chat: %w", err)
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", llm.ErrEmptyResponse
	}

	if out == "" {
		out = path + ".md"
	}
	if err := writeMarkdown(out, reply); err != nil {
		return "", err
	}
	return out, nil
}

func writeMarkdown(path, text string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, []byte(text+"\n"), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
