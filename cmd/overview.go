package cmd

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/helmcode/autofixer/pkg/llm"
	"github.com/helmcode/autofixer/pkg/prompts"
)

const overviewFileName = "codebase-analysis.md"

var (
	overviewExts     []string
	overviewOut      string
	overviewMaxBytes int
)

// skipDirs are never walked for an overview.
var skipDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
}

func NewOverviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "overview [DIR]",
		Short: "Write a high-level overview of a codebase",
		Long: `Gather the source files under DIR (default the current directory), send
them to the AI service with their paths and write the overview it returns to
DIR/codebase-analysis.md.

Examples:
  # Overview of the current project
  autofixer overview

  # Only Go files, written elsewhere
  autofixer overview ./service --ext .go --out notes/service.md`,
		Args: cobra.MaximumNArgs(1),
		RunE: runOverview,
	}

	cmd.Flags().StringSliceVar(&overviewExts, "ext", []string{".go", ".js", ".ts", ".py"}, "File extensions to include")
	cmd.Flags().StringVar(&overviewOut, "out", "", "Output file (default DIR/"+overviewFileName+")")
	cmd.Flags().IntVar(&overviewMaxBytes, "max-bytes", 512*1024, "Stop gathering files after this many bytes")

	return cmd
}

func runOverview(cmd *cobra.Command, args []string) error {
	root := "."
	if len(args) > 0 {
		root = args[0]
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	llmClient, err := newLLM(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	printHeader("AutoFixer Overview", nil, llmClient, "human")

	files, truncated, err := collectSources(root, overviewExts, overviewMaxBytes)
	if err != nil {
		return err
	}
	printSuccess(fmt.Sprintf("Gathered %d files from %s", len(files), root))
	if truncated {
		printWarning(fmt.Sprintf("Stopped gathering at %d bytes, some files were left out", overviewMaxBytes))
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Timeout)
	defer cancel()

	s := newSpinner(" Analyzing codebase...")
	s.Start()
	out, err := generateOverview(ctx, llmClient, root, files, overviewOut)
	s.Stop()
	if err != nil {
		printError(fmt.Sprintf("Error analyzing codebase: %v", err))
		return err
	}
	printSuccess(fmt.Sprintf("Overview written to %s", out))
	return nil
}

// collectSources walks root for files with one of exts, skipping hidden and
// dependency directories. Paths are relative to root with forward slashes.
// Gathering stops before the total size would pass maxBytes; truncated
// reports whether that happened.
func collectSources(root string, exts []string, maxBytes int) (files []prompts.SourceFile, truncated bool, err error) {
	want := make(map[string]bool, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" && !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		want[e] = true
	}

	total := 0
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && (strings.HasPrefix(d.Name(), ".") || skipDirs[d.Name()]) {
				return filepath.SkipDir
			}
			return nil
		}
		if !want[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if maxBytes > 0 && total+len(data) > maxBytes {
			truncated = true
			return filepath.SkipAll
		}
		total += len(data)
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, prompts.SourceFile{Path: filepath.ToSlash(rel), Text: string(data)})
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("gather sources in %s: %w", root, err)
	}
	return files, truncated, nil
}

// generateOverview asks l for an overview of files and writes it to out, or
// to root/codebase-analysis.md when out is empty. It returns the written path.
func generateOverview(ctx context.Context, l llm.LLM, root string, files []prompts.SourceFile, out string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	prompt, err := prompts.BuildOverviewPrompt(abs, files)
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
		out = filepath.Join(root, overviewFileName)
	}
	if err := writeMarkdown(out, reply); err != nil {
		return "", err
	}
	return out, nil
}
