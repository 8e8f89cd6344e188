package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/helmcode/autofixer/pkg/config"
	"github.com/helmcode/autofixer/pkg/document"
	"github.com/helmcode/autofixer/pkg/formatter"
	"github.com/helmcode/autofixer/pkg/tree"
)

var analyzeTab string

func NewAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze FILE...",
		Short: "Analyze source files and list suggested fixes",
		Long: `Send each file to the AI service and show the suggestions it returns.

Examples:
  # Summary of findings for one file
  autofixer analyze src/app.js

  # Group suggestions by line
  autofixer analyze src/app.js --tab by-line

  # Machine-readable output
  autofixer analyze main.go util.go -o json`,
		Args: cobra.MinimumNArgs(1),
		RunE: runAnalyze,
	}

	cmd.Flags().StringVar(&analyzeTab, "tab", "", "View to show (summary, by-category, by-line)")

	return cmd
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	tab, err := resolveTab(cfg)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	an, llmClient, err := newAnalyzer(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer an.Shutdown()

	printHeader("AutoFixer Analysis", args, llmClient, cfg.Output)

	failed := 0
	for _, path := range args {
		doc, err := document.OpenFile(path)
		if err != nil {
			printError(err.Error())
			failed++
			continue
		}
		an.Open(doc)

		s := newSpinner(fmt.Sprintf(" Analyzing %s...", path))
		s.Start()
		_, err = an.Analyze(ctx, doc.ID())
		s.Stop()
		if err != nil {
			printError(fmt.Sprintf("%s: %v", path, err))
			failed++
			an.Close(doc.ID())
			continue
		}
		printSuccess(fmt.Sprintf("Analyzed %s", path))

		if err := formatter.DisplayTree(os.Stdout, an.View(doc.ID(), tab), cfg.Output); err != nil {
			return err
		}
		an.Close(doc.ID())
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files could not be analyzed", failed, len(args))
	}
	return nil
}

func resolveTab(cfg config.Config) (tree.Tab, error) {
	name := analyzeTab
	if name == "" {
		name = cfg.Tab
	}
	if name == "" {
		return tree.TabSummary, nil
	}
	return tree.ParseTab(name)
}
