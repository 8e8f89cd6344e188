package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/helmcode/autofixer/pkg/analyzer"
	"github.com/helmcode/autofixer/pkg/applicator"
	"github.com/helmcode/autofixer/pkg/document"
	"github.com/helmcode/autofixer/pkg/formatter"
	"github.com/helmcode/autofixer/pkg/model"
)

var (
	fixDryRun bool
	fixLine   int
	fixForce  bool
)

func NewFixCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fix FILE...",
		Short: "Analyze source files and apply the suggested fixes",
		Long: `Analyze each file and write the suggested replacement lines back to it.

Suggestions without a proposed fix are only reported. Suggestions whose line
no longer exists are skipped and listed.

Examples:
  # Apply every suggested fix
  autofixer fix src/app.js

  # Only fix line 12
  autofixer fix src/app.js --line 12

  # Show what would change without touching the file
  autofixer fix src/app.js --dry-run`,
		Args: cobra.MinimumNArgs(1),
		RunE: runFix,
	}

	cmd.Flags().BoolVar(&fixDryRun, "dry-run", false, "Print the fixed text instead of writing it")
	cmd.Flags().IntVar(&fixLine, "line", 0, "Only apply suggestions for this line")
	cmd.Flags().BoolVar(&fixForce, "force", false, "Apply even if the file changed while it was being analyzed")

	return cmd
}

func runFix(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	an, llmClient, err := newAnalyzer(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer an.Shutdown()

	printHeader("AutoFixer Fix", args, llmClient, cfg.Output)

	failed := 0
	for _, path := range args {
		if err := fixFile(cmd, an, path, cfg.Output); err != nil {
			printError(fmt.Sprintf("%s: %v", path, err))
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files could not be fixed", failed, len(args))
	}
	return nil
}

func fixFile(cmd *cobra.Command, an *analyzer.Analyzer, path, format string) error {
	ctx := cmd.Context()
	doc, err := document.OpenFile(path)
	if err != nil {
		return err
	}
	an.Open(doc)
	defer an.Close(doc.ID())

	s := newSpinner(fmt.Sprintf(" Analyzing %s...", path))
	s.Start()
	analysis, err := an.Analyze(ctx, doc.ID())
	s.Stop()
	if err != nil {
		return err
	}
	printSuccess(fmt.Sprintf("%s: %s", path, analysis.Summary))

	if len(analysis.Suggestions) == 0 {
		printSuccess("No issues found")
		return nil
	}

	if fixDryRun {
		text, err := doc.Text(ctx)
		if err != nil {
			return err
		}
		fixed, rep := applicator.Apply(text, selectLine(analysis.Suggestions, fixLine))
		if err := formatter.DisplayReport(os.Stdout, path, rep, format); err != nil {
			return err
		}
		if format == "human" && rep.Changed() {
			fmt.Println()
			fmt.Println(fixed)
		}
		return nil
	}

	var rep applicator.Report
	if fixLine > 0 {
		rep, err = applyLine(cmd, an, doc.ID(), analysis, fixLine)
	} else {
		rep, err = an.ApplyAll(ctx, doc.ID(), fixForce)
	}
	if errors.Is(err, analyzer.ErrStaleAnalysis) {
		return fmt.Errorf("%w (rerun, or pass --force)", err)
	}
	if err != nil {
		return err
	}
	if len(rep.Skipped) > 0 {
		printWarning(fmt.Sprintf("%d suggestions could not be applied", len(rep.Skipped)))
	}
	return formatter.DisplayReport(os.Stdout, path, rep, format)
}

// applyLine sends the first fix for line as a single-item batch, the same
// path an editor's per-suggestion "apply" action takes.
func applyLine(cmd *cobra.Command, an *analyzer.Analyzer, id string, analysis model.Analysis, line int) (applicator.Report, error) {
	candidates := selectLine(analysis.Suggestions, line)
	for _, s := range candidates {
		if s.FixCode != "" {
			return an.Apply(cmd.Context(), id, s.Line, s.FixCode)
		}
	}
	return applicator.Report{Flagged: candidates}, nil
}

func selectLine(suggestions []model.Suggestion, line int) []model.Suggestion {
	if line <= 0 {
		return suggestions
	}
	var out []model.Suggestion
	for _, s := range suggestions {
		if s.Line == line {
			out = append(out, s)
		}
	}
	return out
}
