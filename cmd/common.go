package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/helmcode/autofixer/pkg/analyzer"
	"github.com/helmcode/autofixer/pkg/config"
	"github.com/helmcode/autofixer/pkg/llm"
	"github.com/helmcode/autofixer/pkg/model"
	"github.com/helmcode/autofixer/pkg/parser"
	"github.com/helmcode/autofixer/pkg/scheduler"
)

var (
	configPath   string
	llmProvider  string
	llmModel     string
	outputFormat string
	verbose      bool
	timeout      time.Duration
)

// AddGlobalFlags registers the flags shared by every subcommand.
func AddGlobalFlags(root *cobra.Command) {
	flags := root.PersistentFlags()
	flags.StringVar(&configPath, "config", config.DefaultPath(), "Path to config file")
	flags.StringVar(&llmProvider, "provider", "", "LLM provider (gemini, claude, openai). Defaults to auto-detect from env")
	flags.StringVar(&llmModel, "model", "", "LLM model to use (overrides default)")
	flags.StringVarP(&outputFormat, "output", "o", "", "Output format (human, json, yaml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	flags.DurationVar(&timeout, "timeout", 0, "Timeout for one analysis call (e.g. 30s)")

	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if !verbose {
			log.SetOutput(io.Discard)
		}
	}
}

// loadConfig merges flags over the config file and environment.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}
	if llmProvider != "" {
		cfg.Provider = llmProvider
	}
	if llmModel != "" {
		cfg.Model = llmModel
	}
	if outputFormat != "" {
		cfg.Output = outputFormat
	}
	if timeout > 0 {
		cfg.Timeout = timeout
	}
	return cfg, cfg.Validate()
}

// newLLM builds the LLM client selected by cfg.
func newLLM(ctx context.Context, cfg config.Config) (llm.LLM, error) {
	s := newSpinner(" Initializing AI client...")
	s.Start()
	llmClient, err := llm.CreateFromEnv(ctx, cfg.Provider, cfg.Model)
	s.Stop()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM client: %w", err)
	}
	return llmClient, nil
}

// newAnalyzer builds the LLM client and the analyzer from cfg.
func newAnalyzer(ctx context.Context, cfg config.Config, onOutcome func(scheduler.Outcome)) (*analyzer.Analyzer, llm.LLM, error) {
	llmClient, err := newLLM(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	var p parser.Parser
	for _, c := range cfg.Categories {
		p.Categories = append(p.Categories, model.Category(c))
	}

	an, err := analyzer.New(llmClient, analyzer.Options{
		Debounce:  cfg.Debounce,
		Timeout:   cfg.Timeout,
		CacheSize: cfg.CacheSize,
		Parser:    p,
		OnOutcome: onOutcome,
	})
	if err != nil {
		return nil, nil, err
	}
	return an, llmClient, nil
}

func newSpinner(suffix string) *spinner.Spinner {
	s := spinner.New(spinner.CharSets[11], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = suffix
	return s
}

func printHeader(title string, files []string, l llm.LLM, format string) {
	if format == "json" || format == "yaml" {
		return
	}
	cyan := color.New(color.FgCyan, color.Bold)
	fmt.Println()
	cyan.Printf("🔧 %s\n", title)
	for _, f := range files {
		fmt.Printf("📄 File: %s\n", f)
	}
	if l != nil {
		fmt.Printf("🤖 Model: %s\n", l.GetModel())
	}
	fmt.Println()
}

func printSuccess(msg string) {
	green := color.New(color.FgGreen)
	green.Fprintf(os.Stderr, "✓ %s\n", msg)
}

func printError(msg string) {
	red := color.New(color.FgRed)
	red.Fprintf(os.Stderr, "✗ %s\n", msg)
}

func printWarning(msg string) {
	yellow := color.New(color.FgYellow)
	yellow.Fprintf(os.Stderr, "! %s\n", msg)
}
