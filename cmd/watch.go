package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/helmcode/autofixer/pkg/analyzer"
	"github.com/helmcode/autofixer/pkg/document"
	"github.com/helmcode/autofixer/pkg/formatter"
	"github.com/helmcode/autofixer/pkg/scheduler"
)

var watchInterval time.Duration

func NewWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch FILE...",
		Short: "Re-analyze files whenever they change",
		Long: `Keep analyzing files while you edit them. Bursts of saves are debounced
into a single request, and results for outdated content are dropped.

Examples:
  # Watch two files, grouped by category
  autofixer watch src/app.js src/util.js --tab by-category

  # Poll faster and wait less before analyzing
  AUTOFIXER_DEBOUNCE=300ms autofixer watch main.go --interval 200ms`,
		Args: cobra.MinimumNArgs(1),
		RunE: runWatch,
	}

	cmd.Flags().StringVar(&analyzeTab, "tab", "", "View to show (summary, by-category, by-line)")
	cmd.Flags().DurationVar(&watchInterval, "interval", 500*time.Millisecond, "How often to check files for changes")

	return cmd
}

// watched is one file and the last state seen on disk.
type watched struct {
	doc     *document.File
	modTime time.Time
	size    int64
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	tab, err := resolveTab(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		printMu sync.Mutex
		an      *analyzer.Analyzer
		ready   = make(chan struct{})
	)
	onOutcome := func(o scheduler.Outcome) {
		<-ready
		printMu.Lock()
		defer printMu.Unlock()
		switch o.Status {
		case scheduler.Stored:
			printSuccess(fmt.Sprintf("Analyzed %s (%s)", o.Key, o.Reason))
			_ = formatter.DisplayTree(os.Stdout, an.View(o.Key, tab), cfg.Output)
		case scheduler.Failed:
			printError(o.Err.Error())
		}
	}

	an, llmClient, err := newAnalyzer(ctx, cfg, onOutcome)
	if err != nil {
		return err
	}
	close(ready)
	defer an.Shutdown()

	printHeader("AutoFixer Watch", args, llmClient, cfg.Output)

	files := make([]*watched, 0, len(args))
	for _, path := range args {
		doc, err := document.OpenFile(path)
		if err != nil {
			return err
		}
		w := &watched{doc: doc}
		w.refresh()
		files = append(files, w)
		an.Open(doc)
	}
	printSuccess(fmt.Sprintf("Watching %d files, press Ctrl+C to stop", len(files)))

	return poll(ctx, an, files, watchInterval)
}

func poll(ctx context.Context, an *analyzer.Analyzer, files []*watched, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			for _, w := range files {
				an.Close(w.doc.ID())
			}
			return nil
		case <-ticker.C:
			for _, w := range files {
				if !w.refresh() {
					continue
				}
				if err := w.doc.Reload(ctx); err != nil {
					printError(err.Error())
					continue
				}
				if _, err := an.Notify(w.doc.ID(), scheduler.ReasonSave); err != nil {
					printError(err.Error())
				}
			}
		}
	}
}

// refresh records the current file state and reports whether it changed.
func (w *watched) refresh() bool {
	info, err := os.Stat(w.doc.Path())
	if err != nil {
		return false
	}
	changed := !info.ModTime().Equal(w.modTime) || info.Size() != w.size
	w.modTime = info.ModTime()
	w.size = info.Size()
	return changed
}
