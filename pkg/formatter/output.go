package formatter

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/helmcode/autofixer/pkg/applicator"
	"github.com/helmcode/autofixer/pkg/model"
	"github.com/helmcode/autofixer/pkg/tree"
)

// DisplayTree renders a tree model in the requested format
func DisplayTree(w io.Writer, m tree.Model, format string) error {
	switch format {
	case "json":
		return displayJSON(w, m)
	case "yaml":
		return displayYAML(w, m)
	case "human":
		fallthrough
	default:
		displayTreeHuman(w, m)
	}
	return nil
}

// DisplayReport renders the outcome of applying fixes to one file
func DisplayReport(w io.Writer, name string, rep applicator.Report, format string) error {
	switch format {
	case "json":
		return displayJSON(w, rep)
	case "yaml":
		return displayYAML(w, rep)
	case "human":
		fallthrough
	default:
		displayReportHuman(w, name, rep)
	}
	return nil
}

func displayJSON(w io.Writer, v any) error {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(w, string(output))
	return nil
}

func displayYAML(w io.Writer, v any) error {
	output, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, string(output))
	return nil
}

func displayTreeHuman(w io.Writer, m tree.Model) {
	for _, n := range m.Nodes {
		renderNode(w, n, "")
	}
	fmt.Fprintln(w)
	if m.Summary != nil && m.Summary.Total > 0 {
		fmt.Fprintf(w, "💡 %s\n", color.HiBlackString("Run with --tab by-category or --tab by-line to regroup, -o json for machine-readable output"))
	}
}

// renderNode is the single switch over node variants for the terminal.
func renderNode(w io.Writer, n tree.Node, indent string) {
	cyan := color.New(color.FgCyan, color.Bold)
	white := color.New(color.FgWhite, color.Bold)

	switch n.Kind {
	case tree.KindHeader:
		fmt.Fprintln(w)
		cyan.Fprintf(w, "%s🔧 %s\n", indent, n.Label)
	case tree.KindSeparator:
		fmt.Fprintf(w, "%s%s\n", indent, strings.Repeat("─", 60))
	case tree.KindFileEntry:
		fmt.Fprintf(w, "%s📄 %s (%d %s)\n", indent, white.Sprint(n.Label), n.Count, pluralize(n.Count, "suggestion", "suggestions"))
	case tree.KindSummaryEntry:
		if n.Count == 0 && n.Label != "Total" && !isKindLabel(n.Label) {
			fmt.Fprintf(w, "%s%s\n", indent, n.Label)
			return
		}
		fmt.Fprintf(w, "%s%-10s %d\n", indent, n.Label+":", n.Count)
	case tree.KindCategoryHeader:
		yellow := color.New(color.FgYellow, color.Bold)
		yellow.Fprintf(w, "%s%s %s (%d)\n", indent, categoryIcon(n.Category), n.Label, n.Count)
	case tree.KindLineEntry:
		white.Fprintf(w, "%s%s\n", indent, n.Label)
	case tree.KindSuggestionEntry:
		renderSuggestion(w, n.Suggestion, indent)
		return
	}
	for _, c := range n.Children {
		renderNode(w, c, indent+"   ")
	}
}

func renderSuggestion(w io.Writer, s *model.Suggestion, indent string) {
	if s == nil {
		return
	}
	kindColor := getKindColor(s.Kind)
	fmt.Fprintf(w, "%s%s %s %s\n", indent, getKindIcon(s.Kind), kindColor.Sprintf("L%d", s.Line), s.Description)
	if s.FixCode != "" {
		fmt.Fprintf(w, "%s   Fix: %s\n", indent, color.GreenString(s.FixCode))
	}
}

func displayReportHuman(w io.Writer, name string, rep applicator.Report) {
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)

	fmt.Fprintln(w)
	for _, s := range rep.Applied {
		green.Fprintf(w, "✓ %s:%d %s\n", name, s.Line, s.Description)
	}
	for _, s := range rep.Flagged {
		fmt.Fprintf(w, "%s %s:%d %s (no fix proposed)\n", getKindIcon(s.Kind), name, s.Line, s.Description)
	}
	for _, sk := range rep.Skipped {
		red.Fprintf(w, "✗ %s:%d skipped (%s)\n", name, sk.Suggestion.Line, sk.Reason)
	}
	fmt.Fprintf(w, "\n%d applied, %d flagged, %d skipped\n", len(rep.Applied), len(rep.Flagged), len(rep.Skipped))
}

func isKindLabel(label string) bool {
	switch label {
	case "Errors", "Warnings", "Info":
		return true
	}
	return false
}

func getKindColor(kind model.Kind) *color.Color {
	switch kind {
	case model.KindError:
		return color.New(color.FgRed, color.Bold)
	case model.KindWarning:
		return color.New(color.FgYellow)
	case model.KindInfo:
		return color.New(color.FgBlue)
	default:
		return color.New(color.FgWhite)
	}
}

func getKindIcon(kind model.Kind) string {
	switch kind {
	case model.KindError:
		return "🔴"
	case model.KindWarning:
		return "🟡"
	case model.KindInfo:
		return "🔵"
	default:
		return "⚪"
	}
}

func categoryIcon(c model.Category) string {
	switch c {
	case model.CategorySecurity:
		return "🔒"
	case model.CategoryPerformance:
		return "⚡"
	case model.CategoryBug:
		return "🐛"
	case model.CategoryStyle:
		return "🎨"
	case model.CategoryBestPractice:
		return "📘"
	default:
		return "•"
	}
}

func pluralize(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
