// Package tree projects an Analysis into the tabbed view model shown by a
// presentation surface. Build is pure; rendering lives with each surface.
package tree

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/helmcode/autofixer/pkg/model"
)

// Tab selects the grouping of a Model.
type Tab string

const (
	TabSummary    Tab = "summary"
	TabByCategory Tab = "by-category"
	TabByLine     Tab = "by-line"
)

// Tabs lists the tabs in display order.
var Tabs = []Tab{TabSummary, TabByCategory, TabByLine}

// ParseTab accepts a tab name, case-insensitively, with "_" or "-".
func ParseTab(s string) (Tab, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-")
	switch Tab(norm) {
	case TabSummary, TabByCategory, TabByLine:
		return Tab(norm), nil
	case "category":
		return TabByCategory, nil
	case "line":
		return TabByLine, nil
	}
	return "", fmt.Errorf("unknown tab %q (expected summary, by-category or by-line)", s)
}

// NodeKind tags a Node variant.
type NodeKind string

const (
	KindHeader          NodeKind = "header"
	KindSeparator       NodeKind = "separator"
	KindFileEntry       NodeKind = "file"
	KindSummaryEntry    NodeKind = "summary"
	KindCategoryHeader  NodeKind = "category"
	KindSuggestionEntry NodeKind = "suggestion"
	KindLineEntry       NodeKind = "line"
)

// Node is one row of the tree. Which fields are meaningful depends on Kind:
// Count for SummaryEntry/CategoryHeader/LineEntry, Line for LineEntry and
// SuggestionEntry, Suggestion for SuggestionEntry only.
type Node struct {
	Kind       NodeKind          `json:"kind" yaml:"kind"`
	Label      string            `json:"label,omitempty" yaml:"label,omitempty"`
	Count      int               `json:"count,omitempty" yaml:"count,omitempty"`
	Line       int               `json:"line,omitempty" yaml:"line,omitempty"`
	Category   model.Category    `json:"category,omitempty" yaml:"category,omitempty"`
	Suggestion *model.Suggestion `json:"suggestion,omitempty" yaml:"suggestion,omitempty"`
	Children   []Node            `json:"children,omitempty" yaml:"children,omitempty"`
}

// Model is what a surface renders for one document and tab.
type Model struct {
	DocumentID string         `json:"document_id" yaml:"document_id"`
	Tab        Tab            `json:"tab" yaml:"tab"`
	Empty      bool           `json:"empty" yaml:"empty"`
	Summary    *model.Summary `json:"summary,omitempty" yaml:"summary,omitempty"`
	Nodes      []Node         `json:"nodes" yaml:"nodes"`
}

const placeholder = "No analysis yet. Open, edit or save the file to analyze it."

// Build projects a into the given tab. A nil analysis yields a placeholder
// model for documentID.
func Build(documentID string, a *model.Analysis, tab Tab) Model {
	if tab == "" {
		tab = TabSummary
	}
	m := Model{DocumentID: documentID, Tab: tab}
	if a == nil {
		m.Empty = true
		m.Nodes = []Node{
			{Kind: KindHeader, Label: "AutoFixer"},
			{Kind: KindSeparator},
			{Kind: KindSummaryEntry, Label: placeholder},
		}
		return m
	}

	sum := a.Summary
	m.Summary = &sum
	m.Nodes = []Node{
		{Kind: KindHeader, Label: "AutoFixer"},
		{Kind: KindFileEntry, Label: filepath.Base(documentID), Count: len(a.Suggestions)},
		{Kind: KindSeparator},
	}

	if len(a.Suggestions) == 0 {
		m.Nodes = append(m.Nodes, Node{Kind: KindSummaryEntry, Label: "No issues found"})
		return m
	}

	switch tab {
	case TabByCategory:
		m.Nodes = append(m.Nodes, byCategory(a.Suggestions)...)
	case TabByLine:
		m.Nodes = append(m.Nodes, byLine(a.Suggestions)...)
	default:
		m.Nodes = append(m.Nodes, summary(a)...)
	}
	return m
}

func summary(a *model.Analysis) []Node {
	nodes := []Node{{Kind: KindSummaryEntry, Label: "Total", Count: a.Summary.Total}}
	for _, k := range model.Kinds {
		nodes = append(nodes, Node{Kind: KindSummaryEntry, Label: kindLabel(k), Count: a.Summary.ByKind[k]})
	}
	nodes = append(nodes, Node{Kind: KindSeparator})
	for _, c := range categoryOrder(a.Suggestions) {
		nodes = append(nodes, Node{Kind: KindCategoryHeader, Label: string(c), Category: c, Count: a.Summary.ByCategory[c]})
	}
	return nodes
}

func byCategory(suggestions []model.Suggestion) []Node {
	groups := make(map[model.Category][]Node)
	for i := range suggestions {
		s := suggestions[i]
		groups[s.Category] = append(groups[s.Category], suggestionNode(s))
	}
	var nodes []Node
	for _, c := range categoryOrder(suggestions) {
		nodes = append(nodes, Node{
			Kind:     KindCategoryHeader,
			Label:    string(c),
			Category: c,
			Count:    len(groups[c]),
			Children: groups[c],
		})
	}
	return nodes
}

func byLine(suggestions []model.Suggestion) []Node {
	groups := make(map[int][]Node)
	var lines []int
	for _, s := range suggestions {
		if _, seen := groups[s.Line]; !seen {
			lines = append(lines, s.Line)
		}
		groups[s.Line] = append(groups[s.Line], suggestionNode(s))
	}
	sort.Ints(lines)

	nodes := make([]Node, 0, len(lines))
	for _, l := range lines {
		nodes = append(nodes, Node{
			Kind:     KindLineEntry,
			Label:    fmt.Sprintf("Line %d", l),
			Line:     l,
			Count:    len(groups[l]),
			Children: groups[l],
		})
	}
	return nodes
}

func suggestionNode(s model.Suggestion) Node {
	return Node{
		Kind:       KindSuggestionEntry,
		Label:      s.Description,
		Line:       s.Line,
		Category:   s.Category,
		Suggestion: &s,
	}
}

// categoryOrder lists categories in the order they first appear.
func categoryOrder(suggestions []model.Suggestion) []model.Category {
	seen := make(map[model.Category]bool)
	var out []model.Category
	for _, s := range suggestions {
		if !seen[s.Category] {
			seen[s.Category] = true
			out = append(out, s.Category)
		}
	}
	return out
}

func kindLabel(k model.Kind) string {
	switch k {
	case model.KindError:
		return "Errors"
	case model.KindWarning:
		return "Warnings"
	}
	return "Info"
}
