package model

import (
	"fmt"
	"strings"
	"time"
)

// Kind is the severity class of a suggestion.
type Kind string

const (
	KindError   Kind = "error"
	KindWarning Kind = "warning"
	KindInfo    Kind = "info"
)

// Kinds lists the severity classes in display order.
var Kinds = []Kind{KindError, KindWarning, KindInfo}

// Category groups suggestions by the nature of the finding.
type Category string

const (
	CategoryPerformance  Category = "performance"
	CategorySecurity     Category = "security"
	CategoryStyle        Category = "style"
	CategoryBug          Category = "bug"
	CategoryBestPractice Category = "best-practice"
)

// Categories lists the built-in categories.
var Categories = []Category{
	CategoryPerformance,
	CategorySecurity,
	CategoryStyle,
	CategoryBug,
	CategoryBestPractice,
}

// Suggestion is one line-addressed finding. An empty FixCode means the
// finding is flagged without a proposed replacement.
type Suggestion struct {
	Line        int      `json:"line" yaml:"line"`
	Kind        Kind     `json:"kind" yaml:"kind"`
	Category    Category `json:"category" yaml:"category"`
	Description string   `json:"description" yaml:"description"`
	FixCode     string   `json:"fix_code" yaml:"fix_code"`
}

// Valid reports whether s may be stored.
func (s Suggestion) Valid() bool {
	return s.Line >= 1 && s.Kind != "" && s.Category != ""
}

// Summary is the aggregate of an Analysis' suggestions.
type Summary struct {
	Total      int              `json:"total" yaml:"total"`
	ByKind     map[Kind]int     `json:"by_kind" yaml:"by_kind"`
	ByCategory map[Category]int `json:"by_category" yaml:"by_category"`
}

// Summarize counts suggestions per kind and per category. Every known kind
// is present in ByKind, even with a zero count.
func Summarize(suggestions []Suggestion) Summary {
	sum := Summary{
		Total:      len(suggestions),
		ByKind:     make(map[Kind]int, len(Kinds)),
		ByCategory: make(map[Category]int),
	}
	for _, k := range Kinds {
		sum.ByKind[k] = 0
	}
	for _, s := range suggestions {
		sum.ByKind[s.Kind]++
		sum.ByCategory[s.Category]++
	}
	return sum
}

// String renders the per-kind counts, e.g. "2 errors, 1 warning, 0 info".
func (s Summary) String() string {
	parts := []string{
		plural(s.ByKind[KindError], "error", "errors"),
		plural(s.ByKind[KindWarning], "warning", "warnings"),
		fmt.Sprintf("%d info", s.ByKind[KindInfo]),
	}
	return strings.Join(parts, ", ")
}

func plural(n int, one, many string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, one)
	}
	return fmt.Sprintf("%d %s", n, many)
}

// Analysis is the latest known state for one document.
type Analysis struct {
	DocumentID  string       `json:"document_id" yaml:"document_id"`
	ContentHash string       `json:"content_hash" yaml:"content_hash"`
	Suggestions []Suggestion `json:"suggestions" yaml:"suggestions"`
	Summary     Summary      `json:"summary" yaml:"summary"`
	AnalyzedAt  time.Time    `json:"analyzed_at" yaml:"analyzed_at"`
}

// Clone returns a deep copy so callers can hold it without sharing
// backing arrays or maps with the owner.
func (a Analysis) Clone() Analysis {
	out := a
	out.Suggestions = append([]Suggestion(nil), a.Suggestions...)
	out.Summary.ByKind = make(map[Kind]int, len(a.Summary.ByKind))
	for k, v := range a.Summary.ByKind {
		out.Summary.ByKind[k] = v
	}
	out.Summary.ByCategory = make(map[Category]int, len(a.Summary.ByCategory))
	for k, v := range a.Summary.ByCategory {
		out.Summary.ByCategory[k] = v
	}
	return out
}
