package applicator

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/helmcode/autofixer/pkg/document"
	"github.com/helmcode/autofixer/pkg/model"
)

// SkipReason explains why a suggestion in a batch was not applied.
type SkipReason string

const (
	// SkipOutOfRange is a stale apply target: the line no longer exists.
	SkipOutOfRange SkipReason = "out-of-range"
	// SkipDuplicate marks a later suggestion for a line already fixed in
	// the same batch.
	SkipDuplicate SkipReason = "duplicate"
)

// Skipped is a suggestion that was left out of a batch.
type Skipped struct {
	Suggestion model.Suggestion `json:"suggestion" yaml:"suggestion"`
	Reason     SkipReason       `json:"reason" yaml:"reason"`
}

// Report describes what a batch did. Applied is in application order,
// which is line-descending.
type Report struct {
	Applied []model.Suggestion `json:"applied" yaml:"applied"`
	Flagged []model.Suggestion `json:"flagged,omitempty" yaml:"flagged,omitempty"`
	Skipped []Skipped          `json:"skipped,omitempty" yaml:"skipped,omitempty"`
}

// Changed reports whether any line was rewritten.
func (r Report) Changed() bool { return len(r.Applied) > 0 }

// Apply applies suggestions to text and returns the new text.
func Apply(text string, suggestions []model.Suggestion) (string, Report) {
	buf := document.NewBuffer(text)
	// A Buffer only fails with ErrLineOutOfRange, which ApplyTo absorbs.
	rep, _ := ApplyTo(context.Background(), buf, suggestions)
	return buf.String(), rep
}

// ApplyTo applies suggestions to a live document.
//
// The batch is applied from the highest line down, so a fix that changes
// the number of lines only shifts lines that have already been handled.
// Suggestions with an empty FixCode are reported as flagged and leave the
// line alone. Lines outside the current document are skipped; the rest of
// the batch still applies. Only errors other than an out-of-range line
// abort the batch.
func ApplyTo(ctx context.Context, ed document.Editor, suggestions []model.Suggestion) (Report, error) {
	var rep Report

	ordered := append([]model.Suggestion(nil), suggestions...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Line > ordered[j].Line
	})

	count, err := ed.LineCount(ctx)
	if err != nil {
		return rep, fmt.Errorf("count lines: %w", err)
	}

	done := make(map[int]bool, len(ordered))
	for _, s := range ordered {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		if s.Line < 1 || s.Line > count {
			rep.Skipped = append(rep.Skipped, Skipped{Suggestion: s, Reason: SkipOutOfRange})
			continue
		}
		if s.FixCode == "" {
			rep.Flagged = append(rep.Flagged, s)
			continue
		}
		if done[s.Line] {
			rep.Skipped = append(rep.Skipped, Skipped{Suggestion: s, Reason: SkipDuplicate})
			continue
		}

		err := ed.ReplaceLine(ctx, s.Line, s.FixCode)
		if errors.Is(err, document.ErrLineOutOfRange) {
			rep.Skipped = append(rep.Skipped, Skipped{Suggestion: s, Reason: SkipOutOfRange})
			continue
		}
		if err != nil {
			return rep, fmt.Errorf("replace line %d: %w", s.Line, err)
		}
		done[s.Line] = true
		rep.Applied = append(rep.Applied, s)
	}
	return rep, nil
}
