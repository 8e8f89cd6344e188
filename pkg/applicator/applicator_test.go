package applicator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helmcode/autofixer/pkg/document"
	"github.com/helmcode/autofixer/pkg/model"
)

func tenLines() string {
	var sb strings.Builder
	for i := 1; i <= 10; i++ {
		fmt.Fprintf(&sb, "line %d\n", i)
	}
	return sb.String()
}

func fix(line int, code string) model.Suggestion {
	return model.Suggestion{Line: line, Kind: model.KindWarning, Category: model.CategoryStyle, Description: "d", FixCode: code}
}

// recorder wraps a Buffer and remembers which lines were replaced.
type recorder struct {
	*document.Buffer
	replaced []int
	failOn   int
}

func (r *recorder) ReplaceLine(ctx context.Context, line int, text string) error {
	if line == r.failOn {
		return errors.New("disk on fire")
	}
	r.replaced = append(r.replaced, line)
	return r.Buffer.ReplaceLine(ctx, line, text)
}

func TestApplyToOrdersDescending(t *testing.T) {
	rec := &recorder{Buffer: document.NewBuffer(tenLines())}

	rep, err := ApplyTo(context.Background(), rec, []model.Suggestion{fix(2, "two"), fix(7, "seven"), fix(4, "four")})
	require.NoError(t, err)

	assert.Equal(t, []int{7, 4, 2}, rec.replaced)
	require.Len(t, rep.Applied, 3)
	assert.Equal(t, 7, rep.Applied[0].Line)
	assert.Empty(t, rep.Skipped)
}

func TestApplyLineCountChangesDoNotShiftPendingFixes(t *testing.T) {
	text := "a\nb\nc\nd\n"
	out, rep := Apply(text, []model.Suggestion{
		fix(1, "a1\na2\na3"),
		fix(3, "C"),
		fix(4, "D"),
	})
	assert.Equal(t, "a1\na2\na3\nb\nC\nD\n", out)
	assert.Len(t, rep.Applied, 3)
}

func TestApplyIsOrderIndependent(t *testing.T) {
	batch := []model.Suggestion{
		fix(1, "first\nextra"),
		fix(3, "third"),
		fix(6, "sixth"),
		fix(10, "tenth\nmore\nlines"),
	}
	want, _ := Apply(tenLines(), batch)

	perms := [][]int{{3, 2, 1, 0}, {1, 3, 0, 2}, {2, 0, 3, 1}}
	for _, p := range perms {
		shuffled := make([]model.Suggestion, len(batch))
		for i, idx := range p {
			shuffled[i] = batch[idx]
		}
		got, _ := Apply(tenLines(), shuffled)
		assert.Equal(t, want, got)
	}
}

func TestApplySkipsOutOfRange(t *testing.T) {
	out, rep := Apply("a\nb\nc", []model.Suggestion{fix(2, "B"), fix(9, "nope"), fix(0, "zero"), fix(3, "C")})

	assert.Equal(t, "a\nB\nC", out)
	require.Len(t, rep.Skipped, 2)
	assert.Equal(t, 9, rep.Skipped[0].Suggestion.Line)
	assert.Equal(t, SkipOutOfRange, rep.Skipped[0].Reason)
	assert.Equal(t, 0, rep.Skipped[1].Suggestion.Line)
	assert.Len(t, rep.Applied, 2)
}

func TestApplyEmptyFixIsFlagOnly(t *testing.T) {
	out, rep := Apply("a\nb\n", []model.Suggestion{fix(1, "")})

	assert.Equal(t, "a\nb\n", out)
	assert.False(t, rep.Changed())
	require.Len(t, rep.Flagged, 1)
}

func TestApplyLeavesOtherLineEndingsAlone(t *testing.T) {
	out, _ := Apply("a\r\nb\nc\n", []model.Suggestion{fix(1, "x")})
	assert.Equal(t, "x\r\nb\nc\n", out)

	out, rep := Apply("a\r\nb\nc\n", nil)
	assert.Equal(t, "a\r\nb\nc\n", out)
	assert.False(t, rep.Changed())
}

func TestApplyDuplicateLines(t *testing.T) {
	out, rep := Apply("a\nb\n", []model.Suggestion{fix(2, "first"), fix(2, "second")})

	assert.Equal(t, "a\nfirst\n", out)
	require.Len(t, rep.Skipped, 1)
	assert.Equal(t, SkipDuplicate, rep.Skipped[0].Reason)
	assert.Equal(t, "second", rep.Skipped[0].Suggestion.FixCode)
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	batch := []model.Suggestion{fix(1, "x"), fix(2, "y")}
	Apply("a\nb", batch)
	assert.Equal(t, 1, batch[0].Line)
	assert.Equal(t, 2, batch[1].Line)
}

func TestApplyToAbortsOnEditorFailure(t *testing.T) {
	rec := &recorder{Buffer: document.NewBuffer(tenLines()), failOn: 4}

	rep, err := ApplyTo(context.Background(), rec, []model.Suggestion{fix(2, "two"), fix(7, "seven"), fix(4, "four")})
	require.Error(t, err)
	assert.Equal(t, []int{7}, rec.replaced)
	assert.Len(t, rep.Applied, 1)
}

func TestApplyToHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ApplyTo(ctx, document.NewBuffer("a"), []model.Suggestion{fix(1, "b")})
	assert.ErrorIs(t, err, context.Canceled)
}
