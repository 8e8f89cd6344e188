package formatter

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/helmcode/autofixer/pkg/applicator"
	"github.com/helmcode/autofixer/pkg/model"
	"github.com/helmcode/autofixer/pkg/tree"
)

func init() {
	color.NoColor = true
}

func sample() *model.Analysis {
	s := []model.Suggestion{
		{Line: 4, Kind: model.KindError, Category: model.CategoryBug, Description: "Null check", FixCode: "if (x) {"},
		{Line: 2, Kind: model.KindInfo, Category: model.CategoryStyle, Description: "Naming"},
	}
	return &model.Analysis{DocumentID: "/src/app.js", Suggestions: s, Summary: model.Summarize(s)}
}

func TestDisplayTreeHumanByLine(t *testing.T) {
	a := sample()
	var buf bytes.Buffer
	require.NoError(t, DisplayTree(&buf, tree.Build(a.DocumentID, a, tree.TabByLine), "human"))

	out := buf.String()
	assert.Contains(t, out, "app.js (2 suggestions)")
	assert.Contains(t, out, "Line 2")
	assert.Contains(t, out, "L4 Null check")
	assert.Contains(t, out, "Fix: if (x) {")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("Line 2")), bytes.Index(buf.Bytes(), []byte("Line 4")))
}

func TestDisplayTreeHumanSummary(t *testing.T) {
	a := sample()
	var buf bytes.Buffer
	require.NoError(t, DisplayTree(&buf, tree.Build(a.DocumentID, a, tree.TabSummary), "human"))

	out := buf.String()
	assert.Contains(t, out, "Total:     2")
	assert.Contains(t, out, "Warnings:  0")
	assert.Contains(t, out, "bug (1)")
}

func TestDisplayTreePlaceholder(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, DisplayTree(&buf, tree.Build("/src/app.js", nil, tree.TabSummary), "human"))
	assert.Contains(t, buf.String(), "No analysis yet")
}

func TestDisplayTreeJSONAndYAML(t *testing.T) {
	a := sample()
	m := tree.Build(a.DocumentID, a, tree.TabByCategory)

	var buf bytes.Buffer
	require.NoError(t, DisplayTree(&buf, m, "json"))
	var decoded tree.Model
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, tree.TabByCategory, decoded.Tab)
	assert.Equal(t, 2, decoded.Summary.Total)

	buf.Reset()
	require.NoError(t, DisplayTree(&buf, m, "yaml"))
	var generic map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &generic))
	assert.Equal(t, "by-category", generic["tab"])
}

func TestDisplayReportHuman(t *testing.T) {
	rep := applicator.Report{
		Applied: []model.Suggestion{{Line: 3, Description: "fixed"}},
		Skipped: []applicator.Skipped{{Suggestion: model.Suggestion{Line: 40}, Reason: applicator.SkipOutOfRange}},
	}
	var buf bytes.Buffer
	require.NoError(t, DisplayReport(&buf, "app.js", rep, "human"))

	out := buf.String()
	assert.Contains(t, out, "✓ app.js:3 fixed")
	assert.Contains(t, out, "✗ app.js:40 skipped (out-of-range)")
	assert.Contains(t, out, "1 applied, 0 flagged, 1 skipped")
}
