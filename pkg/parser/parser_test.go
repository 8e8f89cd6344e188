package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helmcode/autofixer/pkg/model"
)

func TestParseScenario(t *testing.T) {
	got := Parse("5|warning|style|Use const|const x = 1;\nnotanumber|...")

	require.Len(t, got, 1)
	assert.Equal(t, model.Suggestion{
		Line:        5,
		Kind:        model.KindWarning,
		Category:    model.CategoryStyle,
		Description: "Use const",
		FixCode:     "const x = 1;",
	}, got[0])
}

func TestParseFieldCounts(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []model.Suggestion
	}{
		{
			name: "legacy four fields default to warning",
			line: "3|bug|Off by one|for i := 0; i < n; i++ {",
			want: []model.Suggestion{{Line: 3, Kind: model.KindWarning, Category: model.CategoryBug, Description: "Off by one", FixCode: "for i := 0; i < n; i++ {"}},
		},
		{
			name: "six fields",
			line: "12|error|high|security|SQL injection|db.Query(q, id)",
			want: []model.Suggestion{{Line: 12, Kind: model.KindError, Category: model.CategorySecurity, Description: "SQL injection", FixCode: "db.Query(q, id)"}},
		},
		{
			name: "six fields fall back to alias category",
			line: "2|info|performance||Preallocate|s := make([]int, 0, n)",
			want: []model.Suggestion{{Line: 2, Kind: model.KindInfo, Category: model.CategoryPerformance, Description: "Preallocate", FixCode: "s := make([]int, 0, n)"}},
		},
		{
			name: "fields are trimmed",
			line: "  7 | Error |  Best Practice  | Check err |  if err != nil {  ",
			want: []model.Suggestion{{Line: 7, Kind: model.KindError, Category: model.CategoryBestPractice, Description: "Check err", FixCode: "if err != nil {"}},
		},
		{
			name: "empty fix is kept",
			line: "4|warning|style|Rename this|",
			want: []model.Suggestion{{Line: 4, Kind: model.KindWarning, Category: model.CategoryStyle, Description: "Rename this"}},
		},
		{name: "three fields", line: "1|bug|nope"},
		{name: "seven fields", line: "1|error|x|bug|d|a|b"},
		{name: "zero line", line: "0|warning|style|d|f"},
		{name: "negative line", line: "-2|warning|style|d|f"},
		{name: "non numeric line", line: "Line 5|warning|style|d|f"},
		{name: "unknown kind", line: "5|fatal|style|d|f"},
		{name: "unknown category", line: "5|warning|vibes|d|f"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.line))
		})
	}
}

func TestParseSkipsBadLinesWithoutDisturbingNeighbours(t *testing.T) {
	raw := "1|error|bug|first|a\n" +
		"garbage\n" +
		"x|error|bug|bad|b\n" +
		"\n" +
		"2|info|style|second|c\n"

	rep := ParseReport(raw)
	require.Len(t, rep.Suggestions, 2)
	assert.Equal(t, 1, rep.Suggestions[0].Line)
	assert.Equal(t, 2, rep.Suggestions[1].Line)
	assert.Equal(t, 4, rep.Considered)
	assert.Equal(t, 2, rep.Skipped)
	assert.False(t, rep.Unusable())
}

func TestParseKeepsDuplicatesAndOrder(t *testing.T) {
	raw := "9|error|bug|same|x\n3|error|bug|other|y\n9|error|bug|same|x"
	got := Parse(raw)
	require.Len(t, got, 3)
	assert.Equal(t, []int{9, 3, 9}, []int{got[0].Line, got[1].Line, got[2].Line})
}

func TestParseIsIdempotent(t *testing.T) {
	raw := "```\n1|error|bug|a|b\nnoise\n2|warning|style|c|d\r\n```"
	assert.Equal(t, Parse(raw), Parse(raw))
	assert.Len(t, Parse(raw), 2)
}

func TestParseReportUnusable(t *testing.T) {
	assert.True(t, ParseReport("I could not find any issues in this file.").Unusable())
	assert.False(t, ParseReport("").Unusable())
	assert.False(t, ParseReport("```\n```").Unusable())
}

func TestFormatRoundTrip(t *testing.T) {
	in := []model.Suggestion{
		{Line: 1, Kind: model.KindError, Category: model.CategoryBug, Description: "nil deref", FixCode: "if p == nil { return }"},
		{Line: 40, Kind: model.KindInfo, Category: model.CategoryBestPractice, Description: "flag only"},
	}
	for _, s := range in {
		got := Parse(Format(s))
		require.Len(t, got, 1)
		assert.Equal(t, s, got[0])
	}
}

func TestParserExtraCategories(t *testing.T) {
	p := Parser{Categories: []model.Category{"Accessibility"}}
	got := p.Parse("8|warning|accessibility|Missing alt|<img alt=\"\">")
	require.Len(t, got, 1)
	assert.Equal(t, model.Category("accessibility"), got[0].Category)

	assert.Empty(t, Parse("8|warning|accessibility|Missing alt|<img alt=\"\">"))
}
