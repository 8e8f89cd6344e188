package prompts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildFixPromptEmbedsText(t *testing.T) {
	text := "package main\n\nfunc main() {}\n"
	prompt, err := BuildFixPrompt("main.go", text)
	require.NoError(t, err)

	assert.Contains(t, prompt, "File: main.go")
	assert.Contains(t, prompt, "LINE_NUMBER|KIND|CATEGORY|DESCRIPTION|FIXED_CODE")
	assert.Contains(t, prompt, "best-practice")
	assert.Contains(t, prompt, text)
}

func TestBuildFixPromptRejectsEmpty(t *testing.T) {
	_, err := BuildFixPrompt("empty.go", " \n\t")
	assert.Error(t, err)
}

func TestBuildDocsPrompt(t *testing.T) {
	prompt, err := BuildDocsPrompt("util.js", "function add(a, b) { return a + b }\n")
	require.NoError(t, err)
	assert.Contains(t, prompt, "File: util.js")
	assert.Contains(t, prompt, "function add(a, b)")

	_, err = BuildDocsPrompt("util.js", "\n")
	assert.Error(t, err)
}

func TestBuildOverviewPrompt(t *testing.T) {
	prompt, err := BuildOverviewPrompt("/src/app", []SourceFile{
		{Path: "main.go", Text: "package main"},
		{Path: "pkg/db/db.go", Text: "package db"},
	})
	require.NoError(t, err)
	assert.Contains(t, prompt, "Codebase root: /src/app")
	assert.Contains(t, prompt, "Files: 2")
	assert.Contains(t, prompt, "\nFile: main.go\npackage main\n")
	assert.Contains(t, prompt, "\nFile: pkg/db/db.go\npackage db\n")
	assert.Less(t, strings.Index(prompt, "main.go"), strings.Index(prompt, "db.go"))

	_, err = BuildOverviewPrompt("/src/app", nil)
	assert.Error(t, err)
}
