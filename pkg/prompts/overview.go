package prompts

import (
	"errors"
	"fmt"
	"strings"
)

// SourceFile is one file of a codebase, named by its path relative to the
// codebase root.
type SourceFile struct {
	Path string
	Text string
}

// BuildOverviewPrompt asks for a high-level overview of a whole codebase.
// Files are embedded in order, each under a "File:" line carrying its path.
func BuildOverviewPrompt(root string, files []SourceFile) (string, error) {
	if len(files) == 0 {
		return "", errors.New("no source files to analyze")
	}

	var sb strings.Builder
	for _, f := range files {
		fmt.Fprintf(&sb, "\nFile: %s\n%s\n", f.Path, f.Text)
	}

	return fmt.Sprintf(`You are a software architect getting to know an unfamiliar codebase.

Analyze the codebase below and provide a high-level overview in Markdown:
- the purpose of the project
- the main components and how they depend on each other
- entry points and the flow of a typical request or command
- notable risks, technical debt and places that deserve a closer look

Codebase root: %s
Files: %d
%s`, root, len(files), sb.String()), nil
}
