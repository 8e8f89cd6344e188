package prompts

import (
	"fmt"
	"strings"
)

// BuildDocsPrompt asks for Markdown reference documentation of one file.
func BuildDocsPrompt(name, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("document %q is empty", name)
	}

	return fmt.Sprintf(`You are a senior engineer writing reference documentation.

Generate comprehensive documentation for the file below, including:
- a short description of what the file is for
- every function, type and exported value with its parameters and return values
- usage examples where they help

Answer in Markdown only, starting with a level 1 heading naming the file.

File: %s

%s`, name, text), nil
}
