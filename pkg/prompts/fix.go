package prompts

import (
	"fmt"
	"strings"

	"github.com/helmcode/autofixer/pkg/model"
)

// BuildFixPrompt embeds the verbatim document text in the fixed instruction
// template. The reply format is what parser.Parse reads.
func BuildFixPrompt(name, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("document %q is empty", name)
	}

	categories := make([]string, 0, len(model.Categories))
	for _, c := range model.Categories {
		categories = append(categories, string(c))
	}

	return fmt.Sprintf(`You are a senior code reviewer. Find bugs, security problems, performance issues and style problems in the file below.

File: %s

Report every finding on its own line, using exactly this format and nothing else:
LINE_NUMBER|KIND|CATEGORY|DESCRIPTION|FIXED_CODE

Where:
- LINE_NUMBER is the 1-based line the finding refers to
- KIND is one of: error, warning, info
- CATEGORY is one of: %s
- DESCRIPTION is a short sentence without the | character
- FIXED_CODE is the complete replacement text for that single line, or empty if you only want to flag it

Example:
10|error|bug|Possible nil dereference|if value != nil && value.Ready() {

Do not wrap the answer in markdown. If there is nothing to report, answer with an empty message.

Code to analyze:
%s`, name, strings.Join(categories, ", "), text), nil
}
