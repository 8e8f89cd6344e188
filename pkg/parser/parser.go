package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/helmcode/autofixer/pkg/model"
)

// Delimiter separates fields of a suggestion line.
const Delimiter = "|"

var fenceRe = regexp.MustCompile("(?m)^\\s*```[a-zA-Z0-9_-]*\\s*$")

// Report is the outcome of parsing one reply.
type Report struct {
	Suggestions []model.Suggestion
	// Considered counts non-blank lines after fence removal.
	Considered int
	// Skipped counts considered lines that did not yield a suggestion.
	Skipped int
}

// Unusable reports whether the reply had content but none of it parsed,
// which is different from the service answering with nothing at all.
func (r Report) Unusable() bool {
	return len(r.Suggestions) == 0 && r.Considered > 0
}

// Parser turns service replies into suggestions. The zero value accepts the
// built-in categories only.
type Parser struct {
	// Categories extends the accepted category set.
	Categories []model.Category
}

var defaultParser Parser

// Parse is Parser{}.Parse.
func Parse(raw string) []model.Suggestion {
	return defaultParser.Parse(raw)
}

// ParseReport is Parser{}.ParseReport.
func ParseReport(raw string) Report {
	return defaultParser.ParseReport(raw)
}

// Parse extracts every well-formed suggestion line from raw, in input order.
// Malformed lines are dropped; it never fails.
func (p Parser) Parse(raw string) []model.Suggestion {
	return p.ParseReport(raw).Suggestions
}

// ParseReport is Parse plus line accounting.
func (p Parser) ParseReport(raw string) Report {
	var rep Report
	cleaned := stripFences(raw)
	for _, line := range strings.Split(cleaned, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		rep.Considered++
		s, ok := p.parseLine(line)
		if !ok {
			rep.Skipped++
			continue
		}
		rep.Suggestions = append(rep.Suggestions, s)
	}
	return rep
}

func (p Parser) parseLine(line string) (model.Suggestion, bool) {
	fields := strings.Split(strings.TrimRight(line, "\r"), Delimiter)
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	n, err := strconv.Atoi(fields[0])
	if err != nil || n <= 0 {
		return model.Suggestion{}, false
	}

	var (
		kind        = string(model.KindWarning)
		category    string
		description string
		fix         string
	)
	switch len(fields) {
	case 4:
		category, description, fix = fields[1], fields[2], fields[3]
	case 5:
		kind, category, description, fix = fields[1], fields[2], fields[3], fields[4]
	case 6:
		kind, category, description, fix = fields[1], fields[3], fields[4], fields[5]
		if category == "" {
			category = fields[2]
		}
	default:
		return model.Suggestion{}, false
	}

	k, ok := ParseKind(kind)
	if !ok {
		return model.Suggestion{}, false
	}
	c, ok := p.parseCategory(category)
	if !ok {
		return model.Suggestion{}, false
	}

	return model.Suggestion{
		Line:        n,
		Kind:        k,
		Category:    c,
		Description: description,
		FixCode:     fix,
	}, true
}

// ParseKind normalizes a severity name.
func ParseKind(s string) (model.Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error", "err":
		return model.KindError, true
	case "warning", "warn":
		return model.KindWarning, true
	case "info", "information", "note":
		return model.KindInfo, true
	}
	return "", false
}

func (p Parser) parseCategory(s string) (model.Category, bool) {
	norm := normalizeCategory(s)
	if norm == "" {
		return "", false
	}
	for _, c := range model.Categories {
		if string(c) == norm {
			return c, true
		}
	}
	for _, c := range p.Categories {
		if normalizeCategory(string(c)) == norm {
			return model.Category(norm), true
		}
	}
	return "", false
}

// normalizeCategory maps "Best Practice", "best_practice" and friends onto
// the hyphenated lower-case form.
func normalizeCategory(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("_", "-", " ", "-").Replace(s)
	if s == "bestpractice" {
		return string(model.CategoryBestPractice)
	}
	return s
}

// Format renders s in the five-field form accepted by Parse.
func Format(s model.Suggestion) string {
	return strings.Join([]string{
		strconv.Itoa(s.Line),
		string(s.Kind),
		string(s.Category),
		s.Description,
		s.FixCode,
	}, Delimiter)
}

// stripFences removes markdown code fence lines such as ```text so that a
// reply wrapped in a code block parses the same as a bare one.
func stripFences(text string) string {
	return fenceRe.ReplaceAllString(text, "")
}
