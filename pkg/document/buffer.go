package document

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// ErrLineOutOfRange is returned when a 1-based line number does not address
// a line of the current text.
var ErrLineOutOfRange = errors.New("line out of range")

// Editor is the line-addressable view of a live document.
type Editor interface {
	LineCount(ctx context.Context) (int, error)
	LineText(ctx context.Context, line int) (string, error)
	ReplaceLine(ctx context.Context, line int, text string) error
}

// Buffer is an in-memory line buffer. Every line keeps its own terminator,
// so String reproduces untouched lines byte for byte even in mixed-ending
// text.
type Buffer struct {
	lines []line
	eol   string
}

type line struct {
	text string
	eol  string
}

// NewBuffer splits text into lines. The last line has an empty terminator
// unless text ends with a newline.
func NewBuffer(text string) *Buffer {
	b := &Buffer{eol: "\n"}
	for text != "" {
		i := strings.IndexByte(text, '\n')
		if i < 0 {
			b.lines = append(b.lines, line{text: text})
			break
		}
		l := line{text: text[:i], eol: "\n"}
		if strings.HasSuffix(l.text, "\r") {
			l.text, l.eol = l.text[:len(l.text)-1], "\r\n"
		}
		if len(b.lines) == 0 {
			b.eol = l.eol
		}
		b.lines = append(b.lines, l)
		text = text[i+1:]
	}
	return b
}

func (b *Buffer) LineCount(context.Context) (int, error) {
	return len(b.lines), nil
}

func (b *Buffer) LineText(_ context.Context, n int) (string, error) {
	if n < 1 || n > len(b.lines) {
		return "", fmt.Errorf("line %d of %d: %w", n, len(b.lines), ErrLineOutOfRange)
	}
	return b.lines[n-1].text, nil
}

// ReplaceLine swaps the content of one line for text and keeps the line's
// terminator. Newlines in text become additional lines ending the same way
// as the replaced line, or like the first line of the buffer when the
// replaced line is the unterminated last one.
func (b *Buffer) ReplaceLine(_ context.Context, n int, text string) error {
	if n < 1 || n > len(b.lines) {
		return fmt.Errorf("line %d of %d: %w", n, len(b.lines), ErrLineOutOfRange)
	}
	old := b.lines[n-1]
	inner := old.eol
	if inner == "" {
		inner = b.eol
	}

	parts := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	repl := make([]line, len(parts))
	for i, p := range parts {
		repl[i] = line{text: p, eol: inner}
	}
	repl[len(repl)-1].eol = old.eol

	out := make([]line, 0, len(b.lines)+len(repl)-1)
	out = append(out, b.lines[:n-1]...)
	out = append(out, repl...)
	out = append(out, b.lines[n:]...)
	b.lines = out
	return nil
}

// String joins the lines back with their own terminators.
func (b *Buffer) String() string {
	var sb strings.Builder
	for _, l := range b.lines {
		sb.WriteString(l.text)
		sb.WriteString(l.eol)
	}
	return sb.String()
}

// Hash returns a stable content hash used to tell whether a document still
// holds the text an analysis was computed from.
func Hash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
