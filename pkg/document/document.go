package document

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Document is a logical document the analyzer can read and edit.
type Document interface {
	Editor
	// ID is stable across edits of the same document.
	ID() string
	Text(ctx context.Context) (string, error)
}

// Saver is implemented by documents that persist edits explicitly.
type Saver interface {
	Save(ctx context.Context) error
}

// Memory is a Document held only in memory.
type Memory struct {
	mu  sync.Mutex
	id  string
	buf *Buffer
}

func NewMemory(id, text string) *Memory {
	return &Memory{id: id, buf: NewBuffer(text)}
}

func (m *Memory) ID() string { return m.id }

func (m *Memory) Text(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.buf.String(), nil
}

// SetText replaces the whole content, as an editor would on external change.
func (m *Memory) SetText(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buf = NewBuffer(text)
}

func (m *Memory) LineCount(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.buf.LineCount(ctx)
}

func (m *Memory) LineText(ctx context.Context, line int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.buf.LineText(ctx, line)
}

func (m *Memory) ReplaceLine(ctx context.Context, line int, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.buf.ReplaceLine(ctx, line, text)
}

// File is a Document backed by a file on disk. Edits stay in memory until
// Save; Reload discards them.
type File struct {
	Memory
	path string
	perm os.FileMode
}

// OpenFile reads path. The absolute path is the document ID.
func OpenFile(path string) (*File, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return &File{
		Memory: Memory{id: abs, buf: NewBuffer(string(data))},
		path:   abs,
		perm:   info.Mode().Perm(),
	}, nil
}

func (f *File) Path() string { return f.path }

// Reload replaces the buffer with the current file content.
func (f *File) Reload(context.Context) error {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return fmt.Errorf("read %s: %w", f.path, err)
	}
	f.SetText(string(data))
	return nil
}

// Save writes the buffer back to disk.
func (f *File) Save(ctx context.Context) error {
	text, err := f.Text(ctx)
	if err != nil {
		return err
	}
	if err := os.WriteFile(f.path, []byte(text), f.perm); err != nil {
		return fmt.Errorf("write %s: %w", f.path, err)
	}
	return nil
}
