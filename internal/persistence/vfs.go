package persistence

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// VFS is the file system label dumps are written to. ReadFile must return
// an error matching fs.ErrNotExist for absent files. WriteFile must not
// retain data after it returns.
type VFS interface {
	ReadFile(name string) ([]byte, error)
	WriteFile(name string, data []byte) error
}

// MemFS keeps files in memory. It stands in for the browser's virtual file
// system and for tests.
type MemFS struct {
	mu    sync.RWMutex
	files map[string][]byte
}

// NewMemFS returns an empty MemFS.
func NewMemFS() *MemFS {
	return &MemFS{files: make(map[string][]byte)}
}

// ReadFile returns a copy of the named file.
func (m *MemFS) ReadFile(name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.files[name]
	if !ok {
		return nil, &fs.PathError{Op: "read", Path: name, Err: fs.ErrNotExist}
	}
	return append([]byte(nil), data...), nil
}

// WriteFile replaces the named file.
func (m *MemFS) WriteFile(name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[name] = append([]byte(nil), data...)
	return nil
}

// Names lists the stored file names in order.
func (m *MemFS) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.files))
	for name := range m.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DirFS maps VFS paths onto a directory of the host file system.
type DirFS struct {
	Root string
}

func (d DirFS) path(name string) string {
	return filepath.Join(d.Root, filepath.FromSlash(strings.TrimPrefix(name, "/")))
}

// ReadFile reads the named file below Root.
func (d DirFS) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(d.path(name))
}

// WriteFile writes the named file below Root, replacing it atomically.
func (d DirFS) WriteFile(name string, data []byte) error {
	p := d.path(name)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("create dump dir: %w", err)
	}
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, p)
}
