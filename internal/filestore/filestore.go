// Package filestore is the engine's file access layer: read, write, list,
// test and delete files by path. The OS implementation works on disk; the
// Memory implementation backs tests and dry runs.
package filestore

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Store reads and writes source files by path.
type Store interface {
	ReadText(path string) (string, error)
	WriteText(path, text string) error
	ListFiles(root string, extensions []string) ([]string, error)
	Exists(path string) bool
	DeleteTree(path string) error
}

// OS is a Store backed by the local file system.
type OS struct {
	// Skip lists directory names that ListFiles never descends into.
	Skip []string
}

// NewOS creates an OS store that prunes the given directory names.
func NewOS(skip ...string) *OS {
	return &OS{Skip: skip}
}

// ReadText reads a whole file.
func (s *OS) ReadText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// WriteText writes text to a temp file and renames it into place.
func (s *OS) WriteText(path, text string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp := fmt.Sprintf("%s.tmp.%d", path, os.Getpid())
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(text); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// ListFiles returns every regular file under root whose extension is in
// extensions, skipping pruned directories. An empty extension list matches
// every file.
func (s *OS) ListFiles(root string, extensions []string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != root && s.skipped(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && HasExtension(p, extensions) {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

func (s *OS) skipped(name string) bool {
	for _, skip := range s.Skip {
		if name == skip {
			return true
		}
	}
	return false
}

// Exists reports whether path exists.
func (s *OS) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// DeleteTree removes path and everything below it.
func (s *OS) DeleteTree(path string) error {
	return os.RemoveAll(path)
}

// HasExtension reports whether path ends in one of extensions.
func HasExtension(path string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	ext := filepath.Ext(path)
	for _, e := range extensions {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}

// Memory is an in-memory Store. Paths are cleaned slash paths.
type Memory struct {
	mu    sync.RWMutex
	files map[string]string

	// FailRead and FailWrite inject errors for the given paths.
	FailRead  map[string]error
	FailWrite map[string]error
}

// NewMemory creates a Memory store holding the given files.
func NewMemory(files map[string]string) *Memory {
	m := &Memory{files: make(map[string]string)}
	for p, text := range files {
		m.files[clean(p)] = text
	}
	return m
}

func clean(p string) string {
	return filepath.ToSlash(filepath.Clean(p))
}

// ReadText returns the stored text for path.
func (m *Memory) ReadText(path string) (string, error) {
	path = clean(path)
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.FailRead[path]; err != nil {
		return "", err
	}
	text, ok := m.files[path]
	if !ok {
		return "", &fs.PathError{Op: "read", Path: path, Err: fs.ErrNotExist}
	}
	return text, nil
}

// WriteText stores text at path.
func (m *Memory) WriteText(path, text string) error {
	path = clean(path)
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.FailWrite[path]; err != nil {
		return err
	}
	m.files[path] = text
	return nil
}

// ListFiles returns stored paths under root with a matching extension.
func (m *Memory) ListFiles(root string, extensions []string) ([]string, error) {
	root = clean(root)
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	for p := range m.files {
		if under(p, root) && HasExtension(p, extensions) {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Exists reports whether path is a stored file or a directory prefix of one.
func (m *Memory) Exists(path string) bool {
	path = clean(path)
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.files[path]; ok {
		return true
	}
	for p := range m.files {
		if under(p, path) {
			return true
		}
	}
	return false
}

// DeleteTree removes path and every stored file below it.
func (m *Memory) DeleteTree(path string) error {
	path = clean(path)
	m.mu.Lock()
	defer m.mu.Unlock()
	for p := range m.files {
		if p == path || under(p, path) {
			delete(m.files, p)
		}
	}
	return nil
}

// Files returns a copy of every stored file.
func (m *Memory) Files() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.files))
	for p, text := range m.files {
		out[p] = text
	}
	return out
}

func under(p, root string) bool {
	if root == "." || root == "" {
		return true
	}
	return strings.HasPrefix(p, strings.TrimSuffix(root, "/")+"/")
}
