package filesystem

import (
	"bytes"
	"io"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// memoryFileInfo implements fs.FileInfo for in-memory files
type memoryFileInfo struct {
	name    string
	size    int64
	mode    fs.FileMode
	modTime time.Time
}

func (f *memoryFileInfo) Name() string       { return f.name }
func (f *memoryFileInfo) Size() int64        { return f.size }
func (f *memoryFileInfo) Mode() fs.FileMode  { return f.mode }
func (f *memoryFileInfo) ModTime() time.Time { return f.modTime }
func (f *memoryFileInfo) IsDir() bool        { return f.mode.IsDir() }
func (f *memoryFileInfo) Sys() interface{}   { return nil }

type memoryEntry struct {
	content []byte
	info    *memoryFileInfo
}

// MemoryFileSystem implements FileSystem in memory for tests.
// Paths are normalized to forward slashes. Safe for concurrent use.
type MemoryFileSystem struct {
	mu      sync.RWMutex
	entries map[string]*memoryEntry

	// RemoveErr, when set, is returned by Remove for the matching path.
	RemoveErr map[string]error
}

// NewMemoryFileSystem creates an empty in-memory filesystem containing only "/".
func NewMemoryFileSystem() *MemoryFileSystem {
	mfs := &MemoryFileSystem{
		entries:   make(map[string]*memoryEntry),
		RemoveErr: make(map[string]error),
	}
	mfs.entries["/"] = newDirEntry("/")
	return mfs
}

func normalize(p string) string {
	p = path.Clean(filepath.ToSlash(p))
	if !path.IsAbs(p) {
		p = "/" + p
	}
	return p
}

func newDirEntry(p string) *memoryEntry {
	return &memoryEntry{info: &memoryFileInfo{name: path.Base(p), mode: 0755 | fs.ModeDir, modTime: time.Now()}}
}

// AddFile writes a file and creates its parent directories.
func (m *MemoryFileSystem) AddFile(p, content string) {
	p = normalize(p)
	_ = m.MkdirAll(path.Dir(p), 0755)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.put(p, []byte(content))
}

func (m *MemoryFileSystem) put(p string, content []byte) {
	m.entries[p] = &memoryEntry{
		content: content,
		info:    &memoryFileInfo{name: path.Base(p), size: int64(len(content)), mode: 0644, modTime: time.Now()},
	}
}

// ReadFile returns the content of a file.
func (m *MemoryFileSystem) ReadFile(p string) ([]byte, error) {
	p = normalize(p)
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[p]
	if !ok || e.info.IsDir() {
		return nil, &fs.PathError{Op: "read", Path: p, Err: fs.ErrNotExist}
	}
	return bytes.Clone(e.content), nil
}

// Files lists all regular file paths in sorted order.
func (m *MemoryFileSystem) Files() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []string
	for p, e := range m.entries {
		if !e.info.IsDir() {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

func (m *MemoryFileSystem) Open(p string) (io.ReadCloser, error) {
	content, err := m.ReadFile(p)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: normalize(p), Err: fs.ErrNotExist}
	}
	return io.NopCloser(bytes.NewReader(content)), nil
}

func (m *MemoryFileSystem) Create(p string) (io.WriteCloser, error) {
	p = normalize(p)
	m.mu.RLock()
	parent, ok := m.entries[path.Dir(p)]
	m.mu.RUnlock()
	if !ok || !parent.info.IsDir() {
		return nil, &fs.PathError{Op: "open", Path: p, Err: fs.ErrNotExist}
	}
	return &memoryWriter{fs: m, path: p}, nil
}

func (m *MemoryFileSystem) MkdirAll(p string, _ fs.FileMode) error {
	p = normalize(p)
	m.mu.Lock()
	defer m.mu.Unlock()

	for dir := p; ; dir = path.Dir(dir) {
		if e, ok := m.entries[dir]; ok {
			if !e.info.IsDir() {
				return &fs.PathError{Op: "mkdir", Path: dir, Err: fs.ErrExist}
			}
		} else {
			m.entries[dir] = newDirEntry(dir)
		}
		if dir == "/" {
			return nil
		}
	}
}

func (m *MemoryFileSystem) Remove(p string) error {
	p = normalize(p)
	m.mu.Lock()
	defer m.mu.Unlock()

	if err, ok := m.RemoveErr[p]; ok {
		return &fs.PathError{Op: "remove", Path: p, Err: err}
	}
	if _, ok := m.entries[p]; !ok {
		return &fs.PathError{Op: "remove", Path: p, Err: fs.ErrNotExist}
	}
	delete(m.entries, p)
	return nil
}

func (m *MemoryFileSystem) Stat(p string) (FileInfo, error) {
	p = normalize(p)
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[p]
	if !ok {
		return nil, &fs.PathError{Op: "stat", Path: p, Err: fs.ErrNotExist}
	}
	return e.info, nil
}

// memoryWriter buffers writes and publishes the file on Close.
type memoryWriter struct {
	fs   *MemoryFileSystem
	path string
	buf  bytes.Buffer
}

func (w *memoryWriter) Write(p []byte) (int, error) {
	return w.buf.Write(p)
}

func (w *memoryWriter) Close() error {
	w.fs.mu.Lock()
	defer w.fs.mu.Unlock()
	w.fs.put(w.path, w.buf.Bytes())
	return nil
}
