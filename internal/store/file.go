package store

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// File is an append-only JSON-lines log of records under a data root. The
// last line written for a key wins. The whole log is replayed into memory
// on open.
type File struct {
	Path string

	mu  sync.Mutex
	f   *os.File
	mem *Memory
}

// OpenFile opens (creating if needed) root/behaviors.jsonl.
func OpenFile(root string) (*File, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create store root: %w", err)
	}
	path := filepath.Join(root, "behaviors.jsonl")

	mem := NewMemory()
	if err := replay(path, mem); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return &File{Path: path, f: f, mem: mem}, nil
}

func replay(path string, mem *Memory) error {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	line := 0
	for sc.Scan() {
		line++
		var r Record
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			return fmt.Errorf("%s:%d: %w", path, line, err)
		}
		_ = mem.Put(context.Background(), r.Key, r.Entry)
	}
	return sc.Err()
}

func (s *File) Put(ctx context.Context, key string, e Entry) error {
	b, err := json.Marshal(Record{Key: key, Entry: e})
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.f.Write(append(b, '\n')); err != nil {
		return fmt.Errorf("append record: %w", err)
	}
	if err := s.f.Sync(); err != nil {
		return fmt.Errorf("sync store: %w", err)
	}
	return s.mem.Put(ctx, key, e)
}

func (s *File) Get(ctx context.Context, key string) (Entry, error) {
	return s.mem.Get(ctx, key)
}

func (s *File) List(ctx context.Context, prefix, date string) ([]Record, error) {
	return s.mem.List(ctx, prefix, date)
}

func (s *File) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.f.Close()
}

// Root returns the directory holding the log.
func (s *File) Root() string { return filepath.Dir(s.Path) }
