package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
)

// File implements SeenStore as a single JSON file holding the list of
// forwarded post ids, rewritten atomically on every commit. It is the
// fallback when no durable database location is available.
type File struct {
	path string
	log  *slog.Logger

	mu   sync.RWMutex
	seen map[string]struct{}
}

// NewFile opens the flat-file store at path. A missing or empty file
// starts an empty set. Unreadable or non-list content is quarantined:
// the file is renamed aside and the store starts empty rather than
// failing.
func NewFile(path string, log *slog.Logger) (*File, error) {
	f := &File{
		path: path,
		log:  log,
		seen: make(map[string]struct{}),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return f, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read seen file: %w", err)
	}

	if strings.TrimSpace(string(data)) == "" {
		return f, nil
	}

	var parsed any
	if err := json.Unmarshal(data, &parsed); err != nil {
		f.quarantine(path + ".corrupt.bak")
		return f, nil
	}
	list, ok := parsed.([]any)
	if !ok {
		f.quarantine(path + ".bak")
		return f, nil
	}

	for _, v := range list {
		if id, ok := v.(string); ok {
			f.seen[id] = struct{}{}
		}
	}
	return f, nil
}

func (f *File) quarantine(dest string) {
	f.log.Warn("seen file unreadable, moving aside and starting empty", "path", f.path, "backup", dest)
	if err := os.Rename(f.path, dest); err != nil {
		f.log.Error("quarantine seen file", "path", f.path, "error", err)
	}
}

// Close is a no-op; every commit already leaves the file complete.
func (f *File) Close() error {
	return nil
}

// Contains reports whether a post id has already been forwarded.
func (f *File) Contains(id string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.seen[id]
	return ok
}

// MarkSeen records a post id and rewrites the backing file atomically.
// Recording an existing id is a no-op.
func (f *File) MarkSeen(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.seen[id]; ok {
		return nil
	}
	f.seen[id] = struct{}{}

	if err := f.writeLocked(); err != nil {
		// Roll back so the id stays eligible for a retry next cycle.
		delete(f.seen, id)
		return err
	}
	return nil
}

// writeLocked rewrites the backing file: marshal to a temp file, fsync,
// then atomically rename over the old one.
func (f *File) writeLocked() error {
	ids := make([]string, 0, len(f.seen))
	for id := range f.seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	data, err := json.MarshalIndent(ids, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal seen set: %w", err)
	}

	tmp := f.path + ".tmp"
	file, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("create temp seen file: %w", err)
	}
	if _, err := file.Write(data); err != nil {
		_ = file.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("write temp seen file: %w", err)
	}
	if err := file.Sync(); err != nil {
		_ = file.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("sync temp seen file: %w", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close temp seen file: %w", err)
	}

	if err := os.Rename(tmp, f.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace seen file: %w", err)
	}
	return nil
}

// LoadAll returns every recorded post id.
func (f *File) LoadAll(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	ids := make([]string, 0, len(f.seen))
	for id := range f.seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
