package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sync"
)

// FileSlotRepository stores one JSON file per key under a directory.
type FileSlotRepository struct {
	dir string
	mu  sync.Mutex
}

func NewFileSlotRepository(dir string) (*FileSlotRepository, error) {
	if dir == "" {
		return nil, errors.New("file storage requires a directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage dir %s: %w", dir, err)
	}
	return &FileSlotRepository{dir: dir}, nil
}

// path escapes the key so project ids cannot leave the directory.
func (r *FileSlotRepository) path(key string) string {
	return filepath.Join(r.dir, url.PathEscape(key)+".json")
}

func (r *FileSlotRepository) Load(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(r.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read slot file: %w", err)
	}
	return data, nil
}

// Save writes to a temp file and renames it over the old snapshot.
func (r *FileSlotRepository) Save(_ context.Context, key string, value []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tmp, err := os.CreateTemp(r.dir, ".slot-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write slot file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close slot file: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path(key)); err != nil {
		return fmt.Errorf("failed to replace slot file: %w", err)
	}
	return nil
}

func (r *FileSlotRepository) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := os.Remove(r.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete slot file: %w", err)
	}
	return nil
}

func (r *FileSlotRepository) Ping(context.Context) error {
	_, err := os.Stat(r.dir)
	return err
}

func (r *FileSlotRepository) Driver() string { return DriverFile }
func (r *FileSlotRepository) Close() error   { return nil }
