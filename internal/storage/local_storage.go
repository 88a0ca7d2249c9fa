package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

type localArchive struct {
	dir string
}

// NewLocalArchive stores images as files under dir, creating it if needed.
func NewLocalArchive(dir string) (Archive, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}
	return &localArchive{dir: dir}, nil
}

func (a *localArchive) Put(ctx context.Context, key string, data []byte) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path := filepath.Join(a.dir, key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("write archive file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("rename archive file: %w", err)
	}
	return key, nil
}

func (a *localArchive) Get(ctx context.Context, key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(a.dir, key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotArchived
	}
	if err != nil {
		return nil, fmt.Errorf("read archive file: %w", err)
	}
	return data, nil
}
