package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// LocalAdapter stores outputs under a base directory.
type LocalAdapter struct {
	basePath string
}

// NewLocalAdapter creates the base directory if needed.
func NewLocalAdapter(basePath string) (*LocalAdapter, error) {
	if basePath == "" {
		return nil, fmt.Errorf("local adapter: empty base path")
	}
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base path: %w", err)
	}
	return &LocalAdapter{basePath: basePath}, nil
}

// Put writes to a temp file in the target directory and renames it into
// place, so readers never see a partial file.
func (l *LocalAdapter) Put(ctx context.Context, path string, data io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fullPath, err := l.fullPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(fullPath), ".put-*")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tmp.Name(), fullPath); err != nil {
		return fmt.Errorf("failed to move file into place: %w", err)
	}
	return nil
}

func (l *LocalAdapter) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	fullPath, err := l.fullPath(path)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

func (l *LocalAdapter) Delete(ctx context.Context, path string) error {
	fullPath, err := l.fullPath(path)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (l *LocalAdapter) Exists(ctx context.Context, path string) (bool, error) {
	fullPath, err := l.fullPath(path)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(fullPath); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check existence: %w", err)
	}
	return true, nil
}

// List returns slash-separated paths relative to the base directory, sorted.
func (l *LocalAdapter) List(ctx context.Context, prefix string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(l.basePath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".put-") {
			return nil
		}
		rel, err := filepath.Rel(l.basePath, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if strings.HasPrefix(rel, prefix) {
			paths = append(paths, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	sort.Strings(paths)
	return paths, nil
}

func (l *LocalAdapter) Close() error { return nil }

// fullPath resolves path under the base directory and rejects escapes.
func (l *LocalAdapter) fullPath(path string) (string, error) {
	full := filepath.Join(l.basePath, filepath.FromSlash(path))
	rel, err := filepath.Rel(l.basePath, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes base directory", path)
	}
	return full, nil
}
