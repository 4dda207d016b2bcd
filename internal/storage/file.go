package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

const (
	fileDirPerm  = 0o750
	fileDataPerm = 0o640
)

// FileBackend stores each key as a file below a root directory. The version
// of an object is the SHA-256 of its content, so compare-and-swap also
// detects edits made by other processes between load and save.
type FileBackend struct {
	root string
	mu   sync.Mutex
}

// NewFileBackend creates the root directory if needed
func NewFileBackend(root string) (*FileBackend, error) {
	if root == "" {
		return nil, fmt.Errorf("storage root cannot be empty")
	}
	if err := os.MkdirAll(root, fileDirPerm); err != nil {
		return nil, fmt.Errorf("cannot create storage root %s: %w", root, err)
	}
	return &FileBackend{root: root}, nil
}

// Root returns the backend's directory
func (f *FileBackend) Root() string {
	return f.root
}

func (f *FileBackend) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if key == "" || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid storage key: %q", key)
	}
	return filepath.Join(f.root, clean), nil
}

func contentVersion(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func (f *FileBackend) Load(_ context.Context, key string) (*Object, error) {
	p, err := f.path(key)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p, err)
	}
	return &Object{Key: key, Data: data, Version: contentVersion(data)}, nil
}

func (f *FileBackend) Save(_ context.Context, key string, data []byte, version string) (string, error) {
	p, err := f.path(key)
	if err != nil {
		return "", err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if version != VersionAny {
		current, err := os.ReadFile(p)
		exists := err == nil
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("read %s: %w", p, err)
		}
		if version == VersionNone && exists {
			return "", ErrConflict
		}
		if version != VersionNone && (!exists || contentVersion(current) != version) {
			return "", ErrConflict
		}
	}

	if err := os.MkdirAll(filepath.Dir(p), fileDirPerm); err != nil {
		return "", fmt.Errorf("create directory for %s: %w", p, err)
	}

	// write to a sibling temp file then rename so readers never see a torn file
	tmp, err := os.CreateTemp(filepath.Dir(p), "."+filepath.Base(p)+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, fileDataPerm); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("chmod %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, p); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("rename to %s: %w", p, err)
	}

	return contentVersion(data), nil
}

func (f *FileBackend) Delete(_ context.Context, key string) error {
	p, err := f.path(key)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("remove %s: %w", p, err)
	}
	return nil
}

func (f *FileBackend) List(_ context.Context, prefix string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	keys := make([]string, 0)
	err := filepath.WalkDir(f.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		rel, err := filepath.Rel(f.root, path)
		if err != nil {
			return nil
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error walking storage root: %w", err)
	}

	sort.Strings(keys)
	return keys, nil
}

func (f *FileBackend) Append(_ context.Context, key string, line []byte) error {
	p, err := f.path(key)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(p), fileDirPerm); err != nil {
		return fmt.Errorf("create directory for %s: %w", p, err)
	}
	fh, err := os.OpenFile(p, os.O_APPEND|os.O_CREATE|os.O_WRONLY, fileDataPerm)
	if err != nil {
		return fmt.Errorf("open %s: %w", p, err)
	}
	defer fh.Close()

	if len(line) == 0 || line[len(line)-1] != '\n' {
		line = append(append([]byte(nil), line...), '\n')
	}
	if _, err := fh.Write(line); err != nil {
		return fmt.Errorf("append to %s: %w", p, err)
	}
	return nil
}

func (f *FileBackend) Close() error { return nil }

func (f *FileBackend) Name() string { return "file" }
