// Package storage keeps encoded captures on the local filesystem.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrInvalidPath is returned for names that would escape the base directory.
var ErrInvalidPath = errors.New("storage: invalid path")

// Storage stores opaque blobs under generated names.
type Storage interface {
	Save(data []byte, ext string) (string, error)
	Open(name string) (io.ReadSeekCloser, error)
	Delete(name string) error
}

type LocalStorage struct {
	basePath string
}

func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &LocalStorage{basePath: basePath}, nil
}

// Save writes data to a new file named <uuid><ext> and returns that name.
func (ls *LocalStorage) Save(data []byte, ext string) (string, error) {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if strings.ContainsAny(ext, `/\`) {
		return "", fmt.Errorf("%w: extension %q", ErrInvalidPath, ext)
	}

	name := uuid.New().String() + ext
	fullPath := filepath.Join(ls.basePath, name)

	// Written under a temp name, then renamed into place.
	tmp, err := os.CreateTemp(ls.basePath, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to save file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to save file: %w", err)
	}
	if err := os.Rename(tmp.Name(), fullPath); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to save file: %w", err)
	}

	return name, nil
}

func (ls *LocalStorage) Open(name string) (io.ReadSeekCloser, error) {
	fullPath, err := ls.resolve(name)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

// ReadFile returns the whole content of name.
func (ls *LocalStorage) ReadFile(name string) ([]byte, error) {
	fullPath, err := ls.resolve(name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}

func (ls *LocalStorage) Delete(name string) error {
	fullPath, err := ls.resolve(name)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// BasePath is the directory files are saved under.
func (ls *LocalStorage) BasePath() string {
	return ls.basePath
}

// resolve accepts only plain file names inside the base directory.
func (ls *LocalStorage) resolve(name string) (string, error) {
	cleanPath := filepath.Clean(name)
	if name == "" || cleanPath == "." || strings.Contains(cleanPath, "..") ||
		filepath.IsAbs(cleanPath) || strings.ContainsAny(cleanPath, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, name)
	}
	return filepath.Join(ls.basePath, cleanPath), nil
}
