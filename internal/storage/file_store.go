package storage

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// FileStore persists uploaded product images in a flat directory. Filenames
// are generated from a millisecond timestamp plus a UUID, keeping them
// collision-free while staying addressable by name alone.
type FileStore struct {
	dir string
}

// NewFileStore creates the upload directory if needed and returns a store
// rooted at it.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the directory backing the store, for static file serving.
func (s *FileStore) Dir() string {
	return s.dir
}

// Save writes the uploaded file under a generated name and returns that name.
// The original filename only contributes its extension.
func (s *FileStore) Save(file *multipart.FileHeader) (string, error) {
	ext := filepath.Ext(file.Filename)
	name := fmt.Sprintf("%d-%s%s", time.Now().UnixMilli(), uuid.NewString(), ext)

	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", fmt.Errorf("failed to create file %s: %w", name, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("failed to write file %s: %w", name, err)
	}
	return name, nil
}

// Remove deletes a stored file by its generated name. A missing file is not
// an error; it was already gone.
func (s *FileStore) Remove(name string) error {
	// Generated names never contain separators; reject anything that tries
	// to escape the upload directory.
	if name != filepath.Base(name) {
		return fmt.Errorf("invalid stored filename: %s", name)
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove file %s: %w", name, err)
	}
	return nil
}
