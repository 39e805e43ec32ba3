package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Store defines the interface for blob storage backends.
// This allows swapping filesystem for S3 or other backends later.
type Store interface {
	Save(blobRef string, data io.Reader) (int64, error)
	Open(blobRef string) (io.ReadCloser, error)
	Path(blobRef string) (string, error)
	Delete(blobRef string) error
	EnsureDir() error
}

// NewBlobRef mints an opaque storage key for an upload. The original file
// extension is kept so served content gets a sensible type; everything else
// about the name is discarded.
func NewBlobRef(originalName string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(originalName)))
	return uuid.NewString() + ext
}

// FileSystemStore stores blobs on the local filesystem, one file per ref.
type FileSystemStore struct {
	basePath string
}

// NewFileSystemStore creates a new filesystem storage backend.
func NewFileSystemStore(basePath string) *FileSystemStore {
	return &FileSystemStore{basePath: basePath}
}

// EnsureDir creates the storage directory if it doesn't exist.
func (fs *FileSystemStore) EnsureDir() error {
	if err := os.MkdirAll(fs.basePath, 0755); err != nil {
		return fmt.Errorf("failed to create storage directory %s: %w", fs.basePath, err)
	}
	return nil
}

// Save writes data to the file named by blobRef and returns the number of
// bytes written. Partial files are removed on error.
func (fs *FileSystemStore) Save(blobRef string, data io.Reader) (int64, error) {
	filePath, err := fs.filePath(blobRef)
	if err != nil {
		return 0, err
	}

	file, err := os.Create(filePath)
	if err != nil {
		return 0, fmt.Errorf("failed to create file %s: %w", filePath, err)
	}
	defer file.Close()

	n, err := io.Copy(file, data)
	if err != nil {
		// Clean up partial file on error
		os.Remove(filePath)
		return 0, fmt.Errorf("failed to write file: %w", err)
	}

	return n, nil
}

// Open returns a reader over the stored blob.
func (fs *FileSystemStore) Open(blobRef string) (io.ReadCloser, error) {
	filePath, err := fs.Path(blobRef)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open blob %s: %w", blobRef, err)
	}
	return file, nil
}

// Path returns the absolute path to a stored blob.
// Returns an error if the blob does not exist.
func (fs *FileSystemStore) Path(blobRef string) (string, error) {
	filePath, err := fs.filePath(blobRef)
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(filePath); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("blob not found: %s", blobRef)
		}
		return "", fmt.Errorf("failed to stat blob: %w", err)
	}

	return filePath, nil
}

// Delete removes the stored blob. Deleting a blob that is already gone is
// not an error.
func (fs *FileSystemStore) Delete(blobRef string) error {
	filePath, err := fs.filePath(blobRef)
	if err != nil {
		return err
	}
	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete blob %s: %w", blobRef, err)
	}
	return nil
}

func (fs *FileSystemStore) filePath(blobRef string) (string, error) {
	// Refs are minted by NewBlobRef, but never trust one that would escape
	// the storage directory.
	if blobRef == "" || blobRef != filepath.Base(blobRef) {
		return "", fmt.Errorf("invalid blob ref %q", blobRef)
	}
	return filepath.Join(fs.basePath, blobRef), nil
}
