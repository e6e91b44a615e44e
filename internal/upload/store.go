// Package upload stores attachment and avatar blobs on the local
// filesystem under uuid-derived names.
package upload

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/n3m01726/chattyChat/internal/domain"
)

// LocalStore implements domain.FileStore over a single directory.
type LocalStore struct {
	dir string
}

var _ domain.FileStore = (*LocalStore)(nil)

func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir %q: %w", dir, err)
	}
	return &LocalStore{dir: dir}, nil
}

// Save writes the blob under a fresh uuid name, keeping the original
// extension, and returns the ref clients use to fetch it.
func (s *LocalStore) Save(originalName string, r io.Reader) (string, error) {
	ref := uuid.NewString() + filepath.Ext(originalName)
	dst, err := os.Create(filepath.Join(s.dir, ref))
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, r); err != nil {
		os.Remove(dst.Name())
		return "", fmt.Errorf("write file: %w", err)
	}
	return ref, nil
}

// Delete removes the blob for ref. A missing file is not an error; the
// sweeper and delete paths may race and both converge on "gone".
func (s *LocalStore) Delete(ref string) error {
	if ref == "" {
		return nil
	}
	path, err := s.Path(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove file: %w", err)
	}
	return nil
}

// Path resolves a ref to an on-disk path, rejecting traversal attempts.
func (s *LocalStore) Path(ref string) (string, error) {
	if ref == "" || filepath.Base(ref) != ref {
		return "", domain.ErrInvalidInput
	}
	return filepath.Join(s.dir, ref), nil
}
