// Package photostore persists uploaded guest photos on a local volume and
// serves them back by their generated filename.
package photostore

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var ErrPhotoNotFound = errors.New("photo not found")

// DiskStore stores photos as flat files under a single directory.
type DiskStore struct {
	dir string
}

// NewDiskStore creates the storage directory if needed.
func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create photo dir: %w", err)
	}

	return &DiskStore{dir: dir}, nil
}

// Save writes the photo under the given name and returns the stable
// reference usable for later retrieval.
func (s *DiskStore) Save(name string, r io.Reader) (string, error) {
	name = filepath.Base(name)

	f, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", fmt.Errorf("create photo file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("write photo file: %w", err)
	}

	return name, nil
}

// Open returns the stored photo for streaming. The name is reduced to its
// base component so a crafted filename cannot escape the storage directory.
func (s *DiskStore) Open(name string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(s.dir, filepath.Base(name)))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrPhotoNotFound
		}

		return nil, fmt.Errorf("open photo file: %w", err)
	}

	return f, nil
}

// DerivedName builds a unique storage name from the request id plus
// attachment metadata, so retried submissions cannot collide.
func DerivedName(requestID string, index int, original string) string {
	base := strings.ToLower(filepath.Base(original))

	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}

	sanitized := b.String()
	if sanitized == "" || sanitized == "." {
		sanitized = "photo.jpg"
	}

	return fmt.Sprintf("%s_%d_%s", requestID, index, sanitized)
}

// ContentType maps a stored filename to the content type served on retrieval.
func ContentType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".heic":
		return "image/heic"
	default:
		return "image/jpeg"
	}
}
