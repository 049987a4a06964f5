package storage

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"pilotforce-server-go/internal/platform/errors"
)

// BlobStore keeps uploaded file bytes on the local filesystem, addressed by
// S3-style object keys ("resources/<booking>/<file>"). Keys never escape the
// configured root.
type BlobStore struct {
	root string
}

func NewBlobStore(root string) (*BlobStore, error) {
	if root == "" {
		return nil, errors.New(errors.KindStorage, "blobstore.new", "blob root directory required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrap(errors.KindStorage, "blobstore.new", "failed to create blob root", err)
	}
	return &BlobStore{root: root}, nil
}

func (b *BlobStore) path(key string) (string, error) {
	cleaned := filepath.Clean("/" + key)
	if cleaned == "/" {
		return "", errors.New(errors.KindStorage, "blobstore.path", "empty object key")
	}
	return filepath.Join(b.root, filepath.FromSlash(cleaned)), nil
}

// Put writes the object, creating parent directories as needed.
func (b *BlobStore) Put(key string, r io.Reader) (int64, error) {
	path, err := b.path(key)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, errors.Wrap(errors.KindStorage, "blobstore.put", "failed to create directories", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, errors.Wrap(errors.KindStorage, "blobstore.put", "failed to create object", err)
	}
	defer f.Close()

	n, err := io.Copy(f, r)
	if err != nil {
		return n, errors.Wrap(errors.KindStorage, "blobstore.put", "failed to write object", err)
	}
	return n, nil
}

// Open returns a reader for the object. Callers own the close.
func (b *BlobStore) Open(key string) (io.ReadCloser, error) {
	path, err := b.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.KindStorage, "blobstore.open", "object not readable: "+key, err)
	}
	return f, nil
}

func (b *BlobStore) Exists(key string) bool {
	path, err := b.path(key)
	if err != nil {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func (b *BlobStore) Size(key string) (int64, error) {
	path, err := b.path(key)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return 0, errors.Wrap(errors.KindStorage, "blobstore.size", "object not found: "+key, err)
	}
	return info.Size(), nil
}

func (b *BlobStore) Delete(key string) error {
	path, err := b.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(errors.KindStorage, "blobstore.delete", "failed to delete object", err)
	}
	return nil
}

// List returns object keys under the given prefix, sorted.
func (b *BlobStore) List(prefix string) ([]string, error) {
	keys := make([]string, 0)
	err := filepath.Walk(b.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(b.root, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(errors.KindStorage, "blobstore.list", "failed to walk blob root", err)
	}
	sort.Strings(keys)
	return keys, nil
}
