// Package storage keeps meeting attachments on local disk under unguessable keys.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const DefaultMaxSize int64 = 20 << 20

var (
	ErrTooLarge   = errors.New("file exceeds the upload size limit")
	ErrInvalidKey = errors.New("invalid object key")
)

type Object struct {
	Key  string
	Name string
	Size int64
	URL  string
}

type Store interface {
	Save(ctx context.Context, fileName string, r io.Reader) (Object, error)
	Delete(ctx context.Context, key string) error
}

type LocalStore struct {
	dir     string
	baseURL string
	maxSize int64
}

// NewLocalStore stores files in dir and addresses them as baseURL/<key>.
func NewLocalStore(dir, baseURL string, maxSize int64) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &LocalStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/"), maxSize: maxSize}, nil
}

func (s *LocalStore) Save(ctx context.Context, fileName string, r io.Reader) (Object, error) {
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}

	name := cleanName(fileName)
	// Keys never carry the client's extension, so nothing is served by its claimed type.
	key := uuid.NewString()
	path := filepath.Join(s.dir, key)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return Object{}, fmt.Errorf("create %s: %w", key, err)
	}

	// read one byte past the limit to detect oversized uploads
	n, err := io.Copy(f, io.LimitReader(r, s.maxSize+1))
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && n > s.maxSize {
		err = ErrTooLarge
	}
	if err != nil {
		_ = os.Remove(path)
		return Object{}, err
	}

	return Object{
		Key:  key,
		Name: name,
		Size: n,
		URL:  s.baseURL + "/" + key,
	}, nil
}

func (s *LocalStore) Delete(ctx context.Context, key string) error {
	path, err := s.Path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

// Path resolves key to its file on disk. Only keys produced by Save resolve.
func (s *LocalStore) Path(key string) (string, error) {
	id, err := uuid.Parse(key)
	if err != nil || id.String() != key {
		return "", ErrInvalidKey
	}
	return filepath.Join(s.dir, key), nil
}

func cleanName(name string) string {
	name = filepath.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "file"
	}
	return name
}
