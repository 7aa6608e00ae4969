package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// FilePrefix starts the name of every token file.
const FilePrefix = "pdnd_token_"

// File keeps one JSON file per key in a directory, by default the system
// temporary directory shared with other client runs. Writes overwrite the
// whole file and are not locked.
type File[T any] struct {
	dir string
}

// NewFile creates a file cache in dir. An empty dir uses os.TempDir().
func NewFile[T any](dir string) *File[T] {
	if dir == "" {
		dir = os.TempDir()
	}
	return &File[T]{dir: dir}
}

// Path returns the file that holds the token for key.
func (f *File[T]) Path(key string) string {
	return filepath.Join(f.dir, FilePrefix+sanitizeKey(key)+".json")
}

// Get reads the token for key. A missing, malformed or empty file is
// reported as not found rather than as an error.
func (f *File[T]) Get(ctx context.Context, key string) (T, bool, error) {
	var zero T
	path := f.Path(key)

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, fmt.Errorf("reading token file %s: %w", path, err)
	}

	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		log.Ctx(ctx).Debug().Err(err).Str("path", path).Msg("ignoring malformed token file")
		return zero, false, nil
	}

	if isZero(value) {
		return zero, false, nil
	}

	return value, true, nil
}

// Set writes the token for key, replacing any previous content.
func (f *File[T]) Set(ctx context.Context, key string, token T) error {
	path := f.Path(key)

	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("encoding token for %s: %w", path, err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing token file %s: %w", path, err)
	}

	log.Ctx(ctx).Debug().Str("path", path).Msg("token saved")
	return nil
}

// Invalidate deletes the token file for key. A missing file is not an error.
func (f *File[T]) Invalidate(ctx context.Context, key string) error {
	path := f.Path(key)

	err := os.Remove(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing token file %s: %w", path, err)
	}

	return nil
}

// Close is a no-op for the file cache.
func (f *File[T]) Close() error {
	return nil
}

// sanitizeKey keeps key usable as part of a file name.
func sanitizeKey(key string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, key)
}
