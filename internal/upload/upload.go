// Package upload stores user-submitted images behind a key, on local disk or in an S3-compatible bucket.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"fillog/api/internal/util"
)

// PathPrefix is prepended to keys in the paths stored on users and posts.
const PathPrefix = "uploads/"

var (
	ErrNotFound   = errors.New("upload not found")
	ErrInvalidKey = errors.New("invalid upload key")
)

// Info describes a stored object.
type Info struct {
	Size        int64
	ContentType string
}

// Storage saves and serves uploaded files.
type Storage interface {
	Save(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, Info, error)
	// Delete removes key. A missing key is not an error.
	Delete(ctx context.Context, key string) error
}

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+(\.[A-Za-z0-9]+)?$`)

// NewKey returns a fresh key that keeps the extension of filename.
func NewKey(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if !keyPattern.MatchString("x" + ext) {
		ext = ""
	}
	return util.NewID("") + ext
}

// ValidateKey rejects keys that could escape the storage root.
func ValidateKey(key string) error {
	if !keyPattern.MatchString(key) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

// PathFor is the value stored on documents for key.
func PathFor(key string) string {
	return PathPrefix + key
}

// KeyFromPath is the inverse of PathFor.
func KeyFromPath(path string) (string, bool) {
	key, ok := strings.CutPrefix(path, PathPrefix)
	return key, ok && key != ""
}
