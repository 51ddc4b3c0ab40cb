package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// ErrObjectNotFound is returned by Open when no object exists under a key.
var ErrObjectNotFound = errors.New("object not found")

// ObjectStore is the persistence boundary for all document bytes: uploaded
// originals, synthesized audio, and exported files. Implementations are
// keyed flat namespaces; the service never stores bytes anywhere else.
type ObjectStore interface {
	// Save writes an object, overwriting any previous object under key.
	Save(ctx context.Context, key string, r io.Reader, size int64, contentType string) error

	// Open returns a reader for the object under key, or ErrObjectNotFound.
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// Remove deletes the object under key. Removing a missing key is not an
	// error.
	Remove(ctx context.Context, key string) error

	// RemoveAll deletes every listed key, skipping missing ones.
	RemoveAll(ctx context.Context, keys []string) error
}

// UploadKey builds the object key for an uploaded original, preserving the
// original filename's extension so OCR tooling sees the right format.
func UploadKey(id, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	if ext == "" {
		ext = ".bin"
	}
	return "uploads/" + id + ext
}

// AudioKey builds the object key for a document's synthesized audio.
func AudioKey(id string) string {
	return "outputs/" + id + ".mp3"
}

// ExportKey builds the object key for an exported document.
func ExportKey(id, ext string) string {
	return fmt.Sprintf("outputs/voxaccess_%s.%s", id, ext)
}

// DerivedKeys lists every artifact key a document delete must clean up
// besides the original upload.
func DerivedKeys(id string) []string {
	return []string{
		AudioKey(id),
		ExportKey(id, "txt"),
		ExportKey(id, "srt"),
	}
}
