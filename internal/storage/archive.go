package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrNotArchived indicates no archived image exists under the key.
var ErrNotArchived = errors.New("image not archived")

// Archive keeps the original bytes of verified images keyed by record id.
type Archive interface {
	// Put stores data and returns the key it can be fetched back with.
	Put(ctx context.Context, key string, data []byte) (string, error)
	Get(ctx context.Context, key string) ([]byte, error)
}

// ArchiveKey derives the object name for a record from its id and the sniffed image type.
func ArchiveKey(id string, data []byte) string {
	switch http.DetectContentType(data) {
	case "image/png":
		return id + ".png"
	case "image/jpeg":
		return id + ".jpg"
	case "image/gif":
		return id + ".gif"
	case "image/bmp":
		return id + ".bmp"
	case "image/webp":
		return id + ".webp"
	default:
		return id + ".bin"
	}
}

// contentType maps an archive key back to a MIME type.
func contentType(key string) string {
	switch {
	case strings.HasSuffix(key, ".png"):
		return "image/png"
	case strings.HasSuffix(key, ".jpg"):
		return "image/jpeg"
	case strings.HasSuffix(key, ".gif"):
		return "image/gif"
	case strings.HasSuffix(key, ".bmp"):
		return "image/bmp"
	case strings.HasSuffix(key, ".webp"):
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}

func validateKey(key string) error {
	if key == "" || strings.ContainsAny(key, `/\`) || strings.HasPrefix(key, ".") {
		return fmt.Errorf("invalid archive key %q", key)
	}
	return nil
}
