// Package validate gates uploaded assets before any paid downstream call.
package validate

import (
	"fmt"
	"mime"
	"strings"

	"productshoot/internal/domain"
)

// MaxImageBytes is the inclusive upload ceiling.
const MaxImageBytes int64 = 8 << 20

var allowedImageTypes = map[string]struct{}{
	"image/png":  {},
	"image/jpeg": {},
	"image/webp": {},
}

// Asset describes an uploaded file by its declared content type and byte size.
type Asset struct {
	ContentType string
	Size        int64
}

// RejectedError carries the human-readable reason an asset was refused.
type RejectedError struct {
	Reason string
}

func (e *RejectedError) Error() string { return e.Reason }

func (e *RejectedError) Unwrap() error { return domain.ErrInvalidInput }

// Image returns nil when the asset is an allowed raster type within the size ceiling.
func Image(asset Asset) error {
	contentType := NormalizeContentType(asset.ContentType)
	if _, ok := allowedImageTypes[contentType]; !ok {
		if contentType == "" {
			contentType = "unknown"
		}
		return &RejectedError{Reason: fmt.Sprintf("unsupported file type: %s", contentType)}
	}
	if asset.Size > MaxImageBytes {
		return TooLarge(asset.Size)
	}
	return nil
}

// TooLarge reports an upload of size bytes as over the ceiling.
func TooLarge(size int64) error {
	return &RejectedError{Reason: fmt.Sprintf("file too large: %.2f MiB (max %d MiB)", float64(size)/float64(1<<20), MaxImageBytes>>20)}
}

// NormalizeContentType lowercases a content type and strips any parameters.
func NormalizeContentType(contentType string) string {
	contentType = strings.TrimSpace(contentType)
	if contentType == "" {
		return ""
	}
	if parsed, _, err := mime.ParseMediaType(contentType); err == nil {
		return parsed
	}
	return strings.ToLower(contentType)
}
