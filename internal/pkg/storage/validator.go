package storage

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

var (
	ErrFileTooLarge    = errors.New("file exceeds maximum size")
	ErrInvalidMimeType = errors.New("file type not allowed")
	ErrEmptyFile       = errors.New("file is empty")
)

// MaxAttachmentSize limits a single chat attachment (15 MB)
const MaxAttachmentSize int64 = 15 * 1024 * 1024

// AllowedAttachmentTypes lists MIME types accepted as chat attachments
var AllowedAttachmentTypes = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/gif":       ".gif",
	"image/webp":      ".webp",
	"application/pdf": ".pdf",
	"application/zip": ".zip",
}

// ValidateFile reads at most maxSize bytes and sniffs the MIME type from
// content, returning the data, MIME type and file extension.
func ValidateFile(reader io.Reader, maxSize int64) ([]byte, string, string, error) {
	data, err := io.ReadAll(io.LimitReader(reader, maxSize+1))
	if err != nil {
		return nil, "", "", fmt.Errorf("failed to read file: %w", err)
	}

	if len(data) == 0 {
		return nil, "", "", ErrEmptyFile
	}
	if int64(len(data)) > maxSize {
		return nil, "", "", ErrFileTooLarge
	}

	mimeType := http.DetectContentType(data)
	if idx := strings.Index(mimeType, ";"); idx != -1 {
		mimeType = strings.TrimSpace(mimeType[:idx])
	}

	ext, ok := AllowedAttachmentTypes[mimeType]
	if !ok {
		return nil, "", "", ErrInvalidMimeType
	}

	return data, mimeType, ext, nil
}

// IsImage reports whether mimeType is an image type
func IsImage(mimeType string) bool {
	return strings.HasPrefix(mimeType, "image/")
}
