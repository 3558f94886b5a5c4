package gallery

import (
	"fmt"
	"mime"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	apperrors "gallery-gateway/internal/errors"
	"gallery-gateway/internal/models"
)

const (
	// over-fetch, the store does not promise any ordering
	ListFetchLimit = 100

	// number of entries shown in the gallery
	RecentLimit = 3

	DefaultMaxUploadBytes = 5 << 20

	// uploads are buffered in memory before the store write
	MaxUploadBytesLimit = 1 << 30
)

var DefaultAllowedTypes = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/webp",
}

// Policy decides which uploads are accepted.
type Policy struct {
	MaxBytes     int64
	AllowedTypes []string
}

func DefaultPolicy() Policy {
	return Policy{
		MaxBytes:     DefaultMaxUploadBytes,
		AllowedTypes: slices.Clone(DefaultAllowedTypes),
	}
}

// CheckType rejects media types outside the allow-list.
// Parameters such as charset are ignored.
func (p Policy) CheckType(contentType string) error {
	mediaType := normaliseMediaType(contentType)
	if mediaType == "" {
		return fmt.Errorf("%w: missing content type", apperrors.ErrUnsupportedType)
	}

	for _, allowed := range p.AllowedTypes {
		if normaliseMediaType(allowed) == mediaType {
			return nil
		}
	}

	return fmt.Errorf("%w: %s", apperrors.ErrUnsupportedType, mediaType)
}

func (p Policy) CheckSize(size int64) error {
	if size > p.MaxBytes {
		return fmt.Errorf("%w: limit is %d bytes", apperrors.ErrFileTooLarge, p.MaxBytes)
	}
	return nil
}

func normaliseMediaType(contentType string) string {
	contentType = strings.TrimSpace(contentType)
	if contentType == "" {
		return ""
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		// keep whatever precedes the parameters
		mediaType, _, _ = strings.Cut(contentType, ";")
	}

	return strings.ToLower(strings.TrimSpace(mediaType))
}

// ObjectKey builds "<unix millis>-<filename>".
func ObjectKey(uploadedAt time.Time, filename string) string {
	return strconv.FormatInt(uploadedAt.UnixMilli(), 10) + "-" + SanitizeFilename(filename)
}

// SanitizeFilename keeps a client filename usable as the tail of an object key.
func SanitizeFilename(filename string) string {
	filename = strings.ReplaceAll(filename, "/", "_")
	filename = strings.ReplaceAll(filename, "\\", "_")
	filename = strings.ReplaceAll(filename, "\x00", "")
	filename = strings.Trim(filename, " .")

	for len(filename) > 255 {
		_, size := utf8.DecodeLastRuneInString(filename)
		filename = filename[:len(filename)-size]
	}

	if filename == "" {
		return "unnamed"
	}
	return filename
}

func PublicURL(baseURL, key string) string {
	return strings.TrimRight(baseURL, "/") + "/" + key
}

// Recent returns at most n objects, newest first. Objects with equal
// timestamps keep the order the store reported them in, so repeated calls
// over an unchanged store give the same result.
func Recent(objects []models.StoredObject, n int) []models.StoredObject {
	sorted := slices.Clone(objects)
	slices.SortStableFunc(sorted, func(a, b models.StoredObject) int {
		return b.LastModified.Compare(a.LastModified)
	})

	if n < 0 {
		n = 0
	}
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	if sorted == nil {
		sorted = []models.StoredObject{}
	}
	return sorted
}

// Entries maps stored objects to gallery entries with public URLs.
func Entries(baseURL string, objects []models.StoredObject) []models.FileEntry {
	entries := make([]models.FileEntry, 0, len(objects))
	for _, obj := range objects {
		entries = append(entries, models.FileEntry{
			Name:         obj.Key,
			URL:          PublicURL(baseURL, obj.Key),
			Size:         obj.Size,
			LastModified: obj.LastModified,
		})
	}
	return entries
}
