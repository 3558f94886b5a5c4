package errors

import (
	"errors"
)

// client input errors, reported as 400
var (
	ErrNoFile          = errors.New("no file uploaded")
	ErrUnsupportedType = errors.New("file type not allowed")
	ErrFileTooLarge    = errors.New("file too large")
	ErrMalformedUpload = errors.New("malformed upload")
)

// IsClientError reports whether err was caused by the request itself.
func IsClientError(err error) bool {
	return errors.Is(err, ErrNoFile) ||
		errors.Is(err, ErrUnsupportedType) ||
		errors.Is(err, ErrFileTooLarge) ||
		errors.Is(err, ErrMalformedUpload)
}
