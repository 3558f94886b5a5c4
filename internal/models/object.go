package models

import (
	"time"
)

// StoredObject is one entry reported by the object store listing.
// LastModified is assigned by the store.
type StoredObject struct {
	Key string

	Size int64

	LastModified time.Time
}

// Upload is a file accepted from the multipart form, held in memory
// for the duration of the request.
type Upload struct {
	FileName string

	ContentType string

	Content []byte
}

// FileEntry is a gallery item returned by GET /list-files.
type FileEntry struct {
	Name string `json:"name"`

	URL string `json:"url"`

	Size int64 `json:"size"`

	LastModified time.Time `json:"lastModified"`
}

type UploadResponse struct {
	Message string `json:"message"`

	FileName string `json:"fileName"`

	FileURL string `json:"fileUrl"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
