package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	apperrors "gallery-gateway/internal/errors"
	"gallery-gateway/internal/gallery"
	"gallery-gateway/internal/models"
	"gallery-gateway/internal/objectstore"
)

const (
	uploadField = "file"

	// room for multipart boundaries and part headers on top of the file limit
	multipartOverhead = 1 << 20
)

type APIHandler struct {
	store    objectstore.FileStorer
	s3Bucket string
	opts     Options
	now      func() time.Time
}

// Options is the request-independent configuration of the handlers.
type Options struct {
	PublicBaseURL string
	Policy        gallery.Policy
}

func NewAPIHandler(store objectstore.FileStorer, s3Bucket string, opts Options) *APIHandler {
	return &APIHandler{
		store:    store,
		s3Bucket: s3Bucket,
		opts:     opts,
		now:      time.Now,
	}
}

// Upload stores a single image sent as the "file" form field.
func (h *APIHandler) Upload(w http.ResponseWriter, r *http.Request) {

	defer r.Body.Close()

	logger := requestLogger(r)
	r.Body = http.MaxBytesReader(w, r.Body, addCapped(h.opts.Policy.MaxBytes, multipartOverhead))

	upload, err := h.readUpload(r)
	if err != nil {
		if apperrors.IsClientError(err) {
			logger.Debug().Err(err).Msg("upload rejected")
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		logger.Error().Err(err).Msg("failed to read upload")
		writeError(w, http.StatusInternalServerError, "Failed to upload file")
		return
	}

	key := gallery.ObjectKey(h.now(), upload.FileName)

	err = h.store.Upload(r.Context(), bytes.NewReader(upload.Content), int64(len(upload.Content)), h.s3Bucket, key, upload.ContentType)
	if err != nil {
		logger.Error().Err(err).Str("key", key).Msg("object store upload failed")
		writeError(w, http.StatusInternalServerError, "Failed to upload file")
		return
	}

	logger.Info().Str("key", key).Int("size", len(upload.Content)).Str("content_type", upload.ContentType).Msg("file uploaded")

	writeJSON(w, http.StatusOK, models.UploadResponse{
		Message:  "File uploaded successfully",
		FileName: key,
		FileURL:  gallery.PublicURL(h.opts.PublicBaseURL, key),
	})
}

// readUpload finds the file part and validates it. The content type is
// checked from the part header before any of the body is read.
func (h *APIHandler) readUpload(r *http.Request) (*models.Upload, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, apperrors.ErrNoFile
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return nil, apperrors.ErrNoFile
		}
		if err != nil {
			return nil, h.bodyError(err)
		}

		if part.FormName() != uploadField || part.FileName() == "" {
			_ = part.Close()
			continue
		}

		return h.readPart(part)
	}
}

func (h *APIHandler) readPart(part *multipart.Part) (*models.Upload, error) {
	defer part.Close()

	policy := h.opts.Policy
	contentType := strings.TrimSpace(part.Header.Get("Content-Type"))

	if err := policy.CheckType(contentType); err != nil {
		return nil, err
	}

	content, err := io.ReadAll(io.LimitReader(part, addCapped(policy.MaxBytes, 1)))
	if err != nil {
		return nil, h.bodyError(err)
	}

	if err := policy.CheckSize(int64(len(content))); err != nil {
		return nil, err
	}

	return &models.Upload{
		FileName:    part.FileName(),
		ContentType: contentType,
		Content:     content,
	}, nil
}

func (h *APIHandler) bodyError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return fmt.Errorf("%w: limit is %d bytes", apperrors.ErrFileTooLarge, h.opts.Policy.MaxBytes)
	}
	return fmt.Errorf("%w: %v", apperrors.ErrMalformedUpload, err)
}

// addCapped adds a non-negative extra to n, saturating at math.MaxInt64.
func addCapped(n, extra int64) int64 {
	if n > math.MaxInt64-extra {
		return math.MaxInt64
	}
	return n + extra
}

// ListFiles returns the most recent uploads, newest first.
func (h *APIHandler) ListFiles(w http.ResponseWriter, r *http.Request) {

	noCache(w)

	objects, err := h.store.List(r.Context(), h.s3Bucket, gallery.ListFetchLimit)
	if err != nil {
		requestLogger(r).Error().Err(err).Msg("object store list failed")
		writeError(w, http.StatusInternalServerError, "Failed to list files")
		return
	}

	recent := gallery.Recent(objects, gallery.RecentLimit)
	writeJSON(w, http.StatusOK, gallery.Entries(h.opts.PublicBaseURL, recent))
}

func (h *APIHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
