package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
)

var (
	// ErrUploadTooLarge indicates the payload exceeded the configured limit.
	ErrUploadTooLarge = errors.New("file exceeds maximum allowed size")
	// ErrUploadTypeNotAllowed indicates the sniffed MIME type is not an image.
	ErrUploadTypeNotAllowed = errors.New("file type not allowed")
)

// FileStorage abstracts the external image store.
type FileStorage interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
}

// UploadService validates and stores profile images for groups, rooms and
// users. Only images pass; the type check sniffs content, never the filename.
type UploadService interface {
	UploadImage(ctx context.Context, file *multipart.FileHeader) (string, string, error)
}

type uploadService struct {
	storage FileStorage
	logger  zerolog.Logger
	maxSize int64
}

// NewUploadService constructs an upload service.
func NewUploadService(storage FileStorage, maxSizeMB int, logger zerolog.Logger) UploadService {
	if maxSizeMB <= 0 {
		maxSizeMB = 10
	}
	return &uploadService{
		storage: storage,
		logger:  logger.With().Str("component", "upload_service").Logger(),
		maxSize: int64(maxSizeMB) * 1024 * 1024,
	}
}

// UploadImage returns the stored asset URL and the detected content type.
func (s *uploadService) UploadImage(ctx context.Context, file *multipart.FileHeader) (string, string, error) {
	if file == nil {
		return "", "", ErrInvalidArgument
	}
	if file.Size > s.maxSize {
		return "", "", ErrUploadTooLarge
	}

	handle, err := file.Open()
	if err != nil {
		return "", "", err
	}
	defer handle.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(handle, s.maxSize+1)); err != nil {
		return "", "", err
	}
	if int64(buf.Len()) > s.maxSize {
		return "", "", ErrUploadTooLarge
	}

	detected := mimetype.Detect(buf.Bytes())
	if !strings.HasPrefix(detected.String(), "image/") {
		return "", "", ErrUploadTypeNotAllowed
	}

	url, err := s.storage.Upload(ctx, file.Filename, bytes.NewReader(buf.Bytes()))
	if err != nil {
		return "", "", err
	}

	s.logger.Info().Str("content_type", detected.String()).Int("size", buf.Len()).Msg("image uploaded")
	return url, detected.String(), nil
}
