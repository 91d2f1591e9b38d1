package filestorage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"

	"lostfound_backend/internal/common"
	"lostfound_backend/internal/imaging"

	"go.uber.org/zap"
)

// Service stores uploaded images after normalising them.
type Service struct {
	store     Store
	processor *imaging.Processor
	logger    *zap.Logger
}

// NewService wires a Store with an image processor.
func NewService(store Store, processor *imaging.Processor, logger *zap.Logger) *Service {
	return &Service{store: store, processor: processor, logger: logger}
}

// SaveImage validates and re-encodes the upload, then stores it under subDir.
func (s *Service) SaveImage(ctx context.Context, fileHeader *multipart.FileHeader, subDir string) (StoredFile, error) {
	if fileHeader == nil {
		return StoredFile{}, common.ErrBadRequest.WithMessage("Image file is required")
	}

	src, err := fileHeader.Open()
	if err != nil {
		s.logger.Error("Failed to open uploaded file", zap.Error(err))
		return StoredFile{}, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	img, err := s.processor.Process(src)
	switch {
	case errors.Is(err, imaging.ErrTooLarge):
		return StoredFile{}, common.ErrBadRequest.WithMessage("Image is too large")
	case errors.Is(err, imaging.ErrUnsupportedFormat):
		return StoredFile{}, common.ErrBadRequest.WithMessage("Only JPEG and PNG images are accepted")
	case err != nil:
		return StoredFile{}, err
	}

	return s.store.Put(ctx, bytes.NewReader(img.Data), subDir, img.Ext)
}

// Delete removes a stored object. Empty keys are ignored.
func (s *Service) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	return s.store.Delete(ctx, key)
}
