package filestorage

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	cldconfig "github.com/cloudinary/cloudinary-go/v2/config"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// cloudinaryAPI is the part of uploader.API the store calls.
type cloudinaryAPI interface {
	Upload(ctx context.Context, file interface{}, uploadParams uploader.UploadParams) (*uploader.UploadResult, error)
	Destroy(ctx context.Context, params uploader.DestroyParams) (*uploader.DestroyResult, error)
}

// CloudinaryStore uploads files to a Cloudinary folder.
type CloudinaryStore struct {
	api    cloudinaryAPI
	folder string
	logger *zap.Logger
}

// NewCloudinaryStore builds a store from Cloudinary credentials.
func NewCloudinaryStore(cloudName, apiKey, apiSecret, folder string, logger *zap.Logger) (*CloudinaryStore, error) {
	cfg, err := cldconfig.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("cloudinary config: %w", err)
	}
	api, err := uploader.NewWithConfiguration(cfg)
	if err != nil {
		return nil, fmt.Errorf("cloudinary uploader: %w", err)
	}
	logger.Info("Cloudinary file storage initialized", zap.String("cloud_name", cloudName), zap.String("folder", folder))
	return newCloudinaryStore(api, folder, logger), nil
}

func newCloudinaryStore(api cloudinaryAPI, folder string, logger *zap.Logger) *CloudinaryStore {
	return &CloudinaryStore{api: api, folder: folder, logger: logger}
}

// Put uploads r. The returned key is the Cloudinary public ID.
func (s *CloudinaryStore) Put(ctx context.Context, r io.Reader, subDir, _ string) (StoredFile, error) {
	res, err := s.api.Upload(ctx, r, uploader.UploadParams{
		Folder:   path.Join(s.folder, subDir),
		PublicID: uuid.New().String(),
	})
	if err != nil {
		s.logger.Error("Cloudinary upload failed", zap.String("subDir", subDir), zap.Error(err))
		return StoredFile{}, fmt.Errorf("cloudinary upload: %w", err)
	}
	if res.Error.Message != "" {
		s.logger.Error("Cloudinary rejected upload", zap.String("reason", res.Error.Message))
		return StoredFile{}, fmt.Errorf("cloudinary upload: %s", res.Error.Message)
	}
	s.logger.Info("File uploaded to Cloudinary", zap.String("public_id", res.PublicID))
	return StoredFile{Key: res.PublicID, URL: res.SecureURL}, nil
}

// Delete destroys the asset with public ID key.
func (s *CloudinaryStore) Delete(ctx context.Context, key string) error {
	if key == "" {
		return fmt.Errorf("public id cannot be empty")
	}
	res, err := s.api.Destroy(ctx, uploader.DestroyParams{PublicID: key})
	if err != nil {
		s.logger.Error("Cloudinary destroy failed", zap.String("public_id", key), zap.Error(err))
		return fmt.Errorf("cloudinary destroy: %w", err)
	}
	if res.Result != "ok" && res.Result != "not found" {
		return fmt.Errorf("cloudinary destroy %s: %s", key, res.Result)
	}
	s.logger.Info("Cloudinary asset deleted", zap.String("public_id", key), zap.String("result", res.Result))
	return nil
}
