package filestorage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LocalStore keeps files on the local disk below a base directory.
type LocalStore struct {
	storagePath   string
	publicBaseURL string
	logger        *zap.Logger
}

// NewLocalStore creates the base directory if needed.
func NewLocalStore(storagePath, publicBaseURL string, logger *zap.Logger) (*LocalStore, error) {
	if storagePath == "" {
		return nil, fmt.Errorf("storage path cannot be empty")
	}
	if err := os.MkdirAll(storagePath, os.ModePerm); err != nil {
		logger.Error("Failed to create storage path directory", zap.String("path", storagePath), zap.Error(err))
		return nil, fmt.Errorf("failed to create storage path %s: %w", storagePath, err)
	}
	logger.Info("Local file storage initialized", zap.String("storagePath", storagePath))
	return &LocalStore{
		storagePath:   storagePath,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		logger:        logger,
	}, nil
}

// Root is the directory served as static content.
func (s *LocalStore) Root() string { return s.storagePath }

// Put writes r to <storagePath>/<subDir>/<uuid><ext>.
func (s *LocalStore) Put(_ context.Context, r io.Reader, subDir, ext string) (StoredFile, error) {
	if r == nil {
		return StoredFile{}, fmt.Errorf("reader cannot be nil")
	}
	cleanSubDir := filepath.Clean(subDir)
	if strings.HasPrefix(cleanSubDir, "..") || filepath.IsAbs(cleanSubDir) {
		s.logger.Error("Invalid subDir, attempts to leave storage path", zap.String("subDir", subDir))
		return StoredFile{}, fmt.Errorf("invalid subDir path")
	}

	destinationDir := filepath.Join(s.storagePath, cleanSubDir)
	if err := os.MkdirAll(destinationDir, os.ModePerm); err != nil {
		s.logger.Error("Failed to create sub-directory for file storage", zap.String("path", destinationDir), zap.Error(err))
		return StoredFile{}, fmt.Errorf("failed to create directory %s: %w", destinationDir, err)
	}

	filename := uuid.New().String() + ext
	destinationPath := filepath.Join(destinationDir, filename)
	dst, err := os.Create(destinationPath)
	if err != nil {
		s.logger.Error("Failed to create destination file", zap.String("path", destinationPath), zap.Error(err))
		return StoredFile{}, fmt.Errorf("failed to create file %s: %w", destinationPath, err)
	}
	defer dst.Close()

	if _, err = io.Copy(dst, r); err != nil {
		s.logger.Error("Failed to write file", zap.String("path", destinationPath), zap.Error(err))
		os.Remove(destinationPath)
		return StoredFile{}, fmt.Errorf("failed to save file: %w", err)
	}

	key := filepath.ToSlash(filepath.Join(cleanSubDir, filename))
	s.logger.Info("File saved", zap.String("path", destinationPath))
	return StoredFile{Key: key, URL: s.publicBaseURL + "/" + key}, nil
}

// Delete removes the file at key. Missing files are not an error.
func (s *LocalStore) Delete(_ context.Context, key string) error {
	if key == "" {
		return fmt.Errorf("relative path cannot be empty")
	}
	cleanKey := filepath.Clean(key)
	if strings.Contains(cleanKey, "..") || filepath.IsAbs(cleanKey) {
		s.logger.Warn("Attempt to delete file with path traversal", zap.String("key", key))
		return fmt.Errorf("invalid file path for deletion")
	}

	fullPath := filepath.Join(s.storagePath, cleanKey)
	if err := os.Remove(fullPath); err != nil {
		if os.IsNotExist(err) {
			s.logger.Warn("Attempt to delete non-existent file", zap.String("path", fullPath))
			return nil
		}
		s.logger.Error("Failed to delete file", zap.String("path", fullPath), zap.Error(err))
		return fmt.Errorf("failed to delete file %s: %w", fullPath, err)
	}

	s.logger.Info("File deleted", zap.String("path", fullPath))
	return nil
}
