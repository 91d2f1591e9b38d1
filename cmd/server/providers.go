package main

import (
	"log"

	"lostfound_backend/internal/app"
	"lostfound_backend/internal/config"
	"lostfound_backend/internal/imaging"
	"lostfound_backend/internal/item"
	"lostfound_backend/internal/jobs"
	"lostfound_backend/internal/platform/database"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// application is what the injector hands to the CLI commands.
type application struct {
	Server         *app.Server
	Items          item.Service
	Indexer        item.Indexer
	MessageReapJob *jobs.MessageReapJob
	Logger         *zap.Logger
}

// provideDB opens the pool, migrates when DB_AUTO_MIGRATE is set and
// returns a cleanup that closes it and flushes the logger.
func provideDB(cfg *config.Config, logger *zap.Logger) (*gorm.DB, func(), error) {
	db, err := database.NewGORM(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		logger.Info("Executing cleanup tasks...")
		database.CloseGORMDB(db, logger)
		if err := logger.Sync(); err != nil {
			log.Printf("ERROR: Failed to sync logger during cleanup: %v", err)
		}
	}
	if cfg.DBAutoMigrate {
		if err := database.AutoMigrate(db, logger, app.Models()...); err != nil {
			cleanup()
			return nil, nil, err
		}
	}
	return db, cleanup, nil
}

func provideImageProcessor(cfg *config.Config) *imaging.Processor {
	return imaging.NewProcessor(cfg.ImageMaxDimension, cfg.UploadMaxBytes)
}
