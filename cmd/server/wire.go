//go:build wireinject
// +build wireinject

package main

import (
	"lostfound_backend/internal/app"
	"lostfound_backend/internal/claim"
	"lostfound_backend/internal/config"
	"lostfound_backend/internal/filestorage"
	"lostfound_backend/internal/firebase"
	"lostfound_backend/internal/item"
	"lostfound_backend/internal/jobs"
	"lostfound_backend/internal/message"
	"lostfound_backend/internal/middleware"
	"lostfound_backend/internal/notification"
	"lostfound_backend/internal/platform/database"
	"lostfound_backend/internal/platform/elasticsearch"
	"lostfound_backend/internal/platform/logger"
	"lostfound_backend/internal/realtime"
	"lostfound_backend/internal/user"

	"github.com/google/wire"
)

var platformSet = wire.NewSet(
	logger.New,
	provideDB,
	database.NewTransactor,
	elasticsearch.NewClient,
	firebase.NewFirebaseService,
	filestorage.NewStore,
	provideImageProcessor,
	filestorage.NewService,
	realtime.NewHub,
	realtime.NewTicketIssuer,
	realtime.NewHandler,
)

var domainSet = wire.NewSet(
	notification.NewGORMRepository,
	notification.NewService,
	notification.NewHandler,
	wire.Bind(new(notification.Service), new(*notification.ServiceImplementation)),
	wire.Bind(new(notification.Publisher), new(*realtime.Hub)),
	wire.Bind(new(notification.AdminDirectory), new(user.Repository)),

	user.NewGORMRepository,
	user.NewService,
	user.NewHandler,
	wire.Bind(new(user.Service), new(*user.ServiceImplementation)),
	wire.Bind(new(user.SessionRevoker), new(*firebase.FirebaseService)),

	item.NewGORMRepository,
	item.NewIndexer,
	item.NewService,
	item.NewHandler,
	wire.Bind(new(item.Service), new(*item.ServiceImplementation)),
	wire.Bind(new(item.Indexer), new(*item.ESIndexer)),
	wire.Bind(new(item.ImageStore), new(*filestorage.Service)),

	message.NewGORMRepository,
	message.NewService,
	message.NewHandler,
	wire.Bind(new(message.Service), new(*message.ServiceImplementation)),
	wire.Bind(new(message.ImageStore), new(*filestorage.Service)),

	claim.NewService,
	claim.NewHandler,
	wire.Bind(new(claim.Service), new(*claim.ServiceImplementation)),
	wire.Bind(new(claim.ImageStore), new(*filestorage.Service)),

	jobs.NewMessageReapJob,
	wire.Bind(new(jobs.Reaper), new(*message.ServiceImplementation)),
)

// initializeApplication is the main Wire injector.
func initializeApplication(cfg *config.Config) (*application, func(), error) {
	wire.Build(
		platformSet,
		domainSet,
		wire.Bind(new(middleware.TokenVerifier), new(*firebase.FirebaseService)),
		wire.Bind(new(middleware.UserProvisioner), new(*user.ServiceImplementation)),
		wire.Struct(new(app.Handlers), "*"),
		app.NewServer,
		wire.Struct(new(application), "*"),
	)
	return nil, nil, nil
}
