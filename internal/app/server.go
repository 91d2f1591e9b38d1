// File: internal/app/server.go
package app

import (
	"context"
	"net/http"
	"strings"
	"time"

	"lostfound_backend/internal/claim"
	"lostfound_backend/internal/common"
	"lostfound_backend/internal/config"
	"lostfound_backend/internal/filestorage"
	"lostfound_backend/internal/item"
	"lostfound_backend/internal/jobs"
	"lostfound_backend/internal/message"
	"lostfound_backend/internal/middleware"
	"lostfound_backend/internal/notification"
	"lostfound_backend/internal/realtime"
	"lostfound_backend/internal/user"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handlers groups every HTTP module mounted under /api/v1.
type Handlers struct {
	User         *user.Handler
	Item         *item.Handler
	Message      *message.Handler
	Claim        *claim.Handler
	Notification *notification.Handler
	Realtime     *realtime.Handler
}

// Server struct holds the dependencies for the HTTP server.
type Server struct {
	httpServer *http.Server
	router     *gin.Engine
	cfg        *config.Config
	logger     *zap.Logger

	messageReapJob *jobs.MessageReapJob
}

// NewServer creates a new instance of our application server.
func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	handlers Handlers,
	verifier middleware.TokenVerifier,
	users middleware.UserProvisioner,
	store filestorage.Store,
	messageReapJob *jobs.MessageReapJob,
) (*Server, error) {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.MaxMultipartMemory = cfg.UploadMaxBytes

	// --- Global Middleware ---
	router.Use(middleware.ZapLogger(logger, cfg))
	router.Use(middleware.ErrorHandler(logger))
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader}
	corsConfig.AllowCredentials = true
	corsConfig.ExposeHeaders = []string{"Content-Length", middleware.RequestIDHeader}
	if len(corsConfig.AllowOrigins) == 0 {
		corsConfig.AllowOrigins = nil
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowCredentials = false
	}
	router.Use(cors.New(corsConfig))

	router.NoRoute(middleware.NoRoute)
	router.NoMethod(middleware.NoMethod)

	authMW := middleware.AuthMiddleware(verifier, users, logger.Named("AuthMiddleware"))
	adminRoleMW := middleware.RoleAuthMiddleware(common.RoleAdmin)

	// --- Setup Routes ---
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP", "message": "Lost & Found API is healthy!"})
	})

	if local, ok := store.(*filestorage.LocalStore); ok && strings.HasPrefix(cfg.StoragePublicBaseURL, "/") {
		router.Static(cfg.StoragePublicBaseURL, local.Root())
	}

	v1 := router.Group("/api/v1")
	handlers.User.RegisterRoutes(v1, authMW, adminRoleMW)
	handlers.Item.RegisterRoutes(v1, authMW, adminRoleMW)
	handlers.Claim.RegisterRoutes(v1, authMW, adminRoleMW)
	handlers.Message.RegisterRoutes(v1, authMW, adminRoleMW)
	handlers.Notification.RegisterRoutes(v1, authMW)
	handlers.Realtime.RegisterRoutes(v1, authMW)

	timeout := cfg.ServerTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       timeout,
		// The websocket endpoint hijacks its connection, so the write timeout only bounds regular responses.
		WriteTimeout: timeout,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer:     httpServer,
		router:         router,
		cfg:            cfg,
		logger:         logger,
		messageReapJob: messageReapJob,
	}, nil
}

// Router exposes the engine for in-process tests.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	if s.messageReapJob != nil {
		if err := s.messageReapJob.SetupAndStart(); err != nil {
			s.logger.Error("Failed to setup and start message reap job", zap.Error(err))
		}
	} else {
		s.logger.Info("Message reap job is not configured, skipping start.")
	}

	s.logger.Info("HTTP Server starting",
		zap.String("address", s.httpServer.Addr),
		zap.String("gin_mode", s.cfg.GinMode),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.logger.Error("Failed to start HTTP server", zap.Error(err))
		return err
	}
	s.logger.Info("HTTP Server stopped")
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Attempting graceful server shutdown...")
	if s.messageReapJob != nil {
		s.messageReapJob.Stop()
	}
	return s.httpServer.Shutdown(ctx)
}
