// File: internal/user/handler.go
package user

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"lostfound_backend/internal/common"
)

// Handler struct holds dependencies for user handlers.
type Handler struct {
	service Service
	logger  *zap.Logger
}

// NewHandler creates a new user handler.
func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger.Named("UserHandler"),
	}
}

// RegisterRoutes sets up the routes for user operations.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW gin.HandlerFunc, adminRoleMW gin.HandlerFunc) {
	userGroup := router.Group("/users", authMW)
	{
		userGroup.GET("/me", h.getMe)
	}

	adminGroup := router.Group("/admin/users", authMW, adminRoleMW)
	{
		adminGroup.GET("", h.listUsers)
		adminGroup.POST("/:user_id/toggle-active", h.toggleActive)
	}
}

func (h *Handler) getMe(c *gin.Context) {
	actor, err := common.ActorFromContext(c)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	usr, err := h.service.GetUserByID(c.Request.Context(), actor.ID)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "User profile retrieved successfully.", ToUserResponse(usr))
}

func (h *Handler) listUsers(c *gin.Context) {
	page, pageSize := common.GetPaginationParams(c)
	users, total, err := h.service.ListUsers(c.Request.Context(), page, pageSize)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondPaginated(c, "Users retrieved successfully.", ToUserResponses(users), common.NewPagination(total, page, pageSize))
}

func (h *Handler) toggleActive(c *gin.Context) {
	actor, err := common.ActorFromContext(c)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	id, err := common.ParseUUIDParam(c, "user_id")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	usr, err := h.service.ToggleActive(c.Request.Context(), actor, id)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "User status updated.", ToUserResponse(usr))
}
