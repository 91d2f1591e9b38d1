package notification

import (
	"lostfound_backend/internal/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes sets up the routes for notification operations.
// All routes in this group are authenticated.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := router.Group("/notifications", authMW)
	g.GET("", h.getNotifications)
	g.POST("/read-all", h.markAllNotificationsAsRead)
	g.POST("/:notification_id/read", h.markNotificationAsRead)
	g.DELETE("/:notification_id", h.deleteNotification)
}

func (h *Handler) getNotifications(c *gin.Context) {
	actor, err := common.ActorFromContext(c)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	page, pageSize := common.GetPaginationParams(c)

	result, err := h.service.List(c.Request.Context(), actor.ID, page, pageSize)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondPaginated(c, "Notifications retrieved successfully.", result, common.NewPagination(result.Total, page, pageSize))
}

func (h *Handler) markNotificationAsRead(c *gin.Context) {
	actor, err := common.ActorFromContext(c)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	notificationID, err := common.ParseUUIDParam(c, "notification_id")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	if err := h.service.MarkAsRead(c.Request.Context(), actor.ID, notificationID); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Notification marked as read.", nil)
}

func (h *Handler) markAllNotificationsAsRead(c *gin.Context) {
	actor, err := common.ActorFromContext(c)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	n, err := h.service.MarkAllAsRead(c.Request.Context(), actor.ID)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "All notifications marked as read.", gin.H{"updated": n})
}

func (h *Handler) deleteNotification(c *gin.Context) {
	actor, err := common.ActorFromContext(c)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	notificationID, err := common.ParseUUIDParam(c, "notification_id")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	if err := h.service.Delete(c.Request.Context(), actor.ID, notificationID); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Notification deleted.", nil)
}
