package message

import (
	"errors"
	"io"

	"lostfound_backend/internal/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler struct holds dependencies for message handlers.
type Handler struct {
	service Service
	logger  *zap.Logger
}

// NewHandler creates a new message handler.
func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger.Named("MessageHandler")}
}

// RegisterRoutes sets up the routes for messaging.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW gin.HandlerFunc, adminRoleMW gin.HandlerFunc) {
	msgGroup := router.Group("/messages", authMW)
	{
		msgGroup.GET("", h.inbox)
		msgGroup.POST("/send", h.send)
		msgGroup.GET("/conversation/:user_id", h.conversation)
		msgGroup.POST("/delete-all", h.deleteAll)
		msgGroup.DELETE("/:message_id", h.delete)
		msgGroup.POST("/:message_id/report", h.report)
	}

	adminGroup := router.Group("/admin/messages", authMW, adminRoleMW)
	{
		adminGroup.GET("/reported", h.listReported)
		adminGroup.DELETE("/:message_id", h.adminDelete)
	}
}

func (h *Handler) inbox(c *gin.Context) {
	actor, err := common.ActorFromContext(c)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	entries, err := h.service.Inbox(c.Request.Context(), actor)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Conversations retrieved successfully.", entries)
}

func (h *Handler) send(c *gin.Context) {
	actor, err := common.ActorFromContext(c)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	var req SendRequest
	if err := c.ShouldBind(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	image, err := common.OptionalFormFile(c, "image")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	msg, err := h.service.Send(c.Request.Context(), actor, req, image)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "Message sent.", msg)
}

func (h *Handler) conversation(c *gin.Context) {
	actor, err := common.ActorFromContext(c)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	otherID, err := common.ParseUUIDParam(c, "user_id")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	views, err := h.service.Conversation(c.Request.Context(), actor, otherID)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Conversation retrieved successfully.", views)
}

func (h *Handler) delete(c *gin.Context) {
	actor, err := common.ActorFromContext(c)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	id, err := common.ParseUUIDParam(c, "message_id")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	if err := h.service.Delete(c.Request.Context(), actor, id); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Message deleted.", nil)
}

func (h *Handler) report(c *gin.Context) {
	actor, err := common.ActorFromContext(c)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	id, err := common.ParseUUIDParam(c, "message_id")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	// The reason is optional, so an empty body is accepted.
	var req ReportRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	if err := h.service.Report(c.Request.Context(), actor, id, req.Reason); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Message reported to administrators.", nil)
}

func (h *Handler) deleteAll(c *gin.Context) {
	actor, err := common.ActorFromContext(c)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	result, err := h.service.DeleteAll(c.Request.Context(), actor)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Messages deleted.", result)
}

func (h *Handler) listReported(c *gin.Context) {
	page, pageSize := common.GetPaginationParams(c)
	msgs, total, err := h.service.ListReported(c.Request.Context(), page, pageSize)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondPaginated(c, "Reported messages retrieved successfully.", msgs, common.NewPagination(total, page, pageSize))
}

func (h *Handler) adminDelete(c *gin.Context) {
	actor, err := common.ActorFromContext(c)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	id, err := common.ParseUUIDParam(c, "message_id")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	if err := h.service.AdminDelete(c.Request.Context(), actor, id); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Message permanently deleted.", nil)
}
