package item

import (
	"context"
	"mime/multipart"
	"strings"

	"lostfound_backend/internal/common"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Handler struct holds dependencies for item handlers.
type Handler struct {
	service Service
	logger  *zap.Logger
}

// NewHandler creates a new item handler.
func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger.Named("ItemHandler")}
}

// RegisterRoutes sets up the routes for item operations.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW gin.HandlerFunc, adminRoleMW gin.HandlerFunc) {
	itemGroup := router.Group("/items", authMW)
	{
		itemGroup.GET("", h.listOpen)
		itemGroup.GET("/search", h.search)
		itemGroup.GET("/mine", h.listMine)
		itemGroup.POST("/report", h.report)
		itemGroup.GET("/:item_id", h.get)
		itemGroup.PUT("/:item_id", h.update)
		itemGroup.DELETE("/:item_id", h.delete)
		itemGroup.POST("/:item_id/report-issue", h.reportIssue)
	}

	adminGroup := router.Group("/admin/items", authMW, adminRoleMW)
	{
		adminGroup.GET("", h.adminList)
		adminGroup.GET("/stats", h.adminStats)
		adminGroup.PUT("/:item_id", h.adminUpdate)
		adminGroup.DELETE("/:item_id", h.adminDelete)
	}
}

func parseStatuses(raw string) ([]Status, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var out []Status
	for _, part := range strings.Split(raw, ",") {
		st, ok := ParseStatus(part)
		if !ok {
			return nil, common.ErrBadRequest.WithMessage("Invalid status value")
		}
		out = append(out, st)
	}
	return out, nil
}

func (h *Handler) listOpen(c *gin.Context) {
	statuses, err := parseStatuses(c.Query("status"))
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	page, pageSize := common.GetPaginationParams(c)
	items, total, err := h.service.ListOpen(c.Request.Context(), statuses, c.Query("category"), page, pageSize)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondPaginated(c, "Items retrieved successfully.", items, common.NewPagination(total, page, pageSize))
}

func (h *Handler) search(c *gin.Context) {
	statuses, err := parseStatuses(c.Query("status"))
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	page, pageSize := common.GetPaginationParams(c)
	items, total, err := h.service.Search(c.Request.Context(), SearchQuery{
		Text:         strings.TrimSpace(c.Query("q")),
		Statuses:     statuses,
		CategorySlug: c.Query("category"),
		Page:         page,
		PageSize:     pageSize,
	})
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondPaginated(c, "Search results.", items, common.NewPagination(total, page, pageSize))
}

func (h *Handler) listMine(c *gin.Context) {
	actor, err := common.ActorFromContext(c)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	page, pageSize := common.GetPaginationParams(c)
	items, total, err := h.service.ListMine(c.Request.Context(), actor, page, pageSize)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondPaginated(c, "Your items retrieved successfully.", items, common.NewPagination(total, page, pageSize))
}

func (h *Handler) report(c *gin.Context) {
	actor, err := common.ActorFromContext(c)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	var req CreateItemRequest
	if err := c.ShouldBind(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	image, err := common.OptionalFormFile(c, "image")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	it, err := h.service.Report(c.Request.Context(), actor, req, image)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "Item reported successfully.", it)
}

func (h *Handler) get(c *gin.Context) {
	actor, err := common.ActorFromContext(c)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	id, err := common.ParseUUIDParam(c, "item_id")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	it, err := h.service.Get(c.Request.Context(), actor, id)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Item retrieved successfully.", it)
}

func (h *Handler) bindUpdate(c *gin.Context) (common.Actor, UpdateItemRequest, *multipart.FileHeader, error) {
	var req UpdateItemRequest
	actor, err := common.ActorFromContext(c)
	if err != nil {
		return actor, req, nil, err
	}
	if err := c.ShouldBind(&req); err != nil {
		return actor, req, nil, common.BindingError(err)
	}
	image, err := common.OptionalFormFile(c, "image")
	return actor, req, image, err
}

type updateFunc func(ctx context.Context, actor common.Actor, id uuid.UUID, req UpdateItemRequest, image *multipart.FileHeader) (*Item, error)

func (h *Handler) update(c *gin.Context) {
	h.doUpdate(c, h.service.Update)
}

func (h *Handler) adminUpdate(c *gin.Context) {
	h.doUpdate(c, h.service.AdminUpdate)
}

func (h *Handler) doUpdate(c *gin.Context, fn updateFunc) {
	id, err := common.ParseUUIDParam(c, "item_id")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	actor, req, image, err := h.bindUpdate(c)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	it, err := fn(c.Request.Context(), actor, id, req, image)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Item updated successfully.", it)
}

func (h *Handler) delete(c *gin.Context) {
	actor, err := common.ActorFromContext(c)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	id, err := common.ParseUUIDParam(c, "item_id")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	if err := h.service.Delete(c.Request.Context(), actor, id); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Item deleted.", nil)
}

func (h *Handler) reportIssue(c *gin.Context) {
	actor, err := common.ActorFromContext(c)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	id, err := common.ParseUUIDParam(c, "item_id")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	var req ReportIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	if err := h.service.ReportIssue(c.Request.Context(), actor, id, req.Reason); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Issue reported to administrators.", nil)
}

func (h *Handler) adminList(c *gin.Context) {
	statuses, err := parseStatuses(c.Query("status"))
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	page, pageSize := common.GetPaginationParams(c)
	items, total, err := h.service.ListAll(c.Request.Context(), ListFilter{
		Statuses:     statuses,
		CategorySlug: c.Query("category"),
		Page:         page,
		PageSize:     pageSize,
	})
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondPaginated(c, "Items retrieved successfully.", items, common.NewPagination(total, page, pageSize))
}

func (h *Handler) adminStats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Item statistics.", stats)
}

func (h *Handler) adminDelete(c *gin.Context) {
	actor, err := common.ActorFromContext(c)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	id, err := common.ParseUUIDParam(c, "item_id")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	if err := h.service.HardDelete(c.Request.Context(), actor, id); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Item permanently deleted.", nil)
}
