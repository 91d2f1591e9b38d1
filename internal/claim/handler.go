package claim

import (
	"errors"
	"io"

	"lostfound_backend/internal/common"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Handler struct holds dependencies for claim workflow handlers.
type Handler struct {
	service Service
	logger  *zap.Logger
}

// NewHandler creates a new claim handler.
func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger.Named("ClaimHandler")}
}

// RegisterRoutes mounts the claim endpoints under the item routes.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW gin.HandlerFunc, adminRoleMW gin.HandlerFunc) {
	itemGroup := router.Group("/items", authMW)
	{
		itemGroup.POST("/:item_id/claim-proof", h.submitProof)
		itemGroup.GET("/:item_id/claim-proof/status", h.proofStatus)
		itemGroup.POST("/:item_id/status", h.ownerStatus)
	}

	adminGroup := router.Group("/admin/items", authMW, adminRoleMW)
	{
		adminGroup.POST("/:item_id/approve-claim", h.approve)
		adminGroup.POST("/:item_id/reject-claim", h.reject)
		adminGroup.POST("/:item_id/reject-proof", h.rejectProof)
		adminGroup.POST("/:item_id/status", h.adminStatus)
		adminGroup.GET("/:item_id/claim-proof", h.latestProof)
		adminGroup.GET("/:item_id/claim-proofs", h.listProofs)
	}
}

// actorAndItem reads the caller and the :item_id path parameter.
func actorAndItem(c *gin.Context) (common.Actor, uuid.UUID, error) {
	actor, err := common.ActorFromContext(c)
	if err != nil {
		return actor, uuid.Nil, err
	}
	id, err := common.ParseUUIDParam(c, "item_id")
	return actor, id, err
}

// optionalUUID parses a validated, possibly empty identifier.
func optionalUUID(s string) *uuid.UUID {
	if s == "" {
		return nil
	}
	id := uuid.MustParse(s)
	return &id
}

func (h *Handler) submitProof(c *gin.Context) {
	actor, itemID, err := actorAndItem(c)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	var req SubmitProofRequest
	if err := c.ShouldBind(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	image, err := common.OptionalFormFile(c, "image")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	msg, err := h.service.SubmitProof(c.Request.Context(), actor, itemID, req.Note, image)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "Claim proof submitted.", msg)
}

func (h *Handler) proofStatus(c *gin.Context) {
	actor, itemID, err := actorAndItem(c)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	status, err := h.service.ProofStatus(c.Request.Context(), actor, itemID)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Claim proof status.", status)
}

func (h *Handler) ownerStatus(c *gin.Context) {
	actor, itemID, err := actorAndItem(c)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	it, err := h.service.OwnerUpdateStatus(c.Request.Context(), actor, itemID, req.Status)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Item status updated.", it)
}

func (h *Handler) approve(c *gin.Context) {
	actor, itemID, err := actorAndItem(c)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	var req ApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	it, err := h.service.ApproveClaim(c.Request.Context(), actor, itemID, optionalUUID(req.ClaimerID))
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Claim approved.", it)
}

func (h *Handler) reject(c *gin.Context) {
	actor, itemID, err := actorAndItem(c)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	it, err := h.service.RejectClaim(c.Request.Context(), actor, itemID)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Claim rejected.", it)
}

func (h *Handler) rejectProof(c *gin.Context) {
	actor, itemID, err := actorAndItem(c)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	var req RejectProofRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	if err := h.service.RejectProof(c.Request.Context(), actor, itemID, uuid.MustParse(req.ClaimerID), req.Reason); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Claimant notified.", nil)
}

func (h *Handler) adminStatus(c *gin.Context) {
	actor, itemID, err := actorAndItem(c)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	it, err := h.service.AdminOverrideStatus(c.Request.Context(), actor, itemID, req.Status, optionalUUID(req.ClaimerID))
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Item status updated.", it)
}

func (h *Handler) latestProof(c *gin.Context) {
	itemID, err := common.ParseUUIDParam(c, "item_id")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	proof, err := h.service.LatestProof(c.Request.Context(), itemID)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Latest claim proof.", proof)
}

func (h *Handler) listProofs(c *gin.Context) {
	itemID, err := common.ParseUUIDParam(c, "item_id")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	proofs, err := h.service.ListProofs(c.Request.Context(), itemID)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Claim proofs.", proofs)
}
