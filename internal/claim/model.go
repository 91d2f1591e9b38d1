package claim

import "lostfound_backend/internal/item"

// DefaultProofNote is stored when a claimant submits proof without a note.
const DefaultProofNote = "Claim proof submitted"

// SubmitProofRequest is the multipart body of POST /items/{id}/claim-proof.
type SubmitProofRequest struct {
	Note string `form:"note" json:"note" binding:"max=2000"`
}

// ApproveRequest is the optional body of POST /admin/items/{id}/approve-claim.
type ApproveRequest struct {
	ClaimerID string `json:"claimer_id" binding:"omitempty,uuid"`
}

// RejectProofRequest is the body of POST /admin/items/{id}/reject-proof.
type RejectProofRequest struct {
	ClaimerID string `json:"claimer_id" binding:"required,uuid"`
	Reason    string `json:"reason" binding:"max=2000"`
}

// StatusRequest changes an item's status through the owner or administrator flow.
// ClaimerID is only read by the administrator override.
type StatusRequest struct {
	Status    string `json:"status" binding:"required"`
	ClaimerID string `json:"claimer_id" binding:"omitempty,uuid"`
}

// ProofStatus tells a user where their claim on an item stands.
type ProofStatus struct {
	HasSubmitted bool        `json:"has_submitted"`
	IsClaimant   bool        `json:"is_claimant"`
	ItemStatus   item.Status `json:"item_status"`
}
