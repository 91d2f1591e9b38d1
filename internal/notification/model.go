package notification

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NotificationType tags what kind of event a notification reports.
type NotificationType string

const (
	TypeItemReported   NotificationType = "item_reported"
	TypeItemIssue      NotificationType = "item_issue"
	TypeItemStatus     NotificationType = "item_status"
	TypeClaimProof     NotificationType = "claim_proof"
	TypeClaimApproved  NotificationType = "claim_approved"
	TypeClaimRejected  NotificationType = "claim_rejected"
	TypeProofRejected  NotificationType = "proof_rejected"
	TypeItemReturned   NotificationType = "item_returned"
	TypeNewMessage     NotificationType = "new_message"
	TypeMessageFlagged NotificationType = "message_reported"
	TypeAccountStatus  NotificationType = "account_status"
)

// Notification is a per-user event record. Only the owner may read or delete it.
type Notification struct {
	ID        uuid.UUID        `gorm:"type:char(36);primaryKey" json:"id"`
	UserID    uuid.UUID        `gorm:"type:char(36);not null;index:idx_notification_user_status" json:"user_id"`
	Type      NotificationType `gorm:"type:varchar(50);not null" json:"type"`
	Title     string           `gorm:"type:varchar(255);not null" json:"title"`
	Message   string           `gorm:"type:text;not null" json:"message"`
	RelatedID *uuid.UUID       `gorm:"type:char(36);index" json:"related_id,omitempty"`
	IsRead    bool             `gorm:"not null;index:idx_notification_user_status" json:"is_read"`
	CreatedAt time.Time        `gorm:"not null;index" json:"created_at"`
}

// TableName specifies the table name for GORM.
func (Notification) TableName() string {
	return "notifications"
}

// BeforeCreate assigns the primary key.
func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}

// Draft is the recipient-independent part of a notification.
type Draft struct {
	Type      NotificationType
	Title     string
	Message   string
	RelatedID *uuid.UUID
}

func (d Draft) forUser(userID uuid.UUID) *Notification {
	return &Notification{
		UserID:    userID,
		Type:      d.Type,
		Title:     d.Title,
		Message:   d.Message,
		RelatedID: d.RelatedID,
	}
}

// ListResult is one page of a user's notifications plus the derived unread count.
type ListResult struct {
	Notifications []Notification `json:"notifications"`
	UnreadCount   int64          `json:"unread_count"`
	Total         int64          `json:"-"`
}

// Event is the payload pushed to connected clients when a notification is stored.
type Event struct {
	Type         string        `json:"type"`
	Notification *Notification `json:"notification"`
}
