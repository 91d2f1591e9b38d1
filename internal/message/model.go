package message

import (
	"time"

	"lostfound_backend/internal/common"

	"github.com/google/uuid"
)

// Message is a direct message between two users, optionally about an item.
// Each participant hides it independently; a reported message is hidden from both.
type Message struct {
	common.BaseModel
	SenderID          uuid.UUID  `gorm:"type:char(36);not null;index:idx_message_pair" json:"sender_id"`
	ReceiverID        uuid.UUID  `gorm:"type:char(36);not null;index:idx_message_pair" json:"receiver_id"`
	ItemID            *uuid.UUID `gorm:"type:char(36);index" json:"item_id,omitempty"`
	Content           string     `gorm:"type:text;not null" json:"content"`
	ImageURL          *string    `gorm:"type:text" json:"image_url,omitempty"`
	ImageKey          *string    `gorm:"type:varchar(512);index" json:"-"`
	IsClaimProof      bool       `gorm:"not null" json:"is_claim_proof"`
	IsRead            bool       `gorm:"not null" json:"is_read"`
	DeletedBySender   bool       `gorm:"not null" json:"-"`
	DeletedByReceiver bool       `gorm:"not null" json:"-"`
	IsReported        bool       `gorm:"not null;index" json:"is_reported"`
	ReportReason      *string    `gorm:"type:text" json:"report_reason,omitempty"`
	ReportedAt        *time.Time `json:"reported_at,omitempty"`
	ReportedBy        *uuid.UUID `gorm:"type:char(36)" json:"reported_by,omitempty"`
}

// TableName specifies the table name for GORM.
func (Message) TableName() string {
	return "messages"
}

// IsParticipant reports whether userID sent or received the message.
func (m *Message) IsParticipant(userID uuid.UUID) bool {
	return m.SenderID == userID || m.ReceiverID == userID
}

// VisibleTo reports whether userID still sees the message in normal views.
func (m *Message) VisibleTo(userID uuid.UUID) bool {
	if m.IsReported {
		return false
	}
	switch userID {
	case m.SenderID:
		return !m.DeletedBySender
	case m.ReceiverID:
		return !m.DeletedByReceiver
	}
	return false
}

// CounterpartOf returns the other participant.
func (m *Message) CounterpartOf(userID uuid.UUID) uuid.UUID {
	if m.SenderID == userID {
		return m.ReceiverID
	}
	return m.SenderID
}

// View is a message as shown to a participant, with the linked item's name and image inlined.
type View struct {
	Message
	ItemName     *string `json:"item_name,omitempty"`
	ItemImageURL *string `json:"item_image_url,omitempty"`
}

// InboxEntry summarises one conversation, newest first.
type InboxEntry struct {
	OtherUserID uuid.UUID `json:"other_user_id"`
	LastMessage View      `json:"last_message"`
	UnreadCount int64     `json:"unread_count"`
}

// SendRequest is the multipart body of POST /messages/send.
type SendRequest struct {
	ReceiverID string `form:"receiver_id" json:"receiver_id" binding:"required,uuid"`
	ItemID     string `form:"item_id" json:"item_id" binding:"omitempty,uuid"`
	Content    string `form:"message" json:"message" binding:"max=5000"`
}

// ReportRequest is the body of POST /messages/{id}/report.
type ReportRequest struct {
	Reason string `json:"reason" binding:"max=2000"`
}

// PurgeResult reports what a bulk self-service purge removed.
type PurgeResult struct {
	Deleted int64 `json:"deleted"`
	Hidden  int64 `json:"hidden"`
}
