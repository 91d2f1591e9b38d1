package message

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lostfound_backend/internal/common"
	"lostfound_backend/internal/platform/database"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines persistence for messages. Every method joins the
// transaction carried by ctx, if any.
type Repository interface {
	Create(ctx context.Context, msg *Message) error
	FindByID(ctx context.Context, id uuid.UUID) (*Message, error)
	// Conversation returns the messages between userID and otherID that userID can still see, oldest first.
	Conversation(ctx context.Context, userID, otherID uuid.UUID) ([]Message, error)
	MarkConversationRead(ctx context.Context, receiverID, senderID uuid.UUID) (int64, error)
	// Visible returns every message userID can see, newest first.
	Visible(ctx context.Context, userID uuid.UUID) ([]Message, error)
	HideForSender(ctx context.Context, id uuid.UUID) error
	HideForReceiver(ctx context.Context, id uuid.UUID) error
	// MarkReported flags a message once; it reports false when it was already flagged.
	MarkReported(ctx context.Context, id, reporterID uuid.UUID, reason *string) (bool, error)
	ListReported(ctx context.Context, page, pageSize int) ([]Message, int64, error)
	HardDelete(ctx context.Context, id uuid.UUID) error
	// PurgeSent deletes the unreported messages senderID sent and returns their image keys.
	PurgeSent(ctx context.Context, senderID uuid.UUID) ([]string, int64, error)
	HideAllReceived(ctx context.Context, receiverID uuid.UUID) (int64, error)
	ImageInUse(ctx context.Context, key string) (bool, error)

	// LatestProof returns the newest proof addressed to the reporter of itemID.
	LatestProof(ctx context.Context, itemID, reporterID uuid.UUID) (*Message, error)
	Proofs(ctx context.Context, itemID, reporterID uuid.UUID) ([]Message, error)
	HasProofFrom(ctx context.Context, itemID, reporterID, senderID uuid.UUID) (bool, error)

	// DeleteAbandoned removes messages both participants hid before cutoff and returns their image keys.
	DeleteAbandoned(ctx context.Context, cutoff time.Time) ([]string, int64, error)
}

// GORMRepository implements Repository using GORM.
type GORMRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates a new GORM message repository.
func NewGORMRepository(db *gorm.DB) Repository {
	return &GORMRepository{db: db}
}

func (r *GORMRepository) Create(ctx context.Context, msg *Message) error {
	if err := database.Conn(ctx, r.db).Create(msg).Error; err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

func (r *GORMRepository) FindByID(ctx context.Context, id uuid.UUID) (*Message, error) {
	var msg Message
	if err := database.Conn(ctx, r.db).Where("id = ?", id).First(&msg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithMessage("Message not found")
		}
		return nil, fmt.Errorf("failed to find message %s: %w", id, err)
	}
	return &msg, nil
}

// visibleTo restricts a query to messages userID has neither hidden nor seen reported.
func visibleTo(db *gorm.DB, userID uuid.UUID) *gorm.DB {
	return db.Where("is_reported = ?", false).
		Where(db.Session(&gorm.Session{NewDB: true}).
			Where("sender_id = ? AND deleted_by_sender = ?", userID, false).
			Or("receiver_id = ? AND deleted_by_receiver = ?", userID, false))
}

func (r *GORMRepository) Conversation(ctx context.Context, userID, otherID uuid.UUID) ([]Message, error) {
	var msgs []Message
	db := database.Conn(ctx, r.db)
	err := visibleTo(db, userID).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)", userID, otherID, otherID, userID).
		Order("created_at ASC").
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}
	return msgs, nil
}

// MarkConversationRead only touches messages the receiver can still see.
func (r *GORMRepository) MarkConversationRead(ctx context.Context, receiverID, senderID uuid.UUID) (int64, error) {
	result := database.Conn(ctx, r.db).Model(&Message{}).
		Where("receiver_id = ? AND sender_id = ? AND is_read = ?", receiverID, senderID, false).
		Where("deleted_by_receiver = ? AND is_reported = ?", false, false).
		Update("is_read", true)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to mark conversation read: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *GORMRepository) Visible(ctx context.Context, userID uuid.UUID) ([]Message, error) {
	var msgs []Message
	err := visibleTo(database.Conn(ctx, r.db), userID).
		Order("created_at DESC").
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load messages of %s: %w", userID, err)
	}
	return msgs, nil
}

func (r *GORMRepository) hide(ctx context.Context, id uuid.UUID, column string) error {
	result := database.Conn(ctx, r.db).Model(&Message{}).Where("id = ?", id).
		Updates(map[string]interface{}{column: true, "updated_at": time.Now()})
	if result.Error != nil {
		return fmt.Errorf("failed to hide message %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return common.ErrNotFound.WithMessage("Message not found")
	}
	return nil
}

func (r *GORMRepository) HideForSender(ctx context.Context, id uuid.UUID) error {
	return r.hide(ctx, id, "deleted_by_sender")
}

func (r *GORMRepository) HideForReceiver(ctx context.Context, id uuid.UUID) error {
	return r.hide(ctx, id, "deleted_by_receiver")
}

func (r *GORMRepository) MarkReported(ctx context.Context, id, reporterID uuid.UUID, reason *string) (bool, error) {
	now := time.Now()
	result := database.Conn(ctx, r.db).Model(&Message{}).
		Where("id = ? AND is_reported = ?", id, false).
		Updates(map[string]interface{}{
			"is_reported":   true,
			"report_reason": reason,
			"reported_at":   now,
			"reported_by":   reporterID,
			"updated_at":    now,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to report message %s: %w", id, result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (r *GORMRepository) ListReported(ctx context.Context, page, pageSize int) ([]Message, int64, error) {
	var (
		msgs  []Message
		total int64
	)
	query := database.Conn(ctx, r.db).Model(&Message{}).Where("is_reported = ?", true)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("counting reported messages failed: %w", err)
	}
	err := query.Order("reported_at DESC").
		Limit(pageSize).
		Offset(common.Offset(page, pageSize)).
		Find(&msgs).Error
	if err != nil {
		return nil, 0, fmt.Errorf("listing reported messages failed: %w", err)
	}
	return msgs, total, nil
}

func (r *GORMRepository) HardDelete(ctx context.Context, id uuid.UUID) error {
	result := database.Conn(ctx, r.db).Where("id = ?", id).Delete(&Message{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete message %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return common.ErrNotFound.WithMessage("Message not found")
	}
	return nil
}

// deleteWithKeys removes every row matched by scope and returns the distinct image keys they held.
func (r *GORMRepository) deleteWithKeys(ctx context.Context, scope func(*gorm.DB) *gorm.DB) ([]string, int64, error) {
	db := database.Conn(ctx, r.db)
	var keys []string
	err := scope(db.Model(&Message{})).
		Where("image_key IS NOT NULL").
		Distinct().
		Pluck("image_key", &keys).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to collect image keys: %w", err)
	}
	result := scope(db).Delete(&Message{})
	if result.Error != nil {
		return nil, 0, fmt.Errorf("failed to delete messages: %w", result.Error)
	}
	return keys, result.RowsAffected, nil
}

func (r *GORMRepository) PurgeSent(ctx context.Context, senderID uuid.UUID) ([]string, int64, error) {
	return r.deleteWithKeys(ctx, func(db *gorm.DB) *gorm.DB {
		return db.Where("sender_id = ? AND is_reported = ?", senderID, false)
	})
}

func (r *GORMRepository) HideAllReceived(ctx context.Context, receiverID uuid.UUID) (int64, error) {
	result := database.Conn(ctx, r.db).Model(&Message{}).
		Where("receiver_id = ? AND deleted_by_receiver = ?", receiverID, false).
		Updates(map[string]interface{}{"deleted_by_receiver": true, "updated_at": time.Now()})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to hide received messages: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *GORMRepository) ImageInUse(ctx context.Context, key string) (bool, error) {
	var n int64
	if err := database.Conn(ctx, r.db).Model(&Message{}).Where("image_key = ?", key).Count(&n).Error; err != nil {
		return false, fmt.Errorf("failed to count image references: %w", err)
	}
	return n > 0, nil
}

// proofs matches the live claim proofs addressed to the reporter of itemID.
// Copies sent to administrators are excluded so each submission counts once.
// A proof the sender has hidden counts as withdrawn.
func (r *GORMRepository) proofs(ctx context.Context, itemID, reporterID uuid.UUID) *gorm.DB {
	return database.Conn(ctx, r.db).Model(&Message{}).
		Where("item_id = ? AND receiver_id = ? AND sender_id <> ?", itemID, reporterID, reporterID).
		Where("is_reported = ? AND deleted_by_sender = ?", false, false).
		Where("is_claim_proof = ? OR image_url IS NOT NULL", true)
}

func (r *GORMRepository) LatestProof(ctx context.Context, itemID, reporterID uuid.UUID) (*Message, error) {
	var msg Message
	err := r.proofs(ctx, itemID, reporterID).Order("created_at DESC").First(&msg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithMessage("No claim proof found")
		}
		return nil, fmt.Errorf("failed to find latest proof for item %s: %w", itemID, err)
	}
	return &msg, nil
}

func (r *GORMRepository) Proofs(ctx context.Context, itemID, reporterID uuid.UUID) ([]Message, error) {
	var msgs []Message
	if err := r.proofs(ctx, itemID, reporterID).Order("created_at DESC").Find(&msgs).Error; err != nil {
		return nil, fmt.Errorf("failed to list proofs for item %s: %w", itemID, err)
	}
	return msgs, nil
}

func (r *GORMRepository) HasProofFrom(ctx context.Context, itemID, reporterID, senderID uuid.UUID) (bool, error) {
	var n int64
	if err := r.proofs(ctx, itemID, reporterID).Where("sender_id = ?", senderID).Count(&n).Error; err != nil {
		return false, fmt.Errorf("failed to check proof for item %s: %w", itemID, err)
	}
	return n > 0, nil
}

func (r *GORMRepository) DeleteAbandoned(ctx context.Context, cutoff time.Time) ([]string, int64, error) {
	return r.deleteWithKeys(ctx, func(db *gorm.DB) *gorm.DB {
		return db.Where("deleted_by_sender = ? AND deleted_by_receiver = ? AND is_reported = ? AND updated_at < ?",
			true, true, false, cutoff)
	})
}
