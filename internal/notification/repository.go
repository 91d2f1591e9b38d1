package notification

import (
	"context"
	"errors"
	"fmt"

	"lostfound_backend/internal/common"
	"lostfound_backend/internal/platform/database"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	CreateBatch(ctx context.Context, notifications []*Notification) error
	ListByUser(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]Notification, int64, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int64, error)
	MarkAsRead(ctx context.Context, notificationID, userID uuid.UUID) error
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error)
	Delete(ctx context.Context, notificationID, userID uuid.UUID) error
	DeleteByRelated(ctx context.Context, relatedID uuid.UUID) (int64, error)
}

// GORMRepository implements the Repository interface using GORM.
type GORMRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates a new GORM notification repository.
func NewGORMRepository(db *gorm.DB) Repository {
	return &GORMRepository{db: db}
}

func (r *GORMRepository) CreateBatch(ctx context.Context, notifications []*Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	if err := database.Conn(ctx, r.db).Create(notifications).Error; err != nil {
		return fmt.Errorf("failed to create notifications: %w", err)
	}
	return nil
}

// ListByUser returns a page of the user's notifications, newest first.
func (r *GORMRepository) ListByUser(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]Notification, int64, error) {
	var (
		notifications []Notification
		total         int64
	)
	db := database.Conn(ctx, r.db)
	if err := db.Model(&Notification{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("counting notifications for user %s failed: %w", userID, err)
	}
	err := db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(pageSize).
		Offset(common.Offset(page, pageSize)).
		Find(&notifications).Error
	if err != nil {
		return nil, 0, fmt.Errorf("fetching notifications for user %s failed: %w", userID, err)
	}
	return notifications, total, nil
}

func (r *GORMRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	err := database.Conn(ctx, r.db).Model(&Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("counting unread notifications for user %s failed: %w", userID, err)
	}
	return n, nil
}

// MarkAsRead marks one of the user's notifications read. Marking twice is not an error.
func (r *GORMRepository) MarkAsRead(ctx context.Context, notificationID, userID uuid.UUID) error {
	db := database.Conn(ctx, r.db)
	var existing Notification
	if err := db.Select("id").Where("id = ? AND user_id = ?", notificationID, userID).First(&existing).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return common.ErrNotFound.WithMessage("Notification not found")
		}
		return fmt.Errorf("failed to find notification %s: %w", notificationID, err)
	}
	if err := db.Model(&Notification{}).Where("id = ?", notificationID).Update("is_read", true).Error; err != nil {
		return fmt.Errorf("failed to mark notification %s as read: %w", notificationID, err)
	}
	return nil
}

func (r *GORMRepository) MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	result := database.Conn(ctx, r.db).Model(&Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to mark all notifications as read for user %s: %w", userID, result.Error)
	}
	return result.RowsAffected, nil
}

func (r *GORMRepository) Delete(ctx context.Context, notificationID, userID uuid.UUID) error {
	result := database.Conn(ctx, r.db).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Delete(&Notification{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete notification %s: %w", notificationID, result.Error)
	}
	if result.RowsAffected == 0 {
		return common.ErrNotFound.WithMessage("Notification not found")
	}
	return nil
}

// DeleteByRelated removes every notification pointing at an entity that is being purged.
func (r *GORMRepository) DeleteByRelated(ctx context.Context, relatedID uuid.UUID) (int64, error) {
	result := database.Conn(ctx, r.db).Where("related_id = ?", relatedID).Delete(&Notification{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete notifications related to %s: %w", relatedID, result.Error)
	}
	return result.RowsAffected, nil
}
