// File: internal/user/repository.go
package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"lostfound_backend/internal/common"
	"lostfound_backend/internal/platform/database"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines the interface for user data operations.
type Repository interface {
	Create(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindByFirebaseUID(ctx context.Context, firebaseUID string) (*User, error)
	Update(ctx context.Context, user *User) error
	List(ctx context.Context, page, pageSize int) ([]User, int64, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	// ActiveAdminIDs lists every administrator whose account is active right now.
	ActiveAdminIDs(ctx context.Context) ([]uuid.UUID, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates a new GORM user repository.
func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func normalizeEmail(user *User) {
	if user.Email != nil {
		e := strings.ToLower(strings.TrimSpace(*user.Email))
		user.Email = &e
	}
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "duplicate entry")
}

// Create inserts a new user record into the database.
func (r *gormRepository) Create(ctx context.Context, user *User) error {
	normalizeEmail(user)
	if err := database.Conn(ctx, r.db).Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return common.ErrConflict.WithMessage("User with this Firebase UID already exists")
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// FindByID retrieves a user by their ID.
func (r *gormRepository) FindByID(ctx context.Context, id uuid.UUID) (*User, error) {
	var userModel User
	err := database.Conn(ctx, r.db).Where("id = ?", id).First(&userModel).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithMessage("User not found")
		}
		return nil, fmt.Errorf("failed to find user %s: %w", id, err)
	}
	return &userModel, nil
}

// FindByFirebaseUID retrieves a user by their Firebase UID.
func (r *gormRepository) FindByFirebaseUID(ctx context.Context, firebaseUID string) (*User, error) {
	var userModel User
	err := database.Conn(ctx, r.db).Where("firebase_uid = ?", firebaseUID).First(&userModel).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithMessage("User not found")
		}
		return nil, fmt.Errorf("failed to find user by firebase uid: %w", err)
	}
	return &userModel, nil
}

// Update saves every column of user.
func (r *gormRepository) Update(ctx context.Context, user *User) error {
	normalizeEmail(user)
	if err := database.Conn(ctx, r.db).Save(user).Error; err != nil {
		return fmt.Errorf("failed to update user %s: %w", user.ID, err)
	}
	return nil
}

func (r *gormRepository) List(ctx context.Context, page, pageSize int) ([]User, int64, error) {
	var (
		users []User
		total int64
	)
	db := database.Conn(ctx, r.db)
	if err := db.Model(&User{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("counting users failed: %w", err)
	}
	err := db.Order("created_at DESC").
		Limit(pageSize).
		Offset(common.Offset(page, pageSize)).
		Find(&users).Error
	if err != nil {
		return nil, 0, fmt.Errorf("listing users failed: %w", err)
	}
	return users, total, nil
}

func (r *gormRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	result := database.Conn(ctx, r.db).Model(&User{}).Where("id = ?", id).Update("is_active", active)
	if result.Error != nil {
		return fmt.Errorf("failed to set active flag for user %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return common.ErrNotFound.WithMessage("User not found")
	}
	return nil
}

func (r *gormRepository) ActiveAdminIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := database.Conn(ctx, r.db).Model(&User{}).
		Where("role = ? AND is_active = ?", common.RoleAdmin, true).
		Order("created_at ASC").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active administrators: %w", err)
	}
	return ids, nil
}
