package item

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lostfound_backend/internal/common"
	"lostfound_backend/internal/platform/database"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository defines persistence for items. Every method joins the
// transaction carried by ctx, if any.
type Repository interface {
	Create(ctx context.Context, item *Item) error
	FindByID(ctx context.Context, id uuid.UUID) (*Item, error)
	// FindByIDForUpdate reads the row under a pessimistic lock held until the transaction ends.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Item, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Item, error)
	UpdateDetails(ctx context.Context, item *Item) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter ListFilter) ([]Item, int64, error)
	CountByStatus(ctx context.Context) (map[Status]int64, error)
	// ClaimIfFound moves a found item to claimed in one conditional UPDATE.
	// It reports false when the row was not in the found state.
	ClaimIfFound(ctx context.Context, id, claimant uuid.UUID) (bool, error)
	SetStatus(ctx context.Context, id uuid.UUID, status Status, claimedBy, returnedTo *uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindInBatches(ctx context.Context, batchSize int, fn func(batch []Item) error) error
}

// GORMRepository implements Repository using GORM.
type GORMRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates a new GORM item repository.
func NewGORMRepository(db *gorm.DB) Repository {
	return &GORMRepository{db: db}
}

func (r *GORMRepository) Create(ctx context.Context, item *Item) error {
	if err := database.Conn(ctx, r.db).Create(item).Error; err != nil {
		return fmt.Errorf("failed to create item: %w", err)
	}
	return nil
}

func (r *GORMRepository) find(db *gorm.DB, id uuid.UUID) (*Item, error) {
	var it Item
	if err := db.Where("id = ?", id).First(&it).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithMessage("Item not found")
		}
		return nil, fmt.Errorf("failed to find item %s: %w", id, err)
	}
	return &it, nil
}

func (r *GORMRepository) FindByID(ctx context.Context, id uuid.UUID) (*Item, error) {
	return r.find(database.Conn(ctx, r.db), id)
}

func (r *GORMRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Item, error) {
	return r.find(database.Conn(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *GORMRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Item, error) {
	if len(ids) == 0 {
		return []Item{}, nil
	}
	var items []Item
	if err := database.Conn(ctx, r.db).Where("id IN ?", ids).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to load items by id: %w", err)
	}
	return items, nil
}

// UpdateDetails writes the descriptive columns only; status and claimant are never touched here.
func (r *GORMRepository) UpdateDetails(ctx context.Context, item *Item) error {
	result := database.Conn(ctx, r.db).Model(item).
		Select("name", "category", "category_slug", "description", "location", "occurred_on", "contact_info", "image_url", "image_key", "updated_at").
		Updates(item)
	if result.Error != nil {
		return fmt.Errorf("failed to update item %s: %w", item.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return common.ErrNotFound.WithMessage("Item not found")
	}
	return nil
}

func (r *GORMRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	result := database.Conn(ctx, r.db).Model(&Item{}).Where("id = ?", id).
		Updates(map[string]interface{}{"deleted_by_reporter": true, "updated_at": time.Now()})
	if result.Error != nil {
		return fmt.Errorf("failed to soft delete item %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return common.ErrNotFound.WithMessage("Item not found")
	}
	return nil
}

func (r *GORMRepository) List(ctx context.Context, filter ListFilter) ([]Item, int64, error) {
	var (
		items []Item
		total int64
	)
	query := database.Conn(ctx, r.db).Model(&Item{})
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	if filter.CategorySlug != "" {
		query = query.Where("category_slug = ?", filter.CategorySlug)
	}
	if filter.ReporterID != nil {
		query = query.Where("reported_by = ?", *filter.ReporterID)
	}
	if !filter.IncludeDeleted {
		query = query.Where("deleted_by_reporter = ?", false)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("counting items failed: %w", err)
	}
	err := query.Order("created_at DESC").
		Limit(filter.PageSize).
		Offset(common.Offset(filter.Page, filter.PageSize)).
		Find(&items).Error
	if err != nil {
		return nil, 0, fmt.Errorf("listing items failed: %w", err)
	}
	return items, total, nil
}

func (r *GORMRepository) CountByStatus(ctx context.Context) (map[Status]int64, error) {
	var rows []struct {
		Status Status
		N      int64
	}
	err := database.Conn(ctx, r.db).Model(&Item{}).
		Select("status, COUNT(*) AS n").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("counting items by status failed: %w", err)
	}
	counts := make(map[Status]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.N
	}
	return counts, nil
}

func (r *GORMRepository) ClaimIfFound(ctx context.Context, id, claimant uuid.UUID) (bool, error) {
	result := database.Conn(ctx, r.db).Model(&Item{}).
		Where("id = ? AND status = ?", id, StatusFound).
		Updates(map[string]interface{}{
			"status":      StatusClaimed,
			"claimed_by":  claimant,
			"returned_to": nil,
			"updated_at":  time.Now(),
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to claim item %s: %w", id, result.Error)
	}
	return result.RowsAffected == 1, nil
}

// SetStatus writes status, claimant and recipient together in one statement.
func (r *GORMRepository) SetStatus(ctx context.Context, id uuid.UUID, status Status, claimedBy, returnedTo *uuid.UUID) error {
	result := database.Conn(ctx, r.db).Model(&Item{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":      status,
			"claimed_by":  claimedBy,
			"returned_to": returnedTo,
			"updated_at":  time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to set status of item %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return common.ErrNotFound.WithMessage("Item not found")
	}
	return nil
}

func (r *GORMRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := database.Conn(ctx, r.db).Where("id = ?", id).Delete(&Item{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete item %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return common.ErrNotFound.WithMessage("Item not found")
	}
	return nil
}

func (r *GORMRepository) FindInBatches(ctx context.Context, batchSize int, fn func(batch []Item) error) error {
	var batch []Item
	result := database.Conn(ctx, r.db).
		FindInBatches(&batch, batchSize, func(tx *gorm.DB, _ int) error {
			return fn(batch)
		})
	if result.Error != nil {
		return fmt.Errorf("iterating items failed: %w", result.Error)
	}
	return nil
}
