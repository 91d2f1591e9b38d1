package item

import (
	"context"
	"fmt"
	"mime/multipart"
	"strings"
	"time"

	"lostfound_backend/internal/common"
	"lostfound_backend/internal/filestorage"
	"lostfound_backend/internal/notification"
	"lostfound_backend/internal/platform/database"
	"lostfound_backend/internal/sanitize"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
)

const imageSubDir = "items"

// ImageStore saves and removes uploaded images.
type ImageStore interface {
	SaveImage(ctx context.Context, fileHeader *multipart.FileHeader, subDir string) (filestorage.StoredFile, error)
	Delete(ctx context.Context, key string) error
}

// Service defines item operations outside the claim workflow.
type Service interface {
	Report(ctx context.Context, actor common.Actor, req CreateItemRequest, image *multipart.FileHeader) (*Item, error)
	Get(ctx context.Context, actor common.Actor, id uuid.UUID) (*Item, error)
	ListOpen(ctx context.Context, statuses []Status, category string, page, pageSize int) ([]Item, int64, error)
	ListMine(ctx context.Context, actor common.Actor, page, pageSize int) ([]Item, int64, error)
	Update(ctx context.Context, actor common.Actor, id uuid.UUID, req UpdateItemRequest, image *multipart.FileHeader) (*Item, error)
	Delete(ctx context.Context, actor common.Actor, id uuid.UUID) error
	ReportIssue(ctx context.Context, actor common.Actor, id uuid.UUID, reason string) error
	Search(ctx context.Context, q SearchQuery) ([]Item, int64, error)

	ListAll(ctx context.Context, filter ListFilter) ([]Item, int64, error)
	Stats(ctx context.Context) (*Stats, error)
	AdminUpdate(ctx context.Context, actor common.Actor, id uuid.UUID, req UpdateItemRequest, image *multipart.FileHeader) (*Item, error)
	HardDelete(ctx context.Context, actor common.Actor, id uuid.UUID) error
	SyncIndex(ctx context.Context) (int, error)
}

// ServiceImplementation implements Service.
type ServiceImplementation struct {
	repo          Repository
	tx            database.Transactor
	notifications notification.Service
	images        ImageStore
	indexer       Indexer
	logger        *zap.Logger
}

var _ Service = (*ServiceImplementation)(nil)

// NewService creates a new item service.
func NewService(
	repo Repository,
	tx database.Transactor,
	notifications notification.Service,
	images ImageStore,
	indexer Indexer,
	logger *zap.Logger,
) *ServiceImplementation {
	return &ServiceImplementation{
		repo:          repo,
		tx:            tx,
		notifications: notifications,
		images:        images,
		indexer:       indexer,
		logger:        logger.Named("ItemService"),
	}
}

func parseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, common.ErrBadRequest.WithMessage("Date must use the YYYY-MM-DD format")
	}
	return d, nil
}

func (s *ServiceImplementation) Report(ctx context.Context, actor common.Actor, req CreateItemRequest, image *multipart.FileHeader) (*Item, error) {
	status, ok := ParseStatus(req.Status)
	if !ok || !status.Open() {
		return nil, common.ErrBadRequest.WithMessage("Status must be lost or found")
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return nil, err
	}
	name := sanitize.Text(req.Name)
	category := sanitize.Text(req.Category)
	if name == "" || category == "" {
		return nil, common.ErrBadRequest.WithMessage("Name and category are required")
	}

	it := &Item{
		Name:         name,
		Category:     category,
		CategorySlug: slug.Make(category),
		Description:  sanitize.Text(req.Description),
		Location:     sanitize.Text(req.Location),
		Date:         date,
		ContactInfo:  sanitize.Text(req.ContactInfo),
		ReportedBy:   actor.ID,
		Status:       status,
	}

	var stored *filestorage.StoredFile
	if image != nil {
		f, err := s.images.SaveImage(ctx, image, imageSubDir)
		if err != nil {
			return nil, s.mapError(err, "save item image", uuid.Nil)
		}
		stored = &f
		it.ImageURL = &f.URL
		it.ImageKey = &f.Key
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, it); err != nil {
			return err
		}
		return s.notifications.NotifyAdmins(ctx, notification.Draft{
			Type:      notification.TypeItemReported,
			Title:     "New Item Report",
			Message:   fmt.Sprintf("A %s item was reported: %s (%s)", it.Status, it.Name, it.Category),
			RelatedID: &it.ID,
		}, actor.ID)
	})
	if err != nil {
		if stored != nil {
			s.discardImage(ctx, stored.Key)
		}
		return nil, s.mapError(err, "report item", it.ID)
	}

	SyncAfterCommit(ctx, s.indexer, s.repo, it.ID, s.logger)
	s.logger.Info("Item reported", zap.String("item_id", it.ID.String()), zap.String("status", string(it.Status)))
	return it, nil
}

// Get returns an item. Items the reporter deleted are only visible to administrators.
func (s *ServiceImplementation) Get(ctx context.Context, actor common.Actor, id uuid.UUID) (*Item, error) {
	it, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapError(err, "get item", id)
	}
	if it.DeletedByReporter && !actor.IsAdmin() {
		return nil, common.ErrNotFound.WithMessage("Item not found")
	}
	return it, nil
}

func (s *ServiceImplementation) ListOpen(ctx context.Context, statuses []Status, category string, page, pageSize int) ([]Item, int64, error) {
	for _, st := range statuses {
		if !st.Open() {
			return nil, 0, common.ErrBadRequest.WithMessage("Only lost or found items can be listed")
		}
	}
	if len(statuses) == 0 {
		statuses = []Status{StatusLost, StatusFound}
	}
	return s.list(ctx, ListFilter{
		Statuses:     statuses,
		CategorySlug: categorySlug(category),
		Page:         page,
		PageSize:     pageSize,
	})
}

func (s *ServiceImplementation) ListMine(ctx context.Context, actor common.Actor, page, pageSize int) ([]Item, int64, error) {
	return s.list(ctx, ListFilter{ReporterID: &actor.ID, Page: page, PageSize: pageSize})
}

func (s *ServiceImplementation) ListAll(ctx context.Context, filter ListFilter) ([]Item, int64, error) {
	filter.IncludeDeleted = true
	filter.CategorySlug = categorySlug(filter.CategorySlug)
	return s.list(ctx, filter)
}

func (s *ServiceImplementation) list(ctx context.Context, filter ListFilter) ([]Item, int64, error) {
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, s.mapError(err, "list items", uuid.Nil)
	}
	if items == nil {
		items = []Item{}
	}
	return items, total, nil
}

func categorySlug(category string) string {
	if strings.TrimSpace(category) == "" {
		return ""
	}
	return slug.Make(category)
}

func (s *ServiceImplementation) Update(ctx context.Context, actor common.Actor, id uuid.UUID, req UpdateItemRequest, image *multipart.FileHeader) (*Item, error) {
	return s.update(ctx, actor, id, req, image, false)
}

func (s *ServiceImplementation) AdminUpdate(ctx context.Context, actor common.Actor, id uuid.UUID, req UpdateItemRequest, image *multipart.FileHeader) (*Item, error) {
	return s.update(ctx, actor, id, req, image, true)
}

func (s *ServiceImplementation) update(ctx context.Context, actor common.Actor, id uuid.UUID, req UpdateItemRequest, image *multipart.FileHeader, asAdmin bool) (*Item, error) {
	var date *time.Time
	if req.Date != nil {
		d, err := parseDate(*req.Date)
		if err != nil {
			return nil, err
		}
		date = &d
	}

	var stored *filestorage.StoredFile
	if image != nil {
		f, err := s.images.SaveImage(ctx, image, imageSubDir)
		if err != nil {
			return nil, s.mapError(err, "save item image", id)
		}
		stored = &f
	}

	var (
		updated *Item
		oldKey  string
	)
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		it, err := s.repo.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !asAdmin {
			if !it.IsReporter(actor.ID) {
				return common.ErrForbidden.WithMessage("Only the reporter can edit this item")
			}
			if it.DeletedByReporter {
				return common.ErrNotFound.WithMessage("Item not found")
			}
		}

		if v := sanitize.OptionalText(req.Name); v != nil {
			it.Name = *v
		}
		if v := sanitize.OptionalText(req.Category); v != nil {
			it.Category = *v
			it.CategorySlug = slug.Make(*v)
		}
		if req.Description != nil {
			it.Description = sanitize.Text(*req.Description)
		}
		if req.Location != nil {
			it.Location = sanitize.Text(*req.Location)
		}
		if req.ContactInfo != nil {
			it.ContactInfo = sanitize.Text(*req.ContactInfo)
		}
		if date != nil {
			it.Date = *date
		}
		if stored != nil {
			if it.ImageKey != nil {
				oldKey = *it.ImageKey
			}
			it.ImageURL = &stored.URL
			it.ImageKey = &stored.Key
		}
		if err := s.repo.UpdateDetails(ctx, it); err != nil {
			return err
		}
		updated = it
		return nil
	})
	if err != nil {
		if stored != nil {
			s.discardImage(ctx, stored.Key)
		}
		return nil, s.mapError(err, "update item", id)
	}

	if oldKey != "" {
		s.discardImage(ctx, oldKey)
	}
	SyncAfterCommit(ctx, s.indexer, s.repo, id, s.logger)
	if asAdmin {
		s.logger.Warn("Privileged action: item edited by administrator",
			zap.String("admin_id", actor.ID.String()),
			zap.String("item_id", id.String()),
		)
	}
	return updated, nil
}

// Delete hides the item for everyone but administrators. Only the reporter may do it.
func (s *ServiceImplementation) Delete(ctx context.Context, actor common.Actor, id uuid.UUID) error {
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		it, err := s.repo.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !it.IsReporter(actor.ID) {
			return common.ErrForbidden.WithMessage("Only the reporter can delete this item")
		}
		if it.DeletedByReporter {
			return nil
		}
		return s.repo.SoftDelete(ctx, id)
	})
	if err != nil {
		return s.mapError(err, "delete item", id)
	}
	SyncAfterCommit(ctx, s.indexer, s.repo, id, s.logger)
	return nil
}

// ReportIssue flags a problem with an item to every active administrator,
// and to the reporter when someone else raised it.
func (s *ServiceImplementation) ReportIssue(ctx context.Context, actor common.Actor, id uuid.UUID, reason string) error {
	reason = sanitize.Text(reason)
	if reason == "" {
		return common.ErrBadRequest.WithMessage("Reason is required")
	}
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		it, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if it.DeletedByReporter {
			return common.ErrNotFound.WithMessage("Item not found")
		}
		draft := notification.Draft{
			Type:      notification.TypeItemIssue,
			Title:     "Item Issue Reported",
			Message:   fmt.Sprintf("An issue was reported on %q: %s", it.Name, reason),
			RelatedID: &it.ID,
		}
		if err := s.notifications.NotifyAdmins(ctx, draft, actor.ID, it.ReportedBy); err != nil {
			return err
		}
		if !it.IsReporter(actor.ID) {
			return s.notifications.Notify(ctx, []uuid.UUID{it.ReportedBy}, draft)
		}
		return nil
	})
	if err != nil {
		return s.mapError(err, "report item issue", id)
	}
	return nil
}

// Search runs the query against the index and loads the matching rows in relevance order.
func (s *ServiceImplementation) Search(ctx context.Context, q SearchQuery) ([]Item, int64, error) {
	for _, st := range q.Statuses {
		if !st.Open() {
			return nil, 0, common.ErrBadRequest.WithMessage("Only lost or found items can be searched")
		}
	}
	if len(q.Statuses) == 0 {
		q.Statuses = []Status{StatusLost, StatusFound}
	}
	q.CategorySlug = categorySlug(q.CategorySlug)

	ids, total, err := s.indexer.Search(ctx, q)
	if err != nil {
		return nil, 0, s.mapError(err, "search items", uuid.Nil)
	}
	rows, err := s.repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, 0, s.mapError(err, "load search hits", uuid.Nil)
	}
	byID := make(map[uuid.UUID]Item, len(rows))
	for _, it := range rows {
		byID[it.ID] = it
	}
	items := make([]Item, 0, len(ids))
	for _, id := range ids {
		// The index can lag behind the table.
		if it, ok := byID[id]; ok && !it.DeletedByReporter && it.Status.Open() {
			items = append(items, it)
		}
	}
	return items, total, nil
}

func (s *ServiceImplementation) Stats(ctx context.Context) (*Stats, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, s.mapError(err, "item stats", uuid.Nil)
	}
	stats := &Stats{ByStatus: make(map[Status]int64, len(allStatuses))}
	for _, st := range allStatuses {
		stats.ByStatus[st] = counts[st]
		stats.Total += counts[st]
	}
	return stats, nil
}

// HardDelete permanently removes an item, its notifications and its stored image.
func (s *ServiceImplementation) HardDelete(ctx context.Context, actor common.Actor, id uuid.UUID) error {
	var imageKey string
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		it, err := s.repo.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if it.ImageKey != nil {
			imageKey = *it.ImageKey
		}
		if err := s.repo.Delete(ctx, id); err != nil {
			return err
		}
		return s.notifications.DeleteRelated(ctx, id)
	})
	if err != nil {
		return s.mapError(err, "hard delete item", id)
	}

	s.logger.Warn("Privileged action: item hard deleted",
		zap.String("admin_id", actor.ID.String()),
		zap.String("item_id", id.String()),
	)
	if imageKey != "" {
		s.discardImage(ctx, imageKey)
	}
	SyncAfterCommit(ctx, s.indexer, s.repo, id, s.logger)
	return nil
}

// SyncIndex creates the search index if needed and reindexes every item.
func (s *ServiceImplementation) SyncIndex(ctx context.Context) (int, error) {
	if !s.indexer.Enabled() {
		return 0, ErrSearchDisabled
	}
	if err := s.indexer.EnsureIndex(ctx); err != nil {
		return 0, err
	}
	indexed := 0
	err := s.repo.FindInBatches(ctx, 500, func(batch []Item) error {
		n, err := s.indexer.BulkIndex(ctx, batch)
		indexed += n
		return err
	})
	if err != nil {
		return indexed, err
	}
	s.logger.Info("Search index synchronised", zap.Int("indexed", indexed))
	return indexed, nil
}

func (s *ServiceImplementation) discardImage(ctx context.Context, key string) {
	if err := s.images.Delete(ctx, key); err != nil {
		s.logger.Warn("Failed to remove stored image", zap.String("key", key), zap.Error(err))
	}
}

func (s *ServiceImplementation) mapError(err error, op string, id uuid.UUID) error {
	if apiErr, ok := common.IsAPIError(err); ok {
		return apiErr
	}
	s.logger.Error("Item operation failed", zap.String("op", op), zap.String("item_id", id.String()), zap.Error(err))
	return common.ErrInternalServer
}
