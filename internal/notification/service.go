package notification

import (
	"context"

	"lostfound_backend/internal/common"
	"lostfound_backend/internal/platform/database"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AdminDirectory lists the administrators that should receive admin-facing events.
type AdminDirectory interface {
	ActiveAdminIDs(ctx context.Context) ([]uuid.UUID, error)
}

// Publisher pushes an event to a user's live connections.
type Publisher interface {
	PublishToUser(userID uuid.UUID, payload interface{}) int
}

// Service defines notification fan-out and the owner-facing operations.
type Service interface {
	// Notify stores one notification per distinct recipient. Callers run it inside
	// the transaction of the mutation it reports so both commit or neither does.
	Notify(ctx context.Context, recipients []uuid.UUID, draft Draft) error
	// NotifyAdmins fans out to every administrator active right now, minus exclude.
	NotifyAdmins(ctx context.Context, draft Draft, exclude ...uuid.UUID) error
	List(ctx context.Context, userID uuid.UUID, page, pageSize int) (*ListResult, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
	MarkAsRead(ctx context.Context, userID, notificationID uuid.UUID) error
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error)
	Delete(ctx context.Context, userID, notificationID uuid.UUID) error
	DeleteRelated(ctx context.Context, relatedID uuid.UUID) error
}

// ServiceImplementation implements Service.
type ServiceImplementation struct {
	repo      Repository
	admins    AdminDirectory
	publisher Publisher
	logger    *zap.Logger
}

// NewService creates a notification service. publisher may be nil.
func NewService(repo Repository, admins AdminDirectory, publisher Publisher, logger *zap.Logger) *ServiceImplementation {
	return &ServiceImplementation{
		repo:      repo,
		admins:    admins,
		publisher: publisher,
		logger:    logger.Named("NotificationService"),
	}
}

var _ Service = (*ServiceImplementation)(nil)

func (s *ServiceImplementation) Notify(ctx context.Context, recipients []uuid.UUID, draft Draft) error {
	seen := make(map[uuid.UUID]struct{}, len(recipients))
	batch := make([]*Notification, 0, len(recipients))
	for _, id := range recipients {
		if id == uuid.Nil {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		batch = append(batch, draft.forUser(id))
	}
	if len(batch) == 0 {
		return nil
	}

	if err := s.repo.CreateBatch(ctx, batch); err != nil {
		s.logger.Error("Failed to store notifications",
			zap.Error(err),
			zap.String("type", string(draft.Type)),
			zap.Int("recipients", len(batch)),
		)
		return common.ErrInternalServer
	}
	s.logger.Debug("Notifications stored", zap.String("type", string(draft.Type)), zap.Int("recipients", len(batch)))

	if s.publisher != nil {
		database.AfterCommit(ctx, func(context.Context) {
			for _, n := range batch {
				s.publisher.PublishToUser(n.UserID, Event{Type: "notification", Notification: n})
			}
		})
	}
	return nil
}

func (s *ServiceImplementation) NotifyAdmins(ctx context.Context, draft Draft, exclude ...uuid.UUID) error {
	adminIDs, err := s.admins.ActiveAdminIDs(ctx)
	if err != nil {
		s.logger.Error("Failed to load active administrators", zap.Error(err))
		return common.ErrInternalServer
	}
	skip := make(map[uuid.UUID]struct{}, len(exclude))
	for _, id := range exclude {
		skip[id] = struct{}{}
	}
	recipients := make([]uuid.UUID, 0, len(adminIDs))
	for _, id := range adminIDs {
		if _, ok := skip[id]; !ok {
			recipients = append(recipients, id)
		}
	}
	if len(recipients) == 0 {
		s.logger.Info("No active administrators to notify", zap.String("type", string(draft.Type)))
		return nil
	}
	return s.Notify(ctx, recipients, draft)
}

func (s *ServiceImplementation) List(ctx context.Context, userID uuid.UUID, page, pageSize int) (*ListResult, error) {
	notifications, total, err := s.repo.ListByUser(ctx, userID, page, pageSize)
	if err != nil {
		s.logger.Error("Failed to list notifications", zap.Error(err), zap.String("user_id", userID.String()))
		return nil, common.ErrInternalServer
	}
	unread, err := s.UnreadCount(ctx, userID)
	if err != nil {
		return nil, err
	}
	if notifications == nil {
		notifications = []Notification{}
	}
	return &ListResult{Notifications: notifications, UnreadCount: unread, Total: total}, nil
}

func (s *ServiceImplementation) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	n, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to count unread notifications", zap.Error(err), zap.String("user_id", userID.String()))
		return 0, common.ErrInternalServer
	}
	return n, nil
}

func (s *ServiceImplementation) MarkAsRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	return s.passThrough(s.repo.MarkAsRead(ctx, notificationID, userID), "mark notification read")
}

func (s *ServiceImplementation) MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	n, err := s.repo.MarkAllAsRead(ctx, userID)
	if err != nil {
		return 0, s.passThrough(err, "mark all notifications read")
	}
	return n, nil
}

func (s *ServiceImplementation) Delete(ctx context.Context, userID, notificationID uuid.UUID) error {
	return s.passThrough(s.repo.Delete(ctx, notificationID, userID), "delete notification")
}

func (s *ServiceImplementation) DeleteRelated(ctx context.Context, relatedID uuid.UUID) error {
	n, err := s.repo.DeleteByRelated(ctx, relatedID)
	if err != nil {
		return s.passThrough(err, "delete related notifications")
	}
	s.logger.Info("Removed notifications for purged entity", zap.String("related_id", relatedID.String()), zap.Int64("count", n))
	return nil
}

func (s *ServiceImplementation) passThrough(err error, op string) error {
	if err == nil {
		return nil
	}
	if apiErr, ok := common.IsAPIError(err); ok {
		return apiErr
	}
	s.logger.Error("Notification repository error", zap.String("op", op), zap.Error(err))
	return common.ErrInternalServer
}
