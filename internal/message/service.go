package message

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"time"
	"unicode/utf8"

	"lostfound_backend/internal/common"
	"lostfound_backend/internal/filestorage"
	"lostfound_backend/internal/item"
	"lostfound_backend/internal/notification"
	"lostfound_backend/internal/platform/database"
	"lostfound_backend/internal/sanitize"
	"lostfound_backend/internal/user"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	imageSubDir  = "messages"
	snippetRunes = 120
)

// ImageStore saves and removes uploaded images.
type ImageStore interface {
	SaveImage(ctx context.Context, fileHeader *multipart.FileHeader, subDir string) (filestorage.StoredFile, error)
	Delete(ctx context.Context, key string) error
}

// Service defines messaging operations.
type Service interface {
	Send(ctx context.Context, actor common.Actor, req SendRequest, image *multipart.FileHeader) (*Message, error)
	// Conversation returns the thread with otherID and marks what the actor received in it as read.
	Conversation(ctx context.Context, actor common.Actor, otherID uuid.UUID) ([]View, error)
	Inbox(ctx context.Context, actor common.Actor) ([]InboxEntry, error)
	Delete(ctx context.Context, actor common.Actor, id uuid.UUID) error
	Report(ctx context.Context, actor common.Actor, id uuid.UUID, reason string) error
	DeleteAll(ctx context.Context, actor common.Actor) (*PurgeResult, error)

	ListReported(ctx context.Context, page, pageSize int) ([]Message, int64, error)
	AdminDelete(ctx context.Context, actor common.Actor, id uuid.UUID) error
	ReapAbandoned(ctx context.Context, grace time.Duration) (int64, error)
}

// ServiceImplementation implements Service.
type ServiceImplementation struct {
	repo          Repository
	tx            database.Transactor
	users         user.Repository
	items         item.Repository
	notifications notification.Service
	images        ImageStore
	logger        *zap.Logger
	now           func() time.Time
}

var _ Service = (*ServiceImplementation)(nil)

// NewService creates a new message service.
func NewService(
	repo Repository,
	tx database.Transactor,
	users user.Repository,
	items item.Repository,
	notifications notification.Service,
	images ImageStore,
	logger *zap.Logger,
) *ServiceImplementation {
	return &ServiceImplementation{
		repo:          repo,
		tx:            tx,
		users:         users,
		items:         items,
		notifications: notifications,
		images:        images,
		logger:        logger.Named("MessageService"),
		now:           time.Now,
	}
}

// Snippet shortens content for notification bodies.
func Snippet(content string) string {
	if utf8.RuneCountInString(content) <= snippetRunes {
		return content
	}
	runes := []rune(content)
	return string(runes[:snippetRunes]) + "..."
}

func (s *ServiceImplementation) Send(ctx context.Context, actor common.Actor, req SendRequest, image *multipart.FileHeader) (*Message, error) {
	receiverID, err := uuid.Parse(req.ReceiverID)
	if err != nil {
		return nil, common.ErrBadRequest.WithMessage("Invalid receiver id format.")
	}
	if receiverID == actor.ID {
		return nil, common.ErrBadRequest.WithMessage("Cannot message yourself")
	}
	content := sanitize.Text(req.Content)
	if content == "" && image == nil {
		return nil, common.ErrBadRequest.WithMessage("Message content is required")
	}

	receiver, err := s.users.FindByID(ctx, receiverID)
	if err != nil || !receiver.IsActive {
		if err != nil && !errors.Is(err, common.ErrNotFound) {
			return nil, s.mapError(err, "find receiver", uuid.Nil)
		}
		return nil, common.ErrBadRequest.WithMessage("Receiver not found or inactive")
	}
	if receiver.IsAdmin() && !actor.IsAdmin() {
		return nil, common.ErrForbidden.WithMessage("Messaging an administrator is not allowed")
	}

	msg := &Message{
		SenderID:   actor.ID,
		ReceiverID: receiverID,
		Content:    content,
	}
	var itemName string
	if req.ItemID != "" {
		itemID, err := uuid.Parse(req.ItemID)
		if err != nil {
			return nil, common.ErrBadRequest.WithMessage("Invalid item id format.")
		}
		it, err := s.items.FindByID(ctx, itemID)
		if err != nil {
			return nil, s.mapError(err, "find message item", uuid.Nil)
		}
		if it.DeletedByReporter {
			return nil, common.ErrNotFound.WithMessage("Item not found")
		}
		msg.ItemID = &it.ID
		itemName = it.Name
	}

	var stored *filestorage.StoredFile
	if image != nil {
		f, err := s.images.SaveImage(ctx, image, imageSubDir)
		if err != nil {
			return nil, s.mapError(err, "save message image", uuid.Nil)
		}
		stored = &f
		msg.ImageURL = &f.URL
		msg.ImageKey = &f.Key
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, msg); err != nil {
			return err
		}
		body := "You have a new message."
		if itemName != "" {
			body = fmt.Sprintf("You have a new message about %q.", itemName)
		}
		return s.notifications.Notify(ctx, []uuid.UUID{receiverID}, notification.Draft{
			Type:      notification.TypeNewMessage,
			Title:     "New Message",
			Message:   body,
			RelatedID: &msg.ID,
		})
	})
	if err != nil {
		if stored != nil {
			s.discardImage(ctx, stored.Key)
		}
		return nil, s.mapError(err, "send message", msg.ID)
	}
	return msg, nil
}

func (s *ServiceImplementation) Conversation(ctx context.Context, actor common.Actor, otherID uuid.UUID) ([]View, error) {
	if _, err := s.repo.MarkConversationRead(ctx, actor.ID, otherID); err != nil {
		return nil, s.mapError(err, "mark conversation read", uuid.Nil)
	}
	msgs, err := s.repo.Conversation(ctx, actor.ID, otherID)
	if err != nil {
		return nil, s.mapError(err, "load conversation", uuid.Nil)
	}
	return s.views(ctx, msgs)
}

// Inbox groups the actor's visible messages by counterpart, most recent conversation first.
func (s *ServiceImplementation) Inbox(ctx context.Context, actor common.Actor) ([]InboxEntry, error) {
	msgs, err := s.repo.Visible(ctx, actor.ID)
	if err != nil {
		return nil, s.mapError(err, "load inbox", uuid.Nil)
	}

	index := make(map[uuid.UUID]int)
	latest := make([]Message, 0)
	unread := make([]int64, 0)
	for _, m := range msgs {
		other := m.CounterpartOf(actor.ID)
		i, ok := index[other]
		if !ok {
			i = len(latest)
			index[other] = i
			latest = append(latest, m)
			unread = append(unread, 0)
		}
		if m.ReceiverID == actor.ID && !m.IsRead {
			unread[i]++
		}
	}

	views, err := s.views(ctx, latest)
	if err != nil {
		return nil, err
	}
	entries := make([]InboxEntry, len(views))
	for i, v := range views {
		entries[i] = InboxEntry{
			OtherUserID: v.CounterpartOf(actor.ID),
			LastMessage: v,
			UnreadCount: unread[i],
		}
	}
	return entries, nil
}

// views inlines the name and image of each message's item.
func (s *ServiceImplementation) views(ctx context.Context, msgs []Message) ([]View, error) {
	var ids []uuid.UUID
	seen := make(map[uuid.UUID]struct{})
	for _, m := range msgs {
		if m.ItemID == nil {
			continue
		}
		if _, ok := seen[*m.ItemID]; !ok {
			seen[*m.ItemID] = struct{}{}
			ids = append(ids, *m.ItemID)
		}
	}
	items, err := s.items.FindByIDs(ctx, ids)
	if err != nil {
		return nil, s.mapError(err, "load message items", uuid.Nil)
	}
	byID := make(map[uuid.UUID]item.Item, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}

	views := make([]View, len(msgs))
	for i, m := range msgs {
		views[i] = View{Message: m}
		if m.ItemID == nil {
			continue
		}
		if it, ok := byID[*m.ItemID]; ok {
			name := it.Name
			views[i].ItemName = &name
			views[i].ItemImageURL = it.ImageURL
		}
	}
	return views, nil
}

// Delete hides a message from the actor's side of the conversation only.
func (s *ServiceImplementation) Delete(ctx context.Context, actor common.Actor, id uuid.UUID) error {
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		msg, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if !msg.IsParticipant(actor.ID) {
			return common.ErrForbidden.WithMessage("Not allowed to delete this message")
		}
		if !msg.VisibleTo(actor.ID) {
			return common.ErrNotFound.WithMessage("Message not found")
		}
		if msg.SenderID == actor.ID {
			return s.repo.HideForSender(ctx, id)
		}
		return s.repo.HideForReceiver(ctx, id)
	})
	if err != nil {
		return s.mapError(err, "delete message", id)
	}
	return nil
}

// Report flags a message for moderation. Reporting twice is a no-op.
func (s *ServiceImplementation) Report(ctx context.Context, actor common.Actor, id uuid.UUID, reason string) error {
	reasonPtr := sanitize.OptionalText(&reason)
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		msg, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if !msg.IsParticipant(actor.ID) {
			return common.ErrForbidden.WithMessage("Not allowed to report this message")
		}
		flagged, err := s.repo.MarkReported(ctx, id, actor.ID, reasonPtr)
		if err != nil || !flagged {
			return err
		}
		body := fmt.Sprintf("A message was reported: %q", Snippet(msg.Content))
		if reasonPtr != nil {
			body += " Reason: " + *reasonPtr
		}
		return s.notifications.NotifyAdmins(ctx, notification.Draft{
			Type:      notification.TypeMessageFlagged,
			Title:     "Message Reported",
			Message:   body,
			RelatedID: &msg.ID,
		}, actor.ID)
	})
	if err != nil {
		return s.mapError(err, "report message", id)
	}
	return nil
}

// DeleteAll removes what the actor sent and hides what they received.
// Messages under moderation are left for administrators.
func (s *ServiceImplementation) DeleteAll(ctx context.Context, actor common.Actor) (*PurgeResult, error) {
	result := &PurgeResult{}
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		keys, deleted, err := s.repo.PurgeSent(ctx, actor.ID)
		if err != nil {
			return err
		}
		hidden, err := s.repo.HideAllReceived(ctx, actor.ID)
		if err != nil {
			return err
		}
		result.Deleted, result.Hidden = deleted, hidden
		database.AfterCommit(ctx, func(ctx context.Context) {
			s.releaseImages(ctx, keys)
		})
		return nil
	})
	if err != nil {
		return nil, s.mapError(err, "delete all messages", uuid.Nil)
	}
	s.logger.Info("Messages purged by owner",
		zap.String("user_id", actor.ID.String()),
		zap.Int64("deleted", result.Deleted),
		zap.Int64("hidden", result.Hidden),
	)
	return result, nil
}

func (s *ServiceImplementation) ListReported(ctx context.Context, page, pageSize int) ([]Message, int64, error) {
	msgs, total, err := s.repo.ListReported(ctx, page, pageSize)
	if err != nil {
		return nil, 0, s.mapError(err, "list reported messages", uuid.Nil)
	}
	if msgs == nil {
		msgs = []Message{}
	}
	return msgs, total, nil
}

// AdminDelete permanently removes a message and the notifications that point at it.
func (s *ServiceImplementation) AdminDelete(ctx context.Context, actor common.Actor, id uuid.UUID) error {
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		msg, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := s.repo.HardDelete(ctx, id); err != nil {
			return err
		}
		if err := s.notifications.DeleteRelated(ctx, id); err != nil {
			return err
		}
		if msg.ImageKey != nil {
			key := *msg.ImageKey
			database.AfterCommit(ctx, func(ctx context.Context) {
				s.releaseImages(ctx, []string{key})
			})
		}
		return nil
	})
	if err != nil {
		return s.mapError(err, "admin delete message", id)
	}
	s.logger.Warn("Privileged action: message hard deleted",
		zap.String("admin_id", actor.ID.String()),
		zap.String("message_id", id.String()),
	)
	return nil
}

// ReapAbandoned hard-deletes messages both participants hid more than grace ago.
func (s *ServiceImplementation) ReapAbandoned(ctx context.Context, grace time.Duration) (int64, error) {
	var removed int64
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		keys, n, err := s.repo.DeleteAbandoned(ctx, s.now().Add(-grace))
		if err != nil {
			return err
		}
		removed = n
		database.AfterCommit(ctx, func(ctx context.Context) {
			s.releaseImages(ctx, keys)
		})
		return nil
	})
	if err != nil {
		return 0, s.mapError(err, "reap abandoned messages", uuid.Nil)
	}
	if removed > 0 {
		s.logger.Info("Abandoned messages removed", zap.Int64("count", removed))
	}
	return removed, nil
}

// releaseImages deletes stored images no remaining message points at.
// Claim proof copies share one upload, so a key may still be referenced.
func (s *ServiceImplementation) releaseImages(ctx context.Context, keys []string) {
	for _, key := range keys {
		inUse, err := s.repo.ImageInUse(ctx, key)
		if err != nil {
			s.logger.Warn("Failed to check image references", zap.String("key", key), zap.Error(err))
			continue
		}
		if !inUse {
			s.discardImage(ctx, key)
		}
	}
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
	s.logger.Error("Message operation failed", zap.String("op", op), zap.String("message_id", id.String()), zap.Error(err))
	return common.ErrInternalServer
}
