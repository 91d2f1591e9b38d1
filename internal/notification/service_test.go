package notification

import (
	"context"
	"errors"
	"testing"

	"lostfound_backend/internal/common"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockNotificationRepository is a mock type for notification.Repository
type MockNotificationRepository struct {
	mock.Mock
}

func (m *MockNotificationRepository) CreateBatch(ctx context.Context, notifications []*Notification) error {
	args := m.Called(ctx, notifications)
	return args.Error(0)
}

func (m *MockNotificationRepository) ListByUser(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]Notification, int64, error) {
	args := m.Called(ctx, userID, page, pageSize)
	var notifications []Notification
	if args.Get(0) != nil {
		notifications = args.Get(0).([]Notification)
	}
	return notifications, args.Get(1).(int64), args.Error(2)
}

func (m *MockNotificationRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockNotificationRepository) MarkAsRead(ctx context.Context, notificationID, userID uuid.UUID) error {
	return m.Called(ctx, notificationID, userID).Error(0)
}

func (m *MockNotificationRepository) MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockNotificationRepository) Delete(ctx context.Context, notificationID, userID uuid.UUID) error {
	return m.Called(ctx, notificationID, userID).Error(0)
}

func (m *MockNotificationRepository) DeleteByRelated(ctx context.Context, relatedID uuid.UUID) (int64, error) {
	args := m.Called(ctx, relatedID)
	return args.Get(0).(int64), args.Error(1)
}

type MockAdminDirectory struct {
	mock.Mock
}

func (m *MockAdminDirectory) ActiveAdminIDs(ctx context.Context) ([]uuid.UUID, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

type recordingPublisher struct {
	events map[uuid.UUID][]interface{}
}

func (p *recordingPublisher) PublishToUser(userID uuid.UUID, payload interface{}) int {
	if p.events == nil {
		p.events = map[uuid.UUID][]interface{}{}
	}
	p.events[userID] = append(p.events[userID], payload)
	return 1
}

type NotificationServiceTestSuite struct {
	service   *ServiceImplementation
	repo      *MockNotificationRepository
	admins    *MockAdminDirectory
	publisher *recordingPublisher
}

func setupNotificationServiceTestSuite(t *testing.T) *NotificationServiceTestSuite {
	ts := &NotificationServiceTestSuite{
		repo:      new(MockNotificationRepository),
		admins:    new(MockAdminDirectory),
		publisher: &recordingPublisher{},
	}
	ts.service = NewService(ts.repo, ts.admins, ts.publisher, zap.NewNop())
	return ts
}

func TestNotificationService_Notify_DeduplicatesRecipients(t *testing.T) {
	ts := setupNotificationServiceTestSuite(t)
	ctx := context.Background()
	a, b := uuid.New(), uuid.New()
	itemID := uuid.New()

	ts.repo.On("CreateBatch", ctx, mock.MatchedBy(func(batch []*Notification) bool {
		return len(batch) == 2 && batch[0].UserID == a && batch[1].UserID == b &&
			batch[0].Type == TypeClaimApproved && *batch[0].RelatedID == itemID
	})).Return(nil).Once()

	err := ts.service.Notify(ctx, []uuid.UUID{a, b, a, uuid.Nil}, Draft{
		Type: TypeClaimApproved, Title: "Claim Approved", Message: "ok", RelatedID: &itemID,
	})
	require.NoError(t, err)
	ts.repo.AssertExpectations(t)

	// Outside a transaction the push happens immediately.
	assert.Len(t, ts.publisher.events[a], 1)
	assert.Len(t, ts.publisher.events[b], 1)
	ev := ts.publisher.events[a][0].(Event)
	assert.Equal(t, "notification", ev.Type)
	assert.Equal(t, "Claim Approved", ev.Notification.Title)
}

func TestNotificationService_Notify_EmptyIsNoop(t *testing.T) {
	ts := setupNotificationServiceTestSuite(t)
	require.NoError(t, ts.service.Notify(context.Background(), nil, Draft{Type: TypeNewMessage}))
	ts.repo.AssertNotCalled(t, "CreateBatch", mock.Anything, mock.Anything)
}

func TestNotificationService_Notify_RepositoryErrorFailsOperation(t *testing.T) {
	ts := setupNotificationServiceTestSuite(t)
	ctx := context.Background()
	ts.repo.On("CreateBatch", ctx, mock.Anything).Return(errors.New("db down")).Once()

	err := ts.service.Notify(ctx, []uuid.UUID{uuid.New()}, Draft{Type: TypeNewMessage})
	assert.ErrorIs(t, err, common.ErrInternalServer)
	assert.Empty(t, ts.publisher.events)
}

func TestNotificationService_NotifyAdmins_ExcludesActor(t *testing.T) {
	ts := setupNotificationServiceTestSuite(t)
	ctx := context.Background()
	admin1, admin2 := uuid.New(), uuid.New()

	ts.admins.On("ActiveAdminIDs", ctx).Return([]uuid.UUID{admin1, admin2}, nil).Once()
	ts.repo.On("CreateBatch", ctx, mock.MatchedBy(func(batch []*Notification) bool {
		return len(batch) == 1 && batch[0].UserID == admin2
	})).Return(nil).Once()

	require.NoError(t, ts.service.NotifyAdmins(ctx, Draft{Type: TypeItemReported, Title: "New Item Report"}, admin1))
	ts.repo.AssertExpectations(t)
	ts.admins.AssertExpectations(t)
}

func TestNotificationService_NotifyAdmins_NoAdmins(t *testing.T) {
	ts := setupNotificationServiceTestSuite(t)
	ctx := context.Background()
	ts.admins.On("ActiveAdminIDs", ctx).Return([]uuid.UUID{}, nil).Once()

	require.NoError(t, ts.service.NotifyAdmins(ctx, Draft{Type: TypeItemReported}))
	ts.repo.AssertNotCalled(t, "CreateBatch", mock.Anything, mock.Anything)
}

func TestNotificationService_List_IncludesUnreadCount(t *testing.T) {
	ts := setupNotificationServiceTestSuite(t)
	ctx := context.Background()
	userID := uuid.New()
	rows := []Notification{{ID: uuid.New(), UserID: userID, Title: "t"}}

	ts.repo.On("ListByUser", ctx, userID, 1, 20).Return(rows, int64(7), nil).Once()
	ts.repo.On("CountUnread", ctx, userID).Return(int64(3), nil).Once()

	res, err := ts.service.List(ctx, userID, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, rows, res.Notifications)
	assert.Equal(t, int64(3), res.UnreadCount)
	assert.Equal(t, int64(7), res.Total)
}

func TestNotificationService_MarkAsRead_NotFoundPassesThrough(t *testing.T) {
	ts := setupNotificationServiceTestSuite(t)
	ctx := context.Background()
	userID, id := uuid.New(), uuid.New()
	ts.repo.On("MarkAsRead", ctx, id, userID).Return(common.ErrNotFound.WithMessage("Notification not found")).Once()

	err := ts.service.MarkAsRead(ctx, userID, id)
	apiErr, ok := common.IsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, 404, apiErr.StatusCode)
}

func TestNotificationService_Delete_InternalErrorIsMasked(t *testing.T) {
	ts := setupNotificationServiceTestSuite(t)
	ctx := context.Background()
	userID, id := uuid.New(), uuid.New()
	ts.repo.On("Delete", ctx, id, userID).Return(errors.New("connection reset")).Once()

	err := ts.service.Delete(ctx, userID, id)
	assert.ErrorIs(t, err, common.ErrInternalServer)
}
