package notification

import (
	"context"
	"testing"
	"time"

	"lostfound_backend/internal/common"
	"lostfound_backend/internal/platform/database/dbtest"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

type RepositoryTestSuite struct {
	suite.Suite
	repo Repository
	ctx  context.Context
}

func (s *RepositoryTestSuite) SetupTest() {
	db := dbtest.Open(s.T(), &Notification{})
	s.repo = NewGORMRepository(db)
	s.ctx = context.Background()
}

func (s *RepositoryTestSuite) seed(userID uuid.UUID, n int) []*Notification {
	batch := make([]*Notification, 0, n)
	base := time.Now().Add(-time.Hour)
	for i := 0; i < n; i++ {
		batch = append(batch, &Notification{
			UserID:    userID,
			Type:      TypeNewMessage,
			Title:     "New Message",
			Message:   "hello",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}
	s.Require().NoError(s.repo.CreateBatch(s.ctx, batch))
	return batch
}

func (s *RepositoryTestSuite) TestListByUser_NewestFirstAndPaged() {
	userID := uuid.New()
	created := s.seed(userID, 3)
	s.seed(uuid.New(), 2)

	page, total, err := s.repo.ListByUser(s.ctx, userID, 1, 2)
	s.Require().NoError(err)
	s.Equal(int64(3), total)
	s.Require().Len(page, 2)
	s.Equal(created[2].ID, page[0].ID)
	s.Equal(created[1].ID, page[1].ID)
}

func (s *RepositoryTestSuite) TestUnreadCountIsDerived() {
	userID := uuid.New()
	created := s.seed(userID, 3)

	n, err := s.repo.CountUnread(s.ctx, userID)
	s.Require().NoError(err)
	s.Equal(int64(3), n)

	s.Require().NoError(s.repo.MarkAsRead(s.ctx, created[0].ID, userID))
	s.Require().NoError(s.repo.MarkAsRead(s.ctx, created[0].ID, userID), "marking twice is fine")
	n, _ = s.repo.CountUnread(s.ctx, userID)
	s.Equal(int64(2), n)

	updated, err := s.repo.MarkAllAsRead(s.ctx, userID)
	s.Require().NoError(err)
	s.Equal(int64(2), updated)
	n, _ = s.repo.CountUnread(s.ctx, userID)
	s.Zero(n)
}

func (s *RepositoryTestSuite) TestMarkAsRead_OtherUsersNotification() {
	owner := uuid.New()
	created := s.seed(owner, 1)

	err := s.repo.MarkAsRead(s.ctx, created[0].ID, uuid.New())
	s.ErrorIs(err, common.ErrNotFound)
}

func (s *RepositoryTestSuite) TestDelete_OwnerOnly() {
	owner := uuid.New()
	created := s.seed(owner, 1)

	s.ErrorIs(s.repo.Delete(s.ctx, created[0].ID, uuid.New()), common.ErrNotFound)
	s.NoError(s.repo.Delete(s.ctx, created[0].ID, owner))
	s.ErrorIs(s.repo.Delete(s.ctx, created[0].ID, owner), common.ErrNotFound)
}

func (s *RepositoryTestSuite) TestDeleteByRelated() {
	related := uuid.New()
	other := uuid.New()
	s.Require().NoError(s.repo.CreateBatch(s.ctx, []*Notification{
		{UserID: uuid.New(), Type: TypeItemReported, Title: "a", Message: "a", RelatedID: &related},
		{UserID: uuid.New(), Type: TypeItemReported, Title: "b", Message: "b", RelatedID: &related},
		{UserID: uuid.New(), Type: TypeItemReported, Title: "c", Message: "c", RelatedID: &other},
	}))

	n, err := s.repo.DeleteByRelated(s.ctx, related)
	s.Require().NoError(err)
	s.Equal(int64(2), n)
}

func TestNotificationRepository(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}
