package user

import (
	"context"
	"testing"

	"lostfound_backend/internal/common"
	"lostfound_backend/internal/config"
	"lostfound_backend/internal/notification"
	"lostfound_backend/internal/platform/database"
	"lostfound_backend/internal/platform/database/dbtest"

	firebaseauth "firebase.google.com/go/v4/auth"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type UserServiceTestSuite struct {
	suite.Suite
	db      *gorm.DB
	repo    Repository
	notes   notification.Repository
	service *ServiceImplementation
	ctx     context.Context
}

func (s *UserServiceTestSuite) SetupTest() {
	s.db = dbtest.Open(s.T(), &User{}, &notification.Notification{})
	s.repo = NewGORMRepository(s.db)
	s.notes = notification.NewGORMRepository(s.db)
	notifier := notification.NewService(s.notes, s.repo, nil, zap.NewNop())
	cfg := &config.Config{AdminEmails: []string{"boss@example.com"}}
	s.service = NewService(s.repo, database.NewTransactor(s.db, zap.NewNop()), notifier, nil, cfg, zap.NewNop())
	s.ctx = context.Background()
}

func token(uid, email string) *firebaseauth.Token {
	return &firebaseauth.Token{UID: uid, Claims: map[string]interface{}{"email": email, "name": "Pat"}}
}

func (s *UserServiceTestSuite) TestFirstSignInCreatesActiveUser() {
	u, err := s.service.GetOrCreateUserFromFirebaseClaims(s.ctx, token("uid-1", "Pat@Example.com"))
	s.Require().NoError(err)

	s.Equal(common.RoleUser, u.Role)
	s.True(u.IsActive)
	s.Require().NotNil(u.Email)
	s.Equal("pat@example.com", *u.Email)
	s.NotNil(u.LastLoginAt)

	again, err := s.service.GetOrCreateUserFromFirebaseClaims(s.ctx, token("uid-1", "pat@example.com"))
	s.Require().NoError(err)
	s.Equal(u.ID, again.ID)

	var n int64
	s.db.Model(&User{}).Count(&n)
	s.Equal(int64(1), n)
}

func (s *UserServiceTestSuite) TestAdminEmailGetsAdminRole() {
	u, err := s.service.GetOrCreateUserFromFirebaseClaims(s.ctx, token("uid-admin", "BOSS@example.com"))
	s.Require().NoError(err)
	s.Equal(common.RoleAdmin, u.Role)

	ids, err := s.repo.ActiveAdminIDs(s.ctx)
	s.Require().NoError(err)
	s.Equal([]uuid.UUID{u.ID}, ids)
}

func (s *UserServiceTestSuite) TestEmptyTokenRejected() {
	_, err := s.service.GetOrCreateUserFromFirebaseClaims(s.ctx, &firebaseauth.Token{})
	s.ErrorIs(err, common.ErrUnauthorized)
}

func (s *UserServiceTestSuite) TestToggleActive_NotifiesTargetAndDropsFromAdminFanOut() {
	admin, err := s.service.GetOrCreateUserFromFirebaseClaims(s.ctx, token("uid-admin", "boss@example.com"))
	s.Require().NoError(err)
	other := &User{FirebaseUID: "uid-2", Role: common.RoleAdmin, IsActive: true}
	s.Require().NoError(s.repo.Create(s.ctx, other))

	updated, err := s.service.ToggleActive(s.ctx, common.Actor{ID: admin.ID, Role: common.RoleAdmin}, other.ID)
	s.Require().NoError(err)
	s.False(updated.IsActive)

	ids, err := s.repo.ActiveAdminIDs(s.ctx)
	s.Require().NoError(err)
	s.Equal([]uuid.UUID{admin.ID}, ids)

	list, _, err := s.notes.ListByUser(s.ctx, other.ID, 1, 10)
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	s.Equal(notification.TypeAccountStatus, list[0].Type)
	s.Equal("Account Status Updated", list[0].Title)

	updated, err = s.service.ToggleActive(s.ctx, common.Actor{ID: admin.ID, Role: common.RoleAdmin}, other.ID)
	s.Require().NoError(err)
	s.True(updated.IsActive)
}

func (s *UserServiceTestSuite) TestToggleActive_SelfRejected() {
	id := uuid.New()
	_, err := s.service.ToggleActive(s.ctx, common.Actor{ID: id, Role: common.RoleAdmin}, id)
	s.ErrorIs(err, common.ErrBadRequest)
}

func (s *UserServiceTestSuite) TestToggleActive_UnknownUser() {
	_, err := s.service.ToggleActive(s.ctx, common.Actor{ID: uuid.New(), Role: common.RoleAdmin}, uuid.New())
	s.ErrorIs(err, common.ErrNotFound)
}

func TestUserService(t *testing.T) {
	suite.Run(t, new(UserServiceTestSuite))
}
