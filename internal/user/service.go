package user

import (
	"context"
	"errors"
	"time"

	"lostfound_backend/internal/common"
	"lostfound_backend/internal/config"
	"lostfound_backend/internal/notification"
	"lostfound_backend/internal/platform/database"

	firebaseauth "firebase.google.com/go/v4/auth"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service defines account operations.
type Service interface {
	// GetOrCreateUserFromFirebaseClaims maps a verified identity-provider token onto a local account,
	// creating it on first sign-in.
	GetOrCreateUserFromFirebaseClaims(ctx context.Context, token *firebaseauth.Token) (*User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	ListUsers(ctx context.Context, page, pageSize int) ([]User, int64, error)
	ToggleActive(ctx context.Context, actor common.Actor, id uuid.UUID) (*User, error)
}

// SessionRevoker ends the identity provider sessions of a deactivated account.
type SessionRevoker interface {
	RevokeRefreshTokens(ctx context.Context, uid string) error
}

// ServiceImplementation implements Service.
type ServiceImplementation struct {
	repo          Repository
	tx            database.Transactor
	notifications notification.Service
	revoker       SessionRevoker
	cfg           *config.Config
	logger        *zap.Logger
	now           func() time.Time
}

var _ Service = (*ServiceImplementation)(nil)

// NewService creates a new user service. revoker may be nil.
func NewService(
	repo Repository,
	tx database.Transactor,
	notifications notification.Service,
	revoker SessionRevoker,
	cfg *config.Config,
	logger *zap.Logger,
) *ServiceImplementation {
	return &ServiceImplementation{
		repo:          repo,
		tx:            tx,
		notifications: notifications,
		revoker:       revoker,
		cfg:           cfg,
		logger:        logger.Named("UserService"),
		now:           time.Now,
	}
}

func claimString(claims map[string]interface{}, key string) *string {
	v, ok := claims[key].(string)
	if !ok || v == "" {
		return nil
	}
	return &v
}

func (s *ServiceImplementation) GetOrCreateUserFromFirebaseClaims(ctx context.Context, token *firebaseauth.Token) (*User, error) {
	if token == nil || token.UID == "" {
		return nil, common.ErrUnauthorized.WithMessage("Invalid identity token")
	}
	email := claimString(token.Claims, "email")
	name := claimString(token.Claims, "name")
	picture := claimString(token.Claims, "picture")
	now := s.now()

	existing, err := s.repo.FindByFirebaseUID(ctx, token.UID)
	switch {
	case err == nil:
		existing.LastLoginAt = &now
		if email != nil {
			existing.Email = email
		}
		if existing.DisplayName == nil {
			existing.DisplayName = name
		}
		if existing.ProfilePictureURL == nil {
			existing.ProfilePictureURL = picture
		}
		// Bootstrap list only ever promotes; demotion is a manual operation.
		if !existing.IsAdmin() && email != nil && s.cfg.IsAdminEmail(*email) {
			s.logger.Warn("Promoting account to admin from ADMIN_EMAILS", zap.String("user_id", existing.ID.String()))
			existing.Role = common.RoleAdmin
		}
		if err := s.repo.Update(ctx, existing); err != nil {
			s.logger.Error("Failed to refresh user on sign-in", zap.Error(err), zap.String("user_id", existing.ID.String()))
			return nil, common.ErrInternalServer
		}
		return existing, nil
	case !errors.Is(err, common.ErrNotFound):
		s.logger.Error("Failed to look up user by firebase uid", zap.Error(err))
		return nil, common.ErrInternalServer
	}

	role := common.RoleUser
	if email != nil && s.cfg.IsAdminEmail(*email) {
		role = common.RoleAdmin
	}
	created := &User{
		FirebaseUID:       token.UID,
		Email:             email,
		DisplayName:       name,
		ProfilePictureURL: picture,
		Role:              role,
		IsActive:          true,
		LastLoginAt:       &now,
	}
	if err := s.repo.Create(ctx, created); err != nil {
		if errors.Is(err, common.ErrConflict) {
			// A concurrent first request created the row.
			u, findErr := s.repo.FindByFirebaseUID(ctx, token.UID)
			if findErr != nil {
				return nil, s.mapError(findErr, "reload user", uuid.Nil)
			}
			return u, nil
		}
		s.logger.Error("Failed to create user from firebase claims", zap.Error(err))
		return nil, common.ErrInternalServer
	}
	s.logger.Info("User provisioned", zap.String("user_id", created.ID.String()), zap.String("role", role))
	return created, nil
}

func (s *ServiceImplementation) GetUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapError(err, "find user", id)
	}
	return u, nil
}

func (s *ServiceImplementation) ListUsers(ctx context.Context, page, pageSize int) ([]User, int64, error) {
	users, total, err := s.repo.List(ctx, page, pageSize)
	if err != nil {
		s.logger.Error("Failed to list users", zap.Error(err))
		return nil, 0, common.ErrInternalServer
	}
	if users == nil {
		users = []User{}
	}
	return users, total, nil
}

// ToggleActive flips the target account between active and deactivated and tells its owner.
func (s *ServiceImplementation) ToggleActive(ctx context.Context, actor common.Actor, id uuid.UUID) (*User, error) {
	if actor.ID == id {
		return nil, common.ErrBadRequest.WithMessage("Cannot change your own account status")
	}

	var target *User
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		u, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		u.IsActive = !u.IsActive
		if err := s.repo.SetActive(ctx, u.ID, u.IsActive); err != nil {
			return err
		}

		msg := "Your account has been reactivated by an administrator."
		if !u.IsActive {
			msg = "Your account has been deactivated by an administrator."
		}
		if err := s.notifications.Notify(ctx, []uuid.UUID{u.ID}, notification.Draft{
			Type:    notification.TypeAccountStatus,
			Title:   "Account Status Updated",
			Message: msg,
		}); err != nil {
			return err
		}
		if !u.IsActive && s.revoker != nil {
			uid := u.FirebaseUID
			database.AfterCommit(ctx, func(ctx context.Context) {
				if err := s.revoker.RevokeRefreshTokens(ctx, uid); err != nil {
					s.logger.Warn("Failed to revoke sessions of deactivated user", zap.Error(err), zap.String("user_id", id.String()))
				}
			})
		}
		target = u
		return nil
	})
	if err != nil {
		return nil, s.mapError(err, "toggle active", id)
	}

	s.logger.Warn("Privileged action: account active flag changed",
		zap.String("admin_id", actor.ID.String()),
		zap.String("user_id", id.String()),
		zap.Bool("is_active", target.IsActive),
	)
	return target, nil
}

func (s *ServiceImplementation) mapError(err error, op string, id uuid.UUID) error {
	if apiErr, ok := common.IsAPIError(err); ok {
		return apiErr
	}
	s.logger.Error("User operation failed", zap.String("op", op), zap.String("user_id", id.String()), zap.Error(err))
	return common.ErrInternalServer
}
