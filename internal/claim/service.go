package claim

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"

	"lostfound_backend/internal/common"
	"lostfound_backend/internal/config"
	"lostfound_backend/internal/filestorage"
	"lostfound_backend/internal/item"
	"lostfound_backend/internal/message"
	"lostfound_backend/internal/notification"
	"lostfound_backend/internal/platform/database"
	"lostfound_backend/internal/sanitize"
	"lostfound_backend/internal/user"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const proofImageSubDir = "claims"

// Service drives items through the claim part of their lifecycle.
type Service interface {
	SubmitProof(ctx context.Context, actor common.Actor, itemID uuid.UUID, note string, image *multipart.FileHeader) (*message.Message, error)
	ProofStatus(ctx context.Context, actor common.Actor, itemID uuid.UUID) (*ProofStatus, error)
	// ApproveClaim assigns the item to claimerID, or to the sender of the latest proof when claimerID is nil.
	ApproveClaim(ctx context.Context, actor common.Actor, itemID uuid.UUID, claimerID *uuid.UUID) (*item.Item, error)
	RejectClaim(ctx context.Context, actor common.Actor, itemID uuid.UUID) (*item.Item, error)
	RejectProof(ctx context.Context, actor common.Actor, itemID, claimerID uuid.UUID, reason string) error
	OwnerUpdateStatus(ctx context.Context, actor common.Actor, itemID uuid.UUID, status string) (*item.Item, error)
	AdminOverrideStatus(ctx context.Context, actor common.Actor, itemID uuid.UUID, status string, claimerID *uuid.UUID) (*item.Item, error)
	LatestProof(ctx context.Context, itemID uuid.UUID) (*message.Message, error)
	ListProofs(ctx context.Context, itemID uuid.UUID) ([]message.Message, error)
}

// ImageStore saves and removes uploaded images.
type ImageStore interface {
	SaveImage(ctx context.Context, fileHeader *multipart.FileHeader, subDir string) (filestorage.StoredFile, error)
	Delete(ctx context.Context, key string) error
}

// ServiceImplementation implements Service.
type ServiceImplementation struct {
	tx            database.Transactor
	items         item.Repository
	messages      message.Repository
	users         user.Repository
	notifications notification.Service
	images        ImageStore
	indexer       item.Indexer
	cfg           *config.Config
	logger        *zap.Logger
}

var _ Service = (*ServiceImplementation)(nil)

// NewService creates a new claim service.
func NewService(
	tx database.Transactor,
	items item.Repository,
	messages message.Repository,
	users user.Repository,
	notifications notification.Service,
	images ImageStore,
	indexer item.Indexer,
	cfg *config.Config,
	logger *zap.Logger,
) *ServiceImplementation {
	return &ServiceImplementation{
		tx:            tx,
		items:         items,
		messages:      messages,
		users:         users,
		notifications: notifications,
		images:        images,
		indexer:       indexer,
		cfg:           cfg,
		logger:        logger.Named("ClaimService"),
	}
}

// SubmitProof sends the claimant's evidence to the reporter, and to every active
// administrator when CLAIM_PROOF_COPY_ADMINS is set. The item itself is not changed.
func (s *ServiceImplementation) SubmitProof(ctx context.Context, actor common.Actor, itemID uuid.UUID, note string, image *multipart.FileHeader) (*message.Message, error) {
	it, err := s.items.FindByID(ctx, itemID)
	if err != nil {
		return nil, s.mapError(err, "find item", itemID)
	}
	if it.IsReporter(actor.ID) {
		return nil, common.ErrForbidden.WithMessage("Reporter cannot submit claim proof")
	}
	if it.DeletedByReporter {
		return nil, common.ErrNotFound.WithMessage("Item not found")
	}
	if it.Status == item.StatusReturned {
		return nil, common.ErrConflict.WithMessage("Item has already been returned")
	}
	submitter, err := s.users.FindByID(ctx, actor.ID)
	if err != nil {
		return nil, s.mapError(err, "find submitter", itemID)
	}
	if !submitter.IsActive {
		return nil, common.ErrForbidden.WithMessage("Account deactivated")
	}
	if note = sanitize.Text(note); note == "" {
		note = DefaultProofNote
	}

	var stored *filestorage.StoredFile
	if image != nil {
		f, err := s.images.SaveImage(ctx, image, proofImageSubDir)
		if err != nil {
			return nil, s.mapError(err, "save proof image", itemID)
		}
		stored = &f
	}

	var primary *message.Message
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		recipients := []uuid.UUID{it.ReportedBy}
		if s.cfg.ClaimProofCopyAdmins {
			admins, err := s.users.ActiveAdminIDs(ctx)
			if err != nil {
				return err
			}
			for _, id := range admins {
				if id != actor.ID && id != it.ReportedBy {
					recipients = append(recipients, id)
				}
			}
		}

		for _, to := range recipients {
			msg := &message.Message{
				SenderID:     actor.ID,
				ReceiverID:   to,
				ItemID:       &it.ID,
				Content:      note,
				IsClaimProof: true,
			}
			if stored != nil {
				msg.ImageURL = &stored.URL
				msg.ImageKey = &stored.Key
			}
			if err := s.messages.Create(ctx, msg); err != nil {
				return err
			}
			if primary == nil {
				primary = msg
			}
		}
		return s.notifications.Notify(ctx, recipients, notification.Draft{
			Type:      notification.TypeClaimProof,
			Title:     "Claim Proof Submitted",
			Message:   fmt.Sprintf("New claim proof was submitted for %q.", it.Name),
			RelatedID: &it.ID,
		})
	})
	if err != nil {
		if stored != nil {
			if delErr := s.images.Delete(ctx, stored.Key); delErr != nil {
				s.logger.Warn("Failed to remove stored image", zap.String("key", stored.Key), zap.Error(delErr))
			}
		}
		return nil, s.mapError(err, "submit proof", itemID)
	}

	s.logger.Info("Claim proof submitted",
		zap.String("item_id", itemID.String()),
		zap.String("claimant_id", actor.ID.String()),
	)
	return primary, nil
}

func (s *ServiceImplementation) ProofStatus(ctx context.Context, actor common.Actor, itemID uuid.UUID) (*ProofStatus, error) {
	it, err := s.items.FindByID(ctx, itemID)
	if err != nil {
		return nil, s.mapError(err, "find item", itemID)
	}
	has, err := s.messages.HasProofFrom(ctx, it.ID, it.ReportedBy, actor.ID)
	if err != nil {
		return nil, s.mapError(err, "check proof", itemID)
	}
	return &ProofStatus{
		HasSubmitted: has,
		IsClaimant:   it.ClaimedBy != nil && *it.ClaimedBy == actor.ID,
		ItemStatus:   it.Status,
	}, nil
}

// resolveClaimant returns explicit when given, otherwise the sender of the latest live proof.
// The result is always an active account other than the reporter.
func (s *ServiceImplementation) resolveClaimant(ctx context.Context, it *item.Item, explicit *uuid.UUID) (uuid.UUID, error) {
	var claimant uuid.UUID
	if explicit != nil {
		if it.IsReporter(*explicit) {
			return uuid.Nil, common.ErrBadRequest.WithMessage("Reporter cannot claim their own item")
		}
		claimant = *explicit
	} else {
		proof, err := s.messages.LatestProof(ctx, it.ID, it.ReportedBy)
		if errors.Is(err, common.ErrNotFound) {
			return uuid.Nil, common.ErrBadRequest.WithMessage("No proof available to determine claimer")
		}
		if err != nil {
			return uuid.Nil, err
		}
		claimant = proof.SenderID
	}

	u, err := s.users.FindByID(ctx, claimant)
	if errors.Is(err, common.ErrNotFound) || (err == nil && !u.IsActive) {
		return uuid.Nil, common.ErrBadRequest.WithMessage("Claimer not found or inactive")
	}
	if err != nil {
		return uuid.Nil, err
	}
	return claimant, nil
}

// claim moves a found item to claimed with a compare-and-set so that concurrent
// approvals cannot both succeed.
func (s *ServiceImplementation) claim(ctx context.Context, it *item.Item, explicit *uuid.UUID) (uuid.UUID, error) {
	if it.Status == item.StatusClaimed {
		return uuid.Nil, common.ErrConflict.WithMessage("Item already claimed")
	}
	if !item.CanTransition(it.Status, item.StatusClaimed) {
		return uuid.Nil, common.ErrConflict.WithMessage(fmt.Sprintf("Item cannot be claimed while %s", it.Status))
	}
	claimant, err := s.resolveClaimant(ctx, it, explicit)
	if err != nil {
		return uuid.Nil, err
	}
	ok, err := s.items.ClaimIfFound(ctx, it.ID, claimant)
	if err != nil {
		return uuid.Nil, err
	}
	if !ok {
		// Lost the race; report what the winner left behind.
		if _, err := s.items.FindByID(ctx, it.ID); err != nil {
			return uuid.Nil, err
		}
		return uuid.Nil, common.ErrConflict.WithMessage("Item already claimed")
	}
	return claimant, nil
}

func (s *ServiceImplementation) ApproveClaim(ctx context.Context, actor common.Actor, itemID uuid.UUID, claimerID *uuid.UUID) (*item.Item, error) {
	var claimant uuid.UUID
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		it, err := s.items.FindByID(ctx, itemID)
		if err != nil {
			return err
		}
		if claimant, err = s.claim(ctx, it, claimerID); err != nil {
			return err
		}
		if err := s.notifications.Notify(ctx, []uuid.UUID{it.ReportedBy}, notification.Draft{
			Type:      notification.TypeClaimApproved,
			Title:     "Claim Approved",
			Message:   fmt.Sprintf("A claim on %q was approved by an administrator.", it.Name),
			RelatedID: &it.ID,
		}); err != nil {
			return err
		}
		return s.notifications.Notify(ctx, []uuid.UUID{claimant}, notification.Draft{
			Type:      notification.TypeClaimApproved,
			Title:     "Claim Approved",
			Message:   fmt.Sprintf("Your claim on %q was approved.", it.Name),
			RelatedID: &it.ID,
		})
	})
	if err != nil {
		return nil, s.mapError(err, "approve claim", itemID)
	}

	s.logger.Info("Claim approved",
		zap.String("admin_id", actor.ID.String()),
		zap.String("item_id", itemID.String()),
		zap.String("claimant_id", claimant.String()),
	)
	return s.reload(ctx, itemID)
}

// RejectClaim reopens the item. It accepts claimed and found items only; any other status is a conflict.
// It also repairs rows whose status and claimant disagree,
// so calling it on an unclaimed found item is a no-op apart from the notification.
func (s *ServiceImplementation) RejectClaim(ctx context.Context, actor common.Actor, itemID uuid.UUID) (*item.Item, error) {
	var former *uuid.UUID
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		it, err := s.items.FindByIDForUpdate(ctx, itemID)
		if err != nil {
			return err
		}
		if it.Status != item.StatusClaimed && it.Status != item.StatusFound {
			return common.ErrConflict.WithMessage(fmt.Sprintf("Item has no claim to reject while %s", it.Status))
		}
		former = it.ClaimedBy
		if err := s.items.SetStatus(ctx, it.ID, item.StatusFound, nil, nil); err != nil {
			return err
		}

		if err := s.notifications.Notify(ctx, []uuid.UUID{it.ReportedBy}, notification.Draft{
			Type:      notification.TypeClaimRejected,
			Title:     "Claim Rejected",
			Message:   fmt.Sprintf("The claim on %q was rejected. The item is open again.", it.Name),
			RelatedID: &it.ID,
		}); err != nil {
			return err
		}
		if former == nil {
			return nil
		}
		return s.notifications.Notify(ctx, []uuid.UUID{*former}, notification.Draft{
			Type:      notification.TypeClaimRejected,
			Title:     "Claim Rejected",
			Message:   fmt.Sprintf("Your claim on %q was rejected.", it.Name),
			RelatedID: &it.ID,
		})
	})
	if err != nil {
		return nil, s.mapError(err, "reject claim", itemID)
	}

	fields := []zap.Field{zap.String("admin_id", actor.ID.String()), zap.String("item_id", itemID.String())}
	if former != nil {
		fields = append(fields, zap.String("former_claimant_id", former.String()))
	}
	s.logger.Info("Claim rejected", fields...)
	return s.reload(ctx, itemID)
}

// RejectProof tells one claimant their submission was not accepted. The item stays open.
func (s *ServiceImplementation) RejectProof(ctx context.Context, actor common.Actor, itemID, claimerID uuid.UUID, reason string) error {
	it, err := s.items.FindByID(ctx, itemID)
	if err != nil {
		return s.mapError(err, "find item", itemID)
	}
	if _, err := s.users.FindByID(ctx, claimerID); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.ErrNotFound.WithMessage("Claimer not found")
		}
		return s.mapError(err, "find claimer", itemID)
	}

	body := fmt.Sprintf("Your claim proof for %q was not accepted.", it.Name)
	if reason = sanitize.Text(reason); reason != "" {
		body = fmt.Sprintf("Your claim proof for %q was not accepted: %s", it.Name, reason)
	}
	err = s.notifications.Notify(ctx, []uuid.UUID{claimerID}, notification.Draft{
		Type:      notification.TypeProofRejected,
		Title:     "Claim Proof Rejected",
		Message:   body,
		RelatedID: &it.ID,
	})
	if err != nil {
		return s.mapError(err, "reject proof", itemID)
	}
	s.logger.Info("Claim proof rejected",
		zap.String("admin_id", actor.ID.String()),
		zap.String("item_id", itemID.String()),
		zap.String("claimant_id", claimerID.String()),
	)
	return nil
}

// OwnerUpdateStatus lets the reporter close the loop: claimed resolves the claimant from
// the latest proof, returned is only reachable from claimed.
func (s *ServiceImplementation) OwnerUpdateStatus(ctx context.Context, actor common.Actor, itemID uuid.UUID, status string) (*item.Item, error) {
	target, ok := item.ParseStatus(status)
	if !ok || (target != item.StatusClaimed && target != item.StatusReturned) {
		return nil, common.ErrBadRequest.WithMessage("Status must be claimed or returned")
	}

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var (
			it  *item.Item
			err error
		)
		if target == item.StatusReturned {
			it, err = s.items.FindByIDForUpdate(ctx, itemID)
		} else {
			it, err = s.items.FindByID(ctx, itemID)
		}
		if err != nil {
			return err
		}
		if !it.IsReporter(actor.ID) {
			return common.ErrForbidden.WithMessage("Only the reporter can update this item's status")
		}
		if it.DeletedByReporter {
			return common.ErrNotFound.WithMessage("Item not found")
		}

		if target == item.StatusClaimed {
			claimant, err := s.claim(ctx, it, nil)
			if err != nil {
				return err
			}
			return s.notifications.Notify(ctx, []uuid.UUID{claimant}, notification.Draft{
				Type:      notification.TypeClaimApproved,
				Title:     "Claim Approved",
				Message:   fmt.Sprintf("Your claim on %q was accepted by the reporter.", it.Name),
				RelatedID: &it.ID,
			})
		}

		if it.Status != item.StatusClaimed {
			return common.ErrConflict.WithMessage("Only claimed items can be marked returned")
		}
		return s.markReturned(ctx, it, false)
	})
	if err != nil {
		return nil, s.mapError(err, "owner status update", itemID)
	}
	s.logger.Info("Item status updated by reporter",
		zap.String("user_id", actor.ID.String()),
		zap.String("item_id", itemID.String()),
		zap.String("to_status", string(target)),
	)
	return s.reload(ctx, itemID)
}

// markReturned closes the item and records the former claimant as the recipient.
func (s *ServiceImplementation) markReturned(ctx context.Context, it *item.Item, notifyReporter bool) error {
	returnedTo := it.ClaimedBy
	if err := s.items.SetStatus(ctx, it.ID, item.StatusReturned, nil, returnedTo); err != nil {
		return err
	}
	var recipients []uuid.UUID
	if notifyReporter {
		recipients = append(recipients, it.ReportedBy)
	}
	if returnedTo != nil {
		recipients = append(recipients, *returnedTo)
	}
	return s.notifications.Notify(ctx, recipients, notification.Draft{
		Type:      notification.TypeItemReturned,
		Title:     "Item Returned",
		Message:   fmt.Sprintf("%q has been marked as returned.", it.Name),
		RelatedID: &it.ID,
	})
}

// AdminOverrideStatus sets any status. The claimant is kept consistent with the new status.
func (s *ServiceImplementation) AdminOverrideStatus(ctx context.Context, actor common.Actor, itemID uuid.UUID, status string, claimerID *uuid.UUID) (*item.Item, error) {
	target, ok := item.ParseStatus(status)
	if !ok {
		return nil, common.ErrBadRequest.WithMessage("Invalid status value")
	}

	var from item.Status
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		it, err := s.items.FindByIDForUpdate(ctx, itemID)
		if err != nil {
			return err
		}
		from = it.Status

		switch target {
		case item.StatusReturned:
			return s.markReturned(ctx, it, true)
		case item.StatusClaimed:
			explicit := claimerID
			if explicit == nil && it.ClaimedBy != nil {
				explicit = it.ClaimedBy
			}
			claimant, err := s.resolveClaimant(ctx, it, explicit)
			if err != nil {
				return err
			}
			if err := s.items.SetStatus(ctx, it.ID, item.StatusClaimed, &claimant, nil); err != nil {
				return err
			}
			return s.notifications.Notify(ctx, withDisplaced([]uuid.UUID{it.ReportedBy, claimant}, it.ClaimedBy, claimant), notification.Draft{
				Type:      notification.TypeItemStatus,
				Title:     "Item Status Updated",
				Message:   fmt.Sprintf("An administrator marked %q as claimed.", it.Name),
				RelatedID: &it.ID,
			})
		default:
			if err := s.items.SetStatus(ctx, it.ID, target, nil, nil); err != nil {
				return err
			}
			return s.notifications.Notify(ctx, withDisplaced([]uuid.UUID{it.ReportedBy}, it.ClaimedBy, uuid.Nil), notification.Draft{
				Type:      notification.TypeItemStatus,
				Title:     "Item Status Updated",
				Message:   fmt.Sprintf("An administrator changed the status of %q to %s.", it.Name, target),
				RelatedID: &it.ID,
			})
		}
	})
	if err != nil {
		return nil, s.mapError(err, "admin status override", itemID)
	}

	s.logger.Warn("Privileged action: item status overridden",
		zap.String("admin_id", actor.ID.String()),
		zap.String("item_id", itemID.String()),
		zap.String("from_status", string(from)),
		zap.String("to_status", string(target)),
	)
	return s.reload(ctx, itemID)
}

// withDisplaced adds the claimant an override removes from the item, if any.
func withDisplaced(recipients []uuid.UUID, former *uuid.UUID, next uuid.UUID) []uuid.UUID {
	if former == nil || *former == next {
		return recipients
	}
	return append(recipients, *former)
}

func (s *ServiceImplementation) LatestProof(ctx context.Context, itemID uuid.UUID) (*message.Message, error) {
	it, err := s.items.FindByID(ctx, itemID)
	if err != nil {
		return nil, s.mapError(err, "find item", itemID)
	}
	proof, err := s.messages.LatestProof(ctx, it.ID, it.ReportedBy)
	if err != nil {
		return nil, s.mapError(err, "latest proof", itemID)
	}
	return proof, nil
}

func (s *ServiceImplementation) ListProofs(ctx context.Context, itemID uuid.UUID) ([]message.Message, error) {
	it, err := s.items.FindByID(ctx, itemID)
	if err != nil {
		return nil, s.mapError(err, "find item", itemID)
	}
	proofs, err := s.messages.Proofs(ctx, it.ID, it.ReportedBy)
	if err != nil {
		return nil, s.mapError(err, "list proofs", itemID)
	}
	if proofs == nil {
		proofs = []message.Message{}
	}
	return proofs, nil
}

// reload returns the committed row and queues a search index refresh.
func (s *ServiceImplementation) reload(ctx context.Context, itemID uuid.UUID) (*item.Item, error) {
	item.SyncAfterCommit(ctx, s.indexer, s.items, itemID, s.logger)
	it, err := s.items.FindByID(ctx, itemID)
	if err != nil {
		return nil, s.mapError(err, "reload item", itemID)
	}
	return it, nil
}

func (s *ServiceImplementation) mapError(err error, op string, id uuid.UUID) error {
	if apiErr, ok := common.IsAPIError(err); ok {
		return apiErr
	}
	s.logger.Error("Claim operation failed", zap.String("op", op), zap.String("item_id", id.String()), zap.Error(err))
	return common.ErrInternalServer
}
