package repository

import (
	"context"
	"errors"
	"time"

	"parley/internal/models"

	"gorm.io/gorm"
)

// InvitationRepository defines the interface for friend invitation data operations
type InvitationRepository interface {
	Create(ctx context.Context, invitation *models.FriendInvitation) error
	GetByID(ctx context.Context, id uint) (*models.FriendInvitation, error)
	GetPendingBetween(ctx context.Context, senderID, receiverID uint) (*models.FriendInvitation, error)
	GetLatestBetween(ctx context.Context, userID1, userID2 uint) (*models.FriendInvitation, error)
	ListIncoming(ctx context.Context, userID uint) ([]models.FriendInvitation, error)
	ListOutgoing(ctx context.Context, userID uint) ([]models.FriendInvitation, error)
	Resolve(ctx context.Context, invitationID uint, status models.InvitationStatus) (bool, error)
	Accept(ctx context.Context, invitation *models.FriendInvitation) (*models.Friendship, error)
}

// invitationRepository implements InvitationRepository
type invitationRepository struct {
	db *gorm.DB
}

// NewInvitationRepository creates a new invitation repository
func NewInvitationRepository(db *gorm.DB) InvitationRepository {
	return &invitationRepository{db: db}
}

func (r *invitationRepository) Create(ctx context.Context, invitation *models.FriendInvitation) error {
	if err := r.db.WithContext(ctx).Create(invitation).Error; err != nil {
		// The partial unique index on the canonical pair rejects a second
		// pending invitation, including ones racing past the service check.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return models.NewConflictError("A pending invitation already exists between you")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *invitationRepository) GetByID(ctx context.Context, id uint) (*models.FriendInvitation, error) {
	var invitation models.FriendInvitation
	if err := r.db.WithContext(ctx).
		Preload("Sender").
		Preload("Receiver").
		First(&invitation, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Invitation", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &invitation, nil
}

func (r *invitationRepository) GetPendingBetween(ctx context.Context, senderID, receiverID uint) (*models.FriendInvitation, error) {
	var invitation models.FriendInvitation

	// A pending invitation in either direction blocks a new invite
	if err := r.db.WithContext(ctx).
		Where("status = ? AND ((sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?))",
			models.InvitationStatusPending, senderID, receiverID, receiverID, senderID).
		First(&invitation).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &invitation, nil
}

// GetLatestBetween returns the most recent invitation exchanged between the
// two users in either direction, regardless of status.
func (r *invitationRepository) GetLatestBetween(ctx context.Context, userID1, userID2 uint) (*models.FriendInvitation, error) {
	var invitation models.FriendInvitation
	if err := r.db.WithContext(ctx).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
			userID1, userID2, userID2, userID1).
		Order("id DESC").
		First(&invitation).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &invitation, nil
}

func (r *invitationRepository) ListIncoming(ctx context.Context, userID uint) ([]models.FriendInvitation, error) {
	var invitations []models.FriendInvitation
	if err := r.db.WithContext(ctx).
		Where("receiver_id = ? AND status = ?", userID, models.InvitationStatusPending).
		Preload("Sender").
		Order("created_at DESC").
		Find(&invitations).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return invitations, nil
}

func (r *invitationRepository) ListOutgoing(ctx context.Context, userID uint) ([]models.FriendInvitation, error) {
	var invitations []models.FriendInvitation
	if err := r.db.WithContext(ctx).
		Where("sender_id = ? AND status = ?", userID, models.InvitationStatusPending).
		Preload("Receiver").
		Order("created_at DESC").
		Find(&invitations).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return invitations, nil
}

// Resolve transitions a pending invitation to a terminal status. The WHERE
// clause on the current status makes concurrent resolutions race-safe: exactly
// one caller sees affected=true, everyone else gets false.
func (r *invitationRepository) Resolve(ctx context.Context, invitationID uint, status models.InvitationStatus) (bool, error) {
	updates := map[string]interface{}{"status": status}
	now := time.Now()
	switch status {
	case models.InvitationStatusAccepted:
		updates["accepted_at"] = &now
	case models.InvitationStatusRejected:
		updates["rejected_at"] = &now
	}

	result := r.db.WithContext(ctx).
		Model(&models.FriendInvitation{}).
		Where("id = ? AND status = ?", invitationID, models.InvitationStatusPending).
		Updates(updates)
	if result.Error != nil {
		return false, models.NewInternalError(result.Error)
	}
	return result.RowsAffected > 0, nil
}

// Accept atomically resolves the invitation and creates the friendship.
// If the invitation was already resolved, nothing is written and a conflict
// error is returned.
func (r *invitationRepository) Accept(ctx context.Context, invitation *models.FriendInvitation) (*models.Friendship, error) {
	friendship := &models.Friendship{
		UserAID: invitation.SenderID,
		UserBID: invitation.ReceiverID,
		Status:  models.FriendshipStatusActive,
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		result := tx.Model(&models.FriendInvitation{}).
			Where("id = ? AND status = ?", invitation.ID, models.InvitationStatusPending).
			Updates(map[string]interface{}{
				"status":      models.InvitationStatusAccepted,
				"accepted_at": &now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return models.NewConflictError("invitation is no longer pending")
		}
		return tx.Create(friendship).Error
	})
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, models.NewInternalError(err)
	}
	return friendship, nil
}
