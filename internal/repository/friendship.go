package repository

import (
	"context"
	"errors"
	"time"

	"parley/internal/models"

	"gorm.io/gorm"
)

// FriendshipRepository defines the interface for friendship data operations
type FriendshipRepository interface {
	Create(ctx context.Context, friendship *models.Friendship) error
	GetBetween(ctx context.Context, userID1, userID2 uint) (*models.Friendship, error)
	ListFriends(ctx context.Context, userID uint) ([]models.User, error)
	AreFriends(ctx context.Context, userID1, userID2 uint) (bool, error)
	Remove(ctx context.Context, userID1, userID2 uint) error
	TouchLastInteraction(ctx context.Context, userID1, userID2 uint) error
}

// friendshipRepository implements FriendshipRepository
type friendshipRepository struct {
	db *gorm.DB
}

// NewFriendshipRepository creates a new friendship repository
func NewFriendshipRepository(db *gorm.DB) FriendshipRepository {
	return &friendshipRepository{db: db}
}

func (r *friendshipRepository) Create(ctx context.Context, friendship *models.Friendship) error {
	if err := r.db.WithContext(ctx).Create(friendship).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return models.NewConflictError("A friendship already exists between you")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *friendshipRepository) GetBetween(ctx context.Context, userID1, userID2 uint) (*models.Friendship, error) {
	a, b := models.CanonicalPair(userID1, userID2)

	var friendship models.Friendship
	if err := r.db.WithContext(ctx).
		Where("user_a_id = ? AND user_b_id = ?", a, b).
		Preload("UserA").
		Preload("UserB").
		First(&friendship).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil // No friendship exists
		}
		return nil, models.NewInternalError(err)
	}
	return &friendship, nil
}

func (r *friendshipRepository) ListFriends(ctx context.Context, userID uint) ([]models.User, error) {
	var users []models.User

	// The other user of every active friendship involving userID
	if err := r.db.WithContext(ctx).
		Table("users").
		Joins("JOIN friendships f ON (users.id = f.user_a_id OR users.id = f.user_b_id)").
		Where("f.status = ? AND (f.user_a_id = ? OR f.user_b_id = ?) AND users.id != ? AND f.deleted_at IS NULL",
			models.FriendshipStatusActive, userID, userID, userID).
		Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	return users, nil
}

func (r *friendshipRepository) AreFriends(ctx context.Context, userID1, userID2 uint) (bool, error) {
	a, b := models.CanonicalPair(userID1, userID2)

	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Friendship{}).
		Where("user_a_id = ? AND user_b_id = ? AND status = ?", a, b, models.FriendshipStatusActive).
		Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

// Remove hard-deletes the pair's row. A soft delete would keep the unique
// index occupied and block the users from ever re-friending.
func (r *friendshipRepository) Remove(ctx context.Context, userID1, userID2 uint) error {
	a, b := models.CanonicalPair(userID1, userID2)

	if err := r.db.WithContext(ctx).Unscoped().
		Where("user_a_id = ? AND user_b_id = ?", a, b).
		Delete(&models.Friendship{}).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *friendshipRepository) TouchLastInteraction(ctx context.Context, userID1, userID2 uint) error {
	a, b := models.CanonicalPair(userID1, userID2)

	if err := r.db.WithContext(ctx).
		Model(&models.Friendship{}).
		Where("user_a_id = ? AND user_b_id = ?", a, b).
		Update("last_interaction_at", time.Now()).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
