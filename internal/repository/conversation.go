package repository

import (
	"context"
	"errors"
	"time"

	"parley/internal/models"

	"gorm.io/gorm"
)

// ConversationRepository defines the interface for conversation data operations
type ConversationRepository interface {
	CreateDirect(ctx context.Context, creatorID, otherID uint) (*models.Conversation, error)
	CreateGroup(ctx context.Context, creatorID uint, memberIDs []uint) (*models.Conversation, error)
	GetByID(ctx context.Context, id uint) (*models.Conversation, error)
	GetDirectBetween(ctx context.Context, userID1, userID2 uint) (*models.Conversation, error)
	ListForUser(ctx context.Context, userID uint, page, limit int) ([]models.Conversation, error)
	GetParticipant(ctx context.Context, conversationID, userID uint) (*models.ConversationParticipant, error)
	ParticipantIDs(ctx context.Context, conversationID uint) ([]uint, error)
	ResetUnread(ctx context.Context, conversationID, userID uint) error
}

// conversationRepository implements ConversationRepository
type conversationRepository struct {
	db *gorm.DB
}

// NewConversationRepository creates a new conversation repository
func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

func (r *conversationRepository) CreateDirect(ctx context.Context, creatorID, otherID uint) (*models.Conversation, error) {
	conversation := &models.Conversation{
		Type:      models.ConversationDirect,
		CreatedBy: creatorID,
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(conversation).Error; err != nil {
			return err
		}
		now := time.Now()
		participants := []models.ConversationParticipant{
			{ConversationID: conversation.ID, UserID: creatorID, JoinedAt: now},
			{ConversationID: conversation.ID, UserID: otherID, JoinedAt: now},
		}
		return tx.Create(&participants).Error
	})
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return r.GetByID(ctx, conversation.ID)
}

func (r *conversationRepository) CreateGroup(ctx context.Context, creatorID uint, memberIDs []uint) (*models.Conversation, error) {
	conversation := &models.Conversation{
		Type:      models.ConversationGroup,
		CreatedBy: creatorID,
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(conversation).Error; err != nil {
			return err
		}
		now := time.Now()
		participants := []models.ConversationParticipant{
			{ConversationID: conversation.ID, UserID: creatorID, JoinedAt: now},
		}
		for _, id := range memberIDs {
			if id == creatorID {
				continue
			}
			participants = append(participants, models.ConversationParticipant{
				ConversationID: conversation.ID,
				UserID:         id,
				JoinedAt:       now,
			})
		}
		return tx.Create(&participants).Error
	})
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return r.GetByID(ctx, conversation.ID)
}

func (r *conversationRepository) GetByID(ctx context.Context, id uint) (*models.Conversation, error) {
	var conversation models.Conversation
	if err := r.db.WithContext(ctx).
		Preload("Participants").
		Preload("Participants.User").
		Preload("LastMessage").
		First(&conversation, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Conversation", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &conversation, nil
}

func (r *conversationRepository) GetDirectBetween(ctx context.Context, userID1, userID2 uint) (*models.Conversation, error) {
	var conversation models.Conversation

	// A direct conversation both users participate in
	if err := r.db.WithContext(ctx).
		Joins("JOIN conversation_participants p1 ON p1.conversation_id = conversations.id AND p1.user_id = ?", userID1).
		Joins("JOIN conversation_participants p2 ON p2.conversation_id = conversations.id AND p2.user_id = ?", userID2).
		Where("conversations.type = ?", models.ConversationDirect).
		Preload("Participants").
		First(&conversation).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &conversation, nil
}

func (r *conversationRepository) ListForUser(ctx context.Context, userID uint, page, limit int) ([]models.Conversation, error) {
	var conversations []models.Conversation

	offset := (page - 1) * limit
	if err := r.db.WithContext(ctx).
		Joins("JOIN conversation_participants p ON p.conversation_id = conversations.id AND p.user_id = ?", userID).
		Order("conversations.updated_at DESC").
		Offset(offset).
		Limit(limit).
		Preload("Participants").
		Preload("Participants.User").
		Preload("LastMessage").
		Find(&conversations).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	// Surface the caller's own unread counter on each conversation
	for i := range conversations {
		for _, p := range conversations[i].Participants {
			if p.UserID == userID {
				conversations[i].UnreadCount = p.UnreadCount
				break
			}
		}
	}

	return conversations, nil
}

func (r *conversationRepository) GetParticipant(ctx context.Context, conversationID, userID uint) (*models.ConversationParticipant, error) {
	var participant models.ConversationParticipant
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		First(&participant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &participant, nil
}

func (r *conversationRepository) ParticipantIDs(ctx context.Context, conversationID uint) ([]uint, error) {
	var ids []uint
	if err := r.db.WithContext(ctx).
		Model(&models.ConversationParticipant{}).
		Where("conversation_id = ?", conversationID).
		Pluck("user_id", &ids).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}

func (r *conversationRepository) ResetUnread(ctx context.Context, conversationID, userID uint) error {
	if err := r.db.WithContext(ctx).
		Model(&models.ConversationParticipant{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Updates(map[string]interface{}{
			"unread_count": 0,
			"last_read_at": time.Now(),
		}).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
