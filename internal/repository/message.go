package repository

import (
	"context"
	"errors"
	"time"

	"parley/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MessageRepository defines the interface for message data operations
type MessageRepository interface {
	Send(ctx context.Context, message *models.Message) error
	GetByID(ctx context.Context, id uint) (*models.Message, error)
	ListByConversation(ctx context.Context, conversationID uint, page, limit int) ([]models.Message, error)
	MarkReadUpTo(ctx context.Context, conversationID, userID, upToMessageID uint) ([]uint, error)
	Edit(ctx context.Context, messageID uint, content string) error
	Delete(ctx context.Context, messageID uint) error
	CountUnread(ctx context.Context, conversationID, userID uint) (int64, error)
	SetUnread(ctx context.Context, conversationID, userID uint, count int) error
}

// messageRepository implements MessageRepository
type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new message repository
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

// Send persists the message and its side effects in one transaction: the
// conversation's last-message snapshot moves forward and every other
// participant's unread counter is incremented. Either all of it lands or none.
func (r *messageRepository) Send(ctx context.Context, message *models.Message) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(message).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.Conversation{}).
			Where("id = ?", message.ConversationID).
			Updates(map[string]interface{}{
				"last_message_id": message.ID,
				"updated_at":      time.Now(),
			}).Error; err != nil {
			return err
		}

		return tx.Model(&models.ConversationParticipant{}).
			Where("conversation_id = ? AND user_id != ?", message.ConversationID, message.SenderID).
			UpdateColumn("unread_count", gorm.Expr("unread_count + 1")).Error
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *messageRepository) GetByID(ctx context.Context, id uint) (*models.Message, error) {
	var message models.Message
	if err := r.db.WithContext(ctx).
		Preload("Sender").
		Preload("ReadBy").
		First(&message, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Message", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &message, nil
}

func (r *messageRepository) ListByConversation(ctx context.Context, conversationID uint, page, limit int) ([]models.Message, error) {
	var messages []models.Message

	offset := (page - 1) * limit
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Preload("Sender").
		Preload("ReadBy").
		Find(&messages).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return messages, nil
}

// MarkReadUpTo records read receipts for every message in the conversation up
// to upToMessageID that was sent by someone else and not yet read by userID.
// It returns the IDs of messages newly marked read. The operation is
// idempotent: receipts insert with ON CONFLICT DO NOTHING, message status only
// moves forward (sent/delivered -> read), and the participant's unread counter
// is recomputed rather than blindly zeroed, so a repeat call changes nothing.
func (r *messageRepository) MarkReadUpTo(ctx context.Context, conversationID, userID, upToMessageID uint) ([]uint, error) {
	var newlyRead []uint

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []uint
		if err := tx.Model(&models.Message{}).
			Where("conversation_id = ? AND id <= ? AND sender_id != ?", conversationID, upToMessageID, userID).
			Where("id NOT IN (?)", tx.Model(&models.MessageRead{}).
				Select("message_id").
				Where("user_id = ?", userID)).
			Pluck("id", &ids).Error; err != nil {
			return err
		}

		if len(ids) > 0 {
			now := time.Now()
			receipts := make([]models.MessageRead, 0, len(ids))
			for _, id := range ids {
				receipts = append(receipts, models.MessageRead{
					MessageID: id,
					UserID:    userID,
					ReadAt:    now,
				})
			}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
				Create(&receipts).Error; err != nil {
				return err
			}

			// Monotonic: never move a read message back
			if err := tx.Model(&models.Message{}).
				Where("id IN ? AND status != ?", ids, models.MessageStatusRead).
				Update("status", models.MessageStatusRead).Error; err != nil {
				return err
			}
		}

		// Recompute the counter from receipts instead of trusting the cache
		var remaining int64
		if err := tx.Model(&models.Message{}).
			Where("conversation_id = ? AND sender_id != ?", conversationID, userID).
			Where("id NOT IN (?)", tx.Model(&models.MessageRead{}).
				Select("message_id").
				Where("user_id = ?", userID)).
			Count(&remaining).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.ConversationParticipant{}).
			Where("conversation_id = ? AND user_id = ?", conversationID, userID).
			Updates(map[string]interface{}{
				"unread_count": remaining,
				"last_read_at": time.Now(),
			}).Error; err != nil {
			return err
		}

		newlyRead = ids
		return nil
	})
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return newlyRead, nil
}

func (r *messageRepository) Edit(ctx context.Context, messageID uint, content string) error {
	now := time.Now()
	if err := r.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("id = ?", messageID).
		Updates(map[string]interface{}{
			"content":   content,
			"is_edited": true,
			"edited_at": &now,
		}).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// Delete soft-deletes the message. If it was the conversation's last-message
// snapshot, the snapshot falls back to the newest remaining message.
func (r *messageRepository) Delete(ctx context.Context, messageID uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var message models.Message
		if err := tx.First(&message, messageID).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.Message{}, messageID).Error; err != nil {
			return err
		}

		var conversation models.Conversation
		if err := tx.Select("id", "last_message_id").First(&conversation, message.ConversationID).Error; err != nil {
			return err
		}
		if conversation.LastMessageID == nil || *conversation.LastMessageID != messageID {
			return nil
		}

		var newLastID *uint
		var newest models.Message
		err := tx.Where("conversation_id = ?", message.ConversationID).
			Order("id DESC").
			First(&newest).Error
		switch {
		case err == nil:
			newLastID = &newest.ID
		case errors.Is(err, gorm.ErrRecordNotFound):
			// Conversation is now empty; clear the snapshot.
		default:
			return err
		}

		return tx.Model(&models.Conversation{}).
			Where("id = ?", message.ConversationID).
			Update("last_message_id", newLastID).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("Message", messageID)
		}
		return models.NewInternalError(err)
	}
	return nil
}

// CountUnread computes the true unread count for userID from read receipts.
func (r *messageRepository) CountUnread(ctx context.Context, conversationID, userID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("conversation_id = ? AND sender_id != ?", conversationID, userID).
		Where("id NOT IN (?)", r.db.Model(&models.MessageRead{}).
			Select("message_id").
			Where("user_id = ?", userID)).
		Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

// SetUnread overwrites the cached counter; used by the reconciliation path.
func (r *messageRepository) SetUnread(ctx context.Context, conversationID, userID uint, count int) error {
	if err := r.db.WithContext(ctx).
		Model(&models.ConversationParticipant{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		UpdateColumn("unread_count", count).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
