package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"parley/internal/models"
	"parley/internal/observability"
	"parley/internal/repository"
)

// FileRemover deletes stored attachment blobs when their message goes away.
// File storage itself lives outside this service; the default is a no-op.
type FileRemover interface {
	Remove(ctx context.Context, url string) error
}

type noopFileRemover struct{}

func (noopFileRemover) Remove(context.Context, string) error { return nil }

// MessageService owns conversation and message delivery logic: transactional
// sends with unread bookkeeping, idempotent read tracking, and the unread
// counter reconciliation path.
type MessageService struct {
	messageRepo      repository.MessageRepository
	conversationRepo repository.ConversationRepository
	friendshipRepo   repository.FriendshipRepository
	userRepo         repository.UserRepository
	files            FileRemover
}

// NewMessageService returns a new MessageService.
func NewMessageService(
	messageRepo repository.MessageRepository,
	conversationRepo repository.ConversationRepository,
	friendshipRepo repository.FriendshipRepository,
	userRepo repository.UserRepository,
) *MessageService {
	return &MessageService{
		messageRepo:      messageRepo,
		conversationRepo: conversationRepo,
		friendshipRepo:   friendshipRepo,
		userRepo:         userRepo,
		files:            noopFileRemover{},
	}
}

// WithFileRemover swaps in a real attachment remover.
func (s *MessageService) WithFileRemover(files FileRemover) *MessageService {
	s.files = files
	return s
}

// GetOrCreateDirectConversation returns the direct conversation between the
// two users, creating it if absent. Direct conversations require an active
// friendship.
func (s *MessageService) GetOrCreateDirectConversation(ctx context.Context, userID, otherID uint) (*models.Conversation, error) {
	if userID == otherID {
		return nil, models.NewValidationError("Cannot start a conversation with yourself")
	}

	if _, err := s.userRepo.GetByID(ctx, otherID); err != nil {
		return nil, err
	}

	areFriends, err := s.friendshipRepo.AreFriends(ctx, userID, otherID)
	if err != nil {
		return nil, err
	}
	if !areFriends {
		return nil, models.NewForbiddenError("You can only message your friends")
	}

	existing, err := s.conversationRepo.GetDirectBetween(ctx, userID, otherID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	return s.conversationRepo.CreateDirect(ctx, userID, otherID)
}

// CreateGroupConversation creates a group thread with the given members.
func (s *MessageService) CreateGroupConversation(ctx context.Context, creatorID uint, memberIDs []uint) (*models.Conversation, error) {
	if len(memberIDs) == 0 {
		return nil, models.NewValidationError("A group conversation needs at least one other member")
	}
	for _, id := range memberIDs {
		if id == creatorID {
			continue
		}
		if _, err := s.userRepo.GetByID(ctx, id); err != nil {
			return nil, err
		}
	}
	return s.conversationRepo.CreateGroup(ctx, creatorID, memberIDs)
}

// ListConversations returns the user's conversations, most recent first, with
// the caller's unread counter populated.
func (s *MessageService) ListConversations(ctx context.Context, userID uint, page, limit int) ([]models.Conversation, error) {
	page, limit = normalizePage(page, limit)
	return s.conversationRepo.ListForUser(ctx, userID, page, limit)
}

// GetConversation returns a conversation the user participates in.
func (s *MessageService) GetConversation(ctx context.Context, userID, conversationID uint) (*models.Conversation, error) {
	conversation, err := s.conversationRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conversation.HasParticipant(userID) {
		return nil, models.NewForbiddenError("You are not a participant in this conversation")
	}
	return conversation, nil
}

// SendMessage validates and persists a message. The repository applies the
// side effects (last-message snapshot, unread increments) in the same
// transaction, so callers can emit realtime events knowing state is durable.
func (s *MessageService) SendMessage(ctx context.Context, senderID, conversationID uint, content string, msgType models.MessageType, replyToID *uint, fileMeta *models.FileMeta) (*models.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, models.NewValidationError("Message content cannot be empty")
	}
	if msgType == "" {
		msgType = models.MessageTypeText
	}
	if !models.ValidMessageType(msgType) {
		return nil, models.NewValidationError("Unknown message type")
	}

	conversation, err := s.GetConversation(ctx, senderID, conversationID)
	if err != nil {
		return nil, err
	}

	if replyToID != nil {
		parent, err := s.messageRepo.GetByID(ctx, *replyToID)
		if err != nil {
			return nil, err
		}
		if parent.ConversationID != conversationID {
			return nil, models.NewValidationError("Reply target belongs to a different conversation")
		}
	}

	message := &models.Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		Type:           msgType,
		ReplyToID:      replyToID,
		Status:         models.MessageStatusSent,
	}
	if fileMeta != nil {
		raw, err := json.Marshal(fileMeta)
		if err != nil {
			return nil, models.NewInternalError(err)
		}
		message.FileMeta = raw
	}

	if err := s.messageRepo.Send(ctx, message); err != nil {
		return nil, err
	}

	if conversation.Type == models.ConversationDirect {
		for _, p := range conversation.Participants {
			if p.UserID != senderID {
				// Best effort; the message itself is already durable
				_ = s.friendshipRepo.TouchLastInteraction(ctx, senderID, p.UserID)
				break
			}
		}
	}

	observability.RecordMessage(string(conversation.Type), string(msgType))

	return s.messageRepo.GetByID(ctx, message.ID)
}

// ListMessages returns a page of the conversation's messages, newest first.
func (s *MessageService) ListMessages(ctx context.Context, userID, conversationID uint, page, limit int) ([]models.Message, error) {
	if _, err := s.GetConversation(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	page, limit = normalizePage(page, limit)
	return s.messageRepo.ListByConversation(ctx, conversationID, page, limit)
}

// MarkRead marks every message up to upToMessageID as read by userID and
// returns the IDs newly marked. A zero upToMessageID means "everything": the
// watermark defaults to the conversation's newest message. Calling it again
// with the same arguments is a no-op returning an empty slice.
func (s *MessageService) MarkRead(ctx context.Context, userID, conversationID, upToMessageID uint) ([]uint, error) {
	conversation, err := s.GetConversation(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}

	if upToMessageID == 0 {
		if conversation.LastMessageID == nil {
			return []uint{}, nil
		}
		upToMessageID = *conversation.LastMessageID
	} else {
		target, err := s.messageRepo.GetByID(ctx, upToMessageID)
		if err != nil {
			return nil, err
		}
		if target.ConversationID != conversationID {
			return nil, models.NewValidationError("Message belongs to a different conversation")
		}
	}

	return s.messageRepo.MarkReadUpTo(ctx, conversationID, userID, upToMessageID)
}

// EditMessage updates a message's content. Only the sender may edit.
func (s *MessageService) EditMessage(ctx context.Context, userID, messageID uint, content string) (*models.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, models.NewValidationError("Message content cannot be empty")
	}

	message, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if message.SenderID != userID {
		return nil, models.NewForbiddenError("You can only edit your own messages")
	}
	if message.Type != models.MessageTypeText {
		return nil, models.NewValidationError("Only text messages can be edited")
	}

	if err := s.messageRepo.Edit(ctx, messageID, content); err != nil {
		return nil, err
	}
	return s.messageRepo.GetByID(ctx, messageID)
}

// DeleteMessage removes a message. Only the sender may delete. The message's
// conversation ID is returned so the caller can address the deletion event.
func (s *MessageService) DeleteMessage(ctx context.Context, userID, messageID uint) (uint, error) {
	message, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return 0, err
	}
	if message.SenderID != userID {
		return 0, models.NewForbiddenError("You can only delete your own messages")
	}

	if err := s.messageRepo.Delete(ctx, messageID); err != nil {
		return 0, err
	}

	// Attachment cleanup is best effort; the message row is already gone.
	if len(message.FileMeta) > 0 {
		var meta models.FileMeta
		if err := json.Unmarshal(message.FileMeta, &meta); err == nil && meta.URL != "" {
			if err := s.files.Remove(ctx, meta.URL); err != nil {
				slog.Warn("failed to remove message attachment",
					"message_id", messageID, "url", meta.URL, "error", err.Error())
			}
		}
	}

	return message.ConversationID, nil
}

// ReconcileUnread recomputes the user's unread counter for a conversation from
// read receipts and repairs the cached value if it drifted. Returns the true
// count.
func (s *MessageService) ReconcileUnread(ctx context.Context, userID, conversationID uint) (int, error) {
	participant, err := s.conversationRepo.GetParticipant(ctx, conversationID, userID)
	if err != nil {
		return 0, err
	}
	if participant == nil {
		return 0, models.NewForbiddenError("You are not a participant in this conversation")
	}

	trueCount, err := s.messageRepo.CountUnread(ctx, conversationID, userID)
	if err != nil {
		return 0, err
	}

	if int(trueCount) == participant.UnreadCount {
		observability.UnreadReconciliations.WithLabelValues("consistent").Inc()
		return participant.UnreadCount, nil
	}

	if err := s.messageRepo.SetUnread(ctx, conversationID, userID, int(trueCount)); err != nil {
		observability.UnreadReconciliations.WithLabelValues("failed").Inc()
		return 0, err
	}
	observability.UnreadReconciliations.WithLabelValues("repaired").Inc()
	return int(trueCount), nil
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 50
	}
	return page, limit
}
