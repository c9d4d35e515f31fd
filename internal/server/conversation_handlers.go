package server

import (
	"parley/internal/models"
	"parley/internal/notifications"

	"github.com/gofiber/fiber/v2"
)

// CreateConversationRequest creates a group conversation.
type CreateConversationRequest struct {
	Type      models.ConversationType `json:"type"`
	MemberIDs []uint                  `json:"member_ids"` // all other participants
}

// SendMessageRequest is the message creation body.
type SendMessageRequest struct {
	Content   string             `json:"content"`
	Type      models.MessageType `json:"type"`
	ReplyToID *uint              `json:"reply_to_id"`
	FileMeta  *models.FileMeta   `json:"file_meta"`
}

// MarkReadRequest optionally bounds the mark-read sweep at a message ID.
type MarkReadRequest struct {
	UpToMessageID uint `json:"up_to_message_id"`
}

// EditMessageRequest is the message edit body.
type EditMessageRequest struct {
	Content string `json:"content"`
}

// CreateConversation creates a group conversation. Direct conversations are
// never created explicitly; they materialize via GetDirectConversation.
func (s *Server) CreateConversation(c *fiber.Ctx) error {
	var req CreateConversationRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, models.NewValidationError("Invalid request body"))
	}

	switch req.Type {
	case models.ConversationGroup:
		conversation, err := s.messageService.CreateGroupConversation(c.UserContext(), currentUserID(c), req.MemberIDs)
		if err != nil {
			return models.RespondWithError(c, err)
		}
		return models.RespondSuccess(c, fiber.StatusCreated, conversation)
	case models.ConversationDirect, "":
		return models.RespondWithError(c, models.NewValidationError("Direct conversations are opened by fetching them for a friend"))
	default:
		return models.RespondWithError(c, models.NewValidationError("Unknown conversation type"))
	}
}

// GetConversations lists the caller's conversations with unread counters.
func (s *Server) GetConversations(c *fiber.Ctx) error {
	p := parsePagination(c, 20)
	conversations, err := s.messageService.ListConversations(c.UserContext(), currentUserID(c), p.Page, p.Limit)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return models.RespondPage(c, conversations, p.Page, p.Limit, len(conversations) == p.Limit)
}

// GetDirectConversation returns the caller's direct conversation with the
// given friend, creating it on first use.
func (s *Server) GetDirectConversation(c *fiber.Ctx) error {
	friendID, err := s.parseID(c, "friendId")
	if err != nil {
		return nil
	}

	conversation, err := s.messageService.GetOrCreateDirectConversation(c.UserContext(), currentUserID(c), friendID)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return models.RespondSuccess(c, fiber.StatusOK, conversation)
}

// GetMessages returns a page of a conversation's messages, newest first.
func (s *Server) GetMessages(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	p := parsePagination(c, 50)
	messages, err := s.messageService.ListMessages(c.UserContext(), currentUserID(c), id, p.Page, p.Limit)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return models.RespondPage(c, messages, p.Page, p.Limit, len(messages) == p.Limit)
}

// SendMessage persists a message, then emits the realtime event to the
// conversation room. The emission happens only after the transaction commits,
// so clients never see an event for a message that failed to persist.
func (s *Server) SendMessage(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, models.NewValidationError("Invalid request body"))
	}

	message, err := s.messageService.SendMessage(c.UserContext(), currentUserID(c), id,
		req.Content, req.Type, req.ReplyToID, req.FileMeta)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	s.gateway.EmitToRoom(c.UserContext(), notifications.ConversationRoom(id),
		notifications.NewMessageEvent(message))

	return models.RespondSuccess(c, fiber.StatusCreated, message)
}

// MarkConversationRead records read receipts and announces the status
// transition. Without a body (or without up_to_message_id) every unread
// message in the conversation is covered. Repeat calls are no-ops and emit
// nothing.
func (s *Server) MarkConversationRead(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req MarkReadRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return models.RespondWithError(c, models.NewValidationError("Invalid request body"))
		}
	}

	userID := currentUserID(c)
	newlyRead, err := s.messageService.MarkRead(c.UserContext(), userID, id, req.UpToMessageID)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	if len(newlyRead) > 0 {
		s.gateway.EmitToRoom(c.UserContext(), notifications.ConversationRoom(id),
			notifications.NewMessageStatusEvent(id, newlyRead, models.MessageStatusRead, userID))
	}

	return models.RespondSuccess(c, fiber.StatusOK, fiber.Map{
		"read_message_ids": newlyRead,
	})
}

// ReconcileUnread recomputes the caller's unread counter for a conversation.
func (s *Server) ReconcileUnread(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	count, err := s.messageService.ReconcileUnread(c.UserContext(), currentUserID(c), id)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return models.RespondSuccess(c, fiber.StatusOK, fiber.Map{"unread_count": count})
}

// EditMessage updates a message's content and announces the edit.
func (s *Server) EditMessage(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req EditMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, models.NewValidationError("Invalid request body"))
	}

	message, err := s.messageService.EditMessage(c.UserContext(), currentUserID(c), id, req.Content)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	s.gateway.EmitToRoom(c.UserContext(), notifications.ConversationRoom(message.ConversationID),
		notifications.NewMessageEditedEvent(message))

	return models.RespondSuccess(c, fiber.StatusOK, message)
}

// DeleteMessage removes a message and announces the deletion.
func (s *Server) DeleteMessage(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	conversationID, err := s.messageService.DeleteMessage(c.UserContext(), currentUserID(c), id)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	s.gateway.EmitToRoom(c.UserContext(), notifications.ConversationRoom(conversationID),
		notifications.NewMessageDeletedEvent(conversationID, id))

	return models.RespondSuccess(c, fiber.StatusOK, fiber.Map{"deleted": true})
}
