package server

import (
	"parley/internal/models"
	"parley/internal/notifications"

	"github.com/gofiber/fiber/v2"
)

// SendInvitationRequest is the invitation creation body.
type SendInvitationRequest struct {
	ReceiverID uint   `json:"receiver_id"`
	Message    string `json:"message"`
}

// SendInvitation creates a pending friend invitation. The receiver gets a
// realtime hint; the invitation row is the durable state.
func (s *Server) SendInvitation(c *fiber.Ctx) error {
	var req SendInvitationRequest
	if err := c.BodyParser(&req); err != nil || req.ReceiverID == 0 {
		return models.RespondWithError(c, models.NewValidationError("receiver_id is required"))
	}

	invitation, err := s.friendshipService.Invite(c.UserContext(), currentUserID(c), req.ReceiverID, req.Message)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	s.gateway.EmitToUser(c.UserContext(), invitation.ReceiverID,
		notifications.NewInvitationEvent(notifications.EventFriendInvited, invitation))

	return models.RespondSuccess(c, fiber.StatusCreated, invitation)
}

// GetIncomingInvitations returns pending invitations addressed to the caller.
func (s *Server) GetIncomingInvitations(c *fiber.Ctx) error {
	invitations, err := s.friendshipService.ListIncoming(c.UserContext(), currentUserID(c))
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return models.RespondSuccess(c, fiber.StatusOK, invitations)
}

// GetOutgoingInvitations returns pending invitations sent by the caller.
func (s *Server) GetOutgoingInvitations(c *fiber.Ctx) error {
	invitations, err := s.friendshipService.ListOutgoing(c.UserContext(), currentUserID(c))
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return models.RespondSuccess(c, fiber.StatusOK, invitations)
}

// RespondInvitationRequest carries the receiver's answer.
type RespondInvitationRequest struct {
	Action string `json:"action"`
}

// RespondInvitation resolves a pending invitation as accepted or rejected.
// Only the receiver may respond; the sender learns the outcome via a realtime
// event. Accepting creates the friendship in the same transaction.
func (s *Server) RespondInvitation(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req RespondInvitationRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, models.NewValidationError("Invalid request body"))
	}

	switch req.Action {
	case "accept":
		invitation, friendship, err := s.friendshipService.Accept(c.UserContext(), currentUserID(c), id)
		if err != nil {
			return models.RespondWithError(c, err)
		}

		s.gateway.EmitToUser(c.UserContext(), invitation.SenderID,
			notifications.NewInvitationEvent(notifications.EventFriendAccepted, invitation))

		return models.RespondSuccess(c, fiber.StatusOK, fiber.Map{
			"invitation": invitation,
			"friendship": friendship,
		})

	case "reject":
		invitation, err := s.friendshipService.Reject(c.UserContext(), currentUserID(c), id)
		if err != nil {
			return models.RespondWithError(c, err)
		}

		s.gateway.EmitToUser(c.UserContext(), invitation.SenderID,
			notifications.NewInvitationEvent(notifications.EventFriendRejected, invitation))

		return models.RespondSuccess(c, fiber.StatusOK, invitation)

	default:
		return models.RespondWithError(c, models.NewValidationError("action must be \"accept\" or \"reject\""))
	}
}

// CancelInvitation withdraws a pending invitation the caller sent.
func (s *Server) CancelInvitation(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	invitation, err := s.friendshipService.Cancel(c.UserContext(), currentUserID(c), id)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	s.gateway.EmitToUser(c.UserContext(), invitation.ReceiverID,
		notifications.NewInvitationEvent(notifications.EventFriendCancelled, invitation))

	return models.RespondSuccess(c, fiber.StatusOK, invitation)
}

// GetFriends returns the caller's friends.
func (s *Server) GetFriends(c *fiber.Ctx) error {
	friends, err := s.friendshipService.ListFriends(c.UserContext(), currentUserID(c))
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return models.RespondSuccess(c, fiber.StatusOK, friends)
}

// Unfriend removes the friendship with the given user.
func (s *Server) Unfriend(c *fiber.Ctx) error {
	otherID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}

	userID := currentUserID(c)
	if err := s.friendshipService.Unfriend(c.UserContext(), userID, otherID); err != nil {
		return models.RespondWithError(c, err)
	}

	s.gateway.EmitToUser(c.UserContext(), otherID, notifications.NewFriendRemovedEvent(userID))

	return models.RespondSuccess(c, fiber.StatusOK, fiber.Map{"removed": true})
}
