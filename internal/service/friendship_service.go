// Package service contains the business logic layered over the repositories.
package service

import (
	"context"

	"parley/internal/models"
	"parley/internal/repository"
)

// FriendshipService drives the invitation state machine and the resulting
// friendships. An invitation moves pending -> accepted|rejected|cancelled
// exactly once; the repository's conditional update is the concurrency guard,
// this layer enforces who may trigger which transition.
type FriendshipService struct {
	invitationRepo repository.InvitationRepository
	friendshipRepo repository.FriendshipRepository
	userRepo       repository.UserRepository
}

// NewFriendshipService returns a new FriendshipService.
func NewFriendshipService(
	invitationRepo repository.InvitationRepository,
	friendshipRepo repository.FriendshipRepository,
	userRepo repository.UserRepository,
) *FriendshipService {
	return &FriendshipService{
		invitationRepo: invitationRepo,
		friendshipRepo: friendshipRepo,
		userRepo:       userRepo,
	}
}

// Invite creates a pending invitation from senderID to receiverID.
func (s *FriendshipService) Invite(ctx context.Context, senderID, receiverID uint, message string) (*models.FriendInvitation, error) {
	if senderID == receiverID {
		return nil, models.NewValidationError("Cannot send a friend invitation to yourself")
	}

	if _, err := s.userRepo.GetByID(ctx, receiverID); err != nil {
		return nil, err
	}

	// Any existing friendship row blocks a new invitation, blocked included.
	existing, err := s.friendshipRepo.GetBetween(ctx, senderID, receiverID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.Status == models.FriendshipStatusBlocked {
			return nil, models.NewConflictError("This relationship is blocked")
		}
		return nil, models.NewConflictError("You are already friends")
	}

	pending, err := s.invitationRepo.GetPendingBetween(ctx, senderID, receiverID)
	if err != nil {
		return nil, err
	}
	if pending != nil {
		if pending.SenderID == senderID {
			return nil, models.NewConflictError("Invitation already sent")
		}
		return nil, models.NewConflictError("This user has already invited you; respond to their invitation instead")
	}

	invitation := &models.FriendInvitation{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Status:     models.InvitationStatusPending,
		Message:    message,
	}
	if err := s.invitationRepo.Create(ctx, invitation); err != nil {
		return nil, err
	}

	return s.invitationRepo.GetByID(ctx, invitation.ID)
}

// Accept resolves the invitation and creates the friendship atomically. Only
// the receiver may accept.
func (s *FriendshipService) Accept(ctx context.Context, userID, invitationID uint) (*models.FriendInvitation, *models.Friendship, error) {
	invitation, err := s.invitationRepo.GetByID(ctx, invitationID)
	if err != nil {
		return nil, nil, err
	}

	if invitation.ReceiverID != userID {
		return nil, nil, models.NewForbiddenError("Only the receiver can accept an invitation")
	}
	if invitation.Status.IsTerminal() {
		return nil, nil, models.NewConflictError("Invitation has already been resolved")
	}

	friendship, err := s.invitationRepo.Accept(ctx, invitation)
	if err != nil {
		return nil, nil, err
	}

	invitation.Status = models.InvitationStatusAccepted
	return invitation, friendship, nil
}

// Reject resolves the invitation as rejected. Only the receiver may reject.
func (s *FriendshipService) Reject(ctx context.Context, userID, invitationID uint) (*models.FriendInvitation, error) {
	return s.resolve(ctx, userID, invitationID, models.InvitationStatusRejected)
}

// Cancel withdraws a pending invitation. Only the sender may cancel.
func (s *FriendshipService) Cancel(ctx context.Context, userID, invitationID uint) (*models.FriendInvitation, error) {
	return s.resolve(ctx, userID, invitationID, models.InvitationStatusCancelled)
}

func (s *FriendshipService) resolve(ctx context.Context, userID, invitationID uint, status models.InvitationStatus) (*models.FriendInvitation, error) {
	invitation, err := s.invitationRepo.GetByID(ctx, invitationID)
	if err != nil {
		return nil, err
	}

	switch status {
	case models.InvitationStatusRejected:
		if invitation.ReceiverID != userID {
			return nil, models.NewForbiddenError("Only the receiver can reject an invitation")
		}
	case models.InvitationStatusCancelled:
		if invitation.SenderID != userID {
			return nil, models.NewForbiddenError("Only the sender can cancel an invitation")
		}
	default:
		return nil, models.NewValidationError("Unsupported invitation transition")
	}

	if invitation.Status.IsTerminal() {
		return nil, models.NewConflictError("Invitation has already been resolved")
	}

	resolved, err := s.invitationRepo.Resolve(ctx, invitationID, status)
	if err != nil {
		return nil, err
	}
	if !resolved {
		// Lost the race against another resolution
		return nil, models.NewConflictError("Invitation has already been resolved")
	}

	invitation.Status = status
	return invitation, nil
}

// ListIncoming returns pending invitations addressed to the user.
func (s *FriendshipService) ListIncoming(ctx context.Context, userID uint) ([]models.FriendInvitation, error) {
	return s.invitationRepo.ListIncoming(ctx, userID)
}

// ListOutgoing returns pending invitations sent by the user.
func (s *FriendshipService) ListOutgoing(ctx context.Context, userID uint) ([]models.FriendInvitation, error) {
	return s.invitationRepo.ListOutgoing(ctx, userID)
}

// ListFriends returns the user's friends.
func (s *FriendshipService) ListFriends(ctx context.Context, userID uint) ([]models.User, error) {
	return s.friendshipRepo.ListFriends(ctx, userID)
}

// AreFriends reports whether an active friendship exists between the users.
func (s *FriendshipService) AreFriends(ctx context.Context, userID, otherID uint) (bool, error) {
	return s.friendshipRepo.AreFriends(ctx, userID, otherID)
}

// RelationshipStatus describes the viewer's standing with another user: the
// friendship status ("active"/"blocked") when one exists, otherwise
// "sent_<status>"/"received_<status>" for the latest invitation between them,
// otherwise "none".
func (s *FriendshipService) RelationshipStatus(ctx context.Context, viewerID, otherID uint) (string, error) {
	if viewerID == otherID {
		return "self", nil
	}

	friendship, err := s.friendshipRepo.GetBetween(ctx, viewerID, otherID)
	if err != nil {
		return "", err
	}
	if friendship != nil {
		return string(friendship.Status), nil
	}

	invitation, err := s.invitationRepo.GetLatestBetween(ctx, viewerID, otherID)
	if err != nil {
		return "", err
	}
	if invitation == nil {
		return "none", nil
	}
	if invitation.SenderID == viewerID {
		return "sent_" + string(invitation.Status), nil
	}
	return "received_" + string(invitation.Status), nil
}

// AnnotateSearch attaches the viewer's relationship status to each search hit.
func (s *FriendshipService) AnnotateSearch(ctx context.Context, viewerID uint, users []models.User) ([]models.UserSearchResult, error) {
	results := make([]models.UserSearchResult, 0, len(users))
	for _, user := range users {
		status, err := s.RelationshipStatus(ctx, viewerID, user.ID)
		if err != nil {
			return nil, err
		}
		results = append(results, models.UserSearchResult{User: user, RelationshipStatus: status})
	}
	return results, nil
}

// Unfriend removes the friendship between userID and otherID.
func (s *FriendshipService) Unfriend(ctx context.Context, userID, otherID uint) error {
	friendship, err := s.friendshipRepo.GetBetween(ctx, userID, otherID)
	if err != nil {
		return err
	}
	if friendship == nil {
		return models.NewNotFoundError("Friendship", otherID)
	}
	return s.friendshipRepo.Remove(ctx, userID, otherID)
}
