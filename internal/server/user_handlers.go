package server

import (
	"strings"

	"parley/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetMyProfile returns the authenticated user's record.
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	user, err := s.userRepo.GetByID(c.UserContext(), currentUserID(c))
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return models.RespondSuccess(c, fiber.StatusOK, user)
}

// GetUserProfile returns another user's public record.
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	user, err := s.userRepo.GetByID(c.UserContext(), id)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return models.RespondSuccess(c, fiber.StatusOK, user)
}

// SearchUsers finds users by username fragment, each annotated with the
// caller's relationship to them.
func (s *Server) SearchUsers(c *fiber.Ctx) error {
	query := strings.TrimSpace(c.Query("q"))
	if len(query) < 2 {
		return models.RespondWithError(c, models.NewValidationError("Search query must be at least 2 characters"))
	}

	users, err := s.userRepo.Search(c.UserContext(), query, 20)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	results, err := s.friendshipService.AnnotateSearch(c.UserContext(), currentUserID(c), users)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return models.RespondSuccess(c, fiber.StatusOK, results)
}

// GetOnlineUsers returns the IDs of currently connected users.
func (s *Server) GetOnlineUsers(c *fiber.Ctx) error {
	ids := s.gateway.OnlineUserIDs(c.UserContext())
	return models.RespondSuccess(c, fiber.StatusOK, fiber.Map{"user_ids": ids})
}
