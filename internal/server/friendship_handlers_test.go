package server

import (
	"fmt"
	"net/http"
	"testing"

	"parley/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// invite sends an invitation from the token holder and returns its ID.
func invite(t *testing.T, app *fiber.App, token string, receiverID uint) uint {
	t.Helper()
	resp, env := doJSON(t, app, "POST", "/api/invitations/", token, map[string]interface{}{
		"receiver_id": receiverID,
		"message":     "let's be friends",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	return uint(dataMap(t, env)["id"].(float64))
}

// respond answers an invitation as the token holder.
func respond(t *testing.T, app *fiber.App, token string, invitationID uint, action string) (*http.Response, models.Envelope) {
	t.Helper()
	return doJSON(t, app, "PATCH", fmt.Sprintf("/api/invitations/%d/respond", invitationID), token,
		map[string]string{"action": action})
}

// makeFriends runs the invite/accept flow between two users.
func makeFriends(t *testing.T, app *fiber.App, senderToken, receiverToken string, receiverID uint) {
	t.Helper()
	id := invite(t, app, senderToken, receiverID)
	resp, _ := respond(t, app, receiverToken, id, "accept")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func listFriendIDs(t *testing.T, app *fiber.App, token string) []uint {
	t.Helper()
	resp, env := doJSON(t, app, "GET", "/api/friends/", token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var ids []uint
	if friends, ok := env.Data.([]interface{}); ok {
		for _, f := range friends {
			ids = append(ids, uint(f.(map[string]interface{})["id"].(float64)))
		}
	}
	return ids
}

func TestInvitationLifecycle(t *testing.T) {
	_, app := newTestServer(t)

	aliceToken, aliceID := signupUser(t, app, "alice")
	bobToken, bobID := signupUser(t, app, "bob")

	invitationID := invite(t, app, aliceToken, bobID)

	t.Run("both sides see the pending invitation", func(t *testing.T) {
		resp, env := doJSON(t, app, "GET", "/api/invitations/incoming", bobToken, nil)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		incoming := env.Data.([]interface{})
		require.Len(t, incoming, 1)
		assert.Equal(t, float64(aliceID), incoming[0].(map[string]interface{})["sender_id"])

		resp, env = doJSON(t, app, "GET", "/api/invitations/outgoing", aliceToken, nil)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		require.Len(t, env.Data.([]interface{}), 1)
	})

	t.Run("a second invitation to the same user conflicts", func(t *testing.T) {
		resp, _ := doJSON(t, app, "POST", "/api/invitations/", aliceToken, map[string]interface{}{
			"receiver_id": bobID,
		})
		assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	})

	t.Run("only the receiver may accept", func(t *testing.T) {
		resp, _ := respond(t, app, aliceToken, invitationID, "accept")
		assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	})

	t.Run("an unknown action is a validation error", func(t *testing.T) {
		resp, _ := respond(t, app, bobToken, invitationID, "maybe")
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	t.Run("accepting creates the friendship", func(t *testing.T) {
		resp, env := respond(t, app, bobToken, invitationID, "accept")
		require.Equal(t, fiber.StatusOK, resp.StatusCode)

		data := dataMap(t, env)
		inv := data["invitation"].(map[string]interface{})
		assert.Equal(t, "accepted", inv["status"])
		assert.NotNil(t, data["friendship"])

		assert.Contains(t, listFriendIDs(t, app, aliceToken), bobID)
		assert.Contains(t, listFriendIDs(t, app, bobToken), aliceID)
	})

	t.Run("a resolved invitation cannot be resolved again", func(t *testing.T) {
		resp, _ := respond(t, app, bobToken, invitationID, "reject")
		assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	})

	t.Run("inviting an existing friend conflicts", func(t *testing.T) {
		resp, _ := doJSON(t, app, "POST", "/api/invitations/", bobToken, map[string]interface{}{
			"receiver_id": aliceID,
		})
		assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	})
}

func TestInvitationRejectAndCancel(t *testing.T) {
	_, app := newTestServer(t)

	aliceToken, _ := signupUser(t, app, "alice")
	bobToken, bobID := signupUser(t, app, "bob")

	t.Run("receiver rejects", func(t *testing.T) {
		id := invite(t, app, aliceToken, bobID)

		// The sender cannot reject their own invitation.
		resp, _ := respond(t, app, aliceToken, id, "reject")
		assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

		resp, env := respond(t, app, bobToken, id, "reject")
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Equal(t, "rejected", dataMap(t, env)["status"])

		// Rejection doesn't create a friendship.
		assert.Empty(t, listFriendIDs(t, app, aliceToken))
	})

	t.Run("sender cancels", func(t *testing.T) {
		id := invite(t, app, aliceToken, bobID)

		// The receiver cannot cancel.
		resp, _ := doJSON(t, app, "DELETE", fmt.Sprintf("/api/invitations/%d", id), bobToken, nil)
		assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

		resp, env := doJSON(t, app, "DELETE", fmt.Sprintf("/api/invitations/%d", id), aliceToken, nil)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Equal(t, "cancelled", dataMap(t, env)["status"])
	})

	t.Run("rejection clears the way for a fresh invitation", func(t *testing.T) {
		invite(t, app, aliceToken, bobID)
	})

	t.Run("unknown invitation is 404", func(t *testing.T) {
		resp, _ := respond(t, app, bobToken, 99999, "accept")
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	})

	t.Run("missing receiver_id is a validation error", func(t *testing.T) {
		resp, _ := doJSON(t, app, "POST", "/api/invitations/", aliceToken, map[string]interface{}{})
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})
}

func TestUnfriend(t *testing.T) {
	_, app := newTestServer(t)

	aliceToken, aliceID := signupUser(t, app, "alice")
	bobToken, bobID := signupUser(t, app, "bob")
	makeFriends(t, app, aliceToken, bobToken, bobID)

	t.Run("removes the friendship for both sides", func(t *testing.T) {
		resp, env := doJSON(t, app, "DELETE", fmt.Sprintf("/api/friends/%d", bobID), aliceToken, nil)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Equal(t, true, dataMap(t, env)["removed"])

		assert.Empty(t, listFriendIDs(t, app, aliceToken))
		assert.Empty(t, listFriendIDs(t, app, bobToken))
	})

	t.Run("unfriending a stranger is 404", func(t *testing.T) {
		resp, _ := doJSON(t, app, "DELETE", fmt.Sprintf("/api/friends/%d", bobID), aliceToken, nil)
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	})

	t.Run("the pair can become friends again", func(t *testing.T) {
		makeFriends(t, app, bobToken, aliceToken, aliceID)
		assert.Contains(t, listFriendIDs(t, app, aliceToken), bobID)
	})
}
