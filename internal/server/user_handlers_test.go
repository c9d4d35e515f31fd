package server

import (
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// searchStatuses maps username -> relationship_status from a search response.
func searchStatuses(t *testing.T, app *fiber.App, token, query string) map[string]string {
	t.Helper()

	resp, env := doJSON(t, app, "GET", "/api/users/search?q="+query, token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	statuses := make(map[string]string)
	if hits, ok := env.Data.([]interface{}); ok {
		for _, h := range hits {
			hit := h.(map[string]interface{})
			statuses[hit["username"].(string)] = hit["relationship_status"].(string)
		}
	}
	return statuses
}

func TestUserProfiles(t *testing.T) {
	_, app := newTestServer(t)

	token, userID := signupUser(t, app, "profileuser")

	t.Run("me returns the caller", func(t *testing.T) {
		resp, env := doJSON(t, app, "GET", "/api/users/me", token, nil)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Equal(t, float64(userID), dataMap(t, env)["id"])
	})

	t.Run("unknown profile is 404", func(t *testing.T) {
		resp, _ := doJSON(t, app, "GET", "/api/users/99999", token, nil)
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	})

	t.Run("short search query is rejected", func(t *testing.T) {
		resp, _ := doJSON(t, app, "GET", "/api/users/search?q=a", token, nil)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})
}

func TestSearchRelationshipAnnotation(t *testing.T) {
	_, app := newTestServer(t)

	aliceToken, _ := signupUser(t, app, "seeker")
	bobToken, bobID := signupUser(t, app, "quarry")
	_, _ = signupUser(t, app, "quarrel")

	t.Run("strangers show none", func(t *testing.T) {
		statuses := searchStatuses(t, app, aliceToken, "quarr")
		require.Len(t, statuses, 2)
		for username, status := range statuses {
			assert.Equal(t, "none", status, "user %s", username)
		}
	})

	invitationID := invite(t, app, aliceToken, bobID)

	t.Run("a pending invitation shows its direction", func(t *testing.T) {
		statuses := searchStatuses(t, app, aliceToken, "quarry")
		assert.Contains(t, mapValues(statuses), "sent_pending")

		statuses = searchStatuses(t, app, bobToken, "seeker")
		assert.Contains(t, mapValues(statuses), "received_pending")
	})

	t.Run("an accepted invitation shows the friendship", func(t *testing.T) {
		resp, _ := respond(t, app, bobToken, invitationID, "accept")
		require.Equal(t, fiber.StatusOK, resp.StatusCode)

		statuses := searchStatuses(t, app, aliceToken, "quarry")
		assert.Contains(t, mapValues(statuses), "active")
	})
}

func mapValues(m map[string]string) []string {
	values := make([]string, 0, len(m))
	for _, v := range m {
		values = append(values, v)
	}
	return values
}
