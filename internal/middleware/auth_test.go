package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"parley/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-auth-middleware-tests"

func init() {
	InitMiddleware(&config.Config{JWTSecret: testSecret, Env: "test"})
}

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func validClaims(userID string) jwt.MapClaims {
	return jwt.MapClaims{
		"sub": userID,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(time.Hour).Unix(),
	}
}

func TestParseToken(t *testing.T) {
	t.Run("valid token yields user ID", func(t *testing.T) {
		userID, err := ParseToken(signToken(t, testSecret, validClaims("42")))
		require.NoError(t, err)
		assert.Equal(t, uint(42), userID)
	})

	t.Run("wrong secret is rejected", func(t *testing.T) {
		_, err := ParseToken(signToken(t, "some-other-secret-entirely-wrong!!", validClaims("42")))
		assert.Error(t, err)
	})

	t.Run("expired token is rejected", func(t *testing.T) {
		claims := validClaims("42")
		claims["exp"] = time.Now().Add(-time.Hour).Unix()
		_, err := ParseToken(signToken(t, testSecret, claims))
		assert.Error(t, err)
	})

	t.Run("missing subject is rejected", func(t *testing.T) {
		claims := validClaims("42")
		delete(claims, "sub")
		_, err := ParseToken(signToken(t, testSecret, claims))
		assert.Error(t, err)
	})

	t.Run("non-numeric subject is rejected", func(t *testing.T) {
		_, err := ParseToken(signToken(t, testSecret, validClaims("mallory")))
		assert.Error(t, err)
	})

	t.Run("garbage is rejected", func(t *testing.T) {
		_, err := ParseToken("not.a.token")
		assert.Error(t, err)
	})
}

func newAuthTestApp(handler fiber.Handler) *fiber.App {
	app := fiber.New()
	app.Get("/protected", handler, func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"user_id": c.Locals("userID")})
	})
	return app
}

func TestAuthRequired(t *testing.T) {
	app := newAuthTestApp(AuthRequired)

	t.Run("no header is 401", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/protected", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("malformed header is 401", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/protected", nil)
		req.Header.Set("Authorization", "Token abc")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("valid bearer token passes", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, validClaims("7")))
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})
}

func TestWebSocketAuthRequired(t *testing.T) {
	app := newAuthTestApp(WebSocketAuthRequired)

	t.Run("rejects before any upgrade when the token is bad", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/protected?token=garbage", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("accepts a query token", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/protected?token="+signToken(t, testSecret, validClaims("7")), nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})

	t.Run("falls back to the Authorization header", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, validClaims("7")))
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})

	t.Run("no token anywhere is 401", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/protected", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})
}
