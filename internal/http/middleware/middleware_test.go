package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestID_GeneratesWhenMissing(t *testing.T) {
	app := fiber.New()
	app.Use(RequestID())
	app.Get("/", func(c *fiber.Ctx) error {
		rid, _ := c.Locals(RequestIDLocalKey).(string)
		assert.NotEmpty(t, rid)
		return c.SendStatus(http.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Header.Get(RequestIDHeader))
}

func TestRequestID_PropagatesIncoming(t *testing.T) {
	app := fiber.New()
	app.Use(RequestID())
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "incoming-id")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "incoming-id", resp.Header.Get(RequestIDHeader))
}

func TestLogger_EmitsStructuredEntry(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)

	app := fiber.New()
	app.Use(RequestID())
	app.Use(Logger(log))
	app.Get("/ping", func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusTeapot)
	})

	_, err := app.Test(httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "GET", entry["method"])
	assert.Equal(t, "/ping", entry["path"])
	assert.Equal(t, float64(http.StatusTeapot), entry["status"])
	assert.NotEmpty(t, entry["request_id"])
	assert.Contains(t, entry, "latency_ms")
}

func TestRequireAuth(t *testing.T) {
	const secret = "mw-test-secret"

	newApp := func() *fiber.App {
		app := fiber.New()
		app.Get("/secure", RequireAuth(secret), func(c *fiber.Ctx) error {
			return c.JSON(fiber.Map{
				"user_id": c.Locals(UserIDLocalKey),
				"email":   c.Locals(UserEmailLocalKey),
			})
		})
		return app
	}

	sign := func(t *testing.T, claims jwt.MapClaims, key string) string {
		t.Helper()
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
		require.NoError(t, err)
		return s
	}

	t.Run("valid token populates locals", func(t *testing.T) {
		token := sign(t, jwt.MapClaims{
			"sub":   "u1",
			"email": "a@b.c",
			"exp":   time.Now().Add(time.Hour).Unix(),
		}, secret)

		req := httptest.NewRequest(http.MethodGet, "/secure", nil)
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := newApp().Test(req)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "u1", body["user_id"])
		assert.Equal(t, "a@b.c", body["email"])
	})

	t.Run("expired token rejected", func(t *testing.T) {
		token := sign(t, jwt.MapClaims{
			"sub": "u1",
			"exp": time.Now().Add(-time.Hour).Unix(),
		}, secret)

		req := httptest.NewRequest(http.MethodGet, "/secure", nil)
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := newApp().Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("missing subject rejected", func(t *testing.T) {
		token := sign(t, jwt.MapClaims{
			"exp": time.Now().Add(time.Hour).Unix(),
		}, secret)

		req := httptest.NewRequest(http.MethodGet, "/secure", nil)
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := newApp().Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("missing header rejected", func(t *testing.T) {
		resp, err := newApp().Test(httptest.NewRequest(http.MethodGet, "/secure", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}
