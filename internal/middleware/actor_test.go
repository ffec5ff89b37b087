package middleware_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/pgh-dev/moim-api/internal/middleware"
)

const testSecret = "test-secret"

func newActorApp() *fiber.App {
	app := fiber.New()
	app.Use(middleware.ResolveActor(testSecret))
	app.Get("/", func(c *fiber.Ctx) error {
		userID, _ := c.Locals("user_id").(uint)
		username, _ := c.Locals("username").(string)
		return c.JSON(fiber.Map{"user_id": userID, "username": username})
	})
	return app
}

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestResolveActorBindsValidToken(t *testing.T) {
	app := newActorApp()

	token := signToken(t, testSecret, jwt.MapClaims{
		"sub":      "42",
		"username": "mina",
		"exp":      time.Now().Add(time.Hour).Unix(),
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := readJSON(t, resp)
	require.Equal(t, float64(42), body["user_id"])
	require.Equal(t, "mina", body["username"])
}

func TestResolveActorAcceptsQueryToken(t *testing.T) {
	app := newActorApp()

	token := signToken(t, testSecret, jwt.MapClaims{
		"sub": float64(7),
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	req := httptest.NewRequest(http.MethodGet, "/?token="+token, nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	body := readJSON(t, resp)
	require.Equal(t, float64(7), body["user_id"])
}

func TestResolveActorLeavesInvalidTokenAnonymous(t *testing.T) {
	app := newActorApp()

	forged := signToken(t, "wrong-secret", jwt.MapClaims{
		"sub": "42",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+forged)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, "a bad token never rejects the request")

	body := readJSON(t, resp)
	require.Equal(t, float64(0), body["user_id"])
}

func TestResolveActorLeavesMissingTokenAnonymous(t *testing.T) {
	app := newActorApp()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	body := readJSON(t, resp)
	require.Equal(t, float64(0), body["user_id"])
	require.Equal(t, "", body["username"])
}

func readJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}
