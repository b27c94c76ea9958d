package middleware

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func corsApp(suffix string) *fiber.App {
	app := fiber.New()
	app.Use(CORS(CORSConfig{AllowedSuffix: suffix}))
	app.Get("/ping", func(c *fiber.Ctx) error {
		return c.SendString("pong")
	})
	return app
}

func TestCORS_NoOriginPasses(t *testing.T) {
	app := corsApp(".sellerpilot.app")

	resp, err := app.Test(httptest.NewRequest("GET", "/ping", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestCORS_LocalhostAllowed(t *testing.T) {
	app := corsApp(".sellerpilot.app")

	req := httptest.NewRequest("GET", "/ping", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
}

func TestCORS_PreflightShortCircuits(t *testing.T) {
	app := corsApp(".sellerpilot.app")

	req := httptest.NewRequest("OPTIONS", "/ping", nil)
	req.Header.Set("Origin", "http://127.0.0.1:5173")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 204, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "POST")
}

func TestCORS_SuffixMatchIsCaseInsensitive(t *testing.T) {
	app := corsApp(".sellerpilot.app")

	req := httptest.NewRequest("GET", "/ping", nil)
	req.Header.Set("Origin", "https://Dashboard.SellerPilot.App")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "https://Dashboard.SellerPilot.App", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestCORS_UnknownOriginRejected(t *testing.T) {
	app := corsApp(".sellerpilot.app")

	req := httptest.NewRequest("GET", "/ping", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 403, resp.StatusCode)

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "error", out["status"])
	errObj, _ := out["error"].(map[string]interface{})
	require.NotNil(t, errObj)
	assert.Equal(t, "Not allowed by CORS", errObj["message"])
}
