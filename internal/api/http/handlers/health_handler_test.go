package handlers

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/persistence"
)

func TestLiveReportsServiceIdentity(t *testing.T) {
	h := NewHealthHandler("helpdesk-service", "1.0.0", &persistence.Postgres{}, &persistence.Redis{}, nil)

	app := fiber.New()
	app.Get("/health/live", h.Live)

	resp, err := app.Test(httptest.NewRequest("GET", "/health/live", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &body))

	assert.Equal(t, "alive", body["status"])
	assert.Equal(t, "helpdesk-service", body["service"])
	assert.Equal(t, "1.0.0", body["version"])
}

func TestReadyFailsWhenDependenciesUnconfigured(t *testing.T) {
	h := NewHealthHandler("helpdesk-service", "1.0.0", &persistence.Postgres{}, &persistence.Redis{}, nil)

	app := fiber.New()
	app.Get("/health/ready", h.Ready)

	resp, err := app.Test(httptest.NewRequest("GET", "/health/ready", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)

	var body map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &body))

	errObj, ok := body["error"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "DEPENDENCY_UNAVAILABLE", errObj["code"])

	details, ok := errObj["details"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, details, "postgres")
	assert.Contains(t, details, "redis")
}
