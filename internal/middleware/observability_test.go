package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/studenthub-portal/internal/observability"
)

func TestObservabilityCountsRequestsByRoute(t *testing.T) {
	app := fiber.New()
	app.Use(CorrelationID())
	app.Use(Observability(zerolog.Nop()))
	app.Get("/metrics", observability.MetricsHandler())
	app.Get("/faculty/activities/:id", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusBadGateway)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/faculty/activities/act-1", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadGateway, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `portal_errors_total{method="GET",route="/faculty/activities/:id",status="502"}`)
	require.NotContains(t, string(body), `route="/metrics"`)
}

func TestCorrelationIDEchoesIncomingHeader(t *testing.T) {
	app := fiber.New()
	app.Use(CorrelationID())
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(GetCorrelationID(c))
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-7")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, "req-7", resp.Header.Get("X-Correlation-ID"))

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	require.NotEmpty(t, resp.Header.Get("X-Correlation-ID"))
}

func TestLatencyBucket(t *testing.T) {
	require.Equal(t, "<=50ms", latencyBucket(10*time.Millisecond))
	require.Equal(t, "<=1s", latencyBucket(400*time.Millisecond))
	require.Equal(t, ">5s", latencyBucket(6*time.Second))
}

func TestRateLimitAnswersWithEnvelope(t *testing.T) {
	app := fiber.New()
	app.Post("/login", RateLimit("login", 1, time.Minute), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/login", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodPost, "/login", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
}
