package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newInstrumentedApp(t *testing.T) (*fiber.App, *PrometheusMiddleware) {
	t.Helper()

	// Fresh registry per test to avoid duplicate registration panics.
	reg := prometheus.NewRegistry()
	promMiddleware, err := NewPrometheusMiddleware(reg)
	require.NoError(t, err)

	app := fiber.New()
	app.Use(promMiddleware.Handler())
	return app, promMiddleware
}

func TestPrometheusMiddleware(t *testing.T) {
	app, promMiddleware := newInstrumentedApp(t)

	app.Get("/test", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	app.Delete("/test", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	app.Get("/error", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusBadRequest, "bad request")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/test", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), testutil.ToFloat64(promMiddleware.requestCount.WithLabelValues("GET", "/test", "200")))

	respDelete, err := app.Test(httptest.NewRequest("DELETE", "/test", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, respDelete.StatusCode)
	assert.Equal(t, float64(1), testutil.ToFloat64(promMiddleware.requestCount.WithLabelValues("DELETE", "/test", "200")))

	_, err = app.Test(httptest.NewRequest("GET", "/error", nil))
	require.NoError(t, err)
	assert.Equal(t, float64(1), testutil.ToFloat64(promMiddleware.requestCount.WithLabelValues("GET", "/error", "400")))
}

func TestPrometheusMiddleware_ExcludeMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	promMiddleware, err := NewPrometheusMiddleware(reg)
	require.NoError(t, err)

	app := fiber.New()
	app.Use(promMiddleware.Handler())
	app.Get("/metrics", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	_, err = app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)

	// Scrapes of /metrics itself must not show up in the counters.
	mfs, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() == "http_requests_total" {
			assert.Empty(t, mf.GetMetric(), "expected no series for http_requests_total")
		}
	}
}

func TestPrometheusMiddleware_PathPattern(t *testing.T) {
	app, promMiddleware := newInstrumentedApp(t)

	app.Get("/reports/:id", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	_, err := app.Test(httptest.NewRequest("GET", "/reports/7f1d1c3a-7b4e-4a52-90f2-0a2f84c7f0ee", nil))
	require.NoError(t, err)

	// The route pattern is the label, not the raw path with the ID in it.
	count := testutil.ToFloat64(promMiddleware.requestCount.WithLabelValues("GET", "/reports/:id", "200"))
	assert.Equal(t, float64(1), count)

	assert.NotZero(t, testutil.CollectAndCount(promMiddleware.requestDuration), "duration histogram should have recorded the request")
}
