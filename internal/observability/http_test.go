package observability_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/proposal-review-api/internal/observability"
)

func TestMetricsHandlerExposesReviewCollectors(t *testing.T) {
	observability.ReviewTransitions().WithLabelValues("final", "approved").Inc()
	observability.SubmissionsCreated().WithLabelValues("thesis").Inc()

	app := fiber.New()
	app.Get("/metrics", observability.MetricsHandler())

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `proposal_review_transitions_total{decision="approved",stage="final"}`)
	assert.Contains(t, string(body), `proposal_submissions_created_total{proposal_type="thesis"}`)
}

func TestMetricsHandlerNegotiatesOpenMetrics(t *testing.T) {
	app := fiber.New()
	app.Get("/metrics", observability.MetricsHandler())

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set("Accept", "application/openmetrics-text; version=1.0.0")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/openmetrics-text")
}
