package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/proposal-review-api/internal/middleware"
)

func TestCorrelationID(t *testing.T) {
	cases := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{name: "reuses correlation header", headers: map[string]string{"X-Correlation-ID": "review-123"}, want: "review-123"},
		{name: "falls back to request id", headers: map[string]string{"X-Request-ID": "req-9"}, want: "req-9"},
		{name: "replaces oversized id", headers: map[string]string{"X-Correlation-ID": strings.Repeat("a", 200)}},
		{name: "replaces id with spaces", headers: map[string]string{"X-Correlation-ID": "two words"}},
		{name: "mints when absent"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := fiber.New()
			app.Use(middleware.CorrelationID())
			app.Get("/", func(c *fiber.Ctx) error {
				fromCtx := middleware.CorrelationIDFromContext(c.UserContext())
				require.Equal(t, middleware.GetCorrelationID(c), fromCtx)
				return c.SendString(fromCtx)
			})

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for key, value := range tc.headers {
				req.Header.Set(key, value)
			}
			resp, err := app.Test(req, -1)
			require.NoError(t, err)

			echoed := resp.Header.Get(middleware.HeaderCorrelationID)
			assert.Equal(t, echoed, readBody(t, resp))
			if tc.want != "" {
				assert.Equal(t, tc.want, echoed)
				return
			}
			_, err = uuid.Parse(echoed)
			assert.NoError(t, err)
		})
	}
}
