package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/proposal-review-api/internal/observability"
)

// Observability records request metrics for every API route and logs workflow writes and failures.
// Reads that succeed are counted but not logged.
func Observability(logger zerolog.Logger) fiber.Handler {
	observability.RegisterMetrics()

	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		if !strings.HasPrefix(c.Path(), "/api/v1") {
			return err
		}

		duration := time.Since(start)
		route := routeTemplate(c)
		method := c.Method()
		status := c.Response().StatusCode()
		statusLabel := strconv.Itoa(status)
		scope := routeScope(c.Path())

		observability.HTTPRequests().WithLabelValues(scope, method, route, statusLabel).Inc()
		observability.HTTPLatency().WithLabelValues(scope, method, route).Observe(duration.Seconds())
		if status >= fiber.StatusBadRequest {
			observability.HTTPErrors().WithLabelValues(scope, method, route, statusLabel).Inc()
		}

		if method == fiber.MethodGet && status < fiber.StatusBadRequest {
			return err
		}

		event := logger.With().
			Str("correlation_id", GetCorrelationID(c)).
			Str("scope", scope).
			Str("route", route).
			Str("method", method).
			Int("status", status).
			Float64("latency_ms", float64(duration)/float64(time.Millisecond)).
			Str("latency_bucket", latencyBucket(duration)).
			Interface("user_id", c.Locals("user_id")).
			Logger()

		switch {
		case status >= fiber.StatusInternalServerError:
			event.Error().Msg("request failed")
		case status >= fiber.StatusBadRequest:
			event.Warn().Msg("request rejected")
		default:
			event.Info().Msg("request completed")
		}

		return err
	}
}

// routeScope groups routes for metric labels: admin, submissions, or api.
func routeScope(path string) string {
	switch {
	case strings.HasPrefix(path, "/api/v1/admin"):
		return "admin"
	case strings.HasPrefix(path, "/api/v1/submissions"):
		return "submissions"
	default:
		return "api"
	}
}

func routeTemplate(c *fiber.Ctx) string {
	if c.Route() != nil && c.Route().Path != "" {
		return c.Route().Path
	}
	return c.Path()
}

func latencyBucket(duration time.Duration) string {
	switch {
	case duration <= 25*time.Millisecond:
		return "<=25ms"
	case duration <= 100*time.Millisecond:
		return "<=100ms"
	case duration <= 500*time.Millisecond:
		return "<=500ms"
	case duration <= 2*time.Second:
		return "<=2s"
	default:
		return ">2s"
	}
}
