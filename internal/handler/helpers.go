package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/proposal-review-api/internal/middleware"
	"github.com/noah-isme/proposal-review-api/internal/service"
	"github.com/noah-isme/proposal-review-api/internal/utils"
)

// Empty query values decode to the zero value so filters stay optional.
func queryValue(c *fiber.Ctx, key string) string {
	return strings.TrimSpace(c.Query(key))
}

func parseQueryInt(c *fiber.Ctx, key string) (int, error) {
	if raw := queryValue(c, key); raw != "" {
		return strconv.Atoi(raw)
	}
	return 0, nil
}

func parseQueryUint(c *fiber.Ctx, key string) (uint, error) {
	raw := queryValue(c, key)
	if raw == "" {
		return 0, nil
	}
	parsed, err := strconv.ParseUint(raw, 10, 64)
	return uint(parsed), err
}

func parseQueryBool(c *fiber.Ctx, key string) (bool, error) {
	if raw := queryValue(c, key); raw != "" {
		return strconv.ParseBool(raw)
	}
	return false, nil
}

func parseQueryTime(c *fiber.Ctx, key string) (*time.Time, error) {
	raw := queryValue(c, key)
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func parseUintParam(c *fiber.Ctx, key string) (uint, error) {
	raw := strings.TrimSpace(c.Params(key))
	if raw == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	parsed, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || parsed == 0 {
		return 0, errInvalidQuery(key)
	}
	return uint(parsed), nil
}

// userIDFromContext returns 0 when the request carries no usable account id.
func userIDFromContext(c *fiber.Ctx) uint {
	switch id := c.Locals("user_id").(type) {
	case uint:
		return id
	case int:
		if id > 0 {
			return uint(id)
		}
	}
	return 0
}

func userRoleFromContext(c *fiber.Ctx) string {
	role, _ := c.Locals("user_role").(string)
	return role
}

// actorFromContext reads the identity placed on the request by the auth middleware.
func actorFromContext(c *fiber.Ctx) (service.Actor, bool) {
	id := userIDFromContext(c)
	if id == 0 {
		return service.Actor{}, false
	}
	return service.Actor{ID: id, Role: userRoleFromContext(c)}, true
}

func requestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

func isValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}

func validationDetails(err error) map[string]string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}
	details := make(map[string]string, len(validationErrors))
	for _, fieldErr := range validationErrors {
		details[strings.ToLower(fieldErr.Field())] = fieldErr.Tag()
	}
	return details
}

// writeServiceError maps workflow error kinds onto HTTP statuses and surfaces the message verbatim.
func writeServiceError(c *fiber.Ctx, logger zerolog.Logger, err error) error {
	switch {
	case isValidationError(err):
		return utils.Fail(c, fiber.StatusBadRequest, "validation failed", validationDetails(err))
	case errors.Is(err, service.ErrValidation):
		return utils.Fail(c, fiber.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, service.ErrNotFound):
		return utils.Fail(c, fiber.StatusNotFound, err.Error(), nil)
	case errors.Is(err, service.ErrUnauthorized):
		return utils.Fail(c, fiber.StatusForbidden, err.Error(), nil)
	case errors.Is(err, service.ErrInvalidState), errors.Is(err, service.ErrConflict):
		return utils.Fail(c, fiber.StatusConflict, err.Error(), nil)
	case errors.Is(err, service.ErrPolicyViolation):
		return utils.Fail(c, fiber.StatusUnprocessableEntity, err.Error(), nil)
	case errors.Is(err, service.ErrUnavailable):
		return utils.Fail(c, fiber.StatusServiceUnavailable, err.Error(), nil)
	default:
		requestLogger(logger, c).Error().Err(err).Str("path", c.Path()).Msg("request failed")
		return utils.Fail(c, fiber.StatusInternalServerError, "internal server error", nil)
	}
}

func errInvalidQuery(key string) error {
	return fmt.Errorf("invalid %s", key)
}
