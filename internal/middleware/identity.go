package middleware

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/proposal-review-api/internal/service"
	"github.com/noah-isme/proposal-review-api/internal/utils"
)

// IdentityResolver looks up the directory record behind an authenticated user id.
type IdentityResolver interface {
	Resolve(ctx context.Context, userID uint) (service.Actor, error)
}

// RequireApprovedIdentity rejects tokens whose account is unknown, pending or rejected, and
// replaces the token's role claim with the role stored in the directory.
func RequireApprovedIdentity(resolver IdentityResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok := c.Locals("user_id").(uint)
		if !ok || userID == 0 {
			return utils.Fail(c, fiber.StatusUnauthorized, "authentication required", nil)
		}

		ctx := c.UserContext()
		if ctx == nil {
			ctx = context.Background()
		}

		actor, err := resolver.Resolve(ctx, userID)
		switch {
		case err == nil:
		case errors.Is(err, service.ErrNotFound):
			return utils.Fail(c, fiber.StatusUnauthorized, "account not found", nil)
		case errors.Is(err, service.ErrUnauthorized):
			return utils.Fail(c, fiber.StatusForbidden, err.Error(), nil)
		default:
			return utils.Fail(c, fiber.StatusInternalServerError, "failed to resolve identity", nil)
		}

		c.Locals("user_role", actor.Role)
		return c.Next()
	}
}
