package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/proposal-review-api/internal/utils"
)

// AuthOptions configures WithAuth. An empty Roles list admits any authenticated account.
type AuthOptions struct {
	Roles []string
	// AllowAnonymous lets requests without a user through when Roles is empty.
	AllowAnonymous bool
}

// WithAuth guards a single handler, for routes that sit outside a role-scoped group.
func WithAuth(handler fiber.Handler, opts AuthOptions) fiber.Handler {
	allowed := roleSet(opts.Roles)
	guarded := len(allowed) > 0

	return func(c *fiber.Ctx) error {
		userID, _ := c.Locals("user_id").(uint)
		if userID == 0 && (guarded || !opts.AllowAnonymous) {
			return utils.Fail(c, fiber.StatusUnauthorized, "authentication required", nil)
		}

		if guarded {
			if _, ok := allowed[currentRole(c)]; !ok {
				return utils.Fail(c, fiber.StatusForbidden, "insufficient permissions", nil)
			}
		}

		return handler(c)
	}
}
