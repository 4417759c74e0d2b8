package middleware

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/proposal-review-api/internal/utils"
)

// RequireRole admits requests whose resolved role is one of roles.
func RequireRole(roles ...string) fiber.Handler {
	allowed := roleSet(roles)
	message := fmt.Sprintf("requires role %s", strings.Join(sortedRoles(allowed), " or "))

	return func(c *fiber.Ctx) error {
		if _, ok := allowed[currentRole(c)]; !ok {
			return utils.Fail(c, fiber.StatusForbidden, message, nil)
		}
		return c.Next()
	}
}

func roleSet(roles []string) map[string]struct{} {
	set := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		if normalized := strings.ToLower(strings.TrimSpace(role)); normalized != "" {
			set[normalized] = struct{}{}
		}
	}
	return set
}

func sortedRoles(set map[string]struct{}) []string {
	roles := make([]string, 0, len(set))
	for role := range set {
		roles = append(roles, role)
	}
	sort.Strings(roles)
	return roles
}

func currentRole(c *fiber.Ctx) string {
	switch v := c.Locals("user_role").(type) {
	case string:
		return strings.ToLower(strings.TrimSpace(v))
	case fmt.Stringer:
		return strings.ToLower(strings.TrimSpace(v.String()))
	default:
		return ""
	}
}
