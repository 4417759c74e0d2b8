package middleware

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/proposal-review-api/internal/utils"
)

// AccessClaims is the token payload issued by the campus identity provider.
// The role claim is advisory; RequireApprovedIdentity replaces it with the directory role.
type AccessClaims struct {
	UserID uint   `json:"user_id,omitempty"`
	Role   string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// AccountID resolves the numeric account id, preferring user_id over sub.
func (c AccessClaims) AccountID() (uint, error) {
	if c.UserID > 0 {
		return c.UserID, nil
	}
	sub := strings.TrimSpace(c.RegisteredClaims.Subject)
	if sub == "" {
		return 0, errors.New("token subject missing")
	}
	parsed, err := strconv.ParseUint(sub, 10, 64)
	if err != nil || parsed == 0 {
		return 0, errors.New("token subject is not an account id")
	}
	return uint(parsed), nil
}

// JWTProtected validates HS256 bearer tokens and exposes user_id and user_role locals.
func JWTProtected(secret string) fiber.Handler {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	key := []byte(secret)

	return func(c *fiber.Ctx) error {
		tokenString, err := bearerToken(c.Get(fiber.HeaderAuthorization))
		if err != nil {
			return utils.SendError(c, fiber.StatusUnauthorized, err.Error())
		}

		claims := &AccessClaims{}
		token, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
			return key, nil
		})
		if err != nil || !token.Valid {
			if errors.Is(err, jwt.ErrTokenExpired) {
				return utils.SendError(c, fiber.StatusUnauthorized, "token expired")
			}
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		userID, err := claims.AccountID()
		if err != nil {
			return utils.SendError(c, fiber.StatusUnauthorized, err.Error())
		}

		c.Locals("user_id", userID)
		if role := strings.ToLower(strings.TrimSpace(claims.Role)); role != "" {
			c.Locals("user_role", role)
		}

		return c.Next()
	}
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", errors.New("authorization header missing")
	}

	const bearer = "bearer "
	if len(header) < len(bearer) || !strings.EqualFold(header[:len(bearer)], bearer) {
		return "", errors.New("invalid authorization header")
	}

	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("invalid token")
	}
	return token, nil
}
