package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/vaultpay/vaultpay/internal/auth"
)

// JWTAuth validates bearer access tokens and stashes the caller's user and
// account IDs in request locals.
func JWTAuth(tokens *auth.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		tokenStr := strings.TrimSpace(authz[len("Bearer "):])
		claims, err := tokens.Verify(tokenStr)
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "invalid token")
		}

		c.Locals("user_id", claims.Subject)
		c.Locals("account_id", claims.AccountID)
		return c.Next()
	}
}

// AccountID returns the authenticated account ID set by JWTAuth.
func AccountID(c *fiber.Ctx) string {
	id, _ := c.Locals("account_id").(string)
	return id
}
