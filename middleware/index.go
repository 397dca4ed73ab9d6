package middleware

import (
	"errors"
	"slices"
	"strings"

	"nightlife_order/constants"
	"nightlife_order/helper"
	"nightlife_order/utils"

	"github.com/gofiber/fiber/v2"
)

// Protected accepts a bearer header, an access_token cookie, or a token query
// parameter for websocket upgrades.
func Protected(secret []byte) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Cookies("access_token")

		if token == "" {
			auth := c.Get("Authorization")
			if strings.HasPrefix(auth, "Bearer ") {
				token = strings.TrimPrefix(auth, "Bearer ")
			}
		}
		if token == "" {
			token = c.Query("token")
		}

		if token == "" {
			return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Missing token", errors.New("no token"))
		}

		claim, err := helper.ParseToken(token, secret)
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid token", err)
		}

		c.Locals("claim", claim)
		return c.Next()
	}
}

func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claim, ok := helper.ClaimFromCtx(c)
		if !ok || !slices.Contains(roles, claim.Role) {
			return utils.ErrorResponse(c, fiber.StatusForbidden, constants.ERROR_UNAUTHORIZED, errors.New("role not allowed"))
		}
		return c.Next()
	}
}
