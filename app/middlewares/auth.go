package middlewares

import (
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"

	"speeddating/app/models"
	"speeddating/app/utils"
)

// UserIDKey is the fiber.Ctx locals key holding the authenticated user id
const UserIDKey = "user_id"

// JWTMiddleware requires a valid HS256 bearer token and stores the user id in locals
func JWTMiddleware(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return unauthorized(c, "Authorization header is required")
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			return unauthorized(c, "Invalid authorization header format")
		}

		userID, err := utils.VerifyJWTToken(secret, strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			slog.Debug("jwt validation failed", "path", c.Path(), "error", err)
			return unauthorized(c, "Invalid or expired token")
		}

		c.Locals(UserIDKey, userID)
		return c.Next()
	}
}

// UserID returns the authenticated user id set by JWTMiddleware
func UserID(c *fiber.Ctx) string {
	userID, _ := c.Locals(UserIDKey).(string)
	return userID
}

func unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"status":  "error",
		"code":    models.ErrorCodeUnauthorized,
		"message": message,
	})
}
