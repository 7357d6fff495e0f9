package auth

import (
	"conversation-runtime/server/internal/errors"
	"conversation-runtime/server/internal/models"

	"github.com/gofiber/fiber/v2"
)

// UserContextKey is the key used to store the authenticated user in the
// fiber context.
const UserContextKey = "user"

// RequireAuth gates a route group behind a valid bearer session — used on
// /api/sessions/* so a session's owner is known.
func RequireAuth(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := ExtractBearerToken(c.Get("Authorization"))
		if err != nil {
			return handleAuthError(c, err)
		}

		user, err := svc.ValidateSession(token)
		if err != nil {
			return handleAuthError(c, err)
		}

		c.Locals(UserContextKey, user)
		return c.Next()
	}
}

// GetUserFromContext retrieves the authenticated user set by RequireAuth.
func GetUserFromContext(c *fiber.Ctx) (*models.User, error) {
	user, ok := c.Locals(UserContextKey).(*models.User)
	if !ok || user == nil {
		return nil, errors.New(errors.ErrUnauthorized, "user not authenticated")
	}
	return user, nil
}

func handleAuthError(c *fiber.Ctx, err error) error {
	if appErr, ok := errors.IsAppError(err); ok {
		return c.Status(appErr.StatusCode()).JSON(fiber.Map{
			"error":   appErr.Code,
			"message": appErr.Message,
		})
	}

	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error":   errors.ErrUnauthorized,
		"message": "authentication required",
	})
}
