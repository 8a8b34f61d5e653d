package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"fileportal/internal/auth"
	"fileportal/internal/model"
)

const (
	// AccountIDLocalKey is the key under which Auth stores the authenticated
	// account ID in Fiber's context locals.
	AccountIDLocalKey = "account_id"
	// ProfileLocalKey is the key under which LoadProfile stores the resolved
	// application profile.
	ProfileLocalKey = "profile"
)

// TokenParser validates a bearer token and returns its claims.
type TokenParser interface {
	ParseToken(token string) (*auth.Claims, error)
}

// ProfileLoader resolves an account ID to its application profile.
type ProfileLoader interface {
	Profile(ctx context.Context, accountID string) (*model.Profile, error)
}

// Auth requires a valid bearer token on the request. On success the account
// ID is stored under AccountIDLocalKey; otherwise the request is rejected
// with 401 via the global error handler.
func Auth(parser TokenParser) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			return fiber.ErrUnauthorized
		}

		claims, err := parser.ParseToken(token)
		if err != nil {
			return fiber.ErrUnauthorized
		}

		c.Locals(AccountIDLocalKey, claims.UserID)
		return c.Next()
	}
}

// LoadProfile resolves the authenticated account to its application profile
// and stores it under ProfileLocalKey. An account without a profile has no
// application access and is rejected with 403. Must run after Auth.
func LoadProfile(profiles ProfileLoader) fiber.Handler {
	return func(c *fiber.Ctx) error {
		accountID, _ := c.Locals(AccountIDLocalKey).(string)
		if accountID == "" {
			return fiber.ErrUnauthorized
		}

		profile, err := profiles.Profile(c.UserContext(), accountID)
		if err != nil {
			return fiber.ErrForbidden
		}

		c.Locals(ProfileLocalKey, profile)
		return c.Next()
	}
}

// RequireAdmin rejects any request whose loaded profile is not an admin.
// Must run after LoadProfile.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		profile, _ := c.Locals(ProfileLocalKey).(*model.Profile)
		if profile == nil || profile.Role != model.RoleAdmin {
			return fiber.ErrForbidden
		}
		return c.Next()
	}
}
