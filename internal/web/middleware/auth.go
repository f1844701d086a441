package middleware

import (
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/newzealection/new-zealection/internal/auth"
	"github.com/newzealection/new-zealection/internal/web/utils"
)

// AuthRequired middleware ensures the user carries a valid session cookie
func AuthRequired(sessions *auth.SessionService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, err := sessions.GetSession(c)
		if err != nil {
			slog.Debug("Auth required: no valid session", slog.String("error", err.Error()))
			return redirectToLogin(c)
		}

		if session == nil || session.UserID == "" {
			slog.Debug("Auth required: invalid session")
			return redirectToLogin(c)
		}

		c.Locals("user", session)
		return c.Next()
	}
}

// AdminRequired middleware ensures the user has admin privileges. It expects
// AuthRequired to have run first.
func AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, ok := utils.ExtractUserSession(c)
		if !ok {
			slog.Warn("Admin required: no user in context")
			return utils.SendForbidden(c, "Access denied")
		}

		if !session.IsAdmin {
			slog.Warn("Admin required: user lacks admin privileges",
				slog.String("user_id", session.UserID))
			return utils.SendForbidden(c, "Admin access required")
		}

		return c.Next()
	}
}

// OptionalAuth adds user info to context if authenticated, but doesn't require it
func OptionalAuth(sessions *auth.SessionService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, err := sessions.GetSession(c)
		if err == nil && session != nil && session.UserID != "" {
			c.Locals("user", session)
		}
		return c.Next()
	}
}

// redirectToLogin redirects to login page for web requests or returns 401 for API requests
func redirectToLogin(c *fiber.Ctx) error {
	if isAPIRequest(c) {
		return utils.SendUnauthorized(c, "Authentication required")
	}
	return c.Redirect("/auth/login")
}

// isAPIRequest checks if the request is an API request
func isAPIRequest(c *fiber.Ctx) bool {
	path := c.Path()
	if strings.HasPrefix(path, "/api/") || strings.HasPrefix(path, "/admin/api/") {
		return true
	}

	accept := c.Get("Accept")
	return strings.Contains(accept, "application/json")
}
