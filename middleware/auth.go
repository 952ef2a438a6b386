package middleware

import (
	"net/http"
	"strings"

	"tradie_legal_go/db"
	"tradie_legal_go/models"
	"tradie_legal_go/services"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

const (
	// ContextKeyUser is the context key for the authenticated user
	ContextKeyUser = "user"
	// ContextKeySession is the context key for the session
	ContextKeySession = "session"
)

// RequireAuth authenticates the request via a bearer session token in the
// Authorization header.
func RequireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := bearerToken(c)
			if token == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Missing authentication token")
			}

			session, err := services.ValidateSession(db.DB, token)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired session")
			}

			if !session.User.IsActive {
				return echo.NewHTTPError(http.StatusUnauthorized, "Account is disabled")
			}

			c.Set(ContextKeyUser, &session.User)
			c.Set(ContextKeySession, session)

			return next(c)
		}
	}
}

// RequireRole requires the authenticated user to hold one of the roles
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := GetCurrentUser(c)
			if user == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Not authenticated")
			}

			for _, role := range roles {
				if user.Role == role {
					return next(c)
				}
			}

			return echo.NewHTTPError(http.StatusForbidden, "Insufficient permissions")
		}
	}
}

// GetCurrentUser retrieves the current user from context
func GetCurrentUser(c echo.Context) *models.User {
	user, ok := c.Get(ContextKeyUser).(*models.User)
	if !ok {
		return nil
	}
	return user
}

// GetCurrentSession retrieves the current session from context
func GetCurrentSession(c echo.Context) *models.Session {
	session, ok := c.Get(ContextKeySession).(*models.Session)
	if !ok {
		return nil
	}
	return session
}

// GetOwnerScopedQuery returns a query scoped to the current user's records.
// Admins see everything; clients only their own rows.
func GetOwnerScopedQuery(c echo.Context, query *gorm.DB) *gorm.DB {
	user := GetCurrentUser(c)
	if user == nil {
		// Match nothing
		return query.Where("1 = 0")
	}
	if user.IsAdmin() {
		return query
	}
	return query.Where("user_id = ?", user.ID)
}

func bearerToken(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
