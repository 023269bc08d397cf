// Package auth guards routes by verifying the bearer access token. Role
// checks happen here only; services never re-check authorization.
package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/nbarsukov/shop-backend/internal/models"
	"github.com/nbarsukov/shop-backend/internal/tokens"
)

const (
	ContextUsername = "username"
	ContextRole     = "role"
)

type Middleware struct {
	Tokens *tokens.Manager
}

type ValidatorFunc func(claims *tokens.Claims) error

func (m *Middleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return m.requireWithValidator(next, nil)
}

func (m *Middleware) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return m.requireWithValidator(next, func(claims *tokens.Claims) error {
		if claims.Role != models.RoleAdmin {
			return echo.NewHTTPError(http.StatusForbidden, "admin access required")
		}
		return nil
	})
}

func (m *Middleware) requireWithValidator(next echo.HandlerFunc, validator ValidatorFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		tokenStr, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenStr == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "could not validate credentials")
		}

		claims, err := m.Tokens.ParseAccess(tokenStr)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "could not validate credentials")
		}

		if validator != nil {
			if err := validator(claims); err != nil {
				return err
			}
		}

		c.Set(ContextUsername, claims.Subject)
		c.Set(ContextRole, claims.Role)
		return next(c)
	}
}
