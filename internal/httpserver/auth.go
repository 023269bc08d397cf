package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nbarsukov/shop-backend/internal/logging"
	"github.com/nbarsukov/shop-backend/internal/service"
	"github.com/nbarsukov/shop-backend/internal/transport"
)

type AuthHTTP struct {
	Svc *service.AuthService
}

// Login accepts a form body (username/password) and returns a token pair.
func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.login")

	username := c.FormValue("username")
	password := c.FormValue("password")
	if username == "" || password == "" {
		l.Warn("login_failed", "status", 400, "reason", "missing credentials")
		return echo.NewHTTPError(http.StatusBadRequest, "username and password are required")
	}

	token, err := h.Svc.Login(ctx, username, password)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, token)
}

func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.refresh")

	var req transport.RefreshRequest
	if err := c.Bind(&req); err != nil || req.RefreshToken == "" {
		l.Warn("refresh_failed", "status", 400, "reason", "invalid body")
		return echo.NewHTTPError(http.StatusBadRequest, "refresh_token is required")
	}

	token, err := h.Svc.Refresh(ctx, req.RefreshToken)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, token)
}

func (h *AuthHTTP) Logout(c echo.Context) error {
	ctx := c.Request().Context()

	if err := h.Svc.Logout(ctx, principal(c)); err != nil {
		return toHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
