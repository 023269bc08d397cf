package httpserver

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/nbarsukov/shop-backend/internal/logging"
	"github.com/nbarsukov/shop-backend/internal/service"
	"github.com/nbarsukov/shop-backend/internal/transport"
	"github.com/nbarsukov/shop-backend/internal/util"
)

type OrderHTTP struct {
	Orders *service.OrderService
	Auth   *service.AuthService
}

func (h *OrderHTTP) Create(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.create")

	user, err := h.Auth.CurrentUser(ctx, principal(c))
	if err != nil {
		return toHTTPError(err)
	}

	var req transport.CreateOrderRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("create_order_failed", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	order, err := h.Orders.Create(ctx, user.ID, req)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, order)
}

func (h *OrderHTTP) Get(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.get")

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		l.Warn("get_order_failed", "status", 400, "reason", "id is not an integer")
		return echo.NewHTTPError(http.StatusBadRequest, "id is not an integer")
	}

	user, err := h.Auth.CurrentUser(ctx, principal(c))
	if err != nil {
		return toHTTPError(err)
	}

	order, err := h.Orders.GetForUser(ctx, id, user.ID)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, order)
}

func (h *OrderHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()

	user, err := h.Auth.CurrentUser(ctx, principal(c))
	if err != nil {
		return toHTTPError(err)
	}

	limit := util.ParseIntDefault(c.QueryParam("limit"), util.DefaultPageSize)
	offset := util.ParseIntDefault(c.QueryParam("offset"), 0)

	orders, err := h.Orders.ListForUser(ctx, user.ID, limit, offset)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, orders)
}
