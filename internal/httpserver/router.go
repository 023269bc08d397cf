package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	authmw "github.com/nbarsukov/shop-backend/internal/middleware/auth"
)

type Deps struct {
	AuthHandler    *AuthHTTP
	UserHandler    *UserHTTP
	ProductHandler *ProductHTTP
	OrderHandler   *OrderHTTP
	AuthMW         *authmw.Middleware
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	users := e.Group("/users")
	users.POST("", d.UserHandler.Register)
	users.POST("/token", d.AuthHandler.Login)
	users.POST("/token/refresh", d.AuthHandler.Refresh)
	users.POST("/logout", d.AuthHandler.Logout, d.AuthMW.RequireAuth)
	users.GET("/me", d.UserHandler.Me, d.AuthMW.RequireAuth)

	usersAdmin := users.Group("", d.AuthMW.RequireAdmin)
	usersAdmin.GET("", d.UserHandler.List)
	usersAdmin.GET("/:id", d.UserHandler.GetByID)
	usersAdmin.PATCH("/:id", d.UserHandler.Patch)
	usersAdmin.PATCH("/admin/users/:username/role", d.UserHandler.UpdateRole)
	usersAdmin.DELETE("/:id", d.UserHandler.Delete)

	products := e.Group("/products")
	products.GET("", d.ProductHandler.List)
	products.GET("/search", d.ProductHandler.Search)
	products.GET("/:id", d.ProductHandler.Get)

	productsAdmin := products.Group("", d.AuthMW.RequireAdmin)
	productsAdmin.POST("/create_product", d.ProductHandler.Create)
	productsAdmin.PATCH("/:id", d.ProductHandler.Patch)
	productsAdmin.DELETE("/:id", d.ProductHandler.Delete)

	orders := e.Group("/orders", d.AuthMW.RequireAuth)
	orders.POST("", d.OrderHandler.Create)
	orders.GET("", d.OrderHandler.List)
	orders.GET("/:id", d.OrderHandler.Get)
}
