package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/pkg/jwt"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Stock     *inventory.StockService
	Facade    *inventory.InventoryFacade
	JWTSecret string
}

// Router registra las rutas de la API. Todas requieren Bearer Token.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret))

	anyRole := RequireRole(jwt.RoleAdmin, jwt.RoleBodeguero, jwt.RoleVendedor)
	warehouse := RequireRole(jwt.RoleAdmin, jwt.RoleBodeguero)
	admin := RequireRole(jwt.RoleAdmin)
	sales := RequireRole(jwt.RoleAdmin, jwt.RoleVendedor)

	// Stock por material
	stock := api.Group("/stock")
	stockHandler := NewStockHandler(deps.Stock)
	// /low antes de /:materialId para que no se interprete como ID
	stock.Get("/low", anyRole, stockHandler.ListLow)
	stock.Post("/", admin, stockHandler.Initialize)
	stock.Get("/:materialId", anyRole, stockHandler.Get)
	stock.Get("/:materialId/history", anyRole, stockHandler.History)
	stock.Get("/:materialId/reconcile", admin, stockHandler.Reconcile)
	stock.Post("/:materialId/import", warehouse, stockHandler.Import)
	stock.Post("/:materialId/deduct", warehouse, stockHandler.Deduct)
	stock.Post("/:materialId/adjust", admin, stockHandler.Adjust)
	stock.Post("/:materialId/return", warehouse, stockHandler.Return)
	stock.Put("/:materialId/reorder-level", warehouse, stockHandler.UpdateReorderLevel)

	// Pedidos
	orders := api.Group("/orders", sales)
	orderHandler := NewOrderHandler(deps.Facade)
	orders.Post("/reserve", orderHandler.Reserve)
	orders.Post("/confirm", orderHandler.Confirm)
	orders.Post("/release", orderHandler.Release)
}
