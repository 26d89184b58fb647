package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/inventory-ledger/internal/application/inventory"
	"github.com/jhoicas/inventory-ledger/internal/application/usecase"
	"github.com/jhoicas/inventory-ledger/pkg/jwt"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	WarehouseUC      *usecase.WarehouseUseCase
	RegisterMovement *inventory.RegisterMovementUseCase
	Valuation        *inventory.ValuationUseCase
	JWTSecret        string
}

// Router registra las rutas de la API. Todo /api requiere Bearer Token; las escrituras,
// rol admin o bodeguero.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret))
	writers := RequireRole(jwt.RoleAdmin, jwt.RoleBodeguero)

	warehouses := api.Group("/warehouses")
	warehouseHandler := NewWarehouseHandler(deps.WarehouseUC)
	warehouses.Post("/", writers, warehouseHandler.Create)
	warehouses.Get("/", warehouseHandler.List)
	warehouses.Get("/:id", warehouseHandler.GetByID)

	invGroup := api.Group("/inventory")
	inventoryHandler := NewInventoryHandler(deps.RegisterMovement, deps.Valuation)
	invGroup.Post("/movements", writers, inventoryHandler.RegisterMovement)
	invGroup.Post("/transfers", writers, inventoryHandler.Transfer)
	invGroup.Get("/movements", inventoryHandler.ListMovements)
	invGroup.Get("/stock", inventoryHandler.GetStock)
	invGroup.Get("/stock/:itemId/summary", inventoryHandler.GetStockSummary)
	invGroup.Get("/layers", inventoryHandler.ListLayers)
	invGroup.Get("/kardex", inventoryHandler.GetKardex)
}
