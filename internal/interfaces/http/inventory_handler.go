package http

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/inventory-ledger/internal/application/dto"
	"github.com/jhoicas/inventory-ledger/internal/application/inventory"
	"github.com/jhoicas/inventory-ledger/internal/domain"
)

// InventoryHandler maneja movimientos, traslados y reportes de inventario (protegido).
type InventoryHandler struct {
	movements *inventory.RegisterMovementUseCase
	valuation *inventory.ValuationUseCase
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(movements *inventory.RegisterMovementUseCase, valuation *inventory.ValuationUseCase) *InventoryHandler {
	return &InventoryHandler{movements: movements, valuation: valuation}
}

// RegisterMovement godoc
// @Summary      Registrar movimiento de inventario
// @Description  PURCHASE/TRANSFER_IN entran con unit_cost; SALE/TRANSFER_OUT salen al costo FIFO;
//
//	ADJUSTMENT requiere direction (INCREASE con unit_cost, DECREASE sin costo).
//
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.RegisterMovementRequest  true  "item_id, warehouse_id, type, quantity, unit_cost (entradas)"
// @Success      201   {object}  dto.MovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/inventory/movements [post]
func (h *InventoryHandler) RegisterMovement(c *fiber.Ctx) error {
	var in dto.RegisterMovementRequest
	if err := parseBody(c, &in); err != nil {
		return writeError(c, err)
	}
	out, err := h.movements.RegisterMovementFromRequest(c.UserContext(), GetUserID(c), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// Transfer godoc
// @Summary      Trasladar stock entre bodegas
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.TransferRequest  true  "item_id, from_warehouse_id, to_warehouse_id, quantity"
// @Success      201   {object}  dto.TransferResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/transfers [post]
func (h *InventoryHandler) Transfer(c *fiber.Ctx) error {
	var in dto.TransferRequest
	if err := parseBody(c, &in); err != nil {
		return writeError(c, err)
	}
	out, err := h.movements.TransferFromRequest(c.UserContext(), GetUserID(c), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// GetStock godoc
// @Summary      Stock actual de un ítem en una bodega
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        item_id       query  string  true  "Ítem"
// @Param        warehouse_id  query  string  true  "Bodega"
// @Success      200  {object}  dto.StockResponse
// @Router       /api/inventory/stock [get]
func (h *InventoryHandler) GetStock(c *fiber.Ctx) error {
	out, err := h.valuation.StockOf(c.UserContext(), c.Query("item_id"), c.Query("warehouse_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// GetStockSummary godoc
// @Summary      Stock de un ítem por bodega
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        itemId  path  string  true  "Ítem"
// @Success      200  {array}  dto.WarehouseStockResponse
// @Router       /api/inventory/stock/{itemId}/summary [get]
func (h *InventoryHandler) GetStockSummary(c *fiber.Ctx) error {
	itemID := c.Params("itemId")
	out, err := h.valuation.StockSummary(c.UserContext(), itemID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"item_id": itemID, "warehouses": out})
}

// ListLayers godoc
// @Summary      Capas FIFO abiertas
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        item_id       query  string  true  "Ítem"
// @Param        warehouse_id  query  string  true  "Bodega"
// @Success      200  {array}  dto.StockLayerResponse
// @Router       /api/inventory/layers [get]
func (h *InventoryHandler) ListLayers(c *fiber.Ctx) error {
	out, err := h.valuation.ListLayers(c.UserContext(), c.Query("item_id"), c.Query("warehouse_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// ListMovements godoc
// @Summary      Libro de movimientos (más reciente primero)
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        item_id       query  string  false  "Ítem"
// @Param        warehouse_id  query  string  false  "Bodega"
// @Param        take          query  int     false  "Tamaño de página"  default(50)
// @Param        skip          query  int     false  "Desplazamiento"    default(0)
// @Success      200  {object}  dto.MoveListResponse
// @Router       /api/inventory/movements [get]
func (h *InventoryHandler) ListMovements(c *fiber.Ctx) error {
	out, err := h.valuation.ListMoves(c.UserContext(),
		c.Query("item_id"), c.Query("warehouse_id"),
		c.QueryInt("take", inventory.DefaultMoveTake), c.QueryInt("skip", 0),
	)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// GetKardex godoc
// @Summary      Kardex de un ítem en una bodega
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        item_id       query  string  true   "Ítem"
// @Param        warehouse_id  query  string  true   "Bodega"
// @Param        from          query  string  false  "RFC3339 o YYYY-MM-DD"
// @Param        to            query  string  false  "RFC3339 o YYYY-MM-DD (día completo)"
// @Success      200  {object}  dto.KardexResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/inventory/kardex [get]
func (h *InventoryHandler) GetKardex(c *fiber.Ctx) error {
	from, err := parseDateParam(c.Query("from"), false)
	if err != nil {
		return writeError(c, err)
	}
	to, err := parseDateParam(c.Query("to"), true)
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.valuation.Kardex(c.UserContext(), c.Query("item_id"), c.Query("warehouse_id"), from, to)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// parseDateParam acepta RFC3339 o YYYY-MM-DD (UTC). Con endOfDay, una fecha sin hora cubre el día completo.
func parseDateParam(s string, endOfDay bool) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, fmt.Errorf("%w: fecha inválida %q (RFC3339 o YYYY-MM-DD)", domain.ErrInvalidInput, s)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}
