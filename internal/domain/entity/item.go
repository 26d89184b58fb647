package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de ítem del catálogo.
const (
	ItemTypeProduct = "PRODUCT" // mueve inventario
	ItemTypeService = "SERVICE" // nunca mueve inventario
)

// Item representa un producto o servicio del catálogo (dato de referencia, solo lectura para el kardex).
// AvgCost es un costo promedio ponderado cacheado para visualización; la fuente de verdad son
// los movimientos y las capas FIFO.
type Item struct {
	ID        string
	SKU       string
	Name      string
	Type      string
	Active    bool
	AvgCost   decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CarriesInventory indica si el ítem puede tener movimientos de stock.
func (i *Item) CarriesInventory() bool {
	return i.Type == ItemTypeProduct
}
