package inventory

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
)

// Direction indica si un movimiento suma o resta stock. El caller la construye
// explícitamente: Inbound lleva el costo, Outbound nunca (el costo sale de FIFO).
type Direction interface {
	isDirection()
}

// Inbound entrada de stock al costo unitario indicado.
type Inbound struct {
	UnitCost decimal.Decimal
}

// Outbound salida de stock valorizada por consumo FIFO.
type Outbound struct{}

func (Inbound) isDirection()  {}
func (Outbound) isDirection() {}

// AllowsDirection valida la combinación tipo de movimiento / dirección.
// PURCHASE y TRANSFER_IN siempre entran; SALE y TRANSFER_OUT siempre salen; ADJUSTMENT admite ambas.
func AllowsDirection(kind string, dir Direction) bool {
	switch dir.(type) {
	case Inbound:
		return kind == entity.MoveKindPurchase || kind == entity.MoveKindTransferIn || kind == entity.MoveKindAdjustment
	case Outbound:
		return kind == entity.MoveKindSale || kind == entity.MoveKindTransferOut || kind == entity.MoveKindAdjustment
	}
	return false
}

// IsKnownKind indica si kind es uno de los tipos de movimiento soportados.
func IsKnownKind(kind string) bool {
	switch kind {
	case entity.MoveKindPurchase, entity.MoveKindSale, entity.MoveKindAdjustment,
		entity.MoveKindTransferIn, entity.MoveKindTransferOut:
		return true
	}
	return false
}
