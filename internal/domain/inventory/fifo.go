package inventory

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventory-ledger/internal/domain"
	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
)

// LayerTake cantidad tomada de una capa durante un consumo. Cost es exacto (ValueScale).
type LayerTake struct {
	LayerID  string
	Quantity decimal.Decimal
	UnitCost decimal.Decimal
	Cost     decimal.Decimal
}

// Consumption resultado de consumir capas FIFO para una salida. TotalCost es la suma exacta
// de las tomas; WeightedUnitCost es informativo y va redondeado a Scale.
type Consumption struct {
	Takes            []LayerTake
	TotalCost        decimal.Decimal
	WeightedUnitCost decimal.Decimal
}

// ConsumeFIFO consume quantity de las capas abiertas, la más antigua primero (menor Seq).
// Si las capas no alcanzan devuelve ErrInvariantViolation sin tocar ninguna capa;
// si alcanzan, descuenta RemainingQty de cada capa tomada. El caller persiste los cambios
// dentro de la misma transacción.
func ConsumeFIFO(layers []*entity.StockLayer, quantity decimal.Decimal) (Consumption, error) {
	if !quantity.IsPositive() {
		return Consumption{}, fmt.Errorf("%w: la cantidad a consumir debe ser positiva", domain.ErrInvalidInput)
	}
	ordered := make([]*entity.StockLayer, 0, len(layers))
	for _, l := range layers {
		if l.RemainingQty.GreaterThan(Epsilon) {
			ordered = append(ordered, l)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Seq < ordered[j].Seq })

	// Primera pasada: calcular sin mutar, para que un faltante no deje capas a medio consumir.
	stillNeeded := quantity
	total := decimal.Zero
	takes := make([]LayerTake, 0, len(ordered))
	for _, l := range ordered {
		if stillNeeded.LessThanOrEqual(Epsilon) {
			break
		}
		taken := decimal.Min(l.RemainingQty, stillNeeded)
		cost := taken.Mul(l.UnitCost).Round(ValueScale)
		takes = append(takes, LayerTake{LayerID: l.ID, Quantity: taken, UnitCost: l.UnitCost, Cost: cost})
		total = total.Add(cost)
		stillNeeded = stillNeeded.Sub(taken)
	}
	if stillNeeded.GreaterThan(Epsilon) {
		return Consumption{}, fmt.Errorf("%w: faltan %s unidades tras agotar las capas abiertas",
			domain.ErrInvariantViolation, stillNeeded)
	}

	byID := make(map[string]*entity.StockLayer, len(ordered))
	for _, l := range ordered {
		byID[l.ID] = l
	}
	for _, t := range takes {
		l := byID[t.LayerID]
		l.RemainingQty = l.RemainingQty.Sub(t.Quantity)
		if IsZero(l.RemainingQty) {
			l.RemainingQty = decimal.Zero
		}
	}

	return Consumption{
		Takes:            takes,
		TotalCost:        total,
		WeightedUnitCost: total.Div(quantity).Round(Scale),
	}, nil
}
