package inventory

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
)

// KardexBalance saldo acumulado en un punto del kardex.
type KardexBalance struct {
	Qty     decimal.Decimal
	Value   decimal.Decimal
	AvgCost decimal.Decimal
}

// KardexRow una línea del kardex con sus saldos acumulados.
type KardexRow struct {
	MoveID       string
	Kind         string
	RefType      string
	RefID        string
	Note         string
	CreatedAt    time.Time
	QtyIn        decimal.Decimal
	QtyOut       decimal.Decimal
	UnitCost     decimal.Decimal
	Value        decimal.Decimal // con signo: positivo en entradas, negativo en salidas
	BalanceQty   decimal.Decimal
	BalanceValue decimal.Decimal
	AvgCost      decimal.Decimal
}

// Kardex reporte de movimientos con saldo inicial, filas y saldo final.
type Kardex struct {
	Opening KardexBalance
	Rows    []KardexRow
	Ending  KardexBalance
}

// NewKardexBalance arma un saldo calculando el costo promedio (0 si la cantidad es 0).
func NewKardexBalance(qty, value decimal.Decimal) KardexBalance {
	return KardexBalance{Qty: qty, Value: value, AvgCost: averageCost(qty, value)}
}

// BuildKardex repite los movimientos en el orden recibido (cronológico, desempate por Seq)
// acumulando cantidad y valor a partir de opening. No guarda saldos: es un fold puro.
func BuildKardex(opening KardexBalance, moves []*entity.StockMove) Kardex {
	runQty := opening.Qty
	runValue := opening.Value
	rows := make([]KardexRow, 0, len(moves))
	for _, m := range moves {
		value := m.TotalCost
		if value.IsZero() && !m.UnitCost.IsZero() {
			value = m.Quantity.Mul(m.UnitCost).Round(ValueScale)
		}
		runQty = runQty.Add(m.Quantity)
		runValue = runValue.Add(value)

		row := KardexRow{
			MoveID:       m.ID,
			Kind:         m.Kind,
			RefType:      m.RefType,
			RefID:        m.RefID,
			Note:         m.Note,
			CreatedAt:    m.CreatedAt,
			QtyIn:        decimal.Zero,
			QtyOut:       decimal.Zero,
			UnitCost:     m.UnitCost,
			Value:        value,
			BalanceQty:   runQty,
			BalanceValue: runValue,
			AvgCost:      averageCost(runQty, runValue),
		}
		if m.Quantity.IsPositive() {
			row.QtyIn = m.Quantity
		} else {
			row.QtyOut = m.Quantity.Neg()
		}
		rows = append(rows, row)
	}
	return Kardex{
		Opening: NewKardexBalance(opening.Qty, opening.Value),
		Rows:    rows,
		Ending:  NewKardexBalance(runQty, runValue),
	}
}

// averageCost se redondea a Scale; los valores del saldo quedan exactos.
func averageCost(qty, value decimal.Decimal) decimal.Decimal {
	if IsZero(qty) {
		return decimal.Zero
	}
	return value.Div(qty).Round(Scale)
}
