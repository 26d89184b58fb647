package inventory

import "github.com/shopspring/decimal"

// Scale decimales de cantidades y costos unitarios (NUMERIC(20,6) en la base).
// Los valores (cantidad * costo) se guardan con ValueScale, así el producto de dos
// números de escala Scale es exacto.
const (
	Scale      = 6
	ValueScale = 2 * Scale
)

// Epsilon media unidad del último decimal de Scale.
var Epsilon = decimal.New(5, -(Scale + 1))

// FitsScale indica si d no tiene más de Scale decimales significativos.
func FitsScale(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(Scale))
}

// CostCalculator implementa el costo promedio ponderado que se cachea en el ítem.
// NuevoCosto = ((StockActual * CostoActual) + (CantEntrada * CostoEntrada)) / (StockActual + CantEntrada)
// No participa en el consumo FIFO. El resultado se redondea a Scale.
func CostCalculator(stockActual, costoActual, cantEntrada, costoEntrada decimal.Decimal) decimal.Decimal {
	if stockActual.IsNegative() {
		stockActual = decimal.Zero
	}
	sum := stockActual.Add(cantEntrada)
	if sum.LessThanOrEqual(Epsilon) {
		return decimal.Zero
	}
	num := stockActual.Mul(costoActual).Add(cantEntrada.Mul(costoEntrada))
	return num.Div(sum).Round(Scale)
}

// IsZero compara contra cero con la tolerancia Epsilon.
func IsZero(d decimal.Decimal) bool {
	return d.Abs().LessThanOrEqual(Epsilon)
}
