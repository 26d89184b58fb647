package inventory_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventory-ledger/internal/domain"
	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
	"github.com/jhoicas/inventory-ledger/internal/domain/inventory"
)

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func layer(id string, seq int64, remaining, cost string) *entity.StockLayer {
	return &entity.StockLayer{
		ID: id, Seq: seq,
		OriginalQty: d(remaining), RemainingQty: d(remaining), UnitCost: d(cost),
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// ConsumeFIFO: 10@100 y 5@120, salida de 12 → 10@100 + 2@120 = 1240.
// ──────────────────────────────────────────────────────────────────────────────

func TestConsumeFIFO_OldestFirst(t *testing.T) {
	// Orden de entrada invertido: manda Seq, no la posición en el slice.
	layers := []*entity.StockLayer{layer("b", 2, "5", "120"), layer("a", 1, "10", "100")}

	c, err := inventory.ConsumeFIFO(layers, d("12"))
	require.NoError(t, err)
	require.Len(t, c.Takes, 2)
	assert.Equal(t, "a", c.Takes[0].LayerID)
	assert.True(t, c.Takes[0].Quantity.Equal(d("10")))
	assert.Equal(t, "b", c.Takes[1].LayerID)
	assert.True(t, c.Takes[1].Quantity.Equal(d("2")))
	assert.True(t, c.TotalCost.Equal(d("1240")), "total %s", c.TotalCost)
	assert.Equal(t, "103.3333", c.WeightedUnitCost.StringFixed(4))

	assert.True(t, layers[1].RemainingQty.IsZero(), "la capa más antigua queda agotada")
	assert.True(t, layers[0].RemainingQty.Equal(d("3")))
}

func TestConsumeFIFO_ExactSingleLayer(t *testing.T) {
	layers := []*entity.StockLayer{layer("a", 1, "4", "7.5")}
	c, err := inventory.ConsumeFIFO(layers, d("4"))
	require.NoError(t, err)
	require.Len(t, c.Takes, 1)
	assert.True(t, c.WeightedUnitCost.Equal(d("7.5")))
	assert.True(t, layers[0].RemainingQty.IsZero())
}

func TestConsumeFIFO_SkipsExhaustedLayers(t *testing.T) {
	layers := []*entity.StockLayer{layer("a", 1, "0", "1"), layer("b", 2, "2", "3")}
	c, err := inventory.ConsumeFIFO(layers, d("1"))
	require.NoError(t, err)
	require.Len(t, c.Takes, 1)
	assert.Equal(t, "b", c.Takes[0].LayerID)
}

func TestConsumeFIFO_ShortfallLeavesLayersUntouched(t *testing.T) {
	layers := []*entity.StockLayer{layer("a", 1, "2", "10"), layer("b", 2, "1", "20")}

	_, err := inventory.ConsumeFIFO(layers, d("5"))
	require.ErrorIs(t, err, domain.ErrInvariantViolation)
	assert.True(t, layers[0].RemainingQty.Equal(d("2")))
	assert.True(t, layers[1].RemainingQty.Equal(d("1")))
}

func TestConsumeFIFO_RejectsNonPositiveQuantity(t *testing.T) {
	for _, q := range []string{"0", "-1"} {
		_, err := inventory.ConsumeFIFO([]*entity.StockLayer{layer("a", 1, "1", "1")}, d(q))
		require.ErrorIs(t, err, domain.ErrInvalidInput, "cantidad %s", q)
	}
}

func TestConsumeFIFO_FractionalQuantities(t *testing.T) {
	layers := []*entity.StockLayer{layer("a", 1, "0.3", "10"), layer("b", 2, "0.3", "20")}
	c, err := inventory.ConsumeFIFO(layers, d("0.6"))
	require.NoError(t, err)
	assert.True(t, c.TotalCost.Equal(d("9")))
	assert.True(t, layers[0].RemainingQty.IsZero())
	assert.True(t, layers[1].RemainingQty.IsZero())
}

func TestConsumeFIFO_SmallestScaleUnits(t *testing.T) {
	layers := []*entity.StockLayer{layer("a", 1, "0.000001", "3.333333"), layer("b", 2, "0.000002", "7.777777")}
	c, err := inventory.ConsumeFIFO(layers, d("0.000002"))
	require.NoError(t, err)
	require.Len(t, c.Takes, 2)
	// 0.000001*3.333333 + 0.000001*7.777777, sin redondeo intermedio.
	assert.True(t, c.TotalCost.Equal(d("0.00001111111")), "total %s", c.TotalCost)
	assert.Equal(t, "5.555555", c.WeightedUnitCost.StringFixed(6))
	assert.True(t, inventory.FitsScale(c.WeightedUnitCost))
	assert.True(t, layers[0].RemainingQty.IsZero())
	assert.True(t, layers[1].RemainingQty.Equal(d("0.000001")))
}

func TestAllowsDirection(t *testing.T) {
	in := inventory.Inbound{UnitCost: d("1")}
	out := inventory.Outbound{}

	assert.True(t, inventory.AllowsDirection(entity.MoveKindPurchase, in))
	assert.False(t, inventory.AllowsDirection(entity.MoveKindPurchase, out))
	assert.True(t, inventory.AllowsDirection(entity.MoveKindSale, out))
	assert.False(t, inventory.AllowsDirection(entity.MoveKindSale, in))
	assert.True(t, inventory.AllowsDirection(entity.MoveKindAdjustment, in))
	assert.True(t, inventory.AllowsDirection(entity.MoveKindAdjustment, out))
	assert.True(t, inventory.AllowsDirection(entity.MoveKindTransferIn, in))
	assert.True(t, inventory.AllowsDirection(entity.MoveKindTransferOut, out))
	assert.False(t, inventory.AllowsDirection("GIFT", in))

	assert.True(t, inventory.IsKnownKind(entity.MoveKindTransferOut))
	assert.False(t, inventory.IsKnownKind("sale"))
}
