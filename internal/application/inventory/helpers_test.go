package inventory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
	"github.com/jhoicas/inventory-ledger/internal/domain/inventory"
	"github.com/jhoicas/inventory-ledger/internal/infrastructure/memory"
)

type fixture struct {
	store     *memory.Store
	cache     *fakeCache
	uc        *RegisterMovementUseCase
	valuation *ValuationUseCase
	item      string
	service   string
	inactive  string
	w1        string
	w2        string
	closedWh  string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	f := &fixture{store: store, cache: newFakeCache()}

	mkItem := func(sku, typ string, active bool) string {
		it := &entity.Item{SKU: sku, Name: sku, Type: typ, Active: active}
		require.NoError(t, store.Items().Upsert(ctx, it))
		return it.ID
	}
	f.item = mkItem("A", entity.ItemTypeProduct, true)
	f.service = mkItem("SRV", entity.ItemTypeService, true)
	f.inactive = mkItem("OLD", entity.ItemTypeProduct, false)

	mkWh := func(name string, active bool) string {
		w := &entity.Warehouse{Name: name, Active: active}
		require.NoError(t, store.Warehouses().Create(ctx, w))
		return w.ID
	}
	f.w1 = mkWh("W1", true)
	f.w2 = mkWh("W2", true)
	f.closedWh = mkWh("Cerrada", false)

	f.uc = NewRegisterMovementUseCase(store, store.Items(), store.Warehouses(), f.cache, nil)
	f.valuation = NewValuationUseCase(store.Moves(), store.Layers(), f.cache, nil)
	return f
}

// withClock fija el reloj del motor; cada llamada avanza un minuto.
func (f *fixture) withClock(start time.Time) {
	var mu sync.Mutex
	next := start
	f.uc.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := next
		next = next.Add(time.Minute)
		return t
	}
}

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func purchase(item, wh string, qty, cost string) MovementRequest {
	return MovementRequest{
		ItemID: item, WarehouseID: wh, Kind: entity.MoveKindPurchase,
		Quantity: d(qty), Direction: inboundAt(cost),
	}
}

func sale(item, wh string, qty string) MovementRequest {
	return MovementRequest{
		ItemID: item, WarehouseID: wh, Kind: entity.MoveKindSale,
		Quantity: d(qty), Direction: outbound(),
	}
}

func inboundAt(cost string) inventory.Direction { return inventory.Inbound{UnitCost: d(cost)} }

func outbound() inventory.Direction { return inventory.Outbound{} }

type fakeCache struct {
	mu          sync.Mutex
	data        map[string][]entity.WarehouseStock
	invalidated []string
	gets        int
	failGet     bool
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: map[string][]entity.WarehouseStock{}}
}

func (c *fakeCache) GetSummary(_ context.Context, itemID string) ([]entity.WarehouseStock, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if c.failGet {
		return nil, false, errors.New("redis caído")
	}
	s, ok := c.data[itemID]
	return s, ok, nil
}

func (c *fakeCache) SetSummary(_ context.Context, itemID string, summary []entity.WarehouseStock) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[itemID] = summary
	return nil
}

func (c *fakeCache) Invalidate(_ context.Context, itemIDs ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range itemIDs {
		delete(c.data, id)
		c.invalidated = append(c.invalidated, id)
	}
	return nil
}
