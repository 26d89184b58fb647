package postgres_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventory-ledger/internal/application/inventory"
	"github.com/jhoicas/inventory-ledger/internal/domain"
	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
	domaininv "github.com/jhoicas/inventory-ledger/internal/domain/inventory"
	"github.com/jhoicas/inventory-ledger/internal/infrastructure/postgres"
	"github.com/jhoicas/inventory-ledger/pkg/config"
)

// Requiere una base PostgreSQL desechable: TEST_DATABASE_URL=postgres://... go test ./internal/infrastructure/postgres/
func newTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL no definido")
	}
	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, config.DBConfig{DatabaseURL: url})
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, postgres.Migrate(ctx, pool))
	return pool
}

type pgFixture struct {
	pool   *pgxpool.Pool
	uc     *inventory.RegisterMovementUseCase
	val    *inventory.ValuationUseCase
	item   string
	w1, w2 string
}

func newPGFixture(t *testing.T) *pgFixture {
	pool := newTestPool(t)
	ctx := context.Background()
	suffix := uuid.New().String()[:8]

	items := postgres.NewItemRepository(pool)
	it := &entity.Item{SKU: "IT-" + suffix, Name: "Ítem " + suffix, Type: entity.ItemTypeProduct, Active: true}
	require.NoError(t, items.Upsert(ctx, it))

	whs := postgres.NewWarehouseRepository(pool)
	w1 := &entity.Warehouse{Name: "W1-" + suffix, Active: true}
	w2 := &entity.Warehouse{Name: "W2-" + suffix, Active: true}
	require.NoError(t, whs.Create(ctx, w1))
	require.NoError(t, whs.Create(ctx, w2))

	return &pgFixture{
		pool: pool,
		uc:   inventory.NewRegisterMovementUseCase(postgres.NewTxRunner(pool, 5*time.Second), items, whs, nil, nil),
		val:  inventory.NewValuationUseCase(postgres.NewStockMoveRepository(pool), postgres.NewStockLayerRepository(pool), nil, nil),
		item: it.ID, w1: w1.ID, w2: w2.ID,
	}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func (f *pgFixture) purchase(t *testing.T, wh, qty, cost string) {
	t.Helper()
	_, err := f.uc.RecordMovement(context.Background(), inventory.MovementRequest{
		ItemID: f.item, WarehouseID: wh, Kind: entity.MoveKindPurchase,
		Quantity: dec(qty), Direction: domaininv.Inbound{UnitCost: dec(cost)},
	})
	require.NoError(t, err)
}

func (f *pgFixture) sale(wh, qty string) (*inventory.MovementResult, error) {
	return f.uc.RecordMovement(context.Background(), inventory.MovementRequest{
		ItemID: f.item, WarehouseID: wh, Kind: entity.MoveKindSale,
		Quantity: dec(qty), Direction: domaininv.Outbound{},
	})
}

func TestPostgres_FIFOFlow(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()

	f.purchase(t, f.w1, "10", "100")
	f.purchase(t, f.w1, "5", "120")

	res, err := f.sale(f.w1, "12")
	require.NoError(t, err)
	assert.True(t, res.Move.TotalCost.Equal(dec("-1240")))
	require.Len(t, res.Consumptions, 2)

	_, err = f.sale(f.w1, "10")
	var stockErr *domain.InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	assert.True(t, stockErr.Available.Equal(dec("3")))

	layers, err := f.val.ListLayers(ctx, f.item, f.w1)
	require.NoError(t, err)
	require.Len(t, layers, 1)
	assert.True(t, layers[0].RemainingQty.Equal(dec("3")))
	assert.True(t, layers[0].UnitCost.Equal(dec("120")))

	k, err := f.val.Kardex(ctx, f.item, f.w1, nil, nil)
	require.NoError(t, err)
	require.Len(t, k.Rows, 3)
	assert.True(t, k.Ending.Value.Equal(dec("360")))

	summary, err := f.val.StockSummary(ctx, f.item)
	require.NoError(t, err)
	require.Len(t, summary, 1)
	assert.True(t, summary[0].Qty.Equal(dec("3")))
}

func TestPostgres_ConcurrentSalesNeverOversell(t *testing.T) {
	f := newPGFixture(t)
	f.purchase(t, f.w1, "10", "5")

	var wg sync.WaitGroup
	var mu sync.Mutex
	ok := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.sale(f.w1, "1")
			if err != nil && !errors.Is(err, domain.ErrInsufficientStock) {
				t.Errorf("error inesperado: %v", err)
				return
			}
			if err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, ok)
	stock, err := f.val.StockOf(context.Background(), f.item, f.w1)
	require.NoError(t, err)
	assert.True(t, stock.Qty.IsZero(), "stock final %s", stock.Qty)
}

func TestPostgres_TransferConservesValue(t *testing.T) {
	f := newPGFixture(t)
	f.purchase(t, f.w1, "2", "10")
	f.purchase(t, f.w1, "2", "20")

	res, err := f.uc.Transfer(context.Background(), inventory.TransferRequest{
		ItemID: f.item, FromWarehouseID: f.w1, ToWarehouseID: f.w2, Quantity: dec("3"),
	})
	require.NoError(t, err)
	assert.True(t, res.Out.Move.TotalCost.Add(res.In.Move.TotalCost).IsZero())
	assert.Equal(t, res.Out.Move.RefID, res.In.Move.RefID)

	// Una capa por capa consumida, con su costo exacto.
	layers, err := f.val.ListLayers(context.Background(), f.item, f.w2)
	require.NoError(t, err)
	require.Len(t, layers, 2)
	assert.True(t, layers[0].RemainingQty.Equal(dec("2")))
	assert.True(t, layers[0].UnitCost.Equal(dec("10")))
	assert.True(t, layers[1].RemainingQty.Equal(dec("1")))
	assert.True(t, layers[1].UnitCost.Equal(dec("20")))
}

func TestPostgres_SixDecimalValuesAreExact(t *testing.T) {
	f := newPGFixture(t)
	f.purchase(t, f.w1, "0.000001", "3.333333")
	f.purchase(t, f.w1, "0.000002", "7.777777")

	res, err := f.uc.RecordMovement(context.Background(), inventory.MovementRequest{
		ItemID: f.item, WarehouseID: f.w1, Kind: entity.MoveKindSale,
		Quantity: dec("0.000003"), Direction: domaininv.Outbound{},
	})
	require.NoError(t, err)
	assert.True(t, res.Move.TotalCost.Equal(dec("-0.000018888887")), "total %s", res.Move.TotalCost)

	k, err := f.val.Kardex(context.Background(), f.item, f.w1, nil, nil)
	require.NoError(t, err)
	assert.True(t, k.Ending.Value.IsZero(), "valor final %s", k.Ending.Value)
}

func TestPostgres_AvgCostAcrossWarehouses(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, p := range []struct{ wh, cost string }{{f.w1, "100"}, {f.w2, "200"}, {f.w1, "100"}, {f.w2, "200"}} {
		wg.Add(1)
		go func(wh, cost string) {
			defer wg.Done()
			_, err := f.uc.RecordMovement(ctx, inventory.MovementRequest{
				ItemID: f.item, WarehouseID: wh, Kind: entity.MoveKindPurchase,
				Quantity: dec("10"), Direction: domaininv.Inbound{UnitCost: dec(cost)},
			})
			assert.NoError(t, err)
		}(p.wh, p.cost)
	}
	wg.Wait()

	it, err := postgres.NewItemRepository(f.pool).GetByID(ctx, f.item)
	require.NoError(t, err)
	assert.True(t, it.AvgCost.Equal(dec("150")), "avg %s", it.AvgCost)
}

func TestPostgres_DeactivationDuringMovement(t *testing.T) {
	f := newPGFixture(t)
	f.purchase(t, f.w1, "2", "10")
	ctx := context.Background()

	// La desactivación tiene la fila tomada cuando empieza la venta y confirma después.
	holder, err := f.pool.Begin(ctx)
	require.NoError(t, err)
	defer func() { _ = holder.Rollback(ctx) }()
	_, err = holder.Exec(ctx, `UPDATE items SET active = FALSE WHERE id = $1`, f.item)
	require.NoError(t, err)
	go func() {
		time.Sleep(300 * time.Millisecond)
		_ = holder.Commit(ctx)
	}()

	_, err = f.uc.RecordMovement(ctx, inventory.MovementRequest{
		ItemID: f.item, WarehouseID: f.w1, Kind: entity.MoveKindSale,
		Quantity: dec("1"), Direction: domaininv.Outbound{},
	})
	require.ErrorIs(t, err, domain.ErrInvalidState)

	stock, err := f.val.StockOf(ctx, f.item, f.w1)
	require.NoError(t, err)
	assert.True(t, stock.Qty.Equal(dec("2")))
}

func TestPostgres_LedgerIsAppendOnly(t *testing.T) {
	f := newPGFixture(t)
	f.purchase(t, f.w1, "1", "1")

	_, err := f.pool.Exec(context.Background(), `UPDATE stock_moves SET note = 'x' WHERE item_id = $1`, f.item)
	require.Error(t, err)
	_, err = f.pool.Exec(context.Background(), `DELETE FROM stock_moves WHERE item_id = $1`, f.item)
	require.Error(t, err)
}

func TestPostgres_DuplicateWarehouseName(t *testing.T) {
	pool := newTestPool(t)
	repo := postgres.NewWarehouseRepository(pool)
	name := "DUP-" + uuid.New().String()[:8]
	require.NoError(t, repo.Create(context.Background(), &entity.Warehouse{Name: name, Active: true}))
	err := repo.Create(context.Background(), &entity.Warehouse{Name: name, Active: true})
	require.ErrorIs(t, err, domain.ErrDuplicate)
}

func TestPostgres_LockTimeoutIsConflict(t *testing.T) {
	f := newPGFixture(t)
	f.purchase(t, f.w1, "1", "1")
	ctx := context.Background()

	// Otra transacción retiene el lock del par mientras se intenta vender.
	holder, err := f.pool.Begin(ctx)
	require.NoError(t, err)
	defer func() { _ = holder.Rollback(ctx) }()
	_, err = holder.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1), hashtext($2))`, f.item, f.w1)
	require.NoError(t, err)

	items := postgres.NewItemRepository(f.pool)
	whs := postgres.NewWarehouseRepository(f.pool)
	impatient := inventory.NewRegisterMovementUseCase(postgres.NewTxRunner(f.pool, 200*time.Millisecond), items, whs, nil, nil)
	_, err = impatient.RecordMovement(ctx, inventory.MovementRequest{
		ItemID: f.item, WarehouseID: f.w1, Kind: entity.MoveKindSale,
		Quantity: dec("1"), Direction: domaininv.Outbound{},
	})
	require.ErrorIs(t, err, domain.ErrConflict)
}
