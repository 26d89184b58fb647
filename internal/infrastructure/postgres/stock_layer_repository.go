package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventory-ledger/internal/domain"
	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
	"github.com/jhoicas/inventory-ledger/internal/domain/repository"
)

var _ repository.StockLayerRepository = (*StockLayerRepo)(nil)

// StockLayerRepo capas FIFO sobre PostgreSQL (pool o tx). De una capa solo cambia remaining_qty.
type StockLayerRepo struct {
	q Querier
}

// NewStockLayerRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockLayerRepository(q Querier) *StockLayerRepo {
	return &StockLayerRepo{q: q}
}

type stockLayerRow struct {
	ID           string          `db:"id"`
	Seq          int64           `db:"seq"`
	ItemID       string          `db:"item_id"`
	WarehouseID  string          `db:"warehouse_id"`
	OriginalQty  decimal.Decimal `db:"original_qty"`
	RemainingQty decimal.Decimal `db:"remaining_qty"`
	UnitCost     decimal.Decimal `db:"unit_cost"`
	SourceMoveID string          `db:"source_move_id"`
	CreatedAt    time.Time       `db:"created_at"`
}

// Lock toma un advisory lock transaccional sobre (ítem, bodega). Se libera en Commit/Rollback,
// por eso solo tiene efecto dentro de una tx.
func (r *StockLayerRepo) Lock(ctx context.Context, itemID, warehouseID string) error {
	if _, err := r.q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1), hashtext($2))`, itemID, warehouseID); err != nil {
		if isLockTimeout(err) {
			return fmt.Errorf("%w: ítem %s en bodega %s está ocupado, reintente", domain.ErrConflict, itemID, warehouseID)
		}
		return fmt.Errorf("lock stock pair: %w", err)
	}
	return nil
}

// Create inserta la capa y devuelve el Seq asignado.
func (r *StockLayerRepo) Create(ctx context.Context, layer *entity.StockLayer) error {
	if layer.ID == "" {
		layer.ID = uuid.New().String()
	}
	if layer.CreatedAt.IsZero() {
		layer.CreatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO stock_layers (id, item_id, warehouse_id, original_qty, remaining_qty, unit_cost, source_move_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING seq`
	err := r.q.QueryRow(ctx, query,
		layer.ID, layer.ItemID, layer.WarehouseID, layer.OriginalQty, layer.RemainingQty,
		layer.UnitCost, layer.SourceMoveID, layer.CreatedAt,
	).Scan(&layer.Seq)
	if err != nil {
		return fmt.Errorf("create stock layer: %w", err)
	}
	return nil
}

// ListOpen capas con saldo > 0 en orden de creación. forUpdate bloquea las filas hasta el fin de la tx.
func (r *StockLayerRepo) ListOpen(ctx context.Context, itemID, warehouseID string, forUpdate bool) ([]*entity.StockLayer, error) {
	q := psql.Select("id", "seq", "item_id", "warehouse_id", "original_qty", "remaining_qty", "unit_cost", "source_move_id", "created_at").
		From("stock_layers").
		Where(squirrel.Eq{"item_id": itemID, "warehouse_id": warehouseID}).
		Where(squirrel.Gt{"remaining_qty": 0}).
		OrderBy("seq")
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var rows []stockLayerRow
	if err := pgxscan.Select(ctx, r.q, &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("list open layers: %w", err)
	}
	out := make([]*entity.StockLayer, 0, len(rows))
	for _, row := range rows {
		out = append(out, &entity.StockLayer{
			ID:           row.ID,
			Seq:          row.Seq,
			ItemID:       row.ItemID,
			WarehouseID:  row.WarehouseID,
			OriginalQty:  row.OriginalQty,
			RemainingQty: row.RemainingQty,
			UnitCost:     row.UnitCost,
			SourceMoveID: row.SourceMoveID,
			CreatedAt:    row.CreatedAt,
		})
	}
	return out, nil
}

// UpdateRemaining fija el saldo de una capa. La base rechaza saldos fuera de [0, original].
func (r *StockLayerRepo) UpdateRemaining(ctx context.Context, layerID string, remaining decimal.Decimal) error {
	cmd, err := r.q.Exec(ctx, `UPDATE stock_layers SET remaining_qty = $2 WHERE id = $1`, layerID, remaining)
	if err != nil {
		if isCheckViolation(err) {
			return fmt.Errorf("%w: saldo %s fuera de rango en capa %s", domain.ErrInvariantViolation, remaining, layerID)
		}
		return fmt.Errorf("update layer remaining: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: capa %s", domain.ErrNotFound, layerID)
	}
	return nil
}

// RecordConsumptions guarda el detalle de qué capas consumió cada salida.
func (r *StockLayerRepo) RecordConsumptions(ctx context.Context, consumptions []entity.LayerConsumption) error {
	if len(consumptions) == 0 {
		return nil
	}
	q := psql.Insert("stock_layer_consumptions").Columns("move_id", "layer_id", "quantity", "unit_cost")
	for _, c := range consumptions {
		q = q.Values(c.MoveID, c.LayerID, c.Quantity, c.UnitCost)
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.q.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert layer consumptions: %w", err)
	}
	return nil
}
