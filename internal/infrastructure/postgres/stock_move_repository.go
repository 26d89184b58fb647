package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
	"github.com/jhoicas/inventory-ledger/internal/domain/repository"
)

var _ repository.StockMoveRepository = (*StockMoveRepo)(nil)

const stockMovesTable = "stock_moves"

var stockMoveColumns = []string{
	"id", "seq", "item_id", "warehouse_id", "kind", "quantity", "unit_cost", "total_cost",
	"ref_type", "ref_id", "note", "created_at", "created_by",
}

// StockMoveRepo libro de movimientos sobre PostgreSQL (pool o tx). Solo INSERT y SELECT;
// un trigger en la tabla rechaza UPDATE y DELETE.
type StockMoveRepo struct {
	q Querier
}

// NewStockMoveRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockMoveRepository(q Querier) *StockMoveRepo {
	return &StockMoveRepo{q: q}
}

type stockMoveRow struct {
	ID          string          `db:"id"`
	Seq         int64           `db:"seq"`
	ItemID      string          `db:"item_id"`
	WarehouseID string          `db:"warehouse_id"`
	Kind        string          `db:"kind"`
	Quantity    decimal.Decimal `db:"quantity"`
	UnitCost    decimal.Decimal `db:"unit_cost"`
	TotalCost   decimal.Decimal `db:"total_cost"`
	RefType     string          `db:"ref_type"`
	RefID       string          `db:"ref_id"`
	Note        string          `db:"note"`
	CreatedAt   time.Time       `db:"created_at"`
	CreatedBy   string          `db:"created_by"`
}

func (row stockMoveRow) toEntity() *entity.StockMove {
	return &entity.StockMove{
		ID:          row.ID,
		Seq:         row.Seq,
		ItemID:      row.ItemID,
		WarehouseID: row.WarehouseID,
		Kind:        row.Kind,
		Quantity:    row.Quantity,
		UnitCost:    row.UnitCost,
		TotalCost:   row.TotalCost,
		RefType:     row.RefType,
		RefID:       row.RefID,
		Note:        row.Note,
		CreatedAt:   row.CreatedAt,
		CreatedBy:   row.CreatedBy,
	}
}

// Create inserta el movimiento y devuelve el Seq asignado por la base.
func (r *StockMoveRepo) Create(ctx context.Context, move *entity.StockMove) error {
	if move.ID == "" {
		move.ID = uuid.New().String()
	}
	if move.CreatedAt.IsZero() {
		move.CreatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO stock_moves (id, item_id, warehouse_id, kind, quantity, unit_cost, total_cost, ref_type, ref_id, note, created_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING seq`
	err := r.q.QueryRow(ctx, query,
		move.ID, move.ItemID, move.WarehouseID, move.Kind,
		move.Quantity, move.UnitCost, move.TotalCost,
		move.RefType, move.RefID, move.Note, move.CreatedAt, move.CreatedBy,
	).Scan(&move.Seq)
	if err != nil {
		return fmt.Errorf("create stock move: %w", err)
	}
	return nil
}

// GetByID obtiene un movimiento por ID; (nil, nil) si no existe.
func (r *StockMoveRepo) GetByID(ctx context.Context, id string) (*entity.StockMove, error) {
	sql, args, err := psql.Select(stockMoveColumns...).From(stockMovesTable).
		Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var row stockMoveRow
	if err := pgxscan.Get(ctx, r.q, &row, sql, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get stock move: %w", err)
	}
	return row.toEntity(), nil
}

// SumQuantity stock de (ítem, bodega); con at, solo movimientos hasta esa fecha inclusive.
func (r *StockMoveRepo) SumQuantity(ctx context.Context, itemID, warehouseID string, at *time.Time) (decimal.Decimal, error) {
	q := psql.Select("COALESCE(SUM(quantity), 0)").From(stockMovesTable).
		Where(squirrel.Eq{"item_id": itemID, "warehouse_id": warehouseID})
	if at != nil {
		q = q.Where(squirrel.LtOrEq{"created_at": *at})
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return decimal.Zero, fmt.Errorf("build query: %w", err)
	}
	var qty decimal.Decimal
	if err := r.q.QueryRow(ctx, sql, args...).Scan(&qty); err != nil {
		return decimal.Zero, fmt.Errorf("sum stock: %w", err)
	}
	return qty, nil
}

// SumQuantityByItem stock del ítem agrupado por bodega.
func (r *StockMoveRepo) SumQuantityByItem(ctx context.Context, itemID string) ([]entity.WarehouseStock, error) {
	sql, args, err := psql.Select("warehouse_id", "SUM(quantity) AS quantity").From(stockMovesTable).
		Where(squirrel.Eq{"item_id": itemID}).
		GroupBy("warehouse_id").
		OrderBy("warehouse_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var rows []struct {
		WarehouseID string          `db:"warehouse_id"`
		Quantity    decimal.Decimal `db:"quantity"`
	}
	if err := pgxscan.Select(ctx, r.q, &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("stock summary: %w", err)
	}
	out := make([]entity.WarehouseStock, 0, len(rows))
	for _, row := range rows {
		out = append(out, entity.WarehouseStock{WarehouseID: row.WarehouseID, Quantity: row.Quantity})
	}
	return out, nil
}

// List página del libro, más reciente primero.
func (r *StockMoveRepo) List(ctx context.Context, filter repository.MoveFilter) ([]*entity.StockMove, error) {
	q := psql.Select(stockMoveColumns...).From(stockMovesTable)
	if filter.ItemID != "" {
		q = q.Where(squirrel.Eq{"item_id": filter.ItemID})
	}
	if filter.WarehouseID != "" {
		q = q.Where(squirrel.Eq{"warehouse_id": filter.WarehouseID})
	}
	q = q.OrderBy("created_at DESC", "seq DESC")
	if filter.Take > 0 {
		q = q.Limit(uint64(filter.Take))
	}
	if filter.Skip > 0 {
		q = q.Offset(uint64(filter.Skip))
	}
	return r.selectMoves(ctx, q)
}

// ListChronological movimientos de (ítem, bodega) en [from, to], orden (created_at, seq).
func (r *StockMoveRepo) ListChronological(ctx context.Context, itemID, warehouseID string, from, to *time.Time) ([]*entity.StockMove, error) {
	q := psql.Select(stockMoveColumns...).From(stockMovesTable).
		Where(squirrel.Eq{"item_id": itemID, "warehouse_id": warehouseID})
	if from != nil {
		q = q.Where(squirrel.GtOrEq{"created_at": *from})
	}
	if to != nil {
		q = q.Where(squirrel.LtOrEq{"created_at": *to})
	}
	return r.selectMoves(ctx, q.OrderBy("created_at", "seq"))
}

// Balance cantidad y valor acumulados de (ítem, bodega) antes de before.
func (r *StockMoveRepo) Balance(ctx context.Context, itemID, warehouseID string, before time.Time) (decimal.Decimal, decimal.Decimal, error) {
	sql, args, err := psql.Select("COALESCE(SUM(quantity), 0)", "COALESCE(SUM(total_cost), 0)").
		From(stockMovesTable).
		Where(squirrel.Eq{"item_id": itemID, "warehouse_id": warehouseID}).
		Where(squirrel.Lt{"created_at": before}).
		ToSql()
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("build query: %w", err)
	}
	var qty, value decimal.Decimal
	if err := r.q.QueryRow(ctx, sql, args...).Scan(&qty, &value); err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("opening balance: %w", err)
	}
	return qty, value, nil
}

func (r *StockMoveRepo) selectMoves(ctx context.Context, q squirrel.SelectBuilder) ([]*entity.StockMove, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var rows []stockMoveRow
	if err := pgxscan.Select(ctx, r.q, &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("list stock moves: %w", err)
	}
	out := make([]*entity.StockMove, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toEntity())
	}
	return out, nil
}
