package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventory-ledger/internal/domain"
	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
	"github.com/jhoicas/inventory-ledger/internal/domain/repository"
)

var _ repository.ItemRepository = (*ItemRepo)(nil)

// ItemRepo implementación del catálogo de ítems sobre PostgreSQL (pool o tx).
type ItemRepo struct {
	q Querier
}

// NewItemRepository construye el adaptador. Pasar pool o tx (Querier).
func NewItemRepository(q Querier) *ItemRepo {
	return &ItemRepo{q: q}
}

// Upsert inserta o actualiza el ítem por SKU. No toca avg_cost de un ítem existente.
func (r *ItemRepo) Upsert(ctx context.Context, item *entity.Item) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now
	query := `
		INSERT INTO items (id, sku, name, type, active, avg_cost, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (sku) DO UPDATE
		SET name = EXCLUDED.name, type = EXCLUDED.type, active = EXCLUDED.active, updated_at = EXCLUDED.updated_at
		RETURNING id, avg_cost, created_at`
	err := r.q.QueryRow(ctx, query,
		item.ID, item.SKU, item.Name, item.Type, item.Active, item.AvgCost, item.CreatedAt, item.UpdatedAt,
	).Scan(&item.ID, &item.AvgCost, &item.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert item: %w", err)
	}
	return nil
}

const itemColumns = `id, sku, name, type, active, avg_cost, created_at, updated_at`

// GetByID obtiene un ítem por ID; (nil, nil) si no existe.
func (r *ItemRepo) GetByID(ctx context.Context, id string) (*entity.Item, error) {
	it, err := r.getOne(ctx, `SELECT `+itemColumns+` FROM items WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return it, nil
}

// GetForMovement relee el ítem con FOR UPDATE o FOR SHARE. Una desactivación concurrente
// espera al commit del movimiento o el movimiento ve la fila ya desactivada.
func (r *ItemRepo) GetForMovement(ctx context.Context, id string, forUpdate bool) (*entity.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE id = $1 FOR SHARE`
	if forUpdate {
		query = `SELECT ` + itemColumns + ` FROM items WHERE id = $1 FOR UPDATE`
	}
	it, err := r.getOne(ctx, query, id)
	if err != nil {
		if isLockTimeout(err) {
			return nil, fmt.Errorf("%w: ítem %s está ocupado, reintente", domain.ErrConflict, id)
		}
		return nil, fmt.Errorf("lock item: %w", err)
	}
	return it, nil
}

func (r *ItemRepo) getOne(ctx context.Context, query, id string) (*entity.Item, error) {
	var it entity.Item
	err := r.q.QueryRow(ctx, query, id).Scan(
		&it.ID, &it.SKU, &it.Name, &it.Type, &it.Active, &it.AvgCost, &it.CreatedAt, &it.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &it, nil
}

// UpdateAvgCost actualiza el costo promedio cacheado. Las entradas lo llaman con la fila ya
// tomada por GetForMovement(forUpdate), así dos bodegas no pisan el promedio de la otra.
func (r *ItemRepo) UpdateAvgCost(ctx context.Context, id string, cost decimal.Decimal) error {
	_, err := r.q.Exec(ctx,
		`UPDATE items SET avg_cost = $2, updated_at = $3 WHERE id = $1`,
		id, cost, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("update item avg cost: %w", err)
	}
	return nil
}
