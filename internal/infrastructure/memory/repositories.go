package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventory-ledger/internal/domain"
	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
	"github.com/jhoicas/inventory-ledger/internal/domain/repository"
)

var (
	_ repository.ItemRepository       = (*ItemRepo)(nil)
	_ repository.WarehouseRepository  = (*WarehouseRepo)(nil)
	_ repository.StockMoveRepository  = (*StockMoveRepo)(nil)
	_ repository.StockLayerRepository = (*StockLayerRepo)(nil)
)

// ItemRepo catálogo de ítems en memoria. Upsert por SKU.
type ItemRepo struct{ acc access }

func (r *ItemRepo) Upsert(_ context.Context, item *entity.Item) error {
	return r.acc.update(func(st *state) error {
		now := time.Now().UTC()
		for _, existing := range st.items {
			if existing.SKU == item.SKU {
				existing.Name = item.Name
				existing.Type = item.Type
				existing.Active = item.Active
				existing.UpdatedAt = now
				item.ID = existing.ID
				item.AvgCost = existing.AvgCost
				item.CreatedAt = existing.CreatedAt
				item.UpdatedAt = now
				return nil
			}
		}
		if item.ID == "" {
			item.ID = uuid.New().String()
		}
		if item.CreatedAt.IsZero() {
			item.CreatedAt = now
		}
		item.UpdatedAt = now
		cp := *item
		st.items[item.ID] = &cp
		return nil
	})
}

func (r *ItemRepo) GetByID(_ context.Context, id string) (*entity.Item, error) {
	var out *entity.Item
	err := r.acc.view(func(st *state) error {
		if it, ok := st.items[id]; ok {
			cp := *it
			out = &cp
		}
		return nil
	})
	return out, err
}

// GetForMovement en memoria no hay bloqueo de fila: Run ya serializa a los escritores.
func (r *ItemRepo) GetForMovement(ctx context.Context, id string, _ bool) (*entity.Item, error) {
	return r.GetByID(ctx, id)
}

func (r *ItemRepo) UpdateAvgCost(_ context.Context, id string, cost decimal.Decimal) error {
	return r.acc.update(func(st *state) error {
		it, ok := st.items[id]
		if !ok {
			return fmt.Errorf("%w: ítem %s", domain.ErrNotFound, id)
		}
		it.AvgCost = cost
		it.UpdatedAt = time.Now().UTC()
		return nil
	})
}

// WarehouseRepo bodegas en memoria; el nombre es único.
type WarehouseRepo struct{ acc access }

func (r *WarehouseRepo) Create(_ context.Context, warehouse *entity.Warehouse) error {
	return r.acc.update(func(st *state) error {
		for _, w := range st.warehouses {
			if w.Name == warehouse.Name {
				return fmt.Errorf("%w: ya existe una bodega llamada %q", domain.ErrDuplicate, warehouse.Name)
			}
		}
		if warehouse.ID == "" {
			warehouse.ID = uuid.New().String()
		}
		cp := *warehouse
		st.warehouses[warehouse.ID] = &cp
		return nil
	})
}

func (r *WarehouseRepo) GetByID(_ context.Context, id string) (*entity.Warehouse, error) {
	var out *entity.Warehouse
	err := r.acc.view(func(st *state) error {
		if w, ok := st.warehouses[id]; ok {
			cp := *w
			out = &cp
		}
		return nil
	})
	return out, err
}

func (r *WarehouseRepo) GetForMovement(ctx context.Context, id string) (*entity.Warehouse, error) {
	return r.GetByID(ctx, id)
}

func (r *WarehouseRepo) GetByName(_ context.Context, name string) (*entity.Warehouse, error) {
	var out *entity.Warehouse
	err := r.acc.view(func(st *state) error {
		for _, w := range st.warehouses {
			if w.Name == name {
				cp := *w
				out = &cp
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (r *WarehouseRepo) List(_ context.Context, limit, offset int) ([]*entity.Warehouse, error) {
	var all []*entity.Warehouse
	err := r.acc.view(func(st *state) error {
		for _, w := range st.warehouses {
			cp := *w
			all = append(all, &cp)
		}
		return nil
	})
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return page(all, limit, offset), err
}

// StockMoveRepo libro de movimientos en memoria: solo append.
type StockMoveRepo struct{ acc access }

func (r *StockMoveRepo) Create(_ context.Context, move *entity.StockMove) error {
	return r.acc.update(func(st *state) error {
		if move.ID == "" {
			move.ID = uuid.New().String()
		}
		if move.CreatedAt.IsZero() {
			move.CreatedAt = time.Now().UTC()
		}
		st.moveSeq++
		move.Seq = st.moveSeq
		cp := *move
		st.moves = append(st.moves, &cp)
		return nil
	})
}

func (r *StockMoveRepo) GetByID(_ context.Context, id string) (*entity.StockMove, error) {
	var out *entity.StockMove
	err := r.acc.view(func(st *state) error {
		for _, m := range st.moves {
			if m.ID == id {
				cp := *m
				out = &cp
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (r *StockMoveRepo) SumQuantity(_ context.Context, itemID, warehouseID string, at *time.Time) (decimal.Decimal, error) {
	total := decimal.Zero
	err := r.acc.view(func(st *state) error {
		for _, m := range st.moves {
			if m.ItemID != itemID || m.WarehouseID != warehouseID {
				continue
			}
			if at != nil && m.CreatedAt.After(*at) {
				continue
			}
			total = total.Add(m.Quantity)
		}
		return nil
	})
	return total, err
}

func (r *StockMoveRepo) SumQuantityByItem(_ context.Context, itemID string) ([]entity.WarehouseStock, error) {
	sums := make(map[string]decimal.Decimal)
	err := r.acc.view(func(st *state) error {
		for _, m := range st.moves {
			if m.ItemID == itemID {
				sums[m.WarehouseID] = sums[m.WarehouseID].Add(m.Quantity)
			}
		}
		return nil
	})
	out := make([]entity.WarehouseStock, 0, len(sums))
	for wh, qty := range sums {
		out = append(out, entity.WarehouseStock{WarehouseID: wh, Quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WarehouseID < out[j].WarehouseID })
	return out, err
}

func (r *StockMoveRepo) List(_ context.Context, filter repository.MoveFilter) ([]*entity.StockMove, error) {
	var out []*entity.StockMove
	err := r.acc.view(func(st *state) error {
		for _, m := range st.moves {
			if filter.ItemID != "" && m.ItemID != filter.ItemID {
				continue
			}
			if filter.WarehouseID != "" && m.WarehouseID != filter.WarehouseID {
				continue
			}
			cp := *m
			out = append(out, &cp)
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Seq > out[j].Seq
	})
	return page(out, filter.Take, filter.Skip), err
}

func (r *StockMoveRepo) ListChronological(_ context.Context, itemID, warehouseID string, from, to *time.Time) ([]*entity.StockMove, error) {
	var out []*entity.StockMove
	err := r.acc.view(func(st *state) error {
		for _, m := range st.moves {
			if m.ItemID != itemID || m.WarehouseID != warehouseID {
				continue
			}
			if from != nil && m.CreatedAt.Before(*from) {
				continue
			}
			if to != nil && m.CreatedAt.After(*to) {
				continue
			}
			cp := *m
			out = append(out, &cp)
		}
		return nil
	})
	sortChronological(out)
	return out, err
}

func (r *StockMoveRepo) Balance(_ context.Context, itemID, warehouseID string, before time.Time) (decimal.Decimal, decimal.Decimal, error) {
	qty, value := decimal.Zero, decimal.Zero
	err := r.acc.view(func(st *state) error {
		for _, m := range st.moves {
			if m.ItemID == itemID && m.WarehouseID == warehouseID && m.CreatedAt.Before(before) {
				qty = qty.Add(m.Quantity)
				value = value.Add(m.TotalCost)
			}
		}
		return nil
	})
	return qty, value, err
}

// StockLayerRepo capas FIFO en memoria.
type StockLayerRepo struct{ acc access }

// Lock no hace nada: el Store ya admite un solo escritor a la vez.
func (r *StockLayerRepo) Lock(context.Context, string, string) error { return nil }

func (r *StockLayerRepo) Create(_ context.Context, layer *entity.StockLayer) error {
	return r.acc.update(func(st *state) error {
		if layer.ID == "" {
			layer.ID = uuid.New().String()
		}
		if layer.CreatedAt.IsZero() {
			layer.CreatedAt = time.Now().UTC()
		}
		st.layerSeq++
		layer.Seq = st.layerSeq
		cp := *layer
		st.layers = append(st.layers, &cp)
		return nil
	})
}

func (r *StockLayerRepo) ListOpen(_ context.Context, itemID, warehouseID string, _ bool) ([]*entity.StockLayer, error) {
	var out []*entity.StockLayer
	err := r.acc.view(func(st *state) error {
		for _, l := range st.layers {
			if l.ItemID == itemID && l.WarehouseID == warehouseID && l.RemainingQty.IsPositive() {
				cp := *l
				out = append(out, &cp)
			}
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, err
}

func (r *StockLayerRepo) UpdateRemaining(_ context.Context, layerID string, remaining decimal.Decimal) error {
	return r.acc.update(func(st *state) error {
		for _, l := range st.layers {
			if l.ID != layerID {
				continue
			}
			if remaining.IsNegative() || remaining.GreaterThan(l.OriginalQty) {
				return fmt.Errorf("%w: saldo %s fuera de rango en capa %s", domain.ErrInvariantViolation, remaining, layerID)
			}
			l.RemainingQty = remaining
			return nil
		}
		return fmt.Errorf("%w: capa %s", domain.ErrNotFound, layerID)
	})
}

func (r *StockLayerRepo) RecordConsumptions(_ context.Context, consumptions []entity.LayerConsumption) error {
	return r.acc.update(func(st *state) error {
		st.consumptions = append(st.consumptions, consumptions...)
		return nil
	})
}

// Consumptions detalle de consumos registrado (auditoría y tests).
func (r *StockLayerRepo) Consumptions(moveID string) []entity.LayerConsumption {
	var out []entity.LayerConsumption
	_ = r.acc.view(func(st *state) error {
		for _, c := range st.consumptions {
			if c.MoveID == moveID {
				out = append(out, c)
			}
		}
		return nil
	})
	return out
}

func sortChronological(moves []*entity.StockMove) {
	sort.SliceStable(moves, func(i, j int) bool {
		if !moves[i].CreatedAt.Equal(moves[j].CreatedAt) {
			return moves[i].CreatedAt.Before(moves[j].CreatedAt)
		}
		return moves[i].Seq < moves[j].Seq
	})
}

func page[T any](list []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(list) {
		return nil
	}
	list = list[offset:]
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	return list
}
