// Package memory implementa los puertos de persistencia en memoria del proceso.
// Se usa con DB_DRIVER=memory y en los tests de casos de uso y handlers.
package memory

import (
	"context"
	"sync"

	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
	"github.com/jhoicas/inventory-ledger/internal/domain/repository"
)

type state struct {
	items        map[string]*entity.Item
	warehouses   map[string]*entity.Warehouse
	moves        []*entity.StockMove
	layers       []*entity.StockLayer
	consumptions []entity.LayerConsumption
	moveSeq      int64
	layerSeq     int64
}

func newState() *state {
	return &state{
		items:      make(map[string]*entity.Item),
		warehouses: make(map[string]*entity.Warehouse),
	}
}

// clone copia todo lo mutable. Los movimientos no cambian nunca, así que se comparten.
func (s *state) clone() *state {
	c := &state{
		items:        make(map[string]*entity.Item, len(s.items)),
		warehouses:   make(map[string]*entity.Warehouse, len(s.warehouses)),
		moves:        append([]*entity.StockMove(nil), s.moves...),
		layers:       make([]*entity.StockLayer, len(s.layers)),
		consumptions: append([]entity.LayerConsumption(nil), s.consumptions...),
		moveSeq:      s.moveSeq,
		layerSeq:     s.layerSeq,
	}
	for id, it := range s.items {
		cp := *it
		c.items[id] = &cp
	}
	for id, w := range s.warehouses {
		cp := *w
		c.warehouses[id] = &cp
	}
	for i, l := range s.layers {
		cp := *l
		c.layers[i] = &cp
	}
	return c
}

// Store base de datos en memoria. Una sola transacción de escritura a la vez: Run trabaja
// sobre una copia del estado y la publica solo si fn termina sin error (Rollback = descartar la copia).
type Store struct {
	writeMu sync.Mutex   // serializa escritores (Run y escrituras sueltas)
	mu      sync.RWMutex // protege st
	st      *state
}

// NewStore crea un store vacío.
func NewStore() *Store {
	return &Store{st: newState()}
}

// Run ejecuta fn con repositorios atados a una copia privada del estado.
func (s *Store) Run(ctx context.Context, fn func(
	ctx context.Context,
	moveRepo repository.StockMoveRepository,
	layerRepo repository.StockLayerRepository,
	itemRepo repository.ItemRepository,
	warehouseRepo repository.WarehouseRepository,
) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	draft := s.st.clone()
	s.mu.RUnlock()

	acc := txAccess{st: draft}
	if err := fn(ctx, &StockMoveRepo{acc: acc}, &StockLayerRepo{acc: acc}, &ItemRepo{acc: acc}, &WarehouseRepo{acc: acc}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.st = draft
	s.mu.Unlock()
	return nil
}

// Items repositorio de ítems fuera de transacción.
func (s *Store) Items() *ItemRepo { return &ItemRepo{acc: storeAccess{s: s}} }

// Warehouses repositorio de bodegas.
func (s *Store) Warehouses() *WarehouseRepo { return &WarehouseRepo{acc: storeAccess{s: s}} }

// Moves repositorio del libro fuera de transacción (lecturas de reportes).
func (s *Store) Moves() *StockMoveRepo { return &StockMoveRepo{acc: storeAccess{s: s}} }

// Layers repositorio de capas fuera de transacción (lecturas de reportes).
func (s *Store) Layers() *StockLayerRepo { return &StockLayerRepo{acc: storeAccess{s: s}} }

// access abstrae si el repositorio lee el estado publicado o la copia de una transacción.
type access interface {
	view(fn func(st *state) error) error
	update(fn func(st *state) error) error
}

type txAccess struct{ st *state }

func (a txAccess) view(fn func(st *state) error) error   { return fn(a.st) }
func (a txAccess) update(fn func(st *state) error) error { return fn(a.st) }

type storeAccess struct{ s *Store }

func (a storeAccess) view(fn func(st *state) error) error {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()
	return fn(a.s.st)
}

func (a storeAccess) update(fn func(st *state) error) error {
	a.s.writeMu.Lock()
	defer a.s.writeMu.Unlock()
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	return fn(a.s.st)
}
