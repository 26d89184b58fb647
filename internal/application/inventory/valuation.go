package inventory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventory-ledger/internal/application/dto"
	"github.com/jhoicas/inventory-ledger/internal/domain"
	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
	"github.com/jhoicas/inventory-ledger/internal/domain/inventory"
	"github.com/jhoicas/inventory-ledger/internal/domain/repository"
	"github.com/jhoicas/inventory-ledger/pkg/logger"
)

// Paginación del libro de movimientos.
const (
	DefaultMoveTake = 50
	MaxMoveTake     = 200
)

// ValuationUseCase consultas de solo lectura sobre el libro y las capas. Nunca escribe.
type ValuationUseCase struct {
	moveRepo  repository.StockMoveRepository
	layerRepo repository.StockLayerRepository
	cache     StockCache
	log       *logger.Logger
}

// NewValuationUseCase construye el caso de uso. cache puede ser nil.
func NewValuationUseCase(
	moveRepo repository.StockMoveRepository,
	layerRepo repository.StockLayerRepository,
	cache StockCache,
	log *logger.Logger,
) *ValuationUseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &ValuationUseCase{moveRepo: moveRepo, layerRepo: layerRepo, cache: cache, log: log}
}

// StockOf stock actual de un ítem en una bodega (suma con signo del libro).
func (uc *ValuationUseCase) StockOf(ctx context.Context, itemID, warehouseID string) (*dto.StockResponse, error) {
	if err := requirePair(itemID, warehouseID); err != nil {
		return nil, err
	}
	qty, err := uc.moveRepo.SumQuantity(ctx, itemID, warehouseID, nil)
	if err != nil {
		return nil, err
	}
	return &dto.StockResponse{ItemID: itemID, WarehouseID: warehouseID, Qty: qty}, nil
}

// StockSummary stock del ítem por bodega. Lee primero de la caché; un fallo de caché
// no interrumpe la consulta.
func (uc *ValuationUseCase) StockSummary(ctx context.Context, itemID string) ([]dto.WarehouseStockResponse, error) {
	if strings.TrimSpace(itemID) == "" {
		return nil, fmt.Errorf("%w: item_id es obligatorio", domain.ErrInvalidInput)
	}
	summary, hit := uc.cachedSummary(ctx, itemID)
	if !hit {
		var err error
		summary, err = uc.moveRepo.SumQuantityByItem(ctx, itemID)
		if err != nil {
			return nil, err
		}
		if uc.cache != nil {
			if err := uc.cache.SetSummary(ctx, itemID, summary); err != nil {
				uc.log.Warn().Err(err).Str("item_id", itemID).Msg("no se pudo cachear el resumen de stock")
			}
		}
	}
	out := make([]dto.WarehouseStockResponse, 0, len(summary))
	for _, s := range summary {
		out = append(out, dto.WarehouseStockResponse{WarehouseID: s.WarehouseID, Qty: s.Quantity})
	}
	return out, nil
}

func (uc *ValuationUseCase) cachedSummary(ctx context.Context, itemID string) ([]entity.WarehouseStock, bool) {
	if uc.cache == nil {
		return nil, false
	}
	summary, ok, err := uc.cache.GetSummary(ctx, itemID)
	if err != nil {
		uc.log.Warn().Err(err).Str("item_id", itemID).Msg("caché de stock no disponible")
		return nil, false
	}
	return summary, ok
}

// ListLayers capas abiertas de (ítem, bodega), la más antigua primero.
func (uc *ValuationUseCase) ListLayers(ctx context.Context, itemID, warehouseID string) ([]dto.StockLayerResponse, error) {
	if err := requirePair(itemID, warehouseID); err != nil {
		return nil, err
	}
	layers, err := uc.layerRepo.ListOpen(ctx, itemID, warehouseID, false)
	if err != nil {
		return nil, err
	}
	out := make([]dto.StockLayerResponse, 0, len(layers))
	for _, l := range layers {
		out = append(out, toStockLayerResponse(l))
	}
	return out, nil
}

// ListMoves página del libro, más reciente primero. take <= 0 usa el valor por defecto.
func (uc *ValuationUseCase) ListMoves(ctx context.Context, itemID, warehouseID string, take, skip int) (*dto.MoveListResponse, error) {
	if take <= 0 {
		take = DefaultMoveTake
	}
	if take > MaxMoveTake {
		take = MaxMoveTake
	}
	if skip < 0 {
		return nil, fmt.Errorf("%w: skip no puede ser negativo", domain.ErrInvalidInput)
	}
	moves, err := uc.moveRepo.List(ctx, repository.MoveFilter{
		ItemID:      itemID,
		WarehouseID: warehouseID,
		Take:        take,
		Skip:        skip,
	})
	if err != nil {
		return nil, err
	}
	items := make([]dto.StockMoveResponse, 0, len(moves))
	for _, m := range moves {
		items = append(items, toStockMoveResponse(m))
	}
	return &dto.MoveListResponse{Items: items, Take: take, Skip: skip}, nil
}

// Kardex repite los movimientos de (ítem, bodega) dentro de [from, to]. Con from, el saldo inicial
// es el acumulado antes de from, así el saldo final coincide con el stock a la fecha to.
func (uc *ValuationUseCase) Kardex(ctx context.Context, itemID, warehouseID string, from, to *time.Time) (*dto.KardexResponse, error) {
	if err := requirePair(itemID, warehouseID); err != nil {
		return nil, err
	}
	if from != nil && to != nil && to.Before(*from) {
		return nil, fmt.Errorf("%w: to debe ser posterior a from", domain.ErrInvalidInput)
	}
	openQty, openValue := decimal.Zero, decimal.Zero
	if from != nil {
		var err error
		openQty, openValue, err = uc.moveRepo.Balance(ctx, itemID, warehouseID, *from)
		if err != nil {
			return nil, err
		}
	}
	moves, err := uc.moveRepo.ListChronological(ctx, itemID, warehouseID, from, to)
	if err != nil {
		return nil, err
	}
	k := inventory.BuildKardex(inventory.NewKardexBalance(openQty, openValue), moves)

	rows := make([]dto.KardexRowResponse, 0, len(k.Rows))
	for _, r := range k.Rows {
		rows = append(rows, dto.KardexRowResponse{
			MoveID:       r.MoveID,
			Type:         r.Kind,
			RefType:      r.RefType,
			RefID:        r.RefID,
			Note:         r.Note,
			Date:         r.CreatedAt,
			QtyIn:        r.QtyIn,
			QtyOut:       r.QtyOut,
			UnitCost:     r.UnitCost,
			Value:        r.Value,
			BalanceQty:   r.BalanceQty,
			BalanceValue: r.BalanceValue,
			AvgCost:      r.AvgCost,
		})
	}
	return &dto.KardexResponse{
		ItemID:      itemID,
		WarehouseID: warehouseID,
		From:        from,
		To:          to,
		Opening:     toKardexBalance(k.Opening),
		Rows:        rows,
		Ending:      toKardexBalance(k.Ending),
	}, nil
}

func toKardexBalance(b inventory.KardexBalance) dto.KardexBalanceResponse {
	return dto.KardexBalanceResponse{Qty: b.Qty, Value: b.Value, AvgCost: b.AvgCost}
}

func requirePair(itemID, warehouseID string) error {
	if strings.TrimSpace(itemID) == "" || strings.TrimSpace(warehouseID) == "" {
		return fmt.Errorf("%w: item_id y warehouse_id son obligatorios", domain.ErrInvalidInput)
	}
	return nil
}
