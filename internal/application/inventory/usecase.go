package inventory

import (
	"context"

	"github.com/jhoicas/inventory-ledger/internal/application/dto"
	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
	"github.com/jhoicas/inventory-ledger/internal/domain/inventory"
)

// RegisterMovementFromRequest adapta el body HTTP al motor: arma la dirección a partir del tipo
// (y de direction en ajustes). La falta de unit_cost en una entrada la reporta validate,
// después de los chequeos de ítem, bodega y cantidad.
func (uc *RegisterMovementUseCase) RegisterMovementFromRequest(ctx context.Context, userID string, in dto.RegisterMovementRequest) (*dto.MovementResponse, error) {
	dir, costMissing := directionFromRequest(in)
	result, err := uc.RecordMovement(ctx, MovementRequest{
		ItemID:      in.ItemID,
		WarehouseID: in.WarehouseID,
		Kind:        in.Type,
		Quantity:    in.Quantity,
		Direction:   dir,
		RefType:     in.RefType,
		RefID:       in.RefID,
		Note:        in.Note,
		CreatedBy:   userID,
		costMissing: costMissing,
	})
	if err != nil {
		return nil, err
	}
	return toMovementResponse(result), nil
}

// TransferFromRequest adapta el body HTTP de traslado.
func (uc *RegisterMovementUseCase) TransferFromRequest(ctx context.Context, userID string, in dto.TransferRequest) (*dto.TransferResponse, error) {
	result, err := uc.Transfer(ctx, TransferRequest{
		ItemID:          in.ItemID,
		FromWarehouseID: in.FromWarehouseID,
		ToWarehouseID:   in.ToWarehouseID,
		Quantity:        in.Quantity,
		RefType:         in.RefType,
		RefID:           in.RefID,
		Note:            in.Note,
		CreatedBy:       userID,
	})
	if err != nil {
		return nil, err
	}
	return &dto.TransferResponse{
		Out: toStockMoveResponse(result.Out.Move),
		In:  toStockMoveResponse(result.In.Move),
	}, nil
}

// directionFromRequest la dirección solo la decide el tipo, salvo en ajustes.
// Devuelve nil si el tipo es desconocido o falta direction en un ajuste; validate lo rechaza.
// Un costo enviado en una salida se ignora.
func directionFromRequest(in dto.RegisterMovementRequest) (dir inventory.Direction, costMissing bool) {
	inbound := func() (inventory.Direction, bool) {
		if in.UnitCost == nil {
			return inventory.Inbound{}, true
		}
		return inventory.Inbound{UnitCost: *in.UnitCost}, false
	}
	switch in.Type {
	case entity.MoveKindPurchase, entity.MoveKindTransferIn:
		return inbound()
	case entity.MoveKindSale, entity.MoveKindTransferOut:
		return inventory.Outbound{}, false
	case entity.MoveKindAdjustment:
		switch in.Direction {
		case dto.DirectionIncrease:
			return inbound()
		case dto.DirectionDecrease:
			return inventory.Outbound{}, false
		}
	}
	return nil, false
}

func toStockMoveResponse(m *entity.StockMove) dto.StockMoveResponse {
	return dto.StockMoveResponse{
		ID:          m.ID,
		Seq:         m.Seq,
		ItemID:      m.ItemID,
		WarehouseID: m.WarehouseID,
		Type:        m.Kind,
		Quantity:    m.Quantity,
		UnitCost:    m.UnitCost,
		TotalCost:   m.TotalCost,
		RefType:     m.RefType,
		RefID:       m.RefID,
		Note:        m.Note,
		CreatedAt:   m.CreatedAt,
		CreatedBy:   m.CreatedBy,
	}
}

func toStockLayerResponse(l *entity.StockLayer) dto.StockLayerResponse {
	return dto.StockLayerResponse{
		ID:           l.ID,
		OriginalQty:  l.OriginalQty,
		RemainingQty: l.RemainingQty,
		UnitCost:     l.UnitCost,
		SourceMoveID: l.SourceMoveID,
		CreatedAt:    l.CreatedAt,
	}
}

func toMovementResponse(r *MovementResult) *dto.MovementResponse {
	out := &dto.MovementResponse{Move: toStockMoveResponse(r.Move)}
	for _, l := range r.Layers {
		out.Layers = append(out.Layers, toStockLayerResponse(l))
	}
	for _, c := range r.Consumptions {
		out.Consumptions = append(out.Consumptions, dto.LayerConsumptionResponse{
			LayerID:  c.LayerID,
			Quantity: c.Quantity,
			UnitCost: c.UnitCost,
		})
	}
	return out
}
