package inventory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventory-ledger/internal/domain"
	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
	"github.com/jhoicas/inventory-ledger/internal/domain/inventory"
	"github.com/jhoicas/inventory-ledger/internal/domain/repository"
	"github.com/jhoicas/inventory-ledger/pkg/logger"
)

// RegisterMovementUseCase es el motor de movimientos: valida la solicitud y, en una sola
// transacción con bloqueo por (ítem, bodega), escribe el movimiento y crea o consume capas FIFO.
type RegisterMovementUseCase struct {
	txRunner      TxRunner
	itemRepo      repository.ItemRepository
	warehouseRepo repository.WarehouseRepository
	cache         StockCache
	log           *logger.Logger
	now           func() time.Time
}

// NewRegisterMovementUseCase construye el caso de uso. cache puede ser nil.
func NewRegisterMovementUseCase(
	txRunner TxRunner,
	itemRepo repository.ItemRepository,
	warehouseRepo repository.WarehouseRepository,
	cache StockCache,
	log *logger.Logger,
) *RegisterMovementUseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &RegisterMovementUseCase{
		txRunner:      txRunner,
		itemRepo:      itemRepo,
		warehouseRepo: warehouseRepo,
		cache:         cache,
		log:           log,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// MovementRequest solicitud de movimiento. Quantity siempre positiva; Direction la arma el caller:
// inventory.Inbound{UnitCost} para entradas, inventory.Outbound{} para salidas.
type MovementRequest struct {
	ItemID      string
	WarehouseID string
	Kind        string
	Quantity    decimal.Decimal
	Direction   inventory.Direction
	RefType     string
	RefID       string
	Note        string
	CreatedBy   string

	// costMissing entrada armada desde un body sin unit_cost; se rechaza al final de validate.
	costMissing bool
}

// MovementResult lo escrito por un movimiento: Layers solo en entradas (una por compra o ajuste,
// una por capa consumida en un TRANSFER_IN), Consumptions solo en salidas.
type MovementResult struct {
	Move         *entity.StockMove
	Layers       []*entity.StockLayer
	Consumptions []entity.LayerConsumption
}

// TransferRequest traslado de stock entre dos bodegas.
type TransferRequest struct {
	ItemID          string
	FromWarehouseID string
	ToWarehouseID   string
	Quantity        decimal.Decimal
	RefType         string
	RefID           string
	Note            string
	CreatedBy       string
}

// TransferResult las dos patas del traslado.
type TransferResult struct {
	Out *MovementResult
	In  *MovementResult
}

// RecordMovement valida la solicitud y registra el movimiento en su propia transacción.
// Ante cualquier error no queda nada escrito.
func (uc *RegisterMovementUseCase) RecordMovement(ctx context.Context, req MovementRequest) (*MovementResult, error) {
	if err := uc.validate(ctx, req); err != nil {
		uc.logRejected(req, err)
		return nil, err
	}

	var result *MovementResult
	err := uc.txRunner.Run(ctx, func(
		ctx context.Context,
		moveRepo repository.StockMoveRepository,
		layerRepo repository.StockLayerRepository,
		itemRepo repository.ItemRepository,
		warehouseRepo repository.WarehouseRepository,
	) error {
		r, err := uc.lockAndApply(ctx, moveRepo, layerRepo, itemRepo, warehouseRepo, req)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		uc.logRejected(req, err)
		return nil, err
	}

	uc.InvalidateStock(ctx, req.ItemID)
	uc.log.Info().
		Str("move_id", result.Move.ID).
		Str("item_id", req.ItemID).
		Str("warehouse_id", req.WarehouseID).
		Str("kind", req.Kind).
		Str("qty", result.Move.Quantity.String()).
		Str("unit_cost", result.Move.UnitCost.String()).
		Msg("movimiento registrado")
	return result, nil
}

// RecordInTx registra un movimiento usando los repositorios de una transacción abierta por el caller
// (por ejemplo compras o ventas que guardan sus documentos en la misma tx).
// El caller debe llamar InvalidateStock después del Commit.
func (uc *RegisterMovementUseCase) RecordInTx(
	ctx context.Context,
	moveRepo repository.StockMoveRepository,
	layerRepo repository.StockLayerRepository,
	itemRepo repository.ItemRepository,
	warehouseRepo repository.WarehouseRepository,
	req MovementRequest,
) (*MovementResult, error) {
	if err := uc.validate(ctx, req); err != nil {
		return nil, err
	}
	return uc.lockAndApply(ctx, moveRepo, layerRepo, itemRepo, warehouseRepo, req)
}

// lockAndApply toma el lock del par, relee ítem y bodega con los repos de la tx y aplica.
// Las entradas bloquean la fila del ítem en exclusiva porque reescriben avg_cost.
func (uc *RegisterMovementUseCase) lockAndApply(
	ctx context.Context,
	moveRepo repository.StockMoveRepository,
	layerRepo repository.StockLayerRepository,
	itemRepo repository.ItemRepository,
	warehouseRepo repository.WarehouseRepository,
	req MovementRequest,
) (*MovementResult, error) {
	if err := layerRepo.Lock(ctx, req.ItemID, req.WarehouseID); err != nil {
		return nil, err
	}
	_, inbound := req.Direction.(inventory.Inbound)
	item, err := reloadForMovement(ctx, itemRepo, warehouseRepo, req.ItemID, inbound, req.WarehouseID)
	if err != nil {
		return nil, err
	}
	switch d := req.Direction.(type) {
	case inventory.Inbound:
		return uc.applyInbound(ctx, moveRepo, layerRepo, itemRepo, item, req, d.UnitCost)
	case inventory.Outbound:
		return uc.applyOutbound(ctx, moveRepo, layerRepo, req)
	}
	return nil, fmt.Errorf("%w: dirección inválida para %s", domain.ErrInvalidInput, req.Kind)
}

// Transfer saca stock de la bodega origen (TRANSFER_OUT, costo FIFO) y lo ingresa en la destino
// (TRANSFER_IN) con el mismo valor, en una sola transacción. Cada capa consumida en origen
// reaparece en destino con su costo unitario exacto.
func (uc *RegisterMovementUseCase) Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error) {
	if strings.TrimSpace(req.FromWarehouseID) == "" || strings.TrimSpace(req.ToWarehouseID) == "" {
		return nil, fmt.Errorf("%w: bodega origen y destino son obligatorias", domain.ErrInvalidInput)
	}
	if req.FromWarehouseID == req.ToWarehouseID {
		return nil, fmt.Errorf("%w: bodega origen y destino deben ser distintas", domain.ErrInvalidInput)
	}
	outReq := MovementRequest{
		ItemID:      req.ItemID,
		WarehouseID: req.FromWarehouseID,
		Kind:        entity.MoveKindTransferOut,
		Quantity:    req.Quantity,
		Direction:   inventory.Outbound{},
		RefType:     req.RefType,
		RefID:       req.RefID,
		Note:        req.Note,
		CreatedBy:   req.CreatedBy,
	}
	if outReq.RefType == "" {
		outReq.RefType = "TRANSFER"
	}
	if outReq.RefID == "" {
		outReq.RefID = uuid.New().String()
	}
	if err := uc.validate(ctx, outReq); err != nil {
		uc.logRejected(outReq, err)
		return nil, err
	}
	inReq := outReq
	inReq.WarehouseID = req.ToWarehouseID
	inReq.Kind = entity.MoveKindTransferIn
	if _, err := uc.validateWarehouse(ctx, inReq.WarehouseID); err != nil {
		uc.logRejected(inReq, err)
		return nil, err
	}

	var result TransferResult
	err := uc.txRunner.Run(ctx, func(
		ctx context.Context,
		moveRepo repository.StockMoveRepository,
		layerRepo repository.StockLayerRepository,
		itemRepo repository.ItemRepository,
		warehouseRepo repository.WarehouseRepository,
	) error {
		// Orden estable de bloqueo para que dos traslados cruzados no se bloqueen mutuamente.
		pair := []string{req.FromWarehouseID, req.ToWarehouseID}
		sort.Strings(pair)
		for _, wh := range pair {
			if err := layerRepo.Lock(ctx, req.ItemID, wh); err != nil {
				return err
			}
		}
		// El traslado no cambia stock ni valor total del ítem: basta el bloqueo compartido.
		if _, err := reloadForMovement(ctx, itemRepo, warehouseRepo, req.ItemID, false, pair...); err != nil {
			return err
		}
		out, err := uc.applyOutbound(ctx, moveRepo, layerRepo, outReq)
		if err != nil {
			return err
		}
		in, err := uc.applyTransferIn(ctx, moveRepo, layerRepo, inReq, out)
		if err != nil {
			return err
		}
		result = TransferResult{Out: out, In: in}
		return nil
	})
	if err != nil {
		uc.logRejected(outReq, err)
		return nil, err
	}

	uc.InvalidateStock(ctx, req.ItemID)
	uc.log.Info().
		Str("item_id", req.ItemID).
		Str("from_warehouse_id", req.FromWarehouseID).
		Str("to_warehouse_id", req.ToWarehouseID).
		Str("qty", req.Quantity.String()).
		Str("unit_cost", result.Out.Move.UnitCost.String()).
		Msg("traslado registrado")
	return &result, nil
}

// InvalidateStock descarta el resumen cacheado de los ítems indicados. Un fallo de caché solo se registra.
func (uc *RegisterMovementUseCase) InvalidateStock(ctx context.Context, itemIDs ...string) {
	if uc.cache == nil {
		return
	}
	if err := uc.cache.Invalidate(ctx, itemIDs...); err != nil {
		uc.log.Warn().Err(err).Strs("item_ids", itemIDs).Msg("no se pudo invalidar la caché de stock")
	}
}

// validate aplica las reglas en orden: ítem, bodega, cantidad, tipo, dirección, costo.
func (uc *RegisterMovementUseCase) validate(ctx context.Context, req MovementRequest) error {
	if strings.TrimSpace(req.ItemID) == "" || strings.TrimSpace(req.WarehouseID) == "" {
		return fmt.Errorf("%w: item_id y warehouse_id son obligatorios", domain.ErrInvalidInput)
	}
	item, err := uc.itemRepo.GetByID(ctx, req.ItemID)
	if err != nil {
		return err
	}
	if err := checkItem(item, req.ItemID); err != nil {
		return err
	}
	if _, err := uc.validateWarehouse(ctx, req.WarehouseID); err != nil {
		return err
	}
	if !req.Quantity.IsPositive() {
		return fmt.Errorf("%w: la cantidad debe ser mayor que cero", domain.ErrInvalidInput)
	}
	if !inventory.FitsScale(req.Quantity) {
		return fmt.Errorf("%w: la cantidad admite máximo %d decimales", domain.ErrInvalidInput, inventory.Scale)
	}
	if !inventory.IsKnownKind(req.Kind) {
		return fmt.Errorf("%w: tipo de movimiento desconocido %q", domain.ErrInvalidInput, req.Kind)
	}
	if req.Direction == nil || !inventory.AllowsDirection(req.Kind, req.Direction) {
		return fmt.Errorf("%w: dirección inválida para %s", domain.ErrInvalidInput, req.Kind)
	}
	if in, ok := req.Direction.(inventory.Inbound); ok {
		if req.costMissing {
			return fmt.Errorf("%w: unit_cost es obligatorio en entradas", domain.ErrInvalidInput)
		}
		if in.UnitCost.IsNegative() {
			return fmt.Errorf("%w: el costo unitario no puede ser negativo", domain.ErrInvalidInput)
		}
		if !inventory.FitsScale(in.UnitCost) {
			return fmt.Errorf("%w: el costo unitario admite máximo %d decimales", domain.ErrInvalidInput, inventory.Scale)
		}
	}
	return nil
}

func (uc *RegisterMovementUseCase) validateWarehouse(ctx context.Context, id string) (*entity.Warehouse, error) {
	wh, err := uc.warehouseRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkWarehouse(wh, id); err != nil {
		return nil, err
	}
	return wh, nil
}

// reloadForMovement relee ítem y bodegas dentro de la tx, después del lock del par, y repite
// los chequeos de estado de validate contra esas filas.
func reloadForMovement(
	ctx context.Context,
	itemRepo repository.ItemRepository,
	warehouseRepo repository.WarehouseRepository,
	itemID string,
	forUpdate bool,
	warehouseIDs ...string,
) (*entity.Item, error) {
	item, err := itemRepo.GetForMovement(ctx, itemID, forUpdate)
	if err != nil {
		return nil, err
	}
	if err := checkItem(item, itemID); err != nil {
		return nil, err
	}
	for _, id := range warehouseIDs {
		wh, err := warehouseRepo.GetForMovement(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := checkWarehouse(wh, id); err != nil {
			return nil, err
		}
	}
	return item, nil
}

func checkItem(item *entity.Item, id string) error {
	if item == nil {
		return fmt.Errorf("%w: ítem %s", domain.ErrNotFound, id)
	}
	if !item.Active {
		return fmt.Errorf("%w: ítem %s inactivo", domain.ErrInvalidState, id)
	}
	if !item.CarriesInventory() {
		return domain.ErrServiceItem
	}
	return nil
}

func checkWarehouse(wh *entity.Warehouse, id string) error {
	if wh == nil {
		return fmt.Errorf("%w: bodega %s", domain.ErrNotFound, id)
	}
	if !wh.Active {
		return fmt.Errorf("%w: bodega %s inactiva", domain.ErrInvalidState, id)
	}
	return nil
}

// applyInbound escribe el movimiento de entrada y su capa, y refresca el costo promedio
// cacheado. item viene de GetForMovement(forUpdate), así su AvgCost es el vigente.
func (uc *RegisterMovementUseCase) applyInbound(
	ctx context.Context,
	moveRepo repository.StockMoveRepository,
	layerRepo repository.StockLayerRepository,
	itemRepo repository.ItemRepository,
	item *entity.Item,
	req MovementRequest,
	unitCost decimal.Decimal,
) (*MovementResult, error) {
	summary, err := moveRepo.SumQuantityByItem(ctx, req.ItemID)
	if err != nil {
		return nil, err
	}
	stockBefore := decimal.Zero
	for _, s := range summary {
		stockBefore = stockBefore.Add(s.Quantity)
	}

	move := uc.newMove(req, req.Quantity, unitCost, req.Quantity.Mul(unitCost).Round(inventory.ValueScale))
	if err := moveRepo.Create(ctx, move); err != nil {
		return nil, err
	}
	layer, err := uc.createLayer(ctx, layerRepo, move, req.Quantity, unitCost)
	if err != nil {
		return nil, err
	}
	newAvg := inventory.CostCalculator(stockBefore, item.AvgCost, req.Quantity, unitCost)
	if err := itemRepo.UpdateAvgCost(ctx, req.ItemID, newAvg); err != nil {
		return nil, err
	}
	return &MovementResult{Move: move, Layers: []*entity.StockLayer{layer}}, nil
}

// applyTransferIn escribe la pata de entrada de un traslado: el mismo valor que salió y una capa
// por toma FIFO de la salida. No toca avg_cost porque el stock total del ítem no cambia.
func (uc *RegisterMovementUseCase) applyTransferIn(
	ctx context.Context,
	moveRepo repository.StockMoveRepository,
	layerRepo repository.StockLayerRepository,
	req MovementRequest,
	out *MovementResult,
) (*MovementResult, error) {
	move := uc.newMove(req, req.Quantity, out.Move.UnitCost, out.Move.TotalCost.Neg())
	if err := moveRepo.Create(ctx, move); err != nil {
		return nil, err
	}
	layers := make([]*entity.StockLayer, 0, len(out.Consumptions))
	for _, c := range out.Consumptions {
		layer, err := uc.createLayer(ctx, layerRepo, move, c.Quantity, c.UnitCost)
		if err != nil {
			return nil, err
		}
		layers = append(layers, layer)
	}
	return &MovementResult{Move: move, Layers: layers}, nil
}

func (uc *RegisterMovementUseCase) newMove(req MovementRequest, qty, unitCost, totalCost decimal.Decimal) *entity.StockMove {
	return &entity.StockMove{
		ItemID:      req.ItemID,
		WarehouseID: req.WarehouseID,
		Kind:        req.Kind,
		Quantity:    qty,
		UnitCost:    unitCost,
		TotalCost:   totalCost,
		RefType:     req.RefType,
		RefID:       req.RefID,
		Note:        req.Note,
		CreatedAt:   uc.now(),
		CreatedBy:   req.CreatedBy,
	}
}

func (uc *RegisterMovementUseCase) createLayer(
	ctx context.Context,
	layerRepo repository.StockLayerRepository,
	move *entity.StockMove,
	qty, unitCost decimal.Decimal,
) (*entity.StockLayer, error) {
	layer := &entity.StockLayer{
		ItemID:       move.ItemID,
		WarehouseID:  move.WarehouseID,
		OriginalQty:  qty,
		RemainingQty: qty,
		UnitCost:     unitCost,
		SourceMoveID: move.ID,
		CreatedAt:    move.CreatedAt,
	}
	if err := layerRepo.Create(ctx, layer); err != nil {
		return nil, err
	}
	return layer, nil
}

// applyOutbound verifica stock, consume capas FIFO y escribe la salida al costo ponderado.
func (uc *RegisterMovementUseCase) applyOutbound(
	ctx context.Context,
	moveRepo repository.StockMoveRepository,
	layerRepo repository.StockLayerRepository,
	req MovementRequest,
) (*MovementResult, error) {
	onHand, err := moveRepo.SumQuantity(ctx, req.ItemID, req.WarehouseID, nil)
	if err != nil {
		return nil, err
	}
	if onHand.Sub(req.Quantity).LessThan(inventory.Epsilon.Neg()) {
		return nil, &domain.InsufficientStockError{
			ItemID:      req.ItemID,
			WarehouseID: req.WarehouseID,
			Requested:   req.Quantity,
			Available:   onHand,
		}
	}

	layers, err := layerRepo.ListOpen(ctx, req.ItemID, req.WarehouseID, true)
	if err != nil {
		return nil, err
	}
	consumption, err := inventory.ConsumeFIFO(layers, req.Quantity)
	if err != nil {
		return nil, err
	}

	move := uc.newMove(req, req.Quantity.Neg(), consumption.WeightedUnitCost, consumption.TotalCost.Neg())
	if err := moveRepo.Create(ctx, move); err != nil {
		return nil, err
	}

	remaining := make(map[string]decimal.Decimal, len(layers))
	for _, l := range layers {
		remaining[l.ID] = l.RemainingQty
	}
	consumptions := make([]entity.LayerConsumption, 0, len(consumption.Takes))
	for _, t := range consumption.Takes {
		if err := layerRepo.UpdateRemaining(ctx, t.LayerID, remaining[t.LayerID]); err != nil {
			return nil, err
		}
		consumptions = append(consumptions, entity.LayerConsumption{
			MoveID:   move.ID,
			LayerID:  t.LayerID,
			Quantity: t.Quantity,
			UnitCost: t.UnitCost,
		})
	}
	if err := layerRepo.RecordConsumptions(ctx, consumptions); err != nil {
		return nil, err
	}
	return &MovementResult{Move: move, Consumptions: consumptions}, nil
}

func (uc *RegisterMovementUseCase) logRejected(req MovementRequest, err error) {
	uc.log.Warn().
		Err(err).
		Str("item_id", req.ItemID).
		Str("warehouse_id", req.WarehouseID).
		Str("kind", req.Kind).
		Str("qty", req.Quantity.String()).
		Msg("movimiento rechazado")
}
