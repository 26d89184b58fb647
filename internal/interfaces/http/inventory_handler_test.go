package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventory-ledger/internal/application/dto"
	"github.com/jhoicas/inventory-ledger/internal/application/inventory"
	"github.com/jhoicas/inventory-ledger/internal/application/usecase"
	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
	"github.com/jhoicas/inventory-ledger/internal/infrastructure/memory"
	apphttp "github.com/jhoicas/inventory-ledger/internal/interfaces/http"
)

type testServer struct {
	app     *fiber.App
	store   *memory.Store
	product string
	service string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()

	product := &entity.Item{SKU: "A", Name: "Producto A", Type: entity.ItemTypeProduct, Active: true}
	require.NoError(t, store.Items().Upsert(ctx, product))
	service := &entity.Item{SKU: "S", Name: "Instalación", Type: entity.ItemTypeService, Active: true}
	require.NoError(t, store.Items().Upsert(ctx, service))

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		WarehouseUC:      usecase.NewWarehouseUseCase(store.Warehouses()),
		RegisterMovement: inventory.NewRegisterMovementUseCase(store, store.Items(), store.Warehouses(), nil, nil),
		Valuation:        inventory.NewValuationUseCase(store.Moves(), store.Layers(), nil, nil),
		JWTSecret:        testJWTSecret,
	})
	return &testServer{app: app, store: store, product: product.ID, service: service.ID}
}

func (s *testServer) do(t *testing.T, method, path, role string, body any) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", tokenForRole(t, role))
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func (s *testServer) createWarehouse(t *testing.T, name string) string {
	t.Helper()
	resp := s.do(t, http.MethodPost, "/api/warehouses", "admin", dto.CreateWarehouseRequest{Name: name})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[dto.WarehouseResponse](t, resp).ID
}

func TestInventoryAPI_FIFOFlowAndKardex(t *testing.T) {
	s := newTestServer(t)
	w1 := s.createWarehouse(t, "W1")

	purchase := func(qty, cost int64) *http.Response {
		c := decimal.NewFromInt(cost)
		return s.do(t, http.MethodPost, "/api/inventory/movements", "bodeguero", dto.RegisterMovementRequest{
			ItemID: s.product, WarehouseID: w1, Type: entity.MoveKindPurchase,
			Quantity: decimal.NewFromInt(qty), UnitCost: &c,
		})
	}
	resp := purchase(10, 100)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	first := decode[dto.MovementResponse](t, resp)
	require.Len(t, first.Layers, 1)
	assert.True(t, first.Layers[0].RemainingQty.Equal(decimal.NewFromInt(10)))

	require.Equal(t, http.StatusCreated, purchase(5, 120).StatusCode)

	resp = s.do(t, http.MethodPost, "/api/inventory/movements", "bodeguero", dto.RegisterMovementRequest{
		ItemID: s.product, WarehouseID: w1, Type: entity.MoveKindSale, Quantity: decimal.NewFromInt(12),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	sale := decode[dto.MovementResponse](t, resp)
	assert.True(t, sale.Move.Quantity.Equal(decimal.NewFromInt(-12)))
	assert.Equal(t, "103.33", sale.Move.UnitCost.StringFixed(2))
	assert.True(t, sale.Move.TotalCost.Equal(decimal.NewFromInt(-1240)))
	assert.Len(t, sale.Consumptions, 2)

	// Sobreventa: 409 con detalle y nada escrito.
	resp = s.do(t, http.MethodPost, "/api/inventory/movements", "bodeguero", dto.RegisterMovementRequest{
		ItemID: s.product, WarehouseID: w1, Type: entity.MoveKindSale, Quantity: decimal.NewFromInt(10),
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	errBody := decode[dto.ErrorResponse](t, resp)
	assert.Equal(t, "INSUFFICIENT_STOCK", errBody.Code)
	assert.Equal(t, "3", errBody.Details["available"])

	resp = s.do(t, http.MethodGet, "/api/inventory/stock?item_id="+s.product+"&warehouse_id="+w1, "vendedor", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, decode[dto.StockResponse](t, resp).Qty.Equal(decimal.NewFromInt(3)))

	resp = s.do(t, http.MethodGet, "/api/inventory/layers?item_id="+s.product+"&warehouse_id="+w1, "vendedor", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	layers := decode[[]dto.StockLayerResponse](t, resp)
	require.Len(t, layers, 1)
	assert.True(t, layers[0].RemainingQty.Equal(decimal.NewFromInt(3)))
	assert.True(t, layers[0].UnitCost.Equal(decimal.NewFromInt(120)))

	resp = s.do(t, http.MethodGet, "/api/inventory/kardex?item_id="+s.product+"&warehouse_id="+w1, "vendedor", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	k := decode[dto.KardexResponse](t, resp)
	require.Len(t, k.Rows, 3)
	for i, want := range []int64{10, 15, 3} {
		assert.True(t, k.Rows[i].BalanceQty.Equal(decimal.NewFromInt(want)), "fila %d", i)
	}
	for i, want := range []int64{1000, 1600, 360} {
		assert.True(t, k.Rows[i].BalanceValue.Equal(decimal.NewFromInt(want)), "fila %d", i)
	}
	assert.True(t, k.Ending.AvgCost.Equal(decimal.NewFromInt(120)))

	resp = s.do(t, http.MethodGet, "/api/inventory/movements?item_id="+s.product+"&take=2", "vendedor", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page := decode[dto.MoveListResponse](t, resp)
	require.Len(t, page.Items, 2)
	assert.Equal(t, entity.MoveKindSale, page.Items[0].Type)
}

func TestInventoryAPI_Errors(t *testing.T) {
	s := newTestServer(t)
	w1 := s.createWarehouse(t, "W1")
	cost := decimal.NewFromInt(10)

	t.Run("vendedor no escribe", func(t *testing.T) {
		resp := s.do(t, http.MethodPost, "/api/inventory/movements", "vendedor", dto.RegisterMovementRequest{
			ItemID: s.product, WarehouseID: w1, Type: entity.MoveKindPurchase, Quantity: decimal.NewFromInt(1), UnitCost: &cost,
		})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("ítem de servicio", func(t *testing.T) {
		resp := s.do(t, http.MethodPost, "/api/inventory/movements", "admin", dto.RegisterMovementRequest{
			ItemID: s.service, WarehouseID: w1, Type: entity.MoveKindPurchase, Quantity: decimal.NewFromInt(1), UnitCost: &cost,
		})
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		assert.Equal(t, "INVALID_STATE", decode[dto.ErrorResponse](t, resp).Code)
	})

	t.Run("ítem de servicio sin costo", func(t *testing.T) {
		resp := s.do(t, http.MethodPost, "/api/inventory/movements", "admin", dto.RegisterMovementRequest{
			ItemID: s.service, WarehouseID: w1, Type: entity.MoveKindPurchase, Quantity: decimal.NewFromInt(1),
		})
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		assert.Equal(t, "INVALID_STATE", decode[dto.ErrorResponse](t, resp).Code)
	})

	t.Run("cantidad con siete decimales", func(t *testing.T) {
		resp := s.do(t, http.MethodPost, "/api/inventory/movements", "admin", dto.RegisterMovementRequest{
			ItemID: s.product, WarehouseID: w1, Type: entity.MoveKindPurchase, Quantity: decimal.RequireFromString("0.0000001"), UnitCost: &cost,
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "VALIDATION", decode[dto.ErrorResponse](t, resp).Code)
	})

	t.Run("compra sin costo", func(t *testing.T) {
		resp := s.do(t, http.MethodPost, "/api/inventory/movements", "admin", dto.RegisterMovementRequest{
			ItemID: s.product, WarehouseID: w1, Type: entity.MoveKindPurchase, Quantity: decimal.NewFromInt(1),
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "VALIDATION", decode[dto.ErrorResponse](t, resp).Code)
	})

	t.Run("tipo desconocido", func(t *testing.T) {
		resp := s.do(t, http.MethodPost, "/api/inventory/movements", "admin", map[string]any{
			"item_id": s.product, "warehouse_id": w1, "type": "GIFT", "quantity": 1,
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "VALIDATION", decode[dto.ErrorResponse](t, resp).Code)
	})

	t.Run("bodega inexistente", func(t *testing.T) {
		resp := s.do(t, http.MethodPost, "/api/inventory/movements", "admin", dto.RegisterMovementRequest{
			ItemID: s.product, WarehouseID: "nope", Type: entity.MoveKindPurchase, Quantity: decimal.NewFromInt(1), UnitCost: &cost,
		})
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "NOT_FOUND", decode[dto.ErrorResponse](t, resp).Code)
	})

	t.Run("bodega duplicada", func(t *testing.T) {
		resp := s.do(t, http.MethodPost, "/api/warehouses", "admin", dto.CreateWarehouseRequest{Name: " W1 "})
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.Equal(t, "CONFLICT", decode[dto.ErrorResponse](t, resp).Code)
	})

	t.Run("fecha de kardex inválida", func(t *testing.T) {
		resp := s.do(t, http.MethodGet, "/api/inventory/kardex?item_id="+s.product+"&warehouse_id="+w1+"&from=ayer", "admin", nil)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("body malformado", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/inventory/movements", bytes.NewBufferString("{"))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", tokenForRole(t, "admin"))
		resp, err := s.app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_BODY", decode[dto.ErrorResponse](t, resp).Code)
	})
}

type stockSummaryBody struct {
	ItemID     string                       `json:"item_id"`
	Warehouses []dto.WarehouseStockResponse `json:"warehouses"`
}

func TestInventoryAPI_TransferAndSummary(t *testing.T) {
	s := newTestServer(t)
	w1 := s.createWarehouse(t, "Central")
	w2 := s.createWarehouse(t, "Norte")
	cost := decimal.NewFromInt(50)

	resp := s.do(t, http.MethodPost, "/api/inventory/movements", "admin", dto.RegisterMovementRequest{
		ItemID: s.product, WarehouseID: w1, Type: entity.MoveKindPurchase, Quantity: decimal.NewFromInt(8), UnitCost: &cost,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = s.do(t, http.MethodPost, "/api/inventory/transfers", "bodeguero", dto.TransferRequest{
		ItemID: s.product, FromWarehouseID: w1, ToWarehouseID: w2, Quantity: decimal.NewFromInt(3),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	tr := decode[dto.TransferResponse](t, resp)
	assert.Equal(t, entity.MoveKindTransferOut, tr.Out.Type)
	assert.Equal(t, entity.MoveKindTransferIn, tr.In.Type)
	assert.True(t, tr.In.UnitCost.Equal(cost))
	assert.Equal(t, tr.Out.RefID, tr.In.RefID)

	resp = s.do(t, http.MethodGet, "/api/inventory/stock/"+s.product+"/summary", "vendedor", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	summary := decode[stockSummaryBody](t, resp)
	assert.Equal(t, s.product, summary.ItemID)
	require.Len(t, summary.Warehouses, 2)
	byWh := map[string]decimal.Decimal{}
	for _, w := range summary.Warehouses {
		byWh[w.WarehouseID] = w.Qty
	}
	assert.True(t, byWh[w1].Equal(decimal.NewFromInt(5)))
	assert.True(t, byWh[w2].Equal(decimal.NewFromInt(3)))

	resp = s.do(t, http.MethodPost, "/api/inventory/transfers", "bodeguero", dto.TransferRequest{
		ItemID: s.product, FromWarehouseID: w1, ToWarehouseID: w1, Quantity: decimal.NewFromInt(1),
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestWarehouseAPI_ListAndGet(t *testing.T) {
	s := newTestServer(t)
	id := s.createWarehouse(t, "Bodega B")
	s.createWarehouse(t, "Bodega A")

	resp := s.do(t, http.MethodGet, "/api/warehouses/"+id, "vendedor", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[dto.WarehouseResponse](t, resp)
	assert.Equal(t, "Bodega B", got.Name)
	assert.True(t, got.Active)

	resp = s.do(t, http.MethodGet, "/api/warehouses?limit=10", "vendedor", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[dto.WarehouseListResponse](t, resp)
	require.Len(t, list.Items, 2)
	assert.Equal(t, "Bodega A", list.Items[0].Name)

	resp = s.do(t, http.MethodGet, "/api/warehouses/desconocida", "vendedor", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
