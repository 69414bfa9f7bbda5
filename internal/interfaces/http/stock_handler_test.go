package http_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-ledger/internal/application/dto"
	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/memory"
	apphttp "github.com/jhoicas/inventario-ledger/internal/interfaces/http"
	pkgjwt "github.com/jhoicas/inventario-ledger/pkg/jwt"
)

// buildStockApp arma la API completa sobre almacenamiento en memoria.
func buildStockApp(t *testing.T) *fiber.App {
	t.Helper()
	store := memory.NewStore(0)
	txRunner := memory.NewTxRunner(store)
	recipes := memory.NewRecipeRepository()
	recipes.SetRecipe("MESA", repository.MaterialRequirement{MaterialID: "MAT-1", QuantityPerUnit: 2})
	svc := inventory.NewStockService(txRunner,
		memory.NewStockRecordRepository(store), memory.NewStockTransactionRepository(store), nil, nil)
	facade := inventory.NewInventoryFacade(txRunner, svc, recipes, nil)

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{Stock: svc, Facade: facade, JWTSecret: testJWTSecret})
	return app
}

func call(t *testing.T, app *fiber.App, method, path, role string, body any) (*http.Response, []byte) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", tokenForRole(t, role))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	out := new(bytes.Buffer)
	_, err = out.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, out.Bytes()
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))
	return v
}

func TestStockAPI_FlujoCompleto(t *testing.T) {
	app := buildStockApp(t)

	resp, _ := call(t, app, http.MethodPost, "/api/stock", pkgjwt.RoleAdmin,
		dto.InitializeStockRequest{MaterialID: "MAT-1", ReorderLevel: 5})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, raw := call(t, app, http.MethodPost, "/api/stock/MAT-1/import", pkgjwt.RoleBodeguero,
		map[string]any{"quantity": 10, "unit_price": "100.00", "reference_code": "PO-1"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))
	imp := decode[dto.TransactionResponse](t, raw)
	assert.Equal(t, "IMPORT", imp.Type)
	assert.Equal(t, testUserID, imp.CreatedBy)

	resp, raw = call(t, app, http.MethodPost, "/api/orders/reserve", pkgjwt.RoleVendedor,
		dto.OrderRequest{OrderCode: "ORD-1", Items: []dto.OrderItemRequest{{ProductID: "MESA", Quantity: 2}}})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	order := decode[dto.OrderResponse](t, raw)
	assert.Equal(t, []dto.MaterialQuantityResponse{{MaterialID: "MAT-1", Quantity: 4}}, order.Materials)

	resp, raw = call(t, app, http.MethodGet, "/api/stock/MAT-1", pkgjwt.RoleVendedor, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	st := decode[dto.StockResponse](t, raw)
	assert.Equal(t, int64(10), st.Quantity)
	assert.Equal(t, int64(4), st.ReservedQuantity)
	assert.Equal(t, int64(6), st.AvailableStock)
	assert.Equal(t, "100.00", st.CostPrice.StringFixed(2))

	resp, raw = call(t, app, http.MethodGet, "/api/stock/MAT-1/history?page=1&size=10", pkgjwt.RoleBodeguero, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	hist := decode[dto.HistoryResponse](t, raw)
	assert.Equal(t, 2, hist.Total)
	assert.Equal(t, "RESERVE", hist.Items[0].Type)

	resp, raw = call(t, app, http.MethodGet, "/api/stock/MAT-1/reconcile", pkgjwt.RoleAdmin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, decode[dto.ReconcileResponse](t, raw).Balanced)
}

func TestStockAPI_StockInsuficienteEs409(t *testing.T) {
	app := buildStockApp(t)
	call(t, app, http.MethodPost, "/api/stock", pkgjwt.RoleAdmin, dto.InitializeStockRequest{MaterialID: "MAT-1"})

	resp, raw := call(t, app, http.MethodPost, "/api/stock/MAT-1/deduct", pkgjwt.RoleBodeguero,
		dto.DeductRequest{Quantity: 1, Type: "USAGE"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	e := decode[dto.ErrorResponse](t, raw)
	assert.Equal(t, "INSUFFICIENT_STOCK", e.Code)
	assert.Equal(t, "no hay stock suficiente", e.Message)

	resp, raw = call(t, app, http.MethodPost, "/api/orders/reserve", pkgjwt.RoleVendedor,
		dto.OrderRequest{OrderCode: "ORD-1", Items: []dto.OrderItemRequest{{ProductID: "MESA", Quantity: 1}}})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "INSUFFICIENT_STOCK", decode[dto.ErrorResponse](t, raw).Code)
}

func TestStockAPI_ConflictoDeVersion(t *testing.T) {
	app := buildStockApp(t)
	call(t, app, http.MethodPost, "/api/stock", pkgjwt.RoleAdmin, dto.InitializeStockRequest{MaterialID: "MAT-1"})

	resp, _ := call(t, app, http.MethodPut, "/api/stock/MAT-1/reorder-level", pkgjwt.RoleBodeguero,
		dto.ReorderLevelRequest{ReorderLevel: 10, ExpectedVersion: 0})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "1", resp.Header.Get(fiber.HeaderETag))

	resp, raw := call(t, app, http.MethodPut, "/api/stock/MAT-1/reorder-level", pkgjwt.RoleBodeguero,
		dto.ReorderLevelRequest{ReorderLevel: 12, ExpectedVersion: 0})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "VERSION_CONFLICT", decode[dto.ErrorResponse](t, raw).Code)

	resp, raw = call(t, app, http.MethodGet, "/api/stock/low", pkgjwt.RoleAdmin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	low := decode[[]dto.StockResponse](t, raw)
	require.Len(t, low, 1)
	assert.True(t, low[0].LowStock)
}

func TestStockAPI_ErroresDeEntrada(t *testing.T) {
	app := buildStockApp(t)

	resp, raw := call(t, app, http.MethodGet, "/api/stock/NOPE", pkgjwt.RoleAdmin, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", decode[dto.ErrorResponse](t, raw).Code)

	call(t, app, http.MethodPost, "/api/stock", pkgjwt.RoleAdmin, dto.InitializeStockRequest{MaterialID: "MAT-1"})
	resp, raw = call(t, app, http.MethodPost, "/api/stock", pkgjwt.RoleAdmin, dto.InitializeStockRequest{MaterialID: "MAT-1"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "DUPLICATE", decode[dto.ErrorResponse](t, raw).Code)

	resp, raw = call(t, app, http.MethodPost, "/api/stock/MAT-1/adjust", pkgjwt.RoleAdmin, dto.AdjustRequest{Delta: 0})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_QUANTITY", decode[dto.ErrorResponse](t, raw).Code)
}

func TestStockAPI_PermisosPorRol(t *testing.T) {
	app := buildStockApp(t)

	resp, _ := call(t, app, http.MethodPost, "/api/stock", pkgjwt.RoleVendedor, dto.InitializeStockRequest{MaterialID: "MAT-1"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = call(t, app, http.MethodPost, "/api/stock/MAT-1/import", pkgjwt.RoleVendedor,
		map[string]any{"quantity": 1, "unit_price": "1"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = call(t, app, http.MethodPost, "/api/orders/release", pkgjwt.RoleBodeguero,
		dto.OrderRequest{OrderCode: "ORD-1", Items: []dto.OrderItemRequest{{ProductID: "MESA", Quantity: 1}}})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestStockAPI_LiberarReportaFallas(t *testing.T) {
	app := buildStockApp(t)
	call(t, app, http.MethodPost, "/api/stock", pkgjwt.RoleAdmin, dto.InitializeStockRequest{MaterialID: "MAT-1"})

	resp, raw := call(t, app, http.MethodPost, "/api/orders/release", pkgjwt.RoleVendedor,
		dto.OrderRequest{OrderCode: "ORD-1", Items: []dto.OrderItemRequest{{ProductID: "MESA", Quantity: 1}}, Reason: "cancelado"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	rel := decode[dto.ReleaseResponse](t, raw)
	assert.Empty(t, rel.Released)
	require.Len(t, rel.Failures, 1)
	assert.Equal(t, "MAT-1", rel.Failures[0].MaterialID)
}
