package http_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terencio/fiscal-core/internal/application/dto"
	"github.com/terencio/fiscal-core/internal/application/fiscal"
	"github.com/terencio/fiscal-core/internal/application/sales"
	"github.com/terencio/fiscal-core/internal/application/sequence"
	"github.com/terencio/fiscal-core/internal/application/shift"
	"github.com/terencio/fiscal-core/internal/application/txretry"
	"github.com/terencio/fiscal-core/internal/infrastructure/sqlite"
	"github.com/terencio/fiscal-core/internal/infrastructure/xmlexport"
	apphttp "github.com/terencio/fiscal-core/internal/interfaces/http"
)

// newAPI monta el router completo sobre un SQLite temporal.
func newAPI(t *testing.T) *fiber.App {
	t.Helper()
	st, err := sqlite.Open(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	repos := st.Repositories()
	log := zerolog.Nop()
	ledger, err := fiscal.NewLedger(repos.Chain, nil, xmlexport.NewRenderer("Bar Pepe SL"), fiscal.Config{IssuerTaxID: "B12345674"}, log)
	require.NoError(t, err)
	retry := txretry.Policy{MaxRetries: 2, Backoff: time.Millisecond}
	salesSvc := sales.NewService(st.TxRunner(), repos.Sales, repos.Shifts, sequence.NewAllocator(repos.Sequences), ledger, sales.Config{Retry: retry}, log)
	shiftSvc := shift.NewService(st.TxRunner(), repos.Shifts, repos.Sales, nil, shift.Config{Retry: retry}, log)

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{Sales: salesSvc, Shifts: shiftSvc, Ledger: ledger, JWTSecret: testJWTSecret})
	return app
}

func call(t *testing.T, app *fiber.App, method, path, role string, body any) (int, []byte) {
	t.Helper()
	return callAs(t, app, method, path, testUserID, role, body)
}

func callAs(t *testing.T, app *fiber.App, method, path, userID, role string, body any) (int, []byte) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Authorization", tokenFor(t, userID, role))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func decode[T any](t *testing.T, b []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(b, &v), string(b))
	return v
}

func saleBody(shiftID string) map[string]any {
	return map[string]any{
		"series":       "F1",
		"shift_id":     shiftID,
		"total_net":    "10.00",
		"total_tax":    "2.10",
		"total_amount": "12.10",
		"lines": []map[string]any{
			{"product_id": "P-1", "product_name": "Menú", "quantity": "1", "unit_price": "10.00", "tax_rate": "21", "tax_amount": "2.10", "total_line": "12.10"},
		},
		"payments": []map[string]any{{"method": "CASH", "amount": "12.10"}},
	}
}

func TestAPI_FlujoCompletoDeCaja(t *testing.T) {
	app := newAPI(t)
	cashier := apphttp.RoleCashier

	status, b := call(t, app, http.MethodPost, "/api/shifts", cashier, map[string]any{"starting_cash": "100.00"})
	require.Equal(t, http.StatusCreated, status, string(b))
	sh := decode[dto.ShiftResponse](t, b)
	assert.Equal(t, testDeviceID, sh.DeviceID, "el dispositivo sale del token")

	status, b = call(t, app, http.MethodPost, "/api/shifts", cashier, map[string]any{"starting_cash": "50"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Contains(t, string(b), "SHIFT_ALREADY_OPEN")

	status, b = call(t, app, http.MethodPost, "/api/sales", cashier, saleBody(sh.ID))
	require.Equal(t, http.StatusCreated, status, string(b))
	draft := decode[dto.SaleResponse](t, b)
	assert.Equal(t, "DRAFT", draft.Status)

	status, b = call(t, app, http.MethodPost, "/api/sales/"+draft.ID+"/finalize", cashier, nil)
	require.Equal(t, http.StatusOK, status, string(b))
	issued := decode[dto.SaleResponse](t, b)
	assert.Equal(t, "F1-00000001", issued.FullReference)
	require.Len(t, issued.FiscalRecords, 1)

	status, b = call(t, app, http.MethodPost, "/api/sales/"+draft.ID+"/finalize", cashier, nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Contains(t, string(b), "INVALID_STATE")

	status, b = call(t, app, http.MethodGet, "/api/shifts/"+sh.ID+"/sales", cashier, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]dto.SaleResponse](t, b), 1)

	status, b = call(t, app, http.MethodPost, "/api/shifts/"+sh.ID+"/close", cashier, map[string]any{"counted_cash": "112.10"})
	require.Equal(t, http.StatusOK, status, string(b))
	closed := decode[dto.ShiftResponse](t, b)
	assert.True(t, closed.ExpectedCash.Equal(decimal.RequireFromString("112.10")))
	assert.True(t, closed.Discrepancy.IsZero())

	status, _ = call(t, app, http.MethodPost, "/api/shifts/"+sh.ID+"/close", cashier, map[string]any{"counted_cash": "1"})
	assert.Equal(t, http.StatusConflict, status)

	status, b = call(t, app, http.MethodGet, "/api/shifts/"+sh.ID+"/report", cashier, nil)
	require.Equal(t, http.StatusOK, status)
	report := decode[dto.ShiftReportResponse](t, b)
	assert.Equal(t, 1, report.SalesIssued)
}

func TestAPI_ErroresDeValidacion(t *testing.T) {
	app := newAPI(t)

	status, b := call(t, app, http.MethodGet, "/api/sales/no-existe", apphttp.RoleCashier, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, string(b), "NOT_FOUND")

	status, _ = call(t, app, http.MethodGet, "/api/shifts/open", apphttp.RoleCashier, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, b = call(t, app, http.MethodPost, "/api/shifts", apphttp.RoleCashier, map[string]any{"starting_cash": "-1"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, string(b), "VALIDATION")

	req := httptest.NewRequest(http.MethodPost, "/api/shifts", strings.NewReader("{no es json"))
	req.Header.Set("Authorization", tokenForRole(t, apphttp.RoleCashier))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := saleBody("")
	body["total_net"] = "8.00"
	status, b = call(t, app, http.MethodPost, "/api/sales", apphttp.RoleCashier, body)
	require.Equal(t, http.StatusCreated, status, string(b))
	draft := decode[dto.SaleResponse](t, b)
	assert.Equal(t, "8", draft.TotalNet.String(), "la base del motor de precios no se recalcula")
	status, b = call(t, app, http.MethodPost, "/api/sales/"+draft.ID+"/finalize", apphttp.RoleCashier, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, string(b), "TOTAL_MISMATCH")
}

func TestAPI_CadenaFiscal(t *testing.T) {
	app := newAPI(t)

	status, b := call(t, app, http.MethodPost, "/api/shifts", apphttp.RoleCashier, map[string]any{"starting_cash": "0"})
	require.Equal(t, http.StatusCreated, status, string(b))
	sh := decode[dto.ShiftResponse](t, b)
	for i := 0; i < 2; i++ {
		status, b = call(t, app, http.MethodPost, "/api/sales", apphttp.RoleCashier, saleBody(sh.ID))
		require.Equal(t, http.StatusCreated, status, string(b))
		draft := decode[dto.SaleResponse](t, b)
		status, b = call(t, app, http.MethodPost, "/api/sales/"+draft.ID+"/finalize", apphttp.RoleCashier, nil)
		require.Equal(t, http.StatusOK, status, string(b))
	}

	status, b = call(t, app, http.MethodGet, "/api/fiscal/devices/"+testDeviceID+"/head", apphttp.RoleCashier, nil)
	require.Equal(t, http.StatusOK, status)
	head := decode[dto.ChainHeadResponse](t, b)
	assert.Equal(t, int64(2), head.ChainSequenceID)
	assert.False(t, head.OnHold)

	status, b = call(t, app, http.MethodGet, "/api/fiscal/devices/"+testDeviceID+"/integrity", apphttp.RoleCashier, nil)
	require.Equal(t, http.StatusOK, status)
	var integrity map[string]any
	require.NoError(t, json.Unmarshal(b, &integrity))
	assert.Equal(t, true, integrity["valid"])
	assert.EqualValues(t, 2, integrity["records_checked"])

	status, _ = call(t, app, http.MethodGet, "/api/fiscal/devices/"+testDeviceID+"/xml", apphttp.RoleCashier, nil)
	assert.Equal(t, http.StatusForbidden, status, "la exportación es solo para supervisores")

	status, b = call(t, app, http.MethodGet, "/api/fiscal/devices/"+testDeviceID+"/xml", apphttp.RoleSupervisor, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(b), `NumRegistros="2"`)
	assert.Contains(t, string(b), "F1-00000002")

	status, b = call(t, app, http.MethodGet, "/api/fiscal/devices/"+testDeviceID+"/zip", apphttp.RoleAdmin, nil)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, bytes.HasPrefix(b, []byte("PK")))
}

func TestAPI_CierreDeTurnoAjeno(t *testing.T) {
	app := newAPI(t)

	status, b := call(t, app, http.MethodPost, "/api/shifts", apphttp.RoleCashier, map[string]any{"starting_cash": "100.00"})
	require.Equal(t, http.StatusCreated, status, string(b))
	sh := decode[dto.ShiftResponse](t, b)

	status, b = callAs(t, app, http.MethodPost, "/api/shifts/"+sh.ID+"/close", "cajero-2", apphttp.RoleCashier,
		map[string]any{"counted_cash": "100.00"})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Contains(t, string(b), "FORBIDDEN")
	status, _ = callAs(t, app, http.MethodPost, "/api/shifts/"+sh.ID+"/auto-close", "cajero-2", apphttp.RoleCashier, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, b = call(t, app, http.MethodGet, "/api/shifts/open", apphttp.RoleCashier, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "OPEN", decode[dto.ShiftResponse](t, b).Status, "el turno sigue abierto")

	status, _ = callAs(t, app, http.MethodPost, "/api/shifts/no-existe/close", "cajero-2", apphttp.RoleCashier,
		map[string]any{"counted_cash": "1"})
	assert.Equal(t, http.StatusNotFound, status)

	status, b = callAs(t, app, http.MethodPost, "/api/shifts/"+sh.ID+"/auto-close", "supervisora-1", apphttp.RoleSupervisor, nil)
	require.Equal(t, http.StatusOK, status, string(b))
	closed := decode[dto.ShiftResponse](t, b)
	assert.Equal(t, "CLOSED", closed.Status)
	assert.True(t, closed.AutoClosed)
}

func TestAPI_VentasPorFecha(t *testing.T) {
	app := newAPI(t)
	for i := 0; i < 2; i++ {
		status, b := call(t, app, http.MethodPost, "/api/sales", apphttp.RoleCashier, saleBody(""))
		require.Equal(t, http.StatusCreated, status, string(b))
		draft := decode[dto.SaleResponse](t, b)
		status, b = call(t, app, http.MethodPost, "/api/sales/"+draft.ID+"/finalize", apphttp.RoleCashier, nil)
		require.Equal(t, http.StatusOK, status, string(b))
	}

	now := time.Now().UTC()
	path := "/api/sales?from=" + now.AddDate(0, 0, -1).Format(time.DateOnly) + "&to=" + now.Format(time.DateOnly) +
		"&device_id=" + testDeviceID
	status, b := call(t, app, http.MethodGet, path, apphttp.RoleSupervisor, nil)
	require.Equal(t, http.StatusOK, status, string(b))
	list := decode[[]dto.SaleResponse](t, b)
	require.Len(t, list, 2)
	assert.Equal(t, "F1-00000001", list[0].FullReference)

	status, b = call(t, app, http.MethodGet, "/api/sales?from=ayer", apphttp.RoleSupervisor, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, string(b), "VALIDATION")
}
