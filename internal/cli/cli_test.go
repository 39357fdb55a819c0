package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terencio/fiscal-core/internal/application/dto"
	"github.com/terencio/fiscal-core/internal/bootstrap"
	"github.com/terencio/fiscal-core/internal/cli"
	"github.com/terencio/fiscal-core/pkg/config"
)

const device = "TPV-01"

// newBuild devuelve un BuildFunc sobre un mismo archivo SQLite y el ID del turno con dos ventas emitidas.
func newBuild(t *testing.T) (cli.BuildFunc, string) {
	t.Helper()
	cfg := &config.Config{
		DB: config.DBConfig{Driver: config.DriverSQLite, SQLitePath: filepath.Join(t.TempDir(), "cli.db")},
		Fiscal: config.FiscalConfig{
			IssuerTaxID:   "B12345674",
			IssuerName:    "Bar Pepe SL",
			MaxRetries:    1,
			RectifySuffix: "R",
			Timezone:      "UTC",
		},
	}
	build := func(ctx context.Context) (*bootstrap.App, error) {
		return bootstrap.Build(ctx, cfg, zerolog.Nop())
	}

	app, err := build(context.Background())
	require.NoError(t, err)
	defer app.Close()
	ctx := context.Background()
	sh, err := app.Shifts.Start(ctx, dto.StartShiftRequest{UserID: "u1", DeviceID: device, StartingCash: decimal.NewFromInt(100)})
	require.NoError(t, err)
	amount := decimal.RequireFromString("12.10")
	for i := 0; i < 2; i++ {
		draft, err := app.Sales.CreateDraft(ctx, dto.CreateSaleRequest{
			Series: "F1", DeviceID: device, UserID: "u1", ShiftID: sh.ID,
			TotalNet: decimal.NewFromInt(10), TotalTax: decimal.RequireFromString("2.10"), TotalAmount: amount,
			Lines: []dto.SaleLineRequest{{
				ProductID: "P-1", ProductName: "Menú", Quantity: decimal.NewFromInt(1),
				UnitPrice: decimal.NewFromInt(10), TaxRate: decimal.NewFromInt(21),
				TaxAmount: decimal.RequireFromString("2.10"), TotalLine: amount,
			}},
			Payments: []dto.SalePaymentRequest{{Method: "CASH", Amount: amount}},
		})
		require.NoError(t, err)
		_, err = app.Sales.Finalize(ctx, draft.ID)
		require.NoError(t, err)
	}
	return build, sh.ID
}

func run(t *testing.T, build cli.BuildFunc, args ...string) (string, error) {
	t.Helper()
	cmd := cli.NewRootCommand(build)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVerify_CadenaValida(t *testing.T) {
	build, _ := newBuild(t)

	out, err := run(t, build, "verify", device)
	require.NoError(t, err)
	assert.Contains(t, out, "TPV-01 OK registros=2 cabeza=2")

	out, err = run(t, build, "verify", "--all", "--format", "json")
	require.NoError(t, err)
	var reports []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &reports))
	require.Len(t, reports, 1)
	assert.Equal(t, true, reports[0]["valid"])
}

func TestVerify_Argumentos(t *testing.T) {
	build, _ := newBuild(t)

	_, err := run(t, build, "verify")
	assert.Error(t, err)
	_, err = run(t, build, "verify", "--all", device)
	assert.Error(t, err)
	_, err = run(t, build, "verify", device, "--format", "yaml")
	assert.Error(t, err)
}

func TestHead(t *testing.T) {
	build, _ := newBuild(t)

	out, err := run(t, build, "head", device, "--format", "json")
	require.NoError(t, err)
	var head dto.ChainHeadResponse
	require.NoError(t, json.Unmarshal([]byte(out), &head))
	assert.Equal(t, int64(2), head.ChainSequenceID)
	assert.False(t, head.OnHold)
}

func TestExport_AArchivo(t *testing.T) {
	build, _ := newBuild(t)
	path := filepath.Join(t.TempDir(), "cadena.xml")

	_, err := run(t, build, "export", device, "-o", path)
	require.NoError(t, err)
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), `NumRegistros="2"`)

	zipPath := filepath.Join(t.TempDir(), "cadena.zip")
	_, err = run(t, build, "export", device, "--zip", "-o", zipPath)
	require.NoError(t, err)
	b, err = os.ReadFile(zipPath)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(b, []byte("PK")), "debe ser un ZIP")

	_, err = run(t, build, "export")
	assert.Error(t, err)
}

func TestReport(t *testing.T) {
	build, shiftID := newBuild(t)

	out, err := run(t, build, "report", shiftID)
	require.NoError(t, err)
	assert.Contains(t, out, "CASH")
	assert.Contains(t, out, "24.20")
	assert.Contains(t, out, "ventas=2")

	pdfPath := filepath.Join(t.TempDir(), "z.pdf")
	_, err = run(t, build, "report", shiftID, "--pdf", pdfPath)
	require.NoError(t, err)
	b, err := os.ReadFile(pdfPath)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(b, []byte("%PDF-")))
}

func TestSales(t *testing.T) {
	build, _ := newBuild(t)
	now := time.Now().UTC()
	from := now.AddDate(0, 0, -1).Format(time.DateOnly)
	to := now.Format(time.DateOnly)

	out, err := run(t, build, "sales", "--from", from, "--to", to, device)
	require.NoError(t, err)
	assert.Contains(t, out, "F1-00000001")
	assert.Contains(t, out, "F1-00000002")
	assert.Contains(t, out, "2 ventas")

	out, err = run(t, build, "--format", "json", "sales", "--from", "2020-01-01", "--to", "2020-01-02")
	require.NoError(t, err)
	var list []dto.SaleResponse
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	assert.Empty(t, list)

	_, err = run(t, build, "sales", "--from", from)
	assert.Error(t, err)
}
