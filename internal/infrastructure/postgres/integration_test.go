package postgres_test

import (
	"context"
	"errors"
	"os"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
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
	"github.com/terencio/fiscal-core/internal/domain"
	"github.com/terencio/fiscal-core/internal/infrastructure/postgres"
	"github.com/terencio/fiscal-core/pkg/config"
)

// newPool conecta a TEST_DATABASE_URL; sin ella el test se omite.
func newPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL no definida")
	}
	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, config.DBConfig{DatabaseURL: url})
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, postgres.Migrate(ctx, pool))
	require.NoError(t, postgres.Migrate(ctx, pool), "las migraciones son idempotentes")
	return pool
}

type services struct {
	sales  *sales.Service
	shifts *shift.Service
	ledger *fiscal.Ledger
}

func newServices(t *testing.T, pool *pgxpool.Pool) services {
	t.Helper()
	repos := postgres.NewRepositories(pool)
	runner := postgres.NewTxRunner(pool)
	log := zerolog.Nop()
	ledger, err := fiscal.NewLedger(repos.Chain, nil, nil, fiscal.Config{IssuerTaxID: "B12345674"}, log)
	require.NoError(t, err)
	retry := txretry.Policy{MaxRetries: 5, Backoff: 5 * time.Millisecond}
	return services{
		sales:  sales.NewService(runner, repos.Sales, repos.Shifts, sequence.NewAllocator(repos.Sequences), ledger, sales.Config{RectifySuffix: "R", Retry: retry}, log),
		shifts: shift.NewService(runner, repos.Shifts, repos.Sales, nil, shift.Config{Retry: retry}, log),
		ledger: ledger,
	}
}

func saleRequest(device, user, shiftID string) dto.CreateSaleRequest {
	total := decimal.RequireFromString("12.10")
	return dto.CreateSaleRequest{
		Series: "F1", DeviceID: device, UserID: user, ShiftID: shiftID,
		TotalNet: decimal.NewFromInt(10), TotalTax: decimal.RequireFromString("2.10"), TotalAmount: total,
		Lines: []dto.SaleLineRequest{{
			ProductID: "P-1", ProductName: "Menú", Quantity: decimal.NewFromInt(1),
			UnitPrice: decimal.NewFromInt(10), TaxRate: decimal.NewFromInt(21),
			TaxAmount: decimal.RequireFromString("2.10"), TotalLine: total,
		}},
		Payments: []dto.SalePaymentRequest{{Method: "CASH", Amount: total}},
	}
}

func TestPostgres_EmisionConcurrenteYCuadre(t *testing.T) {
	pool := newPool(t)
	svc := newServices(t, pool)
	ctx := context.Background()
	device := "TPV-" + uuid.NewString()[:8]
	user := "cajero-" + uuid.NewString()[:8]

	sh, err := svc.shifts.Start(ctx, dto.StartShiftRequest{UserID: user, DeviceID: device, StartingCash: decimal.NewFromInt(100)})
	require.NoError(t, err)
	_, err = svc.shifts.Start(ctx, dto.StartShiftRequest{UserID: user, DeviceID: device})
	assert.True(t, errors.Is(err, domain.ErrShiftAlreadyOpen))

	const n = 8
	drafts := make([]string, n)
	for i := range drafts {
		d, err := svc.sales.CreateDraft(ctx, saleRequest(device, user, sh.ID))
		require.NoError(t, err)
		drafts[i] = d.ID
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		numbers []int64
	)
	for _, id := range drafts {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			out, err := svc.sales.Finalize(ctx, id)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			numbers = append(numbers, out.Number)
			mu.Unlock()
		}(id)
	}
	wg.Wait()

	sort.Slice(numbers, func(i, j int) bool { return numbers[i] < numbers[j] })
	require.Len(t, numbers, n)
	for i, num := range numbers {
		assert.Equal(t, int64(i+1), num, "números sin huecos ni duplicados")
	}

	report, err := svc.ledger.ValidateChainIntegrity(ctx, device)
	require.NoError(t, err)
	assert.True(t, report.Valid)
	assert.Equal(t, n, report.RecordsChecked)

	_, err = svc.sales.VoidOrRectify(ctx, drafts[0], dto.VoidSaleRequest{Reason: "error de cobro", Mode: dto.CorrectionVoid, UserID: user})
	require.NoError(t, err)

	closed, err := svc.shifts.Close(ctx, sh.ID, dto.CloseShiftRequest{CountedCash: decimal.RequireFromString("184.70")})
	require.NoError(t, err)
	// 100 + 8 x 12.10 - 12.10 = 184.70
	assert.True(t, closed.ExpectedCash.Equal(decimal.RequireFromString("184.70")), closed.ExpectedCash.String())
	assert.True(t, closed.Discrepancy.IsZero())
}

func TestPostgres_RegistrosFiscalesSoloInsercion(t *testing.T) {
	pool := newPool(t)
	ctx := context.Background()

	_, err := pool.Exec(ctx, `UPDATE fiscal_records SET amount = 0 WHERE FALSE`)
	require.NoError(t, err, "el trigger es por fila: un UPDATE sin filas no falla")

	svc := newServices(t, pool)
	device := "TPV-" + uuid.NewString()[:8]
	user := "cajero-" + uuid.NewString()[:8]
	sh, err := svc.shifts.Start(ctx, dto.StartShiftRequest{UserID: user, DeviceID: device})
	require.NoError(t, err)
	d, err := svc.sales.CreateDraft(ctx, saleRequest(device, user, sh.ID))
	require.NoError(t, err)
	_, err = svc.sales.Finalize(ctx, d.ID)
	require.NoError(t, err)

	_, err = pool.Exec(ctx, `UPDATE fiscal_records SET amount = 0 WHERE device_id = $1`, device)
	assert.Error(t, err)
	_, err = pool.Exec(ctx, `DELETE FROM fiscal_records WHERE device_id = $1`, device)
	assert.Error(t, err)
}
