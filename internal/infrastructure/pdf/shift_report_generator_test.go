package pdf

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terencio/fiscal-core/internal/application/dto"
	"github.com/terencio/fiscal-core/internal/domain/entity"
)

func TestFormatMoney(t *testing.T) {
	cases := map[string]string{
		"0":        "0,00 €",
		"4.5":      "4,50 €",
		"135.50":   "135,50 €",
		"1234.5":   "1.234,50 €",
		"-25.5":    "-25,50 €",
		"1000000":  "1.000.000,00 €",
		"-0.001":   "0,00 €",
		"999.999":  "1.000,00 €",
		"-1234.56": "-1.234,56 €",
	}
	for in, want := range cases {
		assert.Equal(t, want, formatMoney(decimal.RequireFromString(in)), in)
	}
}

func TestGenerateShiftReport(t *testing.T) {
	closed := time.Date(2024, 3, 1, 22, 0, 0, 0, time.UTC)
	report := &dto.ShiftReportResponse{
		Shift: dto.ShiftResponse{
			ID:               "0f8fad5b-d9cb-469f-a165-70867728950e",
			UserID:           "cajero-1",
			DeviceID:         "TPV-01",
			Status:           entity.ShiftStatusClosed,
			StartingCash:     decimal.RequireFromString("100.00"),
			ExpectedCash:     decimal.RequireFromString("135.50"),
			CountedCash:      decimal.RequireFromString("140.00"),
			Discrepancy:      decimal.RequireFromString("4.50"),
			DiscrepancyLevel: entity.DiscrepancyWarning,
			OpenedAt:         time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC),
			ClosedAt:         &closed,
		},
		TotalsByMethod: map[string]decimal.Decimal{
			entity.PaymentMethodCash: decimal.RequireFromString("35.50"),
			entity.PaymentMethodCard: decimal.RequireFromString("40.00"),
		},
		SalesIssued: 3,
		GrossSales:  decimal.RequireFromString("75.50"),
		NetSales:    decimal.RequireFromString("75.50"),
		IssuerName:  "Bar Terencio SL",
		IssuerTaxID: "B12345674",
		GeneratedAt: closed,
	}

	b, err := NewMarotoShiftReportGenerator(nil).GenerateShiftReport(context.Background(), report)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(b, []byte("%PDF-")), "debe ser un PDF")

	_, err = NewMarotoShiftReportGenerator(nil).GenerateShiftReport(context.Background(), nil)
	require.Error(t, err)
}

func TestGenerateShiftReport_TurnoAbiertoSinCobros(t *testing.T) {
	report := &dto.ShiftReportResponse{
		Shift: dto.ShiftResponse{
			ID: "abierto", UserID: "u1", DeviceID: "TPV-02", Status: entity.ShiftStatusOpen,
			OpenedAt: time.Now().UTC(),
		},
		TotalsByMethod: map[string]decimal.Decimal{},
		GeneratedAt:    time.Now().UTC(),
	}
	madrid, err := time.LoadLocation("Europe/Madrid")
	if err != nil {
		madrid = time.UTC
	}
	b, err := NewMarotoShiftReportGenerator(madrid).GenerateShiftReport(context.Background(), report)
	require.NoError(t, err)
	assert.NotEmpty(t, b)
}
