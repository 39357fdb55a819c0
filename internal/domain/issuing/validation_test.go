package issuing_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/terencio/fiscal-core/internal/domain"
	"github.com/terencio/fiscal-core/internal/domain/entity"
	"github.com/terencio/fiscal-core/internal/domain/issuing"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func draft() (*entity.Sale, []*entity.SaleLine, []*entity.Payment) {
	sale := &entity.Sale{
		ID: "s1", Status: entity.SaleStatusDraft,
		TotalNet: d("29.34"), TotalTax: d("6.16"), TotalAmount: d("35.50"),
	}
	lines := []*entity.SaleLine{
		{Quantity: d("2"), UnitPrice: d("10"), TaxRate: d("21"), TaxAmount: d("4.20"), TotalLine: d("24.20")},
		{Quantity: d("1"), UnitPrice: d("9.34"), TaxRate: d("21"), TaxAmount: d("1.96"), TotalLine: d("11.30")},
	}
	payments := []*entity.Payment{
		{Method: entity.PaymentMethodCash, Amount: d("20")},
		{Method: entity.PaymentMethodCard, Amount: d("15.50")},
	}
	return sale, lines, payments
}

func TestValidateForIssue_OK(t *testing.T) {
	sale, lines, payments := draft()
	assert.NoError(t, issuing.ValidateForIssue(sale, lines, payments))
	assert.NoError(t, issuing.ValidateForIssue(sale, lines, nil), "sin pagos también se puede emitir")
}

func TestValidateForIssue_Errors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*entity.Sale, *[]*entity.SaleLine, *[]*entity.Payment)
		want   error
	}{
		{"sin líneas", func(_ *entity.Sale, l *[]*entity.SaleLine, _ *[]*entity.Payment) { *l = nil }, domain.ErrEmptySale},
		{"total distinto", func(s *entity.Sale, _ *[]*entity.SaleLine, _ *[]*entity.Payment) {
			s.TotalAmount = d("36.00")
		}, domain.ErrTotalMismatch},
		{"base más impuesto", func(s *entity.Sale, _ *[]*entity.SaleLine, _ *[]*entity.Payment) {
			s.TotalTax = d("6.00")
		}, domain.ErrTotalMismatch},
		{"pagos no cuadran", func(_ *entity.Sale, _ *[]*entity.SaleLine, p *[]*entity.Payment) {
			(*p)[0].Amount = d("19.99")
		}, domain.ErrTotalMismatch},
		{"cantidad cero", func(_ *entity.Sale, l *[]*entity.SaleLine, _ *[]*entity.Payment) {
			(*l)[0].Quantity = decimal.Zero
		}, domain.ErrInvalidInput},
		{"ya emitida", func(s *entity.Sale, _ *[]*entity.SaleLine, _ *[]*entity.Payment) {
			s.Status = entity.SaleStatusCompleted
		}, domain.ErrInvalidState},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sale, lines, payments := draft()
			tc.mutate(sale, &lines, &payments)
			assert.ErrorIs(t, issuing.ValidateForIssue(sale, lines, payments), tc.want)
		})
	}
}
