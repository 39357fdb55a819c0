// Package issuing contiene las precondiciones de dominio para emitir una venta.
package issuing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/terencio/fiscal-core/internal/domain"
	"github.com/terencio/fiscal-core/internal/domain/entity"
)

// ValidateForIssue comprueba que la venta en DRAFT se puede emitir tal cual.
// Los totales se comprueban, no se recalculan: el importe total debe coincidir con la suma
// de TotalLine y, si hay pagos, con la suma de los pagos.
func ValidateForIssue(sale *entity.Sale, lines []*entity.SaleLine, payments []*entity.Payment) error {
	if sale == nil {
		return fmt.Errorf("%w: venta nula", domain.ErrInvalidInput)
	}
	if sale.Status != entity.SaleStatusDraft {
		return fmt.Errorf("%w: la venta %s está en %s", domain.ErrInvalidState, sale.ID, sale.Status)
	}
	if len(lines) == 0 {
		return domain.ErrEmptySale
	}

	var errs []error
	sumLines := decimal.Zero
	for i, l := range lines {
		if !l.Quantity.IsPositive() {
			errs = append(errs, fmt.Errorf("línea %d: cantidad %s debe ser positiva", i+1, l.Quantity))
		}
		if l.UnitPrice.IsNegative() || l.TaxAmount.IsNegative() || l.DiscountAmount.IsNegative() {
			errs = append(errs, fmt.Errorf("línea %d: importes negativos", i+1))
		}
		sumLines = sumLines.Add(l.TotalLine)
	}
	if len(errs) > 0 {
		return errors.Join(append([]error{domain.ErrInvalidInput}, errs...)...)
	}

	if !sale.TotalAmount.Equal(sumLines) {
		return fmt.Errorf("%w: total %s, suma de líneas %s", domain.ErrTotalMismatch, sale.TotalAmount.StringFixed(2), sumLines.StringFixed(2))
	}
	if !sale.TotalNet.Add(sale.TotalTax).Equal(sale.TotalAmount) {
		return fmt.Errorf("%w: base %s + impuestos %s distinto de total %s", domain.ErrTotalMismatch,
			sale.TotalNet.StringFixed(2), sale.TotalTax.StringFixed(2), sale.TotalAmount.StringFixed(2))
	}
	if len(payments) > 0 {
		paid := decimal.Zero
		for _, p := range payments {
			paid = paid.Add(p.Amount)
		}
		if !paid.Equal(sale.TotalAmount) {
			return fmt.Errorf("%w: pagos %s, total %s", domain.ErrTotalMismatch, paid.StringFixed(2), sale.TotalAmount.StringFixed(2))
		}
	}
	return nil
}
