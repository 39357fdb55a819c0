// Package cash: reglas de arqueo de caja al cerrar un turno.
package cash

import (
	"github.com/shopspring/decimal"

	"github.com/terencio/fiscal-core/internal/domain/entity"
)

var (
	warningThreshold  = decimal.NewFromInt(1) // %
	criticalThreshold = decimal.NewFromInt(5) // %
	hundred           = decimal.NewFromInt(100)
)

// ExpectedCash = fondo inicial + pagos en efectivo de las ventas emitidas del turno.
func ExpectedCash(startingCash decimal.Decimal, paymentsByMethod map[string]decimal.Decimal) decimal.Decimal {
	return startingCash.Add(paymentsByMethod[entity.PaymentMethodCash])
}

// ClassifyDiscrepancy clasifica el descuadre según su peso sobre el efectivo esperado:
// hasta 1% normal, hasta 5% warning, más de 5% critical.
// Con esperado 0 cualquier descuadre distinto de cero es critical.
func ClassifyDiscrepancy(expected, discrepancy decimal.Decimal) string {
	if discrepancy.IsZero() {
		return entity.DiscrepancyNormal
	}
	if expected.IsZero() {
		return entity.DiscrepancyCritical
	}
	pct := discrepancy.Abs().Div(expected.Abs()).Mul(hundred)
	switch {
	case pct.LessThanOrEqual(warningThreshold):
		return entity.DiscrepancyNormal
	case pct.LessThanOrEqual(criticalThreshold):
		return entity.DiscrepancyWarning
	default:
		return entity.DiscrepancyCritical
	}
}
