package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/terencio/fiscal-core/internal/domain/entity"
)

// SaleRepository persistencia de ventas, líneas y pagos.
type SaleRepository interface {
	Create(ctx context.Context, sale *entity.Sale) error
	CreateLine(ctx context.Context, line *entity.SaleLine) error
	CreatePayment(ctx context.Context, p *entity.Payment) error
	GetByID(ctx context.Context, id string) (*entity.Sale, error)
	// GetForUpdate bloquea la fila hasta el fin de la transacción.
	GetForUpdate(ctx context.Context, id string) (*entity.Sale, error)
	GetLines(ctx context.Context, saleID string) ([]*entity.SaleLine, error)
	GetPayments(ctx context.Context, saleID string) ([]*entity.Payment, error)
	// MarkIssued pasa la venta de DRAFT a COMPLETED con número, referencia y fecha de emisión.
	// Devuelve domain.ErrInvalidState si la venta ya no estaba en DRAFT.
	MarkIssued(ctx context.Context, sale *entity.Sale) error
	// AttachSuccessor enlaza la venta sucesora y cambia el estado de la original (solo desde COMPLETED).
	AttachSuccessor(ctx context.Context, originalID, successorID, status string, at time.Time) error
	ListByShift(ctx context.Context, shiftID string) ([]*entity.Sale, error)
	// ListIssuedBetween ventas emitidas con issued_at en [from, to), por fecha de emisión.
	// deviceID vacío devuelve todos los dispositivos.
	ListIssuedBetween(ctx context.Context, deviceID string, from, to time.Time) ([]*entity.Sale, error)
	// SumPaymentsByShift suma por método los pagos de las ventas emitidas del turno.
	SumPaymentsByShift(ctx context.Context, shiftID string) (map[string]decimal.Decimal, error)
}
