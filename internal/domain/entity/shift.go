package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de turno de caja.
const (
	ShiftStatusOpen   = "OPEN"
	ShiftStatusClosed = "CLOSED"
)

// Niveles de descuadre al cerrar.
const (
	DiscrepancyNormal   = "normal"
	DiscrepancyWarning  = "warning"
	DiscrepancyCritical = "critical"
)

// Shift turno de caja de un usuario en un dispositivo.
// Al cerrarse queda congelado: los cierres posteriores se rechazan.
type Shift struct {
	ID               string
	UserID           string
	DeviceID         string
	Status           string
	StartingCash     decimal.Decimal
	ExpectedCash     decimal.Decimal // fondo inicial + pagos en efectivo de ventas emitidas
	CountedCash      decimal.Decimal
	Discrepancy      decimal.Decimal // contado - esperado
	DiscrepancyLevel string
	Notes            string
	AutoClosed       bool
	OpenedAt         time.Time
	ClosedAt         *time.Time
}

// IsOpen indica si el turno admite ventas.
func (s *Shift) IsOpen() bool {
	return s.Status == ShiftStatusOpen
}
