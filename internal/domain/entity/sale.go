package entity

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Estados de una venta.
const (
	SaleStatusDraft     = "DRAFT"     // editable, sin número fiscal
	SaleStatusCompleted = "COMPLETED" // emitida: número asignado y registro ALTA en la cadena
	SaleStatusVoided    = "VOIDED"    // anulada por una venta sucesora
	SaleStatusRectified = "RECTIFIED" // rectificada por una venta sucesora
)

// Tipos de documento.
const (
	DocTypeSale          = "SALE"
	DocTypeVoid          = "VOID"
	DocTypeRectification = "RECTIFICATION"
)

// Sale cabecera de una venta. Una vez emitida sus importes no cambian;
// la anulación o rectificación crea una venta nueva enlazada por RectifiedSaleID.
type Sale struct {
	ID              string
	Series          string
	Number          int64 // 0 mientras está en DRAFT
	FullReference   string
	DocType         string
	Status          string
	DeviceID        string
	UserID          string
	ShiftID         string // vacío = sin turno
	CustomerID      string
	TotalNet        decimal.Decimal
	TotalTax        decimal.Decimal
	TotalAmount     decimal.Decimal
	RectifiedSaleID string // venta original, solo en VOID/RECTIFICATION
	SuccessorSaleID string // venta que anuló o rectificó a ésta
	Reason          string
	CreatedAt       time.Time
	IssuedAt        *time.Time // nil mientras está en DRAFT
	UpdatedAt       time.Time
}

// IsIssued indica si la venta ya tiene número fiscal.
func (s *Sale) IsIssued() bool {
	return s.IssuedAt != nil
}

// FormatReference devuelve la referencia completa "SERIE-00000001".
func FormatReference(series string, number int64) string {
	return fmt.Sprintf("%s-%08d", series, number)
}

// SaleLine línea de venta con el precio e impuesto vigentes al emitir.
type SaleLine struct {
	ID             string
	SaleID         string
	ProductID      string
	ProductName    string
	Quantity       decimal.Decimal
	UnitPrice      decimal.Decimal // sin impuestos
	TaxRate        decimal.Decimal // porcentaje, ej. 21
	TaxAmount      decimal.Decimal
	DiscountAmount decimal.Decimal
	TotalLine      decimal.Decimal // base - descuento + impuesto
}

// Métodos de pago.
const (
	PaymentMethodCash     = "CASH"
	PaymentMethodCard     = "CARD"
	PaymentMethodTransfer = "TRANSFER"
	PaymentMethodOther    = "OTHER"
)

// ValidPaymentMethod indica si el método de pago es reconocido.
func ValidPaymentMethod(m string) bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodTransfer, PaymentMethodOther:
		return true
	}
	return false
}

// Payment pago aplicado a una venta.
type Payment struct {
	ID        string
	SaleID    string
	Method    string
	Amount    decimal.Decimal
	CreatedAt time.Time
}
