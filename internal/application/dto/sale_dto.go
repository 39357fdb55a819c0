package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// Modos de corrección de una venta emitida.
const (
	CorrectionVoid    = "void"
	CorrectionRectify = "rectify"
)

// CreateSaleRequest body para POST /api/sales. Base, impuestos, total y totales de línea llegan
// ya calculados por el motor de precios; aquí solo se guardan y se comprueban al emitir.
// UserID y DeviceID se toman del token cuando no vienen en el body.
type CreateSaleRequest struct {
	Series      string               `json:"series"`
	DeviceID    string               `json:"device_id,omitempty"`
	UserID      string               `json:"-"`
	ShiftID     string               `json:"shift_id,omitempty"`
	CustomerID  string               `json:"customer_id,omitempty"`
	TotalNet    decimal.Decimal      `json:"total_net" swaggertype:"string"`
	TotalTax    decimal.Decimal      `json:"total_tax" swaggertype:"string"`
	TotalAmount decimal.Decimal      `json:"total_amount" swaggertype:"string"`
	Lines       []SaleLineRequest    `json:"lines"`
	Payments    []SalePaymentRequest `json:"payments,omitempty"`
}

// SaleLineRequest línea con precio e impuesto ya resueltos.
type SaleLineRequest struct {
	ProductID      string          `json:"product_id"`
	ProductName    string          `json:"product_name"`
	Quantity       decimal.Decimal `json:"quantity" swaggertype:"string"`
	UnitPrice      decimal.Decimal `json:"unit_price" swaggertype:"string"`
	TaxRate        decimal.Decimal `json:"tax_rate" swaggertype:"string"`
	TaxAmount      decimal.Decimal `json:"tax_amount" swaggertype:"string"`
	DiscountAmount decimal.Decimal `json:"discount_amount" swaggertype:"string"`
	TotalLine      decimal.Decimal `json:"total_line" swaggertype:"string"`
}

// SalePaymentRequest pago aplicado a la venta.
type SalePaymentRequest struct {
	Method string          `json:"method"` // CASH | CARD | TRANSFER | OTHER
	Amount decimal.Decimal `json:"amount" swaggertype:"string"`
}

// VoidSaleRequest body para POST /api/sales/:id/void.
// ShiftID: turno al que se imputa la devolución; vacío = turno de la venta original o, si ya
// está cerrado, el turno abierto del usuario.
type VoidSaleRequest struct {
	Reason  string `json:"reason"`
	Mode    string `json:"mode"` // void | rectify
	ShiftID string `json:"shift_id,omitempty"`
	UserID  string `json:"-"`
}

// SaleRangeQuery filtro de GET /api/sales: ventas emitidas entre From y To.
// Fechas YYYY-MM-DD (día completo, To incluido) o RFC3339 (To excluido).
type SaleRangeQuery struct {
	From     string `query:"from"`
	To       string `query:"to"`
	DeviceID string `query:"device_id"`
}

// SaleResponse venta con líneas, pagos y registros fiscales.
type SaleResponse struct {
	ID              string                 `json:"id"`
	Series          string                 `json:"series"`
	Number          int64                  `json:"number,omitempty"`
	FullReference   string                 `json:"full_reference,omitempty"`
	DocType         string                 `json:"doc_type"`
	Status          string                 `json:"status"`
	DeviceID        string                 `json:"device_id"`
	UserID          string                 `json:"user_id"`
	ShiftID         string                 `json:"shift_id,omitempty"`
	CustomerID      string                 `json:"customer_id,omitempty"`
	TotalNet        decimal.Decimal        `json:"total_net" swaggertype:"string"`
	TotalTax        decimal.Decimal        `json:"total_tax" swaggertype:"string"`
	TotalAmount     decimal.Decimal        `json:"total_amount" swaggertype:"string"`
	RectifiedSaleID string                 `json:"rectified_sale_id,omitempty"`
	SuccessorSaleID string                 `json:"successor_sale_id,omitempty"`
	Reason          string                 `json:"reason,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
	IssuedAt        *time.Time             `json:"issued_at,omitempty"`
	Lines           []SaleLineResponse     `json:"lines"`
	Payments        []SalePaymentResponse  `json:"payments"`
	FiscalRecords   []FiscalRecordResponse `json:"fiscal_records,omitempty"`
}

// SaleLineResponse línea en la respuesta.
type SaleLineResponse struct {
	ID             string          `json:"id"`
	ProductID      string          `json:"product_id"`
	ProductName    string          `json:"product_name"`
	Quantity       decimal.Decimal `json:"quantity" swaggertype:"string"`
	UnitPrice      decimal.Decimal `json:"unit_price" swaggertype:"string"`
	TaxRate        decimal.Decimal `json:"tax_rate" swaggertype:"string"`
	TaxAmount      decimal.Decimal `json:"tax_amount" swaggertype:"string"`
	DiscountAmount decimal.Decimal `json:"discount_amount" swaggertype:"string"`
	TotalLine      decimal.Decimal `json:"total_line" swaggertype:"string"`
}

// SalePaymentResponse pago en la respuesta.
type SalePaymentResponse struct {
	ID     string          `json:"id"`
	Method string          `json:"method"`
	Amount decimal.Decimal `json:"amount" swaggertype:"string"`
}

// VoidSaleResponse resultado de anular o rectificar: la original actualizada y la sucesora.
type VoidSaleResponse struct {
	Original  *SaleResponse `json:"original"`
	Successor *SaleResponse `json:"successor"`
}
