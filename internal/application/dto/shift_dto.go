package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// StartShiftRequest body para POST /api/shifts. UserID sale del token.
type StartShiftRequest struct {
	DeviceID     string          `json:"device_id,omitempty"`
	StartingCash decimal.Decimal `json:"starting_cash" swaggertype:"string"`
	UserID       string          `json:"-"`
}

// CloseShiftRequest body para POST /api/shifts/:id/close.
type CloseShiftRequest struct {
	CountedCash decimal.Decimal `json:"counted_cash" swaggertype:"string"`
	Notes       string          `json:"notes,omitempty"`
}

// ShiftResponse turno de caja.
type ShiftResponse struct {
	ID               string          `json:"id"`
	UserID           string          `json:"user_id"`
	DeviceID         string          `json:"device_id"`
	Status           string          `json:"status"`
	StartingCash     decimal.Decimal `json:"starting_cash" swaggertype:"string"`
	ExpectedCash     decimal.Decimal `json:"expected_cash" swaggertype:"string"`
	CountedCash      decimal.Decimal `json:"counted_cash" swaggertype:"string"`
	Discrepancy      decimal.Decimal `json:"discrepancy" swaggertype:"string"`
	DiscrepancyLevel string          `json:"discrepancy_level,omitempty"`
	Notes            string          `json:"notes,omitempty"`
	AutoClosed       bool            `json:"auto_closed"`
	OpenedAt         time.Time       `json:"opened_at"`
	ClosedAt         *time.Time      `json:"closed_at,omitempty"`
}

// ShiftReportResponse informe Z del turno: arqueo y desglose por método de pago.
// Si el turno sigue abierto, ExpectedCash se calcula al momento del informe.
type ShiftReportResponse struct {
	Shift            ShiftResponse              `json:"shift"`
	TotalsByMethod   map[string]decimal.Decimal `json:"totals_by_method" swaggertype:"object,string"`
	SalesIssued      int                        `json:"sales_issued"`
	Corrections      int                        `json:"corrections"`
	GrossSales       decimal.Decimal            `json:"gross_sales" swaggertype:"string"`
	CorrectionsTotal decimal.Decimal            `json:"corrections_total" swaggertype:"string"`
	NetSales         decimal.Decimal            `json:"net_sales" swaggertype:"string"`
	IssuerName       string                     `json:"issuer_name,omitempty"`
	IssuerTaxID      string                     `json:"issuer_tax_id,omitempty"`
	GeneratedAt      time.Time                  `json:"generated_at"`
}
