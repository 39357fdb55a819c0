package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// FiscalRecordResponse registro de la cadena en respuestas.
type FiscalRecordResponse struct {
	ID                string          `json:"id"`
	SaleID            string          `json:"sale_id"`
	DeviceID          string          `json:"device_id"`
	EventType         string          `json:"event_type"`
	ChainSequenceID   int64           `json:"chain_sequence_id"`
	DocumentReference string          `json:"document_reference"`
	Amount            decimal.Decimal `json:"amount" swaggertype:"string"`
	RecordedAt        time.Time       `json:"recorded_at"`
	PreviousHash      string          `json:"previous_hash"`
	RecordHash        string          `json:"record_hash"`
	Signed            bool            `json:"signed"`
}

// ChainHeadResponse cabeza de la cadena de un dispositivo.
// Sin registros: ChainSequenceID 0 y RecordHash con la huella génesis.
type ChainHeadResponse struct {
	DeviceID        string     `json:"device_id"`
	ChainSequenceID int64      `json:"chain_sequence_id"`
	RecordHash      string     `json:"record_hash"`
	RecordedAt      *time.Time `json:"recorded_at,omitempty"`
	OnHold          bool       `json:"on_hold"`
	HoldReason      string     `json:"hold_reason,omitempty"`
}
