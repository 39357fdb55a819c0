package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// FiscalRecord eslabón de la cadena de un dispositivo. Inmutable una vez escrito.
type FiscalRecord struct {
	ID                string
	SaleID            string
	DeviceID          string
	EventType         string // ALTA | ANULACION
	ChainSequenceID   int64  // 1, 2, 3... sin huecos por dispositivo
	DocumentReference string // referencia completa del documento afectado
	IssuerTaxID       string
	Amount            decimal.Decimal
	RecordedAt        time.Time
	PreviousHash      string
	RecordHash        string
	Signature         string // base64; vacío si no hay firmante configurado
	CreatedAt         time.Time
}

// DeviceHold bloqueo persistido al detectar una cadena rota.
// Mientras exista, el dispositivo no puede emitir ni anular.
type DeviceHold struct {
	DeviceID        string
	ChainSequenceID int64 // primer registro que no verifica
	Reason          string
	DetectedAt      time.Time
}

// DocumentSequence contador por (serie, dispositivo).
type DocumentSequence struct {
	Series       string
	DeviceID     string
	CurrentValue int64
	UpdatedAt    time.Time
}
