// Package chain contiene las reglas de la cadena de registros fiscales por dispositivo:
// cálculo de huella de un registro y verificación de enlaces y secuencia. Utiliza pkg/verifactu.
package chain

import (
	"fmt"
	"time"

	"github.com/terencio/fiscal-core/internal/domain"
	"github.com/terencio/fiscal-core/internal/domain/entity"
	"github.com/terencio/fiscal-core/pkg/verifactu"
)

// Tipos de violación detectables.
const (
	ViolationSequenceGap   = "sequence_gap"
	ViolationBrokenLink    = "previous_hash_mismatch"
	ViolationHashMismatch  = "record_hash_mismatch"
	ViolationForeignDevice = "device_mismatch"
	ViolationBadSignature  = "signature_invalid"
)

// Violation primer eslabón que no verifica.
type Violation struct {
	ChainSequenceID int64  `json:"chain_sequence_id"`
	RecordID        string `json:"record_id"`
	Kind            string `json:"kind"`
	Detail          string `json:"detail"`
}

func (v Violation) String() string {
	return fmt.Sprintf("secuencia %d (%s): %s", v.ChainSequenceID, v.Kind, v.Detail)
}

// IntegrityError error devuelto al detectar una cadena rota; envuelve domain.ErrChainIntegrity.
type IntegrityError struct {
	DeviceID  string
	Violation Violation
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("%s: dispositivo %s, %s", domain.ErrChainIntegrity, e.DeviceID, e.Violation)
}

func (e *IntegrityError) Unwrap() error { return domain.ErrChainIntegrity }

// IntegrityReport resultado de recorrer la cadena completa de un dispositivo.
type IntegrityReport struct {
	DeviceID       string     `json:"device_id"`
	Valid          bool       `json:"valid"`
	RecordsChecked int        `json:"records_checked"`
	HeadSequenceID int64      `json:"head_sequence_id"`
	HeadHash       string     `json:"head_hash"`
	Violation      *Violation `json:"violation,omitempty"`
	CheckedAt      time.Time  `json:"checked_at"`
}

// Fields proyecta el registro sobre los campos que entran en su huella.
func Fields(rec *entity.FiscalRecord) verifactu.RecordFields {
	return verifactu.RecordFields{
		IssuerTaxID:       rec.IssuerTaxID,
		DeviceID:          rec.DeviceID,
		ChainSequenceID:   rec.ChainSequenceID,
		EventType:         rec.EventType,
		DocumentReference: rec.DocumentReference,
		SaleID:            rec.SaleID,
		Amount:            rec.Amount,
		RecordedAt:        rec.RecordedAt,
		PreviousHash:      rec.PreviousHash,
	}
}

// VerifyRecord recalcula la huella del registro y la compara con la persistida.
func VerifyRecord(rec *entity.FiscalRecord) *Violation {
	h, err := verifactu.ComputeHash(Fields(rec))
	if err != nil {
		return &Violation{ChainSequenceID: rec.ChainSequenceID, RecordID: rec.ID, Kind: ViolationHashMismatch, Detail: err.Error()}
	}
	if h != rec.RecordHash {
		return &Violation{
			ChainSequenceID: rec.ChainSequenceID,
			RecordID:        rec.ID,
			Kind:            ViolationHashMismatch,
			Detail:          fmt.Sprintf("huella persistida %s, recalculada %s", rec.RecordHash, h),
		}
	}
	return nil
}

// VerifyChain recorre records (orden ascendente de secuencia) y devuelve la primera violación.
// Por cada registro comprueba, en este orden: dispositivo, secuencia contigua desde 1,
// enlace con la huella del anterior (génesis para el primero) y su propia huella.
func VerifyChain(deviceID string, records []*entity.FiscalRecord) *Violation {
	prev := verifactu.GenesisHash
	for i, rec := range records {
		want := int64(i + 1)
		if rec.DeviceID != deviceID {
			return &Violation{ChainSequenceID: rec.ChainSequenceID, RecordID: rec.ID, Kind: ViolationForeignDevice,
				Detail: fmt.Sprintf("registro del dispositivo %s en la cadena de %s", rec.DeviceID, deviceID)}
		}
		if rec.ChainSequenceID != want {
			return &Violation{ChainSequenceID: want, RecordID: rec.ID, Kind: ViolationSequenceGap,
				Detail: fmt.Sprintf("se esperaba la secuencia %d y se encontró %d", want, rec.ChainSequenceID)}
		}
		if rec.PreviousHash != prev {
			return &Violation{ChainSequenceID: want, RecordID: rec.ID, Kind: ViolationBrokenLink,
				Detail: fmt.Sprintf("huella anterior declarada %s, real %s", rec.PreviousHash, prev)}
		}
		if v := VerifyRecord(rec); v != nil {
			return v
		}
		prev = rec.RecordHash
	}
	return nil
}
