package fiscal

import "github.com/terencio/fiscal-core/internal/domain/entity"

// Signer firma la forma canónica de un registro. Opcional: sin firmante los registros
// se encadenan igualmente, solo quedan sin firma.
type Signer interface {
	Sign(payload []byte) (string, error)
	Verify(payload []byte, signature string) error
}

// RecordRenderer serializa registros para exportación (XML canonicalizado).
type RecordRenderer interface {
	RenderRecord(rec *entity.FiscalRecord) ([]byte, error)
	RenderChain(deviceID string, records []*entity.FiscalRecord) ([]byte, error)
	RenderBundle(deviceID string, records []*entity.FiscalRecord) ([]byte, error)
}
