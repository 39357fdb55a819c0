// Package fiscal mantiene la cadena de registros fiscales por dispositivo: alta de eslabones,
// consulta de la cabeza, verificación completa y bloqueo del dispositivo ante una cadena rota.
package fiscal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/terencio/fiscal-core/internal/application/dto"
	"github.com/terencio/fiscal-core/internal/domain"
	"github.com/terencio/fiscal-core/internal/domain/chain"
	"github.com/terencio/fiscal-core/internal/domain/entity"
	"github.com/terencio/fiscal-core/internal/domain/repository"
	"github.com/terencio/fiscal-core/pkg/verifactu"
)

// Config datos del emisor que entran en cada registro.
type Config struct {
	IssuerTaxID string
	IssuerName  string
}

// Event hecho fiscal a encadenar. DocumentReference es la referencia del documento afectado:
// la propia venta en ALTA, la venta original en ANULACION.
type Event struct {
	SaleID            string
	DeviceID          string
	EventType         string
	DocumentReference string
	Amount            decimal.Decimal
	RecordedAt        time.Time // vacío = ahora
}

// Ledger servicio de la cadena fiscal.
type Ledger struct {
	chain    repository.FiscalChainRepository
	signer   Signer
	renderer RecordRenderer
	cfg      Config
	log      zerolog.Logger
	now      func() time.Time
}

// NewLedger construye el servicio. signer y renderer pueden ser nil.
func NewLedger(chainRepo repository.FiscalChainRepository, signer Signer, renderer RecordRenderer, cfg Config, log zerolog.Logger) (*Ledger, error) {
	cfg.IssuerTaxID = verifactu.NormalizeTaxID(cfg.IssuerTaxID)
	if cfg.IssuerTaxID == "" {
		return nil, fmt.Errorf("%w: NIF del emisor obligatorio", domain.ErrInvalidInput)
	}
	return &Ledger{
		chain:    chainRepo,
		signer:   signer,
		renderer: renderer,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}, nil
}

// IssuerTaxID NIF normalizado del emisor.
func (l *Ledger) IssuerTaxID() string { return l.cfg.IssuerTaxID }

// Append encadena un registro nuevo usando los repos de la transacción del llamador.
// Bloquea la cadena del dispositivo, rechaza dispositivos bloqueados y vuelve a verificar
// la huella de la cabeza antes de enlazar con ella.
func (l *Ledger) Append(ctx context.Context, repos repository.Repositories, ev Event) (*entity.FiscalRecord, error) {
	ev.DeviceID = strings.TrimSpace(ev.DeviceID)
	ev.DocumentReference = strings.TrimSpace(ev.DocumentReference)
	if ev.SaleID == "" || ev.DeviceID == "" || ev.DocumentReference == "" {
		return nil, fmt.Errorf("%w: venta, dispositivo y referencia son obligatorios", domain.ErrInvalidInput)
	}
	if !verifactu.ValidEventType(ev.EventType) {
		return nil, fmt.Errorf("%w: tipo de registro %q", domain.ErrInvalidInput, ev.EventType)
	}

	if err := repos.Chain.LockDevice(ctx, ev.DeviceID); err != nil {
		return nil, fmt.Errorf("bloquear cadena %s: %w", ev.DeviceID, err)
	}
	hold, err := repos.Chain.GetHold(ctx, ev.DeviceID)
	if err != nil {
		return nil, fmt.Errorf("consultar bloqueo %s: %w", ev.DeviceID, err)
	}
	if hold != nil {
		return nil, fmt.Errorf("%w: dispositivo %s bloqueado desde la secuencia %d: %s",
			domain.ErrChainIntegrity, ev.DeviceID, hold.ChainSequenceID, hold.Reason)
	}

	head, err := repos.Chain.GetHead(ctx, ev.DeviceID)
	if err != nil {
		return nil, fmt.Errorf("leer cabeza de cadena %s: %w", ev.DeviceID, err)
	}
	prevHash := verifactu.GenesisHash
	seq := int64(1)
	if head != nil {
		if v := chain.VerifyRecord(head); v != nil {
			return nil, &chain.IntegrityError{DeviceID: ev.DeviceID, Violation: *v}
		}
		prevHash = head.RecordHash
		seq = head.ChainSequenceID + 1
	}

	recordedAt := ev.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = l.now()
	}
	rec := &entity.FiscalRecord{
		ID:                uuid.New().String(),
		SaleID:            ev.SaleID,
		DeviceID:          ev.DeviceID,
		EventType:         ev.EventType,
		ChainSequenceID:   seq,
		DocumentReference: ev.DocumentReference,
		IssuerTaxID:       l.cfg.IssuerTaxID,
		Amount:            ev.Amount.Round(2),
		RecordedAt:        recordedAt.UTC().Truncate(time.Second),
		PreviousHash:      prevHash,
		CreatedAt:         l.now().UTC(),
	}
	canonical, err := verifactu.Canonical(chain.Fields(rec))
	if err != nil {
		return nil, fmt.Errorf("forma canónica: %w", err)
	}
	rec.RecordHash = verifactu.Hash(canonical)
	if l.signer != nil {
		sig, err := l.signer.Sign(canonical)
		if err != nil {
			return nil, fmt.Errorf("firmar registro fiscal: %w", err)
		}
		rec.Signature = sig
	}

	if err := repos.Chain.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("persistir registro fiscal: %w", err)
	}
	l.log.Debug().
		Str("device_id", rec.DeviceID).
		Int64("chain_sequence_id", rec.ChainSequenceID).
		Str("event_type", rec.EventType).
		Str("record_hash", rec.RecordHash).
		Msg("registro encadenado")
	return rec, nil
}

// GetChainHead devuelve la cabeza de la cadena del dispositivo y su estado de bloqueo.
func (l *Ledger) GetChainHead(ctx context.Context, deviceID string) (*dto.ChainHeadResponse, error) {
	if strings.TrimSpace(deviceID) == "" {
		return nil, domain.ErrInvalidInput
	}
	head, err := l.chain.GetHead(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	out := &dto.ChainHeadResponse{DeviceID: deviceID, RecordHash: verifactu.GenesisHash}
	if head != nil {
		at := head.RecordedAt
		out.ChainSequenceID = head.ChainSequenceID
		out.RecordHash = head.RecordHash
		out.RecordedAt = &at
	}
	hold, err := l.chain.GetHold(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if hold != nil {
		out.OnHold = true
		out.HoldReason = hold.Reason
	}
	return out, nil
}

// ValidateChainIntegrity recorre la cadena completa del dispositivo. Una violación no es un error
// de la operación: se informa en el reporte y el dispositivo queda bloqueado.
func (l *Ledger) ValidateChainIntegrity(ctx context.Context, deviceID string) (*chain.IntegrityReport, error) {
	if strings.TrimSpace(deviceID) == "" {
		return nil, domain.ErrInvalidInput
	}
	records, err := l.chain.ListByDevice(ctx, deviceID)
	if err != nil {
		return nil, fmt.Errorf("leer cadena %s: %w", deviceID, err)
	}
	report := &chain.IntegrityReport{
		DeviceID:       deviceID,
		RecordsChecked: len(records),
		HeadHash:       verifactu.GenesisHash,
		CheckedAt:      l.now().UTC(),
	}
	if n := len(records); n > 0 {
		report.HeadSequenceID = records[n-1].ChainSequenceID
		report.HeadHash = records[n-1].RecordHash
	}

	v := chain.VerifyChain(deviceID, records)
	if v == nil && l.signer != nil {
		v = l.verifySignatures(records)
	}
	if v == nil {
		report.Valid = true
		return report, nil
	}

	report.Violation = v
	l.log.Error().
		Str("device_id", deviceID).
		Int64("chain_sequence_id", v.ChainSequenceID).
		Str("kind", v.Kind).
		Str("detail", v.Detail).
		Msg("cadena fiscal rota")
	if err := l.Hold(ctx, deviceID, *v); err != nil {
		return report, err
	}
	return report, nil
}

// ValidateAll verifica todos los dispositivos con registros.
func (l *Ledger) ValidateAll(ctx context.Context) ([]*chain.IntegrityReport, error) {
	devices, err := l.chain.ListDevices(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*chain.IntegrityReport, 0, len(devices))
	for _, d := range devices {
		r, err := l.ValidateChainIntegrity(ctx, d)
		if err != nil {
			return out, err
		}
		out = append(out, r)
	}
	return out, nil
}

// Hold bloquea el dispositivo; si ya estaba bloqueado conserva el bloqueo original.
func (l *Ledger) Hold(ctx context.Context, deviceID string, v chain.Violation) error {
	hold := &entity.DeviceHold{
		DeviceID:        deviceID,
		ChainSequenceID: v.ChainSequenceID,
		Reason:          v.Kind + ": " + v.Detail,
		DetectedAt:      l.now().UTC(),
	}
	if err := l.chain.CreateHold(ctx, hold); err != nil {
		return fmt.Errorf("bloquear dispositivo %s: %w", deviceID, err)
	}
	l.log.Warn().Str("device_id", deviceID).Int64("chain_sequence_id", v.ChainSequenceID).Msg("dispositivo bloqueado")
	return nil
}

// HoldOnViolation persiste el bloqueo si err lleva una violación detectada durante Append.
// Se llama fuera de la transacción fallida, que ya hizo rollback.
func (l *Ledger) HoldOnViolation(ctx context.Context, err error) {
	var ie *chain.IntegrityError
	if !errors.As(err, &ie) {
		return
	}
	if herr := l.Hold(ctx, ie.DeviceID, ie.Violation); herr != nil {
		l.log.Error().Err(herr).Str("device_id", ie.DeviceID).Msg("no se pudo persistir el bloqueo")
	}
}

// ListBySale registros de una venta, en orden de cadena.
func (l *Ledger) ListBySale(ctx context.Context, saleID string) ([]*entity.FiscalRecord, error) {
	return l.chain.ListBySale(ctx, saleID)
}

// VerifySignature comprueba la firma del registro contra su forma canónica.
func (l *Ledger) VerifySignature(rec *entity.FiscalRecord) error {
	if l.signer == nil {
		return fmt.Errorf("%w: no hay firmante configurado", domain.ErrInvalidState)
	}
	if rec.Signature == "" {
		return fmt.Errorf("%w: registro %s sin firma", domain.ErrInvalidInput, rec.ID)
	}
	canonical, err := verifactu.Canonical(chain.Fields(rec))
	if err != nil {
		return err
	}
	return l.signer.Verify(canonical, rec.Signature)
}

func (l *Ledger) verifySignatures(records []*entity.FiscalRecord) *chain.Violation {
	for _, rec := range records {
		if rec.Signature == "" {
			continue
		}
		if err := l.VerifySignature(rec); err != nil {
			return &chain.Violation{
				ChainSequenceID: rec.ChainSequenceID,
				RecordID:        rec.ID,
				Kind:            chain.ViolationBadSignature,
				Detail:          err.Error(),
			}
		}
	}
	return nil
}

// ExportRecordXML XML canonicalizado de un registro.
func (l *Ledger) ExportRecordXML(ctx context.Context, recordID string) ([]byte, error) {
	if l.renderer == nil {
		return nil, fmt.Errorf("%w: exportación XML no configurada", domain.ErrInvalidState)
	}
	rec, err := l.chain.GetByID(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, domain.ErrNotFound
	}
	return l.renderer.RenderRecord(rec)
}

// ExportDeviceXML XML con la cadena completa del dispositivo.
func (l *Ledger) ExportDeviceXML(ctx context.Context, deviceID string) ([]byte, error) {
	if l.renderer == nil {
		return nil, fmt.Errorf("%w: exportación XML no configurada", domain.ErrInvalidState)
	}
	records, err := l.chain.ListByDevice(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	return l.renderer.RenderChain(deviceID, records)
}

// ExportDeviceBundle ZIP con la cadena del dispositivo y un XML por registro.
func (l *Ledger) ExportDeviceBundle(ctx context.Context, deviceID string) ([]byte, error) {
	if l.renderer == nil {
		return nil, fmt.Errorf("%w: exportación XML no configurada", domain.ErrInvalidState)
	}
	records, err := l.chain.ListByDevice(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	return l.renderer.RenderBundle(deviceID, records)
}

// ToRecordResponse mapea un registro a su DTO.
func ToRecordResponse(rec *entity.FiscalRecord) dto.FiscalRecordResponse {
	return dto.FiscalRecordResponse{
		ID:                rec.ID,
		SaleID:            rec.SaleID,
		DeviceID:          rec.DeviceID,
		EventType:         rec.EventType,
		ChainSequenceID:   rec.ChainSequenceID,
		DocumentReference: rec.DocumentReference,
		Amount:            rec.Amount,
		RecordedAt:        rec.RecordedAt,
		PreviousHash:      rec.PreviousHash,
		RecordHash:        rec.RecordHash,
		Signed:            rec.Signature != "",
	}
}
