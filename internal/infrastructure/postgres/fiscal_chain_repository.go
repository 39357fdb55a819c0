package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/terencio/fiscal-core/internal/domain"
	"github.com/terencio/fiscal-core/internal/domain/entity"
	"github.com/terencio/fiscal-core/internal/domain/repository"
)

var _ repository.FiscalChainRepository = (*FiscalChainRepo)(nil)

// FiscalChainRepo cadena de registros fiscales (usable con pool o tx).
type FiscalChainRepo struct {
	q Querier
}

// NewFiscalChainRepository construye el adaptador. Pasar pool o tx (Querier).
func NewFiscalChainRepository(q Querier) *FiscalChainRepo {
	return &FiscalChainRepo{q: q}
}

const fiscalRecordColumns = `id, sale_id, device_id, event_type, chain_sequence_id, document_reference,
	issuer_tax_id, amount, recorded_at, previous_hash, record_hash, signature, created_at`

// LockDevice toma un advisory lock de transacción por dispositivo. Solo tiene efecto dentro de una tx.
func (r *FiscalChainRepo) LockDevice(ctx context.Context, deviceID string) error {
	if _, err := r.q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, "fiscal:"+deviceID); err != nil {
		return fmt.Errorf("advisory lock: %w", mapError(err))
	}
	return nil
}

// GetHead último registro del dispositivo o nil.
func (r *FiscalChainRepo) GetHead(ctx context.Context, deviceID string) (*entity.FiscalRecord, error) {
	return r.getOne(ctx, `SELECT `+fiscalRecordColumns+` FROM fiscal_records
		WHERE device_id = $1 ORDER BY chain_sequence_id DESC LIMIT 1`, deviceID)
}

// Create inserta el registro.
func (r *FiscalChainRepo) Create(ctx context.Context, rec *entity.FiscalRecord) error {
	_, err := r.q.Exec(ctx, `INSERT INTO fiscal_records (`+fiscalRecordColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		rec.ID, rec.SaleID, rec.DeviceID, rec.EventType, rec.ChainSequenceID, rec.DocumentReference,
		rec.IssuerTaxID, rec.Amount, rec.RecordedAt, rec.PreviousHash, rec.RecordHash, rec.Signature, rec.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: secuencia %d ya existe en %s", domain.ErrConcurrencyConflict, rec.ChainSequenceID, rec.DeviceID)
		}
		return fmt.Errorf("insert fiscal record: %w", mapError(err))
	}
	return nil
}

// GetByID registro por ID o nil.
func (r *FiscalChainRepo) GetByID(ctx context.Context, id string) (*entity.FiscalRecord, error) {
	return r.getOne(ctx, `SELECT `+fiscalRecordColumns+` FROM fiscal_records WHERE id = $1`, id)
}

// ListByDevice cadena completa en orden ascendente.
func (r *FiscalChainRepo) ListByDevice(ctx context.Context, deviceID string) ([]*entity.FiscalRecord, error) {
	return r.list(ctx, `SELECT `+fiscalRecordColumns+` FROM fiscal_records
		WHERE device_id = $1 ORDER BY chain_sequence_id`, deviceID)
}

// ListBySale registros de una venta.
func (r *FiscalChainRepo) ListBySale(ctx context.Context, saleID string) ([]*entity.FiscalRecord, error) {
	return r.list(ctx, `SELECT `+fiscalRecordColumns+` FROM fiscal_records
		WHERE sale_id = $1 ORDER BY device_id, chain_sequence_id`, saleID)
}

// ListDevices dispositivos con registros.
func (r *FiscalChainRepo) ListDevices(ctx context.Context) ([]string, error) {
	rows, err := r.q.Query(ctx, `SELECT DISTINCT device_id FROM fiscal_records ORDER BY device_id`)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", mapError(err))
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// GetHold bloqueo del dispositivo o nil.
func (r *FiscalChainRepo) GetHold(ctx context.Context, deviceID string) (*entity.DeviceHold, error) {
	var h entity.DeviceHold
	err := r.q.QueryRow(ctx,
		`SELECT device_id, chain_sequence_id, reason, detected_at FROM device_holds WHERE device_id = $1`, deviceID).
		Scan(&h.DeviceID, &h.ChainSequenceID, &h.Reason, &h.DetectedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get hold: %w", mapError(err))
	}
	h.DetectedAt = h.DetectedAt.UTC()
	return &h, nil
}

// CreateHold inserta el bloqueo si no existe.
func (r *FiscalChainRepo) CreateHold(ctx context.Context, hold *entity.DeviceHold) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO device_holds (device_id, chain_sequence_id, reason, detected_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (device_id) DO NOTHING`,
		hold.DeviceID, hold.ChainSequenceID, hold.Reason, hold.DetectedAt)
	if err != nil {
		return fmt.Errorf("insert hold: %w", mapError(err))
	}
	return nil
}

func (r *FiscalChainRepo) getOne(ctx context.Context, query string, args ...any) (*entity.FiscalRecord, error) {
	rec, err := scanFiscalRecord(r.q.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get fiscal record: %w", mapError(err))
	}
	return rec, nil
}

func (r *FiscalChainRepo) list(ctx context.Context, query string, args ...any) ([]*entity.FiscalRecord, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list fiscal records: %w", mapError(err))
	}
	defer rows.Close()
	var out []*entity.FiscalRecord
	for rows.Next() {
		rec, err := scanFiscalRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func scanFiscalRecord(s pgxScanner) (*entity.FiscalRecord, error) {
	var rec entity.FiscalRecord
	err := s.Scan(&rec.ID, &rec.SaleID, &rec.DeviceID, &rec.EventType, &rec.ChainSequenceID, &rec.DocumentReference,
		&rec.IssuerTaxID, &rec.Amount, &rec.RecordedAt, &rec.PreviousHash, &rec.RecordHash, &rec.Signature, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	rec.RecordedAt = rec.RecordedAt.UTC()
	rec.CreatedAt = rec.CreatedAt.UTC()
	return &rec, nil
}
