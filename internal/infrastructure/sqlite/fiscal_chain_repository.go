package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/terencio/fiscal-core/internal/domain"
	"github.com/terencio/fiscal-core/internal/domain/entity"
	"github.com/terencio/fiscal-core/internal/domain/repository"
)

var _ repository.FiscalChainRepository = (*FiscalChainRepo)(nil)

// FiscalChainRepo cadena de registros fiscales (usable con db o tx).
type FiscalChainRepo struct {
	q Querier
}

// NewFiscalChainRepository construye el adaptador. Pasar db o tx (Querier).
func NewFiscalChainRepository(q Querier) *FiscalChainRepo {
	return &FiscalChainRepo{q: q}
}

const fiscalRecordColumns = `id, sale_id, device_id, event_type, chain_sequence_id, document_reference,
	issuer_tax_id, amount, recorded_at, previous_hash, record_hash, signature, created_at`

// LockDevice no hace nada: la transacción IMMEDIATE ya tiene el bloqueo de escritura de toda la base.
func (r *FiscalChainRepo) LockDevice(ctx context.Context, deviceID string) error {
	return nil
}

// GetHead último registro de la cadena del dispositivo.
func (r *FiscalChainRepo) GetHead(ctx context.Context, deviceID string) (*entity.FiscalRecord, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+fiscalRecordColumns+` FROM fiscal_records
		WHERE device_id = ? ORDER BY chain_sequence_id DESC LIMIT 1`, deviceID)
	return r.scanOne(row)
}

// Create inserta el registro. Una secuencia duplicada indica otro escritor concurrente.
func (r *FiscalChainRepo) Create(ctx context.Context, rec *entity.FiscalRecord) error {
	query := `INSERT INTO fiscal_records (` + fiscalRecordColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.q.ExecContext(ctx, query,
		rec.ID, rec.SaleID, rec.DeviceID, rec.EventType, rec.ChainSequenceID, rec.DocumentReference,
		rec.IssuerTaxID, rec.Amount, rec.RecordedAt.UTC(), rec.PreviousHash, rec.RecordHash, rec.Signature,
		rec.CreatedAt.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: secuencia %d ya existe en %s", domain.ErrConcurrencyConflict, rec.ChainSequenceID, rec.DeviceID)
		}
		return fmt.Errorf("insert fiscal record: %w", mapError(err))
	}
	return nil
}

// GetByID registro por ID.
func (r *FiscalChainRepo) GetByID(ctx context.Context, id string) (*entity.FiscalRecord, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+fiscalRecordColumns+` FROM fiscal_records WHERE id = ?`, id)
	return r.scanOne(row)
}

// ListByDevice cadena completa en orden ascendente.
func (r *FiscalChainRepo) ListByDevice(ctx context.Context, deviceID string) ([]*entity.FiscalRecord, error) {
	return r.list(ctx, `SELECT `+fiscalRecordColumns+` FROM fiscal_records
		WHERE device_id = ? ORDER BY chain_sequence_id`, deviceID)
}

// ListBySale registros de una venta.
func (r *FiscalChainRepo) ListBySale(ctx context.Context, saleID string) ([]*entity.FiscalRecord, error) {
	return r.list(ctx, `SELECT `+fiscalRecordColumns+` FROM fiscal_records
		WHERE sale_id = ? ORDER BY device_id, chain_sequence_id`, saleID)
}

// ListDevices dispositivos con registros.
func (r *FiscalChainRepo) ListDevices(ctx context.Context) ([]string, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT DISTINCT device_id FROM fiscal_records ORDER BY device_id`)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", mapError(err))
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// GetHold bloqueo del dispositivo o nil.
func (r *FiscalChainRepo) GetHold(ctx context.Context, deviceID string) (*entity.DeviceHold, error) {
	var h entity.DeviceHold
	err := r.q.QueryRowContext(ctx,
		`SELECT device_id, chain_sequence_id, reason, detected_at FROM device_holds WHERE device_id = ?`, deviceID).
		Scan(&h.DeviceID, &h.ChainSequenceID, &h.Reason, &h.DetectedAt)
	if errors.Is(err, sql.ErrNoRows) {
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
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO device_holds (device_id, chain_sequence_id, reason, detected_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (device_id) DO NOTHING`,
		hold.DeviceID, hold.ChainSequenceID, hold.Reason, hold.DetectedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert hold: %w", mapError(err))
	}
	return nil
}

func (r *FiscalChainRepo) list(ctx context.Context, query string, args ...any) ([]*entity.FiscalRecord, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
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

func (r *FiscalChainRepo) scanOne(row *sql.Row) (*entity.FiscalRecord, error) {
	rec, err := scanFiscalRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get fiscal record: %w", mapError(err))
	}
	return rec, nil
}

func scanFiscalRecord(s rowScanner) (*entity.FiscalRecord, error) {
	var rec entity.FiscalRecord
	err := s.Scan(&rec.ID, &rec.SaleID, &rec.DeviceID, &rec.EventType, &rec.ChainSequenceID, &rec.DocumentReference,
		&rec.IssuerTaxID, &rec.Amount, &rec.RecordedAt, &rec.PreviousHash, &rec.RecordHash, &rec.Signature,
		&rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	rec.RecordedAt = rec.RecordedAt.UTC()
	rec.CreatedAt = rec.CreatedAt.UTC()
	return &rec, nil
}
