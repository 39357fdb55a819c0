package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/terencio/fiscal-core/internal/domain/repository"
)

var _ repository.DocumentSequenceRepository = (*DocumentSequenceRepo)(nil)

// DocumentSequenceRepo contador por (serie, dispositivo) (usable con db o tx).
type DocumentSequenceRepo struct {
	q Querier
}

// NewDocumentSequenceRepository construye el adaptador. Pasar db o tx (Querier).
func NewDocumentSequenceRepository(q Querier) *DocumentSequenceRepo {
	return &DocumentSequenceRepo{q: q}
}

// Next incrementa el contador con un único upsert.
func (r *DocumentSequenceRepo) Next(ctx context.Context, series, deviceID string) (int64, error) {
	query := `
		INSERT INTO document_sequences (series, device_id, current_value, updated_at)
		VALUES (?, ?, 1, ?)
		ON CONFLICT (series, device_id)
		DO UPDATE SET current_value = current_value + 1, updated_at = excluded.updated_at
		RETURNING current_value`
	var n int64
	if err := r.q.QueryRowContext(ctx, query, series, deviceID, time.Now().UTC()).Scan(&n); err != nil {
		return 0, fmt.Errorf("next sequence: %w", mapError(err))
	}
	return n, nil
}

// Current devuelve el último valor emitido o 0.
func (r *DocumentSequenceRepo) Current(ctx context.Context, series, deviceID string) (int64, error) {
	var n int64
	err := r.q.QueryRowContext(ctx,
		`SELECT current_value FROM document_sequences WHERE series = ? AND device_id = ?`,
		series, deviceID).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("current sequence: %w", mapError(err))
	}
	return n, nil
}
