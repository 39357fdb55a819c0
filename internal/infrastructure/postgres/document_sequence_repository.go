package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/terencio/fiscal-core/internal/domain/repository"
)

var _ repository.DocumentSequenceRepository = (*DocumentSequenceRepo)(nil)

// DocumentSequenceRepo contador por (serie, dispositivo) (usable con pool o tx).
type DocumentSequenceRepo struct {
	q Querier
}

// NewDocumentSequenceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewDocumentSequenceRepository(q Querier) *DocumentSequenceRepo {
	return &DocumentSequenceRepo{q: q}
}

// Next upsert atómico: el bloqueo de fila del ON CONFLICT serializa a los llamadores concurrentes.
func (r *DocumentSequenceRepo) Next(ctx context.Context, series, deviceID string) (int64, error) {
	query := `
		INSERT INTO document_sequences (series, device_id, current_value, updated_at)
		VALUES ($1, $2, 1, now())
		ON CONFLICT (series, device_id)
		DO UPDATE SET current_value = document_sequences.current_value + 1, updated_at = now()
		RETURNING current_value`
	var n int64
	if err := r.q.QueryRow(ctx, query, series, deviceID).Scan(&n); err != nil {
		return 0, fmt.Errorf("next sequence: %w", mapError(err))
	}
	return n, nil
}

// Current último valor emitido o 0.
func (r *DocumentSequenceRepo) Current(ctx context.Context, series, deviceID string) (int64, error) {
	var n int64
	err := r.q.QueryRow(ctx,
		`SELECT current_value FROM document_sequences WHERE series = $1 AND device_id = $2`,
		series, deviceID).Scan(&n)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("current sequence: %w", mapError(err))
	}
	return n, nil
}
