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

var _ repository.ShiftRepository = (*ShiftRepo)(nil)

// ShiftRepo turnos de caja (usable con db o tx).
type ShiftRepo struct {
	q Querier
}

// NewShiftRepository construye el adaptador. Pasar db o tx (Querier).
func NewShiftRepository(q Querier) *ShiftRepo {
	return &ShiftRepo{q: q}
}

const shiftColumns = `id, user_id, device_id, status, starting_cash, expected_cash, counted_cash, discrepancy,
	discrepancy_level, notes, auto_closed, opened_at, closed_at`

// Create inserta el turno; el índice parcial impide dos turnos OPEN por usuario.
func (r *ShiftRepo) Create(ctx context.Context, s *entity.Shift) error {
	_, err := r.q.ExecContext(ctx, `INSERT INTO shifts (`+shiftColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.UserID, s.DeviceID, s.Status, s.StartingCash, s.ExpectedCash, s.CountedCash, s.Discrepancy,
		s.DiscrepancyLevel, s.Notes, s.AutoClosed, s.OpenedAt.UTC(), nullTime(s.ClosedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: usuario %s", domain.ErrShiftAlreadyOpen, s.UserID)
		}
		return fmt.Errorf("insert shift: %w", mapError(err))
	}
	return nil
}

// GetByID turno por ID o nil.
func (r *ShiftRepo) GetByID(ctx context.Context, id string) (*entity.Shift, error) {
	return r.getOne(ctx, `SELECT `+shiftColumns+` FROM shifts WHERE id = ?`, id)
}

// GetForUpdate equivale a GetByID bajo la transacción IMMEDIATE.
func (r *ShiftRepo) GetForUpdate(ctx context.Context, id string) (*entity.Shift, error) {
	return r.GetByID(ctx, id)
}

// GetOpenByUser turno OPEN del usuario o nil.
func (r *ShiftRepo) GetOpenByUser(ctx context.Context, userID string) (*entity.Shift, error) {
	return r.getOne(ctx, `SELECT `+shiftColumns+` FROM shifts WHERE user_id = ? AND status = ?`, userID, entity.ShiftStatusOpen)
}

// ListByUser turnos del usuario, más recientes primero.
func (r *ShiftRepo) ListByUser(ctx context.Context, userID string) ([]*entity.Shift, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+shiftColumns+` FROM shifts WHERE user_id = ? ORDER BY opened_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list shifts: %w", mapError(err))
	}
	defer rows.Close()
	var out []*entity.Shift
	for rows.Next() {
		s, err := scanShift(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Close persiste el cierre solo si el turno seguía OPEN.
func (r *ShiftRepo) Close(ctx context.Context, s *entity.Shift) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE shifts
		SET status = ?, expected_cash = ?, counted_cash = ?, discrepancy = ?, discrepancy_level = ?,
			notes = ?, auto_closed = ?, closed_at = ?
		WHERE id = ? AND status = ?`,
		entity.ShiftStatusClosed, s.ExpectedCash, s.CountedCash, s.Discrepancy, s.DiscrepancyLevel,
		s.Notes, s.AutoClosed, nullTime(s.ClosedAt), s.ID, entity.ShiftStatusOpen,
	)
	if err != nil {
		return fmt.Errorf("close shift: %w", mapError(err))
	}
	return expectOneRow(res, fmt.Errorf("%w: turno %s", domain.ErrShiftClosed, s.ID))
}

func (r *ShiftRepo) getOne(ctx context.Context, query string, args ...any) (*entity.Shift, error) {
	s, err := scanShift(r.q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get shift: %w", mapError(err))
	}
	return s, nil
}

func scanShift(s rowScanner) (*entity.Shift, error) {
	var (
		sh       entity.Shift
		closedAt sql.NullTime
	)
	err := s.Scan(&sh.ID, &sh.UserID, &sh.DeviceID, &sh.Status, &sh.StartingCash, &sh.ExpectedCash, &sh.CountedCash,
		&sh.Discrepancy, &sh.DiscrepancyLevel, &sh.Notes, &sh.AutoClosed, &sh.OpenedAt, &closedAt)
	if err != nil {
		return nil, err
	}
	sh.OpenedAt = sh.OpenedAt.UTC()
	sh.ClosedAt = timePtr(closedAt)
	return &sh, nil
}
