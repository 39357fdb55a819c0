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

var _ repository.ShiftRepository = (*ShiftRepo)(nil)

// ShiftRepo turnos de caja (usable con pool o tx).
type ShiftRepo struct {
	q Querier
}

// NewShiftRepository construye el adaptador. Pasar pool o tx (Querier).
func NewShiftRepository(q Querier) *ShiftRepo {
	return &ShiftRepo{q: q}
}

const shiftColumns = `id, user_id, device_id, status, starting_cash, expected_cash, counted_cash, discrepancy,
	discrepancy_level, notes, auto_closed, opened_at, closed_at`

// Create inserta el turno; ux_shifts_user_open impide dos OPEN por usuario aunque dos Start compitan.
func (r *ShiftRepo) Create(ctx context.Context, s *entity.Shift) error {
	_, err := r.q.Exec(ctx, `INSERT INTO shifts (`+shiftColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		s.ID, s.UserID, s.DeviceID, s.Status, s.StartingCash, s.ExpectedCash, s.CountedCash, s.Discrepancy,
		s.DiscrepancyLevel, s.Notes, s.AutoClosed, s.OpenedAt, s.ClosedAt,
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
	return r.getOne(ctx, `SELECT `+shiftColumns+` FROM shifts WHERE id = $1`, id)
}

// GetForUpdate turno con bloqueo de fila.
func (r *ShiftRepo) GetForUpdate(ctx context.Context, id string) (*entity.Shift, error) {
	return r.getOne(ctx, `SELECT `+shiftColumns+` FROM shifts WHERE id = $1 FOR UPDATE`, id)
}

// GetOpenByUser turno OPEN del usuario o nil.
func (r *ShiftRepo) GetOpenByUser(ctx context.Context, userID string) (*entity.Shift, error) {
	return r.getOne(ctx, `SELECT `+shiftColumns+` FROM shifts WHERE user_id = $1 AND status = $2`, userID, entity.ShiftStatusOpen)
}

// ListByUser turnos del usuario, más recientes primero.
func (r *ShiftRepo) ListByUser(ctx context.Context, userID string) ([]*entity.Shift, error) {
	rows, err := r.q.Query(ctx, `SELECT `+shiftColumns+` FROM shifts WHERE user_id = $1 ORDER BY opened_at DESC`, userID)
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
	tag, err := r.q.Exec(ctx, `
		UPDATE shifts
		SET status = $2, expected_cash = $3, counted_cash = $4, discrepancy = $5, discrepancy_level = $6,
			notes = $7, auto_closed = $8, closed_at = $9
		WHERE id = $1 AND status = $10`,
		s.ID, entity.ShiftStatusClosed, s.ExpectedCash, s.CountedCash, s.Discrepancy, s.DiscrepancyLevel,
		s.Notes, s.AutoClosed, s.ClosedAt, entity.ShiftStatusOpen,
	)
	if err != nil {
		return fmt.Errorf("close shift: %w", mapError(err))
	}
	return expectOneRow(tag, fmt.Errorf("%w: turno %s", domain.ErrShiftClosed, s.ID))
}

func (r *ShiftRepo) getOne(ctx context.Context, query string, args ...any) (*entity.Shift, error) {
	s, err := scanShift(r.q.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get shift: %w", mapError(err))
	}
	return s, nil
}

func scanShift(s pgxScanner) (*entity.Shift, error) {
	var sh entity.Shift
	err := s.Scan(&sh.ID, &sh.UserID, &sh.DeviceID, &sh.Status, &sh.StartingCash, &sh.ExpectedCash, &sh.CountedCash,
		&sh.Discrepancy, &sh.DiscrepancyLevel, &sh.Notes, &sh.AutoClosed, &sh.OpenedAt, &sh.ClosedAt)
	if err != nil {
		return nil, err
	}
	sh.OpenedAt = sh.OpenedAt.UTC()
	if sh.ClosedAt != nil {
		t := sh.ClosedAt.UTC()
		sh.ClosedAt = &t
	}
	return &sh, nil
}
