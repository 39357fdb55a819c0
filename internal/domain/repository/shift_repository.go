package repository

import (
	"context"

	"github.com/terencio/fiscal-core/internal/domain/entity"
)

// ShiftRepository persistencia de turnos de caja.
type ShiftRepository interface {
	// Create devuelve domain.ErrShiftAlreadyOpen si el usuario ya tiene un turno OPEN.
	Create(ctx context.Context, s *entity.Shift) error
	GetByID(ctx context.Context, id string) (*entity.Shift, error)
	// GetForUpdate bloquea el turno; cierre y emisión sobre el mismo turno se excluyen.
	GetForUpdate(ctx context.Context, id string) (*entity.Shift, error)
	GetOpenByUser(ctx context.Context, userID string) (*entity.Shift, error)
	ListByUser(ctx context.Context, userID string) ([]*entity.Shift, error)
	// Close persiste el cierre; domain.ErrShiftClosed si ya no estaba OPEN.
	Close(ctx context.Context, s *entity.Shift) error
}
