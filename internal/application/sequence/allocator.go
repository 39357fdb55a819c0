// Package sequence asigna números de documento consecutivos por (serie, dispositivo).
package sequence

import (
	"context"
	"fmt"
	"strings"

	"github.com/terencio/fiscal-core/internal/domain"
	"github.com/terencio/fiscal-core/internal/domain/repository"
)

// Allocator reparte números sin huecos ni duplicados. Next siempre corre dentro de la
// transacción del llamador: si ésta hace rollback, el número vuelve a estar libre.
type Allocator struct {
	sequences repository.DocumentSequenceRepository
}

// NewAllocator construye el asignador; sequences se usa solo para lecturas fuera de transacción.
func NewAllocator(sequences repository.DocumentSequenceRepository) *Allocator {
	return &Allocator{sequences: sequences}
}

// Next reserva el siguiente número de la serie para el dispositivo usando los repos de la transacción.
func (a *Allocator) Next(ctx context.Context, repos repository.Repositories, series, deviceID string) (int64, error) {
	series, deviceID, err := normalizeKey(series, deviceID)
	if err != nil {
		return 0, err
	}
	n, err := repos.Sequences.Next(ctx, series, deviceID)
	if err != nil {
		return 0, fmt.Errorf("asignar número %s/%s: %w", series, deviceID, err)
	}
	if n < 1 {
		return 0, fmt.Errorf("asignar número %s/%s: valor %d fuera de rango", series, deviceID, n)
	}
	return n, nil
}

// Current devuelve el último número emitido (0 si la serie aún no existe).
func (a *Allocator) Current(ctx context.Context, series, deviceID string) (int64, error) {
	series, deviceID, err := normalizeKey(series, deviceID)
	if err != nil {
		return 0, err
	}
	return a.sequences.Current(ctx, series, deviceID)
}

func normalizeKey(series, deviceID string) (string, string, error) {
	series = strings.ToUpper(strings.TrimSpace(series))
	deviceID = strings.TrimSpace(deviceID)
	if series == "" || deviceID == "" {
		return "", "", fmt.Errorf("%w: serie y dispositivo son obligatorios", domain.ErrInvalidInput)
	}
	return series, deviceID, nil
}
