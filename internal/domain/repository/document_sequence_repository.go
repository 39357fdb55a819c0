package repository

import "context"

// DocumentSequenceRepository contador persistente por (serie, dispositivo).
type DocumentSequenceRepository interface {
	// Next incrementa y devuelve el siguiente valor de forma atómica (crea la fila en 1 si no existe).
	Next(ctx context.Context, series, deviceID string) (int64, error)
	// Current devuelve el último valor emitido o 0 si la serie no existe.
	Current(ctx context.Context, series, deviceID string) (int64, error)
}
