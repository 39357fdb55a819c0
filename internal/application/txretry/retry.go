// Package txretry ejecuta transacciones reintentando los conflictos de concurrencia del motor.
package txretry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/terencio/fiscal-core/internal/domain"
	"github.com/terencio/fiscal-core/internal/domain/repository"
)

// Policy reintentos ante domain.ErrConcurrencyConflict. MaxRetries 0 = un solo intento.
type Policy struct {
	MaxRetries int
	Backoff    time.Duration // espera base; crece linealmente con cada intento
}

// Run ejecuta fn en una transacción de runner. fn debe releer todo lo que necesite:
// cada intento empieza desde cero. Agotados los reintentos devuelve domain.ErrTransient.
func Run(ctx context.Context, runner repository.TxRunner, p Policy, log zerolog.Logger, op string, fn func(repos repository.Repositories) error) error {
	attempts := p.MaxRetries + 1
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = runner.Run(ctx, fn)
		if err == nil || !errors.Is(err, domain.ErrConcurrencyConflict) {
			return err
		}
		log.Warn().Err(err).Str("op", op).Int("attempt", attempt).Msg("conflicto de concurrencia")
		if attempt == attempts {
			break
		}
		if p.Backoff > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.Backoff * time.Duration(attempt)):
			}
		}
	}
	return fmt.Errorf("%w: %s tras %d intentos: %v", domain.ErrTransient, op, attempts, err)
}
