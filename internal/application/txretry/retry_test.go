package txretry_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/terencio/fiscal-core/internal/application/txretry"
	"github.com/terencio/fiscal-core/internal/domain"
	"github.com/terencio/fiscal-core/internal/domain/repository"
)

// fakeRunner devuelve los errores programados, uno por intento.
type fakeRunner struct {
	errs  []error
	calls int
}

func (f *fakeRunner) Run(_ context.Context, fn func(repository.Repositories) error) error {
	f.calls++
	if f.calls <= len(f.errs) {
		return f.errs[f.calls-1]
	}
	return fn(repository.Repositories{})
}

func conflict() error { return fmt.Errorf("commit: %w", domain.ErrConcurrencyConflict) }

func TestRun_RetriesThenSucceeds(t *testing.T) {
	r := &fakeRunner{errs: []error{conflict(), conflict()}}
	err := txretry.Run(context.Background(), r, txretry.Policy{MaxRetries: 3}, zerolog.Nop(), "test",
		func(repository.Repositories) error { return nil })
	assert.NoError(t, err)
	assert.Equal(t, 3, r.calls)
}

func TestRun_ExhaustedIsTransient(t *testing.T) {
	r := &fakeRunner{errs: []error{conflict(), conflict(), conflict(), conflict()}}
	err := txretry.Run(context.Background(), r, txretry.Policy{MaxRetries: 2}, zerolog.Nop(), "test",
		func(repository.Repositories) error { return nil })
	assert.ErrorIs(t, err, domain.ErrTransient)
	assert.Equal(t, 3, r.calls)
}

func TestRun_OtherErrorsNotRetried(t *testing.T) {
	boom := errors.New("boom")
	r := &fakeRunner{}
	err := txretry.Run(context.Background(), r, txretry.Policy{MaxRetries: 3}, zerolog.Nop(), "test",
		func(repository.Repositories) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, r.calls)
}
