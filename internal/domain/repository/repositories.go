package repository

import "context"

// Repositories agrupa los repositorios atados a una misma transacción.
// Dentro del callback de TxRunner.Run solo deben usarse estos, nunca los construidos sobre el pool.
type Repositories struct {
	Sequences DocumentSequenceRepository
	Chain     FiscalChainRepository
	Sales     SaleRepository
	Shifts    ShiftRepository
}

// TxRunner ejecuta fn dentro de una transacción: Commit si fn devuelve nil, Rollback en otro caso.
// Los fallos de serialización o bloqueo del motor se devuelven envueltos en domain.ErrConcurrencyConflict.
type TxRunner interface {
	Run(ctx context.Context, fn func(repos Repositories) error) error
}
