// Package bootstrap arma el grafo de dependencias común a la API y a fiscalctl.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/terencio/fiscal-core/internal/application/fiscal"
	"github.com/terencio/fiscal-core/internal/application/sales"
	"github.com/terencio/fiscal-core/internal/application/sequence"
	"github.com/terencio/fiscal-core/internal/application/shift"
	"github.com/terencio/fiscal-core/internal/application/txretry"
	"github.com/terencio/fiscal-core/internal/domain/repository"
	infrapdf "github.com/terencio/fiscal-core/internal/infrastructure/pdf"
	"github.com/terencio/fiscal-core/internal/infrastructure/postgres"
	"github.com/terencio/fiscal-core/internal/infrastructure/signer"
	"github.com/terencio/fiscal-core/internal/infrastructure/sqlite"
	"github.com/terencio/fiscal-core/internal/infrastructure/xmlexport"
	"github.com/terencio/fiscal-core/pkg/config"
)

// App servicios listos para usar.
type App struct {
	Ledger *fiscal.Ledger
	Sales  *sales.Service
	Shifts *shift.Service

	closers []func()
}

// Close libera conexiones en orden inverso a su apertura.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// Build abre el almacén configurado, aplica migraciones y construye los servicios.
func Build(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	app := &App{}

	var (
		repos    repository.Repositories
		txRunner repository.TxRunner
	)
	switch cfg.DB.Driver {
	case config.DriverPostgres:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			return nil, fmt.Errorf("conexión a PostgreSQL: %w", err)
		}
		app.closers = append(app.closers, pool.Close)
		if err := postgres.Migrate(ctx, pool); err != nil {
			app.Close()
			return nil, fmt.Errorf("migraciones PostgreSQL: %w", err)
		}
		repos = postgres.NewRepositories(pool)
		txRunner = postgres.NewTxRunner(pool)
	default:
		st, err := sqlite.Open(cfg.DB.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("abrir SQLite %s: %w", cfg.DB.SQLitePath, err)
		}
		app.closers = append(app.closers, func() { _ = st.Close() })
		repos = st.Repositories()
		txRunner = st.TxRunner()
	}

	recordSigner, err := signer.Load(cfg.Fiscal.SignCertPath, cfg.Fiscal.SignKeyPath, cfg.Fiscal.SignCertPassword)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("certificado de firma: %w", err)
	}
	var fiscalSigner fiscal.Signer
	if recordSigner != nil {
		fiscalSigner = recordSigner
		log.Info().Str("fingerprint", signer.Fingerprint(recordSigner.Certificate())).Msg("firma de registros activada")
	}

	ledger, err := fiscal.NewLedger(repos.Chain, fiscalSigner, xmlexport.NewRenderer(cfg.Fiscal.IssuerName), fiscal.Config{
		IssuerTaxID: cfg.Fiscal.IssuerTaxID,
		IssuerName:  cfg.Fiscal.IssuerName,
	}, log.With().Str("component", "ledger").Logger())
	if err != nil {
		app.Close()
		return nil, err
	}

	retry := txretry.Policy{
		MaxRetries: cfg.Fiscal.MaxRetries,
		Backoff:    time.Duration(cfg.Fiscal.RetryBackoffMS) * time.Millisecond,
	}
	loc, err := time.LoadLocation(cfg.Fiscal.Timezone)
	if err != nil {
		loc = time.UTC
	}

	app.Ledger = ledger
	app.Sales = sales.NewService(txRunner, repos.Sales, repos.Shifts, sequence.NewAllocator(repos.Sequences), ledger,
		sales.Config{RectifySuffix: cfg.Fiscal.RectifySuffix, Retry: retry, Location: loc},
		log.With().Str("component", "sales").Logger())
	app.Shifts = shift.NewService(txRunner, repos.Shifts, repos.Sales, infrapdf.NewMarotoShiftReportGenerator(loc),
		shift.Config{IssuerName: cfg.Fiscal.IssuerName, IssuerTaxID: ledger.IssuerTaxID(), Retry: retry},
		log.With().Str("component", "shift").Logger())
	return app, nil
}
