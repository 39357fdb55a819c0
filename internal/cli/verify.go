package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/terencio/fiscal-core/internal/bootstrap"
	"github.com/terencio/fiscal-core/internal/domain/chain"
)

// ErrChainBroken se devuelve (código de salida distinto de cero) si alguna cadena no es válida.
var ErrChainBroken = errors.New("cadena fiscal rota")

// NewVerifyCommand crea el comando verify.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "verify [device-id]",
		Short: "Verifica la integridad de la cadena de un dispositivo",
		Long: `Recorre la cadena completa recalculando cada huella y su enlace con la anterior.
Una cadena rota deja el dispositivo bloqueado para nuevas emisiones.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if all && len(args) > 0 {
				return errors.New("--all no admite dispositivo")
			}
			if !all && len(args) != 1 {
				return errors.New("indique un dispositivo o --all")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
				var reports []*chain.IntegrityReport
				if all {
					var err error
					if reports, err = app.Ledger.ValidateAll(ctx); err != nil {
						return err
					}
				} else {
					r, err := app.Ledger.ValidateChainIntegrity(ctx, args[0])
					if err != nil {
						return err
					}
					reports = append(reports, r)
				}
				if err := printReports(cmd, rootOpts.Format, reports); err != nil {
					return err
				}
				for _, r := range reports {
					if !r.Valid {
						return ErrChainBroken
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "verificar todos los dispositivos")
	return cmd
}

func printReports(cmd *cobra.Command, format string, reports []*chain.IntegrityReport) error {
	out := cmd.OutOrStdout()
	if format == "json" {
		return writeJSON(out, reports)
	}
	if len(reports) == 0 {
		_, err := fmt.Fprintln(out, "sin registros fiscales")
		return err
	}
	for _, r := range reports {
		if r.Valid {
			fmt.Fprintf(out, "%s OK registros=%d cabeza=%d %s\n", r.DeviceID, r.RecordsChecked, r.HeadSequenceID, r.HeadHash)
			continue
		}
		v := r.Violation
		fmt.Fprintf(out, "%s ROTA en %d (%s): %s\n", r.DeviceID, v.ChainSequenceID, v.Kind, v.Detail)
	}
	return nil
}
