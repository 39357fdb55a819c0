package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/terencio/fiscal-core/internal/bootstrap"
)

// NewHeadCommand crea el comando head.
func NewHeadCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "head <device-id>",
		Short: "Muestra la cabeza de la cadena y si el dispositivo está bloqueado",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
				head, err := app.Ledger.GetChainHead(ctx, args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if rootOpts.Format == "json" {
					return writeJSON(out, head)
				}
				fmt.Fprintf(out, "%s secuencia=%d huella=%s\n", head.DeviceID, head.ChainSequenceID, head.RecordHash)
				if head.OnHold {
					fmt.Fprintf(out, "BLOQUEADO: %s\n", head.HoldReason)
				}
				return nil
			})
		},
	}
}
