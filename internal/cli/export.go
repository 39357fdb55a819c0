package cli

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/terencio/fiscal-core/internal/bootstrap"
)

// NewExportCommand crea el comando export.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		recordID string
		output   string
		bundle   bool
	)
	cmd := &cobra.Command{
		Use:   "export [device-id]",
		Short: "Exporta la cadena de un dispositivo (o un registro) en XML canónico",
		Args: func(cmd *cobra.Command, args []string) error {
			if recordID == "" && len(args) != 1 {
				return errors.New("indique un dispositivo o --record")
			}
			if recordID != "" && bundle {
				return errors.New("--zip no se combina con --record")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
				var (
					b   []byte
					err error
				)
				switch {
				case recordID != "":
					b, err = app.Ledger.ExportRecordXML(ctx, recordID)
				case bundle:
					b, err = app.Ledger.ExportDeviceBundle(ctx, args[0])
				default:
					b, err = app.Ledger.ExportDeviceXML(ctx, args[0])
				}
				if err != nil {
					return err
				}
				if output != "" {
					return os.WriteFile(output, b, 0o644)
				}
				_, err = cmd.OutOrStdout().Write(b)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&recordID, "record", "", "ID de un registro concreto")
	cmd.Flags().BoolVar(&bundle, "zip", false, "ZIP con la cadena y un XML por registro")
	cmd.Flags().StringVarP(&output, "output", "o", "", "archivo de salida (por defecto stdout)")
	return cmd
}
