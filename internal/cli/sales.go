package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/terencio/fiscal-core/internal/application/dto"
	"github.com/terencio/fiscal-core/internal/bootstrap"
)

// NewSalesCommand crea el comando sales (ventas emitidas en un rango de fechas).
func NewSalesCommand(rootOpts *RootOptions) *cobra.Command {
	var q dto.SaleRangeQuery
	cmd := &cobra.Command{
		Use:   "sales --from <fecha> --to <fecha> [device-id]",
		Short: "Ventas emitidas entre dos fechas",
		Long:  "Fechas YYYY-MM-DD (día completo en FISCAL_TIMEZONE, ambos incluidos) o RFC3339.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				q.DeviceID = args[0]
			}
			return rootOpts.withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
				list, err := app.Sales.ListIssued(ctx, q)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if rootOpts.Format == "json" {
					return writeJSON(out, list)
				}
				for _, s := range list {
					fmt.Fprintf(out, "%s  %-14s %-13s %-8s %10s  %s\n",
						s.IssuedAt.Format("2006-01-02 15:04:05"), s.FullReference, s.DocType, s.DeviceID,
						s.TotalAmount.StringFixed(2), s.Status)
				}
				fmt.Fprintf(out, "%d ventas\n", len(list))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&q.From, "from", "", "desde (incluido)")
	cmd.Flags().StringVar(&q.To, "to", "", "hasta")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}
