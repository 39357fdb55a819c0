package cli

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/terencio/fiscal-core/internal/bootstrap"
)

// NewReportCommand crea el comando report (informe Z de un turno).
func NewReportCommand(rootOpts *RootOptions) *cobra.Command {
	var pdfPath string
	cmd := &cobra.Command{
		Use:   "report <shift-id>",
		Short: "Informe Z de un turno",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
				if pdfPath != "" {
					b, err := app.Shifts.ReportPDF(ctx, args[0])
					if err != nil {
						return err
					}
					return os.WriteFile(pdfPath, b, 0o644)
				}
				r, err := app.Shifts.Report(ctx, args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if rootOpts.Format == "json" {
					return writeJSON(out, r)
				}
				fmt.Fprintf(out, "turno %s (%s) usuario=%s dispositivo=%s\n", r.Shift.ID, r.Shift.Status, r.Shift.UserID, r.Shift.DeviceID)
				methods := make([]string, 0, len(r.TotalsByMethod))
				for m := range r.TotalsByMethod {
					methods = append(methods, m)
				}
				sort.Strings(methods)
				for _, m := range methods {
					fmt.Fprintf(out, "  %-8s %s\n", m, r.TotalsByMethod[m].StringFixed(2))
				}
				fmt.Fprintf(out, "ventas=%d correcciones=%d neto=%s\n", r.SalesIssued, r.Corrections, r.NetSales.StringFixed(2))
				fmt.Fprintf(out, "efectivo esperado=%s contado=%s descuadre=%s %s\n",
					r.Shift.ExpectedCash.StringFixed(2), r.Shift.CountedCash.StringFixed(2),
					r.Shift.Discrepancy.StringFixed(2), r.Shift.DiscrepancyLevel)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&pdfPath, "pdf", "", "escribir el informe en PDF en esta ruta")
	return cmd
}
