// Package pdf genera el informe Z (cierre de turno) en PDF.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Razón social + NIF  │  INFORME Z + fechas          │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TURNO: usuario / dispositivo / estado                       │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: Método de pago | Importe                             │
//	│  ─────────────────────────────────────────────────────────  │
//	│  VENTAS: emitidas / correcciones / neto                      │
//	│  ARQUEO: fondo / esperado / contado / descuadre              │
//	│  ─────────────────────────────────────────────────────────  │
//	│  FOOTER: QR resumen + notas                                  │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"

	"github.com/terencio/fiscal-core/internal/application/dto"
	"github.com/terencio/fiscal-core/internal/application/shift"
	"github.com/terencio/fiscal-core/internal/domain/entity"
)

var _ shift.ReportPDFGenerator = (*MarotoShiftReportGenerator)(nil)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary  = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray     = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorWarning  = &props.Color{Red: 204, Green: 122, Blue: 0}
	colorCritical = &props.Color{Red: 178, Green: 34, Blue: 34}
)

var paymentLabels = map[string]string{
	entity.PaymentMethodCash:     "Efectivo",
	entity.PaymentMethodCard:     "Tarjeta",
	entity.PaymentMethodTransfer: "Transferencia",
	entity.PaymentMethodOther:    "Otros",
}

// ── Generator ─────────────────────────────────────────────────────────────────

// MarotoShiftReportGenerator implementa shift.ReportPDFGenerator usando Maroto v2.
type MarotoShiftReportGenerator struct {
	loc *time.Location
}

// NewMarotoShiftReportGenerator construye el generador. loc nil = UTC.
func NewMarotoShiftReportGenerator(loc *time.Location) *MarotoShiftReportGenerator {
	if loc == nil {
		loc = time.UTC
	}
	return &MarotoShiftReportGenerator{loc: loc}
}

// GenerateShiftReport genera el PDF y devuelve sus bytes.
func (g *MarotoShiftReportGenerator) GenerateShiftReport(_ context.Context, r *dto.ShiftReportResponse) ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("pdf: informe nulo")
	}
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Informe Z "+r.Shift.ID, true).
		WithAuthor(nonEmpty(r.IssuerName, r.IssuerTaxID), true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(g.headerRow(r))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(shiftRow(r.Shift))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	for _, mr := range methodRows(r.TotalsByMethod) {
		m.AddRows(mr)
	}

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(salesRow(r))
	m.AddRows(cashRow(r.Shift))

	m.AddRows(line.NewRow(3))
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
	m.AddRows(footerRow(r))

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

// headerRow: razón social + NIF (izq) y título + fechas del turno (der).
func (g *MarotoShiftReportGenerator) headerRow(r *dto.ShiftReportResponse) core.Row {
	opened := r.Shift.OpenedAt.In(g.loc).Format("02/01/2006 15:04")
	closed := "turno abierto"
	if r.Shift.ClosedAt != nil {
		closed = r.Shift.ClosedAt.In(g.loc).Format("02/01/2006 15:04")
	}
	return row.New(18).Add(
		col.New(7).Add(
			text.New(nonEmpty(r.IssuerName, "—"), props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New("NIF: "+nonEmpty(r.IssuerTaxID, "—"), props.Text{
				Size: 9, Top: 9, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New("INFORME Z · CIERRE DE TURNO", props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right, Color: colorPrimary, Top: 1,
			}),
			text.New("Apertura: "+opened, props.Text{Size: 8, Align: align.Right, Top: 7}),
			text.New("Cierre: "+closed, props.Text{Size: 8, Align: align.Right, Top: 12, Color: colorGray}),
		),
	)
}

func shiftRow(s dto.ShiftResponse) core.Row {
	estado := s.Status
	if s.AutoClosed {
		estado += " (automático)"
	}
	return row.New(12).Add(
		col.New(12).Add(
			text.New("TURNO "+s.ID, props.Text{Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1}),
			text.New(fmt.Sprintf("Usuario: %s   |   Dispositivo: %s   |   Estado: %s", s.UserID, s.DeviceID, estado),
				props.Text{Size: 8, Top: 7, Color: colorGray}),
		),
	)
}

func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a, Color: colorPrimary, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Método de pago", 8, align.Left),
		h("Importe", 4, align.Right),
	)
}

// methodRows: una fila por método con importe, en orden fijo.
func methodRows(totals map[string]decimal.Decimal) []core.Row {
	methods := make([]string, 0, len(totals))
	for m := range totals {
		methods = append(methods, m)
	}
	sort.Strings(methods)
	if len(methods) == 0 {
		return []core.Row{row.New(7).Add(col.New(12).Add(
			text.New("Sin cobros en el turno", props.Text{Size: 8, Top: 1, Left: 1, Color: colorGray}),
		))}
	}
	result := make([]core.Row, 0, len(methods))
	for _, m := range methods {
		result = append(result, row.New(7).Add(
			col.New(8).Add(text.New(nonEmpty(paymentLabels[m], m), props.Text{Size: 8, Top: 1, Left: 1})),
			col.New(4).Add(text.New(formatMoney(totals[m]), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
		))
	}
	return result
}

func salesRow(r *dto.ShiftReportResponse) core.Row {
	return row.New(20).Add(
		col.New(6),
		col.New(3).Add(
			label(fmt.Sprintf("Ventas emitidas (%d):", r.SalesIssued), 0),
			label(fmt.Sprintf("Correcciones (%d):", r.Corrections), 5),
			label("Neto:", 10),
		),
		col.New(3).Add(
			value(formatMoney(r.GrossSales), 0, nil),
			value(formatMoney(r.CorrectionsTotal), 5, nil),
			value(formatMoney(r.NetSales), 10, colorPrimary),
		),
	)
}

// cashRow: arqueo de caja; el descuadre se colorea según su nivel.
func cashRow(s dto.ShiftResponse) core.Row {
	var levelColor *props.Color
	switch s.DiscrepancyLevel {
	case entity.DiscrepancyWarning:
		levelColor = colorWarning
	case entity.DiscrepancyCritical:
		levelColor = colorCritical
	}
	return row.New(26).Add(
		col.New(6),
		col.New(3).Add(
			label("Fondo inicial:", 0),
			label("Efectivo esperado:", 5),
			label("Efectivo contado:", 10),
			label("Descuadre:", 15),
		),
		col.New(3).Add(
			value(formatMoney(s.StartingCash), 0, nil),
			value(formatMoney(s.ExpectedCash), 5, nil),
			value(formatMoney(s.CountedCash), 10, nil),
			value(formatMoney(s.Discrepancy)+levelSuffix(s.DiscrepancyLevel), 15, levelColor),
		),
	)
}

// footerRow: QR con el resumen del arqueo + notas.
func footerRow(r *dto.ShiftReportResponse) core.Row {
	s := r.Shift
	summary := strings.Join([]string{
		"TURNO:" + s.ID,
		"NIF:" + r.IssuerTaxID,
		"ESPERADO:" + s.ExpectedCash.StringFixed(2),
		"CONTADO:" + s.CountedCash.StringFixed(2),
		"GENERADO:" + r.GeneratedAt.UTC().Format(time.RFC3339),
	}, "|")
	return row.New(40).Add(
		col.New(4).Add(code.NewQr(summary, props.Rect{Percent: 95, Center: true})),
		col.New(8).Add(
			text.New("Notas: "+nonEmpty(s.Notes, "—"), props.Text{Size: 8, Top: 4, Left: 3, Color: colorGray}),
			text.New("Generado "+r.GeneratedAt.UTC().Format("02/01/2006 15:04")+" UTC", props.Text{
				Size: 7, Top: 30, Left: 3, Color: colorGray,
			}),
		),
	)
}

// ── helpers ───────────────────────────────────────────────────────────────────

func label(s string, top float64) core.Component {
	return text.New(s, props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 2, Top: top})
}

func value(s string, top float64, color *props.Color) core.Component {
	p := props.Text{Size: 9, Align: align.Right, Right: 1, Top: top}
	if color != nil {
		p.Style = fontstyle.Bold
		p.Color = color
	}
	return text.New(s, p)
}

func levelSuffix(level string) string {
	if level == "" {
		return ""
	}
	return " (" + level + ")"
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

// formatMoney formato español con dos decimales y puntos de miles.
// Ej: 1234.5 → "1.234,50 €", -25.5 → "-25,50 €"
func formatMoney(d decimal.Decimal) string {
	s := d.Abs().StringFixed(2)
	intPart, frac := s[:len(s)-3], s[len(s)-2:]
	n := len(intPart)
	buf := make([]byte, 0, n+n/3)
	for i, c := range []byte(intPart) {
		if i > 0 && (n-i)%3 == 0 {
			buf = append(buf, '.')
		}
		buf = append(buf, c)
	}
	sign := ""
	if d.IsNegative() && !d.Round(2).IsZero() {
		sign = "-"
	}
	return sign + string(buf) + "," + frac + " €"
}
