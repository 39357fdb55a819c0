package shift

import (
	"context"

	"github.com/terencio/fiscal-core/internal/application/dto"
)

// ReportPDFGenerator genera el informe Z de un turno en PDF.
type ReportPDFGenerator interface {
	GenerateShiftReport(ctx context.Context, report *dto.ShiftReportResponse) ([]byte, error)
}
