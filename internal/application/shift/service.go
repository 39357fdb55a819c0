// Package shift implementa el ciclo de vida del turno de caja y su arqueo.
package shift

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/terencio/fiscal-core/internal/application/dto"
	"github.com/terencio/fiscal-core/internal/application/txretry"
	"github.com/terencio/fiscal-core/internal/domain"
	"github.com/terencio/fiscal-core/internal/domain/cash"
	"github.com/terencio/fiscal-core/internal/domain/entity"
	"github.com/terencio/fiscal-core/internal/domain/repository"
)

// AutoCloseNote nota que se deja en los cierres forzados por el sistema.
const AutoCloseNote = "cierre automático del sistema"

// Config datos de cabecera del informe y política de reintentos.
type Config struct {
	IssuerName  string
	IssuerTaxID string
	Retry       txretry.Policy
}

// Service casos de uso de turnos.
type Service struct {
	txRunner repository.TxRunner
	shifts   repository.ShiftRepository
	sales    repository.SaleRepository
	pdf      ReportPDFGenerator
	cfg      Config
	log      zerolog.Logger
	now      func() time.Time
}

// NewService construye el servicio. pdf puede ser nil si no se sirven informes en PDF.
func NewService(
	txRunner repository.TxRunner,
	shifts repository.ShiftRepository,
	sales repository.SaleRepository,
	pdf ReportPDFGenerator,
	cfg Config,
	log zerolog.Logger,
) *Service {
	return &Service{
		txRunner: txRunner,
		shifts:   shifts,
		sales:    sales,
		pdf:      pdf,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

// Start abre un turno. Falla con domain.ErrShiftAlreadyOpen si el usuario ya tiene uno abierto.
func (s *Service) Start(ctx context.Context, in dto.StartShiftRequest) (*dto.ShiftResponse, error) {
	userID := strings.TrimSpace(in.UserID)
	deviceID := strings.TrimSpace(in.DeviceID)
	if userID == "" || deviceID == "" {
		return nil, fmt.Errorf("%w: usuario y dispositivo son obligatorios", domain.ErrInvalidInput)
	}
	if in.StartingCash.IsNegative() {
		return nil, fmt.Errorf("%w: fondo inicial negativo", domain.ErrInvalidInput)
	}

	sh := &entity.Shift{
		ID:           uuid.New().String(),
		UserID:       userID,
		DeviceID:     deviceID,
		Status:       entity.ShiftStatusOpen,
		StartingCash: in.StartingCash,
		ExpectedCash: in.StartingCash,
		CountedCash:  decimal.Zero,
		Discrepancy:  decimal.Zero,
		OpenedAt:     s.now().UTC(),
	}
	err := txretry.Run(ctx, s.txRunner, s.cfg.Retry, s.log, "start_shift", func(repos repository.Repositories) error {
		open, err := repos.Shifts.GetOpenByUser(ctx, userID)
		if err != nil {
			return err
		}
		if open != nil {
			return fmt.Errorf("%w: turno %s", domain.ErrShiftAlreadyOpen, open.ID)
		}
		return repos.Shifts.Create(ctx, sh)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("shift_id", sh.ID).Str("user_id", userID).Str("device_id", deviceID).Msg("turno abierto")
	return toShiftResponse(sh), nil
}

// Close cierra el turno con el efectivo contado. Un turno ya cerrado se rechaza con
// domain.ErrShiftClosed y no se modifica.
func (s *Service) Close(ctx context.Context, shiftID string, in dto.CloseShiftRequest) (*dto.ShiftResponse, error) {
	if in.CountedCash.IsNegative() {
		return nil, fmt.Errorf("%w: efectivo contado negativo", domain.ErrInvalidInput)
	}
	counted := in.CountedCash
	return s.close(ctx, shiftID, &counted, strings.TrimSpace(in.Notes))
}

// AutoClose cierre forzado (logout, salida de la aplicación): contado = esperado, descuadre 0.
func (s *Service) AutoClose(ctx context.Context, shiftID string) (*dto.ShiftResponse, error) {
	return s.close(ctx, shiftID, nil, AutoCloseNote)
}

func (s *Service) close(ctx context.Context, shiftID string, counted *decimal.Decimal, notes string) (*dto.ShiftResponse, error) {
	if shiftID == "" {
		return nil, domain.ErrInvalidInput
	}
	var closed *entity.Shift
	err := txretry.Run(ctx, s.txRunner, s.cfg.Retry, s.log, "close_shift", func(repos repository.Repositories) error {
		sh, err := repos.Shifts.GetForUpdate(ctx, shiftID)
		if err != nil {
			return err
		}
		if sh == nil {
			return domain.ErrNotFound
		}
		if !sh.IsOpen() {
			return fmt.Errorf("%w: turno %s cerrado el %s", domain.ErrShiftClosed, sh.ID, formatClosedAt(sh.ClosedAt))
		}
		sums, err := repos.Sales.SumPaymentsByShift(ctx, sh.ID)
		if err != nil {
			return err
		}
		expected := cash.ExpectedCash(sh.StartingCash, sums)
		now := s.now().UTC()

		sh.ExpectedCash = expected
		if counted == nil {
			sh.CountedCash = expected
			sh.AutoClosed = true
		} else {
			sh.CountedCash = *counted
		}
		sh.Discrepancy = sh.CountedCash.Sub(expected)
		sh.DiscrepancyLevel = cash.ClassifyDiscrepancy(expected, sh.Discrepancy)
		sh.Notes = notes
		sh.Status = entity.ShiftStatusClosed
		sh.ClosedAt = &now
		if err := repos.Shifts.Close(ctx, sh); err != nil {
			return err
		}
		closed = sh
		return nil
	})
	if err != nil {
		return nil, err
	}

	ev := s.log.Info()
	if closed.DiscrepancyLevel == entity.DiscrepancyCritical {
		ev = s.log.Warn()
	}
	ev.Str("shift_id", closed.ID).
		Str("expected_cash", closed.ExpectedCash.StringFixed(2)).
		Str("counted_cash", closed.CountedCash.StringFixed(2)).
		Str("discrepancy", closed.Discrepancy.StringFixed(2)).
		Str("level", closed.DiscrepancyLevel).
		Bool("auto_closed", closed.AutoClosed).
		Msg("turno cerrado")
	return toShiftResponse(closed), nil
}

// GetOpen turno abierto del usuario; domain.ErrNotFound si no tiene.
func (s *Service) GetOpen(ctx context.Context, userID string) (*dto.ShiftResponse, error) {
	if userID == "" {
		return nil, domain.ErrInvalidInput
	}
	sh, err := s.shifts.GetOpenByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sh == nil {
		return nil, domain.ErrNotFound
	}
	return toShiftResponse(sh), nil
}

// Get turno por ID.
func (s *Service) Get(ctx context.Context, id string) (*dto.ShiftResponse, error) {
	sh, err := s.shifts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sh == nil {
		return nil, domain.ErrNotFound
	}
	return toShiftResponse(sh), nil
}

// ListByUser turnos del usuario, más recientes primero.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]dto.ShiftResponse, error) {
	if userID == "" {
		return nil, domain.ErrInvalidInput
	}
	list, err := s.shifts.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.ShiftResponse, 0, len(list))
	for _, sh := range list {
		out = append(out, *toShiftResponse(sh))
	}
	return out, nil
}

// Report informe Z: totales por método de pago y número de ventas y correcciones.
func (s *Service) Report(ctx context.Context, id string) (*dto.ShiftReportResponse, error) {
	sh, err := s.shifts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sh == nil {
		return nil, domain.ErrNotFound
	}
	sums, err := s.sales.SumPaymentsByShift(ctx, id)
	if err != nil {
		return nil, err
	}
	list, err := s.sales.ListByShift(ctx, id)
	if err != nil {
		return nil, err
	}
	if sh.IsOpen() {
		sh.ExpectedCash = cash.ExpectedCash(sh.StartingCash, sums)
	}

	report := &dto.ShiftReportResponse{
		Shift:            *toShiftResponse(sh),
		TotalsByMethod:   sums,
		GrossSales:       decimal.Zero,
		CorrectionsTotal: decimal.Zero,
		IssuerName:       s.cfg.IssuerName,
		IssuerTaxID:      s.cfg.IssuerTaxID,
		GeneratedAt:      s.now().UTC(),
	}
	for _, sale := range list {
		if !sale.IsIssued() {
			continue
		}
		if sale.DocType == entity.DocTypeSale {
			report.SalesIssued++
			report.GrossSales = report.GrossSales.Add(sale.TotalAmount)
		} else {
			report.Corrections++
			report.CorrectionsTotal = report.CorrectionsTotal.Add(sale.TotalAmount)
		}
	}
	report.NetSales = report.GrossSales.Add(report.CorrectionsTotal)
	return report, nil
}

// ReportPDF informe Z en PDF.
func (s *Service) ReportPDF(ctx context.Context, id string) ([]byte, error) {
	if s.pdf == nil {
		return nil, fmt.Errorf("%w: generador PDF no configurado", domain.ErrInvalidState)
	}
	report, err := s.Report(ctx, id)
	if err != nil {
		return nil, err
	}
	b, err := s.pdf.GenerateShiftReport(ctx, report)
	if err != nil {
		return nil, fmt.Errorf("pdf: generar informe de turno: %w", err)
	}
	return b, nil
}

func formatClosedAt(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(time.RFC3339)
}

func toShiftResponse(sh *entity.Shift) *dto.ShiftResponse {
	return &dto.ShiftResponse{
		ID:               sh.ID,
		UserID:           sh.UserID,
		DeviceID:         sh.DeviceID,
		Status:           sh.Status,
		StartingCash:     sh.StartingCash,
		ExpectedCash:     sh.ExpectedCash,
		CountedCash:      sh.CountedCash,
		Discrepancy:      sh.Discrepancy,
		DiscrepancyLevel: sh.DiscrepancyLevel,
		Notes:            sh.Notes,
		AutoClosed:       sh.AutoClosed,
		OpenedAt:         sh.OpenedAt,
		ClosedAt:         sh.ClosedAt,
	}
}
