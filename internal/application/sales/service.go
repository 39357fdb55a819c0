// Package sales implementa el ciclo de vida de una venta: borrador, emisión y anulación/rectificación.
package sales

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/terencio/fiscal-core/internal/application/dto"
	"github.com/terencio/fiscal-core/internal/application/fiscal"
	"github.com/terencio/fiscal-core/internal/application/sequence"
	"github.com/terencio/fiscal-core/internal/application/txretry"
	"github.com/terencio/fiscal-core/internal/domain"
	"github.com/terencio/fiscal-core/internal/domain/entity"
	"github.com/terencio/fiscal-core/internal/domain/issuing"
	"github.com/terencio/fiscal-core/internal/domain/repository"
	"github.com/terencio/fiscal-core/pkg/verifactu"
)

// Config política del servicio de ventas.
type Config struct {
	RectifySuffix string // sufijo de serie de las ventas correctoras, ej. "R"
	Retry         txretry.Policy
	Location      *time.Location // zona de las fechas YYYY-MM-DD en ListIssued; nil = UTC
}

// Service casos de uso de venta.
type Service struct {
	txRunner  repository.TxRunner
	sales     repository.SaleRepository
	shifts    repository.ShiftRepository
	allocator *sequence.Allocator
	ledger    *fiscal.Ledger
	cfg       Config
	log       zerolog.Logger
	now       func() time.Time
}

// NewService construye el servicio. sales y shifts se usan solo para lecturas fuera de transacción.
func NewService(
	txRunner repository.TxRunner,
	sales repository.SaleRepository,
	shifts repository.ShiftRepository,
	allocator *sequence.Allocator,
	ledger *fiscal.Ledger,
	cfg Config,
	log zerolog.Logger,
) *Service {
	if cfg.RectifySuffix == "" {
		cfg.RectifySuffix = "R"
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Service{
		txRunner:  txRunner,
		sales:     sales,
		shifts:    shifts,
		allocator: allocator,
		ledger:    ledger,
		cfg:       cfg,
		log:       log,
		now:       time.Now,
	}
}

// CreateDraft guarda una venta en DRAFT con sus líneas y pagos. No consume número ni toca la cadena.
func (s *Service) CreateDraft(ctx context.Context, in dto.CreateSaleRequest) (*dto.SaleResponse, error) {
	series := strings.ToUpper(strings.TrimSpace(in.Series))
	deviceID := strings.TrimSpace(in.DeviceID)
	if series == "" || deviceID == "" || in.UserID == "" {
		return nil, fmt.Errorf("%w: serie, dispositivo y usuario son obligatorios", domain.ErrInvalidInput)
	}
	for i, p := range in.Payments {
		if !entity.ValidPaymentMethod(p.Method) {
			return nil, fmt.Errorf("%w: pago %d con método %q", domain.ErrInvalidInput, i+1, p.Method)
		}
		if !p.Amount.IsPositive() {
			return nil, fmt.Errorf("%w: pago %d con importe %s", domain.ErrInvalidInput, i+1, p.Amount)
		}
	}

	now := s.now().UTC()
	sale := &entity.Sale{
		ID:          uuid.New().String(),
		Series:      series,
		DocType:     entity.DocTypeSale,
		Status:      entity.SaleStatusDraft,
		DeviceID:    deviceID,
		UserID:      in.UserID,
		ShiftID:     strings.TrimSpace(in.ShiftID),
		CustomerID:  in.CustomerID,
		TotalNet:    in.TotalNet,
		TotalTax:    in.TotalTax,
		TotalAmount: in.TotalAmount,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	lines := make([]*entity.SaleLine, 0, len(in.Lines))
	for _, l := range in.Lines {
		lines = append(lines, &entity.SaleLine{
			ID:             uuid.New().String(),
			SaleID:         sale.ID,
			ProductID:      l.ProductID,
			ProductName:    l.ProductName,
			Quantity:       l.Quantity,
			UnitPrice:      l.UnitPrice,
			TaxRate:        l.TaxRate,
			TaxAmount:      l.TaxAmount,
			DiscountAmount: l.DiscountAmount,
			TotalLine:      l.TotalLine,
		})
	}
	payments := make([]*entity.Payment, 0, len(in.Payments))
	for _, p := range in.Payments {
		payments = append(payments, &entity.Payment{
			ID:        uuid.New().String(),
			SaleID:    sale.ID,
			Method:    p.Method,
			Amount:    p.Amount,
			CreatedAt: now,
		})
	}

	err := txretry.Run(ctx, s.txRunner, s.cfg.Retry, s.log, "create_draft", func(repos repository.Repositories) error {
		if sale.ShiftID != "" {
			if err := requireOpenShift(ctx, repos, sale.ShiftID); err != nil {
				return err
			}
		}
		if err := repos.Sales.Create(ctx, sale); err != nil {
			return err
		}
		for _, l := range lines {
			if err := repos.Sales.CreateLine(ctx, l); err != nil {
				return err
			}
		}
		for _, p := range payments {
			if err := repos.Sales.CreatePayment(ctx, p); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toSaleResponse(sale, lines, payments, nil), nil
}

// Finalize emite la venta: número de documento, registro ALTA y paso a COMPLETED en una sola transacción.
// Cualquier fallo deshace las tres cosas; el número no queda consumido.
func (s *Service) Finalize(ctx context.Context, saleID string) (*dto.SaleResponse, error) {
	if saleID == "" {
		return nil, domain.ErrInvalidInput
	}
	var (
		issued *entity.Sale
		rec    *entity.FiscalRecord
	)
	err := txretry.Run(ctx, s.txRunner, s.cfg.Retry, s.log, "finalize", func(repos repository.Repositories) error {
		sale, err := repos.Sales.GetForUpdate(ctx, saleID)
		if err != nil {
			return err
		}
		if sale == nil {
			return domain.ErrNotFound
		}
		lines, err := repos.Sales.GetLines(ctx, saleID)
		if err != nil {
			return err
		}
		payments, err := repos.Sales.GetPayments(ctx, saleID)
		if err != nil {
			return err
		}
		if err := issuing.ValidateForIssue(sale, lines, payments); err != nil {
			return err
		}
		if sale.ShiftID != "" {
			if err := requireOpenShift(ctx, repos, sale.ShiftID); err != nil {
				return err
			}
		}

		number, err := s.allocator.Next(ctx, repos, sale.Series, sale.DeviceID)
		if err != nil {
			return err
		}
		now := s.now().UTC().Truncate(time.Second)
		sale.Number = number
		sale.FullReference = entity.FormatReference(sale.Series, number)
		sale.Status = entity.SaleStatusCompleted
		sale.IssuedAt = &now
		sale.UpdatedAt = now

		rec, err = s.ledger.Append(ctx, repos, fiscal.Event{
			SaleID:            sale.ID,
			DeviceID:          sale.DeviceID,
			EventType:         verifactu.EventAlta,
			DocumentReference: sale.FullReference,
			Amount:            sale.TotalAmount,
			RecordedAt:        now,
		})
		if err != nil {
			return err
		}
		if err := repos.Sales.MarkIssued(ctx, sale); err != nil {
			return err
		}
		issued = sale
		return nil
	})
	if err != nil {
		s.ledger.HoldOnViolation(ctx, err)
		s.log.Warn().Err(err).Str("sale_id", saleID).Msg("emisión rechazada")
		return nil, err
	}

	s.log.Info().
		Str("sale_id", issued.ID).
		Str("full_reference", issued.FullReference).
		Str("device_id", issued.DeviceID).
		Int64("chain_sequence_id", rec.ChainSequenceID).
		Msg("venta emitida")
	return s.Get(ctx, issued.ID)
}

// VoidOrRectify crea la venta correctora (importes en negativo, serie con sufijo y número propio),
// encadena un registro ANULACION con la referencia de la original y enlaza la original con su sucesora.
// Los importes de la venta original no se modifican.
func (s *Service) VoidOrRectify(ctx context.Context, originalID string, in dto.VoidSaleRequest) (*dto.VoidSaleResponse, error) {
	reason := strings.TrimSpace(in.Reason)
	if originalID == "" || reason == "" {
		return nil, fmt.Errorf("%w: venta y motivo son obligatorios", domain.ErrInvalidInput)
	}
	var docType, originalStatus string
	switch in.Mode {
	case dto.CorrectionVoid, "":
		docType, originalStatus = entity.DocTypeVoid, entity.SaleStatusVoided
	case dto.CorrectionRectify:
		docType, originalStatus = entity.DocTypeRectification, entity.SaleStatusRectified
	default:
		return nil, fmt.Errorf("%w: modo %q", domain.ErrInvalidInput, in.Mode)
	}

	var successorID string
	err := txretry.Run(ctx, s.txRunner, s.cfg.Retry, s.log, "void", func(repos repository.Repositories) error {
		orig, err := repos.Sales.GetForUpdate(ctx, originalID)
		if err != nil {
			return err
		}
		if orig == nil {
			return domain.ErrNotFound
		}
		if orig.Status != entity.SaleStatusCompleted || orig.SuccessorSaleID != "" || orig.DocType != entity.DocTypeSale {
			return fmt.Errorf("%w: la venta %s está en %s", domain.ErrInvalidState, orig.ID, orig.Status)
		}
		userID := in.UserID
		if userID == "" {
			userID = orig.UserID
		}
		shiftID, err := correctionShift(ctx, repos, strings.TrimSpace(in.ShiftID), orig.ShiftID, userID)
		if err != nil {
			return err
		}
		lines, err := repos.Sales.GetLines(ctx, orig.ID)
		if err != nil {
			return err
		}
		payments, err := repos.Sales.GetPayments(ctx, orig.ID)
		if err != nil {
			return err
		}

		series := orig.Series + s.cfg.RectifySuffix
		number, err := s.allocator.Next(ctx, repos, series, orig.DeviceID)
		if err != nil {
			return err
		}
		now := s.now().UTC().Truncate(time.Second)
		succ := &entity.Sale{
			ID:              uuid.New().String(),
			Series:          series,
			Number:          number,
			FullReference:   entity.FormatReference(series, number),
			DocType:         docType,
			Status:          entity.SaleStatusCompleted,
			DeviceID:        orig.DeviceID,
			UserID:          userID,
			ShiftID:         shiftID,
			CustomerID:      orig.CustomerID,
			TotalNet:        orig.TotalNet.Neg(),
			TotalTax:        orig.TotalTax.Neg(),
			TotalAmount:     orig.TotalAmount.Neg(),
			RectifiedSaleID: orig.ID,
			Reason:          reason,
			CreatedAt:       now,
			IssuedAt:        &now,
			UpdatedAt:       now,
		}
		if err := repos.Sales.Create(ctx, succ); err != nil {
			return err
		}
		for _, l := range lines {
			neg := &entity.SaleLine{
				ID:             uuid.New().String(),
				SaleID:         succ.ID,
				ProductID:      l.ProductID,
				ProductName:    l.ProductName,
				Quantity:       l.Quantity.Neg(),
				UnitPrice:      l.UnitPrice,
				TaxRate:        l.TaxRate,
				TaxAmount:      l.TaxAmount.Neg(),
				DiscountAmount: l.DiscountAmount.Neg(),
				TotalLine:      l.TotalLine.Neg(),
			}
			if err := repos.Sales.CreateLine(ctx, neg); err != nil {
				return err
			}
		}
		for _, p := range payments {
			neg := &entity.Payment{
				ID:        uuid.New().String(),
				SaleID:    succ.ID,
				Method:    p.Method,
				Amount:    p.Amount.Neg(),
				CreatedAt: now,
			}
			if err := repos.Sales.CreatePayment(ctx, neg); err != nil {
				return err
			}
		}

		if _, err := s.ledger.Append(ctx, repos, fiscal.Event{
			SaleID:            succ.ID,
			DeviceID:          orig.DeviceID,
			EventType:         verifactu.EventAnulacion,
			DocumentReference: orig.FullReference,
			Amount:            orig.TotalAmount,
			RecordedAt:        now,
		}); err != nil {
			return err
		}
		if err := repos.Sales.AttachSuccessor(ctx, orig.ID, succ.ID, originalStatus, now); err != nil {
			return err
		}
		successorID = succ.ID
		return nil
	})
	if err != nil {
		s.ledger.HoldOnViolation(ctx, err)
		s.log.Warn().Err(err).Str("sale_id", originalID).Msg("anulación rechazada")
		return nil, err
	}

	original, err := s.Get(ctx, originalID)
	if err != nil {
		return nil, err
	}
	successor, err := s.Get(ctx, successorID)
	if err != nil {
		return nil, err
	}
	s.log.Info().
		Str("sale_id", originalID).
		Str("successor_id", successorID).
		Str("full_reference", successor.FullReference).
		Str("mode", docType).
		Msg("venta corregida")
	return &dto.VoidSaleResponse{Original: original, Successor: successor}, nil
}

// Get devuelve la venta con líneas, pagos y registros fiscales.
func (s *Service) Get(ctx context.Context, id string) (*dto.SaleResponse, error) {
	sale, err := s.sales.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sale == nil {
		return nil, domain.ErrNotFound
	}
	lines, err := s.sales.GetLines(ctx, id)
	if err != nil {
		return nil, err
	}
	payments, err := s.sales.GetPayments(ctx, id)
	if err != nil {
		return nil, err
	}
	records, err := s.ledger.ListBySale(ctx, id)
	if err != nil {
		return nil, err
	}
	return toSaleResponse(sale, lines, payments, records), nil
}

// ListByShift ventas del turno (sin detalle).
func (s *Service) ListByShift(ctx context.Context, shiftID string) ([]dto.SaleResponse, error) {
	if shiftID == "" {
		return nil, domain.ErrInvalidInput
	}
	list, err := s.sales.ListByShift(ctx, shiftID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.SaleResponse, 0, len(list))
	for _, sale := range list {
		out = append(out, *toSaleResponse(sale, nil, nil, nil))
	}
	return out, nil
}

// ListIssued ventas emitidas en el rango, ordenadas por fecha de emisión. Sin dispositivo, todas.
func (s *Service) ListIssued(ctx context.Context, q dto.SaleRangeQuery) ([]dto.SaleResponse, error) {
	from, err := s.parseBound(q.From, false)
	if err != nil {
		return nil, err
	}
	to, err := s.parseBound(q.To, true)
	if err != nil {
		return nil, err
	}
	if !to.After(from) {
		return nil, fmt.Errorf("%w: el rango %s - %s está vacío", domain.ErrInvalidInput, q.From, q.To)
	}
	list, err := s.sales.ListIssuedBetween(ctx, strings.TrimSpace(q.DeviceID), from, to)
	if err != nil {
		return nil, err
	}
	out := make([]dto.SaleResponse, 0, len(list))
	for _, sale := range list {
		out = append(out, *toSaleResponse(sale, nil, nil, nil))
	}
	return out, nil
}

// parseBound YYYY-MM-DD es el día completo en la zona configurada; como límite superior
// se toma el inicio del día siguiente.
func (s *Service) parseBound(v string, upper bool) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, fmt.Errorf("%w: from y to son obligatorios", domain.ErrInvalidInput)
	}
	if day, err := time.ParseInLocation(time.DateOnly, v, s.cfg.Location); err == nil {
		if upper {
			day = day.AddDate(0, 0, 1)
		}
		return day.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: fecha %q", domain.ErrInvalidInput, v)
	}
	return t.UTC(), nil
}

func requireOpenShift(ctx context.Context, repos repository.Repositories, shiftID string) error {
	sh, err := repos.Shifts.GetForUpdate(ctx, shiftID)
	if err != nil {
		return err
	}
	if sh == nil {
		return fmt.Errorf("%w: turno %s", domain.ErrNotFound, shiftID)
	}
	if !sh.IsOpen() {
		return fmt.Errorf("%w: turno %s", domain.ErrShiftClosed, shiftID)
	}
	return nil
}

// correctionShift decide el turno al que se imputa una corrección: el pedido explícitamente,
// el de la venta original si sigue abierto o, si ya se cerró, el turno abierto del usuario
// (devolución otro día). Sin turno abierto disponible se rechaza con ErrShiftClosed.
func correctionShift(ctx context.Context, repos repository.Repositories, requested, original, userID string) (string, error) {
	if requested != "" {
		return requested, requireOpenShift(ctx, repos, requested)
	}
	if original == "" {
		return "", nil
	}
	err := requireOpenShift(ctx, repos, original)
	if err == nil || !errors.Is(err, domain.ErrShiftClosed) {
		return original, err
	}
	open, err := repos.Shifts.GetOpenByUser(ctx, userID)
	if err != nil {
		return "", err
	}
	if open == nil {
		return "", fmt.Errorf("%w: turno %s cerrado y el usuario %s no tiene turno abierto", domain.ErrShiftClosed, original, userID)
	}
	return open.ID, requireOpenShift(ctx, repos, open.ID)
}

func toSaleResponse(sale *entity.Sale, lines []*entity.SaleLine, payments []*entity.Payment, records []*entity.FiscalRecord) *dto.SaleResponse {
	out := &dto.SaleResponse{
		ID:              sale.ID,
		Series:          sale.Series,
		Number:          sale.Number,
		FullReference:   sale.FullReference,
		DocType:         sale.DocType,
		Status:          sale.Status,
		DeviceID:        sale.DeviceID,
		UserID:          sale.UserID,
		ShiftID:         sale.ShiftID,
		CustomerID:      sale.CustomerID,
		TotalNet:        sale.TotalNet,
		TotalTax:        sale.TotalTax,
		TotalAmount:     sale.TotalAmount,
		RectifiedSaleID: sale.RectifiedSaleID,
		SuccessorSaleID: sale.SuccessorSaleID,
		Reason:          sale.Reason,
		CreatedAt:       sale.CreatedAt,
		IssuedAt:        sale.IssuedAt,
		Lines:           make([]dto.SaleLineResponse, 0, len(lines)),
		Payments:        make([]dto.SalePaymentResponse, 0, len(payments)),
	}
	for _, l := range lines {
		out.Lines = append(out.Lines, dto.SaleLineResponse{
			ID:             l.ID,
			ProductID:      l.ProductID,
			ProductName:    l.ProductName,
			Quantity:       l.Quantity,
			UnitPrice:      l.UnitPrice,
			TaxRate:        l.TaxRate,
			TaxAmount:      l.TaxAmount,
			DiscountAmount: l.DiscountAmount,
			TotalLine:      l.TotalLine,
		})
	}
	for _, p := range payments {
		out.Payments = append(out.Payments, dto.SalePaymentResponse{ID: p.ID, Method: p.Method, Amount: p.Amount})
	}
	for _, r := range records {
		out.FiscalRecords = append(out.FiscalRecords, fiscal.ToRecordResponse(r))
	}
	return out
}
