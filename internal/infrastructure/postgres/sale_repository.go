package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/terencio/fiscal-core/internal/domain"
	"github.com/terencio/fiscal-core/internal/domain/entity"
	"github.com/terencio/fiscal-core/internal/domain/repository"
)

var _ repository.SaleRepository = (*SaleRepo)(nil)

// SaleRepo ventas, líneas y pagos (usable con pool o tx).
type SaleRepo struct {
	q Querier
}

// NewSaleRepository construye el adaptador. Pasar pool o tx (Querier).
func NewSaleRepository(q Querier) *SaleRepo {
	return &SaleRepo{q: q}
}

const saleColumns = `id, series, number, full_reference, doc_type, status, device_id, user_id, shift_id, customer_id,
	total_net, total_tax, total_amount, rectified_sale_id, successor_sale_id, reason, created_at, issued_at, updated_at`

// Create persiste la cabecera.
func (r *SaleRepo) Create(ctx context.Context, s *entity.Sale) error {
	_, err := r.q.Exec(ctx, `INSERT INTO sales (`+saleColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
		s.ID, s.Series, nullIfZero(s.Number), nullIfEmpty(s.FullReference), s.DocType, s.Status,
		s.DeviceID, s.UserID, nullIfEmpty(s.ShiftID), nullIfEmpty(s.CustomerID),
		s.TotalNet, s.TotalTax, s.TotalAmount, nullIfEmpty(s.RectifiedSaleID), nullIfEmpty(s.SuccessorSaleID),
		s.Reason, s.CreatedAt, s.IssuedAt, s.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: número %s ya usado o venta ya corregida: %v", domain.ErrConcurrencyConflict, s.FullReference, err)
		}
		return fmt.Errorf("insert sale: %w", mapError(err))
	}
	return nil
}

// CreateLine persiste una línea al final de la venta.
func (r *SaleRepo) CreateLine(ctx context.Context, l *entity.SaleLine) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO sale_lines (id, sale_id, product_id, product_name, quantity, unit_price, tax_rate,
			tax_amount, discount_amount, total_line, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			(SELECT COALESCE(MAX(position), 0) + 1 FROM sale_lines WHERE sale_id = $2))`,
		l.ID, l.SaleID, l.ProductID, l.ProductName, l.Quantity, l.UnitPrice, l.TaxRate,
		l.TaxAmount, l.DiscountAmount, l.TotalLine,
	)
	if err != nil {
		return fmt.Errorf("insert sale line: %w", mapError(err))
	}
	return nil
}

// CreatePayment persiste un pago.
func (r *SaleRepo) CreatePayment(ctx context.Context, p *entity.Payment) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO payments (id, sale_id, method, amount, created_at, position)
		VALUES ($1, $2, $3, $4, $5, (SELECT COALESCE(MAX(position), 0) + 1 FROM payments WHERE sale_id = $2))`,
		p.ID, p.SaleID, p.Method, p.Amount, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert payment: %w", mapError(err))
	}
	return nil
}

// GetByID venta por ID o nil.
func (r *SaleRepo) GetByID(ctx context.Context, id string) (*entity.Sale, error) {
	return r.getOne(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1`, id)
}

// GetForUpdate venta con bloqueo de fila.
func (r *SaleRepo) GetForUpdate(ctx context.Context, id string) (*entity.Sale, error) {
	return r.getOne(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1 FOR UPDATE`, id)
}

// GetLines líneas en orden.
func (r *SaleRepo) GetLines(ctx context.Context, saleID string) ([]*entity.SaleLine, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, sale_id, product_id, product_name, quantity, unit_price, tax_rate, tax_amount, discount_amount, total_line
		FROM sale_lines WHERE sale_id = $1 ORDER BY position`, saleID)
	if err != nil {
		return nil, fmt.Errorf("list sale lines: %w", mapError(err))
	}
	defer rows.Close()
	var out []*entity.SaleLine
	for rows.Next() {
		var l entity.SaleLine
		if err := rows.Scan(&l.ID, &l.SaleID, &l.ProductID, &l.ProductName, &l.Quantity, &l.UnitPrice,
			&l.TaxRate, &l.TaxAmount, &l.DiscountAmount, &l.TotalLine); err != nil {
			return nil, err
		}
		out = append(out, &l)
	}
	return out, rows.Err()
}

// GetPayments pagos en orden.
func (r *SaleRepo) GetPayments(ctx context.Context, saleID string) ([]*entity.Payment, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, sale_id, method, amount, created_at FROM payments WHERE sale_id = $1 ORDER BY position`, saleID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", mapError(err))
	}
	defer rows.Close()
	var out []*entity.Payment
	for rows.Next() {
		var p entity.Payment
		if err := rows.Scan(&p.ID, &p.SaleID, &p.Method, &p.Amount, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.CreatedAt = p.CreatedAt.UTC()
		out = append(out, &p)
	}
	return out, rows.Err()
}

// MarkIssued DRAFT → COMPLETED con número y referencia.
func (r *SaleRepo) MarkIssued(ctx context.Context, s *entity.Sale) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE sales
		SET number = $2, full_reference = $3, status = $4, issued_at = $5, updated_at = $6
		WHERE id = $1 AND status = $7`,
		s.ID, s.Number, s.FullReference, entity.SaleStatusCompleted, s.IssuedAt, s.UpdatedAt, entity.SaleStatusDraft,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: número %s ya usado", domain.ErrConcurrencyConflict, s.FullReference)
		}
		return fmt.Errorf("mark sale issued: %w", mapError(err))
	}
	return expectOneRow(tag, fmt.Errorf("%w: la venta %s ya no está en DRAFT", domain.ErrInvalidState, s.ID))
}

// AttachSuccessor enlaza la sucesora y cambia el estado de la original.
func (r *SaleRepo) AttachSuccessor(ctx context.Context, originalID, successorID, status string, at time.Time) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE sales SET successor_sale_id = $2, status = $3, updated_at = $4
		WHERE id = $1 AND status = $5 AND successor_sale_id IS NULL`,
		originalID, successorID, status, at, entity.SaleStatusCompleted,
	)
	if err != nil {
		return fmt.Errorf("attach successor: %w", mapError(err))
	}
	return expectOneRow(tag, fmt.Errorf("%w: la venta %s ya fue corregida", domain.ErrInvalidState, originalID))
}

// ListByShift ventas del turno por fecha de creación.
func (r *SaleRepo) ListByShift(ctx context.Context, shiftID string) ([]*entity.Sale, error) {
	rows, err := r.q.Query(ctx, `SELECT `+saleColumns+` FROM sales WHERE shift_id = $1 ORDER BY created_at, id`, shiftID)
	if err != nil {
		return nil, fmt.Errorf("list sales by shift: %w", mapError(err))
	}
	defer rows.Close()
	var out []*entity.Sale
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListIssuedBetween ventas emitidas en [from, to).
func (r *SaleRepo) ListIssuedBetween(ctx context.Context, deviceID string, from, to time.Time) ([]*entity.Sale, error) {
	rows, err := r.q.Query(ctx, `SELECT `+saleColumns+` FROM sales
		WHERE issued_at >= $1 AND issued_at < $2 AND ($3 = '' OR device_id = $3)
		ORDER BY issued_at, full_reference`, from.UTC(), to.UTC(), deviceID)
	if err != nil {
		return nil, fmt.Errorf("list issued sales: %w", mapError(err))
	}
	defer rows.Close()
	var out []*entity.Sale
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// SumPaymentsByShift suma por método los pagos de ventas emitidas del turno.
func (r *SaleRepo) SumPaymentsByShift(ctx context.Context, shiftID string) (map[string]decimal.Decimal, error) {
	rows, err := r.q.Query(ctx, `
		SELECT p.method, COALESCE(SUM(p.amount), 0)
		FROM payments p
		JOIN sales s ON s.id = p.sale_id
		WHERE s.shift_id = $1 AND s.issued_at IS NOT NULL
		GROUP BY p.method`, shiftID)
	if err != nil {
		return nil, fmt.Errorf("sum payments: %w", mapError(err))
	}
	defer rows.Close()
	out := make(map[string]decimal.Decimal)
	for rows.Next() {
		var method string
		var total decimal.Decimal
		if err := rows.Scan(&method, &total); err != nil {
			return nil, err
		}
		out[method] = total
	}
	return out, rows.Err()
}

func (r *SaleRepo) getOne(ctx context.Context, query string, args ...any) (*entity.Sale, error) {
	s, err := scanSale(r.q.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get sale: %w", mapError(err))
	}
	return s, nil
}

func scanSale(s pgxScanner) (*entity.Sale, error) {
	var (
		sale                                       entity.Sale
		number                                     *int64
		fullRef, shiftID, customerID, rectID, succ *string
	)
	err := s.Scan(&sale.ID, &sale.Series, &number, &fullRef, &sale.DocType, &sale.Status, &sale.DeviceID, &sale.UserID,
		&shiftID, &customerID, &sale.TotalNet, &sale.TotalTax, &sale.TotalAmount, &rectID, &succ, &sale.Reason,
		&sale.CreatedAt, &sale.IssuedAt, &sale.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if number != nil {
		sale.Number = *number
	}
	sale.FullReference = derefStr(fullRef)
	sale.ShiftID = derefStr(shiftID)
	sale.CustomerID = derefStr(customerID)
	sale.RectifiedSaleID = derefStr(rectID)
	sale.SuccessorSaleID = derefStr(succ)
	if sale.IssuedAt != nil {
		t := sale.IssuedAt.UTC()
		sale.IssuedAt = &t
	}
	sale.CreatedAt = sale.CreatedAt.UTC()
	sale.UpdatedAt = sale.UpdatedAt.UTC()
	return &sale, nil
}

func expectOneRow(tag pgconn.CommandTag, notAffected error) error {
	if tag.RowsAffected() == 0 {
		return notAffected
	}
	return nil
}
