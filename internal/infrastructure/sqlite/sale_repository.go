package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/terencio/fiscal-core/internal/domain"
	"github.com/terencio/fiscal-core/internal/domain/entity"
	"github.com/terencio/fiscal-core/internal/domain/repository"
)

var _ repository.SaleRepository = (*SaleRepo)(nil)

// SaleRepo ventas, líneas y pagos (usable con db o tx).
type SaleRepo struct {
	q Querier
}

// NewSaleRepository construye el adaptador. Pasar db o tx (Querier).
func NewSaleRepository(q Querier) *SaleRepo {
	return &SaleRepo{q: q}
}

const saleColumns = `id, series, number, full_reference, doc_type, status, device_id, user_id, shift_id, customer_id,
	total_net, total_tax, total_amount, rectified_sale_id, successor_sale_id, reason, created_at, issued_at, updated_at`

// Create persiste la cabecera.
func (r *SaleRepo) Create(ctx context.Context, s *entity.Sale) error {
	query := `INSERT INTO sales (` + saleColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.q.ExecContext(ctx, query,
		s.ID, s.Series, nullIfZero(s.Number), nullIfEmpty(s.FullReference), s.DocType, s.Status,
		s.DeviceID, s.UserID, nullIfEmpty(s.ShiftID), nullIfEmpty(s.CustomerID),
		s.TotalNet, s.TotalTax, s.TotalAmount, nullIfEmpty(s.RectifiedSaleID), nullIfEmpty(s.SuccessorSaleID),
		s.Reason, s.CreatedAt.UTC(), nullTime(s.IssuedAt), s.UpdatedAt.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: número %s ya usado o venta ya corregida: %v", domain.ErrConcurrencyConflict, s.FullReference, err)
		}
		return fmt.Errorf("insert sale: %w", mapError(err))
	}
	return nil
}

// CreateLine persiste una línea; el orden de inserción se conserva.
func (r *SaleRepo) CreateLine(ctx context.Context, l *entity.SaleLine) error {
	query := `
		INSERT INTO sale_lines (id, sale_id, product_id, product_name, quantity, unit_price, tax_rate,
			tax_amount, discount_amount, total_line, position)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?,
			(SELECT COALESCE(MAX(position), 0) + 1 FROM sale_lines WHERE sale_id = ?))`
	_, err := r.q.ExecContext(ctx, query,
		l.ID, l.SaleID, l.ProductID, l.ProductName, l.Quantity, l.UnitPrice, l.TaxRate,
		l.TaxAmount, l.DiscountAmount, l.TotalLine, l.SaleID,
	)
	if err != nil {
		return fmt.Errorf("insert sale line: %w", mapError(err))
	}
	return nil
}

// CreatePayment persiste un pago.
func (r *SaleRepo) CreatePayment(ctx context.Context, p *entity.Payment) error {
	query := `
		INSERT INTO payments (id, sale_id, method, amount, created_at, position)
		VALUES (?, ?, ?, ?, ?, (SELECT COALESCE(MAX(position), 0) + 1 FROM payments WHERE sale_id = ?))`
	_, err := r.q.ExecContext(ctx, query, p.ID, p.SaleID, p.Method, p.Amount, p.CreatedAt.UTC(), p.SaleID)
	if err != nil {
		return fmt.Errorf("insert payment: %w", mapError(err))
	}
	return nil
}

// GetByID venta por ID o nil.
func (r *SaleRepo) GetByID(ctx context.Context, id string) (*entity.Sale, error) {
	s, err := scanSale(r.q.QueryRowContext(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get sale: %w", mapError(err))
	}
	return s, nil
}

// GetForUpdate equivale a GetByID: la transacción ya tiene la base bloqueada para escritura.
func (r *SaleRepo) GetForUpdate(ctx context.Context, id string) (*entity.Sale, error) {
	return r.GetByID(ctx, id)
}

// GetLines líneas en orden de inserción.
func (r *SaleRepo) GetLines(ctx context.Context, saleID string) ([]*entity.SaleLine, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, sale_id, product_id, product_name, quantity, unit_price, tax_rate, tax_amount, discount_amount, total_line
		FROM sale_lines WHERE sale_id = ? ORDER BY position`, saleID)
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

// GetPayments pagos en orden de inserción.
func (r *SaleRepo) GetPayments(ctx context.Context, saleID string) ([]*entity.Payment, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, sale_id, method, amount, created_at FROM payments WHERE sale_id = ? ORDER BY position`, saleID)
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
	res, err := r.q.ExecContext(ctx, `
		UPDATE sales
		SET number = ?, full_reference = ?, status = ?, issued_at = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		s.Number, s.FullReference, entity.SaleStatusCompleted, nullTime(s.IssuedAt), s.UpdatedAt.UTC(),
		s.ID, entity.SaleStatusDraft,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: número %s ya usado", domain.ErrConcurrencyConflict, s.FullReference)
		}
		return fmt.Errorf("mark sale issued: %w", mapError(err))
	}
	return expectOneRow(res, fmt.Errorf("%w: la venta %s ya no está en DRAFT", domain.ErrInvalidState, s.ID))
}

// AttachSuccessor enlaza la sucesora y cambia el estado de la original.
func (r *SaleRepo) AttachSuccessor(ctx context.Context, originalID, successorID, status string, at time.Time) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE sales SET successor_sale_id = ?, status = ?, updated_at = ?
		WHERE id = ? AND status = ? AND successor_sale_id IS NULL`,
		successorID, status, at.UTC(), originalID, entity.SaleStatusCompleted,
	)
	if err != nil {
		return fmt.Errorf("attach successor: %w", mapError(err))
	}
	return expectOneRow(res, fmt.Errorf("%w: la venta %s ya fue corregida", domain.ErrInvalidState, originalID))
}

// ListByShift ventas del turno por fecha de creación.
func (r *SaleRepo) ListByShift(ctx context.Context, shiftID string) ([]*entity.Sale, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+saleColumns+` FROM sales WHERE shift_id = ? ORDER BY created_at, id`, shiftID)
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

// ListIssuedBetween ventas emitidas en [from, to). Las fechas se guardan en UTC con el formato
// del driver, así que la comparación de texto respeta el orden cronológico.
func (r *SaleRepo) ListIssuedBetween(ctx context.Context, deviceID string, from, to time.Time) ([]*entity.Sale, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+saleColumns+` FROM sales
		WHERE issued_at IS NOT NULL AND issued_at >= ? AND issued_at < ? AND (? = '' OR device_id = ?)
		ORDER BY issued_at, full_reference`, from.UTC(), to.UTC(), deviceID, deviceID)
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

// SumPaymentsByShift suma en Go: los importes son TEXT y SUM() de SQLite los convertiría a REAL.
func (r *SaleRepo) SumPaymentsByShift(ctx context.Context, shiftID string) (map[string]decimal.Decimal, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT p.method, p.amount
		FROM payments p
		JOIN sales s ON s.id = p.sale_id
		WHERE s.shift_id = ? AND s.issued_at IS NOT NULL`, shiftID)
	if err != nil {
		return nil, fmt.Errorf("sum payments: %w", mapError(err))
	}
	defer rows.Close()
	out := make(map[string]decimal.Decimal)
	for rows.Next() {
		var method string
		var amount decimal.Decimal
		if err := rows.Scan(&method, &amount); err != nil {
			return nil, err
		}
		out[method] = out[method].Add(amount)
	}
	return out, rows.Err()
}

func scanSale(s rowScanner) (*entity.Sale, error) {
	var (
		sale                                       entity.Sale
		number                                     sql.NullInt64
		fullRef, shiftID, customerID, rectID, succ sql.NullString
		issuedAt                                   sql.NullTime
	)
	err := s.Scan(&sale.ID, &sale.Series, &number, &fullRef, &sale.DocType, &sale.Status, &sale.DeviceID, &sale.UserID,
		&shiftID, &customerID, &sale.TotalNet, &sale.TotalTax, &sale.TotalAmount, &rectID, &succ, &sale.Reason,
		&sale.CreatedAt, &issuedAt, &sale.UpdatedAt)
	if err != nil {
		return nil, err
	}
	sale.Number = number.Int64
	sale.FullReference = fullRef.String
	sale.ShiftID = shiftID.String
	sale.CustomerID = customerID.String
	sale.RectifiedSaleID = rectID.String
	sale.SuccessorSaleID = succ.String
	sale.IssuedAt = timePtr(issuedAt)
	sale.CreatedAt = sale.CreatedAt.UTC()
	sale.UpdatedAt = sale.UpdatedAt.UTC()
	return &sale, nil
}

func expectOneRow(res sql.Result, notAffected error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notAffected
	}
	return nil
}
