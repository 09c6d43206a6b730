package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/flexprice/invoicing/internal/domain/invoice"
	ierr "github.com/flexprice/invoicing/internal/errors"
	"github.com/flexprice/invoicing/internal/logger"
	"github.com/flexprice/invoicing/internal/money"
	"github.com/flexprice/invoicing/internal/postgres"
	"github.com/flexprice/invoicing/internal/sentry"
	"github.com/flexprice/invoicing/internal/types"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

const (
	storeName = "postgres"

	// pq reports unique_violation with this SQLSTATE
	uniqueViolation = pq.ErrorCode("23505")
)

var sortColumns = map[string]string{
	types.SortByCreatedAt:     "created_at",
	types.SortByUpdatedAt:     "updated_at",
	types.SortByInvoiceDate:   "invoice_date",
	types.SortByDueDate:       "due_date",
	types.SortByInvoiceNumber: "invoice_number",
	types.SortByClientName:    "client_name",
	types.SortByTotal:         "total",
	types.SortByStatus:        "status",
}

const invoiceColumns = `
	id, invoice_number, client_name, client_email, client_address,
	invoice_date, due_date, items, subtotal, tax_rate, tax_amount, total,
	notes, status, sent_at, paid_at, version, created_at, updated_at`

type invoiceRepository struct {
	db     postgres.Querier
	logger *logger.Logger
}

func NewInvoiceRepository(db *postgres.DB, logger *logger.Logger) invoice.Repository {
	return &invoiceRepository{db: db.Querier(), logger: logger}
}

// invoiceRow mirrors the invoices table
type invoiceRow struct {
	ID            string          `db:"id"`
	InvoiceNumber string          `db:"invoice_number"`
	ClientName    string          `db:"client_name"`
	ClientEmail   string          `db:"client_email"`
	ClientAddress string          `db:"client_address"`
	InvoiceDate   time.Time       `db:"invoice_date"`
	DueDate       time.Time       `db:"due_date"`
	Items         lineItems       `db:"items"`
	Subtotal      money.Money     `db:"subtotal"`
	TaxRate       decimal.Decimal `db:"tax_rate"`
	TaxAmount     money.Money     `db:"tax_amount"`
	Total         money.Money     `db:"total"`
	Notes         string          `db:"notes"`
	Status        string          `db:"status"`
	SentAt        sql.NullTime    `db:"sent_at"`
	PaidAt        sql.NullTime    `db:"paid_at"`
	Version       int             `db:"version"`
	CreatedAt     time.Time       `db:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at"`
}

// lineItems is stored as JSONB
type lineItems []invoice.LineItem

func (l lineItems) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]invoice.LineItem(l))
}

func (l *lineItems) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported items type %T", src)
	}
	return json.Unmarshal(data, (*[]invoice.LineItem)(l))
}

func fromDomain(inv *invoice.Invoice) invoiceRow {
	return invoiceRow{
		ID:            inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		ClientName:    inv.ClientName,
		ClientEmail:   inv.ClientEmail,
		ClientAddress: inv.ClientAddress,
		InvoiceDate:   inv.InvoiceDate,
		DueDate:       inv.DueDate,
		Items:         lineItems(inv.Items),
		Subtotal:      inv.Subtotal,
		TaxRate:       inv.TaxRate,
		TaxAmount:     inv.TaxAmount,
		Total:         inv.Total,
		Notes:         inv.Notes,
		Status:        string(inv.Status),
		SentAt:        nullTime(inv.SentAt),
		PaidAt:        nullTime(inv.PaidAt),
		Version:       inv.Version,
		CreatedAt:     inv.CreatedAt,
		UpdatedAt:     inv.UpdatedAt,
	}
}

func (r *invoiceRow) toDomain() *invoice.Invoice {
	inv := &invoice.Invoice{
		ID:            r.ID,
		InvoiceNumber: r.InvoiceNumber,
		ClientName:    r.ClientName,
		ClientEmail:   r.ClientEmail,
		ClientAddress: r.ClientAddress,
		InvoiceDate:   r.InvoiceDate.UTC(),
		DueDate:       r.DueDate.UTC(),
		Items:         []invoice.LineItem(r.Items),
		Subtotal:      r.Subtotal,
		TaxRate:       r.TaxRate,
		TaxAmount:     r.TaxAmount,
		Total:         r.Total,
		Notes:         r.Notes,
		Status:        types.InvoiceStatus(r.Status),
		Version:       r.Version,
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
	}
	if r.SentAt.Valid {
		t := r.SentAt.Time.UTC()
		inv.SentAt = &t
	}
	if r.PaidAt.Valid {
		t := r.PaidAt.Time.UTC()
		inv.PaidAt = &t
	}
	return inv
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func (r *invoiceRepository) Create(ctx context.Context, inv *invoice.Invoice) error {
	span := sentry.StartRepositorySpan(ctx, storeName, "invoice", "create", map[string]interface{}{
		"invoice_number": inv.InvoiceNumber,
	})
	defer sentry.FinishSpan(span)

	query := `
	INSERT INTO invoices (` + invoiceColumns + `
	) VALUES (
		:id, :invoice_number, :client_name, :client_email, :client_address,
		:invoice_date, :due_date, :items, :subtotal, :tax_rate, :tax_amount, :total,
		:notes, :status, :sent_at, :paid_at, :version, :created_at, :updated_at
	)`

	if _, err := r.db.NamedExecContext(ctx, query, fromDomain(inv)); err != nil {
		if isUniqueViolation(err) {
			return invoice.NewDuplicateKeyError(inv.InvoiceNumber, err)
		}
		return ierr.WithError(err).WithHint("Failed to create invoice").Mark(ierr.ErrDatabase)
	}

	r.logger.Debugw("created invoice", "id", inv.ID, "invoice_number", inv.InvoiceNumber)
	return nil
}

func (r *invoiceRepository) Get(ctx context.Context, id string) (*invoice.Invoice, error) {
	span := sentry.StartRepositorySpan(ctx, storeName, "invoice", "get", map[string]interface{}{
		"invoice_id": id,
	})
	defer sentry.FinishSpan(span)

	var row invoiceRow
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1`
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, invoice.NewNotFoundError(id)
		}
		return nil, ierr.WithError(err).WithHint("Failed to get invoice").Mark(ierr.ErrDatabase)
	}
	return row.toDomain(), nil
}

func (r *invoiceRepository) Update(ctx context.Context, inv *invoice.Invoice) error {
	span := sentry.StartRepositorySpan(ctx, storeName, "invoice", "update", map[string]interface{}{
		"invoice_id": inv.ID,
	})
	defer sentry.FinishSpan(span)

	query := `
	UPDATE invoices SET
		invoice_number = :invoice_number,
		client_name = :client_name,
		client_email = :client_email,
		client_address = :client_address,
		invoice_date = :invoice_date,
		due_date = :due_date,
		items = :items,
		subtotal = :subtotal,
		tax_rate = :tax_rate,
		tax_amount = :tax_amount,
		total = :total,
		notes = :notes,
		status = :status,
		sent_at = :sent_at,
		paid_at = :paid_at,
		version = version + 1,
		updated_at = :updated_at
	WHERE id = :id AND version = :version`

	result, err := r.db.NamedExecContext(ctx, query, fromDomain(inv))
	if err != nil {
		if isUniqueViolation(err) {
			return invoice.NewDuplicateKeyError(inv.InvoiceNumber, err)
		}
		return ierr.WithError(err).WithHint("Failed to update invoice").Mark(ierr.ErrDatabase)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return ierr.WithError(err).WithHint("Failed to update invoice").Mark(ierr.ErrDatabase)
	}

	if rows == 0 {
		var exists bool
		if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM invoices WHERE id = $1)`, inv.ID); err != nil {
			return ierr.WithError(err).WithHint("Failed to update invoice").Mark(ierr.ErrDatabase)
		}
		if !exists {
			return invoice.NewNotFoundError(inv.ID)
		}
		return ierr.NewErrorf("invoice %s version %d is stale", inv.ID, inv.Version).
			WithHint("The invoice was modified concurrently, please reload it").
			Mark(ierr.ErrVersionConflict)
	}

	inv.Version++
	return nil
}

func (r *invoiceRepository) Delete(ctx context.Context, id string) error {
	span := sentry.StartRepositorySpan(ctx, storeName, "invoice", "delete", map[string]interface{}{
		"invoice_id": id,
	})
	defer sentry.FinishSpan(span)

	result, err := r.db.ExecContext(ctx, `DELETE FROM invoices WHERE id = $1`, id)
	if err != nil {
		return ierr.WithError(err).WithHint("Failed to delete invoice").Mark(ierr.ErrDatabase)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return ierr.WithError(err).WithHint("Failed to delete invoice").Mark(ierr.ErrDatabase)
	}
	if rows == 0 {
		return invoice.NewNotFoundError(id)
	}
	return nil
}

func (r *invoiceRepository) List(ctx context.Context, filter *types.InvoiceFilter) ([]*invoice.Invoice, error) {
	span := sentry.StartRepositorySpan(ctx, storeName, "invoice", "list", nil)
	defer sentry.FinishSpan(span)

	if filter == nil {
		filter = types.NewDefaultInvoiceFilter()
	}

	where, args := buildWhere(filter)

	column, ok := sortColumns[filter.GetSortBy()]
	if !ok {
		column = "created_at"
	}
	order := "DESC"
	if filter.GetOrder() == types.OrderAsc {
		order = "ASC"
	}

	args = append(args, filter.GetLimit(), filter.GetOffset())
	query := fmt.Sprintf(
		`SELECT %s FROM invoices %s ORDER BY %s %s, id %s LIMIT $%d OFFSET $%d`,
		invoiceColumns, where, column, order, order, len(args)-1, len(args),
	)

	var rows []invoiceRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, ierr.WithError(err).WithHint("Failed to list invoices").Mark(ierr.ErrDatabase)
	}

	invoices := make([]*invoice.Invoice, 0, len(rows))
	for i := range rows {
		invoices = append(invoices, rows[i].toDomain())
	}
	return invoices, nil
}

func (r *invoiceRepository) Count(ctx context.Context, filter *types.InvoiceFilter) (int, error) {
	span := sentry.StartRepositorySpan(ctx, storeName, "invoice", "count", nil)
	defer sentry.FinishSpan(span)

	if filter == nil {
		filter = &types.InvoiceFilter{}
	}

	where, args := buildWhere(filter)

	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM invoices `+where, args...); err != nil {
		return 0, ierr.WithError(err).WithHint("Failed to count invoices").Mark(ierr.ErrDatabase)
	}
	return count, nil
}

func (r *invoiceRepository) FindMaxInvoiceNumberWithPrefix(ctx context.Context, prefix string) (*string, error) {
	span := sentry.StartRepositorySpan(ctx, storeName, "invoice", "find_max_number", map[string]interface{}{
		"prefix": prefix,
	})
	defer sentry.FinishSpan(span)

	var number sql.NullString
	query := `SELECT MAX(invoice_number) FROM invoices WHERE invoice_number LIKE $1`
	if err := r.db.GetContext(ctx, &number, query, escapeLike(prefix)+"%"); err != nil {
		return nil, ierr.WithError(err).WithHint("Failed to read invoice numbers").Mark(ierr.ErrDatabase)
	}
	if !number.Valid {
		return nil, nil
	}
	return &number.String, nil
}

func (r *invoiceRepository) SumTotal(ctx context.Context, status types.InvoiceStatus) (money.Money, error) {
	span := sentry.StartRepositorySpan(ctx, storeName, "invoice", "sum_total", map[string]interface{}{
		"status": status,
	})
	defer sentry.FinishSpan(span)

	var total money.Money
	query := `SELECT COALESCE(SUM(total), 0) FROM invoices WHERE status = $1`
	if err := r.db.GetContext(ctx, &total, query, string(status)); err != nil {
		return money.Zero, ierr.WithError(err).WithHint("Failed to compute revenue").Mark(ierr.ErrDatabase)
	}
	return total, nil
}

// buildWhere returns a WHERE clause with positional placeholders and its args
func buildWhere(filter *types.InvoiceFilter) (string, []interface{}) {
	var (
		conditions []string
		args       []interface{}
	)

	if status := filter.GetStatus(); status != nil {
		args = append(args, string(*status))
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}

	if filter.Search != "" {
		args = append(args, "%"+escapeLike(filter.Search)+"%")
		n := len(args)
		conditions = append(conditions, fmt.Sprintf(
			"(client_name ILIKE $%d OR client_email ILIKE $%d OR invoice_number ILIKE $%d)", n, n, n,
		))
	}

	if len(conditions) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}

// escapeLike makes user input match literally inside a LIKE pattern
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
