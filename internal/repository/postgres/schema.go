package postgres

import (
	"context"

	"github.com/flexprice/invoicing/internal/postgres"
)

// Schema creates the invoices table and its indexes. It is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS invoices (
	id             VARCHAR(50)   PRIMARY KEY,
	invoice_number VARCHAR(50)   NOT NULL,
	client_name    TEXT          NOT NULL,
	client_email   TEXT          NOT NULL,
	client_address TEXT          NOT NULL DEFAULT '',
	invoice_date   TIMESTAMPTZ   NOT NULL,
	due_date       TIMESTAMPTZ   NOT NULL,
	items          JSONB         NOT NULL DEFAULT '[]',
	subtotal       NUMERIC(14,2) NOT NULL,
	tax_rate       NUMERIC(5,2)  NOT NULL DEFAULT 0,
	tax_amount     NUMERIC(14,2) NOT NULL,
	total          NUMERIC(14,2) NOT NULL,
	notes          TEXT          NOT NULL DEFAULT '',
	status         VARCHAR(20)   NOT NULL,
	sent_at        TIMESTAMPTZ,
	paid_at        TIMESTAMPTZ,
	version        INTEGER       NOT NULL DEFAULT 1,
	created_at     TIMESTAMPTZ   NOT NULL,
	updated_at     TIMESTAMPTZ   NOT NULL,
	CONSTRAINT uniq_invoice_number UNIQUE (invoice_number),
	CONSTRAINT chk_invoice_status CHECK (status IN ('draft', 'pending', 'paid'))
);

CREATE INDEX IF NOT EXISTS idx_invoices_status_created_at ON invoices (status, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_invoices_client_name ON invoices (client_name);
CREATE INDEX IF NOT EXISTS idx_invoices_client_email ON invoices (client_email);
`

// EnsureSchema applies Schema
func EnsureSchema(ctx context.Context, db *postgres.DB) error {
	_, err := db.ExecContext(ctx, Schema)
	return err
}
