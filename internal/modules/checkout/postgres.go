package checkout

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

type postgresLedger struct{ db *sql.DB }

// NewPostgresLedger creates a Ledger over the pending_transactions table.
func NewPostgresLedger(db *sql.DB) Ledger { return &postgresLedger{db: db} }

func (r *postgresLedger) Create(ctx context.Context, sale PendingSale) (string, error) {
	if len(sale.Items) == 0 {
		return "", fmt.Errorf("sale must contain at least one item")
	}
	if sale.EmployeeID == "" {
		return "", fmt.Errorf("employee_id is required")
	}
	items, err := json.Marshal(sale.Items)
	if err != nil {
		return "", fmt.Errorf("encode items: %w", err)
	}

	id := uuid.New()
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO pending_transactions
		  (id, employee_id, employee_email, employee_type, customer_id, items,
		   subtotal, tax, discount, total, payment_method, tendered_amount, change_given,
		   status, is_pending, is_finalized, created_at, created_at_ts, source, version)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)`,
		id, sale.EmployeeID, sale.EmployeeEmail, sale.EmployeeType, sale.CustomerID, items,
		sale.Subtotal, sale.Tax, sale.Discount, sale.Total, sale.PaymentMethod,
		sale.TenderedAmount, sale.ChangeGiven,
		sale.Status, sale.IsPending, sale.IsFinalized, sale.CreatedAt, sale.CreatedAtTS,
		sale.Source, sale.Version)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
