package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/healing-center/internal/model"
)

// PaymentRepo is the payment ledger. Rows are append-mostly: a payment is
// created pending and later completed, failed or refunded; completed rows
// are never rewritten.
type PaymentRepo struct{ db *sql.DB }

func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

func (r *PaymentRepo) DB() *sql.DB { return r.db }

const paymentCols = `id, user_id, amount, currency, payment_method, gateway_transaction_id,
       status, related_entity_type, related_entity_id, payment_date, created_at`

// CreateTx inserts a pending ledger row inside the caller's transaction.
func (r *PaymentRepo) CreateTx(ctx context.Context, tx *sql.Tx, p *model.Payment) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO payments (user_id, amount, currency, payment_method,
		        related_entity_type, related_entity_id, status)
		 VALUES (?,?,?,?,?,?,?)`,
		p.UserID, p.Amount, p.Currency, p.PaymentMethod,
		p.RefType, p.RefID, model.PaymentPending)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	p.Status = model.PaymentPending
	return nil
}

// RecordCompleted inserts a ledger row that is already settled, used for
// flows where the gateway confirms before the ledger sees the payment
// (booking confirmation).
func (r *PaymentRepo) RecordCompleted(ctx context.Context, p *model.Payment, gatewayTxnID string, now time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO payments (user_id, amount, currency, payment_method, gateway_transaction_id,
		        related_entity_type, related_entity_id, status, payment_date)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		p.UserID, p.Amount, p.Currency, p.PaymentMethod, gatewayTxnID,
		p.RefType, p.RefID, model.PaymentCompleted, now.UTC())
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	p.Status = model.PaymentCompleted
	p.GatewayTxnID = gatewayTxnID
	at := now.UTC()
	p.PaidAt = &at
	return nil
}

// GetByID returns one payment row.
func (r *PaymentRepo) GetByID(ctx context.Context, id uint64) (model.Payment, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+paymentCols+` FROM payments WHERE id = ?`, id)
	return scanPayment(row)
}

// GetPendingForUserTx locks and returns a pending payment owned by the user,
// inside the confirmation transaction. sql.ErrNoRows covers both a missing
// row and one owned by someone else.
func (r *PaymentRepo) GetPendingForUserTx(ctx context.Context, tx *sql.Tx, id, userID uint64) (model.Payment, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+paymentCols+` FROM payments
		 WHERE id = ? AND user_id = ? AND status = ? FOR UPDATE`,
		id, userID, model.PaymentPending)
	return scanPayment(row)
}

// CompleteTx marks a payment completed with the gateway transaction ID and
// the completion instant.
func (r *PaymentRepo) CompleteTx(ctx context.Context, tx *sql.Tx, id uint64, gatewayTxnID string, now time.Time) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE payments SET status = ?, gateway_transaction_id = ?, payment_date = ?
		 WHERE id = ? AND status = ?`,
		model.PaymentCompleted, gatewayTxnID, now.UTC(), id, model.PaymentPending)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

// FailTx marks a payment failed inside the caller's transaction.
func (r *PaymentRepo) FailTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE payments SET status = ? WHERE id = ? AND status = ?`,
		model.PaymentFailed, id, model.PaymentPending)
	return err
}

// ListByUser returns a user's payment history, newest first.
func (r *PaymentRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Payment, error) {
	return r.list(ctx,
		`SELECT `+paymentCols+` FROM payments WHERE user_id = ? ORDER BY created_at DESC`,
		userID)
}

// ListAll returns the full ledger for the admin surface with optional status
// and entity-kind filters.
func (r *PaymentRepo) ListAll(ctx context.Context, status, refType string) ([]model.Payment, error) {
	q := `SELECT ` + paymentCols + ` FROM payments WHERE 1=1`
	args := []any{}
	if status != "" {
		q += ` AND status = ?`
		args = append(args, status)
	}
	if refType != "" {
		q += ` AND related_entity_type = ?`
		args = append(args, refType)
	}
	q += ` ORDER BY created_at DESC`
	return r.list(ctx, q, args...)
}

func (r *PaymentRepo) list(ctx context.Context, q string, args ...any) ([]model.Payment, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	payments := make([]model.Payment, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func scanPayment(row rowScanner) (model.Payment, error) {
	var (
		p       model.Payment
		gateway sql.NullString
		paidAt  sql.NullTime
	)
	err := row.Scan(&p.ID, &p.UserID, &p.Amount, &p.Currency, &p.PaymentMethod,
		&gateway, &p.Status, &p.RefType, &p.RefID, &paidAt, &p.CreatedAt)
	if err != nil {
		return model.Payment{}, err
	}
	p.GatewayTxnID = gateway.String
	if paidAt.Valid {
		t := paidAt.Time
		p.PaidAt = &t
	}
	return p, nil
}
