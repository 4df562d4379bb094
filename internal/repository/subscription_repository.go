package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/healing-center/internal/model"
)

// SubscriptionRepo manages membership plans and subscriptions. Subscribe
// runs inside a transaction that locks the user's row, so two concurrent
// subscribe requests for the same user serialize and the second one sees
// the first one's subscription.
type SubscriptionRepo struct{ db *sql.DB }

func NewSubscriptionRepo(db *sql.DB) *SubscriptionRepo { return &SubscriptionRepo{db: db} }

func (r *SubscriptionRepo) DB() *sql.DB { return r.db }

const planCols = `id, name_ar, name_en, description_ar, description_en, price, currency,
       duration_days, plan_type, features, is_active, created_at`

const subCols = `id, user_id, plan_id, start_date, end_date, status, payment_status,
       payment_method, auto_renew, created_at, updated_at`

// ListPlans returns membership plans cheapest first. activeOnly hides
// retired plans from the public listing.
func (r *SubscriptionRepo) ListPlans(ctx context.Context, activeOnly bool) ([]model.MembershipPlan, error) {
	q := `SELECT ` + planCols + ` FROM membership_plans`
	if activeOnly {
		q += ` WHERE is_active = 1`
	}
	q += ` ORDER BY price ASC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	plans := make([]model.MembershipPlan, 0)
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

func (r *SubscriptionRepo) GetPlan(ctx context.Context, id uint64) (model.MembershipPlan, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+planCols+` FROM membership_plans WHERE id = ?`, id)
	return scanPlan(row)
}

func (r *SubscriptionRepo) CreatePlan(ctx context.Context, p *model.MembershipPlan) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO membership_plans (name_ar, name_en, description_ar, description_en,
		        price, currency, duration_days, plan_type, features, is_active)
		 VALUES (?,?,?,?,?,?,?,?,?,?)`,
		p.NameAR, p.NameEN, p.DescriptionAR, p.DescriptionEN,
		p.Price, p.Currency, p.DurationDays, p.PlanType, p.Features, p.IsActive)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

// GetActiveByUser returns the user's subscription if it is active and not
// past its end date; sql.ErrNoRows otherwise.
func (r *SubscriptionRepo) GetActiveByUser(ctx context.Context, userID uint64, now time.Time) (model.Subscription, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+subCols+` FROM subscriptions
		 WHERE user_id = ? AND status = ? AND end_date > ?
		 ORDER BY end_date DESC LIMIT 1`,
		userID, model.SubActive, now.UTC())
	return scanSubscription(row)
}

// HasActive reports whether the user holds an active membership right now.
func (r *SubscriptionRepo) HasActive(ctx context.Context, userID uint64, now time.Time) (bool, error) {
	_, err := r.GetActiveByUser(ctx, userID, now)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CreateTx inserts a pending subscription after locking the user's row and
// verifying no active subscription exists. The lock serializes concurrent
// subscribes; the second caller gets ErrActiveSubscription.
func (r *SubscriptionRepo) CreateTx(ctx context.Context, tx *sql.Tx, s *model.Subscription, now time.Time) error {
	var userID uint64
	if err := tx.QueryRowContext(ctx,
		`SELECT id FROM users WHERE id = ? FOR UPDATE`, s.UserID).Scan(&userID); err != nil {
		return err
	}
	var n int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM subscriptions WHERE user_id = ? AND status = ? AND end_date > ?`,
		s.UserID, model.SubActive, now.UTC()).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return ErrActiveSubscription
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO subscriptions (user_id, plan_id, start_date, end_date, status,
		        payment_status, payment_method, auto_renew)
		 VALUES (?,?,?,?,?,?,?,?)`,
		s.UserID, s.PlanID, s.StartDate.UTC(), s.EndDate.UTC(), model.SubPending,
		model.PaymentPending, s.PaymentMethod, s.AutoRenew)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	s.Status = model.SubPending
	s.PaymentStatus = model.PaymentPending
	return nil
}

// GetTx re-reads a subscription inside a transaction.
func (r *SubscriptionRepo) GetTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Subscription, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+subCols+` FROM subscriptions WHERE id = ?`, id)
	return scanSubscription(row)
}

// ActivateTx flips a pending subscription to active/paid when its payment
// completes. Zero rows means the subscription was not pending.
func (r *SubscriptionRepo) ActivateTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE subscriptions SET status = ?, payment_status = ?, updated_at = NOW()
		 WHERE id = ? AND status = ?`,
		model.SubActive, model.PaymentCompleted, id, model.SubPending)
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

// Cancel marks a subscription cancelled and turns auto-renew off. Ownership
// is checked in the WHERE clause; zero rows means not found or not owned.
func (r *SubscriptionRepo) Cancel(ctx context.Context, id, userID uint64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE subscriptions SET status = ?, auto_renew = 0, updated_at = NOW()
		 WHERE id = ? AND user_id = ? AND status IN (?, ?)`,
		model.SubCancelled, id, userID, model.SubActive, model.SubPending)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListAll returns every subscription for the admin surface, optionally
// filtered by status.
func (r *SubscriptionRepo) ListAll(ctx context.Context, status string) ([]model.Subscription, error) {
	q := `SELECT ` + subCols + ` FROM subscriptions`
	args := []any{}
	if status != "" {
		q += ` WHERE status = ?`
		args = append(args, status)
	}
	q += ` ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	subs := make([]model.Subscription, 0)
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

func scanPlan(row rowScanner) (model.MembershipPlan, error) {
	var (
		p                      model.MembershipPlan
		descAR, desc, features sql.NullString
	)
	err := row.Scan(&p.ID, &p.NameAR, &p.NameEN, &descAR, &desc, &p.Price, &p.Currency,
		&p.DurationDays, &p.PlanType, &features, &p.IsActive, &p.CreatedAt)
	if err != nil {
		return model.MembershipPlan{}, err
	}
	p.DescriptionAR = descAR.String
	p.DescriptionEN = desc.String
	p.Features = features.String
	return p, nil
}

func scanSubscription(row rowScanner) (model.Subscription, error) {
	var (
		s      model.Subscription
		method sql.NullString
	)
	err := row.Scan(&s.ID, &s.UserID, &s.PlanID, &s.StartDate, &s.EndDate, &s.Status,
		&s.PaymentStatus, &method, &s.AutoRenew, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return model.Subscription{}, err
	}
	s.PaymentMethod = method.String
	return s, nil
}
