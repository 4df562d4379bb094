package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/healing-center/internal/model"
)

// CouponRepo stores discount codes. Apply increments the usage counter with
// a conditional UPDATE whose WHERE clause re-checks the cap, so the limit
// holds even when two applies race.
type CouponRepo struct{ db *sql.DB }

func NewCouponRepo(db *sql.DB) *CouponRepo { return &CouponRepo{db: db} }

const couponCols = `id, code, name_ar, name_en, description_ar, description_en,
       discount_type, discount_value, minimum_amount, maximum_discount, usage_limit,
       used_count, applicable_to, is_active, valid_from, valid_until, created_at`

// GetByCode looks a coupon up by its code, case-insensitively. Codes are
// stored upper-case; sql.ErrNoRows means unknown code.
func (r *CouponRepo) GetByCode(ctx context.Context, code string) (model.Coupon, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+couponCols+` FROM coupons WHERE code = ?`,
		strings.ToUpper(strings.TrimSpace(code)))
	return scanCoupon(row)
}

// Apply consumes one use of the coupon. The WHERE clause re-validates the
// active flag, window and cap atomically; zero matched rows means the
// coupon was invalid or exhausted at the moment of the update.
func (r *CouponRepo) Apply(ctx context.Context, id uint64, now time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE coupons SET used_count = used_count + 1
		 WHERE id = ? AND is_active = 1
		   AND (valid_from IS NULL OR valid_from <= ?)
		   AND (valid_until IS NULL OR valid_until >= ?)
		   AND (usage_limit IS NULL OR used_count < usage_limit)`,
		id, now.UTC(), now.UTC())
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrCouponExhausted
	}
	return nil
}

// Create inserts a coupon, normalizing the code to upper-case. A duplicate
// code surfaces as ErrDuplicateCode.
func (r *CouponRepo) Create(ctx context.Context, c *model.Coupon) error {
	c.Code = strings.ToUpper(strings.TrimSpace(c.Code))
	var validFrom, validUntil any
	if c.ValidFrom != nil {
		validFrom = c.ValidFrom.UTC()
	}
	if c.ValidUntil != nil {
		validUntil = c.ValidUntil.UTC()
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO coupons (code, name_ar, name_en, description_ar, description_en,
		        discount_type, discount_value, minimum_amount, maximum_discount,
		        usage_limit, applicable_to, is_active, valid_from, valid_until)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		c.Code, c.NameAR, c.NameEN, c.DescriptionAR, c.DescriptionEN,
		c.DiscountType, c.DiscountValue, c.MinimumAmount, c.MaximumDiscount,
		c.UsageLimit, c.ApplicableTo, c.IsActive, validFrom, validUntil)
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicateCode
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	return nil
}

// List returns every coupon for the admin surface, newest first.
func (r *CouponRepo) List(ctx context.Context) ([]model.Coupon, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+couponCols+` FROM coupons ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	coupons := make([]model.Coupon, 0)
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, err
		}
		coupons = append(coupons, c)
	}
	return coupons, rows.Err()
}

func scanCoupon(row rowScanner) (model.Coupon, error) {
	var (
		c                    model.Coupon
		nameAR, nameEN       sql.NullString
		descAR, desc         sql.NullString
		maxDiscount          sql.NullFloat64
		usageLimit           sql.NullInt64
		validFrom, validTill sql.NullTime
	)
	err := row.Scan(&c.ID, &c.Code, &nameAR, &nameEN, &descAR, &desc,
		&c.DiscountType, &c.DiscountValue, &c.MinimumAmount, &maxDiscount, &usageLimit,
		&c.UsedCount, &c.ApplicableTo, &c.IsActive, &validFrom, &validTill, &c.CreatedAt)
	if err != nil {
		return model.Coupon{}, err
	}
	c.NameAR = nameAR.String
	c.NameEN = nameEN.String
	c.DescriptionAR = descAR.String
	c.DescriptionEN = desc.String
	if maxDiscount.Valid {
		v := maxDiscount.Float64
		c.MaximumDiscount = &v
	}
	if usageLimit.Valid {
		v := int(usageLimit.Int64)
		c.UsageLimit = &v
	}
	if validFrom.Valid {
		t := validFrom.Time
		c.ValidFrom = &t
	}
	if validTill.Valid {
		t := validTill.Time
		c.ValidUntil = &t
	}
	return c, nil
}
