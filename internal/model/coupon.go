package model

import "time"

// Coupon discount types.
const (
	DiscountPercentage = "percentage"
	DiscountFixed      = "fixed"
)

// Coupon targets: a coupon applies to everything or to one purchase kind.
const (
	CouponAll           = "all"
	CouponCourses       = "courses"
	CouponBookings      = "bookings"
	CouponSubscriptions = "subscriptions"
)

// Coupon is a discount code. Validity is never cached: it is recomputed
// from the stored window, flag and counters on every check. Usage
// accounting happens through a conditional UPDATE in the repository so the
// limit holds under concurrent applies.
type Coupon struct {
	ID              uint64     // coupons.id
	Code            string     // coupons.code (unique, stored upper-case)
	NameAR          string     // coupons.name_ar
	NameEN          string     // coupons.name_en
	DescriptionAR   string     // coupons.description_ar
	DescriptionEN   string     // coupons.description_en
	DiscountType    string     // coupons.discount_type (percentage, fixed)
	DiscountValue   float64    // coupons.discount_value
	MinimumAmount   float64    // coupons.minimum_amount
	MaximumDiscount *float64   // coupons.maximum_discount (nullable, percentage cap)
	UsageLimit      *int       // coupons.usage_limit (nullable = unlimited)
	UsedCount       int        // coupons.used_count
	ApplicableTo    string     // coupons.applicable_to
	IsActive        bool       // coupons.is_active
	ValidFrom       *time.Time // coupons.valid_from (nullable)
	ValidUntil      *time.Time // coupons.valid_until (nullable)
	CreatedAt       time.Time  // coupons.created_at
}

// ValidAt evaluates the validity predicate at the given instant: active
// flag, activity window and usage cap all checked fresh.
func (c Coupon) ValidAt(now time.Time) bool {
	if !c.IsActive {
		return false
	}
	if c.ValidFrom != nil && now.Before(*c.ValidFrom) {
		return false
	}
	if c.ValidUntil != nil && now.After(*c.ValidUntil) {
		return false
	}
	if c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit {
		return false
	}
	return true
}

// MeetsMinimum reports whether an order amount reaches the coupon's
// minimum order requirement.
func (c Coupon) MeetsMinimum(amount float64) bool {
	return amount >= c.MinimumAmount
}

// AppliesTo reports whether the coupon covers the given purchase kind.
func (c Coupon) AppliesTo(target string) bool {
	return c.ApplicableTo == CouponAll || c.ApplicableTo == target
}

// Discount computes the discount for an order amount and the resulting
// final amount. Percentage discounts are capped at MaximumDiscount when
// set; fixed discounts are taken outright. The final amount never drops
// below zero.
func (c Coupon) Discount(amount float64) (discount, final float64) {
	if c.DiscountType == DiscountPercentage {
		discount = amount * c.DiscountValue / 100
		if c.MaximumDiscount != nil && discount > *c.MaximumDiscount {
			discount = *c.MaximumDiscount
		}
	} else {
		discount = c.DiscountValue
	}
	final = amount - discount
	if final < 0 {
		final = 0
	}
	return discount, final
}

func (c Coupon) Localized(lang string, now time.Time) map[string]any {
	var validFrom, validUntil any
	if c.ValidFrom != nil {
		validFrom = c.ValidFrom.UTC().Format(time.RFC3339)
	}
	if c.ValidUntil != nil {
		validUntil = c.ValidUntil.UTC().Format(time.RFC3339)
	}
	var limit any
	if c.UsageLimit != nil {
		limit = *c.UsageLimit
	}
	var maxDiscount any
	if c.MaximumDiscount != nil {
		maxDiscount = *c.MaximumDiscount
	}
	return map[string]any{
		"id":               c.ID,
		"code":             c.Code,
		"name":             Pick(lang, c.NameAR, c.NameEN),
		"description":      Pick(lang, c.DescriptionAR, c.DescriptionEN),
		"discount_type":    c.DiscountType,
		"discount_value":   c.DiscountValue,
		"minimum_amount":   c.MinimumAmount,
		"maximum_discount": maxDiscount,
		"usage_limit":      limit,
		"used_count":       c.UsedCount,
		"applicable_to":    c.ApplicableTo,
		"is_active":        c.IsActive,
		"valid_from":       validFrom,
		"valid_until":      validUntil,
		"is_valid":         c.ValidAt(now),
	}
}
