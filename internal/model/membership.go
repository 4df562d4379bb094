package model

import (
	"encoding/json"
	"time"
)

// Subscription status values. A subscription is created pending, becomes
// active once its payment completes, and ends cancelled or expired. Expiry
// is never swept in the background; it is evaluated lazily from end_date.
const (
	SubPending   = "pending"
	SubActive    = "active"
	SubCancelled = "cancelled"
	SubExpired   = "expired"
)

// Payment status values for ledger rows.
const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
	PaymentCancelled = "cancelled"
	PaymentRefunded  = "refunded"
)

// Entity kinds a payment can reference. The reference is a typed pair
// (kind, id) rather than a foreign key; payment confirmation switches on
// the kind explicitly so a wrong tag surfaces instead of dangling silently.
const (
	RefSubscription = "subscription"
	RefBooking      = "booking"
	RefEnrollment   = "course_enrollment"
)

// MembershipPlan is a purchasable membership tier. Features holds a JSON
// object of per-language feature lists.
type MembershipPlan struct {
	ID            uint64    // membership_plans.id
	NameAR        string    // membership_plans.name_ar
	NameEN        string    // membership_plans.name_en
	DescriptionAR string    // membership_plans.description_ar
	DescriptionEN string    // membership_plans.description_en
	Price         float64   // membership_plans.price
	Currency      string    // membership_plans.currency
	DurationDays  int       // membership_plans.duration_days (30 monthly, 365 yearly)
	PlanType      string    // membership_plans.plan_type (monthly, yearly)
	Features      string    // membership_plans.features (JSON: {"ar": [...], "en": [...]})
	IsActive      bool      // membership_plans.is_active
	CreatedAt     time.Time // membership_plans.created_at
}

func (p MembershipPlan) Localized(lang string) map[string]any {
	features := []string{}
	if p.Features != "" {
		var byLang map[string][]string
		if err := json.Unmarshal([]byte(p.Features), &byLang); err == nil {
			if list, ok := byLang[NormalizeLang(lang)]; ok {
				features = list
			}
		}
	}
	return map[string]any{
		"id":            p.ID,
		"name":          Pick(lang, p.NameAR, p.NameEN),
		"description":   Pick(lang, p.DescriptionAR, p.DescriptionEN),
		"price":         p.Price,
		"currency":      p.Currency,
		"duration_days": p.DurationDays,
		"plan_type":     p.PlanType,
		"features":      features,
		"is_active":     p.IsActive,
	}
}

// Subscription ties a user to a membership plan for [StartDate, EndDate].
type Subscription struct {
	ID            uint64    // subscriptions.id
	UserID        uint64    // subscriptions.user_id
	PlanID        uint64    // subscriptions.plan_id
	StartDate     time.Time // subscriptions.start_date
	EndDate       time.Time // subscriptions.end_date
	Status        string    // subscriptions.status
	PaymentStatus string    // subscriptions.payment_status
	PaymentMethod string    // subscriptions.payment_method
	AutoRenew     bool      // subscriptions.auto_renew
	CreatedAt     time.Time // subscriptions.created_at
	UpdatedAt     time.Time // subscriptions.updated_at
}

// ActiveAt reports whether the subscription grants membership at the given
// instant: status must be active and the end date still in the future.
// Every access check uses this predicate so a lapsed subscription is
// treated as inactive without any background sweep.
func (s Subscription) ActiveAt(now time.Time) bool {
	return s.Status == SubActive && s.EndDate.After(now)
}

func (s Subscription) JSON(now time.Time) map[string]any {
	days := 0
	if s.EndDate.After(now) {
		days = int(s.EndDate.Sub(now).Hours() / 24)
	}
	return map[string]any{
		"id":             s.ID,
		"user_id":        s.UserID,
		"plan_id":        s.PlanID,
		"start_date":     s.StartDate.UTC().Format(time.RFC3339),
		"end_date":       s.EndDate.UTC().Format(time.RFC3339),
		"status":         s.Status,
		"payment_status": s.PaymentStatus,
		"payment_method": s.PaymentMethod,
		"auto_renew":     s.AutoRenew,
		"days_remaining": days,
	}
}

// Payment is a ledger row recording money movement intent and outcome. The
// related entity is addressed by a typed (RefType, RefID) pair.
type Payment struct {
	ID            uint64     // payments.id
	UserID        uint64     // payments.user_id
	Amount        float64    // payments.amount
	Currency      string     // payments.currency
	PaymentMethod string     // payments.payment_method (stripe, paypal, fawry, vodafone_cash)
	GatewayTxnID  string     // payments.gateway_transaction_id
	Status        string     // payments.status
	RefType       string     // payments.related_entity_type
	RefID         uint64     // payments.related_entity_id
	PaidAt        *time.Time // payments.payment_date (nullable until completed)
	CreatedAt     time.Time  // payments.created_at
}

func (p Payment) JSON() map[string]any {
	var paidAt any
	if p.PaidAt != nil {
		paidAt = p.PaidAt.UTC().Format(time.RFC3339)
	}
	return map[string]any{
		"id":                     p.ID,
		"user_id":                p.UserID,
		"amount":                 p.Amount,
		"currency":               p.Currency,
		"payment_method":         p.PaymentMethod,
		"gateway_transaction_id": p.GatewayTxnID,
		"status":                 p.Status,
		"related_entity_type":    p.RefType,
		"related_entity_id":      p.RefID,
		"payment_date":           paidAt,
		"created_at":             p.CreatedAt.UTC().Format(time.RFC3339),
	}
}
