// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow handlers to distinguish failure
// scenarios and map them onto HTTP statuses: validation problems are caught
// before the repository is reached, sql.ErrNoRows covers missing records,
// and the values below cover authorization and state conflicts.
package repository

import (
	"errors"
	"strings"
)

// isDuplicate reports whether a MySQL error is a unique-key violation
// (error 1062). Repositories map it onto a domain sentinel.
func isDuplicate(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "1062")
}

// ErrConflict is returned when an update cannot be performed because of
// conflicting state. Handlers translate this into HTTP 409.
var ErrConflict = errors.New("conflict")

// ErrEmailExists signals a unique-email violation on user creation.
var ErrEmailExists = errors.New("email already exists")

// ErrSlotTaken signals that another booking already holds the confirmed
// slot for the same (service, date, time). Raised by the unique
// confirmed_slot column, so it holds under concurrent confirms.
var ErrSlotTaken = errors.New("time slot is already booked")

// ErrCouponExhausted is returned when a conditional usage increment matches
// no row: the coupon is inactive, outside its window, or at its cap.
var ErrCouponExhausted = errors.New("coupon is expired or exhausted")

// ErrActiveSubscription is returned when a user who already holds an
// active subscription attempts to subscribe again.
var ErrActiveSubscription = errors.New("user already has an active subscription")

// ErrDuplicateCode signals a unique-code violation on coupon creation.
var ErrDuplicateCode = errors.New("coupon code already exists")

// ErrDuplicateSlug signals a unique-slug violation on landing page creation.
var ErrDuplicateSlug = errors.New("slug already exists")

// ErrOrphanPayment is returned when a payment references a subscription,
// booking or enrollment that no longer exists. The confirmation is failed
// instead of completing the payment with nothing to activate.
var ErrOrphanPayment = errors.New("payment references a missing entity")
