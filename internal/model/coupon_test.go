package model

import (
	"testing"
	"time"
)

func TestDiscountPercentage(t *testing.T) {
	c := Coupon{DiscountType: DiscountPercentage, DiscountValue: 25}
	discount, final := c.Discount(200)
	if discount != 50 || final != 150 {
		t.Fatalf("expected 50/150, got %v/%v", discount, final)
	}
}

func TestDiscountPercentageCapped(t *testing.T) {
	cap := 30.0
	c := Coupon{DiscountType: DiscountPercentage, DiscountValue: 25, MaximumDiscount: &cap}
	discount, final := c.Discount(200)
	if discount != 30 || final != 170 {
		t.Fatalf("expected cap to apply, got %v/%v", discount, final)
	}
}

func TestDiscountFixed(t *testing.T) {
	c := Coupon{DiscountType: DiscountFixed, DiscountValue: 75}
	discount, final := c.Discount(100)
	if discount != 75 || final != 25 {
		t.Fatalf("expected 75/25, got %v/%v", discount, final)
	}
}

func TestDiscountNeverNegative(t *testing.T) {
	c := Coupon{DiscountType: DiscountFixed, DiscountValue: 150}
	_, final := c.Discount(100)
	if final != 0 {
		t.Fatalf("expected final amount floored at 0, got %v", final)
	}
}

func TestValidAtWindow(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	until := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	c := Coupon{IsActive: true, ValidFrom: &from, ValidUntil: &until}

	if c.ValidAt(time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("coupon valid before its window")
	}
	if !c.ValidAt(time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("coupon invalid inside its window")
	}
	if c.ValidAt(time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("coupon valid after its window")
	}
}

func TestValidAtInactive(t *testing.T) {
	c := Coupon{IsActive: false}
	if c.ValidAt(time.Now()) {
		t.Fatalf("inactive coupon reported valid")
	}
}

func TestValidAtUsageLimit(t *testing.T) {
	limit := 10
	c := Coupon{IsActive: true, UsageLimit: &limit, UsedCount: 9}
	if !c.ValidAt(time.Now()) {
		t.Fatalf("coupon with one use left reported invalid")
	}
	c.UsedCount = 10
	if c.ValidAt(time.Now()) {
		t.Fatalf("exhausted coupon reported valid")
	}
}

func TestAppliesTo(t *testing.T) {
	all := Coupon{ApplicableTo: CouponAll}
	if !all.AppliesTo(CouponBookings) || !all.AppliesTo(CouponCourses) {
		t.Fatalf("all-purpose coupon rejected a target")
	}
	scoped := Coupon{ApplicableTo: CouponSubscriptions}
	if !scoped.AppliesTo(CouponSubscriptions) {
		t.Fatalf("scoped coupon rejected its own target")
	}
	if scoped.AppliesTo(CouponBookings) {
		t.Fatalf("subscription coupon accepted for bookings")
	}
}

func TestMeetsMinimum(t *testing.T) {
	c := Coupon{DiscountType: DiscountPercentage, DiscountValue: 20, MinimumAmount: 10}
	if c.MeetsMinimum(5) {
		t.Fatalf("amount 5 accepted below minimum 10")
	}
	if !c.MeetsMinimum(10) {
		t.Fatalf("amount equal to the minimum rejected")
	}
	discount, final := c.Discount(50)
	if discount != 10 || final != 40 {
		t.Fatalf("Discount(50) = %v, %v, want 10, 40", discount, final)
	}
}
