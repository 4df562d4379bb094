package model

import (
	"testing"
	"time"
)

func TestSubscriptionActiveAt(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	s := Subscription{Status: SubActive, EndDate: now.AddDate(0, 1, 0)}
	if !s.ActiveAt(now) {
		t.Fatalf("active subscription with a month left reported inactive")
	}
}

func TestSubscriptionLapsed(t *testing.T) {
	// Expiry is evaluated lazily: a subscription past its end date is
	// inactive even while its status column still says active.
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	s := Subscription{Status: SubActive, EndDate: now.Add(-time.Hour)}
	if s.ActiveAt(now) {
		t.Fatalf("lapsed subscription reported active")
	}
	s.EndDate = now
	if s.ActiveAt(now) {
		t.Fatalf("subscription ending this instant reported active")
	}
}

func TestSubscriptionPendingNotActive(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	for _, status := range []string{SubPending, SubCancelled, SubExpired} {
		s := Subscription{Status: status, EndDate: now.AddDate(1, 0, 0)}
		if s.ActiveAt(now) {
			t.Fatalf("%s subscription reported active", status)
		}
	}
}

func TestSubscriptionDaysRemaining(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	s := Subscription{Status: SubActive, EndDate: now.AddDate(0, 0, 10)}
	if got := s.JSON(now)["days_remaining"]; got != 10 {
		t.Fatalf("expected 10 days remaining, got %v", got)
	}
	s.EndDate = now.Add(-time.Hour)
	if got := s.JSON(now)["days_remaining"]; got != 0 {
		t.Fatalf("expected 0 days remaining after expiry, got %v", got)
	}
}
