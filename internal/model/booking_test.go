package model

import (
	"testing"
	"time"
)

func TestCancellableOutsideWindow(t *testing.T) {
	b := Booking{BookingDate: "2026-03-10", BookingTime: "10:00"}
	now := time.Date(2026, 3, 8, 10, 0, 0, 0, time.UTC)
	if !b.Cancellable(now) {
		t.Fatalf("expected booking two days out to be cancellable")
	}
}

func TestCancellableExactlyAtBoundary(t *testing.T) {
	b := Booking{BookingDate: "2026-03-10", BookingTime: "10:00"}
	now := time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)
	if !b.Cancellable(now) {
		t.Fatalf("expected booking exactly 24h out to still be cancellable")
	}
}

func TestCancellableInsideWindow(t *testing.T) {
	b := Booking{BookingDate: "2026-03-10", BookingTime: "10:00"}
	now := time.Date(2026, 3, 9, 10, 0, 1, 0, time.UTC)
	if b.Cancellable(now) {
		t.Fatalf("expected booking inside the 24h window to be locked")
	}
	now = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	if b.Cancellable(now) {
		t.Fatalf("expected booking one hour out to be locked")
	}
}

func TestCancellableBadDate(t *testing.T) {
	b := Booking{BookingDate: "not-a-date", BookingTime: "10:00"}
	if b.Cancellable(time.Now()) {
		t.Fatalf("expected unparseable booking date to be not cancellable")
	}
}

func TestConfirmedSlotKey(t *testing.T) {
	b := Booking{ServiceID: 7, BookingDate: "2026-03-10", BookingTime: "13:30"}
	if got := b.ConfirmedSlotKey(); got != "7:2026-03-10:13:30" {
		t.Fatalf("unexpected slot key: %s", got)
	}
}

func TestMeetingLinkFor(t *testing.T) {
	link := MeetingLinkFor("https://meet.example.com/", 42, "2026-03-10")
	if link != "https://meet.example.com/healing-42-20260310" {
		t.Fatalf("unexpected meeting link: %s", link)
	}
}

func TestMeetingIDFor(t *testing.T) {
	at := time.Date(2026, 3, 9, 14, 5, 0, 0, time.UTC)
	if got := MeetingIDFor(42, at); got != "meeting_42_202603091405" {
		t.Fatalf("unexpected meeting id: %s", got)
	}
}

func TestDefaultSlotsWeekdays(t *testing.T) {
	// Monday through Friday, seven start times per day.
	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 6, 0, 0, 0, 0, time.UTC)
	slots := DefaultSlots(start, end, 60, nil)
	if len(slots) != 35 {
		t.Fatalf("expected 35 slots, got %d", len(slots))
	}
	first := slots[0]
	if first.Date != "2026-03-02" || first.StartTime != "09:00" || first.EndTime != "10:00" {
		t.Fatalf("unexpected first slot: %+v", first)
	}
	last := slots[len(slots)-1]
	if last.Date != "2026-03-06" || last.StartTime != "18:00" || last.EndTime != "19:00" {
		t.Fatalf("unexpected last slot: %+v", last)
	}
}

func TestDefaultSlotsSkipsWeekend(t *testing.T) {
	// Saturday and Sunday only.
	start := time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC)
	if slots := DefaultSlots(start, end, 60, nil); len(slots) != 0 {
		t.Fatalf("expected no weekend slots, got %d", len(slots))
	}
}

func TestDefaultSlotsSkipsBooked(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	booked := map[string]bool{
		SlotKey("2026-03-02", "10:30"): true,
		SlotKey("2026-03-02", "15:00"): true,
	}
	slots := DefaultSlots(day, day, 90, booked)
	if len(slots) != 5 {
		t.Fatalf("expected 5 free slots, got %d", len(slots))
	}
	for _, s := range slots {
		if s.StartTime == "10:30" || s.StartTime == "15:00" {
			t.Fatalf("booked slot %s offered", s.StartTime)
		}
		if s.DurationMinutes != 90 {
			t.Fatalf("unexpected duration: %d", s.DurationMinutes)
		}
	}
}
