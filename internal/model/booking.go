package model

import (
	"fmt"
	"time"
)

// Booking status values. A booking starts pending, becomes confirmed once
// payment succeeds, and ends completed or cancelled.
const (
	BookingPending   = "pending"
	BookingConfirmed = "confirmed"
	BookingCompleted = "completed"
	BookingCancelled = "cancelled"
)

// Payment status values shared by bookings and enrollments.
const (
	PayPending  = "pending"
	PayPaid     = "paid"
	PayFailed   = "failed"
	PayRefunded = "refunded"
)

// MinCancelNotice is the shortest notice at which a client may still cancel
// a booking. Cancellations inside this window are rejected.
const MinCancelNotice = 24 * time.Hour

// Booking records a client's appointment for a service. Price, currency and
// duration are snapshotted from the service at creation time so later
// catalog changes do not affect existing bookings.
type Booking struct {
	ID              uint64    // bookings.id
	UserID          uint64    // bookings.user_id
	ServiceID       uint64    // bookings.service_id
	BookingDate     string    // bookings.booking_date (YYYY-MM-DD)
	BookingTime     string    // bookings.booking_time (HH:MM)
	DurationMinutes int       // bookings.duration_minutes (snapshot)
	Price           float64   // bookings.price (snapshot)
	Currency        string    // bookings.currency (snapshot)
	Status          string    // bookings.status
	PaymentStatus   string    // bookings.payment_status
	PaymentID       string    // bookings.payment_id (gateway reference)
	PaymentMethod   string    // bookings.payment_method
	MeetingLink     string    // bookings.meeting_link (online services only)
	MeetingID       string    // bookings.meeting_id
	Notes           string    // bookings.notes
	CreatedAt       time.Time // bookings.created_at
	UpdatedAt       time.Time // bookings.updated_at
}

// StartsAt combines the booking date and time into a UTC instant.
func (b Booking) StartsAt() (time.Time, error) {
	return time.Parse("2006-01-02 15:04", b.BookingDate+" "+b.BookingTime)
}

// Cancellable reports whether the booking may still be cancelled at the
// given instant: the appointment start must be at least MinCancelNotice
// away. Exactly 24 hours out still qualifies.
func (b Booking) Cancellable(now time.Time) bool {
	start, err := b.StartsAt()
	if err != nil {
		return false
	}
	return !start.Before(now.Add(MinCancelNotice))
}

// ConfirmedSlotKey is the value stored in the bookings.confirmed_slot unique
// column while a booking holds its slot. One confirmed booking per
// (service, date, time) is enforced by the database through this key.
func (b Booking) ConfirmedSlotKey() string {
	return fmt.Sprintf("%d:%s:%s", b.ServiceID, b.BookingDate, b.BookingTime)
}

// MeetingLinkFor derives a deterministic meeting URL for an online session
// from the booking id and date. Placeholder until a conferencing provider
// is integrated.
func MeetingLinkFor(baseURL string, bookingID uint64, bookingDate string) string {
	return fmt.Sprintf("%shealing-%d-%s", baseURL, bookingID, compactDate(bookingDate))
}

// MeetingIDFor derives the matching meeting identifier, stamped with the
// confirmation instant.
func MeetingIDFor(bookingID uint64, confirmedAt time.Time) string {
	return fmt.Sprintf("meeting_%d_%s", bookingID, confirmedAt.UTC().Format("200601021504"))
}

func compactDate(date string) string {
	out := make([]byte, 0, len(date))
	for i := 0; i < len(date); i++ {
		if date[i] != '-' {
			out = append(out, date[i])
		}
	}
	return string(out)
}

// JSON returns the response shape of a booking.
func (b Booking) JSON() map[string]any {
	return map[string]any{
		"id":               b.ID,
		"user_id":          b.UserID,
		"service_id":       b.ServiceID,
		"booking_date":     b.BookingDate,
		"booking_time":     b.BookingTime,
		"duration_minutes": b.DurationMinutes,
		"price":            b.Price,
		"currency":         b.Currency,
		"status":           b.Status,
		"payment_status":   b.PaymentStatus,
		"payment_method":   b.PaymentMethod,
		"meeting_link":     b.MeetingLink,
		"notes":            b.Notes,
		"created_at":       b.CreatedAt.UTC().Format(time.RFC3339),
		"updated_at":       b.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
