// Package queue defines the notification events exchanged over the message
// broker and the background consumer that processes them.
package queue

import "time"

// Queue names, one durable queue per event kind.
const (
	BookingConfirmedQueue     = "booking.confirmed"
	PaymentCompletedQueue     = "payment.completed"
	NewsletterSubscribedQueue = "newsletter.subscribed"
)

// BookingConfirmedEvent is published when a booking is confirmed and paid.
// It carries enough denormalized detail for downstream consumers to notify
// the client without querying the primary database.
type BookingConfirmedEvent struct {
	BookingID   uint64  `json:"booking_id"`
	UserID      uint64  `json:"user_id"`
	UserEmail   string  `json:"user_email"`
	UserName    string  `json:"user_name"`
	ServiceID   uint64  `json:"service_id"`
	ServiceName string  `json:"service_name"`
	BookingDate string  `json:"booking_date"`
	BookingTime string  `json:"booking_time"`
	Price       float64 `json:"price"`
	Currency    string  `json:"currency"`
	MeetingLink string  `json:"meeting_link,omitempty"`
	Language    string  `json:"language"`
	ConfirmedAt string  `json:"confirmed_at"`
}

// PaymentCompletedEvent is published when a ledger payment completes, for
// subscriptions and enrollments alike.
type PaymentCompletedEvent struct {
	PaymentID    uint64  `json:"payment_id"`
	UserID       uint64  `json:"user_id"`
	UserEmail    string  `json:"user_email"`
	Amount       float64 `json:"amount"`
	Currency     string  `json:"currency"`
	Method       string  `json:"payment_method"`
	RefType      string  `json:"related_entity_type"`
	RefID        uint64  `json:"related_entity_id"`
	GatewayTxnID string  `json:"gateway_transaction_id"`
	CompletedAt  string  `json:"completed_at"`
}

// NewsletterSubscribedEvent is published when an address joins the mailing
// list, so the welcome email can be sent out of band.
type NewsletterSubscribedEvent struct {
	Email        string `json:"email"`
	Name         string `json:"name"`
	Language     string `json:"language"`
	Source       string `json:"source"`
	SubscribedAt string `json:"subscribed_at"`
}

// Stamp formats an event timestamp consistently across publishers.
func Stamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
