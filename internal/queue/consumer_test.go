package queue

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

func TestFormatLineBookingConfirmed(t *testing.T) {
	ev := BookingConfirmedEvent{
		BookingID:   5,
		UserID:      12,
		UserEmail:   "nour@example.com",
		ServiceName: "Reiki Session",
		BookingDate: "2026-03-10",
		BookingTime: "13:30",
		Price:       350,
		Currency:    "EGP",
		Language:    "en",
		ConfirmedAt: Stamp(time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)),
	}
	body, _ := json.Marshal(ev)
	line, err := formatLine(BookingConfirmedQueue, body)
	if err != nil {
		t.Fatalf("formatLine error: %v", err)
	}
	for _, want := range []string{"booking_id=5", "email=nour@example.com", "350.00 EGP", "2026-03-10 13:30"} {
		if !strings.Contains(line, want) {
			t.Fatalf("line missing %q: %s", want, line)
		}
	}
	if !strings.HasSuffix(line, "\n") {
		t.Fatalf("line not newline terminated")
	}
}

func TestFormatLineMalformedBody(t *testing.T) {
	if _, err := formatLine(PaymentCompletedQueue, []byte("{not json")); err == nil {
		t.Fatalf("expected error for malformed body")
	}
}

func TestFormatLineUnknownQueue(t *testing.T) {
	if _, err := formatLine("unknown.queue", []byte("{}")); err == nil {
		t.Fatalf("expected error for unknown queue")
	}
}

func TestStamp(t *testing.T) {
	got := Stamp(time.Date(2026, 3, 9, 10, 30, 0, 0, time.FixedZone("EET", 2*3600)))
	if got != "2026-03-09T08:30:00Z" {
		t.Fatalf("unexpected stamp: %s", got)
	}
}

func TestForwardStopsWhenDone(t *testing.T) {
	in := make(chan amqp.Delivery, 1)
	out := make(chan taggedDelivery)
	done := make(chan struct{})
	stopped := make(chan struct{})

	go func() {
		forward(BookingConfirmedQueue, in, out, done)
		close(stopped)
	}()

	// Nobody reads out, so the forwarder is parked on the send when the
	// consume loop gives up.
	in <- amqp.Delivery{Body: []byte("{}")}
	close(done)

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatalf("forwarder still blocked after done closed")
	}
}

func TestForwardStopsWhenSourceCloses(t *testing.T) {
	in := make(chan amqp.Delivery)
	out := make(chan taggedDelivery, 1)
	done := make(chan struct{})
	stopped := make(chan struct{})

	go func() {
		forward(PaymentCompletedQueue, in, out, done)
		close(stopped)
	}()

	close(in)
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatalf("forwarder did not exit when its delivery channel closed")
	}
}
