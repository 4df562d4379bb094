package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/healing-center/internal/model"
)

// BookingRepo provides CRUD operations for bookings. Concurrency control
// around the one-confirmed-booking-per-slot invariant lives here: confirmed
// bookings carry a unique confirmed_slot key ("service:date:time") that the
// database enforces, so two concurrent confirms of the same slot cannot
// both succeed regardless of what the application observed beforehand.
type BookingRepo struct{ db *sql.DB }

func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

func (r *BookingRepo) DB() *sql.DB { return r.db }

const bookingCols = `id, user_id, service_id, DATE_FORMAT(booking_date, '%Y-%m-%d'),
       TIME_FORMAT(booking_time, '%H:%i'), duration_minutes, price, currency, status,
       payment_status, payment_id, payment_method, meeting_link, meeting_id, notes,
       created_at, updated_at`

// Create inserts a new pending booking and populates the generated ID.
// Status and payment_status default to pending in the schema.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO bookings (user_id, service_id, booking_date, booking_time,
		        duration_minutes, price, currency, notes)
		 VALUES (?,?,?,?,?,?,?,?)`,
		b.UserID, b.ServiceID, b.BookingDate, b.BookingTime,
		b.DurationMinutes, b.Price, b.Currency, b.Notes)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	b.Status = model.BookingPending
	b.PaymentStatus = model.PayPending
	return nil
}

// GetByID returns a single booking. Missing rows surface as sql.ErrNoRows.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (model.Booking, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+bookingCols+` FROM bookings WHERE id = ?`, id)
	return scanBooking(row)
}

// ExistsConfirmed reports whether a confirmed booking already occupies the
// given (service, date, time). Used for the fast pre-check at creation;
// the authoritative guard is the unique key applied at confirm time.
func (r *BookingRepo) ExistsConfirmed(ctx context.Context, serviceID uint64, date, timeOfDay string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bookings
		 WHERE service_id = ? AND booking_date = ? AND booking_time = ? AND status = ?`,
		serviceID, date, timeOfDay, model.BookingConfirmed).Scan(&n)
	return n > 0, err
}

// OccupiedKeys returns the "date_HH:MM" keys of slots held by pending or
// confirmed bookings of a service within [start, end].
func (r *BookingRepo) OccupiedKeys(ctx context.Context, serviceID uint64, start, end string) (map[string]bool, error) {
	const q = `SELECT DATE_FORMAT(booking_date, '%Y-%m-%d'), TIME_FORMAT(booking_time, '%H:%i')
	           FROM bookings
	           WHERE service_id = ? AND booking_date >= ? AND booking_date <= ?
	             AND status IN (?, ?)`
	rows, err := r.db.QueryContext(ctx, q, serviceID, start, end,
		model.BookingPending, model.BookingConfirmed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	keys := make(map[string]bool)
	for rows.Next() {
		var date, at string
		if err := rows.Scan(&date, &at); err != nil {
			return nil, err
		}
		keys[model.SlotKey(date, at)] = true
	}
	return keys, rows.Err()
}

// Confirm transitions a pending booking to confirmed/paid and claims the
// slot by writing the unique confirmed_slot key. A duplicate-key error
// means another booking already holds the slot (ErrSlotTaken); zero rows
// means the booking was not pending anymore (ErrConflict).
func (r *BookingRepo) Confirm(ctx context.Context, b *model.Booking, paymentID, paymentMethod, meetingLink, meetingID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE bookings
		 SET status = ?, payment_status = ?, payment_id = ?, payment_method = ?,
		     meeting_link = ?, meeting_id = ?, confirmed_slot = ?, updated_at = NOW()
		 WHERE id = ? AND status = ?`,
		model.BookingConfirmed, model.PayPaid, paymentID, paymentMethod,
		meetingLink, meetingID, b.ConfirmedSlotKey(), b.ID, model.BookingPending)
	if err != nil {
		if isDuplicate(err) {
			return ErrSlotTaken
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	b.Status = model.BookingConfirmed
	b.PaymentStatus = model.PayPaid
	b.PaymentID = paymentID
	b.PaymentMethod = paymentMethod
	b.MeetingLink = meetingLink
	b.MeetingID = meetingID
	return nil
}

// Cancel marks a booking cancelled and releases its slot key so the slot
// becomes bookable again.
func (r *BookingRepo) Cancel(ctx context.Context, id uint64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE bookings SET status = ?, confirmed_slot = NULL, updated_at = NOW() WHERE id = ?`,
		model.BookingCancelled, id)
	return err
}

// ListByUser returns a user's bookings newest first, optionally filtered by
// status.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64, status string) ([]model.Booking, error) {
	q := `SELECT ` + bookingCols + ` FROM bookings WHERE user_id = ?`
	args := []any{userID}
	if status != "" {
		q += ` AND status = ?`
		args = append(args, status)
	}
	q += ` ORDER BY booking_date DESC, booking_time DESC`
	return r.list(ctx, q, args...)
}

// ListAll returns all bookings for the admin surface with optional status
// and date-range filters (inclusive YYYY-MM-DD bounds).
func (r *BookingRepo) ListAll(ctx context.Context, status, dateFrom, dateTo string) ([]model.Booking, error) {
	q := `SELECT ` + bookingCols + ` FROM bookings WHERE 1=1`
	args := []any{}
	if status != "" {
		q += ` AND status = ?`
		args = append(args, status)
	}
	if dateFrom != "" {
		q += ` AND booking_date >= ?`
		args = append(args, dateFrom)
	}
	if dateTo != "" {
		q += ` AND booking_date <= ?`
		args = append(args, dateTo)
	}
	q += ` ORDER BY booking_date DESC, booking_time DESC`
	return r.list(ctx, q, args...)
}

func (r *BookingRepo) list(ctx context.Context, q string, args ...any) ([]model.Booking, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	bookings := make([]model.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

func scanBooking(row rowScanner) (model.Booking, error) {
	var (
		b                                          model.Booking
		paymentID, paymentMethod, meetLink, meetID sql.NullString
		notes                                      sql.NullString
	)
	err := row.Scan(&b.ID, &b.UserID, &b.ServiceID, &b.BookingDate, &b.BookingTime,
		&b.DurationMinutes, &b.Price, &b.Currency, &b.Status, &b.PaymentStatus,
		&paymentID, &paymentMethod, &meetLink, &meetID, &notes, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return model.Booking{}, err
	}
	b.PaymentID = paymentID.String
	b.PaymentMethod = paymentMethod.String
	b.MeetingLink = meetLink.String
	b.MeetingID = meetID.String
	b.Notes = notes.String
	return b, nil
}
