package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/healing-center/internal/model"
)

// SlotRepo manages the explicitly configured availability calendar.
// Date and time-of-day columns are read back as strings (YYYY-MM-DD,
// HH:MM) since all slot arithmetic happens on those representations.
type SlotRepo struct{ db *sql.DB }

func NewSlotRepo(db *sql.DB) *SlotRepo { return &SlotRepo{db: db} }

// ListRange returns the available slots configured within [start, end]
// (inclusive date strings), ordered chronologically.
func (r *SlotRepo) ListRange(ctx context.Context, start, end string) ([]model.AvailableSlot, error) {
	const q = `SELECT id, DATE_FORMAT(date, '%Y-%m-%d'), TIME_FORMAT(start_time, '%H:%i'),
	                  TIME_FORMAT(end_time, '%H:%i'), is_available, created_at
	           FROM available_slots
	           WHERE date >= ? AND date <= ? AND is_available = 1
	           ORDER BY date, start_time`
	rows, err := r.db.QueryContext(ctx, q, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	slots := make([]model.AvailableSlot, 0)
	for rows.Next() {
		var s model.AvailableSlot
		if err := rows.Scan(&s.ID, &s.Date, &s.StartTime, &s.EndTime, &s.IsAvailable, &s.CreatedAt); err != nil {
			return nil, err
		}
		slots = append(slots, s)
	}
	return slots, rows.Err()
}

// Create inserts a configured slot and populates the generated ID.
func (r *SlotRepo) Create(ctx context.Context, s *model.AvailableSlot) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO available_slots (date, start_time, end_time, is_available) VALUES (?,?,?,1)`,
		s.Date, s.StartTime, s.EndTime)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	s.IsAvailable = true
	return nil
}
