package model

import "time"

// Service describes a bookable offering: a healing session, consultation,
// workshop or distance treatment. Names and descriptions are bilingual.
// Inactive services are hidden from the public catalog and cannot be booked.
type Service struct {
	ID              uint64    // services.id
	NameAR          string    // services.name_ar
	NameEN          string    // services.name_en
	DescriptionAR   string    // services.description_ar
	DescriptionEN   string    // services.description_en
	Price           float64   // services.price
	Currency        string    // services.currency
	DurationMinutes int       // services.duration_minutes
	ServiceType     string    // services.service_type (healing, consultation, workshop, distance)
	IsActive        bool      // services.is_active
	IsOnline        bool      // services.is_online
	CreatedAt       time.Time // services.created_at
}

// Localized returns the JSON shape of a service with the bilingual pairs
// collapsed to the requested language.
func (s Service) Localized(lang string) map[string]any {
	return map[string]any{
		"id":               s.ID,
		"name":             Pick(lang, s.NameAR, s.NameEN),
		"description":      Pick(lang, s.DescriptionAR, s.DescriptionEN),
		"price":            s.Price,
		"currency":         s.Currency,
		"duration_minutes": s.DurationMinutes,
		"service_type":     s.ServiceType,
		"is_active":        s.IsActive,
		"is_online":        s.IsOnline,
	}
}

// AvailableSlot is a configured bookable interval in the practitioner's
// calendar. When none are configured for a date range the calendar falls
// back to a synthesized default schedule (see DefaultSlots).
type AvailableSlot struct {
	ID          uint64    // available_slots.id
	Date        string    // available_slots.date (YYYY-MM-DD)
	StartTime   string    // available_slots.start_time (HH:MM)
	EndTime     string    // available_slots.end_time (HH:MM)
	IsAvailable bool      // available_slots.is_available
	CreatedAt   time.Time // available_slots.created_at
}

// SlotOption is one bookable interval offered to a client for a specific
// service, either from a configured AvailableSlot or from the default
// schedule.
type SlotOption struct {
	Date            string `json:"date"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	DurationMinutes int    `json:"duration_minutes"`
}

// defaultStartTimes is the fixed daily schedule used when no slots are
// configured: seven sessions between 09:00 and 18:00.
var defaultStartTimes = []string{"09:00", "10:30", "12:00", "13:30", "15:00", "16:30", "18:00"}

// SlotKey identifies a (date, start time) pair the way occupied-slot lookups
// and the confirmed-booking uniqueness column do.
func SlotKey(date, startTime string) string {
	return date + "_" + startTime
}

// DefaultSlots synthesizes the fallback calendar for [start, end]: the fixed
// list of daily start times on weekdays only, skipping anything in booked.
// Slot end = start + duration. The range bounds are inclusive dates.
func DefaultSlots(start, end time.Time, durationMinutes int, booked map[string]bool) []SlotOption {
	slots := make([]SlotOption, 0)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		date := d.Format("2006-01-02")
		for _, st := range defaultStartTimes {
			if booked[SlotKey(date, st)] {
				continue
			}
			at, err := time.Parse("15:04", st)
			if err != nil {
				continue
			}
			slots = append(slots, SlotOption{
				Date:            date,
				StartTime:       st,
				EndTime:         at.Add(time.Duration(durationMinutes) * time.Minute).Format("15:04"),
				DurationMinutes: durationMinutes,
			})
		}
	}
	return slots
}
