package handler

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/healing-center/internal/config"
	"github.com/iliyamo/healing-center/internal/model"
	"github.com/iliyamo/healing-center/internal/queue"
	"github.com/iliyamo/healing-center/internal/repository"
	"github.com/iliyamo/healing-center/internal/service"
)

// BookingHandler implements the appointment lifecycle: create a pending
// booking, confirm it on payment, cancel it with enough notice. Price and
// duration are snapshotted at creation; the slot is only claimed against
// the database's unique key at confirmation.
type BookingHandler struct {
	Cfg      config.Config
	Bookings *repository.BookingRepo
	Services *repository.ServiceRepo
	Users    *repository.UserRepo
	Payments *repository.PaymentRepo
}

func NewBookingHandler(cfg config.Config, b *repository.BookingRepo, s *repository.ServiceRepo, u *repository.UserRepo, p *repository.PaymentRepo) *BookingHandler {
	if b == nil || s == nil || u == nil || p == nil {
		panic("nil repository passed to NewBookingHandler")
	}
	return &BookingHandler{Cfg: cfg, Bookings: b, Services: s, Users: u, Payments: p}
}

type createBookingReq struct {
	ServiceID   uint64 `json:"service_id"`
	BookingDate string `json:"booking_date"`
	BookingTime string `json:"booking_time"`
	Notes       string `json:"notes"`
}

// Create handles POST /v1/bookings. The booking date must be strictly in
// the future; a slot already confirmed for another client is rejected here
// as a fast check, and rejected authoritatively again at confirmation.
func (h *BookingHandler) Create(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createBookingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.ServiceID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "service_id is required"})
	}
	date, err := time.Parse("2006-01-02", req.BookingDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking_date, expected YYYY-MM-DD"})
	}
	if _, err := time.Parse("15:04", req.BookingTime); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking_time, expected HH:MM"})
	}
	today := time.Now().UTC().Truncate(24 * time.Hour)
	if !date.After(today) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "booking date must be in the future"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	svc, err := h.Services.GetByID(ctx, req.ServiceID)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "service not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !svc.IsActive {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "service not found"})
	}

	taken, err := h.Bookings.ExistsConfirmed(ctx, svc.ID, req.BookingDate, req.BookingTime)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if taken {
		return c.JSON(http.StatusConflict, echo.Map{"error": "time slot is already booked"})
	}

	b := model.Booking{
		UserID:          userID,
		ServiceID:       svc.ID,
		BookingDate:     req.BookingDate,
		BookingTime:     req.BookingTime,
		DurationMinutes: svc.DurationMinutes,
		Price:           svc.Price,
		Currency:        svc.Currency,
		Notes:           strings.TrimSpace(req.Notes),
	}
	if err := h.Bookings.Create(ctx, &b); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create booking failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"booking": b.JSON()})
}

type confirmBookingReq struct {
	PaymentID     string `json:"payment_id"`
	PaymentMethod string `json:"payment_method"`
}

// Confirm handles POST /v1/bookings/:id/confirm. The payment gateway
// callback (simulated by the client for now) reports success, the booking
// flips to confirmed/paid and claims the slot; for online services a
// meeting link is generated. The unique slot key makes the double-confirm
// race lose cleanly with a 409.
func (h *BookingHandler) Confirm(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	var req confirmBookingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.PaymentID) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "payment_id is required"})
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = "card"
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	b, err := h.Bookings.GetByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if b.UserID != userID && !isAdmin(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	if b.Status != model.BookingPending {
		return c.JSON(http.StatusConflict, echo.Map{"error": fmt.Sprintf("booking is %s, not pending", b.Status)})
	}

	svc, err := h.Services.GetByID(ctx, b.ServiceID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	now := time.Now().UTC()
	var meetingLink, meetingID string
	if svc.IsOnline {
		meetingLink = model.MeetingLinkFor(h.Cfg.MeetingBaseURL, b.ID, b.BookingDate)
		meetingID = model.MeetingIDFor(b.ID, now)
	}

	if err := h.Bookings.Confirm(ctx, &b, strings.TrimSpace(req.PaymentID), req.PaymentMethod, meetingLink, meetingID); err != nil {
		switch err {
		case repository.ErrSlotTaken:
			return c.JSON(http.StatusConflict, echo.Map{"error": "time slot is already booked"})
		case repository.ErrConflict:
			return c.JSON(http.StatusConflict, echo.Map{"error": "booking is no longer pending"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "confirm booking failed"})
	}

	// The slot is claimed and the money moved; a ledger insert failure is
	// logged and reconciled later from the booking row.
	ledger := model.Payment{
		UserID:        b.UserID,
		Amount:        b.Price,
		Currency:      b.Currency,
		PaymentMethod: b.PaymentMethod,
		RefType:       model.RefBooking,
		RefID:         b.ID,
	}
	if err := h.Payments.RecordCompleted(ctx, &ledger, b.PaymentID, now); err != nil {
		log.Printf("booking %d confirmed but ledger insert failed: %v", b.ID, err)
	}

	// Notify out of band; a broker outage must not fail a paid booking.
	if u, uerr := h.Users.GetByID(ctx, userID); uerr == nil {
		ev := queue.BookingConfirmedEvent{
			BookingID:   b.ID,
			UserID:      u.ID,
			UserEmail:   u.Email,
			UserName:    u.FullName(),
			ServiceID:   svc.ID,
			ServiceName: model.Pick(u.Language, svc.NameAR, svc.NameEN),
			BookingDate: b.BookingDate,
			BookingTime: b.BookingTime,
			Price:       b.Price,
			Currency:    b.Currency,
			MeetingLink: b.MeetingLink,
			Language:    u.Language,
			ConfirmedAt: queue.Stamp(now),
		}
		go func() { _ = service.PublishBookingConfirmed(context.Background(), ev) }()
	}

	return c.JSON(http.StatusOK, echo.Map{"booking": b.JSON()})
}

// Cancel handles POST /v1/bookings/:id/cancel. Cancellation needs at least
// 24 hours of notice before the appointment start; exactly 24 hours out
// still qualifies. Cancelling releases the slot.
func (h *BookingHandler) Cancel(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	b, err := h.Bookings.GetByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if b.UserID != userID && !isAdmin(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	if b.Status == model.BookingCancelled || b.Status == model.BookingCompleted {
		return c.JSON(http.StatusConflict, echo.Map{"error": fmt.Sprintf("booking is already %s", b.Status)})
	}
	if !b.Cancellable(time.Now().UTC()) {
		return c.JSON(http.StatusConflict, echo.Map{"error": "bookings can only be cancelled at least 24 hours in advance"})
	}

	if err := h.Bookings.Cancel(ctx, b.ID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cancel booking failed"})
	}
	b.Status = model.BookingCancelled
	return c.JSON(http.StatusOK, echo.Map{"booking": b.JSON()})
}

// MyBookings handles GET /v1/my-bookings with an optional status filter.
func (h *BookingHandler) MyBookings(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	status := c.QueryParam("status")
	if status != "" && !validBookingStatus(status) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status filter"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	bookings, err := h.Bookings.ListByUser(ctx, userID, status)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]map[string]any, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, b.JSON())
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": out})
}

// AdminList handles GET /v1/admin/bookings with status and date filters.
func (h *BookingHandler) AdminList(c echo.Context) error {
	status := c.QueryParam("status")
	if status != "" && !validBookingStatus(status) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status filter"})
	}
	dateFrom := c.QueryParam("date_from")
	dateTo := c.QueryParam("date_to")
	for _, d := range []string{dateFrom, dateTo} {
		if d == "" {
			continue
		}
		if _, err := time.Parse("2006-01-02", d); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date filter, expected YYYY-MM-DD"})
		}
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	bookings, err := h.Bookings.ListAll(ctx, status, dateFrom, dateTo)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]map[string]any, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, b.JSON())
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": out, "count": len(out)})
}

func validBookingStatus(s string) bool {
	switch s {
	case model.BookingPending, model.BookingConfirmed, model.BookingCompleted, model.BookingCancelled:
		return true
	}
	return false
}
