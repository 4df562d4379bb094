package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/healing-center/internal/config"
	"github.com/iliyamo/healing-center/internal/model"
	"github.com/iliyamo/healing-center/internal/repository"
)

// CatalogHandler serves the public service catalog, the availability
// calendar and the admin endpoints that maintain both.
type CatalogHandler struct {
	Cfg      config.Config
	Services *repository.ServiceRepo
	Slots    *repository.SlotRepo
	Bookings *repository.BookingRepo
}

func NewCatalogHandler(cfg config.Config, s *repository.ServiceRepo, sl *repository.SlotRepo, b *repository.BookingRepo) *CatalogHandler {
	if s == nil || sl == nil || b == nil {
		panic("nil repository passed to NewCatalogHandler")
	}
	return &CatalogHandler{Cfg: cfg, Services: s, Slots: sl, Bookings: b}
}

// ListServices handles GET /v1/services. Only active services appear, with
// bilingual fields collapsed to the requested language.
func (h *CatalogHandler) ListServices(c echo.Context) error {
	lang := requestLang(c, h.Cfg.DefaultLanguage)
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	services, err := h.Services.ListActive(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]map[string]any, 0, len(services))
	for _, s := range services {
		out = append(out, s.Localized(lang))
	}
	return c.JSON(http.StatusOK, echo.Map{"services": out})
}

// GetService handles GET /v1/services/:id. Inactive services are hidden
// from the public catalog and answered with 404.
func (h *CatalogHandler) GetService(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid service id"})
	}
	lang := requestLang(c, h.Cfg.DefaultLanguage)
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	s, err := h.Services.GetByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "service not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !s.IsActive && !isAdmin(c) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "service not found"})
	}
	return c.JSON(http.StatusOK, echo.Map{"service": s.Localized(lang)})
}

// AvailableSlots handles GET /v1/services/:id/available-slots. The calendar
// is computed per request: explicitly configured slots when any exist in
// the window, the synthesized weekday default schedule otherwise, minus the
// slots held by pending or confirmed bookings. Nothing is reserved by
// viewing; the authoritative check happens at confirmation.
func (h *CatalogHandler) AvailableSlots(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid service id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	svc, err := h.Services.GetByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "service not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !svc.IsActive {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "service not found"})
	}

	start, end, err := slotRange(c.QueryParam("date_from"), c.QueryParam("date_to"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	startStr := start.Format("2006-01-02")
	endStr := end.Format("2006-01-02")

	booked, err := h.Bookings.OccupiedKeys(ctx, id, startStr, endStr)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	configured, err := h.Slots.ListRange(ctx, startStr, endStr)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	var options []model.SlotOption
	if len(configured) > 0 {
		options = make([]model.SlotOption, 0, len(configured))
		for _, s := range configured {
			if booked[model.SlotKey(s.Date, s.StartTime)] {
				continue
			}
			options = append(options, model.SlotOption{
				Date:            s.Date,
				StartTime:       s.StartTime,
				EndTime:         s.EndTime,
				DurationMinutes: svc.DurationMinutes,
			})
		}
	} else {
		options = model.DefaultSlots(start, end, svc.DurationMinutes, booked)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"service_id": id,
		"date_from":  startStr,
		"date_to":    endStr,
		"slots":      options,
	})
}

// slotRange resolves the requested calendar window: both bounds default to
// a two-week window starting tomorrow, and the window is capped at 60 days.
func slotRange(fromParam, toParam string) (time.Time, time.Time, error) {
	today := time.Now().UTC().Truncate(24 * time.Hour)
	start := today.AddDate(0, 0, 1)
	if fromParam != "" {
		t, err := time.Parse("2006-01-02", fromParam)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid date_from")
		}
		start = t
	}
	if start.Before(today.AddDate(0, 0, 1)) {
		start = today.AddDate(0, 0, 1)
	}
	end := start.AddDate(0, 0, 13)
	if toParam != "" {
		t, err := time.Parse("2006-01-02", toParam)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid date_to")
		}
		end = t
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, errors.New("date_to before date_from")
	}
	if end.Sub(start) > 60*24*time.Hour {
		end = start.AddDate(0, 0, 60)
	}
	return start, end, nil
}

type createServiceReq struct {
	NameAR          string  `json:"name_ar"`
	NameEN          string  `json:"name_en"`
	DescriptionAR   string  `json:"description_ar"`
	DescriptionEN   string  `json:"description_en"`
	Price           float64 `json:"price"`
	Currency        string  `json:"currency"`
	DurationMinutes int     `json:"duration_minutes"`
	ServiceType     string  `json:"service_type"`
	IsOnline        *bool   `json:"is_online"`
}

// CreateService handles POST /v1/admin/services.
func (h *CatalogHandler) CreateService(c echo.Context) error {
	var req createServiceReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.NameAR) == "" || strings.TrimSpace(req.NameEN) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name_ar and name_en are required"})
	}
	if req.Price < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "price must not be negative"})
	}
	if req.DurationMinutes <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "duration_minutes must be positive"})
	}
	if req.Currency == "" {
		req.Currency = h.Cfg.DefaultCurrency
	}
	if req.ServiceType == "" {
		req.ServiceType = "healing"
	}
	online := true
	if req.IsOnline != nil {
		online = *req.IsOnline
	}

	svc := model.Service{
		NameAR:          req.NameAR,
		NameEN:          req.NameEN,
		DescriptionAR:   req.DescriptionAR,
		DescriptionEN:   req.DescriptionEN,
		Price:           req.Price,
		Currency:        req.Currency,
		DurationMinutes: req.DurationMinutes,
		ServiceType:     req.ServiceType,
		IsActive:        true,
		IsOnline:        online,
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Services.Create(ctx, &svc); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create service failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"service": svc.Localized(requestLang(c, h.Cfg.DefaultLanguage))})
}

type updateServiceReq struct {
	NameAR          string  `json:"name_ar"`
	NameEN          string  `json:"name_en"`
	DescriptionAR   string  `json:"description_ar"`
	DescriptionEN   string  `json:"description_en"`
	Price           float64 `json:"price"`
	Currency        string  `json:"currency"`
	DurationMinutes int     `json:"duration_minutes"`
	ServiceType     string  `json:"service_type"`
	IsActive        bool    `json:"is_active"`
	IsOnline        bool    `json:"is_online"`
}

// UpdateService handles PUT /v1/admin/services/:id. Deactivating a service
// hides it from the catalog; existing bookings keep their snapshots.
func (h *CatalogHandler) UpdateService(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid service id"})
	}
	var req updateServiceReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.NameAR) == "" || strings.TrimSpace(req.NameEN) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name_ar and name_en are required"})
	}
	if req.Price < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "price must not be negative"})
	}
	if req.DurationMinutes <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "duration_minutes must be positive"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	svc, err := h.Services.GetByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "service not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	svc.NameAR = req.NameAR
	svc.NameEN = req.NameEN
	svc.DescriptionAR = req.DescriptionAR
	svc.DescriptionEN = req.DescriptionEN
	svc.Price = req.Price
	if req.Currency != "" {
		svc.Currency = req.Currency
	}
	svc.DurationMinutes = req.DurationMinutes
	if req.ServiceType != "" {
		svc.ServiceType = req.ServiceType
	}
	svc.IsActive = req.IsActive
	svc.IsOnline = req.IsOnline

	if err := h.Services.Update(ctx, &svc); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update service failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"service": svc.Localized(requestLang(c, h.Cfg.DefaultLanguage))})
}

type createSlotReq struct {
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// CreateSlot handles POST /v1/admin/available-slots. Configured slots
// override the default schedule for their date range.
func (h *CatalogHandler) CreateSlot(c echo.Context) error {
	var req createSlotReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if _, err := time.Parse("2006-01-02", req.Date); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date"})
	}
	startAt, err := time.Parse("15:04", req.StartTime)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid start_time"})
	}
	endAt, err := time.Parse("15:04", req.EndTime)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid end_time"})
	}
	if !endAt.After(startAt) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "end_time must be after start_time"})
	}

	slot := model.AvailableSlot{Date: req.Date, StartTime: req.StartTime, EndTime: req.EndTime}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Slots.Create(ctx, &slot); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create slot failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"slot": echo.Map{
			"id":         slot.ID,
			"date":       slot.Date,
			"start_time": slot.StartTime,
			"end_time":   slot.EndTime,
		},
	})
}
