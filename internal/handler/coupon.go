package handler

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/healing-center/internal/config"
	"github.com/iliyamo/healing-center/internal/model"
	"github.com/iliyamo/healing-center/internal/repository"
)

// CouponHandler implements coupon validation and redemption. Validate is a
// read-only preview; Apply consumes one use through a conditional update so
// the usage limit holds under concurrency.
type CouponHandler struct {
	Cfg     config.Config
	Coupons *repository.CouponRepo
}

func NewCouponHandler(cfg config.Config, r *repository.CouponRepo) *CouponHandler {
	if r == nil {
		panic("nil repository passed to NewCouponHandler")
	}
	return &CouponHandler{Cfg: cfg, Coupons: r}
}

type couponCheckReq struct {
	Code         string  `json:"code"`
	Amount       float64 `json:"amount"`
	ApplicableTo string  `json:"applicable_to"`
}

// check runs the shared validation: existence, validity window, target kind
// and minimum amount. On failure it writes the error response itself and
// reports ok=false; callers must return err immediately in that case.
func (h *CouponHandler) check(c echo.Context, req couponCheckReq) (coupon model.Coupon, discount, final float64, ok bool, err error) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	coupon, err = h.Coupons.GetByCode(ctx, req.Code)
	if err != nil {
		if err == sql.ErrNoRows {
			return model.Coupon{}, 0, 0, false, c.JSON(http.StatusNotFound, echo.Map{"error": "coupon not found"})
		}
		return model.Coupon{}, 0, 0, false, c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	now := time.Now().UTC()
	if !coupon.ValidAt(now) {
		return model.Coupon{}, 0, 0, false, c.JSON(http.StatusConflict, echo.Map{"error": "coupon is expired or exhausted"})
	}
	target := req.ApplicableTo
	if target == "" {
		target = model.CouponAll
	}
	if !coupon.AppliesTo(target) {
		return model.Coupon{}, 0, 0, false, c.JSON(http.StatusConflict, echo.Map{"error": fmt.Sprintf("coupon does not apply to %s", target)})
	}
	if !coupon.MeetsMinimum(req.Amount) {
		return model.Coupon{}, 0, 0, false, c.JSON(http.StatusConflict, echo.Map{
			"error":          "order amount below coupon minimum",
			"minimum_amount": coupon.MinimumAmount,
		})
	}
	discount, final = coupon.Discount(req.Amount)
	return coupon, discount, final, true, nil
}

// Validate handles POST /v1/coupons/validate: a dry run that computes the
// discount without consuming a use.
func (h *CouponHandler) Validate(c echo.Context) error {
	var req couponCheckReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.Code) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "code is required"})
	}
	if req.Amount < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "amount must not be negative"})
	}

	coupon, discount, final, ok, err := h.check(c, req)
	if !ok {
		return err
	}
	lang := requestLang(c, h.Cfg.DefaultLanguage)
	return c.JSON(http.StatusOK, echo.Map{
		"coupon":          coupon.Localized(lang, time.Now().UTC()),
		"original_amount": req.Amount,
		"discount":        discount,
		"final_amount":    final,
	})
}

// Apply handles POST /v1/coupons/apply: validates and consumes one use
// atomically. If the conditional increment loses the race against the last
// remaining use, the caller gets 409.
func (h *CouponHandler) Apply(c echo.Context) error {
	var req couponCheckReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.Code) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "code is required"})
	}
	if req.Amount < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "amount must not be negative"})
	}

	coupon, discount, final, ok, err := h.check(c, req)
	if !ok {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Coupons.Apply(ctx, coupon.ID, time.Now().UTC()); err != nil {
		if err == repository.ErrCouponExhausted {
			return c.JSON(http.StatusConflict, echo.Map{"error": "coupon is expired or exhausted"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "apply coupon failed"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"code":            coupon.Code,
		"original_amount": req.Amount,
		"discount":        discount,
		"final_amount":    final,
	})
}

type createCouponReq struct {
	Code            string   `json:"code"`
	NameAR          string   `json:"name_ar"`
	NameEN          string   `json:"name_en"`
	DescriptionAR   string   `json:"description_ar"`
	DescriptionEN   string   `json:"description_en"`
	DiscountType    string   `json:"discount_type"`
	DiscountValue   float64  `json:"discount_value"`
	MinimumAmount   float64  `json:"minimum_amount"`
	MaximumDiscount *float64 `json:"maximum_discount"`
	UsageLimit      *int     `json:"usage_limit"`
	ApplicableTo    string   `json:"applicable_to"`
	ValidFrom       string   `json:"valid_from"`
	ValidUntil      string   `json:"valid_until"`
}

// AdminCreate handles POST /v1/admin/coupons.
func (h *CouponHandler) AdminCreate(c echo.Context) error {
	var req createCouponReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.Code) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "code is required"})
	}
	switch req.DiscountType {
	case model.DiscountPercentage, model.DiscountFixed:
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "discount_type must be percentage or fixed"})
	}
	if req.DiscountValue <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "discount_value must be positive"})
	}
	if req.DiscountType == model.DiscountPercentage && req.DiscountValue > 100 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "percentage discount cannot exceed 100"})
	}
	if req.ApplicableTo == "" {
		req.ApplicableTo = model.CouponAll
	}
	switch req.ApplicableTo {
	case model.CouponAll, model.CouponCourses, model.CouponBookings, model.CouponSubscriptions:
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid applicable_to"})
	}
	if req.UsageLimit != nil && *req.UsageLimit <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "usage_limit must be positive"})
	}

	var validFrom, validUntil *time.Time
	if req.ValidFrom != "" {
		t, err := time.Parse(time.RFC3339, req.ValidFrom)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid valid_from, expected RFC3339"})
		}
		validFrom = &t
	}
	if req.ValidUntil != "" {
		t, err := time.Parse(time.RFC3339, req.ValidUntil)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid valid_until, expected RFC3339"})
		}
		validUntil = &t
	}
	if validFrom != nil && validUntil != nil && validUntil.Before(*validFrom) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "valid_until before valid_from"})
	}

	coupon := model.Coupon{
		Code:            req.Code,
		NameAR:          req.NameAR,
		NameEN:          req.NameEN,
		DescriptionAR:   req.DescriptionAR,
		DescriptionEN:   req.DescriptionEN,
		DiscountType:    req.DiscountType,
		DiscountValue:   req.DiscountValue,
		MinimumAmount:   req.MinimumAmount,
		MaximumDiscount: req.MaximumDiscount,
		UsageLimit:      req.UsageLimit,
		ApplicableTo:    req.ApplicableTo,
		IsActive:        true,
		ValidFrom:       validFrom,
		ValidUntil:      validUntil,
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Coupons.Create(ctx, &coupon); err != nil {
		if err == repository.ErrDuplicateCode {
			return c.JSON(http.StatusConflict, echo.Map{"error": "coupon code already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create coupon failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"coupon": coupon.Localized(requestLang(c, h.Cfg.DefaultLanguage), time.Now().UTC()),
	})
}

// AdminList handles GET /v1/admin/coupons.
func (h *CouponHandler) AdminList(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	coupons, err := h.Coupons.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	lang := requestLang(c, h.Cfg.DefaultLanguage)
	now := time.Now().UTC()
	out := make([]map[string]any, 0, len(coupons))
	for _, coupon := range coupons {
		out = append(out, coupon.Localized(lang, now))
	}
	return c.JSON(http.StatusOK, echo.Map{"coupons": out, "count": len(out)})
}
