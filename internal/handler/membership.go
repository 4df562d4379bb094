package handler

import (
	"context"
	"database/sql"
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

// MembershipHandler covers membership plans, subscriptions and the payment
// ledger. Subscribing creates a pending subscription and a pending payment
// in one transaction; payment confirmation activates whatever the payment
// references, also transactionally.
type MembershipHandler struct {
	Cfg         config.Config
	Subs        *repository.SubscriptionRepo
	Payments    *repository.PaymentRepo
	Enrollments *repository.EnrollmentRepo
	Users       *repository.UserRepo
}

func NewMembershipHandler(cfg config.Config, su *repository.SubscriptionRepo, pa *repository.PaymentRepo, en *repository.EnrollmentRepo, us *repository.UserRepo) *MembershipHandler {
	if su == nil || pa == nil || en == nil || us == nil {
		panic("nil repository passed to NewMembershipHandler")
	}
	return &MembershipHandler{Cfg: cfg, Subs: su, Payments: pa, Enrollments: en, Users: us}
}

// paymentMethods is the static gateway list offered at checkout.
var paymentMethods = []struct {
	ID     string
	NameAR string
	NameEN string
}{
	{"stripe", "بطاقة ائتمان", "Credit Card"},
	{"paypal", "باي بال", "PayPal"},
	{"fawry", "فوري", "Fawry"},
	{"vodafone_cash", "فودافون كاش", "Vodafone Cash"},
}

// ListPlans handles GET /v1/membership/plans.
func (h *MembershipHandler) ListPlans(c echo.Context) error {
	lang := requestLang(c, h.Cfg.DefaultLanguage)
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	plans, err := h.Subs.ListPlans(ctx, !isAdmin(c))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]map[string]any, 0, len(plans))
	for _, p := range plans {
		out = append(out, p.Localized(lang))
	}
	return c.JSON(http.StatusOK, echo.Map{"plans": out})
}

// GetPlan handles GET /v1/membership/plans/:id.
func (h *MembershipHandler) GetPlan(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid plan id"})
	}
	lang := requestLang(c, h.Cfg.DefaultLanguage)
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, err := h.Subs.GetPlan(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "plan not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !p.IsActive && !isAdmin(c) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "plan not found"})
	}
	return c.JSON(http.StatusOK, echo.Map{"plan": p.Localized(lang)})
}

type subscribeReq struct {
	PlanID        uint64 `json:"plan_id"`
	PaymentMethod string `json:"payment_method"`
	AutoRenew     bool   `json:"auto_renew"`
}

// Subscribe handles POST /v1/membership/subscribe. The transaction locks
// the user row, re-checks for an existing active subscription, and writes
// the pending subscription plus its pending ledger payment together, so
// two concurrent subscribes cannot both succeed.
func (h *MembershipHandler) Subscribe(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req subscribeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.PlanID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "plan_id is required"})
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = "stripe"
	}
	if !validPaymentMethod(req.PaymentMethod) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown payment_method"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	plan, err := h.Subs.GetPlan(ctx, req.PlanID)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "plan not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !plan.IsActive {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "plan not found"})
	}

	now := time.Now().UTC()
	sub := model.Subscription{
		UserID:        userID,
		PlanID:        plan.ID,
		StartDate:     now,
		EndDate:       now.AddDate(0, 0, plan.DurationDays),
		PaymentMethod: req.PaymentMethod,
		AutoRenew:     req.AutoRenew,
	}

	tx, err := h.Subs.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := h.Subs.CreateTx(ctx, tx, &sub, now); err != nil {
		if err == repository.ErrActiveSubscription {
			return c.JSON(http.StatusConflict, echo.Map{"error": "an active subscription already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "subscribe failed"})
	}
	payment := model.Payment{
		UserID:        userID,
		Amount:        plan.Price,
		Currency:      plan.Currency,
		PaymentMethod: req.PaymentMethod,
		RefType:       model.RefSubscription,
		RefID:         sub.ID,
	}
	if err := h.Payments.CreateTx(ctx, tx, &payment); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create payment failed"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true

	return c.JSON(http.StatusCreated, echo.Map{
		"subscription": sub.JSON(now),
		"payment":      payment.JSON(),
	})
}

type confirmPaymentReq struct {
	GatewayTxnID string `json:"gateway_transaction_id"`
}

// ConfirmPayment handles POST /v1/payments/:id/confirm. Inside one
// transaction the pending payment row is locked, the referenced entity is
// resolved and activated, and the payment completes. A payment whose
// referenced entity no longer exists fails with 409 and stays pending so
// an operator can investigate.
func (h *MembershipHandler) ConfirmPayment(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payment id"})
	}
	var req confirmPaymentReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.GatewayTxnID) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "gateway_transaction_id is required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	now := time.Now().UTC()

	tx, err := h.Payments.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	payment, err := h.Payments.GetPendingForUserTx(ctx, tx, id, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "pending payment not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	switch payment.RefType {
	case model.RefSubscription:
		if _, err := h.Subs.GetTx(ctx, tx, payment.RefID); err != nil {
			if err == sql.ErrNoRows {
				return c.JSON(http.StatusConflict, echo.Map{"error": repository.ErrOrphanPayment.Error()})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
		}
		if err := h.Subs.ActivateTx(ctx, tx, payment.RefID); err != nil {
			if err == repository.ErrConflict {
				return c.JSON(http.StatusConflict, echo.Map{"error": "subscription is not pending"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "activate subscription failed"})
		}
	case model.RefEnrollment:
		if err := h.Enrollments.MarkPaidTx(ctx, tx, payment.RefID); err != nil {
			if err == sql.ErrNoRows {
				return c.JSON(http.StatusConflict, echo.Map{"error": repository.ErrOrphanPayment.Error()})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "settle enrollment failed"})
		}
	default:
		return c.JSON(http.StatusConflict, echo.Map{"error": "unsupported payment reference"})
	}

	if err := h.Payments.CompleteTx(ctx, tx, payment.ID, strings.TrimSpace(req.GatewayTxnID), now); err != nil {
		if err == repository.ErrConflict {
			return c.JSON(http.StatusConflict, echo.Map{"error": "payment is not pending"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "complete payment failed"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true

	payment.Status = model.PaymentCompleted
	payment.GatewayTxnID = strings.TrimSpace(req.GatewayTxnID)
	payment.PaidAt = &now

	if u, uerr := h.Users.GetByID(ctx, userID); uerr == nil {
		ev := queue.PaymentCompletedEvent{
			PaymentID:    payment.ID,
			UserID:       u.ID,
			UserEmail:    u.Email,
			Amount:       payment.Amount,
			Currency:     payment.Currency,
			Method:       payment.PaymentMethod,
			RefType:      payment.RefType,
			RefID:        payment.RefID,
			GatewayTxnID: payment.GatewayTxnID,
			CompletedAt:  queue.Stamp(now),
		}
		go func() { _ = service.PublishPaymentCompleted(context.Background(), ev) }()
	}

	return c.JSON(http.StatusOK, echo.Map{"payment": payment.JSON()})
}

// FailPayment handles POST /v1/payments/:id/fail, reported by the client
// when a gateway checkout is abandoned or declined. The referenced
// subscription or enrollment stays as it is; only the ledger row moves to
// failed so it no longer blocks a retry.
func (h *MembershipHandler) FailPayment(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payment id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	tx, err := h.Payments.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	payment, err := h.Payments.GetPendingForUserTx(ctx, tx, id, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "pending payment not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if err := h.Payments.FailTx(ctx, tx, payment.ID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "fail payment failed"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true

	payment.Status = model.PaymentFailed
	return c.JSON(http.StatusOK, echo.Map{"payment": payment.JSON()})
}

// MySubscription handles GET /v1/my-subscription. Expiry is evaluated
// lazily: a subscription past its end date simply stops matching.
func (h *MembershipHandler) MySubscription(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	now := time.Now().UTC()
	sub, err := h.Subs.GetActiveByUser(ctx, userID, now)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "no active subscription"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	resp := echo.Map{"subscription": sub.JSON(now)}
	if plan, err := h.Subs.GetPlan(ctx, sub.PlanID); err == nil {
		resp["plan"] = plan.Localized(requestLang(c, h.Cfg.DefaultLanguage))
	}
	return c.JSON(http.StatusOK, resp)
}

// CancelSubscription handles POST /v1/subscriptions/:id/cancel. Ownership
// is enforced in the update itself.
func (h *MembershipHandler) CancelSubscription(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid subscription id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Subs.Cancel(ctx, id, userID); err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "subscription not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cancel failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "subscription cancelled"})
}

// PaymentMethods handles GET /v1/payment-methods: the static localized
// gateway list.
func (h *MembershipHandler) PaymentMethods(c echo.Context) error {
	lang := requestLang(c, h.Cfg.DefaultLanguage)
	out := make([]echo.Map, 0, len(paymentMethods))
	for _, m := range paymentMethods {
		out = append(out, echo.Map{
			"id":   m.ID,
			"name": model.Pick(lang, m.NameAR, m.NameEN),
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"payment_methods": out})
}

// MyPayments handles GET /v1/my-payments.
func (h *MembershipHandler) MyPayments(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	payments, err := h.Payments.ListByUser(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]map[string]any, 0, len(payments))
	for _, p := range payments {
		out = append(out, p.JSON())
	}
	return c.JSON(http.StatusOK, echo.Map{"payments": out})
}

// AdminListSubscriptions handles GET /v1/admin/subscriptions.
func (h *MembershipHandler) AdminListSubscriptions(c echo.Context) error {
	status := c.QueryParam("status")
	switch status {
	case "", model.SubPending, model.SubActive, model.SubCancelled, model.SubExpired:
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status filter"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	subs, err := h.Subs.ListAll(ctx, status)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	now := time.Now().UTC()
	out := make([]map[string]any, 0, len(subs))
	for _, s := range subs {
		out = append(out, s.JSON(now))
	}
	return c.JSON(http.StatusOK, echo.Map{"subscriptions": out, "count": len(out)})
}

// AdminListPayments handles GET /v1/admin/payments with status and entity
// filters.
func (h *MembershipHandler) AdminListPayments(c echo.Context) error {
	status := c.QueryParam("status")
	switch status {
	case "", model.PaymentPending, model.PaymentCompleted, model.PaymentFailed,
		model.PaymentCancelled, model.PaymentRefunded:
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status filter"})
	}
	refType := c.QueryParam("entity_type")
	switch refType {
	case "", model.RefSubscription, model.RefBooking, model.RefEnrollment:
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid entity_type filter"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	payments, err := h.Payments.ListAll(ctx, status, refType)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]map[string]any, 0, len(payments))
	for _, p := range payments {
		out = append(out, p.JSON())
	}
	return c.JSON(http.StatusOK, echo.Map{"payments": out, "count": len(out)})
}

// AdminGetPayment handles GET /v1/admin/payments/:id.
func (h *MembershipHandler) AdminGetPayment(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payment id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	payment, err := h.Payments.GetByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "payment not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"payment": payment.JSON()})
}

type planReq struct {
	NameAR        string   `json:"name_ar"`
	NameEN        string   `json:"name_en"`
	DescriptionAR string   `json:"description_ar"`
	DescriptionEN string   `json:"description_en"`
	Price         float64  `json:"price"`
	Currency      string   `json:"currency"`
	DurationDays  int      `json:"duration_days"`
	PlanType      string   `json:"plan_type"`
	Features      string   `json:"features"`
	IsActive      *bool    `json:"is_active"`
}

// AdminCreatePlan handles POST /v1/admin/membership/plans.
func (h *MembershipHandler) AdminCreatePlan(c echo.Context) error {
	var req planReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.NameAR) == "" || strings.TrimSpace(req.NameEN) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name_ar and name_en are required"})
	}
	if req.Price < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "price must not be negative"})
	}
	if req.DurationDays <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "duration_days must be positive"})
	}
	if req.Currency == "" {
		req.Currency = h.Cfg.DefaultCurrency
	}
	if req.PlanType == "" {
		if req.DurationDays >= 365 {
			req.PlanType = "yearly"
		} else {
			req.PlanType = "monthly"
		}
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	plan := model.MembershipPlan{
		NameAR:        req.NameAR,
		NameEN:        req.NameEN,
		DescriptionAR: req.DescriptionAR,
		DescriptionEN: req.DescriptionEN,
		Price:         req.Price,
		Currency:      req.Currency,
		DurationDays:  req.DurationDays,
		PlanType:      req.PlanType,
		Features:      req.Features,
		IsActive:      active,
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Subs.CreatePlan(ctx, &plan); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create plan failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"plan": plan.Localized(requestLang(c, h.Cfg.DefaultLanguage))})
}

func validPaymentMethod(m string) bool {
	for _, pm := range paymentMethods {
		if pm.ID == m {
			return true
		}
	}
	return false
}
