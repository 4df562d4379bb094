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

// MarketingHandler covers the newsletter, landing pages and email
// campaigns. Newsletter subscribe is idempotent; landing page views and
// conversions are counted server side.
type MarketingHandler struct {
	Cfg       config.Config
	Marketing *repository.MarketingRepo
}

func NewMarketingHandler(cfg config.Config, m *repository.MarketingRepo) *MarketingHandler {
	if m == nil {
		panic("nil repository passed to NewMarketingHandler")
	}
	return &MarketingHandler{Cfg: cfg, Marketing: m}
}

type newsletterReq struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Language string `json:"language"`
	Source   string `json:"source"`
}

// NewsletterSubscribe handles POST /v1/newsletter/subscribe. Re-subscribing
// an unsubscribed address reactivates it; an already active address gets a
// friendly 200 instead of an error.
func (h *MarketingHandler) NewsletterSubscribe(c echo.Context) error {
	var req newsletterReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if !model.ValidEmail(req.Email) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid email"})
	}
	lang := model.NormalizeLang(req.Language)
	if req.Source == "" {
		req.Source = "website"
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	already, err := h.Marketing.SubscribeNewsletter(ctx, req.Email, req.Name, lang, req.Source)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "subscribe failed"})
	}
	if already {
		return c.JSON(http.StatusOK, echo.Map{"message": "already subscribed"})
	}

	ev := queue.NewsletterSubscribedEvent{
		Email:        req.Email,
		Name:         req.Name,
		Language:     lang,
		Source:       req.Source,
		SubscribedAt: queue.Stamp(time.Now()),
	}
	go func() { _ = service.PublishNewsletterSubscribed(context.Background(), ev) }()

	return c.JSON(http.StatusCreated, echo.Map{"message": "subscribed"})
}

// NewsletterUnsubscribe handles POST /v1/newsletter/unsubscribe.
func (h *MarketingHandler) NewsletterUnsubscribe(c echo.Context) error {
	var req newsletterReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if !model.ValidEmail(req.Email) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid email"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Marketing.UnsubscribeNewsletter(ctx, req.Email); err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "email is not subscribed"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "unsubscribe failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "unsubscribed"})
}

// GetLandingPage handles GET /v1/pages/:slug. Serving a page counts one
// view; only published pages are visible.
func (h *MarketingHandler) GetLandingPage(c echo.Context) error {
	slug := strings.TrimSpace(c.Param("slug"))
	if slug == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid slug"})
	}
	lang := requestLang(c, h.Cfg.DefaultLanguage)
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	page, err := h.Marketing.GetPublishedBySlug(ctx, slug)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "page not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if err := h.Marketing.IncrementViews(ctx, page.ID); err == nil {
		page.ViewsCount++
	}
	return c.JSON(http.StatusOK, echo.Map{"page": page.Localized(lang)})
}

// LandingConvert handles POST /v1/pages/:slug/convert: the page's call to
// action was taken, count one conversion.
func (h *MarketingHandler) LandingConvert(c echo.Context) error {
	slug := strings.TrimSpace(c.Param("slug"))
	if slug == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid slug"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Marketing.IncrementConversions(ctx, slug); err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "page not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "record conversion failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "conversion recorded"})
}

// AdminListSubscribers handles GET /v1/admin/newsletter/subscribers with
// subscribed_only and language filters.
func (h *MarketingHandler) AdminListSubscribers(c echo.Context) error {
	subscribedOnly := c.QueryParam("subscribed_only") != "false"
	language := c.QueryParam("language")
	if language != "" {
		language = model.NormalizeLang(language)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	subs, err := h.Marketing.ListSubscribers(ctx, subscribedOnly, language)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]map[string]any, 0, len(subs))
	for _, s := range subs {
		out = append(out, s.JSON())
	}
	return c.JSON(http.StatusOK, echo.Map{"subscribers": out, "count": len(out)})
}

type campaignReq struct {
	Name           string `json:"name"`
	SubjectAR      string `json:"subject_ar"`
	SubjectEN      string `json:"subject_en"`
	ContentAR      string `json:"content_ar"`
	ContentEN      string `json:"content_en"`
	CampaignType   string `json:"campaign_type"`
	TargetAudience string `json:"target_audience"`
	ScheduledAt    string `json:"scheduled_at"`
}

// AdminCreateCampaign handles POST /v1/admin/campaigns. Campaigns start as
// drafts unless scheduled.
func (h *MarketingHandler) AdminCreateCampaign(c echo.Context) error {
	var req campaignReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.Name) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}
	if strings.TrimSpace(req.SubjectAR) == "" || strings.TrimSpace(req.SubjectEN) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "subject_ar and subject_en are required"})
	}
	if req.CampaignType == "" {
		req.CampaignType = "newsletter"
	}
	if req.TargetAudience == "" {
		req.TargetAudience = "subscribers"
	}

	campaign := model.EmailCampaign{
		Name:           req.Name,
		SubjectAR:      req.SubjectAR,
		SubjectEN:      req.SubjectEN,
		ContentAR:      req.ContentAR,
		ContentEN:      req.ContentEN,
		CampaignType:   req.CampaignType,
		TargetAudience: req.TargetAudience,
		Status:         "draft",
	}
	if req.ScheduledAt != "" {
		t, err := time.Parse(time.RFC3339, req.ScheduledAt)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid scheduled_at, expected RFC3339"})
		}
		campaign.ScheduledAt = &t
		campaign.Status = "scheduled"
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Marketing.CreateCampaign(ctx, &campaign); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create campaign failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"campaign": campaign.Localized(requestLang(c, h.Cfg.DefaultLanguage)),
	})
}

// AdminListCampaigns handles GET /v1/admin/campaigns.
func (h *MarketingHandler) AdminListCampaigns(c echo.Context) error {
	status := c.QueryParam("status")
	switch status {
	case "", "draft", "scheduled", "sent", "cancelled":
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status filter"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	campaigns, err := h.Marketing.ListCampaigns(ctx, status)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	lang := requestLang(c, h.Cfg.DefaultLanguage)
	out := make([]map[string]any, 0, len(campaigns))
	for _, cp := range campaigns {
		out = append(out, cp.Localized(lang))
	}
	return c.JSON(http.StatusOK, echo.Map{"campaigns": out, "count": len(out)})
}

type landingPageReq struct {
	Name          string `json:"name"`
	Slug          string `json:"slug"`
	TitleAR       string `json:"title_ar"`
	TitleEN       string `json:"title_en"`
	DescriptionAR string `json:"description_ar"`
	DescriptionEN string `json:"description_en"`
	ContentAR     string `json:"content_ar"`
	ContentEN     string `json:"content_en"`
	CTATextAR     string `json:"cta_text_ar"`
	CTATextEN     string `json:"cta_text_en"`
	CTALink       string `json:"cta_link"`
	Template      string `json:"template"`
	IsPublished   bool   `json:"is_published"`
}

// AdminCreateLandingPage handles POST /v1/admin/landing-pages.
func (h *MarketingHandler) AdminCreateLandingPage(c echo.Context) error {
	var req landingPageReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Slug = strings.ToLower(strings.TrimSpace(req.Slug))
	if req.Slug == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "slug is required"})
	}
	if strings.TrimSpace(req.TitleAR) == "" || strings.TrimSpace(req.TitleEN) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title_ar and title_en are required"})
	}
	if req.Template == "" {
		req.Template = "default"
	}

	page := model.LandingPage{
		Name:          req.Name,
		Slug:          req.Slug,
		TitleAR:       req.TitleAR,
		TitleEN:       req.TitleEN,
		DescriptionAR: req.DescriptionAR,
		DescriptionEN: req.DescriptionEN,
		ContentAR:     req.ContentAR,
		ContentEN:     req.ContentEN,
		CTATextAR:     req.CTATextAR,
		CTATextEN:     req.CTATextEN,
		CTALink:       req.CTALink,
		Template:      req.Template,
		IsPublished:   req.IsPublished,
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Marketing.CreateLandingPage(ctx, &page); err != nil {
		if err == repository.ErrDuplicateSlug {
			return c.JSON(http.StatusConflict, echo.Map{"error": "slug already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create page failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"page": page.Localized(requestLang(c, h.Cfg.DefaultLanguage)),
	})
}

// AdminListLandingPages handles GET /v1/admin/landing-pages.
func (h *MarketingHandler) AdminListLandingPages(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	pages, err := h.Marketing.ListLandingPages(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	lang := requestLang(c, h.Cfg.DefaultLanguage)
	out := make([]map[string]any, 0, len(pages))
	for _, p := range pages {
		out = append(out, p.Localized(lang))
	}
	return c.JSON(http.StatusOK, echo.Map{"pages": out, "count": len(out)})
}
