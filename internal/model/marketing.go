package model

import (
	"regexp"
	"time"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// ValidEmail reports whether the address looks like a deliverable email.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// NewsletterSubscriber is an opt-in mailing list entry. Subscribe is
// idempotent: an unsubscribed address is reactivated rather than
// duplicated.
type NewsletterSubscriber struct {
	ID             uint64     // newsletter_subscribers.id
	Email          string     // newsletter_subscribers.email (unique)
	Name           string     // newsletter_subscribers.name
	Language       string     // newsletter_subscribers.language_preference
	IsSubscribed   bool       // newsletter_subscribers.is_subscribed
	Source         string     // newsletter_subscribers.subscription_source (website, landing_page, manual)
	SubscribedAt   time.Time  // newsletter_subscribers.subscribed_at
	UnsubscribedAt *time.Time // newsletter_subscribers.unsubscribed_at (nullable)
}

func (n NewsletterSubscriber) JSON() map[string]any {
	return map[string]any{
		"id":                  n.ID,
		"email":               n.Email,
		"name":                n.Name,
		"language_preference": n.Language,
		"is_subscribed":       n.IsSubscribed,
		"subscription_source": n.Source,
		"subscribed_at":       n.SubscribedAt.UTC().Format(time.RFC3339),
	}
}

// EmailCampaign is a bilingual outbound mailing. Open and click rates are
// derived on read from the stored counters.
type EmailCampaign struct {
	ID              uint64     // email_campaigns.id
	Name            string     // email_campaigns.name
	SubjectAR       string     // email_campaigns.subject_ar
	SubjectEN       string     // email_campaigns.subject_en
	ContentAR       string     // email_campaigns.content_ar
	ContentEN       string     // email_campaigns.content_en
	CampaignType    string     // email_campaigns.campaign_type (newsletter, promotional, welcome, course)
	TargetAudience  string     // email_campaigns.target_audience (all, subscribers, members)
	Status          string     // email_campaigns.status (draft, scheduled, sent, cancelled)
	ScheduledAt     *time.Time // email_campaigns.scheduled_at (nullable)
	SentAt          *time.Time // email_campaigns.sent_at (nullable)
	RecipientsCount int        // email_campaigns.recipients_count
	OpenedCount     int        // email_campaigns.opened_count
	ClickedCount    int        // email_campaigns.clicked_count
	CreatedAt       time.Time  // email_campaigns.created_at
}

// Rate converts a counter into a percentage of recipients, zero when the
// campaign has not been sent to anyone.
func Rate(count, recipients int) float64 {
	if recipients <= 0 {
		return 0
	}
	return float64(count) / float64(recipients) * 100
}

func (e EmailCampaign) Localized(lang string) map[string]any {
	var scheduled, sent any
	if e.ScheduledAt != nil {
		scheduled = e.ScheduledAt.UTC().Format(time.RFC3339)
	}
	if e.SentAt != nil {
		sent = e.SentAt.UTC().Format(time.RFC3339)
	}
	return map[string]any{
		"id":               e.ID,
		"name":             e.Name,
		"subject":          Pick(lang, e.SubjectAR, e.SubjectEN),
		"content":          Pick(lang, e.ContentAR, e.ContentEN),
		"campaign_type":    e.CampaignType,
		"target_audience":  e.TargetAudience,
		"status":           e.Status,
		"scheduled_at":     scheduled,
		"sent_at":          sent,
		"recipients_count": e.RecipientsCount,
		"opened_count":     e.OpenedCount,
		"clicked_count":    e.ClickedCount,
		"open_rate":        Rate(e.OpenedCount, e.RecipientsCount),
		"click_rate":       Rate(e.ClickedCount, e.RecipientsCount),
	}
}

// LandingPage is a bilingual marketing page addressed by slug. Views and
// conversions are plain counters incremented by the public endpoints.
type LandingPage struct {
	ID               uint64    // landing_pages.id
	Name             string    // landing_pages.name
	Slug             string    // landing_pages.slug (unique)
	TitleAR          string    // landing_pages.title_ar
	TitleEN          string    // landing_pages.title_en
	DescriptionAR    string    // landing_pages.description_ar
	DescriptionEN    string    // landing_pages.description_en
	ContentAR        string    // landing_pages.content_ar
	ContentEN        string    // landing_pages.content_en
	CTATextAR        string    // landing_pages.cta_text_ar
	CTATextEN        string    // landing_pages.cta_text_en
	CTALink          string    // landing_pages.cta_link
	Template         string    // landing_pages.template
	IsPublished      bool      // landing_pages.is_published
	ViewsCount       int       // landing_pages.views_count
	ConversionsCount int       // landing_pages.conversions_count
	CreatedAt        time.Time // landing_pages.created_at
	UpdatedAt        time.Time // landing_pages.updated_at
}

func (p LandingPage) Localized(lang string) map[string]any {
	return map[string]any{
		"id":                p.ID,
		"name":              p.Name,
		"slug":              p.Slug,
		"title":             Pick(lang, p.TitleAR, p.TitleEN),
		"description":       Pick(lang, p.DescriptionAR, p.DescriptionEN),
		"content":           Pick(lang, p.ContentAR, p.ContentEN),
		"cta_text":          Pick(lang, p.CTATextAR, p.CTATextEN),
		"cta_link":          p.CTALink,
		"template":          p.Template,
		"is_published":      p.IsPublished,
		"views_count":       p.ViewsCount,
		"conversions_count": p.ConversionsCount,
		"conversion_rate":   Rate(p.ConversionsCount, p.ViewsCount),
	}
}
