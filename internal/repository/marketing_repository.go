package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/healing-center/internal/model"
)

// MarketingRepo covers the newsletter list, email campaigns and landing
// pages. Landing page counters are incremented with plain UPDATE .. + 1
// statements so concurrent hits never lose increments.
type MarketingRepo struct{ db *sql.DB }

func NewMarketingRepo(db *sql.DB) *MarketingRepo { return &MarketingRepo{db: db} }

const subscriberCols = `id, email, name, language_preference, is_subscribed,
       subscription_source, subscribed_at, unsubscribed_at`

const campaignCols = `id, name, subject_ar, subject_en, content_ar, content_en,
       campaign_type, target_audience, status, scheduled_at, sent_at,
       recipients_count, opened_count, clicked_count, created_at`

const landingCols = `id, name, slug, title_ar, title_en, description_ar, description_en,
       content_ar, content_en, cta_text_ar, cta_text_en, cta_link, template,
       is_published, views_count, conversions_count, created_at, updated_at`

// SubscribeNewsletter adds an address to the list. Re-subscribing an
// existing address reactivates it in place, clearing unsubscribed_at, so
// the operation is idempotent. Returns whether the address was already
// actively subscribed.
func (r *MarketingRepo) SubscribeNewsletter(ctx context.Context, email, name, language, source string) (already bool, err error) {
	email = strings.ToLower(strings.TrimSpace(email))
	existing, err := r.getSubscriber(ctx, email)
	if err == sql.ErrNoRows {
		_, err = r.db.ExecContext(ctx,
			`INSERT INTO newsletter_subscribers (email, name, language_preference,
			        is_subscribed, subscription_source)
			 VALUES (?,?,?,1,?)`,
			email, name, language, source)
		return false, err
	}
	if err != nil {
		return false, err
	}
	if existing.IsSubscribed {
		return true, nil
	}
	_, err = r.db.ExecContext(ctx,
		`UPDATE newsletter_subscribers
		 SET is_subscribed = 1, unsubscribed_at = NULL, name = ?, language_preference = ?
		 WHERE id = ?`,
		name, language, existing.ID)
	return false, err
}

// UnsubscribeNewsletter marks an address unsubscribed. Unknown addresses
// surface as sql.ErrNoRows.
func (r *MarketingRepo) UnsubscribeNewsletter(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	res, err := r.db.ExecContext(ctx,
		`UPDATE newsletter_subscribers SET is_subscribed = 0, unsubscribed_at = NOW()
		 WHERE email = ?`, email)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := r.getSubscriber(ctx, email); err != nil {
			return err
		}
	}
	return nil
}

// ListSubscribers returns the mailing list for the admin surface. When
// subscribedOnly is set, unsubscribed addresses are hidden.
func (r *MarketingRepo) ListSubscribers(ctx context.Context, subscribedOnly bool, language string) ([]model.NewsletterSubscriber, error) {
	q := `SELECT ` + subscriberCols + ` FROM newsletter_subscribers WHERE 1=1`
	args := []any{}
	if subscribedOnly {
		q += ` AND is_subscribed = 1`
	}
	if language != "" {
		q += ` AND language_preference = ?`
		args = append(args, language)
	}
	q += ` ORDER BY subscribed_at DESC`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	subs := make([]model.NewsletterSubscriber, 0)
	for rows.Next() {
		s, err := scanSubscriber(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

func (r *MarketingRepo) getSubscriber(ctx context.Context, email string) (model.NewsletterSubscriber, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+subscriberCols+` FROM newsletter_subscribers WHERE email = ?`, email)
	return scanSubscriber(row)
}

// CreateCampaign inserts a draft campaign.
func (r *MarketingRepo) CreateCampaign(ctx context.Context, c *model.EmailCampaign) error {
	var scheduled any
	if c.ScheduledAt != nil {
		scheduled = c.ScheduledAt.UTC()
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO email_campaigns (name, subject_ar, subject_en, content_ar, content_en,
		        campaign_type, target_audience, status, scheduled_at)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		c.Name, c.SubjectAR, c.SubjectEN, c.ContentAR, c.ContentEN,
		c.CampaignType, c.TargetAudience, c.Status, scheduled)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	return nil
}

// ListCampaigns returns campaigns newest first, optionally by status.
func (r *MarketingRepo) ListCampaigns(ctx context.Context, status string) ([]model.EmailCampaign, error) {
	q := `SELECT ` + campaignCols + ` FROM email_campaigns`
	args := []any{}
	if status != "" {
		q += ` WHERE status = ?`
		args = append(args, status)
	}
	q += ` ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	campaigns := make([]model.EmailCampaign, 0)
	for rows.Next() {
		var (
			c               model.EmailCampaign
			scheduled, sent sql.NullTime
		)
		if err := rows.Scan(&c.ID, &c.Name, &c.SubjectAR, &c.SubjectEN, &c.ContentAR,
			&c.ContentEN, &c.CampaignType, &c.TargetAudience, &c.Status,
			&scheduled, &sent, &c.RecipientsCount, &c.OpenedCount,
			&c.ClickedCount, &c.CreatedAt); err != nil {
			return nil, err
		}
		if scheduled.Valid {
			t := scheduled.Time
			c.ScheduledAt = &t
		}
		if sent.Valid {
			t := sent.Time
			c.SentAt = &t
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}

// GetPublishedBySlug returns a published landing page. Drafts are treated
// as missing for the public endpoint.
func (r *MarketingRepo) GetPublishedBySlug(ctx context.Context, slug string) (model.LandingPage, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+landingCols+` FROM landing_pages WHERE slug = ? AND is_published = 1`, slug)
	return scanLanding(row)
}

// IncrementViews bumps a page's view counter.
func (r *MarketingRepo) IncrementViews(ctx context.Context, id uint64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE landing_pages SET views_count = views_count + 1 WHERE id = ?`, id)
	return err
}

// IncrementConversions bumps a page's conversion counter. Unknown or
// unpublished slugs surface as sql.ErrNoRows.
func (r *MarketingRepo) IncrementConversions(ctx context.Context, slug string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE landing_pages SET conversions_count = conversions_count + 1
		 WHERE slug = ? AND is_published = 1`, slug)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CreateLandingPage inserts a page; duplicate slugs surface as
// ErrDuplicateSlug.
func (r *MarketingRepo) CreateLandingPage(ctx context.Context, p *model.LandingPage) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO landing_pages (name, slug, title_ar, title_en, description_ar,
		        description_en, content_ar, content_en, cta_text_ar, cta_text_en,
		        cta_link, template, is_published)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		p.Name, p.Slug, p.TitleAR, p.TitleEN, p.DescriptionAR, p.DescriptionEN,
		p.ContentAR, p.ContentEN, p.CTATextAR, p.CTATextEN,
		p.CTALink, p.Template, p.IsPublished)
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicateSlug
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

// ListLandingPages returns all pages for the admin surface.
func (r *MarketingRepo) ListLandingPages(ctx context.Context) ([]model.LandingPage, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+landingCols+` FROM landing_pages ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	pages := make([]model.LandingPage, 0)
	for rows.Next() {
		p, err := scanLanding(rows)
		if err != nil {
			return nil, err
		}
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

func scanSubscriber(row rowScanner) (model.NewsletterSubscriber, error) {
	var (
		s            model.NewsletterSubscriber
		name, source sql.NullString
		unsubAt      sql.NullTime
	)
	err := row.Scan(&s.ID, &s.Email, &name, &s.Language, &s.IsSubscribed,
		&source, &s.SubscribedAt, &unsubAt)
	if err != nil {
		return model.NewsletterSubscriber{}, err
	}
	s.Name = name.String
	s.Source = source.String
	if unsubAt.Valid {
		t := unsubAt.Time
		s.UnsubscribedAt = &t
	}
	return s, nil
}

func scanLanding(row rowScanner) (model.LandingPage, error) {
	var (
		p                            model.LandingPage
		descAR, desc                 sql.NullString
		contentAR, content           sql.NullString
		ctaAR, ctaEN, ctaLink, templ sql.NullString
	)
	err := row.Scan(&p.ID, &p.Name, &p.Slug, &p.TitleAR, &p.TitleEN, &descAR, &desc,
		&contentAR, &content, &ctaAR, &ctaEN, &ctaLink, &templ,
		&p.IsPublished, &p.ViewsCount, &p.ConversionsCount, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return model.LandingPage{}, err
	}
	p.DescriptionAR = descAR.String
	p.DescriptionEN = desc.String
	p.ContentAR = contentAR.String
	p.ContentEN = content.String
	p.CTATextAR = ctaAR.String
	p.CTATextEN = ctaEN.String
	p.CTALink = ctaLink.String
	p.Template = templ.String
	return p, nil
}
