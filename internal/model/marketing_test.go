package model

import "testing"

func TestValidEmail(t *testing.T) {
	valid := []string{"nour@example.com", "a.b+tag@sub.domain.org", "x_1@t.co"}
	for _, e := range valid {
		if !ValidEmail(e) {
			t.Fatalf("%s rejected", e)
		}
	}
	invalid := []string{"", "plain", "no@tld", "@missing.com", "two@@at.com", "spaces in@mail.com"}
	for _, e := range invalid {
		if ValidEmail(e) {
			t.Fatalf("%s accepted", e)
		}
	}
}

func TestRate(t *testing.T) {
	if got := Rate(25, 100); got != 25 {
		t.Fatalf("expected 25, got %v", got)
	}
	if got := Rate(3, 0); got != 0 {
		t.Fatalf("expected 0 for zero recipients, got %v", got)
	}
}

func TestCampaignRates(t *testing.T) {
	c := EmailCampaign{RecipientsCount: 200, OpenedCount: 80, ClickedCount: 10}
	out := c.Localized(LangEnglish)
	if out["open_rate"] != 40.0 {
		t.Fatalf("unexpected open rate: %v", out["open_rate"])
	}
	if out["click_rate"] != 5.0 {
		t.Fatalf("unexpected click rate: %v", out["click_rate"])
	}
}

func TestLandingPageConversionRate(t *testing.T) {
	p := LandingPage{ViewsCount: 400, ConversionsCount: 12}
	out := p.Localized(LangArabic)
	if out["conversion_rate"] != 3.0 {
		t.Fatalf("unexpected conversion rate: %v", out["conversion_rate"])
	}
}
