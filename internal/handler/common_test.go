package handler

import (
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func testContext(t *testing.T, target string) echo.Context {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest("GET", target, nil)
	return e.NewContext(req, httptest.NewRecorder())
}

func TestGetUserIDTypes(t *testing.T) {
	c := testContext(t, "/")
	for _, v := range []any{uint64(7), int(7), int64(7), float64(7), "7"} {
		c.Set("user_id", v)
		id, err := getUserID(c)
		if err != nil {
			t.Fatalf("getUserID(%T) error: %v", v, err)
		}
		if id != 7 {
			t.Fatalf("getUserID(%T) = %d", v, id)
		}
	}
}

func TestGetUserIDMissing(t *testing.T) {
	c := testContext(t, "/")
	if _, err := getUserID(c); err == nil {
		t.Fatalf("expected error for missing user_id")
	}
	c.Set("user_id", "not-a-number")
	if _, err := getUserID(c); err == nil {
		t.Fatalf("expected error for malformed user_id")
	}
}

func TestIsAdmin(t *testing.T) {
	c := testContext(t, "/")
	if isAdmin(c) {
		t.Fatalf("anonymous context treated as admin")
	}
	c.Set("role", "user")
	if isAdmin(c) {
		t.Fatalf("user role treated as admin")
	}
	c.Set("role", "admin")
	if !isAdmin(c) {
		t.Fatalf("admin role not recognized")
	}
}

func TestRequestLang(t *testing.T) {
	if got := requestLang(testContext(t, "/?lang=en"), "ar"); got != "en" {
		t.Fatalf("query param not honored, got %s", got)
	}
	if got := requestLang(testContext(t, "/"), "en"); got != "en" {
		t.Fatalf("default language not honored, got %s", got)
	}
	if got := requestLang(testContext(t, "/?lang=de"), "ar"); got != "ar" {
		t.Fatalf("unsupported language should fall back, got %s", got)
	}
}

func TestPathID(t *testing.T) {
	c := testContext(t, "/")
	c.SetParamNames("id")
	c.SetParamValues("12")
	id, err := pathID(c, "id")
	if err != nil || id != 12 {
		t.Fatalf("pathID = %d, %v", id, err)
	}
	for _, bad := range []string{"0", "-1", "abc", ""} {
		c.SetParamValues(bad)
		if _, err := pathID(c, "id"); err == nil {
			t.Fatalf("pathID(%q) accepted", bad)
		}
	}
}

func TestSlotRangeDefaults(t *testing.T) {
	start, end, err := slotRange("", "")
	if err != nil {
		t.Fatalf("slotRange error: %v", err)
	}
	if !end.After(start) {
		t.Fatalf("empty range: %v..%v", start, end)
	}
	if days := int(end.Sub(start).Hours() / 24); days != 13 {
		t.Fatalf("expected a two week default window, got %d days", days)
	}
}

func TestSlotRangeRejectsPastAndInverted(t *testing.T) {
	if _, _, err := slotRange("2020-01-01", "2020-01-10"); err == nil {
		t.Fatalf("past range accepted")
	}
	if _, _, err := slotRange("2030-01-10", "2030-01-01"); err == nil {
		t.Fatalf("inverted range accepted")
	}
}
