package handler

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/healing-center/internal/config"
	"github.com/iliyamo/healing-center/internal/repository"
)

// courseStore backs a database/sql connection with canned rows so the
// enrollment flow can run without a MySQL server. Queries are routed on the
// table they touch and recorded for assertions. It serves one published
// paid course (id 1, price 500) and, when hasMembership is set, one active
// subscription for any user.
type courseStore struct {
	hasMembership bool
	queries       []string
	nextID        int64
}

type storeDriver struct{ s *courseStore }

func (d storeDriver) Open(string) (driver.Conn, error) { return storeConn{s: d.s}, nil }

type storeConn struct{ s *courseStore }

func (storeConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("prepare not supported") }
func (storeConn) Close() error                        { return nil }
func (storeConn) Begin() (driver.Tx, error)           { return storeTx{}, nil }

type storeTx struct{}

func (storeTx) Commit() error   { return nil }
func (storeTx) Rollback() error { return nil }

func (c storeConn) QueryContext(_ context.Context, q string, _ []driver.NamedValue) (driver.Rows, error) {
	c.s.queries = append(c.s.queries, q)
	now := time.Now().UTC()
	switch {
	case strings.Contains(q, "FROM courses"):
		return &storeRows{
			cols: make([]string, 14),
			vals: [][]driver.Value{{
				int64(1), "دورة الشفاء", "Healing Course", nil, nil, 500.0, "EGP",
				nil, int64(8), nil, true, false, now, now,
			}},
		}, nil
	case strings.Contains(q, "FROM subscriptions"):
		rows := &storeRows{cols: make([]string, 11)}
		if c.s.hasMembership {
			rows.vals = [][]driver.Value{{
				int64(3), int64(9), int64(1), now.AddDate(0, 0, -5), now.AddDate(0, 0, 25),
				"active", "completed", "card", false, now, now,
			}}
		}
		return rows, nil
	}
	return nil, fmt.Errorf("unexpected query: %s", q)
}

func (c storeConn) ExecContext(_ context.Context, q string, _ []driver.NamedValue) (driver.Result, error) {
	c.s.queries = append(c.s.queries, q)
	c.s.nextID++
	return storeResult{id: c.s.nextID}, nil
}

type storeRows struct {
	cols []string
	vals [][]driver.Value
	i    int
}

func (r *storeRows) Columns() []string { return r.cols }
func (r *storeRows) Close() error      { return nil }

func (r *storeRows) Next(dest []driver.Value) error {
	if r.i >= len(r.vals) {
		return io.EOF
	}
	copy(dest, r.vals[r.i])
	r.i++
	return nil
}

type storeResult struct{ id int64 }

func (r storeResult) LastInsertId() (int64, error) { return r.id, nil }
func (storeResult) RowsAffected() (int64, error)   { return 1, nil }

var storeSeq int64

func newCourseHandler(t *testing.T, store *courseStore) *CourseHandler {
	t.Helper()
	name := fmt.Sprintf("coursestore%d", atomic.AddInt64(&storeSeq, 1))
	sql.Register(name, storeDriver{s: store})
	db, err := sql.Open(name, "")
	if err != nil {
		t.Fatalf("open stub db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	cfg := config.Config{DefaultLanguage: "ar", DefaultCurrency: "EGP"}
	return NewCourseHandler(cfg, repository.NewCourseRepo(db),
		repository.NewEnrollmentRepo(db), repository.NewSubscriptionRepo(db),
		repository.NewPaymentRepo(db))
}

func enrollContext(t *testing.T, userID uint64) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/courses/1/enroll", nil)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("1")
	c.Set("user_id", userID)
	c.Set("role", "user")
	return c, rec
}

func TestEnrollPaidCourseRequiresMembership(t *testing.T) {
	store := &courseStore{}
	h := newCourseHandler(t, store)

	c, rec := enrollContext(t, 9)
	if err := h.Enroll(c); err != nil {
		t.Fatalf("Enroll returned error: %v", err)
	}
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}

	checked := false
	for _, q := range store.queries {
		if strings.Contains(q, "FROM subscriptions") {
			checked = true
		}
		if strings.Contains(q, "INSERT INTO course_enrollments") {
			t.Fatalf("enrollment created without an active membership")
		}
	}
	if !checked {
		t.Fatalf("membership was never checked")
	}
}

func TestEnrollPaidCourseWithMembership(t *testing.T) {
	store := &courseStore{hasMembership: true}
	h := newCourseHandler(t, store)

	c, rec := enrollContext(t, 9)
	if err := h.Enroll(c); err != nil {
		t.Fatalf("Enroll returned error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}

	var resp struct {
		Enrollment struct {
			PaymentStatus string `json:"payment_status"`
			Status        string `json:"status"`
		} `json:"enrollment"`
		Payment struct {
			Amount float64 `json:"amount"`
			Status string  `json:"status"`
		} `json:"payment"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Enrollment.Status != "active" || resp.Enrollment.PaymentStatus != "pending" {
		t.Fatalf("enrollment = %s/%s, want active/pending",
			resp.Enrollment.Status, resp.Enrollment.PaymentStatus)
	}
	if resp.Payment.Amount != 500 || resp.Payment.Status != "pending" {
		t.Fatalf("payment = %v/%s, want 500/pending", resp.Payment.Amount, resp.Payment.Status)
	}
}
