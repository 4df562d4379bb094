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
	"github.com/iliyamo/healing-center/internal/repository"
)

// CourseHandler serves the course catalog tree, enrollment and per-lesson
// progress. List and detail routes run behind OptionalJWT: guests see the
// published catalog, signed-in users additionally see their enrollment
// state and progress.
type CourseHandler struct {
	Cfg         config.Config
	Courses     *repository.CourseRepo
	Enrollments *repository.EnrollmentRepo
	Subs        *repository.SubscriptionRepo
	Payments    *repository.PaymentRepo
}

func NewCourseHandler(cfg config.Config, co *repository.CourseRepo, en *repository.EnrollmentRepo, su *repository.SubscriptionRepo, pa *repository.PaymentRepo) *CourseHandler {
	if co == nil || en == nil || su == nil || pa == nil {
		panic("nil repository passed to NewCourseHandler")
	}
	return &CourseHandler{Cfg: cfg, Courses: co, Enrollments: en, Subs: su, Payments: pa}
}

// List handles GET /v1/courses. Drafts are visible to admins only. For a
// signed-in caller each course carries an is_enrolled flag.
func (h *CourseHandler) List(c echo.Context) error {
	lang := requestLang(c, h.Cfg.DefaultLanguage)
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	courses, err := h.Courses.List(ctx, !isAdmin(c))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	enrolled := map[uint64]bool{}
	if userID, err := getUserID(c); err == nil {
		list, err := h.Enrollments.ListByUser(ctx, userID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
		}
		for _, e := range list {
			if e.Status != model.EnrollCancelled {
				enrolled[e.CourseID] = true
			}
		}
	}

	out := make([]map[string]any, 0, len(courses))
	for _, course := range courses {
		item := course.Localized(lang)
		item["is_enrolled"] = enrolled[course.ID]
		out = append(out, item)
	}
	return c.JSON(http.StatusOK, echo.Map{"courses": out})
}

// Get handles GET /v1/courses/:id and returns the full tree: course,
// modules, lessons. Each lesson carries has_access, and for enrolled
// callers the progress rows are merged in.
func (h *CourseHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid course id"})
	}
	lang := requestLang(c, h.Cfg.DefaultLanguage)
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	course, err := h.Courses.GetByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "course not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	admin := isAdmin(c)
	if !course.IsPublished && !admin {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "course not found"})
	}

	now := time.Now().UTC()
	var (
		enrollment    *model.CourseEnrollment
		hasMembership bool
		progress      map[uint64]model.LessonProgress
	)
	if userID, uerr := getUserID(c); uerr == nil {
		if e, err := h.Enrollments.GetActive(ctx, userID, course.ID); err == nil {
			enrollment = &e
			progress, err = h.Enrollments.LessonProgressFor(ctx, e.ID)
			if err != nil {
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
			}
		} else if err != sql.ErrNoRows {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
		}
		hasMembership, err = h.Subs.HasActive(ctx, userID, now)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
		}
	}
	enrolled := enrollment != nil

	modules, err := h.Courses.Modules(ctx, course.ID, !admin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	moduleTrees := make([]map[string]any, 0, len(modules))
	for _, m := range modules {
		lessons, err := h.Courses.Lessons(ctx, m.ID, !admin)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
		}
		lessonViews := make([]map[string]any, 0, len(lessons))
		for _, l := range lessons {
			access := model.CanAccessLesson(l, enrolled, hasMembership) || admin
			view := l.Localized(lang)
			view["has_access"] = access
			if !access {
				// Locked lessons expose metadata only.
				view["content"] = ""
				view["video_url"] = ""
				view["pdf_url"] = ""
			}
			if p, ok := progress[l.ID]; ok {
				view["progress"] = p.JSON()
			}
			lessonViews = append(lessonViews, view)
		}
		tree := m.Localized(lang)
		tree["lessons"] = lessonViews
		moduleTrees = append(moduleTrees, tree)
	}

	totalLessons, err := h.Courses.CountPublishedLessons(ctx, course.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	courseView := course.Localized(lang)
	courseView["total_lessons"] = totalLessons

	resp := echo.Map{
		"course":  courseView,
		"modules": moduleTrees,
	}
	if enrollment != nil {
		resp["enrollment"] = enrollment.JSON()
	}
	return c.JSON(http.StatusOK, resp)
}

// Enroll handles POST /v1/courses/:id/enroll. Free courses enroll
// immediately as paid; paid courses require an active membership and create
// an active enrollment with a pending ledger payment. Double enrollment
// answers 409.
func (h *CourseHandler) Enroll(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid course id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	course, err := h.Courses.GetByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "course not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !course.IsPublished {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "course not found"})
	}
	if !course.IsFree {
		hasMembership, err := h.Subs.HasActive(ctx, userID, time.Now().UTC())
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
		}
		if !hasMembership {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "active membership required"})
		}
	}

	payStatus := model.PayPaid
	if !course.IsFree && course.Price > 0 {
		payStatus = model.PayPending
	}
	enrollment := model.CourseEnrollment{
		UserID:        userID,
		CourseID:      course.ID,
		PaymentStatus: payStatus,
	}
	if err := h.Enrollments.Create(ctx, &enrollment); err != nil {
		if err == repository.ErrConflict {
			return c.JSON(http.StatusConflict, echo.Map{"error": "already enrolled in this course"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "enroll failed"})
	}

	resp := echo.Map{"enrollment": enrollment.JSON()}
	if payStatus == model.PayPending {
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
		payment := model.Payment{
			UserID:        userID,
			Amount:        course.Price,
			Currency:      course.Currency,
			PaymentMethod: "card",
			RefType:       model.RefEnrollment,
			RefID:         enrollment.ID,
		}
		if err := h.Payments.CreateTx(ctx, tx, &payment); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create payment failed"})
		}
		if err := tx.Commit(); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
		}
		committed = true
		resp["payment"] = payment.JSON()
	}
	return c.JSON(http.StatusCreated, resp)
}

// MyCourses handles GET /v1/my-courses: the caller's enrollments joined
// with their courses.
func (h *CourseHandler) MyCourses(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	lang := requestLang(c, h.Cfg.DefaultLanguage)
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	enrollments, err := h.Enrollments.ListByUser(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]map[string]any, 0, len(enrollments))
	for _, e := range enrollments {
		item := e.JSON()
		if course, err := h.Courses.GetByID(ctx, e.CourseID); err == nil {
			item["course"] = course.Localized(lang)
		}
		out = append(out, item)
	}
	return c.JSON(http.StatusOK, echo.Map{"enrollments": out})
}

type lessonProgressReq struct {
	IsCompleted      *bool `json:"is_completed"`
	WatchTimeSeconds int   `json:"watch_time_seconds"`
}

// UpdateLessonProgress handles POST /v1/lessons/:id/progress. The lesson
// mark and the recomputed enrollment percentage move in one transaction;
// at 100% the enrollment flips to completed. Marking an already completed
// lesson again is a no-op for the percentage.
func (h *CourseHandler) UpdateLessonProgress(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	lessonID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid lesson id"})
	}
	var req lessonProgressReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.WatchTimeSeconds < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "watch_time_seconds must not be negative"})
	}
	completed := false
	if req.IsCompleted != nil {
		completed = *req.IsCompleted
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	lesson, err := h.Courses.GetLesson(ctx, lessonID)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "lesson not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	courseID, err := h.Courses.LessonCourseID(ctx, lesson.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	enrollment, err := h.Enrollments.GetActive(ctx, userID, courseID)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "not enrolled in this course"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	now := time.Now().UTC()
	tx, err := h.Enrollments.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := h.Enrollments.UpsertLessonProgressTx(ctx, tx, enrollment.ID, lesson.ID, completed, req.WatchTimeSeconds, now); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save progress failed"})
	}
	done, err := h.Enrollments.CountCompletedPublishedTx(ctx, tx, enrollment.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "recompute progress failed"})
	}
	total, err := h.Courses.CountPublishedLessonsTx(ctx, tx, courseID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "recompute progress failed"})
	}
	pct := model.ProgressPercentage(done, total)
	if err := h.Enrollments.UpdateProgressTx(ctx, tx, enrollment.ID, pct, now); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update enrollment failed"})
	}
	updated, err := h.Enrollments.GetTx(ctx, tx, enrollment.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true

	return c.JSON(http.StatusOK, echo.Map{
		"lesson_id":           lesson.ID,
		"is_completed":        completed,
		"completed_lessons":   done,
		"total_lessons":       total,
		"progress_percentage": pct,
		"enrollment":          updated.JSON(),
	})
}

type courseReq struct {
	TitleAR       string  `json:"title_ar"`
	TitleEN       string  `json:"title_en"`
	DescriptionAR string  `json:"description_ar"`
	DescriptionEN string  `json:"description_en"`
	Price         float64 `json:"price"`
	Currency      string  `json:"currency"`
	ThumbnailURL  string  `json:"thumbnail_url"`
	DurationWeeks int     `json:"duration_weeks"`
	Level         string  `json:"level"`
	IsPublished   bool    `json:"is_published"`
	IsFree        bool    `json:"is_free"`
}

// AdminCreate handles POST /v1/admin/courses.
func (h *CourseHandler) AdminCreate(c echo.Context) error {
	var req courseReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.TitleAR) == "" || strings.TrimSpace(req.TitleEN) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title_ar and title_en are required"})
	}
	if req.Price < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "price must not be negative"})
	}
	if req.Currency == "" {
		req.Currency = h.Cfg.DefaultCurrency
	}

	course := model.Course{
		TitleAR:       req.TitleAR,
		TitleEN:       req.TitleEN,
		DescriptionAR: req.DescriptionAR,
		DescriptionEN: req.DescriptionEN,
		Price:         req.Price,
		Currency:      req.Currency,
		ThumbnailURL:  req.ThumbnailURL,
		DurationWeeks: req.DurationWeeks,
		Level:         req.Level,
		IsPublished:   req.IsPublished,
		IsFree:        req.IsFree,
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Courses.Create(ctx, &course); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create course failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"course": course.Localized(requestLang(c, h.Cfg.DefaultLanguage))})
}

// AdminUpdate handles PUT /v1/admin/courses/:id.
func (h *CourseHandler) AdminUpdate(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid course id"})
	}
	var req courseReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.TitleAR) == "" || strings.TrimSpace(req.TitleEN) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title_ar and title_en are required"})
	}
	if req.Price < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "price must not be negative"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	course, err := h.Courses.GetByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "course not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	course.TitleAR = req.TitleAR
	course.TitleEN = req.TitleEN
	course.DescriptionAR = req.DescriptionAR
	course.DescriptionEN = req.DescriptionEN
	course.Price = req.Price
	if req.Currency != "" {
		course.Currency = req.Currency
	}
	course.ThumbnailURL = req.ThumbnailURL
	course.DurationWeeks = req.DurationWeeks
	course.Level = req.Level
	course.IsPublished = req.IsPublished
	course.IsFree = req.IsFree

	if err := h.Courses.Update(ctx, &course); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update course failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"course": course.Localized(requestLang(c, h.Cfg.DefaultLanguage))})
}

type moduleReq struct {
	TitleAR       string `json:"title_ar"`
	TitleEN       string `json:"title_en"`
	DescriptionAR string `json:"description_ar"`
	DescriptionEN string `json:"description_en"`
	SortOrder     int    `json:"order"`
	IsPublished   bool   `json:"is_published"`
}

// AdminCreateModule handles POST /v1/admin/courses/:id/modules.
func (h *CourseHandler) AdminCreateModule(c echo.Context) error {
	courseID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid course id"})
	}
	var req moduleReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.TitleAR) == "" || strings.TrimSpace(req.TitleEN) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title_ar and title_en are required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Courses.GetByID(ctx, courseID); err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "course not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	m := model.CourseModule{
		CourseID:      courseID,
		TitleAR:       req.TitleAR,
		TitleEN:       req.TitleEN,
		DescriptionAR: req.DescriptionAR,
		DescriptionEN: req.DescriptionEN,
		SortOrder:     req.SortOrder,
		IsPublished:   req.IsPublished,
	}
	if err := h.Courses.CreateModule(ctx, &m); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create module failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"module": m.Localized(requestLang(c, h.Cfg.DefaultLanguage))})
}

type lessonReq struct {
	TitleAR         string `json:"title_ar"`
	TitleEN         string `json:"title_en"`
	ContentAR       string `json:"content_ar"`
	ContentEN       string `json:"content_en"`
	VideoURL        string `json:"video_url"`
	PDFURL          string `json:"pdf_url"`
	LessonType      string `json:"lesson_type"`
	DurationMinutes int    `json:"duration_minutes"`
	SortOrder       int    `json:"order"`
	IsPublished     bool   `json:"is_published"`
	IsFree          bool   `json:"is_free"`
}

// AdminCreateLesson handles POST /v1/admin/modules/:id/lessons.
func (h *CourseHandler) AdminCreateLesson(c echo.Context) error {
	moduleID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid module id"})
	}
	var req lessonReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.TitleAR) == "" || strings.TrimSpace(req.TitleEN) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title_ar and title_en are required"})
	}
	if req.LessonType == "" {
		req.LessonType = "video"
	}

	l := model.CourseLesson{
		ModuleID:        moduleID,
		TitleAR:         req.TitleAR,
		TitleEN:         req.TitleEN,
		ContentAR:       req.ContentAR,
		ContentEN:       req.ContentEN,
		VideoURL:        req.VideoURL,
		PDFURL:          req.PDFURL,
		LessonType:      req.LessonType,
		DurationMinutes: req.DurationMinutes,
		SortOrder:       req.SortOrder,
		IsPublished:     req.IsPublished,
		IsFree:          req.IsFree,
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Courses.CreateLesson(ctx, &l); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create lesson failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"lesson": l.Localized(requestLang(c, h.Cfg.DefaultLanguage))})
}
