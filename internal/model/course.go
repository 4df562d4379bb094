package model

import "time"

// Enrollment status values. The active -> completed transition is one-way
// and happens automatically when progress reaches 100%; cancelled is a
// manual transition.
const (
	EnrollActive    = "active"
	EnrollCompleted = "completed"
	EnrollCancelled = "cancelled"
)

// Course is a published or draft online course. Unpublished courses are
// invisible to non-admins. Free courses can be enrolled in without an
// active membership.
type Course struct {
	ID            uint64    // courses.id
	TitleAR       string    // courses.title_ar
	TitleEN       string    // courses.title_en
	DescriptionAR string    // courses.description_ar
	DescriptionEN string    // courses.description_en
	Price         float64   // courses.price
	Currency      string    // courses.currency
	ThumbnailURL  string    // courses.thumbnail_url
	DurationWeeks int       // courses.duration_weeks
	Level         string    // courses.level (beginner, intermediate, advanced)
	IsPublished   bool      // courses.is_published
	IsFree        bool      // courses.is_free
	CreatedAt     time.Time // courses.created_at
	UpdatedAt     time.Time // courses.updated_at
}

func (c Course) Localized(lang string) map[string]any {
	return map[string]any{
		"id":             c.ID,
		"title":          Pick(lang, c.TitleAR, c.TitleEN),
		"description":    Pick(lang, c.DescriptionAR, c.DescriptionEN),
		"price":          c.Price,
		"currency":       c.Currency,
		"thumbnail_url":  c.ThumbnailURL,
		"duration_weeks": c.DurationWeeks,
		"level":          c.Level,
		"is_published":   c.IsPublished,
		"is_free":        c.IsFree,
		"created_at":     c.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// CourseModule groups lessons inside a course, ordered by SortOrder.
type CourseModule struct {
	ID            uint64 // course_modules.id
	CourseID      uint64 // course_modules.course_id
	TitleAR       string // course_modules.title_ar
	TitleEN       string // course_modules.title_en
	DescriptionAR string // course_modules.description_ar
	DescriptionEN string // course_modules.description_en
	SortOrder     int    // course_modules.sort_order
	IsPublished   bool   // course_modules.is_published
}

func (m CourseModule) Localized(lang string) map[string]any {
	return map[string]any{
		"id":           m.ID,
		"course_id":    m.CourseID,
		"title":        Pick(lang, m.TitleAR, m.TitleEN),
		"description":  Pick(lang, m.DescriptionAR, m.DescriptionEN),
		"order":        m.SortOrder,
		"is_published": m.IsPublished,
	}
}

// CourseLesson is a single unit of course content. Free lessons are viewable
// without enrollment; the rest require an active enrollment or membership.
type CourseLesson struct {
	ID              uint64 // course_lessons.id
	ModuleID        uint64 // course_lessons.module_id
	TitleAR         string // course_lessons.title_ar
	TitleEN         string // course_lessons.title_en
	ContentAR       string // course_lessons.content_ar
	ContentEN       string // course_lessons.content_en
	VideoURL        string // course_lessons.video_url
	PDFURL          string // course_lessons.pdf_url
	LessonType      string // course_lessons.lesson_type (video, text, pdf, quiz)
	DurationMinutes int    // course_lessons.duration_minutes
	SortOrder       int    // course_lessons.sort_order
	IsPublished     bool   // course_lessons.is_published
	IsFree          bool   // course_lessons.is_free
}

func (l CourseLesson) Localized(lang string) map[string]any {
	return map[string]any{
		"id":               l.ID,
		"module_id":        l.ModuleID,
		"title":            Pick(lang, l.TitleAR, l.TitleEN),
		"content":          Pick(lang, l.ContentAR, l.ContentEN),
		"video_url":        l.VideoURL,
		"pdf_url":          l.PDFURL,
		"lesson_type":      l.LessonType,
		"duration_minutes": l.DurationMinutes,
		"order":            l.SortOrder,
		"is_published":     l.IsPublished,
		"is_free":          l.IsFree,
	}
}

// CanAccessLesson applies the lesson access rule: a free lesson is open to
// everyone; otherwise the caller needs an active enrollment in the course
// or an active all-access membership.
func CanAccessLesson(lesson CourseLesson, enrolled, hasMembership bool) bool {
	return lesson.IsFree || enrolled || hasMembership
}

// CourseEnrollment tracks a user's registration in a course along with the
// aggregated progress percentage derived from LessonProgress rows.
type CourseEnrollment struct {
	ID                 uint64     // course_enrollments.id
	UserID             uint64     // course_enrollments.user_id
	CourseID           uint64     // course_enrollments.course_id
	EnrolledAt         time.Time  // course_enrollments.enrolled_at
	CompletedAt        *time.Time // course_enrollments.completed_at (nullable)
	ProgressPercentage float64    // course_enrollments.progress_percentage
	Status             string     // course_enrollments.status
	PaymentStatus      string     // course_enrollments.payment_status
}

func (e CourseEnrollment) JSON() map[string]any {
	var completed any
	if e.CompletedAt != nil {
		completed = e.CompletedAt.UTC().Format(time.RFC3339)
	}
	return map[string]any{
		"id":                  e.ID,
		"user_id":             e.UserID,
		"course_id":           e.CourseID,
		"enrollment_date":     e.EnrolledAt.UTC().Format(time.RFC3339),
		"completion_date":     completed,
		"progress_percentage": e.ProgressPercentage,
		"status":              e.Status,
		"payment_status":      e.PaymentStatus,
	}
}

// LessonProgress is one row per (enrollment, lesson), created lazily on the
// first progress update for that lesson.
type LessonProgress struct {
	ID               uint64     // lesson_progress.id
	EnrollmentID     uint64     // lesson_progress.enrollment_id
	LessonID         uint64     // lesson_progress.lesson_id
	IsCompleted      bool       // lesson_progress.is_completed
	CompletedAt      *time.Time // lesson_progress.completed_at (nullable)
	WatchTimeSeconds int        // lesson_progress.watch_time_seconds
}

func (p LessonProgress) JSON() map[string]any {
	var completed any
	if p.CompletedAt != nil {
		completed = p.CompletedAt.UTC().Format(time.RFC3339)
	}
	return map[string]any{
		"id":                 p.ID,
		"enrollment_id":      p.EnrollmentID,
		"lesson_id":          p.LessonID,
		"is_completed":       p.IsCompleted,
		"completion_date":    completed,
		"watch_time_seconds": p.WatchTimeSeconds,
	}
}

// ProgressPercentage computes completed/total * 100 clamped to [0,100].
// Only published lessons count toward either side. Zero published lessons
// yields zero progress, never a division error.
func ProgressPercentage(completedLessons, totalPublished int) float64 {
	if totalPublished <= 0 {
		return 0
	}
	pct := float64(completedLessons) / float64(totalPublished) * 100
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
