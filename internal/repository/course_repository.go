package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/healing-center/internal/model"
)

// CourseRepo loads the course catalog tree: courses, their modules and the
// lessons inside each module, always ordered by sort_order.
type CourseRepo struct{ db *sql.DB }

func NewCourseRepo(db *sql.DB) *CourseRepo { return &CourseRepo{db: db} }

const courseCols = `id, title_ar, title_en, description_ar, description_en, price, currency,
       thumbnail_url, duration_weeks, level, is_published, is_free, created_at, updated_at`

// List returns courses newest first. publishedOnly hides drafts for the
// public catalog; admins pass false to see everything.
func (r *CourseRepo) List(ctx context.Context, publishedOnly bool) ([]model.Course, error) {
	q := `SELECT ` + courseCols + ` FROM courses`
	if publishedOnly {
		q += ` WHERE is_published = 1`
	}
	q += ` ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	courses := make([]model.Course, 0)
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, err
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}

func (r *CourseRepo) GetByID(ctx context.Context, id uint64) (model.Course, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+courseCols+` FROM courses WHERE id = ?`, id)
	return scanCourse(row)
}

// Modules returns a course's modules in display order, optionally limited to
// published ones.
func (r *CourseRepo) Modules(ctx context.Context, courseID uint64, publishedOnly bool) ([]model.CourseModule, error) {
	q := `SELECT id, course_id, title_ar, title_en, description_ar, description_en,
	             sort_order, is_published
	      FROM course_modules WHERE course_id = ?`
	if publishedOnly {
		q += ` AND is_published = 1`
	}
	q += ` ORDER BY sort_order ASC, id ASC`
	rows, err := r.db.QueryContext(ctx, q, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	modules := make([]model.CourseModule, 0)
	for rows.Next() {
		var (
			m            model.CourseModule
			descAR, desc sql.NullString
		)
		if err := rows.Scan(&m.ID, &m.CourseID, &m.TitleAR, &m.TitleEN,
			&descAR, &desc, &m.SortOrder, &m.IsPublished); err != nil {
			return nil, err
		}
		m.DescriptionAR = descAR.String
		m.DescriptionEN = desc.String
		modules = append(modules, m)
	}
	return modules, rows.Err()
}

// Lessons returns the lessons of one module in display order.
func (r *CourseRepo) Lessons(ctx context.Context, moduleID uint64, publishedOnly bool) ([]model.CourseLesson, error) {
	q := `SELECT id, module_id, title_ar, title_en, content_ar, content_en, video_url,
	             pdf_url, lesson_type, duration_minutes, sort_order, is_published, is_free
	      FROM course_lessons WHERE module_id = ?`
	if publishedOnly {
		q += ` AND is_published = 1`
	}
	q += ` ORDER BY sort_order ASC, id ASC`
	rows, err := r.db.QueryContext(ctx, q, moduleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	lessons := make([]model.CourseLesson, 0)
	for rows.Next() {
		l, err := scanLesson(rows)
		if err != nil {
			return nil, err
		}
		lessons = append(lessons, l)
	}
	return lessons, rows.Err()
}

func (r *CourseRepo) GetLesson(ctx context.Context, lessonID uint64) (model.CourseLesson, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, module_id, title_ar, title_en, content_ar, content_en, video_url,
		        pdf_url, lesson_type, duration_minutes, sort_order, is_published, is_free
		 FROM course_lessons WHERE id = ?`, lessonID)
	return scanLesson(row)
}

// LessonCourseID resolves which course a lesson belongs to via its module.
func (r *CourseRepo) LessonCourseID(ctx context.Context, lessonID uint64) (uint64, error) {
	var courseID uint64
	err := r.db.QueryRowContext(ctx,
		`SELECT m.course_id FROM course_lessons l
		 JOIN course_modules m ON m.id = l.module_id
		 WHERE l.id = ?`, lessonID).Scan(&courseID)
	return courseID, err
}

// CountPublishedLessons counts the lessons in published modules of a course
// that count toward progress.
func (r *CourseRepo) CountPublishedLessons(ctx context.Context, courseID uint64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM course_lessons l
		 JOIN course_modules m ON m.id = l.module_id
		 WHERE m.course_id = ? AND m.is_published = 1 AND l.is_published = 1`,
		courseID).Scan(&n)
	return n, err
}

// CountPublishedLessonsTx is CountPublishedLessons inside a transaction, used
// by the progress recompute.
func (r *CourseRepo) CountPublishedLessonsTx(ctx context.Context, tx *sql.Tx, courseID uint64) (int, error) {
	var n int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM course_lessons l
		 JOIN course_modules m ON m.id = l.module_id
		 WHERE m.course_id = ? AND m.is_published = 1 AND l.is_published = 1`,
		courseID).Scan(&n)
	return n, err
}

func (r *CourseRepo) Create(ctx context.Context, c *model.Course) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO courses (title_ar, title_en, description_ar, description_en, price,
		        currency, thumbnail_url, duration_weeks, level, is_published, is_free)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		c.TitleAR, c.TitleEN, c.DescriptionAR, c.DescriptionEN, c.Price,
		c.Currency, c.ThumbnailURL, c.DurationWeeks, c.Level, c.IsPublished, c.IsFree)
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

func (r *CourseRepo) Update(ctx context.Context, c *model.Course) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE courses SET title_ar = ?, title_en = ?, description_ar = ?, description_en = ?,
		        price = ?, currency = ?, thumbnail_url = ?, duration_weeks = ?, level = ?,
		        is_published = ?, is_free = ?, updated_at = NOW()
		 WHERE id = ?`,
		c.TitleAR, c.TitleEN, c.DescriptionAR, c.DescriptionEN,
		c.Price, c.Currency, c.ThumbnailURL, c.DurationWeeks, c.Level,
		c.IsPublished, c.IsFree, c.ID)
	return err
}

func (r *CourseRepo) CreateModule(ctx context.Context, m *model.CourseModule) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO course_modules (course_id, title_ar, title_en, description_ar,
		        description_en, sort_order, is_published)
		 VALUES (?,?,?,?,?,?,?)`,
		m.CourseID, m.TitleAR, m.TitleEN, m.DescriptionAR, m.DescriptionEN,
		m.SortOrder, m.IsPublished)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = uint64(id)
	return nil
}

func (r *CourseRepo) CreateLesson(ctx context.Context, l *model.CourseLesson) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO course_lessons (module_id, title_ar, title_en, content_ar, content_en,
		        video_url, pdf_url, lesson_type, duration_minutes, sort_order,
		        is_published, is_free)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		l.ModuleID, l.TitleAR, l.TitleEN, l.ContentAR, l.ContentEN,
		l.VideoURL, l.PDFURL, l.LessonType, l.DurationMinutes, l.SortOrder,
		l.IsPublished, l.IsFree)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	l.ID = uint64(id)
	return nil
}

func scanCourse(row rowScanner) (model.Course, error) {
	var (
		c            model.Course
		descAR, desc sql.NullString
		thumb, level sql.NullString
	)
	err := row.Scan(&c.ID, &c.TitleAR, &c.TitleEN, &descAR, &desc, &c.Price, &c.Currency,
		&thumb, &c.DurationWeeks, &level, &c.IsPublished, &c.IsFree,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return model.Course{}, err
	}
	c.DescriptionAR = descAR.String
	c.DescriptionEN = desc.String
	c.ThumbnailURL = thumb.String
	c.Level = level.String
	return c, nil
}

func scanLesson(row rowScanner) (model.CourseLesson, error) {
	var (
		l                           model.CourseLesson
		contentAR, content          sql.NullString
		videoURL, pdfURL, lessonTyp sql.NullString
	)
	err := row.Scan(&l.ID, &l.ModuleID, &l.TitleAR, &l.TitleEN, &contentAR, &content,
		&videoURL, &pdfURL, &lessonTyp, &l.DurationMinutes, &l.SortOrder,
		&l.IsPublished, &l.IsFree)
	if err != nil {
		return model.CourseLesson{}, err
	}
	l.ContentAR = contentAR.String
	l.ContentEN = content.String
	l.VideoURL = videoURL.String
	l.PDFURL = pdfURL.String
	l.LessonType = lessonTyp.String
	return l, nil
}
