package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/kozi/core/course"
)

type courseRow struct {
	ID           string    `db:"id"`
	InstructorID string    `db:"instructor_id"`
	Title        string    `db:"title"`
	Status       string    `db:"status"`
	CreatedAt    null.Time `db:"created_at"`
	UpdatedAt    null.Time `db:"updated_at"`
}

func (r courseRow) domain() course.Course {
	return course.Course{
		ID:           r.ID,
		InstructorID: r.InstructorID,
		Title:        r.Title,
		Status:       r.Status,
		CreatedAt:    r.CreatedAt.Time,
		UpdatedAt:    r.UpdatedAt.Time,
	}
}

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *sqlx.DB) *courseRepository {
	return &courseRepository{db: db}
}

func (repo courseRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return course.ErrNotFound
	}
	if sderr := trapShutdownErr(err); sderr != nil {
		return sderr
	}
	return errors.Wrap(err, msg)
}

func (repo courseRepository) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	crs.ID = uuid.New().String()
	var row courseRow
	err := repo.db.GetContext(ctx, &row, `
		INSERT INTO course (id, instructor_id, title, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING *`,
		crs.ID, crs.InstructorID, crs.Title, crs.Status, crs.CreatedAt.UTC(), crs.UpdatedAt.UTC(),
	)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return row.domain(), nil
}

func (repo courseRepository) GetCourse(ctx context.Context, id string) (course.Course, error) {
	if _, err := uuid.Parse(id); err != nil {
		return course.Course{}, course.ErrNotFound
	}
	var row courseRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM course WHERE id = $1`, id); err != nil {
		return course.Course{}, repo.trapNoRowsErr(err, "finding course")
	}
	return row.domain(), nil
}

func (repo courseRepository) UpdateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	var row courseRow
	err := repo.db.GetContext(ctx, &row, `
		UPDATE course
		SET title      = $2,
		    status     = $3,
		    updated_at = now()
		WHERE id = $1
		RETURNING *`,
		crs.ID, crs.Title, crs.Status,
	)
	if err != nil {
		return course.Course{}, repo.trapNoRowsErr(err, "updating course")
	}
	return row.domain(), nil
}

type enrollmentRow struct {
	ID         string    `db:"id"`
	CourseID   string    `db:"course_id"`
	LearnerID  string    `db:"learner_id"`
	Status     string    `db:"status"`
	EnrolledAt null.Time `db:"enrolled_at"`
}

func (r enrollmentRow) domain() course.Enrollment {
	return course.Enrollment{
		ID:         r.ID,
		CourseID:   r.CourseID,
		LearnerID:  r.LearnerID,
		Status:     r.Status,
		EnrolledAt: r.EnrolledAt.Time,
	}
}

type enrollmentRepository struct {
	db *sqlx.DB
}

var _ course.EnrollmentRepository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(db *sqlx.DB) *enrollmentRepository {
	return &enrollmentRepository{db: db}
}

func (repo enrollmentRepository) CreateEnrollment(ctx context.Context, enr course.Enrollment) (course.Enrollment, error) {
	enr.ID = uuid.New().String()
	var row enrollmentRow
	err := repo.db.GetContext(ctx, &row, `
		INSERT INTO enrollment (id, course_id, learner_id, status, enrolled_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING *`,
		enr.ID, enr.CourseID, enr.LearnerID, enr.Status, enr.EnrolledAt.UTC(),
	)
	if err != nil {
		return course.Enrollment{}, errors.Wrap(err, "inserting enrollment")
	}
	return row.domain(), nil
}

func (repo enrollmentRepository) GetActiveEnrollment(ctx context.Context, courseID, learnerID string) (course.Enrollment, error) {
	var row enrollmentRow
	err := repo.db.GetContext(ctx, &row, `
		SELECT * FROM enrollment
		WHERE course_id = $1 AND learner_id = $2 AND status = $3`,
		courseID, learnerID, course.EnrollmentActive,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return course.Enrollment{}, course.ErrEnrollmentNotFound
		}
		return course.Enrollment{}, errors.Wrap(err, "finding enrollment")
	}
	return row.domain(), nil
}
