package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/kozi/core"
	"github.com/trezcool/kozi/core/assignment"
)

type assignmentRow struct {
	ID                    string      `db:"id"`
	CourseID              string      `db:"course_id"`
	Title                 string      `db:"title"`
	Description           null.String `db:"description"`
	DueDate               null.Time   `db:"due_date"`
	Weight                float64     `db:"weight"`
	LateSubmissionAllowed bool        `db:"late_submission_allowed"`
	ResubmissionAllowed   bool        `db:"resubmission_allowed"`
	Status                string      `db:"status"`
	CreatedAt             null.Time   `db:"created_at"`
	UpdatedAt             null.Time   `db:"updated_at"`
}

func (r assignmentRow) domain() assignment.Assignment {
	return assignment.Assignment{
		ID:                    r.ID,
		CourseID:              r.CourseID,
		Title:                 r.Title,
		Description:           r.Description.String,
		DueDate:               r.DueDate.Time,
		Weight:                r.Weight,
		LateSubmissionAllowed: r.LateSubmissionAllowed,
		ResubmissionAllowed:   r.ResubmissionAllowed,
		Status:                r.Status,
		CreatedAt:             r.CreatedAt.Time,
		UpdatedAt:             r.UpdatedAt.Time,
	}
}

type assignmentRepository struct {
	db *sqlx.DB
}

var _ assignment.Repository = (*assignmentRepository)(nil) // interface compliance check

func NewAssignmentRepository(db *sqlx.DB) *assignmentRepository {
	return &assignmentRepository{db: db}
}

func (repo assignmentRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return assignment.ErrNotFound
	}
	if sderr := trapShutdownErr(err); sderr != nil {
		return sderr
	}
	return errors.Wrap(err, msg)
}

func (repo assignmentRepository) CreateAssignment(ctx context.Context, a assignment.Assignment) (assignment.Assignment, error) {
	a.ID = uuid.New().String()
	var row assignmentRow
	err := repo.db.GetContext(ctx, &row, `
		INSERT INTO assignment
		    (id, course_id, title, description, due_date, weight,
		     late_submission_allowed, resubmission_allowed, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING *`,
		a.ID, a.CourseID, a.Title,
		null.NewString(a.Description, a.Description != ""),
		null.NewTime(a.DueDate.UTC(), !a.DueDate.IsZero()),
		a.Weight, a.LateSubmissionAllowed, a.ResubmissionAllowed, a.Status,
		a.CreatedAt.UTC(), a.UpdatedAt.UTC(),
	)
	if err != nil {
		return assignment.Assignment{}, errors.Wrap(err, "inserting assignment")
	}
	return row.domain(), nil
}

func (repo assignmentRepository) GetAssignment(ctx context.Context, id string) (assignment.Assignment, error) {
	if _, err := uuid.Parse(id); err != nil {
		return assignment.Assignment{}, assignment.ErrNotFound
	}
	var row assignmentRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM assignment WHERE id = $1`, id); err != nil {
		return assignment.Assignment{}, repo.trapNoRowsErr(err, "finding assignment")
	}
	return row.domain(), nil
}

// PublishAssignment performs the draft -> published transition as a single
// conditional update so two concurrent publish calls cannot both succeed.
func (repo assignmentRepository) PublishAssignment(ctx context.Context, id string, now time.Time) (assignment.Assignment, error) {
	var row assignmentRow
	err := repo.db.GetContext(ctx, &row, `
		UPDATE assignment
		SET status     = $2,
		    updated_at = $3
		WHERE id = $1 AND status = $4
		RETURNING *`,
		id, assignment.StatusPublished, now.UTC(), assignment.StatusDraft,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return assignment.Assignment{}, assignment.ErrNotDraft
		}
		return assignment.Assignment{}, errors.Wrap(err, "publishing assignment")
	}
	return row.domain(), nil
}

func (repo assignmentRepository) FilterAssignments(ctx context.Context, filter assignment.QueryFilter, ordering []core.DBOrdering) ([]assignment.Assignment, error) {
	query := `SELECT * FROM assignment WHERE 1=1`
	var args []interface{}

	if filter.CourseID != "" {
		query += ` AND course_id = ?`
		args = append(args, filter.CourseID)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}

	if len(ordering) > 0 {
		orderList := make([]string, 0, len(ordering))
		for _, ord := range ordering {
			orderList = append(orderList, ord.String())
		}
		query += ` ORDER BY ` + strings.Join(orderList, ", ")
	} else {
		query += ` ORDER BY created_at`
	}

	var rows []assignmentRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying assignments")
	}

	assignments := make([]assignment.Assignment, 0, len(rows))
	for _, r := range rows {
		assignments = append(assignments, r.domain())
	}
	return assignments, nil
}
