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
	"github.com/trezcool/kozi/core/submission"
)

type submissionRow struct {
	ID           string       `db:"id"`
	AssignmentID string       `db:"assignment_id"`
	LearnerID    string       `db:"learner_id"`
	ContentText  string       `db:"content_text"`
	ContentLink  null.String  `db:"content_link"`
	SubmittedAt  null.Time    `db:"submitted_at"`
	IsLate       bool         `db:"is_late"`
	Status       string       `db:"status"`
	Score        null.Float64 `db:"score"`
	Feedback     null.String  `db:"feedback"`
	CreatedAt    null.Time    `db:"created_at"`
	UpdatedAt    null.Time    `db:"updated_at"`
}

func (r submissionRow) domain() submission.Submission {
	return submission.Submission{
		ID:           r.ID,
		AssignmentID: r.AssignmentID,
		LearnerID:    r.LearnerID,
		ContentText:  r.ContentText,
		ContentLink:  r.ContentLink.String,
		SubmittedAt:  r.SubmittedAt.Time,
		IsLate:       r.IsLate,
		Status:       r.Status,
		Score:        r.Score.Ptr(),
		Feedback:     r.Feedback.String,
		CreatedAt:    r.CreatedAt.Time,
		UpdatedAt:    r.UpdatedAt.Time,
	}
}

type submissionRepository struct {
	db *sqlx.DB
}

var _ submission.Repository = (*submissionRepository)(nil) // interface compliance check

func NewSubmissionRepository(db *sqlx.DB) *submissionRepository {
	return &submissionRepository{db: db}
}

func (repo submissionRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return submission.ErrNotFound
	}
	if sderr := trapShutdownErr(err); sderr != nil {
		return sderr
	}
	return errors.Wrap(err, msg)
}

func (repo submissionRepository) GetSubmission(ctx context.Context, filter submission.GetFilter) (submission.Submission, error) {
	var row submissionRow
	var err error

	switch {
	case filter.ID != "":
		if _, uerr := uuid.Parse(filter.ID); uerr != nil {
			return submission.Submission{}, submission.ErrNotFound
		}
		err = repo.db.GetContext(ctx, &row, `SELECT * FROM submission WHERE id = $1`, filter.ID)
	case filter.AssignmentID != "" && filter.LearnerID != "":
		err = repo.db.GetContext(ctx, &row, `
			SELECT * FROM submission WHERE assignment_id = $1 AND learner_id = $2`,
			filter.AssignmentID, filter.LearnerID,
		)
	default:
		return submission.Submission{}, submission.ErrNotFound
	}

	if err != nil {
		return submission.Submission{}, repo.trapNoRowsErr(err, "finding submission")
	}
	return row.domain(), nil
}

// UpsertSubmission relies on the (assignment_id, learner_id) unique constraint:
// a resubmit replaces the prior row's content in place while preserving its
// identity, created_at and any stale score/feedback from the last grading cycle.
func (repo submissionRepository) UpsertSubmission(ctx context.Context, sub submission.Submission) (submission.Submission, error) {
	var row submissionRow
	err := repo.db.GetContext(ctx, &row, `
		INSERT INTO submission
		    (id, assignment_id, learner_id, content_text, content_link,
		     submitted_at, is_late, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (assignment_id, learner_id) DO UPDATE
		SET content_text = EXCLUDED.content_text,
		    content_link = EXCLUDED.content_link,
		    submitted_at = EXCLUDED.submitted_at,
		    is_late      = EXCLUDED.is_late,
		    status       = EXCLUDED.status,
		    updated_at   = EXCLUDED.updated_at
		RETURNING *`,
		uuid.New().String(), sub.AssignmentID, sub.LearnerID, sub.ContentText,
		null.NewString(sub.ContentLink, sub.ContentLink != ""),
		sub.SubmittedAt.UTC(), sub.IsLate, sub.Status, sub.CreatedAt.UTC(), sub.UpdatedAt.UTC(),
	)
	if err != nil {
		return submission.Submission{}, errors.Wrap(err, "upserting submission")
	}
	return row.domain(), nil
}

// GradeSubmission grades in a single conditional update so a concurrent grade
// on the same row cannot be applied twice.
func (repo submissionRepository) GradeSubmission(ctx context.Context, id string, score float64, feedback string, now time.Time) (submission.Submission, error) {
	var row submissionRow
	err := repo.db.GetContext(ctx, &row, `
		UPDATE submission
		SET status     = $2,
		    score      = $3,
		    feedback   = $4,
		    updated_at = $5
		WHERE id = $1 AND status <> $2
		RETURNING *`,
		id, submission.StatusGraded, score, feedback, now.UTC(),
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return submission.Submission{}, submission.ErrAlreadyGraded
		}
		return submission.Submission{}, errors.Wrap(err, "grading submission")
	}
	return row.domain(), nil
}

func (repo submissionRepository) RequestResubmission(ctx context.Context, id string, now time.Time) (submission.Submission, error) {
	var row submissionRow
	err := repo.db.GetContext(ctx, &row, `
		UPDATE submission
		SET status     = $2,
		    updated_at = $3
		WHERE id = $1
		RETURNING *`,
		id, submission.StatusResubmissionRequired, now.UTC(),
	)
	if err != nil {
		return submission.Submission{}, repo.trapNoRowsErr(err, "requesting resubmission")
	}
	return row.domain(), nil
}

func (repo submissionRepository) FilterSubmissions(ctx context.Context, filter submission.QueryFilter, ordering []core.DBOrdering) ([]submission.Submission, error) {
	query := `SELECT * FROM submission WHERE 1=1`
	var args []interface{}

	if filter.AssignmentID != "" {
		query += ` AND assignment_id = ?`
		args = append(args, filter.AssignmentID)
	}
	if filter.LearnerID != "" {
		query += ` AND learner_id = ?`
		args = append(args, filter.LearnerID)
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
		query += ` ORDER BY submitted_at DESC`
	}

	var rows []submissionRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying submissions")
	}

	subs := make([]submission.Submission, 0, len(rows))
	for _, r := range rows {
		subs = append(subs, r.domain())
	}
	return subs, nil
}
