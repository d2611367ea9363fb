package assignment

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/kozi/core"
)

// Assignment statuses
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
	StatusClosed    = "closed"
)

type Assignment struct {
	ID                    string    `json:"id"`
	CourseID              string    `json:"course_id"`
	Title                 string    `json:"title"`
	Description           string    `json:"description"`
	DueDate               time.Time `json:"due_date"` // UTC; zero value = no deadline
	Weight                float64   `json:"weight"`
	LateSubmissionAllowed bool      `json:"late_submission_allowed"`
	ResubmissionAllowed   bool      `json:"resubmission_allowed"`
	Status                string    `json:"status"`
	CreatedAt             time.Time `json:"created_at"` // UTC
	UpdatedAt             time.Time `json:"updated_at"` // UTC
}

func (a *Assignment) HasDeadline() bool {
	return !a.DueDate.IsZero()
}

// NewAssignment contains information needed to create a new Assignment.
// Assignments are always created in draft.
type NewAssignment struct {
	CourseID              string    `json:"course_id" validate:"required"`
	Title                 string    `json:"title" validate:"required"`
	Description           string    `json:"description"`
	DueDate               time.Time `json:"due_date"`
	Weight                float64   `json:"weight" validate:"gte=0,lte=100"`
	LateSubmissionAllowed bool      `json:"late_submission_allowed"`
	ResubmissionAllowed   bool      `json:"resubmission_allowed"`
}

func (na *NewAssignment) Validate(validate *validator.Validate) error {
	na.Title = core.CleanString(na.Title)
	na.Description = core.CleanString(na.Description)
	return validate.Struct(na)
}

// QueryFilter applies AND operation on available fields.
type QueryFilter struct {
	CourseID string `query:"course_id"`
	Status   string `query:"status"`
}
