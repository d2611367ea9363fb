package submission

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/kozi/core"
)

// Submission statuses
const (
	StatusSubmitted            = "submitted"
	StatusResubmissionRequired = "resubmission_required"
	StatusGraded               = "graded"
)

type Submission struct {
	ID           string    `json:"id"`
	AssignmentID string    `json:"assignment_id"`
	LearnerID    string    `json:"learner_id"`
	ContentText  string    `json:"content_text"`
	ContentLink  string    `json:"content_link,omitempty"`
	SubmittedAt  time.Time `json:"submitted_at"` // UTC
	IsLate       bool      `json:"is_late"`
	Status       string    `json:"status"`
	Score        *float64  `json:"score"`
	Feedback     string    `json:"feedback,omitempty"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
}

func (s *Submission) IsGraded() bool {
	return s.Status == StatusGraded
}

// SubmitAssignment is a learner's work product for one Assignment.
type SubmitAssignment struct {
	Content string `json:"content" validate:"required"`
	Link    string `json:"link" validate:"omitempty,url"`
}

func (sa *SubmitAssignment) Validate(validate *validator.Validate) error {
	sa.Content = core.CleanString(sa.Content)
	sa.Link = core.CleanString(sa.Link)
	return validate.Struct(sa)
}

// GradeSubmission is an instructor's grading decision.
type GradeSubmission struct {
	Score    *float64 `json:"score" validate:"required,gte=0,lte=100"`
	Feedback string   `json:"feedback" validate:"required"`
}

func (gs *GradeSubmission) Validate(validate *validator.Validate) error {
	gs.Feedback = core.CleanString(gs.Feedback)
	return validate.Struct(gs)
}

// GetFilter looks a Submission up by ID or by its (assignment, learner) key.
type GetFilter struct {
	ID           string
	AssignmentID string
	LearnerID    string
}

// QueryFilter applies AND operation on available fields.
type QueryFilter struct {
	AssignmentID string `query:"assignment_id"`
	LearnerID    string `query:"learner_id"`
	Status       string `query:"status"`
}
