package course

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/kozi/core"
)

// Course statuses
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
	StatusArchived  = "archived"
)

// Enrollment statuses
const (
	EnrollmentActive    = "active"
	EnrollmentCancelled = "cancelled"
)

type Course struct {
	ID           string    `json:"id"`
	InstructorID string    `json:"instructor_id"`
	Title        string    `json:"title"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
}

type Enrollment struct {
	ID         string    `json:"id"`
	CourseID   string    `json:"course_id"`
	LearnerID  string    `json:"learner_id"`
	Status     string    `json:"status"`
	EnrolledAt time.Time `json:"enrolled_at"` // UTC
}

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	Title string `json:"title" validate:"required"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Title = core.CleanString(nc.Title)
	return validate.Struct(nc)
}
