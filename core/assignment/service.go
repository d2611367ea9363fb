package assignment

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/kozi/core"
	"github.com/trezcool/kozi/core/course"
)

var (
	// errors
	ErrNotFound       = errors.New("assignment not found")
	ErrNotCourseOwner = errors.New("no permission to manage this assignment")
	ErrNotDraft       = errors.New("assignment has already been processed")
)

type (
	Repository interface {
		CreateAssignment(ctx context.Context, a Assignment) (Assignment, error)
		GetAssignment(ctx context.Context, id string) (Assignment, error)
		// PublishAssignment flips a draft Assignment to published in a single
		// conditional update; returns ErrNotDraft if the current status is no
		// longer draft.
		PublishAssignment(ctx context.Context, id string, now time.Time) (Assignment, error)
		FilterAssignments(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Assignment, error)
	}

	Service interface {
		Create(ctx context.Context, instructorID string, na NewAssignment) (Assignment, error)
		Get(ctx context.Context, id string) (Assignment, error)
		ListByCourse(ctx context.Context, courseID string) ([]Assignment, error)
		Publish(ctx context.Context, id, instructorID string) (Assignment, error)
	}

	service struct {
		repo       Repository
		courseRepo course.Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, courseRepo course.Repository) *service {
	return &service{
		repo:       repo,
		courseRepo: courseRepo,
	}
}

// checkCourseOwner ensures the course exists and is owned by instructorID.
func (svc *service) checkCourseOwner(ctx context.Context, courseID, instructorID string) error {
	crs, err := svc.courseRepo.GetCourse(ctx, courseID)
	if err != nil {
		if errors.Cause(err) == course.ErrNotFound {
			return course.ErrNotFound
		}
		return errors.Wrap(err, "finding course")
	}
	if crs.InstructorID != instructorID {
		return ErrNotCourseOwner
	}
	return nil
}

func (svc *service) Create(ctx context.Context, instructorID string, na NewAssignment) (Assignment, error) {
	if err := svc.checkCourseOwner(ctx, na.CourseID, instructorID); err != nil {
		return Assignment{}, err
	}

	now := time.Now().UTC()
	a := Assignment{
		CourseID:              na.CourseID,
		Title:                 na.Title,
		Description:           na.Description,
		DueDate:               na.DueDate,
		Weight:                na.Weight,
		LateSubmissionAllowed: na.LateSubmissionAllowed,
		ResubmissionAllowed:   na.ResubmissionAllowed,
		Status:                StatusDraft,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if !a.DueDate.IsZero() {
		a.DueDate = a.DueDate.UTC()
	}
	a, err := svc.repo.CreateAssignment(ctx, a)
	return a, errors.Wrap(err, "creating assignment")
}

func (svc *service) Get(ctx context.Context, id string) (Assignment, error) {
	return svc.repo.GetAssignment(ctx, id)
}

func (svc *service) ListByCourse(ctx context.Context, courseID string) ([]Assignment, error) {
	return svc.repo.FilterAssignments(ctx, QueryFilter{CourseID: courseID}, nil)
}

// Publish transitions a draft Assignment to published. It is deliberately not
// idempotent: a second call fails with ErrNotDraft.
func (svc *service) Publish(ctx context.Context, id, instructorID string) (Assignment, error) {
	a, err := svc.repo.GetAssignment(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Assignment{}, ErrNotFound
		}
		return Assignment{}, errors.Wrap(err, "finding assignment")
	}

	if err = svc.checkCourseOwner(ctx, a.CourseID, instructorID); err != nil {
		return Assignment{}, err
	}

	if a.Status != StatusDraft {
		return Assignment{}, ErrNotDraft
	}

	a, err = svc.repo.PublishAssignment(ctx, id, time.Now().UTC())
	if err != nil {
		if errors.Cause(err) == ErrNotDraft {
			return Assignment{}, ErrNotDraft
		}
		return Assignment{}, errors.Wrap(err, "publishing assignment")
	}
	return a, nil
}
