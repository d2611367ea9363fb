package course

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

var (
	// errors
	ErrNotFound           = errors.New("course not found")
	ErrNotPublished       = errors.New("course is not open for enrollment")
	ErrAlreadyEnrolled    = errors.New("already enrolled in this course")
	ErrEnrollmentNotFound = errors.New("enrollment not found")
)

type (
	Repository interface {
		CreateCourse(ctx context.Context, crs Course) (Course, error)
		GetCourse(ctx context.Context, id string) (Course, error)
		UpdateCourse(ctx context.Context, crs Course) (Course, error)
	}

	EnrollmentRepository interface {
		CreateEnrollment(ctx context.Context, enr Enrollment) (Enrollment, error)
		// GetActiveEnrollment returns the single active Enrollment for
		// (courseID, learnerID) or ErrEnrollmentNotFound.
		GetActiveEnrollment(ctx context.Context, courseID, learnerID string) (Enrollment, error)
	}

	Service interface {
		Create(ctx context.Context, instructorID string, nc NewCourse) (Course, error)
		Get(ctx context.Context, id string) (Course, error)
		Enroll(ctx context.Context, learnerID, courseID string) (Enrollment, error)
		IsActivelyEnrolled(ctx context.Context, learnerID, courseID string) (bool, error)
	}

	service struct {
		repo       Repository
		enrollRepo EnrollmentRepository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, enrollRepo EnrollmentRepository) *service {
	return &service{
		repo:       repo,
		enrollRepo: enrollRepo,
	}
}

func (svc *service) Create(ctx context.Context, instructorID string, nc NewCourse) (Course, error) {
	now := time.Now().UTC()
	crs := Course{
		InstructorID: instructorID,
		Title:        nc.Title,
		Status:       StatusDraft,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	crs, err := svc.repo.CreateCourse(ctx, crs)
	return crs, errors.Wrap(err, "creating course")
}

func (svc *service) Get(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourse(ctx, id)
}

func (svc *service) Enroll(ctx context.Context, learnerID, courseID string) (Enrollment, error) {
	crs, err := svc.repo.GetCourse(ctx, courseID)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Enrollment{}, ErrNotFound
		}
		return Enrollment{}, errors.Wrap(err, "finding course")
	}
	if crs.Status != StatusPublished {
		return Enrollment{}, ErrNotPublished
	}

	if _, err = svc.enrollRepo.GetActiveEnrollment(ctx, courseID, learnerID); err == nil {
		return Enrollment{}, ErrAlreadyEnrolled
	} else if errors.Cause(err) != ErrEnrollmentNotFound {
		return Enrollment{}, errors.Wrap(err, "checking existing enrollment")
	}

	enr := Enrollment{
		CourseID:   courseID,
		LearnerID:  learnerID,
		Status:     EnrollmentActive,
		EnrolledAt: time.Now().UTC(),
	}
	enr, err = svc.enrollRepo.CreateEnrollment(ctx, enr)
	return enr, errors.Wrap(err, "creating enrollment")
}

func (svc *service) IsActivelyEnrolled(ctx context.Context, learnerID, courseID string) (bool, error) {
	if _, err := svc.enrollRepo.GetActiveEnrollment(ctx, courseID, learnerID); err != nil {
		if errors.Cause(err) == ErrEnrollmentNotFound {
			return false, nil
		}
		return false, errors.Wrap(err, "checking enrollment")
	}
	return true, nil
}
