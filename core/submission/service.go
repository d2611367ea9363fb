package submission

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/kozi/core"
	"github.com/trezcool/kozi/core/assignment"
	"github.com/trezcool/kozi/core/course"
	"github.com/trezcool/kozi/core/user"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound               = errors.New("submission not found")
	ErrAssignmentNotPublished = errors.New("assignment is not published")
	ErrNotEnrolled            = errors.New("not enrolled in this course")
	ErrAlreadyGraded          = errors.New("submission has already been graded")
	ErrDeadlinePassed         = errors.New("assignment deadline has passed")
	ErrResubmissionNotAllowed = errors.New("resubmission is not allowed for this assignment")
	ErrNotCourseOwner         = errors.New("no permission to manage this submission")
)

type (
	Repository interface {
		GetSubmission(ctx context.Context, filter GetFilter) (Submission, error)
		// UpsertSubmission inserts or replaces the single Submission row keyed
		// by (AssignmentID, LearnerID). On replace, ID, CreatedAt, Score and
		// Feedback of the existing row are preserved.
		UpsertSubmission(ctx context.Context, sub Submission) (Submission, error)
		// GradeSubmission sets status=graded, score and feedback in a single
		// conditional update; returns ErrAlreadyGraded if the row is already
		// graded.
		GradeSubmission(ctx context.Context, id string, score float64, feedback string, now time.Time) (Submission, error)
		// RequestResubmission sets status=resubmission_required regardless of
		// the current status; score and feedback are left untouched.
		RequestResubmission(ctx context.Context, id string, now time.Time) (Submission, error)
		FilterSubmissions(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Submission, error)
	}

	Service interface {
		Submit(ctx context.Context, learnerID, assignmentID string, data SubmitAssignment) (Submission, error)
		Grade(ctx context.Context, id, instructorID string, data GradeSubmission) (Submission, error)
		RequestResubmission(ctx context.Context, id, instructorID string) (Submission, error)
		Get(ctx context.Context, id string) (Submission, error)
		ListByAssignment(ctx context.Context, assignmentID, instructorID string, ordering []core.DBOrdering) ([]Submission, error)
	}

	service struct {
		repo       Repository
		assignRepo assignment.Repository
		courseRepo course.Repository
		enrollRepo course.EnrollmentRepository
		usrRepo    user.Repository
		mailSvc    core.EmailService
		conf       *core.Config
	}
)

var _ Service = (*service)(nil)

func NewService(
	repo Repository,
	assignRepo assignment.Repository,
	courseRepo course.Repository,
	enrollRepo course.EnrollmentRepository,
	usrRepo user.Repository,
	mailSvc core.EmailService,
	conf *core.Config,
) *service {
	return &service{
		repo:       repo,
		assignRepo: assignRepo,
		courseRepo: courseRepo,
		enrollRepo: enrollRepo,
		usrRepo:    usrRepo,
		mailSvc:    mailSvc,
		conf:       conf,
	}
}

// Submit validates a learner's submission against the assignment policy and
// upserts the single row for (assignmentID, learnerID). Checks run in order;
// the first failing check wins. A successful submit always resets the status
// to submitted, clearing any resubmission_required marker. Score and feedback
// from a prior grading cycle are left as-is until the next grade call.
func (svc *service) Submit(ctx context.Context, learnerID, assignmentID string, data SubmitAssignment) (Submission, error) {
	a, err := svc.assignRepo.GetAssignment(ctx, assignmentID)
	if err != nil {
		if errors.Cause(err) == assignment.ErrNotFound {
			return Submission{}, assignment.ErrNotFound
		}
		return Submission{}, errors.Wrap(err, "finding assignment")
	}

	if a.Status != assignment.StatusPublished {
		return Submission{}, ErrAssignmentNotPublished
	}

	if _, err = svc.enrollRepo.GetActiveEnrollment(ctx, a.CourseID, learnerID); err != nil {
		if errors.Cause(err) == course.ErrEnrollmentNotFound {
			return Submission{}, ErrNotEnrolled
		}
		return Submission{}, errors.Wrap(err, "checking enrollment")
	}

	var hasPrior bool
	prior, err := svc.repo.GetSubmission(ctx, GetFilter{AssignmentID: assignmentID, LearnerID: learnerID})
	if err == nil {
		hasPrior = true
	} else if errors.Cause(err) != ErrNotFound {
		return Submission{}, errors.Wrap(err, "finding prior submission")
	}

	if hasPrior && prior.IsGraded() {
		return Submission{}, ErrAlreadyGraded
	}

	now := NowFunc().UTC()
	isLate := a.HasDeadline() && now.After(a.DueDate)
	if isLate && !a.LateSubmissionAllowed {
		return Submission{}, ErrDeadlinePassed
	}

	// a prior plain submission is blocked unless the instructor explicitly
	// flagged resubmission_required, which always permits one more submit
	if hasPrior && prior.Status != StatusResubmissionRequired && !a.ResubmissionAllowed {
		return Submission{}, ErrResubmissionNotAllowed
	}

	sub := Submission{
		AssignmentID: assignmentID,
		LearnerID:    learnerID,
		ContentText:  data.Content,
		ContentLink:  data.Link,
		SubmittedAt:  now,
		IsLate:       isLate,
		Status:       StatusSubmitted,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	sub, err = svc.repo.UpsertSubmission(ctx, sub)
	return sub, errors.Wrap(err, "saving submission")
}

// checkOwner resolves the submission's assignment and course, ensuring the
// acting instructor owns the course.
func (svc *service) checkOwner(ctx context.Context, sub Submission, instructorID string) error {
	a, err := svc.assignRepo.GetAssignment(ctx, sub.AssignmentID)
	if err != nil {
		return errors.Wrap(err, "finding assignment")
	}
	crs, err := svc.courseRepo.GetCourse(ctx, a.CourseID)
	if err != nil {
		return errors.Wrap(err, "finding course")
	}
	if crs.InstructorID != instructorID {
		return ErrNotCourseOwner
	}
	return nil
}

// Grade applies an instructor's grading decision. Grading is write-once per
// cycle: a graded submission must be re-opened (via RequestResubmission or a
// learner resubmit) before it can be graded again.
func (svc *service) Grade(ctx context.Context, id, instructorID string, data GradeSubmission) (Submission, error) {
	sub, err := svc.repo.GetSubmission(ctx, GetFilter{ID: id})
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Submission{}, ErrNotFound
		}
		return Submission{}, errors.Wrap(err, "finding submission")
	}

	if err = svc.checkOwner(ctx, sub, instructorID); err != nil {
		return Submission{}, err
	}

	if sub.IsGraded() {
		return Submission{}, ErrAlreadyGraded
	}

	sub, err = svc.repo.GradeSubmission(ctx, id, *data.Score, data.Feedback, NowFunc().UTC())
	if err != nil {
		if errors.Cause(err) == ErrAlreadyGraded {
			return Submission{}, ErrAlreadyGraded
		}
		return Submission{}, errors.Wrap(err, "grading submission")
	}

	svc.notifyGraded(ctx, sub)
	return sub, nil
}

// RequestResubmission re-opens a submission for another submit. It has no
// status precondition and is safe to repeat; score and feedback are untouched.
func (svc *service) RequestResubmission(ctx context.Context, id, instructorID string) (Submission, error) {
	sub, err := svc.repo.GetSubmission(ctx, GetFilter{ID: id})
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Submission{}, ErrNotFound
		}
		return Submission{}, errors.Wrap(err, "finding submission")
	}

	if err = svc.checkOwner(ctx, sub, instructorID); err != nil {
		return Submission{}, err
	}

	sub, err = svc.repo.RequestResubmission(ctx, id, NowFunc().UTC())
	return sub, errors.Wrap(err, "requesting resubmission")
}

func (svc *service) Get(ctx context.Context, id string) (Submission, error) {
	return svc.repo.GetSubmission(ctx, GetFilter{ID: id})
}

func (svc *service) ListByAssignment(ctx context.Context, assignmentID, instructorID string, ordering []core.DBOrdering) ([]Submission, error) {
	a, err := svc.assignRepo.GetAssignment(ctx, assignmentID)
	if err != nil {
		if errors.Cause(err) == assignment.ErrNotFound {
			return nil, assignment.ErrNotFound
		}
		return nil, errors.Wrap(err, "finding assignment")
	}
	crs, err := svc.courseRepo.GetCourse(ctx, a.CourseID)
	if err != nil {
		return nil, errors.Wrap(err, "finding course")
	}
	if crs.InstructorID != instructorID {
		return nil, ErrNotCourseOwner
	}
	return svc.repo.FilterSubmissions(ctx, QueryFilter{AssignmentID: assignmentID}, ordering)
}

func (svc *service) notifyGraded(ctx context.Context, sub Submission) {
	learner, err := svc.usrRepo.GetUser(ctx, user.GetFilter{ID: sub.LearnerID})
	if err != nil {
		return // best effort
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: learner.Name, Address: learner.Email}},
		Subject: "Your submission has been graded",
		BodyStr: fmt.Sprintf(
			"Hi %s,\nYour submission has been graded: %.0f/100.\nLog in to %s to see the full feedback.",
			learner.Name, *sub.Score, svc.conf.FrontendBaseURL,
		),
	})
}
