package submission_test

import (
	"context"
	"testing"
	"time"

	"github.com/trezcool/kozi/core"
	"github.com/trezcool/kozi/core/assignment"
	"github.com/trezcool/kozi/core/course"
	"github.com/trezcool/kozi/core/submission"
	"github.com/trezcool/kozi/core/user"
	dummydb "github.com/trezcool/kozi/storage/database/dummy"
)

type testEnv struct {
	db         *dummydb.DB
	svc        submission.Service
	repo       submission.Repository
	usrRepo    user.Repository
	crsRepo    course.Repository
	enrRepo    course.EnrollmentRepository
	assignRepo assignment.Repository

	instructor user.User
	learner    user.User
	crs        course.Course
}

func setup(t *testing.T) *testEnv {
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}

	env := &testEnv{
		db:         db,
		repo:       dummydb.NewSubmissionRepository(db),
		usrRepo:    dummydb.NewUserRepository(db),
		crsRepo:    dummydb.NewCourseRepository(db),
		enrRepo:    dummydb.NewEnrollmentRepository(db),
		assignRepo: dummydb.NewAssignmentRepository(db),
	}
	env.svc = submission.NewService(
		env.repo, env.assignRepo, env.crsRepo, env.enrRepo, env.usrRepo,
		&mailSvcMock{}, core.Conf,
	)

	ctx := context.Background()
	now := time.Now().UTC()

	env.instructor, err = env.usrRepo.CreateUser(ctx, user.User{
		Name: "Prof", Email: "prof@test.cd", Role: user.RoleInstructor, CreatedAt: now, UpdatedAt: now})
	if err != nil {
		t.Fatalf("creating instructor: %v", err)
	}
	env.learner, err = env.usrRepo.CreateUser(ctx, user.User{
		Name: "Learner", Email: "learner@test.cd", Role: user.RoleLearner, CreatedAt: now, UpdatedAt: now})
	if err != nil {
		t.Fatalf("creating learner: %v", err)
	}
	env.crs, err = env.crsRepo.CreateCourse(ctx, course.Course{
		InstructorID: env.instructor.ID, Title: "Go 101", Status: course.StatusPublished, CreatedAt: now, UpdatedAt: now})
	if err != nil {
		t.Fatalf("creating course: %v", err)
	}
	return env
}

type mailSvcMock struct{}

func (mailSvcMock) SendMessages(...*core.EmailMessage) {}

func (env *testEnv) enroll(t *testing.T, learnerID string) {
	_, err := env.enrRepo.CreateEnrollment(context.Background(), course.Enrollment{
		CourseID: env.crs.ID, LearnerID: learnerID, Status: course.EnrollmentActive, EnrolledAt: time.Now().UTC()})
	if err != nil {
		t.Fatalf("creating enrollment: %v", err)
	}
}

func (env *testEnv) createAssignment(t *testing.T, status string, dueDate time.Time, lateAllowed, resubAllowed bool) assignment.Assignment {
	now := time.Now().UTC()
	a, err := env.assignRepo.CreateAssignment(context.Background(), assignment.Assignment{
		CourseID:              env.crs.ID,
		Title:                 "HW",
		DueDate:               dueDate,
		Weight:                10,
		LateSubmissionAllowed: lateAllowed,
		ResubmissionAllowed:   resubAllowed,
		Status:                status,
		CreatedAt:             now,
		UpdatedAt:             now,
	})
	if err != nil {
		t.Fatalf("creating assignment: %v", err)
	}
	return a
}

func fPtr(f float64) *float64 { return &f }

func Test_service_Submit_policy(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	data := submission.SubmitAssignment{Content: "my work"}

	dueDate := time.Date(2024, 1, 10, 23, 59, 0, 0, time.UTC)
	beforeDue := time.Date(2024, 1, 9, 12, 0, 0, 0, time.UTC)
	afterDue := time.Date(2024, 1, 11, 12, 0, 0, 0, time.UTC)
	defer func() { submission.NowFunc = time.Now }()

	published := env.createAssignment(t, assignment.StatusPublished, dueDate, false, false)
	draft := env.createAssignment(t, assignment.StatusDraft, dueDate, false, false)
	closed := env.createAssignment(t, assignment.StatusClosed, dueDate, false, false)
	env.enroll(t, env.learner.ID)

	submission.NowFunc = func() time.Time { return beforeDue }

	t.Run("assignment not found", func(t *testing.T) {
		if _, err := env.svc.Submit(ctx, env.learner.ID, "nope", data); err != assignment.ErrNotFound {
			t.Errorf("Submit() error = %v, wantErr %v", err, assignment.ErrNotFound)
		}
	})
	t.Run("assignment not published", func(t *testing.T) {
		if _, err := env.svc.Submit(ctx, env.learner.ID, draft.ID, data); err != submission.ErrAssignmentNotPublished {
			t.Errorf("Submit() error = %v, wantErr %v", err, submission.ErrAssignmentNotPublished)
		}
	})
	t.Run("assignment closed", func(t *testing.T) {
		if _, err := env.svc.Submit(ctx, env.learner.ID, closed.ID, data); err != submission.ErrAssignmentNotPublished {
			t.Errorf("Submit() error = %v, wantErr %v", err, submission.ErrAssignmentNotPublished)
		}
	})
	t.Run("not enrolled", func(t *testing.T) {
		if _, err := env.svc.Submit(ctx, env.instructor.ID, published.ID, data); err != submission.ErrNotEnrolled {
			t.Errorf("Submit() error = %v, wantErr %v", err, submission.ErrNotEnrolled)
		}
	})
	t.Run("on-time submit", func(t *testing.T) {
		sub, err := env.svc.Submit(ctx, env.learner.ID, published.ID, data)
		if err != nil {
			t.Fatalf("Submit() failed: %v", err)
		}
		if sub.Status != submission.StatusSubmitted {
			t.Errorf("Submit() status = %v, want %v", sub.Status, submission.StatusSubmitted)
		}
		if sub.IsLate {
			t.Error("Submit() is_late = true, want false")
		}
		if !sub.SubmittedAt.Equal(beforeDue) {
			t.Errorf("Submit() submitted_at = %v, want %v", sub.SubmittedAt, beforeDue)
		}
	})
	t.Run("resubmission not allowed", func(t *testing.T) {
		if _, err := env.svc.Submit(ctx, env.learner.ID, published.ID, data); err != submission.ErrResubmissionNotAllowed {
			t.Errorf("Submit() error = %v, wantErr %v", err, submission.ErrResubmissionNotAllowed)
		}
	})
	t.Run("resubmission required overrides resubmission policy", func(t *testing.T) {
		sub, err := env.repo.GetSubmission(ctx, submission.GetFilter{AssignmentID: published.ID, LearnerID: env.learner.ID})
		if err != nil {
			t.Fatalf("GetSubmission() failed: %v", err)
		}
		if _, err = env.repo.RequestResubmission(ctx, sub.ID, submission.NowFunc()); err != nil {
			t.Fatalf("RequestResubmission() failed: %v", err)
		}

		resub, err := env.svc.Submit(ctx, env.learner.ID, published.ID, submission.SubmitAssignment{Content: "take two"})
		if err != nil {
			t.Fatalf("Submit() failed: %v", err)
		}
		if resub.ID != sub.ID {
			t.Errorf("Submit() created a new row; ID = %v, want %v", resub.ID, sub.ID)
		}
		if resub.Status != submission.StatusSubmitted {
			t.Errorf("Submit() status = %v, want %v", resub.Status, submission.StatusSubmitted)
		}
		if resub.ContentText != "take two" {
			t.Errorf("Submit() content = %q, want %q", resub.ContentText, "take two")
		}
	})
	t.Run("already graded", func(t *testing.T) {
		sub, err := env.repo.GetSubmission(ctx, submission.GetFilter{AssignmentID: published.ID, LearnerID: env.learner.ID})
		if err != nil {
			t.Fatalf("GetSubmission() failed: %v", err)
		}
		if _, err = env.repo.GradeSubmission(ctx, sub.ID, 95, "Good", submission.NowFunc()); err != nil {
			t.Fatalf("GradeSubmission() failed: %v", err)
		}

		if _, err = env.svc.Submit(ctx, env.learner.ID, published.ID, data); err != submission.ErrAlreadyGraded {
			t.Errorf("Submit() error = %v, wantErr %v", err, submission.ErrAlreadyGraded)
		}
	})

	submission.NowFunc = func() time.Time { return afterDue }

	t.Run("deadline passed", func(t *testing.T) {
		strict := env.createAssignment(t, assignment.StatusPublished, dueDate, false, false)
		if _, err := env.svc.Submit(ctx, env.learner.ID, strict.ID, data); err != submission.ErrDeadlinePassed {
			t.Errorf("Submit() error = %v, wantErr %v", err, submission.ErrDeadlinePassed)
		}
	})
	t.Run("late submit allowed and flagged", func(t *testing.T) {
		lenient := env.createAssignment(t, assignment.StatusPublished, dueDate, true, false)
		sub, err := env.svc.Submit(ctx, env.learner.ID, lenient.ID, data)
		if err != nil {
			t.Fatalf("Submit() failed: %v", err)
		}
		if !sub.IsLate {
			t.Error("Submit() is_late = false, want true")
		}
		if sub.Status != submission.StatusSubmitted {
			t.Errorf("Submit() status = %v, want %v", sub.Status, submission.StatusSubmitted)
		}
	})
	t.Run("no deadline is never late", func(t *testing.T) {
		open := env.createAssignment(t, assignment.StatusPublished, time.Time{}, false, false)
		sub, err := env.svc.Submit(ctx, env.learner.ID, open.ID, data)
		if err != nil {
			t.Fatalf("Submit() failed: %v", err)
		}
		if sub.IsLate {
			t.Error("Submit() is_late = true, want false")
		}
	})
}

func Test_service_Submit_preservesPriorGrade(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	a := env.createAssignment(t, assignment.StatusPublished, time.Time{}, false, true)
	env.enroll(t, env.learner.ID)

	sub, err := env.svc.Submit(ctx, env.learner.ID, a.ID, submission.SubmitAssignment{Content: "v1"})
	if err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}
	if _, err = env.repo.GradeSubmission(ctx, sub.ID, 40, "Needs work", time.Now().UTC()); err != nil {
		t.Fatalf("GradeSubmission() failed: %v", err)
	}
	if _, err = env.repo.RequestResubmission(ctx, sub.ID, time.Now().UTC()); err != nil {
		t.Fatalf("RequestResubmission() failed: %v", err)
	}

	resub, err := env.svc.Submit(ctx, env.learner.ID, a.ID, submission.SubmitAssignment{Content: "v2"})
	if err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}
	// the stale score/feedback stick around until the next grading pass
	if resub.Score == nil || *resub.Score != 40 {
		t.Errorf("Submit() score = %v, want 40", resub.Score)
	}
	if resub.Feedback != "Needs work" {
		t.Errorf("Submit() feedback = %q, want %q", resub.Feedback, "Needs work")
	}
	if resub.Status != submission.StatusSubmitted {
		t.Errorf("Submit() status = %v, want %v", resub.Status, submission.StatusSubmitted)
	}
}

func Test_service_Grade(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	a := env.createAssignment(t, assignment.StatusPublished, time.Time{}, false, false)
	env.enroll(t, env.learner.ID)

	sub, err := env.svc.Submit(ctx, env.learner.ID, a.ID, submission.SubmitAssignment{Content: "my work"})
	if err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}

	data := submission.GradeSubmission{Score: fPtr(95), Feedback: "Good"}

	t.Run("not found", func(t *testing.T) {
		if _, err := env.svc.Grade(ctx, "nope", env.instructor.ID, data); err != submission.ErrNotFound {
			t.Errorf("Grade() error = %v, wantErr %v", err, submission.ErrNotFound)
		}
	})
	t.Run("not course owner", func(t *testing.T) {
		if _, err := env.svc.Grade(ctx, sub.ID, env.learner.ID, data); err != submission.ErrNotCourseOwner {
			t.Errorf("Grade() error = %v, wantErr %v", err, submission.ErrNotCourseOwner)
		}
	})
	t.Run("grade", func(t *testing.T) {
		graded, err := env.svc.Grade(ctx, sub.ID, env.instructor.ID, data)
		if err != nil {
			t.Fatalf("Grade() failed: %v", err)
		}
		if graded.Status != submission.StatusGraded {
			t.Errorf("Grade() status = %v, want %v", graded.Status, submission.StatusGraded)
		}
		if graded.Score == nil || *graded.Score != 95 {
			t.Errorf("Grade() score = %v, want 95", graded.Score)
		}
		if graded.Feedback != "Good" {
			t.Errorf("Grade() feedback = %q, want %q", graded.Feedback, "Good")
		}
	})
	t.Run("already graded", func(t *testing.T) {
		if _, err := env.svc.Grade(ctx, sub.ID, env.instructor.ID, data); err != submission.ErrAlreadyGraded {
			t.Errorf("Grade() error = %v, wantErr %v", err, submission.ErrAlreadyGraded)
		}
	})
}

func Test_service_RequestResubmission(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	a := env.createAssignment(t, assignment.StatusPublished, time.Time{}, false, false)
	env.enroll(t, env.learner.ID)

	sub, err := env.svc.Submit(ctx, env.learner.ID, a.ID, submission.SubmitAssignment{Content: "my work"})
	if err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}
	if _, err = env.svc.Grade(ctx, sub.ID, env.instructor.ID, submission.GradeSubmission{Score: fPtr(50), Feedback: "Retry"}); err != nil {
		t.Fatalf("Grade() failed: %v", err)
	}

	t.Run("not found", func(t *testing.T) {
		if _, err := env.svc.RequestResubmission(ctx, "nope", env.instructor.ID); err != submission.ErrNotFound {
			t.Errorf("RequestResubmission() error = %v, wantErr %v", err, submission.ErrNotFound)
		}
	})
	t.Run("not course owner", func(t *testing.T) {
		if _, err := env.svc.RequestResubmission(ctx, sub.ID, env.learner.ID); err != submission.ErrNotCourseOwner {
			t.Errorf("RequestResubmission() error = %v, wantErr %v", err, submission.ErrNotCourseOwner)
		}
	})
	t.Run("re-opens a graded submission; grade untouched", func(t *testing.T) {
		reopened, err := env.svc.RequestResubmission(ctx, sub.ID, env.instructor.ID)
		if err != nil {
			t.Fatalf("RequestResubmission() failed: %v", err)
		}
		if reopened.Status != submission.StatusResubmissionRequired {
			t.Errorf("RequestResubmission() status = %v, want %v", reopened.Status, submission.StatusResubmissionRequired)
		}
		if reopened.Score == nil || *reopened.Score != 50 {
			t.Errorf("RequestResubmission() score = %v, want 50", reopened.Score)
		}
		if reopened.Feedback != "Retry" {
			t.Errorf("RequestResubmission() feedback = %q, want %q", reopened.Feedback, "Retry")
		}
	})
	t.Run("repeatable", func(t *testing.T) {
		again, err := env.svc.RequestResubmission(ctx, sub.ID, env.instructor.ID)
		if err != nil {
			t.Fatalf("RequestResubmission() failed: %v", err)
		}
		if again.Status != submission.StatusResubmissionRequired {
			t.Errorf("RequestResubmission() status = %v, want %v", again.Status, submission.StatusResubmissionRequired)
		}
	})
}

func Test_service_ListByAssignment(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	a := env.createAssignment(t, assignment.StatusPublished, time.Time{}, false, false)
	env.enroll(t, env.learner.ID)

	other, err := env.usrRepo.CreateUser(ctx, user.User{
		Name: "Other", Email: "other@test.cd", Role: user.RoleLearner,
		CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC()})
	if err != nil {
		t.Fatalf("creating user: %v", err)
	}
	env.enroll(t, other.ID)

	t0 := time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC)
	defer func() { submission.NowFunc = time.Now }()

	submission.NowFunc = func() time.Time { return t0 }
	if _, err = env.svc.Submit(ctx, env.learner.ID, a.ID, submission.SubmitAssignment{Content: "first"}); err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}
	submission.NowFunc = func() time.Time { return t0.Add(time.Hour) }
	if _, err = env.svc.Submit(ctx, other.ID, a.ID, submission.SubmitAssignment{Content: "second"}); err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}

	t.Run("assignment not found", func(t *testing.T) {
		if _, err := env.svc.ListByAssignment(ctx, "nope", env.instructor.ID, nil); err != assignment.ErrNotFound {
			t.Errorf("ListByAssignment() error = %v, wantErr %v", err, assignment.ErrNotFound)
		}
	})
	t.Run("not course owner", func(t *testing.T) {
		if _, err := env.svc.ListByAssignment(ctx, a.ID, env.learner.ID, nil); err != submission.ErrNotCourseOwner {
			t.Errorf("ListByAssignment() error = %v, wantErr %v", err, submission.ErrNotCourseOwner)
		}
	})
	t.Run("latest first", func(t *testing.T) {
		subs, err := env.svc.ListByAssignment(ctx, a.ID, env.instructor.ID, nil)
		if err != nil {
			t.Fatalf("ListByAssignment() failed: %v", err)
		}
		if len(subs) != 2 {
			t.Fatalf("ListByAssignment() len = %d, want 2", len(subs))
		}
		if subs[0].LearnerID != other.ID || subs[1].LearnerID != env.learner.ID {
			t.Errorf("ListByAssignment() order = [%v %v], want [%v %v]",
				subs[0].LearnerID, subs[1].LearnerID, other.ID, env.learner.ID)
		}
	})
}
