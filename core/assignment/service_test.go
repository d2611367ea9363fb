package assignment_test

import (
	"context"
	"testing"
	"time"

	"github.com/trezcool/kozi/core/assignment"
	"github.com/trezcool/kozi/core/course"
	dummydb "github.com/trezcool/kozi/storage/database/dummy"
)

func setup(t *testing.T) (assignment.Service, course.Repository, assignment.Repository) {
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}
	crsRepo := dummydb.NewCourseRepository(db)
	repo := dummydb.NewAssignmentRepository(db)
	return assignment.NewService(repo, crsRepo), crsRepo, repo
}

func createCourse(t *testing.T, repo course.Repository, instructorID string) course.Course {
	now := time.Now().UTC()
	crs, err := repo.CreateCourse(context.Background(), course.Course{
		InstructorID: instructorID, Title: "Go 101", Status: course.StatusPublished, CreatedAt: now, UpdatedAt: now})
	if err != nil {
		t.Fatalf("creating course: %v", err)
	}
	return crs
}

func Test_service_Create(t *testing.T) {
	svc, crsRepo, _ := setup(t)
	ctx := context.Background()
	crs := createCourse(t, crsRepo, "instructor1")

	t.Run("course not found", func(t *testing.T) {
		na := assignment.NewAssignment{CourseID: "nope", Title: "HW"}
		if _, err := svc.Create(ctx, "instructor1", na); err != course.ErrNotFound {
			t.Errorf("Create() error = %v, wantErr %v", err, course.ErrNotFound)
		}
	})
	t.Run("not course owner", func(t *testing.T) {
		na := assignment.NewAssignment{CourseID: crs.ID, Title: "HW"}
		if _, err := svc.Create(ctx, "instructor2", na); err != assignment.ErrNotCourseOwner {
			t.Errorf("Create() error = %v, wantErr %v", err, assignment.ErrNotCourseOwner)
		}
	})
	t.Run("create", func(t *testing.T) {
		due := time.Date(2024, 1, 10, 23, 59, 0, 0, time.UTC)
		na := assignment.NewAssignment{CourseID: crs.ID, Title: "HW", DueDate: due, Weight: 20}
		a, err := svc.Create(ctx, "instructor1", na)
		if err != nil {
			t.Fatalf("Create() failed: %v", err)
		}
		if a.Status != assignment.StatusDraft {
			t.Errorf("Create() status = %v, want %v", a.Status, assignment.StatusDraft)
		}
		if !a.HasDeadline() || !a.DueDate.Equal(due) {
			t.Errorf("Create() due_date = %v, want %v", a.DueDate, due)
		}
	})
}

func Test_service_Publish(t *testing.T) {
	svc, crsRepo, _ := setup(t)
	ctx := context.Background()
	crs := createCourse(t, crsRepo, "instructor1")

	a, err := svc.Create(ctx, "instructor1", assignment.NewAssignment{CourseID: crs.ID, Title: "HW"})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	t.Run("not found", func(t *testing.T) {
		if _, err := svc.Publish(ctx, "nope", "instructor1"); err != assignment.ErrNotFound {
			t.Errorf("Publish() error = %v, wantErr %v", err, assignment.ErrNotFound)
		}
	})
	t.Run("not course owner", func(t *testing.T) {
		if _, err := svc.Publish(ctx, a.ID, "instructor2"); err != assignment.ErrNotCourseOwner {
			t.Errorf("Publish() error = %v, wantErr %v", err, assignment.ErrNotCourseOwner)
		}
	})
	t.Run("publish", func(t *testing.T) {
		published, err := svc.Publish(ctx, a.ID, "instructor1")
		if err != nil {
			t.Fatalf("Publish() failed: %v", err)
		}
		if published.Status != assignment.StatusPublished {
			t.Errorf("Publish() status = %v, want %v", published.Status, assignment.StatusPublished)
		}
		if !published.UpdatedAt.After(a.UpdatedAt) && !published.UpdatedAt.Equal(a.UpdatedAt) {
			t.Errorf("Publish() updated_at = %v not refreshed", published.UpdatedAt)
		}
	})
	t.Run("second publish conflicts", func(t *testing.T) {
		if _, err := svc.Publish(ctx, a.ID, "instructor1"); err != assignment.ErrNotDraft {
			t.Errorf("Publish() error = %v, wantErr %v", err, assignment.ErrNotDraft)
		}
	})
}

func Test_service_ListByCourse(t *testing.T) {
	svc, crsRepo, _ := setup(t)
	ctx := context.Background()
	crs := createCourse(t, crsRepo, "instructor1")
	other := createCourse(t, crsRepo, "instructor1")

	if _, err := svc.Create(ctx, "instructor1", assignment.NewAssignment{CourseID: crs.ID, Title: "HW 1"}); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if _, err := svc.Create(ctx, "instructor1", assignment.NewAssignment{CourseID: crs.ID, Title: "HW 2"}); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if _, err := svc.Create(ctx, "instructor1", assignment.NewAssignment{CourseID: other.ID, Title: "HW 3"}); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	assignments, err := svc.ListByCourse(ctx, crs.ID)
	if err != nil {
		t.Fatalf("ListByCourse() failed: %v", err)
	}
	if len(assignments) != 2 {
		t.Errorf("ListByCourse() len = %d, want 2", len(assignments))
	}
	for _, a := range assignments {
		if a.CourseID != crs.ID {
			t.Errorf("ListByCourse() returned assignment of course %v, want %v", a.CourseID, crs.ID)
		}
	}
}
