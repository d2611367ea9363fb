package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/trezcool/kozi/core/assignment"
	"github.com/trezcool/kozi/core/course"
	"github.com/trezcool/kozi/core/submission"
	"github.com/trezcool/kozi/core/user"
)

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, email, role, pwd string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Email:     email,
		Role:      role,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	usr.SetActive(isActive)
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateCourse(
	t *testing.T,
	repo course.Repository,
	instructorID, title, status string,
) course.Course {
	tstamp := time.Now().UTC()
	crs := course.Course{
		InstructorID: instructorID,
		Title:        title,
		Status:       status,
		CreatedAt:    tstamp,
		UpdatedAt:    tstamp,
	}
	crs, err := repo.CreateCourse(context.Background(), crs)
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	return crs
}

func CreateEnrollment(
	t *testing.T,
	repo course.EnrollmentRepository,
	courseID, learnerID, status string,
) course.Enrollment {
	enr := course.Enrollment{
		CourseID:   courseID,
		LearnerID:  learnerID,
		Status:     status,
		EnrolledAt: time.Now().UTC(),
	}
	enr, err := repo.CreateEnrollment(context.Background(), enr)
	if err != nil {
		t.Fatalf("CreateEnrollment() failed: %v", err)
	}
	return enr
}

func CreateAssignment(
	t *testing.T,
	repo assignment.Repository,
	courseID, title, status string,
	dueDate time.Time,
	lateAllowed, resubAllowed bool,
) assignment.Assignment {
	tstamp := time.Now().UTC()
	a := assignment.Assignment{
		CourseID:              courseID,
		Title:                 title,
		DueDate:               dueDate,
		Weight:                10,
		LateSubmissionAllowed: lateAllowed,
		ResubmissionAllowed:   resubAllowed,
		Status:                status,
		CreatedAt:             tstamp,
		UpdatedAt:             tstamp,
	}
	if !a.DueDate.IsZero() {
		a.DueDate = a.DueDate.UTC()
	}
	a, err := repo.CreateAssignment(context.Background(), a)
	if err != nil {
		t.Fatalf("CreateAssignment() failed: %v", err)
	}
	return a
}

func CreateSubmission(
	t *testing.T,
	repo submission.Repository,
	assignmentID, learnerID, content, status string,
	submittedAt ...time.Time,
) submission.Submission {
	tstamp := time.Now().UTC()
	if len(submittedAt) > 0 {
		tstamp = submittedAt[0].UTC()
	}
	sub := submission.Submission{
		AssignmentID: assignmentID,
		LearnerID:    learnerID,
		ContentText:  content,
		SubmittedAt:  tstamp,
		Status:       submission.StatusSubmitted,
		CreatedAt:    tstamp,
		UpdatedAt:    tstamp,
	}
	sub, err := repo.UpsertSubmission(context.Background(), sub)
	if err != nil {
		t.Fatalf("CreateSubmission() failed: %v", err)
	}

	switch status {
	case submission.StatusGraded:
		sub, err = repo.GradeSubmission(context.Background(), sub.ID, 80, "Graded", tstamp)
		if err != nil {
			t.Fatalf("CreateSubmission() failed: %v", err)
		}
	case submission.StatusResubmissionRequired:
		sub, err = repo.RequestResubmission(context.Background(), sub.ID, tstamp)
		if err != nil {
			t.Fatalf("CreateSubmission() failed: %v", err)
		}
	}
	return sub
}
