package dummydb

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/kozi/core/course"
)

type courseRepository struct {
	db *courseTable
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) *courseRepository {
	return &courseRepository{db: db.course}
}

func (repo *courseRepository) CreateCourse(_ context.Context, crs course.Course) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	crs.ID = uuid.New().String()
	repo.db.table[crs.ID] = &crs
	return crs, nil
}

func (repo *courseRepository) GetCourse(_ context.Context, id string) (course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if crs, ok := repo.db.table[id]; ok {
		return *crs, nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) UpdateCourse(_ context.Context, crs course.Course) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[crs.ID]; !ok {
		return course.Course{}, course.ErrNotFound
	}
	crs.UpdatedAt = time.Now().UTC()
	repo.db.table[crs.ID] = &crs
	return crs, nil
}

type enrollmentRepository struct {
	db *enrollmentTable
}

var _ course.EnrollmentRepository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(db *DB) *enrollmentRepository {
	return &enrollmentRepository{db: db.enrollment}
}

func (repo *enrollmentRepository) CreateEnrollment(_ context.Context, enr course.Enrollment) (course.Enrollment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	enr.ID = uuid.New().String()
	repo.db.table[enr.ID] = &enr
	return enr, nil
}

func (repo *enrollmentRepository) GetActiveEnrollment(_ context.Context, courseID, learnerID string) (course.Enrollment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, enr := range repo.db.table {
		if enr.CourseID == courseID && enr.LearnerID == learnerID && enr.Status == course.EnrollmentActive {
			return *enr, nil
		}
	}
	return course.Enrollment{}, course.ErrEnrollmentNotFound
}
