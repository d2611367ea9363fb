package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/kozi/core"
	"github.com/trezcool/kozi/core/assignment"
)

type assignmentRepository struct {
	db *assignmentTable
}

var _ assignment.Repository = (*assignmentRepository)(nil) // interface compliance check

func NewAssignmentRepository(db *DB) *assignmentRepository {
	return &assignmentRepository{db: db.assignment}
}

func (repo *assignmentRepository) CreateAssignment(_ context.Context, a assignment.Assignment) (assignment.Assignment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	a.ID = uuid.New().String()
	repo.db.table[a.ID] = &a
	return a, nil
}

func (repo *assignmentRepository) GetAssignment(_ context.Context, id string) (assignment.Assignment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if a, ok := repo.db.table[id]; ok {
		return *a, nil
	}
	return assignment.Assignment{}, assignment.ErrNotFound
}

func (repo *assignmentRepository) PublishAssignment(_ context.Context, id string, now time.Time) (assignment.Assignment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	a, ok := repo.db.table[id]
	if !ok {
		return assignment.Assignment{}, assignment.ErrNotFound
	}
	if a.Status != assignment.StatusDraft {
		return assignment.Assignment{}, assignment.ErrNotDraft
	}
	a.Status = assignment.StatusPublished
	a.UpdatedAt = now.UTC()
	return *a, nil
}

func (repo *assignmentRepository) FilterAssignments(_ context.Context, filter assignment.QueryFilter, _ []core.DBOrdering) ([]assignment.Assignment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	assignments := make([]assignment.Assignment, 0, len(repo.db.table))
	for _, a := range repo.db.table {
		if filter.CourseID != "" && a.CourseID != filter.CourseID {
			continue
		}
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		assignments = append(assignments, *a)
	}
	sort.Slice(assignments, func(i, j int) bool { return assignments[i].CreatedAt.Before(assignments[j].CreatedAt) })
	return assignments, nil
}
