package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/kozi/core"
	"github.com/trezcool/kozi/core/submission"
)

type submissionRepository struct {
	db *submissionTable
}

var _ submission.Repository = (*submissionRepository)(nil) // interface compliance check

func NewSubmissionRepository(db *DB) *submissionRepository {
	return &submissionRepository{db: db.submission}
}

func (repo *submissionRepository) GetSubmission(_ context.Context, filter submission.GetFilter) (submission.Submission, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if filter.ID != "" {
		if sub, ok := repo.db.table[filter.ID]; ok {
			return *sub, nil
		}
		return submission.Submission{}, submission.ErrNotFound
	}
	if filter.AssignmentID != "" && filter.LearnerID != "" {
		for _, sub := range repo.db.table {
			if sub.AssignmentID == filter.AssignmentID && sub.LearnerID == filter.LearnerID {
				return *sub, nil
			}
		}
	}
	return submission.Submission{}, submission.ErrNotFound
}

func (repo *submissionRepository) UpsertSubmission(_ context.Context, sub submission.Submission) (submission.Submission, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	// replace the existing (assignment, learner) row in place, preserving its
	// identity and any stale score/feedback from the last grading cycle
	for _, prior := range repo.db.table {
		if prior.AssignmentID == sub.AssignmentID && prior.LearnerID == sub.LearnerID {
			prior.ContentText = sub.ContentText
			prior.ContentLink = sub.ContentLink
			prior.SubmittedAt = sub.SubmittedAt
			prior.IsLate = sub.IsLate
			prior.Status = sub.Status
			prior.UpdatedAt = sub.UpdatedAt
			return *prior, nil
		}
	}

	sub.ID = uuid.New().String()
	repo.db.table[sub.ID] = &sub
	return sub, nil
}

func (repo *submissionRepository) GradeSubmission(_ context.Context, id string, score float64, feedback string, now time.Time) (submission.Submission, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	sub, ok := repo.db.table[id]
	if !ok {
		return submission.Submission{}, submission.ErrNotFound
	}
	if sub.Status == submission.StatusGraded {
		return submission.Submission{}, submission.ErrAlreadyGraded
	}
	sub.Status = submission.StatusGraded
	sub.Score = &score
	sub.Feedback = feedback
	sub.UpdatedAt = now.UTC()
	return *sub, nil
}

func (repo *submissionRepository) RequestResubmission(_ context.Context, id string, now time.Time) (submission.Submission, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	sub, ok := repo.db.table[id]
	if !ok {
		return submission.Submission{}, submission.ErrNotFound
	}
	sub.Status = submission.StatusResubmissionRequired
	sub.UpdatedAt = now.UTC()
	return *sub, nil
}

func (repo *submissionRepository) FilterSubmissions(_ context.Context, filter submission.QueryFilter, _ []core.DBOrdering) ([]submission.Submission, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	subs := make([]submission.Submission, 0, len(repo.db.table))
	for _, sub := range repo.db.table {
		if filter.AssignmentID != "" && sub.AssignmentID != filter.AssignmentID {
			continue
		}
		if filter.LearnerID != "" && sub.LearnerID != filter.LearnerID {
			continue
		}
		if filter.Status != "" && sub.Status != filter.Status {
			continue
		}
		subs = append(subs, *sub)
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].SubmittedAt.After(subs[j].SubmittedAt) })
	return subs, nil
}
