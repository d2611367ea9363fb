package dummydb

import (
	"sync"

	"github.com/trezcool/kozi/core/assignment"
	"github.com/trezcool/kozi/core/course"
	"github.com/trezcool/kozi/core/submission"
	"github.com/trezcool/kozi/core/user"
)

type (
	DB struct {
		user       *userTable
		course     *courseTable
		enrollment *enrollmentTable
		assignment *assignmentTable
		submission *submissionTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	courseTable struct {
		sync.RWMutex
		table map[string]*course.Course
	}

	enrollmentTable struct {
		sync.RWMutex
		table map[string]*course.Enrollment
	}

	assignmentTable struct {
		sync.RWMutex
		table map[string]*assignment.Assignment
	}

	submissionTable struct {
		sync.RWMutex
		table map[string]*submission.Submission
	}
)

func Open() (*DB, error) {
	db := &DB{
		user:       &userTable{table: make(map[string]*user.User)},
		course:     &courseTable{table: make(map[string]*course.Course)},
		enrollment: &enrollmentTable{table: make(map[string]*course.Enrollment)},
		assignment: &assignmentTable{table: make(map[string]*assignment.Assignment)},
		submission: &submissionTable{table: make(map[string]*submission.Submission)},
	}
	return db, nil
}

// Reset drops all rows; test helper.
func (db *DB) Reset() {
	db.user.Lock()
	db.user.table = make(map[string]*user.User)
	db.user.Unlock()

	db.course.Lock()
	db.course.table = make(map[string]*course.Course)
	db.course.Unlock()

	db.enrollment.Lock()
	db.enrollment.table = make(map[string]*course.Enrollment)
	db.enrollment.Unlock()

	db.assignment.Lock()
	db.assignment.table = make(map[string]*assignment.Assignment)
	db.assignment.Unlock()

	db.submission.Lock()
	db.submission.table = make(map[string]*submission.Submission)
	db.submission.Unlock()
}
