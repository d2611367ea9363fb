package tests

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/trezcool/kozi/core/assignment"
	"github.com/trezcool/kozi/core/course"
	"github.com/trezcool/kozi/core/submission"
	"github.com/trezcool/kozi/core/user"
	emailsvc "github.com/trezcool/kozi/services/email"
	testutil "github.com/trezcool/kozi/tests"
)

func submissionFixtures(t *testing.T) (instructor, rival, learner user.User, a assignment.Assignment, sub submission.Submission) {
	db.Reset()

	instructor = testutil.CreateUser(t, usrRepo, "Prof", "prof@test.cd", user.RoleInstructor, "", true)
	rival = testutil.CreateUser(t, usrRepo, "Rival", "rival@test.cd", user.RoleInstructor, "", true)
	learner = testutil.CreateUser(t, usrRepo, "Jane", "jane@test.cd", user.RoleLearner, "", true)
	crs := testutil.CreateCourse(t, crsRepo, instructor.ID, "Go 101", course.StatusPublished)
	testutil.CreateEnrollment(t, enrRepo, crs.ID, learner.ID, course.EnrollmentActive)
	a = testutil.CreateAssignment(t, assignRepo, crs.ID, "HW", assignment.StatusPublished, time.Time{}, false, false)
	sub = testutil.CreateSubmission(t, subRepo, a.ID, learner.ID, "my work", submission.StatusSubmitted)
	return
}

func Test_submissionApi_query(t *testing.T) {
	instructor, rival, learner, a, sub := submissionFixtures(t)

	tests := []httpTest{
		{
			name: "Auth required", path: "/v1/submissions?assignment_id=" + a.ID,
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "Instructor required", path: "/v1/submissions?assignment_id=" + a.ID, token: getToken(t, learner),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "assignment not found", path: "/v1/submissions?assignment_id=nope", token: getToken(t, instructor),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound),
		},
		{
			name: "not course owner", path: "/v1/submissions?assignment_id=" + a.ID, token: getToken(t, rival),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "query", path: "/v1/submissions?assignment_id=" + a.ID, token: getToken(t, instructor),
			wantCode: http.StatusOK, wantData: marchallList(t, sub),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_submissionApi_grade(t *testing.T) {
	instructor, rival, learner, _, sub := submissionFixtures(t)
	emailsvc.ClearSentMessages()

	body := marchallObj(t, map[string]interface{}{"score": 95, "feedback": "Good"})
	ownerToken := getToken(t, instructor)

	tests := []httpTest{
		{
			name: "Instructor required", path: "/v1/submissions/" + sub.ID + "/grade", body: body, token: getToken(t, learner),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "score required", path: "/v1/submissions/" + sub.ID + "/grade",
			body: marchallObj(t, map[string]interface{}{"feedback": "Good"}), token: ownerToken,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"score": "this field is required"}),
		},
		{
			name: "not found", path: "/v1/submissions/nope/grade", body: body, token: ownerToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound),
		},
		{
			name: "not course owner", path: "/v1/submissions/" + sub.ID + "/grade", body: body, token: getToken(t, rival),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{name: "grade", path: "/v1/submissions/" + sub.ID + "/grade", body: body, token: ownerToken, wantCode: http.StatusOK},
		{
			name: "already graded", path: "/v1/submissions/" + sub.ID + "/grade", body: body, token: ownerToken,
			wantCode: http.StatusConflict, wantData: marchallObj(t, httpErr{Error: "submission has already been graded"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantData != nil {
				checkCodeAndData(t, tt, rec)
				return
			}
			if rec.Code != tt.wantCode {
				t.Fatalf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
			}
			var graded submission.Submission
			if err := json.Unmarshal(rec.Body.Bytes(), &graded); err != nil {
				t.Fatalf("unmarshalling submission: %v", err)
			}
			if graded.Status != submission.StatusGraded {
				t.Errorf("grade status = %v, want %v", graded.Status, submission.StatusGraded)
			}
			if graded.Score == nil || *graded.Score != 95 {
				t.Errorf("grade score = %v, want 95", graded.Score)
			}
			if graded.Feedback != "Good" {
				t.Errorf("grade feedback = %q, want %q", graded.Feedback, "Good")
			}

			// learner is notified
			var notified bool
			for _, msg := range emailsvc.SentMessages {
				if len(msg.To) > 0 && msg.To[0].Address == learner.Email &&
					strings.Contains(msg.Subject, "graded") {
					notified = true
					break
				}
			}
			if !notified {
				t.Error("grade did not notify the learner")
			}
		})
	}
}

func Test_submissionApi_requestResubmission(t *testing.T) {
	instructor, rival, _, _, sub := submissionFixtures(t)
	ownerToken := getToken(t, instructor)

	tests := []httpTest{
		{
			name: "not found", path: "/v1/submissions/nope/resubmission-request", token: ownerToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound),
		},
		{
			name: "not course owner", path: "/v1/submissions/" + sub.ID + "/resubmission-request", token: getToken(t, rival),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{name: "request", path: "/v1/submissions/" + sub.ID + "/resubmission-request", token: ownerToken, wantCode: http.StatusOK},
		{name: "request is repeatable", path: "/v1/submissions/" + sub.ID + "/resubmission-request", token: ownerToken, wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, tt.path, tt.token)
			app.ServeHTTP(rec, req)

			if tt.wantData != nil {
				checkCodeAndData(t, tt, rec)
				return
			}
			if rec.Code != tt.wantCode {
				t.Fatalf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
			}
			var reopened submission.Submission
			if err := json.Unmarshal(rec.Body.Bytes(), &reopened); err != nil {
				t.Fatalf("unmarshalling submission: %v", err)
			}
			if reopened.Status != submission.StatusResubmissionRequired {
				t.Errorf("status = %v, want %v", reopened.Status, submission.StatusResubmissionRequired)
			}
		})
	}
}
