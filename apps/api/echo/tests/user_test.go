package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	. "github.com/trezcool/kozi/apps/api/echo"
	"github.com/trezcool/kozi/core/user"
	testutil "github.com/trezcool/kozi/tests"
)

func Test_userApi_signup(t *testing.T) {
	db.Reset()

	testutil.CreateUser(t, usrRepo, "Taken", "taken@test.cd", user.RoleLearner, "", true)

	payload := func(name, email, role, pwd string) []byte {
		return marchallObj(t, map[string]string{
			"name": name, "email": email, "role": role,
			"password": pwd, "password_confirm": pwd,
		})
	}

	tests := []httpTest{
		{
			name: "bad role", body: payload("Jane", "jane@test.cd", "boss", "G0&od-pass"),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"role": "invalid role"}),
		},
		{
			name: "weak password", body: payload("Jane", "jane@test.cd", user.RoleLearner, "abc"),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"password": "password must contain at least 8 characters"}),
		},
		{
			name: "duplicate email", body: payload("Jane", "taken@test.cd", user.RoleLearner, "G0&od-pass"),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"email": "a user with this email already exists"}),
		},
		{name: "signup learner", body: payload("Jane", "jane@test.cd", user.RoleLearner, "G0&od-pass"), wantCode: http.StatusCreated},
		{name: "signup instructor", body: payload("Prof", "prof@test.cd", user.RoleInstructor, "G0&od-pass"), wantCode: http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/users/signup", tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantData != nil {
				checkCodeAndData(t, tt, rec)
				return
			}
			if rec.Code != tt.wantCode {
				t.Fatalf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
			}
			var usr user.User
			if err := json.Unmarshal(rec.Body.Bytes(), &usr); err != nil {
				t.Fatalf("unmarshalling user: %v", err)
			}
			if usr.ID == "" {
				t.Error("signup did not assign an ID")
			}
			if usr.IsActive == nil || !*usr.IsActive {
				t.Error("signup did not activate the user")
			}
		})
	}
}

func Test_userApi_login(t *testing.T) {
	db.Reset()

	usr := testutil.CreateUser(t, usrRepo, "Jane", "jane@test.cd", user.RoleLearner, "G0&od-pass", true)
	testutil.CreateUser(t, usrRepo, "Gone", "gone@test.cd", user.RoleLearner, "G0&od-pass", false)

	payload := func(email, pwd string) []byte {
		return marchallObj(t, map[string]string{"email": email, "password": pwd})
	}

	tests := []httpTest{
		{
			name: "unknown email", body: payload("lol@test.cd", "G0&od-pass"),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "wrong password", body: payload("jane@test.cd", "nope"),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "deactivated account", body: payload("gone@test.cd", "G0&od-pass"),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{name: "login", body: payload("jane@test.cd", "G0&od-pass"), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/users/login", tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantData != nil {
				checkCodeAndData(t, tt, rec)
				return
			}
			if rec.Code != tt.wantCode {
				t.Fatalf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
			}
			var resp LoginResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("unmarshalling response: %v", err)
			}
			if resp.Token == "" {
				t.Error("login did not return a token")
			}
			if _, err := usrRepo.GetUser(req.Context(), user.GetFilter{ID: usr.ID}); err != nil {
				t.Errorf("GetUser() failed: %v", err)
			}
		})
	}
}

func Test_userApi_me(t *testing.T) {
	db.Reset()

	usr := testutil.CreateUser(t, usrRepo, "Jane", "jane@test.cd", user.RoleLearner, "", true)

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "me", token: getToken(t, usr), wantCode: http.StatusOK, wantData: marchallObj(t, usr)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, "/v1/users/me", tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_refreshToken(t *testing.T) {
	db.Reset()

	usr := testutil.CreateUser(t, usrRepo, "Jane", "jane@test.cd", user.RoleLearner, "", true)

	req, rec := newAuthRequest(http.MethodPost, "/v1/users/token-refresh", getToken(t, usr))
	app.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("failed! code = %v; wantCode %v", rec.Code, http.StatusOK)
	}
	var resp LoginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshalling response: %v", err)
	}
	if resp.Token == "" {
		t.Error("refresh did not return a token")
	}
}
