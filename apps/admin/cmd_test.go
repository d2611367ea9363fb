package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/trezcool/kozi/core/user"
	dummydb "github.com/trezcool/kozi/storage/database/dummy"
	testutil "github.com/trezcool/kozi/tests"
)

var usrRepo user.Repository

func setup(t *testing.T) *commandLine {
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}
	usrRepo = dummydb.NewUserRepository(db)

	// start CLI
	return &commandLine{
		usrRepo: usrRepo,
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)

	usr := testutil.CreateUser(t, usrRepo, "User", "awe@test.cd", user.RoleLearner, "mdr", true)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"resetpassword", "-email", "lol@test.cd"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-email", "lol@test.cd"}, extra: extra{pwd: "lol"}, wantErr: user.ErrNotFound},
		{name: "reset", args: []string{"resetpassword", "-email", usr.Email}, extra: extra{pwd: "lol"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err == nil {
				refreshedUsr, err := usrRepo.GetUser(context.Background(), user.GetFilter{ID: usr.ID})
				if err != nil {
					t.Fatalf("GetUser() failed, %v", err)
				}
				if bytes.Equal(refreshedUsr.PasswordHash, usr.PasswordHash) {
					t.Error("failed to update new password")
				}
			} else if err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli := setup(t)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "name but no email", args: []string{"adduser", "-name", "Admin"}, wantErr: errHelp},
		{name: "no password", args: []string{"adduser", "-name", "Admin", "-email", "a@test.cd"}, wantErr: errHelp},
		{name: "create", args: []string{"adduser", "-name", "Admin", "-email", "a@test.cd", "-admin"}, extra: extra{pwd: "lol"}},
		{name: "update existing", args: []string{"adduser", "-name", "Admin", "-email", "a@test.cd", "-admin"}, extra: extra{pwd: "lmao"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err == nil {
				usr, err := usrRepo.GetUser(context.Background(), user.GetFilter{Email: "a@test.cd"})
				if err != nil {
					t.Fatalf("GetUser() failed, %v", err)
				}
				if !usr.IsAdmin() {
					t.Errorf("addUser() role = %v, want %v", usr.Role, user.RoleAdmin)
				}
				if usr.IsActive == nil || !*usr.IsActive {
					t.Error("addUser() did not activate the user")
				}
			} else if err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
