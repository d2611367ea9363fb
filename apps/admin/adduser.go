package main

import (
	"context"

	"github.com/trezcool/kozi/core"
	"github.com/trezcool/kozi/core/user"
)

// addUser updates or creates a user.User
func (cli *commandLine) addUser(name, email, pwd string, isAdmin bool) error {
	var usr user.User
	var err error
	ctx := context.Background()
	name = core.CleanString(name)
	email = core.CleanString(email, true /* lower */)

	if usr, err = cli.usrRepo.GetUser(ctx, user.GetFilter{Email: email}); err != nil {
		if err != user.ErrNotFound {
			return err
		}
		usr = user.User{
			Name:  name,
			Email: email,
			Role:  user.RoleInstructor,
		}
	}
	if isAdmin {
		usr.Role = user.RoleAdmin
	}
	usr.SetActive(true)
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}
	if _, err := cli.usrRepo.UpdateOrCreateUser(ctx, usr); err != nil {
		return err
	}
	return nil
}
