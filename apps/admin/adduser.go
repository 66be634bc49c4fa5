package main

import (
	"context"

	"github.com/nexora/backend/core"
	"github.com/nexora/backend/core/user"
)

// addUser creates a user with the given role.
func (cli *commandLine) addUser(name, email, pwd, role string) error {
	ctx := context.Background()

	nu := user.NewUser{
		Name:            core.CleanString(name),
		Email:           core.CleanString(email, true /* lower */),
		Password:        pwd,
		PasswordConfirm: pwd,
		Role:            core.CleanString(role, true /* lower */),
	}
	if err := nu.Validate(cli.usrSvc); err != nil {
		return err
	}
	usr, err := cli.usrSvc.Create(ctx, nu)
	if err != nil {
		return err
	}
	logger.Printf("created %s user %s <%s>\n", usr.Role, usr.Name, usr.Email)
	return nil
}
