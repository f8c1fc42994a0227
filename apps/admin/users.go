package main

import (
	"context"

	"github.com/trezcool/darasa/core/user"
)

// delUser hard-deletes a user. Classrooms, grades, attendance records and
// announcements pointing at them are left dangling on purpose; the
// integrity layer heals them on the next read (or `sweep`).
func (cli *commandLine) delUser(email string) error {
	ctx := context.Background()

	usr, err := cli.usrSvc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if err = cli.usrSvc.Delete(ctx, usr.ID); err != nil {
		return err
	}
	logger.Printf("deleted user %s (%s)", usr.Name, usr.Email)
	return nil
}

// promote grants the admin role. Admin is never assignable over HTTP;
// profile updates only whitelist student|instructor.
func (cli *commandLine) promote(email string) error {
	ctx := context.Background()

	usr, err := cli.usrSvc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	usr.Role = user.RoleAdmin
	if _, err = cli.usrRepo.UpdateUser(ctx, usr); err != nil {
		return err
	}
	logger.Printf("promoted %s (%s) to %s", usr.Name, usr.Email, user.RoleAdmin)
	return nil
}
