package main

import (
	"context"

	"github.com/trezcool/academia/core/user"
)

type seedUser struct {
	name     string
	email    string
	password string
	role     user.Role
	avatar   string
}

// the development user directory; one account per role
var seedUsers = []seedUser{
	{"Super Administrator", "superadmin@platform.edu", "admin123", user.RoleSuperAdmin, "/avatars/superadmin.jpg"},
	{"University Admin", "admin@university.edu", "admin123", user.RoleAdmin, "/avatars/admin.jpg"},
	{"Dr. Sarah Johnson", "faculty@university.edu", "faculty123", user.RoleFaculty, "/avatars/faculty.jpg"},
	{"Alex Chen", "student@university.edu", "student123", user.RoleStudent, "/avatars/student.jpg"},
	{"Maria Rodriguez", "staff@university.edu", "staff123", user.RoleStaff, "/avatars/staff.jpg"},
}

// seed loads the development directory; existing accounts are updated in
// place so the command is idempotent.
func (cli *commandLine) seed() error {
	ctx := context.Background()
	for _, su := range seedUsers {
		if err := cli.addUser(su.name, su.email, su.password, su.role); err != nil {
			return err
		}
		usr, err := cli.usrRepo.GetUserByEmail(ctx, su.email)
		if err != nil {
			return err
		}
		usr.Avatar = su.avatar
		if _, err = cli.usrRepo.UpdateUser(ctx, usr); err != nil {
			return err
		}
	}
	return nil
}
