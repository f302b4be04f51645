package main

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/user"
)

// addUser updates or creates a user.User
func (cli *commandLine) addUser(name, email, pwd string, role user.Role) error {
	ctx := context.Background()
	name = core.CleanString(name)
	email = core.CleanString(email, true /* lower */)
	if !role.Valid() {
		return user.ErrInvalidRole
	}

	var found bool
	usr, err := cli.usrRepo.GetUserByEmail(ctx, email)
	switch err {
	case nil:
		found = true
	case user.ErrNotFound:
		now := time.Now().UTC()
		usr = user.User{
			ID:        uuid.New().String(),
			Email:     email,
			CreatedAt: now,
			UpdatedAt: now,
		}
	default:
		return err
	}

	usr.Name = name
	usr.Role = role
	usr.IsActive = true
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}

	if found {
		usr.UpdatedAt = time.Now().UTC()
		_, err = cli.usrRepo.UpdateUser(ctx, usr)
	} else {
		_, err = cli.usrRepo.CreateUser(ctx, usr)
	}
	return err
}
