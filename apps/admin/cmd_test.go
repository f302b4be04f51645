package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/academia/core/user"
	inmemdb "github.com/trezcool/academia/storage/database/inmem"
)

var usrRepo user.Repository

func setup(t *testing.T) *commandLine {
	t.Helper()

	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("inmemdb.Open() failed, %v", err)
	}
	usrRepo = inmemdb.NewUserRepository(db)

	// start CLI
	return &commandLine{usrRepo: usrRepo}
}

func createUser(t *testing.T, name, email, pwd string, role user.Role) user.User {
	t.Helper()

	now := time.Now().UTC()
	usr := user.User{
		ID:        uuid.New().String(),
		Name:      name,
		Email:     email,
		Role:      role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(pwd); err != nil {
		t.Fatalf("SetPassword() failed, %v", err)
	}
	usr, err := usrRepo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed, %v", err)
	}
	return usr
}

type cliTest struct {
	name    string
	args    []string // without program name
	wantErr error
	extra   interface{}
}

func Test_commandLine_addUser(t *testing.T) {
	cli := setup(t)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "name but no email", args: []string{"adduser", "-name", "Jane Mwangi"}, wantErr: errHelp},
		{name: "no password", args: []string{"adduser", "-name", "Jane Mwangi", "-email", "jane@test.cd"}, wantErr: errHelp},
		{name: "unknown role", args: []string{"adduser", "-name", "Jane Mwangi", "-email", "jane@test.cd", "-role", "lol"},
			extra: extra{pwd: "s3cr3t"}, wantErr: user.ErrInvalidRole},
		{name: "create", args: []string{"adduser", "-name", "Jane Mwangi", "-email", "jane@test.cd", "-role", "faculty"},
			extra: extra{pwd: "s3cr3t"}},
		{name: "update existing", args: []string{"adduser", "-name", "Jane W. Mwangi", "-email", "jane@test.cd", "-role", "admin"},
			extra: extra{pwd: "n3w-s3cr3t"}},
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
			if err != tt.wantErr {
				t.Fatalf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				usr, err := usrRepo.GetUserByEmail(context.Background(), "jane@test.cd")
				if err != nil {
					t.Fatalf("GetUserByEmail() failed, %v", err)
				}
				if !usr.IsActive {
					t.Error("expected an active user")
				}
				if usr.CheckPassword(tt.extra.(extra).pwd) != nil {
					t.Error("failed to set password")
				}
			}
		})
	}

	// the update ran last; the account must reflect it
	usr, err := usrRepo.GetUserByEmail(context.Background(), "jane@test.cd")
	if err != nil {
		t.Fatalf("GetUserByEmail() failed, %v", err)
	}
	if usr.Name != "Jane W. Mwangi" {
		t.Errorf("Name = %q, want %q", usr.Name, "Jane W. Mwangi")
	}
	if usr.Role != user.RoleAdmin {
		t.Errorf("Role = %q, want %q", usr.Role, user.RoleAdmin)
	}
}

func Test_commandLine_setRole(t *testing.T) {
	cli := setup(t)

	usr := createUser(t, "Awe Test", "awe@test.cd", "mdr", user.RoleStudent)

	tests := []cliTest{
		{name: "no args", args: []string{"setrole"}, wantErr: errHelp},
		{name: "email but no role", args: []string{"setrole", "-email", usr.Email}, wantErr: errHelp},
		{name: "unknown role", args: []string{"setrole", "-email", usr.Email, "-role", "lol"}, wantErr: user.ErrInvalidRole},
		{name: "user not found", args: []string{"setrole", "-email", "lol@test.cd", "-role", "staff"}, wantErr: user.ErrNotFound},
		{name: "set role", args: []string{"setrole", "-email", usr.Email, "-role", "staff"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err != tt.wantErr {
				t.Fatalf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				refreshed, err := usrRepo.GetUserByID(context.Background(), usr.ID)
				if err != nil {
					t.Fatalf("GetUserByID() failed, %v", err)
				}
				if refreshed.Role != user.RoleStaff {
					t.Errorf("Role = %q, want %q", refreshed.Role, user.RoleStaff)
				}
			}
		})
	}
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)

	usr := createUser(t, "Awe Test", "awe@test.cd", "mdr", user.RoleStudent)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"resetpassword", "-email", usr.Email}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-email", "lol@test.cd"}, extra: extra{pwd: "lol"}, wantErr: user.ErrNotFound},
		{name: "reset", args: []string{"resetpassword", "-email", usr.Email}, extra: extra{pwd: "lmao"}},
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
			if err != tt.wantErr {
				t.Fatalf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				refreshed, err := usrRepo.GetUserByID(context.Background(), usr.ID)
				if err != nil {
					t.Fatalf("GetUserByID() failed, %v", err)
				}
				if bytes.Equal(refreshed.PasswordHash, usr.PasswordHash) {
					t.Error("failed to update new password")
				}
			}
		})
	}
}

func Test_commandLine_seed(t *testing.T) {
	cli := setup(t)

	if err := cli.run([]string{"admin", "seed"}); err != nil {
		t.Fatalf("cli.run() failed, %v", err)
	}
	// idempotent
	if err := cli.run([]string{"admin", "seed"}); err != nil {
		t.Fatalf("cli.run() failed on second run, %v", err)
	}

	users, err := usrRepo.QueryAllUsers(context.Background())
	if err != nil {
		t.Fatalf("QueryAllUsers() failed, %v", err)
	}
	if len(users) != len(seedUsers) {
		t.Fatalf("got %d users, want %d", len(users), len(seedUsers))
	}
	for _, su := range seedUsers {
		usr, err := usrRepo.GetUserByEmail(context.Background(), su.email)
		if err != nil {
			t.Fatalf("GetUserByEmail(%s) failed, %v", su.email, err)
		}
		if usr.Role != su.role {
			t.Errorf("%s: Role = %q, want %q", su.email, usr.Role, su.role)
		}
		if usr.Avatar != su.avatar {
			t.Errorf("%s: Avatar = %q, want %q", su.email, usr.Avatar, su.avatar)
		}
		if usr.CheckPassword(su.password) != nil {
			t.Errorf("%s: password not set", su.email)
		}
	}
}
