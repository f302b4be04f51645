package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/academia/core/user"
)

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...user.User) error {
	q := `SELECT COUNT(*) FROM "user" WHERE email = $1`
	args := []interface{}{email}
	if len(excludedUsers) > 0 {
		q += ` AND id != $2`
		args = append(args, excludedUsers[0].ID)
	}

	var count int
	if err := repo.db.GetContext(ctx, &count, q, args...); err != nil {
		return err
	}
	if count > 0 {
		return user.ErrEmailExists
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	const q = `
		INSERT INTO "user" (id, name, email, role, avatar, is_active, password_hash, created_at, updated_at, last_login)
		VALUES (:id, :name, :email, :role, :avatar, :is_active, :password_hash, :created_at, :updated_at, :last_login)`
	if _, err := repo.db.NamedExecContext(ctx, q, usr); err != nil {
		return user.User{}, err
	}
	return usr, nil
}

func (repo *userRepository) QueryAllUsers(ctx context.Context) ([]user.User, error) {
	const q = `SELECT * FROM "user" ORDER BY created_at`
	var users []user.User
	if err := repo.db.SelectContext(ctx, &users, q); err != nil {
		return nil, err
	}
	return users, nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	const q = `SELECT * FROM "user" WHERE id = $1`
	return repo.get(ctx, q, id)
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	const q = `SELECT * FROM "user" WHERE email = $1`
	return repo.get(ctx, q, email)
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	const q = `
		UPDATE "user"
		SET name = :name, email = :email, role = :role, avatar = :avatar, is_active = :is_active,
		    password_hash = :password_hash, updated_at = :updated_at, last_login = :last_login
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, usr)
	if err != nil {
		return user.User{}, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids ...string) error {
	q, args, err := sqlx.In(`DELETE FROM "user" WHERE id IN (?)`, ids)
	if err != nil {
		return err
	}
	_, err = repo.db.ExecContext(ctx, repo.db.Rebind(q), args...)
	return err
}

func (repo *userRepository) get(ctx context.Context, q string, arg interface{}) (user.User, error) {
	var usr user.User
	if err := repo.db.GetContext(ctx, &usr, q, arg); err != nil {
		if err == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}
	return usr, nil
}
