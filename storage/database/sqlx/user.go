package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/kozi/core/user"
)

type userRow struct {
	ID           string      `db:"id"`
	Name         string      `db:"name"`
	Email        string      `db:"email"`
	Role         string      `db:"role"`
	IsActive     null.Bool   `db:"is_active"`
	PasswordHash []byte      `db:"password_hash"`
	CreatedAt    null.Time   `db:"created_at"`
	UpdatedAt    null.Time   `db:"updated_at"`
	LastLogin    null.Time   `db:"last_login"`
}

func (r userRow) domain() user.User {
	return user.User{
		ID:           r.ID,
		Name:         r.Name,
		Email:        r.Email,
		Role:         r.Role,
		IsActive:     r.IsActive.Ptr(),
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt.Time,
		UpdatedAt:    r.UpdatedAt.Time,
		LastLogin:    r.LastLogin.Time,
	}
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{db: db}
}

// trapNoRowsErr maps psql "no rows" err to user.ErrNotFound
func (repo userRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return user.ErrNotFound
	}
	if sderr := trapShutdownErr(err); sderr != nil {
		return sderr
	}
	return errors.Wrap(err, msg)
}

func (repo userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...user.User) error {
	query := `SELECT EXISTS (SELECT 1 FROM "user" WHERE email = ?`
	args := []interface{}{email}
	for _, u := range excludedUsers {
		query += ` AND id <> ?`
		args = append(args, u.ID)
	}
	query += `)`

	var exists bool
	if err := repo.db.GetContext(ctx, &exists, repo.db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "checking user uniqueness")
	}
	if exists {
		return user.ErrEmailExists
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = uuid.New().String()
	var row userRow
	err := repo.db.GetContext(ctx, &row, `
		INSERT INTO "user" (id, name, email, role, is_active, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING *`,
		usr.ID, usr.Name, usr.Email, usr.Role, usr.IsActive == nil || *usr.IsActive,
		usr.PasswordHash, usr.CreatedAt.UTC(), usr.UpdatedAt.UTC(),
	)
	if err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return row.domain(), nil
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	var row userRow
	var err error

	switch {
	case filter.ID != "":
		if _, uerr := uuid.Parse(filter.ID); uerr != nil {
			return user.User{}, user.ErrNotFound
		}
		err = repo.db.GetContext(ctx, &row, `SELECT * FROM "user" WHERE id = $1`, filter.ID)
	case filter.Email != "":
		err = repo.db.GetContext(ctx, &row, `SELECT * FROM "user" WHERE email = $1`, filter.Email)
	default:
		return user.User{}, user.ErrNotFound
	}

	if err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "finding user")
	}
	return row.domain(), nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	var row userRow
	err := repo.db.GetContext(ctx, &row, `
		UPDATE "user"
		SET name          = $2,
		    email         = $3,
		    role          = $4,
		    is_active     = COALESCE($5, is_active),
		    password_hash = $6,
		    updated_at    = now(),
		    last_login    = COALESCE($7, last_login)
		WHERE id = $1
		RETURNING *`,
		usr.ID, usr.Name, usr.Email, usr.Role, null.BoolFromPtr(usr.IsActive),
		usr.PasswordHash, null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
	)
	if err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "updating user")
	}
	return row.domain(), nil
}

func (repo userRepository) UpdateOrCreateUser(ctx context.Context, usr user.User) (user.User, error) {
	if usr.ID == "" {
		return repo.CreateUser(ctx, usr)
	}
	return repo.UpdateUser(ctx, usr)
}
