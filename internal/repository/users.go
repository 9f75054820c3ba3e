package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/recipe-explorer/recipe-api/internal/domain"
)

// UsersRepository provides persistence helpers for user accounts.
type UsersRepository struct {
	pool *pgxpool.Pool
}

const userColumns = `
    id,
    email,
    username,
    password_hash,
    is_active,
    created_at,
    updated_at
`

// UserCreateParams bundles the fields required to register a user.
type UserCreateParams struct {
	Email        string
	Username     *string
	PasswordHash string
}

// Create inserts a new user row. A taken email or username surfaces as ErrDuplicate.
func (r *UsersRepository) Create(ctx context.Context, params UserCreateParams) (domain.User, error) {
	const query = `
        INSERT INTO users (email, username, password_hash)
        VALUES ($1,$2,$3)
        RETURNING ` + userColumns

	row := r.pool.QueryRow(ctx, query, params.Email, params.Username, params.PasswordHash)
	user, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.User{}, ErrDuplicate
		}
		return domain.User{}, err
	}
	return user, nil
}

// GetByID fetches a user by identifier.
func (r *UsersRepository) GetByID(ctx context.Context, id int64) (domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrNotFound
		}
		return domain.User{}, err
	}
	return user, nil
}

// GetByEmail fetches a user by email address.
func (r *UsersRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	user, err := scanUser(r.pool.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrNotFound
		}
		return domain.User{}, err
	}
	return user, nil
}

// Delete removes a user. Owned recipes and ratings go with it via FK cascade.
func (r *UsersRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (domain.User, error) {
	var user domain.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Username,
		&user.PasswordHash,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
