package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/libraryhub/internal/domain/user"
	"github.com/geocoder89/libraryhub/internal/repo"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// UsersRepo is the persistent credential store. Email uniqueness is
// enforced by a unique index on lower(email), so concurrent writers
// cannot race past the check.
type UsersRepo struct {
	pool *pgxpool.Pool
}

func NewUsersRepo(pool *pgxpool.Pool) *UsersRepo {
	return &UsersRepo{pool: pool}
}

const userColumns = `id, name, email, password_hash, role, created_at, updated_at`

func scanUser(row pgx.Row) (user.User, error) {
	var u user.User

	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&u.Role,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	return u, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError

	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func (r *UsersRepo) Create(ctx context.Context, name, email, passwordHash, role string) (user.User, error) {
	now := time.Now().UTC()

	u, err := scanUser(r.pool.QueryRow(
		ctx,
		`INSERT INTO users (id, name, email, password_hash, role, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $6)
		 RETURNING `+userColumns,
		uuid.NewString(), name, email, passwordHash, role, now,
	))

	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, repo.ErrEmailTaken
		}

		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	u, err := scanUser(r.pool.QueryRow(
		ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`,
		email,
	))

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, repo.ErrUserNotFound
		}

		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	u, err := scanUser(r.pool.QueryRow(
		ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`,
		id,
	))

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, repo.ErrUserNotFound
		}

		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) UpdateProfile(ctx context.Context, id string, upd repo.ProfileUpdate) (user.User, error) {
	u, err := scanUser(r.pool.QueryRow(
		ctx,
		`UPDATE users
		 SET name = COALESCE($2, name),
		     email = COALESCE($3, email),
		     updated_at = $4
		 WHERE id = $1
		 RETURNING `+userColumns,
		id, upd.Name, upd.Email, time.Now().UTC(),
	))

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, repo.ErrUserNotFound
		}

		if isUniqueViolation(err) {
			return user.User{}, repo.ErrEmailTaken
		}

		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) UpdatePassword(ctx context.Context, id, newHash string) (user.User, error) {
	u, err := scanUser(r.pool.QueryRow(
		ctx,
		`UPDATE users
		 SET password_hash = $2, updated_at = $3
		 WHERE id = $1
		 RETURNING `+userColumns,
		id, newHash, time.Now().UTC(),
	))

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, repo.ErrUserNotFound
		}

		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) List(ctx context.Context) ([]user.User, error) {
	rows, err := r.pool.Query(
		ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at`,
	)

	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var out []user.User

	for rows.Next() {
		u, err := scanUser(rows)

		if err != nil {
			return nil, err
		}

		out = append(out, u)
	}

	return out, rows.Err()
}

func (r *UsersRepo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}
