package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rloughlin/posthub/internal/domain/user"
	"github.com/rloughlin/posthub/internal/observability"
)

const userColumns = `id, email, username, full_name, password_hash, role, is_active, created_at, updated_at`

type UsersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{
		pool: pool,
		prom: prom,
	}
}

func (repo *UsersRepo) observe(op string, fn func() error) error {
	if repo.prom != nil {
		return repo.prom.ObserveDB(op, fn)
	}
	return fn()
}

func scanUser(row pgx.Row) (user.User, error) {
	var u user.User

	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Username,
		&u.FullName,
		&u.PasswordHash,
		&u.Role,
		&u.IsActive,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	return u, err
}

func (repo *UsersRepo) Create(ctx context.Context, u user.User) (user.User, error) {
	err := repo.observe("users.create", func() error {
		_, err := repo.pool.Exec(ctx,
			`INSERT INTO users (id, email, username, full_name, password_hash, role, is_active, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			u.ID, u.Email, u.Username, u.FullName, u.PasswordHash, u.Role, u.IsActive, u.CreatedAt, u.UpdatedAt,
		)
		return err
	})

	if err != nil {
		return user.User{}, mapUniqueViolation(err)
	}

	return u, nil
}

func (repo *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	var u user.User

	err := repo.observe("users.get_by_id", func() error {
		var err error
		u, err = scanUser(repo.pool.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}
	return u, nil
}

func (repo *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	var u user.User

	err := repo.observe("users.get_by_email", func() error {
		var err error
		u, err = scanUser(repo.pool.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE email = $1`, email))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}
	return u, nil
}

func (repo *UsersRepo) GetByUsername(ctx context.Context, username string) (user.User, error) {
	var u user.User

	err := repo.observe("users.get_by_username", func() error {
		var err error
		u, err = scanUser(repo.pool.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE username = $1`, username))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}
	return u, nil
}

func (repo *UsersRepo) List(ctx context.Context, filter user.ListFilter) ([]user.User, int, error) {
	output := make([]user.User, 0, filter.Limit)
	total := 0

	err := repo.observe("users.list", func() error {
		rows, err := repo.pool.Query(ctx,
			`SELECT `+userColumns+`, COUNT(*) OVER() AS total
			 FROM users
			 ORDER BY created_at ASC, id ASC
			 LIMIT $1 OFFSET $2`,
			filter.Limit, filter.Offset,
		)

		if err != nil {
			return err
		}

		defer rows.Close()

		for rows.Next() {
			var u user.User
			var t int

			err = rows.Scan(
				&u.ID, &u.Email, &u.Username, &u.FullName, &u.PasswordHash,
				&u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt, &t,
			)

			if err != nil {
				return err
			}

			total = t
			output = append(output, u)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, 0, err
	}

	return output, total, nil
}

// Update applies the non-nil fields of params. COALESCE keeps the stored
// value for every nil (untouched) field.
func (repo *UsersRepo) Update(ctx context.Context, id string, params user.UpdateParams) (user.User, error) {
	var u user.User

	err := repo.observe("users.update", func() error {
		var err error
		u, err = scanUser(repo.pool.QueryRow(ctx,
			`UPDATE users
			 SET email         = COALESCE($2, email),
			     username      = COALESCE($3, username),
			     full_name     = COALESCE($4, full_name),
			     password_hash = COALESCE($5, password_hash),
			     role          = COALESCE($6, role),
			     is_active     = COALESCE($7, is_active),
			     updated_at    = NOW()
			 WHERE id = $1
			 RETURNING `+userColumns,
			id,
			params.Email,
			params.Username,
			params.FullName,
			params.PasswordHash,
			params.Role,
			params.IsActive,
		))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, mapUniqueViolation(err)
	}

	return u, nil
}

func (repo *UsersRepo) Delete(ctx context.Context, id string) error {
	return repo.observe("users.delete", func() error {
		tag, err := repo.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)

		if err != nil {
			return err
		}

		// posts go with the user via ON DELETE CASCADE
		if tag.RowsAffected() == 0 {
			return user.ErrNotFound
		}

		return nil
	})
}
