package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/rloughlin/posthub/internal/domain/user"
)

// mapUniqueViolation translates a unique-constraint failure into the domain
// sentinel for the column that collided. Returns err unchanged otherwise.
func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return err
	}

	switch pgErr.ConstraintName {
	case "users_email_key":
		return user.ErrEmailTaken
	case "users_username_key":
		return user.ErrUsernameTaken
	}
	return err
}
