package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rloughlin/posthub/internal/config"
	"github.com/rloughlin/posthub/internal/domain/user"
	"github.com/rloughlin/posthub/internal/security"
)

// AdminSeedStore is the slice of the user store the seeder needs. Both the
// postgres and memory repos satisfy it.
type AdminSeedStore interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	Create(ctx context.Context, u user.User) (user.User, error)
}

// EnsureAdminUser creates the bootstrap admin account on first start. A no-op
// when the admin credentials are not configured or the account already exists.
func EnsureAdminUser(ctx context.Context, store AdminSeedStore, cfg config.Config) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	_, err := store.GetByEmail(ctx, cfg.AdminEmail)

	if err == nil {
		return nil
	}

	if !errors.Is(err, user.ErrNotFound) {
		return fmt.Errorf("look up admin user: %w", err)
	}

	hash, err := security.HashPassword(cfg.AdminPassword)

	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	now := time.Now().UTC()

	u := user.User{
		ID:           uuid.NewString(),
		Email:        cfg.AdminEmail,
		Username:     cfg.AdminUsername,
		FullName:     cfg.AdminName,
		PasswordHash: hash,
		Role:         user.RoleAdmin,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if _, err := store.Create(ctx, u); err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}

	return nil
}
