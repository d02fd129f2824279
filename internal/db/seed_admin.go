package db

import (
	"context"
	"errors"

	"github.com/geocoder89/libraryhub/internal/config"
	"github.com/geocoder89/libraryhub/internal/domain/user"
	"github.com/geocoder89/libraryhub/internal/repo"
	"github.com/geocoder89/libraryhub/internal/security"
)

// EnsureAdminUser creates the bootstrap admin account if it is
// configured and absent. Works against any credential store adapter.
func EnsureAdminUser(ctx context.Context, store repo.CredentialStore, cfg config.Config) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	_, err := store.GetByEmail(ctx, cfg.AdminEmail)

	if err == nil {
		return nil
	}

	if !errors.Is(err, repo.ErrUserNotFound) {
		return err
	}

	hash, err := security.HashPassword(cfg.AdminPassword)

	if err != nil {
		return err
	}

	_, err = store.Create(ctx, cfg.AdminName, cfg.AdminEmail, hash, user.RoleAdmin)

	return err
}
