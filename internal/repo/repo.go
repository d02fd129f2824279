package repo

import (
	"context"
	"errors"

	"github.com/geocoder89/libraryhub/internal/domain/user"
)

var (
	ErrEmailTaken   = errors.New("email already in use")
	ErrUserNotFound = errors.New("user not found")
)

// ProfileUpdate carries the two fields mutable through the profile
// path. Nil means "leave unchanged".
type ProfileUpdate struct {
	Name  *string
	Email *string
}

// CredentialStore is the port over the user table. Email comparisons
// are case-insensitive in every adapter.
type CredentialStore interface {
	Create(ctx context.Context, name, email, passwordHash, role string) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
	UpdateProfile(ctx context.Context, id string, upd ProfileUpdate) (user.User, error)
	UpdatePassword(ctx context.Context, id, newHash string) (user.User, error)
	List(ctx context.Context) ([]user.User, error)
	Ping(ctx context.Context) error
}
