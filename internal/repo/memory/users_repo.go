package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/geocoder89/libraryhub/internal/domain/user"
	"github.com/geocoder89/libraryhub/internal/repo"
	"github.com/google/uuid"
)

// UsersRepo is the in-process credential store. Each instance owns its
// own table, so tests can spin up isolated stores instead of sharing
// process-wide state.
type UsersRepo struct {
	mu      sync.RWMutex
	items   map[string]user.User // keyed by id
	byEmail map[string]string    // folded email -> id
}

func NewUsersRepo() *UsersRepo {
	return &UsersRepo{
		items:   make(map[string]user.User),
		byEmail: make(map[string]string),
	}
}

func foldEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *UsersRepo) Create(ctx context.Context, name, email, passwordHash, role string) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := foldEmail(email)

	if _, exists := r.byEmail[key]; exists {
		return user.User{}, repo.ErrEmailTaken
	}

	now := time.Now().UTC()

	u := user.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	r.items[u.ID] = u
	r.byEmail[key] = u.ID

	return u, nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[foldEmail(email)]

	if !ok {
		return user.User{}, repo.ErrUserNotFound
	}

	return r.items[id], nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.items[id]

	if !ok {
		return user.User{}, repo.ErrUserNotFound
	}

	return u, nil
}

func (r *UsersRepo) UpdateProfile(ctx context.Context, id string, upd repo.ProfileUpdate) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.items[id]

	if !ok {
		return user.User{}, repo.ErrUserNotFound
	}

	if upd.Email != nil {
		newKey := foldEmail(*upd.Email)
		oldKey := foldEmail(u.Email)

		if newKey != oldKey {
			if _, exists := r.byEmail[newKey]; exists {
				return user.User{}, repo.ErrEmailTaken
			}

			delete(r.byEmail, oldKey)
			r.byEmail[newKey] = id
		}

		u.Email = *upd.Email
	}

	if upd.Name != nil {
		u.Name = *upd.Name
	}

	u.UpdatedAt = time.Now().UTC()
	r.items[id] = u

	return u, nil
}

func (r *UsersRepo) UpdatePassword(ctx context.Context, id, newHash string) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.items[id]

	if !ok {
		return user.User{}, repo.ErrUserNotFound
	}

	u.PasswordHash = newHash
	u.UpdatedAt = time.Now().UTC()
	r.items[id] = u

	return u, nil
}

func (r *UsersRepo) List(ctx context.Context) ([]user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]user.User, 0, len(r.items))

	for _, u := range r.items {
		out = append(out, u)
	}

	return out, nil
}

func (r *UsersRepo) Ping(ctx context.Context) error {
	return nil
}
