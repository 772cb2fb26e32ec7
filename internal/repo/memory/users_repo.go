// Package memory holds map-backed stores used when no database is configured.
// They mirror the postgres repos' behavior closely enough for dev mode and
// handler tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rloughlin/posthub/internal/domain/user"
)

type UsersRepo struct {
	mu    sync.RWMutex
	items map[string]user.User // keyed by ID

	// set by NewPostsRepo so deletes cascade like the SQL schema
	onDelete func(ownerID string)
}

func NewUsersRepo() *UsersRepo {
	return &UsersRepo{
		items: make(map[string]user.User),
	}
}

func (r *UsersRepo) Create(_ context.Context, u user.User) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.items {
		if existing.Email == u.Email {
			return user.User{}, user.ErrEmailTaken
		}
		if existing.Username == u.Username {
			return user.User{}, user.ErrUsernameTaken
		}
	}

	r.items[u.ID] = u
	return u, nil
}

func (r *UsersRepo) GetByID(_ context.Context, id string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.items[id]

	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

func (r *UsersRepo) GetByEmail(_ context.Context, email string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.items {
		if u.Email == email {
			return u, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (r *UsersRepo) GetByUsername(_ context.Context, username string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.items {
		if u.Username == username {
			return u, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (r *UsersRepo) List(_ context.Context, filter user.ListFilter) ([]user.User, int, error) {
	r.mu.RLock()

	all := make([]user.User, 0, len(r.items))

	for _, u := range r.items {
		all = append(all, u)
	}
	r.mu.RUnlock()

	// same ordering the SQL store uses
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})

	total := len(all)
	start := filter.Offset

	if start > total {
		start = total
	}

	end := start + filter.Limit

	if end > total {
		end = total
	}

	return all[start:end], total, nil
}

func (r *UsersRepo) Update(_ context.Context, id string, params user.UpdateParams) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.items[id]

	if !ok {
		return user.User{}, user.ErrNotFound
	}

	if params.Email != nil && *params.Email != u.Email {
		for _, existing := range r.items {
			if existing.ID != id && existing.Email == *params.Email {
				return user.User{}, user.ErrEmailTaken
			}
		}
		u.Email = *params.Email
	}

	if params.Username != nil && *params.Username != u.Username {
		for _, existing := range r.items {
			if existing.ID != id && existing.Username == *params.Username {
				return user.User{}, user.ErrUsernameTaken
			}
		}
		u.Username = *params.Username
	}

	if params.FullName != nil {
		u.FullName = *params.FullName
	}

	if params.PasswordHash != nil {
		u.PasswordHash = *params.PasswordHash
	}

	if params.Role != nil {
		u.Role = *params.Role
	}

	if params.IsActive != nil {
		u.IsActive = *params.IsActive
	}

	u.UpdatedAt = time.Now()
	r.items[id] = u

	return u, nil
}

func (r *UsersRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()

	if _, ok := r.items[id]; !ok {
		r.mu.Unlock()
		return user.ErrNotFound
	}

	delete(r.items, id)
	onDelete := r.onDelete
	r.mu.Unlock()

	if onDelete != nil {
		onDelete(id)
	}
	return nil
}

// snapshot hands a copy of the current rows to the stats store.
func (r *UsersRepo) snapshot() []user.User {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]user.User, 0, len(r.items))

	for _, u := range r.items {
		all = append(all, u)
	}
	return all
}
