package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rloughlin/posthub/internal/domain/post"
)

// PostsRepo keeps posts in a map and resolves authors through the users repo,
// standing in for the SQL join.
type PostsRepo struct {
	mu    sync.RWMutex
	items map[string]post.Post
	users *UsersRepo
}

func NewPostsRepo(users *UsersRepo) *PostsRepo {
	r := &PostsRepo{
		items: make(map[string]post.Post),
		users: users,
	}
	users.onDelete = r.deleteByOwner
	return r
}

func (r *PostsRepo) withAuthor(ctx context.Context, p post.Post) (post.WithAuthor, error) {
	owner, err := r.users.GetByID(ctx, p.OwnerID)

	if err != nil {
		return post.WithAuthor{}, err
	}

	return post.WithAuthor{
		Post: p,
		Author: post.Author{
			ID:       owner.ID,
			Username: owner.Username,
			FullName: owner.FullName,
		},
	}, nil
}

func (r *PostsRepo) Create(ctx context.Context, p post.Post) (post.WithAuthor, error) {
	out, err := r.withAuthor(ctx, p)

	if err != nil {
		return post.WithAuthor{}, err
	}

	r.mu.Lock()
	r.items[p.ID] = p
	r.mu.Unlock()

	return out, nil
}

func (r *PostsRepo) GetByID(ctx context.Context, id string) (post.WithAuthor, error) {
	r.mu.RLock()
	p, ok := r.items[id]
	r.mu.RUnlock()

	if !ok {
		return post.WithAuthor{}, post.ErrNotFound
	}

	return r.withAuthor(ctx, p)
}

func (r *PostsRepo) List(ctx context.Context, filter post.ListFilter) ([]post.WithAuthor, int, error) {
	r.mu.RLock()

	matched := make([]post.Post, 0, len(r.items))

	for _, p := range r.items {
		if filter.PublishedOnly && !p.IsPublished {
			continue
		}
		if filter.OwnerID != nil && p.OwnerID != *filter.OwnerID {
			continue
		}
		matched = append(matched, p)
	}
	r.mu.RUnlock()

	// newest first, same as the SQL store
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	start := filter.Offset

	if start > total {
		start = total
	}

	end := start + filter.Limit

	if end > total {
		end = total
	}

	output := make([]post.WithAuthor, 0, end-start)

	for _, p := range matched[start:end] {
		pa, err := r.withAuthor(ctx, p)

		if err != nil {
			return nil, 0, err
		}

		output = append(output, pa)
	}

	return output, total, nil
}

func (r *PostsRepo) Update(ctx context.Context, id string, req post.UpdatePostRequest) (post.WithAuthor, error) {
	r.mu.Lock()

	p, ok := r.items[id]

	if !ok {
		r.mu.Unlock()
		return post.WithAuthor{}, post.ErrNotFound
	}

	if req.Title != nil {
		p.Title = *req.Title
	}

	if req.Content != nil {
		p.Content = *req.Content
	}

	if req.IsPublished != nil {
		p.IsPublished = *req.IsPublished
	}

	p.UpdatedAt = time.Now()
	r.items[id] = p
	r.mu.Unlock()

	return r.withAuthor(ctx, p)
}

func (r *PostsRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return post.ErrNotFound
	}

	delete(r.items, id)
	return nil
}

// deleteByOwner mirrors the ON DELETE CASCADE the SQL schema gives us.
func (r *PostsRepo) deleteByOwner(ownerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, p := range r.items {
		if p.OwnerID == ownerID {
			delete(r.items, id)
		}
	}
}

func (r *PostsRepo) snapshot() []post.Post {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]post.Post, 0, len(r.items))

	for _, p := range r.items {
		all = append(all, p)
	}
	return all
}
