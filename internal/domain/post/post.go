package post

import (
	"errors"
	"time"
)

type Post struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	IsPublished bool      `json:"isPublished"`
	OwnerID     string    `json:"ownerId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Author is the owner summary embedded in read responses.
type Author struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	FullName string `json:"fullName,omitempty"`
}

type WithAuthor struct {
	Post
	Author Author `json:"author"`
}

var ErrNotFound = errors.New("post not found")

type CreatePostRequest struct {
	Title       string `json:"title" binding:"required,min=1,max=200"`
	Content     string `json:"content" binding:"required,min=1"`
	IsPublished bool   `json:"isPublished"`
}

// Partial update, nil fields stay untouched.
type UpdatePostRequest struct {
	Title       *string `json:"title" binding:"omitempty,min=1,max=200"`
	Content     *string `json:"content" binding:"omitempty,min=1"`
	IsPublished *bool   `json:"isPublished"`
}

// with pointers if optional, it will be nil
type ListFilter struct {
	OwnerID       *string
	PublishedOnly bool
	Limit         int
	Offset        int
}
