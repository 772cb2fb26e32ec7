package post

import (
	"time"

	"github.com/google/uuid"
)

func NewFromCreateRequest(req CreatePostRequest, ownerID string) Post {
	now := time.Now()

	return Post{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Content:     req.Content,
		IsPublished: req.IsPublished,
		OwnerID:     ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
