package utils

import "strconv"

// BuildPostsListCacheKey names one page of the public posts listing. Only the
// fully public shape (published, no owner filter) is ever cached, so the page
// bounds are the whole key.
func BuildPostsListCacheKey(skip, limit int) string {
	return "posts:list:v1:limit=" + strconv.Itoa(limit) +
		":skip=" + strconv.Itoa(skip)
}

// PostsListCachePrefix covers every cached listing page for invalidation.
const PostsListCachePrefix = "posts:list:"
