package memory

import (
	"context"
	"sort"
	"time"

	"github.com/rloughlin/posthub/internal/domain/post"
	"github.com/rloughlin/posthub/internal/domain/stats"
	"github.com/rloughlin/posthub/internal/domain/user"
)

const (
	dashboardRecentRows = 5
	topAuthorsRows      = 10
	registrationDays    = 30
)

// StatsRepo computes the admin aggregates from store snapshots. Numbers match
// what the SQL store derives from the same rows.
type StatsRepo struct {
	users *UsersRepo
	posts *PostsRepo
}

func NewStatsRepo(users *UsersRepo, posts *PostsRepo) *StatsRepo {
	return &StatsRepo{
		users: users,
		posts: posts,
	}
}

func userCounts(users []user.User) stats.UserCounts {
	c := stats.UserCounts{Total: len(users)}

	for _, u := range users {
		if u.IsActive {
			c.Active++
		} else {
			c.Inactive++
		}
		if u.Role == user.RoleAdmin {
			c.Admins++
		}
	}
	return c
}

func postCounts(posts []post.Post) stats.PostCounts {
	c := stats.PostCounts{Total: len(posts)}

	for _, p := range posts {
		if p.IsPublished {
			c.Published++
		} else {
			c.Drafts++
		}
	}
	return c
}

func topAuthors(users []user.User, posts []post.Post, limit int) []stats.AuthorActivity {
	byID := make(map[string]user.User, len(users))

	for _, u := range users {
		byID[u.ID] = u
	}

	counts := make(map[string]int, len(users))

	for _, p := range posts {
		counts[p.OwnerID]++
	}

	output := make([]stats.AuthorActivity, 0, len(counts))

	for ownerID, n := range counts {
		owner, ok := byID[ownerID]

		if !ok {
			continue
		}

		output = append(output, stats.AuthorActivity{
			UserID:    ownerID,
			Username:  owner.Username,
			PostCount: n,
		})
	}

	sort.Slice(output, func(i, j int) bool {
		if output[i].PostCount == output[j].PostCount {
			return output[i].Username < output[j].Username
		}
		return output[i].PostCount > output[j].PostCount
	})

	if len(output) > limit {
		output = output[:limit]
	}
	return output
}

func (r *StatsRepo) Dashboard(_ context.Context) (stats.Dashboard, error) {
	users := r.users.snapshot()
	posts := r.posts.snapshot()

	d := stats.Dashboard{
		Users:       userCounts(users),
		Posts:       postCounts(posts),
		PostsByUser: topAuthors(users, posts, topAuthorsRows),
	}

	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].ID > users[j].ID
		}
		return users[i].CreatedAt.After(users[j].CreatedAt)
	})

	d.RecentUsers = make([]stats.RecentUser, 0, dashboardRecentRows)

	for _, u := range users {
		if len(d.RecentUsers) == dashboardRecentRows {
			break
		}
		d.RecentUsers = append(d.RecentUsers, stats.RecentUser{
			ID:        u.ID,
			Username:  u.Username,
			Email:     u.Email,
			CreatedAt: u.CreatedAt,
		})
	}

	byID := make(map[string]user.User, len(users))

	for _, u := range users {
		byID[u.ID] = u
	}

	sort.Slice(posts, func(i, j int) bool {
		if posts[i].CreatedAt.Equal(posts[j].CreatedAt) {
			return posts[i].ID > posts[j].ID
		}
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})

	d.RecentPosts = make([]stats.RecentPost, 0, dashboardRecentRows)

	for _, p := range posts {
		if len(d.RecentPosts) == dashboardRecentRows {
			break
		}
		d.RecentPosts = append(d.RecentPosts, stats.RecentPost{
			ID:          p.ID,
			Title:       p.Title,
			Author:      byID[p.OwnerID].Username,
			IsPublished: p.IsPublished,
			CreatedAt:   p.CreatedAt,
		})
	}

	return d, nil
}

func (r *StatsRepo) UserStats(_ context.Context) (stats.Users, error) {
	users := r.users.snapshot()

	s := stats.Users{Counts: userCounts(users)}

	cutoff := time.Now().AddDate(0, 0, -registrationDays)
	perDay := make(map[string]int)
	recent := 0

	for _, u := range users {
		if u.CreatedAt.Before(cutoff) {
			continue
		}
		perDay[u.CreatedAt.Format("2006-01-02")]++
		recent++
	}

	days := make([]string, 0, len(perDay))

	for day := range perDay {
		days = append(days, day)
	}
	sort.Strings(days)

	s.Registrations = make([]stats.RegistrationPoint, 0, len(days))

	for _, day := range days {
		s.Registrations = append(s.Registrations, stats.RegistrationPoint{
			Date:  day,
			Count: perDay[day],
		})
	}

	s.AveragePerDay = float64(recent) / float64(registrationDays)
	return s, nil
}

func (r *StatsRepo) PostStats(_ context.Context) (stats.Posts, error) {
	users := r.users.snapshot()
	posts := r.posts.snapshot()

	s := stats.Posts{
		Counts:     postCounts(posts),
		TopAuthors: topAuthors(users, posts, topAuthorsRows),
	}

	if s.Counts.Total > 0 {
		s.PublicationRate = float64(s.Counts.Published) / float64(s.Counts.Total)
	}

	return s, nil
}
