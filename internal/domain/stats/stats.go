// Package stats holds the read-only aggregate shapes served by the admin
// endpoints.
package stats

import "time"

type UserCounts struct {
	Total    int `json:"total"`
	Active   int `json:"active"`
	Inactive int `json:"inactive"`
	Admins   int `json:"admins"`
}

type PostCounts struct {
	Total     int `json:"total"`
	Published int `json:"published"`
	Drafts    int `json:"drafts"`
}

// RecentUser is the trimmed listing row on the dashboard.
type RecentUser struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

type RecentPost struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	IsPublished bool      `json:"isPublished"`
	CreatedAt   time.Time `json:"createdAt"`
}

// AuthorActivity ranks an author by post count.
type AuthorActivity struct {
	UserID    string `json:"userId"`
	Username  string `json:"username"`
	PostCount int    `json:"postCount"`
}

type Dashboard struct {
	Users       UserCounts       `json:"users"`
	Posts       PostCounts       `json:"posts"`
	RecentUsers []RecentUser     `json:"recentUsers"`
	RecentPosts []RecentPost     `json:"recentPosts"`
	PostsByUser []AuthorActivity `json:"postsByUser"`
}

// RegistrationPoint is one day of the signup trend, date in YYYY-MM-DD.
type RegistrationPoint struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type Users struct {
	Counts        UserCounts          `json:"counts"`
	Registrations []RegistrationPoint `json:"registrationsLast30Days"`
	AveragePerDay float64             `json:"averagePerDay"`
}

type Posts struct {
	Counts          PostCounts       `json:"counts"`
	PublicationRate float64          `json:"publicationRate"`
	TopAuthors      []AuthorActivity `json:"topAuthors"`
}
