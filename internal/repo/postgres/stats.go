package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rloughlin/posthub/internal/domain/stats"
	"github.com/rloughlin/posthub/internal/observability"
)

const (
	dashboardRecentRows = 5
	topAuthorsRows      = 10
	registrationDays    = 30
)

type StatsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewStatsRepo(pool *pgxpool.Pool, prom *observability.Prom) *StatsRepo {
	return &StatsRepo{
		pool: pool,
		prom: prom,
	}
}

func (repo *StatsRepo) observe(op string, fn func() error) error {
	if repo.prom != nil {
		return repo.prom.ObserveDB(op, fn)
	}
	return fn()
}

func (repo *StatsRepo) userCounts(ctx context.Context) (stats.UserCounts, error) {
	var c stats.UserCounts

	err := repo.pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE is_active),
		        COUNT(*) FILTER (WHERE NOT is_active),
		        COUNT(*) FILTER (WHERE role = 'admin')
		 FROM users`,
	).Scan(&c.Total, &c.Active, &c.Inactive, &c.Admins)

	return c, err
}

func (repo *StatsRepo) postCounts(ctx context.Context) (stats.PostCounts, error) {
	var c stats.PostCounts

	err := repo.pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE is_published),
		        COUNT(*) FILTER (WHERE NOT is_published)
		 FROM posts`,
	).Scan(&c.Total, &c.Published, &c.Drafts)

	return c, err
}

func (repo *StatsRepo) topAuthors(ctx context.Context, limit int) ([]stats.AuthorActivity, error) {
	rows, err := repo.pool.Query(ctx,
		`SELECT u.id, u.username, COUNT(p.id) AS post_count
		 FROM users u
		 JOIN posts p ON p.owner_id = u.id
		 GROUP BY u.id, u.username
		 ORDER BY post_count DESC, u.username ASC
		 LIMIT $1`, limit)

	if err != nil {
		return nil, err
	}

	defer rows.Close()

	output := make([]stats.AuthorActivity, 0, limit)

	for rows.Next() {
		var a stats.AuthorActivity

		if err := rows.Scan(&a.UserID, &a.Username, &a.PostCount); err != nil {
			return nil, err
		}

		output = append(output, a)
	}

	return output, rows.Err()
}

func (repo *StatsRepo) Dashboard(ctx context.Context) (stats.Dashboard, error) {
	var d stats.Dashboard

	err := repo.observe("stats.dashboard", func() error {
		var err error

		if d.Users, err = repo.userCounts(ctx); err != nil {
			return err
		}

		if d.Posts, err = repo.postCounts(ctx); err != nil {
			return err
		}

		rows, err := repo.pool.Query(ctx,
			`SELECT id, username, email, created_at
			 FROM users
			 ORDER BY created_at DESC, id DESC
			 LIMIT $1`, dashboardRecentRows)

		if err != nil {
			return err
		}

		d.RecentUsers = make([]stats.RecentUser, 0, dashboardRecentRows)

		for rows.Next() {
			var u stats.RecentUser

			if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.CreatedAt); err != nil {
				rows.Close()
				return err
			}

			d.RecentUsers = append(d.RecentUsers, u)
		}
		rows.Close()

		if err := rows.Err(); err != nil {
			return err
		}

		rows, err = repo.pool.Query(ctx,
			`SELECT p.id, p.title, u.username, p.is_published, p.created_at
			 FROM posts p
			 JOIN users u ON u.id = p.owner_id
			 ORDER BY p.created_at DESC, p.id DESC
			 LIMIT $1`, dashboardRecentRows)

		if err != nil {
			return err
		}

		d.RecentPosts = make([]stats.RecentPost, 0, dashboardRecentRows)

		for rows.Next() {
			var p stats.RecentPost

			if err := rows.Scan(&p.ID, &p.Title, &p.Author, &p.IsPublished, &p.CreatedAt); err != nil {
				rows.Close()
				return err
			}

			d.RecentPosts = append(d.RecentPosts, p)
		}
		rows.Close()

		if err := rows.Err(); err != nil {
			return err
		}

		d.PostsByUser, err = repo.topAuthors(ctx, topAuthorsRows)
		return err
	})

	if err != nil {
		return stats.Dashboard{}, err
	}

	return d, nil
}

func (repo *StatsRepo) UserStats(ctx context.Context) (stats.Users, error) {
	var s stats.Users

	err := repo.observe("stats.users", func() error {
		var err error

		if s.Counts, err = repo.userCounts(ctx); err != nil {
			return err
		}

		// one row per day that had signups; quiet days are absent
		rows, err := repo.pool.Query(ctx,
			`SELECT to_char(created_at::date, 'YYYY-MM-DD') AS day, COUNT(*)
			 FROM users
			 WHERE created_at >= now() - make_interval(days => $1)
			 GROUP BY day
			 ORDER BY day ASC`, registrationDays)

		if err != nil {
			return err
		}

		defer rows.Close()

		s.Registrations = make([]stats.RegistrationPoint, 0, registrationDays)
		recent := 0

		for rows.Next() {
			var p stats.RegistrationPoint

			if err := rows.Scan(&p.Date, &p.Count); err != nil {
				return err
			}

			recent += p.Count
			s.Registrations = append(s.Registrations, p)
		}

		if err := rows.Err(); err != nil {
			return err
		}

		s.AveragePerDay = float64(recent) / float64(registrationDays)
		return nil
	})

	if err != nil {
		return stats.Users{}, err
	}

	return s, nil
}

func (repo *StatsRepo) PostStats(ctx context.Context) (stats.Posts, error) {
	var s stats.Posts

	err := repo.observe("stats.posts", func() error {
		var err error

		if s.Counts, err = repo.postCounts(ctx); err != nil {
			return err
		}

		if s.Counts.Total > 0 {
			s.PublicationRate = float64(s.Counts.Published) / float64(s.Counts.Total)
		}

		s.TopAuthors, err = repo.topAuthors(ctx, topAuthorsRows)
		return err
	})

	if err != nil {
		return stats.Posts{}, err
	}

	return s, nil
}
