package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rloughlin/posthub/internal/domain/post"
	"github.com/rloughlin/posthub/internal/observability"
)

type PostsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewPostsRepo(pool *pgxpool.Pool, prom *observability.Prom) *PostsRepo {
	return &PostsRepo{
		pool: pool,
		prom: prom,
	}
}

func (repo *PostsRepo) observe(op string, fn func() error) error {
	if repo.prom != nil {
		return repo.prom.ObserveDB(op, fn)
	}
	return fn()
}

func scanPostWithAuthor(row pgx.Row) (post.WithAuthor, error) {
	var p post.WithAuthor

	err := row.Scan(
		&p.ID,
		&p.Title,
		&p.Content,
		&p.IsPublished,
		&p.OwnerID,
		&p.CreatedAt,
		&p.UpdatedAt,
		&p.Author.ID,
		&p.Author.Username,
		&p.Author.FullName,
	)
	return p, err
}

// Create inserts the post and returns it joined with its author in one round
// trip.
func (repo *PostsRepo) Create(ctx context.Context, p post.Post) (post.WithAuthor, error) {
	var out post.WithAuthor

	err := repo.observe("posts.create", func() error {
		var err error
		out, err = scanPostWithAuthor(repo.pool.QueryRow(ctx,
			`WITH ins AS (
			     INSERT INTO posts (id, title, content, is_published, owner_id, created_at, updated_at)
			     VALUES ($1, $2, $3, $4, $5, $6, $7)
			     RETURNING id, title, content, is_published, owner_id, created_at, updated_at
			 )
			 SELECT ins.id, ins.title, ins.content, ins.is_published, ins.owner_id, ins.created_at, ins.updated_at,
			        u.id, u.username, u.full_name
			 FROM ins
			 JOIN users u ON u.id = ins.owner_id`,
			p.ID, p.Title, p.Content, p.IsPublished, p.OwnerID, p.CreatedAt, p.UpdatedAt,
		))
		return err
	})

	if err != nil {
		return post.WithAuthor{}, err
	}

	return out, nil
}

func (repo *PostsRepo) GetByID(ctx context.Context, id string) (post.WithAuthor, error) {
	var out post.WithAuthor

	err := repo.observe("posts.get_by_id", func() error {
		var err error
		out, err = scanPostWithAuthor(repo.pool.QueryRow(ctx,
			`SELECT p.id, p.title, p.content, p.is_published, p.owner_id, p.created_at, p.updated_at,
			        u.id, u.username, u.full_name
			 FROM posts p
			 JOIN users u ON u.id = p.owner_id
			 WHERE p.id = $1`, id))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return post.WithAuthor{}, post.ErrNotFound
		}
		return post.WithAuthor{}, err
	}
	return out, nil
}

func (repo *PostsRepo) List(ctx context.Context, filter post.ListFilter) ([]post.WithAuthor, int, error) {
	baseQuery :=
		`SELECT p.id,
		p.title,
		p.content,
		p.is_published,
		p.owner_id,
		p.created_at,
		p.updated_at,
		u.id,
		u.username,
		u.full_name,
		COUNT(*) OVER() AS TOTAL
	FROM posts p
	JOIN users u ON u.id = p.owner_id
	`

	var conds []string
	var args []interface{}

	argsPosition := 1

	if filter.PublishedOnly {
		conds = append(conds, "p.is_published = TRUE")
	}

	if filter.OwnerID != nil {
		conds = append(conds, fmt.Sprintf("p.owner_id = $%d", argsPosition))
		args = append(args, *filter.OwnerID)
		argsPosition++
	}

	query := baseQuery

	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	// stable ordering for pagination, newest first
	query += fmt.Sprintf(" ORDER BY p.created_at DESC, p.id DESC LIMIT $%d OFFSET $%d", argsPosition, argsPosition+1)

	args = append(args, filter.Limit, filter.Offset)

	output := make([]post.WithAuthor, 0, filter.Limit)
	total := 0

	err := repo.observe("posts.list", func() error {
		rows, err := repo.pool.Query(ctx, query, args...)

		if err != nil {
			return err
		}

		defer rows.Close()

		for rows.Next() {
			var p post.WithAuthor
			var t int

			err = rows.Scan(
				&p.ID, &p.Title, &p.Content, &p.IsPublished, &p.OwnerID,
				&p.CreatedAt, &p.UpdatedAt,
				&p.Author.ID, &p.Author.Username, &p.Author.FullName, &t,
			)

			if err != nil {
				return err
			}

			total = t
			output = append(output, p)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, 0, err
	}

	return output, total, nil
}

func (repo *PostsRepo) Update(ctx context.Context, id string, req post.UpdatePostRequest) (post.WithAuthor, error) {
	var out post.WithAuthor

	err := repo.observe("posts.update", func() error {
		var err error
		out, err = scanPostWithAuthor(repo.pool.QueryRow(ctx,
			`WITH upd AS (
			     UPDATE posts
			     SET title        = COALESCE($2, title),
			         content      = COALESCE($3, content),
			         is_published = COALESCE($4, is_published),
			         updated_at   = NOW()
			     WHERE id = $1
			     RETURNING id, title, content, is_published, owner_id, created_at, updated_at
			 )
			 SELECT upd.id, upd.title, upd.content, upd.is_published, upd.owner_id, upd.created_at, upd.updated_at,
			        u.id, u.username, u.full_name
			 FROM upd
			 JOIN users u ON u.id = upd.owner_id`,
			id,
			req.Title,
			req.Content,
			req.IsPublished,
		))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return post.WithAuthor{}, post.ErrNotFound
		}
		return post.WithAuthor{}, err
	}

	return out, nil
}

func (repo *PostsRepo) Delete(ctx context.Context, id string) error {
	return repo.observe("posts.delete", func() error {
		tag, err := repo.pool.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)

		if err != nil {
			return err
		}

		if tag.RowsAffected() == 0 {
			return post.ErrNotFound
		}

		return nil
	})
}
