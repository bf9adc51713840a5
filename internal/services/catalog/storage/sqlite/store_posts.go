package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dawitj/gebeya/internal/services/catalog/storage"
)

// postFilterSQL builds the shared WHERE clause for post queries.
// Keyword matching covers title and description.
func postFilterSQL(q storage.PostQuery) (string, []any) {
	clauses := []string{"subcity_id = ?", "subcategory_id = ?", "active = 1"}
	args := []any{q.SubcityID, q.SubcategoryID}
	if keyword := strings.TrimSpace(q.Keyword); keyword != "" {
		pattern := "%" + escapeLike(keyword) + "%"
		clauses = append(clauses, `(title LIKE ? ESCAPE '\' OR description LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}
	return strings.Join(clauses, " AND "), args
}

// escapeLike quotes LIKE wildcards so keywords match literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// ListPosts returns one window of posts, featured first then newest.
// Featured is evaluated at query time against q.Now.
func (s *Store) ListPosts(ctx context.Context, q storage.PostQuery) ([]storage.Post, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if err := checkWindow(q.Limit, q.Offset); err != nil {
		return nil, err
	}
	now := q.Now
	if now.IsZero() {
		now = time.Now()
	}

	where, args := postFilterSQL(q)
	args = append([]any{toMillis(now)}, args...)
	args = append(args, q.Limit, q.Offset)

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id, title, description, subcity_id, subcategory_id,
		        created_at, active, featured_until, image_group_id,
		        CASE WHEN featured_until IS NOT NULL AND featured_until > ? THEN 1 ELSE 0 END AS featured
		   FROM posts
		  WHERE `+where+`
		  ORDER BY featured DESC, created_at DESC, id DESC
		  LIMIT ? OFFSET ?`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	posts := make([]storage.Post, 0, q.Limit)
	for rows.Next() {
		var post storage.Post
		var createdAt int64
		var active int
		var featuredUntil sql.NullInt64
		var featured int
		if err := rows.Scan(
			&post.ID,
			&post.Title,
			&post.Description,
			&post.SubcityID,
			&post.SubcategoryID,
			&createdAt,
			&active,
			&featuredUntil,
			&post.ImageGroupID,
			&featured,
		); err != nil {
			return nil, fmt.Errorf("list posts: %w", err)
		}
		post.CreatedAt = fromMillis(createdAt)
		post.Active = active != 0
		if featuredUntil.Valid {
			until := fromMillis(featuredUntil.Int64)
			post.FeaturedUntil = &until
		}
		post.Featured = featured != 0
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return posts, nil
}

// CountPosts returns the total matching post count for a filter,
// independent of the window.
func (s *Store) CountPosts(ctx context.Context, q storage.PostQuery) (int, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	where, args := postFilterSQL(q)
	var total int
	if err := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT COUNT(*) FROM posts WHERE `+where,
		args...,
	).Scan(&total); err != nil {
		return 0, fmt.Errorf("count posts: %w", err)
	}
	return total, nil
}

// FirstImagesByGroup returns the lowest-id image filename for every image
// group in the set.
func (s *Store) FirstImagesByGroup(ctx context.Context, groupIDs []int64) (map[int64]string, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	set, args, err := inList(groupIDs)
	if err != nil {
		if errors.Is(err, storage.ErrEmptyIDSet) {
			return map[int64]string{}, nil
		}
		return nil, fmt.Errorf("first images: %w", err)
	}
	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT image_group_id, filename FROM (
		   SELECT image_group_id, filename,
		          ROW_NUMBER() OVER (PARTITION BY image_group_id ORDER BY id ASC) AS group_rank
		     FROM post_images
		    WHERE image_group_id IN `+set+`
		 )
		 WHERE group_rank = 1`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("first images: %w", err)
	}
	defer rows.Close()

	images := make(map[int64]string, len(groupIDs))
	for rows.Next() {
		var groupID int64
		var filename string
		if err := rows.Scan(&groupID, &filename); err != nil {
			return nil, fmt.Errorf("first images: %w", err)
		}
		images[groupID] = filename
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("first images: %w", err)
	}
	return images, nil
}
