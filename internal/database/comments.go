package database

import (
	"context"
	"fmt"
	"time"

	"shareit/internal/models"
)

// CreateComment stores comment; CreatedAt is kept when set, otherwise stamped now.
func (db *DB) CreateComment(ctx context.Context, comment *models.Comment) error {
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = time.Now()
	}
	comment.CreatedAt = fromNanos(toNanos(comment.CreatedAt))

	query := `INSERT INTO comments (item_id, author_id, text, created_at) VALUES (?, ?, ?, ?)`
	result, err := db.ExecContext(ctx, query, comment.ItemID, comment.AuthorID, comment.Text, toNanos(comment.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to create comment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	comment.ID = id
	return nil
}

// GetCommentsByItems groups comments by item, oldest first.
func (db *DB) GetCommentsByItems(ctx context.Context, itemIDs []int64) (map[int64][]models.Comment, error) {
	result := make(map[int64][]models.Comment)
	if len(itemIDs) == 0 {
		return result, nil
	}

	in, args := inClause(itemIDs)
	query := `SELECT c.id, c.item_id, c.author_id, u.name, c.text, c.created_at
              FROM comments c
              JOIN users u ON u.id = c.author_id
              WHERE c.item_id IN (` + in + `)
              ORDER BY c.created_at ASC, c.id ASC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get comments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			c       models.Comment
			created int64
		)
		if err := rows.Scan(&c.ID, &c.ItemID, &c.AuthorID, &c.AuthorName, &c.Text, &created); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		c.CreatedAt = fromNanos(created)
		result[c.ItemID] = append(result[c.ItemID], c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate comments: %w", err)
	}
	return result, nil
}
