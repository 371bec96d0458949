package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"shareit/internal/apperr"
	"shareit/internal/models"
)

// SyncUsers upserts the configured user directory.
func (db *DB) SyncUsers(ctx context.Context, users []models.User) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `INSERT INTO users (id, name, email, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?)
              ON CONFLICT(id) DO UPDATE SET
                  name = excluded.name,
                  email = excluded.email,
                  updated_at = excluded.updated_at`
	now := toNanos(time.Now())
	for _, u := range users {
		if _, err := tx.ExecContext(ctx, query, u.ID, u.Name, u.Email, now, now); err != nil {
			return fmt.Errorf("failed to upsert user %d: %w", u.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit users: %w", err)
	}
	db.logger.Debug().Int("count", len(users)).Msg("Users synced")
	return nil
}

func (db *DB) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT id, name, email, created_at, updated_at FROM users WHERE id = ?`

	var (
		user             models.User
		created, updated int64
	)
	err := db.QueryRowContext(ctx, query, id).Scan(&user.ID, &user.Name, &user.Email, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("User with id %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", id, err)
	}
	user.CreatedAt = fromNanos(created)
	user.UpdatedAt = fromNanos(updated)
	return &user, nil
}
