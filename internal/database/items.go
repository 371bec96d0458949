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

const itemColumns = `id, name, description, available, owner_id, created_at, updated_at`

// SyncItems upserts the configured item catalogue. Owners must already exist.
func (db *DB) SyncItems(ctx context.Context, items []models.Item) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `INSERT INTO items (id, name, description, available, owner_id, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?)
              ON CONFLICT(id) DO UPDATE SET
                  name = excluded.name,
                  description = excluded.description,
                  available = excluded.available,
                  owner_id = excluded.owner_id,
                  updated_at = excluded.updated_at`
	now := toNanos(time.Now())
	for _, item := range items {
		_, err := tx.ExecContext(ctx, query,
			item.ID,
			item.Name,
			item.Description,
			item.Available,
			item.OwnerID,
			now,
			now,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert item %d: %w", item.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit items: %w", err)
	}
	db.logger.Debug().Int("count", len(items)).Msg("Items synced")
	return nil
}

func (db *DB) GetItemByID(ctx context.Context, id int64) (*models.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE id = ?`
	item, err := scanItem(db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("Item with id %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item %d: %w", id, err)
	}
	return item, nil
}

// GetItemsByOwner returns the owner's items ordered by id.
func (db *DB) GetItemsByOwner(ctx context.Context, ownerID int64) ([]models.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE owner_id = ? ORDER BY id`
	rows, err := db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get items by owner: %w", err)
	}
	defer rows.Close()

	items := make([]models.Item, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate items: %w", err)
	}
	return items, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*models.Item, error) {
	var (
		item             models.Item
		created, updated int64
	)
	if err := row.Scan(&item.ID, &item.Name, &item.Description, &item.Available, &item.OwnerID, &created, &updated); err != nil {
		return nil, err
	}
	item.CreatedAt = fromNanos(created)
	item.UpdatedAt = fromNanos(updated)
	return &item, nil
}
