package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"shareit/internal/apperr"
	"shareit/internal/models"
)

const bookingSelect = `SELECT b.id, b.item_id, i.name, i.owner_id, b.booker_id, u.name,
               b.start_ts, b.end_ts, b.status, b.created_at, b.updated_at, b.version
        FROM bookings b
        JOIN items i ON i.id = b.item_id
        JOIN users u ON u.id = b.booker_id`

// stateFilter returns the WHERE fragment selecting one State bucket at now.
type stateFilter func(now int64) (string, []any)

var stateFilters = [...]stateFilter{
	models.StateAll: func(int64) (string, []any) {
		return "", nil
	},
	models.StateCurrent: func(now int64) (string, []any) {
		return "b.status = ? AND b.start_ts <= ? AND b.end_ts >= ?", []any{models.StatusApproved, now, now}
	},
	models.StatePast: func(now int64) (string, []any) {
		return "b.end_ts < ?", []any{now}
	},
	models.StateFuture: func(now int64) (string, []any) {
		return "b.start_ts > ?", []any{now}
	},
	models.StateWaiting: func(int64) (string, []any) {
		return "b.status = ?", []any{models.StatusWaiting}
	},
	models.StateRejected: func(int64) (string, []any) {
		return "b.status = ?", []any{models.StatusRejected}
	},
}

// A State without a filter breaks the build here.
var _ = [1]struct{}{}[len(stateFilters)-int(models.NumStates)]

// CreateBooking inserts booking and fills in ID, timestamps and Version.
func (db *DB) CreateBooking(ctx context.Context, booking *models.Booking) error {
	if !models.Storable(booking.Start) || !models.Storable(booking.End) {
		return apperr.Validation("Booking dates %s - %s are out of storable range",
			booking.Start.Format(time.RFC3339), booking.End.Format(time.RFC3339))
	}

	query := `INSERT INTO bookings (item_id, booker_id, start_ts, end_ts, status, created_at, updated_at, version)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now().UTC()
	result, err := db.ExecContext(ctx, query,
		booking.ItemID,
		booking.BookerID,
		toNanos(booking.Start),
		toNanos(booking.End),
		booking.Status,
		toNanos(now),
		toNanos(now),
		1,
	)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	booking.ID = id
	booking.Start = booking.Start.UTC()
	booking.End = booking.End.UTC()
	booking.CreatedAt = fromNanos(toNanos(now))
	booking.UpdatedAt = booking.CreatedAt
	booking.Version = 1

	return nil
}

func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	booking, err := scanBooking(db.QueryRowContext(ctx, bookingSelect+` WHERE b.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("Booking with id %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking %d: %w", id, err)
	}
	return booking, nil
}

// UpdateBookingStatus moves a booking from one status to another in a single
// conditional statement, so of several concurrent callers only one succeeds.
func (db *DB) UpdateBookingStatus(ctx context.Context, id int64, from, to models.Status) error {
	query := `UPDATE bookings SET status = ?, updated_at = ?, version = version + 1
              WHERE id = ? AND status = ?`
	result, err := db.ExecContext(ctx, query, to, toNanos(time.Now()), id, from)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows > 0 {
		return nil
	}

	var current models.Status
	err = db.QueryRowContext(ctx, `SELECT status FROM bookings WHERE id = ?`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound("Booking with id %d not found", id)
	}
	if err != nil {
		return fmt.Errorf("failed to re-read booking status: %w", err)
	}
	return apperr.Conflict("Booking %d is already %s", id, current)
}

// ListBookings returns the bookings matching filter, newest start first.
func (db *DB) ListBookings(ctx context.Context, filter models.BookingFilter) ([]*models.Booking, error) {
	if !filter.State.Valid() {
		return nil, apperr.Validation("Unknown state: %s", filter.State)
	}

	var (
		conds []string
		args  []any
	)
	if filter.BookerID != 0 {
		conds = append(conds, "b.booker_id = ?")
		args = append(args, filter.BookerID)
	}
	if filter.OwnerID != 0 {
		conds = append(conds, "i.owner_id = ?")
		args = append(args, filter.OwnerID)
	}
	if clause, clauseArgs := stateFilters[filter.State](toNanos(filter.Now)); clause != "" {
		conds = append(conds, clause)
		args = append(args, clauseArgs...)
	}

	query := bookingSelect
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY b.start_ts DESC, b.id DESC"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer rows.Close()

	bookings := make([]*models.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bookings: %w", err)
	}
	return bookings, nil
}

// GetLastAndNextBookings finds, per item, the approved booking with the latest
// end not after now and the approved booking with the earliest start after now.
// Ties go to the highest booking id. Items that do not exist are omitted.
func (db *DB) GetLastAndNextBookings(ctx context.Context, itemIDs []int64, now time.Time) (map[int64]*models.ItemBookings, error) {
	result := make(map[int64]*models.ItemBookings, len(itemIDs))
	if len(itemIDs) == 0 {
		return result, nil
	}

	in, inArgs := inClause(itemIDs)

	rows, err := db.QueryContext(ctx, `SELECT id FROM items WHERE id IN (`+in+`)`, inArgs...)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve items: %w", err)
	}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan item id: %w", err)
		}
		result[id] = &models.ItemBookings{ItemID: id}
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to iterate item ids: %w", err)
	}

	nowNanos := toNanos(now)

	last, err := db.rankedApproved(ctx, in, inArgs, "b.end_ts <= ?", nowNanos, "b.end_ts DESC, b.id DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to get last bookings: %w", err)
	}
	for _, b := range last {
		if ib, ok := result[b.ItemID]; ok {
			ib.Last = b
		}
	}

	next, err := db.rankedApproved(ctx, in, inArgs, "b.start_ts > ?", nowNanos, "b.start_ts ASC, b.id DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to get next bookings: %w", err)
	}
	for _, b := range next {
		if ib, ok := result[b.ItemID]; ok {
			ib.Next = b
		}
	}

	return result, nil
}

// rankedApproved returns the first approved booking per item under order among those matching cond.
func (db *DB) rankedApproved(ctx context.Context, in string, inArgs []any, cond string, now int64, order string) ([]*models.Booking, error) {
	query := `SELECT id, item_id, item_name, owner_id, booker_id, booker_name,
                     start_ts, end_ts, status, created_at, updated_at, version
              FROM (
                  SELECT b.id, b.item_id, i.name AS item_name, i.owner_id, b.booker_id, u.name AS booker_name,
                         b.start_ts, b.end_ts, b.status, b.created_at, b.updated_at, b.version,
                         ROW_NUMBER() OVER (PARTITION BY b.item_id ORDER BY ` + order + `) AS rn
                  FROM bookings b
                  JOIN items i ON i.id = b.item_id
                  JOIN users u ON u.id = b.booker_id
                  WHERE b.item_id IN (` + in + `) AND b.status = ? AND ` + cond + `
              )
              WHERE rn = 1`

	args := make([]any, 0, len(inArgs)+2)
	args = append(args, inArgs...)
	args = append(args, models.StatusApproved, now)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

// HasApprovedPastBooking reports whether userID has an approved booking of itemID that ended before now.
func (db *DB) HasApprovedPastBooking(ctx context.Context, userID, itemID int64, now time.Time) (bool, error) {
	query := `SELECT EXISTS (
                  SELECT 1 FROM bookings
                  WHERE booker_id = ? AND item_id = ? AND status = ? AND end_ts < ?
              )`
	var exists bool
	err := db.QueryRowContext(ctx, query, userID, itemID, models.StatusApproved, toNanos(now)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check past bookings: %w", err)
	}
	return exists, nil
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	var (
		b                           models.Booking
		start, end, created, update int64
	)
	err := row.Scan(
		&b.ID,
		&b.ItemID,
		&b.ItemName,
		&b.OwnerID,
		&b.BookerID,
		&b.BookerName,
		&start,
		&end,
		&b.Status,
		&created,
		&update,
		&b.Version,
	)
	if err != nil {
		return nil, err
	}
	b.Start = fromNanos(start)
	b.End = fromNanos(end)
	b.CreatedAt = fromNanos(created)
	b.UpdatedAt = fromNanos(update)
	return &b, nil
}
