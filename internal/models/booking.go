package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

type Status string

const (
	StatusWaiting  Status = "WAITING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

// IsTerminal reports whether no further transitions are allowed.
func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

type Booking struct {
	ID         int64     `json:"id"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	ItemID     int64     `json:"item_id"`
	ItemName   string    `json:"item_name"`
	OwnerID    int64     `json:"owner_id"`
	BookerID   int64     `json:"booker_id"`
	BookerName string    `json:"booker_name"`
	Status     Status    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	Version    int64     `json:"version"`
}

// Booking times are stored as signed unix nanoseconds, which bounds them to this range.
var (
	MinStoredTime = time.Unix(0, math.MinInt64).UTC()
	MaxStoredTime = time.Unix(0, math.MaxInt64).UTC()
)

// Storable reports whether t lies within [MinStoredTime, MaxStoredTime].
func Storable(t time.Time) bool {
	return !t.Before(MinStoredTime) && !t.After(MaxStoredTime)
}

// LocalTimeLayout is the zone-less date form; such dates are read as UTC.
const LocalTimeLayout = "2006-01-02T15:04:05.999999999"

// BookingRequest is the caller-supplied part of a new booking.
type BookingRequest struct {
	ItemID int64     `json:"itemId"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
}

// UnmarshalJSON accepts RFC3339 dates as well as zone-less ones like 2024-01-01T10:00:00.
func (r *BookingRequest) UnmarshalJSON(data []byte) error {
	var raw struct {
		ItemID int64  `json:"itemId"`
		Start  string `json:"start"`
		End    string `json:"end"`
	}
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&raw); err != nil {
		return err
	}

	start, err := parseRequestTime(raw.Start)
	if err != nil {
		return fmt.Errorf("start: %w", err)
	}
	end, err := parseRequestTime(raw.End)
	if err != nil {
		return fmt.Errorf("end: %w", err)
	}

	*r = BookingRequest{ItemID: raw.ItemID, Start: start, End: end}
	return nil
}

func parseRequestTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(LocalTimeLayout, value, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q, want RFC3339 or 2006-01-02T15:04:05", value)
	}
	return t, nil
}

// ItemBookings holds the nearest past and nearest future approved bookings of an item.
type ItemBookings struct {
	ItemID int64    `json:"item_id"`
	Last   *Booking `json:"last_booking"`
	Next   *Booking `json:"next_booking"`
}

// BookingFilter selects bookings by booker or by item owner, bucketed by State at Now.
// Exactly one of BookerID and OwnerID is expected to be set.
type BookingFilter struct {
	BookerID int64
	OwnerID  int64
	State    State
	Now      time.Time
}
