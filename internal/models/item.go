package models

import "time"

type Item struct {
	ID          int64     `yaml:"id" json:"id"`
	Name        string    `yaml:"name" json:"name"`
	Description string    `yaml:"description" json:"description"`
	Available   bool      `yaml:"available" json:"available"`
	OwnerID     int64     `yaml:"owner_id" json:"owner_id"`
	CreatedAt   time.Time `yaml:"-" json:"created_at"`
	UpdatedAt   time.Time `yaml:"-" json:"updated_at"`
}

// OwnerItem is an item as its owner sees it: booking neighbours and comments included.
type OwnerItem struct {
	Item
	LastBooking *Booking  `json:"last_booking"`
	NextBooking *Booking  `json:"next_booking"`
	Comments    []Comment `json:"comments"`
}
