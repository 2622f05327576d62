package domain

import "time"

// Item is an inventory row. The store assigns the ID and bumps
// UpdatedAt on every write; neither is ever set by callers.
type Item struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Quantity  int       `db:"quantity" json:"quantity"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
