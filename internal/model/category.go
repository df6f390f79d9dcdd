package model

import "time"

// Category represents a spending category that transactions and mappings refer to by ID.
type Category struct {
	CreatedAt time.Time
	Name      string
	ID        int
	IsActive  bool
}
