package entity

import "time"

// Account is the identity record that owns a username.
type Account struct {
	ID        string
	Username  string
	CreatedAt time.Time
	UpdatedAt time.Time
}
