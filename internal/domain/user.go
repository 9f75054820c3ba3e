package domain

import "time"

// User is an account that can own recipes and submit ratings.
type User struct {
	ID           int64
	Email        string
	Username     *string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
