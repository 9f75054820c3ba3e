package domain

import "time"

// Rating represents a single user's rating of a recipe. At most one row
// exists per (user, recipe) pair; re-rating overwrites score and comment.
type Rating struct {
	ID        int64
	UserID    int64
	RecipeID  int64
	Score     int
	Comment   *string
	CreatedAt time.Time
	UpdatedAt time.Time
}
