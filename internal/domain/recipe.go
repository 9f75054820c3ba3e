package domain

import "time"

// Recipe represents the canonical recipe entity in the database/service.
//
// Metadata is an open string-keyed mapping with no fixed schema; the facet
// filters recognize the conventional keys "cuisine", "difficulty" and a
// numeric "time". AvgRating is derived from recipe_ratings and is nil iff no
// ratings exist; it is only ever written by the rating upsert protocol.
type Recipe struct {
	ID          int64
	OwnerID     int64
	Title       string
	Description *string
	Ingredients []string
	Steps       []string
	Tags        []string
	Metadata    map[string]any
	AvgRating   *float64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
