package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/recipe-explorer/recipe-api/internal/domain"
)

// RatingsRepository provides helpers for recipe ratings and owns the
// upsert-then-recompute protocol that keeps avg_rating consistent.
type RatingsRepository struct {
	pool *pgxpool.Pool
}

// RateParams captures the payload required to rate a recipe.
type RateParams struct {
	RecipeID int64
	UserID   int64
	Score    int
	Comment  *string
}

const maxRateAttempts = 3

const ratingColumns = `id, user_id, recipe_id, rating, comment, created_at, updated_at`

// Rate upserts the (user, recipe) rating and recomputes the recipe's average
// in one transaction, returning the updated recipe.
//
// The transaction first locks the recipe row, so raters of the same recipe
// serialize and every recompute reads an aggregate that includes all ratings
// committed before the lock was granted. Raters of different recipes never
// contend. Transient lock/serialization failures retry a bounded number of
// times before surfacing as ErrConflict.
func (r *RatingsRepository) Rate(ctx context.Context, params RateParams) (domain.Recipe, error) {
	var lastErr error
	for attempt := 0; attempt < maxRateAttempts; attempt++ {
		recipe, err := r.rateOnce(ctx, params)
		if err == nil {
			return recipe, nil
		}
		if !isTransient(err) {
			return domain.Recipe{}, err
		}
		lastErr = err
	}
	return domain.Recipe{}, fmt.Errorf("%w: rate recipe %d: %v", ErrConflict, params.RecipeID, lastErr)
}

func (r *RatingsRepository) rateOnce(ctx context.Context, params RateParams) (recipe domain.Recipe, err error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.Recipe{}, fmt.Errorf("begin rating transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	// Lock the recipe row; doubles as the existence check.
	var recipeID int64
	err = tx.QueryRow(ctx, `SELECT id FROM recipes WHERE id = $1 FOR UPDATE`, params.RecipeID).Scan(&recipeID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Recipe{}, ErrNotFound
		}
		return domain.Recipe{}, fmt.Errorf("lock recipe: %w", err)
	}

	const upsert = `
        INSERT INTO recipe_ratings (user_id, recipe_id, rating, comment)
        VALUES ($1,$2,$3,$4)
        ON CONFLICT (user_id, recipe_id)
        DO UPDATE SET rating = EXCLUDED.rating, comment = EXCLUDED.comment, updated_at = now()
    `
	if _, err = tx.Exec(ctx, upsert, params.UserID, params.RecipeID, params.Score, params.Comment); err != nil {
		return domain.Recipe{}, fmt.Errorf("upsert rating: %w", err)
	}

	// Fresh aggregate over all current ratings, never an incremental average.
	const recompute = `
        UPDATE recipes
        SET avg_rating = (SELECT AVG(rating)::double precision FROM recipe_ratings WHERE recipe_id = $1),
            updated_at = now()
        WHERE id = $1
        RETURNING ` + recipeColumns

	recipe, err = scanRecipe(tx.QueryRow(ctx, recompute, params.RecipeID))
	if err != nil {
		return domain.Recipe{}, fmt.Errorf("recompute average: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return domain.Recipe{}, fmt.Errorf("commit rating: %w", err)
	}
	return recipe, nil
}

// Get retrieves a rating for a specific user/recipe combination.
func (r *RatingsRepository) Get(ctx context.Context, recipeID, userID int64) (domain.Rating, error) {
	const query = `SELECT ` + ratingColumns + ` FROM recipe_ratings WHERE recipe_id = $1 AND user_id = $2`
	var rating domain.Rating
	err := r.pool.QueryRow(ctx, query, recipeID, userID).Scan(
		&rating.ID,
		&rating.UserID,
		&rating.RecipeID,
		&rating.Score,
		&rating.Comment,
		&rating.CreatedAt,
		&rating.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Rating{}, ErrNotFound
		}
		return domain.Rating{}, err
	}
	return rating, nil
}

// Average returns the mean rating for a recipe, or nil when it has no ratings.
func (r *RatingsRepository) Average(ctx context.Context, recipeID int64) (*float64, error) {
	const query = `SELECT AVG(rating)::double precision FROM recipe_ratings WHERE recipe_id = $1`
	var avg *float64
	if err := r.pool.QueryRow(ctx, query, recipeID).Scan(&avg); err != nil {
		return nil, fmt.Errorf("average rating: %w", err)
	}
	return avg, nil
}

// CountForRecipe returns the number of rating rows for a recipe.
func (r *RatingsRepository) CountForRecipe(ctx context.Context, recipeID int64) (int64, error) {
	var count int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM recipe_ratings WHERE recipe_id = $1`, recipeID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count ratings: %w", err)
	}
	return count, nil
}

// isTransient reports whether err is worth retrying: deadlock, serialization
// failure, or a unique-constraint race two concurrent first-time raters can hit.
func isTransient(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case "40001", "40P01", "23505":
		return true
	}
	return false
}
