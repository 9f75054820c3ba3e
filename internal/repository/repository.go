package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/recipe-explorer/recipe-api/internal/store"
)

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("repository: not found")

// ErrDuplicate indicates a unique constraint rejected the write
// (e.g. registering an already-taken email).
var ErrDuplicate = errors.New("repository: duplicate")

// ErrConflict indicates transient storage contention that bounded retries
// did not resolve. Callers may retry the operation.
var ErrConflict = errors.New("repository: conflict")

// Repository aggregates all domain-specific repositories.
type Repository struct {
	Users   *UsersRepository
	Recipes *RecipesRepository
	Ratings *RatingsRepository
}

// New constructs a Repository backed by the provided store.
func New(st *store.Store) *Repository {
	return NewWithPool(st.Pool())
}

// NewWithPool allows constructing repositories directly from a pgx pool.
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{
		Users:   &UsersRepository{pool: pool},
		Recipes: &RecipesRepository{pool: pool},
		Ratings: &RatingsRepository{pool: pool},
	}
}
