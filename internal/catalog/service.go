// Package catalog implements the service-level recipe operations: filtered
// listing, single-record CRUD with ownership checks, and rating submission.
// It is transport-agnostic; HTTP handlers translate its errors to status codes.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/recipe-explorer/recipe-api/internal/domain"
	"github.com/recipe-explorer/recipe-api/internal/repository"
)

// ErrForbidden indicates an authenticated user attempted to mutate a recipe
// they do not own. Existence is not hidden: the caller learns the recipe is
// there, only the mutation is blocked.
var ErrForbidden = errors.New("catalog: forbidden")

// ValidationError reports malformed input rejected before any write.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

func invalidf(format string, args ...any) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

// Service orchestrates the repositories behind the catalog operations.
type Service struct {
	repo   *repository.Repository
	logger *log.Logger
}

// New constructs a catalog Service.
func New(repo *repository.Repository, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// ListParams are the raw, unvalidated listing inputs.
type ListParams struct {
	Search     string
	Tags       []string
	Cuisine    string
	Difficulty string
	MinTime    *int
	MaxTime    *int
	Sort       string
	Page       int
	PageSize   int
}

// RecipeInput bundles the caller-supplied recipe fields for creation.
type RecipeInput struct {
	Title       string
	Description *string
	Ingredients []string
	Steps       []string
	Tags        []string
	Metadata    map[string]any
}

// RecipeUpdate is a partial update; nil fields are left unchanged.
type RecipeUpdate struct {
	Title       *string
	Description *string
	Ingredients *[]string
	Steps       *[]string
	Tags        *[]string
	Metadata    *map[string]any
}

// ListRecipes returns the recipes matching every supplied filter, sorted and
// paginated. Requires no authentication.
func (s *Service) ListRecipes(ctx context.Context, params ListParams) ([]domain.Recipe, error) {
	if params.MinTime != nil && *params.MinTime < 0 {
		return nil, invalidf("min_time must be non-negative")
	}
	if params.MaxTime != nil && *params.MaxTime < 0 {
		return nil, invalidf("max_time must be non-negative")
	}

	filters := repository.RecipeListFilters{
		Tags:     params.Tags,
		MinTime:  params.MinTime,
		MaxTime:  params.MaxTime,
		Sort:     normalizeSort(params.Sort),
		Page:     params.Page,
		PageSize: params.PageSize,
	}
	if search := strings.TrimSpace(params.Search); search != "" {
		filters.Search = &search
	}
	if params.Cuisine != "" {
		cuisine := params.Cuisine
		filters.Cuisine = &cuisine
	}
	if params.Difficulty != "" {
		difficulty := params.Difficulty
		filters.Difficulty = &difficulty
	}

	return s.repo.Recipes.List(ctx, filters)
}

// CreateRecipe stores a recipe owned by ownerID. Requires authentication but
// no further authorization.
func (s *Service) CreateRecipe(ctx context.Context, ownerID int64, input RecipeInput) (domain.Recipe, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return domain.Recipe{}, invalidf("title is required")
	}

	return s.repo.Recipes.Create(ctx, repository.RecipeCreateParams{
		OwnerID:     ownerID,
		Title:       title,
		Description: input.Description,
		Ingredients: input.Ingredients,
		Steps:       input.Steps,
		Tags:        input.Tags,
		Metadata:    input.Metadata,
	})
}

// GetRecipe fetches a recipe by id. Requires no authentication.
func (s *Service) GetRecipe(ctx context.Context, id int64) (domain.Recipe, error) {
	return s.repo.Recipes.GetByID(ctx, id)
}

// UpdateRecipe overwrites the fields present in upd. Only the owner may update.
func (s *Service) UpdateRecipe(ctx context.Context, id int64, actor domain.User, upd RecipeUpdate) (domain.Recipe, error) {
	if upd.Title != nil && strings.TrimSpace(*upd.Title) == "" {
		return domain.Recipe{}, invalidf("title must not be empty")
	}

	recipe, err := s.repo.Recipes.GetByID(ctx, id)
	if err != nil {
		return domain.Recipe{}, err
	}
	if recipe.OwnerID != actor.ID {
		return domain.Recipe{}, ErrForbidden
	}

	return s.repo.Recipes.Update(ctx, id, repository.RecipeUpdateParams{
		Title:       upd.Title,
		Description: upd.Description,
		Ingredients: upd.Ingredients,
		Steps:       upd.Steps,
		Tags:        upd.Tags,
		Metadata:    upd.Metadata,
	})
}

// DeleteRecipe removes a recipe and, via cascade, its ratings. Only the owner
// may delete.
func (s *Service) DeleteRecipe(ctx context.Context, id int64, actor domain.User) error {
	recipe, err := s.repo.Recipes.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if recipe.OwnerID != actor.ID {
		return ErrForbidden
	}
	return s.repo.Recipes.Delete(ctx, id)
}

// RateRecipe records the actor's score for a recipe, overwriting any previous
// score from the same user, and returns the recipe with its refreshed average.
// Any active user may rate any recipe, including their own.
func (s *Service) RateRecipe(ctx context.Context, id int64, actor domain.User, score int, comment *string) (domain.Recipe, error) {
	if score < 1 || score > 5 {
		return domain.Recipe{}, invalidf("rating must be an integer between 1 and 5")
	}

	return s.repo.Ratings.Rate(ctx, repository.RateParams{
		RecipeID: id,
		UserID:   actor.ID,
		Score:    score,
		Comment:  comment,
	})
}

func normalizeSort(sort string) repository.RecipeSort {
	switch repository.RecipeSort(sort) {
	case repository.SortOldest:
		return repository.SortOldest
	case repository.SortRating:
		return repository.SortRating
	default:
		return repository.SortNewest
	}
}
