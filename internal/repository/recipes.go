package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/recipe-explorer/recipe-api/internal/domain"
)

// RecipesRepository provides persistence helpers for recipe entities.
type RecipesRepository struct {
	pool *pgxpool.Pool
}

const recipeColumns = `
    id,
    owner_id,
    title,
    description,
    ingredients,
    steps,
    tags,
    metadata,
    avg_rating,
    created_at,
    updated_at
`

// DefaultPageSize applies when a non-positive page size is requested.
const DefaultPageSize = 20

// RecipeSort selects the ordering of list results.
type RecipeSort string

const (
	// SortNewest orders by creation time descending.
	SortNewest RecipeSort = "newest"
	// SortOldest orders by creation time ascending.
	SortOldest RecipeSort = "oldest"
	// SortRating orders by average rating descending; unrated recipes sort last.
	SortRating RecipeSort = "rating"
)

// RecipeCreateParams bundles the fields required to create a recipe.
type RecipeCreateParams struct {
	OwnerID     int64
	Title       string
	Description *string
	Ingredients []string
	Steps       []string
	Tags        []string
	Metadata    map[string]any
}

// RecipeUpdateParams captures a partial update. Nil fields are left unchanged.
type RecipeUpdateParams struct {
	Title       *string
	Description *string
	Ingredients *[]string
	Steps       *[]string
	Tags        *[]string
	Metadata    *map[string]any
}

// RecipeListFilters encapsulates search, facet, sort, and pagination options.
// All supplied filters combine conjunctively.
type RecipeListFilters struct {
	Search     *string
	Tags       []string
	Cuisine    *string
	Difficulty *string
	MinTime    *int
	MaxTime    *int
	Sort       RecipeSort
	Page       int
	PageSize   int
}

// Pagination normalizes page/page size into an offset and limit. Pages below
// 1 clamp to 1 and non-positive sizes clamp to DefaultPageSize.
func (f RecipeListFilters) Pagination() (offset, limit int) {
	page := f.Page
	if page < 1 {
		page = 1
	}
	size := f.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	return (page - 1) * size, size
}

func (f RecipeListFilters) orderClause() string {
	switch f.Sort {
	case SortOldest:
		return "created_at ASC, id ASC"
	case SortRating:
		return "avg_rating DESC NULLS LAST, id ASC"
	default:
		return "created_at DESC, id ASC"
	}
}

// Create inserts a new recipe row and returns the stored entity.
func (r *RecipesRepository) Create(ctx context.Context, params RecipeCreateParams) (domain.Recipe, error) {
	metadataJSON, err := marshalMetadata(params.Metadata)
	if err != nil {
		return domain.Recipe{}, err
	}

	const query = `
        INSERT INTO recipes (owner_id, title, description, ingredients, steps, tags, metadata)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING ` + recipeColumns

	row := r.pool.QueryRow(ctx, query,
		params.OwnerID, params.Title, params.Description,
		params.Ingredients, params.Steps, params.Tags, metadataJSON)
	return scanRecipe(row)
}

// GetByID fetches a recipe by its identifier.
func (r *RecipesRepository) GetByID(ctx context.Context, id int64) (domain.Recipe, error) {
	const query = `SELECT ` + recipeColumns + ` FROM recipes WHERE id = $1`
	recipe, err := scanRecipe(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Recipe{}, ErrNotFound
		}
		return domain.Recipe{}, err
	}
	return recipe, nil
}

// Update overwrites the fields present in params and leaves the rest intact.
// avg_rating is deliberately not updatable here; only the rating protocol
// writes it.
func (r *RecipesRepository) Update(ctx context.Context, id int64, params RecipeUpdateParams) (domain.Recipe, error) {
	var metadataJSON []byte
	if params.Metadata != nil {
		payload, err := marshalMetadata(*params.Metadata)
		if err != nil {
			return domain.Recipe{}, err
		}
		metadataJSON = payload
	}

	const query = `
        UPDATE recipes
        SET title = COALESCE($2, title),
            description = COALESCE($3, description),
            ingredients = COALESCE($4, ingredients),
            steps = COALESCE($5, steps),
            tags = COALESCE($6, tags),
            metadata = COALESCE($7, metadata),
            updated_at = now()
        WHERE id = $1
        RETURNING ` + recipeColumns

	row := r.pool.QueryRow(ctx, query, id,
		params.Title, params.Description,
		derefSlice(params.Ingredients), derefSlice(params.Steps), derefSlice(params.Tags),
		metadataJSON)
	recipe, err := scanRecipe(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Recipe{}, ErrNotFound
		}
		return domain.Recipe{}, err
	}
	return recipe, nil
}

// Delete removes a recipe. Its ratings go with it via FK cascade.
func (r *RecipesRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM recipes WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns recipes matching every supplied filter, ordered and paginated.
// Out-of-range pages yield an empty slice, never an error.
func (r *RecipesRepository) List(ctx context.Context, filters RecipeListFilters) ([]domain.Recipe, error) {
	where := make([]string, 0)
	args := make([]interface{}, 0)
	arg := func(value interface{}) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	if filters.Search != nil && strings.TrimSpace(*filters.Search) != "" {
		where = append(where, fmt.Sprintf("title ILIKE %s", arg("%"+strings.TrimSpace(*filters.Search)+"%")))
	}
	if len(filters.Tags) > 0 {
		// Containment: the recipe's tag set must include every requested tag.
		where = append(where, fmt.Sprintf("tags @> %s", arg(filters.Tags)))
	}
	if filters.Cuisine != nil {
		where = append(where, fmt.Sprintf("metadata->>'cuisine' = %s", arg(*filters.Cuisine)))
	}
	if filters.Difficulty != nil {
		where = append(where, fmt.Sprintf("metadata->>'difficulty' = %s", arg(*filters.Difficulty)))
	}
	if filters.MinTime != nil || filters.MaxTime != nil {
		// A recipe without a numeric time value never matches a bounded query.
		where = append(where, "jsonb_typeof(metadata->'time') = 'number'")
		if filters.MinTime != nil {
			where = append(where, fmt.Sprintf("(metadata->>'time')::double precision >= %s", arg(*filters.MinTime)))
		}
		if filters.MaxTime != nil {
			where = append(where, fmt.Sprintf("(metadata->>'time')::double precision <= %s", arg(*filters.MaxTime)))
		}
	}

	offset, limit := filters.Pagination()

	queryBuilder := strings.Builder{}
	queryBuilder.WriteString("SELECT ")
	queryBuilder.WriteString(recipeColumns)
	queryBuilder.WriteString(" FROM recipes")
	if len(where) > 0 {
		queryBuilder.WriteString(" WHERE ")
		queryBuilder.WriteString(strings.Join(where, " AND "))
	}
	queryBuilder.WriteString(" ORDER BY ")
	queryBuilder.WriteString(filters.orderClause())
	queryBuilder.WriteString(fmt.Sprintf(" OFFSET %d LIMIT %d", offset, limit))

	rows, err := r.pool.Query(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Recipe, 0)
	for rows.Next() {
		recipe, err := scanRecipe(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, recipe)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func scanRecipe(row pgx.Row) (domain.Recipe, error) {
	var (
		recipe       domain.Recipe
		metadataJSON []byte
	)

	err := row.Scan(
		&recipe.ID,
		&recipe.OwnerID,
		&recipe.Title,
		&recipe.Description,
		&recipe.Ingredients,
		&recipe.Steps,
		&recipe.Tags,
		&metadataJSON,
		&recipe.AvgRating,
		&recipe.CreatedAt,
		&recipe.UpdatedAt,
	)
	if err != nil {
		return domain.Recipe{}, err
	}

	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &recipe.Metadata); err != nil {
			return domain.Recipe{}, err
		}
	}
	return recipe, nil
}

func marshalMetadata(metadata map[string]any) ([]byte, error) {
	if metadata == nil {
		return nil, nil
	}
	return json.Marshal(metadata)
}

func derefSlice(ptr *[]string) []string {
	if ptr == nil {
		return nil
	}
	if *ptr == nil {
		return []string{}
	}
	return *ptr
}
