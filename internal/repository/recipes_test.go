package repository

import (
	"testing"
	"time"
)

func TestRecipesRepository_CreateGetUpdateDelete(t *testing.T) {
	env := newTestEnv(t)
	defer env.cleanup()

	owner := mustCreateUser(t, env, "owner@example.com")

	desc := "A weeknight classic"
	created := mustCreateRecipe(t, env, RecipeCreateParams{
		OwnerID:     owner.ID,
		Title:       "Spaghetti Aglio e Olio",
		Description: &desc,
		Ingredients: []string{"spaghetti", "garlic", "olive oil"},
		Steps:       []string{"boil pasta", "fry garlic", "toss"},
		Tags:        []string{"italian", "vegetarian"},
		Metadata:    map[string]any{"cuisine": "italian", "difficulty": "easy", "time": 25},
	})
	if created.ID == 0 || created.OwnerID != owner.ID {
		t.Fatalf("unexpected created recipe: %+v", created)
	}
	if created.AvgRating != nil {
		t.Fatalf("new recipe must have nil avg_rating, got %v", *created.AvgRating)
	}

	got, err := env.repository.Recipes.GetByID(env.ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if len(got.Ingredients) != 3 || len(got.Tags) != 2 {
		t.Fatalf("arrays not round-tripped: %+v", got)
	}
	if got.Metadata["cuisine"] != "italian" {
		t.Fatalf("metadata not round-tripped: %+v", got.Metadata)
	}

	if _, err := env.repository.Recipes.GetByID(env.ctx, 99999); err != ErrNotFound {
		t.Fatalf("unknown id error = %v, want ErrNotFound", err)
	}

	// Partial update: only the title changes, everything else is untouched.
	newTitle := "Midnight Spaghetti"
	updated, err := env.repository.Recipes.Update(env.ctx, created.ID, RecipeUpdateParams{Title: &newTitle})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Title != "Midnight Spaghetti" {
		t.Fatalf("title not updated: %q", updated.Title)
	}
	if updated.Description == nil || *updated.Description != desc {
		t.Fatalf("description changed by partial update: %+v", updated.Description)
	}
	if len(updated.Ingredients) != 3 || len(updated.Steps) != 3 || len(updated.Tags) != 2 {
		t.Fatalf("arrays changed by partial update: %+v", updated)
	}
	if updated.Metadata["time"] != float64(25) {
		t.Fatalf("metadata changed by partial update: %+v", updated.Metadata)
	}

	// Present-but-empty overwrites.
	emptyTags := []string{}
	updated, err = env.repository.Recipes.Update(env.ctx, created.ID, RecipeUpdateParams{Tags: &emptyTags})
	if err != nil {
		t.Fatalf("Update tags: %v", err)
	}
	if len(updated.Tags) != 0 {
		t.Fatalf("tags not cleared: %+v", updated.Tags)
	}

	if _, err := env.repository.Recipes.Update(env.ctx, 99999, RecipeUpdateParams{Title: &newTitle}); err != ErrNotFound {
		t.Fatalf("update unknown id error = %v, want ErrNotFound", err)
	}

	if err := env.repository.Recipes.Delete(env.ctx, created.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := env.repository.Recipes.GetByID(env.ctx, created.ID); err != ErrNotFound {
		t.Fatalf("deleted recipe still readable")
	}
	if err := env.repository.Recipes.Delete(env.ctx, created.ID); err != ErrNotFound {
		t.Fatalf("second Delete error = %v, want ErrNotFound", err)
	}
}

func TestRecipesRepository_ListFilters(t *testing.T) {
	env := newTestEnv(t)
	defer env.cleanup()

	owner := mustCreateUser(t, env, "owner@example.com")

	pasta := mustCreateRecipe(t, env, RecipeCreateParams{
		OwnerID:  owner.ID,
		Title:    "Pasta Primavera",
		Tags:     []string{"italian", "vegetarian"},
		Metadata: map[string]any{"cuisine": "italian", "difficulty": "easy", "time": 25},
	})
	curry := mustCreateRecipe(t, env, RecipeCreateParams{
		OwnerID:  owner.ID,
		Title:    "Thai Green Curry",
		Tags:     []string{"thai", "spicy"},
		Metadata: map[string]any{"cuisine": "thai", "difficulty": "medium", "time": 45},
	})
	// No tags, no time value.
	toast := mustCreateRecipe(t, env, RecipeCreateParams{
		OwnerID:  owner.ID,
		Title:    "Plain Toast",
		Metadata: map[string]any{"difficulty": "easy"},
	})

	listIDs := func(filters RecipeListFilters) []int64 {
		t.Helper()
		recipes, err := env.repository.Recipes.List(env.ctx, filters)
		if err != nil {
			t.Fatalf("List(%+v): %v", filters, err)
		}
		ids := make([]int64, 0, len(recipes))
		for _, r := range recipes {
			ids = append(ids, r.ID)
		}
		return ids
	}

	// Case-insensitive substring search over the title only.
	search := "pasta"
	if ids := listIDs(RecipeListFilters{Search: &search}); len(ids) != 1 || ids[0] != pasta.ID {
		t.Fatalf("search %q returned %v", search, ids)
	}

	// Tag containment: every requested tag must be present.
	if ids := listIDs(RecipeListFilters{Tags: []string{"italian"}}); len(ids) != 1 || ids[0] != pasta.ID {
		t.Fatalf("tags [italian] returned %v", ids)
	}
	if ids := listIDs(RecipeListFilters{Tags: []string{"italian", "vegetarian"}}); len(ids) != 1 || ids[0] != pasta.ID {
		t.Fatalf("tags [italian vegetarian] returned %v", ids)
	}
	if ids := listIDs(RecipeListFilters{Tags: []string{"italian", "spicy"}}); len(ids) != 0 {
		t.Fatalf("tags [italian spicy] should match nothing, returned %v", ids)
	}
	if ids := listIDs(RecipeListFilters{Tags: []string{"vegan"}}); len(ids) != 0 {
		t.Fatalf("tags [vegan] should match nothing, returned %v", ids)
	}

	// Facet match is exact and case-sensitive; a missing key never matches.
	cuisine := "thai"
	if ids := listIDs(RecipeListFilters{Cuisine: &cuisine}); len(ids) != 1 || ids[0] != curry.ID {
		t.Fatalf("cuisine thai returned %v", ids)
	}
	upper := "Thai"
	if ids := listIDs(RecipeListFilters{Cuisine: &upper}); len(ids) != 0 {
		t.Fatalf("cuisine Thai (wrong case) should match nothing, returned %v", ids)
	}
	difficulty := "easy"
	if ids := listIDs(RecipeListFilters{Difficulty: &difficulty}); len(ids) != 2 {
		t.Fatalf("difficulty easy returned %v", ids)
	}

	// Inclusive time range; recipes without a numeric time never match.
	min20, max30 := 20, 30
	if ids := listIDs(RecipeListFilters{MinTime: &min20, MaxTime: &max30}); len(ids) != 1 || ids[0] != pasta.ID {
		t.Fatalf("time [20,30] returned %v", ids)
	}
	min25 := 25
	if ids := listIDs(RecipeListFilters{MinTime: &min25}); len(ids) != 2 {
		t.Fatalf("time [25,∞) should include the boundary, returned %v", ids)
	}
	min50 := 50
	if ids := listIDs(RecipeListFilters{MinTime: &min50}); len(ids) != 0 {
		t.Fatalf("time [50,∞) should match nothing, returned %v", ids)
	}
	_ = toast

	// Conjunctive composition: the §8 example shape.
	if ids := listIDs(RecipeListFilters{Tags: []string{"italian"}, MinTime: &min20, MaxTime: &max30}); len(ids) != 1 || ids[0] != pasta.ID {
		t.Fatalf("conjunctive filter returned %v", ids)
	}
	if ids := listIDs(RecipeListFilters{Tags: []string{"italian"}, Cuisine: &cuisine}); len(ids) != 0 {
		t.Fatalf("conflicting conjunctive filter should match nothing, returned %v", ids)
	}
}

func TestRecipesRepository_SortAndPaginate(t *testing.T) {
	env := newTestEnv(t)
	defer env.cleanup()

	owner := mustCreateUser(t, env, "owner@example.com")
	rater := mustCreateUser(t, env, "rater@example.com")

	base := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	var ids []int64
	for i := 0; i < 5; i++ {
		recipe := mustCreateRecipe(t, env, RecipeCreateParams{OwnerID: owner.ID, Title: "Recipe"})
		setCreatedAt(t, env, recipe.ID, base.Add(time.Duration(i)*time.Hour))
		ids = append(ids, recipe.ID)
	}

	list := func(filters RecipeListFilters) []int64 {
		t.Helper()
		recipes, err := env.repository.Recipes.List(env.ctx, filters)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		out := make([]int64, 0, len(recipes))
		for _, r := range recipes {
			out = append(out, r.ID)
		}
		return out
	}

	newest := list(RecipeListFilters{Sort: SortNewest})
	for i := range ids {
		if newest[i] != ids[len(ids)-1-i] {
			t.Fatalf("newest order = %v, want reverse of %v", newest, ids)
		}
	}

	oldest := list(RecipeListFilters{Sort: SortOldest})
	for i := range ids {
		if oldest[i] != ids[i] {
			t.Fatalf("oldest order = %v, want %v", oldest, ids)
		}
	}

	// Rate two recipes; the remaining three must sort after them.
	if _, err := env.repository.Ratings.Rate(env.ctx, RateParams{RecipeID: ids[1], UserID: rater.ID, Score: 3}); err != nil {
		t.Fatalf("rate: %v", err)
	}
	if _, err := env.repository.Ratings.Rate(env.ctx, RateParams{RecipeID: ids[3], UserID: owner.ID, Score: 5}); err != nil {
		t.Fatalf("rate: %v", err)
	}

	byRating := list(RecipeListFilters{Sort: SortRating})
	if byRating[0] != ids[3] || byRating[1] != ids[1] {
		t.Fatalf("rating order starts %v, want [%d %d ...]", byRating[:2], ids[3], ids[1])
	}
	for i, id := range byRating[2:] {
		if id == ids[1] || id == ids[3] {
			t.Fatalf("rated recipe %d appears after unrated ones at %d", id, i+2)
		}
	}

	// Stable pagination yields disjoint, order-preserving slices.
	var paged []int64
	for page := 1; page <= 3; page++ {
		slice := list(RecipeListFilters{Sort: SortOldest, Page: page, PageSize: 2})
		paged = append(paged, slice...)
	}
	if len(paged) != 5 {
		t.Fatalf("pagination returned %d ids, want 5", len(paged))
	}
	for i := range paged {
		if paged[i] != oldest[i] {
			t.Fatalf("paged order %v diverges from full order %v", paged, oldest)
		}
	}

	// Out-of-range pages are empty, never an error.
	if slice := list(RecipeListFilters{Page: 100, PageSize: 2}); len(slice) != 0 {
		t.Fatalf("out-of-range page returned %v", slice)
	}

	// Invalid paging inputs clamp.
	if slice := list(RecipeListFilters{Page: -5, PageSize: 2}); len(slice) != 2 {
		t.Fatalf("negative page did not clamp to 1: %v", slice)
	}
	if slice := list(RecipeListFilters{Page: 1, PageSize: -1}); len(slice) != 5 {
		t.Fatalf("non-positive page size did not clamp to default: %v", slice)
	}
}

func TestRecipeListFiltersPagination(t *testing.T) {
	tests := []struct {
		name       string
		page, size int
		offset     int
		limit      int
	}{
		{"defaults", 0, 0, 0, DefaultPageSize},
		{"first page", 1, 10, 0, 10},
		{"third page", 3, 10, 20, 10},
		{"negative page clamps", -2, 10, 0, 10},
		{"negative size clamps", 2, -1, DefaultPageSize, DefaultPageSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			offset, limit := RecipeListFilters{Page: tt.page, PageSize: tt.size}.Pagination()
			if offset != tt.offset || limit != tt.limit {
				t.Fatalf("Pagination() = (%d, %d), want (%d, %d)", offset, limit, tt.offset, tt.limit)
			}
		})
	}
}
