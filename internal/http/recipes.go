package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/recipe-explorer/recipe-api/internal/auth"
	"github.com/recipe-explorer/recipe-api/internal/catalog"
	"github.com/recipe-explorer/recipe-api/internal/domain"
	"github.com/recipe-explorer/recipe-api/internal/repository"
)

const maxRequestBody = 1 << 20 // 1 MiB

type errorResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

type recipeCreateRequest struct {
	Title       string         `json:"title"`
	Description *string        `json:"description"`
	Ingredients []string       `json:"ingredients"`
	Steps       []string       `json:"steps"`
	Tags        []string       `json:"tags"`
	Metadata    map[string]any `json:"metadata"`
}

type recipeUpdateRequest struct {
	Title       *string         `json:"title"`
	Description *string         `json:"description"`
	Ingredients *[]string       `json:"ingredients"`
	Steps       *[]string       `json:"steps"`
	Tags        *[]string       `json:"tags"`
	Metadata    *map[string]any `json:"metadata"`
}

type rateRequest struct {
	Rating  int     `json:"rating"`
	Comment *string `json:"comment"`
}

type recipeResponse struct {
	ID          int64          `json:"id"`
	OwnerID     int64          `json:"ownerId"`
	Title       string         `json:"title"`
	Description *string        `json:"description,omitempty"`
	Ingredients []string       `json:"ingredients,omitempty"`
	Steps       []string       `json:"steps,omitempty"`
	Tags        []string       `json:"tags,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	AvgRating   *float64       `json:"avgRating"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

func (s *Server) handleListRecipes(w http.ResponseWriter, r *http.Request) {
	params, err := buildListParams(r.URL.Query())
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	recipes, err := s.catalog.ListRecipes(r.Context(), params)
	if err != nil {
		s.respondServiceError(w, err, "list recipes")
		return
	}

	items := make([]recipeResponse, 0, len(recipes))
	for _, recipe := range recipes {
		items = append(items, toRecipeResponse(recipe))
	}
	s.respondJSON(w, http.StatusOK, items)
}

func buildListParams(query url.Values) (catalog.ListParams, error) {
	params := catalog.ListParams{
		Search:     strings.TrimSpace(query.Get("search")),
		Cuisine:    strings.TrimSpace(query.Get("cuisine")),
		Difficulty: strings.TrimSpace(query.Get("difficulty")),
		Sort:       strings.TrimSpace(query.Get("sort")),
		Page:       1,
		PageSize:   repository.DefaultPageSize,
	}

	for _, raw := range query["tags"] {
		for _, tag := range strings.Split(raw, ",") {
			if trimmed := strings.TrimSpace(tag); trimmed != "" {
				params.Tags = append(params.Tags, trimmed)
			}
		}
	}

	if val := strings.TrimSpace(query.Get("min_time")); val != "" {
		minTime, err := strconv.Atoi(val)
		if err != nil {
			return params, fmt.Errorf("invalid min_time value")
		}
		params.MinTime = &minTime
	}
	if val := strings.TrimSpace(query.Get("max_time")); val != "" {
		maxTime, err := strconv.Atoi(val)
		if err != nil {
			return params, fmt.Errorf("invalid max_time value")
		}
		params.MaxTime = &maxTime
	}
	if val := strings.TrimSpace(query.Get("page")); val != "" {
		page, err := strconv.Atoi(val)
		if err != nil {
			return params, fmt.Errorf("invalid page value")
		}
		params.Page = page
	}
	if val := strings.TrimSpace(query.Get("page_size")); val != "" {
		size, err := strconv.Atoi(val)
		if err != nil {
			return params, fmt.Errorf("invalid page_size value")
		}
		params.PageSize = size
	}
	return params, nil
}

func (s *Server) handleCreateRecipe(w http.ResponseWriter, r *http.Request) {
	user, err := s.currentUser(r)
	if err != nil {
		s.respondServiceError(w, err, "authenticate")
		return
	}

	var req recipeCreateRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}

	recipe, err := s.catalog.CreateRecipe(r.Context(), user.ID, catalog.RecipeInput{
		Title:       req.Title,
		Description: normalizeStringPtr(req.Description),
		Ingredients: req.Ingredients,
		Steps:       req.Steps,
		Tags:        req.Tags,
		Metadata:    req.Metadata,
	})
	if err != nil {
		s.respondServiceError(w, err, "create recipe")
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/recipes/%d", recipe.ID))
	s.respondJSON(w, http.StatusCreated, toRecipeResponse(recipe))
}

func (s *Server) handleGetRecipe(w http.ResponseWriter, r *http.Request) {
	id, err := recipeIDParam(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	recipe, err := s.catalog.GetRecipe(r.Context(), id)
	if err != nil {
		s.respondServiceError(w, err, "get recipe")
		return
	}
	s.respondJSON(w, http.StatusOK, toRecipeResponse(recipe))
}

func (s *Server) handleUpdateRecipe(w http.ResponseWriter, r *http.Request) {
	user, err := s.currentUser(r)
	if err != nil {
		s.respondServiceError(w, err, "authenticate")
		return
	}

	id, err := recipeIDParam(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	var req recipeUpdateRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}

	recipe, err := s.catalog.UpdateRecipe(r.Context(), id, user, catalog.RecipeUpdate{
		Title:       req.Title,
		Description: req.Description,
		Ingredients: req.Ingredients,
		Steps:       req.Steps,
		Tags:        req.Tags,
		Metadata:    req.Metadata,
	})
	if err != nil {
		s.respondServiceError(w, err, "update recipe")
		return
	}
	s.respondJSON(w, http.StatusOK, toRecipeResponse(recipe))
}

func (s *Server) handleDeleteRecipe(w http.ResponseWriter, r *http.Request) {
	user, err := s.currentUser(r)
	if err != nil {
		s.respondServiceError(w, err, "authenticate")
		return
	}

	id, err := recipeIDParam(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	if err := s.catalog.DeleteRecipe(r.Context(), id, user); err != nil {
		s.respondServiceError(w, err, "delete recipe")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRateRecipe(w http.ResponseWriter, r *http.Request) {
	user, err := s.currentUser(r)
	if err != nil {
		s.respondServiceError(w, err, "authenticate")
		return
	}

	id, err := recipeIDParam(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	var req rateRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}

	recipe, err := s.catalog.RateRecipe(r.Context(), id, user, req.Rating, normalizeStringPtr(req.Comment))
	if err != nil {
		s.respondServiceError(w, err, "rate recipe")
		return
	}
	s.respondJSON(w, http.StatusOK, toRecipeResponse(recipe))
}

func (s *Server) respondServiceError(w http.ResponseWriter, err error, logContext string) {
	var ve *catalog.ValidationError
	switch {
	case errors.As(err, &ve):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", ve.Error())
	case errors.Is(err, repository.ErrNotFound):
		s.respondError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
	case errors.Is(err, catalog.ErrForbidden):
		s.respondError(w, http.StatusForbidden, "FORBIDDEN", "Only the owner may modify this recipe")
	case errors.Is(err, auth.ErrUnauthenticated):
		s.respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing or invalid authentication information")
	case errors.Is(err, repository.ErrConflict):
		s.respondError(w, http.StatusConflict, "CONFLICT", "Concurrent update conflict, retry the request")
	default:
		s.logger.Printf("%s error: %v", logContext, err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			s.logger.Printf("failed to encode response: %v", err)
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, code, message string) {
	s.respondJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

func (s *Server) respondDecodeError(w http.ResponseWriter, err error) {
	var syntaxError *json.SyntaxError
	var typeError *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxError):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Malformed JSON payload")
	case errors.As(err, &typeError):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", fmt.Sprintf("Invalid value for field %s", typeError.Field))
	case errors.Is(err, io.EOF):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Request body cannot be empty")
	default:
		s.respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Unable to parse request body")
	}
}

func toRecipeResponse(recipe domain.Recipe) recipeResponse {
	return recipeResponse{
		ID:          recipe.ID,
		OwnerID:     recipe.OwnerID,
		Title:       recipe.Title,
		Description: recipe.Description,
		Ingredients: recipe.Ingredients,
		Steps:       recipe.Steps,
		Tags:        recipe.Tags,
		Metadata:    recipe.Metadata,
		AvgRating:   roundAvg(recipe.AvgRating),
		CreatedAt:   recipe.CreatedAt,
		UpdatedAt:   recipe.UpdatedAt,
	}
}

func recipeIDParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid recipe id")
	}
	return id, nil
}

func normalizeStringPtr(ptr *string) *string {
	if ptr == nil {
		return nil
	}
	val := strings.TrimSpace(*ptr)
	if val == "" {
		return nil
	}
	return &val
}

// roundAvg rounds the stored average to one decimal for presentation only.
func roundAvg(avg *float64) *float64 {
	if avg == nil {
		return nil
	}
	rounded := math.Round(*avg*10) / 10
	return &rounded
}
