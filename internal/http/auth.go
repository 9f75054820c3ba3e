package httpserver

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/recipe-explorer/recipe-api/internal/auth"
	"github.com/recipe-explorer/recipe-api/internal/domain"
	"github.com/recipe-explorer/recipe-api/internal/repository"
)

type registerRequest struct {
	Email    string  `json:"email"`
	Username *string `json:"username"`
	Password string  `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"accessToken"`
	TokenType   string `json:"tokenType"`
}

type userResponse struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Username  *string   `json:"username,omitempty"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}

	email := strings.TrimSpace(req.Email)
	if email == "" || !strings.Contains(email, "@") {
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "a valid email is required")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error())
		return
	}

	user, err := s.repo.Users.Create(r.Context(), repository.UserCreateParams{
		Email:        email,
		Username:     normalizeStringPtr(req.Username),
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "email or username already registered")
			return
		}
		s.logger.Printf("register user error: %v", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to register user")
		return
	}

	s.respondJSON(w, http.StatusCreated, toUserResponse(user))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}

	user, err := s.repo.Users.GetByEmail(r.Context(), strings.TrimSpace(req.Email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Incorrect email or password")
			return
		}
		s.logger.Printf("login lookup error: %v", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to log in")
		return
	}
	if !auth.VerifyPassword(user.PasswordHash, req.Password) {
		s.respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Incorrect email or password")
		return
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		s.logger.Printf("issue token error: %v", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to log in")
		return
	}

	s.respondJSON(w, http.StatusOK, tokenResponse{AccessToken: token, TokenType: "bearer"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := s.currentUser(r)
	if err != nil {
		s.respondServiceError(w, err, "authenticate")
		return
	}
	s.respondJSON(w, http.StatusOK, toUserResponse(user))
}

func (s *Server) currentUser(r *http.Request) (domain.User, error) {
	return s.guard.Authenticate(r.Context(), r.Header.Get("Authorization"))
}

func toUserResponse(user domain.User) userResponse {
	return userResponse{
		ID:        user.ID,
		Email:     user.Email,
		Username:  user.Username,
		IsActive:  user.IsActive,
		CreatedAt: user.CreatedAt,
	}
}
