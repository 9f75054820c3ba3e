package auth

import (
	"context"
	"fmt"

	"github.com/recipe-explorer/recipe-api/internal/domain"
)

// UserSource resolves user ids to accounts. Satisfied by the users repository.
type UserSource interface {
	GetByID(ctx context.Context, id int64) (domain.User, error)
}

// Guard validates bearer credentials and resolves them to active accounts.
type Guard struct {
	tokens *TokenManager
	users  UserSource
}

// NewGuard wires a Guard from a token manager and a user source.
func NewGuard(tokens *TokenManager, users UserSource) *Guard {
	return &Guard{tokens: tokens, users: users}
}

// Authenticate resolves an Authorization header value to an active user.
// Every failure path returns ErrUnauthenticated; callers never learn whether
// the token, the account, or the activation flag was at fault.
func (g *Guard) Authenticate(ctx context.Context, authorizationHeader string) (domain.User, error) {
	token, ok := BearerToken(authorizationHeader)
	if !ok {
		return domain.User{}, fmt.Errorf("%w: missing bearer token", ErrUnauthenticated)
	}
	userID, err := g.tokens.Subject(token)
	if err != nil {
		return domain.User{}, err
	}
	user, err := g.users.GetByID(ctx, userID)
	if err != nil {
		return domain.User{}, fmt.Errorf("%w: unknown subject", ErrUnauthenticated)
	}
	if !user.IsActive {
		return domain.User{}, fmt.Errorf("%w: inactive account", ErrUnauthenticated)
	}
	return user, nil
}
