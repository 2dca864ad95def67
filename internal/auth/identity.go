package auth

import (
	"context"

	"oncology-assist-backend/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

var ErrUnauthorized = errors.New("unauthorized")

// Identity is the caller as described by a verified access token.
type Identity struct {
	ID    string          `json:"id"`
	Email string          `json:"email"`
	Role  models.UserRole `json:"role"`
}

// Verifier checks a bearer token. Every error it returns wraps ErrUnauthorized.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// Claims is the subset of a Supabase access token the service reads.
type Claims struct {
	jwt.RegisteredClaims
	Email        string                 `json:"email,omitempty"`
	Role         string                 `json:"role,omitempty"`
	UserMetadata map[string]interface{} `json:"user_metadata,omitempty"`
	AppMetadata  map[string]interface{} `json:"app_metadata,omitempty"`
}

func (c *Claims) identity() (*Identity, error) {
	if c.Subject == "" {
		return nil, errors.Wrap(ErrUnauthorized, "token has no subject")
	}
	return &Identity{
		ID:    c.Subject,
		Email: c.Email,
		Role:  models.ParseUserRole(c.roleClaim()),
	}, nil
}

// roleClaim reads app_metadata before user_metadata, which users can edit
// themselves. The role selects prompt phrasing only, never access.
func (c *Claims) roleClaim() string {
	for _, meta := range []map[string]interface{}{c.AppMetadata, c.UserMetadata} {
		if role, ok := meta["role"].(string); ok && role != "" {
			return role
		}
	}
	return c.Role
}

func parserOptions(methods []string, audience string) []jwt.ParserOption {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods(methods),
		jwt.WithExpirationRequired(),
	}
	if audience != "" {
		opts = append(opts, jwt.WithAudience(audience))
	}
	return opts
}
