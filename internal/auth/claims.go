package auth

import "github.com/golang-jwt/jwt/v5"

// TokenType separates short-lived access tokens from refresh tokens.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims carry the caller's identity. Every token names an organisation.
type Claims struct {
	jwt.RegisteredClaims

	UserID         string    `json:"user_id"`
	OrganisationID string    `json:"organisation_id"`
	Role           string    `json:"role"`
	TokenType      TokenType `json:"token_type"`
}

// Identity returns the identity encoded in c.
func (c Claims) Identity() Identity {
	return Identity{UserID: c.UserID, OrganisationID: c.OrganisationID, Role: c.Role}
}
