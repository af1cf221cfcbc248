package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"call-insights/internal/config"
)

func newTestAuthenticator(t *testing.T) (*Authenticator, *Manager) {
	t.Helper()
	hash, err := HashPassword("hunter2")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	users := NewMemoryUsers(User{ID: "u1", OrganisationID: "o1", Email: "ops@example.com", PasswordHash: hash, Role: "admin"})
	m, err := NewManager(config.AuthConfig{JWTSecret: "secret", AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Hour})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	return NewAuthenticator(users, m), m
}

func TestLogin_IssuesTokensForValidCredentials(t *testing.T) {
	a, m := newTestAuthenticator(t)

	pair, err := a.Login(context.Background(), "OPS@example.com", "hunter2")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	claims, err := m.Verify(pair.AccessToken, TokenTypeAccess, time.Now())
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.OrganisationID != "o1" || claims.Role != "admin" {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestLogin_RejectsBadPasswordAndUnknownUser(t *testing.T) {
	a, _ := newTestAuthenticator(t)

	if _, err := a.Login(context.Background(), "ops@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := a.Login(context.Background(), "nobody@example.com", "hunter2"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestRefresh_ReissuesPair(t *testing.T) {
	a, _ := newTestAuthenticator(t)
	pair, err := a.Login(context.Background(), "ops@example.com", "hunter2")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := a.Refresh(context.Background(), pair.RefreshToken); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if _, err := a.Refresh(context.Background(), pair.AccessToken); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("access token must not refresh, got %v", err)
	}
}
