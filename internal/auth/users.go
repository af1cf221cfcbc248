package auth

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
)

// User is a login principal. PasswordHash is a bcrypt hash.
type User struct {
	ID             string
	OrganisationID string
	Email          string
	PasswordHash   string
	Role           string
	CreatedAt      time.Time
}

type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (User, error)
	FindByID(ctx context.Context, id string) (User, error)
}

// PostgresUsers reads the users table:
// users(id, organisation_id, email UNIQUE, password_hash, role, created_at).
type PostgresUsers struct {
	db *sql.DB
}

func NewPostgresUsers(db *sql.DB) *PostgresUsers { return &PostgresUsers{db: db} }

const selectUser = `
SELECT id, organisation_id, email, password_hash, role, created_at
FROM users
`

func (r *PostgresUsers) FindByEmail(ctx context.Context, email string) (User, error) {
	return r.scanOne(r.db.QueryRowContext(ctx, selectUser+`WHERE lower(email) = lower($1)`, email))
}

func (r *PostgresUsers) FindByID(ctx context.Context, id string) (User, error) {
	return r.scanOne(r.db.QueryRowContext(ctx, selectUser+`WHERE id = $1`, id))
}

func (r *PostgresUsers) scanOne(row *sql.Row) (User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.OrganisationID, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, err
	}
	return u, nil
}

// MemoryUsers is an in-memory user store for tests and local runs.
type MemoryUsers struct {
	mu    sync.Mutex
	users []User
}

func NewMemoryUsers(users ...User) *MemoryUsers { return &MemoryUsers{users: users} }

func (r *MemoryUsers) FindByEmail(ctx context.Context, email string) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return User{}, ErrUserNotFound
}

func (r *MemoryUsers) FindByID(ctx context.Context, id string) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ID == id {
			return u, nil
		}
	}
	return User{}, ErrUserNotFound
}

// HashPassword returns a bcrypt hash suitable for User.PasswordHash.
func HashPassword(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Authenticator exchanges credentials for token pairs.
type Authenticator struct {
	users   UserRepository
	manager *Manager
	clock   func() time.Time
}

func NewAuthenticator(users UserRepository, m *Manager) *Authenticator {
	return &Authenticator{users: users, manager: m, clock: time.Now}
}

// Login verifies email/password. Unknown email and wrong password are indistinguishable.
func (a *Authenticator) Login(ctx context.Context, email, password string) (TokenPair, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return TokenPair{}, ErrInvalidCredentials
	}
	u, err := a.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return TokenPair{}, ErrInvalidCredentials
		}
		return TokenPair{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return TokenPair{}, ErrInvalidCredentials
	}
	return a.manager.IssuePair(a.clock(), Identity{UserID: u.ID, OrganisationID: u.OrganisationID, Role: u.Role})
}

// Refresh issues a new pair from a refresh token, re-reading the role.
func (a *Authenticator) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	now := a.clock()
	claims, err := a.manager.Verify(refreshToken, TokenTypeRefresh, now)
	if err != nil {
		return TokenPair{}, ErrInvalidCredentials
	}
	id := claims.Identity()
	u, err := a.users.FindByID(ctx, id.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return TokenPair{}, ErrInvalidCredentials
		}
		return TokenPair{}, err
	}
	if u.OrganisationID != id.OrganisationID {
		return TokenPair{}, ErrInvalidCredentials
	}
	return a.manager.IssuePair(now, Identity{UserID: u.ID, OrganisationID: u.OrganisationID, Role: u.Role})
}
