package auth

import (
	"context"
	"errors"
)

type ctxKey int

const (
	ctxUserID ctxKey = iota
	ctxOrganisationID
	ctxRole
)

// Identity is the authenticated caller.
type Identity struct {
	UserID         string
	OrganisationID string
	Role           string
}

func WithIdentity(ctx context.Context, userID, organisationID, role string) context.Context {
	ctx = context.WithValue(ctx, ctxUserID, userID)
	ctx = context.WithValue(ctx, ctxOrganisationID, organisationID)
	ctx = context.WithValue(ctx, ctxRole, role)
	return ctx
}

func UserID(ctx context.Context) (string, error) {
	if s, ok := ctx.Value(ctxUserID).(string); ok && s != "" {
		return s, nil
	}
	return "", errors.New("user_id not in context")
}

func OrganisationID(ctx context.Context) (string, error) {
	if s, ok := ctx.Value(ctxOrganisationID).(string); ok && s != "" {
		return s, nil
	}
	return "", errors.New("organisation_id not in context")
}

func Role(ctx context.Context) (string, error) {
	if s, ok := ctx.Value(ctxRole).(string); ok && s != "" {
		return s, nil
	}
	return "", errors.New("role not in context")
}

// FromContext returns the full identity, failing if user or organisation is missing.
func FromContext(ctx context.Context) (Identity, error) {
	uid, err := UserID(ctx)
	if err != nil {
		return Identity{}, err
	}
	oid, err := OrganisationID(ctx)
	if err != nil {
		return Identity{}, err
	}
	role, _ := Role(ctx)
	return Identity{UserID: uid, OrganisationID: oid, Role: role}, nil
}
