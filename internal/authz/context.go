package authz

import (
	"context"
	"net/http"
)

type Role string

const (
	// RoleUser is held by every authenticated app user.
	RoleUser Role = "user"
	// RoleInternal is held by back-office services allowed to notify any
	// user and to trigger jobs.
	RoleInternal Role = "internal"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleInternal
}

type contextKey string

const (
	userIDKey    contextKey = "user_id"
	userRolesKey contextKey = "user_roles"
)

// WithIdentity stores the caller's user id and roles on the context.
func WithIdentity(ctx context.Context, userID string, roles []Role) context.Context {
	if userID != "" {
		ctx = context.WithValue(ctx, userIDKey, userID)
	}
	if len(roles) == 0 {
		roles = []Role{RoleUser}
	}
	return context.WithValue(ctx, userRolesKey, roles)
}

func UserIDFromRequest(r *http.Request) (string, bool) {
	uid, ok := r.Context().Value(userIDKey).(string)
	if !ok || uid == "" {
		return "", false
	}
	return uid, true
}

func RolesFromRequest(r *http.Request) ([]Role, bool) {
	roles, ok := r.Context().Value(userRolesKey).([]Role)
	if !ok || len(roles) == 0 {
		return nil, false
	}
	return roles, true
}

func HasRole(roles []Role, required Role) bool {
	for _, role := range roles {
		if role == required {
			return true
		}
	}
	return false
}
