package authz

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func identityEcho(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, ok := UserIDFromRequest(r)
		require.True(t, ok)
		roles, _ := RolesFromRequest(r)
		w.Header().Set("X-User", uid)
		if HasRole(roles, RoleInternal) {
			w.Header().Set("X-Internal", "true")
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestAuthenticator_Middleware(t *testing.T) {
	auth := NewAuthenticator(testSecret)
	userToken, err := IssueToken(testSecret, "user-1", nil, time.Hour)
	require.NoError(t, err)
	internalToken, err := IssueToken(testSecret, "svc-1", []Role{RoleInternal}, time.Hour)
	require.NoError(t, err)
	expired, err := IssueToken(testSecret, "user-1", nil, -time.Minute)
	require.NoError(t, err)
	foreign, err := IssueToken("other-secret", "user-1", nil, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name         string
		header       string
		query        string
		upgrade      bool
		wantStatus   int
		wantUser     string
		wantInternal bool
	}{
		{name: "missing", wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Token " + userToken, wantStatus: http.StatusUnauthorized},
		{name: "expired", header: "Bearer " + expired, wantStatus: http.StatusUnauthorized},
		{name: "wrong secret", header: "Bearer " + foreign, wantStatus: http.StatusUnauthorized},
		{name: "user", header: "Bearer " + userToken, wantStatus: http.StatusNoContent, wantUser: "user-1"},
		{name: "internal", header: "Bearer " + internalToken, wantStatus: http.StatusNoContent, wantUser: "svc-1", wantInternal: true},
		{name: "query token on upgrade", query: userToken, upgrade: true, wantStatus: http.StatusNoContent, wantUser: "user-1"},
		{name: "query token without upgrade", query: userToken, wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := "/api/v1/notifications"
			if tt.query != "" {
				target += "?token=" + tt.query
			}
			req := httptest.NewRequest(http.MethodGet, target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.upgrade {
				req.Header.Set("Upgrade", "websocket")
			}
			rec := httptest.NewRecorder()

			auth.Middleware(identityEcho(t)).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantUser, rec.Header().Get("X-User"))
			assert.Equal(t, tt.wantInternal, rec.Header().Get("X-Internal") == "true")
		})
	}
}

func TestAuthenticate_RejectsUnknownRoleAndMissingSubject(t *testing.T) {
	auth := NewAuthenticator(testSecret)

	sign := func(claims jwt.MapClaims) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)
		return s
	}
	exp := time.Now().Add(time.Hour).Unix()

	_, _, err := auth.Authenticate(sign(jwt.MapClaims{"sub": "u", "roles": []string{"admin"}, "exp": exp}))
	assert.Error(t, err)

	_, _, err = auth.Authenticate(sign(jwt.MapClaims{"roles": []string{"user"}, "exp": exp}))
	assert.Error(t, err)

	uid, roles, err := auth.Authenticate(sign(jwt.MapClaims{"sub": "u", "role": "internal", "exp": exp}))
	require.NoError(t, err)
	assert.Equal(t, "u", uid)
	assert.ElementsMatch(t, []Role{RoleInternal, RoleUser}, roles)
}

func TestRequireRole(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	handler := RequireRole(RoleInternal)(ok)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/internal/sweep", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req.WithContext(WithIdentity(req.Context(), "user-1", nil)))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req.WithContext(WithIdentity(req.Context(), "svc", []Role{RoleInternal})))
	assert.Equal(t, http.StatusOK, rec.Code)
}
