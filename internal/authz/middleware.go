package authz

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

var ErrMissingToken = errors.New("authorization token required")

// RequireRole rejects requests whose identity lacks the required role.
func RequireRole(required Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			roles, ok := RolesFromRequest(r)
			if !ok || !HasRole(roles, required) {
				http.Error(w, "insufficient permissions", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Authenticator validates HS256 bearer tokens issued by the identity
// exchange. The subject claim is the user id.
type Authenticator struct {
	secret []byte
}

func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, err := tokenFromRequest(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
		userID, roles, err := a.Authenticate(tokenString)
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), userID, roles)))
	})
}

// tokenFromRequest reads the bearer token. Browsers cannot set headers on a
// WebSocket handshake, so upgrade requests may pass it as ?token=.
func tokenFromRequest(r *http.Request) (string, error) {
	if auth := r.Header.Get("Authorization"); auth != "" {
		parts := strings.SplitN(auth, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			return "", errors.New("invalid authorization format")
		}
		return parts[1], nil
	}
	if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		if token := r.URL.Query().Get("token"); token != "" {
			return token, nil
		}
	}
	return "", ErrMissingToken
}

func (a *Authenticator) Authenticate(tokenString string) (string, []Role, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return a.secret, nil
	})
	if err != nil {
		return "", nil, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid || !claims.VerifyExpiresAt(time.Now().Unix(), true) {
		return "", nil, errors.New("token expired or invalid")
	}
	userID, _ := claims["sub"].(string)
	if strings.TrimSpace(userID) == "" {
		return "", nil, errors.New("missing subject claim")
	}
	roles, err := rolesFromClaims(claims)
	if err != nil {
		return "", nil, err
	}
	return userID, roles, nil
}

func rolesFromClaims(claims jwt.MapClaims) ([]Role, error) {
	var raw []string
	switch v := claims["roles"].(type) {
	case nil:
		if single, ok := claims["role"].(string); ok && single != "" {
			raw = []string{single}
		}
	case []interface{}:
		for _, val := range v {
			str, ok := val.(string)
			if !ok {
				return nil, fmt.Errorf("invalid role claim %v", val)
			}
			raw = append(raw, str)
		}
	case []string:
		raw = v
	default:
		return nil, fmt.Errorf("invalid roles claim")
	}

	roles := make([]Role, 0, len(raw)+1)
	for _, str := range raw {
		role := Role(str)
		if !role.Valid() {
			return nil, fmt.Errorf("unknown role %q", str)
		}
		roles = append(roles, role)
	}
	if !HasRole(roles, RoleUser) {
		roles = append(roles, RoleUser)
	}
	return roles, nil
}

// IssueToken signs a token for userID. Used by internal tooling and tests.
func IssueToken(secret, userID string, roles []Role, ttl time.Duration) (string, error) {
	names := make([]string, len(roles))
	for i, role := range roles {
		names[i] = string(role)
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   userID,
		"roles": names,
		"iat":   now.Unix(),
		"exp":   now.Add(ttl).Unix(),
	})
	return token.SignedString([]byte(secret))
}
