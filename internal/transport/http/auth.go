package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"exam-service/internal/app"
	"exam-service/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

const tokenTTL = 8 * time.Hour

// Claims identify the caller. Subject carries the admin or student id.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Authenticator issues and verifies HS256 bearer tokens.
type Authenticator struct {
	hmac []byte
	now  func() time.Time
}

func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{hmac: []byte(secret), now: time.Now}
}

func (a *Authenticator) IssueToken(subject string, role domain.Role) (string, error) {
	now := a.now()
	claims := &Claims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    "exam-service",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.hmac)
}

func (a *Authenticator) Parse(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return a.hmac, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	switch domain.Role(claims.Role) {
	case domain.RoleAdmin, domain.RoleStudent:
	default:
		return nil, fmt.Errorf("unknown role %q", claims.Role)
	}
	return claims, nil
}

type viewerKey struct{}

// Middleware resolves the caller from the Authorization header, or from the token
// query parameter for websocket upgrades where browsers cannot set headers.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.URL.Query().Get("token")
		if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
			raw = strings.TrimPrefix(h, "Bearer ")
		}
		if raw == "" {
			writeProblem(w, http.StatusUnauthorized, "unauthenticated", "missing bearer token")
			return
		}
		claims, err := a.Parse(raw)
		if err != nil {
			writeProblem(w, http.StatusUnauthorized, "unauthenticated", "bad token")
			return
		}
		viewer := app.Viewer{ID: claims.Subject, Role: domain.Role(claims.Role)}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), viewerKey{}, viewer)))
	})
}

// ViewerFrom returns the authenticated caller stored by Middleware.
func ViewerFrom(ctx context.Context) (app.Viewer, bool) {
	v, ok := ctx.Value(viewerKey{}).(app.Viewer)
	return v, ok
}

// requireRole rejects callers whose token carries another role.
func requireRole(role domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			viewer, ok := ViewerFrom(r.Context())
			if !ok || viewer.Role != role {
				writeProblem(w, http.StatusForbidden, "unauthorized", fmt.Sprintf("%s role required", role))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
