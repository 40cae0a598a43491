// Package auth guards the collaborator-facing /internal endpoints with
// HS256 bearer tokens. When INTERNAL_AUTH_SECRET is unset the middleware is
// a pass-through, which is the expected local development mode.
package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/taskbridge/todoist-mcp/pkg/logging"
)

// JWTAuth verifies HS256-signed bearer tokens.
type JWTAuth struct {
	secret []byte
}

// NewJWTAuth returns nil when no secret is configured, mirroring how the
// caller distinguishes dev mode.
func NewJWTAuth(secret string) *JWTAuth {
	if secret == "" {
		return nil
	}
	return &JWTAuth{secret: []byte(secret)}
}

// VerifyToken parses and validates a token, returning its subject claim.
func (a *JWTAuth) VerifyToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("unexpected claims type")
	}
	subject, _ := claims.GetSubject()
	return subject, nil
}

// ExtractTokenFromHeader pulls the bearer token out of the Authorization
// header.
func ExtractTokenFromHeader(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

// Middleware wraps a handler with token verification. A nil JWTAuth skips
// verification entirely.
func Middleware(a *JWTAuth, next http.Handler) http.Handler {
	if a == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := ExtractTokenFromHeader(r)
		if token == "" {
			http.Error(w, "Unauthorized: missing authentication token", http.StatusUnauthorized)
			return
		}

		subject, err := a.VerifyToken(token)
		if err != nil {
			logging.Warn("Auth", "rejected internal call: %v", err)
			http.Error(w, fmt.Sprintf("Unauthorized: %v", err), http.StatusUnauthorized)
			return
		}

		logging.Debug("Auth", "internal call authorized for subject %s", subject)
		next.ServeHTTP(w, r)
	})
}
