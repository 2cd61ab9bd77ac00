package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/logiflow/logiflow/internal/web/webcontext"
)

// AuthConfig holds configuration for the role-extraction middleware.
type AuthConfig struct {
	// Secret verifies HS256 token signatures.
	Secret []byte
	// DefaultRole is assigned when no valid token is presented. Token
	// issuance belongs to the authentication service, not this process;
	// anonymous requests are still served with the default role and the
	// capability resolver decides what that role may do.
	DefaultRole string
}

// Auth reads the Bearer token, verifies it, and stores the role claim
// in the request context. Absent or invalid tokens downgrade to the
// default role rather than failing the request.
func Auth(config AuthConfig) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := config.DefaultRole

			if token := bearerToken(r); token != "" {
				if claimed := roleFromToken(token, config.Secret); claimed != "" {
					role = claimed
				}
			}

			ctx := webcontext.SetRole(r.Context(), role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken extracts the token from the Authorization header.
func bearerToken(r *http.Request) string {
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

// roleFromToken verifies the signature and returns the role claim, or
// "" when the token is invalid.
func roleFromToken(tokenString string, secret []byte) string {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return ""
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return ""
	}
	role, _ := claims["role"].(string)
	return role
}
