// Package auth verifies admin session tokens. Token issuance lives in the
// external auth service; this middleware only checks the Bearer JWT on
// /api/admin routes and exposes the admin's email to handlers.
package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"eventsignup/internal/model"
)

type contextKey string

const adminKey contextKey = "auth.admin"

// AdminEmail returns the authenticated admin's email, if any.
func AdminEmail(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(adminKey).(string)
	return email, ok
}

// RequireAdmin is chi middleware that rejects requests without a valid
// HS256 admin token.
func RequireAdmin(secret string, writeError func(http.ResponseWriter, int, model.ErrorResponse)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				writeError(w, http.StatusUnauthorized, model.ErrorResponse{Error: "authorization required", Code: "NO_AUTH_HEADER"})
				return
			}
			tokenString := strings.TrimPrefix(header, "Bearer ")

			token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				writeError(w, http.StatusUnauthorized, model.ErrorResponse{Error: "invalid or expired token", Code: "INVALID_TOKEN"})
				return
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				writeError(w, http.StatusUnauthorized, model.ErrorResponse{Error: "unreadable token claims", Code: "INVALID_TOKEN_CLAIMS"})
				return
			}
			email, _ := claims["email"].(string)

			ctx := context.WithValue(r.Context(), adminKey, email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
