package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"petshop-backend/internal/domain"
	"petshop-backend/internal/server/authctx"
)

// accessClaims mirrors what AuthService signs into access tokens.
type accessClaims struct {
	Tenant    string `json:"tenant"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// AuthMiddleware accepts HS256 access tokens and puts the caller in the
// request context. Collaborators carry their admin's id as tenant.
func AuthMiddleware(secret string) func(http.Handler) http.Handler {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	keyFunc := func(*jwt.Token) (interface{}, error) { return []byte(secret), nil }

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				writeAuthError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}
			var claims accessClaims
			token, err := parser.ParseWithClaims(raw, &claims, keyFunc)
			if err != nil || !token.Valid || claims.TokenType != "access" {
				writeAuthError(w, http.StatusUnauthorized, "invalid token")
				return
			}
			id, err := strconv.ParseInt(claims.Subject, 10, 64)
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, "invalid subject")
				return
			}
			tenant := id
			if claims.Tenant != "" {
				if tenant, err = strconv.ParseInt(claims.Tenant, 10, 64); err != nil {
					writeAuthError(w, http.StatusUnauthorized, "invalid tenant")
					return
				}
			}

			trace.SpanFromContext(r.Context()).SetAttributes(
				attribute.Int64("petshop.user_id", id),
				attribute.Int64("petshop.tenant_id", tenant),
				attribute.String("petshop.role", claims.Role),
			)
			ctx := authctx.WithCurrentUser(r.Context(), authctx.CurrentUser{
				ID:       id,
				TenantID: tenant,
				Email:    claims.Email,
				Role:     domain.UserRole(claims.Role),
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(h, "Bearer ")
	token = strings.TrimSpace(token)
	return token, ok && token != ""
}

// RequireRole lets through callers holding one of roles.
func RequireRole(roles ...domain.UserRole) func(http.Handler) http.Handler {
	allowed := make(map[domain.UserRole]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u := authctx.FromContext(r.Context())
			if u == nil || !allowed[u.Role] {
				writeAuthError(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// writeAuthError uses the same envelope as the handler package.
func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":  "error",
		"message": message,
		"data":    nil,
		"error": map[string]any{
			"code":   status,
			"status": http.StatusText(status),
		},
	})
}
