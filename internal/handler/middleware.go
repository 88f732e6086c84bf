package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/tekinformatica/painel-go/internal/domain"
)

type contextKey string

const operatorIDKey contextKey = "operatorID"

// allowedRoles are the Supabase token roles that may use the panel. The
// public anon key carries role "anon" and is rejected.
var allowedRoles = map[string]bool{
	"authenticated": true,
	"service_role":  true,
}

// supabaseClaims are the claims of a Supabase-issued access token.
type supabaseClaims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// JWTAuthMiddleware validates HS256 Bearer tokens signed with the project
// JWT secret and injects the operator id into the context.
func JWTAuthMiddleware(secret []byte, logger *zap.Logger) func(http.Handler) http.Handler {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	keyFunc := func(*jwt.Token) (any, error) { return secret, nil }

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Warn("auth: missing token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				unauthorized(w, "Token de autenticação não fornecido")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				logger.Warn("auth: invalid token format",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				unauthorized(w, "Formato de token inválido")
				return
			}

			claims := &supabaseClaims{}
			if _, err := parser.ParseWithClaims(parts[1], claims, keyFunc); err != nil {
				msg := "Token inválido"
				if errors.Is(err, jwt.ErrTokenExpired) {
					msg = "Token expirado"
				}
				logger.Warn("auth: invalid or expired token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
					zap.Error(err),
				)
				unauthorized(w, msg)
				return
			}
			if !allowedRoles[claims.Role] {
				logger.Warn("auth: role not allowed", zap.String("role", claims.Role), zap.String("sub", claims.Subject))
				unauthorized(w, "Acesso não autorizado")
				return
			}

			ctx := context.WithValue(r.Context(), operatorIDKey, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OperatorIDFromContext returns the authenticated operator, or "" when
// authentication is disabled.
func OperatorIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(operatorIDKey).(string)
	return v
}

func unauthorized(w http.ResponseWriter, msg string) {
	notice := domain.FailureNotice("Não autorizado", &domain.ErrUnauthorized{Message: msg})
	writeJSON(w, http.StatusUnauthorized, errorResponse{Error: msg, Notice: &notice})
}
