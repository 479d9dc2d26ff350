package mockapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const varsityIDKey contextKey = "varsity_id"

const jwtExpDays = 7

// GenerateJWT signs a token for the account with varsityID
func (s *Server) GenerateJWT(varsityID string) (string, error) {
	claims := jwt.MapClaims{
		"varsity_id": varsityID,
		"exp":        s.now().AddDate(0, 0, jwtExpDays).Unix(),
		"iat":        s.now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// ValidateJWT validates a token and returns the varsity ID it was issued to
func (s *Server) ValidateJWT(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	}, jwt.WithTimeFunc(s.now), jwt.WithLeeway(time.Minute))
	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid token claims")
	}
	varsityID, ok := claims["varsity_id"].(string)
	if !ok || varsityID == "" {
		return "", fmt.Errorf("varsity_id not found in token")
	}
	return varsityID, nil
}

// requireAuth rejects requests without a valid bearer token
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			respondError(w, "Authorization header required", http.StatusUnauthorized)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			respondError(w, "Invalid authorization header format", http.StatusUnauthorized)
			return
		}

		varsityID, err := s.ValidateJWT(parts[1])
		if err != nil {
			respondError(w, "Invalid token", http.StatusUnauthorized)
			return
		}
		if _, ok := s.accountByVarsity(varsityID); !ok {
			respondError(w, "Account no longer exists", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), varsityIDKey, varsityID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAdmin must be mounted after requireAuth
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		acc, ok := s.accountByVarsity(varsityID(r.Context()))
		if !ok || !acc.isAdmin() {
			respondError(w, "Admin access required", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// varsityID extracts the authenticated varsity ID from context
func varsityID(ctx context.Context) string {
	id, ok := ctx.Value(varsityIDKey).(string)
	if !ok {
		return ""
	}
	return id
}

// corsMiddleware handles CORS
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
