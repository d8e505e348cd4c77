package secretskeeper

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type apiContextKey string

const contextKeyUserID apiContextKey = "api_user_id"

// GetUserIDFromAPIContext retrieves the user id from the API middleware context
func GetUserIDFromAPIContext(ctx context.Context) string {
	if v := ctx.Value(contextKeyUserID); v != nil {
		if userID, ok := v.(string); ok {
			return userID
		}
	}
	return ""
}

// APIMiddleware validates Bearer tokens for the JSON API. The token is the
// same HS256 JWT issued as the auth-token cookie at login.
type APIMiddleware struct {
	JWTSecretKey string
	JWTIssuer    string

	// Token header configuration. Defaults to "Authorization".
	AuthHeader string

	// Error handling
	OnAuthError func(w http.ResponseWriter, r *http.Request, err error)
}

// APIMiddleware builds the middleware for this app's signing key.
func (a *App) APIMiddleware() *APIMiddleware {
	a.EnsureDefaults()
	return &APIMiddleware{
		JWTSecretKey: a.JWTSecretKey,
		JWTIssuer:    a.JwtIssuer,
	}
}

// ValidateToken middleware validates Bearer tokens and sets the user id in context
func (m *APIMiddleware) ValidateToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := m.validateRequest(r)
		if err != nil {
			m.handleAuthError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), contextKeyUserID, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// validateRequest extracts and validates the token from the request
func (m *APIMiddleware) validateRequest(r *http.Request) (userID string, err error) {
	header := m.AuthHeader
	if header == "" {
		header = "Authorization"
	}

	authHeader := r.Header.Get(header)
	if authHeader == "" {
		return "", fmt.Errorf("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", fmt.Errorf("invalid authorization header format")
	}

	tokenString := strings.TrimSpace(parts[1])
	if tokenString == "" {
		return "", fmt.Errorf("empty token")
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(m.JWTSecretKey), nil
	})
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid token claims")
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", fmt.Errorf("token missing subject")
	}
	if m.JWTIssuer != "" {
		if iss, _ := claims.GetIssuer(); iss != m.JWTIssuer {
			return "", fmt.Errorf("unexpected token issuer")
		}
	}
	return sub, nil
}

// handleAuthError handles authentication errors
func (m *APIMiddleware) handleAuthError(w http.ResponseWriter, r *http.Request, err error) {
	if m.OnAuthError != nil {
		m.OnAuthError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]any{"error": err.Error()})
}

// handleAPIListSecrets returns the current principal's own secrets. Unlike
// the HTML listing this is owner scoped.
func (a *App) handleAPIListSecrets(w http.ResponseWriter, r *http.Request) {
	userID := GetUserIDFromAPIContext(r.Context())
	user, err := a.Store.GetUserById(r.Context(), userID)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]any{"error": "user not found"})
		return
	}

	secrets := user.Secrets
	if secrets == nil {
		secrets = []string{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"secrets": secrets})
}

// handleAPIAddSecret appends one secret to the current principal's record
func (a *App) handleAPIAddSecret(w http.ResponseWriter, r *http.Request) {
	userID := GetUserIDFromAPIContext(r.Context())

	var body struct {
		Secret string `json:"secret"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Secret == "" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{"error": "secret required"})
		return
	}

	if err := a.Store.AppendSecret(r.Context(), userID, body.Secret); err != nil {
		log.Println("error saving secret: ", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]any{"error": "failed to save secret"})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{"success": true})
}
