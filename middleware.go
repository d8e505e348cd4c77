package secretskeeper

import (
	"context"
	"log/slog"
	"net/http"
)

type userParamNameKey string

// Middleware restores the authenticated principal on each request. The
// server-side session is checked first; the auth-token cookie or header is a
// fallback for clients that carry the JWT instead of a session.
type Middleware struct {
	AuthTokenHeaderName string
	AuthTokenCookieName string
	UserParamName       string
	SessionGetter       func(r *http.Request, param string) any
	LoginURL            string
	VerifyToken         func(tokenString string) (loggedInUserId string, token any, err error)
}

// EnsureReasonableDefaults ensures that config values have reasonable defaults.
func (a *Middleware) EnsureReasonableDefaults() {
	if a.UserParamName == "" {
		a.UserParamName = "loggedInUserId"
	}
	if a.AuthTokenHeaderName == "" {
		a.AuthTokenHeaderName = "Authorization"
	}
	if a.LoginURL == "" {
		a.LoginURL = "/login"
	}
}

// GetLoggedInUserId gets the ID of the logged in user from the current request
func (a *Middleware) GetLoggedInUserId(r *http.Request) string {
	v := r.Context().Value(userParamNameKey(a.UserParamName))
	if v != nil {
		if loggedInUserId := v.(string); loggedInUserId != "" {
			return loggedInUserId
		}
	}

	if userParam := a.sessionUserId(r); userParam != "" {
		return userParam
	}

	if a.VerifyToken == nil {
		return ""
	}

	// Otherwise check the auth header and cookie
	authTokens := r.Header.Values(a.AuthTokenHeaderName)
	for _, cookie := range r.CookiesNamed(a.AuthTokenCookieName) {
		if len(cookie.Value) > 0 {
			authTokens = append(authTokens, cookie.Value)
		}
	}

	for _, authToken := range authTokens {
		loggedInUserId, _, err := a.VerifyToken(authToken)
		if err == nil && loggedInUserId != "" {
			return loggedInUserId
		} else if err != nil {
			slog.Warn("error verifying token", "error", err)
		}
	}

	return ""
}

// ExtractUser fetches the user id from the request and makes it available to
// downstream handlers. It does not perform any redirects if a valid user
// does not exist; use EnsureUser for that.
func (a *Middleware) ExtractUser(next http.Handler) http.Handler {
	a.EnsureReasonableDefaults()
	return http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			userParam := a.GetLoggedInUserId(r)
			next.ServeHTTP(w, a.setLoggedInUserId(userParam, r))
		},
	)
}

// EnsureUser is the authorization gate for secret-bearing pages: requests
// without an authenticated principal are redirected to the login page.
func (a *Middleware) EnsureUser(next http.Handler) http.Handler {
	a.EnsureReasonableDefaults()
	return http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			userParam := a.GetLoggedInUserId(r)
			if userParam == "" {
				http.Redirect(w, r, a.LoginURL, http.StatusFound)
				return
			}
			next.ServeHTTP(w, a.setLoggedInUserId(userParam, r))
		},
	)
}

// Gets the logged in user id from the session
func (a *Middleware) sessionUserId(r *http.Request) string {
	if a.SessionGetter == nil {
		return ""
	}
	out := a.SessionGetter(r, a.UserParamName)
	if out == nil {
		return ""
	}
	s, _ := out.(string)
	return s
}

// Set the logged in user id as a request scoped variable so it is available
// to all other handlers downstream.
func (a *Middleware) setLoggedInUserId(userId string, r *http.Request) *http.Request {
	contextWithUser := context.WithValue(r.Context(), userParamNameKey(a.UserParamName), userId)
	return r.WithContext(contextWithUser)
}
