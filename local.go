package secretskeeper

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
)

// HandleUserFunc is called after any strategy authenticates a user. The
// token is nil for local auth (no OAuth tokens).
type HandleUserFunc func(authtype string, provider string, token *oauth2.Token, user *User, w http.ResponseWriter, r *http.Request)

// LocalAuth allows email/password based authentication
type LocalAuth struct {
	// Validates credentials during login
	ValidateCredentials CredentialsValidator

	// Creates a new user (for registration)
	CreateUser CreateUserFunc

	// Provider name (defaults to "local")
	Provider string

	// Form field names. The username field carries the email address.
	UsernameField string
	PasswordField string

	// Handler called after successful authentication
	HandleUser HandleUserFunc

	// OnSignupError is called when registration fails. If nil, returns JSON error.
	OnSignupError AuthErrorHandler

	// OnLoginError is called when login fails. If nil, redirects to LoginURL
	// when set, otherwise returns JSON error.
	OnLoginError AuthErrorHandler

	// LoginURL is used for redirects on login failure
	LoginURL string
}

// ServeHTTP handles login requests
func (a *LocalAuth) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if a.ValidateCredentials == nil {
		http.Error(w, `{"error": "Login not configured"}`, http.StatusInternalServerError)
		return
	}

	email, password, err := a.parseLoginForm(r)
	if err != nil {
		authErr := NewAuthError(ErrCodeMissingField, err.Error(), a.getUsernameField())
		a.handleLoginError(authErr, w, r)
		return
	}

	user, err := a.ValidateCredentials(r.Context(), email, password)
	if err != nil || user == nil {
		if err != nil {
			log.Println("error validating user: ", err)
		}
		// "user not found" and "incorrect password" surface identically
		authErr := NewAuthError(ErrCodeInvalidCreds, "Invalid credentials", a.getPasswordField())
		a.handleLoginError(authErr, w, r)
		return
	}

	a.HandleUser("local", a.getProvider(), nil, user, w, r)
}

// HandleSignup processes user registration
func (a *LocalAuth) HandleSignup(w http.ResponseWriter, r *http.Request) {
	if a.CreateUser == nil {
		http.Error(w, `{"error": "Signup not configured"}`, http.StatusInternalServerError)
		return
	}

	email, password, err := a.parseLoginForm(r)
	if err != nil {
		a.handleSignupError(NewAuthError(ErrCodeMissingField, err.Error(), a.getUsernameField()), w, r)
		return
	}

	if !ValidEmail(email) {
		a.handleSignupError(NewAuthError(ErrCodeInvalidEmail, "Invalid email format", a.getUsernameField()), w, r)
		return
	}

	user, err := a.CreateUser(r.Context(), &Credentials{Email: email, Password: password})
	if err != nil {
		log.Println("error creating user: ", err)
		errMsg := err.Error()
		if strings.Contains(errMsg, "already registered") {
			a.handleSignupError(NewAuthError(ErrCodeEmailExists, errMsg, a.getUsernameField()), w, r)
		} else {
			a.handleSignupError(NewAuthError(ErrCodeStorageFailed, fmt.Sprintf("Failed to create user: %s", errMsg), ""), w, r)
		}
		return
	}

	// Log the new user in immediately
	a.HandleUser("local", a.getProvider(), nil, user, w, r)
}

func (a *LocalAuth) parseLoginForm(r *http.Request) (email, password string, err error) {
	contentType := r.Header.Get("Content-Type")
	usernameField := a.getUsernameField()
	passwordField := a.getPasswordField()

	if strings.HasPrefix(contentType, "application/x-www-form-urlencoded") ||
		strings.HasPrefix(contentType, "multipart/form-data") {
		if err = r.ParseForm(); err != nil {
			return "", "", fmt.Errorf("error parsing form")
		}
		email = r.FormValue(usernameField)
		password = r.FormValue(passwordField)
	} else {
		var data map[string]any
		if err = json.NewDecoder(r.Body).Decode(&data); err != nil || data == nil {
			return "", "", fmt.Errorf("invalid post body")
		}
		if u, ok := data[usernameField].(string); ok {
			email = u
		}
		if p, ok := data[passwordField].(string); ok {
			password = p
		}
	}

	if email == "" || password == "" {
		return "", "", fmt.Errorf("email and password required")
	}

	return email, password, nil
}

func (a *LocalAuth) getProvider() string {
	if a.Provider != "" {
		return a.Provider
	}
	return "local"
}

func (a *LocalAuth) getUsernameField() string {
	if a.UsernameField != "" {
		return a.UsernameField
	}
	return "username" // the login form posts the email under this name
}

func (a *LocalAuth) getPasswordField() string {
	if a.PasswordField != "" {
		return a.PasswordField
	}
	return "password"
}

// handleLoginError handles login errors using the configured handler, the
// LoginURL redirect, or default JSON
func (a *LocalAuth) handleLoginError(err *AuthError, w http.ResponseWriter, r *http.Request) {
	if a.OnLoginError != nil && a.OnLoginError(err, w, r) {
		return
	}
	if a.LoginURL != "" {
		http.Redirect(w, r, a.LoginURL, http.StatusFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	statusCode := http.StatusUnauthorized
	if err.Code == ErrCodeMissingField || err.Code == ErrCodeInvalidEmail {
		statusCode = http.StatusBadRequest
	}
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]any{
		"error": err.Message,
		"code":  err.Code,
		"field": err.Field,
	})
}

// handleSignupError handles signup errors using the configured handler or default JSON
func (a *LocalAuth) handleSignupError(err *AuthError, w http.ResponseWriter, r *http.Request) {
	if a.OnSignupError != nil && a.OnSignupError(err, w, r) {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	json.NewEncoder(w).Encode(map[string]any{
		"error": err.Message,
		"code":  err.Code,
		"field": err.Field,
	})
}
