package secretskeeper

import (
	"fmt"
	"html/template"
	"log"
	"net/http"

	oa2 "github.com/Gaurangi-25/Secrets-Keeper/oauth2"
	"github.com/gorilla/mux"
)

var pageTmpl = template.Must(template.New("pages").Parse(`
{{define "layout_top"}}<!DOCTYPE html>
<html>
<head><title>Secrets Keeper</title></head>
<body>
<nav>
  <a href="/">Home</a>
  {{if .UserId}}<a href="/submit">Submit</a> <a href="/secret">Secrets</a> <a href="/logout">Log Out</a>
  {{else}}<a href="/login">Login</a> <a href="/register">Register</a>{{end}}
</nav>
{{end}}
{{define "layout_bottom"}}</body>
</html>{{end}}

{{define "home"}}{{template "layout_top" .}}
<h1>Secrets Keeper</h1>
<p>Don't keep your secrets, share them anonymously!</p>
{{template "layout_bottom"}}{{end}}

{{define "login"}}{{template "layout_top" .}}
<h1>Login</h1>
<form method="POST" action="/login">
	<label>Email: <input type="email" name="username" required></label>
	<label>Password: <input type="password" name="password" required></label>
	<button type="submit">Login</button>
</form>
<a href="/auth/google">Sign in with Google</a>
{{template "layout_bottom"}}{{end}}

{{define "register"}}{{template "layout_top" .}}
<h1>Register</h1>
<form method="POST" action="/register">
	<label>Email: <input type="email" name="username" required></label>
	<label>Password: <input type="password" name="password" required></label>
	<button type="submit">Register</button>
</form>
<a href="/auth/google">Sign up with Google</a>
{{template "layout_bottom"}}{{end}}

{{define "secret"}}{{template "layout_top" .}}
<h1>You've discovered the secrets!</h1>
<ul>
{{range .Secrets}}<li>{{.}}</li>
{{end}}</ul>
{{template "layout_bottom"}}{{end}}

{{define "submit"}}{{template "layout_top" .}}
<h1>Submit a secret</h1>
<form method="POST" action="/submit">
	<input type="text" name="secret" placeholder="What's your secret?" required>
	<button type="submit">Submit</button>
</form>
{{template "layout_bottom"}}{{end}}
`))

// pageData carries the logged-in user id (empty when anonymous) and, for the
// secret listing, the flattened secrets of every user.
type pageData struct {
	UserId  string
	Secrets []string
}

func (a *App) renderPage(w http.ResponseWriter, r *http.Request, name string, data pageData) {
	data.UserId = a.Middleware.GetLoggedInUserId(r)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTmpl.ExecuteTemplate(w, name, data); err != nil {
		log.Println("error rendering page: ", name, err)
	}
}

func (a *App) handleHome(w http.ResponseWriter, r *http.Request) {
	a.renderPage(w, r, "home", pageData{})
}

func (a *App) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	a.renderPage(w, r, "login", pageData{})
}

func (a *App) handleRegisterForm(w http.ResponseWriter, r *http.Request) {
	a.renderPage(w, r, "register", pageData{})
}

// handleSecrets lists the secrets of every user that has at least one.
// There is deliberately no ownership filter here: the page aggregates all
// users' secrets, matching the product's anonymous-sharing behavior.
func (a *App) handleSecrets(w http.ResponseWriter, r *http.Request) {
	users, err := a.Store.UsersWithSecrets(r.Context())
	if err != nil {
		log.Println("error fetching secrets: ", err)
		fmt.Fprint(w, "Error fetching secrets.")
		return
	}

	var secrets []string
	for _, user := range users {
		secrets = append(secrets, user.Secrets...)
	}
	a.renderPage(w, r, "secret", pageData{Secrets: secrets})
}

func (a *App) handleSubmitForm(w http.ResponseWriter, r *http.Request) {
	a.renderPage(w, r, "submit", pageData{})
}

func (a *App) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/submit", http.StatusFound)
		return
	}
	secret := r.FormValue("secret")

	userId := a.Middleware.GetLoggedInUserId(r)
	if _, err := a.Store.GetUserById(r.Context(), userId); err != nil {
		// session refers to a record that no longer resolves
		http.Redirect(w, r, a.Middleware.LoginURL, http.StatusFound)
		return
	}

	if err := a.Store.AppendSecret(r.Context(), userId, secret); err != nil {
		log.Println("error saving secret: ", err)
		fmt.Fprint(w, "Error saving secret.")
		return
	}
	http.Redirect(w, r, "/secret", http.StatusFound)
}

// onSignupError reproduces the plain-text registration error surface: a
// conflict message for duplicate emails and a generic message otherwise.
func (a *App) onSignupError(err *AuthError, w http.ResponseWriter, r *http.Request) bool {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	switch err.Code {
	case ErrCodeEmailExists:
		fmt.Fprint(w, "Email already registered. Please log in.")
	case ErrCodeStorageFailed:
		fmt.Fprint(w, "Error registering user.")
	default:
		fmt.Fprint(w, err.Message)
	}
	return true
}

// LocalAuth builds the local strategy wired to this app's store and session.
func (a *App) LocalAuth() *LocalAuth {
	a.EnsureDefaults()
	return &LocalAuth{
		ValidateCredentials: NewCredentialsValidator(a.Store),
		CreateUser:          NewCreateUserFunc(a.Store),
		LoginURL:            a.Middleware.LoginURL,
		HandleUser:          a.SaveUserAndRedirect,
		OnSignupError:       a.onSignupError,
	}
}

// Handler builds the full route table. The google strategy is optional; pass
// nil to leave the OAuth routes unregistered (e.g. in tests).
func (a *App) Handler(google *oa2.GoogleOAuth2) http.Handler {
	a.EnsureDefaults()
	local := a.LocalAuth()
	ensure := a.Middleware.EnsureUser

	r := mux.NewRouter()
	r.HandleFunc("/", a.handleHome).Methods(http.MethodGet)
	r.HandleFunc("/login", a.handleLoginForm).Methods(http.MethodGet)
	r.Handle("/login", local).Methods(http.MethodPost)
	r.HandleFunc("/register", a.handleRegisterForm).Methods(http.MethodGet)
	r.HandleFunc("/register", local.HandleSignup).Methods(http.MethodPost)
	r.Handle("/secret", ensure(http.HandlerFunc(a.handleSecrets))).Methods(http.MethodGet)
	r.Handle("/submit", ensure(http.HandlerFunc(a.handleSubmitForm))).Methods(http.MethodGet)
	r.Handle("/submit", ensure(http.HandlerFunc(a.handleSubmit))).Methods(http.MethodPost)
	r.HandleFunc("/logout", a.onLogout).Methods(http.MethodGet)

	if google != nil {
		r.HandleFunc("/auth/google", google.HandleRedirect).Methods(http.MethodGet)
		r.HandleFunc("/auth/google/secret", google.HandleCallback).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api").Subrouter()
	apiMW := a.APIMiddleware()
	api.Use(apiMW.ValidateToken)
	api.HandleFunc("/secrets", a.handleAPIListSecrets).Methods(http.MethodGet)
	api.HandleFunc("/secrets", a.handleAPIAddSecret).Methods(http.MethodPost)

	return a.Session.LoadAndSave(r)
}
