package secretskeeper

import (
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// App wires the session manager, the user store and the route handlers
// together. It is the single composition point for the application.
type App struct {
	Session    *scs.SessionManager
	Middleware Middleware

	// Optional name that can be used as a prefix for all required vars
	AppName string

	// Name of the session variable where the auth token is stored
	AuthTokenSessionVar string

	// Must be passed in
	Store UserStore

	// All the domains where the auth token cookies will be set on a login
	// success or logout
	CookieDomains []string

	// JWT related fields
	JwtIssuer    string
	JWTSecretKey string

	// How long a session cookie is valid for. Defaults to 1 day, fixed from
	// creation rather than sliding.
	SessionTimeoutInSeconds int

	// Where successful logins land. Defaults to /submit.
	SuccessURL string
}

func New(appName string, session *scs.SessionManager, store UserStore) *App {
	out := (&App{AppName: appName, Session: session, Store: store}).EnsureDefaults()
	return out
}

func (a *App) EnsureDefaults() *App {
	if a.AppName == "" {
		a.AppName = "SecretsKeeper"
	}
	if a.SessionTimeoutInSeconds <= 0 {
		a.SessionTimeoutInSeconds = 86400
	}
	if a.JwtIssuer == "" {
		a.JwtIssuer = fmt.Sprintf("%s-Issuer", a.AppName)
	}
	if a.AuthTokenSessionVar == "" {
		a.AuthTokenSessionVar = fmt.Sprintf("%sAuthToken", a.AppName)
	}
	if a.JWTSecretKey == "" {
		a.JWTSecretKey = strings.TrimSpace(os.Getenv("SESSION_SECRET"))
	}
	if a.SuccessURL == "" {
		a.SuccessURL = "/submit"
	}
	a.Middleware.EnsureReasonableDefaults()
	if a.Middleware.AuthTokenCookieName == "" {
		a.Middleware.AuthTokenCookieName = a.AuthTokenSessionVar
	}
	if a.Middleware.SessionGetter == nil {
		a.Middleware.SessionGetter = func(r *http.Request, param string) any {
			return a.Session.Get(r.Context(), param)
		}
	}
	if a.Middleware.VerifyToken == nil {
		a.Middleware.VerifyToken = a.verifyJWT
	}
	return a
}

func (a *App) verifyJWT(tokenString string) (loggedInUserId string, t any, err error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(a.JWTSecretKey), nil
	})
	if err != nil {
		return "", nil, err
	}
	if !token.Valid {
		return "", nil, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || claims == nil {
		return "", nil, fmt.Errorf("claims is not a map")
	}
	sub, err := claims.GetSubject()
	if sub == "" {
		return "", nil, fmt.Errorf("subject not found")
	} else if err != nil {
		return "", nil, err
	}
	return sub, token, nil
}

// onLogout destroys the session and redirects to the landing page. Safe to
// call without an authenticated session.
func (a *App) onLogout(w http.ResponseWriter, r *http.Request) {
	a.setLoggedInUser(nil, w, r)
	http.Redirect(w, r, "/", http.StatusFound)
}

// SaveUserAndRedirect is called by the strategies after a successful
// authentication. It establishes the session and sends the user on to the
// submission page.
func (a *App) SaveUserAndRedirect(authtype, provider string, token *oauth2.Token, user *User, w http.ResponseWriter, r *http.Request) {
	a.setLoggedInUser(user, w, r)
	log.Printf("Authenticated user %s via %s/%s", user.Id(), authtype, provider)
	http.Redirect(w, r, a.SuccessURL, http.StatusFound)
}

// HandleOAuthUser adapts the raw OAuth profile into a User record and logs
// it in. Wired as the oauth2 package's HandleUserFunc.
func (a *App) HandleOAuthUser(authtype, provider string, token *oauth2.Token, userInfo map[string]any, w http.ResponseWriter, r *http.Request) {
	googleId, _ := userInfo["id"].(string)
	email, _ := userInfo["email"].(string)
	if googleId == "" {
		log.Println("oauth profile missing subject id")
		http.Redirect(w, r, a.Middleware.LoginURL, http.StatusFound)
		return
	}

	user, err := EnsureGoogleUser(r.Context(), a.Store, googleId, email)
	if err != nil {
		log.Println("error ensuring oauth user: ", err)
		http.Redirect(w, r, a.Middleware.LoginURL, http.StatusFound)
		return
	}

	a.SaveUserAndRedirect(authtype, provider, token, user, w, r)
}

// Generic helper method to set the auth token and logged in user id on the
// cookie domains we care about. Called with a nil user this "unsets" the
// logged in user, destroying the session.
func (a *App) setLoggedInUser(user *User, w http.ResponseWriter, r *http.Request) string {
	a.EnsureDefaults()
	domains := a.CookieDomains
	if slices.Index(a.CookieDomains, "") < 0 { // default domain
		domains = append(domains, "")
	}
	for _, cookieDomain := range domains {
		http.SetCookie(w, &http.Cookie{
			Name:   "oauthstate",
			Value:  "",
			MaxAge: -1, Expires: time.Now(),
			Domain: cookieDomain,
			Path:   "/",
		})

		if user != nil {
			a.Session.Put(r.Context(), a.Middleware.UserParamName, user.Id())

			token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
				"sub": user.Id(),
				"iss": a.JwtIssuer,
				"exp": time.Now().Add(time.Second * time.Duration(a.SessionTimeoutInSeconds)).Unix(),
				"iat": time.Now().Unix(),
			})
			tokenString, err := token.SignedString([]byte(a.JWTSecretKey))
			if err != nil {
				slog.Info("error signing token", "err", err)
			}

			a.Session.Put(r.Context(), a.AuthTokenSessionVar, tokenString)
			http.SetCookie(w, &http.Cookie{
				Name:     a.AuthTokenSessionVar,
				Value:    tokenString,
				Domain:   cookieDomain,
				Path:     "/",
				HttpOnly: true,
				Expires:  time.Now().Add(time.Second * time.Duration(a.SessionTimeoutInSeconds)),
				MaxAge:   a.SessionTimeoutInSeconds,
			})
			return tokenString
		}

		// clear the session and cookie values
		if err := a.Session.Destroy(r.Context()); err != nil {
			slog.Warn("error destroying session", "err", err)
		}
		http.SetCookie(w, &http.Cookie{
			Name:    a.AuthTokenSessionVar,
			Domain:  cookieDomain,
			Path:    "/",
			MaxAge:  -1,
			Expires: time.Now(),
		})
	}
	return ""
}
