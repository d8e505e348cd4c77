package secretskeeper_test

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"golang.org/x/crypto/bcrypt"

	sk "github.com/Gaurangi-25/Secrets-Keeper"
	"github.com/Gaurangi-25/Secrets-Keeper/stores"
)

// newTestApp builds a full app on a temp-dir store and an in-memory session
// manager, served over httptest
func newTestApp(t *testing.T) (*sk.App, *stores.FSUserStore, *httptest.Server) {
	t.Helper()

	store := stores.NewFSUserStore(t.TempDir())
	session := scs.New()
	session.Lifetime = 24 * time.Hour

	app := sk.New("SecretsKeeper", session, store)
	app.JWTSecretKey = "test-session-secret"

	ts := httptest.NewServer(app.Handler(nil))
	t.Cleanup(ts.Close)
	return app, store, ts
}

// newBrowser returns a cookie-carrying client that does not follow redirects,
// so tests can assert Location headers
func newBrowser(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("Failed to create cookie jar: %v", err)
	}
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func postForm(t *testing.T, client *http.Client, target string, form url.Values) *http.Response {
	t.Helper()
	resp, err := client.Post(target, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		t.Fatalf("POST %s failed: %v", target, err)
	}
	return resp
}

func get(t *testing.T, client *http.Client, target string) *http.Response {
	t.Helper()
	resp, err := client.Get(target)
	if err != nil {
		t.Fatalf("GET %s failed: %v", target, err)
	}
	return resp
}

func body(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read body: %v", err)
	}
	return string(data)
}

func register(t *testing.T, client *http.Client, baseURL, email, password string) *http.Response {
	t.Helper()
	form := url.Values{}
	form.Set("username", email)
	form.Set("password", password)
	return postForm(t, client, baseURL+"/register", form)
}

func login(t *testing.T, client *http.Client, baseURL, email, password string) *http.Response {
	t.Helper()
	form := url.Values{}
	form.Set("username", email)
	form.Set("password", password)
	return postForm(t, client, baseURL+"/login", form)
}

func TestRegisterJourney(t *testing.T) {
	_, store, ts := newTestApp(t)
	browser := newBrowser(t)

	// Fresh registration authenticates and lands on the submission page
	resp := register(t, browser, ts.URL, "new@example.com", "password123")
	body(t, resp)
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("Expected redirect after register, got %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/submit" {
		t.Errorf("Expected redirect to /submit, got %q", loc)
	}

	resp = get(t, browser, ts.URL+"/submit")
	body(t, resp)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected authenticated access to /submit, got %d", resp.StatusCode)
	}

	// The stored password must be a hash of the submitted one
	user, err := store.GetUserByEmail(context.Background(), "new@example.com")
	if err != nil {
		t.Fatalf("Registered user missing: %v", err)
	}
	if user.Password == "password123" {
		t.Error("Password stored in plaintext")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("password123")); err != nil {
		t.Errorf("Stored hash does not match password: %v", err)
	}

	// A duplicate registration returns the conflict message and leaves the
	// original record untouched
	resp = register(t, newBrowser(t), ts.URL, "new@example.com", "different456")
	got := body(t, resp)
	if !strings.Contains(got, "Email already registered. Please log in.") {
		t.Errorf("Expected conflict message, got: %s", got)
	}

	again, err := store.GetUserByEmail(context.Background(), "new@example.com")
	if err != nil {
		t.Fatalf("Original user missing after duplicate attempt: %v", err)
	}
	if again.Password != user.Password {
		t.Error("Duplicate registration modified the existing record")
	}
}

func TestLoginJourney(t *testing.T) {
	_, _, ts := newTestApp(t)

	// seed an account
	seed := newBrowser(t)
	body(t, register(t, seed, ts.URL, "user@example.com", "password123"))

	tests := []struct {
		name     string
		email    string
		password string
		wantLoc  string
	}{
		{"correct credentials", "user@example.com", "password123", "/submit"},
		{"wrong password", "user@example.com", "nope", "/login"},
		{"unknown email", "ghost@example.com", "password123", "/login"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			browser := newBrowser(t)
			resp := login(t, browser, ts.URL, tt.email, tt.password)
			body(t, resp)

			if resp.StatusCode != http.StatusFound {
				t.Fatalf("Expected redirect, got %d", resp.StatusCode)
			}
			if loc := resp.Header.Get("Location"); loc != tt.wantLoc {
				t.Errorf("Expected redirect to %q, got %q", tt.wantLoc, loc)
			}

			// only the successful login leaves the browser authenticated
			resp = get(t, browser, ts.URL+"/submit")
			body(t, resp)
			if tt.wantLoc == "/submit" && resp.StatusCode != http.StatusOK {
				t.Errorf("Expected authenticated access, got %d", resp.StatusCode)
			}
			if tt.wantLoc == "/login" && resp.StatusCode != http.StatusFound {
				t.Errorf("Expected unauthenticated redirect, got %d", resp.StatusCode)
			}
		})
	}
}

func TestSubmitSecretJourney(t *testing.T) {
	_, store, ts := newTestApp(t)
	browser := newBrowser(t)
	body(t, register(t, browser, ts.URL, "keeper@example.com", "password123"))

	form := url.Values{}
	form.Set("secret", "first secret")
	resp := postForm(t, browser, ts.URL+"/submit", form)
	body(t, resp)
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/secret" {
		t.Fatalf("Expected redirect to /secret, got %d -> %q", resp.StatusCode, resp.Header.Get("Location"))
	}

	form.Set("secret", "second secret")
	body(t, postForm(t, browser, ts.URL+"/submit", form))

	user, err := store.GetUserByEmail(context.Background(), "keeper@example.com")
	if err != nil {
		t.Fatalf("User missing: %v", err)
	}
	want := []string{"first secret", "second secret"}
	if len(user.Secrets) != len(want) {
		t.Fatalf("Expected %d secrets, got %v", len(want), user.Secrets)
	}
	for i, s := range want {
		if user.Secrets[i] != s {
			t.Errorf("Secret %d: expected %q, got %q", i, s, user.Secrets[i])
		}
	}
}

func TestUnauthenticatedAccess(t *testing.T) {
	_, store, ts := newTestApp(t)

	for _, path := range []string{"/secret", "/submit"} {
		resp := get(t, newBrowser(t), ts.URL+path)
		body(t, resp)
		if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/login" {
			t.Errorf("GET %s: expected redirect to /login, got %d -> %q",
				path, resp.StatusCode, resp.Header.Get("Location"))
		}
	}

	// an anonymous submission must not mutate any record
	form := url.Values{}
	form.Set("secret", "drive-by secret")
	resp := postForm(t, newBrowser(t), ts.URL+"/submit", form)
	body(t, resp)
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/login" {
		t.Errorf("POST /submit: expected redirect to /login, got %d", resp.StatusCode)
	}

	users, err := store.UsersWithSecrets(context.Background())
	if err != nil {
		t.Fatalf("UsersWithSecrets failed: %v", err)
	}
	if len(users) != 0 {
		t.Errorf("Anonymous submit mutated the store: %v", users)
	}
}

func TestSecretListingAggregatesAllUsers(t *testing.T) {
	_, store, ts := newTestApp(t)
	ctx := context.Background()

	// two users with secrets, one without
	alice := &sk.User{Email: "alice@example.com", Password: "x"}
	bob := &sk.User{Email: "bob@example.com", Password: "x"}
	carol := &sk.User{Email: "carol@example.com", Password: "x"}
	for _, u := range []*sk.User{alice, bob, carol} {
		if err := store.CreateUser(ctx, u); err != nil {
			t.Fatalf("CreateUser failed: %v", err)
		}
	}
	for _, s := range []string{"alice-one", "alice-two"} {
		if err := store.AppendSecret(ctx, alice.Id(), s); err != nil {
			t.Fatalf("AppendSecret failed: %v", err)
		}
	}
	if err := store.AppendSecret(ctx, bob.Id(), "bob-one"); err != nil {
		t.Fatalf("AppendSecret failed: %v", err)
	}

	browser := newBrowser(t)
	body(t, register(t, browser, ts.URL, "viewer@example.com", "password123"))

	resp := get(t, browser, ts.URL+"/secret")
	got := body(t, resp)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	// the listing aggregates every user's secrets with no ownership filter
	for _, want := range []string{"alice-one", "alice-two", "bob-one"} {
		if !strings.Contains(got, want) {
			t.Errorf("Listing missing %q", want)
		}
	}

	users, err := store.UsersWithSecrets(ctx)
	if err != nil {
		t.Fatalf("UsersWithSecrets failed: %v", err)
	}
	for _, u := range users {
		if u.Email == "carol@example.com" {
			t.Error("User with zero secrets included in listing")
		}
	}
}

func TestLogoutJourney(t *testing.T) {
	_, _, ts := newTestApp(t)
	browser := newBrowser(t)
	body(t, register(t, browser, ts.URL, "leaver@example.com", "password123"))

	resp := get(t, browser, ts.URL+"/logout")
	body(t, resp)
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/" {
		t.Fatalf("Expected redirect to /, got %d -> %q", resp.StatusCode, resp.Header.Get("Location"))
	}

	resp = get(t, browser, ts.URL+"/submit")
	body(t, resp)
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/login" {
		t.Errorf("Expected post-logout redirect to /login, got %d", resp.StatusCode)
	}
}

func TestOAuthCallbackJourney(t *testing.T) {
	app, store, _ := newTestApp(t)

	profile := map[string]any{"id": "google-sub-1", "email": "oauth@example.com"}
	handler := app.Session.LoadAndSave(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		app.HandleOAuthUser("oauth", "google", nil, profile, w, r)
	}))

	// first callback creates a passwordless record and authenticates
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/auth/google/secret", nil))
	if rr.Code != http.StatusFound || rr.Header().Get("Location") != "/submit" {
		t.Fatalf("Expected redirect to /submit, got %d -> %q", rr.Code, rr.Header().Get("Location"))
	}

	user, err := store.GetUserByGoogleId(context.Background(), "google-sub-1")
	if err != nil {
		t.Fatalf("OAuth user missing: %v", err)
	}
	if user.Email != "oauth@example.com" {
		t.Errorf("Expected profile email, got %q", user.Email)
	}
	if user.Password != "" {
		t.Error("OAuth-only account must have no password")
	}

	// a repeat callback authenticates the same record without duplicating it
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/auth/google/secret", nil))
	if rr.Code != http.StatusFound {
		t.Fatalf("Expected redirect on repeat callback, got %d", rr.Code)
	}

	again, err := store.GetUserByGoogleId(context.Background(), "google-sub-1")
	if err != nil {
		t.Fatalf("OAuth user missing after repeat: %v", err)
	}
	if again.Id() != user.Id() {
		t.Errorf("Repeat callback created a duplicate record: %s vs %s", again.Id(), user.Id())
	}

	entries, err := os.ReadDir(filepath.Join(store.StoragePath, "users"))
	if err != nil {
		t.Fatalf("Failed to read store dir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("Expected exactly one record, found %d", len(entries))
	}
}
