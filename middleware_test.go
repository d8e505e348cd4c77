package secretskeeper_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	sk "github.com/Gaurangi-25/Secrets-Keeper"
)

func TestEnsureUser(t *testing.T) {
	sessionUser := ""
	mw := &sk.Middleware{
		AuthTokenCookieName: "AuthToken",
		SessionGetter: func(r *http.Request, param string) any {
			return sessionUser
		},
		VerifyToken: func(tokenString string) (string, any, error) {
			if tokenString == "good-token" {
				return "user-from-token", tokenString, nil
			}
			return "", nil, fmt.Errorf("bad token")
		},
	}

	handler := mw.EnsureUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, mw.GetLoggedInUserId(r))
	}))

	t.Run("no principal redirects to login", func(t *testing.T) {
		sessionUser = ""
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/secret", nil))

		if rr.Code != http.StatusFound {
			t.Fatalf("Expected redirect, got %d", rr.Code)
		}
		if loc := rr.Header().Get("Location"); loc != "/login" {
			t.Errorf("Expected /login, got %q", loc)
		}
	})

	t.Run("session principal passes", func(t *testing.T) {
		sessionUser = "user-from-session"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/secret", nil))

		if rr.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", rr.Code)
		}
		if rr.Body.String() != "user-from-session" {
			t.Errorf("Expected session user id, got %q", rr.Body.String())
		}
	})

	t.Run("auth token cookie is a fallback", func(t *testing.T) {
		sessionUser = ""
		req := httptest.NewRequest(http.MethodGet, "/secret", nil)
		req.AddCookie(&http.Cookie{Name: "AuthToken", Value: "good-token"})
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", rr.Code)
		}
		if rr.Body.String() != "user-from-token" {
			t.Errorf("Expected token user id, got %q", rr.Body.String())
		}
	})

	t.Run("bad token redirects", func(t *testing.T) {
		sessionUser = ""
		req := httptest.NewRequest(http.MethodGet, "/secret", nil)
		req.AddCookie(&http.Cookie{Name: "AuthToken", Value: "expired"})
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusFound {
			t.Fatalf("Expected redirect, got %d", rr.Code)
		}
	})
}

func TestExtractUserDoesNotRedirect(t *testing.T) {
	mw := &sk.Middleware{
		SessionGetter: func(r *http.Request, param string) any { return "" },
	}

	handler := mw.ExtractUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "user=%q", mw.GetLoggedInUserId(r))
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
	if rr.Body.String() != `user=""` {
		t.Errorf("Expected empty user, got %s", rr.Body.String())
	}
}
