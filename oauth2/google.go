package oauth2

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

type GoogleOAuth2 struct {
	*BaseOAuth2
}

func NewGoogleOAuth2(clientId string, clientSecret string, callbackUrl string, handleUser HandleUserFunc) *GoogleOAuth2 {
	if clientId == "" {
		clientId = os.Getenv("GOOGLE_CLIENT_ID")
	}
	if clientSecret == "" {
		clientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")
	}
	if callbackUrl == "" {
		callbackUrl = os.Getenv("GOOGLE_CALLBACK_URL")
	}

	out := GoogleOAuth2{
		BaseOAuth2: NewBaseOAuth2(clientId, clientSecret, callbackUrl),
	}
	out.BaseOAuth2.HandleUser = handleUser
	out.BaseOAuth2.oauthConfig.Endpoint = google.Endpoint
	out.BaseOAuth2.oauthConfig.Scopes = []string{
		"https://www.googleapis.com/auth/userinfo.email",
		"https://www.googleapis.com/auth/userinfo.profile",
	}

	return &out
}

// HandleCallback completes the OAuth flow: state check, code exchange,
// profile fetch, then the HandleUser callback. Any failure sends the browser
// back to the login page.
func (g *GoogleOAuth2) HandleCallback(w http.ResponseWriter, r *http.Request) {
	oauthState, _ := r.Cookie("oauthstate")
	if oauthState == nil {
		log.Println("oauth state cookie missing")
		http.Redirect(w, r, g.FailureURL, http.StatusFound)
		return
	}
	if r.FormValue("state") != oauthState.Value {
		http.SetCookie(w, &http.Cookie{
			Name:   "oauthstate",
			MaxAge: 0,
		})
		log.Printf("invalid oauth google state: %s", r.FormValue("state"))
		http.Redirect(w, r, g.FailureURL, http.StatusFound)
		return
	}

	code := r.FormValue("code")
	token, err := g.oauthConfig.Exchange(r.Context(), code)
	if err != nil {
		log.Println("code exchange failed: ", err)
		http.Redirect(w, r, g.FailureURL, http.StatusFound)
		return
	}

	userInfo, err := fetchGoogleUserInfo(r.Context(), token)
	if err != nil {
		log.Println("error fetching google profile: ", err)
		http.Redirect(w, r, g.FailureURL, http.StatusFound)
		return
	}

	g.HandleUser("oauth", "google", token, userInfo, w, r)
}

func fetchGoogleUserInfo(ctx context.Context, token *oauth2.Token) (userInfo map[string]any, err error) {
	data, err := getUserDataFromGoogle(ctx, token)
	if err == nil {
		err = json.Unmarshal(data, &userInfo)
	}
	return userInfo, err
}

func getUserDataFromGoogle(ctx context.Context, token *oauth2.Token) ([]byte, error) {
	const oauthGoogleUrlAPI = "https://www.googleapis.com/oauth2/v2/userinfo?access_token="
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, oauthGoogleUrlAPI+token.AccessToken, nil)
	if err != nil {
		return nil, err
	}
	response, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed getting user info: %s", err.Error())
	}
	defer response.Body.Close()
	contents, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("failed read response: %s", err.Error())
	}
	return contents, nil
}
