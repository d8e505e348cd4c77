package oauth2

import (
	"net/http"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

type BaseOAuth2 struct {
	ClientId     string
	ClientSecret string
	CallbackURL  string
	HandleUser   HandleUserFunc

	// Where the callback sends the browser when the handshake fails
	FailureURL string

	oauthConfig oauth2.Config
}

func NewBaseOAuth2(clientId string, clientSecret string, callbackUrl string) *BaseOAuth2 {
	if clientId == "" {
		clientId = os.Getenv("OAUTH2_CLIENT_ID")
	}
	if clientSecret == "" {
		clientSecret = os.Getenv("OAUTH2_CLIENT_SECRET")
	}
	if callbackUrl == "" {
		callbackUrl = os.Getenv("OAUTH2_CALLBACK_URL")
	}
	out := &BaseOAuth2{
		ClientId:     clientId,
		ClientSecret: clientSecret,
		CallbackURL:  callbackUrl,
		FailureURL:   "/login",
		oauthConfig: oauth2.Config{
			ClientID:     clientId,
			ClientSecret: clientSecret,
			RedirectURL:  callbackUrl,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
	}
	return out
}

// HandleRedirect begins the OAuth flow by sending the browser to the
// provider's consent page with a fresh state cookie.
func (b *BaseOAuth2) HandleRedirect(w http.ResponseWriter, r *http.Request) {
	OauthRedirector(&b.oauthConfig)(w, r)
}
