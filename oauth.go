package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
	oauthStateCookie  = "grove_oauth_state"
)

// GoogleAuth signs accounts in with Google and hands back an account token
type GoogleAuth struct {
	OAuthConfig *oauth2.Config
	auth        *Auth
	store       Store
	publicURL   string
	userInfoURL string
}

// NewGoogleAuth builds the handler from config
func NewGoogleAuth(cfg *Config, auth *Auth, store Store) *GoogleAuth {
	redirect := cfg.GoogleRedirectURI
	if redirect == "" {
		redirect = cfg.PublicURL + "/api/auth/google/callback"
	}
	return &GoogleAuth{
		OAuthConfig: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  redirect,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		auth:        auth,
		store:       store,
		publicURL:   cfg.PublicURL,
		userInfoURL: googleUserInfoURL,
	}
}

// Login redirects to Google's consent page
func (g *GoogleAuth) Login(w http.ResponseWriter, r *http.Request) {
	state := GenerateID(16)
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   300,
		HttpOnly: true,
		Secure:   r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https",
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, g.OAuthConfig.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

// Callback exchanges the code, upserts the account and redirects to the
// public URL with the account token in the fragment
func (g *GoogleAuth) Callback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != r.URL.Query().Get("state") {
		http.Error(w, "invalid state", http.StatusBadRequest)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: oauthStateCookie, Path: "/", MaxAge: -1})

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing code", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	token, err := g.OAuthConfig.Exchange(ctx, code)
	if err != nil {
		componentLog("oauth").WithError(err).Warn("token exchange failed")
		http.Error(w, "token exchange failed", http.StatusBadGateway)
		return
	}

	resp, err := g.OAuthConfig.Client(ctx, token).Get(g.userInfoURL)
	if err != nil {
		http.Error(w, "failed to get user info", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil || resp.StatusCode != http.StatusOK {
		http.Error(w, "failed to get user info", http.StatusBadGateway)
		return
	}

	var gUser struct {
		ID      string `json:"id"`
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := json.Unmarshal(body, &gUser); err != nil || gUser.Email == "" {
		http.Error(w, "failed to parse user info", http.StatusBadGateway)
		return
	}

	acc, err := g.store.UpsertGoogleAccount(ctx, gUser.ID, gUser.Email, gUser.Name, gUser.Picture)
	if err != nil {
		componentLog("oauth").WithError(err).Error("upsert account")
		http.Error(w, "database error", http.StatusInternalServerError)
		return
	}
	accToken, err := g.auth.AccountToken(acc)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	dest := fmt.Sprintf("%s/#token=%s", g.publicURL, url.QueryEscape(accToken))
	http.Redirect(w, r, dest, http.StatusTemporaryRedirect)
}
