package routes

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/australsec/opswatch/pkg/auth"
)

// ssoLoginHandler starts the OAuth flow against the configured
// identity provider. The provider account's username must match an
// existing console identity; SSO never provisions accounts.
func (wr *WebRouter) ssoLoginHandler(w http.ResponseWriter, r *http.Request) {
	state, err := auth.RandomHex(16)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	session, _ := wr.getSession(r)
	session.Values["oauth_state"] = state
	if err := session.Save(r, w); err != nil {
		slog.Error("error saving session", "error", err)
	}

	oauthCfg := wr.config.SSO.OAuthConfig(wr.config.BaseURL)
	http.Redirect(w, r, oauthCfg.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

func (wr *WebRouter) ssoCallbackHandler(w http.ResponseWriter, r *http.Request) {
	session, _ := wr.getSession(r)
	expected, _ := session.Values["oauth_state"].(string)
	delete(session.Values, "oauth_state")
	if expected == "" || r.URL.Query().Get("state") != expected {
		http.Error(w, "Invalid state", http.StatusBadRequest)
		return
	}

	oauthCfg := wr.config.SSO.OAuthConfig(wr.config.BaseURL)
	token, err := oauthCfg.Exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		slog.Error("oauth exchange failed", "error", err)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	client := oauthCfg.Client(r.Context(), token)
	resp, err := client.Get(wr.config.SSO.UserInfoURL)
	if err != nil {
		slog.Error("userinfo request failed", "error", err)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	defer resp.Body.Close()

	var info struct {
		Username          string `json:"username"`
		PreferredUsername string `json:"preferred_username"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		slog.Error("userinfo decode failed", "error", err)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	username := info.Username
	if username == "" {
		username = info.PreferredUsername
	}

	identity, err := wr.storage.Identities.GetByUserName(username)
	if err != nil {
		slog.Error("unable to query identity", "user", username, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if identity == nil || !identity.IsActive() {
		slog.Warn("sso login for unknown or inactive identity", "user", username)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	wr.establishSession(w, r, identity)
	http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
}
