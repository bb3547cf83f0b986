package bridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net/http"

	"mcp-pagoda/pkg/logging"
)

// Handler exposes the bridge over HTTP: the client-facing authorization
// server endpoints plus the identity-provider callback.
type Handler struct {
	bridge *Bridge
	// issuer is the externally visible base URL of this server, used to
	// build the authorization-server metadata document.
	issuer string
}

// NewHandler creates an HTTP handler for the bridge.
func NewHandler(bridge *Bridge, issuer string) *Handler {
	return &Handler{
		bridge: bridge,
		issuer: issuer,
	}
}

// Register installs the bridge's routes on a mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/.well-known/oauth-authorization-server", h.HandleMetadata)
	mux.HandleFunc("/oauth/authorize", h.HandleAuthorize)
	mux.HandleFunc("/oauth/token", h.HandleToken)
	mux.HandleFunc("/oauth/register", h.HandleRegister)
	mux.HandleFunc("/oauth/revoke", h.HandleRevoke)
	mux.HandleFunc("/pagoda/callback", h.HandleCallback)
}

// HandleMetadata serves the RFC 8414 authorization-server metadata
// document.
func (h *Handler) HandleMetadata(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"issuer":                                h.issuer,
		"authorization_endpoint":                h.issuer + "/oauth/authorize",
		"token_endpoint":                        h.issuer + "/oauth/token",
		"registration_endpoint":                 h.issuer + "/oauth/register",
		"revocation_endpoint":                   h.issuer + "/oauth/revoke",
		"response_types_supported":              []string{"code"},
		"grant_types_supported":                 []string{"authorization_code"},
		"token_endpoint_auth_methods_supported": []string{"none"},
		"code_challenge_methods_supported":      []string{"S256"},
		"scopes_supported":                      []string{"user"},
	})
}

// HandleAuthorize starts the authorization-code flow: it records the
// pending authorization and redirects the user agent to the identity
// provider.
func (h *Handler) HandleAuthorize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	clientID := q.Get("client_id")
	if clientID == "" {
		writeOAuthError(w, http.StatusBadRequest, "invalid_request", "client_id is required")
		return
	}

	authURL, err := h.bridge.Authorize(
		clientID,
		q.Get("redirect_uri"),
		q.Get("state"),
		q.Get("code_challenge"),
		q.Get("scope"),
	)
	switch {
	case errors.Is(err, ErrUnknownClient):
		writeOAuthError(w, http.StatusBadRequest, "invalid_client", "unknown client_id")
		return
	case errors.Is(err, ErrInvalidRequest):
		writeOAuthError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	case err != nil:
		logging.Error("Bridge", err, "Authorization request failed")
		writeOAuthError(w, http.StatusInternalServerError, "server_error", "failed to start authorization")
		return
	}

	http.Redirect(w, r, authURL, http.StatusFound)
}

// HandleCallback handles the redirect back from the identity provider,
// finishing the upstream exchange and sending the user agent on to the
// client's redirect URI.
func (h *Handler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if errParam := q.Get("error"); errParam != "" {
		desc := q.Get("error_description")
		logging.Warn("Bridge", "IdP callback returned error: %s - %s", errParam, desc)
		h.renderErrorPage(w, http.StatusBadRequest, fmt.Sprintf("Authentication failed: %s", errParam))
		return
	}

	code := q.Get("code")
	state := q.Get("state")
	if code == "" || state == "" {
		logging.Warn("Bridge", "IdP callback missing code or state")
		h.renderErrorPage(w, http.StatusBadRequest, "Invalid callback: missing required parameters")
		return
	}

	redirect, err := h.bridge.CompleteCallback(r.Context(), code, state)
	if err != nil {
		var upErr *UpstreamError
		switch {
		case errors.Is(err, ErrInvalidState):
			logging.Warn("Bridge", "IdP callback with unknown or expired state")
			h.renderErrorPage(w, http.StatusBadRequest, "Authentication session expired. Please try again.")
		case errors.As(err, &upErr):
			logging.Error("Bridge", err, "Upstream code exchange failed")
			h.renderErrorPage(w, http.StatusBadGateway, "Failed to complete authentication with the identity provider.")
		default:
			logging.Error("Bridge", err, "Callback processing failed")
			h.renderErrorPage(w, http.StatusInternalServerError, "Failed to complete authentication. Please try again.")
		}
		return
	}

	http.Redirect(w, r, redirect, http.StatusFound)
}

// HandleToken serves the client-facing token endpoint. Only the
// authorization_code grant is supported; refresh happens server-side.
func (h *Handler) HandleToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeOAuthError(w, http.StatusMethodNotAllowed, "invalid_request", "POST required")
		return
	}
	if err := r.ParseForm(); err != nil {
		writeOAuthError(w, http.StatusBadRequest, "invalid_request", "malformed form body")
		return
	}

	var (
		resp *TokenResponse
		err  error
	)
	switch grantType := r.PostFormValue("grant_type"); grantType {
	case "authorization_code":
		resp, err = h.bridge.ExchangeCode(r.PostFormValue("client_id"), r.PostFormValue("code"), r.PostFormValue("code_verifier"))
	case "refresh_token":
		resp, err = h.bridge.ExchangeRefreshToken(r.PostFormValue("refresh_token"))
	default:
		writeOAuthError(w, http.StatusBadRequest, "unsupported_grant_type", fmt.Sprintf("grant type %q is not supported", grantType))
		return
	}

	switch {
	case errors.Is(err, ErrInvalidGrant):
		writeOAuthError(w, http.StatusBadRequest, "invalid_grant", err.Error())
		return
	case errors.Is(err, ErrUnsupportedGrant):
		writeOAuthError(w, http.StatusBadRequest, "unsupported_grant_type", "refresh_token grant is not supported; sessions are refreshed server-side")
		return
	case err != nil:
		logging.Error("Bridge", err, "Token request failed")
		writeOAuthError(w, http.StatusInternalServerError, "server_error", "failed to issue token")
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, resp)
}

// HandleRegister serves RFC 7591 dynamic client registration.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeOAuthError(w, http.StatusMethodNotAllowed, "invalid_request", "POST required")
		return
	}

	var meta ClientInfo
	if err := json.NewDecoder(r.Body).Decode(&meta); err != nil {
		writeOAuthError(w, http.StatusBadRequest, "invalid_client_metadata", "malformed JSON body")
		return
	}

	info, err := h.bridge.RegisterClient(&meta)
	if err != nil {
		writeOAuthError(w, http.StatusBadRequest, "invalid_client_metadata", err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

// HandleRevoke serves RFC 7009 token revocation. It always succeeds for
// well-formed requests, whether or not the token existed.
func (h *Handler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeOAuthError(w, http.StatusMethodNotAllowed, "invalid_request", "POST required")
		return
	}
	if err := r.ParseForm(); err != nil {
		writeOAuthError(w, http.StatusBadRequest, "invalid_request", "malformed form body")
		return
	}
	token := r.PostFormValue("token")
	if token == "" {
		writeOAuthError(w, http.StatusBadRequest, "invalid_request", "token is required")
		return
	}

	if err := h.bridge.Revoke(token); err != nil {
		logging.Error("Bridge", err, "Revocation failed")
		writeOAuthError(w, http.StatusInternalServerError, "server_error", "revocation failed")
		return
	}
	w.WriteHeader(http.StatusOK)
}

// renderErrorPage renders a minimal HTML error page for browser-facing
// callback failures.
func (h *Handler) renderErrorPage(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)

	fmt.Fprintf(w, `<!DOCTYPE html>
<html lang="en">
<head><meta charset="UTF-8"><title>Authentication Error</title></head>
<body>
    <h1>Authentication Error</h1>
    <p>%s</p>
    <p>You can close this window and retry from your MCP client.</p>
</body>
</html>`, html.EscapeString(message))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("Bridge", err, "Failed to encode JSON response")
	}
}

func writeOAuthError(w http.ResponseWriter, status int, code, description string) {
	writeJSON(w, status, map[string]string{
		"error":             code,
		"error_description": description,
	})
}
