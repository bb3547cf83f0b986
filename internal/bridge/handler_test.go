package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"golang.org/x/oauth2"
)

func newTestHandler(idp *fakeIdP) (*Handler, *Bridge) {
	b, _ := newTestBridge(idp, Config{})
	return NewHandler(b, "https://mcp.example.com"), b
}

func TestHandleMetadata(t *testing.T) {
	h, _ := newTestHandler(&fakeIdP{})

	rec := httptest.NewRecorder()
	h.HandleMetadata(rec, httptest.NewRequest(http.MethodGet, "/.well-known/oauth-authorization-server", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if doc["issuer"] != "https://mcp.example.com" {
		t.Errorf("unexpected issuer: %v", doc["issuer"])
	}
	if doc["token_endpoint"] != "https://mcp.example.com/oauth/token" {
		t.Errorf("unexpected token_endpoint: %v", doc["token_endpoint"])
	}
	if doc["authorization_endpoint"] != "https://mcp.example.com/oauth/authorize" {
		t.Errorf("unexpected authorization_endpoint: %v", doc["authorization_endpoint"])
	}
}

func TestHandleRegister(t *testing.T) {
	h, _ := newTestHandler(&fakeIdP{})

	body, _ := json.Marshal(map[string]interface{}{
		"client_name":   "cli",
		"redirect_uris": []string{"https://client.example.com/cb"},
	})
	rec := httptest.NewRecorder()
	h.HandleRegister(rec, httptest.NewRequest(http.MethodPost, "/oauth/register", bytes.NewReader(body)))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var info ClientInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if info.ClientID == "" {
		t.Error("expected client_id in response")
	}
}

func TestHandleRegisterRejectsMissingRedirectURI(t *testing.T) {
	h, _ := newTestHandler(&fakeIdP{})

	rec := httptest.NewRecorder()
	h.HandleRegister(rec, httptest.NewRequest(http.MethodPost, "/oauth/register", strings.NewReader(`{"client_name":"cli"}`)))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "invalid_client_metadata") {
		t.Errorf("expected invalid_client_metadata error, got %s", rec.Body.String())
	}
}

func TestHandleAuthorizeRedirectsToIdP(t *testing.T) {
	h, b := newTestHandler(&fakeIdP{})
	client, err := b.RegisterClient(&ClientInfo{RedirectURIs: []string{"https://client.example.com/cb"}})
	if err != nil {
		t.Fatalf("RegisterClient failed: %v", err)
	}

	target := "/oauth/authorize?client_id=" + client.ClientID + "&state=abc"
	rec := httptest.NewRecorder()
	h.HandleAuthorize(rec, httptest.NewRequest(http.MethodGet, target, nil))

	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d: %s", rec.Code, rec.Body.String())
	}
	loc, err := url.Parse(rec.Header().Get("Location"))
	if err != nil {
		t.Fatalf("bad Location header: %v", err)
	}
	if loc.Host != "idp.example.com" {
		t.Errorf("expected redirect to IdP, got %s", loc.Host)
	}
	if loc.Query().Get("state") != "abc" {
		t.Errorf("expected state carried to IdP, got %s", loc.Query().Get("state"))
	}
}

func TestHandleAuthorizeUnknownClient(t *testing.T) {
	h, _ := newTestHandler(&fakeIdP{})

	rec := httptest.NewRecorder()
	h.HandleAuthorize(rec, httptest.NewRequest(http.MethodGet, "/oauth/authorize?client_id=nope", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "invalid_client") {
		t.Errorf("expected invalid_client error, got %s", rec.Body.String())
	}
}

func TestHandleCallbackRedirectsToClient(t *testing.T) {
	idp := &fakeIdP{exchangeTok: &oauth2.Token{AccessToken: "azure-access"}}
	h, b := newTestHandler(idp)

	client, err := b.RegisterClient(&ClientInfo{RedirectURIs: []string{"https://client.example.com/cb"}})
	if err != nil {
		t.Fatalf("RegisterClient failed: %v", err)
	}
	if _, err := b.Authorize(client.ClientID, "", "client-state", "", ""); err != nil {
		t.Fatalf("Authorize failed: %v", err)
	}

	rec := httptest.NewRecorder()
	h.HandleCallback(rec, httptest.NewRequest(http.MethodGet, "/pagoda/callback?code=idp-code&state=client-state", nil))

	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d: %s", rec.Code, rec.Body.String())
	}
	loc, err := url.Parse(rec.Header().Get("Location"))
	if err != nil {
		t.Fatalf("bad Location header: %v", err)
	}
	if loc.Host != "client.example.com" {
		t.Errorf("expected redirect to client, got %s", loc.Host)
	}
	if !strings.HasPrefix(loc.Query().Get("code"), "mcp_") {
		t.Errorf("expected issued code in redirect, got %s", loc.Query().Get("code"))
	}
}

func TestHandleCallbackIdPError(t *testing.T) {
	h, _ := newTestHandler(&fakeIdP{})

	rec := httptest.NewRecorder()
	h.HandleCallback(rec, httptest.NewRequest(http.MethodGet, "/pagoda/callback?error=access_denied&error_description=user+said+no", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "access_denied") {
		t.Errorf("expected IdP error surfaced, got %s", rec.Body.String())
	}
}

func TestHandleCallbackInvalidState(t *testing.T) {
	h, _ := newTestHandler(&fakeIdP{})

	rec := httptest.NewRecorder()
	h.HandleCallback(rec, httptest.NewRequest(http.MethodGet, "/pagoda/callback?code=x&state=never-stored", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleTokenAuthorizationCodeGrant(t *testing.T) {
	idp := &fakeIdP{exchangeTok: &oauth2.Token{AccessToken: "azure-access"}}
	h, b := newTestHandler(idp)

	client, state := registerAndAuthorize(t, b, "")
	redirect, err := b.CompleteCallback(context.Background(), "idp-code", state)
	if err != nil {
		t.Fatalf("CompleteCallback failed: %v", err)
	}
	code := queryParam(t, redirect, "code")

	form := url.Values{
		"grant_type": {"authorization_code"},
		"client_id":  {client.ClientID},
		"code":       {code},
	}
	req := httptest.NewRequest(http.MethodPost, "/oauth/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.HandleToken(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp TokenResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if !strings.HasPrefix(resp.AccessToken, "mcp_") {
		t.Errorf("unexpected access token: %s", resp.AccessToken)
	}
	if rec.Header().Get("Cache-Control") != "no-store" {
		t.Error("token response must not be cacheable")
	}
}

func TestHandleTokenRejectsMissingClientID(t *testing.T) {
	idp := &fakeIdP{exchangeTok: &oauth2.Token{AccessToken: "azure-access"}}
	h, b := newTestHandler(idp)

	_, state := registerAndAuthorize(t, b, "")
	redirect, err := b.CompleteCallback(context.Background(), "idp-code", state)
	if err != nil {
		t.Fatalf("CompleteCallback failed: %v", err)
	}
	code := queryParam(t, redirect, "code")

	form := url.Values{
		"grant_type": {"authorization_code"},
		"code":       {code},
	}
	req := httptest.NewRequest(http.MethodPost, "/oauth/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.HandleToken(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without client_id, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "invalid_grant") {
		t.Errorf("expected invalid_grant, got %s", rec.Body.String())
	}
}

func TestHandleTokenRefreshGrantRejected(t *testing.T) {
	h, _ := newTestHandler(&fakeIdP{})

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {"whatever"},
	}
	req := httptest.NewRequest(http.MethodPost, "/oauth/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.HandleToken(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "unsupported_grant_type") {
		t.Errorf("expected unsupported_grant_type, got %s", rec.Body.String())
	}
}

func TestHandleTokenInvalidCode(t *testing.T) {
	h, _ := newTestHandler(&fakeIdP{})

	form := url.Values{
		"grant_type": {"authorization_code"},
		"code":       {"mcp_bogus"},
	}
	req := httptest.NewRequest(http.MethodPost, "/oauth/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.HandleToken(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "invalid_grant") {
		t.Errorf("expected invalid_grant, got %s", rec.Body.String())
	}
}

func TestHandleRevokeAlwaysSucceeds(t *testing.T) {
	h, _ := newTestHandler(&fakeIdP{})

	form := url.Values{"token": {"mcp_never_issued"}}
	req := httptest.NewRequest(http.MethodPost, "/oauth/revoke", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.HandleRevoke(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for unknown token, got %d", rec.Code)
	}
}

func TestHandleRevokeRequiresToken(t *testing.T) {
	h, _ := newTestHandler(&fakeIdP{})

	req := httptest.NewRequest(http.MethodPost, "/oauth/revoke", strings.NewReader(""))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.HandleRevoke(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
