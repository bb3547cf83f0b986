package bridge

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"mcp-pagoda/pkg/logging"
)

const idpRequestTimeout = 30 * time.Second

// IdP is the bridge's view of the upstream identity provider.
type IdP interface {
	// AuthCodeURL builds the URL the end user is redirected to.
	AuthCodeURL(state string) string
	// Exchange redeems an authorization code for a token.
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	// Refresh obtains a new token from a refresh token.
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

// IdPConfig configures the OAuth client toward the identity provider.
type IdPConfig struct {
	// TenantID selects the Azure AD tenant for the v2.0 endpoints.
	TenantID     string
	ClientID     string
	ClientSecret string
	// RedirectURL is the bridge's own callback endpoint, as registered
	// with the identity provider.
	RedirectURL string
	Scopes      []string

	// Endpoint overrides the Azure AD endpoints when set. Used for
	// non-Azure providers and in tests.
	Endpoint oauth2.Endpoint
	// HTTPClient overrides the HTTP client used for token requests.
	HTTPClient *http.Client
}

// IdPClient is the concrete IdP implementation backed by oauth2.Config.
type IdPClient struct {
	config     *oauth2.Config
	httpClient *http.Client
}

// NewIdPClient creates an identity-provider client. When no endpoint
// override is given, the Azure AD v2.0 endpoints for the configured tenant
// are used.
func NewIdPClient(cfg IdPConfig) *IdPClient {
	endpoint := cfg.Endpoint
	if endpoint.AuthURL == "" {
		endpoint = oauth2.Endpoint{
			AuthURL:  fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/authorize", cfg.TenantID),
			TokenURL: fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", cfg.TenantID),
		}
	}
	return &IdPClient{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint:     endpoint,
		},
		httpClient: cfg.HTTPClient,
	}
}

// AuthCodeURL builds the authorization URL carrying the given state.
func (c *IdPClient) AuthCodeURL(state string) string {
	return c.config.AuthCodeURL(state, oauth2.SetAuthURLParam("response_mode", "query"))
}

// Exchange redeems an authorization code at the IdP token endpoint.
func (c *IdPClient) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	ctx, cancel := c.requestContext(ctx)
	defer cancel()

	tok, err := c.config.Exchange(ctx, code)
	if err != nil {
		return nil, wrapRetrieveError("exchange", err)
	}
	logging.Debug("Bridge", "Exchanged IdP authorization code, token expires at %s", tok.Expiry.Format(time.RFC3339))
	return tok, nil
}

// Refresh obtains a fresh token from the IdP using a refresh token.
func (c *IdPClient) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	ctx, cancel := c.requestContext(ctx)
	defer cancel()

	src := c.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, wrapRetrieveError("refresh", err)
	}
	// The IdP may omit a rotated refresh token; TokenSource carries the
	// old one forward so the session can refresh again later.
	return tok, nil
}

func (c *IdPClient) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(ctx, idpRequestTimeout)
	if c.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	}
	return ctx, cancel
}

// wrapRetrieveError converts an oauth2 error into an UpstreamError,
// preserving the IdP's status code and error payload when available.
func wrapRetrieveError(op string, err error) error {
	var rErr *oauth2.RetrieveError
	if errors.As(err, &rErr) {
		return &UpstreamError{
			Operation:  op,
			StatusCode: rErr.Response.StatusCode,
			Body:       rErr.Body,
			Err:        err,
		}
	}
	return &UpstreamError{Operation: op, Err: err}
}
