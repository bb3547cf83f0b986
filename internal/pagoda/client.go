package pagoda

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"mcp-pagoda/pkg/logging"
)

const (
	defaultTimeout = 30 * time.Second
	pageLimit      = 100
)

// CredentialFunc supplies the Pagoda token to present on a request. It is
// called once per HTTP request.
type CredentialFunc func(ctx context.Context) (string, error)

// Client talks to the Pagoda REST API.
type Client struct {
	endpoint   string
	credential CredentialFunc
	httpClient *http.Client
}

// NewClient creates a Pagoda client for the given base endpoint URL.
func NewClient(endpoint string, credential CredentialFunc) *Client {
	return &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		credential: credential,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

// APIError reports a non-200 response from the Pagoda API.
type APIError struct {
	Path       string
	StatusCode int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("pagoda request failed: %s: status %d", e.Path, e.StatusCode)
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, body, out interface{}) error {
	token, err := c.credential(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve pagoda credential: %w", err)
	}

	u := c.endpoint + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json;charset=utf-8")
	req.Header.Set("Authorization", "Token "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("pagoda request failed: %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logging.Warn("Pagoda", "Request %s %s returned status %d", method, path, resp.StatusCode)
		return &APIError{Path: path, StatusCode: resp.StatusCode}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response from %s: %w", path, err)
		}
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	return c.do(ctx, http.MethodGet, path, params, nil, out)
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	return c.do(ctx, http.MethodPost, path, nil, body, out)
}

type modelPage struct {
	Next    *string `json:"next"`
	Results []Model `json:"results"`
}

type itemPage struct {
	Next    *string `json:"next"`
	Results []Item  `json:"results"`
}

// ListModels returns all models whose name matches the search string,
// following limit/offset pagination to the end.
func (c *Client) ListModels(ctx context.Context, search string) ([]Model, error) {
	var models []Model
	offset := 0
	for {
		params := url.Values{
			"search": {search},
			"limit":  {strconv.Itoa(pageLimit)},
			"offset": {strconv.Itoa(offset)},
		}
		var page modelPage
		if err := c.get(ctx, "/entity/api/v2/", params, &page); err != nil {
			return nil, err
		}
		models = append(models, page.Results...)
		if page.Next == nil {
			return models, nil
		}
		offset += pageLimit
	}
}

// ModelIDByName resolves a model name to its ID via an exact match on the
// search results.
func (c *Client) ModelIDByName(ctx context.Context, name string) (int, error) {
	models, err := c.ListModels(ctx, name)
	if err != nil {
		return 0, err
	}
	for _, m := range models {
		if m.Name == name {
			return m.ID, nil
		}
	}
	return 0, fmt.Errorf("model %q not found", name)
}

// GetModelDetail returns a model and its attribute declarations.
func (c *Client) GetModelDetail(ctx context.Context, modelID int) (*ModelDetail, error) {
	var detail ModelDetail
	if err := c.get(ctx, fmt.Sprintf("/entity/api/v2/%d/", modelID), nil, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ListItems returns all active items of a model whose name matches the
// search string, following page-number pagination to the end.
func (c *Client) ListItems(ctx context.Context, modelID int, search string) ([]Item, error) {
	var items []Item
	page := 1
	for {
		params := url.Values{
			"search":    {search},
			"is_active": {"true"},
			"page":      {strconv.Itoa(page)},
		}
		var result itemPage
		if err := c.get(ctx, fmt.Sprintf("/entity/api/v2/%d/entries/", modelID), params, &result); err != nil {
			return nil, err
		}
		items = append(items, result.Results...)
		if result.Next == nil {
			return items, nil
		}
		page++
	}
}

// GetItemDetail returns an item and its attribute values.
func (c *Client) GetItemDetail(ctx context.Context, itemID int) (*ItemDetail, error) {
	var detail ItemDetail
	if err := c.get(ctx, fmt.Sprintf("/entry/api/v2/%d/", itemID), nil, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// SearchItems returns items matching the query by partial name match.
func (c *Client) SearchItems(ctx context.Context, query string) ([]Item, error) {
	var items []Item
	if err := c.get(ctx, "/entry/api/v2/search/", url.Values{"query": {query}}, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// advancedSearchBody is the wire form of an advanced search request.
type advancedSearchBody struct {
	Entities  []int        `json:"entities"`
	Attrinfo  []AttrFilter `json:"attrinfo"`
	HintEntry struct {
		FilterKey int    `json:"filter_key"`
		Keyword   string `json:"keyword"`
	} `json:"hint_entry"`
	HasReferral  bool   `json:"has_referral"`
	ReferralName string `json:"referral_name"`
	IsOutputAll  bool   `json:"is_output_all"`
	EntryLimit   int    `json:"entry_limit"`
	EntryOffset  int    `json:"entry_offset"`
}

// AdvancedSearch runs an attribute-filtered search across models.
func (c *Client) AdvancedSearch(ctx context.Context, req *AdvancedSearchRequest) (*AdvancedSearchResult, error) {
	body := advancedSearchBody{
		Entities:     req.ModelIDs,
		Attrinfo:     req.Attrs,
		HasReferral:  req.HasReferral,
		ReferralName: req.ReferralName,
		EntryLimit:   req.Limit,
		EntryOffset:  req.Offset,
	}
	if body.Attrinfo == nil {
		body.Attrinfo = []AttrFilter{}
	}
	if body.EntryLimit == 0 {
		body.EntryLimit = pageLimit
	}
	body.HintEntry.FilterKey = req.ItemFilterKey
	body.HintEntry.Keyword = req.ItemKeyword

	var result AdvancedSearchResult
	if err := c.post(ctx, "/entry/api/v2/advanced_search/", &body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// RouterTopology returns the raw router topology document from the custom
// network API.
func (c *Client) RouterTopology(ctx context.Context) (json.RawMessage, error) {
	var topology json.RawMessage
	if err := c.get(ctx, "/api/v2/custom/network/get_router_topology/", nil, &topology); err != nil {
		return nil, err
	}
	return topology, nil
}

// IntrospectToken reports whether a Pagoda API token is valid. The token
// under test authenticates the introspection call itself, and the token
// echoed back in the "key" field must match it.
func (c *Client) IntrospectToken(ctx context.Context, token string) (bool, error) {
	u := c.endpoint + "/user/api/v2/token/"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("token introspection failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, nil
	}
	var body struct {
		Key string `json:"key"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, nil
	}
	return body.Key == token, nil
}
