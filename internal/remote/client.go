package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"storemirror/internal/config"
	"storemirror/internal/models"

	"github.com/rs/zerolog"
)

// Page is one bounded slice of a remote paginated collection.
type Page struct {
	Records     []json.RawMessage
	CurrentPage int
	TotalPages  int
	HasNextPage bool
}

// Client talks to the commerce platform. Authentication is cached through an
// injectable TokenCache; no retries happen here, callers own retry policy.
type Client struct {
	baseURL    string
	email      string
	password   string
	httpClient *http.Client
	cache      TokenCache
	logger     *zerolog.Logger
}

type loginResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Token     string `json:"token"`
		ExpiresIn int    `json:"expires_in"`
	} `json:"data"`
	Message string `json:"message"`
}

type pageResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Items       []json.RawMessage `json:"items"`
		CurrentPage int               `json:"current_page"`
		TotalPages  int               `json:"total_pages"`
		HasNextPage bool              `json:"has_next_page"`
	} `json:"data"`
	Message string `json:"message"`
}

func NewClient(cfg config.RemoteConfig, cache TokenCache, logger *zerolog.Logger) *Client {
	if cache == nil {
		cache = NewMemoryTokenCache()
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		email:      cfg.Email,
		password:   cfg.Password,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		cache:      cache,
		logger:     logger,
	}
}

// Authenticate returns a usable bearer token, performing the login exchange
// only when the cache has expired. The cached lifetime is the provider's
// stated lifetime minus the safety margin.
func (c *Client) Authenticate(ctx context.Context) (string, error) {
	if token, ok := c.cache.Get(); ok {
		return token, nil
	}

	body, err := json.Marshal(map[string]string{"email": c.email, "password": c.password})
	if err != nil {
		return "", fmt.Errorf("encode login body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/auth/login", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &FetchError{Op: "login", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &FetchError{Op: "login", StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	var login loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&login); err != nil {
		return "", &FetchError{Op: "login", Err: fmt.Errorf("decode response: %w", err)}
	}
	if !login.Success || login.Data.Token == "" {
		return "", &FetchError{Op: "login", Err: fmt.Errorf("provider rejected login: %s", login.Message)}
	}

	lifetime := time.Duration(login.Data.ExpiresIn) * time.Second
	ttl := lifetime - models.TokenSafetyMargin
	if ttl <= 0 {
		// Degenerate lifetime from the provider; keep the token for one call.
		ttl = time.Second
	}
	c.cache.Set(login.Data.Token, ttl)
	c.logger.Debug().Dur("ttl", ttl).Msg("remote token refreshed")

	return login.Data.Token, nil
}

// FetchPage fetches one page of a named collection. It re-authenticates
// through the cache, so an expiry-forced re-login is invisible to callers.
func (c *Client) FetchPage(ctx context.Context, collection string, page, pageSize int, filters map[string]string) (*Page, error) {
	token, err := c.Authenticate(ctx)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("page_size", strconv.Itoa(pageSize))
	for k, v := range filters {
		query.Set(k, v)
	}

	endpoint := fmt.Sprintf("%s/api/%s?%s", c.baseURL, collection, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build page request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{Op: "fetch", Collection: collection, Page: page, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{Op: "fetch", Collection: collection, Page: page, StatusCode: resp.StatusCode,
			Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	var body pageResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &FetchError{Op: "fetch", Collection: collection, Page: page, Err: fmt.Errorf("decode response: %w", err)}
	}
	if !body.Success {
		return nil, &FetchError{Op: "fetch", Collection: collection, Page: page,
			Err: fmt.Errorf("provider reported failure: %s", body.Message)}
	}

	return &Page{
		Records:     body.Data.Items,
		CurrentPage: body.Data.CurrentPage,
		TotalPages:  body.Data.TotalPages,
		HasNextPage: body.Data.HasNextPage,
	}, nil
}
