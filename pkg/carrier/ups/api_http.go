package ups

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// HTTPAPIClient is the production APIClient for the UPS gateway, using the
// OAuth client-credentials flow.
type HTTPAPIClient struct {
	baseURL      string
	clientID     string
	clientSecret string
	httpClient   *http.Client

	tokenMu     sync.Mutex
	token       string
	tokenExpiry time.Time
}

// HTTPAPIClientConfig holds configuration for the HTTP client.
type HTTPAPIClientConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

// NewHTTPAPIClient creates a new HTTP-based API client.
func NewHTTPAPIClient(cfg HTTPAPIClientConfig) *HTTPAPIClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &HTTPAPIClient{
		baseURL:      cfg.BaseURL,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		httpClient:   &http.Client{Timeout: timeout},
	}
}

// Rate calls POST /api/rating/v2409/Shop.
func (c *HTTPAPIClient) Rate(ctx context.Context, req *RateRequest) (*RateResponse, error) {
	var out RateResponse
	if err := c.do(ctx, http.MethodPost, "/api/rating/v2409/Shop", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Ship calls POST /api/shipments/v2409/ship.
func (c *HTTPAPIClient) Ship(ctx context.Context, req *ShipRequest) (*ShipResponse, error) {
	var out ShipResponse
	if err := c.do(ctx, http.MethodPost, "/api/shipments/v2409/ship", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Track calls GET /api/track/v1/details/{trackingNumber}.
func (c *HTTPAPIClient) Track(ctx context.Context, trackingNumber string) (*TrackResponse, error) {
	var out TrackResponse
	path := "/api/track/v1/details/" + url.PathEscape(trackingNumber)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ValidateAddress calls POST /api/addressvalidation/v2/validate.
func (c *HTTPAPIClient) ValidateAddress(ctx context.Context, req *XAVRequest) (*XAVResponse, error) {
	var out XAVResponse
	if err := c.do(ctx, http.MethodPost, "/api/addressvalidation/v2/validate", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPAPIClient) bearer(ctx context.Context) (string, error) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()

	if c.token != "" && time.Until(c.tokenExpiry) > time.Minute {
		return c.token, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/security/v1/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("creating token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.clientID, c.clientSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", &APIError{Status: resp.StatusCode, Code: "AUTH_FAILED", Message: string(body)}
	}

	var token struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   string `json:"expires_in"` // UPS returns seconds as a string
	}
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", fmt.Errorf("decoding token response: %w", err)
	}

	ttl := 50 * time.Minute
	if secs, err := time.ParseDuration(token.ExpiresIn + "s"); err == nil {
		ttl = secs
	}
	c.token = token.AccessToken
	c.tokenExpiry = time.Now().Add(ttl)
	return c.token, nil
}

func (c *HTTPAPIClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	token, err := c.bearer(ctx)
	if err != nil {
		return err
	}

	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.parseError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func (c *HTTPAPIClient) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var envelope struct {
		Response struct {
			Errors []APIError `json:"errors"`
		} `json:"response"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Response.Errors) > 0 {
		apiErr := envelope.Response.Errors[0]
		apiErr.Status = resp.StatusCode
		return &apiErr
	}
	return &APIError{
		Status:  resp.StatusCode,
		Code:    fmt.Sprintf("HTTP_%d", resp.StatusCode),
		Message: string(body),
	}
}

var _ APIClient = (*HTTPAPIClient)(nil)
