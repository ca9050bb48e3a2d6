package fedex

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

// HTTPAPIClient is the production APIClient for the FedEx gateway. It owns
// the OAuth client-credentials flow and refreshes the bearer token before
// expiry.
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

// GetRates calls POST /rate/v1/rates/quotes.
func (c *HTTPAPIClient) GetRates(ctx context.Context, req *RateRequest) (*RateReply, error) {
	var out RateReply
	if err := c.do(ctx, http.MethodPost, "/rate/v1/rates/quotes", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateShipment calls POST /ship/v1/shipments.
func (c *HTTPAPIClient) CreateShipment(ctx context.Context, req *ShipRequest) (*ShipReply, error) {
	var out ShipReply
	if err := c.do(ctx, http.MethodPost, "/ship/v1/shipments", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetTracking calls GET /track/v1/trackingnumbers/{trackingNumber}.
func (c *HTTPAPIClient) GetTracking(ctx context.Context, trackingNumber string) (*TrackReply, error) {
	var out TrackReply
	path := "/track/v1/trackingnumbers/" + url.PathEscape(trackingNumber)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CancelShipment calls PUT /ship/v1/shipments/cancel.
func (c *HTTPAPIClient) CancelShipment(ctx context.Context, trackingNumber string) (*CancelReply, error) {
	body := map[string]string{"trackingNumber": trackingNumber}
	var out CancelReply
	if err := c.do(ctx, http.MethodPut, "/ship/v1/shipments/cancel", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// bearer returns a valid access token, refreshing when within a minute of
// expiry.
func (c *HTTPAPIClient) bearer(ctx context.Context) (string, error) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()

	if c.token != "" && time.Until(c.tokenExpiry) > time.Minute {
		return c.token, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("creating token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", &APIError{Status: resp.StatusCode, Code: "AUTH_FAILED", Message: string(body)}
	}

	var token tokenReply
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", fmt.Errorf("decoding token response: %w", err)
	}

	c.token = token.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
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

	// FedEx nests errors under an "errors" array.
	var envelope struct {
		Errors []APIError `json:"errors"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Errors) > 0 {
		apiErr := envelope.Errors[0]
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
