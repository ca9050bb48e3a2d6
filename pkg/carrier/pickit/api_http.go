package pickit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// HTTPAPIClient is the production implementation of APIClient.
type HTTPAPIClient struct {
	baseURL    string
	apiKey     string
	token      string
	httpClient *http.Client
}

// HTTPAPIClientConfig holds configuration for the HTTP client.
type HTTPAPIClientConfig struct {
	BaseURL string
	APIKey  string
	Token   string
	Timeout time.Duration
}

// NewHTTPAPIClient creates a new HTTP-based API client.
func NewHTTPAPIClient(cfg HTTPAPIClientConfig) *HTTPAPIClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &HTTPAPIClient{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Budget calls POST /apiV2/budget.
func (c *HTTPAPIClient) Budget(ctx context.Context, req *BudgetRequest) (*BudgetResponse, error) {
	var out BudgetResponse
	if err := c.do(ctx, http.MethodPost, "/apiV2/budget", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateTransaction calls POST /apiV2/transaction.
func (c *HTTPAPIClient) CreateTransaction(ctx context.Context, req *TransactionRequest) (*TransactionResponse, error) {
	var out TransactionResponse
	if err := c.do(ctx, http.MethodPost, "/apiV2/transaction", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetTracking calls GET /apiV2/transaction/{id}/tracking.
func (c *HTTPAPIClient) GetTracking(ctx context.Context, transactionID string) (*TrackingResponse, error) {
	var out TrackingResponse
	path := "/apiV2/transaction/" + url.PathEscape(transactionID) + "/tracking"
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CancelTransaction calls POST /apiV2/transaction/{id}/cancel.
func (c *HTTPAPIClient) CancelTransaction(ctx context.Context, transactionID string) (*CancelResponse, error) {
	var out CancelResponse
	path := "/apiV2/transaction/" + url.PathEscape(transactionID) + "/cancel"
	if err := c.do(ctx, http.MethodPost, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPAPIClient) do(ctx context.Context, method, path string, body, out interface{}) error {
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
	req.Header.Set("apiKey", c.apiKey)
	req.Header.Set("token", c.token)

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

	var apiErr APIError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Code != "" {
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
