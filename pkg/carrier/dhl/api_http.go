package dhl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPAPIClient is the production APIClient talking to the DHL gateway.
type HTTPAPIClient struct {
	baseURL    string
	apiKey     string
	apiSecret  string
	httpClient *http.Client
}

// HTTPAPIClientConfig holds configuration for the HTTP client.
type HTTPAPIClientConfig struct {
	BaseURL   string
	APIKey    string
	APISecret string
	Timeout   time.Duration
}

// NewHTTPAPIClient creates a new HTTP-based API client.
func NewHTTPAPIClient(cfg HTTPAPIClientConfig) *HTTPAPIClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &HTTPAPIClient{
		baseURL:   cfg.BaseURL,
		apiKey:    cfg.APIKey,
		apiSecret: cfg.APISecret,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// GetRates calls POST /rates.
func (c *HTTPAPIClient) GetRates(ctx context.Context, req *RatesRequest) (*RatesResponse, error) {
	var out RatesResponse
	if err := c.do(ctx, http.MethodPost, "/rates", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateShipment calls POST /shipments.
func (c *HTTPAPIClient) CreateShipment(ctx context.Context, req *ShipmentRequest) (*ShipmentResponse, error) {
	var out ShipmentResponse
	if err := c.do(ctx, http.MethodPost, "/shipments", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetTracking calls GET /shipments/{trackingNumber}/tracking.
func (c *HTTPAPIClient) GetTracking(ctx context.Context, trackingNumber string) (*TrackingResponse, error) {
	var out TrackingResponse
	path := fmt.Sprintf("/shipments/%s/tracking", trackingNumber)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CancelShipment calls DELETE /shipments/{trackingNumber}.
func (c *HTTPAPIClient) CancelShipment(ctx context.Context, trackingNumber string) (*CancelResponse, error) {
	var out CancelResponse
	path := fmt.Sprintf("/shipments/%s", trackingNumber)
	if err := c.do(ctx, http.MethodDelete, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ValidateAddress calls POST /address-validate.
func (c *HTTPAPIClient) ValidateAddress(ctx context.Context, req *AddressRequest) (*AddressResponse, error) {
	var out AddressResponse
	if err := c.do(ctx, http.MethodPost, "/address-validate", req, &out); err != nil {
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
	req.Header.Set("Accept", "application/json")
	req.Header.Set("DHL-API-Key", c.apiKey)
	req.Header.Set("DHL-API-Secret", c.apiSecret)

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
		Status: resp.StatusCode,
		Code:   fmt.Sprintf("HTTP_%d", resp.StatusCode),
		Detail: string(body),
	}
}

var _ APIClient = (*HTTPAPIClient)(nil)
