package dhl_test

import (
	"context"
	"testing"

	"github.com/oscar-alvarez-quenty/Quenty-sub001/pkg/carrier"
	"github.com/oscar-alvarez-quenty/Quenty-sub001/pkg/carrier/dhl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

func newTestClient(mockClient *dhl.MockAPIClient) *dhl.Client {
	logger := otelzap.New(zap.NewNop())
	return dhl.NewWithAPIClient(
		dhl.Config{AccountNumber: "123456789"},
		mockClient,
		logger,
		nil,
	)
}

func quoteRequest() *carrier.QuoteRequest {
	return &carrier.QuoteRequest{
		Origin: carrier.Address{
			Name:        "Sender",
			Line1:       "Av. Insurgentes Sur 100",
			City:        "Mexico City",
			PostalCode:  "03100",
			CountryCode: "MX",
		},
		Destination: carrier.Address{
			Name:        "Receiver",
			Line1:       "Calle 100 #19-61",
			City:        "Bogota",
			PostalCode:  "110111",
			CountryCode: "CO",
		},
		Packages: []carrier.Package{
			{Length: 30, Width: 20, Height: 10, Weight: 2.5},
		},
	}
}

func TestClient_Quote_Success(t *testing.T) {
	mockAPI := dhl.NewMockAPIClient()
	client := newTestClient(mockAPI)

	quote, err := client.Quote(context.Background(), quoteRequest())

	require.NoError(t, err)
	assert.Equal(t, "dhl", quote.CarrierCode)
	assert.Greater(t, quote.Cost.Total.Amount, 0.0)
	assert.Greater(t, quote.TransitDays, 0)
	assert.NotEmpty(t, quote.UpstreamRef)

	// No service level requested: the cheapest product wins.
	assert.Equal(t, "DHL Economy Select", quote.ServiceName)
}

func TestClient_Quote_ServiceLevelSelectsProduct(t *testing.T) {
	mockAPI := dhl.NewMockAPIClient()
	client := newTestClient(mockAPI)

	req := quoteRequest()
	req.ServiceLevel = carrier.ServiceExpress

	quote, err := client.Quote(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, "DHL Express Worldwide", quote.ServiceName)
	assert.Equal(t, carrier.ServiceExpress, quote.ServiceLevel)
}

func TestClient_Quote_APIError(t *testing.T) {
	mockAPI := dhl.NewMockAPIClient()
	mockAPI.SimulateErrors = true
	client := newTestClient(mockAPI)

	_, err := client.Quote(context.Background(), quoteRequest())

	require.Error(t, err)
	assert.True(t, carrier.IsKind(err, carrier.KindUpstream))
}

func TestClient_Quote_NoProducts(t *testing.T) {
	mockAPI := dhl.NewMockAPIClient()
	mockAPI.OnGetRates = func(ctx context.Context, req *dhl.RatesRequest) (*dhl.RatesResponse, error) {
		return &dhl.RatesResponse{}, nil
	}
	client := newTestClient(mockAPI)

	_, err := client.Quote(context.Background(), quoteRequest())

	require.Error(t, err)
	assert.True(t, carrier.IsKind(err, carrier.KindNoService))
}

func TestClient_Quote_AuthError(t *testing.T) {
	mockAPI := dhl.NewMockAPIClient()
	mockAPI.OnGetRates = func(ctx context.Context, req *dhl.RatesRequest) (*dhl.RatesResponse, error) {
		return nil, &dhl.APIError{Status: 401, Code: "UNAUTHORIZED", Detail: "invalid api key"}
	}
	client := newTestClient(mockAPI)

	_, err := client.Quote(context.Background(), quoteRequest())

	require.Error(t, err)
	assert.True(t, carrier.IsKind(err, carrier.KindAuthentication))

	var ce *carrier.Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 401, ce.StatusCode)
}

func TestClient_CreateShipment_Success(t *testing.T) {
	mockAPI := dhl.NewMockAPIClient()
	client := newTestClient(mockAPI)

	quote, err := client.Quote(context.Background(), quoteRequest())
	require.NoError(t, err)

	shipment, err := client.CreateShipment(context.Background(), &carrier.ShipmentRequest{
		Quote:       quote,
		Origin:      quoteRequest().Origin,
		Destination: quoteRequest().Destination,
		Packages:    quoteRequest().Packages,
		Reference:   "order-4711",
	})

	require.NoError(t, err)
	assert.Equal(t, "dhl", shipment.CarrierCode)
	assert.NotEmpty(t, shipment.TrackingID)
	assert.NotEmpty(t, shipment.LabelReference)
}

func TestClient_Track_Success(t *testing.T) {
	mockAPI := dhl.NewMockAPIClient()
	client := newTestClient(mockAPI)

	events, err := client.Track(context.Background(), "JD0123456789")

	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "PU", events[0].Status)
	assert.False(t, events[0].Timestamp.IsZero())
}

func TestClient_Cancel(t *testing.T) {
	mockAPI := dhl.NewMockAPIClient()
	client := newTestClient(mockAPI)

	assert.NoError(t, client.Cancel(context.Background(), "JD0123456789"))
}

func TestClient_Cancel_InTransit(t *testing.T) {
	mockAPI := dhl.NewMockAPIClient()
	mockAPI.OnCancelShipment = func(ctx context.Context, trackingNumber string) (*dhl.CancelResponse, error) {
		return &dhl.CancelResponse{TrackingNumber: trackingNumber, Status: "in_transit"}, nil
	}
	client := newTestClient(mockAPI)

	err := client.Cancel(context.Background(), "JD0123456789")

	require.Error(t, err)
	assert.True(t, carrier.IsKind(err, carrier.KindNotCancellable))
}

func TestClient_ValidateAddress(t *testing.T) {
	mockAPI := dhl.NewMockAPIClient()
	client := newTestClient(mockAPI)

	addr := carrier.Address{
		Name:        "Receiver",
		Line1:       "Calle 100 #19-61",
		City:        "Bogota",
		PostalCode:  "110111",
		CountryCode: "CO",
		Phone:       "+57 300 000 0000",
	}
	normalized, err := client.ValidateAddress(context.Background(), addr)

	require.NoError(t, err)
	assert.Equal(t, addr.City, normalized.City)
	// Contact fields survive normalization.
	assert.Equal(t, addr.Name, normalized.Name)
	assert.Equal(t, addr.Phone, normalized.Phone)
}

func TestClient_ValidateAddress_Invalid(t *testing.T) {
	mockAPI := dhl.NewMockAPIClient()
	client := newTestClient(mockAPI)

	_, err := client.ValidateAddress(context.Background(), carrier.Address{City: "Bogota"})

	require.Error(t, err)
	assert.True(t, carrier.IsKind(err, carrier.KindInvalidAddress))
}

func TestDecodeWebhook(t *testing.T) {
	payload := []byte(`{
		"eventId": "evt-dhl-001",
		"shipmentTrackingNumber": "JD0123456789",
		"statusCode": "WC",
		"description": "With delivery courier",
		"serviceArea": "BOG",
		"timestamp": "2025-06-01T10:30:00Z"
	}`)

	update, err := dhl.DecodeWebhook(payload)

	require.NoError(t, err)
	assert.Equal(t, "dhl", update.CarrierCode)
	assert.Equal(t, "evt-dhl-001", update.EventID)
	assert.Equal(t, "JD0123456789", update.TrackingID)
	assert.Equal(t, "WC", update.Status)
	assert.Equal(t, "BOG", update.Location)
	assert.Equal(t, 2025, update.OccurredAt.Year())
}

func TestDecodeWebhook_MissingEventID(t *testing.T) {
	_, err := dhl.DecodeWebhook([]byte(`{"statusCode": "WC"}`))
	assert.Error(t, err)
}
