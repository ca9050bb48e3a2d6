package fedex_test

import (
	"context"
	"testing"

	"github.com/oscar-alvarez-quenty/Quenty-sub001/pkg/carrier"
	"github.com/oscar-alvarez-quenty/Quenty-sub001/pkg/carrier/fedex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

func newTestClient(mockClient *fedex.MockAPIClient) *fedex.Client {
	logger := otelzap.New(zap.NewNop())
	return fedex.NewWithAPIClient(
		fedex.Config{AccountNumber: "740561073"},
		mockClient,
		logger,
		nil,
	)
}

func quoteRequest() *carrier.QuoteRequest {
	return &carrier.QuoteRequest{
		Origin: carrier.Address{
			Line1:       "Av. Constitucion 400",
			City:        "Monterrey",
			PostalCode:  "64000",
			CountryCode: "MX",
		},
		Destination: carrier.Address{
			Line1:        "600 Congress Ave",
			City:         "Austin",
			ProvinceCode: "TX",
			PostalCode:   "78701",
			CountryCode:  "US",
		},
		Packages: []carrier.Package{
			{Length: 25, Width: 15, Height: 10, Weight: 1.8},
		},
	}
}

func TestClient_Quote_Success(t *testing.T) {
	mockAPI := fedex.NewMockAPIClient()
	client := newTestClient(mockAPI)

	quote, err := client.Quote(context.Background(), quoteRequest())

	require.NoError(t, err)
	assert.Equal(t, "fedex", quote.CarrierCode)
	// Cheapest of the two mock services.
	assert.Equal(t, "FedEx International Economy", quote.ServiceName)
	assert.Equal(t, 36.30, quote.Cost.Total.Amount)
	assert.Equal(t, 4, quote.TransitDays)
	assert.NotEmpty(t, quote.UpstreamRef)
}

func TestClient_Quote_PrioritySelected(t *testing.T) {
	mockAPI := fedex.NewMockAPIClient()
	client := newTestClient(mockAPI)

	req := quoteRequest()
	req.ServiceLevel = carrier.ServicePriority

	quote, err := client.Quote(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, "FedEx International Priority", quote.ServiceName)
	assert.Equal(t, carrier.ServicePriority, quote.ServiceLevel)
	// Guaranteed services carry the higher reliability estimate.
	assert.Equal(t, 0.93, quote.Confidence)
}

func TestClient_Quote_APIError(t *testing.T) {
	mockAPI := fedex.NewMockAPIClient()
	mockAPI.SimulateErrors = true
	client := newTestClient(mockAPI)

	_, err := client.Quote(context.Background(), quoteRequest())

	require.Error(t, err)
	assert.True(t, carrier.IsKind(err, carrier.KindUpstream))
}

func TestClient_Quote_ErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  *fedex.APIError
		kind carrier.Kind
	}{
		{
			name: "auth failure",
			err:  &fedex.APIError{Status: 401, Code: "AUTH_FAILED", Message: "token expired"},
			kind: carrier.KindAuthentication,
		},
		{
			name: "bad postal code",
			err:  &fedex.APIError{Status: 400, Code: "DESTINATION.POSTALCODE.INVALID", Message: "postal code not found"},
			kind: carrier.KindInvalidAddress,
		},
		{
			name: "no service",
			err:  &fedex.APIError{Status: 400, Code: "SERVICE.UNAVAILABLE.FOR.DESTINATION", Message: "no service"},
			kind: carrier.KindNoService,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mockAPI := fedex.NewMockAPIClient()
			mockAPI.OnGetRates = func(ctx context.Context, req *fedex.RateRequest) (*fedex.RateReply, error) {
				return nil, tc.err
			}
			client := newTestClient(mockAPI)

			_, err := client.Quote(context.Background(), quoteRequest())

			require.Error(t, err)
			assert.True(t, carrier.IsKind(err, tc.kind))
		})
	}
}

func TestClient_Quote_NoServices(t *testing.T) {
	mockAPI := fedex.NewMockAPIClient()
	mockAPI.OnGetRates = func(ctx context.Context, req *fedex.RateRequest) (*fedex.RateReply, error) {
		return &fedex.RateReply{QuoteID: "fdx-empty"}, nil
	}
	client := newTestClient(mockAPI)

	_, err := client.Quote(context.Background(), quoteRequest())

	require.Error(t, err)
	assert.True(t, carrier.IsKind(err, carrier.KindNoService))
}

func TestClient_CreateShipment_Success(t *testing.T) {
	mockAPI := fedex.NewMockAPIClient()
	client := newTestClient(mockAPI)

	quote, err := client.Quote(context.Background(), quoteRequest())
	require.NoError(t, err)

	shipment, err := client.CreateShipment(context.Background(), &carrier.ShipmentRequest{
		Quote:       quote,
		Origin:      quoteRequest().Origin,
		Destination: quoteRequest().Destination,
		Packages:    quoteRequest().Packages,
		Reference:   "order-9001",
	})

	require.NoError(t, err)
	assert.Equal(t, "fedex", shipment.CarrierCode)
	assert.NotEmpty(t, shipment.TrackingID)
	assert.NotEmpty(t, shipment.LabelReference)
	assert.Equal(t, carrier.ServiceEconomy, shipment.ServiceLevel)
}

func TestClient_Track_Success(t *testing.T) {
	mockAPI := fedex.NewMockAPIClient()
	client := newTestClient(mockAPI)

	events, err := client.Track(context.Background(), "794658100042")

	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "PU", events[0].Status)
	assert.Equal(t, "MONTERREY", events[0].Location)
}

func TestClient_Cancel(t *testing.T) {
	mockAPI := fedex.NewMockAPIClient()
	client := newTestClient(mockAPI)

	assert.NoError(t, client.Cancel(context.Background(), "794658100042"))
}

func TestClient_Cancel_Rejected(t *testing.T) {
	mockAPI := fedex.NewMockAPIClient()
	mockAPI.OnCancelShipment = func(ctx context.Context, trackingNumber string) (*fedex.CancelReply, error) {
		return &fedex.CancelReply{TrackingNumber: trackingNumber, CancelledShipment: false}, nil
	}
	client := newTestClient(mockAPI)

	err := client.Cancel(context.Background(), "794658100042")

	require.Error(t, err)
	assert.True(t, carrier.IsKind(err, carrier.KindNotCancellable))
}
