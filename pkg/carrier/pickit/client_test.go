package pickit_test

import (
	"context"
	"testing"

	"github.com/oscar-alvarez-quenty/Quenty-sub001/pkg/carrier"
	"github.com/oscar-alvarez-quenty/Quenty-sub001/pkg/carrier/pickit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

func newTestClient(mockClient *pickit.MockAPIClient) *pickit.Client {
	logger := otelzap.New(zap.NewNop())
	return pickit.NewWithAPIClient(pickit.Config{}, mockClient, logger, nil)
}

func quoteRequest() *carrier.QuoteRequest {
	return &carrier.QuoteRequest{
		Origin: carrier.Address{
			Line1:       "Av. Corrientes 1368",
			City:        "Buenos Aires",
			PostalCode:  "C1043",
			CountryCode: "AR",
		},
		Destination: carrier.Address{
			Line1:       "Av. Santa Fe 2450",
			City:        "Buenos Aires",
			PostalCode:  "C1123",
			CountryCode: "AR",
		},
		Packages: []carrier.Package{
			{Length: 20, Width: 15, Height: 10, Weight: 1.2},
		},
	}
}

func TestClient_Quote_Success(t *testing.T) {
	mockAPI := pickit.NewMockAPIClient()
	client := newTestClient(mockAPI)

	quote, err := client.Quote(context.Background(), quoteRequest())

	require.NoError(t, err)
	assert.Equal(t, "pickit", quote.CarrierCode)
	// Point express is the cheaper mock option.
	assert.Equal(t, "Pickit Point Express", quote.ServiceName)
	assert.Equal(t, 7.62, quote.Cost.Total.Amount)
	assert.Equal(t, 2, quote.TransitDays)
	// Point deliveries carry the higher reliability estimate.
	assert.Equal(t, 0.88, quote.Confidence)
	assert.NotEmpty(t, quote.UpstreamRef)
}

func TestClient_Quote_HomeDeliverySelected(t *testing.T) {
	mockAPI := pickit.NewMockAPIClient()
	client := newTestClient(mockAPI)

	req := quoteRequest()
	req.ServiceLevel = carrier.ServiceStandard

	quote, err := client.Quote(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, "Pickit Home Standard", quote.ServiceName)
	assert.Equal(t, carrier.ServiceStandard, quote.ServiceLevel)
	assert.Equal(t, 0.76, quote.Confidence)
}

func TestClient_Quote_ErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  *pickit.APIError
		kind carrier.Kind
	}{
		{
			name: "expired token",
			err:  &pickit.APIError{Status: 401, Code: "UNAUTHORIZED", Message: "token expired"},
			kind: carrier.KindAuthentication,
		},
		{
			name: "bad address",
			err:  &pickit.APIError{Status: 400, Code: "INVALID_ADDRESS", Message: "street not found"},
			kind: carrier.KindInvalidAddress,
		},
		{
			name: "no coverage",
			err:  &pickit.APIError{Status: 400, Code: "NO_COVERAGE", Message: "zone not served"},
			kind: carrier.KindNoService,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mockAPI := pickit.NewMockAPIClient()
			mockAPI.OnBudget = func(ctx context.Context, req *pickit.BudgetRequest) (*pickit.BudgetResponse, error) {
				return nil, tc.err
			}
			client := newTestClient(mockAPI)

			_, err := client.Quote(context.Background(), quoteRequest())

			require.Error(t, err)
			assert.True(t, carrier.IsKind(err, tc.kind))
		})
	}
}

func TestClient_CreateShipment_ReusesBudget(t *testing.T) {
	mockAPI := pickit.NewMockAPIClient()
	var captured *pickit.TransactionRequest
	mockAPI.OnCreateTransaction = func(ctx context.Context, req *pickit.TransactionRequest) (*pickit.TransactionResponse, error) {
		captured = req
		return &pickit.TransactionResponse{
			TransactionID: "trx-1",
			TrackingCode:  "PK0000000001",
			ServiceType:   req.ServiceType,
			TotalPrice:    7.62,
			Currency:      "USD",
		}, nil
	}
	client := newTestClient(mockAPI)

	quote, err := client.Quote(context.Background(), quoteRequest())
	require.NoError(t, err)

	shipment, err := client.CreateShipment(context.Background(), &carrier.ShipmentRequest{
		Quote:       quote,
		Origin:      quoteRequest().Origin,
		Destination: quoteRequest().Destination,
		Packages:    quoteRequest().Packages,
	})

	require.NoError(t, err)
	assert.Equal(t, "PK0000000001", shipment.TrackingID)
	require.NotNil(t, captured)
	// The transaction is booked against the quoted budget.
	assert.Equal(t, quote.UpstreamRef, captured.BudgetID)
}

func TestClient_Track_Success(t *testing.T) {
	mockAPI := pickit.NewMockAPIClient()
	client := newTestClient(mockAPI)

	events, err := client.Track(context.Background(), "PK0000000001")

	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "CREATED", events[0].Status)
	assert.Equal(t, "AT_POINT", events[1].Status)
}

func TestClient_Cancel(t *testing.T) {
	mockAPI := pickit.NewMockAPIClient()
	client := newTestClient(mockAPI)

	assert.NoError(t, client.Cancel(context.Background(), "PK0000000001"))
}

func TestClient_Cancel_AlreadyCollected(t *testing.T) {
	mockAPI := pickit.NewMockAPIClient()
	mockAPI.OnCancelTransaction = func(ctx context.Context, transactionID string) (*pickit.CancelResponse, error) {
		return &pickit.CancelResponse{Cancelled: false, Reason: "parcel already collected"}, nil
	}
	client := newTestClient(mockAPI)

	err := client.Cancel(context.Background(), "PK0000000001")

	require.Error(t, err)
	assert.True(t, carrier.IsKind(err, carrier.KindNotCancellable))
}
