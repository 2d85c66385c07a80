package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lamnguyen-dev/pharmapos-backend/pkg/config"
	pkgerrors "github.com/lamnguyen-dev/pharmapos-backend/pkg/errors"
	"github.com/lamnguyen-dev/pharmapos-backend/pkg/logger"
)

func testGatewayLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "gateway-test", Output: io.Discard})
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()

	client, err := NewClient(context.Background(), config.GatewayConfig{
		BaseURL:     baseURL,
		PartnerCode: "PHARMA01",
		Secret:      "topsecret",
		CallbackURL: "https://pos.example.com/api/v1/webhooks/payment",
		Timeout:     5 * time.Second,
	}, testGatewayLogger())
	require.NoError(t, err)
	return client
}

func TestNewClientValidatesConfig(t *testing.T) {
	logg := testGatewayLogger()
	ctx := context.Background()

	_, err := NewClient(ctx, config.GatewayConfig{PartnerCode: "P", Secret: "s"}, logg)
	assert.ErrorIs(t, err, errBaseURLRequired)

	_, err = NewClient(ctx, config.GatewayConfig{BaseURL: "https://pay.example.com", Secret: "s"}, logg)
	assert.ErrorIs(t, err, errPartnerCodeRequired)

	_, err = NewClient(ctx, config.GatewayConfig{BaseURL: "https://pay.example.com", PartnerCode: "P"}, logg)
	assert.ErrorIs(t, err, errSecretRequired)

	_, err = NewClient(ctx, config.GatewayConfig{BaseURL: "https://pay.example.com", PartnerCode: "P", Secret: "s"}, nil)
	assert.ErrorIs(t, err, errLoggerRequired)
}

func TestCreatePaymentIntentSignsPayload(t *testing.T) {
	var received intentPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v2/intents", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		_ = json.NewEncoder(w).Encode(IntentResponse{
			PayURL:    "https://pay.example.com/redirect/abc",
			RequestID: received.RequestID,
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	intent, err := client.CreatePaymentIntent(context.Background(), IntentRequest{
		OrderCode: "POS-20260810-0001",
		Amount:    decimal.RequireFromString("62.50"),
		RequestID: "req-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example.com/redirect/abc", intent.PayURL)

	assert.Equal(t, "PHARMA01", received.PartnerCode)
	assert.Equal(t, "62.50", received.Amount)

	// The server-side recomputation must match the sent signature.
	want := received
	want.Signature = ""
	assert.Equal(t, client.Signer().SignIntent(want), received.Signature)
}

func TestCreatePaymentIntentRejectsBadInput(t *testing.T) {
	client := newTestClient(t, "https://pay.example.com")
	ctx := context.Background()

	_, err := client.CreatePaymentIntent(ctx, IntentRequest{Amount: decimal.RequireFromString("1.00")})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = client.CreatePaymentIntent(ctx, IntentRequest{OrderCode: "POS-20260810-0001"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestCreatePaymentIntentGatewayErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.CreatePaymentIntent(context.Background(), IntentRequest{
		OrderCode: "POS-20260810-0002",
		Amount:    decimal.RequireFromString("10.00"),
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestCreatePaymentIntentRejectedResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(IntentResponse{ResultCode: 41, Message: "partner suspended"})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.CreatePaymentIntent(context.Background(), IntentRequest{
		OrderCode: "POS-20260810-0003",
		Amount:    decimal.RequireFromString("10.00"),
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}
