package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"shopfront/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCardGateway_Initiate_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/charges", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var charge cardChargeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&charge))
		assert.Equal(t, "tok_visa", charge.Token)
		assert.Equal(t, 150.0, charge.Amount)
		assert.Equal(t, "KES", charge.Currency)

		json.NewEncoder(w).Encode(cardChargeResponse{ID: "ch_123", Status: "succeeded"})
	}))
	defer server.Close()

	gateway := NewCardGateway(server.URL, "test-key", 5*time.Second, zerolog.Nop())

	result, err := gateway.Initiate(context.Background(), InitiateRequest{
		Method:    model.MethodCard,
		Amount:    150.0,
		Currency:  "KES",
		Reference: "ORD-00000001-001",
		CardToken: "tok_visa",
	})

	require.NoError(t, err)
	assert.Equal(t, ResultCompleted, result.Status)
	assert.Equal(t, "ch_123", result.ProviderTxnID)
	assert.Empty(t, result.CorrelationKey)
}

func TestCardGateway_Initiate_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		json.NewEncoder(w).Encode(cardChargeResponse{Message: "card declined"})
	}))
	defer server.Close()

	gateway := NewCardGateway(server.URL, "test-key", 5*time.Second, zerolog.Nop())

	_, err := gateway.Initiate(context.Background(), InitiateRequest{
		Amount: 150.0, CardToken: "tok_declined",
	})

	var payErr *model.PaymentError
	require.ErrorAs(t, err, &payErr)
	assert.Equal(t, model.ErrCodeProviderRejected, payErr.Code)
	assert.Equal(t, "card declined", payErr.Reason)
	assert.False(t, payErr.Retryable)
}

func TestCardGateway_Initiate_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	gateway := NewCardGateway(server.URL, "test-key", 5*time.Second, zerolog.Nop())

	_, err := gateway.Initiate(context.Background(), InitiateRequest{
		Amount: 150.0, CardToken: "tok_visa",
	})

	var payErr *model.PaymentError
	require.ErrorAs(t, err, &payErr)
	assert.Equal(t, model.ErrCodeProviderUnavailable, payErr.Code)
	assert.True(t, payErr.Retryable)
}

func TestCardGateway_Initiate_Unreachable(t *testing.T) {
	// A closed server simulates a network failure.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	gateway := NewCardGateway(server.URL, "test-key", time.Second, zerolog.Nop())

	_, err := gateway.Initiate(context.Background(), InitiateRequest{
		Amount: 150.0, CardToken: "tok_visa",
	})

	var payErr *model.PaymentError
	require.ErrorAs(t, err, &payErr)
	assert.Equal(t, model.ErrCodeProviderUnavailable, payErr.Code)
	assert.True(t, payErr.Retryable)
}

func TestCardGateway_Initiate_InvalidInput(t *testing.T) {
	gateway := NewCardGateway("http://unused.example", "test-key", time.Second, zerolog.Nop())

	_, err := gateway.Initiate(context.Background(), InitiateRequest{Amount: 150.0})
	var payErr *model.PaymentError
	require.ErrorAs(t, err, &payErr)
	assert.Equal(t, model.ErrCodeInvalidPaymentInput, payErr.Code)

	_, err = gateway.Initiate(context.Background(), InitiateRequest{Amount: -1, CardToken: "tok_visa"})
	require.ErrorAs(t, err, &payErr)
	assert.Equal(t, model.ErrCodeInvalidPaymentInput, payErr.Code)
}
