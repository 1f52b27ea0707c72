package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"shopfront/internal/model"

	"github.com/rs/zerolog"
)

// cardGateway charges a tokenized card synchronously. The outcome is
// final when Initiate returns; no callback follows.
type cardGateway struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  zerolog.Logger
}

// NewCardGateway creates the synchronous card adapter.
func NewCardGateway(baseURL, apiKey string, timeout time.Duration, logger zerolog.Logger) Gateway {
	return &cardGateway{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
		logger:  logger.With().Str("gateway", "card").Logger(),
	}
}

type cardChargeRequest struct {
	Token     string  `json:"token"`
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
	Reference string  `json:"reference"`
}

type cardChargeResponse struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Initiate tokenize-and-charges the card. Returns ResultCompleted or
// a payment error; never ResultPending.
func (g *cardGateway) Initiate(ctx context.Context, req InitiateRequest) (Result, error) {
	if req.CardToken == "" {
		return Result{}, model.NewInvalidPaymentInputError("card token is required")
	}
	if req.Amount <= 0 {
		return Result{}, model.NewInvalidPaymentInputError(fmt.Sprintf("invalid amount: %.2f", req.Amount))
	}

	body, err := json.Marshal(cardChargeRequest{
		Token:     req.CardToken,
		Amount:    req.Amount,
		Currency:  req.Currency,
		Reference: req.Reference,
	})
	if err != nil {
		return Result{}, fmt.Errorf("failed to marshal charge request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/charges", bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("failed to build charge request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		g.logger.Error().Err(err).Str("reference", req.Reference).Msg("card provider unreachable")
		return Result{}, model.NewProviderUnavailableError("card provider unreachable")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Result{}, model.NewProviderUnavailableError("failed to read provider response")
	}

	if resp.StatusCode >= 500 {
		g.logger.Warn().
			Int("status", resp.StatusCode).
			Str("reference", req.Reference).
			Msg("card provider error")
		return Result{}, model.NewProviderUnavailableError(fmt.Sprintf("card provider returned %d", resp.StatusCode))
	}

	var charge cardChargeResponse
	if err := json.Unmarshal(respBody, &charge); err != nil {
		return Result{}, model.NewProviderUnavailableError("malformed provider response")
	}

	if resp.StatusCode >= 400 {
		reason := charge.Message
		if reason == "" {
			reason = fmt.Sprintf("card charge rejected (%d)", resp.StatusCode)
		}
		g.logger.Info().
			Int("status", resp.StatusCode).
			Str("reference", req.Reference).
			Str("reason", reason).
			Msg("card charge rejected")
		return Result{}, model.NewProviderRejectedError(reason)
	}

	g.logger.Info().
		Str("reference", req.Reference).
		Str("txn_id", charge.ID).
		Msg("card charge completed")

	return Result{
		Status:        ResultCompleted,
		ProviderTxnID: charge.ID,
	}, nil
}
