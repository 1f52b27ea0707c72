package payment

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"shopfront/internal/model"

	"github.com/rs/zerolog"
)

// MpesaConfig holds the STK push adapter configuration.
type MpesaConfig struct {
	BaseURL     string
	Shortcode   string
	Passkey     string
	CallbackURL string
	CountryCode string
	MinAmount   float64
	MaxAmount   float64
	Timeout     time.Duration
}

// mpesaGateway issues an STK push to the customer's phone. Initiate
// only confirms the push was accepted; the real outcome arrives later
// on the callback endpoint, correlated by CheckoutRequestID.
type mpesaGateway struct {
	cfg    MpesaConfig
	client *http.Client
	logger zerolog.Logger
	now    func() time.Time
}

// NewMpesaGateway creates the asynchronous mobile money adapter.
func NewMpesaGateway(cfg MpesaConfig, logger zerolog.Logger) Gateway {
	return &mpesaGateway{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.With().Str("gateway", "mpesa").Logger(),
		now:    time.Now,
	}
}

type stkPushRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int    `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

type stkPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	ErrorMessage        string `json:"errorMessage"`
}

// Initiate validates phone and amount, sends the push and returns
// ResultPending with the provider's CheckoutRequestID as correlation
// key.
func (g *mpesaGateway) Initiate(ctx context.Context, req InitiateRequest) (Result, error) {
	phone, err := NormalizePhone(req.PhoneNumber, g.cfg.CountryCode)
	if err != nil {
		return Result{}, err
	}

	if req.Amount < g.cfg.MinAmount || req.Amount > g.cfg.MaxAmount {
		return Result{}, model.NewInvalidPaymentInputError(fmt.Sprintf(
			"amount %.2f outside allowed range [%.0f, %.0f]",
			req.Amount, g.cfg.MinAmount, g.cfg.MaxAmount))
	}

	timestamp := g.now().Format("20060102150405")
	password := base64.StdEncoding.EncodeToString(
		[]byte(g.cfg.Shortcode + g.cfg.Passkey + timestamp))

	body, err := json.Marshal(stkPushRequest{
		BusinessShortCode: g.cfg.Shortcode,
		Password:          password,
		Timestamp:         timestamp,
		TransactionType:   "CustomerPayBillOnline",
		Amount:            int(math.Ceil(req.Amount)),
		PartyA:            phone,
		PartyB:            g.cfg.Shortcode,
		PhoneNumber:       phone,
		CallBackURL:       g.cfg.CallbackURL,
		AccountReference:  req.Reference,
		TransactionDesc:   "Order " + req.Reference,
	})
	if err != nil {
		return Result{}, fmt.Errorf("failed to marshal stk push request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.cfg.BaseURL+"/mpesa/stkpush/v1/processrequest", bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("failed to build stk push request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		g.logger.Error().Err(err).Str("reference", req.Reference).Msg("mpesa unreachable")
		return Result{}, model.NewProviderUnavailableError("mobile money provider unreachable")
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
			Msg("mpesa server error")
		return Result{}, model.NewProviderUnavailableError(fmt.Sprintf("mobile money provider returned %d", resp.StatusCode))
	}

	var push stkPushResponse
	if err := json.Unmarshal(respBody, &push); err != nil {
		return Result{}, model.NewProviderUnavailableError("malformed provider response")
	}

	if resp.StatusCode >= 400 || push.ResponseCode != "0" {
		reason := push.ErrorMessage
		if reason == "" {
			reason = push.ResponseDescription
		}
		if reason == "" {
			reason = fmt.Sprintf("stk push rejected (%d)", resp.StatusCode)
		}
		g.logger.Info().
			Str("reference", req.Reference).
			Str("reason", reason).
			Msg("stk push rejected")
		return Result{}, model.NewProviderRejectedError(reason)
	}

	g.logger.Info().
		Str("reference", req.Reference).
		Str("checkout_request_id", push.CheckoutRequestID).
		Msg("stk push sent")

	return Result{
		Status:         ResultPending,
		CorrelationKey: push.CheckoutRequestID,
	}, nil
}
