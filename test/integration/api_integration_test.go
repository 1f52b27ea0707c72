package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"shopfront/internal/auth"
	"shopfront/internal/email"
	"shopfront/internal/handler"
	"shopfront/internal/inventory"
	"shopfront/internal/invoice"
	"shopfront/internal/model"
	"shopfront/internal/notify"
	"shopfront/internal/payment"
	"shopfront/internal/rates"
	"shopfront/internal/repository"
	"shopfront/internal/router"
	"shopfront/internal/service"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAdminKey = "test-admin-key"

// stubGateway answers a scripted payment result.
type stubGateway struct {
	result payment.Result
	err    error
}

func (g *stubGateway) Initiate(_ context.Context, _ payment.InitiateRequest) (payment.Result, error) {
	return g.result, g.err
}

type testServer struct {
	handler http.Handler
	mpesa   *stubGateway
	card    *stubGateway
}

func setupTestServer(t *testing.T, testDB *TestDB) *testServer {
	t.Helper()

	logger := zerolog.Nop()

	productRepo := repository.NewProductRepository(testDB.Pool, logger)
	orderRepo := repository.NewOrderRepository(testDB.Pool, logger)

	hub := notify.NewHub(logger)
	ledger := inventory.NewLedger(productRepo, hub, 2, logger)
	emailer := email.NewLogSender(logger)
	quoter := rates.NewQuoter(rates.DefaultTable())

	card := &stubGateway{result: payment.Result{Status: payment.ResultCompleted, ProviderTxnID: "ch_test"}}
	mpesa := &stubGateway{result: payment.Result{Status: payment.ResultPending, CorrelationKey: "ws_CO_test"}}

	registry := payment.NewRegistry()
	registry.Register(model.MethodCard, card)
	registry.Register(model.MethodMobileMoney, mpesa)
	registry.Register(model.MethodBankTransfer, payment.NewBankTransferGateway(logger))

	checkoutService := service.NewCheckoutService(
		orderRepo, productRepo, ledger, quoter, registry, hub, emailer, "KES", logger)
	orderService := service.NewOrderService(
		orderRepo, ledger, hub, emailer, invoice.NewJSONRenderer(), logger)
	reconcileService := service.NewReconcileService(
		orderRepo, payment.NewNoopCallbackLog(), hub, emailer, logger)

	mux := router.New(router.Deps{
		Orders:    handler.NewOrderHandler(checkoutService, orderService, logger),
		Inventory: handler.NewInventoryHandler(ledger, productRepo, logger),
		Callbacks: handler.NewCallbackHandler(reconcileService, logger),
		WS:        handler.NewWSHandler(hub, logger),
		Resolver:  auth.NewKeyResolver(testAdminKey),
		Logger:    logger,
	})

	return &testServer{handler: mux, mpesa: mpesa, card: card}
}

func doJSON(t *testing.T, server http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)
	return w
}

func checkoutBody(method string) map[string]any {
	body := map[string]any{
		"items": []map[string]any{
			{"productId": "P001", "quantity": 2},
		},
		"shippingAddress": map[string]any{
			"street":     "123 Biashara St",
			"city":       "Nairobi",
			"postalCode": "00100",
			"country":    "KE",
		},
		"paymentMethod": method,
	}
	switch method {
	case "card":
		body["cardToken"] = "tok_visa"
	case "mobile_money":
		body["phoneNumber"] = "0712345678"
	}
	return body
}

func TestOrderAPI_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	testDB := SetupTestDB(t)
	ts := setupTestServer(t, testDB)

	t.Run("checkout with card settles synchronously", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)
		SeedProducts(t, testDB.Pool)

		w := doJSON(t, ts.handler, http.MethodPost, "/api/orders", "user-42", checkoutBody("card"))
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var resp model.CheckoutResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.False(t, resp.PaymentPending)
		assert.Equal(t, "processing", string(resp.Order.Status))
		assert.True(t, resp.Order.IsPaid)

		// Stock was decremented.
		var stock int
		require.NoError(t, testDB.Pool.QueryRow(context.Background(),
			"SELECT stock FROM products WHERE id = 'P001'").Scan(&stock))
		assert.Equal(t, 8, stock)
	})

	t.Run("checkout with insufficient stock returns shortages", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)
		SeedProducts(t, testDB.Pool)

		body := checkoutBody("card")
		body["items"] = []map[string]any{{"productId": "P001", "quantity": 11}}

		w := doJSON(t, ts.handler, http.MethodPost, "/api/orders", "user-42", body)
		require.Equal(t, http.StatusConflict, w.Code)

		var errResp model.ErrorResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&errResp))
		assert.Equal(t, model.ErrCodeInsufficientStock, errResp.Error)
		require.Len(t, errResp.Shortages, 1)
		assert.Equal(t, "P001", errResp.Shortages[0].ProductID)
		assert.Equal(t, 10, errResp.Shortages[0].CurrentStock)

		// Nothing was reserved.
		var stock int
		require.NoError(t, testDB.Pool.QueryRow(context.Background(),
			"SELECT stock FROM products WHERE id = 'P001'").Scan(&stock))
		assert.Equal(t, 10, stock)
	})

	t.Run("mpesa checkout reconciles via callback", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)
		SeedProducts(t, testDB.Pool)

		w := doJSON(t, ts.handler, http.MethodPost, "/api/orders", "user-42", checkoutBody("mobile_money"))
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var resp model.CheckoutResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.True(t, resp.PaymentPending)
		assert.Equal(t, "pending", string(resp.Order.Status))

		// The provider posts the success callback; no auth header.
		callback := map[string]any{
			"Body": map[string]any{
				"stkCallback": map[string]any{
					"MerchantRequestID": "mr-1",
					"CheckoutRequestID": "ws_CO_test",
					"ResultCode":        0,
					"ResultDesc":        "Success",
					"CallbackMetadata": map[string]any{
						"Item": []map[string]any{
							{"Name": "Amount", "Value": resp.Order.TotalPrice},
							{"Name": "MpesaReceiptNumber", "Value": "NLJ7RT61SV"},
						},
					},
				},
			},
		}
		cw := doJSON(t, ts.handler, http.MethodPost, "/api/payments/callbacks/mpesa", "", callback)
		require.Equal(t, http.StatusOK, cw.Code)

		// The order advanced to processing.
		gw := doJSON(t, ts.handler, http.MethodGet, "/api/orders/"+resp.Order.ID.String(), "user-42", nil)
		require.Equal(t, http.StatusOK, gw.Code)

		var got model.Order
		require.NoError(t, json.NewDecoder(gw.Body).Decode(&got))
		assert.Equal(t, "processing", string(got.Status))
		assert.True(t, got.IsPaid)
		assert.Equal(t, "NLJ7RT61SV", got.Payment.ProviderTxnID)

		// A replayed callback is acknowledged and changes nothing.
		cw2 := doJSON(t, ts.handler, http.MethodPost, "/api/payments/callbacks/mpesa", "", callback)
		require.Equal(t, http.StatusOK, cw2.Code)
	})

	t.Run("cancel releases stock", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)
		SeedProducts(t, testDB.Pool)

		w := doJSON(t, ts.handler, http.MethodPost, "/api/orders", "user-42", checkoutBody("mobile_money"))
		require.Equal(t, http.StatusCreated, w.Code)

		var resp model.CheckoutResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))

		cw := doJSON(t, ts.handler, http.MethodPost,
			fmt.Sprintf("/api/orders/%s/cancel", resp.Order.ID), "user-42", nil)
		require.Equal(t, http.StatusOK, cw.Code, cw.Body.String())

		var stock int
		require.NoError(t, testDB.Pool.QueryRow(context.Background(),
			"SELECT stock FROM products WHERE id = 'P001'").Scan(&stock))
		assert.Equal(t, 10, stock)

		// A second cancel is rejected.
		cw2 := doJSON(t, ts.handler, http.MethodPost,
			fmt.Sprintf("/api/orders/%s/cancel", resp.Order.ID), "user-42", nil)
		assert.Equal(t, http.StatusConflict, cw2.Code)
	})

	t.Run("orders are owner scoped", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)
		SeedProducts(t, testDB.Pool)

		w := doJSON(t, ts.handler, http.MethodPost, "/api/orders", "user-42", checkoutBody("card"))
		require.Equal(t, http.StatusCreated, w.Code)

		var resp model.CheckoutResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		path := "/api/orders/" + resp.Order.ID.String()

		assert.Equal(t, http.StatusForbidden, doJSON(t, ts.handler, http.MethodGet, path, "user-99", nil).Code)
		assert.Equal(t, http.StatusOK, doJSON(t, ts.handler, http.MethodGet, path, testAdminKey, nil).Code)
		assert.Equal(t, http.StatusUnauthorized, doJSON(t, ts.handler, http.MethodGet, path, "", nil).Code)
	})

	t.Run("admin routes require the admin role", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)
		SeedProducts(t, testDB.Pool)

		w := doJSON(t, ts.handler, http.MethodPost, "/api/admin/inventory/P001/adjust", "user-42",
			map[string]any{"delta": 5})
		assert.Equal(t, http.StatusForbidden, w.Code)

		w = doJSON(t, ts.handler, http.MethodPost, "/api/admin/inventory/P001/adjust", testAdminKey,
			map[string]any{"delta": 5})
		require.Equal(t, http.StatusOK, w.Code)

		var product model.Product
		require.NoError(t, json.NewDecoder(w.Body).Decode(&product))
		assert.Equal(t, 15, product.Stock)
	})

	t.Run("admin marks bank transfer order shipped", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)
		SeedProducts(t, testDB.Pool)

		w := doJSON(t, ts.handler, http.MethodPost, "/api/orders", "user-42", checkoutBody("bank_transfer"))
		require.Equal(t, http.StatusCreated, w.Code)

		var resp model.CheckoutResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		statusPath := fmt.Sprintf("/api/admin/orders/%s/status", resp.Order.ID)

		// Settle the bank transfer manually, then ship.
		sw := doJSON(t, ts.handler, http.MethodPut, statusPath, testAdminKey,
			map[string]any{"event": "payment_confirmed"})
		require.Equal(t, http.StatusOK, sw.Code, sw.Body.String())

		sw = doJSON(t, ts.handler, http.MethodPut, statusPath, testAdminKey,
			map[string]any{"event": "mark_shipped", "trackingNumber": "TRK-9"})
		require.Equal(t, http.StatusOK, sw.Code)

		var got model.Order
		require.NoError(t, json.NewDecoder(sw.Body).Decode(&got))
		assert.Equal(t, "shipped", string(got.Status))
		require.NotNil(t, got.TrackingNumber)
		assert.Equal(t, "TRK-9", *got.TrackingNumber)
	})

	t.Run("availability check is read only", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)
		SeedProducts(t, testDB.Pool)

		w := doJSON(t, ts.handler, http.MethodPost, "/api/inventory/availability", "user-42",
			map[string]any{"items": []map[string]any{{"productId": "P001", "quantity": 4}}})
		require.Equal(t, http.StatusOK, w.Code)

		var availability []model.Availability
		require.NoError(t, json.NewDecoder(w.Body).Decode(&availability))
		require.Len(t, availability, 1)
		assert.True(t, availability[0].Available)
		assert.Equal(t, 10, availability[0].CurrentStock)

		var stock int
		require.NoError(t, testDB.Pool.QueryRow(context.Background(),
			"SELECT stock FROM products WHERE id = 'P001'").Scan(&stock))
		assert.Equal(t, 10, stock)
	})
}
