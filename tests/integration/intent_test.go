//go:build integration

package integration

import (
	"net/http"
	"testing"
)

type intentRequest struct {
	Amount       float64    `json:"amount"`
	Items        []lineItem `json:"items,omitempty"`
	DiscountCode string     `json:"discountCode,omitempty"`
}

// The compose stack runs without a processor key, so only requests rejected
// before reaching the processor are asserted here.
func TestCreatePaymentIntent_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		apiKey   string
		body     intentRequest
		wantCode int
		wantMsg  string
	}{
		{
			name:     "missing key",
			body:     intentRequest{Amount: 10},
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "wrong key",
			apiKey:   "wrong-key",
			body:     intentRequest{Amount: 10},
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "zero amount",
			apiKey:   testAPIKey,
			body:     intentRequest{Amount: 0},
			wantCode: http.StatusBadRequest,
			wantMsg:  "Invalid amount",
		},
		{
			name:     "negative amount",
			apiKey:   testAPIKey,
			body:     intentRequest{Amount: -5},
			wantCode: http.StatusBadRequest,
			wantMsg:  "Invalid amount",
		},
		{
			name:     "sub-paisa amount",
			apiKey:   testAPIKey,
			body:     intentRequest{Amount: 10.005},
			wantCode: http.StatusBadRequest,
			wantMsg:  "Invalid amount",
		},
		{
			name:   "amount does not match items",
			apiKey: testAPIKey,
			body: intentRequest{
				Amount: 100,
				Items:  []lineItem{{FoodID: "f1", UnitPrice: 200, Quantity: 1}},
			},
			wantCode: http.StatusBadRequest,
			wantMsg:  "Amount does not match cart total",
		},
		{
			name:   "unknown discount",
			apiKey: testAPIKey,
			body: intentRequest{
				Amount:       190,
				Items:        []lineItem{{FoodID: "f1", UnitPrice: 200, Quantity: 1}},
				DiscountCode: "nischal",
			},
			wantCode: http.StatusBadRequest,
			wantMsg:  "Invalid discount code",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := map[string]string{}
			if tt.apiKey != "" {
				headers["api_key"] = tt.apiKey
			}
			resp := doPost(t, "/create-payment-intent", tt.body, headers)
			defer resp.Body.Close()

			expectStatus(t, resp, tt.wantCode)
			body := decodeJSON[errorResponse](t, resp)
			if body.Error.Message == "" {
				t.Error("error message is empty")
			}
			if tt.wantMsg != "" && body.Error.Message != tt.wantMsg {
				t.Errorf("message: got %q, want %q", body.Error.Message, tt.wantMsg)
			}
			if body.Error.Kind != "" {
				t.Errorf("kind: got %q, want none on this endpoint", body.Error.Kind)
			}
		})
	}
}

func TestCheckout_OnlineWithoutPaymentMethod(t *testing.T) {
	resp := doPost(t, "/api/checkout", checkoutRequest{
		Items:         burgerCart(),
		PaymentMethod: "online",
	}, newUser(t))
	defer resp.Body.Close()

	// The processor is unconfigured, so the attempt stops before any order
	// is recorded.
	if resp.StatusCode == http.StatusCreated || resp.StatusCode == http.StatusOK {
		t.Fatalf("expected failure, got %d", resp.StatusCode)
	}
	body := decodeJSON[errorResponse](t, resp)
	switch body.Error.Kind {
	case "IntentRequestFailed", "SheetInitFailed", "PaymentDeclined":
	default:
		t.Errorf("kind: got %q", body.Error.Kind)
	}
}
