//go:build integration

package integration

import (
	"fmt"
	"net/http"
	"regexp"
	"testing"
	"time"
)

var orderIDPattern = regexp.MustCompile(`^order_\d{13}$`)

func burgerCart() []lineItem {
	return []lineItem{
		{FoodID: "f1", Name: "Burger", UnitPrice: 200, Quantity: 2},
		{FoodID: "f2", Name: "Momo", UnitPrice: 150, Quantity: 1},
	}
}

func TestCheckout_RequiresAuth(t *testing.T) {
	resp := doPost(t, "/api/checkout", checkoutRequest{Items: burgerCart(), PaymentMethod: "cod"}, nil)
	defer resp.Body.Close()

	expectStatus(t, resp, http.StatusUnauthorized)
	body := decodeJSON[errorResponse](t, resp)
	if body.Error.Kind != "AuthRequired" {
		t.Errorf("kind: got %q, want AuthRequired", body.Error.Kind)
	}
}

func TestCheckout_InvalidToken(t *testing.T) {
	resp := doPost(t, "/api/checkout", checkoutRequest{Items: burgerCart(), PaymentMethod: "cod"},
		map[string]string{"Authorization": "Bearer not-a-jwt"})
	defer resp.Body.Close()

	expectStatus(t, resp, http.StatusUnauthorized)
}

func TestCheckout_EmptyCart(t *testing.T) {
	resp := doPost(t, "/api/checkout", checkoutRequest{Items: []lineItem{}, PaymentMethod: "cod"}, newUser(t))
	defer resp.Body.Close()

	expectStatus(t, resp, http.StatusBadRequest)
	body := decodeJSON[errorResponse](t, resp)
	if body.Error.Kind != "EmptyCart" {
		t.Errorf("kind: got %q, want EmptyCart", body.Error.Kind)
	}
	if body.Error.Message != "Your cart is empty." {
		t.Errorf("message: got %q", body.Error.Message)
	}
}

func TestCheckout_UnknownPaymentMethod(t *testing.T) {
	resp := doPost(t, "/api/checkout", checkoutRequest{Items: burgerCart(), PaymentMethod: "barter"}, newUser(t))
	defer resp.Body.Close()

	expectStatus(t, resp, http.StatusBadRequest)
	body := decodeJSON[errorResponse](t, resp)
	if body.Error.Kind != "InvalidRequest" {
		t.Errorf("kind: got %q, want InvalidRequest", body.Error.Kind)
	}
}

func TestCheckout_CashOnDelivery(t *testing.T) {
	resp := doPost(t, "/api/checkout", checkoutRequest{Items: burgerCart(), PaymentMethod: "cod"}, newUser(t))
	defer resp.Body.Close()

	expectStatus(t, resp, http.StatusCreated)
	order := decodeJSON[orderResponse](t, resp)

	if !orderIDPattern.MatchString(order.ID) {
		t.Errorf("id: got %q, want order_<millis>", order.ID)
	}
	if order.Total != 550 {
		t.Errorf("total: got %v, want 550", order.Total)
	}
	if order.DiscountCode != nil {
		t.Errorf("discountCode: got %q, want null", *order.DiscountCode)
	}
	if order.DiscountAmount != 0 {
		t.Errorf("discountAmount: got %v, want 0", order.DiscountAmount)
	}
	if order.Status != "pending" {
		t.Errorf("status: got %q, want pending", order.Status)
	}
	if order.PaymentMethod != "cod" {
		t.Errorf("paymentMethod: got %q, want cod", order.PaymentMethod)
	}
	if len(order.Items) != 2 {
		t.Errorf("items: got %d, want 2", len(order.Items))
	}
	if _, err := time.Parse(time.RFC3339, order.Date); err != nil {
		t.Errorf("date %q: %v", order.Date, err)
	}
}

func TestCheckout_WithDiscount(t *testing.T) {
	resp := doPost(t, "/api/checkout", checkoutRequest{
		Items:         burgerCart(),
		DiscountCode:  "Nischal",
		PaymentMethod: "cod",
	}, newUser(t))
	defer resp.Body.Close()

	expectStatus(t, resp, http.StatusCreated)
	order := decodeJSON[orderResponse](t, resp)

	// 2*200 + 150 - 10
	if order.Total != 540 {
		t.Errorf("total: got %v, want 540", order.Total)
	}
	if order.DiscountCode == nil || *order.DiscountCode != "Nischal" {
		t.Errorf("discountCode: got %v, want Nischal", order.DiscountCode)
	}
	if order.DiscountAmount != 10 {
		t.Errorf("discountAmount: got %v, want 10", order.DiscountAmount)
	}
}

func TestCheckout_DiscountClampsAtZero(t *testing.T) {
	resp := doPost(t, "/api/checkout", checkoutRequest{
		Items:         []lineItem{{FoodID: "tea", Name: "Tea", UnitPrice: 5, Quantity: 1}},
		DiscountCode:  "Nischal",
		PaymentMethod: "cod",
	}, newUser(t))
	defer resp.Body.Close()

	expectStatus(t, resp, http.StatusCreated)
	order := decodeJSON[orderResponse](t, resp)
	if order.Total != 0 {
		t.Errorf("total: got %v, want 0", order.Total)
	}
}

func TestCheckout_RejectedDiscount(t *testing.T) {
	for _, code := range []string{"nischal", "NISCHAL", "Nischal ", "unknown"} {
		t.Run(code, func(t *testing.T) {
			resp := doPost(t, "/api/checkout", checkoutRequest{
				Items:         burgerCart(),
				DiscountCode:  code,
				PaymentMethod: "cod",
			}, newUser(t))
			defer resp.Body.Close()

			expectStatus(t, resp, http.StatusUnprocessableEntity)
		})
	}
}

func TestCheckout_ReplayedToken(t *testing.T) {
	user := newUser(t)
	token := fmt.Sprintf("replay-%d", time.Now().UnixNano())
	req := checkoutRequest{Items: burgerCart(), PaymentMethod: "cod", CheckoutToken: token}

	first := doPost(t, "/api/checkout", req, user)
	defer first.Body.Close()
	expectStatus(t, first, http.StatusCreated)
	created := decodeJSON[orderResponse](t, first)

	second := doPost(t, "/api/checkout", req, user)
	defer second.Body.Close()
	expectStatus(t, second, http.StatusOK)
	replayed := decodeJSON[orderResponse](t, second)

	if replayed.ID != created.ID {
		t.Errorf("replayed id: got %q, want %q", replayed.ID, created.ID)
	}
	if replayed.CheckoutToken != token {
		t.Errorf("checkoutToken: got %q, want %q", replayed.CheckoutToken, token)
	}

	orders := listOrders(t, user, "")
	if len(orders) != 1 {
		t.Fatalf("orders: got %d, want 1", len(orders))
	}
}

func TestCheckout_IdempotencyKeyHeader(t *testing.T) {
	user := newUser(t)
	headers := map[string]string{
		"Authorization":   user["Authorization"],
		"Idempotency-Key": fmt.Sprintf("hdr-%d", time.Now().UnixNano()),
	}
	req := checkoutRequest{Items: burgerCart(), PaymentMethod: "cod"}

	first := doPost(t, "/api/checkout", req, headers)
	defer first.Body.Close()
	expectStatus(t, first, http.StatusCreated)

	second := doPost(t, "/api/checkout", req, headers)
	defer second.Body.Close()
	expectStatus(t, second, http.StatusOK)
}

func TestCheckout_TokenOwnedByAnotherUser(t *testing.T) {
	token := fmt.Sprintf("owned-%d", time.Now().UnixNano())
	req := checkoutRequest{Items: burgerCart(), PaymentMethod: "cod", CheckoutToken: token}

	first := doPost(t, "/api/checkout", req, newUser(t))
	defer first.Body.Close()
	expectStatus(t, first, http.StatusCreated)

	second := doPost(t, "/api/checkout", req, newUser(t))
	defer second.Body.Close()
	expectStatus(t, second, http.StatusBadRequest)
}

func TestValidateDiscount(t *testing.T) {
	user := newUser(t)

	resp := doPost(t, "/api/discounts/validate", map[string]string{"code": "Nischal"}, user)
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusOK)
	d := decodeJSON[discountResponse](t, resp)
	if d.Code != "Nischal" || d.Amount != 10 {
		t.Errorf("discount: got %+v, want Nischal/10", d)
	}

	resp = doPost(t, "/api/discounts/validate", map[string]string{"code": "nischal"}, user)
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusUnprocessableEntity)
}

func listOrders(t *testing.T, user map[string]string, query string) []orderResponse {
	t.Helper()

	resp := doGet(t, "/api/orders"+query, user)
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusOK)
	return decodeJSON[[]orderResponse](t, resp)
}

func TestOrderHistory(t *testing.T) {
	user := newUser(t)
	if got := listOrders(t, user, ""); len(got) != 0 {
		t.Fatalf("fresh user has %d orders", len(got))
	}

	carts := [][]lineItem{
		{{FoodID: "f1", Name: "Burger", UnitPrice: 200, Quantity: 1}},
		{{FoodID: "f3", Name: "Chowmein", UnitPrice: 180, Quantity: 2}},
	}
	var ids []string
	for _, items := range carts {
		resp := doPost(t, "/api/checkout", checkoutRequest{Items: items, PaymentMethod: "cod"}, user)
		expectStatus(t, resp, http.StatusCreated)
		ids = append(ids, decodeJSON[orderResponse](t, resp).ID)
		resp.Body.Close()
		// Order ids carry millisecond timestamps.
		time.Sleep(5 * time.Millisecond)
	}

	all := listOrders(t, user, "")
	if len(all) != 2 {
		t.Fatalf("orders: got %d, want 2", len(all))
	}
	if all[0].ID != ids[1] || all[1].ID != ids[0] {
		t.Errorf("order: got [%s %s], want newest first [%s %s]", all[0].ID, all[1].ID, ids[1], ids[0])
	}

	byItem := listOrders(t, user, "?q=chow")
	if len(byItem) != 1 || byItem[0].ID != ids[1] {
		t.Errorf("q=chow: got %+v", byItem)
	}

	if got := listOrders(t, user, "?status=payment%20complete"); len(got) != 0 {
		t.Errorf("status=payment complete: got %d orders, want 0", len(got))
	}
	if got := listOrders(t, user, "?status=pending"); len(got) != 2 {
		t.Errorf("status=pending: got %d orders, want 2", len(got))
	}

	// Another user's history stays separate.
	if got := listOrders(t, newUser(t), ""); len(got) != 0 {
		t.Errorf("other user sees %d orders", len(got))
	}
}

func TestOrderHistory_RequiresAuth(t *testing.T) {
	resp := doGet(t, "/api/orders", nil)
	defer resp.Body.Close()

	expectStatus(t, resp, http.StatusUnauthorized)
}
