//go:build integration

package integration

import (
	"net/http"
	"testing"
)

// findProduct picks a seeded product by name prefix.
func findProduct(t *testing.T, prefix string) productResponse {
	t.Helper()

	products := decodeJSON[[]productResponse](t, doGet(t, "/api/products"))
	for _, p := range products {
		if len(p.Name) >= len(prefix) && p.Name[:len(prefix)] == prefix {
			return p
		}
	}
	t.Fatalf("seeded product %q not found", prefix)
	return productResponse{}
}

// cleanupSale cancels the current open sale so tests stay independent.
func cleanupSale(t *testing.T) {
	t.Helper()

	resp := doPost(t, "/api/checkout/start", nil)
	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated {
		start := decodeJSON[startResponse](t, resp)
		resp = doPost(t, "/api/checkout/cancel", map[string]any{"sale_id": start.Sale.ID})
	}
	resp.Body.Close()
}

func TestCheckout_FullFlow(t *testing.T) {
	t.Cleanup(func() { cleanupSale(t) })

	beer := findProduct(t, "Chopp Pilsen 300ml")

	resp := doPost(t, "/api/checkout/start", nil)
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		t.Fatalf("start checkout: status %d", resp.StatusCode)
	}
	start := decodeJSON[startResponse](t, resp)
	if start.Sale.Status != "open" {
		t.Fatalf("sale status = %q, want open", start.Sale.Status)
	}

	resp = doPost(t, "/api/checkout/items", map[string]any{
		"product_id": beer.ID,
		"quantity":   2,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("add item: status %d", resp.StatusCode)
	}
	cart := decodeJSON[cartResponse](t, resp)
	if len(cart.Items) != 1 || cart.Items[0].Quantity != 2 {
		t.Fatalf("cart = %+v, want one line of 2", cart.Items)
	}
	if cart.Total != "17.00" {
		t.Fatalf("cart total = %s, want 17.00", cart.Total)
	}

	resp = doPost(t, "/api/checkout/finalize", map[string]any{
		"payment_method": "pix",
		"notes":          "mesa 4",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("finalize: status %d", resp.StatusCode)
	}
	finalized := decodeJSON[saleResponse](t, resp)
	if finalized.Status != "finalized" {
		t.Fatalf("status = %q, want finalized", finalized.Status)
	}
	if finalized.PaymentMethod != "pix" {
		t.Fatalf("payment method = %q, want pix", finalized.PaymentMethod)
	}
	if finalized.Total != "17.00" {
		t.Fatalf("total = %s, want 17.00", finalized.Total)
	}

	// Stock decremented by the sale.
	after := findProduct(t, "Chopp Pilsen 300ml")
	if after.Stock != beer.Stock-2 {
		t.Fatalf("stock = %d, want %d", after.Stock, beer.Stock-2)
	}

	// The session is gone; the cart endpoint conflicts until a new start.
	resp = doGet(t, "/api/checkout/cart")
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("cart after finalize: status %d, want 409", resp.StatusCode)
	}
}

func TestCheckout_StartTwiceResumes(t *testing.T) {
	t.Cleanup(func() { cleanupSale(t) })

	first := decodeJSON[startResponse](t, doPost(t, "/api/checkout/start", nil))
	second := decodeJSON[startResponse](t, doPost(t, "/api/checkout/start", nil))

	if !second.Resumed {
		t.Fatal("second start did not resume")
	}
	if first.Sale.ID != second.Sale.ID {
		t.Fatalf("resumed different sale: %s vs %s", first.Sale.ID, second.Sale.ID)
	}
}

func TestCheckout_FinalizeEmptyCart(t *testing.T) {
	t.Cleanup(func() { cleanupSale(t) })

	resp := doPost(t, "/api/checkout/start", nil)
	resp.Body.Close()

	resp = doPost(t, "/api/checkout/finalize", nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", resp.StatusCode)
	}
}

func TestCheckout_QuantityClampAndRemove(t *testing.T) {
	t.Cleanup(func() { cleanupSale(t) })

	ipa := findProduct(t, "Chopp IPA 300ml")
	doPost(t, "/api/checkout/start", nil).Body.Close()

	cart := decodeJSON[cartResponse](t, doPost(t, "/api/checkout/items", map[string]any{
		"product_id": ipa.ID,
		"quantity":   ipa.Stock + 50,
	}))
	if cart.Items[0].Quantity != ipa.Stock {
		t.Fatalf("quantity = %d, want clamp to stock %d", cart.Items[0].Quantity, ipa.Stock)
	}

	cart = decodeJSON[cartResponse](t, doRequest(t, http.MethodPut,
		"/api/checkout/items/"+ipa.ID+"/quantity", map[string]any{"quantity": 0}))
	if len(cart.Items) != 0 {
		t.Fatalf("cart has %d lines after zero quantity, want 0", len(cart.Items))
	}
}

func TestBarcodeLookup(t *testing.T) {
	resp := doGet(t, "/api/products/barcode/7891000100103")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("known barcode: status %d", resp.StatusCode)
	}
	p := decodeJSON[productResponse](t, resp)
	if p.Name != "Chopp Pilsen 300ml" {
		t.Fatalf("barcode resolved to %q", p.Name)
	}

	resp = doGet(t, "/api/products/barcode/0000000000000")
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown barcode: status %d, want 404", resp.StatusCode)
	}
}

func TestAuthRequired(t *testing.T) {
	req, err := http.NewRequest(http.MethodGet, baseURL+"/api/products", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}
