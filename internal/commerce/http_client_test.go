// internal/commerce/http_client_test.go
package commerce

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sparkwallet/internal/util"
)

func TestHTTPOrderStoreListOrders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/7/orders", r.URL.Path)
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		assert.Equal(t, "0", r.URL.Query().Get("offset"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"total_count": 1,
			"orders": [{
				"id": "ord-1",
				"user_id": 7,
				"date": "2026-02-14T10:00:00Z",
				"status": "completed",
				"currency": "USD",
				"total": "4.99",
				"line_items": [{"name": "100 credit pack", "product_type": "credits", "quantity": 1, "total": "4.99"}]
			}]
		}`))
	}))
	defer server.Close()

	store := NewHTTPOrderStore(server.URL, 2*time.Second)
	orders, total, err := store.ListOrders(context.Background(), 7, 10, 0)

	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, orders, 1)
	assert.Equal(t, "ord-1", orders[0].ID)
	assert.Equal(t, ProductTypeCredits, orders[0].LineItems[0].ProductType)
	assert.Equal(t, "4.99", orders[0].Total.StringFixed(2))
}

func TestHTTPOrderStoreServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	store := NewHTTPOrderStore(server.URL, 2*time.Second)
	_, _, err := store.ListOrders(context.Background(), 7, 10, 0)

	assert.ErrorIs(t, err, util.ErrCommerceUnavailable)
}

func TestHTTPOrderStoreUnreachable(t *testing.T) {
	// A closed server is the cheapest stand-in for a network failure.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	store := NewHTTPOrderStore(server.URL, time.Second)
	_, _, err := store.ListOrders(context.Background(), 7, 10, 0)

	assert.ErrorIs(t, err, util.ErrCommerceUnavailable)
}

func TestHTTPOrderStoreMalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"orders": [`))
	}))
	defer server.Close()

	store := NewHTTPOrderStore(server.URL, time.Second)
	_, _, err := store.ListOrders(context.Background(), 7, 10, 0)

	assert.ErrorIs(t, err, util.ErrCommerceUnavailable)
}
