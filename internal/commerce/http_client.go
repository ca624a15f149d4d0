// internal/commerce/http_client.go
package commerce

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"sparkwallet/internal/util"
)

// HTTPOrderStore is an OrderStore over the commerce system's HTTP API.
type HTTPOrderStore struct {
	baseURL string
	client  *http.Client
}

// NewHTTPOrderStore creates an HTTPOrderStore. The timeout bounds every call;
// a hung commerce system must never hold a wallet request open indefinitely.
func NewHTTPOrderStore(baseURL string, timeout time.Duration) *HTTPOrderStore {
	return &HTTPOrderStore{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type listOrdersResponse struct {
	Orders     []Order `json:"orders"`
	TotalCount int64   `json:"total_count"`
}

// ListOrders fetches one page of a user's orders, newest first. Transport and
// server failures surface as util.ErrCommerceUnavailable.
func (s *HTTPOrderStore) ListOrders(ctx context.Context, userID int64, limit, offset int) ([]Order, int64, error) {
	endpoint := fmt.Sprintf("%s/users/%d/orders", s.baseURL, userID)
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build commerce request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("commerce request failed: %w", util.ErrCommerceUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("commerce returned status %d: %w", resp.StatusCode, util.ErrCommerceUnavailable)
	}

	var body listOrdersResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, 0, fmt.Errorf("failed to decode commerce response: %w", util.ErrCommerceUnavailable)
	}

	return body.Orders, body.TotalCount, nil
}
