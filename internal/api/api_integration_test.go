// internal/api/api_integration_test.go
package api_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	app "sparkwallet/internal"
	"sparkwallet/internal/domain"
)

const testWebhookSecret = "integration-test-secret"

// testApp is the global application instance for testing.
var testApp *app.Application

// testServer is the httptest server.
var testServer *httptest.Server

// commerceStub fakes the external order store for billing history tests.
var commerceStub *httptest.Server

// TestMain is the special entry point for Go tests, executed once before all tests.
func TestMain(m *testing.M) {
	// 1. A commerce stub must exist before the application reads COMMERCE_BASE_URL.
	commerceStub = httptest.NewServer(http.HandlerFunc(serveCommerceOrders))
	defer commerceStub.Close()

	// 2. Set up environment variables (ensure DB_NAME points to the test database).
	setupEnvVars()

	// 3. Initialize the application.
	testApp = app.NewApplication()
	if err := testApp.Initialize(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize test application: %v\n", err)
		os.Exit(1)
	}

	// 4. Start an httptest server to test the HTTP handling layer.
	testServer = httptest.NewServer(testApp.HTTPHandler)
	defer testServer.Close()

	// 5. Run all tests.
	code := m.Run()

	// 6. Shut down application resources after tests.
	if err := testApp.Shutdown(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to shutdown test application: %v\n", err)
		os.Exit(1)
	}

	os.Exit(code)
}

// setupEnvVars helper function: sets database environment variables required for testing.
func setupEnvVars() {
	if os.Getenv("DB_HOST") == "" {
		os.Setenv("DB_HOST", "localhost")
	}
	if os.Getenv("DB_PORT") == "" {
		os.Setenv("DB_PORT", "5432")
	}
	if os.Getenv("DB_USER") == "" {
		os.Setenv("DB_USER", "user")
	}
	if os.Getenv("DB_PASSWORD") == "" {
		os.Setenv("DB_PASSWORD", "password")
	}
	if os.Getenv("DB_NAME") == "" {
		os.Setenv("DB_NAME", "sparkwallet_test")
	}
	if os.Getenv("DB_SSLMODE") == "" {
		os.Setenv("DB_SSLMODE", "disable")
	}
	os.Setenv("WEBHOOK_SECRET", testWebhookSecret)
	os.Setenv("COMMERCE_BASE_URL", commerceStub.URL)
}

// serveCommerceOrders returns a fixed order page for any user.
func serveCommerceOrders(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{
		"total_count": 2,
		"orders": [
			{
				"id": "ord-credits-1",
				"user_id": 1,
				"date": "2026-03-01T09:00:00Z",
				"status": "completed",
				"currency": "USD",
				"total": "4.99",
				"line_items": [{"name": "100 credit pack", "product_type": "credits", "quantity": 1, "total": "4.99"}]
			},
			{
				"id": "ord-sub-1",
				"user_id": 1,
				"date": "2026-02-01T09:00:00Z",
				"status": "completed",
				"currency": "USD",
				"total": "9.90",
				"line_items": [{"name": "Premium monthly", "product_type": "subscription", "quantity": 1, "total": "9.90"}]
			}
		]
	}`))
}

// clearDatabase helper function: truncates all relevant tables to ensure a clean state per test.
func clearDatabase(t *testing.T) {
	tables := []string{"webhook_events", "entitlement_grants", "ledger_transactions", "memberships", "wallets"}
	for _, table := range tables {
		_, err := testApp.DB.Exec(fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE;", table))
		require.NoError(t, err, "Failed to truncate table %s", table)
	}
}

// creditUser helper function: seeds a wallet through the real purchase path.
func creditUser(t *testing.T, userID, credits int64) {
	_, err := testApp.LedgerService.CreditPurchase(context.Background(), userID, credits, uuid.New().String(), nil)
	require.NoError(t, err)
}

// makeRequest helper function: sends an HTTP request to the test server.
func makeRequest(t *testing.T, method, path string, body io.Reader) (*http.Response, string) {
	req, err := http.NewRequest(method, testServer.URL+path, body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(respBody)
}

// makeSignedRequest helper function: delivers a webhook body with a valid HMAC signature.
func makeSignedRequest(t *testing.T, path, body string) (*http.Response, string) {
	req, err := http.NewRequest("POST", testServer.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Signature", signBody(body))

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(respBody)
}

func signBody(body string) string {
	mac := hmac.New(sha256.New, []byte(testWebhookSecret))
	mac.Write([]byte(body))
	return hex.EncodeToString(mac.Sum(nil))
}

func getBalance(t *testing.T, userID int64) int64 {
	resp, body := makeRequest(t, "GET", fmt.Sprintf("/users/%d/wallet", userID), nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var balanceMap map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(body), &balanceMap))
	return int64(balanceMap["balance"].(float64))
}

// TestSpendIntegration tests the credit spend and entitlement activation flow.
func TestSpendIntegration(t *testing.T) {
	clearDatabase(t)
	userID := int64(101)
	creditUser(t, userID, 10)

	t.Run("UnknownUserBalanceIsZero", func(t *testing.T) {
		assert.Equal(t, int64(0), getBalance(t, 999))
	})

	t.Run("SuccessfulBoost", func(t *testing.T) {
		resp, body := makeRequest(t, "POST", fmt.Sprintf("/users/%d/wallet/spend", userID), strings.NewReader(`{"action": "profile_boost"}`))
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(body), &result))
		assert.Equal(t, float64(5), result["new_balance"])
		require.NotNil(t, result["expires_at"])

		expiresAt, err := time.Parse(time.RFC3339Nano, result["expires_at"].(string))
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now().Add(30*time.Minute), expiresAt, 5*time.Second)

		respGet, bodyGet := makeRequest(t, "GET", fmt.Sprintf("/users/%d/entitlements/profile_boost", userID), nil)
		defer respGet.Body.Close()
		assert.Equal(t, http.StatusOK, respGet.StatusCode)
		assert.Contains(t, bodyGet, `"active":true`)
	})

	t.Run("SuperLikeRequiresTarget", func(t *testing.T) {
		resp, _ := makeRequest(t, "POST", fmt.Sprintf("/users/%d/wallet/spend", userID), strings.NewReader(`{"action": "super_like"}`))
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("SuccessfulSuperLike", func(t *testing.T) {
		resp, body := makeRequest(t, "POST", fmt.Sprintf("/users/%d/wallet/spend", userID), strings.NewReader(`{"action": "super_like", "reference_id": 555}`))
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var result map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(body), &result))
		assert.Equal(t, float64(3), result["new_balance"])
		// Permanent grants carry no expiry.
		assert.Nil(t, result["expires_at"])
	})

	t.Run("InsufficientCredits", func(t *testing.T) {
		// Balance is 3; a boost costs 5.
		resp, body := makeRequest(t, "POST", fmt.Sprintf("/users/%d/wallet/spend", userID), strings.NewReader(`{"action": "profile_boost"}`))
		defer resp.Body.Close()

		assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode)
		var errMap map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(body), &errMap))
		assert.Equal(t, float64(5), errMap["required"])
		assert.Equal(t, float64(3), errMap["available"])

		// A rejected spend must leave no ledger row behind.
		assert.Equal(t, int64(3), getBalance(t, userID))
	})

	t.Run("UnknownAction", func(t *testing.T) {
		resp, body := makeRequest(t, "POST", fmt.Sprintf("/users/%d/wallet/spend", userID), strings.NewReader(`{"action": "teleport"}`))
		defer resp.Body.Close()

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, body, "Unknown action")
	})
}

// TestConcurrentSpendIntegration verifies that two racing spends on the same
// wallet cannot both draw on the same credits.
func TestConcurrentSpendIntegration(t *testing.T) {
	clearDatabase(t)
	userID := int64(202)
	creditUser(t, userID, 5)

	requestBody := `{"action": "see_likes"}` // cost 3; balance 5 affords one

	var wg sync.WaitGroup
	statuses := make([]int, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req, err := http.NewRequest("POST", testServer.URL+fmt.Sprintf("/users/%d/wallet/spend", userID), strings.NewReader(requestBody))
			if err != nil {
				return
			}
			req.Header.Set("Content-Type", "application/json")
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return
			}
			defer resp.Body.Close()
			_, _ = io.Copy(io.Discard, resp.Body)
			statuses[i] = resp.StatusCode
		}(i)
	}
	wg.Wait()

	succeeded, rejected := 0, 0
	for _, status := range statuses {
		switch status {
		case http.StatusOK:
			succeeded++
		case http.StatusPaymentRequired:
			rejected++
		}
	}
	assert.Equal(t, 1, succeeded, "exactly one of two racing spends must win")
	assert.Equal(t, 1, rejected)
	assert.Equal(t, int64(2), getBalance(t, userID))
}

// TestPaymentWebhookIntegration tests signed payment callbacks and replay dedup.
func TestPaymentWebhookIntegration(t *testing.T) {
	clearDatabase(t)
	userID := int64(303)

	payload := fmt.Sprintf(`{"provider": "payex", "event_id": "evt-1", "event_type": "payment.completed", "user_id": %d, "credits": 50}`, userID)

	t.Run("RejectsBadSignature", func(t *testing.T) {
		req, err := http.NewRequest("POST", testServer.URL+"/webhooks/payment", strings.NewReader(payload))
		require.NoError(t, err)
		req.Header.Set("X-Webhook-Signature", "deadbeef")
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, int64(0), getBalance(t, userID))
	})

	t.Run("CreditsOnFirstDelivery", func(t *testing.T) {
		resp, body := makeSignedRequest(t, "/webhooks/payment", payload)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, body, `"status":"processed"`)
		assert.Equal(t, int64(50), getBalance(t, userID))
	})

	t.Run("ReplayIsAcknowledgedWithoutRecrediting", func(t *testing.T) {
		resp, body := makeSignedRequest(t, "/webhooks/payment", payload)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, body, `"status":"duplicate"`)
		assert.Equal(t, int64(50), getBalance(t, userID))
	})
}

// TestAdminAdjustIntegration tests the support adjustment endpoint.
func TestAdminAdjustIntegration(t *testing.T) {
	clearDatabase(t)
	userID := int64(404)

	t.Run("GoodwillCredit", func(t *testing.T) {
		resp, body := makeRequest(t, "POST", fmt.Sprintf("/admin/users/%d/wallet/adjust", userID), strings.NewReader(`{"delta": 20, "reason": "goodwill after outage", "admin_id": 7}`))
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var result map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(body), &result))
		assert.Equal(t, float64(0), result["old_balance"])
		assert.Equal(t, float64(20), result["new_balance"])
	})

	t.Run("DebitBelowZeroRejected", func(t *testing.T) {
		resp, _ := makeRequest(t, "POST", fmt.Sprintf("/admin/users/%d/wallet/adjust", userID), strings.NewReader(`{"delta": -25, "reason": "correction", "admin_id": 7}`))
		defer resp.Body.Close()

		assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode)
		assert.Equal(t, int64(20), getBalance(t, userID))
	})

	t.Run("ReasonRequired", func(t *testing.T) {
		resp, _ := makeRequest(t, "POST", fmt.Sprintf("/admin/users/%d/wallet/adjust", userID), strings.NewReader(`{"delta": 5, "reason": "  ", "admin_id": 7}`))
		defer resp.Body.Close()

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

// TestLedgerReplayConsistency verifies that replaying the history reproduces
// every recorded balance_after and the current balance.
func TestLedgerReplayConsistency(t *testing.T) {
	clearDatabase(t)
	userID := int64(505)

	// A mixed series of credits, spends and an adjustment. The super-like is
	// spent twice against the same target: each spend is its own ledger row
	// even though the second only refreshes the existing grant.
	creditUser(t, userID, 30)
	resp1, _ := makeRequest(t, "POST", fmt.Sprintf("/users/%d/wallet/spend", userID), strings.NewReader(`{"action": "profile_boost"}`))
	resp1.Body.Close()
	require.Equal(t, http.StatusOK, resp1.StatusCode)
	resp2, _ := makeRequest(t, "POST", fmt.Sprintf("/users/%d/wallet/spend", userID), strings.NewReader(`{"action": "super_like", "reference_id": 42}`))
	resp2.Body.Close()
	require.Equal(t, http.StatusOK, resp2.StatusCode)
	resp3, body3 := makeRequest(t, "POST", fmt.Sprintf("/users/%d/wallet/spend", userID), strings.NewReader(`{"action": "super_like", "reference_id": 42}`))
	resp3.Body.Close()
	require.Equal(t, http.StatusOK, resp3.StatusCode)

	var repeat map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(body3), &repeat))
	assert.Equal(t, float64(21), repeat["new_balance"], "the repeat spend on the same target debits again")

	resp4, _ := makeRequest(t, "POST", fmt.Sprintf("/admin/users/%d/wallet/adjust", userID), strings.NewReader(`{"delta": -10, "reason": "chargeback", "admin_id": 7}`))
	resp4.Body.Close()
	require.Equal(t, http.StatusOK, resp4.StatusCode)

	respHistory, bodyHistory := makeRequest(t, "GET", fmt.Sprintf("/users/%d/wallet/transactions?limit=50&offset=0", userID), nil)
	defer respHistory.Body.Close()
	require.Equal(t, http.StatusOK, respHistory.StatusCode)

	var historyMap map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(bodyHistory), &historyMap))
	rows := historyMap["data"].([]interface{})
	require.Len(t, rows, 5)

	// Rows arrive newest first; replay oldest first.
	var running int64
	for i := len(rows) - 1; i >= 0; i-- {
		row := rows[i].(map[string]interface{})
		running += int64(row["amount"].(float64))
		assert.Equal(t, running, int64(row["balance_after"].(float64)),
			"balance_after must equal the prefix sum at row %s", row["id"])
		assert.True(t, domain.TransactionType(row["transaction_type"].(string)).Valid())
	}
	assert.Equal(t, running, getBalance(t, userID))
}

// TestMembershipWebhookIntegration drives the tier state machine end to end.
func TestMembershipWebhookIntegration(t *testing.T) {
	clearDatabase(t)
	userID := int64(606)

	getMembership := func() map[string]interface{} {
		resp, body := makeRequest(t, "GET", fmt.Sprintf("/users/%d/membership", userID), nil)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(body), &m))
		return m
	}

	t.Run("DefaultsToFree", func(t *testing.T) {
		m := getMembership()
		assert.Equal(t, "free", m["tier"])
	})

	t.Run("Upgrade", func(t *testing.T) {
		payload := fmt.Sprintf(`{"provider": "subhub", "event_id": "sub-1", "event": "upgrade", "user_id": %d, "tier": "premium", "subscription_id": "sub_abc"}`, userID)
		resp, _ := makeSignedRequest(t, "/webhooks/subscription", payload)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		m := getMembership()
		assert.Equal(t, "premium", m["tier"])
		assert.Nil(t, m["expires_at"])
	})

	t.Run("CancelKeepsTierThroughGracePeriod", func(t *testing.T) {
		periodEnd := time.Now().Add(7 * 24 * time.Hour).UTC().Format(time.RFC3339)
		payload := fmt.Sprintf(`{"provider": "subhub", "event_id": "sub-2", "event": "cancel", "user_id": %d, "period_end": "%s"}`, userID, periodEnd)
		resp, _ := makeSignedRequest(t, "/webhooks/subscription", payload)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		m := getMembership()
		assert.Equal(t, "premium", m["tier"])
		assert.NotNil(t, m["expires_at"])
	})

	t.Run("ReactivateClearsPendingCancel", func(t *testing.T) {
		payload := fmt.Sprintf(`{"provider": "subhub", "event_id": "sub-3", "event": "reactivate", "user_id": %d}`, userID)
		resp, _ := makeSignedRequest(t, "/webhooks/subscription", payload)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		m := getMembership()
		assert.Equal(t, "premium", m["tier"])
		assert.Nil(t, m["expires_at"])
	})

	t.Run("ExpiredCancelDowngradesLazily", func(t *testing.T) {
		periodEnd := time.Now().Add(-time.Hour).UTC().Format(time.RFC3339)
		payload := fmt.Sprintf(`{"provider": "subhub", "event_id": "sub-4", "event": "cancel", "user_id": %d, "period_end": "%s"}`, userID, periodEnd)
		resp, _ := makeSignedRequest(t, "/webhooks/subscription", payload)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		m := getMembership()
		assert.Equal(t, "free", m["tier"])
	})

	t.Run("ReactivateAfterExpiryConflicts", func(t *testing.T) {
		payload := fmt.Sprintf(`{"provider": "subhub", "event_id": "sub-5", "event": "reactivate", "user_id": %d}`, userID)
		resp, body := makeSignedRequest(t, "/webhooks/subscription", payload)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.Contains(t, body, "new subscription is required")
	})
}

// TestBillingHistoryIntegration tests the billing statement projection.
func TestBillingHistoryIntegration(t *testing.T) {
	clearDatabase(t)

	resp, body := makeRequest(t, "GET", "/users/1/billing/history?limit=10&offset=0", nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var historyMap map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(body), &historyMap))
	assert.Equal(t, float64(2), historyMap["total_count"])

	entries := historyMap["data"].([]interface{})
	require.Len(t, entries, 2)

	first := entries[0].(map[string]interface{})
	assert.Equal(t, "ord-credits-1", first["order_id"])
	assert.Equal(t, "credits_purchase", first["kind"])
	assert.Equal(t, "4.99", first["total"])

	second := entries[1].(map[string]interface{})
	assert.Equal(t, "subscription_purchase", second["kind"])
	assert.Equal(t, "9.90", second["total"])
}
