// internal/api/handler/webhooks.go
package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"sparkwallet/internal/domain"
	"sparkwallet/internal/metrics"
	"sparkwallet/internal/repository"
	"sparkwallet/internal/service"
	"sparkwallet/internal/util"
)

// WebhookHandler ingests provider callbacks and translates them into core
// calls. The core never calls the payment gateway or subscription provider
// itself; this is the only place their events enter the system. Events are
// deduplicated on (provider, event_id); replayed subscription events are
// acknowledged with 200 without reprocessing, replayed payment events are
// re-driven through the ledger's idempotency key so they also apply at most
// once but can recover a credit an earlier attempt never committed.
type WebhookHandler struct {
	ledger        service.LedgerService
	membership    service.MembershipService
	webhookRepo   repository.WebhookEventRepository
	dbExecutor    repository.DBExecutor
	signingSecret string
	logger        *logrus.Logger
}

// NewWebhookHandler creates a new WebhookHandler. An empty signing secret
// disables signature verification; only acceptable in development.
func NewWebhookHandler(
	ledger service.LedgerService,
	membership service.MembershipService,
	webhookRepo repository.WebhookEventRepository,
	dbExecutor repository.DBExecutor,
	signingSecret string,
	logger *logrus.Logger,
) *WebhookHandler {
	return &WebhookHandler{
		ledger:        ledger,
		membership:    membership,
		webhookRepo:   webhookRepo,
		dbExecutor:    dbExecutor,
		signingSecret: signingSecret,
		logger:        logger,
	}
}

// verifySignature checks the X-Webhook-Signature header (hex HMAC-SHA256 of
// the raw body) against the shared secret.
func (h *WebhookHandler) verifySignature(body []byte, signature string) bool {
	if h.signingSecret == "" {
		return true
	}
	mac := hmac.New(sha256.New, []byte(h.signingSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// PaymentEventPayload is the typed payment-result callback body.
type PaymentEventPayload struct {
	Provider  string `json:"provider"`
	EventID   string `json:"event_id"`
	EventType string `json:"event_type"`
	UserID    int64  `json:"user_id"`
	Credits   int64  `json:"credits"`
	Notes     string `json:"notes"`
}

// HandlePayment ingests a successful credit purchase reported by the payment
// flow. The ledger row's idempotency key is derived from the event id, so a
// replay that slips past the dedup table still credits at most once.
// POST /webhooks/payment
func (h *WebhookHandler) HandlePayment(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondWithError(w, h.logger, util.ErrInvalidInput)
		return
	}
	if !h.verifySignature(body, r.Header.Get("X-Webhook-Signature")) {
		metrics.WebhookEvents.WithLabelValues("payment", metrics.ResultRejected).Inc()
		respondWithJSON(w, h.logger, http.StatusUnauthorized, map[string]string{"error": "invalid signature"})
		return
	}

	var payload PaymentEventPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		respondWithError(w, h.logger, util.ErrInvalidInput)
		return
	}
	if payload.Provider == "" || payload.EventID == "" || payload.UserID <= 0 || payload.Credits <= 0 {
		respondWithError(w, h.logger, util.ErrInvalidInput)
		return
	}

	claimed, err := h.webhookRepo.Claim(r.Context(), h.dbExecutor, payload.Provider, payload.EventID, payload.EventType)
	if err != nil {
		respondWithError(w, h.logger, util.WrapStorage(err))
		return
	}

	// An already-claimed event still runs the credit. The claim and the
	// ledger row commit separately, so a crash between them leaves the event
	// claimed but never credited; the provider's retry is the only chance to
	// apply it. The ledger's idempotency key keeps the reapply at most once.
	var notes *string
	if payload.Notes != "" {
		notes = &payload.Notes
	}
	idempotencyKey := payload.Provider + ":" + payload.EventID
	transaction, err := h.ledger.CreditPurchase(r.Context(), payload.UserID, payload.Credits, idempotencyKey, notes)
	if err != nil {
		if claimed {
			h.releaseClaim(r, payload.Provider, payload.EventID)
		}
		metrics.WebhookEvents.WithLabelValues("payment", metrics.ResultError).Inc()
		respondWithError(w, h.logger, err)
		return
	}

	if !claimed {
		metrics.WebhookEvents.WithLabelValues("payment", metrics.ResultDuplicate).Inc()
		respondWithJSON(w, h.logger, http.StatusOK, map[string]interface{}{
			"status":         "duplicate",
			"transaction_id": transaction.ID,
			"new_balance":    transaction.BalanceAfter,
		})
		return
	}

	metrics.WebhookEvents.WithLabelValues("payment", metrics.ResultOK).Inc()
	h.logger.WithFields(logrus.Fields{
		"provider": payload.Provider,
		"event_id": payload.EventID,
		"user_id":  payload.UserID,
		"credits":  payload.Credits,
	}).Info("Payment event credited")

	respondWithJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"status":         "processed",
		"transaction_id": transaction.ID,
		"new_balance":    transaction.BalanceAfter,
	})
}

// SubscriptionEventPayload is the typed subscription lifecycle callback body.
type SubscriptionEventPayload struct {
	Provider       string     `json:"provider"`
	EventID        string     `json:"event_id"`
	Event          string     `json:"event"` // upgrade, cancel, reactivate
	UserID         int64      `json:"user_id"`
	Tier           string     `json:"tier"`
	SubscriptionID string     `json:"subscription_id"`
	PeriodEnd      *time.Time `json:"period_end"`
}

// HandleSubscription ingests subscription lifecycle events from the
// subscription provider and drives the tier state machine.
// POST /webhooks/subscription
func (h *WebhookHandler) HandleSubscription(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondWithError(w, h.logger, util.ErrInvalidInput)
		return
	}
	if !h.verifySignature(body, r.Header.Get("X-Webhook-Signature")) {
		metrics.WebhookEvents.WithLabelValues("subscription", metrics.ResultRejected).Inc()
		respondWithJSON(w, h.logger, http.StatusUnauthorized, map[string]string{"error": "invalid signature"})
		return
	}

	var payload SubscriptionEventPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		respondWithError(w, h.logger, util.ErrInvalidInput)
		return
	}
	if payload.Provider == "" || payload.EventID == "" || payload.UserID <= 0 {
		respondWithError(w, h.logger, util.ErrInvalidInput)
		return
	}

	claimed, err := h.webhookRepo.Claim(r.Context(), h.dbExecutor, payload.Provider, payload.EventID, payload.Event)
	if err != nil {
		respondWithError(w, h.logger, util.WrapStorage(err))
		return
	}
	if !claimed {
		metrics.WebhookEvents.WithLabelValues("subscription", metrics.ResultDuplicate).Inc()
		respondWithJSON(w, h.logger, http.StatusOK, map[string]string{"status": "duplicate"})
		return
	}

	switch payload.Event {
	case "upgrade":
		err = h.membership.Upgrade(r.Context(), payload.UserID, domain.Tier(payload.Tier), payload.SubscriptionID)
	case "cancel":
		if payload.PeriodEnd == nil {
			err = util.ErrInvalidInput
		} else {
			err = h.membership.Cancel(r.Context(), payload.UserID, *payload.PeriodEnd)
		}
	case "reactivate":
		err = h.membership.Reactivate(r.Context(), payload.UserID)
	default:
		err = util.ErrInvalidInput
	}
	if err != nil {
		h.releaseClaim(r, payload.Provider, payload.EventID)
		metrics.WebhookEvents.WithLabelValues("subscription", metrics.ResultError).Inc()
		respondWithError(w, h.logger, err)
		return
	}

	metrics.WebhookEvents.WithLabelValues("subscription", metrics.ResultOK).Inc()
	h.logger.WithFields(logrus.Fields{
		"provider": payload.Provider,
		"event_id": payload.EventID,
		"event":    payload.Event,
		"user_id":  payload.UserID,
	}).Info("Subscription event applied")

	respondWithJSON(w, h.logger, http.StatusOK, map[string]string{"status": "processed"})
}

// releaseClaim lets the provider's retry reprocess an event whose handling
// failed.
func (h *WebhookHandler) releaseClaim(r *http.Request, provider, eventID string) {
	if err := h.webhookRepo.Release(r.Context(), h.dbExecutor, provider, eventID); err != nil {
		h.logger.WithError(err).WithFields(logrus.Fields{
			"provider": provider,
			"event_id": eventID,
		}).Error("Failed to release webhook claim")
	}
}
