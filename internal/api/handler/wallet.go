// internal/api/handler/wallet.go
package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"sparkwallet/internal/api/types"
	"sparkwallet/internal/domain"
	"sparkwallet/internal/service"
	"sparkwallet/internal/util"
)

// WalletHandler handles wallet reads and the credit spend flow.
type WalletHandler struct {
	wallet      service.WalletReader
	ledger      service.LedgerService
	entitlement service.EntitlementService
	logger      *logrus.Logger
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(wallet service.WalletReader, ledger service.LedgerService, entitlement service.EntitlementService, logger *logrus.Logger) *WalletHandler {
	return &WalletHandler{
		wallet:      wallet,
		ledger:      ledger,
		entitlement: entitlement,
		logger:      logger,
	}
}

// GetBalance handles the wallet balance request.
// GET /users/{userID}/wallet
func (h *WalletHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	balance, err := h.wallet.Balance(r.Context(), userID)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	respondWithJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"user_id": userID,
		"balance": balance,
	})
}

// GetTransactionHistory handles the ledger history request.
// GET /users/{userID}/wallet/transactions
func (h *WalletHandler) GetTransactionHistory(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	limit, offset := pagination(r)

	transactions, total, err := h.ledger.ListTransactions(r.Context(), userID, limit, offset)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	respondWithJSON(w, h.logger, http.StatusOK, types.PaginatedResponse[domain.LedgerTransaction]{
		Data:       transactions,
		Limit:      limit,
		Offset:     offset,
		TotalCount: total,
	})
}

// SpendRequest represents the request body for a premium-action spend.
type SpendRequest struct {
	Action          string `json:"action"`
	ReferenceID     *int64 `json:"reference_id"`
	DurationMinutes *int64 `json:"duration_minutes"`
}

// Spend handles a credit spend plus entitlement activation.
// POST /users/{userID}/wallet/spend
func (h *WalletHandler) Spend(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	var req SpendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, h.logger, util.ErrInvalidInput)
		return
	}
	if req.Action == "" {
		respondWithError(w, h.logger, util.ErrInvalidInput)
		return
	}

	var duration *time.Duration
	if req.DurationMinutes != nil {
		if *req.DurationMinutes <= 0 {
			respondWithError(w, h.logger, util.ErrInvalidInput)
			return
		}
		d := time.Duration(*req.DurationMinutes) * time.Minute
		duration = &d
	}

	result, err := h.entitlement.SpendAndActivate(r.Context(), userID, domain.Action(req.Action), req.ReferenceID, duration)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	respondWithJSON(w, h.logger, http.StatusOK, result)
}

// GetEntitlement reports whether an entitlement grant is currently active.
// GET /users/{userID}/entitlements/{action}
func (h *WalletHandler) GetEntitlement(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	action := domain.Action(chi.URLParam(r, "action"))

	grant, active, err := h.entitlement.ActiveGrant(r.Context(), userID, action)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	payload := map[string]interface{}{
		"user_id": userID,
		"action":  action,
		"active":  active,
	}
	if grant != nil {
		payload["granted_at"] = grant.GrantedAt
		payload["expires_at"] = grant.ExpiresAt
	}
	respondWithJSON(w, h.logger, http.StatusOK, payload)
}
