// internal/api/handler/billing.go
package handler

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"sparkwallet/internal/api/types"
	"sparkwallet/internal/service"
)

// BillingHandler serves user-facing billing statements.
type BillingHandler struct {
	billing service.BillingHistoryService
	logger  *logrus.Logger
}

// NewBillingHandler creates a new BillingHandler.
func NewBillingHandler(billing service.BillingHistoryService, logger *logrus.Logger) *BillingHandler {
	return &BillingHandler{billing: billing, logger: logger}
}

// GetHistory returns one page of the user's billing statement.
// GET /users/{userID}/billing/history
func (h *BillingHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	limit, offset := pagination(r)

	entries, total, err := h.billing.History(r.Context(), userID, limit, offset)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	respondWithJSON(w, h.logger, http.StatusOK, types.PaginatedResponse[service.BillingEntry]{
		Data:       entries,
		Limit:      limit,
		Offset:     offset,
		TotalCount: total,
	})
}
