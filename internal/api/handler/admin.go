// internal/api/handler/admin.go
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"sparkwallet/internal/service"
	"sparkwallet/internal/util"
)

// AdminHandler handles the privileged wallet adjustment path. The router is
// expected to sit behind the admin console's authentication; the acting
// admin's identity arrives in the request body and is persisted on the
// ledger row.
type AdminHandler struct {
	admin  service.AdminService
	logger *logrus.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(admin service.AdminService, logger *logrus.Logger) *AdminHandler {
	return &AdminHandler{admin: admin, logger: logger}
}

// AdjustRequest represents the request body for an admin adjustment.
type AdjustRequest struct {
	Delta   int64  `json:"delta"`
	Reason  string `json:"reason"`
	AdminID int64  `json:"admin_id"`
}

// Adjust handles a support credit/debit outside the normal spend flow.
// POST /admin/users/{userID}/wallet/adjust
func (h *AdminHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	var req AdjustRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, h.logger, util.ErrInvalidInput)
		return
	}

	result, err := h.admin.Adjust(r.Context(), userID, req.Delta, req.Reason, req.AdminID)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"user_id":     userID,
		"admin_id":    req.AdminID,
		"delta":       req.Delta,
		"new_balance": result.NewBalance,
	}).Info("Admin wallet adjustment applied")

	respondWithJSON(w, h.logger, http.StatusOK, result)
}
