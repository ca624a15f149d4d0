// internal/api/handler/membership.go
package handler

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"sparkwallet/internal/service"
)

// MembershipHandler exposes resolved tier state to feature consumers.
type MembershipHandler struct {
	membership service.MembershipService
	logger     *logrus.Logger
}

// NewMembershipHandler creates a new MembershipHandler.
func NewMembershipHandler(membership service.MembershipService, logger *logrus.Logger) *MembershipHandler {
	return &MembershipHandler{membership: membership, logger: logger}
}

// GetMembership returns the resolved tier plus its feature and limit tables.
// GET /users/{userID}/membership
func (h *MembershipHandler) GetMembership(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	membership, err := h.membership.Resolve(r.Context(), userID)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	respondWithJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"user_id":    membership.UserID,
		"tier":       membership.Tier,
		"started_at": membership.StartedAt,
		"expires_at": membership.ExpiresAt,
		"features":   h.membership.Features(membership.Tier),
		"limits":     h.membership.Limits(membership.Tier),
	})
}
