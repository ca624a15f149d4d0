// internal/api/handler/common.go
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"sparkwallet/internal/util"
)

// DefaultTimeout bounds every request handled by the router.
const DefaultTimeout = 15 * time.Second

// respondWithJSON writes a JSON response with the given status code.
func respondWithJSON(w http.ResponseWriter, logger *logrus.Logger, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		logger.WithError(err).Error("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

// respondWithError maps service errors onto HTTP statuses. The insufficient
// credits case carries its required/available amounts through to the body so
// clients can prompt an exact top-up.
func respondWithError(w http.ResponseWriter, logger *logrus.Logger, err error) {
	var insufficient *util.InsufficientCreditsError
	if errors.As(err, &insufficient) {
		respondWithJSON(w, logger, http.StatusPaymentRequired, map[string]interface{}{
			"error":     "insufficient credits",
			"required":  insufficient.Required,
			"available": insufficient.Available,
		})
		return
	}

	statusCode := http.StatusInternalServerError
	message := "Internal server error"

	switch {
	case util.IsError(err, util.ErrInsufficientFunds):
		statusCode = http.StatusPaymentRequired
		message = "Insufficient funds"
	case util.IsError(err, util.ErrUnknownAction):
		// Config/programmer error on the caller's side; log it loudly.
		logger.WithError(err).Error("Unknown premium action requested")
		statusCode = http.StatusBadRequest
		message = "Unknown action"
	case util.IsError(err, util.ErrInvalidInput):
		statusCode = http.StatusBadRequest
		message = err.Error()
	case util.IsError(err, util.ErrNotFound):
		statusCode = http.StatusNotFound
		message = "Resource not found"
	case util.IsError(err, util.ErrReactivationNotAllowed):
		statusCode = http.StatusConflict
		message = "Membership already expired, a new subscription is required"
	case util.IsError(err, util.ErrStorageUnavailable), util.IsError(err, util.ErrCommerceUnavailable):
		statusCode = http.StatusServiceUnavailable
		message = "Service temporarily unavailable"
	default:
		logger.WithError(err).Error("Unhandled service error")
	}

	respondWithJSON(w, logger, statusCode, map[string]string{"error": message})
}

// userIDParam parses the {userID} route parameter.
func userIDParam(r *http.Request) (int64, error) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || userID <= 0 {
		return 0, util.ErrInvalidInput
	}
	return userID, nil
}

// pagination parses limit/offset query parameters with sane defaults.
func pagination(r *http.Request) (limit, offset int) {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 || limit > 100 {
		limit = 10
	}
	offset, err = strconv.Atoi(r.URL.Query().Get("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}
