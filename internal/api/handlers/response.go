package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/bidtask/bidtask/internal/models"
	"github.com/bidtask/bidtask/pkg/logger"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		if err := json.NewEncoder(w).Encode(body); err != nil {
			log := logger.WithComponent("http")
			log.Debug().Err(err).Msg("Response encode failed")
		}
	}
}

// writeError maps domain conditions onto stable machine codes. The mobile
// clients branch on these codes, so each condition keeps its own.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrTaskNotFound),
		errors.Is(err, models.ErrBidNotFound),
		errors.Is(err, models.ErrPaymentNotFound),
		errors.Is(err, models.ErrReviewNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Code: "not_found", Message: err.Error()})
	case errors.Is(err, models.ErrForbidden):
		writeJSON(w, http.StatusForbidden, errorResponse{Code: "forbidden", Message: err.Error()})
	case errors.Is(err, models.ErrDuplicateBid):
		writeJSON(w, http.StatusConflict, errorResponse{Code: "duplicate_bid", Message: err.Error()})
	case errors.Is(err, models.ErrDuplicateReview):
		writeJSON(w, http.StatusConflict, errorResponse{Code: "duplicate_review", Message: err.Error()})
	case errors.Is(err, models.ErrStaleVersion):
		writeJSON(w, http.StatusConflict, errorResponse{Code: "stale_version", Message: err.Error()})
	case models.IsInvalidTransition(err):
		writeJSON(w, http.StatusConflict, errorResponse{Code: "invalid_state_transition", Message: err.Error()})
	case models.IsValidation(err):
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: "validation_error", Message: err.Error()})
	case errors.Is(err, models.ErrSettlementFailed):
		writeJSON(w, http.StatusBadGateway, errorResponse{Code: "settlement_failed", Message: err.Error()})
	default:
		log := logger.WithComponent("http")
		log.Error().Err(err).Msg("Unhandled error")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Code: "internal", Message: "internal server error"})
	}
}
