package handlers

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/bidtask/bidtask/internal/api/middleware"
	"github.com/bidtask/bidtask/internal/models"
	"github.com/bidtask/bidtask/internal/services"
)

type PaymentHandler struct {
	payments *services.PaymentService
}

func NewPaymentHandler(payments *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

func (h *PaymentHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	payments, err := h.payments.ListPayments(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, payments)
}

func (h *PaymentHandler) GetPayment(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	paymentID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, models.NewValidationError("id", "must be a UUID"))
		return
	}

	payment, err := h.payments.GetPayment(r.Context(), paymentID, userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, payment)
}

// RetrySettlement re-runs settlement for a failed payment. Settled payments
// are returned unchanged.
func (h *PaymentHandler) RetrySettlement(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	paymentID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, models.NewValidationError("id", "must be a UUID"))
		return
	}

	payment, err := h.payments.RetrySettlement(r.Context(), paymentID, userID)
	if err != nil {
		if errors.Is(err, models.ErrSettlementFailed) && payment != nil {
			// The retry ran and the gateway refused again. The payment rides
			// along in the error body so the client can show its state.
			writeJSON(w, http.StatusBadGateway, struct {
				errorResponse
				Payment *models.Payment `json:"payment"`
			}{
				errorResponse{Code: "settlement_failed", Message: err.Error()},
				payment,
			})
			return
		}
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, payment)
}
