package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/bidtask/bidtask/internal/api/middleware"
	"github.com/bidtask/bidtask/internal/models"
	"github.com/bidtask/bidtask/internal/services"
)

type BidHandler struct {
	bids *services.BidService
}

func NewBidHandler(bids *services.BidService) *BidHandler {
	return &BidHandler{bids: bids}
}

type submitBidRequest struct {
	Amount  decimal.Decimal `json:"amount"`
	Message string          `json:"message"`
}

type acceptBidRequest struct {
	ExpectedVersion int64 `json:"expected_version"`
}

func (h *BidHandler) SubmitBid(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	taskID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, models.NewValidationError("id", "must be a UUID"))
		return
	}

	var req submitBidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, models.NewValidationError("body", "malformed JSON"))
		return
	}

	bid, err := h.bids.SubmitBid(r.Context(), taskID, userID, req.Amount, req.Message)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, bid)
}

func (h *BidHandler) ListTaskBids(w http.ResponseWriter, r *http.Request) {
	taskID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, models.NewValidationError("id", "must be a UUID"))
		return
	}

	bids, err := h.bids.ListBids(r.Context(), taskID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, bids)
}

func (h *BidHandler) ListMyBids(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	bids, err := h.bids.ListBidsByTasker(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, bids)
}

func (h *BidHandler) AcceptBid(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	vars := mux.Vars(r)
	taskID, err := uuid.Parse(vars["id"])
	if err != nil {
		writeError(w, models.NewValidationError("id", "must be a UUID"))
		return
	}
	bidID, err := uuid.Parse(vars["bidID"])
	if err != nil {
		writeError(w, models.NewValidationError("bidID", "must be a UUID"))
		return
	}

	var req acceptBidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, models.NewValidationError("body", "malformed JSON"))
		return
	}

	task, bid, err := h.bids.AcceptBid(r.Context(), taskID, bidID, userID, req.ExpectedVersion)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"task": task,
		"bid":  bid,
	})
}

func (h *BidHandler) WithdrawBid(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	bidID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, models.NewValidationError("id", "must be a UUID"))
		return
	}

	bid, err := h.bids.WithdrawBid(r.Context(), bidID, userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, bid)
}
