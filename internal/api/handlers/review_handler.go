package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/bidtask/bidtask/internal/api/middleware"
	"github.com/bidtask/bidtask/internal/models"
	"github.com/bidtask/bidtask/internal/services"
)

type ReviewHandler struct {
	reviews *services.ReviewService
}

func NewReviewHandler(reviews *services.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviews: reviews}
}

type submitReviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

type ratingResponse struct {
	TaskerID    uuid.UUID `json:"tasker_id"`
	ReviewCount int64     `json:"review_count"`
	Average     string    `json:"average"`
}

func (h *ReviewHandler) SubmitReview(w http.ResponseWriter, r *http.Request) {
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

	var req submitReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, models.NewValidationError("body", "malformed JSON"))
		return
	}

	review, aggregate, err := h.reviews.SubmitReview(r.Context(), taskID, userID, req.Rating, req.Comment)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"review": review,
		"rating": ratingResponse{
			TaskerID:    aggregate.TaskerID,
			ReviewCount: aggregate.ReviewCount,
			Average:     aggregate.Average().String(),
		},
	})
}

func (h *ReviewHandler) ListTaskerReviews(w http.ResponseWriter, r *http.Request) {
	taskerID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, models.NewValidationError("id", "must be a UUID"))
		return
	}

	reviews, err := h.reviews.ListReviewsByTasker(r.Context(), taskerID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, reviews)
}

func (h *ReviewHandler) GetTaskerRating(w http.ResponseWriter, r *http.Request) {
	taskerID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, models.NewValidationError("id", "must be a UUID"))
		return
	}

	rating, err := h.reviews.GetTaskerRating(r.Context(), taskerID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ratingResponse{
		TaskerID:    rating.TaskerID,
		ReviewCount: rating.ReviewCount,
		Average:     rating.Average().String(),
	})
}
