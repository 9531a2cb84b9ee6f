package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/bidtask/bidtask/internal/api/middleware"
	"github.com/bidtask/bidtask/internal/database/repositories"
	"github.com/bidtask/bidtask/internal/models"
	"github.com/bidtask/bidtask/internal/services"
)

type TaskHandler struct {
	tasks    *services.TaskService
	payments *services.PaymentService
}

func NewTaskHandler(tasks *services.TaskService, payments *services.PaymentService) *TaskHandler {
	return &TaskHandler{tasks: tasks, payments: payments}
}

type createTaskRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Location    string          `json:"location"`
	Budget      decimal.Decimal `json:"budget"`
	ImageRefs   []string        `json:"image_refs"`
}

type versionRequest struct {
	ExpectedVersion int64 `json:"expected_version"`
}

func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, models.NewValidationError("body", "malformed JSON"))
		return
	}

	task, err := h.tasks.CreateTask(r.Context(), services.CreateTaskInput{
		ClientID:    userID,
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		Budget:      req.Budget,
		ImageRefs:   req.ImageRefs,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, task)
}

func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	taskID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, models.NewValidationError("id", "must be a UUID"))
		return
	}

	task, err := h.tasks.GetTask(r.Context(), taskID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	filter := repositories.TaskFilter{
		Status: models.TaskStatus(r.URL.Query().Get("status")),
	}
	if filter.Status != "" && !models.ValidTaskStatus(filter.Status) {
		writeError(w, models.NewValidationError("status", "unknown task status"))
		return
	}
	if r.URL.Query().Get("mine") == "true" {
		filter.ClientID = userID
	}

	tasks, err := h.tasks.ListTasks(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tasks)
}

func (h *TaskHandler) CompleteTask(w http.ResponseWriter, r *http.Request) {
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

	var req versionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, models.NewValidationError("body", "malformed JSON"))
		return
	}

	task, payment, err := h.tasks.CompleteTask(r.Context(), taskID, userID, req.ExpectedVersion)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"task":    task,
		"payment": payment,
	})
}

func (h *TaskHandler) CancelTask(w http.ResponseWriter, r *http.Request) {
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

	var req versionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, models.NewValidationError("body", "malformed JSON"))
		return
	}

	task, err := h.tasks.CancelTask(r.Context(), taskID, userID, req.ExpectedVersion)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) GetTaskPayment(w http.ResponseWriter, r *http.Request) {
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

	payment, err := h.payments.GetPaymentByTask(r.Context(), taskID, userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, payment)
}
