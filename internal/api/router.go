package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/bidtask/bidtask/internal/api/handlers"
	"github.com/bidtask/bidtask/internal/api/middleware"
	"github.com/bidtask/bidtask/internal/telemetry"
)

// Router wraps mux.Router to add more functionality
type Router struct {
	*mux.Router
	endpoint string
}

// NewRouter creates and configures a new router with all dependencies
func NewRouter(
	taskHandler *handlers.TaskHandler,
	bidHandler *handlers.BidHandler,
	paymentHandler *handlers.PaymentHandler,
	reviewHandler *handlers.ReviewHandler,
	taskFeed *handlers.TaskFeedHandler,
	jwtSecret string,
	endpoint string,
) *Router {
	r := &Router{
		Router:   mux.NewRouter(),
		endpoint: endpoint,
	}

	r.Use(middleware.Logging)
	r.Use(telemetry.MetricsMiddleware)

	r.Handle("/metrics", telemetry.MetricsHandler()).Methods("GET")
	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")
	r.Handle("/ws", taskFeed).Methods("GET")

	api := r.PathPrefix(endpoint).Subrouter()
	api.Use(middleware.Auth(jwtSecret))

	tasks := api.PathPrefix("/tasks").Subrouter()
	tasks.HandleFunc("", taskHandler.CreateTask).Methods("POST")
	tasks.HandleFunc("", taskHandler.ListTasks).Methods("GET")
	tasks.HandleFunc("/{id}", taskHandler.GetTask).Methods("GET")
	tasks.HandleFunc("/{id}/complete", taskHandler.CompleteTask).Methods("POST")
	tasks.HandleFunc("/{id}/cancel", taskHandler.CancelTask).Methods("POST")
	tasks.HandleFunc("/{id}/payment", taskHandler.GetTaskPayment).Methods("GET")
	tasks.HandleFunc("/{id}/bids", bidHandler.SubmitBid).Methods("POST")
	tasks.HandleFunc("/{id}/bids", bidHandler.ListTaskBids).Methods("GET")
	tasks.HandleFunc("/{id}/bids/{bidID}/accept", bidHandler.AcceptBid).Methods("POST")
	tasks.HandleFunc("/{id}/reviews", reviewHandler.SubmitReview).Methods("POST")

	bids := api.PathPrefix("/bids").Subrouter()
	bids.HandleFunc("", bidHandler.ListMyBids).Methods("GET")
	bids.HandleFunc("/{id}/withdraw", bidHandler.WithdrawBid).Methods("POST")

	payments := api.PathPrefix("/payments").Subrouter()
	payments.HandleFunc("", paymentHandler.ListPayments).Methods("GET")
	payments.HandleFunc("/{id}", paymentHandler.GetPayment).Methods("GET")
	payments.HandleFunc("/{id}/retry", paymentHandler.RetrySettlement).Methods("POST")

	taskers := api.PathPrefix("/taskers").Subrouter()
	taskers.HandleFunc("/{id}/reviews", reviewHandler.ListTaskerReviews).Methods("GET")
	taskers.HandleFunc("/{id}/rating", reviewHandler.GetTaskerRating).Methods("GET")

	return r
}
