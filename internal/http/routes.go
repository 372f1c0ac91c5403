package httpx

import (
	"log/slog"
	"net/http"

	"github.com/target/mmk-prompt-jobs/internal/service"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Jobs           *service.JobService
	Callbacks      *service.CallbackService
	CallbackSecret string
	MaxBodyBytes   int64
	Logger         *slog.Logger // Optional: request and panic logging
}

// NewRouter creates the API router with recovery, logging and body limits applied.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()

	registerJobRoutes(mux, &JobHandlers{Svc: services.Jobs})
	registerCallbackRoutes(mux, &CallbackHandlers{Svc: services.Callbacks}, services.CallbackSecret)
	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))

	logger := services.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return chain(mux, Recover(logger), Logging(logger), LimitBody(services.MaxBodyBytes))
}

func registerJobRoutes(mux *http.ServeMux, h *JobHandlers) {
	mux.HandleFunc("POST /api/jobs", h.CreateJob)
	mux.HandleFunc("GET /api/jobs", h.ListJobs)
	mux.HandleFunc("GET /api/jobs/stats", h.Stats)
	mux.HandleFunc("GET /api/jobs/{id}", h.GetJob)
	mux.HandleFunc("POST /api/jobs/{id}/anomaly", h.SimulateAnomaly)
	mux.HandleFunc("DELETE /api/jobs/{id}", h.DeleteJob)
}

func registerCallbackRoutes(mux *http.ServeMux, h *CallbackHandlers, secret string) {
	mux.Handle("POST /api/callbacks/completion",
		RequireCallbackSecret(secret)(http.HandlerFunc(h.Completion)))
}
