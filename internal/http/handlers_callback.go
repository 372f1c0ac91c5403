package httpx

import (
	"net/http"

	"github.com/target/mmk-prompt-jobs/internal/domain/model"
	"github.com/target/mmk-prompt-jobs/internal/service"
)

// CallbackHandlers receives completion reports from queue tasks.
type CallbackHandlers struct {
	Svc *service.CallbackService
}

// Completion applies a completion report and acknowledges with the stored status.
// The secret check happens in RequireCallbackSecret.
func (h *CallbackHandlers) Completion(w http.ResponseWriter, r *http.Request) {
	var report model.CompletionReport
	if !DecodeJSON(w, r, &report) {
		return
	}

	job, err := h.Svc.Apply(r.Context(), &report)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, model.AckFor(job))
}
