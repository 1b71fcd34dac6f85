package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/copyleftdev/hoyosign/internal/push"
	"github.com/copyleftdev/hoyosign/internal/taskstypes"
)

// RunFunc executes one full run and returns its report along with the
// per-channel push outcomes.
type RunFunc func(ctx context.Context) (*taskstypes.Report, []push.Delivery)

type APIHandler struct {
	run    RunFunc
	logger *zap.Logger

	mu             sync.Mutex
	running        bool
	lastReport     *taskstypes.Report
	lastDeliveries []push.Delivery
}

func NewAPIHandler(run RunFunc, logger *zap.Logger) *APIHandler {
	return &APIHandler{
		run:    run,
		logger: logger,
	}
}

type TriggerRunResponse struct {
	Message string `json:"message"`
}

type ReportResponse struct {
	Report     *taskstypes.Report `json:"report"`
	Deliveries []push.Delivery    `json:"deliveries,omitempty"`
}

// HandleTriggerRun starts a run in the background. Only one run may be in
// flight; a second trigger while running answers 409.
func (h *APIHandler) HandleTriggerRun(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		h.respondError(w, http.StatusConflict, "a run is already in progress")
		return
	}
	h.running = true
	h.mu.Unlock()

	go func() {
		// The run outlives the triggering request on purpose.
		report, deliveries := h.run(context.Background())

		h.mu.Lock()
		h.running = false
		h.lastReport = report
		h.lastDeliveries = deliveries
		h.mu.Unlock()

		h.logger.Info("triggered run finished", zap.String("run_id", report.RunID.String()))
	}()

	h.respondJSON(w, http.StatusAccepted, TriggerRunResponse{Message: "run started"})
}

func (h *APIHandler) HandleGetReport(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	report := h.lastReport
	deliveries := h.lastDeliveries
	running := h.running
	h.mu.Unlock()

	if report == nil {
		if running {
			h.respondError(w, http.StatusNotFound, "run in progress, no report yet")
		} else {
			h.respondError(w, http.StatusNotFound, "no run has completed yet")
		}
		return
	}

	h.respondJSON(w, http.StatusOK, ReportResponse{Report: report, Deliveries: deliveries})
}

// --- Helper Functions ---

func (h *APIHandler) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("marshalling JSON response", zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, "failed to marshal JSON response")
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(response); err != nil {
		h.logger.Error("writing JSON response", zap.Error(err))
	}
}

func (h *APIHandler) respondError(w http.ResponseWriter, status int, format string, args ...interface{}) {
	errorMessage := fmt.Sprintf(format, args...)
	response := map[string]string{"error": errorMessage}
	jsonResponse, err := json.Marshal(response)
	if err != nil {
		h.logger.Error("marshalling JSON error response", zap.Error(err))
		jsonResponse = []byte(fmt.Sprintf(`{"error":%q}`, errorMessage))
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(jsonResponse); err != nil {
		h.logger.Error("writing error response", zap.Error(err))
	}
}
