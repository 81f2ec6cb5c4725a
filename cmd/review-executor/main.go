package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Lllllllleong/architecturereview/internal/errs"
	"github.com/Lllllllleong/architecturereview/internal/models"
	"github.com/Lllllllleong/architecturereview/internal/services"
)

var (
	executorInstance *services.ReviewExecutorFunction
	once             sync.Once
	initErr          error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	functions.HTTP("HandleExecuteReview", handleExecuteReview)
	functions.HTTP("HandleMetrics", promhttp.Handler().ServeHTTP)
}

// main is required by the Go Functions Framework.
func main() {}

func handleExecuteReview(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		executorInstance, initErr = services.NewReviewExecutor(context.Background())
	})
	if initErr != nil {
		slog.Error("Review executor initialization failed", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}

	var req models.ReviewExecutionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Could not decode request body", "error", err)
		http.Error(w, "Bad Request: could not parse JSON", http.StatusBadRequest)
		return
	}

	res, err := executorInstance.Process(r.Context(), &req)
	if err != nil {
		// Already logged with run context inside Process.
		http.Error(w, err.Error(), errs.HTTPStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(res); err != nil {
		slog.Error("Failed to write response", "error", err)
		http.Error(w, "Internal Server Error: failed to encode response", http.StatusInternalServerError)
	}
}
