package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/wonny/futures/backend/internal/collector"
	"github.com/wonny/futures/backend/pkg/logger"
)

// maxCollectDays bounds a synchronous collection request
const maxCollectDays = 31

// Collector is the part of collector.Collector the API triggers
type Collector interface {
	Run(ctx context.Context, from, to time.Time, opts collector.Options) (*collector.Report, error)
}

// DataHandler handles collection endpoints
// ⭐ SSOT: 수집 트리거 API 핸들러는 이 구조체에서만
type DataHandler struct {
	collector Collector
	workers   int
	loc       *time.Location
	logger    *logger.Logger
	now       func() time.Time
}

// NewDataHandler creates a new data handler. loc is the exchange-local zone
// used to default an omitted range to today.
func NewDataHandler(col Collector, workers int, loc *time.Location, log *logger.Logger) *DataHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &DataHandler{
		collector: col,
		workers:   workers,
		loc:       loc,
		logger:    log,
		now:       time.Now,
	}
}

// CollectRequest represents a data collection request
type CollectRequest struct {
	From       string `json:"from"` // YYYY-MM-DD, default today
	To         string `json:"to"`   // YYYY-MM-DD, default today
	SkipSelect bool   `json:"skip_select"`
}

// CollectResponse represents a data collection response
type CollectResponse struct {
	Status  string            `json:"status"`
	Message string            `json:"message"`
	Report  *collector.Report `json:"report,omitempty"`
}

// Collect runs a collection over the requested range
// POST /api/collect
func (h *DataHandler) Collect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CollectRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	local := h.now().In(h.loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)

	from, err := parseDay(req.From)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid 'from' date format (expected YYYY-MM-DD)")
		return
	}
	to, err := parseDay(req.To)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid 'to' date format (expected YYYY-MM-DD)")
		return
	}
	if to.IsZero() {
		to = today
	}
	if from.IsZero() {
		from = to
	}

	if to.Before(from) {
		respondError(w, http.StatusBadRequest, "'to' is before 'from'")
		return
	}
	if to.Sub(from) >= maxCollectDays*24*time.Hour {
		respondError(w, http.StatusBadRequest, "range too long (use the CLI for backfills)")
		return
	}

	h.logger.WithFields(map[string]interface{}{
		"from":        from.Format(dayLayout),
		"to":          to.Format(dayLayout),
		"skip_select": req.SkipSelect,
	}).Info("Data collection triggered")

	report, err := h.collector.Run(ctx, from, to, collector.Options{Workers: h.workers, SkipSelect: req.SkipSelect})
	if err != nil {
		h.logger.WithError(err).Error("Failed to collect")
		respondJSON(w, http.StatusInternalServerError, CollectResponse{
			Status:  "error",
			Message: err.Error(),
			Report:  report,
		})
		return
	}

	status := "success"
	if report.FetchFailures() > 0 {
		status = "partial"
	}

	respondJSON(w, http.StatusOK, CollectResponse{
		Status:  status,
		Message: "Collection finished",
		Report:  report,
	})
}

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
