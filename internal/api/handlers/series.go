package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/futures/backend/internal/contracts"
	"github.com/wonny/futures/backend/pkg/logger"
)

const dayLayout = "2006-01-02"

// SeriesHandler serves instruments, continuous series and contract bars
// ⭐ SSOT: 연속 시계열 조회 API 핸들러는 이 구조체에서만
type SeriesHandler struct {
	bars   contracts.DailyBarStore
	series contracts.MainSeriesStore
	logger *logger.Logger
}

// NewSeriesHandler creates a new series handler
func NewSeriesHandler(bars contracts.DailyBarStore, series contracts.MainSeriesStore, log *logger.Logger) *SeriesHandler {
	return &SeriesHandler{
		bars:   bars,
		series: series,
		logger: log,
	}
}

// InstrumentsResponse lists product state
type InstrumentsResponse struct {
	Count       int                    `json:"count"`
	Instruments []contracts.Instrument `json:"instruments"`
}

// ListInstruments returns every product's main-contract state
// GET /api/instruments?exchange=SHFE
func (h *SeriesHandler) ListInstruments(w http.ResponseWriter, r *http.Request) {
	var filter contracts.Exchange
	if s := r.URL.Query().Get("exchange"); s != "" {
		ex, err := contracts.ParseExchange(s)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		filter = ex
	}

	all, err := h.series.ListInstruments(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to list instruments")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve instruments")
		return
	}

	out := make([]contracts.Instrument, 0, len(all))
	for _, inst := range all {
		if filter == "" || inst.Exchange == filter {
			out = append(out, inst)
		}
	}

	respondJSON(w, http.StatusOK, InstrumentsResponse{Count: len(out), Instruments: out})
}

// GetInstrument returns one product's state
// GET /api/instruments/{exchange}/{product}
func (h *SeriesHandler) GetInstrument(w http.ResponseWriter, r *http.Request) {
	ex, product, ok := pathProduct(w, r)
	if !ok {
		return
	}

	inst, err := h.series.GetInstrument(r.Context(), ex, product)
	if errors.Is(err, contracts.ErrNotFound) {
		respondError(w, http.StatusNotFound, "instrument not found")
		return
	}
	if err != nil {
		h.logger.WithError(err).WithExchange(string(ex)).WithField("product", product).Error("Failed to get instrument")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve instrument")
		return
	}

	respondJSON(w, http.StatusOK, inst)
}

// MainBarsResponse is a slice of the continuous series
type MainBarsResponse struct {
	Exchange contracts.Exchange  `json:"exchange"`
	Product  string              `json:"product"`
	Count    int                 `json:"count"`
	Bars     []contracts.MainBar `json:"bars"`
}

// GetMainBars returns the back-adjusted series
// GET /api/main-bars/{exchange}/{product}?from=2024-01-01&to=2024-03-31
func (h *SeriesHandler) GetMainBars(w http.ResponseWriter, r *http.Request) {
	ex, product, ok := pathProduct(w, r)
	if !ok {
		return
	}

	from, err := parseDay(r.URL.Query().Get("from"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid 'from' date format (expected YYYY-MM-DD)")
		return
	}
	to, err := parseDay(r.URL.Query().Get("to"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid 'to' date format (expected YYYY-MM-DD)")
		return
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		respondError(w, http.StatusBadRequest, "'to' is before 'from'")
		return
	}

	rows, err := h.series.MainBars(r.Context(), ex, product, from, to)
	if err != nil {
		h.logger.WithError(err).WithExchange(string(ex)).WithField("product", product).Error("Failed to get main bars")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve main bars")
		return
	}
	if rows == nil {
		rows = []contracts.MainBar{}
	}

	respondJSON(w, http.StatusOK, MainBarsResponse{
		Exchange: ex,
		Product:  product,
		Count:    len(rows),
		Bars:     rows,
	})
}

// DailyBarsResponse lists every contract of a product on one day
type DailyBarsResponse struct {
	Exchange contracts.Exchange   `json:"exchange"`
	Product  string               `json:"product"`
	Day      string               `json:"day"`
	Count    int                  `json:"count"`
	Bars     []contracts.DailyBar `json:"bars"`
}

// GetDailyBars returns a product's contracts on a day, most liquid first
// GET /api/daily-bars/{exchange}/{product}?day=2024-03-08
func (h *SeriesHandler) GetDailyBars(w http.ResponseWriter, r *http.Request) {
	ex, product, ok := pathProduct(w, r)
	if !ok {
		return
	}

	day, err := parseDay(r.URL.Query().Get("day"))
	if err != nil || day.IsZero() {
		respondError(w, http.StatusBadRequest, "'day' is required (expected YYYY-MM-DD)")
		return
	}

	rows, err := h.bars.QueryBars(r.Context(), contracts.BarQuery{
		Exchange: ex,
		Product:  product,
		From:     day,
		To:       day,
		OrderBy:  contracts.OrderByLiquidity,
	})
	if err != nil {
		h.logger.WithError(err).WithExchange(string(ex)).WithDay(day).Error("Failed to get daily bars")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve daily bars")
		return
	}
	if rows == nil {
		rows = []contracts.DailyBar{}
	}

	respondJSON(w, http.StatusOK, DailyBarsResponse{
		Exchange: ex,
		Product:  product,
		Day:      day.Format(dayLayout),
		Count:    len(rows),
		Bars:     rows,
	})
}

// pathProduct reads {exchange}/{product}; writes a 400 and returns false
// when either is invalid.
func pathProduct(w http.ResponseWriter, r *http.Request) (contracts.Exchange, string, bool) {
	vars := mux.Vars(r)

	ex, err := contracts.ParseExchange(vars["exchange"])
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return "", "", false
	}

	product := strings.TrimSpace(vars["product"])
	if product == "" || contracts.ProductOf(product) != product {
		respondError(w, http.StatusBadRequest, "product must be letters only")
		return "", "", false
	}

	return ex, product, true
}

// parseDay accepts an empty string as the zero time
func parseDay(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dayLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return contracts.Day(t), nil
}
