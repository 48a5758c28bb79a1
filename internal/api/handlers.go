package api

import (
	"encoding/json"
	"errors"
	"log"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"InterbankSim/internal/calculator"
	"InterbankSim/internal/ledger"
	"InterbankSim/internal/model"
	"InterbankSim/internal/recorder"
)

// cashAverageWindow is the trailing window for a bank's average cash.
const cashAverageWindow = 30

// Handlers groups all HTTP handler methods and their dependencies.
type Handlers struct {
	reader recorder.Reader
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[api] encode error: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeReadError maps recorder errors to a status.
func writeReadError(w http.ResponseWriter, err error) {
	if errors.Is(err, recorder.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

func runID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "runID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid run id")
		return uuid.Nil, false
	}
	return id, true
}

func bankID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "bankID"))
	if err != nil || id < 0 {
		writeError(w, http.StatusBadRequest, "invalid bank id")
		return 0, false
	}
	return id, true
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// --- ListRuns ---

func (h *Handlers) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.reader.ListRuns(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []recorder.RunInfo{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"runs":  runs,
		"total": len(runs),
	})
}

// --- GetDaySeries ---

func (h *Handlers) GetDaySeries(w http.ResponseWriter, r *http.Request) {
	id, ok := runID(w, r)
	if !ok {
		return
	}
	days, err := h.reader.DaySeries(r.Context(), id)
	if err != nil {
		writeReadError(w, err)
		return
	}
	if days == nil {
		days = []recorder.DayStat{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"run_id": id,
		"days":   days,
	})
}

// --- GetBankSeries ---

func (h *Handlers) GetBankSeries(w http.ResponseWriter, r *http.Request) {
	id, ok := runID(w, r)
	if !ok {
		return
	}
	bank, ok := bankID(w, r)
	if !ok {
		return
	}
	days, err := h.reader.BankSeries(r.Context(), id, bank)
	if err != nil {
		writeReadError(w, err)
		return
	}
	if len(days) == 0 {
		writeError(w, http.StatusNotFound, "bank not found in run")
		return
	}

	cash := make([]float64, len(days))
	var borrowed, rescued float64
	for i, d := range days {
		cash[i] = d.Cash
		borrowed += d.Borrowed
		rescued += d.Rescued
	}
	high, low, _ := calculator.Range(cash, 0)
	avg, _ := calculator.MovingAverage(cash, min(len(cash), cashAverageWindow))
	// where the last day's cash sits in the run's range, 0 at the low
	pos, _ := calculator.Position(cash[len(cash)-1], high, low)

	writeJSON(w, http.StatusOK, map[string]any{
		"run_id":  id,
		"bank_id": bank,
		"days":    days,
		"summary": map[string]any{
			"cash_high":      round2(high),
			"cash_low":       round2(low),
			"cash_average":   round2(avg),
			"cash_position":  round2(pos),
			"total_borrowed": round2(borrowed),
			"total_rescued":  round2(rescued),
		},
	})
}

// --- GetLedgerSeries ---

func (h *Handlers) GetLedgerSeries(w http.ResponseWriter, r *http.Request) {
	id, ok := runID(w, r)
	if !ok {
		return
	}
	bank, ok := bankID(w, r)
	if !ok {
		return
	}
	side := ledger.Side(chi.URLParam(r, "side"))
	if side != ledger.SideAssets && side != ledger.SideLiabilities {
		writeError(w, http.StatusBadRequest, "side must be assets or liabilities")
		return
	}
	kind, err := model.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	points, err := h.reader.LedgerSeries(r.Context(), id, bank, side, kind)
	if err != nil {
		writeReadError(w, err)
		return
	}
	if points == nil {
		points = []recorder.SeriesPoint{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"run_id":  id,
		"bank_id": bank,
		"side":    side,
		"kind":    kind,
		"points":  points,
	})
}
