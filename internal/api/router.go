package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"InterbankSim/internal/recorder"
)

// NewRouter creates the Chi router with all read-only series routes mounted.
func NewRouter(reader recorder.Reader) http.Handler {
	h := &Handlers{reader: reader}

	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.SetHeader("Content-Type", "application/json"))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/runs", h.ListRuns)
		r.Get("/runs/{runID}/days", h.GetDaySeries)
		r.Get("/runs/{runID}/banks/{bankID}", h.GetBankSeries)
		r.Get("/runs/{runID}/banks/{bankID}/ledger/{side}/{kind}", h.GetLedgerSeries)
	})

	return r
}
