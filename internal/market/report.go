package market

import (
	"InterbankSim/internal/bank"
	"InterbankSim/internal/calculator"
	"InterbankSim/internal/ledger"
	"InterbankSim/internal/model"
)

// LoanTally is a count and total volume of loans.
type LoanTally struct {
	Count  int
	Volume float64
}

// BankSnapshot is one bank's state at the end of a day, before rollup.
type BankSnapshot struct {
	ID          int
	Cash        float64
	Reliability float64
	Delta       float64

	Inflows       float64
	Obligations   float64
	Reserve       float64
	OperatingCost float64
	// Shortfall is the deficit found by Solve, before matching and rescue.
	Shortfall float64
	Borrowed  float64
	Rescued   float64

	AcceptedDeposits int
	AcceptedCredits  int
	RejectedCredits  int
}

// DayReport summarises one settlement day.
type DayReport struct {
	Day   int
	Banks []BankSnapshot

	CentralBankCash float64
	// CashBefore and CashAfter are system totals including the central bank.
	CashBefore     float64
	CashAfter      float64
	Inflows        float64
	Obligations    float64
	OperatingCosts float64
	// Liquidity is commercial bank cash; HHI its concentration.
	Liquidity float64
	HHI       float64

	Created     map[model.Kind]LoanTally
	Outstanding map[model.Kind]LoanTally
	// Deficits counts banks that needed funding after Solve.
	Deficits int
	Rescues  int
}

// Bank returns the snapshot for one bank id.
func (r *DayReport) Bank(id int) (BankSnapshot, bool) {
	for _, s := range r.Banks {
		if s.ID == id {
			return s, true
		}
	}
	return BankSnapshot{}, false
}

func (e *Engine) report(cashBefore float64) *DayReport {
	r := &DayReport{
		Day:             e.day,
		Banks:           make([]BankSnapshot, 0, len(e.banks)),
		CentralBankCash: e.cb.Cash,
		CashBefore:      cashBefore,
		CashAfter:       e.systemCash(),
		Inflows:         e.cb.InflowsToday,
		Obligations:     e.cb.ObligationsToday,
		Liquidity:       calculator.SystemLiquidity(e.banks),
		HHI:             calculator.HHI(e.banks),
		Created:         make(map[model.Kind]LoanTally, len(e.today.created)),
		Outstanding:     e.outstanding(),
		Deficits:        len(e.unsolved),
		Rescues:         len(e.today.rescued),
	}
	for k, v := range e.today.created {
		r.Created[k] = v
	}
	for _, b := range e.banks {
		r.Inflows += b.InflowsToday
		r.Obligations += b.ObligationsToday
		r.OperatingCosts += b.OperatingCost
		r.Banks = append(r.Banks, e.snapshot(b))
	}
	return r
}

func (e *Engine) snapshot(b *bank.Bank) BankSnapshot {
	return BankSnapshot{
		ID:               b.ID,
		Cash:             b.Cash,
		Reliability:      b.Reliability,
		Delta:            b.Delta,
		Inflows:          b.InflowsToday,
		Obligations:      b.ObligationsToday,
		Reserve:          b.ReserveDue,
		OperatingCost:    b.OperatingCost,
		Shortfall:        b.Shortfall,
		Borrowed:         e.today.borrowed[b.ID],
		Rescued:          e.today.rescued[b.ID],
		AcceptedDeposits: b.AcceptedDeposits,
		AcceptedCredits:  b.AcceptedCredits,
		RejectedCredits:  b.RejectedCredits,
	}
}

// outstanding counts open contracts per kind. Loans are counted once, on the
// lender's side; deposits on the taking bank's liabilities.
func (e *Engine) outstanding() map[model.Kind]LoanTally {
	assets := make([]*ledger.Ledger, len(e.banks))
	liabilities := make([]*ledger.Ledger, len(e.banks))
	for i, b := range e.banks {
		assets[i] = b.Assets
		liabilities[i] = b.Liabilities
	}

	out := make(map[model.Kind]LoanTally, len(model.Kinds))
	for _, kind := range model.Kinds {
		var lt LoanTally
		switch kind {
		case model.KindDeposit:
			lt.Count, lt.Volume = calculator.OutstandingVolume(liabilities, kind)
		case model.KindCentralBankLoan:
			lt.Count, lt.Volume = calculator.OutstandingVolume([]*ledger.Ledger{e.cb.Assets}, kind)
		default:
			lt.Count, lt.Volume = calculator.OutstandingVolume(assets, kind)
		}
		out[kind] = lt
	}
	return out
}
