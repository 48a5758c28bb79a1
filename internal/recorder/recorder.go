package recorder

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"InterbankSim/internal/ledger"
	"InterbankSim/internal/market"
	"InterbankSim/internal/model"
)

// ErrNotFound is returned by readers for an unknown run.
var ErrNotFound = errors.New("not found")

// RunInfo describes one simulation run.
type RunInfo struct {
	ID           uuid.UUID `json:"id"`
	Seed         int64     `json:"seed"`
	Banks        int       `json:"banks"`
	Days         int       `json:"days"`
	Distribution string    `json:"distribution"`
	StartedAt    time.Time `json:"started_at"`
}

// DayStat holds the system-wide numbers of one day.
type DayStat struct {
	Day               int     `json:"day"`
	CashBefore        float64 `json:"cash_before"`
	CashAfter         float64 `json:"cash_after"`
	CentralBankCash   float64 `json:"central_bank_cash"`
	Inflows           float64 `json:"inflows"`
	Obligations       float64 `json:"obligations"`
	OperatingCosts    float64 `json:"operating_costs"`
	Deficits          int     `json:"deficits"`
	Rescues           int     `json:"rescues"`
	InterbankCount    int     `json:"interbank_count"`
	InterbankVolume   float64 `json:"interbank_volume"`
	CentralBankCount  int     `json:"central_bank_count"`
	CentralBankVolume float64 `json:"central_bank_volume"`
	Liquidity         float64 `json:"liquidity"`
	HHI               float64 `json:"hhi"`

	// Outstanding loans after the day, counted on the lender's side.
	OutstandingInterbankCount    int     `json:"outstanding_interbank_count"`
	OutstandingInterbankVolume   float64 `json:"outstanding_interbank_volume"`
	OutstandingCentralBankCount  int     `json:"outstanding_central_bank_count"`
	OutstandingCentralBankVolume float64 `json:"outstanding_central_bank_volume"`
}

// BankDay is one bank's row for one day.
type BankDay struct {
	Day              int     `json:"day"`
	BankID           int     `json:"bank_id"`
	Cash             float64 `json:"cash"`
	Reliability      float64 `json:"reliability"`
	Delta            float64 `json:"delta"`
	Shortfall        float64 `json:"shortfall"`
	Borrowed         float64 `json:"borrowed"`
	Rescued          float64 `json:"rescued"`
	AcceptedDeposits int     `json:"accepted_deposits"`
	AcceptedCredits  int     `json:"accepted_credits"`
	RejectedCredits  int     `json:"rejected_credits"`
}

// LedgerPoint is the cumulative open volume of one kind on one side of a
// bank's books after rollup.
type LedgerPoint struct {
	BankID int         `json:"bank_id"`
	Side   ledger.Side `json:"side"`
	Kind   model.Kind  `json:"kind"`
	Value  float64     `json:"value"`
}

// SeriesPoint is one day of a ledger series.
type SeriesPoint struct {
	Day   int     `json:"day"`
	Value float64 `json:"value"`
}

// Recorder persists a run's day series for analysis.
type Recorder interface {
	StartRun(info RunInfo) error
	RecordDay(report *market.DayReport, points []LedgerPoint) error
	Close() error
}

// Reader serves recorded series.
type Reader interface {
	ListRuns(ctx context.Context) ([]RunInfo, error)
	DaySeries(ctx context.Context, runID uuid.UUID) ([]DayStat, error)
	BankSeries(ctx context.Context, runID uuid.UUID, bankID int) ([]BankDay, error)
	LedgerSeries(ctx context.Context, runID uuid.UUID, bankID int, side ledger.Side, kind model.Kind) ([]SeriesPoint, error)
}

// NewDayStat flattens a day report.
func NewDayStat(r *market.DayReport) DayStat {
	ib := r.Created[model.KindInterbankLoan]
	cb := r.Created[model.KindCentralBankLoan]
	openIB := r.Outstanding[model.KindInterbankLoan]
	openCB := r.Outstanding[model.KindCentralBankLoan]
	return DayStat{
		Day:               r.Day,
		CashBefore:        r.CashBefore,
		CashAfter:         r.CashAfter,
		CentralBankCash:   r.CentralBankCash,
		Inflows:           r.Inflows,
		Obligations:       r.Obligations,
		OperatingCosts:    r.OperatingCosts,
		Deficits:          r.Deficits,
		Rescues:           r.Rescues,
		InterbankCount:    ib.Count,
		InterbankVolume:   ib.Volume,
		CentralBankCount:  cb.Count,
		CentralBankVolume: cb.Volume,
		Liquidity:         r.Liquidity,
		HHI:               r.HHI,

		OutstandingInterbankCount:    openIB.Count,
		OutstandingInterbankVolume:   openIB.Volume,
		OutstandingCentralBankCount:  openCB.Count,
		OutstandingCentralBankVolume: openCB.Volume,
	}
}

// NewBankDay flattens one bank snapshot.
func NewBankDay(day int, s market.BankSnapshot) BankDay {
	return BankDay{
		Day:              day,
		BankID:           s.ID,
		Cash:             s.Cash,
		Reliability:      s.Reliability,
		Delta:            s.Delta,
		Shortfall:        s.Shortfall,
		Borrowed:         s.Borrowed,
		Rescued:          s.Rescued,
		AcceptedDeposits: s.AcceptedDeposits,
		AcceptedCredits:  s.AcceptedCredits,
		RejectedCredits:  s.RejectedCredits,
	}
}

// LedgerPoints collects the latest history point of every kind on both
// sides of every commercial bank. Call it after DayCycle.
func LedgerPoints(e *market.Engine) []LedgerPoint {
	var points []LedgerPoint
	for _, b := range e.Banks() {
		for _, l := range []*ledger.Ledger{b.Assets, b.Liabilities} {
			h := l.History()
			for _, kind := range model.Kinds {
				points = append(points, LedgerPoint{BankID: b.ID, Side: l.Side, Kind: kind, Value: h.Last(kind)})
			}
		}
	}
	return points
}
