package bank

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"InterbankSim/internal/config"
	"InterbankSim/internal/ledger"
	"InterbankSim/internal/model"
)

// Bank is a commercial bank: it takes deposits, extends credits and settles
// its books once per day.
type Bank struct {
	ID            int
	Cash          float64
	Reliability   float64
	Delta         float64
	RiskTolerance float64

	// Deficit is the amount still to be funded today; zero once solved.
	Deficit float64
	Solved  bool

	ObligationsToday float64
	InflowsToday     float64
	ReserveDue       float64
	OperatingCost    float64
	// Shortfall is the deficit computed by Solve, before any funding.
	Shortfall    float64
	ReservesHeld float64

	AcceptedDeposits int
	AcceptedCredits  int
	RejectedCredits  int

	Assets      *ledger.Ledger
	Liabilities *ledger.Ledger

	CashHistory        []float64
	ReliabilityHistory []float64
	DeltaHistory       []float64

	pendingDeposits []model.Application
	pendingCredits  []model.Application

	cfg     *config.Config
	factory *model.Factory
	rng     *rand.Rand
}

// New creates a bank with the given starting cash and risk tolerance.
func New(id int, cash, riskTolerance float64, cfg *config.Config, factory *model.Factory, rng *rand.Rand) *Bank {
	return &Bank{
		ID:            id,
		Cash:          cash,
		RiskTolerance: riskTolerance,
		Solved:        true,
		Assets:        ledger.New(ledger.SideAssets),
		Liabilities:   ledger.New(ledger.SideLiabilities),
		cfg:           cfg,
		factory:       factory,
		rng:           rng,
	}
}

// SetConfig swaps the parameters the bank settles with.
func (b *Bank) SetConfig(cfg *config.Config) { b.cfg = cfg }

func (b *Bank) String() string { return fmt.Sprintf("bank-%d", b.ID) }

// Submit queues applications for the next validation phase.
func (b *Bank) Submit(apps ...model.Application) error {
	for _, app := range apps {
		switch {
		case app.Kind == model.KindDeposit:
			b.pendingDeposits = append(b.pendingDeposits, app)
		case app.Kind.IsCredit():
			b.pendingCredits = append(b.pendingCredits, app)
		default:
			return fmt.Errorf("%w: %s cannot be submitted as an application", config.ErrConfig, app.Kind)
		}
	}
	return nil
}

// Pending returns the number of queued deposit and credit applications.
func (b *Bank) Pending() (deposits, credits int) {
	return len(b.pendingDeposits), len(b.pendingCredits)
}

// UpdateReliability recomputes reliability and the delta tier from current cash.
func (b *Bank) UpdateReliability() {
	b.Reliability = b.Cash / b.cfg.Bank.ReferenceCapital
	b.Delta = DeltaFor(b.Reliability)
}

// Validate accepts queued applications and computes today's obligations
// and inflows, settling both ledgers for the day.
func (b *Bank) Validate(day int) error {
	b.resetDay()
	b.UpdateReliability()

	var newDeposits, newCredits float64
	for _, app := range b.pendingDeposits {
		o, err := b.accept(app, day)
		if err != nil {
			return err
		}
		b.Liabilities.Append(o)
		b.ReserveDue += b.cfg.CentralBank.ReserveRate * o.Volume
		newDeposits += o.Volume
		b.AcceptedDeposits++
	}

	free := b.Cash
	for _, app := range b.pendingCredits {
		ok := free >= app.Volume
		if ok {
			free -= app.Volume
		} else {
			ok = b.rng.Float64()*b.cfg.Bank.RiskToleranceBound < b.RiskTolerance
		}
		if !ok {
			b.RejectedCredits++
			continue
		}
		o, err := b.accept(app, day)
		if err != nil {
			return err
		}
		b.Assets.Append(o)
		newCredits += o.Volume
		b.AcceptedCredits++
	}
	b.pendingDeposits = nil
	b.pendingCredits = nil

	liabilities := b.Liabilities.Settle(day)
	assets := b.Assets.Settle(day)
	b.ObligationsToday = liabilities.MaturedVolume + liabilities.Coupons + newCredits
	b.InflowsToday = assets.MaturedVolume + assets.Coupons + newDeposits
	return nil
}

func (b *Bank) accept(app model.Application, day int) (*model.Obligation, error) {
	o, err := b.factory.FromApplication(app)
	if err != nil {
		return nil, err
	}
	if err := o.AdjustRate(b.Delta, b.cfg.Market.RateFloor); err != nil {
		var ie *model.InvariantError
		if errors.As(err, &ie) {
			ie.BankID = b.ID
			ie.Day = day
		}
		return nil, err
	}
	return o, nil
}

// Solve applies today's net flow and operating costs to cash and computes
// the deficit to be funded when cash went negative.
func (b *Bank) Solve() {
	b.Cash += b.InflowsToday - b.ObligationsToday - b.ReserveDue
	b.ReservesHeld += b.ReserveDue
	b.OperatingCost = b.cfg.Bank.FixedCosts + b.cfg.Bank.OperatingCostRate*math.Max(b.Cash, 0)
	b.Cash -= b.OperatingCost

	b.Solved = b.Cash >= 0
	b.Deficit = 0
	if !b.Solved {
		buffer := 0.0
		if bound := b.cfg.Market.DeficitBuffer; bound > 0 {
			buffer = b.rng.Float64() * bound
		}
		b.Deficit = -b.Cash + buffer
	}
	b.Shortfall = b.Deficit
}

// Lend posts a loan contract as an asset and pays out its volume.
func (b *Bank) Lend(o *model.Obligation) {
	b.Assets.Append(o)
	b.Cash -= o.Volume
}

// Borrow posts a loan contract as a liability, receives its volume and
// reduces the outstanding deficit by the same amount.
func (b *Bank) Borrow(o *model.Obligation) {
	b.Liabilities.Append(o)
	b.Cash += o.Volume
	b.Deficit = math.Max(b.Deficit-o.Volume, 0)
	if b.Deficit == 0 {
		b.Solved = true
	}
}

// Rollup closes the day: ledgers append their cumulative totals and the
// per-bank series get today's point.
func (b *Bank) Rollup() {
	b.Assets.Rollup()
	b.Liabilities.Rollup()
	b.CashHistory = append(b.CashHistory, b.Cash)
	b.ReliabilityHistory = append(b.ReliabilityHistory, b.Reliability)
	b.DeltaHistory = append(b.DeltaHistory, b.Delta)
}

func (b *Bank) resetDay() {
	b.ObligationsToday = 0
	b.InflowsToday = 0
	b.ReserveDue = 0
	b.OperatingCost = 0
	b.Shortfall = 0
	b.AcceptedDeposits = 0
	b.AcceptedCredits = 0
	b.RejectedCredits = 0
}
