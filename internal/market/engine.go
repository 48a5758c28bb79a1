package market

import (
	"fmt"
	"math/rand"

	"InterbankSim/internal/bank"
	"InterbankSim/internal/calculator"
	"InterbankSim/internal/config"
	"InterbankSim/internal/model"
)

// cashTolerance absorbs float rounding when checking end-of-day cash.
const cashTolerance = 1e-6

// Engine runs the daily settlement cycle over a fixed set of banks:
// Validate, Solve, Match, Rescue, Rollup. One call to DayCycle is one day.
type Engine struct {
	cfg     *config.Config
	rng     *rand.Rand
	factory *model.Factory

	banks       []*bank.Bank
	byID        map[int]*bank.Bank
	cb          *bank.CentralBank
	initialCash []float64
	day         int

	solved   []*bank.Bank
	unsolved []*bank.Bank
	today    *dayTally
}

// dayTally collects the loans created during the current day.
type dayTally struct {
	created  map[model.Kind]LoanTally
	borrowed map[int]float64
	rescued  map[int]float64
}

func newDayTally() *dayTally {
	return &dayTally{
		created:  map[model.Kind]LoanTally{},
		borrowed: map[int]float64{},
		rescued:  map[int]float64{},
	}
}

// NewEngine creates an engine over the given banks. All randomness is drawn
// from rng, which must be the same generator the banks and factory use.
func NewEngine(cfg *config.Config, rng *rand.Rand, factory *model.Factory, banks []*bank.Bank, cb *bank.CentralBank) (*Engine, error) {
	if cfg == nil || rng == nil || factory == nil || cb == nil {
		return nil, fmt.Errorf("%w: engine needs config, rng, factory and central bank", config.ErrConfig)
	}
	e := &Engine{
		cfg:     cfg,
		rng:     rng,
		factory: factory,
		banks:   banks,
		byID:    make(map[int]*bank.Bank, len(banks)),
		cb:      cb,
		today:   newDayTally(),
	}
	for _, b := range banks {
		if b == nil {
			return nil, fmt.Errorf("%w: nil bank", config.ErrConfig)
		}
		if _, dup := e.byID[b.ID]; dup || b.ID == bank.CentralBankID {
			return nil, fmt.Errorf("%w: duplicate or reserved bank id %d", config.ErrConfig, b.ID)
		}
		e.byID[b.ID] = b
		e.initialCash = append(e.initialCash, b.Cash)
	}
	return e, nil
}

// Config returns the parameters currently in force.
func (e *Engine) Config() *config.Config { return e.cfg }

// Reconfigure switches the engine, its factory and every bank to cfg.
// Open obligations keep the terms they were created with.
func (e *Engine) Reconfigure(cfg *config.Config) {
	e.cfg = cfg
	e.factory.SetConfig(cfg)
	e.cb.SetConfig(cfg)
	for _, b := range e.banks {
		b.SetConfig(cfg)
	}
}

// Day returns the index of the next day to run.
func (e *Engine) Day() int { return e.day }

// Banks returns the commercial banks in creation order.
func (e *Engine) Banks() []*bank.Bank { return e.banks }

// CentralBank returns the lender of last resort.
func (e *Engine) CentralBank() *bank.CentralBank { return e.cb }

// Factory returns the obligation factory shared by the engine and its banks.
func (e *Engine) Factory() *model.Factory { return e.factory }

// InitialCash returns every bank's starting cash, index-aligned with Banks.
func (e *Engine) InitialCash() []float64 {
	return append([]float64(nil), e.initialCash...)
}

// BankInfo is what an application feed needs to know about a bank.
type BankInfo struct {
	ID          int
	InitialCash float64
}

// BankInfos lists the commercial banks for routing applications.
func (e *Engine) BankInfos() []BankInfo {
	infos := make([]BankInfo, len(e.banks))
	for i, b := range e.banks {
		infos[i] = BankInfo{ID: b.ID, InitialCash: e.initialCash[i]}
	}
	return infos
}

// Bank looks a commercial bank up by id.
func (e *Engine) Bank(id int) (*bank.Bank, bool) {
	b, ok := e.byID[id]
	return b, ok
}

// Intake queues applications routed to one bank.
func (e *Engine) Intake(bankID int, apps ...model.Application) error {
	b, ok := e.byID[bankID]
	if !ok {
		return fmt.Errorf("%w: unknown bank %d", config.ErrConfig, bankID)
	}
	return b.Submit(apps...)
}

// DayCycle runs one full day and returns its report. An error is always an
// invariant violation or configuration defect and the run must stop.
func (e *Engine) DayCycle() (*DayReport, error) {
	e.today = newDayTally()
	cashBefore := e.systemCash()

	if err := e.validate(); err != nil {
		return nil, err
	}
	e.solve()
	if err := e.match(); err != nil {
		return nil, err
	}
	if err := e.rescue(); err != nil {
		return nil, err
	}

	report := e.report(cashBefore)
	if err := e.rollup(); err != nil {
		return nil, err
	}
	e.day++
	return report, nil
}

func (e *Engine) validate() error {
	for _, b := range e.banks {
		if err := b.Validate(e.day); err != nil {
			return fmt.Errorf("validate %s: %w", b, err)
		}
		e.cb.ReceiveReserves(b.ReserveDue)
	}
	if err := e.cb.Validate(e.day); err != nil {
		return fmt.Errorf("validate central bank: %w", err)
	}
	return nil
}

func (e *Engine) solve() {
	e.solved = e.solved[:0]
	e.unsolved = e.unsolved[:0]
	for _, b := range e.banks {
		b.Solve()
		if b.Solved {
			e.solved = append(e.solved, b)
		} else {
			e.unsolved = append(e.unsolved, b)
		}
	}
	e.cb.Settle()
}

func (e *Engine) rollup() error {
	for _, b := range e.banks {
		b.Rollup()
		if b.Deficit != 0 || !b.Solved {
			return &model.InvariantError{Op: "rollup", BankID: b.ID, Day: e.day, Amount: b.Deficit,
				Detail: "bank ends the day with an unfunded deficit"}
		}
		if b.Cash < -cashTolerance {
			return &model.InvariantError{Op: "rollup", BankID: b.ID, Day: e.day, Amount: b.Cash,
				Detail: "bank ends the day with negative cash"}
		}
	}
	e.cb.Rollup()
	return nil
}

func (e *Engine) systemCash() float64 {
	return calculator.TotalCash(e.banks, e.cb)
}
