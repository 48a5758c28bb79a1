package market

import (
	"math"
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"InterbankSim/internal/bank"
	"InterbankSim/internal/config"
	"InterbankSim/internal/model"
)

func testConfig(t *testing.T, mutate func(c *config.Config)) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Bank.FixedCosts = 0
	cfg.Bank.OperatingCostRate = 0
	cfg.Market.DeficitBuffer = 0
	cfg.Market.LoanToGiveShare = 0.5
	if mutate != nil {
		mutate(cfg)
	}
	require.NoError(t, cfg.Validate())
	return cfg
}

// newTestEngine builds banks with explicit cash and zero risk tolerance.
func newTestEngine(t *testing.T, cfg *config.Config, cash ...float64) *Engine {
	t.Helper()
	rng := rand.New(rand.NewSource(7))
	factory := model.NewFactory(cfg, rng)
	banks := make([]*bank.Bank, len(cash))
	for i, c := range cash {
		banks[i] = bank.New(i, c, 0, cfg, factory, rng)
	}
	cb := bank.NewCentralBank(1e9, cfg, factory, rng)
	e, err := NewEngine(cfg, rng, factory, banks, cb)
	require.NoError(t, err)
	return e
}

// withdrawal books a deposit maturing today so the bank owes its volume.
func withdrawal(b *bank.Bank, volume float64) {
	b.Liabilities.Append(model.NewObligation(uuid.New(), model.KindDeposit, volume, 0.1, 0, 30))
}

func TestNewEngine_RejectsDuplicateIDs(t *testing.T) {
	cfg := testConfig(t, nil)
	rng := rand.New(rand.NewSource(1))
	f := model.NewFactory(cfg, rng)
	banks := []*bank.Bank{bank.New(1, 0, 0, cfg, f, rng), bank.New(1, 0, 0, cfg, f, rng)}
	_, err := NewEngine(cfg, rng, f, banks, bank.NewCentralBank(0, cfg, f, rng))
	assert.ErrorIs(t, err, config.ErrConfig)

	_, err = NewEngine(cfg, rng, f, nil, nil)
	assert.ErrorIs(t, err, config.ErrConfig)
}

func TestDayCycle_SingleLenderCoversShortfall(t *testing.T) {
	e := newTestEngine(t, testConfig(t, nil), 100, 400)
	borrower, lender := e.Banks()[0], e.Banks()[1]
	withdrawal(borrower, 150)

	report, err := e.DayCycle()
	require.NoError(t, err)

	assert.Equal(t, 0.0, borrower.Cash)
	assert.Equal(t, 350.0, lender.Cash)
	assert.True(t, borrower.Solved)
	assert.Zero(t, borrower.Deficit)

	assert.Equal(t, LoanTally{Count: 1, Volume: 50}, report.Created[model.KindInterbankLoan])
	assert.Zero(t, report.Created[model.KindCentralBankLoan].Count)
	assert.Equal(t, 1, report.Deficits)
	assert.Zero(t, report.Rescues)

	snap, ok := report.Bank(0)
	require.True(t, ok)
	assert.Equal(t, 50.0, snap.Shortfall)
	assert.Equal(t, 50.0, snap.Borrowed)
	assert.Zero(t, snap.Rescued)

	// one contract, visible from both sides
	require.Equal(t, 1, lender.Assets.Len())
	loan := lender.Assets.Active()[0]
	assert.Contains(t, borrower.Liabilities.Active(), loan)
	assert.Equal(t, LoanTally{Count: 1, Volume: 50}, report.Outstanding[model.KindInterbankLoan])
	assert.Equal(t, 1, e.Day())
}

func TestAttemptLoan_PartialThenFull(t *testing.T) {
	e := newTestEngine(t, testConfig(t, nil), -1000, 600, 2400)
	borrower, small, big := e.Banks()[0], e.Banks()[1], e.Banks()[2]
	borrower.Deficit = 1000
	borrower.Solved = false

	done, err := e.AttemptLoan(borrower, small)
	require.NoError(t, err)
	assert.False(t, done)
	assert.Equal(t, 700.0, borrower.Deficit)
	assert.Equal(t, 300.0, small.Cash)

	done, err = e.AttemptLoan(borrower, big)
	require.NoError(t, err)
	assert.True(t, done)
	assert.Zero(t, borrower.Deficit)
	assert.True(t, borrower.Solved)
	assert.Equal(t, 1700.0, big.Cash)
	assert.Equal(t, 0.0, borrower.Cash)
	assert.Equal(t, LoanTally{Count: 2, Volume: 1000}, e.today.created[model.KindInterbankLoan])
}

func TestDayCycle_TwoLendersInAnyOrder(t *testing.T) {
	for seed := int64(0); seed < 8; seed++ {
		cfg := testConfig(t, nil)
		rng := rand.New(rand.NewSource(seed))
		f := model.NewFactory(cfg, rng)
		banks := []*bank.Bank{
			bank.New(0, 0, 0, cfg, f, rng),
			bank.New(1, 600, 0, cfg, f, rng),
			bank.New(2, 2400, 0, cfg, f, rng),
		}
		e, err := NewEngine(cfg, rng, f, banks, bank.NewCentralBank(1e9, cfg, f, rng))
		require.NoError(t, err)
		withdrawal(banks[0], 1000)

		report, err := e.DayCycle()
		require.NoError(t, err)
		ib := report.Created[model.KindInterbankLoan]
		assert.InDelta(t, 1000.0, ib.Volume, 1e-9)
		assert.Contains(t, []int{1, 2}, ib.Count)
		assert.Zero(t, report.Rescues)
		assert.Zero(t, banks[0].Cash)
		assert.InDelta(t, 2000.0, banks[1].Cash+banks[2].Cash, 1e-9)
	}
}

func TestDayCycle_CentralBankRescueWithoutLenders(t *testing.T) {
	e := newTestEngine(t, testConfig(t, nil), 0)
	b := e.Banks()[0]
	withdrawal(b, 500)
	cbBefore := e.CentralBank().Cash

	report, err := e.DayCycle()
	require.NoError(t, err)

	assert.Zero(t, b.Cash)
	assert.True(t, b.Solved)
	assert.Equal(t, cbBefore-500, e.CentralBank().Cash)
	assert.Equal(t, LoanTally{Count: 1, Volume: 500}, report.Created[model.KindCentralBankLoan])
	assert.Equal(t, 1, report.Rescues)

	snap, _ := report.Bank(0)
	assert.Equal(t, 500.0, snap.Rescued)

	require.Equal(t, 1, e.CentralBank().Assets.Len())
	assert.Contains(t, b.Liabilities.Active(), e.CentralBank().Assets.Active()[0])
}

func TestAttemptLoan_NoCapacityLendsNothing(t *testing.T) {
	e := newTestEngine(t, testConfig(t, nil), -80, 0, 50)
	borrower, broke, owing := e.Banks()[0], e.Banks()[1], e.Banks()[2]
	borrower.Deficit = 80
	borrower.Solved = false
	owing.ObligationsToday = 60

	for _, lender := range []*bank.Bank{broke, owing} {
		done, err := e.AttemptLoan(borrower, lender)
		require.NoError(t, err)
		assert.False(t, done)
		assert.Zero(t, lender.Assets.Len())
	}
	assert.Equal(t, 80.0, borrower.Deficit)
	assert.Empty(t, e.today.created)
}

func TestRescue_ZeroDeficitCreatesNothing(t *testing.T) {
	e := newTestEngine(t, testConfig(t, nil), 10)
	b := e.Banks()[0]
	require.NoError(t, e.Rescue(b))
	assert.Zero(t, e.CentralBank().Assets.Len())
	assert.True(t, b.Solved)
}

func TestDayCycle_RateFloorStopsTheRun(t *testing.T) {
	cfg := testConfig(t, func(c *config.Config) {
		c.CentralBank.Rate = 0.02
		c.Market.RateFloor = 0.001
	})
	e := newTestEngine(t, cfg, 2e6) // reliability 1.0, deposit rate 0.02 - 0.03
	require.NoError(t, e.Intake(0, model.Application{Kind: model.KindDeposit, Volume: 100, Maturity: 180, PaymentPeriod: 30}))

	_, err := e.DayCycle()
	require.ErrorIs(t, err, model.ErrInvariant)
	var ie *model.InvariantError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, 0, ie.BankID)
	assert.Equal(t, 0, ie.Day)
}

func TestIntake_UnknownBank(t *testing.T) {
	e := newTestEngine(t, testConfig(t, nil), 10)
	err := e.Intake(42, model.Application{Kind: model.KindDeposit, Volume: 1, PaymentPeriod: 30})
	assert.ErrorIs(t, err, config.ErrConfig)
}

func TestDayCycle_ReservesMoveToCentralBank(t *testing.T) {
	e := newTestEngine(t, testConfig(t, nil), 0)
	require.NoError(t, e.Intake(0, model.Application{Kind: model.KindDeposit, Volume: 1000, Maturity: 180, PaymentPeriod: 30}))
	cbBefore := e.CentralBank().Cash

	report, err := e.DayCycle()
	require.NoError(t, err)
	assert.InDelta(t, 800.0, e.Banks()[0].Cash, 1e-9)
	assert.InDelta(t, cbBefore+200, e.CentralBank().Cash, 1e-9)
	assert.InDelta(t, report.CashBefore+1000, report.CashAfter, 1e-9)
}

func TestDayCycle_ReportsLiquidityAndOutstanding(t *testing.T) {
	e := newTestEngine(t, testConfig(t, nil), 0, 300)
	require.NoError(t, e.Intake(0, model.Application{Kind: model.KindDeposit, Volume: 1000, Maturity: 180, PaymentPeriod: 30}))
	withdrawal(e.Banks()[1], 500)

	report, err := e.DayCycle()
	require.NoError(t, err)

	// bank 1 funds its 200 shortfall from bank 0
	var want float64
	for _, s := range report.Banks {
		want += s.Cash
	}
	assert.InDelta(t, want, report.Liquidity, 1e-9)
	assert.InDelta(t, report.CashAfter-report.CentralBankCash, report.Liquidity, 1e-9)
	assert.Greater(t, report.HHI, 0.0)
	assert.LessOrEqual(t, report.HHI, 1.0)

	assert.Equal(t, LoanTally{Count: 1, Volume: 1000}, report.Outstanding[model.KindDeposit])
	created := report.Created[model.KindInterbankLoan]
	assert.Equal(t, LoanTally{Count: 1, Volume: 200}, created)
	assert.Equal(t, created, report.Outstanding[model.KindInterbankLoan])
	rescued := report.Created[model.KindCentralBankLoan]
	assert.Equal(t, rescued, report.Outstanding[model.KindCentralBankLoan])
	assert.Zero(t, report.Outstanding[model.KindRetailCredit].Count)
}

func worldConfig(t *testing.T) *config.Config {
	return testConfig(t, func(c *config.Config) {
		c.Simulation.Banks = 6
		c.Simulation.Seed = 11
		c.Bank.StartCash = 6e7
		c.Bank.FixedCosts = 1000
		c.Bank.OperatingCostRate = 0.0001
		c.Market.DeficitBuffer = 5000
		c.Market.InitialLoans.Count = config.IntBounds{Min: 2, Max: 5}
		c.Market.InitialLoans.Volume = config.Bounds{Min: 1e5, Max: 1e6}
	})
}

// intakeRandom routes a few sampled applications to every bank.
func intakeRandom(t *testing.T, e *Engine, rng *rand.Rand) {
	t.Helper()
	for _, b := range e.Banks() {
		for _, kind := range []model.Kind{model.KindDeposit, model.KindRetailCredit, model.KindBusinessCredit} {
			for n := rng.Intn(4); n > 0; n-- {
				app, err := e.Factory().SampleApplication(kind)
				require.NoError(t, err)
				require.NoError(t, e.Intake(b.ID, app))
			}
		}
	}
}

func runWorld(t *testing.T, cfg *config.Config, days int, check func(r *DayReport)) []*DayReport {
	t.Helper()
	rng := rand.New(rand.NewSource(cfg.Simulation.Seed))
	e, err := NewWorld(cfg, rng)
	require.NoError(t, err)
	require.Len(t, e.Banks(), cfg.Simulation.Banks)

	var reports []*DayReport
	for d := 0; d < days; d++ {
		intakeRandom(t, e, rng)
		r, err := e.DayCycle()
		require.NoError(t, err, "day %d", d)
		if check != nil {
			check(r)
		}
		for _, b := range e.Banks() {
			require.Zero(t, b.Deficit, "day %d %s", d, b)
			require.True(t, b.Solved, "day %d %s", d, b)
			require.GreaterOrEqual(t, b.Cash, -cashTolerance, "day %d %s", d, b)
			require.Len(t, b.CashHistory, d+1)
		}
		reports = append(reports, r)
	}
	return reports
}

func TestWorld_ConservationAndSolvency(t *testing.T) {
	cfg := worldConfig(t)
	var deficits, rescues int
	runWorld(t, cfg, 60, func(r *DayReport) {
		tol := 1e-6 * math.Max(1, math.Abs(r.CashBefore))
		assert.InDelta(t, r.Inflows-r.Obligations-r.OperatingCosts, r.CashAfter-r.CashBefore, tol, "day %d", r.Day)
		deficits += r.Deficits
		rescues += r.Rescues

		var created float64
		for _, s := range r.Banks {
			created += s.Borrowed + s.Rescued
			if s.Shortfall > 0 {
				assert.InDelta(t, s.Shortfall, s.Borrowed+s.Rescued, 1e-6*s.Shortfall, "day %d bank %d", r.Day, s.ID)
			}
		}
		total := r.Created[model.KindInterbankLoan].Volume + r.Created[model.KindCentralBankLoan].Volume
		assert.InDelta(t, total, created, 1e-6*math.Max(1, total))
	})
	assert.Positive(t, deficits, "the scenario should exercise matching")
	t.Logf("deficits=%d rescues=%d", deficits, rescues)
}

func TestWorld_LoansSharedBetweenLedgers(t *testing.T) {
	cfg := worldConfig(t)
	rng := rand.New(rand.NewSource(3))
	e, err := NewWorld(cfg, rng)
	require.NoError(t, err)
	for d := 0; d < 30; d++ {
		intakeRandom(t, e, rng)
		_, err := e.DayCycle()
		require.NoError(t, err)
	}

	liabilities := map[*model.Obligation]bool{}
	for _, b := range e.Banks() {
		for _, o := range b.Liabilities.Active() {
			liabilities[o] = true
		}
	}
	lenders := append([]*bank.Bank{e.CentralBank().Bank}, e.Banks()...)
	for _, l := range lenders {
		for _, o := range l.Assets.Active() {
			if o.Kind.IsLoan() {
				assert.True(t, liabilities[o], "%s from %s has no borrower", o, l)
			}
		}
	}
}

func TestWorld_SameSeedSameRun(t *testing.T) {
	first := runWorld(t, worldConfig(t), 20, nil)
	second := runWorld(t, worldConfig(t), 20, nil)
	assert.Equal(t, first, second)
}

func TestNewWorld_LiquidDistribution(t *testing.T) {
	cfg := testConfig(t, func(c *config.Config) {
		c.Simulation.Banks = 3
		c.Simulation.LiquidDistribution = []float64{1, 1, 2}
		c.Bank.StartCash = 1000
	})
	e, err := NewWorld(cfg, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.Equal(t, []float64{250, 250, 500}, e.InitialCash())
	for _, b := range e.Banks() {
		assert.GreaterOrEqual(t, b.RiskTolerance, 0.0)
		assert.Less(t, b.RiskTolerance, cfg.Bank.RiskToleranceBound)
	}
}

func TestNewWorld_OpeningLoansMoveNoCash(t *testing.T) {
	cfg := worldConfig(t)
	e, err := NewWorld(cfg, rand.New(rand.NewSource(5)))
	require.NoError(t, err)

	var lent, borrowed int
	for i, b := range e.Banks() {
		assert.InDelta(t, cfg.Bank.StartCash/float64(cfg.Simulation.Banks), b.Cash, 1e-6, "bank %d", i)
		lent += b.Assets.Len()
		borrowed += b.Liabilities.Len()
	}
	assert.Equal(t, lent, borrowed)
	assert.GreaterOrEqual(t, lent, 2)
	assert.LessOrEqual(t, lent, 5)
}

func TestNewWorld_InvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Simulation.Banks = 0
	_, err := NewWorld(cfg, rand.New(rand.NewSource(1)))
	assert.ErrorIs(t, err, config.ErrConfig)
}
