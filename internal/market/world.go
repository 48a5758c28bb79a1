package market

import (
	"fmt"
	"log"
	"math/rand"

	"InterbankSim/internal/bank"
	"InterbankSim/internal/config"
	"InterbankSim/internal/model"
)

// NewWorld builds the banks, the central bank and the opening interbank
// positions described by cfg, and returns an engine ready for day 0.
func NewWorld(cfg *config.Config, rng *rand.Rand) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	factory := model.NewFactory(cfg, rng)

	shares := liquidShares(cfg.Simulation.Banks, cfg.Simulation.LiquidDistribution)
	banks := make([]*bank.Bank, cfg.Simulation.Banks)
	for i := range banks {
		cash := cfg.Bank.StartCash * shares[i]
		tolerance := rng.Float64() * cfg.Bank.RiskToleranceBound
		banks[i] = bank.New(i, cash, tolerance, cfg, factory, rng)
	}
	cb := bank.NewCentralBank(cfg.CentralBank.StartCash, cfg, factory, rng)

	e, err := NewEngine(cfg, rng, factory, banks, cb)
	if err != nil {
		return nil, err
	}
	n, err := seedInterbankLoans(cfg, rng, factory, banks)
	if err != nil {
		return nil, err
	}
	log.Printf("[INFO] World ready: %d banks, %d opening interbank loans, seed %d",
		len(banks), n, cfg.Simulation.Seed)
	return e, nil
}

// liquidShares normalises the distribution so the shares sum to one. An
// empty distribution splits start cash evenly.
func liquidShares(n int, dist []float64) []float64 {
	shares := make([]float64, n)
	if len(dist) != n {
		for i := range shares {
			shares[i] = 1 / float64(n)
		}
		return shares
	}
	var sum float64
	for _, d := range dist {
		sum += d
	}
	for i, d := range dist {
		shares[i] = d / sum
	}
	return shares
}

// seedInterbankLoans books random opening loans between distinct banks.
// They exist on both ledgers but move no cash.
func seedInterbankLoans(cfg *config.Config, rng *rand.Rand, factory *model.Factory, banks []*bank.Bank) (int, error) {
	il := cfg.Market.InitialLoans
	if il.Count.Max <= 0 || len(banks) < 2 {
		return 0, nil
	}
	count := il.Count.Min + rng.Intn(il.Count.Max-il.Count.Min+1)
	for i := 0; i < count; i++ {
		pair := rng.Perm(len(banks))[:2]
		lender, borrower := banks[pair[0]], banks[pair[1]]
		volume := il.Volume.Min + rng.Float64()*(il.Volume.Max-il.Volume.Min)
		loan, err := factory.Create(model.KindInterbankLoan, volume)
		if err != nil {
			return i, fmt.Errorf("opening loan %d: %w", i, err)
		}
		lender.Assets.Append(loan)
		borrower.Liabilities.Append(loan)
	}
	return count, nil
}
