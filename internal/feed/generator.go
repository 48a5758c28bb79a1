package feed

import (
	"fmt"
	"math"
	"math/rand"

	"InterbankSim/internal/config"
	"InterbankSim/internal/market"
	"InterbankSim/internal/model"
)

const (
	DistributionUniform      = "uniform"
	DistributionProportional = "proportional"
)

// StaticFeed replays fixed batches, one per day. Days past the end get no
// applications.
type StaticFeed struct {
	Batches []map[int][]model.Application
}

func (s *StaticFeed) Name() string { return "static" }

func (s *StaticFeed) Applications(day int, _ []market.BankInfo) (map[int][]model.Application, error) {
	if day < 0 || day >= len(s.Batches) {
		return map[int][]model.Application{}, nil
	}
	return s.Batches[day], nil
}

// Generator samples a random number of applications per kind each day and
// routes every application to one bank.
type Generator struct {
	cfg          *config.Config
	rng          *rand.Rand
	factory      *model.Factory
	distribution string
}

// NewGenerator creates a Generator. It draws from the same rng and factory
// as the engine so a seed reproduces the whole run.
func NewGenerator(cfg *config.Config, rng *rand.Rand, factory *model.Factory) (*Generator, error) {
	dist := cfg.Applications.Distribution
	if dist != DistributionUniform && dist != DistributionProportional {
		return nil, fmt.Errorf("%w: unknown application distribution %q", config.ErrConfig, dist)
	}
	return &Generator{cfg: cfg, rng: rng, factory: factory, distribution: dist}, nil
}

func (g *Generator) Name() string { return "generator/" + g.distribution }

// SetConfig swaps the parameters used for the next batch.
func (g *Generator) SetConfig(cfg *config.Config) { g.cfg = cfg }

// Applications samples today's batch.
func (g *Generator) Applications(_ int, banks []market.BankInfo) (map[int][]model.Application, error) {
	if len(banks) == 0 {
		return nil, fmt.Errorf("%w: no banks to route applications to", config.ErrConfig)
	}
	shares, err := g.shares(banks)
	if err != nil {
		return nil, err
	}

	counts := []struct {
		kind   model.Kind
		bounds config.IntBounds
	}{
		{model.KindDeposit, g.cfg.Applications.Deposits},
		{model.KindRetailCredit, g.cfg.Applications.RetailCredits},
		{model.KindBusinessCredit, g.cfg.Applications.BusinessCredits},
	}
	batch := make(map[int][]model.Application, len(banks))
	for _, c := range counts {
		for i, n := range g.split(g.count(c.bounds), len(banks), shares) {
			id := banks[i].ID
			for j := 0; j < n; j++ {
				app, err := g.factory.SampleApplication(c.kind)
				if err != nil {
					return nil, fmt.Errorf("sample %s: %w", c.kind, err)
				}
				batch[id] = append(batch[id], app)
			}
		}
	}
	return batch, nil
}

func (g *Generator) count(b config.IntBounds) int {
	if b.Max <= 0 || b.Max < b.Min {
		return 0
	}
	return b.Min + g.rng.Intn(b.Max-b.Min+1)
}

// shares returns each bank's fraction of initial cash for proportional
// routing, or nil for uniform routing. Banks without positive cash get none.
func (g *Generator) shares(banks []market.BankInfo) ([]float64, error) {
	if g.distribution == DistributionUniform {
		return nil, nil
	}
	var total float64
	for _, b := range banks {
		if b.InitialCash > 0 {
			total += b.InitialCash
		}
	}
	if total <= 0 {
		return nil, fmt.Errorf("%w: proportional routing needs positive initial cash", config.ErrConfig)
	}
	out := make([]float64, len(banks))
	for i, b := range banks {
		if b.InitialCash > 0 {
			out[i] = b.InitialCash / total
		}
	}
	return out, nil
}

// split divides n applications over the banks. Uniform routing draws a bank
// per application; proportional routing gives each bank exactly its share of
// n, rounded half to even, so the per-bank counts may not add up to n.
func (g *Generator) split(n, banks int, shares []float64) []int {
	if shares == nil {
		out := make([]int, banks)
		for i := 0; i < n; i++ {
			out[g.rng.Intn(banks)]++
		}
		return out
	}
	out := make([]int, len(shares))
	for i, s := range shares {
		out[i] = int(math.RoundToEven(s * float64(n)))
	}
	return out
}
