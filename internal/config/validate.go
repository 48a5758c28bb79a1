package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// SampledKinds are the instruments whose volumes are drawn from configured bounds.
var SampledKinds = []string{"deposit", "retail_credit", "business_credit"}

// LoanKinds are the instruments created with an explicit volume by the engine.
var LoanKinds = []string{"interbank_loan", "central_bank_loan"}

// Validate checks that every required bound and rate is present and well formed.
// All failures wrap ErrConfig.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, e := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed '%s'", e.Namespace(), e.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrConfig, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrConfig, err)
	}

	for _, kind := range SampledKinds {
		terms, ok := c.Instruments[kind]
		if !ok {
			return fmt.Errorf("%w: instruments.%s is required", ErrConfig, kind)
		}
		if terms.Volume.Min <= 0 {
			return fmt.Errorf("%w: instruments.%s.volume.min must be positive", ErrConfig, kind)
		}
	}
	for _, kind := range LoanKinds {
		if _, ok := c.Instruments[kind]; !ok {
			return fmt.Errorf("%w: instruments.%s is required", ErrConfig, kind)
		}
	}

	if n := len(c.Simulation.LiquidDistribution); n > 0 {
		if n != c.Simulation.Banks {
			return fmt.Errorf("%w: liquid_distribution has %d shares for %d banks", ErrConfig, n, c.Simulation.Banks)
		}
		sum := 0.0
		for _, s := range c.Simulation.LiquidDistribution {
			sum += s
		}
		if sum <= 0 {
			return fmt.Errorf("%w: liquid_distribution must have a positive sum", ErrConfig)
		}
	}

	if c.Market.RateFloor >= c.CentralBank.Rate {
		return fmt.Errorf("%w: market.rate_floor %.4f must be below central_bank.rate %.4f",
			ErrConfig, c.Market.RateFloor, c.CentralBank.Rate)
	}
	if c.Market.InitialLoans.Count.Max > 0 {
		if c.Simulation.Banks < 2 {
			return fmt.Errorf("%w: initial interbank loans need at least two banks", ErrConfig)
		}
		if c.Market.InitialLoans.Volume.Min <= 0 {
			return fmt.Errorf("%w: market.initial_loans.volume.min must be positive", ErrConfig)
		}
	}

	for day, s := range c.Shocks {
		if day < 0 {
			return fmt.Errorf("%w: shock on negative day %d", ErrConfig, day)
		}
		if err := c.withShock(s).Validate(); err != nil {
			return fmt.Errorf("shocks.%d: %w", day, err)
		}
	}
	return nil
}
