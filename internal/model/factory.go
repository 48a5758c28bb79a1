package model

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/google/uuid"

	"InterbankSim/internal/config"
)

// obligationNamespace seeds name-based ids so a fixed seed reproduces them.
var obligationNamespace = uuid.MustParse("6f2d3c1a-8b7e-4e55-9a0c-3d4f5b6a7c8d")

// Factory creates obligations from configured instrument terms.
type Factory struct {
	cfg *config.Config
	rng *rand.Rand
	seq uint64
}

// NewFactory creates a Factory drawing from the given generator.
func NewFactory(cfg *config.Config, rng *rand.Rand) *Factory {
	return &Factory{cfg: cfg, rng: rng}
}

// SetConfig swaps the terms used for obligations created from now on.
func (f *Factory) SetConfig(cfg *config.Config) { f.cfg = cfg }

// DefaultRate is the rate a new obligation starts at before bank adjustment.
func (f *Factory) DefaultRate() float64 { return f.cfg.CentralBank.Rate }

func (f *Factory) terms(kind Kind) (config.Instrument, error) {
	if _, err := ParseKind(string(kind)); err != nil {
		return config.Instrument{}, err
	}
	terms, ok := f.cfg.Instruments[string(kind)]
	if !ok || len(terms.Maturity) == 0 {
		return config.Instrument{}, fmt.Errorf("%w: no terms configured for %s", config.ErrConfig, kind)
	}
	if len(f.cfg.PaymentPeriods) == 0 {
		return config.Instrument{}, fmt.Errorf("%w: payment_periods is empty", config.ErrConfig)
	}
	return terms, nil
}

// NextID returns a fresh deterministic obligation id.
func (f *Factory) NextID(kind Kind) uuid.UUID {
	f.seq++
	return uuid.NewSHA1(obligationNamespace, []byte(fmt.Sprintf("%s/%d", kind, f.seq)))
}

// Create builds an obligation of the given volume at the default rate,
// sampling maturity and payment period from the kind's choice-sets.
func (f *Factory) Create(kind Kind, volume float64) (*Obligation, error) {
	terms, err := f.terms(kind)
	if err != nil {
		return nil, err
	}
	if volume <= 0 {
		return nil, fmt.Errorf("%w: %s volume %.4f must be positive", config.ErrConfig, kind, volume)
	}
	maturity := terms.Maturity[f.rng.Intn(len(terms.Maturity))]
	period := f.cfg.PaymentPeriods[f.rng.Intn(len(f.cfg.PaymentPeriods))]
	return NewObligation(f.NextID(kind), kind, volume, f.DefaultRate(), maturity, period), nil
}

// Sample builds an obligation with volume drawn from the kind's bounds.
func (f *Factory) Sample(kind Kind) (*Obligation, error) {
	app, err := f.SampleApplication(kind)
	if err != nil {
		return nil, err
	}
	return f.FromApplication(app)
}

// SampleApplication draws application terms for a deposit or credit.
func (f *Factory) SampleApplication(kind Kind) (Application, error) {
	terms, err := f.terms(kind)
	if err != nil {
		return Application{}, err
	}
	if terms.Volume.Max <= 0 || terms.Volume.Min > terms.Volume.Max {
		return Application{}, fmt.Errorf("%w: invalid volume bounds for %s", config.ErrConfig, kind)
	}
	volume := math.Round(terms.Volume.Min + f.rng.Float64()*(terms.Volume.Max-terms.Volume.Min))
	if volume <= 0 {
		volume = terms.Volume.Max
	}
	return Application{
		Kind:          kind,
		Volume:        volume,
		Maturity:      terms.Maturity[f.rng.Intn(len(terms.Maturity))],
		PaymentPeriod: f.cfg.PaymentPeriods[f.rng.Intn(len(f.cfg.PaymentPeriods))],
	}, nil
}

// FromApplication turns an accepted application into an obligation at the default rate.
func (f *Factory) FromApplication(app Application) (*Obligation, error) {
	if _, err := ParseKind(string(app.Kind)); err != nil {
		return nil, err
	}
	if app.Volume <= 0 || app.PaymentPeriod <= 0 {
		return nil, fmt.Errorf("%w: malformed %s application", config.ErrConfig, app.Kind)
	}
	return NewObligation(f.NextID(app.Kind), app.Kind, app.Volume, f.DefaultRate(), app.Maturity, app.PaymentPeriod), nil
}
