package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ErrConfig marks every configuration problem: unknown instrument kinds,
// missing or malformed bounds and rates.
var ErrConfig = errors.New("configuration error")

// Bounds is an inclusive real interval.
type Bounds struct {
	Min float64 `yaml:"min" validate:"gte=0"`
	Max float64 `yaml:"max" validate:"gtefield=Min"`
}

// IntBounds is an inclusive integer interval.
type IntBounds struct {
	Min int `yaml:"min" validate:"gte=0"`
	Max int `yaml:"max" validate:"gtefield=Min"`
}

// Instrument holds the sampling terms of one obligation kind.
type Instrument struct {
	Volume   Bounds `yaml:"volume"`
	Maturity []int  `yaml:"maturity" validate:"required,min=1,dive,gt=0"`
}

// Config holds all simulation configuration. It is built once by Load or
// Default and must be treated as read-only afterwards.
type Config struct {
	Simulation struct {
		Days               int       `yaml:"days" validate:"gt=0"`
		Seed               int64     `yaml:"seed"`
		Banks              int       `yaml:"banks" validate:"gt=0"`
		LiquidDistribution []float64 `yaml:"liquid_distribution" validate:"omitempty,dive,gte=0"`
	} `yaml:"simulation"`
	Instruments    map[string]Instrument `yaml:"instruments" validate:"required,dive"`
	PaymentPeriods []int                 `yaml:"payment_periods" validate:"required,min=1,dive,gt=0"`
	CentralBank    struct {
		Rate        float64 `yaml:"rate" validate:"gt=0"`
		ReserveRate float64 `yaml:"reserve_rate" validate:"gte=0,lt=1"`
		StartCash   float64 `yaml:"start_cash" validate:"gte=0"`
	} `yaml:"central_bank"`
	Bank struct {
		StartCash          float64 `yaml:"start_cash" validate:"gt=0"`
		ReferenceCapital   float64 `yaml:"reference_capital" validate:"gt=0"`
		FixedCosts         float64 `yaml:"fixed_costs" validate:"gte=0"`
		OperatingCostRate  float64 `yaml:"operating_cost_rate" validate:"gte=0,lt=1"`
		RiskToleranceBound float64 `yaml:"risk_tolerance_bound" validate:"gt=0"`
	} `yaml:"bank"`
	Market struct {
		LoanToGiveShare float64 `yaml:"loan_to_give_share" validate:"gt=0,lte=1"`
		RateFloor       float64 `yaml:"rate_floor" validate:"gt=0"`
		DeficitBuffer   float64 `yaml:"deficit_buffer" validate:"gte=0"`
		InitialLoans    struct {
			Count  IntBounds `yaml:"count"`
			Volume Bounds    `yaml:"volume"`
		} `yaml:"initial_loans"`
	} `yaml:"market"`
	Applications struct {
		Distribution    string    `yaml:"distribution" validate:"oneof=uniform proportional"`
		Deposits        IntBounds `yaml:"deposits"`
		RetailCredits   IntBounds `yaml:"retail_credits"`
		BusinessCredits IntBounds `yaml:"business_credits"`
	} `yaml:"applications"`
	Schedule struct {
		StepCron string `yaml:"step_cron"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	API struct {
		Addr string `yaml:"addr"`
	} `yaml:"api"`
	// Shocks maps a day index to the overrides applied on that day only.
	Shocks map[int]Shock `yaml:"shocks" validate:"-"`
}

// Shock overrides a subset of parameters for a single day. Nil fields keep
// the base value.
type Shock struct {
	CentralBankRate   *float64   `yaml:"central_bank_rate"`
	ReserveRate       *float64   `yaml:"reserve_rate"`
	FixedCosts        *float64   `yaml:"fixed_costs"`
	OperatingCostRate *float64   `yaml:"operating_cost_rate"`
	LoanToGiveShare   *float64   `yaml:"loan_to_give_share"`
	RateFloor         *float64   `yaml:"rate_floor"`
	Deposits          *IntBounds `yaml:"deposits"`
	RetailCredits     *IntBounds `yaml:"retail_credits"`
	BusinessCredits   *IntBounds `yaml:"business_credits"`
}

// Load reads config from a YAML file over the defaults, then applies
// environment variable overrides. Keys absent from the file keep their
// default; keys present keep their value, zero included.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("SIM_SEED"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: SIM_SEED=%q is not an integer", ErrConfig, v)
		}
		cfg.Simulation.Seed = seed
	}
	if v := os.Getenv("SIM_DAYS"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("%w: SIM_DAYS=%q is not an integer", ErrConfig, v)
		}
		cfg.Simulation.Days = days
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("STEP_CRON"); v != "" {
		cfg.Schedule.StepCron = v
	}
	if v := os.Getenv("API_ADDR"); v != "" {
		cfg.API.Addr = v
	}

	return cfg, nil
}

// Default returns the reference parameter set.
func Default() *Config {
	cfg := &Config{
		Instruments: map[string]Instrument{
			"deposit":           {Volume: Bounds{Min: 10000, Max: 10000000}, Maturity: []int{180, 360, 720, 1080}},
			"retail_credit":     {Volume: Bounds{Min: 10000, Max: 10000000}, Maturity: []int{180, 360, 720, 1080}},
			"business_credit":   {Volume: Bounds{Min: 100000, Max: 50000000}, Maturity: []int{360, 720, 1080}},
			"interbank_loan":    {Maturity: []int{90, 180}},
			"central_bank_loan": {Maturity: []int{90, 180}},
		},
		PaymentPeriods: []int{30, 90},
	}
	cfg.Simulation.Days = 10
	cfg.Simulation.Banks = 20
	cfg.CentralBank.Rate = 0.1
	cfg.CentralBank.ReserveRate = 0.2
	cfg.CentralBank.StartCash = 1e15
	cfg.Bank.StartCash = 1e11
	cfg.Bank.ReferenceCapital = 2e6
	cfg.Bank.RiskToleranceBound = 1
	cfg.Market.LoanToGiveShare = 0.5
	cfg.Market.RateFloor = 0.001
	cfg.Applications.Distribution = "uniform"
	cfg.Applications.Deposits = IntBounds{Min: 10, Max: 1000}
	cfg.Applications.RetailCredits = IntBounds{Min: 10, Max: 1000}
	return cfg
}

// ForDay returns the parameters in force on day. Without a shock for that
// day it returns c itself; otherwise a copy carrying the overrides, leaving
// c untouched.
func (c *Config) ForDay(day int) *Config {
	s, ok := c.Shocks[day]
	if !ok {
		return c
	}
	return c.withShock(s)
}

func (c *Config) withShock(s Shock) *Config {
	out := *c
	out.Shocks = nil
	if s.CentralBankRate != nil {
		out.CentralBank.Rate = *s.CentralBankRate
	}
	if s.ReserveRate != nil {
		out.CentralBank.ReserveRate = *s.ReserveRate
	}
	if s.FixedCosts != nil {
		out.Bank.FixedCosts = *s.FixedCosts
	}
	if s.OperatingCostRate != nil {
		out.Bank.OperatingCostRate = *s.OperatingCostRate
	}
	if s.LoanToGiveShare != nil {
		out.Market.LoanToGiveShare = *s.LoanToGiveShare
	}
	if s.RateFloor != nil {
		out.Market.RateFloor = *s.RateFloor
	}
	if s.Deposits != nil {
		out.Applications.Deposits = *s.Deposits
	}
	if s.RetailCredits != nil {
		out.Applications.RetailCredits = *s.RetailCredits
	}
	if s.BusinessCredits != nil {
		out.Applications.BusinessCredits = *s.BusinessCredits
	}
	return &out
}
