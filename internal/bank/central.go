package bank

import (
	"math/rand"

	"InterbankSim/internal/config"
	"InterbankSim/internal/model"
)

// CentralBankID identifies the central bank in reports.
const CentralBankID = -1

// CentralBank is the lender of last resort. It never borrows, carries no
// solvency constraint or operating costs, and collects reserve requirements.
type CentralBank struct {
	*Bank
}

// NewCentralBank creates the central bank with the given cash.
func NewCentralBank(cash float64, cfg *config.Config, factory *model.Factory, rng *rand.Rand) *CentralBank {
	return &CentralBank{Bank: New(CentralBankID, cash, 0, cfg, factory, rng)}
}

// ReceiveReserves credits reserve requirements posted by commercial banks.
func (cb *CentralBank) ReceiveReserves(amount float64) {
	cb.Cash += amount
}

// Settle applies today's repayments and coupons on central-bank loans.
// The central bank is solved by definition.
func (cb *CentralBank) Settle() {
	cb.Cash += cb.InflowsToday - cb.ObligationsToday
	cb.Solved = true
	cb.Deficit = 0
}
